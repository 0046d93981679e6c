// Package remote implements analysis.Service against the HTTP analysis API
// exposed by the serve command.
package remote

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/resume-ranker/internal/analysis"
	"github.com/spigell/resume-ranker/internal/candidate"
	"github.com/spigell/resume-ranker/internal/conversation"
	"github.com/spigell/resume-ranker/internal/logger"
	"github.com/spigell/resume-ranker/internal/requirements"
	"github.com/spigell/resume-ranker/internal/utils"
)

const (
	// Provider is the configuration name of this backend.
	Provider = "remote"

	contentType     = "application/json"
	contentEncoding = "gzip"
	userAgent       = "spigell/resume-ranker"
	defaultTimeout  = 2 * time.Minute
	maxLogLength    = 200
)

// Client talks to a remote analysis API.
type Client struct {
	baseURL    string
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
}

var _ analysis.Service = (*Client)(nil)

// New creates a client for the API rooted at baseURL.
func New(baseURL string, timeout time.Duration, log *zap.Logger) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("remote analysis url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("parse remote analysis url: %w", err)
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL:    baseURL,
		logger:     logger.OrNop(log).With(zap.String(logger.FieldProvider, Provider)),
		HTTPClient: &http.Client{Timeout: timeout},
		UserAgent:  userAgent,
	}, nil
}

// VerifyCredentials asks the remote side to check credential.
func (c *Client) VerifyCredentials(ctx context.Context, credential string) (*analysis.Verification, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return nil, analysis.Validationf("api key is required")
	}

	body, status, err := c.postJSON(ctx, analysis.PathVerify, analysis.VerifyRequest{APIKey: credential})
	if err != nil {
		return nil, &analysis.TransportError{Op: "verify credentials", Err: err}
	}

	var result analysis.Verification
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &analysis.TransportError{Op: "verify credentials", Err: fmt.Errorf("decode response (status %d): %w", status, err)}
	}

	return &result, nil
}

// AnalyzeJobDescription requests the requirements of one job description.
func (c *Client) AnalyzeJobDescription(ctx context.Context, req analysis.JobAnalysisRequest) (*requirements.JobRequirements, error) {
	const op = "analyze job description"

	if strings.TrimSpace(req.Description) == "" {
		return nil, analysis.Validationf("job description is required")
	}

	var out analysis.RequirementsResponse
	if err := c.call(ctx, op, analysis.PathJob, req, &out); err != nil {
		return nil, err
	}

	return checkRequirements(op, out.Requirements)
}

// ParseRequirements sends the edited requirement sections for parsing.
func (c *Client) ParseRequirements(ctx context.Context, sections requirements.Sections) (*requirements.JobRequirements, error) {
	const op = "parse requirements"

	var out analysis.RequirementsResponse
	if err := c.call(ctx, op, analysis.PathParse, sections, &out); err != nil {
		return nil, err
	}

	return checkRequirements(op, out.Requirements)
}

// Chat sends one conversation turn.
func (c *Client) Chat(ctx context.Context, turn conversation.Turn) (*conversation.Reply, error) {
	const op = "chat"

	var out analysis.ChatResponse
	if err := c.call(ctx, op, analysis.PathChat, turn, &out); err != nil {
		return nil, err
	}

	if strings.TrimSpace(out.Response) == "" {
		return nil, &analysis.TransportError{Op: op, Err: errors.New("response is empty")}
	}

	return &conversation.Reply{
		Response:       out.Response,
		Context:        out.Context,
		JobDescription: out.JobDescription,
	}, nil
}

// AnalyzeResumes uploads the batch as multipart form data.
func (c *Client) AnalyzeResumes(ctx context.Context, req analysis.ResumeBatchRequest) ([]*candidate.Analysis, error) {
	const op = "analyze resumes"

	if req.Requirements == nil {
		return nil, analysis.Validationf("requirements are required")
	}
	if len(req.Files) == 0 {
		return nil, analysis.Validationf("no resumes to analyze")
	}

	encoded, err := json.Marshal(req.Requirements)
	if err != nil {
		return nil, fmt.Errorf("encode requirements: %w", err)
	}

	var b bytes.Buffer
	w := multipart.NewWriter(&b)
	for _, doc := range req.Files {
		if doc == nil {
			return nil, analysis.Validationf("resume batch contains an empty file")
		}
		part, err := w.CreateFormFile(analysis.FormFiles, doc.Name)
		if err != nil {
			return nil, err
		}
		if _, err := part.Write(doc.Data); err != nil {
			return nil, err
		}
	}
	if err := w.WriteField(analysis.FormModel, req.Model); err != nil {
		return nil, err
	}
	if err := w.WriteField(analysis.FormRequirements, string(encoded)); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	httpReq, err := c.newRequest(ctx, analysis.PathResumes, &b)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", w.FormDataContentType())

	var out analysis.ResumesResponse
	if err := c.do(op, httpReq, &out); err != nil {
		return nil, err
	}

	if len(out.Results) != len(req.Files) {
		return nil, &analysis.TransportError{Op: op, Err: fmt.Errorf("expected %d results, got %d", len(req.Files), len(out.Results))}
	}
	for i, a := range out.Results {
		if a == nil {
			return nil, &analysis.TransportError{Op: op, Err: fmt.Errorf("result %d is empty", i)}
		}
		if err := a.Validate(); err != nil {
			return nil, &analysis.TransportError{Op: op, Err: err}
		}
	}

	return out.Results, nil
}

// Export renders candidates as CSV on the remote side.
func (c *Client) Export(ctx context.Context, items []*candidate.Analysis) ([]byte, error) {
	body, status, err := c.postJSON(ctx, analysis.PathExport, analysis.ExportRequest{Candidates: items})
	if err != nil {
		return nil, &analysis.TransportError{Op: "export", Err: err}
	}
	if status != http.StatusOK {
		return nil, analysis.DecodeEnvelope("export", body, nil)
	}
	return body, nil
}

func (c *Client) call(ctx context.Context, op, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", op, err)
	}

	req, err := c.newRequest(ctx, path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)

	c.logger.Debug("sending analysis request",
		zap.String("op", op),
		zap.String("payload_preview", utils.TruncateForLog(string(payload), maxLogLength)),
	)

	return c.do(op, req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, in any) ([]byte, int, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return nil, 0, err
	}

	req, err := c.newRequest(ctx, path, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.request(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return nil, 0, err
	}

	return body, resp.StatusCode, nil
}

func (c *Client) newRequest(ctx context.Context, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+analysis.APIPrefix+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept-Encoding", contentEncoding)
	return req, nil
}

func (c *Client) do(op string, req *http.Request, out any) error {
	resp, err := c.request(req)
	if err != nil {
		return &analysis.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return &analysis.TransportError{Op: op, Err: err}
	}

	c.logger.Debug("got analysis response",
		zap.String("op", op),
		zap.Int("status", resp.StatusCode),
		zap.String("response_preview", utils.TruncateForLog(string(body), maxLogLength)),
	)

	err = analysis.DecodeEnvelope(op, body, out)
	var se *analysis.ServiceError
	if resp.StatusCode == http.StatusBadRequest && errors.As(err, &se) {
		return analysis.Validationf("%s", se.Message)
	}
	return err
}

func (c *Client) request(req *http.Request) (*http.Response, error) {
	c.logger.Debug("make request", zap.String("url", req.URL.String()))
	return c.HTTPClient.Do(req)
}

// readBody drains the response, transparently inflating gzip payloads.
func readBody(resp *http.Response) ([]byte, error) {
	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gzipReader.Close()
		reader = gzipReader
	}

	return io.ReadAll(reader)
}

func checkRequirements(op string, r *requirements.JobRequirements) (*requirements.JobRequirements, error) {
	if r == nil {
		return nil, &analysis.TransportError{Op: op, Err: errors.New("response has no requirements")}
	}
	r.Normalize()
	if err := r.Validate(); err != nil {
		return nil, &analysis.TransportError{Op: op, Err: err}
	}
	return r, nil
}
