package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/resume-ranker/internal/analysis"
	"github.com/spigell/resume-ranker/internal/candidate"
	"github.com/spigell/resume-ranker/internal/conversation"
	"github.com/spigell/resume-ranker/internal/logger"
	"github.com/spigell/resume-ranker/internal/requirements"
	"github.com/spigell/resume-ranker/internal/resume"
	"github.com/spigell/resume-ranker/internal/scoring"
	"github.com/spigell/resume-ranker/internal/utils"
)

const (
	defaultMaxLogLength = 200

	verifyPrompt = "Test"

	jobAnalysisTemperature = 0.19
	semanticTemperature    = 0.3
)

// Service implements analysis.Service with a Generator.
type Service struct {
	generator Generator
	factory   Factory
	logger    *zap.Logger
	maxLogLen int
}

var _ analysis.Service = (*Service)(nil)

// NewService builds the service. The factory may be nil, in which case
// credential checks are reported as unsupported.
func NewService(generator Generator, factory Factory, log *zap.Logger, maxLogLength int) *Service {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Service{
		generator: generator,
		factory:   factory,
		logger:    logger.OrNop(log),
		maxLogLen: maxLogLength,
	}
}

// VerifyCredentials builds a generator for the credential and sends a tiny prompt.
func (s *Service) VerifyCredentials(ctx context.Context, credential string) (*analysis.Verification, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return nil, analysis.Validationf("API key is required")
	}
	if s.factory == nil {
		return &analysis.Verification{Success: false, Message: "Credential verification is not supported by this provider."}, nil
	}

	gen, err := s.factory(ctx, credential)
	if err == nil {
		_, err = gen.GenerateContent(ctx, Request{Prompt: verifyPrompt})
	}
	if err != nil {
		s.logger.Info("credential verification failed", zap.Error(err))
		return &analysis.Verification{Success: false, Message: "Invalid API Key. Please check and try again."}, nil
	}

	return &analysis.Verification{Success: true, Message: "API Key verified successfully!"}, nil
}

// AnalyzeJobDescription extracts structured requirements. The original job
// description of the result is always the input text.
func (s *Service) AnalyzeJobDescription(ctx context.Context, req analysis.JobAnalysisRequest) (*requirements.JobRequirements, error) {
	const op = "analyze job description"

	description := strings.TrimSpace(req.Description)
	if description == "" {
		return nil, analysis.Validationf("job description is required")
	}

	raw, err := s.generate(ctx, op, Request{
		Model:       req.Model,
		System:      jobAnalysisSystem,
		Prompt:      fill(jobAnalysisUser, map[string]string{"JOB_DESCRIPTION": description}),
		JSON:        true,
		Temperature: temperature(jobAnalysisTemperature),
	})
	if err != nil {
		return nil, err
	}

	reqs, err := requirements.ParseJSON([]byte(extractJSON(raw)))
	if err != nil {
		return nil, &analysis.TransportError{Op: op, Err: err}
	}
	reqs.OriginalJobDescription = req.Description

	s.logger.Info("job description analyzed", zap.Int("requirements", reqs.Count()))
	return reqs, nil
}

// ParseRequirements reads the edited text blocks back into requirements.
func (s *Service) ParseRequirements(_ context.Context, sections requirements.Sections) (*requirements.JobRequirements, error) {
	if strings.TrimSpace(sections.MustHave+sections.Preferred+sections.Additional) == "" {
		return nil, analysis.Validationf("requirements text is empty")
	}

	reqs, err := requirements.Decode(sections)
	if err != nil {
		return nil, analysis.Validationf("%v", err)
	}
	return reqs, nil
}

// Chat answers one authoring turn.
func (s *Service) Chat(ctx context.Context, turn conversation.Turn) (*conversation.Reply, error) {
	const op = "chat"

	message := strings.TrimSpace(turn.Message)
	if message == "" {
		return nil, analysis.Validationf("message is required")
	}

	contextJSON, err := json.MarshalIndent(turn.Context, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal chat context: %w", err)
	}

	raw, err := s.generate(ctx, op, Request{
		System: chatSystem,
		Prompt: fill(chatUser, map[string]string{
			"CONTEXT":    string(contextJSON),
			"TRANSCRIPT": transcript(turn.Messages),
			"MESSAGE":    message,
		}),
		JSON: true,
	})
	if err != nil {
		return nil, err
	}

	data, err := decodeObject(raw)
	if err != nil {
		return nil, &analysis.TransportError{Op: op, Err: err}
	}

	reply := &conversation.Reply{
		Response:       coerceString(data["response"]),
		JobDescription: coerceString(data["job_description"]),
	}
	if reply.JobDescription == "" {
		reply.JobDescription = coerceString(data["jobDescription"])
	}
	if reply.Response == "" {
		return nil, &analysis.TransportError{Op: op, Err: errors.New("model returned an empty reply")}
	}

	replyContext, err := decodeContext(data["context"])
	if err != nil {
		return nil, &analysis.TransportError{Op: op, Err: err}
	}
	reply.Context = replyContext

	return reply, nil
}

func transcript(messages []conversation.Message) string {
	var b strings.Builder
	for _, m := range messages {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
		if m.JobDescription != "" {
			fmt.Fprintf(&b, "%s (draft): %s\n", m.Role, m.JobDescription)
		}
	}
	return strings.TrimSpace(b.String())
}

// AnalyzeResumes scores every file in order. The batch fails as a whole when
// any file fails.
func (s *Service) AnalyzeResumes(ctx context.Context, req analysis.ResumeBatchRequest) ([]*candidate.Analysis, error) {
	if req.Requirements == nil {
		return nil, analysis.Validationf("job requirements are required")
	}
	if len(req.Files) == 0 {
		return nil, analysis.Validationf("no resumes to analyze")
	}

	seen := make(map[string]struct{}, len(req.Files))
	for _, f := range req.Files {
		if f == nil {
			return nil, analysis.Validationf("resume is missing")
		}
		if _, dup := seen[f.Name]; dup {
			return nil, analysis.Validationf("duplicate resume %q", f.Name)
		}
		seen[f.Name] = struct{}{}
	}

	requirementsText, err := describeRequirements(req.Requirements)
	if err != nil {
		return nil, err
	}

	results := make([]*candidate.Analysis, 0, len(req.Files))
	for i, f := range req.Files {
		if err := ctx.Err(); err != nil {
			return nil, &analysis.TransportError{Op: "analyze resumes", Err: err}
		}

		a, err := s.analyzeResume(ctx, f, req.Model, requirementsText)
		if err != nil {
			return nil, fmt.Errorf("resume %q: %w", f.Name, err)
		}
		results = append(results, a)

		s.logger.Info("resume analyzed",
			zap.String("file", f.Name),
			zap.Int("position", i+1),
			zap.Int("total", len(req.Files)),
			zap.Int("semantic", a.SemanticPercentage),
			zap.Int("quantitative", a.QuantitativePercentage),
		)
	}
	return results, nil
}

func (s *Service) analyzeResume(ctx context.Context, doc *resume.Document, model, requirementsText string) (*candidate.Analysis, error) {
	const op = "analyze resume"

	request := Request{
		Model:  model,
		System: resumeAnalysisSystem,
		JSON:   true,
	}

	body := doc.Text
	if body == "" {
		if !doc.IsBinary() {
			return nil, analysis.Validationf("resume %q has no text", doc.Name)
		}
		body = "The resume is attached as " + doc.Name + "."
		request.Attachments = []Attachment{{Name: doc.Name, MIMEType: doc.MIMEType, Data: doc.Data}}
	}
	request.Prompt = fill(resumeAnalysisUser, map[string]string{
		"REQUIREMENTS": requirementsText,
		"FILENAME":     doc.Name,
		"RESUME":       body,
	})

	raw, err := s.generate(ctx, op, request)
	if err != nil {
		return nil, err
	}

	a, err := candidate.ParseJSON(doc.Name, []byte(extractJSON(raw)))
	if err != nil {
		return nil, &analysis.TransportError{Op: op, Err: err}
	}

	a.QuantitativePercentage = scoring.Quantitative(a.RequirementMatch).Percentage()
	a.SemanticPercentage = s.semanticScore(ctx, a)
	return a, nil
}

// semanticScore asks for a holistic fit score and falls back to a rule based
// estimate when the call or its output fails.
func (s *Service) semanticScore(ctx context.Context, a *candidate.Analysis) int {
	q := a.QualitativeAssessment
	assessment, err := json.MarshalIndent(map[string]any{
		"transferability_to_role":  q.TransferabilityToRole,
		"project_gravity":          q.ProjectGravity,
		"ownership_and_initiative": q.OwnershipAndInitiative,
		"inferred_skills":          q.InferredSkills,
		"recruiter_summary":        q.RecruiterStyleSummary,
		"final_recommendation":     a.FinalRecommendation,
		"key_factors":              a.SummaryOfKeyFactors,
	}, "", "  ")
	if err != nil {
		return scoring.FallbackSemantic(a)
	}

	raw, err := s.generate(ctx, "semantic score", Request{
		System:      semanticScoreSystem,
		Prompt:      fill(semanticScoreUser, map[string]string{"ASSESSMENT": string(assessment)}),
		JSON:        true,
		Temperature: temperature(semanticTemperature),
	})
	if err != nil {
		s.logger.Warn("semantic scoring failed, using fallback", zap.String("file", a.Filename), zap.Error(err))
		return scoring.FallbackSemantic(a)
	}

	data, err := decodeObject(raw)
	if err != nil {
		s.logger.Warn("semantic score is not JSON, using fallback", zap.String("file", a.Filename), zap.Error(err))
		return scoring.FallbackSemantic(a)
	}

	score := coerceFloat(data["semantic_score"])
	if math.IsNaN(score) {
		s.logger.Warn("semantic score missing, using fallback", zap.String("file", a.Filename))
		return scoring.FallbackSemantic(a)
	}

	s.logger.Debug("semantic score",
		zap.String("file", a.Filename),
		zap.Float64("score", score),
		zap.String("reasoning", utils.TruncateForLog(coerceString(data["reasoning"]), s.maxLogLen)),
	)
	return scoring.Clamp(int(math.Round(score)))
}

func describeRequirements(r *requirements.JobRequirements) (string, error) {
	sections := []struct {
		title string
		value any
	}{
		{"Must-Have Requirements", r.MustHave},
		{"Good-to-Have Requirements", r.GoodToHave},
		{"Additional Screening Criteria", r.AdditionalScreeningCriteria},
	}

	var b strings.Builder
	b.WriteString("Original Job Description:\n")
	b.WriteString(strings.TrimSpace(r.OriginalJobDescription))
	b.WriteString("\n")
	for _, section := range sections {
		data, err := json.MarshalIndent(section.value, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshal %s: %w", section.title, err)
		}
		fmt.Fprintf(&b, "\n%s:\n%s\n", section.title, data)
	}
	return strings.TrimSpace(b.String()), nil
}

func (s *Service) generate(ctx context.Context, op string, req Request) (string, error) {
	model := req.Model
	if model == "" {
		model = s.generator.Model()
	}

	s.logger.Debug("generate content request",
		zap.String("operation", op),
		zap.String(logger.FieldModel, model),
		zap.Int("prompt_length", utf8.RuneCountInString(req.Prompt)),
		zap.Int("attachments", len(req.Attachments)),
		zap.String("prompt_preview", utils.TruncateForLog(req.Prompt, s.maxLogLen)),
	)

	raw, err := s.generator.GenerateContent(ctx, req)
	if err != nil {
		if analysis.IsValidation(err) {
			return "", err
		}
		return "", analysis.NewTransportError(op, err)
	}

	s.logger.Debug("generate content response",
		zap.String("operation", op),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, s.maxLogLen)),
	)
	return raw, nil
}
