package server

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spigell/resume-ranker/internal/analysis"
	"github.com/spigell/resume-ranker/internal/conversation"
	"github.com/spigell/resume-ranker/internal/requirements"
	"github.com/spigell/resume-ranker/internal/results"
	"github.com/spigell/resume-ranker/internal/resume"
)

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req analysis.VerifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.service.VerifyCredentials(r.Context(), req.APIKey)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleAnalyzeJob(w http.ResponseWriter, r *http.Request) {
	var req analysis.JobAnalysisRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	reqs, err := s.service.AnalyzeJobDescription(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis.RequirementsResponse{
		Envelope:     analysis.Envelope{Success: true, Message: "Job description analyzed successfully"},
		Requirements: reqs,
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var turn conversation.Turn
	if err := decodeJSON(w, r, &turn); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(turn.Message) == "" {
		s.writeError(w, r, conversation.ErrEmptyMessage)
		return
	}

	reply, err := s.service.Chat(r.Context(), turn)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis.ChatResponse{
		Envelope:       analysis.Envelope{Success: true},
		Response:       reply.Response,
		Context:        reply.Context,
		JobDescription: reply.JobDescription,
	})
}

func (s *Server) handleParseRequirements(w http.ResponseWriter, r *http.Request) {
	var sections requirements.Sections
	if err := decodeJSON(w, r, &sections); err != nil {
		s.writeError(w, r, err)
		return
	}

	reqs, err := s.service.ParseRequirements(r.Context(), sections)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis.RequirementsResponse{
		Envelope:     analysis.Envelope{Success: true, Message: "Requirements updated successfully"},
		Requirements: reqs,
	})
}

func (s *Server) handleAnalyzeResumes(w http.ResponseWriter, r *http.Request) {
	docs, err := s.readUploads(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	raw := strings.TrimSpace(r.FormValue(analysis.FormRequirements))
	if raw == "" {
		s.writeError(w, r, analysis.Validationf("requirements are required"))
		return
	}
	reqs, err := requirements.ParseJSON([]byte(raw))
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %w", analysis.ErrValidation, err))
		return
	}

	batch, err := s.service.AnalyzeResumes(r.Context(), analysis.ResumeBatchRequest{
		Files:        docs,
		Model:        strings.TrimSpace(r.FormValue(analysis.FormModel)),
		Requirements: reqs,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis.ResumesResponse{
		Envelope: analysis.Envelope{Success: true, Message: fmt.Sprintf("Analyzed %d resumes successfully", len(batch))},
		Results:  batch,
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var req analysis.ExportRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := results.NewAggregator().Replace(req.Candidates); err != nil {
		s.writeError(w, r, analysis.Validationf("%v", err))
		return
	}
	for i, a := range req.Candidates {
		if err := a.Validate(); err != nil {
			s.writeError(w, r, analysis.Validationf("candidate %d: %v", i, err))
			return
		}
	}

	var buf bytes.Buffer
	if err := results.WriteCSV(&buf, req.Candidates); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeAttachment(w, "text/csv; charset=utf-8", results.ExportFilename, buf.Bytes())
}

// readUploads reads every multipart file of the files field into documents.
func (s *Server) readUploads(w http.ResponseWriter, r *http.Request) ([]*resume.Document, error) {
	limit := s.cfg.MaxUploadMB << 20
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		return nil, analysis.Validationf("malformed upload: %v", err)
	}

	headers := r.MultipartForm.File[analysis.FormFiles]
	if len(headers) == 0 {
		return nil, analysis.Validationf("no files uploaded")
	}

	docs := make([]*resume.Document, 0, len(headers))
	for _, h := range headers {
		f, err := h.Open()
		if err != nil {
			return nil, fmt.Errorf("open upload %q: %w", h.Filename, err)
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("read upload %q: %w", h.Filename, err)
		}

		doc, err := resume.FromBytes(h.Filename, data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", h.Filename, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func writeAttachment(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
