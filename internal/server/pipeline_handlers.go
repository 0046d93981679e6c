package server

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/spigell/resume-ranker/internal/analysis"
	"github.com/spigell/resume-ranker/internal/pipeline"
	"github.com/spigell/resume-ranker/internal/requirements"
	"github.com/spigell/resume-ranker/internal/results"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type jobDescriptionRequest struct {
	JobDescription string `json:"job_description"`
}

type navigateRequest struct {
	Stage pipeline.Stage `json:"stage"`
}

type requirementsTextResponse struct {
	analysis.Envelope
	requirements.Sections
}

type stateResponse struct {
	analysis.Envelope
	State pipeline.State `json:"state"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"status":  "healthy",
		"message": "Resume Ranking API is running",
	})
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, stateResponse{Envelope: analysis.Envelope{Success: true}, State: s.pipeline.State()})
}

func (s *Server) handleSelectModels(w http.ResponseWriter, r *http.Request) {
	var models pipeline.Models
	if err := decodeJSON(w, r, &models); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.pipeline.SelectModels(models); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.handleState(w, r)
}

func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	var req navigateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.pipeline.Navigate(req.Stage); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.handleState(w, r)
}

func (s *Server) handlePipelineJob(w http.ResponseWriter, r *http.Request) {
	var req jobDescriptionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	reqs, err := s.pipeline.AnalyzeJob(r.Context(), req.JobDescription)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis.RequirementsResponse{
		Envelope:     analysis.Envelope{Success: true, Message: "Job description analyzed successfully"},
		Requirements: reqs,
	})
}

func (s *Server) handleCurrentRequirements(w http.ResponseWriter, r *http.Request) {
	reqs := s.pipeline.State().Requirements
	if reqs == nil {
		s.writeError(w, r, fmt.Errorf("%w: no requirements available", errNotFound))
		return
	}
	writeJSON(w, http.StatusOK, analysis.RequirementsResponse{
		Envelope:     analysis.Envelope{Success: true},
		Requirements: reqs,
	})
}

func (s *Server) handleRequirementsText(w http.ResponseWriter, r *http.Request) {
	sections, err := s.pipeline.RequirementsText()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, requirementsTextResponse{Envelope: analysis.Envelope{Success: true}, Sections: sections})
}

func (s *Server) handleUpdateRequirements(w http.ResponseWriter, r *http.Request) {
	var sections requirements.Sections
	if err := decodeJSON(w, r, &sections); err != nil {
		s.writeError(w, r, err)
		return
	}

	reqs, err := s.pipeline.UpdateRequirements(r.Context(), sections)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis.RequirementsResponse{
		Envelope:     analysis.Envelope{Success: true, Message: "Requirements updated successfully"},
		Requirements: reqs,
	})
}

func (s *Server) handleSkipReview(w http.ResponseWriter, r *http.Request) {
	if err := s.pipeline.SkipReview(); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.handleState(w, r)
}

func (s *Server) handlePipelineResumes(w http.ResponseWriter, r *http.Request) {
	docs, err := s.readUploads(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.pipeline.ClearQueue()
	for _, doc := range docs {
		if err := s.pipeline.QueueResume(doc); err != nil {
			s.writeError(w, r, err)
			return
		}
	}

	batch, err := s.pipeline.AnalyzeResumes(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis.ResumesResponse{
		Envelope: analysis.Envelope{Success: true, Message: fmt.Sprintf("Analyzed %d resumes successfully", len(batch))},
		Results:  batch,
	})
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.pipeline.Export(&buf); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeAttachment(w, "text/csv; charset=utf-8", results.ExportFilename, buf.Bytes())
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.pipeline.ExportXLSX(&buf); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeAttachment(w, xlsxContentType, results.ExportFilenameXLSX, buf.Bytes())
}

