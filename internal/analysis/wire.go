package analysis

import (
	"github.com/spigell/resume-ranker/internal/candidate"
	"github.com/spigell/resume-ranker/internal/conversation"
	"github.com/spigell/resume-ranker/internal/requirements"
)

// Paths of the HTTP analysis endpoints, relative to the API prefix.
const (
	APIPrefix        = "/api/v1/analysis"
	PathVerify       = "/verify"
	PathJob          = "/job-description"
	PathChat         = "/chat"
	PathParse        = "/requirements/parse"
	PathResumes      = "/resumes"
	PathExport       = "/export"
	FormFiles        = "files"
	FormModel        = "model"
	FormRequirements = "requirements"
)

// VerifyRequest carries a credential to check.
type VerifyRequest struct {
	APIKey string `json:"api_key"`
}

// RequirementsResponse answers job analysis and requirement parsing.
type RequirementsResponse struct {
	Envelope
	Requirements *requirements.JobRequirements `json:"requirements,omitempty"`
}

// ChatResponse answers a chat turn.
type ChatResponse struct {
	Envelope
	Response       string                `json:"response,omitempty"`
	Context        *conversation.Context `json:"context,omitempty"`
	JobDescription string                `json:"job_description,omitempty"`
}

// ResumesResponse answers a resume batch in request order.
type ResumesResponse struct {
	Envelope
	Results []*candidate.Analysis `json:"results,omitempty"`
}

// ExportRequest lists the candidates to render as CSV.
type ExportRequest struct {
	Candidates []*candidate.Analysis `json:"candidates"`
}
