// Package analysis defines the boundary to the analysis service that reads job
// descriptions, holds chat turns and scores resumes.
package analysis

import (
	"context"

	"github.com/spigell/resume-ranker/internal/candidate"
	"github.com/spigell/resume-ranker/internal/conversation"
	"github.com/spigell/resume-ranker/internal/requirements"
	"github.com/spigell/resume-ranker/internal/resume"
)

// Service is every operation the pipeline needs from the analysis backend.
// Implementations return *ServiceError for failures the backend reports and
// *TransportError for connectivity problems or malformed responses.
type Service interface {
	conversation.Replier

	VerifyCredentials(ctx context.Context, credential string) (*Verification, error)
	AnalyzeJobDescription(ctx context.Context, req JobAnalysisRequest) (*requirements.JobRequirements, error)
	ParseRequirements(ctx context.Context, sections requirements.Sections) (*requirements.JobRequirements, error)
	AnalyzeResumes(ctx context.Context, req ResumeBatchRequest) ([]*candidate.Analysis, error)
}

// Verification is the outcome of a credential check.
type Verification struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// JobAnalysisRequest asks for the requirements of one job description.
type JobAnalysisRequest struct {
	Description string `json:"job_description" validate:"required"`
	Model       string `json:"model"`
}

// ResumeBatchRequest scores a batch of resumes against the requirements. The
// response holds one analysis per file in the same order.
type ResumeBatchRequest struct {
	Files        []*resume.Document
	Model        string
	Requirements *requirements.JobRequirements
}

// Filenames lists the batch file names in order.
func (r ResumeBatchRequest) Filenames() []string {
	names := make([]string, 0, len(r.Files))
	for _, f := range r.Files {
		names = append(names, f.Name)
	}
	return names
}
