package pipeline

import (
	"github.com/spigell/resume-ranker/internal/candidate"
	"github.com/spigell/resume-ranker/internal/requirements"
)

// Command is an input accepted by Dispatch.
type Command interface {
	command()
}

// SelectModels chooses the models and opens job analysis.
type SelectModels struct {
	Models Models
}

// AnalyzeJob extracts requirements from a job description.
type AnalyzeJob struct {
	Text string
}

// UpdateRequirements re-parses the edited requirement sections.
type UpdateRequirements struct {
	Sections requirements.Sections
}

// SkipReview accepts the requirements as they are.
type SkipReview struct{}

// AnalyzeResumes scores every queued resume.
type AnalyzeResumes struct{}

// Navigate returns to an earlier stage.
type Navigate struct {
	Stage Stage
}

func (SelectModels) command()       {}
func (AnalyzeJob) command()         {}
func (UpdateRequirements) command() {}
func (SkipReview) command()         {}
func (AnalyzeResumes) command()     {}
func (Navigate) command()           {}

// Event is emitted after a command changed the pipeline.
type Event interface {
	event()
}

// ModelsSelected follows SelectModels.
type ModelsSelected struct {
	Models Models
}

// RequirementsReady follows a successful job analysis.
type RequirementsReady struct {
	Requirements *requirements.JobRequirements
}

// ReviewCompleted follows UpdateRequirements or SkipReview.
type ReviewCompleted struct {
	Requirements *requirements.JobRequirements
	Edited       bool
}

// CandidatesScored follows a successful resume batch.
type CandidatesScored struct {
	Candidates []*candidate.Analysis
}

// StageEntered is emitted whenever the stage changes.
type StageEntered struct {
	From Stage
	To   Stage
}

func (ModelsSelected) event()    {}
func (RequirementsReady) event() {}
func (ReviewCompleted) event()   {}
func (CandidatesScored) event()  {}
func (StageEntered) event()      {}
