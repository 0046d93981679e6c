// Package pipeline drives the four stage hiring workflow: model selection, job
// analysis, requirements review and resume analysis.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/resume-ranker/internal/analysis"
	"github.com/spigell/resume-ranker/internal/candidate"
	"github.com/spigell/resume-ranker/internal/logger"
	"github.com/spigell/resume-ranker/internal/requirements"
	"github.com/spigell/resume-ranker/internal/resume"
	"github.com/spigell/resume-ranker/internal/results"
	"github.com/spigell/resume-ranker/internal/scoring"
)

var (
	// ErrBusy is returned while another analysis call is in flight.
	ErrBusy = errors.New("another analysis request is already in progress")
	// ErrStale is returned when the pipeline was navigated away from while a
	// call was in flight. The late result is discarded.
	ErrStale = errors.New("pipeline changed while the request was in flight, result discarded")

	ErrRequirementsMissing = fmt.Errorf("%w: please analyze a job description first", analysis.ErrValidation)
	ErrEmptyJobDescription = fmt.Errorf("%w: job description is required", analysis.ErrValidation)
	ErrWrongStage          = fmt.Errorf("%w: operation is not available at the current stage", analysis.ErrValidation)
	ErrNoResumes           = fmt.Errorf("%w: no resumes queued", analysis.ErrValidation)
	ErrDuplicateResume     = fmt.Errorf("%w: resume is already queued", analysis.ErrValidation)
	ErrNoResults           = fmt.Errorf("%w: no analysis results to export", analysis.ErrValidation)
)

// State is a snapshot of the pipeline.
type State struct {
	RunID          string                        `json:"run_id"`
	Stage          Stage                         `json:"stage"`
	Models         Models                        `json:"models"`
	JobDescription string                        `json:"job_description,omitempty"`
	Requirements   *requirements.JobRequirements `json:"requirements"`
	Candidates     []*candidate.Analysis         `json:"candidates"`
	Queue          []string                      `json:"queue"`
	Busy           bool                          `json:"busy"`
}

// Orchestrator owns the pipeline state. All mutation goes through commands;
// external calls run without holding the lock.
type Orchestrator struct {
	service    analysis.Service
	thresholds scoring.Thresholds
	results    *results.Aggregator
	logger     *zap.Logger

	mu             sync.Mutex
	runID          string
	stage          Stage
	models         Models
	jobDescription string
	requirements   *requirements.JobRequirements
	queue          []*resume.Document
	busy           bool
	epoch          uint64
	subscribers    []func(Event)
}

// New creates an orchestrator at the model selection stage.
func New(service analysis.Service, thresholds scoring.Thresholds, log *zap.Logger) *Orchestrator {
	runID := uuid.NewString()
	return &Orchestrator{
		service:    service,
		thresholds: thresholds,
		results:    results.NewAggregator(),
		logger:     logger.WithRun(logger.OrNop(log), runID),
		runID:      runID,
		stage:      StageModelSelection,
	}
}

// Subscribe registers fn for every emitted event. Handlers run synchronously
// after the state change, outside the lock.
func (o *Orchestrator) Subscribe(fn func(Event)) {
	if fn == nil {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.subscribers = append(o.subscribers, fn)
}

// State returns a snapshot of the pipeline.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()

	queue := make([]string, 0, len(o.queue))
	for _, doc := range o.queue {
		queue = append(queue, doc.Name)
	}

	return State{
		RunID:          o.runID,
		Stage:          o.stage,
		Models:         o.models,
		JobDescription: o.jobDescription,
		Requirements:   o.requirements.Clone(),
		Candidates:     o.results.All(),
		Queue:          queue,
		Busy:           o.busy,
	}
}

// Stage returns the current stage.
func (o *Orchestrator) Stage() Stage {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stage
}

// Thresholds returns the banding thresholds used for exports.
func (o *Orchestrator) Thresholds() scoring.Thresholds {
	return o.thresholds
}

// Dispatch executes cmd and returns the event describing its outcome.
func (o *Orchestrator) Dispatch(ctx context.Context, cmd Command) (Event, error) {
	switch c := cmd.(type) {
	case SelectModels:
		return o.selectModels(c.Models)
	case AnalyzeJob:
		return o.analyzeJob(ctx, c.Text)
	case UpdateRequirements:
		return o.updateRequirements(ctx, c.Sections)
	case SkipReview:
		return o.skipReview()
	case AnalyzeResumes:
		return o.analyzeResumes(ctx)
	case Navigate:
		return o.navigate(c.Stage)
	default:
		return nil, fmt.Errorf("unknown command %T", cmd)
	}
}

// SelectModels stores the model selection and opens job analysis.
func (o *Orchestrator) SelectModels(models Models) error {
	_, err := o.Dispatch(context.Background(), SelectModels{Models: models})
	return err
}

// AnalyzeJob sends text for job analysis and moves to requirements review.
func (o *Orchestrator) AnalyzeJob(ctx context.Context, text string) (*requirements.JobRequirements, error) {
	ev, err := o.Dispatch(ctx, AnalyzeJob{Text: text})
	if err != nil {
		return nil, err
	}
	return ev.(RequirementsReady).Requirements.Clone(), nil
}

// UpdateRequirements re-parses the edited sections and moves to resume analysis.
func (o *Orchestrator) UpdateRequirements(ctx context.Context, sections requirements.Sections) (*requirements.JobRequirements, error) {
	ev, err := o.Dispatch(ctx, UpdateRequirements{Sections: sections})
	if err != nil {
		return nil, err
	}
	return ev.(ReviewCompleted).Requirements.Clone(), nil
}

// SkipReview keeps the requirements unchanged and moves to resume analysis.
func (o *Orchestrator) SkipReview() error {
	_, err := o.Dispatch(context.Background(), SkipReview{})
	return err
}

// AnalyzeResumes scores the queued resumes as one batch.
func (o *Orchestrator) AnalyzeResumes(ctx context.Context) ([]*candidate.Analysis, error) {
	ev, err := o.Dispatch(ctx, AnalyzeResumes{})
	if err != nil {
		return nil, err
	}
	return ev.(CandidatesScored).Candidates, nil
}

// Navigate returns to an earlier stage, dropping scored candidates.
func (o *Orchestrator) Navigate(stage Stage) error {
	_, err := o.Dispatch(context.Background(), Navigate{Stage: stage})
	return err
}

// RequirementsText renders the current requirements for editing.
func (o *Orchestrator) RequirementsText() (requirements.Sections, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.requirements == nil {
		return requirements.Sections{}, ErrRequirementsMissing
	}
	return requirements.Encode(o.requirements), nil
}

// Candidates returns the scored candidates in the order they were returned.
func (o *Orchestrator) Candidates() []*candidate.Analysis {
	return o.results.All()
}

// Export writes the scored candidates as CSV.
func (o *Orchestrator) Export(w io.Writer) error {
	items := o.results.All()
	if len(items) == 0 {
		return ErrNoResults
	}
	return results.WriteCSV(w, items)
}

// ExportXLSX writes the scored candidates as a spreadsheet.
func (o *Orchestrator) ExportXLSX(w io.Writer) error {
	items := o.results.All()
	if len(items) == 0 {
		return ErrNoResults
	}
	return results.WriteXLSX(w, items, o.thresholds)
}

func (o *Orchestrator) selectModels(models Models) (Event, error) {
	models = models.Normalize()
	if err := models.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", analysis.ErrValidation, err)
	}

	o.mu.Lock()
	o.models = models
	events := []Event{ModelsSelected{Models: models}}
	if o.stage < StageJobAnalysis {
		events = append(events, o.enterLocked(StageJobAnalysis))
	}
	o.mu.Unlock()

	o.logger.Info("models selected", zap.String("primary", models.Primary), zap.String("reasoning", models.Reasoning))
	o.publish(events...)
	return events[0], nil
}

func (o *Orchestrator) analyzeJob(ctx context.Context, text string) (Event, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyJobDescription
	}

	var models Models
	epoch, err := o.begin(func() error {
		if o.stage < StageJobAnalysis {
			return ErrWrongStage
		}
		models = o.models
		return nil
	})
	if err != nil {
		return nil, err
	}

	o.logger.Info("analyzing job description", zap.String(logger.FieldModel, models.Primary), zap.Int("length", len(text)))
	reqs, callErr := o.service.AnalyzeJobDescription(ctx, analysis.JobAnalysisRequest{Description: text, Model: models.Primary})
	if callErr == nil {
		callErr = checkRequirements(reqs)
	}

	var events []Event
	err = o.finish(epoch, callErr, func() {
		reqs.OriginalJobDescription = text
		o.jobDescription = text
		o.requirements = reqs
		o.results.Reset()
		events = append(events, RequirementsReady{Requirements: reqs.Clone()})
		if o.stage != StageRequirementsReview {
			events = append(events, o.enterLocked(StageRequirementsReview))
		}
	})
	if err != nil {
		o.logger.Warn("job analysis failed", zap.Error(err))
		return nil, err
	}

	o.logger.Info("requirements ready", zap.Int("items", reqs.Count()))
	o.publish(events...)
	return events[0], nil
}

func (o *Orchestrator) updateRequirements(ctx context.Context, sections requirements.Sections) (Event, error) {
	epoch, err := o.begin(func() error {
		if o.requirements == nil {
			return ErrRequirementsMissing
		}
		if o.stage < StageRequirementsReview {
			return ErrWrongStage
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	reqs, callErr := o.service.ParseRequirements(ctx, sections)
	if callErr == nil {
		callErr = checkRequirements(reqs)
	}

	var events []Event
	err = o.finish(epoch, callErr, func() {
		reqs.OriginalJobDescription = o.jobDescription
		o.requirements = reqs
		o.results.Reset()
		events = append(events, ReviewCompleted{Requirements: reqs.Clone(), Edited: true})
		if o.stage != StageResumeAnalysis {
			events = append(events, o.enterLocked(StageResumeAnalysis))
		}
	})
	if err != nil {
		o.logger.Warn("requirements update failed", zap.Error(err))
		return nil, err
	}

	o.logger.Info("requirements updated", zap.Int("items", reqs.Count()))
	o.publish(events...)
	return events[0], nil
}

func (o *Orchestrator) skipReview() (Event, error) {
	o.mu.Lock()
	if o.requirements == nil {
		o.mu.Unlock()
		return nil, ErrRequirementsMissing
	}
	if o.stage != StageRequirementsReview {
		o.mu.Unlock()
		return nil, ErrWrongStage
	}
	events := []Event{
		ReviewCompleted{Requirements: o.requirements.Clone()},
		o.enterLocked(StageResumeAnalysis),
	}
	o.mu.Unlock()

	o.publish(events...)
	return events[0], nil
}

func (o *Orchestrator) analyzeResumes(ctx context.Context) (Event, error) {
	var (
		files  []*resume.Document
		reqs   *requirements.JobRequirements
		models Models
	)
	epoch, err := o.begin(func() error {
		if o.requirements == nil {
			return ErrRequirementsMissing
		}
		if o.stage != StageResumeAnalysis {
			return ErrWrongStage
		}
		if len(o.queue) == 0 {
			return ErrNoResumes
		}
		files = append([]*resume.Document(nil), o.queue...)
		reqs = o.requirements.Clone()
		models = o.models
		return nil
	})
	if err != nil {
		return nil, err
	}

	o.logger.Info("analyzing resumes", zap.String(logger.FieldModel, models.Reasoning), zap.Int("files", len(files)))
	batch, callErr := o.service.AnalyzeResumes(ctx, analysis.ResumeBatchRequest{
		Files:        files,
		Model:        models.Reasoning,
		Requirements: reqs,
	})
	if callErr == nil {
		callErr = rescore(files, batch)
	}

	var events []Event
	err = o.finish(epoch, callErr, func() {
		if replaceErr := o.results.Replace(batch); replaceErr != nil {
			callErr = &analysis.TransportError{Op: "analyze resumes", Err: replaceErr}
			return
		}
		o.queue = dropSubmitted(o.queue, files)
		events = append(events, CandidatesScored{Candidates: o.results.All()})
	})
	if err == nil && callErr != nil {
		err = callErr
	}
	if err != nil {
		o.logger.Warn("resume analysis failed", zap.Error(err))
		return nil, err
	}

	o.logger.Info("resumes scored", zap.Int("candidates", len(batch)))
	o.publish(events...)
	return events[0], nil
}

func (o *Orchestrator) navigate(target Stage) (Event, error) {
	o.mu.Lock()
	if !target.Valid() || target >= o.stage {
		current := o.stage
		o.mu.Unlock()
		return nil, fmt.Errorf("%w: cannot navigate from %s to %s", analysis.ErrValidation, current, target)
	}

	o.epoch++
	o.results.Reset()
	ev := o.enterLocked(target)
	o.mu.Unlock()

	o.publish(ev)
	return ev, nil
}

// begin claims the single in-flight slot after check passed under the lock.
func (o *Orchestrator) begin(check func() error) (uint64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.busy {
		return 0, ErrBusy
	}
	if err := check(); err != nil {
		return 0, err
	}
	o.busy = true
	return o.epoch, nil
}

// finish releases the in-flight slot and applies the result unless the call
// failed or the pipeline was navigated meanwhile.
func (o *Orchestrator) finish(epoch uint64, callErr error, apply func()) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.busy = false
	if callErr != nil {
		return callErr
	}
	if epoch != o.epoch {
		return ErrStale
	}
	apply()
	return nil
}

// enterLocked moves to stage and returns the matching event.
func (o *Orchestrator) enterLocked(stage Stage) Event {
	ev := StageEntered{From: o.stage, To: stage}
	o.stage = stage
	o.logger.Info("stage entered", zap.String(logger.FieldStage, stage.String()), zap.String("from", ev.From.String()))
	return ev
}

func (o *Orchestrator) publish(events ...Event) {
	o.mu.Lock()
	subscribers := append([]func(Event){}, o.subscribers...)
	o.mu.Unlock()

	for _, ev := range events {
		for _, fn := range subscribers {
			fn(ev)
		}
	}
}

func checkRequirements(r *requirements.JobRequirements) error {
	if r == nil {
		return &analysis.TransportError{Op: "requirements", Err: errors.New("service returned no requirements")}
	}
	r.Normalize()
	if err := r.Validate(); err != nil {
		return &analysis.TransportError{Op: "requirements", Err: err}
	}
	return nil
}

// rescore checks the batch against the submitted files and recomputes the
// percentages locally.
func rescore(files []*resume.Document, batch []*candidate.Analysis) error {
	const op = "analyze resumes"

	if len(batch) != len(files) {
		return &analysis.TransportError{Op: op, Err: fmt.Errorf("expected %d analyses, got %d", len(files), len(batch))}
	}
	for i, a := range batch {
		if a == nil {
			return &analysis.TransportError{Op: op, Err: fmt.Errorf("analysis %d is empty", i)}
		}
		if a.Filename == "" {
			a.Filename = files[i].Name
		}
		if a.Filename != files[i].Name {
			return &analysis.TransportError{Op: op, Err: fmt.Errorf("analysis %d is for %q, expected %q", i, a.Filename, files[i].Name)}
		}
		a.QuantitativePercentage = scoring.Quantitative(a.RequirementMatch).Percentage()
		a.SemanticPercentage = scoring.Clamp(a.SemanticPercentage)
		if err := a.Validate(); err != nil {
			return &analysis.TransportError{Op: op, Err: err}
		}
	}
	return nil
}
