package pipeline

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/resume-ranker/internal/analysis"
	"github.com/spigell/resume-ranker/internal/candidate"
	"github.com/spigell/resume-ranker/internal/conversation"
	"github.com/spigell/resume-ranker/internal/requirements"
	"github.com/spigell/resume-ranker/internal/resume"
	"github.com/spigell/resume-ranker/internal/scoring"
)

type stubService struct {
	mu    sync.Mutex
	calls map[string]int

	started chan string
	block   chan struct{}

	job      *requirements.JobRequirements
	jobErr   error
	parsed   *requirements.JobRequirements
	parseErr error
	batch    func(req analysis.ResumeBatchRequest) []*candidate.Analysis
	batchErr error

	lastJob   analysis.JobAnalysisRequest
	lastBatch analysis.ResumeBatchRequest
}

func newStub() *stubService {
	job := requirements.Empty()
	job.MustHave.TechnicalSkills = []string{"Go", "Kubernetes"}
	job.MustHave.Experience = "5+ years"

	parsed := requirements.Empty()
	parsed.MustHave.TechnicalSkills = []string{"Go"}

	return &stubService{
		calls:  map[string]int{},
		job:    job,
		parsed: parsed,
		batch: func(req analysis.ResumeBatchRequest) []*candidate.Analysis {
			out := make([]*candidate.Analysis, 0, len(req.Files))
			for _, f := range req.Files {
				out = append(out, analysisFor(f.Name, 90, true, true, false))
			}
			return out
		},
	}
}

func (s *stubService) enter(op string) {
	s.mu.Lock()
	s.calls[op]++
	started, block := s.started, s.block
	s.mu.Unlock()

	if started != nil {
		started <- op
	}
	if block != nil {
		<-block
	}
}

func (s *stubService) count(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

func (s *stubService) VerifyCredentials(context.Context, string) (*analysis.Verification, error) {
	s.enter("verify")
	return &analysis.Verification{Success: true}, nil
}

func (s *stubService) AnalyzeJobDescription(_ context.Context, req analysis.JobAnalysisRequest) (*requirements.JobRequirements, error) {
	s.enter("job")
	s.mu.Lock()
	s.lastJob = req
	s.mu.Unlock()
	if s.jobErr != nil {
		return nil, s.jobErr
	}
	return s.job.Clone(), nil
}

func (s *stubService) ParseRequirements(_ context.Context, sections requirements.Sections) (*requirements.JobRequirements, error) {
	s.enter("parse")
	if s.parseErr != nil {
		return nil, s.parseErr
	}
	if s.parsed == nil {
		return requirements.Decode(sections)
	}
	return s.parsed.Clone(), nil
}

func (s *stubService) AnalyzeResumes(_ context.Context, req analysis.ResumeBatchRequest) ([]*candidate.Analysis, error) {
	s.enter("resumes")
	s.mu.Lock()
	s.lastBatch = req
	s.mu.Unlock()
	if s.batchErr != nil {
		return nil, s.batchErr
	}
	return s.batch(req), nil
}

func (s *stubService) Chat(context.Context, conversation.Turn) (*conversation.Reply, error) {
	s.enter("chat")
	return &conversation.Reply{Response: "ok"}, nil
}

func analysisFor(name string, semantic int, matches ...bool) *candidate.Analysis {
	a := &candidate.Analysis{Filename: name, SemanticPercentage: semantic, QuantitativePercentage: 1}
	for i, m := range matches {
		a.RequirementMatch.MustHave.TechnicalSkills = append(a.RequirementMatch.MustHave.TechnicalSkills,
			candidate.Match{Item: fmt.Sprintf("skill %d", i), Matched: m})
	}
	a.FinalRecommendation = "Yes"
	return a
}

func textDoc(t *testing.T, name string) *resume.Document {
	t.Helper()
	doc, err := resume.FromBytes(name, []byte("resume of "+name))
	require.NoError(t, err)
	return doc
}

var testModels = Models{Primary: "gpt-4.1", Reasoning: "o4-mini"}

// atResumeAnalysis walks a fresh orchestrator to the resume analysis stage.
func atResumeAnalysis(t *testing.T, svc *stubService) *Orchestrator {
	t.Helper()
	o := New(svc, scoring.DefaultThresholds, nil)
	require.NoError(t, o.SelectModels(testModels))
	_, err := o.AnalyzeJob(context.Background(), "Senior Go engineer")
	require.NoError(t, err)
	require.NoError(t, o.SkipReview())
	return o
}

func TestFullRun(t *testing.T) {
	svc := newStub()
	o := New(svc, scoring.DefaultThresholds, nil)

	var events []Event
	o.Subscribe(func(ev Event) { events = append(events, ev) })

	assert.Equal(t, StageModelSelection, o.Stage())
	require.NoError(t, o.SelectModels(Models{Primary: " gpt-4.1 ", Reasoning: "o4-mini"}))
	assert.Equal(t, StageJobAnalysis, o.Stage())

	reqs, err := o.AnalyzeJob(context.Background(), "  Senior Go engineer  ")
	require.NoError(t, err)
	assert.Equal(t, "Senior Go engineer", reqs.OriginalJobDescription)
	assert.Equal(t, "gpt-4.1", svc.lastJob.Model)
	assert.Equal(t, StageRequirementsReview, o.Stage())

	sections, err := o.RequirementsText()
	require.NoError(t, err)
	assert.Contains(t, sections.MustHave, "- Kubernetes")

	require.NoError(t, o.SkipReview())
	assert.Equal(t, StageResumeAnalysis, o.Stage())

	require.NoError(t, o.QueueResume(textDoc(t, "a.txt")))
	require.NoError(t, o.QueueResume(textDoc(t, "b.txt")))

	scored, err := o.AnalyzeResumes(context.Background())
	require.NoError(t, err)
	require.Len(t, scored, 2)
	assert.Equal(t, "a.txt", scored[0].Filename)
	assert.Equal(t, "b.txt", scored[1].Filename)
	assert.Equal(t, 67, scored[0].QuantitativePercentage)
	assert.Equal(t, "o4-mini", svc.lastBatch.Model)
	assert.Empty(t, o.QueuedResumes())

	var buf bytes.Buffer
	require.NoError(t, o.Export(&buf))
	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	state := o.State()
	assert.NotEmpty(t, state.RunID)
	assert.Len(t, state.Candidates, 2)

	var kinds []string
	for _, ev := range events {
		kinds = append(kinds, fmt.Sprintf("%T", ev))
	}
	assert.Equal(t, []string{
		"pipeline.ModelsSelected", "pipeline.StageEntered",
		"pipeline.RequirementsReady", "pipeline.StageEntered",
		"pipeline.ReviewCompleted", "pipeline.StageEntered",
		"pipeline.CandidatesScored",
	}, kinds)
}

func TestResumeAnalysisWithoutRequirements(t *testing.T) {
	svc := newStub()
	o := New(svc, scoring.DefaultThresholds, nil)
	require.NoError(t, o.SelectModels(testModels))
	require.NoError(t, o.QueueResume(textDoc(t, "a.txt")))

	_, err := o.AnalyzeResumes(context.Background())
	require.ErrorIs(t, err, ErrRequirementsMissing)
	assert.True(t, analysis.IsValidation(err))
	assert.Zero(t, svc.count("resumes"))

	assert.ErrorIs(t, o.SkipReview(), ErrRequirementsMissing)
}

func TestRerunningJobAnalysisClearsCandidates(t *testing.T) {
	svc := newStub()
	o := atResumeAnalysis(t, svc)
	require.NoError(t, o.QueueResume(textDoc(t, "a.txt")))
	_, err := o.AnalyzeResumes(context.Background())
	require.NoError(t, err)
	require.Len(t, o.Candidates(), 1)

	_, err = o.AnalyzeJob(context.Background(), "Staff Go engineer")
	require.NoError(t, err)
	assert.Empty(t, o.Candidates())
	assert.Equal(t, StageRequirementsReview, o.Stage())
	assert.ErrorIs(t, o.Export(&bytes.Buffer{}), ErrNoResults)
}

func TestEmptyJobDescriptionNeverDispatched(t *testing.T) {
	svc := newStub()
	o := New(svc, scoring.DefaultThresholds, nil)
	require.NoError(t, o.SelectModels(testModels))

	_, err := o.AnalyzeJob(context.Background(), " \n\t ")
	require.ErrorIs(t, err, ErrEmptyJobDescription)
	assert.Zero(t, svc.count("job"))
	assert.Equal(t, StageJobAnalysis, o.Stage())
}

func TestJobAnalysisRequiresModels(t *testing.T) {
	svc := newStub()
	o := New(svc, scoring.DefaultThresholds, nil)

	_, err := o.AnalyzeJob(context.Background(), "text")
	assert.ErrorIs(t, err, ErrWrongStage)
	assert.Zero(t, svc.count("job"))

	assert.True(t, analysis.IsValidation(o.SelectModels(Models{Primary: "gpt-4.1", Reasoning: "  "})))
	assert.Equal(t, StageModelSelection, o.Stage())
}

func TestBusyRejectsSecondSubmission(t *testing.T) {
	svc := newStub()
	o := New(svc, scoring.DefaultThresholds, nil)
	require.NoError(t, o.SelectModels(testModels))

	svc.started = make(chan string, 1)
	svc.block = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := o.AnalyzeJob(context.Background(), "first")
		done <- err
	}()
	<-svc.started

	_, err := o.AnalyzeJob(context.Background(), "second")
	require.ErrorIs(t, err, ErrBusy)
	assert.True(t, o.State().Busy)

	require.NoError(t, o.QueueResume(textDoc(t, "queued-while-busy.txt")))

	close(svc.block)
	require.NoError(t, <-done)
	assert.Equal(t, 1, svc.count("job"))
	assert.False(t, o.State().Busy)
	assert.Equal(t, []string{"queued-while-busy.txt"}, o.QueuedResumes())
}

func TestResumesQueuedDuringBatchSurvive(t *testing.T) {
	svc := newStub()
	o := atResumeAnalysis(t, svc)
	require.NoError(t, o.QueueResume(textDoc(t, "a.txt")))

	svc.started = make(chan string, 1)
	svc.block = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := o.AnalyzeResumes(context.Background())
		done <- err
	}()
	<-svc.started

	require.NoError(t, o.QueueResume(textDoc(t, "b.txt")))
	close(svc.block)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatalf("resume analysis did not return")
	}

	require.Len(t, o.Candidates(), 1)
	assert.Equal(t, "a.txt", o.Candidates()[0].Filename)
	assert.Equal(t, []string{"b.txt"}, o.QueuedResumes())
}

func TestLateResultDiscardedAfterNavigate(t *testing.T) {
	svc := newStub()
	o := atResumeAnalysis(t, svc)
	require.NoError(t, o.QueueResume(textDoc(t, "a.txt")))

	svc.started = make(chan string, 1)
	svc.block = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := o.AnalyzeResumes(context.Background())
		done <- err
	}()
	<-svc.started

	require.NoError(t, o.Navigate(StageRequirementsReview))
	close(svc.block)

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrStale)
	case <-time.After(time.Second):
		t.Fatalf("resume analysis did not return")
	}

	assert.Empty(t, o.Candidates())
	assert.Equal(t, StageRequirementsReview, o.Stage())
	assert.Equal(t, []string{"a.txt"}, o.QueuedResumes())
}

func TestFailedCallsLeaveStateUnchanged(t *testing.T) {
	svc := newStub()
	o := atResumeAnalysis(t, svc)
	before := o.State()

	svc.jobErr = &analysis.ServiceError{Op: "job", Message: "quota exceeded"}
	_, err := o.AnalyzeJob(context.Background(), "another description")
	require.Error(t, err)
	assert.Equal(t, "quota exceeded", analysis.UserMessage(err))

	svc.parseErr = &analysis.TransportError{Op: "parse", Err: errors.New("connection reset")}
	_, err = o.UpdateRequirements(context.Background(), requirements.Sections{MustHave: "Technical Skills:\n- Rust"})
	require.Error(t, err)
	assert.Equal(t, analysis.TransportMessage, analysis.UserMessage(err))

	require.NoError(t, o.QueueResume(textDoc(t, "a.txt")))
	svc.batchErr = &analysis.TransportError{Op: "resumes", Err: errors.New("timeout")}
	_, err = o.AnalyzeResumes(context.Background())
	require.Error(t, err)

	after := o.State()
	assert.Equal(t, before.Stage, after.Stage)
	assert.Equal(t, before.Requirements, after.Requirements)
	assert.Equal(t, before.JobDescription, after.JobDescription)
	assert.Empty(t, after.Candidates)
	assert.Equal(t, []string{"a.txt"}, after.Queue)
	assert.False(t, after.Busy)
}

func TestBatchIsAllOrNothing(t *testing.T) {
	svc := newStub()
	o := atResumeAnalysis(t, svc)
	require.NoError(t, o.QueueResume(textDoc(t, "a.txt")))
	require.NoError(t, o.QueueResume(textDoc(t, "b.txt")))

	svc.batch = func(req analysis.ResumeBatchRequest) []*candidate.Analysis {
		return []*candidate.Analysis{analysisFor(req.Files[0].Name, 80, true)}
	}
	_, err := o.AnalyzeResumes(context.Background())
	var te *analysis.TransportError
	require.ErrorAs(t, err, &te)
	assert.Empty(t, o.Candidates())

	svc.batch = func(req analysis.ResumeBatchRequest) []*candidate.Analysis {
		return []*candidate.Analysis{analysisFor("b.txt", 80, true), analysisFor("a.txt", 70, true)}
	}
	_, err = o.AnalyzeResumes(context.Background())
	require.ErrorAs(t, err, &te)
	assert.Empty(t, o.Candidates())
	assert.Len(t, o.QueuedResumes(), 2)
}

func TestScoresRecomputedLocally(t *testing.T) {
	svc := newStub()
	o := atResumeAnalysis(t, svc)
	require.NoError(t, o.QueueResume(textDoc(t, "a.txt")))

	svc.batch = func(req analysis.ResumeBatchRequest) []*candidate.Analysis {
		a := analysisFor("", 140, true, false, false, false)
		return []*candidate.Analysis{a}
	}
	got, err := o.AnalyzeResumes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a.txt", got[0].Filename)
	assert.Equal(t, 100, got[0].SemanticPercentage)
	assert.Equal(t, 25, got[0].QuantitativePercentage)
}

func TestUpdateRequirementsKeepsJobDescription(t *testing.T) {
	svc := newStub()
	svc.parsed = nil
	o := New(svc, scoring.DefaultThresholds, nil)
	require.NoError(t, o.SelectModels(testModels))
	_, err := o.AnalyzeJob(context.Background(), "Senior Go engineer")
	require.NoError(t, err)

	sections, err := o.RequirementsText()
	require.NoError(t, err)
	sections.Additional = "- Based in Jakarta"

	got, err := o.UpdateRequirements(context.Background(), sections)
	require.NoError(t, err)
	assert.Equal(t, "Senior Go engineer", got.OriginalJobDescription)
	assert.Equal(t, []string{"Go", "Kubernetes"}, got.MustHave.TechnicalSkills)
	assert.Equal(t, []string{"Based in Jakarta"}, got.AdditionalScreeningCriteria)
	assert.Equal(t, StageResumeAnalysis, o.Stage())
}

func TestNavigate(t *testing.T) {
	svc := newStub()
	o := atResumeAnalysis(t, svc)

	assert.True(t, analysis.IsValidation(o.Navigate(StageResumeAnalysis)))
	assert.True(t, analysis.IsValidation(o.Navigate(Stage(9))))

	require.NoError(t, o.Navigate(StageJobAnalysis))
	assert.Equal(t, StageJobAnalysis, o.Stage())
	assert.NotNil(t, o.State().Requirements)

	_, err := o.AnalyzeResumes(context.Background())
	assert.ErrorIs(t, err, ErrWrongStage)
}

func TestDispatch(t *testing.T) {
	svc := newStub()
	o := New(svc, scoring.DefaultThresholds, nil)

	ev, err := o.Dispatch(context.Background(), SelectModels{Models: testModels})
	require.NoError(t, err)
	assert.Equal(t, ModelsSelected{Models: testModels}, ev)

	ev, err = o.Dispatch(context.Background(), AnalyzeJob{Text: "Go developer"})
	require.NoError(t, err)
	ready, ok := ev.(RequirementsReady)
	require.True(t, ok)
	assert.Equal(t, "5+ years", ready.Requirements.MustHave.Experience)

	ev, err = o.Dispatch(context.Background(), Navigate{Stage: StageModelSelection})
	require.NoError(t, err)
	assert.Equal(t, StageEntered{From: StageRequirementsReview, To: StageModelSelection}, ev)
}

func TestQueue(t *testing.T) {
	o := New(newStub(), scoring.DefaultThresholds, nil)

	require.NoError(t, o.QueueResume(textDoc(t, "a.txt")))
	require.NoError(t, o.QueueResume(textDoc(t, "b.txt")))
	assert.ErrorIs(t, o.QueueResume(textDoc(t, "a.txt")), ErrDuplicateResume)
	assert.True(t, analysis.IsValidation(o.QueueResume(nil)))

	assert.True(t, o.RemoveResume("a.txt"))
	assert.False(t, o.RemoveResume("a.txt"))
	assert.Equal(t, []string{"b.txt"}, o.QueuedResumes())

	o.ClearQueue()
	assert.Empty(t, o.QueuedResumes())
}

func TestStageText(t *testing.T) {
	for _, s := range []Stage{StageModelSelection, StageJobAnalysis, StageRequirementsReview, StageResumeAnalysis} {
		text, err := s.MarshalText()
		require.NoError(t, err)
		var back Stage
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, s, back)
	}
	_, err := ParseStage("review")
	assert.Error(t, err)
}
