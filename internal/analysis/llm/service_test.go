package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/spigell/resume-ranker/internal/analysis"
	"github.com/spigell/resume-ranker/internal/conversation"
	"github.com/spigell/resume-ranker/internal/requirements"
	"github.com/spigell/resume-ranker/internal/resume"
)

type stubGenerator struct {
	responses map[string][]string
	errs      map[string]error
	requests  []Request
}

func (s *stubGenerator) GenerateContent(_ context.Context, req Request) (string, error) {
	s.requests = append(s.requests, req)
	key := promptKey(req.System)
	if err := s.errs[key]; err != nil {
		return "", err
	}
	queue := s.responses[key]
	if len(queue) == 0 {
		return "", errors.New("no stub response for " + key)
	}
	s.responses[key] = queue[1:]
	return queue[0], nil
}

func (s *stubGenerator) Model() string {
	return "stub-model"
}

func promptKey(system string) string {
	switch system {
	case jobAnalysisSystem:
		return "job"
	case resumeAnalysisSystem:
		return "resume"
	case semanticScoreSystem:
		return "semantic"
	case chatSystem:
		return "chat"
	default:
		return "other"
	}
}

const jobResponse = "```json\n" + `{
  "original_job_description": "ignored",
  "must_have_requirements": {
    "technical_skills": ["Go", "PostgreSQL"],
    "experience": "3+ years backend",
    "qualifications": [],
    "core_responsibilities": ["Build APIs"]
  },
  "good_to_have_requirements": {"additional_skills": ["Kubernetes"], "extra_qualifications": [], "bonus_experience": []},
  "additional_screening_criteria": ["Jakarta office"]
}` + "\n```"

const resumeResponse = `Here is the analysis: {
  "contact_info": {"full_name": "Jane Doe"},
  "requirement_match": {
    "must_have_requirements": {
      "technical_skills": {"Go": true, "PostgreSQL": false},
      "experience": true,
      "qualifications": {},
      "core_responsibilities": {"Build APIs": true}
    },
    "good_to_have_requirements": {"additional_skills": {"Kubernetes": false}},
    "additional_screening_criteria": {"Jakarta office": true}
  },
  "qualitative_assessment": {"transferability_to_role": "High", "project_gravity": "Medium"},
  "final_recommendation": "Yes",
  "semantic_percentage": 3,
  "quantitative_percentage": 99
}`

func sampleRequirements() *requirements.JobRequirements {
	r := requirements.Empty()
	r.OriginalJobDescription = "Go developer"
	r.MustHave.TechnicalSkills = []string{"Go", "PostgreSQL"}
	r.MustHave.CoreResponsibilities = []string{"Build APIs"}
	return r
}

func textResume(t *testing.T, name string) *resume.Document {
	t.Helper()
	doc, err := resume.FromBytes(name, []byte("Jane Doe\nGo developer"))
	if err != nil {
		t.Fatalf("build resume: %v", err)
	}
	return doc
}

func TestAnalyzeJobDescription(t *testing.T) {
	stub := &stubGenerator{responses: map[string][]string{"job": {jobResponse}}}
	svc := NewService(stub, nil, zap.NewNop(), 0)

	description := "  We need a Go developer in Jakarta.  "
	reqs, err := svc.AnalyzeJobDescription(context.Background(), analysis.JobAnalysisRequest{Description: description, Model: "gpt-4.1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if reqs.OriginalJobDescription != description {
		t.Fatalf("original job description must be the input, got %q", reqs.OriginalJobDescription)
	}
	if got := strings.Join(reqs.MustHave.TechnicalSkills, ","); got != "Go,PostgreSQL" {
		t.Fatalf("unexpected skills: %s", got)
	}

	req := stub.requests[0]
	if req.Model != "gpt-4.1" || !req.JSON {
		t.Fatalf("unexpected request: %+v", req)
	}
	if !strings.Contains(req.Prompt, "We need a Go developer in Jakarta.") {
		t.Fatalf("job description missing from prompt: %s", req.Prompt)
	}
}

func TestAnalyzeJobDescriptionErrors(t *testing.T) {
	svc := NewService(&stubGenerator{}, nil, zap.NewNop(), 0)
	if _, err := svc.AnalyzeJobDescription(context.Background(), analysis.JobAnalysisRequest{Description: "  "}); !analysis.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}

	stub := &stubGenerator{responses: map[string][]string{"job": {`{"must_have_requirements": []}`}}}
	svc = NewService(stub, nil, zap.NewNop(), 0)
	_, err := svc.AnalyzeJobDescription(context.Background(), analysis.JobAnalysisRequest{Description: "Go"})
	var te *analysis.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("malformed output must be a transport error, got %v", err)
	}

	stub = &stubGenerator{errs: map[string]error{"job": errors.New("quota")}}
	svc = NewService(stub, nil, zap.NewNop(), 0)
	_, err = svc.AnalyzeJobDescription(context.Background(), analysis.JobAnalysisRequest{Description: "Go"})
	if !errors.As(err, &te) {
		t.Fatalf("generator failure must be a transport error, got %v", err)
	}
}

func TestAnalyzeResumesScoresLocally(t *testing.T) {
	stub := &stubGenerator{responses: map[string][]string{
		"resume":   {resumeResponse, resumeResponse},
		"semantic": {`{"semantic_score": 81.6, "reasoning": "good"}`, `not json`},
	}}
	svc := NewService(stub, nil, zap.NewNop(), 0)

	results, err := svc.AnalyzeResumes(context.Background(), analysis.ResumeBatchRequest{
		Files:        []*resume.Document{textResume(t, "a.txt"), textResume(t, "b.txt")},
		Model:        "o4-mini",
		Requirements: sampleRequirements(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	a, b := results[0], results[1]
	if a.Filename != "a.txt" || b.Filename != "b.txt" {
		t.Fatalf("results out of order: %s, %s", a.Filename, b.Filename)
	}
	// 4 of 6 verdicts are true.
	if a.QuantitativePercentage != 67 {
		t.Fatalf("expected quantitative 67, got %d", a.QuantitativePercentage)
	}
	if a.SemanticPercentage != 82 {
		t.Fatalf("expected semantic 82, got %d", a.SemanticPercentage)
	}
	// fallback: yes (70) + high transferability (15)
	if b.SemanticPercentage != 85 {
		t.Fatalf("expected fallback semantic 85, got %d", b.SemanticPercentage)
	}

	if stub.requests[0].Model != "o4-mini" {
		t.Fatalf("resume analysis must use the requested model, got %q", stub.requests[0].Model)
	}
	if !strings.Contains(stub.requests[0].Prompt, "Original Job Description:\nGo developer") {
		t.Fatalf("requirements missing from prompt: %s", stub.requests[0].Prompt)
	}
}

func TestAnalyzeResumesIsAllOrNothing(t *testing.T) {
	stub := &stubGenerator{responses: map[string][]string{
		"resume":   {resumeResponse, `{"broken": true}`},
		"semantic": {`{"semantic_score": 70}`},
	}}
	svc := NewService(stub, nil, zap.NewNop(), 0)

	results, err := svc.AnalyzeResumes(context.Background(), analysis.ResumeBatchRequest{
		Files:        []*resume.Document{textResume(t, "a.txt"), textResume(t, "b.txt")},
		Requirements: sampleRequirements(),
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if results != nil {
		t.Fatalf("no partial results expected, got %d", len(results))
	}
	if !strings.Contains(err.Error(), "b.txt") {
		t.Fatalf("error should name the failing file: %v", err)
	}
}

func TestAnalyzeResumesValidation(t *testing.T) {
	stub := &stubGenerator{}
	svc := NewService(stub, nil, zap.NewNop(), 0)
	ctx := context.Background()

	cases := map[string]analysis.ResumeBatchRequest{
		"no requirements": {Files: []*resume.Document{textResume(t, "a.txt")}},
		"no files":        {Requirements: sampleRequirements()},
		"duplicates":      {Files: []*resume.Document{textResume(t, "a.txt"), textResume(t, "a.txt")}, Requirements: sampleRequirements()},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := svc.AnalyzeResumes(ctx, req); !analysis.IsValidation(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
	if len(stub.requests) != 0 {
		t.Fatalf("validation failures must not reach the model")
	}
}

func TestAnalyzeResumesAttachesBinaryWithoutText(t *testing.T) {
	stub := &stubGenerator{responses: map[string][]string{
		"resume":   {resumeResponse},
		"semantic": {`{"semantic_score": 50}`},
	}}
	svc := NewService(stub, nil, zap.NewNop(), 0)

	doc := &resume.Document{Name: "scan.pdf", MIMEType: resume.MIMEPDF, Data: []byte("%PDF-1.4")}
	if _, err := svc.AnalyzeResumes(context.Background(), analysis.ResumeBatchRequest{
		Files:        []*resume.Document{doc},
		Requirements: sampleRequirements(),
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	attachments := stub.requests[0].Attachments
	if len(attachments) != 1 || attachments[0].MIMEType != resume.MIMEPDF {
		t.Fatalf("expected the pdf to be attached, got %+v", attachments)
	}
}

func TestChat(t *testing.T) {
	stub := &stubGenerator{responses: map[string][]string{"chat": {`{
		"response": "Which department?",
		"context": {"step": "department", "jobTitle": "Chef", "company": "Boga Group", "skills": "Knife work"},
		"job_description": ""
	}`}}}
	svc := NewService(stub, nil, zap.NewNop(), 0)

	turn := conversation.Turn{
		Message:  "Boga Group",
		Context:  conversation.NewContext(),
		Messages: []conversation.Message{{Role: conversation.RoleUser, Content: "Chef"}},
	}
	reply, err := svc.Chat(context.Background(), turn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if reply.Response != "Which department?" {
		t.Fatalf("unexpected response: %q", reply.Response)
	}
	if reply.Context == nil || reply.Context.Step != conversation.StepDepartment {
		t.Fatalf("unexpected context: %+v", reply.Context)
	}
	if len(reply.Context.Skills) != 1 || reply.Context.Skills[0] != "Knife work" {
		t.Fatalf("single string must become a list: %+v", reply.Context.Skills)
	}
	if !strings.Contains(stub.requests[0].Prompt, "user: Chef") {
		t.Fatalf("transcript missing from prompt: %s", stub.requests[0].Prompt)
	}
}

func TestChatRejectsEmptyReply(t *testing.T) {
	stub := &stubGenerator{responses: map[string][]string{"chat": {`{"context": {}}`}}}
	svc := NewService(stub, nil, zap.NewNop(), 0)

	_, err := svc.Chat(context.Background(), conversation.Turn{Message: "hi", Context: conversation.NewContext()})
	var te *analysis.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestParseRequirements(t *testing.T) {
	svc := NewService(&stubGenerator{}, nil, zap.NewNop(), 0)

	sections := requirements.Encode(sampleRequirements())
	reqs, err := svc.ParseRequirements(context.Background(), sections)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Join(reqs.MustHave.TechnicalSkills, ",") != "Go,PostgreSQL" {
		t.Fatalf("unexpected skills: %v", reqs.MustHave.TechnicalSkills)
	}

	if _, err := svc.ParseRequirements(context.Background(), requirements.Sections{}); !analysis.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestVerifyCredentials(t *testing.T) {
	ok := &stubGenerator{responses: map[string][]string{"other": {"hi"}}}
	factory := func(_ context.Context, credential string) (Generator, error) {
		if credential != "good-key" {
			return nil, errors.New("unauthorized")
		}
		return ok, nil
	}
	svc := NewService(&stubGenerator{}, factory, zap.NewNop(), 0)

	v, err := svc.VerifyCredentials(context.Background(), "good-key")
	if err != nil || !v.Success {
		t.Fatalf("expected success, got %+v, %v", v, err)
	}

	v, err = svc.VerifyCredentials(context.Background(), "bad-key")
	if err != nil || v.Success {
		t.Fatalf("expected failure, got %+v, %v", v, err)
	}

	if _, err := svc.VerifyCredentials(context.Background(), " "); !analysis.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestExtractJSON(t *testing.T) {
	cases := map[string]string{
		"```json\n{\"a\":1}\n```": `{"a":1}`,
		"prefix {\"a\":1} suffix": `{"a":1}`,
		`{"a":1}`:                 `{"a":1}`,
	}
	for in, want := range cases {
		if got := extractJSON(in); got != want {
			t.Fatalf("extractJSON(%q) = %q, want %q", in, got, want)
		}
	}
}
