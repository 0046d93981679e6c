package gemini

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/genai"

	"github.com/spigell/resume-ranker/internal/analysis/llm"
)

type fakeModels struct {
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
	resp     *genai.GenerateContentResponse
	err      error
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.contents = contents
	f.config = config
	return f.resp, f.err
}

func textResponse(parts ...string) *genai.GenerateContentResponse {
	content := &genai.Content{}
	for _, p := range parts {
		content.Parts = append(content.Parts, &genai.Part{Text: p})
	}
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: content}}}
}

func TestGenerateContent(t *testing.T) {
	fake := &fakeModels{resp: textResponse(" {\"a\": 1} ", "", "tail")}
	g := newGenerator(fake, "")

	if g.Model() != defaultModel {
		t.Fatalf("expected default model, got %q", g.Model())
	}

	temp := float32(0.2)
	out, err := g.GenerateContent(context.Background(), llm.Request{
		Model:       "gemini-2.5-flash",
		System:      "be strict",
		Prompt:      "analyze",
		JSON:        true,
		Temperature: &temp,
		Attachments: []llm.Attachment{{Name: "cv.pdf", MIMEType: "application/pdf", Data: []byte("%PDF")}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if out != "{\"a\": 1}\ntail" {
		t.Fatalf("unexpected output: %q", out)
	}
	if fake.model != "gemini-2.5-flash" {
		t.Fatalf("request model must override the default, got %q", fake.model)
	}
	if fake.config.ResponseMIMEType != "application/json" {
		t.Fatalf("expected JSON response type, got %q", fake.config.ResponseMIMEType)
	}
	if fake.config.SystemInstruction == nil || fake.config.SystemInstruction.Parts[0].Text != "be strict" {
		t.Fatalf("system instruction missing: %+v", fake.config.SystemInstruction)
	}
	if *fake.config.Temperature != temp {
		t.Fatalf("temperature not forwarded")
	}

	parts := fake.contents[0].Parts
	if len(parts) != 2 || parts[1].InlineData == nil || parts[1].InlineData.MIMEType != "application/pdf" {
		t.Fatalf("attachment not sent inline: %+v", parts)
	}
}

func TestGenerateContentErrors(t *testing.T) {
	g := newGenerator(&fakeModels{resp: textResponse("ok")}, "gemini-pro")
	if _, err := g.GenerateContent(context.Background(), llm.Request{Prompt: "  "}); err == nil {
		t.Fatalf("expected error for empty prompt")
	}

	g = newGenerator(&fakeModels{err: errors.New("quota")}, "gemini-pro")
	if _, err := g.GenerateContent(context.Background(), llm.Request{Prompt: "hi"}); err == nil {
		t.Fatalf("expected API error to propagate")
	}

	g = newGenerator(&fakeModels{resp: textResponse(" ")}, "gemini-pro")
	if _, err := g.GenerateContent(context.Background(), llm.Request{Prompt: "hi"}); err == nil {
		t.Fatalf("expected error for empty response")
	}

	var nilGen *Generator
	if _, err := nilGen.GenerateContent(context.Background(), llm.Request{Prompt: "hi"}); err == nil {
		t.Fatalf("expected error for nil generator")
	}
	if nilGen.Model() != "" {
		t.Fatalf("nil generator has no model")
	}
}

func TestNewGeneratorRequiresKey(t *testing.T) {
	if _, err := NewGenerator(context.Background(), "  ", ""); err == nil {
		t.Fatalf("expected error for empty api key")
	}
}
