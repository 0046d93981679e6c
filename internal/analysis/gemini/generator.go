// Package gemini provides an llm.Generator backed by the Google GenAI SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/spigell/resume-ranker/internal/analysis/llm"
)

const (
	// Provider is the configuration name of this backend.
	Provider = "gemini"

	defaultModel = "gemini-2.5-pro"
)

type modelsAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Generator wraps the Google GenAI client to provide prompt-based interactions.
type Generator struct {
	models    modelsAPI
	modelName string
}

var _ llm.Generator = (*Generator)(nil)

// NewGenerator creates a new Generator configured for the Gemini API backend.
func NewGenerator(ctx context.Context, apiKey, model string) (*Generator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newGenerator(client.Models, model), nil
}

func newGenerator(models modelsAPI, model string) *Generator {
	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}
	return &Generator{models: models, modelName: model}
}

// Factory returns an llm.Factory building generators for the given default model.
func Factory(model string) llm.Factory {
	return func(ctx context.Context, credential string) (llm.Generator, error) {
		return NewGenerator(ctx, credential, model)
	}
}

// GenerateContent sends the prompt and any attachments inline and returns the
// textual response.
func (g *Generator) GenerateContent(ctx context.Context, req llm.Request) (string, error) {
	if g == nil || g.models == nil {
		return "", errors.New("gemini generator is not initialized")
	}

	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	parts := []*genai.Part{genai.NewPartFromText(prompt)}
	for _, a := range req.Attachments {
		if len(a.Data) == 0 {
			return "", fmt.Errorf("attachment %q is empty", a.Name)
		}
		parts = append(parts, genai.NewPartFromBytes(a.Data, a.MIMEType))
	}

	config := &genai.GenerateContentConfig{Temperature: req.Temperature}
	if system := strings.TrimSpace(req.System); system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if req.JSON {
		config.ResponseMIMEType = "application/json"
	}

	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = g.modelName
	}

	resp, err := g.models.GenerateContent(ctx, model, []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, config)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || part.Thought {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", errors.New("gemini api returned empty response")
	}

	return output, nil
}

// Model returns the default model name.
func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.modelName
}
