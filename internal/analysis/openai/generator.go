// Package openai provides an llm.Generator backed by the OpenAI chat completions API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/spigell/resume-ranker/internal/analysis"
	"github.com/spigell/resume-ranker/internal/analysis/llm"
)

const (
	// Provider is the configuration name of this backend.
	Provider = "openai"

	defaultModel = "gpt-4.1"
)

type completer interface {
	CreateChatCompletion(ctx context.Context, req goopenai.ChatCompletionRequest) (goopenai.ChatCompletionResponse, error)
}

// Generator sends prompts as chat completions.
type Generator struct {
	client    completer
	modelName string
}

var _ llm.Generator = (*Generator)(nil)

// NewGenerator builds a generator for apiKey. An empty baseURL selects the
// public API.
func NewGenerator(apiKey, baseURL, model string) (*Generator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("openai api key is required")
	}

	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL = strings.TrimSpace(baseURL); baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return newGenerator(goopenai.NewClientWithConfig(cfg), model), nil
}

func newGenerator(client completer, model string) *Generator {
	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}
	return &Generator{client: client, modelName: model}
}

// Factory returns an llm.Factory for the given endpoint and default model.
func Factory(baseURL, model string) llm.Factory {
	return func(_ context.Context, credential string) (llm.Generator, error) {
		return NewGenerator(credential, baseURL, model)
	}
}

// GenerateContent runs one chat completion. Text attachments are appended to
// the prompt; binary attachments are rejected because the chat endpoint cannot
// read them.
func (g *Generator) GenerateContent(ctx context.Context, req llm.Request) (string, error) {
	if g == nil || g.client == nil {
		return "", errors.New("openai generator is not initialized")
	}

	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	for _, a := range req.Attachments {
		if !strings.HasPrefix(a.MIMEType, "text/") {
			return "", analysis.Validationf("%s: %s attachments are not supported by the openai provider", a.Name, a.MIMEType)
		}
		prompt += "\n\n" + strings.TrimSpace(string(a.Data))
	}

	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = g.modelName
	}

	messages := make([]goopenai.ChatCompletionMessage, 0, 2)
	if system := strings.TrimSpace(req.System); system != "" {
		messages = append(messages, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleSystem, Content: system})
	}
	messages = append(messages, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleUser, Content: prompt})

	request := goopenai.ChatCompletionRequest{
		Model:    model,
		Messages: messages,
	}
	if req.Temperature != nil && !reasoningModel(model) {
		request.Temperature = *req.Temperature
	}
	if req.JSON {
		request.ResponseFormat = &goopenai.ChatCompletionResponseFormat{Type: goopenai.ChatCompletionResponseFormatTypeJSONObject}
	}

	resp, err := g.client.CreateChatCompletion(ctx, request)
	if err != nil {
		return "", fmt.Errorf("create chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("openai api returned no choices")
	}

	output := strings.TrimSpace(resp.Choices[0].Message.Content)
	if output == "" {
		return "", errors.New("openai api returned empty response")
	}

	return output, nil
}

// reasoningModel reports whether model is an o-series model, which only
// accepts the default temperature.
func reasoningModel(model string) bool {
	model = strings.ToLower(model)
	for _, prefix := range []string{"o1", "o3", "o4"} {
		if strings.HasPrefix(model, prefix) {
			return true
		}
	}
	return false
}

// Model returns the default model name.
func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.modelName
}
