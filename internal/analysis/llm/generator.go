// Package llm implements the analysis service on top of a text generation model.
package llm

import "context"

// Attachment is binary input sent alongside the prompt.
type Attachment struct {
	Name     string
	MIMEType string
	Data     []byte
}

// Request is one generation call. An empty Model selects the generator default.
type Request struct {
	Model       string
	System      string
	Prompt      string
	Attachments []Attachment
	JSON        bool
	Temperature *float32
}

// Generator produces text for a prompt.
type Generator interface {
	GenerateContent(ctx context.Context, req Request) (string, error)
	Model() string
}

// Factory builds a generator for the given credential. It is used to check
// credentials before they are stored.
type Factory func(ctx context.Context, credential string) (Generator, error)

func temperature(v float32) *float32 {
	return &v
}
