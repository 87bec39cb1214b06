package llm

import (
	"context"
	"errors"
)

// Request is a single-turn prompt, optionally carrying one image.
type Request struct {
	System    string
	Prompt    string
	Image     []byte
	ImageMIME string
	// JSON asks the provider for a JSON object response.
	JSON bool
}

// Client is a text completion backend used by the validation oracle and the
// challenge generator.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
	Provider() string
}

var ErrEmptyResponse = errors.New("model returned an empty response")
