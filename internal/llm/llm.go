// Package llm wraps the language-model provider: chat completions, structured
// risk predictions and speech-to-text.
package llm

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned by every call when no API key was provided.
var ErrNotConfigured = errors.New("OPENAI_API_KEY not configured on server")

// ResponseSchema asks the provider for a strict JSON response.
type ResponseSchema struct {
	Name        string
	Description string
	Schema      any
}

// ChatRequest is a single system+user exchange.
type ChatRequest struct {
	System      string
	Prompt      string
	MaxTokens   int64
	Temperature float64
	Schema      *ResponseSchema
}

// Completer generates text for a prompt.
type Completer interface {
	Complete(ctx context.Context, req ChatRequest) (string, error)
}

// Transcriber turns the audio file at path into text.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (string, error)
}
