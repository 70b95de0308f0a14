package model

import (
	"context"

	"github.com/stupiduntilnot/picrelay/internal/history"
)

// CompletionResponse is the common response model for model providers.
type CompletionResponse struct {
	Content      string
	InputTokens  int
	OutputTokens int
}

// Provider is the completion API abstraction used by the relay.
type Provider interface {
	ChatCompletion(ctx context.Context, messages []history.Message) (CompletionResponse, error)
}

// ImageGenerator turns a text prompt into the URL of a generated image.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (string, error)
}
