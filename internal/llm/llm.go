// Package llm defines the language-model capability used by the enrichment pipeline.
package llm

import (
	"context"
	"errors"
)

// ErrEmptyCompletion is returned when the model produced no choices.
var ErrEmptyCompletion = errors.New("model returned no completion")

// Client transforms userInput according to systemPrompt.
type Client interface {
	Complete(ctx context.Context, systemPrompt, userInput string) (string, error)
}

// ClientFunc adapts a function to Client.
type ClientFunc func(ctx context.Context, systemPrompt, userInput string) (string, error)

// Complete calls f.
func (f ClientFunc) Complete(ctx context.Context, systemPrompt, userInput string) (string, error) {
	return f(ctx, systemPrompt, userInput)
}

// Echo returns the user input unchanged. It lets the service run end to end without
// model credentials.
type Echo struct{}

// Complete returns userInput.
func (Echo) Complete(ctx context.Context, _ string, userInput string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return userInput, nil
}
