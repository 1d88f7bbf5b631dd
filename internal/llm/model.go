// Package llm wraps the hosted text-generation service behind a single
// prompt-in, text-out interface so every synthesizer can take a test double.
package llm

import "context"

type Model interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ModelFunc adapts a plain function to Model.
type ModelFunc func(ctx context.Context, prompt string) (string, error)

func (f ModelFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
