// Package model defines the language-model interface the relevancy judge calls.
//
// Provider implementations live under model/contrib.
package model

import (
	"context"
	"errors"
)

// ErrEmptyResponse is returned when a provider answers without any text.
var ErrEmptyResponse = errors.New("empty model response")

// Request is a single-turn completion request.
type Request struct {
	// System sets the system instruction. Optional.
	System string

	// Prompt is the user message.
	Prompt string

	// JSON asks the provider for a JSON object response where supported.
	JSON bool

	// Temperature is passed through to the provider. Judges use 0.
	Temperature float64
}

// Model generates text for a request.
type Model interface {
	// Name returns the model identifier, e.g. "gpt-4o".
	Name() string

	// Generate returns the model's text response.
	Generate(ctx context.Context, req Request) (string, error)
}

// Func adapts a function to Model.
type Func struct {
	ID string
	Fn func(ctx context.Context, req Request) (string, error)
}

// Name implements Model.
func (f Func) Name() string { return f.ID }

// Generate implements Model.
func (f Func) Generate(ctx context.Context, req Request) (string, error) {
	return f.Fn(ctx, req)
}
