// Package tests provides fixtures and helpers shared by tests across packages.
package tests

import (
	"context"
	"sync/atomic"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/evalkit/relevancy-go/eval"
)

// ReturnsCase is the reference case: a return-policy question answered from
// two retrieved policy snippets.
func ReturnsCase() eval.Case {
	return eval.Case{
		Input:        "Can I return these shoes after 30 days?",
		ActualOutput: "Unfortunately, returns are only accepted within 30 days of purchase.",
		RetrievalContext: []string{
			"All customers are eligible for a 30-day full refund at no extra cost.",
			"Returns are only accepted within 30 days of purchase.",
		},
	}
}

// Scorer is a deterministic eval.RelevancyScorer that counts its calls.
type Scorer struct {
	Judgment eval.Judgment
	Err      error

	calls atomic.Int64
}

// Score implements eval.RelevancyScorer.
func (s *Scorer) Score(context.Context, eval.Case) (eval.Judgment, error) {
	s.calls.Add(1)
	return s.Judgment, s.Err
}

// Calls returns how many times Score ran.
func (s *Scorer) Calls() int {
	return int(s.calls.Load())
}

// NewTracerProvider returns a tracer provider that records ended spans.
func NewTracerProvider(t *testing.T) (*sdktrace.TracerProvider, *tracetest.SpanRecorder) {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return tp, sr
}
