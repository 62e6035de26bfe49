package eval

import (
	"context"
	"fmt"
	"strings"
)

// Metric scores a Case and decides whether it passes.
type Metric interface {
	// Name identifies the metric in results and spans.
	Name() string

	// Threshold is the minimum passing score.
	Threshold() float64

	// Measure scores the case. A non-nil error means the score could not be
	// computed at all; it is never used to signal a low score.
	Measure(ctx context.Context, c Case) (MetricResult, error)
}

// MetricResult is the outcome of measuring one case with one metric.
type MetricResult struct {
	Name      string  `json:"name"`
	Score     float64 `json:"score"`
	Threshold float64 `json:"threshold"`
	Success   bool    `json:"success"`
	Reason    string  `json:"reason,omitempty"`
	Model     string  `json:"model,omitempty"`
}

// AssertionError reports metrics that scored below their threshold.
type AssertionError struct {
	Case     Case
	Failures []MetricResult
}

func (e *AssertionError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		msg := fmt.Sprintf("%s scored %.2f, below threshold %.2f", f.Name, f.Score, f.Threshold)
		if f.Reason != "" {
			msg += fmt.Sprintf(" (reason: %s)", f.Reason)
		}
		parts = append(parts, msg)
	}
	return fmt.Sprintf("metrics failed for %q: %s", e.Case.label(), strings.Join(parts, "; "))
}
