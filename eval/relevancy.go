package eval

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// AnswerRelevancyName is the metric name reported by AnswerRelevancy.
const AnswerRelevancyName = "Answer Relevancy"

var (
	// ErrInvalidThreshold is returned when a threshold falls outside [0,1].
	ErrInvalidThreshold = errors.New("invalid threshold")

	// ErrInvalidScore is returned when a scorer produces a score outside [0,1].
	ErrInvalidScore = errors.New("invalid score")
)

// Judgment is a relevancy score produced by an external scorer.
type Judgment struct {
	Score  float64
	Reason string
}

// RelevancyScorer computes how well a case's actual output answers its input.
// Implementations usually call a language model; tests substitute stubs.
type RelevancyScorer interface {
	Score(ctx context.Context, c Case) (Judgment, error)
}

// ScorerFunc adapts a function to RelevancyScorer.
type ScorerFunc func(ctx context.Context, c Case) (Judgment, error)

// Score calls f.
func (f ScorerFunc) Score(ctx context.Context, c Case) (Judgment, error) {
	return f(ctx, c)
}

// RelevancyConfig configures an AnswerRelevancy metric.
type RelevancyConfig struct {
	// Threshold is the minimum passing score, within [0,1].
	Threshold float64

	// Model names the evaluating model, for reporting.
	Model string

	// StrictMode requires a perfect score. Failing scores are reported as 0.
	StrictMode bool

	// IncludeReason keeps the scorer's explanation on the result.
	IncludeReason bool
}

// AnswerRelevancy measures how relevant a case's actual output is to its input.
type AnswerRelevancy struct {
	cfg    RelevancyConfig
	scorer RelevancyScorer
}

// NewAnswerRelevancy builds the metric. The threshold must be within [0,1].
func NewAnswerRelevancy(cfg RelevancyConfig, scorer RelevancyScorer) (*AnswerRelevancy, error) {
	if scorer == nil {
		return nil, fmt.Errorf("scorer is required")
	}
	if math.IsNaN(cfg.Threshold) || cfg.Threshold < 0 || cfg.Threshold > 1 {
		return nil, fmt.Errorf("%w: %v is not within [0,1]", ErrInvalidThreshold, cfg.Threshold)
	}
	if cfg.StrictMode {
		cfg.Threshold = 1
	}
	return &AnswerRelevancy{cfg: cfg, scorer: scorer}, nil
}

// Name implements Metric.
func (m *AnswerRelevancy) Name() string {
	return AnswerRelevancyName
}

// Threshold implements Metric.
func (m *AnswerRelevancy) Threshold() float64 {
	return m.cfg.Threshold
}

// Model returns the evaluating model's name.
func (m *AnswerRelevancy) Model() string {
	return m.cfg.Model
}

// Measure implements Metric. Scorer errors are returned as is.
func (m *AnswerRelevancy) Measure(ctx context.Context, c Case) (MetricResult, error) {
	j, err := m.scorer.Score(ctx, c)
	if err != nil {
		return MetricResult{}, err
	}
	if math.IsNaN(j.Score) || j.Score < 0 || j.Score > 1 {
		return MetricResult{}, fmt.Errorf("%w: %v is not within [0,1]", ErrInvalidScore, j.Score)
	}

	score := j.Score
	success := score >= m.cfg.Threshold
	if m.cfg.StrictMode && !success {
		score = 0
	}

	result := MetricResult{
		Name:      m.Name(),
		Score:     score,
		Threshold: m.cfg.Threshold,
		Success:   success,
		Model:     m.cfg.Model,
	}
	if m.cfg.IncludeReason {
		result.Reason = j.Reason
	}
	return result, nil
}
