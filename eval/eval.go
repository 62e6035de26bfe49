// Package eval scores LLM answers with metrics and asserts that they pass.
//
// An evaluation consists of three main components:
//   - [Case]: the input, the application's actual output and its retrieval context
//   - [Metric]: a scorer with a threshold, such as [AnswerRelevancy]
//   - [Assert]: measures a case with every metric and fails if any score is too low
//
// Two kinds of failure are kept apart. A score below threshold is an
// [AssertionError]. A metric that cannot produce a score at all (a network,
// authentication or response error from the evaluating model) returns an error
// wrapping [ErrMetric] and the original cause, and is never an [AssertionError].
//
//	metric, _ := eval.NewAnswerRelevancy(eval.RelevancyConfig{Threshold: 0.5, Model: "gpt-4o"}, scorer)
//	err := eval.Assert(ctx, eval.Case{
//		Input:        "Can I return these shoes after 30 days?",
//		ActualOutput: "Unfortunately, returns are only accepted within 30 days of purchase.",
//	}, metric)
//
// See [Evaluator.Run] for measuring a whole [Dataset].
package eval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/evalkit/relevancy-go/logger"
)

var (
	// ErrMetric wraps any error returned by a metric's Measure.
	ErrMetric = errors.New("metric error")

	// ErrNoMetrics is returned when an assertion is made without metrics.
	ErrNoMetrics = errors.New("no metrics")

	errCaseIterator = errors.New("case iterator error")
)

const tracerName = "relevancy.eval"

// Evaluator measures cases with metrics, recording a span per case and per metric.
type Evaluator struct {
	tracer oteltrace.Tracer
	logger logger.Logger
}

// NewEvaluator creates an evaluator. A nil tp uses the global TracerProvider and
// a nil log discards output.
func NewEvaluator(tp oteltrace.TracerProvider, log logger.Logger) *Evaluator {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Evaluator{
		tracer: tp.Tracer(tracerName),
		logger: log,
	}
}

// Assert measures c with every metric using the global TracerProvider.
// It returns nil when all metrics pass, an *AssertionError when any score is
// below its threshold, and an error wrapping ErrMetric when a metric fails to
// produce a score.
func Assert(ctx context.Context, c Case, metrics ...Metric) error {
	return NewEvaluator(nil, nil).Assert(ctx, c, metrics...)
}

// Assert measures c with every metric. See the package-level Assert.
func (e *Evaluator) Assert(ctx context.Context, c Case, metrics ...Metric) error {
	results, err := e.Measure(ctx, c, metrics...)
	if err != nil {
		return err
	}

	var failures []MetricResult
	for _, r := range results {
		if !r.Success {
			failures = append(failures, r)
		}
	}
	if len(failures) > 0 {
		return &AssertionError{Case: c, Failures: failures}
	}
	return nil
}

// Measure scores c with every metric and returns the results of the metrics
// that produced a score. Metric errors are joined; each wraps ErrMetric and
// the metric's own error.
func (e *Evaluator) Measure(ctx context.Context, c Case, metrics ...Metric) ([]MetricResult, error) {
	ctx, span := e.tracer.Start(ctx, "assert")
	defer span.End()

	if err := c.Validate(); err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	if len(metrics) == 0 {
		err := fmt.Errorf("%w: at least one metric is required", ErrNoMetrics)
		recordSpanError(span, err)
		return nil, err
	}

	if err := setJSONAttr(span, "relevancy.case", c); err != nil {
		e.logger.Warn("failed to encode case", "error", err)
	}

	results := make([]MetricResult, 0, len(metrics))
	var errs []error
	for _, m := range metrics {
		r, err := e.measureOne(ctx, c, m)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		results = append(results, r)
	}

	if err := setJSONAttr(span, "relevancy.results", results); err != nil {
		e.logger.Warn("failed to encode results", "error", err)
	}

	err := errors.Join(errs...)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return results, err
}

// measureOne runs a single metric inside a score span.
func (e *Evaluator) measureOne(ctx context.Context, c Case, m Metric) (MetricResult, error) {
	ctx, span := e.tracer.Start(ctx, "score", oteltrace.WithAttributes(
		attribute.String("relevancy.metric", m.Name()),
		attribute.Float64("relevancy.threshold", m.Threshold()),
	))
	defer span.End()

	start := time.Now()
	r, err := m.Measure(ctx, c)
	if err != nil {
		werr := fmt.Errorf("%w: %q failed: %w", ErrMetric, m.Name(), err)
		recordSpanError(span, werr)
		e.logger.Debug("metric failed",
			"metric", m.Name(),
			"error", err,
			"duration", time.Since(start))
		return MetricResult{}, werr
	}

	span.SetAttributes(
		attribute.Float64("relevancy.score", r.Score),
		attribute.Bool("relevancy.success", r.Success),
	)
	if r.Reason != "" {
		span.SetAttributes(attribute.String("relevancy.reason", r.Reason))
	}
	e.logger.Debug("metric measured",
		"metric", r.Name,
		"score", r.Score,
		"threshold", r.Threshold,
		"success", r.Success,
		"duration", time.Since(start))
	return r, nil
}

// Opts defines the options for measuring a dataset.
type Opts struct {
	// Required
	Dataset Dataset
	Metrics []Metric

	// Optional
	Parallelism int // Number of goroutines (default: 1)
}

// CaseResult holds the outcome of one case in a run.
type CaseResult struct {
	Case    Case           `json:"case"`
	Results []MetricResult `json:"results,omitempty"`
	Err     error          `json:"-"`
}

// Passed reports whether every metric produced a passing score.
func (r CaseResult) Passed() bool {
	if r.Err != nil {
		return false
	}
	for _, m := range r.Results {
		if !m.Success {
			return false
		}
	}
	return true
}

// Result contains the results of a dataset run, in dataset order.
type Result struct {
	Cases   []CaseResult
	Elapsed time.Duration
}

// Faults returns the metric and iterator errors of the run, joined.
func (r *Result) Faults() error {
	var errs []error
	for _, c := range r.Cases {
		var ae *AssertionError
		if c.Err != nil && !errors.As(c.Err, &ae) {
			errs = append(errs, c.Err)
		}
	}
	return errors.Join(errs...)
}

// Failed returns the number of cases that did not pass.
func (r *Result) Failed() int {
	n := 0
	for _, c := range r.Cases {
		if !c.Passed() {
			n++
		}
	}
	return n
}

// String returns a string representation of the result for printing on the console.
//
// The format it prints will change and shouldn't be relied on for programmatic use.
func (r *Result) String() string {
	lines := []string{
		"",
		"=== Relevancy evaluation ===",
		fmt.Sprintf("Cases: %d", len(r.Cases)),
		fmt.Sprintf("Passed: %d", len(r.Cases)-r.Failed()),
		fmt.Sprintf("Failed: %d", r.Failed()),
		fmt.Sprintf("Duration: %.1fs", r.Elapsed.Seconds()),
	}
	for _, c := range r.Cases {
		status := "PASS"
		if !c.Passed() {
			status = "FAIL"
		}
		lines = append(lines, fmt.Sprintf("[%s] %s", status, c.Case.label()))
		for _, m := range c.Results {
			line := fmt.Sprintf("  %s: %.2f (threshold %.2f)", m.Name, m.Score, m.Threshold)
			if m.Reason != "" {
				line += " - " + m.Reason
			}
			lines = append(lines, line)
		}
		var ae *AssertionError
		if c.Err != nil && !errors.As(c.Err, &ae) {
			lines = append(lines, "  Error: "+c.Err.Error())
		}
	}
	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

// nextCase is a wrapper for sending cases through a channel.
type nextCase struct {
	index   int
	c       Case
	iterErr error
}

// Run measures every case of opts.Dataset. Each case's Err holds its
// *AssertionError or metric fault; the returned error joins the faults only,
// so a run whose cases merely scored low returns a nil error.
func (e *Evaluator) Run(ctx context.Context, opts Opts) (*Result, error) {
	if opts.Dataset == nil {
		return nil, fmt.Errorf("dataset is required")
	}
	if len(opts.Metrics) == 0 {
		return nil, fmt.Errorf("%w: at least one metric is required", ErrNoMetrics)
	}

	start := time.Now()

	goroutines := opts.Parallelism
	if goroutines < 1 {
		goroutines = 1
	}

	// Scale buffer size with parallelism to avoid blocking, but cap at 100
	bufferSize := min(goroutines*2, 100)
	nextCases := make(chan nextCase, bufferSize)
	var results lockedResults

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for nc := range nextCases {
				results.set(nc.index, e.runNextCase(ctx, nc, opts.Metrics))
			}
		}()
	}

	index := 0
	for {
		c, err := opts.Dataset.Next()
		if err == io.EOF {
			close(nextCases)
			break
		}
		nextCases <- nextCase{index: index, c: c, iterErr: err}
		index++
	}

	wg.Wait()

	result := &Result{
		Cases:   results.get(index),
		Elapsed: time.Since(start),
	}
	e.logger.Info("evaluation finished",
		"cases", len(result.Cases),
		"failed", result.Failed(),
		"duration", result.Elapsed)
	return result, result.Faults()
}

// runNextCase handles a single case from the channel.
func (e *Evaluator) runNextCase(ctx context.Context, nc nextCase, metrics []Metric) CaseResult {
	if nc.iterErr != nil {
		return CaseResult{Case: nc.c, Err: fmt.Errorf("%w: %w", errCaseIterator, nc.iterErr)}
	}

	results, err := e.Measure(ctx, nc.c, metrics...)
	if err == nil {
		var failures []MetricResult
		for _, r := range results {
			if !r.Success {
				failures = append(failures, r)
			}
		}
		if len(failures) > 0 {
			err = &AssertionError{Case: nc.c, Failures: failures}
		}
	}
	return CaseResult{Case: nc.c, Results: results, Err: err}
}

func setJSONAttr(span oteltrace.Span, key string, value any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	span.SetAttributes(attribute.String(key, string(b)))
	return nil
}

func recordSpanError(span oteltrace.Span, err error) {
	// name the error after its sentinel when we know it; otel would otherwise
	// show *fmt.wrapErrors as the type.
	var errType string
	switch {
	case errors.Is(err, ErrMetric):
		errType = "ErrMetric"
	case errors.Is(err, ErrInvalidCase):
		errType = "ErrInvalidCase"
	case errors.Is(err, ErrNoMetrics):
		errType = "ErrNoMetrics"
	case errors.Is(err, errCaseIterator):
		errType = "ErrCaseIterator"
	default:
		errType = fmt.Sprintf("%T", err)
	}

	span.AddEvent("exception", oteltrace.WithAttributes(
		attribute.String("exception.type", errType),
		attribute.String("exception.message", err.Error()),
	))
	span.SetStatus(codes.Error, err.Error())
}

// lockedResults collects case results from concurrent workers by index.
type lockedResults struct {
	mu      sync.Mutex
	results map[int]CaseResult
}

func (l *lockedResults) set(i int, r CaseResult) {
	l.mu.Lock()
	if l.results == nil {
		l.results = make(map[int]CaseResult)
	}
	l.results[i] = r
	l.mu.Unlock()
}

func (l *lockedResults) get(n int) []CaseResult {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]CaseResult, n)
	for i := range out {
		out[i] = l.results[i]
	}
	return out
}
