// Package report publishes the results of an evaluation run: a console
// summary and an optional JSON upload to an HTTP endpoint.
package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/evalkit/relevancy-go/eval"
	"github.com/evalkit/relevancy-go/internal/https"
	"github.com/evalkit/relevancy-go/logger"
)

// EvaluationsPath is appended to the sink URL for uploads.
const EvaluationsPath = "/v1/evaluations"

// Sink receives the result of a run.
type Sink interface {
	Send(ctx context.Context, r *eval.Result) error
}

// Console writes the human-readable summary of each run to W.
type Console struct {
	W io.Writer
}

// Send implements Sink.
func (c Console) Send(_ context.Context, r *eval.Result) error {
	_, err := io.WriteString(c.W, r.String())
	return err
}

// Payload is the JSON document uploaded by HTTPSink.
type Payload struct {
	Model          string       `json:"model,omitempty"`
	Passed         int          `json:"passed"`
	Failed         int          `json:"failed"`
	ElapsedSeconds float64      `json:"elapsed_seconds"`
	Cases          []CaseReport `json:"cases"`
}

// CaseReport is one case of a Payload.
type CaseReport struct {
	eval.Case
	Passed  bool                `json:"passed"`
	Results []eval.MetricResult `json:"results,omitempty"`
	Error   string              `json:"error,omitempty"`
}

// NewPayload converts a run result. model names the evaluation model and may
// be empty.
func NewPayload(r *eval.Result, model string) Payload {
	p := Payload{
		Model:          model,
		ElapsedSeconds: r.Elapsed.Seconds(),
		Cases:          make([]CaseReport, 0, len(r.Cases)),
	}
	for _, c := range r.Cases {
		cr := CaseReport{
			Case:    c.Case,
			Passed:  c.Passed(),
			Results: c.Results,
		}
		var ae *eval.AssertionError
		if c.Err != nil && !errors.As(c.Err, &ae) {
			cr.Error = c.Err.Error()
		}
		if cr.Passed {
			p.Passed++
		} else {
			p.Failed++
		}
		p.Cases = append(p.Cases, cr)
	}
	return p
}

// HTTPSink uploads results as JSON to a reporting endpoint.
type HTTPSink struct {
	client *https.Client
	model  string
	logger logger.Logger
}

// NewHTTPSink creates a sink posting to baseURL + EvaluationsPath with
// apiKey as a bearer token. A nil httpClient uses a client with a 30s timeout.
func NewHTTPSink(baseURL, apiKey, model string, httpClient *http.Client, log logger.Logger) *HTTPSink {
	if log == nil {
		log = logger.Discard()
	}
	var client *https.Client
	if httpClient == nil {
		client = https.NewClient(apiKey, baseURL, log)
	} else {
		client = https.NewWrappedClient(apiKey, baseURL, httpClient, log)
	}
	return &HTTPSink{client: client, model: model, logger: log}
}

// Send implements Sink.
func (s *HTTPSink) Send(ctx context.Context, r *eval.Result) error {
	payload := NewPayload(r, s.model)
	resp, err := s.client.POST(ctx, EvaluationsPath, payload)
	if err != nil {
		return fmt.Errorf("upload results: %w", err)
	}
	_ = resp.Body.Close()

	s.logger.Info("results uploaded",
		"cases", len(payload.Cases),
		"failed", payload.Failed)
	return nil
}

// All sends r to every sink and joins their errors.
func All(ctx context.Context, r *eval.Result, sinks ...Sink) error {
	var errs []error
	for _, s := range sinks {
		if err := s.Send(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
