// Package llmhttp provides OpenTelemetry tracing for the HTTP traffic of
// language-model SDKs.
//
// Wrap the *http.Client handed to a provider SDK:
//
//	config := openai.DefaultConfig(apiKey)
//	config.HTTPClient = llmhttp.Client(llmhttp.WithProvider("openai"))
//	client := openai.NewClientWithConfig(config)
//
// Every request then runs inside a span recording the provider, endpoint,
// requested model, status code and token usage.
package llmhttp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/evalkit/relevancy-go/logger"
)

const (
	tracerName = "relevancy.llmhttp"

	// bodies larger than this are not inspected
	maxInspectBytes = 1 << 20
)

// config holds configuration for the HTTP client wrapper
type config struct {
	tracerProvider trace.TracerProvider
	logger         logger.Logger
	provider       string
}

// Option configures the HTTP client wrapper
type Option func(*config)

// WithTracerProvider sets a custom TracerProvider for the HTTP client wrapper.
// If not provided, the global otel.GetTracerProvider() is used.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *config) {
		c.tracerProvider = tp
	}
}

// WithLogger sets a custom logger for the HTTP client wrapper.
// If not provided, logging is disabled.
func WithLogger(log logger.Logger) Option {
	return func(c *config) {
		c.logger = log
	}
}

// WithProvider names the model provider on spans, e.g. "openai".
func WithProvider(name string) Option {
	return func(c *config) {
		c.provider = name
	}
}

// Client returns a new http.Client configured with tracing middleware.
// This is equivalent to WrapClient(nil).
func Client(opts ...Option) *http.Client {
	return WrapClient(nil, opts...)
}

// WrapClient wraps an existing http.Client with tracing middleware.
// If client is nil, a new client with the default transport is created.
func WrapClient(client *http.Client, opts ...Option) *http.Client {
	cfg := &config{provider: "llm"}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.tracerProvider == nil {
		cfg.tracerProvider = otel.GetTracerProvider()
	}
	if cfg.logger == nil {
		cfg.logger = logger.Discard()
	}

	if client == nil {
		client = &http.Client{}
	}

	// Get the existing transport or use default
	transport := client.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	client.Transport = newRoundTripper(transport, cfg)
	return client
}

// roundTripper wraps an http.RoundTripper with OpenTelemetry tracing.
type roundTripper struct {
	base   http.RoundTripper
	cfg    *config
	tracer trace.Tracer
}

// newRoundTripper creates a new tracing RoundTripper that wraps the base transport.
func newRoundTripper(base http.RoundTripper, cfg *config) http.RoundTripper {
	return &roundTripper{
		base:   base,
		cfg:    cfg,
		tracer: cfg.tracerProvider.Tracer(tracerName),
	}
}

// RoundTrip implements http.RoundTripper.
func (rt *roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx, span := rt.tracer.Start(req.Context(), rt.cfg.provider+" request",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("llm.provider", rt.cfg.provider),
			attribute.String("llm.endpoint", req.URL.Path),
			attribute.String("http.method", req.Method),
		))
	defer span.End()

	out := req.WithContext(ctx)
	if body, ok := peekBody(&out.Body, out.ContentLength); ok {
		var payload struct {
			Model string `json:"model"`
		}
		if json.Unmarshal(body, &payload) == nil && payload.Model != "" {
			span.SetAttributes(attribute.String("llm.model", payload.Model))
		}
	}

	resp, err := rt.base.RoundTrip(out)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		rt.cfg.logger.Debug("llm request failed",
			"provider", rt.cfg.provider,
			"url", req.URL.String(),
			"error", err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode >= 400 {
		span.SetStatus(codes.Error, fmt.Sprintf("status %d", resp.StatusCode))
	}

	if body, ok := peekBody(&resp.Body, resp.ContentLength); ok {
		for key, value := range usageMetrics(body) {
			span.SetAttributes(attribute.Int64("llm.usage."+key, value))
		}
	}

	rt.cfg.logger.Debug("llm response",
		"provider", rt.cfg.provider,
		"url", req.URL.String(),
		"status", resp.StatusCode)
	return resp, nil
}

// peekBody reads a body of bounded size and replaces it with a reader over the
// same bytes. A body of unknown length that turns out larger than
// maxInspectBytes is not inspected; the bytes already read are stitched back in
// front of the unread remainder.
func peekBody(body *io.ReadCloser, length int64) ([]byte, bool) {
	if *body == nil || *body == http.NoBody || length == 0 || length > maxInspectBytes {
		return nil, false
	}
	orig := *body
	data, err := io.ReadAll(io.LimitReader(orig, maxInspectBytes+1))
	if err != nil || len(data) > maxInspectBytes {
		*body = readCloser{
			Reader: io.MultiReader(bytes.NewReader(data), orig),
			Closer: orig,
		}
		return nil, false
	}
	_ = orig.Close()
	*body = io.NopCloser(bytes.NewReader(data))
	return data, true
}

// readCloser reads from Reader and closes Closer.
type readCloser struct {
	io.Reader
	io.Closer
}

// usageMetrics pulls token counts from the usage block of OpenAI, Anthropic,
// Gemini and Ollama style responses.
func usageMetrics(body []byte) map[string]int64 {
	var payload struct {
		Usage map[string]any `json:"usage"`

		UsageMetadata map[string]any `json:"usageMetadata"`

		PromptEvalCount int64 `json:"prompt_eval_count"`
		EvalCount       int64 `json:"eval_count"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil
	}

	metrics := make(map[string]int64)
	for _, usage := range []map[string]any{payload.Usage, payload.UsageMetadata} {
		for key, value := range usage {
			if n, ok := value.(float64); ok {
				metrics[key] = int64(n)
			}
		}
	}
	if payload.PromptEvalCount > 0 {
		metrics["prompt_eval_count"] = payload.PromptEvalCount
	}
	if payload.EvalCount > 0 {
		metrics["eval_count"] = payload.EvalCount
	}
	return metrics
}
