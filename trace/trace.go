// Package trace sets up OpenTelemetry tracing for relevancy evaluations.
package trace

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/evalkit/relevancy-go/config"
)

// Option configures NewTracerProvider.
type Option func(*options)

type options struct {
	stdout io.Writer
}

// WithStdoutWriter sets where the stdout exporter writes. Defaults to os.Stdout.
func WithStdoutWriter(w io.Writer) Option {
	return func(o *options) {
		o.stdout = w
	}
}

// NewTracerProvider builds a TracerProvider for cfg.TraceExporter:
//   - "none": spans are created but not exported
//   - "stdout": spans are printed as JSON
//   - "otlp": spans are sent over OTLP/HTTP, configured by the standard
//     OTEL_EXPORTER_OTLP_* environment variables
//
// Callers own the provider and must Shutdown it to flush spans.
func NewTracerProvider(ctx context.Context, cfg *config.Config, opts ...Option) (*sdktrace.TracerProvider, error) {
	o := &options{stdout: os.Stdout}
	for _, opt := range opts {
		opt(o)
	}

	var exporter sdktrace.SpanExporter
	switch cfg.TraceExporter {
	case config.ExporterNone, "":
		return sdktrace.NewTracerProvider(), nil
	case config.ExporterStdout:
		exp, err := stdouttrace.New(stdouttrace.WithWriter(o.stdout), stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout exporter: %w", err)
		}
		exporter = exp
	case config.ExporterOTLP:
		exp, err := otlptracehttp.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create otlp exporter: %w", err)
		}
		exporter = exp
	default:
		return nil, fmt.Errorf("unknown trace exporter %q", cfg.TraceExporter)
	}

	return sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter)), nil
}
