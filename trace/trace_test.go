package trace

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalkit/relevancy-go/config"
)

func TestNewTracerProvider_None(t *testing.T) {
	t.Parallel()
	tp, err := NewTracerProvider(context.Background(), &config.Config{TraceExporter: config.ExporterNone})
	require.NoError(t, err)
	require.NotNil(t, tp)
	assert.NoError(t, tp.Shutdown(context.Background()))
}

func TestNewTracerProvider_Stdout(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	tp, err := NewTracerProvider(context.Background(), &config.Config{TraceExporter: config.ExporterStdout}, WithStdoutWriter(&buf))
	require.NoError(t, err)

	_, span := tp.Tracer("test").Start(context.Background(), "relevancy-check")
	span.End()
	require.NoError(t, tp.Shutdown(context.Background()))

	assert.Contains(t, buf.String(), "relevancy-check")
}

func TestNewTracerProvider_Unknown(t *testing.T) {
	t.Parallel()
	_, err := NewTracerProvider(context.Background(), &config.Config{TraceExporter: "zipkin"})
	assert.Error(t, err)
}
