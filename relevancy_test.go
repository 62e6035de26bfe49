package relevancy

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"

	"github.com/evalkit/relevancy-go/config"
	"github.com/evalkit/relevancy-go/eval"
	"github.com/evalkit/relevancy-go/eval/evaltest"
	intlogger "github.com/evalkit/relevancy-go/internal/logger"
	"github.com/evalkit/relevancy-go/internal/tests"
	"github.com/evalkit/relevancy-go/internal/vcr"
	"github.com/evalkit/relevancy-go/logger"
	"github.com/evalkit/relevancy-go/model"
	"github.com/evalkit/relevancy-go/report"
)

// checkRelevancy asserts the reference case with a 0.5 threshold on gpt-4o,
// scoring with scorer.
func checkRelevancy(ctx context.Context, scorer eval.RelevancyScorer) error {
	metric, err := eval.NewAnswerRelevancy(eval.RelevancyConfig{Threshold: 0.5, Model: "gpt-4o"}, scorer)
	if err != nil {
		return err
	}
	return eval.Assert(ctx, tests.ReturnsCase(), metric)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Threshold:     0.5,
		Model:         "gpt-4o",
		Provider:      config.ProviderOpenAI,
		IncludeReason: true,
		OpenAIAPIKey:  "test-key",
		OpenAIBaseURL: "https://api.openai.com/v1",
		OllamaHost:    "http://localhost:11434",
		TraceExporter: config.ExporterNone,
		Logger:        intlogger.NewFailTestLogger(t),
	}
}

// TestRelevancy runs the reference case against gpt-4o, replayed from
// testdata/cassettes by default. The checked-in cassette is a synthetic
// fixture shaped like a chat completion response, so the token counts asserted
// below are the fixture's; run with VCR_MODE=record and a real OPENAI_API_KEY
// to replace it with a recorded exchange.
func TestRelevancy(t *testing.T) {
	client, apiKey := vcr.OpenAIClient(t)
	ctx := context.Background()
	tp, sr := tests.NewTracerProvider(t)

	cfg := testConfig(t)
	cfg.OpenAIAPIKey = apiKey
	h, err := New(ctx, cfg, WithHTTPClient(client), WithTracerProvider(tp))
	require.NoError(t, err)

	evaltest.AssertWith(ctx, t, h.Evaluator, tests.ReturnsCase(), h.Metric)

	var request bool
	for _, span := range sr.Ended() {
		if span.Name() != "openai request" {
			continue
		}
		request = true
		assert.Contains(t, span.Attributes(), attribute.String("llm.model", "gpt-4o"))
		assert.Contains(t, span.Attributes(), attribute.Int64("llm.usage.total_tokens", 169))
	}
	assert.True(t, request, "model call should be traced")
}

func TestRelevancy_PassesAtOrAboveThreshold(t *testing.T) {
	t.Parallel()
	for _, score := range []float64{0.5, 0.73, 1} {
		scorer := &tests.Scorer{Judgment: eval.Judgment{Score: score}}
		assert.NoError(t, checkRelevancy(context.Background(), scorer), "score %v", score)
		assert.Equal(t, 1, scorer.Calls())
	}
}

func TestRelevancy_FailsBelowThreshold(t *testing.T) {
	t.Parallel()
	scorer := &tests.Scorer{Judgment: eval.Judgment{Score: 0.2}}

	err := checkRelevancy(context.Background(), scorer)

	var ae *eval.AssertionError
	require.True(t, errors.As(err, &ae))
	require.Len(t, ae.Failures, 1)
	assert.Equal(t, 0.2, ae.Failures[0].Score)
	assert.Equal(t, 0.5, ae.Failures[0].Threshold)
}

func TestRelevancy_ConnectivityErrorPropagates(t *testing.T) {
	t.Parallel()
	connErr := errors.New("dial tcp: connection refused")
	scorer := &tests.Scorer{Err: connErr}

	err := checkRelevancy(context.Background(), scorer)

	require.Error(t, err)
	assert.ErrorIs(t, err, connErr)
	assert.ErrorIs(t, err, eval.ErrMetric)
	var ae *eval.AssertionError
	assert.False(t, errors.As(err, &ae), "a fault is not an assertion failure")
}

func TestRelevancy_Idempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	pass := &tests.Scorer{Judgment: eval.Judgment{Score: 0.9}}
	assert.NoError(t, checkRelevancy(ctx, pass))
	assert.NoError(t, checkRelevancy(ctx, pass))

	fail := &tests.Scorer{Judgment: eval.Judgment{Score: 0.1}}
	first := checkRelevancy(ctx, fail)
	second := checkRelevancy(ctx, fail)
	require.Error(t, first)
	assert.Equal(t, first.Error(), second.Error())
}

func TestNew_InvalidConfig(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	cfg.OpenAIAPIKey = ""

	_, err := New(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing OpenAI API key")
}

func TestNew_ScorerSkipsProviderValidation(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	cfg.OpenAIAPIKey = ""
	tp, _ := tests.NewTracerProvider(t)

	h, err := New(context.Background(), cfg, WithScorer(&tests.Scorer{Judgment: eval.Judgment{Score: 1}}), WithTracerProvider(tp))
	require.NoError(t, err)
	assert.NoError(t, h.Assert(context.Background(), tests.ReturnsCase()))
	assert.NoError(t, h.Shutdown(context.Background()))
}

func TestNew_StrictMode(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	cfg.StrictMode = true

	h, err := New(context.Background(), cfg, WithScorer(&tests.Scorer{Judgment: eval.Judgment{Score: 0.9}}))
	require.NoError(t, err)
	assert.Equal(t, 1.0, h.Metric.Threshold())

	var ae *eval.AssertionError
	require.True(t, errors.As(h.Assert(context.Background(), tests.ReturnsCase()), &ae))
	assert.Equal(t, 0.0, ae.Failures[0].Score)
}

func TestNew_WithModel(t *testing.T) {
	t.Parallel()
	m := model.Func{
		ID: "stub-judge",
		Fn: func(ctx context.Context, req model.Request) (string, error) {
			return `{"score": 0.8, "reason": "on topic"}`, nil
		},
	}

	h, err := New(context.Background(), testConfig(t), WithModel(m))
	require.NoError(t, err)
	assert.Equal(t, "stub-judge", h.Metric.Model())

	results, err := h.Evaluator.Measure(context.Background(), tests.ReturnsCase(), h.Metric)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 0.8, results[0].Score)
	assert.Equal(t, "on topic", results[0].Reason)
}

func TestNewModel(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	cfg.AnthropicAPIKey = "test-key"
	cfg.GeminiAPIKey = "test-key"

	for _, provider := range []string{
		config.ProviderOpenAI,
		config.ProviderOpenAIGo,
		config.ProviderLangchainGo,
		config.ProviderAnthropic,
		config.ProviderGenAI,
		config.ProviderOllama,
	} {
		t.Run(provider, func(t *testing.T) {
			c := *cfg
			c.Provider = provider
			m, err := NewModel(context.Background(), &c, http.DefaultClient)
			require.NoError(t, err)
			assert.Equal(t, "gpt-4o", m.Name())
		})
	}

	c := *cfg
	c.Provider = "bard"
	_, err := NewModel(context.Background(), &c, nil)
	assert.Error(t, err)
}

func TestHarness_RunAndReport(t *testing.T) {
	t.Parallel()
	uploads := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, report.EvaluationsPath, r.URL.Path)
		uploads++
	}))
	defer server.Close()

	cfg := testConfig(t)
	cfg.ReportURL = server.URL
	cfg.Logger = logger.Discard()
	scorer := eval.ScorerFunc(func(ctx context.Context, c eval.Case) (eval.Judgment, error) {
		if c.Name == "off-topic" {
			return eval.Judgment{Score: 0.1}, nil
		}
		return eval.Judgment{Score: 0.9}, nil
	})
	h, err := New(context.Background(), cfg, WithScorer(scorer))
	require.NoError(t, err)

	on := tests.ReturnsCase()
	on.Name = "on-topic"
	off := tests.ReturnsCase()
	off.Name = "off-topic"
	result, err := h.Run(context.Background(), eval.NewDataset([]eval.Case{on, off}), 2)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed())

	var buf bytes.Buffer
	sinks := h.Sinks(&buf)
	require.Len(t, sinks, 2)
	require.NoError(t, report.All(context.Background(), result, sinks...))
	assert.Contains(t, buf.String(), "[FAIL] off-topic")
	assert.Equal(t, 1, uploads)
}
