// Package relevancy assembles an answer-relevancy harness from configuration:
// a judge model from one of the supported providers, the AnswerRelevancy
// metric and a traced evaluator.
//
//	h, err := relevancy.New(ctx, config.FromEnv())
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer h.Shutdown(ctx)
//
//	err = h.Assert(ctx, eval.Case{
//		Input:        "Can I return these shoes after 30 days?",
//		ActualOutput: "Unfortunately, returns are only accepted within 30 days of purchase.",
//	})
package relevancy

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	openaioption "github.com/openai/openai-go/option"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/evalkit/relevancy-go/config"
	"github.com/evalkit/relevancy-go/eval"
	"github.com/evalkit/relevancy-go/judge"
	"github.com/evalkit/relevancy-go/logger"
	"github.com/evalkit/relevancy-go/model"
	anthropicmodel "github.com/evalkit/relevancy-go/model/contrib/anthropic"
	goopenai "github.com/evalkit/relevancy-go/model/contrib/github.com/sashabaranov/go-openai"
	genaimodel "github.com/evalkit/relevancy-go/model/contrib/genai"
	"github.com/evalkit/relevancy-go/model/contrib/langchaingo"
	ollamamodel "github.com/evalkit/relevancy-go/model/contrib/ollama"
	openaimodel "github.com/evalkit/relevancy-go/model/contrib/openai"
	"github.com/evalkit/relevancy-go/report"
	"github.com/evalkit/relevancy-go/trace"
	"github.com/evalkit/relevancy-go/trace/contrib/llmhttp"
)

// Harness holds a configured relevancy metric and the evaluator that runs it.
type Harness struct {
	Config    *config.Config
	Metric    *eval.AnswerRelevancy
	Evaluator *eval.Evaluator

	logger   logger.Logger
	shutdown func(context.Context) error
}

type options struct {
	httpClient     *http.Client
	tracerProvider oteltrace.TracerProvider
	model          model.Model
	scorer         eval.RelevancyScorer
}

// Option configures New.
type Option func(*options)

// WithHTTPClient sets the base HTTP client for model calls. It is wrapped with
// tracing. Tests use it to inject a VCR-backed client.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithTracerProvider uses tp instead of building one from the config's trace
// exporter. The caller keeps ownership of tp.
func WithTracerProvider(tp oteltrace.TracerProvider) Option {
	return func(o *options) {
		o.tracerProvider = tp
	}
}

// WithModel uses m as the judge model instead of the configured provider.
func WithModel(m model.Model) Option {
	return func(o *options) {
		o.model = m
	}
}

// WithScorer bypasses the judge and scores cases with s.
func WithScorer(s eval.RelevancyScorer) Option {
	return func(o *options) {
		o.scorer = s
	}
}

// New builds a harness from cfg. A nil cfg is read from the environment.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Harness, error) {
	if cfg == nil {
		cfg = config.FromEnv()
	}
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	log := cfg.Logger
	if log == nil {
		log = logger.NewDefault(cfg.Debug)
	}

	// provider credentials only matter when we build the model ourselves
	if o.model == nil && o.scorer == nil {
		if err := cfg.IsValid(); err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
	}

	h := &Harness{
		Config:   cfg,
		logger:   log,
		shutdown: func(context.Context) error { return nil },
	}

	tp := o.tracerProvider
	if tp == nil {
		sdktp, err := trace.NewTracerProvider(ctx, cfg)
		if err != nil {
			return nil, err
		}
		tp = sdktp
		h.shutdown = sdktp.Shutdown
	}

	scorer := o.scorer
	modelName := cfg.Model
	if scorer == nil {
		m := o.model
		if m == nil {
			client := llmhttp.WrapClient(o.httpClient,
				llmhttp.WithProvider(cfg.Provider),
				llmhttp.WithTracerProvider(tp),
				llmhttp.WithLogger(log),
			)
			var err error
			m, err = NewModel(ctx, cfg, client)
			if err != nil {
				_ = h.shutdown(ctx)
				return nil, err
			}
		}
		modelName = m.Name()
		scorer = judge.New(m, judge.WithLogger(log))
	}

	metric, err := eval.NewAnswerRelevancy(eval.RelevancyConfig{
		Threshold:     cfg.Threshold,
		Model:         modelName,
		StrictMode:    cfg.StrictMode,
		IncludeReason: cfg.IncludeReason,
	}, scorer)
	if err != nil {
		_ = h.shutdown(ctx)
		return nil, err
	}
	h.Metric = metric
	h.Evaluator = eval.NewEvaluator(tp, log)

	log.Debug("relevancy harness ready",
		"provider", cfg.Provider,
		"model", modelName,
		"threshold", metric.Threshold())
	return h, nil
}

// NewModel creates the judge model for cfg.Provider, sending requests with client.
func NewModel(ctx context.Context, cfg *config.Config, client *http.Client) (model.Model, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return goopenai.New(cfg.OpenAIAPIKey, cfg.Model,
			goopenai.WithBaseURL(cfg.OpenAIBaseURL),
			goopenai.WithHTTPClient(client),
		), nil
	case config.ProviderOpenAIGo:
		baseURL := cfg.OpenAIBaseURL
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		return openaimodel.New(cfg.Model,
			openaioption.WithAPIKey(cfg.OpenAIAPIKey),
			openaioption.WithBaseURL(baseURL),
			openaioption.WithHTTPClient(client),
		), nil
	case config.ProviderLangchainGo:
		return langchaingo.NewOpenAI(cfg.OpenAIAPIKey, cfg.Model, cfg.OpenAIBaseURL, client)
	case config.ProviderAnthropic:
		return anthropicmodel.New(cfg.Model,
			anthropicoption.WithAPIKey(cfg.AnthropicAPIKey),
			anthropicoption.WithHTTPClient(client),
		), nil
	case config.ProviderGenAI:
		return genaimodel.New(ctx, cfg.GeminiAPIKey, cfg.Model, genaimodel.WithHTTPClient(client))
	case config.ProviderOllama:
		return ollamamodel.New(cfg.OllamaHost, cfg.Model, client)
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

// Assert measures c with the relevancy metric. See eval.Assert.
func (h *Harness) Assert(ctx context.Context, c eval.Case) error {
	return h.Evaluator.Assert(ctx, c, h.Metric)
}

// Run measures every case of ds with the relevancy metric.
func (h *Harness) Run(ctx context.Context, ds eval.Dataset, parallelism int) (*eval.Result, error) {
	return h.Evaluator.Run(ctx, eval.Opts{
		Dataset:     ds,
		Metrics:     []eval.Metric{h.Metric},
		Parallelism: parallelism,
	})
}

// Sinks returns the report sinks for the harness: a console summary written
// to w, plus an upload when a report URL is configured.
func (h *Harness) Sinks(w io.Writer) []report.Sink {
	sinks := []report.Sink{report.Console{W: w}}
	if h.Config.ReportURL != "" {
		sinks = append(sinks, report.NewHTTPSink(h.Config.ReportURL, h.Config.ReportAPIKey, h.Metric.Model(), nil, h.logger))
	}
	return sinks
}

// Shutdown flushes spans when the harness owns its tracer provider.
func (h *Harness) Shutdown(ctx context.Context) error {
	return h.shutdown(ctx)
}
