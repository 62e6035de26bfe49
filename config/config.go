// Package config provides configuration for the relevancy harness.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/evalkit/relevancy-go/logger"
)

// Provider names accepted in RELEVANCY_PROVIDER.
const (
	ProviderOpenAI      = "openai"
	ProviderOpenAIGo    = "openai-go"
	ProviderAnthropic   = "anthropic"
	ProviderGenAI       = "genai"
	ProviderLangchainGo = "langchaingo"
	ProviderOllama      = "ollama"
)

// Trace exporter names accepted in RELEVANCY_TRACE_EXPORTER.
const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
)

// Config holds immutable configuration for the harness.
type Config struct {
	// Metric
	Threshold     float64
	Model         string
	Provider      string
	StrictMode    bool
	IncludeReason bool

	// Provider credentials and endpoints
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	AnthropicAPIKey string
	GeminiAPIKey    string
	OllamaHost      string

	// Observability and reporting
	TraceExporter string
	ReportURL     string
	ReportAPIKey  string
	Debug         bool

	// Logger
	Logger logger.Logger

	// envErrs holds values FromEnv could not parse.
	envErrs []error
}

// FromEnv loads configuration from environment variables with defaults.
//
// Supported environment variables:
//   - RELEVANCY_THRESHOLD: minimum passing score (default: 0.5)
//   - RELEVANCY_MODEL: evaluation model (default: "gpt-4o")
//   - RELEVANCY_PROVIDER: openai, openai-go, anthropic, genai, langchaingo or ollama (default: "openai")
//   - RELEVANCY_STRICT_MODE: require a perfect score (default: false)
//   - RELEVANCY_INCLUDE_REASON: keep the judge's reason on results (default: true)
//   - RELEVANCY_TRACE_EXPORTER: none, stdout or otlp (default: "none")
//   - RELEVANCY_REPORT_URL, RELEVANCY_REPORT_API_KEY: optional result upload endpoint
//   - RELEVANCY_DEBUG: enable debug logging (default: false)
//   - OPENAI_API_KEY, OPENAI_BASE_URL (default: "https://api.openai.com/v1")
//   - ANTHROPIC_API_KEY
//   - GEMINI_API_KEY
//   - OLLAMA_HOST (default: "http://localhost:11434")
func FromEnv() *Config {
	debug := getEnvBool("RELEVANCY_DEBUG", false)
	log := logger.NewDefault(debug)

	threshold, err := getEnvFloat("RELEVANCY_THRESHOLD", 0.5)
	var envErrs []error
	if err != nil {
		log.Warn("ignoring unparseable environment variable", "error", err)
		envErrs = append(envErrs, err)
	}

	return &Config{
		Threshold:       threshold,
		Model:           getEnvString("RELEVANCY_MODEL", "gpt-4o"),
		Provider:        strings.ToLower(getEnvString("RELEVANCY_PROVIDER", ProviderOpenAI)),
		StrictMode:      getEnvBool("RELEVANCY_STRICT_MODE", false),
		IncludeReason:   getEnvBool("RELEVANCY_INCLUDE_REASON", true),
		OpenAIAPIKey:    getEnvString("OPENAI_API_KEY", ""),
		OpenAIBaseURL:   getEnvString("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		AnthropicAPIKey: getEnvString("ANTHROPIC_API_KEY", ""),
		GeminiAPIKey:    getEnvString("GEMINI_API_KEY", ""),
		OllamaHost:      getEnvString("OLLAMA_HOST", "http://localhost:11434"),
		TraceExporter:   strings.ToLower(getEnvString("RELEVANCY_TRACE_EXPORTER", ExporterNone)),
		ReportURL:       getEnvString("RELEVANCY_REPORT_URL", ""),
		ReportAPIKey:    getEnvString("RELEVANCY_REPORT_API_KEY", ""),
		Debug:           debug,
		Logger:          log,
		envErrs:         envErrs,
	}
}

// getEnvString returns the trimmed environment variable value or the default
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return strings.TrimSpace(value)
	}
	return defaultValue
}

// getEnvBool returns the environment variable as a bool or the default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(strings.TrimSpace(value)) == "true"
	}
	return defaultValue
}

// getEnvFloat returns the environment variable as a float64 or the default.
// An unparseable value returns the default and an error naming the variable.
func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return defaultValue, fmt.Errorf("invalid %s %q: not a number", key, value)
	}
	return f, nil
}

// IsValid checks if the configuration has all required fields.
// Returns an error if any required field is missing.
func (c *Config) IsValid() error {
	if len(c.envErrs) > 0 {
		return c.envErrs[0]
	}
	if c.Threshold < 0 || c.Threshold > 1 {
		return fmt.Errorf("threshold must be between 0 and 1, got %v", c.Threshold)
	}
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	switch c.Provider {
	case ProviderOpenAI, ProviderOpenAIGo, ProviderLangchainGo:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("missing OpenAI API key for provider %q", c.Provider)
		}
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("missing Anthropic API key for provider %q", c.Provider)
		}
	case ProviderGenAI:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("missing Gemini API key for provider %q", c.Provider)
		}
	case ProviderOllama:
		if c.OllamaHost == "" {
			return fmt.Errorf("missing Ollama host for provider %q", c.Provider)
		}
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	switch c.TraceExporter {
	case ExporterNone, ExporterStdout, ExporterOTLP:
	default:
		return fmt.Errorf("unknown trace exporter %q", c.TraceExporter)
	}
	return nil
}
