// Package vcr records and replays the HTTP traffic of judge models in tests
// using go-vcr, so reference tests run without network access or API keys.
package vcr

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/dnaeon/go-vcr.v3/cassette"
	"gopkg.in/dnaeon/go-vcr.v3/recorder"
)

// Mode represents the mode for VCR operations
type Mode string

const (
	// ModeOff disables VCR and uses real HTTP requests
	ModeOff Mode = "off"
	// ModeRecord records or updates cassettes
	ModeRecord Mode = "record"
	// ModeReplay replays from existing cassettes (default)
	ModeReplay Mode = "replay"
)

// GetVCRMode reads the VCR_MODE environment variable and returns the mode.
// Defaults to replay mode if not set or invalid.
func GetVCRMode() Mode {
	mode := os.Getenv("VCR_MODE")
	switch mode {
	case string(ModeOff):
		return ModeOff
	case string(ModeRecord):
		return ModeRecord
	case string(ModeReplay), "":
		return ModeReplay
	default:
		// Invalid mode, default to replay
		return ModeReplay
	}
}

// NewVCRRecorder creates a new VCR recorder for the given cassette path.
// The recorder automatically scrubs sensitive headers before saving.
func NewVCRRecorder(t *testing.T, cassettePath string) (*recorder.Recorder, error) {
	t.Helper()

	mode := GetVCRMode()

	var recorderMode recorder.Mode
	switch mode {
	case ModeRecord:
		recorderMode = recorder.ModeRecordOnly
	case ModeReplay:
		recorderMode = recorder.ModeReplayOnly
	default:
		// ModeOff - shouldn't reach here, caller should check
		t.Fatalf("NewVCRRecorder called with ModeOff - this is a programming error")
		return nil, nil
	}

	r, err := recorder.NewWithOptions(&recorder.Options{
		CassetteName:       cassettePath,
		Mode:               recorderMode,
		SkipRequestLatency: true, // Don't simulate recorded delays in replay mode
	})
	if err != nil {
		return nil, err
	}

	// Add hook to scrub sensitive data before saving cassettes
	r.AddHook(scrubCredentials, recorder.BeforeSaveHook)

	return r, nil
}

// scrubCredentials removes sensitive headers from cassette interactions
// before they are saved to disk.
func scrubCredentials(i *cassette.Interaction) error {
	// "api-key" also covers x-api-key (Anthropic) and x-goog-api-key (Gemini).
	sensitivePatterns := []string{
		"authorization",
		"api-key",
		"organization",
		"openai-project",
		"cookie",
	}

	targets := []map[string][]string{
		i.Request.Headers,
		i.Response.Headers,
	}

	for _, headers := range targets {
		// Build list of all header keys first
		keys := make([]string, 0, len(headers))
		for key := range headers {
			keys = append(keys, key)
		}

		// Iterate the list and delete sensitive headers
		for _, key := range keys {
			lowerKey := strings.ToLower(key)
			for _, pattern := range sensitivePatterns {
				if strings.Contains(lowerKey, pattern) {
					delete(headers, key)
					break
				}
			}
		}
	}

	return nil
}

// WrapHTTPClient wraps an existing http.Client with VCR recording/replay functionality.
// If VCR_MODE=off, returns the original client unchanged.
// The cassette name is automatically derived from t.Name().
// Cassettes are stored in testdata/cassettes/<test-name>.yaml
func WrapHTTPClient(t *testing.T, httpClient *http.Client) *http.Client {
	t.Helper()

	mode := GetVCRMode()
	if mode == ModeOff {
		// VCR disabled, return original client
		return httpClient
	}

	// Build cassette path (don't add .yaml extension, recorder adds it automatically)
	cassettePath := filepath.Join("testdata", "cassettes", t.Name())

	// Create recorder
	r, err := NewVCRRecorder(t, cassettePath)
	if err != nil {
		t.Fatalf("Failed to create VCR recorder: %v", err)
	}

	// Register cleanup to stop recorder
	t.Cleanup(func() {
		if err := r.Stop(); err != nil {
			t.Errorf("Failed to stop VCR recorder: %v", err)
		}
	})

	// Create new client with VCR transport
	vcrClient := &http.Client{
		Transport: r,
		// Copy other settings from original client
		CheckRedirect: httpClient.CheckRedirect,
		Jar:           httpClient.Jar,
		Timeout:       httpClient.Timeout,
	}

	return vcrClient
}

// NewHTTPClient creates a new HTTP client with VCR support.
// If VCR_MODE=off, returns a standard HTTP client.
// The cassette name is automatically derived from t.Name().
func NewHTTPClient(t *testing.T) *http.Client {
	t.Helper()

	baseClient := &http.Client{
		Timeout: 30 * time.Second,
	}

	return WrapHTTPClient(t, baseClient)
}

// APIKey returns the value of envVar for VCR-enabled tests.
// In replay mode a missing key becomes a dummy one; in record/off modes the
// test fails without it.
func APIKey(t *testing.T, envVar string) string {
	t.Helper()

	mode := GetVCRMode()

	apiKey := os.Getenv(envVar)
	if mode != ModeReplay && apiKey == "" {
		t.Fatalf("%s not set (required in record/off mode)", envVar)
	}
	if apiKey == "" {
		apiKey = "dummy-api-key-for-replay"
	}

	return apiKey
}

// OpenAIClient returns an HTTP client and API key for tests that call OpenAI.
// It skips the test in short mode.
func OpenAIClient(t *testing.T) (*http.Client, string) {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping cassette-backed test in short mode")
	}

	return NewHTTPClient(t), APIKey(t, "OPENAI_API_KEY")
}
