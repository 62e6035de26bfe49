package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalkit/relevancy-go/model"
)

const completionResponse = `{
	"id": "chatcmpl-123",
	"object": "chat.completion",
	"created": 1700000000,
	"model": "gpt-4o",
	"choices": [{
		"index": 0,
		"message": {"role": "assistant", "content": "{\"score\": 0.7}", "refusal": null},
		"finish_reason": "stop",
		"logprobs": null
	}],
	"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
}`

func newTestModel(t *testing.T, handler http.HandlerFunc) *Model {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New("gpt-4o",
		option.WithAPIKey("test-key"),
		option.WithBaseURL(server.URL+"/v1/"),
	)
}

func TestGenerate(t *testing.T) {
	t.Parallel()
	var body map[string]any
	m := newTestModel(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"), r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionResponse))
	})

	out, err := m.Generate(context.Background(), model.Request{System: "judge", Prompt: "rate this", JSON: true})
	require.NoError(t, err)
	assert.Equal(t, `{"score": 0.7}`, out)

	assert.Equal(t, "gpt-4o", body["model"])
	assert.Equal(t, float64(0), body["temperature"])
	messages, ok := body["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, messages, 2)
	format, ok := body["response_format"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "json_object", format["type"])
}

func TestGenerate_NoSystem(t *testing.T) {
	t.Parallel()
	var body map[string]any
	m := newTestModel(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionResponse))
	})

	_, err := m.Generate(context.Background(), model.Request{Prompt: "rate this"})
	require.NoError(t, err)

	messages, ok := body["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, messages, 1)
	_, hasFormat := body["response_format"]
	assert.False(t, hasFormat)
}

func TestGenerate_APIError(t *testing.T) {
	t.Parallel()
	calls := 0
	m := newTestModel(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"message": "Incorrect API key provided", "type": "invalid_request_error", "param": null, "code": "invalid_api_key"}}`))
	})

	_, err := m.Generate(context.Background(), model.Request{Prompt: "rate this"})
	require.Error(t, err)

	var apiErr *openai.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, 1, calls)
}
