// Package ollama implements model.Model against a local Ollama server using
// github.com/ollama/ollama/api.
package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"

	"github.com/evalkit/relevancy-go/model"
)

// DefaultHost is the address Ollama listens on by default.
const DefaultHost = "http://localhost:11434"

// Model calls the Ollama generate endpoint.
type Model struct {
	client *api.Client
	name   string
}

// New creates a model served by the Ollama instance at host. A nil client
// uses http.DefaultClient.
func New(host, name string, client *http.Client) (*Model, error) {
	if host == "" {
		host = DefaultHost
	}
	base, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama host %q: %w", host, err)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Model{
		client: api.NewClient(base, client),
		name:   name,
	}, nil
}

// Name implements model.Model.
func (m *Model) Name() string {
	return m.name
}

// Generate implements model.Model.
func (m *Model) Generate(ctx context.Context, req model.Request) (string, error) {
	stream := false
	greq := &api.GenerateRequest{
		Model:  m.name,
		System: req.System,
		Prompt: req.Prompt,
		Stream: &stream,
		Options: map[string]any{
			"temperature": req.Temperature,
		},
	}
	if req.JSON {
		greq.Format = json.RawMessage(`"json"`)
	}

	var out strings.Builder
	err := m.client.Generate(ctx, greq, func(resp api.GenerateResponse) error {
		out.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return "", err
	}
	if out.Len() == 0 {
		return "", model.ErrEmptyResponse
	}
	return out.String(), nil
}
