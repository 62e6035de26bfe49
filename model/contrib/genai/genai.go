// Package genai implements model.Model with the Gemini API through
// google.golang.org/genai.
package genai

import (
	"context"
	"net/http"

	"google.golang.org/genai"

	"github.com/evalkit/relevancy-go/model"
)

// Model calls the Gemini generateContent API.
type Model struct {
	client *genai.Client
	name   string
}

type options struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Model.
type Option func(*options)

// WithBaseURL overrides the Gemini API endpoint.
func WithBaseURL(url string) Option {
	return func(o *options) {
		o.baseURL = url
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// New creates a Gemini model for the given model name.
func New(ctx context.Context, apiKey, name string, opts ...Option) (*Model, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  o.httpClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: o.baseURL},
	})
	if err != nil {
		return nil, err
	}
	return &Model{client: client, name: name}, nil
}

// Name implements model.Model.
func (m *Model) Name() string {
	return m.name
}

// Generate implements model.Model.
func (m *Model) Generate(ctx context.Context, req model.Request) (string, error) {
	temperature := float32(req.Temperature)
	config := &genai.GenerateContentConfig{
		Temperature: &temperature,
	}
	if req.System != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.System}},
		}
	}
	if req.JSON {
		config.ResponseMIMEType = "application/json"
	}

	contents := []*genai.Content{{
		Role:  genai.RoleUser,
		Parts: []*genai.Part{{Text: req.Prompt}},
	}}
	resp, err := m.client.Models.GenerateContent(ctx, m.name, contents, config)
	if err != nil {
		return "", err
	}

	text := resp.Text()
	if text == "" {
		return "", model.ErrEmptyResponse
	}
	return text, nil
}
