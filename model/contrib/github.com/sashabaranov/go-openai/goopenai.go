// Package goopenai implements model.Model with github.com/sashabaranov/go-openai.
//
//	m := goopenai.New(os.Getenv("OPENAI_API_KEY"), "gpt-4o",
//		goopenai.WithHTTPClient(llmhttp.Client(llmhttp.WithProvider("openai"))),
//	)
//	scorer := judge.New(m)
package goopenai

import (
	"context"
	"math"
	"net/http"

	"github.com/sashabaranov/go-openai"

	"github.com/evalkit/relevancy-go/model"
)

// Model calls the OpenAI chat completions API.
type Model struct {
	client *openai.Client
	name   string
}

// Option configures a Model.
type Option func(*openai.ClientConfig)

// WithBaseURL overrides the API base URL, e.g. for Azure-compatible gateways.
func WithBaseURL(url string) Option {
	return func(c *openai.ClientConfig) {
		c.BaseURL = url
	}
}

// WithHTTPClient sets the HTTP client used for requests. A nil client keeps
// the default.
func WithHTTPClient(client *http.Client) Option {
	return func(c *openai.ClientConfig) {
		if client != nil {
			c.HTTPClient = client
		}
	}
}

// New creates a model for the given model name.
func New(apiKey, name string, opts ...Option) *Model {
	cfg := openai.DefaultConfig(apiKey)
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Model{
		client: openai.NewClientWithConfig(cfg),
		name:   name,
	}
}

// Name implements model.Model.
func (m *Model) Name() string {
	return m.name
}

// Generate implements model.Model.
func (m *Model) Generate(ctx context.Context, req model.Request) (string, error) {
	var messages []openai.ChatCompletionMessage
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	// go-openai omits a zero temperature, which the API reads as 1.
	temperature := float32(req.Temperature)
	if temperature == 0 {
		temperature = math.SmallestNonzeroFloat32
	}

	creq := openai.ChatCompletionRequest{
		Model:       m.name,
		Messages:    messages,
		Temperature: temperature,
	}
	if req.JSON {
		creq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := m.client.CreateChatCompletion(ctx, creq)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", model.ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}
