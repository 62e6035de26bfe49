// Package langchaingo adapts a github.com/tmc/langchaingo llms.Model to model.Model,
// so any langchaingo backend can act as the relevancy judge.
package langchaingo

import (
	"context"
	"net/http"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/evalkit/relevancy-go/model"
)

// Model wraps a langchaingo model.
type Model struct {
	llm  llms.Model
	name string
}

// New wraps llm, reporting name as its model identifier.
func New(llm llms.Model, name string) *Model {
	return &Model{llm: llm, name: name}
}

// NewOpenAI builds a langchaingo OpenAI backend. An empty baseURL keeps the
// library default and a nil client uses http.DefaultClient.
func NewOpenAI(apiKey, name, baseURL string, client *http.Client) (*Model, error) {
	opts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithModel(name),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	if client != nil {
		opts = append(opts, openai.WithHTTPClient(client))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, err
	}
	return New(llm, name), nil
}

// Name implements model.Model.
func (m *Model) Name() string {
	return m.name
}

// Generate implements model.Model.
func (m *Model) Generate(ctx context.Context, req model.Request) (string, error) {
	var messages []llms.MessageContent
	if req.System != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, req.System))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, req.Prompt))

	callOpts := []llms.CallOption{llms.WithTemperature(req.Temperature)}
	if req.JSON {
		callOpts = append(callOpts, llms.WithJSONMode())
	}

	resp, err := m.llm.GenerateContent(ctx, messages, callOpts...)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Content == "" {
		return "", model.ErrEmptyResponse
	}
	return resp.Choices[0].Content, nil
}
