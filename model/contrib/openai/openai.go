// Package openai implements model.Model with the official OpenAI Go SDK,
// github.com/openai/openai-go.
//
//	m := openai.New("gpt-4o",
//		option.WithAPIKey(os.Getenv("OPENAI_API_KEY")),
//		option.WithHTTPClient(llmhttp.Client(llmhttp.WithProvider("openai"))),
//	)
package openai

import (
	"context"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/evalkit/relevancy-go/model"
)

// Model calls the OpenAI chat completions API.
type Model struct {
	client openai.Client
	name   string
}

// New creates a model for the given model name. Retries are disabled unless
// opts enable them again, so a failing call surfaces at once.
func New(name string, opts ...option.RequestOption) *Model {
	opts = append([]option.RequestOption{option.WithMaxRetries(0)}, opts...)
	return &Model{
		client: openai.NewClient(opts...),
		name:   name,
	}
}

// Name implements model.Model.
func (m *Model) Name() string {
	return m.name
}

// Generate implements model.Model.
func (m *Model) Generate(ctx context.Context, req model.Request) (string, error) {
	var messages []openai.ChatCompletionMessageParamUnion
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(m.name),
		Messages:    messages,
		Temperature: openai.Float(req.Temperature),
	}
	if req.JSON {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", model.ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}
