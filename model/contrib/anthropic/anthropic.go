// Package anthropic implements model.Model with github.com/anthropics/anthropic-sdk-go.
//
//	m := anthropic.New("claude-3-7-sonnet-latest",
//		option.WithAPIKey(os.Getenv("ANTHROPIC_API_KEY")),
//		option.WithHTTPClient(llmhttp.Client(llmhttp.WithProvider("anthropic"))),
//	)
package anthropic

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/evalkit/relevancy-go/model"
)

const defaultMaxTokens = 1024

// Model calls the Anthropic Messages API.
type Model struct {
	client anthropic.Client
	name   string
}

// New creates a model for the given model name. Retries are disabled unless
// opts enable them again.
func New(name string, opts ...option.RequestOption) *Model {
	opts = append([]option.RequestOption{option.WithMaxRetries(0)}, opts...)
	return &Model{
		client: anthropic.NewClient(opts...),
		name:   name,
	}
}

// Name implements model.Model.
func (m *Model) Name() string {
	return m.name
}

// Generate implements model.Model. The Messages API has no JSON mode, so
// req.JSON relies on the prompt asking for JSON.
func (m *Model) Generate(ctx context.Context, req model.Request) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(m.name),
		MaxTokens: defaultMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
		Temperature: anthropic.Float(req.Temperature),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	msg, err := m.client.Messages.New(ctx, params)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", model.ErrEmptyResponse
	}
	return b.String(), nil
}
