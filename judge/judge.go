// Package judge scores answer relevancy by asking a language model.
package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"text/template"

	"github.com/evalkit/relevancy-go/eval"
	"github.com/evalkit/relevancy-go/logger"
	"github.com/evalkit/relevancy-go/model"
)

// ErrMalformedResponse is returned when the model's reply carries no usable score.
var ErrMalformedResponse = errors.New("malformed judge response")

const systemPrompt = `You are an expert evaluator of question answering systems.
You judge how relevant an answer is to the question that was asked.
You reply with JSON only.`

var promptTemplate = template.Must(template.New("relevancy").Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}).Parse(`Rate how relevant the ANSWER is to the QUESTION on a scale from 0 to 1.
1 means every statement in the answer addresses the question.
0 means nothing in the answer addresses the question.
Statements that are correct but do not address the question lower the score.
Use the CONTEXT only to understand the question; do not grade factual accuracy.

QUESTION:
{{.Input}}

ANSWER:
{{.ActualOutput}}
{{if .RetrievalContext}}
CONTEXT:
{{range $i, $c := .RetrievalContext}}{{$i | inc}}. {{$c}}
{{end}}{{end}}
Respond with a JSON object of the form {"score": <number between 0 and 1>, "reason": "<one sentence>"}.`))

// Judge implements eval.RelevancyScorer on top of a model.Model.
type Judge struct {
	model  model.Model
	logger logger.Logger
}

// Option configures a Judge.
type Option func(*Judge)

// WithLogger sets a custom logger.
// If not provided, no logging will occur.
func WithLogger(log logger.Logger) Option {
	return func(j *Judge) {
		j.logger = log
	}
}

// New creates a judge that calls m.
func New(m model.Model, opts ...Option) *Judge {
	j := &Judge{model: m, logger: logger.Discard()}
	for _, opt := range opts {
		opt(j)
	}
	if j.logger == nil {
		j.logger = logger.Discard()
	}
	return j
}

// ModelName returns the underlying model's name.
func (j *Judge) ModelName() string {
	return j.model.Name()
}

// Score implements eval.RelevancyScorer. Model errors are returned wrapped,
// and a reply without a score in [0,1] is ErrMalformedResponse.
func (j *Judge) Score(ctx context.Context, c eval.Case) (eval.Judgment, error) {
	prompt, err := BuildPrompt(c)
	if err != nil {
		return eval.Judgment{}, err
	}

	j.logger.Debug("judge request", "model", j.model.Name(), "input", c.Input)
	out, err := j.model.Generate(ctx, model.Request{
		System:      systemPrompt,
		Prompt:      prompt,
		JSON:        true,
		Temperature: 0,
	})
	if err != nil {
		return eval.Judgment{}, fmt.Errorf("model %s: %w", j.model.Name(), err)
	}

	judgment, err := ParseResponse(out)
	if err != nil {
		j.logger.Warn("judge response unusable", "model", j.model.Name(), "output", out)
		return eval.Judgment{}, err
	}
	j.logger.Debug("judge response", "model", j.model.Name(), "score", judgment.Score)
	return judgment, nil
}

// BuildPrompt renders the relevancy prompt for c.
func BuildPrompt(c eval.Case) (string, error) {
	var buf bytes.Buffer
	if err := promptTemplate.Execute(&buf, c); err != nil {
		return "", fmt.Errorf("failed to render prompt: %w", err)
	}
	return buf.String(), nil
}

var (
	fencePattern  = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")
	scorePattern  = regexp.MustCompile(`(?i)"?score"?\s*[:=]\s*([0-9]*\.?[0-9]+)`)
	reasonPattern = regexp.MustCompile(`(?i)"?reason"?\s*[:=]\s*"?([^"\n]+)`)
)

// ParseResponse extracts a judgment from a model reply. JSON is preferred; a
// "score: 0.8" line is accepted as a fallback.
func ParseResponse(out string) (eval.Judgment, error) {
	out = strings.TrimSpace(out)
	if m := fencePattern.FindStringSubmatch(out); m != nil {
		out = m[1]
	}

	if strings.HasPrefix(out, "{") {
		var resp struct {
			Score  *float64 `json:"score"`
			Reason string   `json:"reason"`
		}
		if err := json.Unmarshal([]byte(out), &resp); err == nil && resp.Score != nil {
			return checked(*resp.Score, resp.Reason)
		}
	}

	m := scorePattern.FindStringSubmatch(out)
	if m == nil {
		return eval.Judgment{}, fmt.Errorf("%w: no score in %q", ErrMalformedResponse, out)
	}
	score, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return eval.Judgment{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	reason := ""
	if rm := reasonPattern.FindStringSubmatch(out); rm != nil {
		reason = strings.TrimSpace(rm[1])
	}
	return checked(score, reason)
}

func checked(score float64, reason string) (eval.Judgment, error) {
	if math.IsNaN(score) || score < 0 || score > 1 {
		return eval.Judgment{}, fmt.Errorf("%w: score %v is not within [0,1]", ErrMalformedResponse, score)
	}
	return eval.Judgment{Score: score, Reason: reason}, nil
}
