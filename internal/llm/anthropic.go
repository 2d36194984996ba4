package llm

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/disclosure-cli/pkg/anthropic"
)

// DefaultAnthropicModel is used when no model is configured.
const DefaultAnthropicModel = "claude-haiku-4-5-20251001"

// Anthropic adapts the Anthropic Messages client to Provider.
type Anthropic struct {
	client anthropic.Client
	model  string
}

// NewAnthropic wraps client. An empty model takes the default.
func NewAnthropic(client anthropic.Client, model string) *Anthropic {
	if model == "" {
		model = DefaultAnthropicModel
	}
	return &Anthropic{client: client, model: model}
}

// Name implements Provider.
func (a *Anthropic) Name() string { return "anthropic" }

// Complete implements Provider.
func (a *Anthropic) Complete(ctx context.Context, req Request) (string, error) {
	temp := req.Temperature
	resp, err := a.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       a.model,
		MaxTokens:   int64(req.MaxTokens),
		System:      req.System,
		Messages:    []anthropic.Message{{Role: "user", Content: req.User}},
		Temperature: &temp,
	})
	if err != nil {
		if code := anthropic.StatusCode(err); code != 0 {
			return "", &StatusError{Provider: a.Name(), Code: code, Err: err}
		}
		return "", eris.Wrap(err, "llm: anthropic")
	}
	resp.Usage.LogCost(a.model, "summarize")
	return resp.Text(), nil
}
