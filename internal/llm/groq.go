package llm

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	openai "github.com/sashabaranov/go-openai"
)

const (
	// GroqBaseURL is Groq's OpenAI-compatible endpoint.
	GroqBaseURL = "https://api.groq.com/openai/v1"
	// DefaultGroqModel is used when no model is configured.
	DefaultGroqModel = "llama-3.3-70b-versatile"
)

// Groq calls Groq's chat completions API through the OpenAI client.
type Groq struct {
	client *openai.Client
	model  string
}

// NewGroq creates a Groq provider. Empty model and baseURL take the defaults.
func NewGroq(apiKey, model, baseURL string, timeout time.Duration) *Groq {
	if model == "" {
		model = DefaultGroqModel
	}
	if baseURL == "" {
		baseURL = GroqBaseURL
	}
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	cfg.HTTPClient = &http.Client{Timeout: timeout}
	return &Groq{client: openai.NewClientWithConfig(cfg), model: model}
}

// Name implements Provider.
func (g *Groq) Name() string { return "groq" }

// Complete implements Provider.
func (g *Groq) Complete(ctx context.Context, req Request) (string, error) {
	var messages []openai.ChatCompletionMessage
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.User})

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
	})
	if err != nil {
		return "", g.wrap(err)
	}
	if len(resp.Choices) == 0 {
		return "", eris.New("llm: groq: no choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}

func (g *Groq) wrap(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return &StatusError{Provider: g.Name(), Code: apiErr.HTTPStatusCode, Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return &StatusError{Provider: g.Name(), Code: reqErr.HTTPStatusCode, Err: err}
	}
	return eris.Wrap(err, "llm: groq: chat completion")
}
