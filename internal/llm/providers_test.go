package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/disclosure-cli/pkg/anthropic"
)

var testReq = Request{System: "sys", User: "Company: ACME\nCategory: X", MaxTokens: 200, Temperature: 0.1}

func TestGroq_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer gsk-test", r.Header.Get("Authorization"))

		var body struct {
			Model     string `json:"model"`
			MaxTokens int    `json:"max_tokens"`
			Messages  []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, DefaultGroqModel, body.Model)
		assert.Equal(t, 200, body.MaxTokens)
		if assert.Len(t, body.Messages, 2) {
			assert.Equal(t, "system", body.Messages[0].Role)
			assert.Equal(t, "sys", body.Messages[0].Content)
			assert.Equal(t, "user", body.Messages[1].Role)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"ACME declared a dividend."},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	g := NewGroq("gsk-test", "", srv.URL, 5*time.Second)
	assert.Equal(t, "groq", g.Name())

	got, err := g.Complete(context.Background(), testReq)
	require.NoError(t, err)
	assert.Equal(t, "ACME declared a dividend.", got)
}

func TestGroq_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"Rate limit reached","type":"tokens"}}`))
	}))
	defer srv.Close()

	_, err := NewGroq("k", "m", srv.URL, 5*time.Second).Complete(context.Background(), testReq)
	require.Error(t, err)
	assert.True(t, IsRateLimited(err))
}

func TestGroq_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","choices":[]}`))
	}))
	defer srv.Close()

	_, err := NewGroq("k", "m", srv.URL, 5*time.Second).Complete(context.Background(), testReq)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestGemini_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/models/"+DefaultGeminiModel+":generateContent"), r.URL.Path)

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		raw, _ := json.Marshal(body)
		assert.Contains(t, string(raw), `sys\n\nCompany: ACME`)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"ACME declared a dividend."}]}}]}`))
	}))
	defer srv.Close()

	g, err := NewGemini(context.Background(), "AIza-test", "", srv.URL, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "gemini", g.Name())

	got, err := g.Complete(context.Background(), testReq)
	require.NoError(t, err)
	assert.Equal(t, "ACME declared a dividend.", got)
}

func TestGemini_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429,"message":"quota exceeded","status":"RESOURCE_EXHAUSTED"}}`))
	}))
	defer srv.Close()

	g, err := NewGemini(context.Background(), "k", "m", srv.URL, 5*time.Second)
	require.NoError(t, err)

	_, err = g.Complete(context.Background(), testReq)
	require.Error(t, err)
	assert.True(t, IsRateLimited(err))
}

type fakeAnthropic struct {
	req  anthropic.MessageRequest
	resp *anthropic.MessageResponse
	err  error
}

func (f *fakeAnthropic) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	f.req = req
	return f.resp, f.err
}

func TestAnthropic_Complete(t *testing.T) {
	fake := &fakeAnthropic{resp: &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: "ACME declared a dividend."}},
		Usage:   anthropic.TokenUsage{InputTokens: 300, OutputTokens: 40},
	}}
	a := NewAnthropic(fake, "")
	assert.Equal(t, "anthropic", a.Name())

	got, err := a.Complete(context.Background(), testReq)
	require.NoError(t, err)
	assert.Equal(t, "ACME declared a dividend.", got)

	assert.Equal(t, DefaultAnthropicModel, fake.req.Model)
	assert.Equal(t, int64(200), fake.req.MaxTokens)
	assert.Equal(t, "sys", fake.req.System)
	require.Len(t, fake.req.Messages, 1)
	assert.Equal(t, "user", fake.req.Messages[0].Role)
	require.NotNil(t, fake.req.Temperature)
	assert.InDelta(t, 0.1, *fake.req.Temperature, 1e-9)
}

func TestAnthropic_Error(t *testing.T) {
	a := NewAnthropic(&fakeAnthropic{err: errors.New("connection refused")}, "m")

	_, err := a.Complete(context.Background(), testReq)
	require.Error(t, err)
	assert.False(t, IsRateLimited(err))
	assert.Contains(t, err.Error(), "llm: anthropic")
}

func TestCombined(t *testing.T) {
	assert.Equal(t, "u", Combined(Request{User: "u"}))
	assert.Equal(t, "s\n\nu", Combined(Request{System: "s", User: "u"}))
}
