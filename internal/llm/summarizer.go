package llm

import (
	"context"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/sells-group/disclosure-cli/internal/cleantext"
	"github.com/sells-group/disclosure-cli/internal/resilience"
)

const (
	// MinInput is the shortest raw text worth sending to a model.
	MinInput = 30
	// minAcceptOnLastAttempt is the length above which the primary's final
	// answer is returned even when it fails the quality check.
	minAcceptOnLastAttempt = 30
	// PromptChars caps the document text placed in the prompt.
	PromptChars = 2000
)

// Config controls the summarization protocol.
type Config struct {
	MaxTokens     int
	Temperature   float64
	Attempts      int
	RetryWait     time.Duration
	RateLimitWait time.Duration
}

// DefaultConfig returns the production protocol: three primary attempts,
// 3s after a rejected answer and 20s after a rate limit.
func DefaultConfig() Config {
	return Config{
		MaxTokens:     200,
		Temperature:   0.1,
		Attempts:      3,
		RetryWait:     3 * time.Second,
		RateLimitWait: 20 * time.Second,
	}
}

// Summarizer runs the primary provider with retries and falls back to a
// single secondary call.
type Summarizer struct {
	primary   Provider
	secondary Provider
	cfg       Config
	breakers  *resilience.ServiceBreakers
}

// NewSummarizer creates a Summarizer. Either provider may be nil. A nil
// breakers registry gets a default one.
func NewSummarizer(primary, secondary Provider, cfg Config, breakers *resilience.ServiceBreakers) *Summarizer {
	if cfg.Attempts <= 0 {
		cfg.Attempts = DefaultConfig().Attempts
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultConfig().MaxTokens
	}
	if breakers == nil {
		breakers = resilience.NewServiceBreakers(resilience.DefaultCircuitBreakerConfig())
	}
	return &Summarizer{primary: primary, secondary: secondary, cfg: cfg, breakers: breakers}
}

// Summarize returns a cleaned summary of text and true, or false when no
// provider produced one. Provider calls are not interrupted by ctx; the
// waits between them are.
func (s *Summarizer) Summarize(ctx context.Context, text, company, category string) (string, bool) {
	if utf8.RuneCountInString(text) < MinInput {
		return "", false
	}
	cleaned := cleantext.ForModel(text, PromptChars)
	if utf8.RuneCountInString(cleaned) < MinInput {
		return "", false
	}

	req := Request{
		System:      SystemPrompt,
		User:        UserPrompt(company, category, cleaned),
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	}
	log := zap.L().With(zap.String("company", company), zap.String("category", category))

	if s.primary != nil {
		summary, ok, err := s.runPrimary(ctx, req, log)
		if ok {
			return summary, true
		}
		if err != nil {
			return "", false
		}
	}

	if s.secondary == nil {
		return "", false
	}
	out, err := s.call(ctx, s.secondary, req)
	if err != nil {
		log.Warn("llm: secondary failed", zap.String("provider", s.secondary.Name()), zap.Error(err))
		return "", false
	}
	if summary := Clean(out); IsGood(summary) {
		return summary, true
	}
	log.Debug("llm: secondary output rejected", zap.String("provider", s.secondary.Name()))
	return "", false
}

// runPrimary returns a non-nil error only when ctx ended during a wait.
func (s *Summarizer) runPrimary(ctx context.Context, req Request, log *zap.Logger) (string, bool, error) {
	name := s.primary.Name()
	for attempt := 1; attempt <= s.cfg.Attempts; attempt++ {
		last := attempt == s.cfg.Attempts

		out, err := s.call(ctx, s.primary, req)
		switch {
		case IsRateLimited(err):
			log.Warn("llm: rate limited", zap.String("provider", name), zap.Int("attempt", attempt))
			if last {
				return "", false, nil
			}
			if werr := resilience.Sleep(ctx, s.cfg.RateLimitWait); werr != nil {
				return "", false, werr
			}
			continue
		case err != nil:
			log.Warn("llm: primary failed", zap.String("provider", name), zap.Int("attempt", attempt), zap.Error(err))
			return "", false, nil
		}

		summary := Clean(out)
		if IsGood(summary) {
			return summary, true, nil
		}
		if last {
			if utf8.RuneCountInString(summary) > minAcceptOnLastAttempt {
				return summary, true, nil
			}
			return "", false, nil
		}
		log.Debug("llm: output rejected, retrying", zap.String("provider", name), zap.Int("attempt", attempt))
		if werr := resilience.Sleep(ctx, s.cfg.RetryWait); werr != nil {
			return "", false, werr
		}
	}
	return "", false, nil
}

// call runs one provider request through its breaker. A rate-limited reply
// shows the provider is up, so it is reported to the breaker as a success and
// only the caller sees the 429.
func (s *Summarizer) call(ctx context.Context, p Provider, req Request) (string, error) {
	var limited error
	out, err := resilience.ExecuteVal(context.WithoutCancel(ctx), s.breakers.Get(p.Name()), func(ctx context.Context) (string, error) {
		out, err := p.Complete(ctx, req)
		if IsRateLimited(err) {
			limited = err
			return "", nil
		}
		return out, err
	})
	if limited != nil {
		return "", limited
	}
	return out, err
}
