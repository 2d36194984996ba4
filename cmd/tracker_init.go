package main

import (
	"context"
	"net/http"
	"time"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/disclosure-cli/internal/config"
	"github.com/sells-group/disclosure-cli/internal/llm"
	"github.com/sells-group/disclosure-cli/internal/monitoring"
	"github.com/sells-group/disclosure-cli/internal/ocr"
	"github.com/sells-group/disclosure-cli/internal/resilience"
	"github.com/sells-group/disclosure-cli/internal/resolve"
	"github.com/sells-group/disclosure-cli/internal/store"
	"github.com/sells-group/disclosure-cli/internal/tracker"
	anthropicpkg "github.com/sells-group/disclosure-cli/pkg/anthropic"
	"github.com/sells-group/disclosure-cli/pkg/cse"
)

// trackerEnv holds the store, breakers and tracker needed by the run,
// backfill and serve commands.
type trackerEnv struct {
	Store    store.Store
	Tracker  *tracker.Tracker
	Breakers *resilience.ServiceBreakers
	Alerter  *monitoring.Alerter
	Metrics  *monitoring.Metrics
	Registry *prometheus.Registry
}

// notify records a finished run and sends its alerts.
func (te *trackerEnv) notify(ctx context.Context, report *tracker.RunReport) {
	if te.Metrics != nil {
		te.Metrics.Observe(report)
	}
	if te.Alerter != nil {
		te.Alerter.Notify(context.WithoutCancel(ctx), report, te.Breakers.States())
	}
}

// Close releases resources held by the environment.
func (te *trackerEnv) Close() {
	if te.Store != nil {
		_ = te.Store.Close()
	}
}

// initTracker validates the configuration for mode and wires the source
// client, extractor, summarizer, resolver and store. Callers should defer
// env.Close().
func initTracker(ctx context.Context, mode string) (*trackerEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}
	loc, err := cfg.Tracker.Location()
	if err != nil {
		return nil, err
	}

	source := cse.NewClient(
		cse.WithBaseURL(cfg.Source.BaseURL),
		cse.WithLimit(cfg.Source.MaxAnnouncements),
		cse.WithRequestInterval(cfg.Source.RequestInterval()),
		cse.WithHTTPClient(newHTTPClient(cfg.Source.Timeout())),
	)

	extractor, err := ocr.NewFromConfig(cfg.OCR)
	if err != nil {
		return nil, err
	}

	breakerCfg := resilience.FromCircuitConfig(cfg.Circuit.FailureThreshold,
		time.Duration(cfg.Circuit.ResetTimeoutSecs)*time.Second)
	breakerCfg.OnStateChange = resilience.LogStateChange
	breakers := resilience.NewServiceBreakers(breakerCfg)

	primary, err := newProvider(ctx, cfg, cfg.LLM.Primary)
	if err != nil {
		return nil, err
	}
	secondary, err := newProvider(ctx, cfg, cfg.LLM.Secondary)
	if err != nil {
		return nil, err
	}
	summarizer := llm.NewSummarizer(primary, secondary, llm.Config{
		MaxTokens:     cfg.LLM.MaxTokens,
		Temperature:   cfg.LLM.Temperature,
		Attempts:      cfg.LLM.Attempts,
		RetryWait:     time.Duration(cfg.LLM.RetryWaitSecs) * time.Second,
		RateLimitWait: time.Duration(cfg.LLM.RateLimitWaitSecs) * time.Second,
	}, breakers)

	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}

	tr := tracker.New(source, st, resolve.New(source, extractor, summarizer), tracker.Options{
		ItemDelay: cfg.Tracker.ItemDelay(),
		Location:  loc,
		ListRetry: resilience.FromRetryConfig(cfg.Retry.MaxAttempts,
			time.Duration(cfg.Retry.InitialBackoffMs)*time.Millisecond,
			time.Duration(cfg.Retry.MaxBackoffMs)*time.Millisecond),
	})

	zap.L().Info("tracker initialized",
		zap.String("store", cfg.Store.Driver),
		zap.String("primary", cfg.LLM.Primary),
		zap.String("secondary", cfg.LLM.Secondary),
		zap.String("ocr", cfg.OCR.Provider),
	)
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return &trackerEnv{
		Store:    st,
		Tracker:  tr,
		Breakers: breakers,
		Alerter:  monitoring.NewAlerter(cfg.Monitoring),
		Metrics:  monitoring.NewMetrics(reg),
		Registry: reg,
	}, nil
}

// newProvider builds the named language-model provider. "" and "none"
// yield a nil provider.
func newProvider(ctx context.Context, c *config.Config, name string) (llm.Provider, error) {
	switch name {
	case "", "none":
		return nil, nil
	case "groq":
		return llm.NewGroq(c.Groq.APIKey, c.Groq.Model, c.Groq.BaseURL, c.Groq.Timeout()), nil
	case "gemini":
		g, err := llm.NewGemini(ctx, c.Gemini.APIKey, c.Gemini.Model, c.Gemini.BaseURL, c.Gemini.Timeout())
		if err != nil {
			return nil, eris.Wrap(err, "init gemini")
		}
		return g, nil
	case "anthropic":
		opts := []option.RequestOption{option.WithRequestTimeout(c.Anthropic.Timeout())}
		if c.Anthropic.BaseURL != "" {
			opts = append(opts, option.WithBaseURL(c.Anthropic.BaseURL))
		}
		return llm.NewAnthropic(anthropicpkg.NewClient(c.Anthropic.APIKey, opts...), c.Anthropic.Model), nil
	default:
		return nil, eris.Errorf("unknown provider %q", name)
	}
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}
