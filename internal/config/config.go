package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // Asia/Colombo on hosts without zoneinfo

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Source     SourceConfig     `yaml:"source" mapstructure:"source"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Groq       ProviderConfig   `yaml:"groq" mapstructure:"groq"`
	Gemini     ProviderConfig   `yaml:"gemini" mapstructure:"gemini"`
	Anthropic  ProviderConfig   `yaml:"anthropic" mapstructure:"anthropic"`
	LLM        LLMConfig        `yaml:"llm" mapstructure:"llm"`
	OCR        OCRConfig        `yaml:"ocr" mapstructure:"ocr"`
	Tracker    TrackerConfig    `yaml:"tracker" mapstructure:"tracker"`
	Retry      RetryConfig      `yaml:"retry" mapstructure:"retry"`
	Circuit    CircuitConfig    `yaml:"circuit" mapstructure:"circuit"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// SourceConfig configures the CSE disclosure API client.
type SourceConfig struct {
	BaseURL           string `yaml:"base_url" mapstructure:"base_url"`
	MaxAnnouncements  int    `yaml:"max_announcements" mapstructure:"max_announcements"`
	RequestIntervalMs int    `yaml:"request_interval_ms" mapstructure:"request_interval_ms"`
	TimeoutSecs       int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// StoreConfig selects and configures the row store.
type StoreConfig struct {
	Driver      string       `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string       `yaml:"database_url" mapstructure:"database_url"`
	XLSXPath    string       `yaml:"xlsx_path" mapstructure:"xlsx_path"`
	Sheets      SheetsConfig `yaml:"sheets" mapstructure:"sheets"`
}

// SheetsConfig configures the Google Sheets backend. SheetName also names
// the worksheet of the XLSX backend.
type SheetsConfig struct {
	SpreadsheetID   string `yaml:"spreadsheet_id" mapstructure:"spreadsheet_id"`
	SheetName       string `yaml:"sheet_name" mapstructure:"sheet_name"`
	CredentialsFile string `yaml:"credentials_file" mapstructure:"credentials_file"`
	CredentialsJSON string `yaml:"credentials_json" mapstructure:"credentials_json"`
}

// ProviderConfig configures one hosted language model.
type ProviderConfig struct {
	APIKey      string `yaml:"api_key" mapstructure:"api_key"`
	Model       string `yaml:"model" mapstructure:"model"`
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// LLMConfig configures the summarization protocol.
type LLMConfig struct {
	Primary           string  `yaml:"primary" mapstructure:"primary"`
	Secondary         string  `yaml:"secondary" mapstructure:"secondary"`
	MaxTokens         int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature       float64 `yaml:"temperature" mapstructure:"temperature"`
	Attempts          int     `yaml:"attempts" mapstructure:"attempts"`
	RetryWaitSecs     int     `yaml:"retry_wait_secs" mapstructure:"retry_wait_secs"`
	RateLimitWaitSecs int     `yaml:"rate_limit_wait_secs" mapstructure:"rate_limit_wait_secs"`
}

// OCRConfig configures document text extraction.
type OCRConfig struct {
	Provider      string `yaml:"provider" mapstructure:"provider"` // "tesseract", "mistral" or "none"
	PdfToTextPath string `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
	PdfToPPMPath  string `yaml:"pdftoppm_path" mapstructure:"pdftoppm_path"`
	TesseractPath string `yaml:"tesseract_path" mapstructure:"tesseract_path"`
	DPI           int    `yaml:"dpi" mapstructure:"dpi"`
	MaxPages      int    `yaml:"max_pages" mapstructure:"max_pages"`
	MistralKey    string `yaml:"mistral_api_key" mapstructure:"mistral_api_key"`
	MistralModel  string `yaml:"mistral_model" mapstructure:"mistral_model"`
}

// TrackerConfig configures the ingestion run.
type TrackerConfig struct {
	ItemDelaySecs int    `yaml:"item_delay_secs" mapstructure:"item_delay_secs"`
	Timezone      string `yaml:"timezone" mapstructure:"timezone"`
}

// RetryConfig configures retries of the announcement listing.
type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
}

// CircuitConfig configures the per-provider circuit breakers.
type CircuitConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// ServerConfig configures the control server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// MonitoringConfig configures run alerts.
type MonitoringConfig struct {
	WebhookURL                  string `yaml:"webhook_url" mapstructure:"webhook_url"`
	PersistenceFailureThreshold int    `yaml:"persistence_failure_threshold" mapstructure:"persistence_failure_threshold"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("DISCLOSURE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Secrets default to "" so their env vars are bound.
	v.SetDefault("source.base_url", "https://www.cse.lk/api/")
	v.SetDefault("source.max_announcements", 100)
	v.SetDefault("source.request_interval_ms", 300)
	v.SetDefault("source.timeout_secs", 20)
	v.SetDefault("store.driver", "sheets")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.xlsx_path", "disclosures.xlsx")
	v.SetDefault("store.sheets.spreadsheet_id", "")
	v.SetDefault("store.sheets.sheet_name", "Disclosures")
	v.SetDefault("store.sheets.credentials_file", "")
	v.SetDefault("store.sheets.credentials_json", "")
	v.SetDefault("groq.api_key", "")
	v.SetDefault("groq.model", "llama-3.3-70b-versatile")
	v.SetDefault("groq.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("groq.timeout_secs", 25)
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model", "gemini-2.0-flash-lite")
	v.SetDefault("gemini.base_url", "")
	v.SetDefault("gemini.timeout_secs", 25)
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.base_url", "")
	v.SetDefault("anthropic.timeout_secs", 25)
	v.SetDefault("llm.primary", "groq")
	v.SetDefault("llm.secondary", "gemini")
	v.SetDefault("llm.max_tokens", 200)
	v.SetDefault("llm.temperature", 0.1)
	v.SetDefault("llm.attempts", 3)
	v.SetDefault("llm.retry_wait_secs", 3)
	v.SetDefault("llm.rate_limit_wait_secs", 20)
	v.SetDefault("ocr.provider", "tesseract")
	v.SetDefault("ocr.pdftotext_path", "pdftotext")
	v.SetDefault("ocr.pdftoppm_path", "pdftoppm")
	v.SetDefault("ocr.tesseract_path", "tesseract")
	v.SetDefault("ocr.dpi", 200)
	v.SetDefault("ocr.max_pages", 3)
	v.SetDefault("ocr.mistral_api_key", "")
	v.SetDefault("ocr.mistral_model", "mistral-ocr-latest")
	v.SetDefault("tracker.item_delay_secs", 6)
	v.SetDefault("tracker.timezone", "Asia/Colombo")
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff_ms", 500)
	v.SetDefault("retry.max_backoff_ms", 5000)
	v.SetDefault("circuit.failure_threshold", 5)
	v.SetDefault("circuit.reset_timeout_secs", 60)
	v.SetDefault("server.port", 8080)
	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("monitoring.persistence_failure_threshold", 1)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validation modes.
const (
	ModeRun    = "run"    // full pass: source, store, providers
	ModeServe  = "serve"  // same requirements as run
	ModeExport = "export" // store only
)

// Validate checks that the settings required by mode are present.
func (c *Config) Validate(mode string) error {
	var missing []string

	switch c.Store.Driver {
	case "sheets":
		if c.Store.Sheets.SpreadsheetID == "" {
			missing = append(missing, "store.sheets.spreadsheet_id")
		}
		if c.Store.Sheets.CredentialsFile == "" && c.Store.Sheets.CredentialsJSON == "" {
			missing = append(missing, "store.sheets.credentials_file or store.sheets.credentials_json")
		}
	case "xlsx":
		if c.Store.XLSXPath == "" {
			missing = append(missing, "store.xlsx_path")
		}
	case "sqlite", "postgres":
		if c.Store.DatabaseURL == "" {
			missing = append(missing, "store.database_url")
		}
	default:
		return eris.Errorf("config: unknown store.driver %q", c.Store.Driver)
	}

	if mode == ModeRun || mode == ModeServe {
		if c.Source.BaseURL == "" {
			missing = append(missing, "source.base_url")
		}
		for _, role := range []struct{ key, name string }{
			{"llm.primary", c.LLM.Primary},
			{"llm.secondary", c.LLM.Secondary},
		} {
			p, ok := c.provider(role.name)
			if !ok {
				return eris.Errorf("config: unknown %s %q", role.key, role.name)
			}
			if p != nil && p.APIKey == "" {
				missing = append(missing, role.name+".api_key")
			}
		}
		if c.LLM.Primary != "" && c.LLM.Primary != "none" && c.LLM.Primary == c.LLM.Secondary {
			return eris.Errorf("config: llm.primary and llm.secondary are both %q", c.LLM.Primary)
		}
		if _, err := c.Tracker.Location(); err != nil {
			return err
		}
	}

	if len(missing) > 0 {
		return eris.Errorf("config: missing required fields for %s: %s", mode, strings.Join(missing, ", "))
	}
	return nil
}

// Provider returns the settings for a named provider. It returns nil, true
// for "" and "none", and false for unknown names.
func (c *Config) provider(name string) (*ProviderConfig, bool) {
	switch name {
	case "", "none":
		return nil, true
	case "groq":
		return &c.Groq, true
	case "gemini":
		return &c.Gemini, true
	case "anthropic":
		return &c.Anthropic, true
	default:
		return nil, false
	}
}

// Location loads the configured timezone. Empty means UTC.
func (t TrackerConfig) Location() (*time.Location, error) {
	if t.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(t.Timezone)
	if err != nil {
		return nil, eris.Wrapf(err, "config: tracker.timezone %q", t.Timezone)
	}
	return loc, nil
}

// ItemDelay is the pause between processed items.
func (t TrackerConfig) ItemDelay() time.Duration {
	return time.Duration(t.ItemDelaySecs) * time.Second
}

// RequestInterval is the minimum spacing between source requests.
func (s SourceConfig) RequestInterval() time.Duration {
	return time.Duration(s.RequestIntervalMs) * time.Millisecond
}

// Timeout is the per-request timeout.
func (s SourceConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSecs) * time.Second
}

// Timeout is the per-request timeout.
func (p ProviderConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSecs) * time.Second
}

// Redacted returns a copy with secrets masked, for display.
func (c Config) Redacted() Config {
	mask := func(s *string) {
		if *s != "" {
			*s = fmt.Sprintf("***%d chars***", len(*s))
		}
	}
	mask(&c.Groq.APIKey)
	mask(&c.Gemini.APIKey)
	mask(&c.Anthropic.APIKey)
	mask(&c.OCR.MistralKey)
	mask(&c.Store.Sheets.CredentialsJSON)
	mask(&c.Monitoring.WebhookURL)
	if strings.Contains(c.Store.DatabaseURL, "@") {
		mask(&c.Store.DatabaseURL)
	}
	return c
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
