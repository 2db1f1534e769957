package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Logging     LoggingConfig   `toml:"logging"`
	Providers   ProvidersConfig `toml:"providers"`
	LLM         LLMConfig       `toml:"llm"`
	Research    ResearchConfig  `toml:"research"`
	Queue       QueueConfig     `toml:"queue"`
	Scheduler   SchedulerConfig `toml:"scheduler"`
	Universe    UniverseConfig  `toml:"universe"`
}

type ServerConfig struct {
	Port            int      `toml:"port"`
	Host            string   `toml:"host"`
	ReadTimeout     string   `toml:"read_timeout"`
	WriteTimeout    string   `toml:"write_timeout"` // PDF rendering of a long report needs headroom
	ShutdownTimeout string   `toml:"shutdown_timeout"`
	CORSOrigins     []string `toml:"cors_origins"` // "*" allows any origin
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup
	InMemory       bool   `toml:"in_memory"`        // Keep everything in RAM; Path is ignored
	GCInterval     string `toml:"gc_interval"`      // Value log GC period; empty or "0" disables
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // default "15:04:05"
}

// ProviderConfig holds credentials and allowance for one market-data API.
// Zero limits fall back to the provider's published free-tier allowance.
type ProviderConfig struct {
	APIKey            string `toml:"api_key"`
	BaseURL           string `toml:"base_url"`
	Timeout           string `toml:"timeout"` // duration string, e.g. "30s"
	RequestsPerMinute int    `toml:"requests_per_minute"`
	RequestsPerDay    int    `toml:"requests_per_day"`
}

type ProvidersConfig struct {
	AlphaVantage ProviderConfig `toml:"alphavantage"`
	FMP          ProviderConfig `toml:"fmp"`
	NewsAPI      ProviderConfig `toml:"newsapi"`
}

// LLMProvider represents the AI provider type
type LLMProvider string

const (
	LLMProviderOpenAI LLMProvider = "openai"
	LLMProviderClaude LLMProvider = "claude"
	LLMProviderGemini LLMProvider = "gemini"
)

// ModelConfig holds credentials for one LLM backend.
type ModelConfig struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
	Model   string `toml:"model"`
}

// LLMConfig configures report generation.
type LLMConfig struct {
	Provider    LLMProvider `toml:"provider"`
	Temperature float64     `toml:"temperature"`
	MaxTokens   int         `toml:"max_tokens"`
	MaxAttempts int         `toml:"max_attempts"`
	Timeout     string      `toml:"timeout"`
	OpenAI      ModelConfig `toml:"openai"`
	Claude      ModelConfig `toml:"claude"`
	Gemini      ModelConfig `toml:"gemini"`
}

// ResearchConfig configures the optional web-research pass before
// generation. It speaks the OpenAI chat completions dialect.
type ResearchConfig struct {
	Enabled     bool    `toml:"enabled"`
	APIKey      string  `toml:"api_key"`
	BaseURL     string  `toml:"base_url"`
	Model       string  `toml:"model"`
	Temperature float64 `toml:"temperature"`
	MaxTokens   int     `toml:"max_tokens"`
}

type QueueConfig struct {
	PollInterval  string `toml:"poll_interval"`   // e.g. "5s"
	Concurrency   int    `toml:"concurrency"`     // report workers
	JobsPerMinute int    `toml:"jobs_per_minute"` // report generation throughput
	MaxAttempts   int    `toml:"max_attempts"`
	ReportTTL     string `toml:"report_ttl"` // how long a report stays fresh, e.g. "168h"
}

type SchedulerConfig struct {
	Enabled               bool   `toml:"enabled"`
	WeeklyRefresh         string `toml:"weekly_refresh"` // cron, 5 fields
	QuoteSync             string `toml:"quote_sync"`     // cron, 5 fields
	QuoteBatchesPerMinute int    `toml:"quote_batches_per_minute"`
	QuoteBatchSize        int    `toml:"quote_batch_size"`
}

// Universe sources.
const (
	UniverseSP100 = "sp100"
	UniverseSP500 = "sp500"
	UniverseFile  = "file"
)

type UniverseConfig struct {
	Source string `toml:"source"` // sp100 | sp500 | file
	File   string `toml:"file"`   // YAML ticker list when source = file
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port:            8080,
			Host:            "localhost",
			ReadTimeout:     "15s",
			WriteTimeout:    "30s",
			ShutdownTimeout: "10s",
			CORSOrigins:     []string{"*"},
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path:       "./data",
				GCInterval: "10m",
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout", "file"},
			TimeFormat: "15:04:05",
		},
		Providers: ProvidersConfig{
			AlphaVantage: ProviderConfig{Timeout: "30s"},
			FMP:          ProviderConfig{Timeout: "30s"},
			NewsAPI:      ProviderConfig{Timeout: "30s"},
		},
		LLM: LLMConfig{
			Provider:    LLMProviderOpenAI,
			Temperature: 0.7,
			MaxTokens:   4000,
			MaxAttempts: 3,
			Timeout:     "2m",
			OpenAI: ModelConfig{
				BaseURL: "https://api.openai.com/v1",
				Model:   "gpt-4o",
			},
			Claude: ModelConfig{
				Model: "claude-sonnet-4-20250514",
			},
			Gemini: ModelConfig{
				Model: "gemini-2.5-flash",
			},
		},
		Research: ResearchConfig{
			Enabled:     false,
			BaseURL:     "https://api.perplexity.ai",
			Model:       "sonar-pro",
			Temperature: 0.3,
			MaxTokens:   2000,
		},
		Queue: QueueConfig{
			PollInterval:  "5s",
			Concurrency:   2,
			JobsPerMinute: 10,
			MaxAttempts:   3,
			ReportTTL:     "168h",
		},
		Scheduler: SchedulerConfig{
			Enabled:               true,
			WeeklyRefresh:         "0 22 * * 0",         // Sunday 22:00
			QuoteSync:             "*/15 14-21 * * 1-5", // US market hours (UTC)
			QuoteBatchesPerMinute: 5,
			QuoteBatchSize:        50,
		},
		Universe: UniverseConfig{
			Source: UniverseSP100,
		},
	}
}

// LoadFromFiles loads configuration with priority: defaults -> file1 -> file2
// -> ... -> .env -> environment. Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	// A missing .env is normal; variables already set in the process win.
	_ = godotenv.Load()

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("THESIS_ENV"); env != "" {
		config.Environment = env
	}

	if port := os.Getenv("THESIS_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("THESIS_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	if path := os.Getenv("THESIS_BADGER_PATH"); path != "" {
		config.Storage.Badger.Path = path
	}

	if level := os.Getenv("THESIS_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("THESIS_LOG_OUTPUT"); output != "" {
		var outputs []string
		for _, o := range strings.Split(output, ",") {
			if o = strings.TrimSpace(o); o != "" {
				outputs = append(outputs, o)
			}
		}
		config.Logging.Output = outputs
	}

	if provider := os.Getenv("THESIS_LLM_PROVIDER"); provider != "" {
		config.LLM.Provider = LLMProvider(strings.ToLower(provider))
	}
	if model := os.Getenv("THESIS_LLM_MODEL"); model != "" {
		switch config.LLM.Provider {
		case LLMProviderClaude:
			config.LLM.Claude.Model = model
		case LLMProviderGemini:
			config.LLM.Gemini.Model = model
		default:
			config.LLM.OpenAI.Model = model
		}
	}

	if enabled := os.Getenv("THESIS_RESEARCH_ENABLED"); enabled != "" {
		if b, err := strconv.ParseBool(enabled); err == nil {
			config.Research.Enabled = b
		}
	}

	if concurrency := os.Getenv("THESIS_QUEUE_CONCURRENCY"); concurrency != "" {
		if c, err := strconv.Atoi(concurrency); err == nil {
			config.Queue.Concurrency = c
		}
	}

	if source := os.Getenv("THESIS_UNIVERSE_SOURCE"); source != "" {
		config.Universe.Source = strings.ToLower(source)
	}
	if file := os.Getenv("THESIS_UNIVERSE_FILE"); file != "" {
		config.Universe.File = file
	}
}

// Validate checks values that would otherwise fail later at runtime.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case LLMProviderOpenAI, LLMProviderClaude, LLMProviderGemini:
	default:
		return fmt.Errorf("invalid llm.provider '%s': must be openai, claude or gemini", c.LLM.Provider)
	}

	switch c.Universe.Source {
	case UniverseSP100, UniverseSP500:
	case UniverseFile:
		if c.Universe.File == "" {
			return fmt.Errorf("universe.file is required when universe.source is 'file'")
		}
	default:
		return fmt.Errorf("invalid universe.source '%s': must be sp100, sp500 or file", c.Universe.Source)
	}

	if c.Queue.Concurrency < 1 {
		return fmt.Errorf("queue.concurrency must be at least 1, got %d", c.Queue.Concurrency)
	}

	for name, d := range map[string]string{
		"queue.poll_interval": c.Queue.PollInterval,
		"queue.report_ttl":    c.Queue.ReportTTL,
		"llm.timeout":         c.LLM.Timeout,
	} {
		if _, err := time.ParseDuration(d); err != nil {
			return fmt.Errorf("invalid %s '%s': %w", name, d, err)
		}
	}

	if c.Scheduler.Enabled {
		if err := ValidateJobSchedule(c.Scheduler.WeeklyRefresh); err != nil {
			return fmt.Errorf("invalid scheduler.weekly_refresh: %w", err)
		}
		if c.Scheduler.QuoteSync != "" {
			if err := ValidateJobSchedule(c.Scheduler.QuoteSync); err != nil {
				return fmt.Errorf("invalid scheduler.quote_sync: %w", err)
			}
		}
	}

	return nil
}

// ParseDuration parses d, returning fallback when d is empty or invalid.
func ParseDuration(d string, fallback time.Duration) time.Duration {
	parsed, err := time.ParseDuration(d)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

// apiKeyEnv maps key names to environment variables, most specific first.
var apiKeyEnv = map[string][]string{
	"alphavantage_api_key": {"THESIS_ALPHAVANTAGE_API_KEY", "ALPHA_VANTAGE_API_KEY"},
	"fmp_api_key":          {"THESIS_FMP_API_KEY", "FMP_API_KEY"},
	"newsapi_api_key":      {"THESIS_NEWSAPI_API_KEY", "NEWS_API_KEY"},
	"openai_api_key":       {"THESIS_OPENAI_API_KEY", "OPENAI_API_KEY"},
	"anthropic_api_key":    {"THESIS_CLAUDE_API_KEY", "ANTHROPIC_API_KEY"},
	"gemini_api_key":       {"THESIS_GEMINI_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY"},
	"perplexity_api_key":   {"THESIS_PERPLEXITY_API_KEY", "PERPLEXITY_API_KEY"},
}

// ResolveAPIKey resolves an API key by name.
// Resolution order: environment variables -> config fallback -> error
func ResolveAPIKey(name string, configFallback string) (string, error) {
	for _, envVarName := range apiKeyEnv[name] {
		if envValue := os.Getenv(envVarName); envValue != "" {
			return envValue, nil
		}
	}

	if configFallback != "" {
		return configFallback, nil
	}

	return "", fmt.Errorf("API key '%s' not found in environment or config", name)
}

// ValidateJobSchedule validates a cron schedule expression and ensures minimum 5-minute interval
func ValidateJobSchedule(schedule string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}

	parts := strings.Fields(schedule)
	if len(parts) < 5 {
		return fmt.Errorf("invalid cron format: expected 5 fields")
	}

	minuteField := parts[0]

	if minuteField == "*" {
		return fmt.Errorf("schedule must have minimum 5-minute interval (every minute is not allowed)")
	}

	if strings.HasPrefix(minuteField, "*/") {
		interval, err := strconv.Atoi(strings.TrimPrefix(minuteField, "*/"))
		if err == nil && interval < 5 {
			return fmt.Errorf("schedule interval must be at least 5 minutes, got %d", interval)
		}
	}

	return nil
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
