package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string         `toml:"environment" validate:"omitempty,oneof=development production"`
	Logging     LoggingConfig  `toml:"logging"`
	Storage     StorageConfig  `toml:"storage"`
	Search      SearchConfig   `toml:"search"`
	Gemini      GeminiConfig   `toml:"gemini"`
	Claude      ClaudeConfig   `toml:"claude"`
	LLM         LLMConfig      `toml:"llm"`
	Pipeline    PipelineConfig `toml:"pipeline"`
	Watch       WatchConfig    `toml:"watch"`
}

type LoggingConfig struct {
	Level  string   `toml:"level" validate:"omitempty,oneof=debug info warn error"`
	Output []string `toml:"output"` // "stdout", "file"
}

type StorageConfig struct {
	// Driver selects the RunRepository backing store.
	Driver string       `toml:"driver" validate:"omitempty,oneof=memory badger"`
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`
	ResetOnStartup bool   `toml:"reset_on_startup"`
}

// SearchConfig configures the external news-search collaborator.
type SearchConfig struct {
	APIKey         string        `toml:"api_key"`
	BaseURL        string        `toml:"base_url"`
	MaxResults     int           `toml:"max_results" validate:"omitempty,min=1,max=50"`
	RequestTimeout time.Duration `toml:"request_timeout"`
}

type GeminiConfig struct {
	// APIKey serves the ingestion and precedent-research pool.
	APIKey string `toml:"api_key"`
	// APIKeyAlt serves the risk-quantifier pool. Stages that run
	// concurrently must not share a quota, so they get separate keys.
	APIKeyAlt string `toml:"api_key_alt"`
	Model     string `toml:"model"`
}

type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens"`
	Temperature float32 `toml:"temperature"`
}

type LLMConfig struct {
	DefaultProvider string        `toml:"default_provider" validate:"omitempty,oneof=gemini claude"`
	MaxRetries      int           `toml:"max_retries" validate:"omitempty,min=0,max=10"`
	RequestTimeout  time.Duration `toml:"request_timeout"`
	// RequestsPerMinute bounds each credential pool's call rate.
	RequestsPerMinute int `toml:"requests_per_minute" validate:"omitempty,min=1"`
}

// PipelineConfig tunes the stage orchestration.
type PipelineConfig struct {
	// WorkerCount bounds per-item provider fan-out within a stage.
	WorkerCount int `toml:"worker_count" validate:"omitempty,min=1,max=32"`
	// MaxGroupSize caps how many signals one topic group holds.
	MaxGroupSize int `toml:"max_group_size" validate:"omitempty,min=1"`
	// NoiseBlacklist drops search results whose title contains any of
	// these terms before a provider call is spent on them.
	NoiseBlacklist []string `toml:"noise_blacklist"`
	// Aliases maps a company name to alternate names that count as a
	// title reference during pre-filtering.
	Aliases map[string][]string `toml:"aliases"`
}

// WatchConfig configures scheduled re-scans of monitored companies.
type WatchConfig struct {
	Enabled   bool     `toml:"enabled"`
	Schedule  string   `toml:"schedule"` // cron expression
	Companies []string `toml:"companies"`
}

// DefaultConfig returns the baseline configuration before file and
// environment overrides are applied.
func DefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
		Storage: StorageConfig{
			Driver: "memory",
			Badger: BadgerConfig{Path: "./data/aegis"},
		},
		Search: SearchConfig{
			BaseURL:        "https://api.tavily.com",
			MaxResults:     10,
			RequestTimeout: 30 * time.Second,
		},
		Gemini: GeminiConfig{Model: "gemini-2.0-flash"},
		Claude: ClaudeConfig{
			Model:     "claude-sonnet-4-20250514",
			MaxTokens: 4096,
		},
		LLM: LLMConfig{
			DefaultProvider:   "gemini",
			MaxRetries:        3,
			RequestTimeout:    60 * time.Second,
			RequestsPerMinute: 30,
		},
		Pipeline: PipelineConfig{
			WorkerCount:  5,
			MaxGroupSize: 5,
			NoiseBlacklist: []string{
				"stock forecast", "price target", "horoscope", "sponsored",
			},
		},
		Watch: WatchConfig{
			Schedule: "0 */6 * * *",
		},
	}
}

// LoadFromFile loads configuration with precedence:
// defaults -> TOML file -> environment variables.
func LoadFromFile(path string) (*Config, error) {
	config := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := validator.New().Struct(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// applyEnvOverrides applies environment variables over file values.
// Credentials are usually supplied this way rather than in the file.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("AEGIS_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv("TAVILY_API_KEY"); v != "" {
		config.Search.APIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		config.Gemini.APIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY_ALT"); v != "" {
		config.Gemini.APIKeyAlt = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		config.Claude.APIKey = v
	}
	if v := os.Getenv("AEGIS_STORAGE_DRIVER"); v != "" {
		config.Storage.Driver = v
	}
	if v := os.Getenv("AEGIS_WORKER_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.Pipeline.WorkerCount = n
		}
	}
}
