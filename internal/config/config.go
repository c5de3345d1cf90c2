// Package config loads runtime settings from the environment and the
// engine tuning file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/deusflow/biobrief/internal/news"
)

const (
	defaultEngineConfigPath = "configs/engine.yaml"
	defaultFeedsConfigPath  = "configs/feeds.yaml"
)

type Config struct {
	// Telegram settings
	TelegramToken  string
	TelegramChatID string

	// Gemini settings
	GeminiAPIKey      string
	GeminiModel       string
	MaxGeminiRequests int // maximum Gemini requests per run (0 = unlimited)
	GeminiInterval    time.Duration

	// Feeds and window
	FeedsConfigPath string
	LookbackDays    int

	// Scraper settings
	ScrapeConcurrency int

	// Engine tuning; file values are merged over news.DefaultEngineConfig
	EngineConfigPath string
	Engine           news.EngineConfig

	// Output
	OutputDir   string
	BriefTitle  string
	ArchiveDSN  string
	Schedule    string
	HTTPMonitor bool
	HTTPAddr    string

	// App settings
	Debug          bool
	RequestTimeout time.Duration
	RetryAttempts  int
	RetryDelay     time.Duration
	CacheTTL       time.Duration
}

// Load reads the environment, then the engine file if it exists.
func Load() (*Config, error) {
	cfg := &Config{
		GeminiModel:       "gemini-1.5-flash",
		MaxGeminiRequests: 6,
		GeminiInterval:    4 * time.Second,
		FeedsConfigPath:   defaultFeedsConfigPath,
		LookbackDays:      7,
		ScrapeConcurrency: 4,
		EngineConfigPath:  defaultEngineConfigPath,
		Engine:            news.DefaultEngineConfig(),
		OutputDir:         "output",
		BriefTitle:        "Biotech Weekly",
		HTTPAddr:          ":8080",
		RequestTimeout:    30 * time.Second,
		RetryAttempts:     3,
		RetryDelay:        5 * time.Second,
		CacheTTL:          48 * time.Hour,
	}

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	cfg.TelegramChatID = os.Getenv("TELEGRAM_CHAT_ID")
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	cfg.ArchiveDSN = os.Getenv("ARCHIVE_DSN")
	cfg.Schedule = strings.TrimSpace(os.Getenv("SCHEDULE"))

	cfg.GeminiModel = getEnvOrDefault("GEMINI_MODEL", cfg.GeminiModel)
	cfg.FeedsConfigPath = getEnvOrDefault("FEEDS_CONFIG_PATH", cfg.FeedsConfigPath)
	cfg.EngineConfigPath = getEnvOrDefault("ENGINE_CONFIG_PATH", cfg.EngineConfigPath)
	cfg.OutputDir = getEnvOrDefault("OUTPUT_DIR", cfg.OutputDir)
	cfg.BriefTitle = getEnvOrDefault("BRIEF_TITLE", cfg.BriefTitle)
	cfg.HTTPAddr = getEnvOrDefault("HTTP_ADDR", cfg.HTTPAddr)

	cfg.MaxGeminiRequests = getEnvIntOrDefault("MAX_GEMINI_REQUESTS", cfg.MaxGeminiRequests)
	cfg.LookbackDays = getEnvIntOrDefault("LOOKBACK_DAYS", cfg.LookbackDays)
	cfg.ScrapeConcurrency = getEnvIntOrDefault("SCRAPE_CONCURRENCY", cfg.ScrapeConcurrency)
	cfg.RetryAttempts = getEnvIntOrDefault("RETRY_ATTEMPTS", cfg.RetryAttempts)

	cfg.GeminiInterval = getEnvDurationOrDefault("GEMINI_INTERVAL", cfg.GeminiInterval)
	cfg.RequestTimeout = getEnvDurationOrDefault("REQUEST_TIMEOUT", cfg.RequestTimeout)
	cfg.RetryDelay = getEnvDurationOrDefault("RETRY_DELAY", cfg.RetryDelay)
	cfg.CacheTTL = getEnvDurationOrDefault("CACHE_TTL", cfg.CacheTTL)

	if os.Getenv("DEBUG") == "true" {
		cfg.Debug = true
	}
	if os.Getenv("ENABLE_HTTP_MONITORING") == "true" {
		cfg.HTTPMonitor = true
	}

	if err := cfg.loadEngineFile(); err != nil {
		return nil, err
	}

	return cfg, cfg.Validate()
}

// loadEngineFile decodes the engine YAML on top of the defaults. A missing
// file at the default path is not an error; a missing file at an explicit
// path is.
func (c *Config) loadEngineFile() error {
	data, err := os.ReadFile(c.EngineConfigPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && c.EngineConfigPath == defaultEngineConfigPath {
			return nil
		}
		return fmt.Errorf("read engine config %s: %w", c.EngineConfigPath, err)
	}
	return c.MergeEngineYAML(data)
}

// MergeEngineYAML overlays YAML onto c.Engine. Scalars and keyword weights
// merge with the current values; a taxonomy in the file replaces the
// current one.
func (c *Config) MergeEngineYAML(data []byte) error {
	var peek struct {
		Taxonomy news.Taxonomy `yaml:"taxonomy"`
	}
	if err := yaml.Unmarshal(data, &peek); err != nil {
		return fmt.Errorf("parse engine config: %w", err)
	}
	if len(peek.Taxonomy) > 0 {
		c.Engine.Taxonomy = nil
	}
	if err := yaml.Unmarshal(data, &c.Engine); err != nil {
		return fmt.Errorf("parse engine config: %w", err)
	}
	return nil
}

// Window returns the lookback window ending at now.
func (c *Config) Window(now time.Time) (time.Time, time.Time) {
	return now.AddDate(0, 0, -c.LookbackDays), now
}

// GeminiEnabled reports whether article summaries can be requested.
func (c *Config) GeminiEnabled() bool {
	return c.GeminiAPIKey != ""
}

// TelegramEnabled reports whether delivery is configured.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != ""
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func (c *Config) Validate() error {
	if c.FeedsConfigPath == "" {
		return fmt.Errorf("FEEDS_CONFIG_PATH is required")
	}
	if c.LookbackDays <= 0 {
		return fmt.Errorf("LOOKBACK_DAYS must be positive, got %d", c.LookbackDays)
	}
	if c.MaxGeminiRequests < 0 {
		return fmt.Errorf("MAX_GEMINI_REQUESTS must not be negative")
	}
	if c.ScrapeConcurrency <= 0 {
		return fmt.Errorf("SCRAPE_CONCURRENCY must be positive")
	}
	if c.RetryAttempts <= 0 {
		return fmt.Errorf("RETRY_ATTEMPTS must be positive")
	}
	if (c.TelegramToken == "") != (c.TelegramChatID == "") {
		return fmt.Errorf("TELEGRAM_TOKEN and TELEGRAM_CHAT_ID must be set together")
	}
	if c.ArchiveDSN != "" && !strings.HasPrefix(c.ArchiveDSN, "postgres://") &&
		!strings.HasPrefix(c.ArchiveDSN, "postgresql://") && !strings.HasPrefix(c.ArchiveDSN, "sqlite:") {
		return fmt.Errorf("ARCHIVE_DSN must start with postgres:// or sqlite:")
	}
	if err := c.Engine.Validate(); err != nil {
		return fmt.Errorf("engine config: %w", err)
	}
	return nil
}
