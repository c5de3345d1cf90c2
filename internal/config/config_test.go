package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/deusflow/biobrief/internal/news"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"TELEGRAM_TOKEN", "TELEGRAM_CHAT_ID", "GEMINI_API_KEY", "ARCHIVE_DSN", "SCHEDULE",
		"FEEDS_CONFIG_PATH", "ENGINE_CONFIG_PATH", "OUTPUT_DIR", "LOOKBACK_DAYS",
		"MAX_GEMINI_REQUESTS", "REQUEST_TIMEOUT", "RETRY_ATTEMPTS", "DEBUG",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LookbackDays != 7 || cfg.OutputDir != "output" {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.GeminiEnabled() || cfg.TelegramEnabled() {
		t.Error("optional integrations should be off without credentials")
	}
	if cfg.Engine.Budget.TotalUnits != 600 {
		t.Errorf("engine budget = %+v", cfg.Engine.Budget)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOOKBACK_DAYS", "3")
	t.Setenv("REQUEST_TIMEOUT", "5s")
	t.Setenv("DEBUG", "true")
	t.Setenv("TELEGRAM_TOKEN", "tok")
	t.Setenv("TELEGRAM_CHAT_ID", "42")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LookbackDays != 3 || cfg.RequestTimeout != 5*time.Second || !cfg.Debug {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if !cfg.TelegramEnabled() {
		t.Error("telegram should be enabled")
	}

	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	start, end := cfg.Window(now)
	if !end.Equal(now) || !start.Equal(now.AddDate(0, 0, -3)) {
		t.Errorf("window = %v..%v", start, end)
	}
}

func TestLoadEngineFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "engine.yaml")
	data := `
budget:
  total_units: 300
  topic_cap: 1
scoring:
  half_life: 24h
  keyword_weights:
    biosimilar: 4
taxonomy:
  - topic: cancer
    phrases: [tumor, oncology]
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ENGINE_CONFIG_PATH", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	b := cfg.Engine.Budget
	if b.TotalUnits != 300 || b.TopicCap != 1 || b.HeadlineUnits != 180 {
		t.Errorf("budget merge = %+v", b)
	}
	if cfg.Engine.Scoring.HalfLife != 24*time.Hour {
		t.Errorf("half life = %v", cfg.Engine.Scoring.HalfLife)
	}
	if cfg.Engine.Scoring.KeywordWeights["biosimilar"] != 4 || cfg.Engine.Scoring.KeywordWeights["fda"] != 5 {
		t.Errorf("keyword weights should merge with defaults: %v", cfg.Engine.Scoring.KeywordWeights)
	}
	if len(cfg.Engine.Taxonomy) != 1 || cfg.Engine.Taxonomy[0].Topic != news.Cancer {
		t.Errorf("taxonomy should be replaced: %+v", cfg.Engine.Taxonomy)
	}
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"token without chat", map[string]string{"TELEGRAM_TOKEN": "tok"}, "TELEGRAM_TOKEN"},
		{"bad dsn", map[string]string{"ARCHIVE_DSN": "mysql://x"}, "ARCHIVE_DSN"},
		{"zero days", map[string]string{"LOOKBACK_DAYS": "0"}, "LOOKBACK_DAYS"},
		{"missing engine file", map[string]string{"ENGINE_CONFIG_PATH": "/nonexistent/engine.yaml"}, "engine config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load() error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestMergeEngineYAMLInvalidBudget(t *testing.T) {
	cfg := &Config{Engine: news.DefaultEngineConfig()}
	if err := cfg.MergeEngineYAML([]byte("budget:\n  headline_share: 2\n")); err != nil {
		t.Fatalf("merge error = %v", err)
	}
	if err := cfg.Engine.Validate(); err == nil {
		t.Error("share above 1 should fail validation")
	}
}
