package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func clearKeyEnv(t *testing.T) {
	t.Helper()
	t.Setenv("TRAKT_API_KEY", "")
	t.Setenv("TMDB_API_KEY", "")
	t.Setenv("OMDB_API_KEY", "")
}

func TestLoadAppliesDefaults(t *testing.T) {
	clearKeyEnv(t)
	path := writeConfig(t, `
[trakt]
api_key = "trakt-key"

[tmdb]
api_key = "tmdb-key"
`)

	cfg, usedPath, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists || usedPath != path {
		t.Fatalf("used %q exists=%v", usedPath, exists)
	}
	if cfg.Sync.TrendingBatch != 100 || cfg.Sync.TaskBatch != 50 || cfg.Sync.Concurrency != 6 {
		t.Fatalf("sync defaults = %+v", cfg.Sync)
	}
	if len(cfg.Sync.Regions) != 2 {
		t.Fatalf("regions = %v", cfg.Sync.Regions)
	}
	if cfg.Calendar.WindowDays != 30 {
		t.Fatalf("window days = %d", cfg.Calendar.WindowDays)
	}
	if cfg.Retry.MaxRetries != 3 || cfg.Retry.BaseDelayMS != 500 {
		t.Fatalf("retry defaults = %+v", cfg.Retry)
	}
	if cfg.TMDB.Language == "" {
		t.Fatal("tmdb language default missing")
	}
}

func TestLoadRejectsMissingKeys(t *testing.T) {
	clearKeyEnv(t)
	path := writeConfig(t, `
[trakt]
api_key = "trakt-key"
`)
	if _, _, _, err := Load(path); err == nil {
		t.Fatal("expected validation to reject a missing tmdb key")
	}
}

func TestEnvironmentOverridesKeys(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("TRAKT_API_KEY", "env-trakt")
	t.Setenv("TMDB_API_KEY", "env-tmdb")
	path := writeConfig(t, `
[trakt]
api_key = "file-trakt"
`)

	cfg, _, _, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Trakt.APIKey != "env-trakt" {
		t.Fatalf("trakt key = %q, environment must win", cfg.Trakt.APIKey)
	}
	if cfg.TMDB.APIKey != "env-tmdb" {
		t.Fatalf("tmdb key = %q", cfg.TMDB.APIKey)
	}
}

func TestNormalizeClampsCalendarWindow(t *testing.T) {
	clearKeyEnv(t)
	path := writeConfig(t, `
[trakt]
api_key = "k"

[tmdb]
api_key = "k"

[calendar]
window_days = 90
`)
	cfg, _, _, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Calendar.WindowDays != 30 {
		t.Fatalf("window days = %d, want the 30-day clamp", cfg.Calendar.WindowDays)
	}
}

func TestNormalizeUppercasesRegions(t *testing.T) {
	clearKeyEnv(t)
	path := writeConfig(t, `
[trakt]
api_key = "k"

[tmdb]
api_key = "k"

[sync]
regions = [" us", "de "]
excluded_keywords = ["Talk Show", " "]
`)
	cfg, _, _, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Sync.Regions[0] != "US" || cfg.Sync.Regions[1] != "DE" {
		t.Fatalf("regions = %v", cfg.Sync.Regions)
	}
	if len(cfg.Sync.ExcludedKeywords) != 1 || cfg.Sync.ExcludedKeywords[0] != "talk show" {
		t.Fatalf("keywords = %v", cfg.Sync.ExcludedKeywords)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name  string
		amend func(*Config)
	}{
		{"too many regions", func(c *Config) { c.Sync.Regions = []string{"US", "DE", "FR"} }},
		{"excessive concurrency", func(c *Config) { c.Sync.Concurrency = 64 }},
		{"unknown log format", func(c *Config) { c.Logging.Format = "xml" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			cfg.Trakt.APIKey = "k"
			cfg.TMDB.APIKey = "k"
			tc.amend(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected a validation error")
			}
		})
	}
}

func TestCreateSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(content), "[trakt]") {
		t.Fatal("sample config is missing the trakt section")
	}
	if err := CreateSample(path); err == nil {
		t.Fatal("expected an error when the file already exists")
	}
}

func TestLoadMissingExplicitPathUsesDefaults(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("TRAKT_API_KEY", "env-trakt")
	t.Setenv("TMDB_API_KEY", "env-tmdb")
	path := filepath.Join(t.TempDir(), "absent.toml")

	cfg, usedPath, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatal("missing file must report exists=false")
	}
	if usedPath != path {
		t.Fatalf("used path = %q", usedPath)
	}
	if cfg.Sync.TrendingBatch != 100 {
		t.Fatalf("defaults not applied: %+v", cfg.Sync)
	}
}
