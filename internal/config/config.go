package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Trakt contains configuration for the Trakt API, the trending/community
// ratings/calendar source.
type Trakt struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
}

// TMDB contains configuration for The Movie Database API, the metadata
// catalog and secondary related-entity source.
type TMDB struct {
	APIKey   string `toml:"api_key"`
	BaseURL  string `toml:"base_url"`
	Language string `toml:"language"`
}

// OMDB contains configuration for the OMDb critic-rating aggregator.
// The integration is silently disabled when no API key is configured.
type OMDB struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
}

// Sync contains tuning for the trending sync jobs.
type Sync struct {
	// TrendingBatch is how many ranked candidates one job enqueues.
	TrendingBatch int `toml:"trending_batch"`
	// TaskBatch is how many pending tasks one processor run claims.
	TaskBatch int `toml:"task_batch"`
	// Concurrency bounds how many entity pipelines run at once.
	Concurrency int `toml:"concurrency"`
	// Regions are the two markets watch providers and content ratings are
	// fetched for.
	Regions []string `toml:"regions"`
	// ExcludedKeywords reject candidates whose title matches any entry.
	ExcludedKeywords []string `toml:"excluded_keywords"`
	// ExcludedGenres reject candidates and related links carrying any entry.
	ExcludedGenres []string `toml:"excluded_genres"`
	// RelatedLimit caps outgoing related links per entity.
	RelatedLimit int `toml:"related_limit"`
}

// Calendar contains configuration for the airing calendar sync.
type Calendar struct {
	// WindowDays is the look-ahead window, clamped to [1,30].
	WindowDays int `toml:"window_days"`
}

// Backfill contains row limits for the backfill sweeps.
type Backfill struct {
	RatingsLimit  int `toml:"ratings_limit"`
	MetadataLimit int `toml:"metadata_limit"`
}

// Retry contains the shared retry policy applied to upstream calls.
type Retry struct {
	MaxRetries  int `toml:"max_retries"`
	BaseDelayMS int `toml:"base_delay_ms"`
}

// Cache contains sizing for the per-run memoizing caches.
type Cache struct {
	Capacity   int `toml:"capacity"`
	TTLSeconds int `toml:"ttl_seconds"`
}

// Daemon contains scheduling intervals for trawld.
type Daemon struct {
	TrendingIntervalMinutes int `toml:"trending_interval_minutes"`
	CalendarIntervalMinutes int `toml:"calendar_interval_minutes"`
	BackfillIntervalMinutes int `toml:"backfill_interval_minutes"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for trawl.
type Config struct {
	Paths    Paths    `toml:"paths"`
	Trakt    Trakt    `toml:"trakt"`
	TMDB     TMDB     `toml:"tmdb"`
	OMDB     OMDB     `toml:"omdb"`
	Sync     Sync     `toml:"sync"`
	Calendar Calendar `toml:"calendar"`
	Backfill Backfill `toml:"backfill"`
	Retry    Retry    `toml:"retry"`
	Cache    Cache    `toml:"cache"`
	Daemon   Daemon   `toml:"daemon"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/trawl/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The second and third
// return values report which path was used and whether it existed.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	projectPath, err := filepath.Abs("trawl.toml")
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the data and log directories when missing.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite database location under the data directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "trawl.db")
}

// CreateSample writes the embedded sample configuration to path.
func CreateSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists at %s", expanded)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(expanded, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	pathValue = strings.TrimSpace(pathValue)
	if pathValue == "" {
		return "", errors.New("path is empty")
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			return home, nil
		}
		if strings.HasPrefix(pathValue, "~/") {
			return filepath.Join(home, pathValue[2:]), nil
		}
		return "", fmt.Errorf("unsupported home expansion in %q", pathValue)
	}
	return filepath.Abs(pathValue)
}

// ExpandPath expands ~ and resolves a path to absolute form.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}
