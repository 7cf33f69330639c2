// Package testsupport provides shared fixtures for tests: temp-dir backed
// configurations and an opened store with registered cleanup.
package testsupport

import (
	"path/filepath"
	"testing"

	"trawl/internal/config"
)

// ConfigOption customizes the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Trakt.APIKey = "test"
	cfg.TMDB.APIKey = "test"

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithOMDBKey enables the critic-rating client on the test config.
func WithOMDBKey(key string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.OMDB.APIKey = key
	}
}

// WithConcurrency overrides the entity pipeline concurrency.
func WithConcurrency(limit int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Sync.Concurrency = limit
	}
}
