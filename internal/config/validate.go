package config

import (
	"errors"
	"fmt"
)

// Validate checks required settings. The OMDb key is deliberately optional:
// critic-rating enrichment is skipped without it.
func (c *Config) Validate() error {
	if err := c.validateClients(); err != nil {
		return err
	}
	if err := c.validateSync(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateClients() error {
	if c.Trakt.APIKey == "" {
		return errors.New("trakt api_key is required (set trakt.api_key or TRAKT_API_KEY)")
	}
	if c.TMDB.APIKey == "" {
		return errors.New("tmdb api_key is required (set tmdb.api_key or TMDB_API_KEY)")
	}
	return nil
}

func (c *Config) validateSync() error {
	if len(c.Sync.Regions) != 2 {
		return fmt.Errorf("sync.regions must name exactly two markets, got %d", len(c.Sync.Regions))
	}
	if c.Sync.Concurrency > 32 {
		return fmt.Errorf("sync.concurrency %d exceeds the supported maximum of 32", c.Sync.Concurrency)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "auto", "console", "json":
		return nil
	default:
		return fmt.Errorf("logging.format must be auto, console, or json, got %q", c.Logging.Format)
	}
}
