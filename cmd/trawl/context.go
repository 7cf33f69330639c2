package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"

	"trawl/internal/backfill"
	"trawl/internal/calendar"
	"trawl/internal/config"
	"trawl/internal/enrich"
	"trawl/internal/logging"
	"trawl/internal/services/omdb"
	"trawl/internal/services/tmdb"
	"trawl/internal/services/trakt"
	"trawl/internal/store"
	"trawl/internal/syncer"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// components bundles everything a one-shot command run needs. Close releases
// the store.
type components struct {
	Config      *config.Config
	Logger      *slog.Logger
	Store       *store.Store
	Coordinator *syncer.Coordinator
	Processor   *syncer.Processor
	Calendar    *calendar.Syncer
	Sweeper     *backfill.Sweeper
}

func (c *components) Close() {
	if c.Store != nil {
		_ = c.Store.Close()
	}
}

func (c *commandContext) buildComponents() (*components, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: resolveLogFormat(cfg.Logging.Format),
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	st, err := store.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	traktClient, err := trakt.New(cfg.Trakt.APIKey, cfg.Trakt.BaseURL)
	if err != nil {
		st.Close()
		return nil, err
	}
	tmdbClient, err := tmdb.New(cfg.TMDB.APIKey, cfg.TMDB.BaseURL, cfg.TMDB.Language)
	if err != nil {
		st.Close()
		return nil, err
	}
	omdbClient := omdb.New(cfg.OMDB.APIKey, cfg.OMDB.BaseURL)

	pipeline := enrich.NewProcessor(enrich.Sources{
		Trakt: traktClient,
		TMDB:  tmdbClient,
		OMDB:  omdbClient,
	}, st, cfg, logger)

	return &components{
		Config:      cfg,
		Logger:      logger,
		Store:       st,
		Coordinator: syncer.NewCoordinator(st, traktClient, cfg, logger),
		Processor:   syncer.NewProcessor(st, pipeline, cfg, logger),
		Calendar:    calendar.NewSyncer(st, traktClient, cfg, logger),
		Sweeper:     backfill.NewSweeper(st, tmdbClient, omdbClient, cfg, logger),
	}, nil
}

// resolveLogFormat keeps console output for terminals and switches to JSON
// when output is piped or redirected.
func resolveLogFormat(format string) string {
	if format != "" && format != "auto" {
		return format
	}
	if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return "console"
	}
	return "json"
}
