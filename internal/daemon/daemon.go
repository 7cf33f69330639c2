package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

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

// Daemon owns the background sync loops and enforces single-instance
// execution through a file lock next to the database.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *store.Store

	coordinator *syncer.Coordinator
	processor   *syncer.Processor
	calendar    *calendar.Syncer
	sweeper     *backfill.Sweeper

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Status reports daemon runtime information.
type Status struct {
	Running      bool
	DatabasePath string
	LockFilePath string
}

// New constructs a daemon with all components wired from configuration.
func New(cfg *config.Config, st *store.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || st == nil {
		return nil, errors.New("daemon requires config and store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	traktClient, err := trakt.New(cfg.Trakt.APIKey, cfg.Trakt.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("trakt client: %w", err)
	}
	tmdbClient, err := tmdb.New(cfg.TMDB.APIKey, cfg.TMDB.BaseURL, cfg.TMDB.Language)
	if err != nil {
		return nil, fmt.Errorf("tmdb client: %w", err)
	}
	omdbClient := omdb.New(cfg.OMDB.APIKey, cfg.OMDB.BaseURL)

	sources := enrich.Sources{Trakt: traktClient, TMDB: tmdbClient, OMDB: omdbClient}
	pipeline := enrich.NewProcessor(sources, st, cfg, logger)

	lockPath := filepath.Join(cfg.Paths.DataDir, "trawld.lock")
	return &Daemon{
		cfg:         cfg,
		logger:      logging.NewComponentLogger(logger, "daemon"),
		store:       st,
		coordinator: syncer.NewCoordinator(st, traktClient, cfg, logger),
		processor:   syncer.NewProcessor(st, pipeline, cfg, logger),
		calendar:    calendar.NewSyncer(st, traktClient, cfg, logger),
		sweeper:     backfill.NewSweeper(st, tmdbClient, omdbClient, cfg, logger),
		lockPath:    lockPath,
		lock:        flock.New(lockPath),
	}, nil
}

// Start acquires the instance lock and launches the schedule loops.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another trawl daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.running.Store(true)
	d.startSchedule(runCtx)

	d.logger.Info("daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop cancels the schedule loops, waits for in-flight runs, and releases
// the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// Close stops the daemon and closes the store.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Status returns current runtime information.
func (d *Daemon) Status() Status {
	return Status{
		Running:      d.running.Load(),
		DatabasePath: d.cfg.DatabasePath(),
		LockFilePath: d.lockPath,
	}
}
