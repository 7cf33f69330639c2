// Package calendar keeps the upcoming-airings table in step with the
// upstream episode calendar, restricted to shows the catalog already tracks
// with both a trend signal and a community rating.
package calendar

import (
	"context"
	"log/slog"
	"time"

	"trawl/internal/config"
	"trawl/internal/logging"
	"trawl/internal/retry"
	"trawl/internal/services/trakt"
	"trawl/internal/store"
)

const component = "calendar"

// SyncStats reports one calendar sync run.
type SyncStats struct {
	Processed int
	Inserted  int
	Updated   int
}

// Syncer fetches the airing calendar and upserts rows for eligible shows.
type Syncer struct {
	store      *store.Store
	trakt      trakt.API
	windowDays int
	policy     retry.Policy
	logger     *slog.Logger
}

// NewSyncer wires a calendar syncer from configuration. The look-ahead window
// is clamped to [1,30] days at configuration load time.
func NewSyncer(st *store.Store, traktClient trakt.API, cfg *config.Config, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Syncer{
		store:      st,
		trakt:      traktClient,
		windowDays: clampWindow(cfg.Calendar.WindowDays),
		policy: retry.Policy{
			MaxRetries: cfg.Retry.MaxRetries,
			BaseDelay:  time.Duration(cfg.Retry.BaseDelayMS) * time.Millisecond,
		},
		logger: logging.NewComponentLogger(logger, component),
	}
}

// Sync pulls the calendar window starting today and upserts one airing per
// episode belonging to an eligible show. Episodes of unknown or ineligible
// shows are counted as processed but not stored.
func (s *Syncer) Sync(ctx context.Context) (*SyncStats, error) {
	eligible, err := s.store.EligibleShowIDs(ctx)
	if err != nil {
		return nil, err
	}

	var entries []trakt.CalendarEntry
	err = s.policy.Do(ctx, func(ctx context.Context) error {
		fetched, err := s.trakt.CalendarShows(ctx, time.Now().UTC(), s.windowDays)
		if err != nil {
			return err
		}
		entries = fetched
		return nil
	})
	if err != nil {
		return nil, err
	}

	networks := make(map[int64]string)
	stats := &SyncStats{}
	for _, entry := range entries {
		stats.Processed++
		showTMDBID := entry.Show.IDs.TMDB
		entityID, ok := eligible[showTMDBID]
		if !ok {
			continue
		}
		network, err := s.showNetwork(ctx, entityID, networks)
		if err != nil {
			return stats, err
		}
		inserted, err := s.store.UpsertAiring(ctx, &store.Airing{
			ShowTMDBID: showTMDBID,
			EntityID:   &entityID,
			Season:     entry.Episode.Season,
			Episode:    entry.Episode.Number,
			Title:      entry.Episode.Title,
			Network:    network,
			AirDate:    entry.FirstAired,
		})
		if err != nil {
			return stats, err
		}
		if inserted {
			stats.Inserted++
		} else {
			stats.Updated++
		}
	}

	s.logger.Info("calendar synced",
		logging.Int("window_days", s.windowDays),
		logging.Int("processed", stats.Processed),
		logging.Int("inserted", stats.Inserted),
		logging.Int("updated", stats.Updated))
	return stats, nil
}

// Prune removes airings whose show dropped out of the catalog or lost its
// eligibility, bounded per run.
func (s *Syncer) Prune(ctx context.Context) (int64, error) {
	deleted, err := s.store.PruneAirings(ctx)
	if err != nil {
		return 0, err
	}
	s.logger.Info("calendar pruned", logging.Int64("deleted", deleted))
	return deleted, nil
}

func (s *Syncer) showNetwork(ctx context.Context, entityID int64, cache map[int64]string) (string, error) {
	if network, ok := cache[entityID]; ok {
		return network, nil
	}
	entity, err := s.store.EntityByID(ctx, entityID)
	if err != nil {
		return "", err
	}
	network := ""
	if entity != nil {
		network = entity.Network
	}
	cache[entityID] = network
	return network, nil
}

func clampWindow(days int) int {
	if days < 1 {
		return 1
	}
	if days > 30 {
		return 30
	}
	return days
}
