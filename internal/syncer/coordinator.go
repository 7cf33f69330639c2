package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"trawl/internal/config"
	"trawl/internal/logging"
	"trawl/internal/retry"
	"trawl/internal/services"
	"trawl/internal/services/trakt"
	"trawl/internal/store"
)

// Coordinator creates sync jobs: it pulls one batch of ranked trending
// candidates and enqueues a task per candidate. A trending fetch failure
// propagates to the caller with no job written.
type Coordinator struct {
	store  *store.Store
	trakt  trakt.API
	batch  int
	policy retry.Policy
	logger *slog.Logger
}

// NewCoordinator wires a coordinator from configuration.
func NewCoordinator(st *store.Store, traktClient trakt.API, cfg *config.Config, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Coordinator{
		store: st,
		trakt: traktClient,
		batch: cfg.Sync.TrendingBatch,
		policy: retry.Policy{
			MaxRetries: cfg.Retry.MaxRetries,
			BaseDelay:  time.Duration(cfg.Retry.BaseDelayMS) * time.Millisecond,
		},
		logger: logging.NewComponentLogger(logger, "coordinator"),
	}
}

// Run fetches the trending batch for kind, creates the job, and enqueues one
// pending task per candidate. Re-running against an existing job's candidates
// silently skips conflicting rows.
func (c *Coordinator) Run(ctx context.Context, kind store.JobKind) (*store.SyncJob, error) {
	drafts, fetched, err := c.fetchCandidates(ctx, kind)
	if err != nil {
		return nil, err
	}

	job, err := c.store.CreateJob(ctx, kind)
	if err != nil {
		return nil, err
	}
	ctx = services.WithJobID(ctx, job.ID)

	for i := range drafts {
		drafts[i].JobID = job.ID
	}
	queued, err := c.store.EnqueueTasks(ctx, drafts)
	if err != nil {
		return nil, err
	}
	if err := c.store.UpdateJobStats(ctx, job.ID, fetched, queued); err != nil {
		return nil, err
	}
	job.TrendingFetched = fetched
	job.TasksQueued = queued

	c.logger.Info("sync job created",
		logging.Int64(logging.FieldJobID, job.ID),
		logging.String(logging.FieldJobKind, string(kind)),
		logging.Int("trending_fetched", fetched),
		logging.Int("tasks_queued", queued))
	return job, nil
}

func (c *Coordinator) fetchCandidates(ctx context.Context, kind store.JobKind) ([]store.TaskDraft, int, error) {
	var drafts []store.TaskDraft
	err := c.policy.Do(ctx, func(ctx context.Context) error {
		drafts = drafts[:0]
		switch kind {
		case store.JobTrendingShows:
			trending, err := c.trakt.TrendingShows(ctx, c.batch)
			if err != nil {
				return err
			}
			for _, entry := range trending {
				drafts = append(drafts, showDraft(kind, entry))
			}
		case store.JobTrendingMovies:
			trending, err := c.trakt.TrendingMovies(ctx, c.batch)
			if err != nil {
				return err
			}
			for _, entry := range trending {
				drafts = append(drafts, movieDraft(kind, entry))
			}
		default:
			return services.Wrap(services.ErrValidation, "coordinator", "run", fmt.Sprintf("kind %q is not a trending job", kind), nil)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return drafts, len(drafts), nil
}

func showDraft(kind store.JobKind, entry trakt.TrendingShow) store.TaskDraft {
	return buildDraft(kind, entry.Watchers, entry.Show.Title, entry.Show.Year, entry.Show.IDs)
}

func movieDraft(kind store.JobKind, entry trakt.TrendingMovie) store.TaskDraft {
	return buildDraft(kind, entry.Watchers, entry.Movie.Title, entry.Movie.Year, entry.Movie.IDs)
}

func buildDraft(kind store.JobKind, watchers int64, title string, year int, ids trakt.IDs) store.TaskDraft {
	return store.TaskDraft{
		ExternalID: ids.TMDB,
		Payload: store.TaskPayload{
			Kind: kind,
			Trending: &store.TrendingPayload{
				Watchers: watchers,
				Title:    title,
				Year:     year,
				TraktID:  ids.Trakt,
				TMDBID:   ids.TMDB,
				IMDBID:   ids.IMDB,
				Slug:     ids.Slug,
			},
		},
	}
}
