package syncer

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"trawl/internal/config"
	"trawl/internal/enrich"
	"trawl/internal/logging"
	"trawl/internal/parallel"
	"trawl/internal/services"
	"trawl/internal/store"
)

// RunStats tallies one processor run.
type RunStats struct {
	RunID     string
	Claimed   int
	Succeeded int
	Failed    int
	Skipped   int
}

// Processor drains pending tasks: it claims each one atomically, runs the
// enrichment pipeline under the batch concurrency bound, and records the
// terminal task state. Task failures are isolated; they never abort the run.
type Processor struct {
	store       *store.Store
	pipeline    *enrich.Processor
	taskBatch   int
	concurrency int
	cacheSize   int
	cacheTTL    time.Duration
	logger      *slog.Logger
}

// NewProcessor wires a processor from configuration.
func NewProcessor(st *store.Store, pipeline *enrich.Processor, cfg *config.Config, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Processor{
		store:       st,
		pipeline:    pipeline,
		taskBatch:   cfg.Sync.TaskBatch,
		concurrency: cfg.Sync.Concurrency,
		cacheSize:   cfg.Cache.Capacity,
		cacheTTL:    time.Duration(cfg.Cache.TTLSeconds) * time.Second,
		logger:      logging.NewComponentLogger(logger, "processor"),
	}
}

type taskOutcome int

const (
	outcomeSkipped taskOutcome = iota
	outcomeSucceeded
	outcomeFailed
)

// Run processes one batch of pending tasks and reports the tally. An empty
// queue returns zero stats without touching the upstream services.
func (p *Processor) Run(ctx context.Context) (*RunStats, error) {
	stats := &RunStats{RunID: uuid.NewString()}
	ctx = services.WithRunID(ctx, stats.RunID)

	tasks, err := p.store.PendingTasks(ctx, p.taskBatch)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return stats, nil
	}

	batch, err := p.buildBatch(ctx, tasks)
	if err != nil {
		return nil, err
	}

	outcomes, err := parallel.Map(ctx, p.concurrency, tasks, func(ctx context.Context, task *store.SyncTask) (taskOutcome, error) {
		return p.processTask(ctx, task, batch), nil
	})
	if err != nil {
		return nil, err
	}

	for _, outcome := range outcomes {
		switch outcome {
		case outcomeSucceeded:
			stats.Claimed++
			stats.Succeeded++
		case outcomeFailed:
			stats.Claimed++
			stats.Failed++
		default:
			stats.Skipped++
		}
	}
	p.logger.Info("task batch processed",
		logging.String(logging.FieldRunID, stats.RunID),
		logging.Int("claimed", stats.Claimed),
		logging.Int("succeeded", stats.Succeeded),
		logging.Int("failed", stats.Failed))
	return stats, nil
}

// buildBatch assembles the shared per-run state: one cache set, six months of
// watcher maxima, and the batch's peak watcher count for score normalization.
func (p *Processor) buildBatch(ctx context.Context, tasks []*store.SyncTask) (*enrich.Batch, error) {
	monthly, err := p.store.MonthlyWatcherMaxima(ctx, 6)
	if err != nil {
		return nil, err
	}
	var maxWatchers int64
	for _, task := range tasks {
		payload, err := task.Payload()
		if err != nil || payload.Trending == nil {
			continue
		}
		if payload.Trending.Watchers > maxWatchers {
			maxWatchers = payload.Trending.Watchers
		}
	}
	return &enrich.Batch{
		Caches:      enrich.NewCaches(p.cacheSize, p.cacheTTL),
		MaxWatchers: maxWatchers,
		Monthly:     monthly,
	}, nil
}

func (p *Processor) processTask(ctx context.Context, task *store.SyncTask, batch *enrich.Batch) taskOutcome {
	ctx = services.WithJobID(ctx, task.JobID)
	ctx = services.WithTaskID(ctx, task.ID)
	logger := p.logger.With(
		logging.Int64(logging.FieldJobID, task.JobID),
		logging.Int64(logging.FieldTaskID, task.ID))

	claimed, err := p.store.ClaimTask(ctx, task.ID)
	if err != nil {
		logger.Error("task claim failed", logging.Error(err))
		return outcomeFailed
	}
	if !claimed {
		// Another processor got here first.
		return outcomeSkipped
	}

	payload, err := task.Payload()
	if err != nil {
		p.failTask(ctx, logger, task.ID, err)
		return outcomeFailed
	}

	result, err := p.pipeline.Process(ctx, mediaKindFor(payload.Kind), payload.Trending, batch)
	if err != nil {
		p.failTask(ctx, logger, task.ID, err)
		return outcomeFailed
	}

	if err := p.store.MarkTaskDone(ctx, task.ID); err != nil {
		logger.Error("task completion write failed", logging.Error(err))
		return outcomeFailed
	}
	if result.Skipped {
		logger.Debug("task skipped", logging.String("reason", result.SkipReason))
	} else {
		logger.Debug("task done",
			logging.Int64("entity_id", result.EntityID),
			logging.Bool("created", result.Created),
			logging.Int("related_linked", result.RelatedLinked))
	}
	return outcomeSucceeded
}

func (p *Processor) failTask(ctx context.Context, logger *slog.Logger, taskID int64, cause error) {
	logger.Warn("task failed", logging.Error(cause))
	if err := p.store.MarkTaskError(ctx, taskID, cause.Error()); err != nil {
		logger.Error("task error write failed", logging.Error(err))
	}
}

func mediaKindFor(kind store.JobKind) store.MediaKind {
	if kind == store.JobTrendingMovies {
		return store.MediaMovie
	}
	return store.MediaShow
}
