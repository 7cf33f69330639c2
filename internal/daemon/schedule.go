package daemon

import (
	"context"
	"time"

	"trawl/internal/logging"
	"trawl/internal/store"
)

// startSchedule launches one loop per job family. Each loop runs its job
// immediately and then on its configured interval until the context is
// cancelled.
func (d *Daemon) startSchedule(ctx context.Context) {
	d.loop(ctx, "trending", d.cfg.Daemon.TrendingIntervalMinutes, d.runTrending)
	d.loop(ctx, "calendar", d.cfg.Daemon.CalendarIntervalMinutes, d.runCalendar)
	d.loop(ctx, "backfill", d.cfg.Daemon.BackfillIntervalMinutes, d.runBackfill)
}

func (d *Daemon) loop(ctx context.Context, name string, intervalMinutes int, job func(context.Context)) {
	if intervalMinutes <= 0 {
		d.logger.Info("schedule loop disabled", logging.String("loop", name))
		return
	}
	interval := time.Duration(intervalMinutes) * time.Minute

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		job(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				job(ctx)
			}
		}
	}()
}

// runTrending enqueues both trending kinds and drains the task queue.
func (d *Daemon) runTrending(ctx context.Context) {
	for _, kind := range []store.JobKind{store.JobTrendingShows, store.JobTrendingMovies} {
		if ctx.Err() != nil {
			return
		}
		if _, err := d.coordinator.Run(ctx, kind); err != nil {
			d.logger.Error("trending enqueue failed",
				logging.String(logging.FieldJobKind, string(kind)),
				logging.Error(err))
		}
	}
	d.drainTasks(ctx)
}

// drainTasks runs processor batches until the queue is empty or a run makes
// no progress.
func (d *Daemon) drainTasks(ctx context.Context) {
	for ctx.Err() == nil {
		stats, err := d.processor.Run(ctx)
		if err != nil {
			d.logger.Error("task processing failed", logging.Error(err))
			return
		}
		if stats.Claimed == 0 && stats.Skipped == 0 {
			return
		}
	}
}

func (d *Daemon) runCalendar(ctx context.Context) {
	if _, err := d.calendar.Sync(ctx); err != nil {
		d.logger.Error("calendar sync failed", logging.Error(err))
	}
	if ctx.Err() != nil {
		return
	}
	if _, err := d.calendar.Prune(ctx); err != nil {
		d.logger.Error("calendar prune failed", logging.Error(err))
	}
}

func (d *Daemon) runBackfill(ctx context.Context) {
	if _, err := d.sweeper.Ratings(ctx); err != nil {
		d.logger.Error("ratings backfill failed", logging.Error(err))
	}
	if ctx.Err() != nil {
		return
	}
	if _, err := d.sweeper.Metadata(ctx); err != nil {
		d.logger.Error("metadata backfill failed", logging.Error(err))
	}
}
