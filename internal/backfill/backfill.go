// Package backfill runs the periodic repair sweeps: filling in critic
// ratings for entities that gained a cross-reference id, and completing
// catalog metadata for stub records bootstrapped through related links.
package backfill

import (
	"context"
	"log/slog"
	"time"

	"trawl/internal/config"
	"trawl/internal/enrich"
	"trawl/internal/logging"
	"trawl/internal/memocache"
	"trawl/internal/parallel"
	"trawl/internal/retry"
	"trawl/internal/services/omdb"
	"trawl/internal/services/tmdb"
	"trawl/internal/store"
)

const component = "backfill"

// Stats reports one sweep.
type Stats struct {
	Scanned int
	Updated int
	Failed  int
}

// Sweeper runs both backfill sweeps. Per-row failures are logged and
// swallowed so one broken entity never stalls the rest of the sweep.
type Sweeper struct {
	store         *store.Store
	tmdb          tmdb.API
	omdb          omdb.API
	policy        retry.Policy
	concurrency   int
	regions       []string
	ratingsLimit  int
	metadataLimit int
	cacheSize     int
	cacheTTL      time.Duration
	logger        *slog.Logger
}

// NewSweeper wires a sweeper from configuration.
func NewSweeper(st *store.Store, tmdbClient tmdb.API, omdbClient omdb.API, cfg *config.Config, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Sweeper{
		store: st,
		tmdb:  tmdbClient,
		omdb:  omdbClient,
		policy: retry.Policy{
			MaxRetries: cfg.Retry.MaxRetries,
			BaseDelay:  time.Duration(cfg.Retry.BaseDelayMS) * time.Millisecond,
		},
		concurrency:   cfg.Sync.Concurrency,
		regions:       cfg.Sync.Regions,
		ratingsLimit:  cfg.Backfill.RatingsLimit,
		metadataLimit: cfg.Backfill.MetadataLimit,
		cacheSize:     cfg.Cache.Capacity,
		cacheTTL:      time.Duration(cfg.Cache.TTLSeconds) * time.Second,
		logger:        logging.NewComponentLogger(logger, component),
	}
}

// Ratings fills in critic ratings for entities that carry an IMDb id but no
// critic rating rows yet. The whole sweep is skipped when the critic source
// is not configured.
func (s *Sweeper) Ratings(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	if s.omdb == nil || !s.omdb.Enabled() {
		s.logger.Debug("critic source not configured, skipping ratings backfill")
		return stats, nil
	}

	candidates, err := s.store.RatingsBackfillCandidates(ctx, s.ratingsLimit)
	if err != nil {
		return nil, err
	}
	stats.Scanned = len(candidates)
	if len(candidates) == 0 {
		return stats, nil
	}

	cache := memocache.New[*omdb.CriticRatings](s.cacheSize, s.cacheTTL)
	results, err := parallel.Map(ctx, s.concurrency, candidates, func(ctx context.Context, candidate store.BackfillCandidate) (bool, error) {
		updated, err := s.backfillCriticRatings(ctx, candidate, cache)
		if err != nil {
			s.logger.Warn("ratings backfill row failed",
				logging.Int64("entity_id", candidate.EntityID),
				logging.String("imdb_id", candidate.IMDBID),
				logging.Error(err))
			return false, nil
		}
		return updated, nil
	})
	if err != nil {
		return nil, err
	}
	for _, updated := range results {
		if updated {
			stats.Updated++
		}
	}
	stats.Failed = stats.Scanned - stats.Updated
	s.logger.Info("ratings backfill finished",
		logging.Int("scanned", stats.Scanned),
		logging.Int("updated", stats.Updated))
	return stats, nil
}

func (s *Sweeper) backfillCriticRatings(ctx context.Context, candidate store.BackfillCandidate, cache *memocache.Cache[*omdb.CriticRatings]) (bool, error) {
	critic, err := memocache.Fetch(ctx, cache, candidate.IMDBID, s.policy, func(ctx context.Context) (*omdb.CriticRatings, error) {
		return s.omdb.RatingsByIMDBID(ctx, candidate.IMDBID)
	})
	if err != nil {
		return false, err
	}
	if critic == nil {
		return false, nil
	}

	var ratings []store.Rating
	if critic.IMDBRating > 0 {
		ratings = append(ratings, store.Rating{
			Source: store.RatingSourceIMDB,
			Avg:    critic.IMDBRating,
			Votes:  critic.IMDBVotes,
		})
	}
	if critic.Metascore > 0 {
		ratings = append(ratings, store.Rating{
			Source: store.RatingSourceMetascore,
			Avg:    float64(critic.Metascore),
		})
	}
	if len(ratings) == 0 {
		return false, nil
	}
	if err := s.store.SaveCriticRatings(ctx, candidate.EntityID, ratings); err != nil {
		return false, err
	}
	return true, nil
}

// Metadata completes core catalog fields for stub entities, merging with
// keep-old-on-empty semantics per field, and refreshes their videos, watch
// providers, and content ratings.
func (s *Sweeper) Metadata(ctx context.Context) (*Stats, error) {
	candidates, err := s.store.MetadataBackfillCandidates(ctx, s.metadataLimit)
	if err != nil {
		return nil, err
	}
	stats := &Stats{Scanned: len(candidates)}
	if len(candidates) == 0 {
		return stats, nil
	}

	cache := memocache.New[*tmdb.Details](s.cacheSize, s.cacheTTL)
	results, err := parallel.Map(ctx, s.concurrency, candidates, func(ctx context.Context, candidate store.BackfillCandidate) (bool, error) {
		if err := s.backfillMetadata(ctx, candidate, cache); err != nil {
			s.logger.Warn("metadata backfill row failed",
				logging.Int64("entity_id", candidate.EntityID),
				logging.Int64(logging.FieldExternalID, candidate.TMDBID),
				logging.Error(err))
			return false, nil
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	for _, updated := range results {
		if updated {
			stats.Updated++
		}
	}
	stats.Failed = stats.Scanned - stats.Updated
	s.logger.Info("metadata backfill finished",
		logging.Int("scanned", stats.Scanned),
		logging.Int("updated", stats.Updated))
	return stats, nil
}

func (s *Sweeper) backfillMetadata(ctx context.Context, candidate store.BackfillCandidate, cache *memocache.Cache[*tmdb.Details]) error {
	media := tmdb.MediaTypeShow
	if candidate.Kind == store.MediaMovie {
		media = tmdb.MediaTypeMovie
	}

	details, err := memocache.Fetch(ctx, cache, candidate.Kind.CacheKey(candidate.TMDBID), s.policy, func(ctx context.Context) (*tmdb.Details, error) {
		return s.tmdb.Details(ctx, media, candidate.TMDBID)
	})
	if err != nil {
		return err
	}
	if details == nil {
		return nil
	}

	patch := &store.MetadataPatch{
		Title:         details.DisplayTitle(),
		OriginalTitle: details.OriginalName,
		Overview:      details.Overview,
		Tagline:       details.Tagline,
		PosterPath:    details.PosterPath,
		BackdropPath:  details.BackdropPath,
		Status:        details.Status,
		FirstAirDate:  details.AirDate(),
		Runtime:       details.Runtime,
		SeasonCount:   details.NumberOfSeasons,
		EpisodeCount:  details.NumberOfEpisodes,
		Language:      details.OriginalLanguage,
		VoteAverage:   details.VoteAverage,
		VoteCount:     details.VoteCount,
	}
	if patch.OriginalTitle == "" {
		patch.OriginalTitle = details.OriginalTitle
	}
	if patch.Runtime == 0 && len(details.EpisodeRunTime) > 0 {
		patch.Runtime = details.EpisodeRunTime[0]
	}
	if len(details.Networks) > 0 {
		patch.Network = details.Networks[0].Name
	}
	if len(details.Genres) > 0 {
		genres := make([]string, 0, len(details.Genres))
		for _, genre := range details.Genres {
			genres = append(genres, genre.Name)
		}
		patch.Genres = genres
	}

	if candidate.IMDBID == "" {
		external, err := s.tmdb.ExternalIDs(ctx, media, candidate.TMDBID)
		if err != nil {
			s.logger.Debug("external id lookup failed during backfill",
				logging.Int64(logging.FieldExternalID, candidate.TMDBID),
				logging.Error(err))
		} else if external != nil {
			patch.IMDBID = external.IMDBID
		}
	}

	if err := s.store.ApplyMetadataPatch(ctx, candidate.EntityID, patch); err != nil {
		return err
	}
	return s.store.SaveMediaAssets(ctx, candidate.EntityID, s.fetchAssets(ctx, media, candidate.TMDBID))
}

// fetchAssets gathers the satellite groups for one candidate. Each lookup
// absorbs its own failure so a missing source only leaves that group empty.
func (s *Sweeper) fetchAssets(ctx context.Context, media tmdb.MediaType, tmdbID int64) *store.MediaAssets {
	assets := &store.MediaAssets{}

	var videos []tmdb.Video
	err := s.policy.Do(ctx, func(ctx context.Context) error {
		fetched, err := s.tmdb.Videos(ctx, media, tmdbID)
		if err != nil {
			return err
		}
		videos = fetched
		return nil
	})
	if err != nil {
		s.logger.Debug("videos fetch failed during backfill",
			logging.Int64(logging.FieldExternalID, tmdbID),
			logging.Error(err))
	}
	for _, video := range videos {
		assets.Videos = append(assets.Videos, store.Video{
			Site:        video.Site,
			Key:         video.Key,
			Name:        video.Name,
			Type:        video.Type,
			Official:    video.Official,
			PublishedAt: video.PublishedAt,
		})
	}

	var regionMap map[string]tmdb.RegionProviders
	err = s.policy.Do(ctx, func(ctx context.Context) error {
		fetched, err := s.tmdb.WatchProviders(ctx, media, tmdbID)
		if err != nil {
			return err
		}
		regionMap = fetched
		return nil
	})
	if err != nil {
		s.logger.Debug("watch providers fetch failed during backfill",
			logging.Int64(logging.FieldExternalID, tmdbID),
			logging.Error(err))
	}
	assets.Providers, assets.ProviderInfos = enrich.MergeProviders(regionMap, s.regions)

	for _, region := range s.regions {
		var rating string
		err := s.policy.Do(ctx, func(ctx context.Context) error {
			fetched, err := s.tmdb.ContentRating(ctx, media, tmdbID, region)
			if err != nil {
				return err
			}
			rating = fetched
			return nil
		})
		if err != nil {
			s.logger.Debug("content rating fetch failed during backfill",
				logging.Int64(logging.FieldExternalID, tmdbID),
				logging.String("region", region),
				logging.Error(err))
			continue
		}
		if rating != "" {
			assets.ContentRatings = append(assets.ContentRatings, store.ContentRating{Region: region, Rating: rating})
		}
	}
	return assets
}
