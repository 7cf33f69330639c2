package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"trawl/internal/config"
	"trawl/internal/logging"
	"trawl/internal/memocache"
	"trawl/internal/retry"
	"trawl/internal/services"
	"trawl/internal/services/omdb"
	"trawl/internal/services/tmdb"
	"trawl/internal/services/trakt"
	"trawl/internal/store"
)

const component = "enrich"

// Sources bundles the injected upstream clients the pipeline draws from.
type Sources struct {
	Trakt trakt.API
	TMDB  tmdb.API
	OMDB  omdb.API
}

// Batch carries per-run shared state: the memoizing caches, the peak watcher
// count observed in this batch, and six months of precomputed per-entity
// watcher maxima, most recent month first.
type Batch struct {
	Caches      *Caches
	MaxWatchers int64
	Monthly     []map[int64]int64
}

// Result describes what one pipeline run did for an entity.
type Result struct {
	EntityID        int64
	Created         bool
	Skipped         bool
	SkipReason      string
	SnapshotWritten bool
	RelatedLinked   int
}

// Processor runs the full enrichment pipeline for one queued candidate.
type Processor struct {
	sources  Sources
	store    *store.Store
	filter   *Filter
	resolver *Resolver
	policy   retry.Policy
	regions  []string
	language string
	logger   *slog.Logger
}

// NewProcessor wires a processor from configuration and injected clients.
func NewProcessor(sources Sources, st *store.Store, cfg *config.Config, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, component)
	filter := NewFilter(cfg.Sync.ExcludedKeywords, cfg.Sync.ExcludedGenres)
	policy := retry.Policy{
		MaxRetries: cfg.Retry.MaxRetries,
		BaseDelay:  time.Duration(cfg.Retry.BaseDelayMS) * time.Millisecond,
		Observer: func(attempt int, err error) {
			logger.Debug("upstream call failed", logging.Int("attempt", attempt), logging.Error(err))
		},
	}
	return &Processor{
		sources: sources,
		store:   st,
		filter:  filter,
		resolver: &Resolver{
			Trakt:  sources.Trakt,
			TMDB:   sources.TMDB,
			Filter: filter,
			Policy: policy,
			Limit:  cfg.Sync.RelatedLimit,
			Logger: logger,
		},
		policy:   policy,
		regions:  cfg.Sync.Regions,
		language: cfg.TMDB.Language,
		logger:   logger,
	}
}

// Process enriches and persists one trending candidate. Optional enrichment
// failures degrade to empty data; a failure in the metadata fetch or the
// final persistence aborts the entity and surfaces as the task error.
func (p *Processor) Process(ctx context.Context, kind store.MediaKind, payload *store.TrendingPayload, batch *Batch) (*Result, error) {
	if payload == nil || payload.TMDBID == 0 {
		return &Result{Skipped: true, SkipReason: "missing catalog id"}, nil
	}
	ctx = services.WithExternalID(ctx, payload.TMDBID)

	if p.filter.TitleExcluded(payload.Title) {
		return &Result{Skipped: true, SkipReason: "title excluded"}, nil
	}

	media := mediaTypeFor(kind)

	var (
		details     *tmdb.Details
		translation *tmdb.Translation
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		fetched, err := memocache.Fetch(groupCtx, batch.Caches.Details, cacheKey("details", kind, payload.TMDBID), p.policy,
			func(ctx context.Context) (*tmdb.Details, error) {
				return p.sources.TMDB.Details(ctx, media, payload.TMDBID)
			})
		if err != nil {
			return services.Wrap(services.ErrExternalService, component, "details", "metadata fetch failed", err)
		}
		details = fetched
		return nil
	})
	group.Go(func() error {
		fetched, err := memocache.Fetch(groupCtx, batch.Caches.Translations, cacheKey("translation", kind, payload.TMDBID), p.policy,
			func(ctx context.Context) (*tmdb.Translation, error) {
				return p.sources.TMDB.Translation(ctx, media, payload.TMDBID, p.language)
			})
		if err != nil {
			p.logger.Debug("translation fetch failed", logging.Int64(logging.FieldExternalID, payload.TMDBID), logging.Error(err))
			return nil
		}
		translation = fetched
		return nil
	})
	if err := group.Wait(); err != nil {
		return nil, err
	}
	if details == nil {
		return nil, services.Wrap(services.ErrNotFound, component, "details", "no metadata for candidate", nil)
	}

	genres := genreNames(details.Genres)
	localTitle := ""
	if translation != nil {
		localTitle = translation.Title()
	}
	if p.filter.GenresExcluded(genres) || p.filter.TitleExcluded(localTitle) {
		return &Result{Skipped: true, SkipReason: "genre excluded"}, nil
	}

	optional := p.fetchOptional(ctx, kind, media, payload, batch)

	entity := p.buildEntity(kind, payload, details, translation, localTitle, optional)

	previous, hasPrevious := int64(0), false
	if existing, err := p.store.EntityByKey(ctx, kind, payload.TMDBID); err != nil {
		return nil, err
	} else if existing != nil {
		if value, ok, err := p.store.LatestWatcherValue(ctx, existing.ID); err != nil {
			return nil, err
		} else if ok {
			previous, hasPrevious = value, true
		}
		snapshots, err := p.store.RecentSnapshots(ctx, existing.ID, 6)
		if err != nil {
			return nil, err
		}
		entity.Delta3M = Delta3M(existing.ID, batch.Monthly, snapshots)
	}
	entity.Watchers = payload.Watchers
	entity.WatchersDelta = WatchersDelta(payload.Watchers, previous, hasPrevious)
	entity.PrimaryRating = PrimaryRating(details.VoteAverage, optional.communityAvg(), optional.criticAvg())
	entity.TrendingScore = TrendingScore(entity.PrimaryRating, payload.Watchers, batch.MaxWatchers)

	related, err := p.resolver.Resolve(ctx, kind, traktRef(payload), payload.TMDBID, genres, batch.Caches)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalService, component, "related", "related resolution failed", err)
	}

	bundle := &store.EntityBundle{
		Entity:          entity,
		CommunityRating: optional.communityRating(),
		RatingBuckets:   optional.ratingBuckets(),
		CriticRatings:   optional.criticRatings(),
		ProviderInfos:   optional.providerInfos,
		Providers:       optional.providers,
		ContentRatings:  optional.contentRatings,
		Cast:            optional.cast,
		Videos:          optional.videos,
		Watchers:        payload.Watchers,
		ObservedAt:      time.Now().UTC(),
		Related:         related,
	}
	upserted, err := p.store.UpsertBundle(ctx, bundle)
	if err != nil {
		return nil, err
	}
	return &Result{
		EntityID:        upserted.EntityID,
		Created:         upserted.Created,
		SnapshotWritten: upserted.SnapshotWritten,
		RelatedLinked:   upserted.RelatedLinked,
	}, nil
}

// optionalData collects everything the degradable fetch groups produced.
type optionalData struct {
	videos         []store.Video
	cast           []store.CastMember
	providers      []store.WatchProvider
	providerInfos  []store.ProviderInfo
	contentRatings []store.ContentRating
	community      *trakt.Ratings
	critic         *omdb.CriticRatings
	imdbID         string
}

// fetchOptional issues the three independent enrichment groups together.
// Each group absorbs its own failures so one missing source never costs the
// entity its record.
func (p *Processor) fetchOptional(ctx context.Context, kind store.MediaKind, media tmdb.MediaType, payload *store.TrendingPayload, batch *Batch) *optionalData {
	data := &optionalData{imdbID: payload.IMDBID}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		p.fetchMediaAssets(groupCtx, media, payload.TMDBID, data)
		return nil
	})
	group.Go(func() error {
		p.fetchAvailability(groupCtx, media, payload.TMDBID, data)
		return nil
	})
	group.Go(func() error {
		p.fetchRatings(groupCtx, kind, media, payload, batch, data)
		return nil
	})
	_ = group.Wait()
	return data
}

func (p *Processor) fetchMediaAssets(ctx context.Context, media tmdb.MediaType, id int64, data *optionalData) {
	var videos []tmdb.Video
	err := p.policy.Do(ctx, func(ctx context.Context) error {
		fetched, err := p.sources.TMDB.Videos(ctx, media, id)
		if err != nil {
			return err
		}
		videos = fetched
		return nil
	})
	if err != nil {
		p.logger.Debug("videos fetch failed", logging.Int64(logging.FieldExternalID, id), logging.Error(err))
	}
	for _, video := range videos {
		data.videos = append(data.videos, store.Video{
			Site:        video.Site,
			Key:         video.Key,
			Name:        video.Name,
			Type:        video.Type,
			Official:    video.Official,
			PublishedAt: video.PublishedAt,
		})
	}

	var credits []tmdb.CastMember
	err = p.policy.Do(ctx, func(ctx context.Context) error {
		fetched, err := p.sources.TMDB.Credits(ctx, media, id)
		if err != nil {
			return err
		}
		credits = fetched
		return nil
	})
	if err != nil {
		p.logger.Debug("credits fetch failed", logging.Int64(logging.FieldExternalID, id), logging.Error(err))
	}
	for _, member := range credits {
		data.cast = append(data.cast, store.CastMember{
			PersonID:    member.ID,
			Character:   member.CharacterName(),
			Name:        member.Name,
			ProfilePath: member.ProfilePath,
			Order:       member.Order,
		})
	}
}

func (p *Processor) fetchAvailability(ctx context.Context, media tmdb.MediaType, id int64, data *optionalData) {
	var regionMap map[string]tmdb.RegionProviders
	err := p.policy.Do(ctx, func(ctx context.Context) error {
		fetched, err := p.sources.TMDB.WatchProviders(ctx, media, id)
		if err != nil {
			return err
		}
		regionMap = fetched
		return nil
	})
	if err != nil {
		p.logger.Debug("watch providers fetch failed", logging.Int64(logging.FieldExternalID, id), logging.Error(err))
	}
	data.providers, data.providerInfos = MergeProviders(regionMap, p.regions)

	for _, region := range p.regions {
		var rating string
		err := p.policy.Do(ctx, func(ctx context.Context) error {
			fetched, err := p.sources.TMDB.ContentRating(ctx, media, id, region)
			if err != nil {
				return err
			}
			rating = fetched
			return nil
		})
		if err != nil {
			p.logger.Debug("content rating fetch failed",
				logging.Int64(logging.FieldExternalID, id),
				logging.String("region", region),
				logging.Error(err))
			continue
		}
		if rating != "" {
			data.contentRatings = append(data.contentRatings, store.ContentRating{Region: region, Rating: rating})
		}
	}
}

func (p *Processor) fetchRatings(ctx context.Context, kind store.MediaKind, media tmdb.MediaType, payload *store.TrendingPayload, batch *Batch, data *optionalData) {
	if data.imdbID == "" {
		external, err := memocache.Fetch(ctx, batch.Caches.ExternalIDs, cacheKey("external", kind, payload.TMDBID), p.policy,
			func(ctx context.Context) (*tmdb.ExternalIDs, error) {
				return p.sources.TMDB.ExternalIDs(ctx, media, payload.TMDBID)
			})
		if err != nil {
			p.logger.Debug("external id fetch failed", logging.Int64(logging.FieldExternalID, payload.TMDBID), logging.Error(err))
		} else if external != nil {
			data.imdbID = external.IMDBID
		}
	}

	if data.imdbID != "" && p.sources.OMDB != nil && p.sources.OMDB.Enabled() {
		critic, err := memocache.Fetch(ctx, batch.Caches.Critic, "critic:"+data.imdbID, p.policy,
			func(ctx context.Context) (*omdb.CriticRatings, error) {
				return p.sources.OMDB.RatingsByIMDBID(ctx, data.imdbID)
			})
		if err != nil {
			p.logger.Debug("critic ratings fetch failed", logging.String("imdb_id", data.imdbID), logging.Error(err))
		} else {
			data.critic = critic
		}
	}

	ref := traktRef(payload)
	if ref == "" {
		return
	}
	community, err := memocache.Fetch(ctx, batch.Caches.Community, "community:"+string(kind)+":"+ref, p.policy,
		func(ctx context.Context) (*trakt.Ratings, error) {
			if kind == store.MediaShow {
				return p.sources.Trakt.ShowRatings(ctx, ref)
			}
			return p.sources.Trakt.MovieRatings(ctx, ref)
		})
	if err != nil {
		p.logger.Debug("community ratings fetch failed", logging.String("ref", ref), logging.Error(err))
		return
	}
	data.community = community
}

func (p *Processor) buildEntity(kind store.MediaKind, payload *store.TrendingPayload, details *tmdb.Details, translation *tmdb.Translation, localTitle string, optional *optionalData) store.MediaEntity {
	runtime := details.Runtime
	if runtime == 0 && len(details.EpisodeRunTime) > 0 {
		runtime = details.EpisodeRunTime[0]
	}
	network := ""
	if len(details.Networks) > 0 {
		network = details.Networks[0].Name
	}
	originalTitle := details.OriginalName
	if originalTitle == "" {
		originalTitle = details.OriginalTitle
	}
	overview := details.Overview
	if overview == "" && translation != nil {
		overview = translation.Data.Overview
	}
	return store.MediaEntity{
		Kind:             kind,
		TMDBID:           payload.TMDBID,
		TraktID:          payload.TraktID,
		IMDBID:           optional.imdbID,
		Slug:             payload.Slug,
		Title:            details.DisplayTitle(),
		OriginalTitle:    originalTitle,
		LocalTitle:       localTitle,
		Overview:         overview,
		Tagline:          details.Tagline,
		PosterPath:       details.PosterPath,
		BackdropPath:     details.BackdropPath,
		Status:           details.Status,
		FirstAirDate:     details.AirDate(),
		Runtime:          runtime,
		SeasonCount:      details.NumberOfSeasons,
		EpisodeCount:     details.NumberOfEpisodes,
		Genres:           genreNames(details.Genres),
		Network:          network,
		OriginalLanguage: details.OriginalLanguage,
		VoteAverage:      details.VoteAverage,
		VoteCount:        details.VoteCount,
	}
}

func (d *optionalData) communityAvg() float64 {
	if d.community == nil {
		return 0
	}
	return d.community.Rating
}

func (d *optionalData) criticAvg() float64 {
	if d.critic == nil {
		return 0
	}
	return d.critic.IMDBRating
}

func (d *optionalData) communityRating() *store.Rating {
	if d.community == nil {
		return nil
	}
	return &store.Rating{
		Source: store.RatingSourceCommunity,
		Avg:    d.community.Rating,
		Votes:  d.community.Votes,
	}
}

// ratingBuckets converts the 1-10 vote distribution, discarding out-of-range
// bucket labels.
func (d *optionalData) ratingBuckets() map[int]int64 {
	if d.community == nil || len(d.community.Distribution) == 0 {
		return nil
	}
	buckets := make(map[int]int64, len(d.community.Distribution))
	for label, count := range d.community.Distribution {
		bucket, err := strconv.Atoi(label)
		if err != nil || bucket < 1 || bucket > 10 {
			continue
		}
		buckets[bucket] = count
	}
	return buckets
}

func (d *optionalData) criticRatings() []store.Rating {
	if d.critic == nil {
		return nil
	}
	var ratings []store.Rating
	if d.critic.IMDBRating > 0 {
		ratings = append(ratings, store.Rating{
			Source: store.RatingSourceIMDB,
			Avg:    d.critic.IMDBRating,
			Votes:  d.critic.IMDBVotes,
		})
	}
	if d.critic.Metascore > 0 {
		ratings = append(ratings, store.Rating{
			Source: store.RatingSourceMetascore,
			Avg:    float64(d.critic.Metascore),
		})
	}
	return ratings
}

// MergeProviders flattens the configured regions' offers, deduplicating by
// (region, provider) and collecting registry entries once per provider. The
// metadata backfill reuses it when refreshing availability for stubs.
func MergeProviders(regionMap map[string]tmdb.RegionProviders, regions []string) ([]store.WatchProvider, []store.ProviderInfo) {
	if len(regionMap) == 0 {
		return nil, nil
	}
	var (
		providers []store.WatchProvider
		infos     []store.ProviderInfo
		seenOffer = make(map[string]struct{})
		seenInfo  = make(map[int64]struct{})
	)
	categories := []struct {
		name   string
		offers func(tmdb.RegionProviders) []tmdb.Provider
	}{
		{"flatrate", func(r tmdb.RegionProviders) []tmdb.Provider { return r.Flatrate }},
		{"free", func(r tmdb.RegionProviders) []tmdb.Provider { return r.Free }},
		{"ads", func(r tmdb.RegionProviders) []tmdb.Provider { return r.Ads }},
		{"rent", func(r tmdb.RegionProviders) []tmdb.Provider { return r.Rent }},
		{"buy", func(r tmdb.RegionProviders) []tmdb.Provider { return r.Buy }},
	}
	for _, region := range regions {
		regional, ok := regionMap[region]
		if !ok {
			continue
		}
		for _, category := range categories {
			for _, offer := range category.offers(regional) {
				offerKey := fmt.Sprintf("%s:%d", region, offer.ProviderID)
				if _, dup := seenOffer[offerKey]; dup {
					continue
				}
				seenOffer[offerKey] = struct{}{}
				providers = append(providers, store.WatchProvider{
					Region:     region,
					ProviderID: offer.ProviderID,
					Category:   category.name,
				})
				if _, dup := seenInfo[offer.ProviderID]; !dup {
					seenInfo[offer.ProviderID] = struct{}{}
					infos = append(infos, store.ProviderInfo{
						ProviderID: offer.ProviderID,
						Name:       offer.ProviderName,
						LogoPath:   offer.LogoPath,
					})
				}
			}
		}
	}
	return providers, infos
}

func genreNames(genres []tmdb.Genre) []string {
	names := make([]string, 0, len(genres))
	for _, genre := range genres {
		names = append(names, genre.Name)
	}
	return names
}

func traktRef(payload *store.TrendingPayload) string {
	if payload.Slug != "" {
		return payload.Slug
	}
	if payload.TraktID != 0 {
		return strconv.FormatInt(payload.TraktID, 10)
	}
	return ""
}

func cacheKey(prefix string, kind store.MediaKind, id int64) string {
	return fmt.Sprintf("%s:%s:%d", prefix, kind, id)
}
