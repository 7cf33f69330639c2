package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// EntityByKey fetches an entity by its natural key.
func (s *Store) EntityByKey(ctx context.Context, kind MediaKind, tmdbID int64) (*MediaEntity, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+entityColumns+` FROM media_entities WHERE kind = ? AND tmdb_id = ?`,
		string(kind),
		tmdbID,
	)
	entity, err := scanEntity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get entity: %w", err)
	}
	return entity, nil
}

// EntityByID fetches an entity by its row id.
func (s *Store) EntityByID(ctx context.Context, id int64) (*MediaEntity, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+entityColumns+` FROM media_entities WHERE id = ?`, id)
	entity, err := scanEntity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get entity: %w", err)
	}
	return entity, nil
}

// LatestWatcherValue returns the most recent stored watcher count for an
// entity. The second return value reports whether any snapshot exists.
func (s *Store) LatestWatcherValue(ctx context.Context, entityID int64) (int64, bool, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT watchers FROM watcher_snapshots WHERE entity_id = ? ORDER BY recorded_at DESC, id DESC LIMIT 1`,
		entityID,
	)
	var watchers int64
	err := row.Scan(&watchers)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("latest watcher value: %w", err)
	}
	return watchers, true, nil
}

// RecentSnapshots returns up to n snapshots for an entity, newest first.
func (s *Store) RecentSnapshots(ctx context.Context, entityID int64, n int) ([]WatcherSnapshot, error) {
	if n <= 0 {
		n = 6
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, entity_id, watchers, recorded_at
         FROM watcher_snapshots WHERE entity_id = ? ORDER BY recorded_at DESC, id DESC LIMIT ?`,
		entityID,
		n,
	)
	if err != nil {
		return nil, fmt.Errorf("recent snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []WatcherSnapshot
	for rows.Next() {
		var (
			snapshot    WatcherSnapshot
			recordedRaw string
		)
		if err := rows.Scan(&snapshot.ID, &snapshot.EntityID, &snapshot.Watchers, &recordedRaw); err != nil {
			return nil, err
		}
		if recorded, err := parseTimeString(recordedRaw); err == nil {
			snapshot.RecordedAt = recorded
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots, rows.Err()
}

// MonthlyWatcherMaxima returns, for each of the last months calendar months
// (most recent first), a map of entity id to the maximum watcher count
// observed in that month. Months with no samples yield empty maps so callers
// can index a fixed window.
func (s *Store) MonthlyWatcherMaxima(ctx context.Context, months int) ([]map[int64]int64, error) {
	if months <= 0 {
		months = 6
	}
	now := time.Now().UTC()
	// Anchor on the first of the month so AddDate never normalizes across
	// month boundaries (e.g. Oct 31 minus one month).
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	index := make(map[string]int, months)
	for i := 0; i < months; i++ {
		index[first.AddDate(0, -i, 0).Format("2006-01")] = i
	}

	monthStart := first.AddDate(0, -(months - 1), 0)

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT entity_id, strftime('%Y-%m', recorded_at) AS month, MAX(watchers)
         FROM watcher_snapshots
         WHERE recorded_at >= ?
         GROUP BY entity_id, month`,
		formatTime(monthStart),
	)
	if err != nil {
		return nil, fmt.Errorf("monthly watcher maxima: %w", err)
	}
	defer rows.Close()

	maps := make([]map[int64]int64, months)
	for i := range maps {
		maps[i] = make(map[int64]int64)
	}
	for rows.Next() {
		var (
			entityID int64
			month    string
			maximum  int64
		)
		if err := rows.Scan(&entityID, &month, &maximum); err != nil {
			return nil, err
		}
		if i, ok := index[month]; ok {
			maps[i][entityID] = maximum
		}
	}
	return maps, rows.Err()
}

// EligibleShowIDs returns a map of show TMDB id to entity row id for entities
// carrying both a trend signal and a community rating. Calendar sync links
// airings only to these.
func (s *Store) EligibleShowIDs(ctx context.Context) (map[int64]int64, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT e.tmdb_id, e.id
         FROM media_entities e
         WHERE e.kind = ? AND e.trending_score > 0
           AND EXISTS (SELECT 1 FROM ratings r WHERE r.entity_id = e.id AND r.source = ?)`,
		string(MediaShow),
		RatingSourceCommunity,
	)
	if err != nil {
		return nil, fmt.Errorf("eligible shows: %w", err)
	}
	defer rows.Close()

	eligible := make(map[int64]int64)
	for rows.Next() {
		var tmdbID, entityID int64
		if err := rows.Scan(&tmdbID, &entityID); err != nil {
			return nil, err
		}
		eligible[tmdbID] = entityID
	}
	return eligible, rows.Err()
}

// RelatedLinks returns the outgoing related links for an entity ordered by rank.
func (s *Store) RelatedLinks(ctx context.Context, sourceID int64) ([]RelatedLink, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT source_id, related_id, provenance, rank
         FROM related_links WHERE source_id = ? ORDER BY rank`,
		sourceID,
	)
	if err != nil {
		return nil, fmt.Errorf("related links: %w", err)
	}
	defer rows.Close()

	var links []RelatedLink
	for rows.Next() {
		var link RelatedLink
		if err := rows.Scan(&link.SourceID, &link.RelatedID, &link.Provenance, &link.Rank); err != nil {
			return nil, err
		}
		links = append(links, link)
	}
	return links, rows.Err()
}

// WatchProviders returns the provider offers stored for an entity, ordered by
// region then provider.
func (s *Store) WatchProviders(ctx context.Context, entityID int64) ([]WatchProvider, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT region, provider_id, category FROM watch_providers
         WHERE entity_id = ? ORDER BY region, provider_id`,
		entityID,
	)
	if err != nil {
		return nil, fmt.Errorf("watch providers: %w", err)
	}
	defer rows.Close()

	var providers []WatchProvider
	for rows.Next() {
		var provider WatchProvider
		if err := rows.Scan(&provider.Region, &provider.ProviderID, &provider.Category); err != nil {
			return nil, err
		}
		providers = append(providers, provider)
	}
	return providers, rows.Err()
}

// ContentRatings returns the stored certifications for an entity, ordered by
// region.
func (s *Store) ContentRatings(ctx context.Context, entityID int64) ([]ContentRating, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT region, rating FROM content_ratings WHERE entity_id = ? ORDER BY region`,
		entityID,
	)
	if err != nil {
		return nil, fmt.Errorf("content ratings: %w", err)
	}
	defer rows.Close()

	var ratings []ContentRating
	for rows.Next() {
		var rating ContentRating
		if err := rows.Scan(&rating.Region, &rating.Rating); err != nil {
			return nil, err
		}
		ratings = append(ratings, rating)
	}
	return ratings, rows.Err()
}

// Videos returns the stored video rows for an entity, ordered by site then key.
func (s *Store) Videos(ctx context.Context, entityID int64) ([]Video, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT site, key, COALESCE(name, ''), COALESCE(type, ''), official, COALESCE(published_at, '')
         FROM videos WHERE entity_id = ? ORDER BY site, key`,
		entityID,
	)
	if err != nil {
		return nil, fmt.Errorf("videos: %w", err)
	}
	defer rows.Close()

	var videos []Video
	for rows.Next() {
		var video Video
		if err := rows.Scan(&video.Site, &video.Key, &video.Name, &video.Type, &video.Official, &video.PublishedAt); err != nil {
			return nil, err
		}
		videos = append(videos, video)
	}
	return videos, rows.Err()
}

// Ratings returns the stored per-source rating aggregates for an entity.
func (s *Store) Ratings(ctx context.Context, entityID int64) ([]Rating, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT entity_id, source, avg, votes FROM ratings WHERE entity_id = ? ORDER BY source`,
		entityID,
	)
	if err != nil {
		return nil, fmt.Errorf("ratings: %w", err)
	}
	defer rows.Close()

	var ratings []Rating
	for rows.Next() {
		var rating Rating
		if err := rows.Scan(&rating.EntityID, &rating.Source, &rating.Avg, &rating.Votes); err != nil {
			return nil, err
		}
		ratings = append(ratings, rating)
	}
	return ratings, rows.Err()
}

const entityColumns = `id, kind, tmdb_id, trakt_id, imdb_id, slug, title, original_title, local_title,
    overview, tagline, poster_path, backdrop_path, status, first_air_date, runtime,
    season_count, episode_count, genres, network, original_language, vote_average, vote_count,
    watchers, trending_score, watchers_delta, delta_3m, primary_rating, created_at, updated_at`

func scanEntity(scanner interface{ Scan(dest ...any) error }) (*MediaEntity, error) {
	var (
		entity     MediaEntity
		kind       string
		traktID    sql.NullInt64
		imdbID     sql.NullString
		slug       sql.NullString
		original   sql.NullString
		local      sql.NullString
		overview   sql.NullString
		tagline    sql.NullString
		poster     sql.NullString
		backdrop   sql.NullString
		status     sql.NullString
		firstAir   sql.NullString
		genres     sql.NullString
		network    sql.NullString
		language   sql.NullString
		createdRaw string
		updatedRaw string
	)
	if err := scanner.Scan(
		&entity.ID,
		&kind,
		&entity.TMDBID,
		&traktID,
		&imdbID,
		&slug,
		&entity.Title,
		&original,
		&local,
		&overview,
		&tagline,
		&poster,
		&backdrop,
		&status,
		&firstAir,
		&entity.Runtime,
		&entity.SeasonCount,
		&entity.EpisodeCount,
		&genres,
		&network,
		&language,
		&entity.VoteAverage,
		&entity.VoteCount,
		&entity.Watchers,
		&entity.TrendingScore,
		&entity.WatchersDelta,
		&entity.Delta3M,
		&entity.PrimaryRating,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	entity.Kind = MediaKind(kind)
	entity.TraktID = traktID.Int64
	entity.IMDBID = imdbID.String
	entity.Slug = slug.String
	entity.OriginalTitle = original.String
	entity.LocalTitle = local.String
	entity.Overview = overview.String
	entity.Tagline = tagline.String
	entity.PosterPath = poster.String
	entity.BackdropPath = backdrop.String
	entity.Status = status.String
	entity.FirstAirDate = firstAir.String
	entity.Genres = decodeGenres(genres.String)
	entity.Network = network.String
	entity.OriginalLanguage = language.String
	if created, err := parseTimeString(createdRaw); err == nil {
		entity.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		entity.UpdatedAt = updated
	}
	return &entity, nil
}
