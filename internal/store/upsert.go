package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const maxRelatedLinks = 12

// UpsertResult reports what a bundle write changed.
type UpsertResult struct {
	EntityID        int64
	Created         bool
	SnapshotWritten bool
	RelatedLinked   int
}

// UpsertBundle writes an enriched entity and all of its satellite rows in a
// single transaction. Re-running with identical input leaves the database in
// the same state: satellite tables are replaced wholesale, and a watcher
// snapshot is appended only when the observed value differs from the latest
// stored one.
func (s *Store) UpsertBundle(ctx context.Context, bundle *EntityBundle) (*UpsertResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	result := &UpsertResult{}

	result.EntityID, result.Created, err = upsertEntity(ctx, tx, &bundle.Entity, now)
	if err != nil {
		return nil, err
	}
	entityID := result.EntityID

	if err := replaceRatings(ctx, tx, entityID, bundle, now); err != nil {
		return nil, err
	}
	if err := replaceBuckets(ctx, tx, entityID, bundle.RatingBuckets); err != nil {
		return nil, err
	}
	if err := upsertProviderRegistry(ctx, tx, bundle.ProviderInfos); err != nil {
		return nil, err
	}
	if err := replaceWatchProviders(ctx, tx, entityID, bundle.Providers); err != nil {
		return nil, err
	}
	if err := replaceContentRatings(ctx, tx, entityID, bundle.ContentRatings); err != nil {
		return nil, err
	}
	if err := replaceCast(ctx, tx, entityID, bundle.Cast); err != nil {
		return nil, err
	}
	if err := replaceVideos(ctx, tx, entityID, bundle.Videos); err != nil {
		return nil, err
	}

	result.SnapshotWritten, err = appendSnapshot(ctx, tx, entityID, bundle.Watchers, bundle.ObservedAt)
	if err != nil {
		return nil, err
	}

	result.RelatedLinked, err = linkRelated(ctx, tx, entityID, bundle.Related, now)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit upsert: %w", err)
	}
	return result, nil
}

func upsertEntity(ctx context.Context, tx *sql.Tx, entity *MediaEntity, now time.Time) (int64, bool, error) {
	var (
		existingID int64
		created    bool
	)
	err := tx.QueryRowContext(
		ctx,
		`SELECT id FROM media_entities WHERE kind = ? AND tmdb_id = ?`,
		string(entity.Kind),
		entity.TMDBID,
	).Scan(&existingID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		created = true
	case err != nil:
		return 0, false, fmt.Errorf("lookup entity: %w", err)
	}

	if created {
		res, err := tx.ExecContext(
			ctx,
			`INSERT INTO media_entities (
                kind, tmdb_id, trakt_id, imdb_id, slug, title, original_title, local_title,
                overview, tagline, poster_path, backdrop_path, status, first_air_date, runtime,
                season_count, episode_count, genres, network, original_language, vote_average, vote_count,
                watchers, trending_score, watchers_delta, delta_3m, primary_rating, created_at, updated_at
            ) VALUES (`+makePlaceholders(29)+`)`,
			entityArgs(entity, formatTime(now), formatTime(now))...,
		)
		if err != nil {
			return 0, false, fmt.Errorf("insert entity: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return 0, false, fmt.Errorf("insert entity id: %w", err)
		}
		return id, true, nil
	}

	_, err = tx.ExecContext(
		ctx,
		`UPDATE media_entities SET
            trakt_id = ?, imdb_id = ?, slug = ?, title = ?, original_title = ?, local_title = ?,
            overview = ?, tagline = ?, poster_path = ?, backdrop_path = ?, status = ?, first_air_date = ?,
            runtime = ?, season_count = ?, episode_count = ?, genres = ?, network = ?, original_language = ?,
            vote_average = ?, vote_count = ?, watchers = ?, trending_score = ?, watchers_delta = ?,
            delta_3m = ?, primary_rating = ?, updated_at = ?
         WHERE id = ?`,
		append(entityUpdateArgs(entity), formatTime(now), existingID)...,
	)
	if err != nil {
		return 0, false, fmt.Errorf("update entity: %w", err)
	}
	return existingID, false, nil
}

func entityArgs(entity *MediaEntity, createdAt, updatedAt string) []any {
	return []any{
		string(entity.Kind),
		entity.TMDBID,
		nullableInt64(entity.TraktID),
		nullableString(entity.IMDBID),
		nullableString(entity.Slug),
		entity.Title,
		nullableString(entity.OriginalTitle),
		nullableString(entity.LocalTitle),
		nullableString(entity.Overview),
		nullableString(entity.Tagline),
		nullableString(entity.PosterPath),
		nullableString(entity.BackdropPath),
		nullableString(entity.Status),
		nullableString(entity.FirstAirDate),
		entity.Runtime,
		entity.SeasonCount,
		entity.EpisodeCount,
		nullableString(encodeGenres(entity.Genres)),
		nullableString(entity.Network),
		nullableString(entity.OriginalLanguage),
		entity.VoteAverage,
		entity.VoteCount,
		entity.Watchers,
		entity.TrendingScore,
		entity.WatchersDelta,
		entity.Delta3M,
		entity.PrimaryRating,
		createdAt,
		updatedAt,
	}
}

func entityUpdateArgs(entity *MediaEntity) []any {
	return []any{
		nullableInt64(entity.TraktID),
		nullableString(entity.IMDBID),
		nullableString(entity.Slug),
		entity.Title,
		nullableString(entity.OriginalTitle),
		nullableString(entity.LocalTitle),
		nullableString(entity.Overview),
		nullableString(entity.Tagline),
		nullableString(entity.PosterPath),
		nullableString(entity.BackdropPath),
		nullableString(entity.Status),
		nullableString(entity.FirstAirDate),
		entity.Runtime,
		entity.SeasonCount,
		entity.EpisodeCount,
		nullableString(encodeGenres(entity.Genres)),
		nullableString(entity.Network),
		nullableString(entity.OriginalLanguage),
		entity.VoteAverage,
		entity.VoteCount,
		entity.Watchers,
		entity.TrendingScore,
		entity.WatchersDelta,
		entity.Delta3M,
		entity.PrimaryRating,
	}
}

func replaceRatings(ctx context.Context, tx *sql.Tx, entityID int64, bundle *EntityBundle, now time.Time) error {
	ratings := make([]Rating, 0, 1+len(bundle.CriticRatings))
	if bundle.CommunityRating != nil {
		ratings = append(ratings, *bundle.CommunityRating)
	}
	ratings = append(ratings, bundle.CriticRatings...)

	for _, rating := range ratings {
		_, err := tx.ExecContext(
			ctx,
			`INSERT INTO ratings (entity_id, source, avg, votes, updated_at)
             VALUES (?, ?, ?, ?, ?)
             ON CONFLICT (entity_id, source) DO UPDATE SET avg = excluded.avg, votes = excluded.votes, updated_at = excluded.updated_at`,
			entityID,
			rating.Source,
			rating.Avg,
			rating.Votes,
			formatTime(now),
		)
		if err != nil {
			return fmt.Errorf("upsert rating %s: %w", rating.Source, err)
		}
	}
	return nil
}

func replaceBuckets(ctx context.Context, tx *sql.Tx, entityID int64, buckets map[int]int64) error {
	if len(buckets) == 0 {
		return nil
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM rating_buckets WHERE entity_id = ?`, entityID); err != nil {
		return fmt.Errorf("clear rating buckets: %w", err)
	}
	for bucket, count := range buckets {
		_, err := tx.ExecContext(
			ctx,
			`INSERT INTO rating_buckets (entity_id, bucket, count) VALUES (?, ?, ?)`,
			entityID,
			bucket,
			count,
		)
		if err != nil {
			return fmt.Errorf("insert rating bucket %d: %w", bucket, err)
		}
	}
	return nil
}

func upsertProviderRegistry(ctx context.Context, tx *sql.Tx, infos []ProviderInfo) error {
	for _, info := range infos {
		_, err := tx.ExecContext(
			ctx,
			`INSERT INTO provider_registry (provider_id, name, logo_path, slug)
             VALUES (?, ?, ?, ?)
             ON CONFLICT (provider_id) DO UPDATE SET name = excluded.name, logo_path = excluded.logo_path, slug = excluded.slug`,
			info.ProviderID,
			info.Name,
			nullableString(info.LogoPath),
			nullableString(info.Slug),
		)
		if err != nil {
			return fmt.Errorf("upsert provider %d: %w", info.ProviderID, err)
		}
	}
	return nil
}

func replaceWatchProviders(ctx context.Context, tx *sql.Tx, entityID int64, providers []WatchProvider) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM watch_providers WHERE entity_id = ?`, entityID); err != nil {
		return fmt.Errorf("clear watch providers: %w", err)
	}
	for _, provider := range providers {
		_, err := tx.ExecContext(
			ctx,
			`INSERT OR IGNORE INTO watch_providers (entity_id, region, provider_id, category) VALUES (?, ?, ?, ?)`,
			entityID,
			provider.Region,
			provider.ProviderID,
			provider.Category,
		)
		if err != nil {
			return fmt.Errorf("insert watch provider: %w", err)
		}
	}
	return nil
}

func replaceContentRatings(ctx context.Context, tx *sql.Tx, entityID int64, ratings []ContentRating) error {
	if len(ratings) == 0 {
		return nil
	}
	for _, rating := range ratings {
		_, err := tx.ExecContext(
			ctx,
			`INSERT INTO content_ratings (entity_id, region, rating)
             VALUES (?, ?, ?)
             ON CONFLICT (entity_id, region) DO UPDATE SET rating = excluded.rating`,
			entityID,
			rating.Region,
			rating.Rating,
		)
		if err != nil {
			return fmt.Errorf("upsert content rating %s: %w", rating.Region, err)
		}
	}
	return nil
}

func replaceCast(ctx context.Context, tx *sql.Tx, entityID int64, cast []CastMember) error {
	if len(cast) == 0 {
		return nil
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM cast_members WHERE entity_id = ?`, entityID); err != nil {
		return fmt.Errorf("clear cast: %w", err)
	}
	for _, member := range cast {
		_, err := tx.ExecContext(
			ctx,
			`INSERT OR IGNORE INTO cast_members (entity_id, person_id, character, name, profile_path, ord)
             VALUES (?, ?, ?, ?, ?, ?)`,
			entityID,
			member.PersonID,
			member.Character,
			member.Name,
			nullableString(member.ProfilePath),
			member.Order,
		)
		if err != nil {
			return fmt.Errorf("insert cast member %d: %w", member.PersonID, err)
		}
	}
	return nil
}

func replaceVideos(ctx context.Context, tx *sql.Tx, entityID int64, videos []Video) error {
	if len(videos) == 0 {
		return nil
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM videos WHERE entity_id = ?`, entityID); err != nil {
		return fmt.Errorf("clear videos: %w", err)
	}
	for _, video := range videos {
		_, err := tx.ExecContext(
			ctx,
			`INSERT OR IGNORE INTO videos (entity_id, site, key, name, type, official, published_at)
             VALUES (?, ?, ?, ?, ?, ?, ?)`,
			entityID,
			video.Site,
			video.Key,
			nullableString(video.Name),
			nullableString(video.Type),
			boolToInt(video.Official),
			nullableString(video.PublishedAt),
		)
		if err != nil {
			return fmt.Errorf("insert video %s/%s: %w", video.Site, video.Key, err)
		}
	}
	return nil
}

func appendSnapshot(ctx context.Context, tx *sql.Tx, entityID, watchers int64, observedAt time.Time) (bool, error) {
	var latest int64
	err := tx.QueryRowContext(
		ctx,
		`SELECT watchers FROM watcher_snapshots WHERE entity_id = ? ORDER BY recorded_at DESC, id DESC LIMIT 1`,
		entityID,
	).Scan(&latest)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// First observation always records.
	case err != nil:
		return false, fmt.Errorf("latest snapshot: %w", err)
	case latest == watchers:
		return false, nil
	}

	if observedAt.IsZero() {
		observedAt = time.Now().UTC()
	}
	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO watcher_snapshots (entity_id, watchers, recorded_at) VALUES (?, ?, ?)`,
		entityID,
		watchers,
		formatTime(observedAt),
	)
	if err != nil {
		return false, fmt.Errorf("insert snapshot: %w", err)
	}
	return true, nil
}

// linkRelated materializes related candidates as stub entities when they are
// not stored yet and records the links. Existing stubs are never overwritten
// here, a later sync for that entity fills them in. Links are insert-only:
// a pair that already exists keeps its stored provenance and rank. Links are
// capped and deduplicated on (source, related); the returned count covers
// newly written rows.
func linkRelated(ctx context.Context, tx *sql.Tx, sourceID int64, candidates []RelatedCandidate, now time.Time) (int, error) {
	linked := 0
	processed := 0
	seen := make(map[int64]struct{}, len(candidates))
	for _, candidate := range candidates {
		if processed >= maxRelatedLinks {
			break
		}
		if candidate.TMDBID == 0 {
			continue
		}

		var relatedID int64
		err := tx.QueryRowContext(
			ctx,
			`SELECT id FROM media_entities WHERE kind = ? AND tmdb_id = ?`,
			string(candidate.Kind),
			candidate.TMDBID,
		).Scan(&relatedID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			res, err := tx.ExecContext(
				ctx,
				`INSERT INTO media_entities (kind, tmdb_id, title, created_at, updated_at)
                 VALUES (?, ?, ?, ?, ?)`,
				string(candidate.Kind),
				candidate.TMDBID,
				candidate.Title,
				formatTime(now),
				formatTime(now),
			)
			if err != nil {
				return linked, fmt.Errorf("insert related stub: %w", err)
			}
			relatedID, err = res.LastInsertId()
			if err != nil {
				return linked, fmt.Errorf("related stub id: %w", err)
			}
		case err != nil:
			return linked, fmt.Errorf("lookup related: %w", err)
		}

		if relatedID == sourceID {
			continue
		}
		if _, dup := seen[relatedID]; dup {
			continue
		}
		seen[relatedID] = struct{}{}
		processed++

		rank := candidate.Rank
		if rank <= 0 {
			rank = processed
		}
		res, err := tx.ExecContext(
			ctx,
			`INSERT OR IGNORE INTO related_links (source_id, related_id, provenance, rank)
             VALUES (?, ?, ?, ?)`,
			sourceID,
			relatedID,
			candidate.Provenance,
			rank,
		)
		if err != nil {
			return linked, fmt.Errorf("link related: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return linked, fmt.Errorf("link related: %w", err)
		}
		if affected > 0 {
			linked++
		}
	}
	return linked, nil
}
