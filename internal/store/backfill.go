package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const (
	defaultRatingsBatch  = 100
	defaultMetadataBatch = 50
)

// BackfillCandidate is the slice of an entity a backfill sweep needs.
type BackfillCandidate struct {
	EntityID int64
	Kind     MediaKind
	TMDBID   int64
	IMDBID   string
	Title    string
}

// RatingsBackfillCandidates returns entities that carry a cross-reference id
// but still miss a critic field, oldest first: no IMDb rating row, no
// metascore row, or an IMDb row with a zero vote count.
func (s *Store) RatingsBackfillCandidates(ctx context.Context, limit int) ([]BackfillCandidate, error) {
	if limit <= 0 {
		limit = defaultRatingsBatch
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT e.id, e.kind, e.tmdb_id, e.imdb_id, e.title
         FROM media_entities e
         WHERE e.imdb_id IS NOT NULL AND e.imdb_id != ''
           AND (
               NOT EXISTS (
                   SELECT 1 FROM ratings r
                   WHERE r.entity_id = e.id AND r.source = ?
               )
               OR NOT EXISTS (
                   SELECT 1 FROM ratings r
                   WHERE r.entity_id = e.id AND r.source = ?
               )
               OR EXISTS (
                   SELECT 1 FROM ratings r
                   WHERE r.entity_id = e.id AND r.source = ? AND r.votes = 0
               )
           )
         ORDER BY e.updated_at
         LIMIT ?`,
		RatingSourceIMDB,
		RatingSourceMetascore,
		RatingSourceIMDB,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("ratings backfill candidates: %w", err)
	}
	return collectCandidates(rows)
}

// MetadataBackfillCandidates returns entities still missing a required
// catalog field, typically stubs created while linking related titles.
// Required: overview, poster, backdrop, genres, status, first-air date,
// runtime, tagline, season/episode counts for shows, and at least one video.
func (s *Store) MetadataBackfillCandidates(ctx context.Context, limit int) ([]BackfillCandidate, error) {
	if limit <= 0 {
		limit = defaultMetadataBatch
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT e.id, e.kind, e.tmdb_id, COALESCE(e.imdb_id, ''), e.title
         FROM media_entities e
         WHERE e.overview IS NULL OR e.overview = ''
            OR e.poster_path IS NULL OR e.poster_path = ''
            OR e.backdrop_path IS NULL OR e.backdrop_path = ''
            OR e.genres IS NULL OR e.genres = ''
            OR e.status IS NULL OR e.status = ''
            OR e.first_air_date IS NULL OR e.first_air_date = ''
            OR e.tagline IS NULL OR e.tagline = ''
            OR e.runtime = 0
            OR (e.kind = ? AND (e.season_count = 0 OR e.episode_count = 0))
            OR NOT EXISTS (SELECT 1 FROM videos v WHERE v.entity_id = e.id)
         ORDER BY e.updated_at
         LIMIT ?`,
		string(MediaShow),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("metadata backfill candidates: %w", err)
	}
	return collectCandidates(rows)
}

func collectCandidates(rows *sql.Rows) ([]BackfillCandidate, error) {
	defer rows.Close()
	var candidates []BackfillCandidate
	for rows.Next() {
		var (
			candidate BackfillCandidate
			kind      string
		)
		if err := rows.Scan(&candidate.EntityID, &kind, &candidate.TMDBID, &candidate.IMDBID, &candidate.Title); err != nil {
			return nil, err
		}
		candidate.Kind = MediaKind(kind)
		candidates = append(candidates, candidate)
	}
	return candidates, rows.Err()
}

// SaveCriticRatings writes the critic rating rows for an entity and refreshes
// its primary rating when the community source never produced one.
func (s *Store) SaveCriticRatings(ctx context.Context, entityID int64, ratings []Rating) error {
	if len(ratings) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin critic ratings: %w", err)
	}
	defer tx.Rollback()

	now := formatTime(time.Now().UTC())
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
			now,
		)
		if err != nil {
			return fmt.Errorf("upsert critic rating %s: %w", rating.Source, err)
		}
	}

	_, err = tx.ExecContext(
		ctx,
		`UPDATE media_entities SET
            primary_rating = CASE
                WHEN primary_rating > 0 THEN primary_rating
                ELSE COALESCE((SELECT avg FROM ratings WHERE entity_id = ? AND source = ?), primary_rating)
            END,
            updated_at = ?
         WHERE id = ?`,
		entityID,
		RatingSourceIMDB,
		now,
		entityID,
	)
	if err != nil {
		return fmt.Errorf("refresh primary rating: %w", err)
	}
	return tx.Commit()
}

// MetadataPatch carries the catalog fields a metadata backfill fills in.
// Only non-empty fields overwrite what is stored.
type MetadataPatch struct {
	IMDBID        string
	Title         string
	OriginalTitle string
	Overview      string
	Tagline       string
	PosterPath    string
	BackdropPath  string
	Status        string
	FirstAirDate  string
	Runtime       int
	SeasonCount   int
	EpisodeCount  int
	Genres        []string
	Network       string
	Language      string
	VoteAverage   float64
	VoteCount     int64
}

// ApplyMetadataPatch updates an entity in place, keeping existing values
// wherever the patch is empty.
func (s *Store) ApplyMetadataPatch(ctx context.Context, entityID int64, patch *MetadataPatch) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE media_entities SET
            imdb_id = COALESCE(?, imdb_id),
            title = COALESCE(?, title),
            original_title = COALESCE(?, original_title),
            overview = COALESCE(?, overview),
            tagline = COALESCE(?, tagline),
            poster_path = COALESCE(?, poster_path),
            backdrop_path = COALESCE(?, backdrop_path),
            status = COALESCE(?, status),
            first_air_date = COALESCE(?, first_air_date),
            runtime = CASE WHEN ? > 0 THEN ? ELSE runtime END,
            season_count = CASE WHEN ? > 0 THEN ? ELSE season_count END,
            episode_count = CASE WHEN ? > 0 THEN ? ELSE episode_count END,
            genres = COALESCE(?, genres),
            network = COALESCE(?, network),
            original_language = COALESCE(?, original_language),
            vote_average = CASE WHEN ? > 0 THEN ? ELSE vote_average END,
            vote_count = CASE WHEN ? > 0 THEN ? ELSE vote_count END,
            updated_at = ?
         WHERE id = ?`,
		nullableString(patch.IMDBID),
		nullableString(patch.Title),
		nullableString(patch.OriginalTitle),
		nullableString(patch.Overview),
		nullableString(patch.Tagline),
		nullableString(patch.PosterPath),
		nullableString(patch.BackdropPath),
		nullableString(patch.Status),
		nullableString(patch.FirstAirDate),
		patch.Runtime, patch.Runtime,
		patch.SeasonCount, patch.SeasonCount,
		patch.EpisodeCount, patch.EpisodeCount,
		nullableString(encodeGenres(patch.Genres)),
		nullableString(patch.Network),
		nullableString(patch.Language),
		patch.VoteAverage, patch.VoteAverage,
		patch.VoteCount, patch.VoteCount,
		formatTime(time.Now().UTC()),
		entityID,
	)
	if err != nil {
		return fmt.Errorf("apply metadata patch: %w", err)
	}
	return nil
}

// MediaAssets groups the satellite rows a metadata sweep can refresh.
type MediaAssets struct {
	Videos         []Video
	ProviderInfos  []ProviderInfo
	Providers      []WatchProvider
	ContentRatings []ContentRating
}

// SaveMediaAssets writes the satellite rows a metadata backfill fetched.
// Groups the fetch left empty are skipped so existing rows survive a partial
// upstream response, mirroring the patch semantics.
func (s *Store) SaveMediaAssets(ctx context.Context, entityID int64, assets *MediaAssets) error {
	if assets == nil {
		return nil
	}
	if len(assets.Videos) == 0 && len(assets.Providers) == 0 && len(assets.ContentRatings) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin media assets: %w", err)
	}
	defer tx.Rollback()

	if err := upsertProviderRegistry(ctx, tx, assets.ProviderInfos); err != nil {
		return err
	}
	if len(assets.Providers) > 0 {
		if err := replaceWatchProviders(ctx, tx, entityID, assets.Providers); err != nil {
			return err
		}
	}
	if err := replaceContentRatings(ctx, tx, entityID, assets.ContentRatings); err != nil {
		return err
	}
	if err := replaceVideos(ctx, tx, entityID, assets.Videos); err != nil {
		return err
	}
	return tx.Commit()
}
