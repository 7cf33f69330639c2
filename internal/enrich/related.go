package enrich

import (
	"context"
	"fmt"
	"log/slog"

	"trawl/internal/logging"
	"trawl/internal/memocache"
	"trawl/internal/retry"
	"trawl/internal/services/tmdb"
	"trawl/internal/services/trakt"
	"trawl/internal/store"
)

// Resolver picks related titles for an entity. The similarity-based source is
// tried first; when it yields nothing the popularity-based recommendations
// take over and the links are marked with secondary provenance.
type Resolver struct {
	Trakt  trakt.API
	TMDB   tmdb.API
	Filter *Filter
	Policy retry.Policy
	Limit  int
	Logger *slog.Logger
}

type relatedSource struct {
	provenance string
	candidates []store.RelatedCandidate
}

// Resolve returns up to Limit related candidates in source order, filtered by
// the genre rules. traktRef is the slug or numeric id the similarity lookup
// is keyed by, tmdbID the base entity id the recommendation fallback uses.
// A candidate whose genre fetch fails is kept with unknown genres rather
// than dropped.
func (r *Resolver) Resolve(ctx context.Context, kind store.MediaKind, traktRef string, tmdbID int64, baseGenres []string, caches *Caches) ([]store.RelatedCandidate, error) {
	limit := r.Limit
	if limit <= 0 {
		limit = 12
	}

	source, err := r.fetchCandidates(ctx, kind, traktRef, tmdbID, limit)
	if err != nil {
		return nil, err
	}
	if len(source.candidates) == 0 {
		return nil, nil
	}

	logger := r.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	var resolved []store.RelatedCandidate
	for _, candidate := range source.candidates {
		if len(resolved) >= limit {
			break
		}
		if candidate.TMDBID == 0 {
			continue
		}
		genres, err := r.candidateGenres(ctx, candidate, caches)
		if err != nil {
			logger.Debug("related candidate genre lookup failed",
				logging.Int64("tmdb_id", candidate.TMDBID),
				logging.Error(err))
			genres = nil
		}
		if !r.Filter.RelatedIncluded(baseGenres, genres) {
			continue
		}
		candidate.Provenance = source.provenance
		candidate.Rank = len(resolved) + 1
		resolved = append(resolved, candidate)
	}
	return resolved, nil
}

func (r *Resolver) fetchCandidates(ctx context.Context, kind store.MediaKind, traktRef string, tmdbID int64, limit int) (relatedSource, error) {
	primary, err := r.fetchPrimary(ctx, kind, traktRef, limit)
	if err != nil {
		if r.Logger != nil {
			r.Logger.Debug("similarity source failed, falling back to recommendations",
				logging.String("ref", traktRef),
				logging.Error(err))
		}
	} else if len(primary.candidates) > 0 {
		return primary, nil
	}
	return r.fetchSecondary(ctx, kind, tmdbID, limit)
}

func (r *Resolver) fetchPrimary(ctx context.Context, kind store.MediaKind, traktRef string, limit int) (relatedSource, error) {
	if traktRef == "" {
		return relatedSource{provenance: store.ProvenancePrimary}, nil
	}
	source := relatedSource{provenance: store.ProvenancePrimary}
	err := r.Policy.Do(ctx, func(ctx context.Context) error {
		source.candidates = source.candidates[:0]
		if kind == store.MediaShow {
			shows, err := r.Trakt.RelatedShows(ctx, traktRef, limit)
			if err != nil {
				return err
			}
			for _, show := range shows {
				source.candidates = append(source.candidates, store.RelatedCandidate{
					Kind:   kind,
					TMDBID: show.IDs.TMDB,
					Title:  show.Title,
				})
			}
			return nil
		}
		movies, err := r.Trakt.RelatedMovies(ctx, traktRef, limit)
		if err != nil {
			return err
		}
		for _, movie := range movies {
			source.candidates = append(source.candidates, store.RelatedCandidate{
				Kind:   kind,
				TMDBID: movie.IDs.TMDB,
				Title:  movie.Title,
			})
		}
		return nil
	})
	return source, err
}

func (r *Resolver) fetchSecondary(ctx context.Context, kind store.MediaKind, tmdbID int64, limit int) (relatedSource, error) {
	source := relatedSource{provenance: store.ProvenanceSecondary}
	if tmdbID == 0 {
		return source, nil
	}
	err := r.Policy.Do(ctx, func(ctx context.Context) error {
		source.candidates = source.candidates[:0]
		recommendations, err := r.TMDB.Recommendations(ctx, mediaTypeFor(kind), tmdbID)
		if err != nil {
			return err
		}
		for _, rec := range recommendations {
			if len(source.candidates) >= limit {
				break
			}
			title := rec.Name
			if title == "" {
				title = rec.Title
			}
			source.candidates = append(source.candidates, store.RelatedCandidate{
				Kind:   kind,
				TMDBID: rec.ID,
				Title:  title,
			})
		}
		return nil
	})
	return source, err
}

func (r *Resolver) candidateGenres(ctx context.Context, candidate store.RelatedCandidate, caches *Caches) ([]string, error) {
	key := fmt.Sprintf("genres:%s:%d", candidate.Kind, candidate.TMDBID)
	return memocache.Fetch(ctx, caches.Genres, key, r.Policy, func(ctx context.Context) ([]string, error) {
		details, err := r.TMDB.Details(ctx, mediaTypeFor(candidate.Kind), candidate.TMDBID)
		if err != nil {
			return nil, err
		}
		genres := make([]string, 0, len(details.Genres))
		for _, genre := range details.Genres {
			genres = append(genres, genre.Name)
		}
		return genres, nil
	})
}

func mediaTypeFor(kind store.MediaKind) tmdb.MediaType {
	if kind == store.MediaMovie {
		return tmdb.MediaTypeMovie
	}
	return tmdb.MediaTypeShow
}
