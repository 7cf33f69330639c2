package enrich

import (
	"context"
	"errors"
	"fmt"
	"time"

	"trawl/internal/services/omdb"
	"trawl/internal/services/tmdb"
	"trawl/internal/services/trakt"
)

var errFakeNotFound = errors.New("fake: not found")

type fakeTrakt struct {
	trendingShows  []trakt.TrendingShow
	trendingMovies []trakt.TrendingMovie
	ratings        map[string]*trakt.Ratings
	relatedShows   map[string][]trakt.Show
	relatedMovies  map[string][]trakt.Movie
	relatedErr     error
	calendar       []trakt.CalendarEntry
}

func (f *fakeTrakt) TrendingShows(_ context.Context, limit int) ([]trakt.TrendingShow, error) {
	if limit < len(f.trendingShows) {
		return f.trendingShows[:limit], nil
	}
	return f.trendingShows, nil
}

func (f *fakeTrakt) TrendingMovies(_ context.Context, limit int) ([]trakt.TrendingMovie, error) {
	if limit < len(f.trendingMovies) {
		return f.trendingMovies[:limit], nil
	}
	return f.trendingMovies, nil
}

func (f *fakeTrakt) ShowRatings(_ context.Context, id string) (*trakt.Ratings, error) {
	if ratings, ok := f.ratings[id]; ok {
		return ratings, nil
	}
	return nil, errFakeNotFound
}

func (f *fakeTrakt) MovieRatings(ctx context.Context, id string) (*trakt.Ratings, error) {
	return f.ShowRatings(ctx, id)
}

func (f *fakeTrakt) RelatedShows(_ context.Context, id string, _ int) ([]trakt.Show, error) {
	if f.relatedErr != nil {
		return nil, f.relatedErr
	}
	return f.relatedShows[id], nil
}

func (f *fakeTrakt) RelatedMovies(_ context.Context, id string, _ int) ([]trakt.Movie, error) {
	if f.relatedErr != nil {
		return nil, f.relatedErr
	}
	return f.relatedMovies[id], nil
}

func (f *fakeTrakt) CalendarShows(_ context.Context, _ time.Time, _ int) ([]trakt.CalendarEntry, error) {
	return f.calendar, nil
}

type fakeTMDB struct {
	details         map[string]*tmdb.Details
	detailsErr      map[string]error
	translations    map[string]*tmdb.Translation
	recommendations map[string][]tmdb.Recommendation
	externalIDs     map[string]*tmdb.ExternalIDs
	providers       map[string]map[string]tmdb.RegionProviders
	detailsCalls    int
}

func tmdbKey(media tmdb.MediaType, id int64) string {
	return fmt.Sprintf("%s:%d", media, id)
}

func (f *fakeTMDB) Details(_ context.Context, media tmdb.MediaType, id int64) (*tmdb.Details, error) {
	f.detailsCalls++
	key := tmdbKey(media, id)
	if err, ok := f.detailsErr[key]; ok {
		return nil, err
	}
	if details, ok := f.details[key]; ok {
		return details, nil
	}
	return nil, errFakeNotFound
}

func (f *fakeTMDB) Translation(_ context.Context, media tmdb.MediaType, id int64, _ string) (*tmdb.Translation, error) {
	if translation, ok := f.translations[tmdbKey(media, id)]; ok {
		return translation, nil
	}
	return nil, errFakeNotFound
}

func (f *fakeTMDB) Videos(context.Context, tmdb.MediaType, int64) ([]tmdb.Video, error) {
	return nil, nil
}

func (f *fakeTMDB) Credits(context.Context, tmdb.MediaType, int64) ([]tmdb.CastMember, error) {
	return nil, nil
}

func (f *fakeTMDB) ExternalIDs(_ context.Context, media tmdb.MediaType, id int64) (*tmdb.ExternalIDs, error) {
	if ids, ok := f.externalIDs[tmdbKey(media, id)]; ok {
		return ids, nil
	}
	return nil, errFakeNotFound
}

func (f *fakeTMDB) WatchProviders(_ context.Context, media tmdb.MediaType, id int64) (map[string]tmdb.RegionProviders, error) {
	if regions, ok := f.providers[tmdbKey(media, id)]; ok {
		return regions, nil
	}
	return nil, nil
}

func (f *fakeTMDB) ContentRating(context.Context, tmdb.MediaType, int64, string) (string, error) {
	return "", nil
}

func (f *fakeTMDB) Recommendations(_ context.Context, media tmdb.MediaType, id int64) ([]tmdb.Recommendation, error) {
	return f.recommendations[tmdbKey(media, id)], nil
}

type fakeOMDB struct {
	enabled bool
	ratings map[string]*omdb.CriticRatings
}

func (f *fakeOMDB) Enabled() bool { return f.enabled }

func (f *fakeOMDB) RatingsByIMDBID(_ context.Context, imdbID string) (*omdb.CriticRatings, error) {
	if ratings, ok := f.ratings[imdbID]; ok {
		return ratings, nil
	}
	return nil, errFakeNotFound
}

var (
	_ trakt.API = (*fakeTrakt)(nil)
	_ tmdb.API  = (*fakeTMDB)(nil)
	_ omdb.API  = (*fakeOMDB)(nil)
)

func showDetails(id int64, name string, genres ...string) *tmdb.Details {
	details := &tmdb.Details{
		ID:               id,
		Name:             name,
		OriginalName:     name,
		Overview:         "An example overview.",
		PosterPath:       "/poster.png",
		FirstAirDate:     "2024-03-01",
		Status:           "Returning Series",
		VoteAverage:      7.5,
		VoteCount:        1200,
		NumberOfSeasons:  2,
		NumberOfEpisodes: 16,
		EpisodeRunTime:   []int{45},
		OriginalLanguage: "en",
	}
	for i, genre := range genres {
		details.Genres = append(details.Genres, tmdb.Genre{ID: int64(i + 1), Name: genre})
	}
	return details
}
