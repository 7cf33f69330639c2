package backfill

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"trawl/internal/config"
	"trawl/internal/services/omdb"
	"trawl/internal/services/tmdb"
	"trawl/internal/store"
	"trawl/internal/testsupport"
)

type fakeOMDB struct {
	enabled bool
	ratings map[string]*omdb.CriticRatings
	calls   atomic.Int64
}

func (f *fakeOMDB) Enabled() bool { return f.enabled }

func (f *fakeOMDB) RatingsByIMDBID(_ context.Context, imdbID string) (*omdb.CriticRatings, error) {
	f.calls.Add(1)
	if ratings, ok := f.ratings[imdbID]; ok {
		return ratings, nil
	}
	return nil, errors.New("fake: not found")
}

type fakeTMDB struct {
	details        map[int64]*tmdb.Details
	externalIDs    map[int64]*tmdb.ExternalIDs
	videos         map[int64][]tmdb.Video
	providers      map[int64]map[string]tmdb.RegionProviders
	contentRatings map[int64]map[string]string
}

func (f *fakeTMDB) Details(_ context.Context, _ tmdb.MediaType, id int64) (*tmdb.Details, error) {
	if details, ok := f.details[id]; ok {
		return details, nil
	}
	return nil, errors.New("fake: not found")
}

func (f *fakeTMDB) Translation(context.Context, tmdb.MediaType, int64, string) (*tmdb.Translation, error) {
	return nil, errors.New("fake: no translation")
}

func (f *fakeTMDB) Videos(_ context.Context, _ tmdb.MediaType, id int64) ([]tmdb.Video, error) {
	return f.videos[id], nil
}

func (f *fakeTMDB) Credits(context.Context, tmdb.MediaType, int64) ([]tmdb.CastMember, error) {
	return nil, nil
}

func (f *fakeTMDB) ExternalIDs(_ context.Context, _ tmdb.MediaType, id int64) (*tmdb.ExternalIDs, error) {
	if ids, ok := f.externalIDs[id]; ok {
		return ids, nil
	}
	return nil, errors.New("fake: no external ids")
}

func (f *fakeTMDB) WatchProviders(_ context.Context, _ tmdb.MediaType, id int64) (map[string]tmdb.RegionProviders, error) {
	return f.providers[id], nil
}

func (f *fakeTMDB) ContentRating(_ context.Context, _ tmdb.MediaType, id int64, region string) (string, error) {
	return f.contentRatings[id][region], nil
}

func (f *fakeTMDB) Recommendations(context.Context, tmdb.MediaType, int64) ([]tmdb.Recommendation, error) {
	return nil, nil
}

var (
	_ omdb.API = (*fakeOMDB)(nil)
	_ tmdb.API = (*fakeTMDB)(nil)
)

func testConfig(t *testing.T) *config.Config {
	cfg := testsupport.NewConfig(t, testsupport.WithOMDBKey("test"))
	cfg.Retry.MaxRetries = 0
	cfg.Retry.BaseDelayMS = 1
	return cfg
}

func seedEntity(t *testing.T, st *store.Store, tmdbID int64, imdbID string) int64 {
	t.Helper()
	bundle := &store.EntityBundle{
		Entity: store.MediaEntity{
			Kind:          store.MediaShow,
			TMDBID:        tmdbID,
			IMDBID:        imdbID,
			Title:         "Seeded Show",
			Overview:      "An example overview.",
			TrendingScore: 40,
		},
		Watchers:   300,
		ObservedAt: time.Now().UTC(),
	}
	res, err := st.UpsertBundle(context.Background(), bundle)
	if err != nil {
		t.Fatalf("UpsertBundle: %v", err)
	}
	return res.EntityID
}

func TestRatingsSweepSkippedWithoutCriticSource(t *testing.T) {
	cfg := testConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	seedEntity(t, st, 100, "tt0100100")

	omdbAPI := &fakeOMDB{enabled: false}
	sweeper := NewSweeper(st, &fakeTMDB{}, omdbAPI, cfg, nil)

	stats, err := sweeper.Ratings(context.Background())
	if err != nil {
		t.Fatalf("Ratings: %v", err)
	}
	if stats.Scanned != 0 || stats.Updated != 0 {
		t.Fatalf("stats = %+v, want an untouched sweep", stats)
	}
	if omdbAPI.calls.Load() != 0 {
		t.Fatal("disabled critic source must never be queried")
	}
}

func TestRatingsSweepFillsCriticRatings(t *testing.T) {
	cfg := testConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	entityID := seedEntity(t, st, 100, "tt0100100")
	seedEntity(t, st, 200, "tt0200200")

	omdbAPI := &fakeOMDB{
		enabled: true,
		ratings: map[string]*omdb.CriticRatings{
			"tt0100100": {IMDBRating: 8.1, IMDBVotes: 150000, Metascore: 77},
			// tt0200200 is unknown to the critic source and fails.
		},
	}
	sweeper := NewSweeper(st, &fakeTMDB{}, omdbAPI, cfg, nil)

	stats, err := sweeper.Ratings(context.Background())
	if err != nil {
		t.Fatalf("Ratings: %v", err)
	}
	if stats.Scanned != 2 || stats.Updated != 1 || stats.Failed != 1 {
		t.Fatalf("stats = %+v, want 2 scanned, 1 updated, 1 failed", stats)
	}

	ratings, err := st.Ratings(context.Background(), entityID)
	if err != nil {
		t.Fatalf("Ratings read: %v", err)
	}
	if len(ratings) != 2 {
		t.Fatalf("rating rows = %d, want imdb and metascore", len(ratings))
	}

	// The backfilled entity leaves the candidate set.
	candidates, err := st.RatingsBackfillCandidates(context.Background(), 10)
	if err != nil {
		t.Fatalf("RatingsBackfillCandidates: %v", err)
	}
	if len(candidates) != 1 || candidates[0].IMDBID != "tt0200200" {
		t.Fatalf("candidates = %+v, want only the failed row", candidates)
	}
}

func TestMetadataSweepCompletesStubs(t *testing.T) {
	cfg := testConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	// Bootstrap a stub the way related linking does: title only.
	source := &store.EntityBundle{
		Entity: store.MediaEntity{
			Kind:   store.MediaShow,
			TMDBID: 100,
			Title:  "Source Show",
		},
		Related: []store.RelatedCandidate{
			{Kind: store.MediaShow, TMDBID: 201, Title: "Stub Show", Provenance: store.ProvenancePrimary},
		},
		ObservedAt: time.Now().UTC(),
	}
	if _, err := st.UpsertBundle(context.Background(), source); err != nil {
		t.Fatalf("UpsertBundle: %v", err)
	}

	tmdbAPI := &fakeTMDB{
		details: map[int64]*tmdb.Details{
			100: {ID: 100, Name: "Source Show", Overview: "Filled.", PosterPath: "/a.png"},
			201: {
				ID:               201,
				Name:             "Stub Show",
				Overview:         "Now complete.",
				Tagline:          "Still running.",
				PosterPath:       "/stub.png",
				BackdropPath:     "/stub-backdrop.png",
				Status:           "Returning Series",
				FirstAirDate:     "2023-01-05",
				NumberOfSeasons:  3,
				NumberOfEpisodes: 24,
				EpisodeRunTime:   []int{50},
				Genres:           []tmdb.Genre{{ID: 18, Name: "Drama"}},
				OriginalLanguage: "en",
			},
		},
		externalIDs: map[int64]*tmdb.ExternalIDs{
			201: {IMDBID: "tt0201201"},
		},
		videos: map[int64][]tmdb.Video{
			201: {{Site: "YouTube", Key: "stub-trailer", Name: "Trailer", Type: "Trailer", Official: true}},
		},
		providers: map[int64]map[string]tmdb.RegionProviders{
			201: {"US": {Flatrate: []tmdb.Provider{{ProviderID: 8, ProviderName: "StreamCo", LogoPath: "/s.png"}}}},
		},
		contentRatings: map[int64]map[string]string{
			201: {"US": "TV-14"},
		},
	}
	sweeper := NewSweeper(st, tmdbAPI, &fakeOMDB{}, cfg, nil)

	stats, err := sweeper.Metadata(context.Background())
	if err != nil {
		t.Fatalf("Metadata: %v", err)
	}
	if stats.Updated != stats.Scanned || stats.Failed != 0 {
		t.Fatalf("stats = %+v, want every candidate updated", stats)
	}

	stub, err := st.EntityByKey(context.Background(), store.MediaShow, 201)
	if err != nil {
		t.Fatalf("EntityByKey: %v", err)
	}
	if stub.Overview != "Now complete." || stub.PosterPath != "/stub.png" {
		t.Fatalf("stub not completed: %+v", stub)
	}
	if stub.Runtime != 50 || stub.SeasonCount != 3 {
		t.Fatalf("stub runtime/seasons = %d/%d", stub.Runtime, stub.SeasonCount)
	}
	if stub.IMDBID != "tt0201201" {
		t.Fatalf("stub imdb id = %q, want the cross-referenced id", stub.IMDBID)
	}
	if stub.BackdropPath != "/stub-backdrop.png" || stub.Status != "Returning Series" {
		t.Fatalf("stub backdrop/status = %q/%q", stub.BackdropPath, stub.Status)
	}

	videos, err := st.Videos(context.Background(), stub.ID)
	if err != nil {
		t.Fatalf("Videos: %v", err)
	}
	if len(videos) != 1 || videos[0].Key != "stub-trailer" {
		t.Fatalf("videos = %+v, want the fetched trailer stored", videos)
	}

	providers, err := st.WatchProviders(context.Background(), stub.ID)
	if err != nil {
		t.Fatalf("WatchProviders: %v", err)
	}
	if len(providers) != 1 || providers[0].Region != "US" || providers[0].ProviderID != 8 {
		t.Fatalf("providers = %+v, want the US flatrate offer stored", providers)
	}

	certifications, err := st.ContentRatings(context.Background(), stub.ID)
	if err != nil {
		t.Fatalf("ContentRatings: %v", err)
	}
	if len(certifications) != 1 || certifications[0].Rating != "TV-14" {
		t.Fatalf("content ratings = %+v, want the US certification stored", certifications)
	}

	// A completed stub leaves the metadata candidate set.
	candidates, err := st.MetadataBackfillCandidates(context.Background(), 10)
	if err != nil {
		t.Fatalf("MetadataBackfillCandidates: %v", err)
	}
	for _, candidate := range candidates {
		if candidate.TMDBID == 201 {
			t.Fatalf("completed stub still a candidate: %+v", candidate)
		}
	}
}
