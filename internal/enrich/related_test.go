package enrich

import (
	"context"
	"errors"
	"testing"
	"time"

	"trawl/internal/services/tmdb"
	"trawl/internal/services/trakt"
	"trawl/internal/store"
)

func testResolver(traktAPI *fakeTrakt, tmdbAPI *fakeTMDB) *Resolver {
	return &Resolver{
		Trakt:  traktAPI,
		TMDB:   tmdbAPI,
		Filter: NewFilter(nil, []string{"news"}),
		Limit:  12,
	}
}

func TestResolvePrefersSimilaritySource(t *testing.T) {
	traktAPI := &fakeTrakt{
		relatedShows: map[string][]trakt.Show{
			"base-show": {
				{Title: "Related A", IDs: trakt.IDs{TMDB: 201}},
				{Title: "Related B", IDs: trakt.IDs{TMDB: 202}},
			},
		},
	}
	tmdbAPI := &fakeTMDB{
		details: map[string]*tmdb.Details{
			tmdbKey(tmdb.MediaTypeShow, 201): showDetails(201, "Related A", "Drama"),
			tmdbKey(tmdb.MediaTypeShow, 202): showDetails(202, "Related B", "Drama"),
		},
		recommendations: map[string][]tmdb.Recommendation{
			tmdbKey(tmdb.MediaTypeShow, 100): {{ID: 900, Name: "Should not be used"}},
		},
	}
	resolver := testResolver(traktAPI, tmdbAPI)

	resolved, err := resolver.Resolve(context.Background(), store.MediaShow, "base-show", 100, []string{"Drama"}, NewCaches(16, time.Minute))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(resolved) != 2 {
		t.Fatalf("resolved = %d candidates, want 2", len(resolved))
	}
	for i, candidate := range resolved {
		if candidate.Provenance != store.ProvenancePrimary {
			t.Fatalf("candidate %d provenance = %q, want primary", i, candidate.Provenance)
		}
		if candidate.Rank != i+1 {
			t.Fatalf("candidate %d rank = %d", i, candidate.Rank)
		}
	}
}

func TestResolveFallsBackToRecommendations(t *testing.T) {
	// The similarity source is empty, so recommendations with matching
	// genres must come back with secondary provenance.
	traktAPI := &fakeTrakt{relatedShows: map[string][]trakt.Show{}}
	tmdbAPI := &fakeTMDB{
		details: map[string]*tmdb.Details{
			tmdbKey(tmdb.MediaTypeShow, 201): showDetails(201, "Rec A", "Drama"),
			tmdbKey(tmdb.MediaTypeShow, 204): showDetails(204, "Rec B", "Drama", "Crime"),
		},
		recommendations: map[string][]tmdb.Recommendation{
			tmdbKey(tmdb.MediaTypeShow, 100): {
				{ID: 201, Name: "Rec A"},
				{ID: 204, Name: "Rec B"},
			},
		},
	}
	resolver := testResolver(traktAPI, tmdbAPI)

	resolved, err := resolver.Resolve(context.Background(), store.MediaShow, "base-show", 100, []string{"Drama"}, NewCaches(16, time.Minute))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(resolved) != 2 {
		t.Fatalf("resolved = %d candidates, want 2", len(resolved))
	}
	if resolved[0].TMDBID != 201 || resolved[1].TMDBID != 204 {
		t.Fatalf("resolved ids = %d, %d", resolved[0].TMDBID, resolved[1].TMDBID)
	}
	for _, candidate := range resolved {
		if candidate.Provenance != store.ProvenanceSecondary {
			t.Fatalf("fallback provenance = %q, want secondary", candidate.Provenance)
		}
	}
}

func TestResolveFallsBackWhenSimilarityFails(t *testing.T) {
	traktAPI := &fakeTrakt{relatedErr: errors.New("trakt down")}
	tmdbAPI := &fakeTMDB{
		details: map[string]*tmdb.Details{
			tmdbKey(tmdb.MediaTypeShow, 201): showDetails(201, "Rec A", "Drama"),
		},
		recommendations: map[string][]tmdb.Recommendation{
			tmdbKey(tmdb.MediaTypeShow, 100): {{ID: 201, Name: "Rec A"}},
		},
	}
	resolver := testResolver(traktAPI, tmdbAPI)

	resolved, err := resolver.Resolve(context.Background(), store.MediaShow, "base-show", 100, []string{"Drama"}, NewCaches(16, time.Minute))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(resolved) != 1 || resolved[0].Provenance != store.ProvenanceSecondary {
		t.Fatalf("resolved = %+v, want one secondary candidate", resolved)
	}
}

func TestResolveFiltersByGenre(t *testing.T) {
	traktAPI := &fakeTrakt{
		relatedShows: map[string][]trakt.Show{
			"base-show": {
				{Title: "Matching", IDs: trakt.IDs{TMDB: 201}},
				{Title: "Disjoint", IDs: trakt.IDs{TMDB: 202}},
				{Title: "Denylisted", IDs: trakt.IDs{TMDB: 203}},
				{Title: "Unknown", IDs: trakt.IDs{TMDB: 204}},
			},
		},
	}
	tmdbAPI := &fakeTMDB{
		details: map[string]*tmdb.Details{
			tmdbKey(tmdb.MediaTypeShow, 201): showDetails(201, "Matching", "Drama"),
			tmdbKey(tmdb.MediaTypeShow, 202): showDetails(202, "Disjoint", "Comedy"),
			tmdbKey(tmdb.MediaTypeShow, 203): showDetails(203, "Denylisted", "Drama", "News"),
		},
		// 204 has no details: its genre lookup fails and it is kept.
	}
	resolver := testResolver(traktAPI, tmdbAPI)

	resolved, err := resolver.Resolve(context.Background(), store.MediaShow, "base-show", 100, []string{"Drama"}, NewCaches(16, time.Minute))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(resolved) != 2 {
		t.Fatalf("resolved = %+v, want Matching and Unknown", resolved)
	}
	if resolved[0].TMDBID != 201 || resolved[1].TMDBID != 204 {
		t.Fatalf("resolved ids = %d, %d, want 201 and 204", resolved[0].TMDBID, resolved[1].TMDBID)
	}
	if resolved[1].Rank != 2 {
		t.Fatalf("ranks must be dense after filtering, got %d", resolved[1].Rank)
	}
}

func TestResolveCapsAtLimit(t *testing.T) {
	var shows []trakt.Show
	details := make(map[string]*tmdb.Details)
	for i := range 20 {
		id := int64(200 + i)
		shows = append(shows, trakt.Show{Title: "Related", IDs: trakt.IDs{TMDB: id}})
		details[tmdbKey(tmdb.MediaTypeShow, id)] = showDetails(id, "Related", "Drama")
	}
	resolver := testResolver(
		&fakeTrakt{relatedShows: map[string][]trakt.Show{"base-show": shows}},
		&fakeTMDB{details: details},
	)
	resolver.Limit = 5

	resolved, err := resolver.Resolve(context.Background(), store.MediaShow, "base-show", 100, []string{"Drama"}, NewCaches(32, time.Minute))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(resolved) != 5 {
		t.Fatalf("resolved = %d candidates, want the limit of 5", len(resolved))
	}
}

func TestResolveCachesCandidateGenres(t *testing.T) {
	tmdbAPI := &fakeTMDB{
		details: map[string]*tmdb.Details{
			tmdbKey(tmdb.MediaTypeShow, 201): showDetails(201, "Related", "Drama"),
		},
	}
	resolver := testResolver(
		&fakeTrakt{relatedShows: map[string][]trakt.Show{
			"base-show": {{Title: "Related", IDs: trakt.IDs{TMDB: 201}}},
		}},
		tmdbAPI,
	)
	caches := NewCaches(16, time.Minute)

	for range 3 {
		if _, err := resolver.Resolve(context.Background(), store.MediaShow, "base-show", 100, []string{"Drama"}, caches); err != nil {
			t.Fatalf("Resolve: %v", err)
		}
	}
	if tmdbAPI.detailsCalls != 1 {
		t.Fatalf("genre details fetched %d times, want 1 (cached)", tmdbAPI.detailsCalls)
	}
}
