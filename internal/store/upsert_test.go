package store_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"trawl/internal/store"
	"trawl/internal/testsupport"
)

func showBundle(tmdbID int64, watchers int64) *store.EntityBundle {
	return &store.EntityBundle{
		Entity: store.MediaEntity{
			Kind:          store.MediaShow,
			TMDBID:        tmdbID,
			TraktID:       tmdbID + 1000,
			Title:         fmt.Sprintf("Show %d", tmdbID),
			Overview:      "An example overview.",
			Genres:        []string{"drama"},
			VoteAverage:   7.5,
			VoteCount:     1200,
			Watchers:      watchers,
			TrendingScore: 61,
			PrimaryRating: 7.5,
		},
		Watchers:   watchers,
		ObservedAt: time.Now().UTC(),
	}
}

func TestUpsertBundleCreatesThenUpdates(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	first, err := st.UpsertBundle(ctx, showBundle(100, 500))
	if err != nil {
		t.Fatalf("UpsertBundle: %v", err)
	}
	if !first.Created {
		t.Fatal("first upsert should create the entity")
	}
	if !first.SnapshotWritten {
		t.Fatal("first upsert should record a watcher snapshot")
	}

	bundle := showBundle(100, 750)
	bundle.Entity.Title = "Show 100 (renamed)"
	second, err := st.UpsertBundle(ctx, bundle)
	if err != nil {
		t.Fatalf("UpsertBundle rerun: %v", err)
	}
	if second.Created {
		t.Fatal("second upsert must update, not create")
	}
	if second.EntityID != first.EntityID {
		t.Fatalf("entity id changed across upserts: %d != %d", second.EntityID, first.EntityID)
	}

	entity, err := st.EntityByKey(ctx, store.MediaShow, 100)
	if err != nil {
		t.Fatalf("EntityByKey: %v", err)
	}
	if entity == nil {
		t.Fatal("entity missing after upsert")
	}
	if entity.Title != "Show 100 (renamed)" {
		t.Fatalf("title = %q", entity.Title)
	}
	if entity.Watchers != 750 {
		t.Fatalf("watchers = %d, want 750", entity.Watchers)
	}
}

func TestSnapshotOnlyWrittenOnChange(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	res, err := st.UpsertBundle(ctx, showBundle(100, 500))
	if err != nil {
		t.Fatalf("UpsertBundle: %v", err)
	}

	// Same watcher count: no new snapshot row.
	same, err := st.UpsertBundle(ctx, showBundle(100, 500))
	if err != nil {
		t.Fatalf("UpsertBundle same: %v", err)
	}
	if same.SnapshotWritten {
		t.Fatal("unchanged watcher count must not append a snapshot")
	}

	changed, err := st.UpsertBundle(ctx, showBundle(100, 501))
	if err != nil {
		t.Fatalf("UpsertBundle changed: %v", err)
	}
	if !changed.SnapshotWritten {
		t.Fatal("changed watcher count must append a snapshot")
	}

	snapshots, err := st.RecentSnapshots(ctx, res.EntityID, 10)
	if err != nil {
		t.Fatalf("RecentSnapshots: %v", err)
	}
	if len(snapshots) != 2 {
		t.Fatalf("snapshot rows = %d, want 2", len(snapshots))
	}
	if snapshots[0].Watchers != 501 || snapshots[1].Watchers != 500 {
		t.Fatalf("snapshots out of order: %d, %d", snapshots[0].Watchers, snapshots[1].Watchers)
	}

	latest, ok, err := st.LatestWatcherValue(ctx, res.EntityID)
	if err != nil {
		t.Fatalf("LatestWatcherValue: %v", err)
	}
	if !ok || latest != 501 {
		t.Fatalf("latest = %d ok=%v, want 501 true", latest, ok)
	}
}

func TestUpsertBundleReplacesRatings(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	bundle := showBundle(100, 500)
	bundle.CommunityRating = &store.Rating{Source: store.RatingSourceCommunity, Avg: 8.1, Votes: 9000}
	res, err := st.UpsertBundle(ctx, bundle)
	if err != nil {
		t.Fatalf("UpsertBundle: %v", err)
	}

	bundle = showBundle(100, 500)
	bundle.CommunityRating = &store.Rating{Source: store.RatingSourceCommunity, Avg: 8.3, Votes: 9500}
	if _, err := st.UpsertBundle(ctx, bundle); err != nil {
		t.Fatalf("UpsertBundle rerun: %v", err)
	}

	ratings, err := st.Ratings(ctx, res.EntityID)
	if err != nil {
		t.Fatalf("Ratings: %v", err)
	}
	if len(ratings) != 1 {
		t.Fatalf("rating rows = %d, want 1", len(ratings))
	}
	if ratings[0].Avg != 8.3 || ratings[0].Votes != 9500 {
		t.Fatalf("rating = %+v, want updated values", ratings[0])
	}
}

func TestLinkRelatedBootstrapsStubs(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	bundle := showBundle(100, 500)
	bundle.Related = []store.RelatedCandidate{
		{Kind: store.MediaShow, TMDBID: 201, Title: "Related A", Provenance: store.ProvenancePrimary, Rank: 1},
		{Kind: store.MediaShow, TMDBID: 202, Title: "Related B", Provenance: store.ProvenancePrimary, Rank: 2},
	}
	res, err := st.UpsertBundle(ctx, bundle)
	if err != nil {
		t.Fatalf("UpsertBundle: %v", err)
	}
	if res.RelatedLinked != 2 {
		t.Fatalf("linked = %d, want 2", res.RelatedLinked)
	}

	stub, err := st.EntityByKey(ctx, store.MediaShow, 201)
	if err != nil {
		t.Fatalf("EntityByKey stub: %v", err)
	}
	if stub == nil {
		t.Fatal("related stub was not bootstrapped")
	}
	if stub.Title != "Related A" {
		t.Fatalf("stub title = %q", stub.Title)
	}
	if stub.TrendingScore != 0 {
		t.Fatalf("stub should carry no trending score, got %v", stub.TrendingScore)
	}

	links, err := st.RelatedLinks(ctx, res.EntityID)
	if err != nil {
		t.Fatalf("RelatedLinks: %v", err)
	}
	if len(links) != 2 {
		t.Fatalf("link rows = %d, want 2", len(links))
	}
	if links[0].Rank != 1 || links[0].Provenance != store.ProvenancePrimary {
		t.Fatalf("first link = %+v", links[0])
	}
}

func TestLinkRelatedCapsSkipsSelfAndDuplicates(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	bundle := showBundle(100, 500)
	// Self-link, a duplicate, and more unique candidates than the cap allows.
	bundle.Related = append(bundle.Related, store.RelatedCandidate{
		Kind: store.MediaShow, TMDBID: 100, Title: "Self", Provenance: store.ProvenancePrimary,
	})
	for i := range 15 {
		bundle.Related = append(bundle.Related, store.RelatedCandidate{
			Kind:       store.MediaShow,
			TMDBID:     int64(300 + i),
			Title:      fmt.Sprintf("Related %d", i),
			Provenance: store.ProvenanceSecondary,
		})
	}
	bundle.Related = append(bundle.Related, store.RelatedCandidate{
		Kind: store.MediaShow, TMDBID: 300, Title: "Duplicate", Provenance: store.ProvenanceSecondary,
	})

	res, err := st.UpsertBundle(ctx, bundle)
	if err != nil {
		t.Fatalf("UpsertBundle: %v", err)
	}
	if res.RelatedLinked != 12 {
		t.Fatalf("linked = %d, want the cap of 12", res.RelatedLinked)
	}

	links, err := st.RelatedLinks(ctx, res.EntityID)
	if err != nil {
		t.Fatalf("RelatedLinks: %v", err)
	}
	if len(links) != 12 {
		t.Fatalf("link rows = %d, want 12", len(links))
	}
	for _, link := range links {
		if link.RelatedID == res.EntityID {
			t.Fatal("self-link persisted")
		}
	}
}

// Re-linking an existing pair must leave the stored edge untouched: links
// are insert-only, so the first resolution's provenance and rank survive
// later syncs that resolve the same pair differently.
func TestLinkRelatedKeepsExistingLinks(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	bundle := showBundle(100, 500)
	bundle.Related = []store.RelatedCandidate{
		{Kind: store.MediaShow, TMDBID: 201, Title: "Related A", Provenance: store.ProvenancePrimary, Rank: 1},
	}
	first, err := st.UpsertBundle(ctx, bundle)
	if err != nil {
		t.Fatalf("UpsertBundle: %v", err)
	}
	if first.RelatedLinked != 1 {
		t.Fatalf("linked = %d, want 1", first.RelatedLinked)
	}

	rerun := showBundle(100, 500)
	rerun.Related = []store.RelatedCandidate{
		{Kind: store.MediaShow, TMDBID: 201, Title: "Related A", Provenance: store.ProvenanceSecondary, Rank: 5},
	}
	second, err := st.UpsertBundle(ctx, rerun)
	if err != nil {
		t.Fatalf("UpsertBundle rerun: %v", err)
	}
	if second.RelatedLinked != 0 {
		t.Fatalf("rerun linked = %d, an existing pair must not count as a new link", second.RelatedLinked)
	}

	links, err := st.RelatedLinks(ctx, first.EntityID)
	if err != nil {
		t.Fatalf("RelatedLinks: %v", err)
	}
	if len(links) != 1 {
		t.Fatalf("link rows = %d, want 1", len(links))
	}
	if links[0].Provenance != store.ProvenancePrimary || links[0].Rank != 1 {
		t.Fatalf("link = %+v, want the original provenance and rank kept", links[0])
	}
}

func TestUpsertBundleReplacesSatelliteRows(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	bundle := showBundle(100, 500)
	bundle.ProviderInfos = []store.ProviderInfo{{ProviderID: 8, Name: "StreamCo", LogoPath: "/s.png"}}
	bundle.Providers = []store.WatchProvider{
		{Region: "US", ProviderID: 8, Category: "flatrate"},
		{Region: "DE", ProviderID: 8, Category: "flatrate"},
	}
	bundle.ContentRatings = []store.ContentRating{{Region: "US", Rating: "TV-MA"}}
	res, err := st.UpsertBundle(ctx, bundle)
	if err != nil {
		t.Fatalf("UpsertBundle: %v", err)
	}

	// Re-upsert with a shrunken provider set: stale rows must be gone.
	bundle = showBundle(100, 500)
	bundle.ProviderInfos = []store.ProviderInfo{{ProviderID: 8, Name: "StreamCo", LogoPath: "/s.png"}}
	bundle.Providers = []store.WatchProvider{{Region: "US", ProviderID: 8, Category: "flatrate"}}
	if _, err := st.UpsertBundle(ctx, bundle); err != nil {
		t.Fatalf("UpsertBundle rerun: %v", err)
	}

	providers, err := st.WatchProviders(ctx, res.EntityID)
	if err != nil {
		t.Fatalf("WatchProviders: %v", err)
	}
	if len(providers) != 1 {
		t.Fatalf("provider rows = %d, want the stale DE row removed", len(providers))
	}
	if providers[0].Region != "US" || providers[0].ProviderID != 8 {
		t.Fatalf("surviving provider = %+v", providers[0])
	}
}
