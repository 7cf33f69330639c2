package store_test

import (
	"context"
	"testing"
	"time"

	"trawl/internal/store"
	"trawl/internal/testsupport"
)

func TestEntityByKeyMissingReturnsNil(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))

	entity, err := st.EntityByKey(context.Background(), store.MediaMovie, 999)
	if err != nil {
		t.Fatalf("EntityByKey: %v", err)
	}
	if entity != nil {
		t.Fatalf("expected nil for missing entity, got %+v", entity)
	}
}

func TestMonthlyWatcherMaxima(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	now := time.Now().UTC()
	thisMonth := time.Date(now.Year(), now.Month(), 15, 12, 0, 0, 0, time.UTC)
	lastMonth := thisMonth.AddDate(0, -1, 0)

	bundle := showBundle(100, 600)
	bundle.ObservedAt = lastMonth
	res, err := st.UpsertBundle(ctx, bundle)
	if err != nil {
		t.Fatalf("UpsertBundle: %v", err)
	}

	bundle = showBundle(100, 500)
	bundle.ObservedAt = thisMonth
	if _, err := st.UpsertBundle(ctx, bundle); err != nil {
		t.Fatalf("UpsertBundle: %v", err)
	}
	bundle = showBundle(100, 700)
	bundle.ObservedAt = thisMonth.Add(time.Hour)
	if _, err := st.UpsertBundle(ctx, bundle); err != nil {
		t.Fatalf("UpsertBundle: %v", err)
	}

	monthly, err := st.MonthlyWatcherMaxima(ctx, 3)
	if err != nil {
		t.Fatalf("MonthlyWatcherMaxima: %v", err)
	}
	if len(monthly) != 3 {
		t.Fatalf("got %d months, want 3", len(monthly))
	}
	if got := monthly[0][res.EntityID]; got != 700 {
		t.Fatalf("current month max = %d, want 700", got)
	}
	if got := monthly[1][res.EntityID]; got != 600 {
		t.Fatalf("previous month max = %d, want 600", got)
	}
	if len(monthly[2]) != 0 {
		t.Fatalf("month with no samples should be empty, got %v", monthly[2])
	}
}

func TestEligibleShowIDs(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	// Trending with a community rating: eligible.
	eligible := showBundle(100, 500)
	eligible.CommunityRating = &store.Rating{Source: store.RatingSourceCommunity, Avg: 8.0, Votes: 100}
	eligibleRes, err := st.UpsertBundle(ctx, eligible)
	if err != nil {
		t.Fatalf("UpsertBundle: %v", err)
	}

	// Trending but never rated by the community: not eligible.
	unrated := showBundle(200, 400)
	if _, err := st.UpsertBundle(ctx, unrated); err != nil {
		t.Fatalf("UpsertBundle: %v", err)
	}

	// Rated but with no trend signal: not eligible.
	cold := showBundle(300, 0)
	cold.Entity.TrendingScore = 0
	cold.CommunityRating = &store.Rating{Source: store.RatingSourceCommunity, Avg: 7.0, Votes: 50}
	if _, err := st.UpsertBundle(ctx, cold); err != nil {
		t.Fatalf("UpsertBundle: %v", err)
	}

	// A movie never qualifies for the calendar.
	movie := showBundle(100, 500)
	movie.Entity.Kind = store.MediaMovie
	movie.CommunityRating = &store.Rating{Source: store.RatingSourceCommunity, Avg: 8.0, Votes: 100}
	if _, err := st.UpsertBundle(ctx, movie); err != nil {
		t.Fatalf("UpsertBundle: %v", err)
	}

	ids, err := st.EligibleShowIDs(ctx)
	if err != nil {
		t.Fatalf("EligibleShowIDs: %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("eligible set = %v, want exactly one show", ids)
	}
	if ids[100] != eligibleRes.EntityID {
		t.Fatalf("ids[100] = %d, want %d", ids[100], eligibleRes.EntityID)
	}
}
