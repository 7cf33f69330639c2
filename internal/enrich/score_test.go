package enrich

import (
	"testing"

	"trawl/internal/store"
)

func TestTrendingScore(t *testing.T) {
	cases := []struct {
		name        string
		rating      float64
		watchers    int64
		maxWatchers int64
		want        float64
	}{
		{"peak on both axes", 10, 1000, 1000, 100},
		{"midpoint rating only", 5, 0, 1000, 35},
		{"watchers only", 0, 500, 1000, 15},
		{"no batch peak drops the watcher term", 8, 500, 0, 56},
		{"rating clamped above ten", 12, 0, 1000, 70},
		{"negative rating clamped to zero", -3, 0, 1000, 0},
		{"watchers clamped to the peak", 0, 2000, 1000, 30},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := TrendingScore(tc.rating, tc.watchers, tc.maxWatchers); got != tc.want {
				t.Fatalf("TrendingScore(%v, %d, %d) = %v, want %v", tc.rating, tc.watchers, tc.maxWatchers, got, tc.want)
			}
		})
	}
}

func TestTrendingScoreMonotonicInWatchers(t *testing.T) {
	prev := -1.0
	for watchers := int64(0); watchers <= 1000; watchers += 100 {
		score := TrendingScore(7, watchers, 1000)
		if score < prev {
			t.Fatalf("score dropped from %v to %v at watchers=%d", prev, score, watchers)
		}
		prev = score
	}
}

func TestWatchersDelta(t *testing.T) {
	if got := WatchersDelta(500, 0, false); got != 0 {
		t.Fatalf("delta without prior = %d, want 0", got)
	}
	if got := WatchersDelta(500, 300, true); got != 200 {
		t.Fatalf("delta = %d, want 200", got)
	}
	if got := WatchersDelta(300, 500, true); got != -200 {
		t.Fatalf("falling delta = %d, want -200", got)
	}
}

func TestDelta3MFromMonthlyMaxima(t *testing.T) {
	monthly := []map[int64]int64{
		{1: 900}, {1: 800}, {1: 700}, // recent window: 2400
		{1: 500}, {1: 400}, {1: 300}, // prior window: 1200
	}
	if got := Delta3M(1, monthly, nil); got != 1200 {
		t.Fatalf("Delta3M = %d, want 1200", got)
	}
}

func TestDelta3MMissingMonthsCountAsZero(t *testing.T) {
	monthly := []map[int64]int64{
		{1: 900}, {}, {}, {}, {}, {},
	}
	if got := Delta3M(1, monthly, nil); got != 900 {
		t.Fatalf("Delta3M = %d, want 900", got)
	}
}

func TestDelta3MFallsBackToSnapshots(t *testing.T) {
	// Monthly windows cancel exactly, so the snapshot fallback decides.
	monthly := []map[int64]int64{
		{1: 400}, {}, {}, {1: 400}, {}, {},
	}
	snapshots := []store.WatcherSnapshot{
		{Watchers: 600}, {Watchers: 500}, {Watchers: 400},
		{Watchers: 300}, {Watchers: 200}, {Watchers: 100},
	}
	if got := Delta3M(1, monthly, snapshots); got != 900 {
		t.Fatalf("Delta3M fallback = %d, want 900", got)
	}
}

func TestPrimaryRating(t *testing.T) {
	if got := PrimaryRating(7.5, 8.0, 6.0); got != 7.5 {
		t.Fatalf("catalog rating should win, got %v", got)
	}
	if got := PrimaryRating(0, 8.0, 6.0); got != 8.0 {
		t.Fatalf("community rating should be second, got %v", got)
	}
	if got := PrimaryRating(0, 0, 6.0); got != 6.0 {
		t.Fatalf("critic rating should be last, got %v", got)
	}
	if got := PrimaryRating(0, 0, 0); got != 0 {
		t.Fatalf("all-zero input should stay zero, got %v", got)
	}
}
