package enrich

import (
	"math"

	"trawl/internal/store"
)

const (
	ratingWeight   = 70.0
	watchersWeight = 30.0
)

// TrendingScore blends a 0-10 rating with a watcher count normalized against
// the batch's peak into a 0-100 score. Monotonic in both inputs.
func TrendingScore(rating float64, watchers, maxWatchers int64) float64 {
	if rating < 0 {
		rating = 0
	}
	if rating > 10 {
		rating = 10
	}
	ratio := 0.0
	if maxWatchers > 0 {
		ratio = float64(watchers) / float64(maxWatchers)
		if ratio > 1 {
			ratio = 1
		}
	}
	return math.Round(rating/10*ratingWeight + ratio*watchersWeight)
}

// WatchersDelta is the change against the previously stored watcher value.
// Without a prior snapshot the delta is zero, not the full count.
func WatchersDelta(current int64, previous int64, hasPrevious bool) int64 {
	if !hasPrevious {
		return 0
	}
	return current - previous
}

// Delta3M computes the 3-month trend delta from six precomputed monthly
// maximum maps, most recent month first: the sum of the three recent months
// minus the sum of the three before them. When that figure is exactly zero
// the monthly data is treated as degenerate and the six most recent persisted
// snapshots are summed in two windows of three instead.
func Delta3M(entityID int64, monthly []map[int64]int64, snapshots []store.WatcherSnapshot) int64 {
	var recent, prior int64
	for i, month := range monthly {
		value := month[entityID]
		switch {
		case i < 3:
			recent += value
		case i < 6:
			prior += value
		}
	}
	if delta := recent - prior; delta != 0 {
		return delta
	}

	recent, prior = 0, 0
	for i, snapshot := range snapshots {
		switch {
		case i < 3:
			recent += snapshot.Watchers
		case i < 6:
			prior += snapshot.Watchers
		}
	}
	return recent - prior
}

// PrimaryRating picks the first available rating by source priority:
// catalog vote average, then the community aggregate, then the critic rating.
func PrimaryRating(catalog, community, critic float64) float64 {
	switch {
	case catalog > 0:
		return catalog
	case community > 0:
		return community
	default:
		return critic
	}
}
