package enrich

import (
	"time"

	"trawl/internal/memocache"
	"trawl/internal/services/omdb"
	"trawl/internal/services/tmdb"
	"trawl/internal/services/trakt"
)

// Caches bundles the per-run memoizing caches shared by every entity pipeline
// in one batch. A fresh set is built per processor run and discarded with it.
type Caches struct {
	Details      *memocache.Cache[*tmdb.Details]
	Translations *memocache.Cache[*tmdb.Translation]
	ExternalIDs  *memocache.Cache[*tmdb.ExternalIDs]
	Community    *memocache.Cache[*trakt.Ratings]
	Critic       *memocache.Cache[*omdb.CriticRatings]
	Genres       *memocache.Cache[[]string]
}

// NewCaches builds a cache set sized by capacity with a shared default TTL.
func NewCaches(capacity int, ttl time.Duration) *Caches {
	return &Caches{
		Details:      memocache.New[*tmdb.Details](capacity, ttl),
		Translations: memocache.New[*tmdb.Translation](capacity, ttl),
		ExternalIDs:  memocache.New[*tmdb.ExternalIDs](capacity, ttl),
		Community:    memocache.New[*trakt.Ratings](capacity, ttl),
		Critic:       memocache.New[*omdb.CriticRatings](capacity, ttl),
		Genres:       memocache.New[[]string](capacity, ttl),
	}
}
