package store

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// JobKind identifies the batch job family a SyncJob belongs to.
type JobKind string

const (
	JobTrendingShows    JobKind = "trending-shows"
	JobTrendingMovies   JobKind = "trending-movies"
	JobCalendar         JobKind = "calendar"
	JobBackfillRatings  JobKind = "backfill-ratings"
	JobBackfillMetadata JobKind = "backfill-metadata"
)

// MediaKind distinguishes shows from movies.
type MediaKind string

const (
	MediaShow  MediaKind = "show"
	MediaMovie MediaKind = "movie"
)

// CacheKey builds the canonical per-entity cache key for this kind.
func (k MediaKind) CacheKey(tmdbID int64) string {
	return fmt.Sprintf("%s:%d", k, tmdbID)
}

// JobStatus represents the lifecycle of a sync job. No code path writes a
// terminal status; jobs stay "running" for external monitoring to interpret.
type JobStatus string

const JobStatusRunning JobStatus = "running"

// TaskStatus represents the lifecycle of a sync task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskProcessing TaskStatus = "processing"
	TaskDone       TaskStatus = "done"
	TaskError      TaskStatus = "error"
)

// SyncJob is one batch run and its enqueue stats.
type SyncJob struct {
	ID              int64
	Kind            JobKind
	Status          JobStatus
	TrendingFetched int
	TasksQueued     int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TrendingPayload is the task payload variant for trending jobs: the watcher
// count and the upstream entity stub captured at enqueue time.
type TrendingPayload struct {
	Watchers int64  `json:"watchers"`
	Title    string `json:"title"`
	Year     int    `json:"year"`
	TraktID  int64  `json:"trakt_id"`
	TMDBID   int64  `json:"tmdb_id"`
	IMDBID   string `json:"imdb_id,omitempty"`
	Slug     string `json:"slug,omitempty"`
}

// TaskPayload is a tagged union keyed by job kind; only the variant matching
// the kind is populated.
type TaskPayload struct {
	Kind     JobKind          `json:"kind"`
	Trending *TrendingPayload `json:"trending,omitempty"`
}

// EncodePayload serializes a payload for storage.
func EncodePayload(payload TaskPayload) (string, error) {
	if payload.Kind == "" {
		return "", fmt.Errorf("payload kind is required")
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal task payload: %w", err)
	}
	return string(encoded), nil
}

// DecodePayload parses a stored payload.
func DecodePayload(raw string) (TaskPayload, error) {
	var payload TaskPayload
	if strings.TrimSpace(raw) == "" {
		return payload, fmt.Errorf("task payload is empty")
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return payload, fmt.Errorf("unmarshal task payload: %w", err)
	}
	return payload, nil
}

// SyncTask is the queue unit of work: one entity within one job.
type SyncTask struct {
	ID         int64
	JobID      int64
	ExternalID int64
	PayloadRaw string
	Status     TaskStatus
	Attempts   int
	LastError  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Payload decodes the task's stored payload.
func (t *SyncTask) Payload() (TaskPayload, error) {
	return DecodePayload(t.PayloadRaw)
}

// MediaEntity is the canonical record for one show or movie. The natural key
// is (Kind, TMDBID).
type MediaEntity struct {
	ID               int64
	Kind             MediaKind
	TMDBID           int64
	TraktID          int64
	IMDBID           string
	Slug             string
	Title            string
	OriginalTitle    string
	LocalTitle       string
	Overview         string
	Tagline          string
	PosterPath       string
	BackdropPath     string
	Status           string
	FirstAirDate     string
	Runtime          int
	SeasonCount      int
	EpisodeCount     int
	Genres           []string
	Network          string
	OriginalLanguage string
	VoteAverage      float64
	VoteCount        int64
	Watchers         int64
	TrendingScore    float64
	WatchersDelta    int64
	Delta3M          int64
	PrimaryRating    float64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Rating sources persisted in the ratings table.
const (
	RatingSourceCommunity = "trakt"
	RatingSourceIMDB      = "imdb"
	RatingSourceMetascore = "metascore"
)

// Rating is one per-source rating aggregate for an entity.
type Rating struct {
	EntityID int64
	Source   string
	Avg      float64
	Votes    int64
}

// ProviderInfo is the global registry row for one watch provider, independent
// of any entity.
type ProviderInfo struct {
	ProviderID int64
	Name       string
	LogoPath   string
	Slug       string
}

// WatchProvider links an entity to a provider offer in one region.
type WatchProvider struct {
	Region     string
	ProviderID int64
	Category   string
}

// ContentRating is the certification for one region.
type ContentRating struct {
	Region string
	Rating string
}

// CastMember is one cast credit for an entity.
type CastMember struct {
	PersonID    int64
	Character   string
	Name        string
	ProfilePath string
	Order       int
}

// Video is one trailer/teaser entry for an entity.
type Video struct {
	Site        string
	Key         string
	Name        string
	Type        string
	Official    bool
	PublishedAt string
}

// WatcherSnapshot is one sample of the watcher-count time series.
type WatcherSnapshot struct {
	ID         int64
	EntityID   int64
	Watchers   int64
	RecordedAt time.Time
}

// Related-link provenance values.
const (
	ProvenancePrimary   = "trakt"
	ProvenanceSecondary = "tmdb"
)

// RelatedCandidate describes one related entity to bootstrap and link.
type RelatedCandidate struct {
	Kind       MediaKind
	TMDBID     int64
	Title      string
	Provenance string
	Rank       int
}

// RelatedLink is one persisted related-entity edge.
type RelatedLink struct {
	SourceID   int64
	RelatedID  int64
	Provenance string
	Rank       int
}

// Airing is one upcoming episode airing, linked to an entity when one exists.
type Airing struct {
	ID         int64
	ShowTMDBID int64
	EntityID   *int64
	Season     int
	Episode    int
	Title      string
	Network    string
	AirDate    time.Time
}

// EntityBundle is everything the enrichment pipeline produced for one entity,
// persisted atomically by UpsertBundle.
type EntityBundle struct {
	Entity          MediaEntity
	CommunityRating *Rating
	RatingBuckets   map[int]int64
	CriticRatings   []Rating
	ProviderInfos   []ProviderInfo
	Providers       []WatchProvider
	ContentRatings  []ContentRating
	Cast            []CastMember
	Videos          []Video
	Watchers        int64
	ObservedAt      time.Time
	Related         []RelatedCandidate
}

func encodeGenres(genres []string) string {
	if len(genres) == 0 {
		return ""
	}
	encoded, err := json.Marshal(genres)
	if err != nil {
		return ""
	}
	return string(encoded)
}

func decodeGenres(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var genres []string
	if err := json.Unmarshal([]byte(raw), &genres); err != nil {
		return nil
	}
	return genres
}
