package config

import (
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeClients()
	c.normalizeSync()
	c.normalizeCalendar()
	c.normalizeLimits()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	dataDir, err := expandPath(c.Paths.DataDir)
	if err != nil {
		return err
	}
	c.Paths.DataDir = dataDir

	logDir, err := expandPath(c.Paths.LogDir)
	if err != nil {
		return err
	}
	c.Paths.LogDir = logDir
	return nil
}

func (c *Config) normalizeClients() {
	if key := strings.TrimSpace(os.Getenv("TRAKT_API_KEY")); key != "" {
		c.Trakt.APIKey = key
	}
	if key := strings.TrimSpace(os.Getenv("TMDB_API_KEY")); key != "" {
		c.TMDB.APIKey = key
	}
	if key := strings.TrimSpace(os.Getenv("OMDB_API_KEY")); key != "" {
		c.OMDB.APIKey = key
	}

	c.Trakt.APIKey = strings.TrimSpace(c.Trakt.APIKey)
	c.Trakt.BaseURL = strings.TrimRight(strings.TrimSpace(c.Trakt.BaseURL), "/")
	if c.Trakt.BaseURL == "" {
		c.Trakt.BaseURL = defaultTraktBaseURL
	}

	c.TMDB.APIKey = strings.TrimSpace(c.TMDB.APIKey)
	c.TMDB.BaseURL = strings.TrimRight(strings.TrimSpace(c.TMDB.BaseURL), "/")
	if c.TMDB.BaseURL == "" {
		c.TMDB.BaseURL = defaultTMDBBaseURL
	}
	c.TMDB.Language = strings.TrimSpace(c.TMDB.Language)
	if c.TMDB.Language == "" {
		c.TMDB.Language = defaultTMDBLanguage
	}

	c.OMDB.APIKey = strings.TrimSpace(c.OMDB.APIKey)
	c.OMDB.BaseURL = strings.TrimRight(strings.TrimSpace(c.OMDB.BaseURL), "/")
	if c.OMDB.BaseURL == "" {
		c.OMDB.BaseURL = defaultOMDBBaseURL
	}
}

func (c *Config) normalizeSync() {
	if c.Sync.TrendingBatch <= 0 {
		c.Sync.TrendingBatch = defaultTrendingBatch
	}
	if c.Sync.TaskBatch <= 0 {
		c.Sync.TaskBatch = defaultTaskBatch
	}
	if c.Sync.Concurrency <= 0 {
		c.Sync.Concurrency = defaultConcurrency
	}
	if c.Sync.RelatedLimit <= 0 {
		c.Sync.RelatedLimit = defaultRelatedLimit
	}

	regions := make([]string, 0, len(c.Sync.Regions))
	for _, region := range c.Sync.Regions {
		region = strings.ToUpper(strings.TrimSpace(region))
		if region != "" {
			regions = append(regions, region)
		}
	}
	if len(regions) == 0 {
		regions = []string{"US", "DE"}
	}
	c.Sync.Regions = regions

	c.Sync.ExcludedKeywords = normalizeList(c.Sync.ExcludedKeywords)
	c.Sync.ExcludedGenres = normalizeList(c.Sync.ExcludedGenres)
}

// WindowDays beyond the upstream calendar limit are clamped rather than rejected.
func (c *Config) normalizeCalendar() {
	if c.Calendar.WindowDays < 1 {
		c.Calendar.WindowDays = defaultCalendarWindowDays
	}
	if c.Calendar.WindowDays > 30 {
		c.Calendar.WindowDays = 30
	}
}

func (c *Config) normalizeLimits() {
	if c.Backfill.RatingsLimit <= 0 {
		c.Backfill.RatingsLimit = defaultRatingsLimit
	}
	if c.Backfill.MetadataLimit <= 0 {
		c.Backfill.MetadataLimit = defaultMetadataLimit
	}
	if c.Retry.MaxRetries < 0 {
		c.Retry.MaxRetries = defaultMaxRetries
	}
	if c.Retry.BaseDelayMS <= 0 {
		c.Retry.BaseDelayMS = defaultBaseDelayMS
	}
	if c.Cache.Capacity <= 0 {
		c.Cache.Capacity = defaultCacheCapacity
	}
	if c.Cache.TTLSeconds <= 0 {
		c.Cache.TTLSeconds = defaultCacheTTLSeconds
	}
	if c.Daemon.TrendingIntervalMinutes <= 0 {
		c.Daemon.TrendingIntervalMinutes = defaultTrendingIntervalMin
	}
	if c.Daemon.CalendarIntervalMinutes <= 0 {
		c.Daemon.CalendarIntervalMinutes = defaultCalendarIntervalMin
	}
	if c.Daemon.BackfillIntervalMinutes <= 0 {
		c.Daemon.BackfillIntervalMinutes = defaultBackfillIntervalMin
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func normalizeList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.ToLower(strings.TrimSpace(value))
		if value != "" {
			out = append(out, value)
		}
	}
	return out
}
