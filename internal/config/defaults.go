package config

const (
	defaultDataDir             = "~/.local/share/trawl"
	defaultLogDir              = "~/.local/share/trawl/logs"
	defaultTraktBaseURL        = "https://api.trakt.tv"
	defaultTMDBBaseURL         = "https://api.themoviedb.org/3"
	defaultTMDBLanguage        = "en-US"
	defaultOMDBBaseURL         = "https://www.omdbapi.com"
	defaultTrendingBatch       = 100
	defaultTaskBatch           = 50
	defaultConcurrency         = 6
	defaultRelatedLimit        = 12
	defaultCalendarWindowDays  = 30
	defaultRatingsLimit        = 100
	defaultMetadataLimit       = 50
	defaultMaxRetries          = 3
	defaultBaseDelayMS         = 500
	defaultCacheCapacity       = 512
	defaultCacheTTLSeconds     = 900
	defaultTrendingIntervalMin = 180
	defaultCalendarIntervalMin = 720
	defaultBackfillIntervalMin = 1440
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Trakt: Trakt{
			BaseURL: defaultTraktBaseURL,
		},
		TMDB: TMDB{
			BaseURL:  defaultTMDBBaseURL,
			Language: defaultTMDBLanguage,
		},
		OMDB: OMDB{
			BaseURL: defaultOMDBBaseURL,
		},
		Sync: Sync{
			TrendingBatch: defaultTrendingBatch,
			TaskBatch:     defaultTaskBatch,
			Concurrency:   defaultConcurrency,
			Regions:       []string{"US", "DE"},
			ExcludedKeywords: []string{
				"talk show",
				"reality",
				"awards",
			},
			ExcludedGenres: []string{
				"talk-show",
				"news",
			},
			RelatedLimit: defaultRelatedLimit,
		},
		Calendar: Calendar{
			WindowDays: defaultCalendarWindowDays,
		},
		Backfill: Backfill{
			RatingsLimit:  defaultRatingsLimit,
			MetadataLimit: defaultMetadataLimit,
		},
		Retry: Retry{
			MaxRetries:  defaultMaxRetries,
			BaseDelayMS: defaultBaseDelayMS,
		},
		Cache: Cache{
			Capacity:   defaultCacheCapacity,
			TTLSeconds: defaultCacheTTLSeconds,
		},
		Daemon: Daemon{
			TrendingIntervalMinutes: defaultTrendingIntervalMin,
			CalendarIntervalMinutes: defaultCalendarIntervalMin,
			BackfillIntervalMinutes: defaultBackfillIntervalMin,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
