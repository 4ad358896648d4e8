package config

const (
	defaultInputPath        = "popular.json"
	defaultOutputPath       = "popular_with_images.json"
	defaultLocalOutputPath  = "movies.local.json"
	defaultImagesDir        = "images"
	defaultStateDir         = "~/.local/share/cinefetch"
	defaultTMDBBaseURL      = "https://api.themoviedb.org/3"
	defaultTMDBLanguage     = "fr-FR"
	defaultTMDBRegion       = "FR"
	defaultTMDBPage         = 1
	defaultTMDBLimit        = 10
	defaultTMDBTimeout      = 10
	defaultImageBaseURL     = "https://image.tmdb.org/t/p"
	defaultPosterSize       = "w500"
	defaultBackdropSize     = "w780"
	defaultLocalPrefix      = "./"
	defaultConcurrency      = 5
	defaultMaxRetries       = 2
	defaultBackoffMillis    = 500
	defaultRateLimitFactor  = 2.0
	defaultRequestTimeout   = 30
	defaultUserAgent        = "cinefetch/dev"
	defaultLedgerEnabled    = true
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultLogRetentionDays = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			Input:       defaultInputPath,
			Output:      defaultOutputPath,
			LocalOutput: defaultLocalOutputPath,
			ImagesDir:   defaultImagesDir,
			StateDir:    defaultStateDir,
		},
		TMDB: TMDB{
			BaseURL:        defaultTMDBBaseURL,
			Language:       defaultTMDBLanguage,
			Region:         defaultTMDBRegion,
			Page:           defaultTMDBPage,
			Limit:          defaultTMDBLimit,
			RequestTimeout: defaultTMDBTimeout,
		},
		Images: Images{
			BaseURL:      defaultImageBaseURL,
			PosterSize:   defaultPosterSize,
			BackdropSize: defaultBackdropSize,
			LocalPrefix:  defaultLocalPrefix,
		},
		Fetch: Fetch{
			Concurrency:     defaultConcurrency,
			MaxRetries:      defaultMaxRetries,
			BackoffMillis:   defaultBackoffMillis,
			RateLimitFactor: defaultRateLimitFactor,
			RequestTimeout:  defaultRequestTimeout,
			UserAgent:       defaultUserAgent,
		},
		Ledger: Ledger{
			Enabled: defaultLedgerEnabled,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
