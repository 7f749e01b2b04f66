package config

const (
	defaultConfigPath            = "~/.config/gamedeck/config.toml"
	defaultDownloadsDir          = "~/Downloads"
	defaultInstallDir            = "~/Games"
	defaultLogDir                = "~/.local/share/gamedeck/logs"
	defaultEnrichConcurrency     = 4
	defaultArtworkBaseURL        = "https://www.steamgriddb.com/api/v2"
	defaultGridDimensions        = "600x900"
	defaultArtworkRequestTimeout = 15
	defaultArtworkCacheTTLHours  = 24
	defaultMaxHeroes             = 9
	defaultCatalogBaseURL        = "https://www.skidrowreloaded.com"
	defaultCatalogUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	defaultCatalogAcceptLanguage = "en-US,en;q=0.9"
	defaultCatalogMaxResults     = 18
	defaultCatalogRequestTimeout = 30
	defaultNotifyRequestTimeout  = 10
	defaultAPIBind               = "127.0.0.1:7488"
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LibraryRoots: []string{defaultInstallDir},
			DownloadsDir: defaultDownloadsDir,
			InstallDir:   defaultInstallDir,
			CacheDir:     defaultCacheDir(),
			LogDir:       defaultLogDir,
		},
		Library: Library{
			ExecutableExtensions: []string{".exe"},
			EnrichConcurrency:    defaultEnrichConcurrency,
		},
		Artwork: Artwork{
			BaseURL:        defaultArtworkBaseURL,
			GridDimensions: []string{defaultGridDimensions},
			RequestTimeout: defaultArtworkRequestTimeout,
			CacheTTLHours:  defaultArtworkCacheTTLHours,
			MaxHeroes:      defaultMaxHeroes,
		},
		Catalog: Catalog{
			BaseURL:        defaultCatalogBaseURL,
			UserAgent:      defaultCatalogUserAgent,
			AcceptLanguage: defaultCatalogAcceptLanguage,
			MaxResults:     defaultCatalogMaxResults,
			RequestTimeout: defaultCatalogRequestTimeout,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
		},
		Daemon: Daemon{
			APIBind: defaultAPIBind,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
