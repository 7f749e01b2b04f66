package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLibrary()
	c.normalizeArtwork()
	c.normalizeCatalog()
	if err := c.normalizeInstall(); err != nil {
		return err
	}
	c.normalizeNotifications()
	c.normalizeDaemon()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	roots := make([]string, 0, len(c.Paths.LibraryRoots))
	seen := make(map[string]struct{}, len(c.Paths.LibraryRoots))
	for _, root := range c.Paths.LibraryRoots {
		if strings.TrimSpace(root) == "" {
			continue
		}
		expanded, err := expandPath(strings.TrimSpace(root))
		if err != nil {
			return fmt.Errorf("paths.library_roots: %w", err)
		}
		if _, dup := seen[expanded]; dup {
			continue
		}
		seen[expanded] = struct{}{}
		roots = append(roots, expanded)
	}
	c.Paths.LibraryRoots = roots

	var err error
	if c.Paths.DownloadsDir, err = expandPath(strings.TrimSpace(c.Paths.DownloadsDir)); err != nil {
		return fmt.Errorf("paths.downloads_dir: %w", err)
	}
	if c.Paths.InstallDir, err = expandPath(strings.TrimSpace(c.Paths.InstallDir)); err != nil {
		return fmt.Errorf("paths.install_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		c.Paths.CacheDir = defaultCacheDir()
	}
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLibrary() {
	exts := make([]string, 0, len(c.Library.ExecutableExtensions))
	seen := make(map[string]struct{}, len(c.Library.ExecutableExtensions))
	for _, ext := range c.Library.ExecutableExtensions {
		normalized := strings.ToLower(strings.TrimSpace(ext))
		if normalized == "" {
			continue
		}
		if !strings.HasPrefix(normalized, ".") {
			normalized = "." + normalized
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		exts = append(exts, normalized)
	}
	if len(exts) == 0 {
		exts = []string{".exe"}
	}
	c.Library.ExecutableExtensions = exts
	if c.Library.EnrichConcurrency <= 0 {
		c.Library.EnrichConcurrency = defaultEnrichConcurrency
	}
}

func (c *Config) normalizeArtwork() {
	c.Artwork.APIKey = strings.TrimSpace(c.Artwork.APIKey)
	if c.Artwork.APIKey == "" {
		if value, ok := os.LookupEnv("STEAMGRIDDB_API_KEY"); ok {
			c.Artwork.APIKey = strings.TrimSpace(value)
		}
	}
	c.Artwork.BaseURL = strings.TrimRight(strings.TrimSpace(c.Artwork.BaseURL), "/")
	if c.Artwork.BaseURL == "" {
		c.Artwork.BaseURL = defaultArtworkBaseURL
	}
	dims := make([]string, 0, len(c.Artwork.GridDimensions))
	for _, dim := range c.Artwork.GridDimensions {
		if trimmed := strings.ToLower(strings.TrimSpace(dim)); trimmed != "" {
			dims = append(dims, trimmed)
		}
	}
	if len(dims) == 0 {
		dims = []string{defaultGridDimensions}
	}
	c.Artwork.GridDimensions = dims
	if c.Artwork.RequestTimeout <= 0 {
		c.Artwork.RequestTimeout = defaultArtworkRequestTimeout
	}
	if c.Artwork.CacheTTLHours < 0 {
		c.Artwork.CacheTTLHours = 0
	}
	if c.Artwork.MaxHeroes <= 0 {
		c.Artwork.MaxHeroes = defaultMaxHeroes
	}
}

func (c *Config) normalizeCatalog() {
	c.Catalog.BaseURL = strings.TrimRight(strings.TrimSpace(c.Catalog.BaseURL), "/")
	if c.Catalog.BaseURL == "" {
		c.Catalog.BaseURL = defaultCatalogBaseURL
	}
	c.Catalog.UserAgent = strings.TrimSpace(c.Catalog.UserAgent)
	if c.Catalog.UserAgent == "" {
		c.Catalog.UserAgent = defaultCatalogUserAgent
	}
	c.Catalog.AcceptLanguage = strings.TrimSpace(c.Catalog.AcceptLanguage)
	if c.Catalog.AcceptLanguage == "" {
		c.Catalog.AcceptLanguage = defaultCatalogAcceptLanguage
	}
	if c.Catalog.MaxResults <= 0 {
		c.Catalog.MaxResults = defaultCatalogMaxResults
	}
	if c.Catalog.RequestTimeout <= 0 {
		c.Catalog.RequestTimeout = defaultCatalogRequestTimeout
	}
}

func (c *Config) normalizeInstall() error {
	if c.Install.DownloadTimeout < 0 {
		c.Install.DownloadTimeout = 0
	}
	if strings.TrimSpace(c.Install.TempDir) == "" {
		c.Install.TempDir = ""
		return nil
	}
	var err error
	if c.Install.TempDir, err = expandPath(strings.TrimSpace(c.Install.TempDir)); err != nil {
		return fmt.Errorf("install.temp_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeDaemon() {
	c.Daemon.APIBind = strings.TrimSpace(c.Daemon.APIBind)
	if c.Daemon.APIBind == "" {
		c.Daemon.APIBind = defaultAPIBind
	}
	c.Daemon.APIToken = strings.TrimSpace(c.Daemon.APIToken)
	if c.Daemon.APIToken == "" {
		if value, ok := os.LookupEnv("GAMEDECK_API_TOKEN"); ok {
			c.Daemon.APIToken = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
