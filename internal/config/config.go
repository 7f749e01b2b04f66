package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the directories the pipeline reads from and writes to.
type Paths struct {
	LibraryRoots []string `toml:"library_roots"`
	DownloadsDir string   `toml:"downloads_dir"`
	InstallDir   string   `toml:"install_dir"`
	CacheDir     string   `toml:"cache_dir"`
	LogDir       string   `toml:"log_dir"`
}

// Library contains configuration for the installed-title scanner.
type Library struct {
	ExecutableExtensions []string `toml:"executable_extensions"`
	EnrichConcurrency    int      `toml:"enrich_concurrency"`
}

// Artwork contains configuration for the SteamGridDB-compatible registry.
type Artwork struct {
	APIKey         string   `toml:"api_key"`
	BaseURL        string   `toml:"base_url"`
	GridDimensions []string `toml:"grid_dimensions"`
	RequestTimeout int      `toml:"request_timeout"`
	CacheTTLHours  int      `toml:"cache_ttl_hours"`
	MaxHeroes      int      `toml:"max_heroes"`
}

// Content carries the explicit-content policy applied to artwork lookups.
type Content struct {
	ExplicitEnabled    bool `toml:"explicit_enabled"`
	PrioritizeExplicit bool `toml:"prioritize_explicit"`
}

// Catalog contains configuration for the community catalog scraper.
type Catalog struct {
	BaseURL        string `toml:"base_url"`
	UserAgent      string `toml:"user_agent"`
	AcceptLanguage string `toml:"accept_language"`
	MaxResults     int    `toml:"max_results"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Install contains configuration for archive downloads.
type Install struct {
	// DownloadTimeout of 0 disables the overall client timeout; callers cancel
	// through the context instead.
	DownloadTimeout int    `toml:"download_timeout"`
	TempDir         string `toml:"temp_dir"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Daemon contains the local API bind address and optional bearer token.
type Daemon struct {
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for gamedeck.
//
// Configuration sections by subsystem:
//   - Paths: library roots, downloads, install target, cache and logs
//   - Library: scanner executable extensions and enrichment fan-out
//   - Artwork: registry credentials, endpoint, filters and cache TTL
//   - Content: explicit-content policy
//   - Catalog: catalog site endpoint and request headers
//   - Install: archive download settings
//   - Notifications: ntfy push notification settings
//   - Daemon: local API bind address and token
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Library       Library       `toml:"library"`
	Artwork       Artwork       `toml:"artwork"`
	Content       Content       `toml:"content"`
	Catalog       Catalog       `toml:"catalog"`
	Install       Install       `toml:"install"`
	Notifications Notifications `toml:"notifications"`
	Daemon        Daemon        `toml:"daemon"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("gamedeck.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories gamedeck owns. Library roots and
// the downloads folder belong to the user and are never created here.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.CacheDir, c.Paths.LogDir, c.Paths.InstallDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// ArtworkCachePath returns the SQLite response cache location.
func (c *Config) ArtworkCachePath() string {
	return filepath.Join(c.Paths.CacheDir, "artwork.db")
}

// DaemonLockPath returns the single-instance lock file used by gamedeckd.
func (c *Config) DaemonLockPath() string {
	return filepath.Join(c.Paths.CacheDir, "gamedeckd.lock")
}

// ArtworkTimeout returns the registry request timeout.
func (c *Config) ArtworkTimeout() time.Duration {
	return time.Duration(c.Artwork.RequestTimeout) * time.Second
}

// CatalogTimeout returns the catalog request timeout.
func (c *Config) CatalogTimeout() time.Duration {
	return time.Duration(c.Catalog.RequestTimeout) * time.Second
}

// DownloadTimeout returns the archive download timeout; zero means none.
func (c *Config) DownloadTimeout() time.Duration {
	return time.Duration(c.Install.DownloadTimeout) * time.Second
}

// ArtworkCacheTTL returns how long registry responses stay fresh.
func (c *Config) ArtworkCacheTTL() time.Duration {
	return time.Duration(c.Artwork.CacheTTLHours) * time.Hour
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultCacheDir() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "gamedeck")
	}
	return "~/.cache/gamedeck"
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
