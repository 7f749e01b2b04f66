package testsupport

import (
	"path/filepath"
	"testing"

	"gamedeck/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Artwork is disabled unless WithArtwork is supplied.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.InstallDir = filepath.Join(base, "games")
	cfgVal.Paths.LibraryRoots = []string{cfgVal.Paths.InstallDir}
	cfgVal.Paths.DownloadsDir = filepath.Join(base, "downloads")
	cfgVal.Paths.CacheDir = filepath.Join(base, "cache")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Install.TempDir = filepath.Join(base, "tmp")
	cfgVal.Artwork.APIKey = ""
	// Nothing listens on the discard port, so catalog probes fail fast.
	cfgVal.Catalog.BaseURL = "http://127.0.0.1:9"
	cfgVal.Daemon.APIBind = "127.0.0.1:0"
	cfgVal.Daemon.APIToken = ""
	cfgVal.Notifications.NtfyTopic = ""

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithArtwork points the artwork registry at baseURL with the given key.
func WithArtwork(baseURL, key string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Artwork.BaseURL = baseURL
		b.cfg.Artwork.APIKey = key
	}
}

// WithCatalog points the catalog scraper at baseURL.
func WithCatalog(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Catalog.BaseURL = baseURL
	}
}

// WithLibraryRoots replaces the scan roots with paths under the test base dir.
func WithLibraryRoots(names ...string) ConfigOption {
	return func(b *configBuilder) {
		roots := make([]string, 0, len(names))
		for _, name := range names {
			roots = append(roots, filepath.Join(b.baseDir, name))
		}
		b.cfg.Paths.LibraryRoots = roots
	}
}

// WithAPIToken requires bearer auth on the daemon API.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Daemon.APIToken = token
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.CacheDir)
}
