package daemonrun

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gamedeck/internal/artwork"
	"gamedeck/internal/catalog"
	"gamedeck/internal/config"
	"gamedeck/internal/events"
	"gamedeck/internal/installer"
	"gamedeck/internal/library"
	"gamedeck/internal/logging"
)

// Components are the pipeline services built from one configuration. The
// CLI and the daemon share the same wiring.
type Components struct {
	Scanner   *library.Scanner
	Resolver  *artwork.Resolver
	Catalog   *catalog.Scraper
	Installer *installer.Manager
	Bus       *events.Bus

	cache *artwork.Cache
}

// BuildOption tweaks component construction.
type BuildOption func(*buildOptions)

type buildOptions struct {
	progress  installer.ProgressFunc
	skipCache bool
}

// WithInstallProgress forwards archive download progress to fn.
func WithInstallProgress(fn installer.ProgressFunc) BuildOption {
	return func(o *buildOptions) {
		o.progress = fn
	}
}

// WithoutCache disables the on-disk artwork response cache.
func WithoutCache() BuildOption {
	return func(o *buildOptions) {
		o.skipCache = true
	}
}

// Build wires every pipeline component from cfg. A missing artwork key is
// not an error; the resolver then returns nothing without network I/O.
func Build(cfg *config.Config, logger *slog.Logger, opts ...BuildOption) (*Components, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	var o buildOptions
	for _, opt := range opts {
		opt(&o)
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	c := &Components{
		Scanner: library.NewScanner(cfg.Library.ExecutableExtensions, logger),
		Bus:     events.NewBus(64),
	}

	var registry artwork.Registry
	if key := strings.TrimSpace(cfg.Artwork.APIKey); key != "" {
		var clientOpts []artwork.Option
		if !o.skipCache {
			cache, err := artwork.OpenCache(cfg.ArtworkCachePath(), cfg.ArtworkCacheTTL(), logger)
			if err != nil {
				logging.WarnWithContext(logger, "artwork cache unavailable", "artwork_cache_unavailable",
					logging.String("path", cfg.ArtworkCachePath()),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "delete the cache file to rebuild it"),
					logging.String(logging.FieldImpact, "every artwork lookup hits the registry"),
				)
			} else {
				c.cache = cache
				clientOpts = append(clientOpts, artwork.WithCache(cache))
			}
		}
		client, err := artwork.New(key, cfg.Artwork.BaseURL, cfg.ArtworkTimeout(), clientOpts...)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("artwork client: %w", err)
		}
		registry = client
	}
	c.Resolver = artwork.NewResolver(registry, logger,
		artwork.WithGridDimensions(cfg.Artwork.GridDimensions),
		artwork.WithMaxHeroes(cfg.Artwork.MaxHeroes),
	)

	scraper, err := catalog.New(cfg.Catalog.BaseURL, logger,
		catalog.WithHeaders(cfg.Catalog.UserAgent, cfg.Catalog.AcceptLanguage),
		catalog.WithMaxResults(cfg.Catalog.MaxResults),
		catalog.WithTimeout(cfg.CatalogTimeout()),
		catalog.WithPosterResolver(c.Resolver),
	)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("catalog scraper: %w", err)
	}
	c.Catalog = scraper

	c.Installer = installer.New(logger,
		installer.WithDownloadTimeout(cfg.DownloadTimeout()),
		installer.WithTempDir(cfg.Install.TempDir),
		installer.WithEventBus(c.Bus),
		installer.WithProgress(o.progress),
	)
	return c, nil
}

// Cache returns the artwork response cache, or nil when none is open.
func (c *Components) Cache() *artwork.Cache {
	if c == nil {
		return nil
	}
	return c.cache
}

// Close releases the artwork cache.
func (c *Components) Close() error {
	if c == nil || c.cache == nil {
		return nil
	}
	err := c.cache.Close()
	c.cache = nil
	return err
}
