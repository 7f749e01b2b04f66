package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"
)

var dimensionPattern = regexp.MustCompile(`^\d+x\d+$`)

// Validate ensures the configuration is usable. A missing artwork key is not
// an error: artwork lookups simply resolve to nothing.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateArtwork(); err != nil {
		return err
	}
	if err := c.validateCatalog(); err != nil {
		return err
	}
	if err := c.validateDaemon(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return ensurePositiveMap(map[string]int{
		"library.enrich_concurrency":    c.Library.EnrichConcurrency,
		"artwork.request_timeout":       c.Artwork.RequestTimeout,
		"artwork.max_heroes":            c.Artwork.MaxHeroes,
		"catalog.max_results":           c.Catalog.MaxResults,
		"catalog.request_timeout":       c.Catalog.RequestTimeout,
		"notifications.request_timeout": c.Notifications.RequestTimeout,
	})
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.InstallDir) == "" {
		return errors.New("paths.install_dir must be set")
	}
	if strings.TrimSpace(c.Paths.DownloadsDir) == "" {
		return errors.New("paths.downloads_dir must be set")
	}
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		return errors.New("paths.cache_dir must be set")
	}
	return nil
}

func (c *Config) validateArtwork() error {
	if err := validateHTTPURL("artwork.base_url", c.Artwork.BaseURL); err != nil {
		return err
	}
	for _, dim := range c.Artwork.GridDimensions {
		if !dimensionPattern.MatchString(dim) {
			return fmt.Errorf("artwork.grid_dimensions: %q must look like 600x900", dim)
		}
	}
	if c.Artwork.MaxHeroes > 9 {
		return errors.New("artwork.max_heroes must be at most 9")
	}
	return nil
}

func (c *Config) validateCatalog() error {
	if err := validateHTTPURL("catalog.base_url", c.Catalog.BaseURL); err != nil {
		return err
	}
	if c.Catalog.MaxResults > 18 {
		return errors.New("catalog.max_results must be at most 18")
	}
	return nil
}

func (c *Config) validateDaemon() error {
	if _, _, err := net.SplitHostPort(c.Daemon.APIBind); err != nil {
		return fmt.Errorf("daemon.api_bind: %w", err)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}

func validateHTTPURL(key, raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must use http or https", key)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s must include a host", key)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
