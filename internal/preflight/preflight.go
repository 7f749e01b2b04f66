package preflight

import (
	"context"
	"fmt"

	"gamedeck/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name" yaml:"name"`
	Passed bool   `json:"passed" yaml:"passed"`
	Detail string `json:"detail" yaml:"detail"`
}

// RunAll executes all applicable preflight checks for the given config.
// Network checks are skipped for features that are not configured.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := RunLocal(cfg)
	if cfg.Artwork.APIKey != "" {
		results = append(results, CheckArtwork(ctx, cfg.Artwork.BaseURL, cfg.Artwork.APIKey))
	}
	results = append(results, CheckCatalog(ctx, cfg.Catalog.BaseURL, cfg.Catalog.UserAgent))
	return results
}

// RunLocal executes the checks that need no network access.
func RunLocal(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	for i, root := range cfg.Paths.LibraryRoots {
		name := "Library root"
		if len(cfg.Paths.LibraryRoots) > 1 {
			name = fmt.Sprintf("Library root %d", i+1)
		}
		results = append(results, CheckDirectoryAccess(name, root))
	}
	results = append(results, CheckDirectoryAccess("Downloads directory", cfg.Paths.DownloadsDir))
	results = append(results, CheckDirectoryAccess("Install directory", cfg.Paths.InstallDir))
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
