package preflight

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gamedeck/internal/catalog"
	"gamedeck/internal/fileutil"
	"gamedeck/internal/services"
)

// CheckArtwork verifies that the artwork registry is reachable and the key is valid.
func CheckArtwork(ctx context.Context, baseURL, apiKey string) Result {
	const name = "Artwork registry"

	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return Result{Name: name, Detail: "missing url"}
	}
	if strings.TrimSpace(apiKey) == "" {
		return Result{Name: name, Detail: "missing api key"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client := &http.Client{Timeout: 5 * time.Second}
	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, base+"/search/autocomplete/portal", nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("auth check failed (%v)", err)}
	}
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(apiKey))

	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("auth check failed (%v)", err)}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return Result{Name: name, Passed: true, Detail: "Reachable"}
	case http.StatusUnauthorized, http.StatusForbidden:
		return Result{Name: name, Detail: "auth failed (invalid api key)"}
	default:
		return Result{Name: name, Detail: fmt.Sprintf("auth check failed (%d)", resp.StatusCode)}
	}
}

// CheckCatalog verifies that the catalog site answers.
func CheckCatalog(ctx context.Context, baseURL, userAgent string) Result {
	const name = "Catalog"

	scraper, err := catalog.New(baseURL, nil,
		catalog.WithHTTPClient(&http.Client{Timeout: 10 * time.Second}),
		catalog.WithHeaders(userAgent, ""),
	)
	if err != nil {
		return Result{Name: name, Detail: "missing url"}
	}
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := scraper.Ping(checkCtx); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("unreachable (%s)", services.Kind(err))}
	}
	return Result{Name: name, Passed: true, Detail: "Reachable"}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	err := fileutil.CheckDir(path)
	switch {
	case err == nil:
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
	case errors.Is(err, fileutil.ErrMissing):
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
	case errors.Is(err, fileutil.ErrNotDir):
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	case errors.Is(err, fileutil.ErrPermission):
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions)", path)}
	default:
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
}
