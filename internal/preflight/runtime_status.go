package preflight

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gamedeck/internal/config"
)

// ArtworkCredential reports whether artwork lookups can run at all. A
// missing key is not an error: artwork is simply skipped.
func ArtworkCredential(cfg *config.Config) Result {
	const name = "Artwork credential"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if strings.TrimSpace(cfg.Artwork.APIKey) == "" {
		return Result{Name: name, Passed: true, Detail: "Disabled (no api key; set STEAMGRIDDB_API_KEY)"}
	}
	return Result{Name: name, Passed: true, Detail: "Configured"}
}

// NotificationsStatus reports whether ntfy notifications are enabled.
func NotificationsStatus(cfg *config.Config) Result {
	const name = "Notifications"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if strings.TrimSpace(cfg.Notifications.NtfyTopic) == "" {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	return Result{Name: name, Passed: true, Detail: "ntfy " + cfg.Notifications.NtfyTopic}
}

// DaemonStatus asks a local gamedeckd for its status. A daemon that is not
// running is reported, not failed.
func DaemonStatus(ctx context.Context, cfg *config.Config) Result {
	const name = "Daemon"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	bind := strings.TrimSpace(cfg.Daemon.APIBind)
	if bind == "" {
		return Result{Name: name, Passed: true, Detail: "API disabled"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, "http://"+bind+"/api/status", nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("invalid api_bind (%v)", err)}
	}
	if token := strings.TrimSpace(cfg.Daemon.APIToken); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return Result{Name: name, Passed: true, Detail: "Not running"}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return Result{Name: name, Detail: "Running, but api_token was rejected"}
	default:
		return Result{Name: name, Detail: fmt.Sprintf("Unexpected status %d from %s", resp.StatusCode, bind)}
	}
	var status struct {
		PID    int `json:"pid"`
		Titles int `json:"titles"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("Unreadable status (%v)", err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("Running (pid %d, %d titles)", status.PID, status.Titles)}
}
