package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"gamedeck/internal/artwork"
	"gamedeck/internal/catalog"
	"gamedeck/internal/installer"
	"gamedeck/internal/library"
	"gamedeck/internal/preflight"
	"gamedeck/internal/testsupport"
)

func TestScanListsTitles(t *testing.T) {
	env := setupCLITestEnv(t)
	root := env.cfg.Paths.LibraryRoots[0]
	testsupport.WriteFile(t, filepath.Join(root, "Hollow Knight", "hollow_knight.exe"), 8)
	testsupport.WriteFile(t, filepath.Join(root, "Celeste", "bin", "Celeste.EXE"), 8)
	testsupport.WriteFile(t, filepath.Join(root, "Notes", "readme.txt"), 8)

	out, _, err := runCLI(t, []string{"--json", "scan"}, env.configPath)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	var titles []library.Title
	if err := json.Unmarshal([]byte(out), &titles); err != nil {
		t.Fatalf("decode scan output: %v\n%s", err, out)
	}
	if len(titles) != 2 {
		t.Fatalf("expected 2 titles, got %+v", titles)
	}
	names := map[string]library.Title{}
	for _, title := range titles {
		names[title.Name] = title
	}
	if got := names["Celeste"].Executables; len(got) != 1 || got[0] != "bin/Celeste.EXE" {
		t.Fatalf("unexpected Celeste executables %v", got)
	}

	out, _, err = runCLI(t, []string{"scan", "--filter", "hk"}, env.configPath)
	if err != nil {
		t.Fatalf("scan --filter: %v", err)
	}
	requireContains(t, out, "Hollow Knight")
	if strings.Contains(out, "Celeste") {
		t.Fatalf("filter should exclude Celeste:\n%s", out)
	}
}

func TestScanEmptyLibraryPrintsEmptyList(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"--json", "scan", "--enrich"}, env.configPath)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if strings.TrimSpace(out) != "[]" {
		t.Fatalf("expected empty JSON list, got %q", out)
	}
}

func TestArtworkCommandsRequireKey(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"artwork", "search", "Hades"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "STEAMGRIDDB_API_KEY") {
		t.Fatalf("expected missing key error, got %v", err)
	}
}

func TestArtworkSearchAndImages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/search/autocomplete/"):
			_, _ = w.Write([]byte(`{"success":true,"data":[{"id":42,"name":"Hades","verified":true}]}`))
		case r.URL.Path == "/logos/game/42":
			_, _ = w.Write([]byte(`{"success":true,"data":[{"id":1,"score":3,"url":"https://cdn/logo.png","nsfw":false},{"id":2,"url":"https://cdn/x.png","nsfw":true}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	env := setupCLITestEnv(t, testsupport.WithArtwork(server.URL, "key"))

	out, _, err := runCLI(t, []string{"--yaml", "artwork", "search", "Hades"}, env.configPath)
	if err != nil {
		t.Fatalf("artwork search: %v", err)
	}
	var game artwork.Game
	if err := yaml.Unmarshal([]byte(out), &game); err != nil {
		t.Fatalf("decode yaml: %v\n%s", err, out)
	}
	if game.ID != 42 || game.Name != "Hades" {
		t.Fatalf("unexpected game %+v", game)
	}

	out, _, err = runCLI(t, []string{"--json", "artwork", "images", "logo", "42"}, env.configPath)
	if err != nil {
		t.Fatalf("artwork images: %v", err)
	}
	var images []artwork.Image
	if err := json.Unmarshal([]byte(out), &images); err != nil {
		t.Fatalf("decode images: %v\n%s", err, out)
	}
	if len(images) != 1 || images[0].URL != "https://cdn/logo.png" {
		t.Fatalf("explicit image should be filtered out, got %+v", images)
	}

	if _, _, err := runCLI(t, []string{"artwork", "images", "banner", "42"}, env.configPath); err == nil {
		t.Fatal("expected unknown kind to fail")
	}

	out, _, err = runCLI(t, []string{"artwork", "cache"}, env.configPath)
	if err != nil {
		t.Fatalf("artwork cache: %v", err)
	}
	requireContains(t, out, "artwork.db (2 responses)")
}

func TestCatalogSearchAndDetails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/hades/" {
			_, _ = w.Write([]byte(`<html><body>
<h2>ABOUT THE GAME</h2><p>Defy the god of the dead.</p>
<p>Size: 12.5 GB</p>
<p><strong>PIXELDRAIN</strong> <a href="https://pixeldrain.com/u/AbC123">Download</a></p>
</body></html>`))
			return
		}
		_, _ = w.Write([]byte(`<html><body>
<div class="post"><h2><a href="/hades/">Hades</a></h2></div>
<div class="post"><h2><a href="/celeste/">Celeste</a></h2></div>
</body></html>`))
	}))
	t.Cleanup(server.Close)

	env := setupCLITestEnv(t, testsupport.WithCatalog(server.URL))

	out, _, err := runCLI(t, []string{"--json", "catalog", "search", "hades"}, env.configPath)
	if err != nil {
		t.Fatalf("catalog search: %v", err)
	}
	var entries []catalog.Entry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("decode entries: %v\n%s", err, out)
	}
	if len(entries) != 2 || entries[0].DetailURL != server.URL+"/hades/" {
		t.Fatalf("unexpected entries %+v", entries)
	}

	out, _, err = runCLI(t, []string{"catalog", "details", server.URL + "/hades/"}, env.configPath)
	if err != nil {
		t.Fatalf("catalog details: %v", err)
	}
	requireContains(t, out, "Defy the god of the dead.")
	requireContains(t, out, "12.5 GB")
	requireContains(t, out, "https://pixeldrain.com/api/file/AbC123")

	if _, _, err := runCLI(t, []string{"catalog", "details", server.URL + "/missing"}, env.configPath); err != nil {
		t.Fatalf("a page without details still parses: %v", err)
	}
}

func TestInstallDirect(t *testing.T) {
	archive := testsupport.ZipBytes(t, map[string]string{"game.exe": "MZ"})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(archive)
	}))
	t.Cleanup(server.Close)

	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"--json", "install", "direct", server.URL + "/api/file/x", "Hades", "II"}, env.configPath)
	if err != nil {
		t.Fatalf("install direct: %v", err)
	}
	var outcome installer.Outcome
	if err := json.Unmarshal([]byte(out), &outcome); err != nil {
		t.Fatalf("decode outcome: %v\n%s", err, out)
	}
	if !outcome.Success || outcome.ItemsInstalled != 1 {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if _, err := os.Stat(filepath.Join(env.cfg.Paths.InstallDir, "Hades II", "game.exe")); err != nil {
		t.Fatalf("expected extracted file: %v", err)
	}
}

func TestInstallDirectFailureExitsNonZero(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	}))
	t.Cleanup(server.Close)

	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"install", "direct", server.URL, "Hades"}, env.configPath)
	if err == nil {
		t.Fatal("expected failed install to return an error")
	}
	requireContains(t, out, "Installation failed")
}

func TestInstallDirectChecksFreeSpace(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"install", "direct", "--expect-size", "9 EB", "http://127.0.0.1:9/x", "Huge"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "--force") {
		t.Fatalf("expected free space refusal, got %v", err)
	}
	if _, _, err := runCLI(t, []string{"install", "direct", "--expect-size", "lots", "http://127.0.0.1:9/x", "Huge"}, env.configPath); err == nil {
		t.Fatal("expected invalid size to fail")
	}
}

func TestInstallBatch(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteZip(t, filepath.Join(env.cfg.Paths.DownloadsDir, "Celeste.zip"), map[string]string{"Celeste.exe": "MZ"})

	out, _, err := runCLI(t, []string{"install", "batch"}, env.configPath)
	if err != nil {
		t.Fatalf("install batch: %v", err)
	}
	requireContains(t, out, "Successfully installed 1 new game(s)")
	if _, err := os.Stat(filepath.Join(env.cfg.Paths.InstallDir, "Celeste", "Celeste.exe")); err != nil {
		t.Fatalf("expected extracted file: %v", err)
	}

	out, _, err = runCLI(t, []string{"install", "batch"}, env.configPath)
	if err != nil {
		t.Fatalf("second install batch: %v", err)
	}
	requireContains(t, out, "No new games found in downloads.")
}

func TestStatusOffline(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"--json", "status", "--offline"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	var results []preflight.Result
	if err := json.Unmarshal([]byte(out), &results); err != nil {
		t.Fatalf("decode status: %v\n%s", err, out)
	}
	byName := map[string]preflight.Result{}
	for _, r := range results {
		byName[r.Name] = r
	}
	for _, name := range []string{"Library root", "Downloads directory", "Install directory"} {
		if !byName[name].Passed {
			t.Fatalf("expected %s to pass, got %+v", name, byName[name])
		}
	}
	if _, ok := byName["Catalog"]; ok {
		t.Fatal("offline status must not probe the catalog")
	}
	if got := byName["Artwork credential"].Detail; !strings.HasPrefix(got, "Disabled") {
		t.Fatalf("unexpected artwork credential detail %q", got)
	}
	if got := byName["Daemon"].Detail; got != "Not running" {
		t.Fatalf("unexpected daemon detail %q", got)
	}
}

func TestNotifyTestDisabled(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"notify", "test"}, env.configPath)
	if err != nil {
		t.Fatalf("notify test: %v", err)
	}
	requireContains(t, out, "Notifications are disabled")
}

func TestNotifyTestSends(t *testing.T) {
	titles := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		titles <- r.Header.Get("Title")
	}))
	t.Cleanup(server.Close)

	env := setupCLITestEnv(t)
	env.cfg.Notifications.NtfyTopic = server.URL + "/gamedeck"
	writeTestConfig(t, env.configPath, env.cfg)

	out, _, err := runCLI(t, []string{"notify", "test"}, env.configPath)
	if err != nil {
		t.Fatalf("notify test: %v", err)
	}
	requireContains(t, out, "Test notification sent")
	if title := <-titles; title != "gamedeck - Test" {
		t.Fatalf("unexpected title %q", title)
	}
}

func TestInstallCleanupRemovesStaleArchives(t *testing.T) {
	env := setupCLITestEnv(t)
	dir := env.cfg.Install.TempDir
	stale := filepath.Join(dir, "gamedeck-Old-1-abcd.zip")
	testsupport.WriteFile(t, stale, 16)
	old := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	fresh := filepath.Join(dir, "gamedeck-New-2-beef.zip")
	testsupport.WriteFile(t, fresh, 16)

	out, _, err := runCLI(t, []string{"install", "cleanup", "--dry-run"}, env.configPath)
	if err != nil {
		t.Fatalf("cleanup --dry-run: %v", err)
	}
	requireContains(t, out, "gamedeck-Old-1-abcd.zip")
	requireContains(t, out, "gamedeck-New-2-beef.zip")

	out, _, err = runCLI(t, []string{"install", "cleanup"}, env.configPath)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	requireContains(t, out, "Removed 1 stale archive(s)")
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("stale archive should be gone: %v", err)
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Fatalf("fresh archive should remain: %v", err)
	}
}
