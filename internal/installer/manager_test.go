package installer_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"gamedeck/internal/events"
	"gamedeck/internal/installer"
	"gamedeck/internal/testsupport"
)

func newManager(t *testing.T, opts ...installer.Option) (*installer.Manager, string) {
	t.Helper()
	tempDir := t.TempDir()
	opts = append([]installer.Option{installer.WithTempDir(tempDir)}, opts...)
	return installer.New(nil, opts...), tempDir
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir %s: %v", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}

func TestDirectInstallExtractsAndCleansUp(t *testing.T) {
	archive := testsupport.ZipBytes(t, map[string]string{
		"bin/":         "",
		"bin/game.exe": "MZ",
		"readme.txt":   "hello",
	})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/file/AbC123" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(archive)
	}))
	t.Cleanup(server.Close)

	bus := events.NewBus(4)
	ch, cancel := bus.Subscribe()
	defer cancel()

	var lastWritten atomic.Int64
	manager, tempDir := newManager(t,
		installer.WithEventBus(bus),
		installer.WithProgress(func(written, _ int64) { lastWritten.Store(written) }),
	)
	installRoot := filepath.Join(t.TempDir(), "games")

	outcome := manager.DirectInstall(context.Background(), server.URL+"/api/file/AbC123", "Hollow: Knight!", installRoot)
	if !outcome.Success || outcome.ItemsInstalled != 1 {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if outcome.CorrelationID == "" {
		t.Fatal("expected correlation id")
	}

	exe := filepath.Join(installRoot, "Hollow Knight", "bin", "game.exe")
	data, err := os.ReadFile(exe)
	if err != nil {
		t.Fatalf("read extracted file: %v", err)
	}
	if string(data) != "MZ" {
		t.Fatalf("unexpected contents %q", data)
	}
	info, err := os.Stat(exe)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm()&0o100 == 0 {
		t.Fatalf("expected executable bit preserved, got %v", info.Mode())
	}
	if leftovers := listDir(t, tempDir); len(leftovers) != 0 {
		t.Fatalf("temp archive not removed: %v", leftovers)
	}
	if lastWritten.Load() != int64(len(archive)) {
		t.Fatalf("progress reported %d of %d bytes", lastWritten.Load(), len(archive))
	}

	select {
	case evt := <-ch:
		if evt.Kind != events.KindLibraryChanged || evt.CorrelationID != outcome.CorrelationID {
			t.Fatalf("unexpected event %+v", evt)
		}
		if len(evt.Titles) != 1 || evt.Titles[0] != "Hollow Knight" {
			t.Fatalf("unexpected titles %v", evt.Titles)
		}
	case <-time.After(time.Second):
		t.Fatal("expected library_changed event")
	}
}

func TestDirectInstallHTTPFailureLeavesNothingBehind(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(server.Close)

	bus := events.NewBus(4)
	manager, tempDir := newManager(t, installer.WithEventBus(bus))
	installRoot := filepath.Join(t.TempDir(), "games")

	outcome := manager.DirectInstall(context.Background(), server.URL+"/api/file/missing", "Celeste", installRoot)
	if outcome.Success || outcome.ItemsInstalled != 0 {
		t.Fatalf("expected failure, got %+v", outcome)
	}
	if !strings.Contains(outcome.Message, "404") {
		t.Fatalf("expected status in message, got %q", outcome.Message)
	}
	if _, err := os.Stat(installRoot); !os.IsNotExist(err) {
		t.Fatalf("install root should not exist after failed download: %v", err)
	}
	if leftovers := listDir(t, tempDir); len(leftovers) != 0 {
		t.Fatalf("unexpected temp files: %v", leftovers)
	}
	recent := bus.Recent(0)
	if len(recent) != 1 || recent[0].Kind != events.KindInstallFailed {
		t.Fatalf("expected install_failed event, got %+v", recent)
	}
}

func TestDirectInstallCorruptArchive(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("this is not a zip file"))
	}))
	t.Cleanup(server.Close)

	manager, tempDir := newManager(t)
	installRoot := t.TempDir()

	outcome := manager.DirectInstall(context.Background(), server.URL, "Broken Game", installRoot)
	if outcome.Success {
		t.Fatalf("expected failure, got %+v", outcome)
	}
	if _, err := os.Stat(filepath.Join(installRoot, "Broken Game")); !os.IsNotExist(err) {
		t.Fatalf("partial destination left behind: %v", err)
	}
	if leftovers := listDir(t, tempDir); len(leftovers) != 0 {
		t.Fatalf("temp archive not removed: %v", leftovers)
	}
}

func TestDirectInstallRejectsUnusableName(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	t.Cleanup(server.Close)

	manager, _ := newManager(t)
	outcome := manager.DirectInstall(context.Background(), server.URL, "???", t.TempDir())
	if outcome.Success {
		t.Fatalf("expected failure, got %+v", outcome)
	}
	if hits.Load() != 0 {
		t.Fatal("expected no download for an unusable name")
	}
}

func TestDirectInstallRejectsZipSlip(t *testing.T) {
	archive := testsupport.ZipBytes(t, map[string]string{
		"../escape.txt": "nope",
	})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(archive)
	}))
	t.Cleanup(server.Close)

	manager, _ := newManager(t)
	parent := t.TempDir()
	installRoot := filepath.Join(parent, "games")

	outcome := manager.DirectInstall(context.Background(), server.URL, "Sneaky", installRoot)
	if outcome.Success {
		t.Fatalf("expected failure, got %+v", outcome)
	}
	if _, err := os.Stat(filepath.Join(installRoot, "escape.txt")); !os.IsNotExist(err) {
		t.Fatalf("entry escaped destination: %v", err)
	}
	if _, err := os.Stat(filepath.Join(parent, "escape.txt")); !os.IsNotExist(err) {
		t.Fatalf("entry escaped destination: %v", err)
	}
}

func TestBatchInstallPartialFailure(t *testing.T) {
	downloads := t.TempDir()
	installRoot := t.TempDir()

	testsupport.WriteZip(t, filepath.Join(downloads, "Alpha.zip"), map[string]string{"alpha.exe": "a"})
	testsupport.WriteZip(t, filepath.Join(downloads, "Beta.ZIP"), map[string]string{"beta/beta.exe": "b"})
	testsupport.WriteFile(t, filepath.Join(downloads, "Gamma.zip"), 128)
	testsupport.WriteFile(t, filepath.Join(downloads, "notes.txt"), 16)

	bus := events.NewBus(4)
	manager, _ := newManager(t, installer.WithEventBus(bus))

	outcome := manager.BatchInstall(context.Background(), downloads, installRoot)
	if !outcome.Success || outcome.ItemsInstalled != 2 {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if outcome.Message != "Successfully installed 2 new game(s). Your library will refresh automatically." {
		t.Fatalf("unexpected message %q", outcome.Message)
	}

	for _, path := range []string{
		filepath.Join(installRoot, "Alpha", "alpha.exe"),
		filepath.Join(installRoot, "Beta", "beta", "beta.exe"),
	} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s: %v", path, err)
		}
	}
	if _, err := os.Stat(filepath.Join(downloads, "Gamma.zip")); err != nil {
		t.Fatalf("corrupt archive must be kept: %v", err)
	}
	for _, gone := range []string{"Alpha.zip", "Beta.ZIP"} {
		if _, err := os.Stat(filepath.Join(downloads, gone)); !os.IsNotExist(err) {
			t.Fatalf("installed archive %s should be deleted: %v", gone, err)
		}
	}
	if _, err := os.Stat(filepath.Join(downloads, "notes.txt")); err != nil {
		t.Fatalf("non-archive file touched: %v", err)
	}

	recent := bus.Recent(0)
	if len(recent) != 1 || recent[0].Kind != events.KindLibraryChanged || len(recent[0].Titles) != 2 {
		t.Fatalf("unexpected events %+v", recent)
	}
}

func TestBatchInstallKeepsDotNamedArchivesInsideRoot(t *testing.T) {
	downloads := t.TempDir()
	parent := t.TempDir()
	installRoot := filepath.Join(parent, "games")
	if err := os.MkdirAll(installRoot, 0o755); err != nil {
		t.Fatalf("mkdir install root: %v", err)
	}

	testsupport.WriteZip(t, filepath.Join(downloads, "...zip"), map[string]string{"escaped.exe": "x"})
	testsupport.WriteZip(t, filepath.Join(downloads, ".zip"), map[string]string{"flat.exe": "x"})
	testsupport.WriteZip(t, filepath.Join(downloads, "Hollow: Knight.zip"), map[string]string{"hk.exe": "x"})

	manager, _ := newManager(t)
	outcome := manager.BatchInstall(context.Background(), downloads, installRoot)
	if !outcome.Success || outcome.ItemsInstalled != 1 {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if len(outcome.Installed) != 1 || outcome.Installed[0] != "Hollow Knight" {
		t.Fatalf("unexpected installed titles %v", outcome.Installed)
	}
	if _, err := os.Stat(filepath.Join(installRoot, "Hollow Knight", "hk.exe")); err != nil {
		t.Fatalf("expected sanitized install folder: %v", err)
	}
	for _, stray := range []string{
		filepath.Join(parent, "escaped.exe"),
		filepath.Join(installRoot, "escaped.exe"),
		filepath.Join(installRoot, "flat.exe"),
	} {
		if _, err := os.Stat(stray); !os.IsNotExist(err) {
			t.Fatalf("archive extracted outside its own folder: %s (%v)", stray, err)
		}
	}
	for _, kept := range []string{"...zip", ".zip"} {
		if _, err := os.Stat(filepath.Join(downloads, kept)); err != nil {
			t.Fatalf("rejected archive %s must be kept: %v", kept, err)
		}
	}
}

func TestBatchInstallAllFail(t *testing.T) {
	downloads := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(downloads, "bad.zip"), 64)

	manager, _ := newManager(t)
	outcome := manager.BatchInstall(context.Background(), downloads, t.TempDir())
	if outcome.Success || outcome.ItemsInstalled != 0 {
		t.Fatalf("expected failure, got %+v", outcome)
	}
	if !strings.HasPrefix(outcome.Message, "Scan finished, but failed") {
		t.Fatalf("unexpected message %q", outcome.Message)
	}
}

func TestBatchInstallNothingToDo(t *testing.T) {
	manager, _ := newManager(t)
	outcome := manager.BatchInstall(context.Background(), t.TempDir(), t.TempDir())
	if !outcome.Success || outcome.ItemsInstalled != 0 || outcome.Message != "No new games found in downloads." {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
}

func TestBatchInstallMissingDirectory(t *testing.T) {
	manager, _ := newManager(t)
	outcome := manager.BatchInstall(context.Background(), filepath.Join(t.TempDir(), "missing"), t.TempDir())
	if outcome.Success || outcome.ItemsInstalled != 0 {
		t.Fatalf("expected failure, got %+v", outcome)
	}
	if outcome.Message != "Downloads or Local Games directory not found. Please check paths in Settings." {
		t.Fatalf("unexpected message %q", outcome.Message)
	}
}
