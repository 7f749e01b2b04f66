package fileutil_test

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"gamedeck/internal/fileutil"
)

func TestCheckDir(t *testing.T) {
	dir := t.TempDir()
	if err := fileutil.CheckDir(dir); err != nil {
		t.Fatalf("expected accessible dir, got %v", err)
	}

	missing := filepath.Join(dir, "missing")
	if err := fileutil.CheckDir(missing); !errors.Is(err, fileutil.ErrMissing) {
		t.Fatalf("expected ErrMissing, got %v", err)
	}

	file := filepath.Join(dir, "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := fileutil.CheckDir(file); !errors.Is(err, fileutil.ErrNotDir) {
		t.Fatalf("expected ErrNotDir, got %v", err)
	}
}

func TestRemoveQuiet(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.zip")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !fileutil.RemoveQuiet(path) {
		t.Fatal("expected removal")
	}
	if !fileutil.RemoveQuiet(path) {
		t.Fatal("missing file should count as removed")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("file still present: %v", err)
	}
}

func TestFreeBytes(t *testing.T) {
	free, ok := fileutil.FreeBytes(t.TempDir())
	if runtime.GOOS == "windows" {
		if ok {
			t.Fatal("free space is not reported on windows")
		}
		return
	}
	if !ok || free == 0 {
		t.Fatalf("expected free space for temp dir, got %d %v", free, ok)
	}
	if _, ok := fileutil.FreeBytes(filepath.Join(t.TempDir(), "missing")); ok {
		t.Fatal("missing path should not report free space")
	}
}
