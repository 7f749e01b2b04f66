package library_test

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"gamedeck/internal/library"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestScanFindsNestedExecutables(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "Hollow Knight", "hollow_knight.exe"))
	touch(t, filepath.Join(root, "Hollow Knight", "bin", "x64", "Launcher.EXE"))
	touch(t, filepath.Join(root, "Hollow Knight", "readme.txt"))
	touch(t, filepath.Join(root, "Docs Only", "manual.pdf"))
	touch(t, filepath.Join(root, "loose.exe"))
	if err := os.MkdirAll(filepath.Join(root, "Empty"), 0o755); err != nil {
		t.Fatal(err)
	}

	scanner := library.NewScanner(nil, nil)
	titles := scanner.Scan(context.Background(), []string{root})

	if len(titles) != 1 {
		t.Fatalf("expected one title, got %+v", titles)
	}
	got := titles[0]
	if got.ID != "hollowknight" || got.Name != "Hollow Knight" {
		t.Fatalf("unexpected identity %+v", got)
	}
	if got.InstallPath != filepath.Join(root, "Hollow Knight") {
		t.Fatalf("unexpected install path %q", got.InstallPath)
	}
	want := []string{"bin/x64/Launcher.EXE", "hollow_knight.exe"}
	if !reflect.DeepEqual(got.Executables, want) {
		t.Fatalf("executables = %v, want %v", got.Executables, want)
	}
}

func TestScanCustomExtensions(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "Game", "run.AppImage"))
	touch(t, filepath.Join(root, "Game", "setup.exe"))

	titles := library.NewScanner([]string{"appimage"}, nil).Scan(context.Background(), []string{root})
	if len(titles) != 1 || !reflect.DeepEqual(titles[0].Executables, []string{"run.AppImage"}) {
		t.Fatalf("unexpected titles %+v", titles)
	}
}

func TestScanKeepsRootOrderAndSkipsBadRoots(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	touch(t, filepath.Join(first, "Zeta", "z.exe"))
	touch(t, filepath.Join(second, "Alpha", "a.exe"))
	missing := filepath.Join(t.TempDir(), "does-not-exist")

	titles := library.NewScanner(nil, nil).Scan(context.Background(), []string{first, "", missing, second})
	if len(titles) != 2 {
		t.Fatalf("expected two titles, got %+v", titles)
	}
	if titles[0].Name != "Zeta" || titles[1].Name != "Alpha" {
		t.Fatalf("expected root order preserved, got %s then %s", titles[0].Name, titles[1].Name)
	}
}

func TestScanSkipsUnreadableSubdirectory(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}
	root := t.TempDir()
	touch(t, filepath.Join(root, "Good", "good.exe"))
	touch(t, filepath.Join(root, "Mixed", "main.exe"))
	locked := filepath.Join(root, "Mixed", "locked")
	touch(t, filepath.Join(locked, "hidden.exe"))
	if err := os.Chmod(locked, 0o000); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	titles := library.NewScanner(nil, nil).Scan(context.Background(), []string{root})
	if len(titles) != 2 {
		t.Fatalf("expected both titles despite unreadable subdir, got %+v", titles)
	}
	if !reflect.DeepEqual(titles[1].Executables, []string{"main.exe"}) {
		t.Fatalf("unexpected executables %v", titles[1].Executables)
	}
}

func TestScanDoesNotFollowSymlinks(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	touch(t, filepath.Join(outside, "Linked", "linked.exe"))
	touch(t, filepath.Join(root, "Real", "real.exe"))
	if err := os.Symlink(filepath.Join(outside, "Linked"), filepath.Join(root, "Linked")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	if err := os.Symlink(root, filepath.Join(root, "Real", "loop")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	titles := library.NewScanner(nil, nil).Scan(context.Background(), []string{root})
	if len(titles) != 1 || titles[0].Name != "Real" {
		t.Fatalf("expected only the real title, got %+v", titles)
	}
	if !reflect.DeepEqual(titles[0].Executables, []string{"real.exe"}) {
		t.Fatalf("symlinked directory should not be walked, got %v", titles[0].Executables)
	}
}

func TestScanIsIdempotent(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "B", "b.exe"))
	touch(t, filepath.Join(root, "A", "sub", "a.exe"))
	touch(t, filepath.Join(root, "A", "a.exe"))

	scanner := library.NewScanner(nil, nil)
	first := scanner.Scan(context.Background(), []string{root})
	second := scanner.Scan(context.Background(), []string{root})
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("scan results differ:\n%+v\n%+v", first, second)
	}
}

func TestFilterFuzzyMatches(t *testing.T) {
	titles := []library.Title{{Name: "Hollow Knight"}, {Name: "Celeste"}, {Name: "Hades"}}
	got := library.Filter(titles, "hk")
	if len(got) != 1 || got[0].Name != "Hollow Knight" {
		t.Fatalf("unexpected filter result %+v", got)
	}
	if all := library.Filter(titles, " "); len(all) != 3 {
		t.Fatalf("blank query should return everything, got %d", len(all))
	}
}
