package library

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gamedeck/internal/logging"
	"gamedeck/internal/textutil"
)

// Title is an installed program with at least one launchable entry point.
type Title struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	InstallPath string   `json:"installPath" yaml:"installPath"`
	Executables []string `json:"executables" yaml:"executables"`
}

// Scanner discovers titles under library roots. It only reads the filesystem.
type Scanner struct {
	extensions map[string]struct{}
	logger     *slog.Logger
}

// NewScanner builds a scanner that treats files with any of extensions as
// executables. Matching is case-insensitive; an empty list means ".exe".
func NewScanner(extensions []string, logger *slog.Logger) *Scanner {
	exts := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts[ext] = struct{}{}
	}
	if len(exts) == 0 {
		exts[".exe"] = struct{}{}
	}
	return &Scanner{
		extensions: exts,
		logger:     logging.NewComponentLogger(logger, "library"),
	}
}

// Scan walks every root concurrently and returns the discovered titles in root
// order, then directory enumeration order within each root. Unreadable roots
// and subdirectories are skipped with a warning.
func (s *Scanner) Scan(ctx context.Context, roots []string) []Title {
	results := make([][]Title, len(roots))
	var wg sync.WaitGroup
	for i, root := range roots {
		if strings.TrimSpace(root) == "" {
			continue
		}
		wg.Add(1)
		go func(i int, root string) {
			defer wg.Done()
			results[i] = s.scanRoot(ctx, root)
		}(i, root)
	}
	wg.Wait()

	var titles []Title
	for _, batch := range results {
		titles = append(titles, batch...)
	}
	return titles
}

func (s *Scanner) scanRoot(ctx context.Context, root string) []Title {
	entries, err := os.ReadDir(root)
	if err != nil {
		s.warnUnreadable(ctx, "library root unreadable", root, err)
		return nil
	}

	var titles []Title
	for _, entry := range entries {
		if ctx.Err() != nil {
			return titles
		}
		// Symlinked folders report a symlink type here and are skipped.
		if !entry.IsDir() {
			continue
		}
		installPath := filepath.Join(root, entry.Name())
		executables := s.findExecutables(ctx, installPath)
		if len(executables) == 0 {
			continue
		}
		titles = append(titles, Title{
			ID:          textutil.Slug(entry.Name()),
			Name:        entry.Name(),
			InstallPath: installPath,
			Executables: executables,
		})
	}
	return titles
}

type walkItem struct {
	path  string
	entry fs.DirEntry
}

// findExecutables walks base depth-first with an explicit stack, yielding
// paths relative to base with forward slashes.
func (s *Scanner) findExecutables(ctx context.Context, base string) []string {
	var found []string
	var stack []walkItem

	push := func(dir string) {
		entries, err := os.ReadDir(dir)
		if err != nil {
			s.warnUnreadable(ctx, "directory unreadable", dir, err)
			return
		}
		// Reverse push keeps pops in enumeration order.
		for i := len(entries) - 1; i >= 0; i-- {
			stack = append(stack, walkItem{path: filepath.Join(dir, entries[i].Name()), entry: entries[i]})
		}
	}
	push(base)

	for len(stack) > 0 {
		if ctx.Err() != nil {
			return found
		}
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch {
		case item.entry.IsDir():
			push(item.path)
		case item.entry.Type().IsRegular() && s.isExecutable(item.entry.Name()):
			rel, err := filepath.Rel(base, item.path)
			if err != nil {
				continue
			}
			found = append(found, filepath.ToSlash(rel))
		}
	}
	return found
}

func (s *Scanner) isExecutable(name string) bool {
	_, ok := s.extensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

func (s *Scanner) warnUnreadable(ctx context.Context, msg, path string, err error) {
	logging.WarnWithContext(logging.WithContext(ctx, s.logger), msg, "library_scan_skipped",
		logging.String("path", path),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check the directory exists and is readable"),
		logging.String(logging.FieldImpact, "titles under this directory are missing from the library"),
	)
}
