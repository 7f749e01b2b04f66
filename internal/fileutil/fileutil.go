package fileutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

var (
	// ErrMissing reports a path that does not exist.
	ErrMissing = errors.New("does not exist")
	// ErrNotDir reports a path that exists but is not a directory.
	ErrNotDir = errors.New("is not a directory")
	// ErrPermission reports a directory the current user cannot read, write and traverse.
	ErrPermission = errors.New("insufficient permissions")
)

// CheckDir verifies that path is an existing directory the process can
// read, write and traverse.
func CheckDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s: %w", path, ErrMissing)
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s: %w", path, ErrNotDir)
	}
	if err := accessRWX(path); err != nil {
		return fmt.Errorf("%s: %w (%v)", path, ErrPermission, err)
	}
	return nil
}

// RemoveQuiet deletes path and ignores a missing file. It reports whether
// the path is gone afterwards.
func RemoveQuiet(path string) bool {
	if path == "" {
		return true
	}
	err := os.Remove(path)
	return err == nil || errors.Is(err, fs.ErrNotExist)
}

// FreeBytes reports the space available to unprivileged users on the
// filesystem holding path. The bool is false when it cannot be determined.
func FreeBytes(path string) (uint64, bool) {
	return freeBytes(path)
}
