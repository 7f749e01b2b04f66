//go:build !unix

package fileutil

import (
	"fmt"
	"os"
)

// accessRWX falls back to a write probe where access(2) is unavailable.
func accessRWX(path string) error {
	probe, err := os.CreateTemp(path, ".gamedeck-access-*")
	if err != nil {
		return err
	}
	name := probe.Name()
	if err := probe.Close(); err != nil {
		return fmt.Errorf("close probe: %w", err)
	}
	return os.Remove(name)
}

func freeBytes(string) (uint64, bool) {
	return 0, false
}
