package installer

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zip"

	"gamedeck/internal/services"
)

// extractArchive unpacks archivePath into dest and returns the number of
// regular files written. Entries that would land outside dest are rejected
// and symlink entries are skipped.
func extractArchive(ctx context.Context, archivePath, dest string) (int, error) {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return 0, services.Wrap(services.ErrExtraction, "installer", "open archive", filepath.Base(archivePath), err)
	}
	defer reader.Close()

	root, err := filepath.Abs(dest)
	if err != nil {
		return 0, services.Wrap(services.ErrFilesystem, "installer", "resolve destination", dest, err)
	}

	written := 0
	for _, file := range reader.File {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		target, err := entryTarget(root, file.Name)
		if err != nil {
			return written, err
		}
		mode := file.Mode()
		switch {
		case mode&fs.ModeSymlink != 0:
			continue
		case file.FileInfo().IsDir():
			if err := os.MkdirAll(target, dirPerm(mode)); err != nil {
				return written, services.Wrap(services.ErrFilesystem, "installer", "create directory", file.Name, err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return written, services.Wrap(services.ErrFilesystem, "installer", "create directory", file.Name, err)
		}
		if err := writeEntry(file, target); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

func entryTarget(root, name string) (string, error) {
	rel := filepath.FromSlash(name)
	if !filepath.IsLocal(rel) {
		return "", services.Wrap(services.ErrExtraction, "installer", "extract", fmt.Sprintf("entry %q escapes destination", name), nil)
	}
	return filepath.Join(root, rel), nil
}

func writeEntry(file *zip.File, target string) error {
	src, err := file.Open()
	if err != nil {
		return services.Wrap(services.ErrExtraction, "installer", "read entry", file.Name, err)
	}
	defer src.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePerm(file.Mode()))
	if err != nil {
		return services.Wrap(services.ErrFilesystem, "installer", "create file", file.Name, err)
	}
	if _, err := io.Copy(out, src); err != nil {
		_ = out.Close()
		return services.Wrap(services.ErrExtraction, "installer", "write entry", file.Name, err)
	}
	if err := out.Close(); err != nil {
		return services.Wrap(services.ErrFilesystem, "installer", "close file", file.Name, err)
	}
	return nil
}

func filePerm(mode fs.FileMode) fs.FileMode {
	perm := mode.Perm()
	if perm == 0 {
		return 0o644
	}
	return perm | 0o600
}

func dirPerm(mode fs.FileMode) fs.FileMode {
	perm := mode.Perm()
	if perm == 0 {
		return 0o755
	}
	return perm | 0o700
}
