package installer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"gamedeck/internal/events"
	"gamedeck/internal/fileutil"
	"gamedeck/internal/logging"
	"gamedeck/internal/services"
	"gamedeck/internal/textutil"
)

const (
	userAgent    = "gamedeck/0.1.0"
	lockFileName = ".gamedeck-install.lock"
)

// TempArchivePattern matches the archives DirectInstall stages in its temp dir.
const TempArchivePattern = "gamedeck-*.zip"

// Manager performs direct and batch installs.
type Manager struct {
	httpClient *http.Client
	tempDir    string
	bus        *events.Bus
	progress   ProgressFunc
	logger     *slog.Logger
	now        func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithHTTPClient overrides the download client.
func WithHTTPClient(client *http.Client) Option {
	return func(m *Manager) {
		if client != nil {
			m.httpClient = client
		}
	}
}

// WithDownloadTimeout bounds a whole download. Zero leaves downloads bounded
// only by the caller's context.
func WithDownloadTimeout(timeout time.Duration) Option {
	return func(m *Manager) {
		if timeout > 0 {
			m.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// WithTempDir sets where downloaded archives are staged.
func WithTempDir(dir string) Option {
	return func(m *Manager) {
		if dir = strings.TrimSpace(dir); dir != "" {
			m.tempDir = dir
		}
	}
}

// WithEventBus publishes library_changed and install_failed events.
func WithEventBus(bus *events.Bus) Option {
	return func(m *Manager) {
		m.bus = bus
	}
}

// WithProgress reports download progress.
func WithProgress(fn ProgressFunc) Option {
	return func(m *Manager) {
		m.progress = fn
	}
}

// New constructs a Manager.
func New(logger *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		httpClient: &http.Client{},
		tempDir:    os.TempDir(),
		logger:     logging.NewComponentLogger(logger, "installer"),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// TempDir returns where downloaded archives are staged.
func (m *Manager) TempDir() string {
	return m.tempDir
}

// DirectInstall downloads the archive at downloadURL and extracts it into
// destRoot/<sanitized titleName>.
func (m *Manager) DirectInstall(ctx context.Context, downloadURL, titleName, destRoot string) Outcome {
	correlationID := uuid.NewString()
	ctx = services.WithRequestID(services.WithOperation(ctx, "direct_install"), correlationID)
	logger := logging.WithContext(ctx, m.logger)

	name := textutil.SanitizeFileName(titleName)
	downloadURL = strings.TrimSpace(downloadURL)
	destRoot = strings.TrimSpace(destRoot)
	switch {
	case name == "":
		return m.fail(logger, correlationID, "direct_install", titleName,
			services.Wrap(services.ErrValidation, "installer", "direct install", "title name has no usable characters", nil))
	case downloadURL == "":
		return m.fail(logger, correlationID, "direct_install", name,
			services.Wrap(services.ErrValidation, "installer", "direct install", "download url required", nil))
	case destRoot == "":
		return m.fail(logger, correlationID, "direct_install", name,
			services.Wrap(services.ErrValidation, "installer", "direct install", "destination root required", nil))
	}

	tempPath := m.tempArchivePath(name, correlationID)
	logger.Info("downloading archive",
		logging.String("title", name),
		logging.String("url", downloadURL),
		logging.String("temp_archive", tempPath),
	)
	size, err := m.download(ctx, logger, downloadURL, tempPath)
	if err != nil {
		fileutil.RemoveQuiet(tempPath)
		return m.fail(logger, correlationID, "direct_install", name, err)
	}

	if err := os.MkdirAll(destRoot, 0o755); err != nil {
		fileutil.RemoveQuiet(tempPath)
		return m.fail(logger, correlationID, "direct_install", name,
			services.Wrap(services.ErrFilesystem, "installer", "create install root", destRoot, err))
	}
	unlock, err := acquireLock(destRoot)
	if err != nil {
		fileutil.RemoveQuiet(tempPath)
		return m.fail(logger, correlationID, "direct_install", name, err)
	}
	defer unlock()

	dest := filepath.Join(destRoot, name)
	files, err := installArchive(ctx, tempPath, dest)
	if !fileutil.RemoveQuiet(tempPath) {
		logging.WarnWithContext(logger, "temp archive not removed", "install_cleanup_failed",
			logging.String("temp_archive", tempPath),
			logging.String(logging.FieldErrorHint, "delete the file manually"),
			logging.String(logging.FieldImpact, "disk space held by a stale archive"),
		)
	}
	if err != nil {
		return m.fail(logger, correlationID, "direct_install", name, err)
	}

	logger.Info("title installed",
		logging.String(logging.FieldEventType, "install_completed"),
		logging.String("title", name),
		logging.String("destination", dest),
		logging.Int64("archive_bytes", size),
		logging.Int("files", files),
	)
	m.publish(events.Event{
		Kind:          events.KindLibraryChanged,
		Reason:        "direct_install",
		Titles:        []string{name},
		CorrelationID: correlationID,
	})
	return Outcome{
		Success:        true,
		Message:        fmt.Sprintf("Successfully installed %s. Your library will refresh automatically.", name),
		ItemsInstalled: 1,
		Installed:      []string{name},
		CorrelationID:  correlationID,
	}
}

// BatchInstall extracts every .zip archive in downloadsDir into
// installRoot/<archive base name>, sequentially.
func (m *Manager) BatchInstall(ctx context.Context, downloadsDir, installRoot string) Outcome {
	correlationID := uuid.NewString()
	ctx = services.WithRequestID(services.WithOperation(ctx, "batch_install"), correlationID)
	logger := logging.WithContext(ctx, m.logger)

	logger.Info("batch install started",
		logging.String("downloads_dir", downloadsDir),
		logging.String("install_root", installRoot),
	)
	for _, dir := range []string{downloadsDir, installRoot} {
		if err := fileutil.CheckDir(dir); err != nil {
			logging.ErrorWithContext(logger, "batch install directory unavailable", "install_dirs_missing",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check paths.downloads_dir and paths.install_dir"),
			)
			return Outcome{Message: msgDirsMissing, CorrelationID: correlationID}
		}
	}

	archives, err := listArchives(downloadsDir)
	if err != nil {
		logging.ErrorWithContext(logger, "batch install listing failed", "install_batch_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, services.Hint(err)),
		)
		return Outcome{Message: msgBatchListing, CorrelationID: correlationID}
	}
	if len(archives) == 0 {
		logger.Info("no archives found", logging.String("downloads_dir", downloadsDir))
		return Outcome{Success: true, Message: msgNothingToDo, CorrelationID: correlationID}
	}

	unlock, err := acquireLock(installRoot)
	if err != nil {
		logging.ErrorWithContext(logger, "batch install lock unavailable", "install_busy",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, services.Hint(err)),
		)
		return Outcome{Message: fmt.Sprintf("Installation failed: %v", err), CorrelationID: correlationID}
	}
	defer unlock()

	var installed []string
	for _, archive := range archives {
		if err := ctx.Err(); err != nil {
			logging.WarnWithContext(logger, "batch install cancelled", "install_cancelled",
				logging.Int("remaining", len(archives)-len(installed)),
				logging.String(logging.FieldErrorHint, "run the batch install again"),
				logging.String(logging.FieldImpact, "remaining archives left in downloads"),
			)
			break
		}
		source := filepath.Join(downloadsDir, archive)
		name, err := archiveTitle(archive)
		var files int
		dest := filepath.Join(installRoot, name)
		if err == nil {
			files, err = installArchive(ctx, source, dest)
		}
		if err == nil {
			if rmErr := os.Remove(source); rmErr != nil {
				err = services.Wrap(services.ErrFilesystem, "installer", "delete archive", archive, rmErr)
			}
		}
		if err != nil {
			logging.WarnWithContext(logger, "archive install failed", "install_archive_failed",
				logging.String("archive", archive),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, services.Hint(err)),
				logging.String(logging.FieldImpact, "archive left in downloads"),
			)
			continue
		}
		logger.Info("archive installed",
			logging.String("archive", archive),
			logging.String("destination", dest),
			logging.Int("files", files),
		)
		installed = append(installed, name)
	}

	if len(installed) == 0 {
		m.publish(events.Event{
			Kind:          events.KindInstallFailed,
			Reason:        "batch_install",
			CorrelationID: correlationID,
		})
		return Outcome{Message: msgBatchAllFailed, CorrelationID: correlationID}
	}

	m.publish(events.Event{
		Kind:          events.KindLibraryChanged,
		Reason:        "batch_install",
		Titles:        installed,
		CorrelationID: correlationID,
	})
	logger.Info("batch install finished",
		logging.String(logging.FieldEventType, "install_completed"),
		logging.Int("installed", len(installed)),
		logging.Int("archives", len(archives)),
	)
	return Outcome{
		Success:        true,
		Message:        fmt.Sprintf("Successfully installed %d new game(s). Your library will refresh automatically.", len(installed)),
		ItemsInstalled: len(installed),
		Installed:      installed,
		CorrelationID:  correlationID,
	}
}

// installArchive extracts into dest, removing dest again when this call
// created it and extraction failed.
func installArchive(ctx context.Context, archive, dest string) (int, error) {
	_, statErr := os.Stat(dest)
	created := errors.Is(statErr, fs.ErrNotExist)
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return 0, services.Wrap(services.ErrFilesystem, "installer", "create destination", dest, err)
	}
	files, err := extractArchive(ctx, archive, dest)
	if err != nil {
		if created {
			_ = os.RemoveAll(dest)
		}
		return files, err
	}
	return files, nil
}

func listArchives(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, services.Wrap(services.ErrFilesystem, "installer", "list downloads", dir, err)
	}
	var archives []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".zip") {
			archives = append(archives, entry.Name())
		}
	}
	return archives, nil
}

// archiveTitle derives the install folder from an archive name, cleaned the
// same way as direct-install titles so it always stays inside the root.
func archiveTitle(file string) (string, error) {
	name := textutil.SanitizeFileName(strings.TrimSuffix(file, filepath.Ext(file)))
	if name == "" || !filepath.IsLocal(name) {
		return "", services.Wrap(services.ErrValidation, "installer", "batch install",
			fmt.Sprintf("archive %q has no usable title", file), nil)
	}
	return name, nil
}

func acquireLock(root string) (func(), error) {
	lock := flock.New(filepath.Join(root, lockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrFilesystem, "installer", "lock", root, err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrBusy, "installer", "lock", "another install is running in "+root, nil)
	}
	return func() { _ = lock.Unlock() }, nil
}

func (m *Manager) fail(logger *slog.Logger, correlationID, eventReason, title string, err error) Outcome {
	logging.ErrorWithContext(logger, "install failed", "install_failed",
		logging.String("title", title),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, services.Hint(err)),
	)
	m.publish(events.Event{
		Kind:          events.KindInstallFailed,
		Reason:        eventReason,
		Titles:        []string{title},
		CorrelationID: correlationID,
	})
	return Outcome{
		Message:       fmt.Sprintf("Installation failed: %v", err),
		CorrelationID: correlationID,
	}
}

func (m *Manager) publish(evt events.Event) {
	if m.bus == nil {
		return
	}
	m.bus.Publish(evt)
}
