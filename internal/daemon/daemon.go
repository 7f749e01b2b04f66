package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"gamedeck/internal/artwork"
	"gamedeck/internal/catalog"
	"gamedeck/internal/config"
	"gamedeck/internal/events"
	"gamedeck/internal/installer"
	"gamedeck/internal/library"
	"gamedeck/internal/logging"
	"gamedeck/internal/notifications"
	"gamedeck/internal/preflight"
)

// Scanner discovers installed titles.
type Scanner interface {
	Scan(ctx context.Context, roots []string) []library.Title
}

// Catalog is the catalog surface the API exposes.
type Catalog interface {
	Search(ctx context.Context, query string, policy artwork.Policy) []catalog.Entry
	FetchDetails(ctx context.Context, detailURL string) (catalog.Details, bool)
}

// Installer performs direct and batch installs.
type Installer interface {
	DirectInstall(ctx context.Context, downloadURL, titleName, destRoot string) installer.Outcome
	BatchInstall(ctx context.Context, downloadsDir, installRoot string) installer.Outcome
}

// Deps are the pipeline components the daemon coordinates. Bus and Notifier
// default to a fresh bus and the configured ntfy service.
type Deps struct {
	Scanner   Scanner
	Artwork   library.ArtworkResolver
	Catalog   Catalog
	Installer Installer
	Bus       *events.Bus
	Notifier  notifications.Service
}

// LibrarySnapshot is the result of the most recent scan.
type LibrarySnapshot struct {
	Titles    []library.EnrichedTitle `json:"titles"`
	Roots     []string                `json:"roots"`
	ScannedAt time.Time               `json:"scannedAt"`
}

// Status represents daemon runtime information.
type Status struct {
	Running       bool               `json:"running"`
	PID           int                `json:"pid"`
	LockFilePath  string             `json:"lockFile"`
	APIAddress    string             `json:"apiAddress,omitempty"`
	Titles        int                `json:"titles"`
	LastScan      time.Time          `json:"lastScan"`
	EventsDropped uint64             `json:"eventsDropped"`
	Preflight     []preflight.Result `json:"preflight"`
}

// Daemon owns the library snapshot, rescans it whenever an install lands,
// serves the local API, and enforces single-instance execution.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	deps   Deps
	policy artwork.Policy

	lockPath string
	lock     *flock.Flock
	api      *apiServer

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	unsub   func()
	wg      sync.WaitGroup

	scanMu   sync.Mutex
	mu       sync.RWMutex
	snapshot LibrarySnapshot
	checks   []preflight.Result
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, logger *slog.Logger, deps Deps) (*Daemon, error) {
	if cfg == nil || deps.Scanner == nil || deps.Catalog == nil || deps.Installer == nil {
		return nil, errors.New("daemon requires config, scanner, catalog, and installer")
	}
	if deps.Bus == nil {
		deps.Bus = events.NewBus(16)
	}
	if deps.Notifier == nil {
		deps.Notifier = notifications.NewService(cfg)
	}

	lockPath := cfg.DaemonLockPath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		deps:     deps,
		policy:   artwork.PolicyFromConfig(cfg),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the daemon lock, subscribes to pipeline events, kicks off
// the initial scan and starts the API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	if err := os.MkdirAll(filepath.Dir(d.lockPath), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another gamedeck daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.api.start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return fmt.Errorf("start api: %w", err)
	}

	ch, unsub := d.deps.Bus.Subscribe()
	d.unsub = unsub
	d.wg.Add(2)
	go func() {
		defer d.wg.Done()
		d.consume(d.ctx, ch)
	}()
	go func() {
		defer d.wg.Done()
		d.Rescan(d.ctx)
		d.RunPreflight(d.ctx)
	}()

	d.running.Store(true)
	d.logger.Info("gamedeck daemon started",
		logging.String("lock", d.lockPath),
		logging.String("api", d.api.address()),
	)
	return nil
}

// Stop stops background work and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	if d.unsub != nil {
		d.unsub()
		d.unsub = nil
	}
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "daemon_lock_release_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove "+d.lockPath+" if no daemon is running"),
			logging.String(logging.FieldImpact, "next daemon start may report a running instance"),
		)
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("gamedeck daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	return nil
}

// Bus returns the event bus the daemon listens on.
func (d *Daemon) Bus() *events.Bus {
	return d.deps.Bus
}

// consume rescans after every library change that did not come from a
// rescan, and forwards every event to the notifier.
func (d *Daemon) consume(ctx context.Context, ch <-chan events.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			d.notify(ctx, evt)
			if evt.Kind == events.KindLibraryChanged && evt.Reason != reasonRescan {
				d.logger.Info("library changed; rescanning",
					logging.String("reason", evt.Reason),
					logging.String(logging.FieldCorrelationID, evt.CorrelationID),
				)
				d.Rescan(ctx)
			}
		}
	}
}

func (d *Daemon) notify(ctx context.Context, evt events.Event) {
	event, payload, ok := notifications.FromBusEvent(evt)
	if !ok {
		return
	}
	if err := d.deps.Notifier.Publish(ctx, event, payload); err != nil {
		logging.WarnWithContext(d.logger, "notification failed", "notification_failed",
			logging.String("event", string(event)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
			logging.String(logging.FieldImpact, "user was not notified"),
		)
	}
}

const reasonRescan = "rescan"

// Rescan walks the library roots, resolves artwork and replaces the
// snapshot. Titles that were not in the previous snapshot are announced
// with a library_changed event.
func (d *Daemon) Rescan(ctx context.Context) LibrarySnapshot {
	d.scanMu.Lock()
	defer d.scanMu.Unlock()

	start := time.Now()
	roots := append([]string(nil), d.cfg.Paths.LibraryRoots...)
	titles := d.deps.Scanner.Scan(ctx, roots)
	enriched := library.Enrich(ctx, titles, d.deps.Artwork, d.policy, d.cfg.Library.EnrichConcurrency)
	snap := LibrarySnapshot{Titles: enriched, Roots: roots, ScannedAt: time.Now().UTC()}

	d.mu.Lock()
	prev := d.snapshot
	d.snapshot = snap
	d.mu.Unlock()

	d.logger.Info("library scanned",
		logging.Int("titles", len(enriched)),
		logging.Int("roots", len(roots)),
		logging.Duration("elapsed", time.Since(start).Round(time.Millisecond)),
	)
	if !prev.ScannedAt.IsZero() {
		if added := addedTitles(prev.Titles, enriched); len(added) > 0 {
			d.deps.Bus.Publish(events.Event{Kind: events.KindLibraryChanged, Reason: reasonRescan, Titles: added})
		}
	}
	return snap
}

func addedTitles(prev, next []library.EnrichedTitle) []string {
	seen := make(map[string]struct{}, len(prev))
	for _, t := range prev {
		seen[t.ID] = struct{}{}
	}
	var added []string
	for _, t := range next {
		if _, ok := seen[t.ID]; !ok {
			added = append(added, t.Name)
		}
	}
	return added
}

// Library returns the last snapshot, fuzzy-filtered by query when set.
func (d *Daemon) Library(query string) LibrarySnapshot {
	d.mu.RLock()
	snap := d.snapshot
	d.mu.RUnlock()
	snap.Titles = library.FilterEnriched(snap.Titles, query)
	if snap.Titles == nil {
		snap.Titles = []library.EnrichedTitle{}
	}
	return snap
}

// SearchCatalog runs a catalog search with the configured content policy.
func (d *Daemon) SearchCatalog(ctx context.Context, query string) []catalog.Entry {
	return d.deps.Catalog.Search(ctx, query, d.policy)
}

// CatalogDetails fetches a catalog detail page.
func (d *Daemon) CatalogDetails(ctx context.Context, detailURL string) (catalog.Details, bool) {
	return d.deps.Catalog.FetchDetails(ctx, detailURL)
}

// DirectInstall installs from a direct-download API URL into the install dir.
func (d *Daemon) DirectInstall(ctx context.Context, downloadURL, name string) installer.Outcome {
	return d.deps.Installer.DirectInstall(ctx, downloadURL, name, d.cfg.Paths.InstallDir)
}

// BatchInstall installs every archive found in the downloads dir.
func (d *Daemon) BatchInstall(ctx context.Context) installer.Outcome {
	return d.deps.Installer.BatchInstall(ctx, d.cfg.Paths.DownloadsDir, d.cfg.Paths.InstallDir)
}

// RunPreflight refreshes the cached readiness checks.
func (d *Daemon) RunPreflight(ctx context.Context) []preflight.Result {
	results := preflight.RunAll(ctx, d.cfg)
	for _, failed := range preflight.Failed(results) {
		logging.WarnWithContext(d.logger, "preflight check failed", "preflight_failed",
			logging.String("check", failed.Name),
			logging.String("detail", failed.Detail),
			logging.String(logging.FieldErrorHint, "run gamedeck status for details"),
			logging.String(logging.FieldImpact, "related features may return empty results"),
		)
	}
	d.mu.Lock()
	d.checks = results
	d.mu.Unlock()
	return results
}

// Status returns the current daemon status.
func (d *Daemon) Status(context.Context) Status {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return Status{
		Running:       d.running.Load(),
		PID:           os.Getpid(),
		LockFilePath:  d.lockPath,
		APIAddress:    d.api.address(),
		Titles:        len(d.snapshot.Titles),
		LastScan:      d.snapshot.ScannedAt,
		EventsDropped: d.deps.Bus.Dropped(),
		Preflight:     append([]preflight.Result(nil), d.checks...),
	}
}
