package artwork

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"gamedeck/internal/logging"
)

//go:embed cache_schema.sql
var cacheSchemaSQL string

const cacheSchemaVersion = 1

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// ErrCacheSchemaMismatch indicates the cache database was written by an
// incompatible version.
var ErrCacheSchemaMismatch = errors.New("artwork cache schema version mismatch")

// Cache is a SQLite-backed ResponseCache. Reads and writes are safe for
// concurrent use; failures are logged and treated as misses.
type Cache struct {
	db     *sql.DB
	path   string
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

var _ ResponseCache = (*Cache)(nil)

// OpenCache opens (or creates) the cache database at path.
func OpenCache(path string, ttl time.Duration, logger *slog.Logger) (*Cache, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("artwork cache path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	cache := &Cache{
		db:     db,
		path:   path,
		ttl:    ttl,
		logger: logging.NewComponentLogger(logger, "artwork-cache"),
		now:    time.Now,
	}
	if err := cache.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return cache, nil
}

// Close closes the underlying database connection.
func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Path returns the database location.
func (c *Cache) Path() string {
	return c.path
}

// Get returns a fresh cached body for key.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	if c == nil || c.ttl <= 0 {
		return nil, false
	}
	cutoff := c.now().Add(-c.ttl).Unix()
	var body []byte
	err := retryOnBusy(ctx, func() error {
		return c.db.QueryRowContext(ctx,
			"SELECT body FROM responses WHERE url = ? AND fetched_at >= ?", key, cutoff,
		).Scan(&body)
	})
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			c.logger.Debug("artwork cache read failed", logging.Error(err))
		}
		return nil, false
	}
	return body, true
}

// Put stores body under key, replacing any previous entry.
func (c *Cache) Put(ctx context.Context, key string, body []byte) {
	if c == nil || c.ttl <= 0 {
		return
	}
	err := retryOnBusy(ctx, func() error {
		_, execErr := c.db.ExecContext(ctx,
			`INSERT INTO responses (url, body, fetched_at) VALUES (?, ?, ?)
			 ON CONFLICT(url) DO UPDATE SET body = excluded.body, fetched_at = excluded.fetched_at`,
			key, body, c.now().Unix())
		return execErr
	})
	if err != nil {
		logging.WarnWithContext(c.logger, "artwork cache write failed", "artwork_cache_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check permissions on "+c.path),
			logging.String(logging.FieldImpact, "registry responses will be refetched"),
		)
	}
}

// Purge deletes expired entries and returns how many were removed.
func (c *Cache) Purge(ctx context.Context) (int64, error) {
	cutoff := c.now().Add(-c.ttl).Unix()
	var removed int64
	err := retryOnBusy(ctx, func() error {
		res, execErr := c.db.ExecContext(ctx, "DELETE FROM responses WHERE fetched_at < ?", cutoff)
		if execErr != nil {
			return execErr
		}
		removed, execErr = res.RowsAffected()
		return execErr
	})
	if err != nil {
		return 0, fmt.Errorf("purge artwork cache: %w", err)
	}
	return removed, nil
}

// Count returns the number of stored responses, fresh or not.
func (c *Cache) Count(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM responses").Scan(&n); err != nil {
		return 0, fmt.Errorf("count artwork cache: %w", err)
	}
	return n, nil
}

func (c *Cache) initSchema(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, cacheSchemaSQL); err != nil {
		return fmt.Errorf("create cache schema: %w", err)
	}
	var version int
	err := c.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := c.db.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", cacheSchemaVersion); err != nil {
			return fmt.Errorf("record cache schema version: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("read cache schema version: %w", err)
	case version != cacheSchemaVersion:
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s)",
			ErrCacheSchemaMismatch, version, cacheSchemaVersion, c.path)
	}
	return nil
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
