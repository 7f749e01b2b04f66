package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"gamedeck/internal/config"
	"gamedeck/internal/daemon"
	"gamedeck/internal/installer"
	"gamedeck/internal/logging"
	"gamedeck/internal/notifications"
	"gamedeck/internal/staging"
)

// Archives older than this in the staging dir belong to installs that died.
const staleArchiveAge = 6 * time.Hour

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the gamedeck daemon and blocks until the context is cancelled
// or the process receives SIGINT/SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := os.MkdirAll(cfg.Paths.LogDir, 0o755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("gamedeckd-%s.log", runID))

	level := opts.LogLevel
	if strings.TrimSpace(level) == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", logPath},
		Development: opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	logConfigSnapshot(logger, cfg)
	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update gamedeckd.log link: %v\n", err)
	}
	pidPath := filepath.Join(cfg.Paths.CacheDir, "gamedeckd.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	components, err := Build(cfg, logger)
	if err != nil {
		return err
	}
	defer components.Close()
	staging.CleanStale(signalCtx, components.Installer.TempDir(), installer.TempArchivePattern, staleArchiveAge, logger)

	d, err := daemon.New(cfg, logger, daemon.Deps{
		Scanner:   components.Scanner,
		Artwork:   components.Resolver,
		Catalog:   components.Catalog,
		Installer: components.Installer,
		Bus:       components.Bus,
		Notifier:  notifications.NewService(cfg),
	})
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "stop the running instance or free "+cfg.Daemon.APIBind),
		)
		return err
	}

	<-signalCtx.Done()
	logger.Info("gamedeck daemon shutting down")
	return nil
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "gamedeckd.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logConfigSnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	logger.Info("configuration snapshot",
		logging.String(logging.FieldEventType, "config_snapshot"),
		logging.Int("library_roots", len(cfg.Paths.LibraryRoots)),
		logging.String("downloads_dir", cfg.Paths.DownloadsDir),
		logging.String("install_dir", cfg.Paths.InstallDir),
		logging.Bool("artwork_key_present", strings.TrimSpace(cfg.Artwork.APIKey) != ""),
		logging.Bool("explicit_enabled", cfg.Content.ExplicitEnabled),
		logging.String("catalog", cfg.Catalog.BaseURL),
		logging.Bool("ntfy_enabled", strings.TrimSpace(cfg.Notifications.NtfyTopic) != ""),
		logging.String("api_bind", cfg.Daemon.APIBind),
		logging.Bool("api_token_set", strings.TrimSpace(cfg.Daemon.APIToken) != ""),
	)
}
