package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"gamedeck/internal/daemonrun"
	"gamedeck/internal/fileutil"
	"gamedeck/internal/installer"
	"gamedeck/internal/staging"
)

var errInstallFailed = errors.New("installation did not complete")

func newInstallCommand(ctx *commandContext) *cobra.Command {
	installCmd := &cobra.Command{
		Use:   "install",
		Short: "Install titles from archives",
	}
	installCmd.AddCommand(newInstallDirectCommand(ctx))
	installCmd.AddCommand(newInstallBatchCommand(ctx))
	installCmd.AddCommand(newInstallCleanupCommand(ctx))
	return installCmd
}

func newInstallDirectCommand(ctx *commandContext) *cobra.Command {
	var dest string
	var expectSize string
	var force bool

	cmd := &cobra.Command{
		Use:   "direct <download-url> <name>",
		Short: "Download a zip archive and extract it into the install directory",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			downloadURL := args[0]
			name := strings.Join(args[1:], " ")
			root := strings.TrimSpace(dest)
			if root == "" {
				root = cfg.Paths.InstallDir
			}

			if expectSize != "" {
				if err := checkFreeSpace(cmd.ErrOrStderr(), root, expectSize, force); err != nil {
					return err
				}
			}

			var opts []daemonrun.BuildOption
			bar := newDownloadProgress(cmd.ErrOrStderr())
			if bar != nil {
				opts = append(opts, daemonrun.WithInstallProgress(bar.update))
			}
			return ctx.withComponents(func(c *daemonrun.Components) error {
				outcome := c.Installer.DirectInstall(cmd.Context(), downloadURL, name, root)
				bar.finish()
				return ctx.emitOutcome(cmd, outcome)
			}, opts...)
		},
	}

	cmd.Flags().StringVar(&dest, "dest", "", "Install root (defaults to paths.install_dir)")
	cmd.Flags().StringVar(&expectSize, "expect-size", "", "Expected archive size, e.g. \"12.5 GB\", checked against free space")
	cmd.Flags().BoolVar(&force, "force", false, "Install even when free space looks insufficient")
	return cmd
}

func newInstallBatchCommand(ctx *commandContext) *cobra.Command {
	var downloads string
	var dest string

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Install every zip archive found in the downloads directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			source := strings.TrimSpace(downloads)
			if source == "" {
				source = cfg.Paths.DownloadsDir
			}
			root := strings.TrimSpace(dest)
			if root == "" {
				root = cfg.Paths.InstallDir
			}
			return ctx.withComponents(func(c *daemonrun.Components) error {
				return ctx.emitOutcome(cmd, c.Installer.BatchInstall(cmd.Context(), source, root))
			})
		},
	}

	cmd.Flags().StringVar(&downloads, "downloads", "", "Directory to pick archives from (defaults to paths.downloads_dir)")
	cmd.Flags().StringVar(&dest, "dest", "", "Install root (defaults to paths.install_dir)")
	return cmd
}

func newInstallCleanupCommand(ctx *commandContext) *cobra.Command {
	var maxAge time.Duration
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove archives left in the staging directory by interrupted installs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withComponents(func(c *daemonrun.Components) error {
				dir := c.Installer.TempDir()
				out := cmd.OutOrStdout()
				if dryRun {
					files, err := staging.List(dir, installer.TempArchivePattern)
					if err != nil {
						return fmt.Errorf("list staged archives: %w", err)
					}
					if files == nil {
						files = []staging.FileInfo{}
					}
					return ctx.emit(cmd, files, func() string {
						if len(files) == 0 {
							return "No staged archives in " + dir
						}
						rows := make([][]string, 0, len(files))
						for _, f := range files {
							rows = append(rows, []string{f.Name, humanize.Bytes(uint64(f.Size)), humanize.Time(f.ModTime)})
						}
						return renderTable([]string{"Archive", "Size", "Modified"}, rows,
							[]columnAlignment{alignLeft, alignRight})
					})
				}
				result := staging.CleanStale(cmd.Context(), dir, installer.TempArchivePattern, maxAge, ctx.logger())
				fmt.Fprintf(out, "Removed %d stale archive(s) from %s\n", len(result.Removed), dir)
				if len(result.Errors) > 0 {
					return fmt.Errorf("%d archive(s) could not be removed; see log", len(result.Errors))
				}
				return nil
			})
		},
	}

	cmd.Flags().DurationVar(&maxAge, "max-age", 6*time.Hour, "Only remove archives older than this")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List staged archives without removing anything")
	return cmd
}

func (c *commandContext) emitOutcome(cmd *cobra.Command, outcome installer.Outcome) error {
	if err := c.emit(cmd, outcome, func() string { return outcome.Message }); err != nil {
		return err
	}
	if !outcome.Success {
		return errInstallFailed
	}
	return nil
}

// checkFreeSpace compares a human size label against the space available
// under root (or its nearest existing parent).
func checkFreeSpace(w io.Writer, root, label string, force bool) error {
	want, err := humanize.ParseBytes(label)
	if err != nil {
		return fmt.Errorf("invalid --expect-size %q: %w", label, err)
	}
	probe := root
	for {
		if _, err := os.Stat(probe); err == nil {
			break
		}
		parent := filepath.Dir(probe)
		if parent == probe {
			break
		}
		probe = parent
	}
	free, ok := fileutil.FreeBytes(probe)
	if !ok {
		fmt.Fprintf(w, "warn: cannot determine free space under %s\n", probe)
		return nil
	}
	// Extracted data is usually larger than the archive; require twice the size.
	if free >= 2*want {
		return nil
	}
	msg := fmt.Sprintf("only %s free under %s; %s archive needs about %s",
		humanize.Bytes(free), probe, humanize.Bytes(want), humanize.Bytes(2*want))
	if force {
		fmt.Fprintf(w, "warn: %s\n", msg)
		return nil
	}
	return fmt.Errorf("%s (use --force to install anyway)", msg)
}

// downloadProgress renders archive downloads on a terminal. A nil
// *downloadProgress is valid and does nothing.
type downloadProgress struct {
	out io.Writer

	mu  sync.Mutex
	bar *progressbar.ProgressBar
}

func newDownloadProgress(out io.Writer) *downloadProgress {
	file, ok := out.(*os.File)
	if !ok || !(isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())) {
		return nil
	}
	return &downloadProgress{out: out}
}

func (p *downloadProgress) update(written, total int64) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar == nil {
		if total <= 0 {
			total = -1
		}
		p.bar = progressbar.NewOptions64(total,
			progressbar.OptionSetWriter(p.out),
			progressbar.OptionSetDescription("downloading"),
			progressbar.OptionShowBytes(true),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
	}
	_ = p.bar.Set64(written)
}

func (p *downloadProgress) finish() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}
