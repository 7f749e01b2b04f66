package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"gamedeck/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Create or check the configuration file",
	}
	configCmd.AddCommand(newConfigInitCommand(), newConfigValidateCommand(ctx))
	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a sample configuration file",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := initTarget(targetPath)
			if err != nil {
				return err
			}
			if !overwrite {
				_, statErr := os.Stat(target)
				switch {
				case statErr == nil:
					return fmt.Errorf("%s already exists; pass --overwrite to replace it", target)
				case !errors.Is(statErr, fs.ErrNotExist):
					return fmt.Errorf("check config path: %w", statErr)
				}
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("create config directory: %w", err)
			}
			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("write sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Set paths.library_roots and artwork.api_key (or STEAMGRIDDB_API_KEY) before scanning.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Where to write the file (default ~/.config/gamedeck/config.toml)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing file")
	return cmd
}

func initTarget(flagValue string) (string, error) {
	if flagValue = strings.TrimSpace(flagValue); flagValue != "" {
		expanded, err := config.ExpandPath(flagValue)
		if err != nil {
			return "", fmt.Errorf("resolve config path: %w", err)
		}
		return expanded, nil
	}
	path, err := config.DefaultConfigPath()
	if err != nil {
		return "", fmt.Errorf("determine default config path: %w", err)
	}
	return path, nil
}

type configSummary struct {
	Path          string   `json:"path" yaml:"path"`
	FileExists    bool     `json:"fileExists" yaml:"fileExists"`
	LibraryRoots  []string `json:"libraryRoots" yaml:"libraryRoots"`
	DownloadsDir  string   `json:"downloadsDir" yaml:"downloadsDir"`
	InstallDir    string   `json:"installDir" yaml:"installDir"`
	CatalogURL    string   `json:"catalogUrl" yaml:"catalogUrl"`
	ArtworkKeySet bool     `json:"artworkKeySet" yaml:"artworkKeySet"`
	APIBind       string   `json:"apiBind" yaml:"apiBind"`
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Load, normalize and validate the configuration",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load(ctx.configPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}
			summary := configSummary{
				Path:          path,
				FileExists:    exists,
				LibraryRoots:  cfg.Paths.LibraryRoots,
				DownloadsDir:  cfg.Paths.DownloadsDir,
				InstallDir:    cfg.Paths.InstallDir,
				CatalogURL:    cfg.Catalog.BaseURL,
				ArtworkKeySet: strings.TrimSpace(cfg.Artwork.APIKey) != "",
				APIBind:       cfg.Daemon.APIBind,
			}
			return ctx.emit(cmd, summary, func() string {
				var b strings.Builder
				fmt.Fprintf(&b, "Config path: %s\n", summary.Path)
				if !summary.FileExists {
					b.WriteString("Config file did not exist; defaults were used\n")
				}
				b.WriteString(renderTable([]string{"Setting", "Value"}, [][]string{
					{"Library roots", dash(strings.Join(summary.LibraryRoots, ", "))},
					{"Downloads", summary.DownloadsDir},
					{"Install dir", summary.InstallDir},
					{"Catalog", summary.CatalogURL},
					{"Artwork key", yesNo(summary.ArtworkKeySet)},
					{"API bind", summary.APIBind},
				}, nil))
				b.WriteString("\nConfiguration valid")
				return b.String()
			})
		},
	}
}
