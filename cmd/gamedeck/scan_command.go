package main

import (
	"strconv"

	"github.com/spf13/cobra"

	"gamedeck/internal/daemonrun"
	"gamedeck/internal/library"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var enrich bool
	var filter string
	var roots []string

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "List installed titles found under the library roots",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if len(roots) == 0 {
				roots = cfg.Paths.LibraryRoots
			}

			scanner := library.NewScanner(cfg.Library.ExecutableExtensions, ctx.logger())
			titles := library.Filter(scanner.Scan(cmd.Context(), roots), filter)
			if titles == nil {
				titles = []library.Title{}
			}
			if !enrich {
				return ctx.emit(cmd, titles, func() string { return renderTitles(titles) })
			}

			return ctx.withComponents(func(c *daemonrun.Components) error {
				enriched := library.Enrich(cmd.Context(), titles, c.Resolver, ctx.policy(), cfg.Library.EnrichConcurrency)
				return ctx.emit(cmd, enriched, func() string { return renderEnrichedTitles(enriched) })
			})
		},
	}

	cmd.Flags().BoolVar(&enrich, "enrich", false, "Resolve artwork for every title")
	cmd.Flags().StringVarP(&filter, "filter", "f", "", "Fuzzy filter on title name")
	cmd.Flags().StringSliceVar(&roots, "root", nil, "Library root to scan (repeatable; defaults to paths.library_roots)")
	return cmd
}

func renderTitles(titles []library.Title) string {
	if len(titles) == 0 {
		return "No titles found"
	}
	rows := make([][]string, 0, len(titles))
	for _, t := range titles {
		rows = append(rows, []string{t.Name, strconv.Itoa(len(t.Executables)), firstExecutable(t), t.InstallPath})
	}
	return renderTable([]string{"Title", "Exes", "Launch", "Path"}, rows,
		[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft})
}

func renderEnrichedTitles(titles []library.EnrichedTitle) string {
	if len(titles) == 0 {
		return "No titles found"
	}
	rows := make([][]string, 0, len(titles))
	for _, t := range titles {
		rows = append(rows, []string{
			t.Name,
			firstExecutable(t.Title),
			yesNo(t.Artwork.PosterURL != ""),
			strconv.Itoa(len(t.Artwork.HeroURLs)),
			yesNo(t.Artwork.LogoURL != ""),
		})
	}
	return renderTable([]string{"Title", "Launch", "Poster", "Heroes", "Logo"}, rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft})
}

func firstExecutable(t library.Title) string {
	if len(t.Executables) == 0 {
		return "-"
	}
	if len(t.Executables) == 1 {
		return t.Executables[0]
	}
	return t.Executables[0] + " (+" + strconv.Itoa(len(t.Executables)-1) + ")"
}
