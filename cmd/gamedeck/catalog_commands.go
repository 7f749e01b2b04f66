package main

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"gamedeck/internal/catalog"
	"gamedeck/internal/daemonrun"
)

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Search the community catalog",
	}
	catalogCmd.AddCommand(newCatalogSearchCommand(ctx))
	catalogCmd.AddCommand(newCatalogDetailsCommand(ctx))
	return catalogCmd
}

func newCatalogSearchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search catalog listings",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.TrimSpace(strings.Join(args, " "))
			if query == "" {
				return errors.New("search query must not be empty")
			}
			return ctx.withComponents(func(c *daemonrun.Components) error {
				entries := c.Catalog.Search(cmd.Context(), query, ctx.policy())
				return ctx.emit(cmd, entries, func() string { return renderEntries(entries) })
			})
		},
	}
}

func renderEntries(entries []catalog.Entry) string {
	if len(entries) == 0 {
		return "No catalog results"
	}
	rows := make([][]string, 0, len(entries))
	for i, e := range entries {
		rows = append(rows, []string{strconv.Itoa(i + 1), e.Title, yesNo(e.PosterURL != ""), e.DetailURL})
	}
	return renderTable([]string{"#", "Title", "Poster", "Details"}, rows, []columnAlignment{alignRight})
}

func newCatalogDetailsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "details <detail-url>",
		Short: "Show description, size and download links for a catalog page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withComponents(func(c *daemonrun.Components) error {
				details, ok := c.Catalog.FetchDetails(cmd.Context(), args[0])
				if !ok {
					return fmt.Errorf("catalog details unavailable for %s", args[0])
				}
				return ctx.emit(cmd, details, func() string { return renderDetails(details) })
			})
		},
	}
}

func renderDetails(d catalog.Details) string {
	size := d.SizeLabel
	if d.SizeBytes > 0 {
		size = fmt.Sprintf("%s (%s)", d.SizeLabel, humanize.Bytes(d.SizeBytes))
	}
	rows := [][]string{
		{"Size", size},
		{"Priority link", dash(d.PriorityLink)},
		{"Direct install", dash(d.DirectInstallAPI)},
	}
	hosts := make([]string, 0, len(d.AllLinks))
	for host := range d.AllLinks {
		hosts = append(hosts, host)
	}
	sort.Strings(hosts)
	for _, host := range hosts {
		rows = append(rows, []string{host, d.AllLinks[host]})
	}

	var b strings.Builder
	b.WriteString(d.Description)
	b.WriteString("\n\n")
	b.WriteString(renderTable([]string{"Field", "Value"}, rows, nil))
	return b.String()
}
