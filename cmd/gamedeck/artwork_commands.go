package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"gamedeck/internal/artwork"
	"gamedeck/internal/daemonrun"
)

func newArtworkCommand(ctx *commandContext) *cobra.Command {
	artworkCmd := &cobra.Command{
		Use:   "artwork",
		Short: "Query the artwork registry",
	}
	artworkCmd.AddCommand(newArtworkSearchCommand(ctx))
	artworkCmd.AddCommand(newArtworkResolveCommand(ctx))
	artworkCmd.AddCommand(newArtworkImagesCommand(ctx))
	artworkCmd.AddCommand(newArtworkCacheCommand(ctx))
	return artworkCmd
}

func newArtworkSearchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "search <name>",
		Short: "Find the best registry match for a title",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.Join(args, " ")
			return ctx.withComponents(func(c *daemonrun.Components) error {
				if !c.Resolver.Enabled() {
					return errNoArtworkKey
				}
				game, ok := c.Resolver.Search(cmd.Context(), name, ctx.policy())
				if !ok {
					return fmt.Errorf("no registry match for %q", name)
				}
				return ctx.emit(cmd, game, func() string {
					return renderTable(
						[]string{"ID", "Name", "Explicit", "Verified"},
						[][]string{{strconv.FormatInt(game.ID, 10), game.Name, yesNo(game.Explicit), yesNo(game.Verified)}},
						[]columnAlignment{alignRight},
					)
				})
			})
		},
	}
}

func newArtworkResolveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <name>",
		Short: "Resolve poster, hero and logo artwork for a title",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.Join(args, " ")
			return ctx.withComponents(func(c *daemonrun.Components) error {
				if !c.Resolver.Enabled() {
					return errNoArtworkKey
				}
				set := c.Resolver.ResolveSet(cmd.Context(), name, ctx.policy())
				return ctx.emit(cmd, set, func() string { return renderArtworkSet(name, set) })
			})
		},
	}
}

func renderArtworkSet(name string, set artwork.Set) string {
	if set.Empty() {
		return fmt.Sprintf("No artwork found for %s", name)
	}
	rows := [][]string{
		{"Registry ID", strconv.FormatInt(set.SourceRegistryID, 10)},
		{"Poster", dash(set.PosterURL)},
		{"Logo", dash(set.LogoURL)},
	}
	for i, hero := range set.HeroURLs {
		rows = append(rows, []string{fmt.Sprintf("Hero %d", i+1), hero})
	}
	return renderTable([]string{"Artwork", "URL"}, rows, nil)
}

func newArtworkImagesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "images <grid|hero|logo> <game-id>",
		Short: "List registry images of one kind for a game",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, ok := artwork.ParseKind(strings.ToLower(strings.TrimSpace(args[0])))
			if !ok {
				return fmt.Errorf("unknown artwork kind %q (want grid, hero or logo)", args[0])
			}
			gameID, err := strconv.ParseInt(strings.TrimSpace(args[1]), 10, 64)
			if err != nil || gameID <= 0 {
				return fmt.Errorf("invalid game id %q", args[1])
			}
			return ctx.withComponents(func(c *daemonrun.Components) error {
				if !c.Resolver.Enabled() {
					return errNoArtworkKey
				}
				images := c.Resolver.FetchImages(cmd.Context(), kind, gameID, ctx.policy())
				if images == nil {
					images = []artwork.Image{}
				}
				return ctx.emit(cmd, images, func() string { return renderImages(images) })
			})
		},
	}
}

func renderImages(images []artwork.Image) string {
	if len(images) == 0 {
		return "No images found"
	}
	rows := make([][]string, 0, len(images))
	for _, img := range images {
		rows = append(rows, []string{
			strconv.FormatInt(img.ID, 10),
			strconv.Itoa(img.Score),
			dash(img.Style),
			yesNo(img.Explicit),
			img.URL,
		})
	}
	return renderTable([]string{"ID", "Score", "Style", "Explicit", "URL"}, rows,
		[]columnAlignment{alignRight, alignRight})
}

func newArtworkCacheCommand(ctx *commandContext) *cobra.Command {
	var purge bool
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Show or purge the artwork response cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withComponents(func(c *daemonrun.Components) error {
				cache := c.Cache()
				if cache == nil {
					return errors.New("artwork cache is not in use (no api key configured)")
				}
				out := cmd.OutOrStdout()
				if purge {
					removed, err := cache.Purge(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Removed %d expired responses\n", removed)
				}
				count, err := cache.Count(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Cache: %s (%d responses)\n", cache.Path(), count)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&purge, "purge", false, "Delete expired responses first")
	return cmd
}
