package main

import (
	"github.com/spf13/cobra"

	"gamedeck/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check directories, credentials, catalog reachability and the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			var results []preflight.Result
			if offline {
				results = preflight.RunLocal(cfg)
			} else {
				results = preflight.RunAll(cmd.Context(), cfg)
			}
			results = append(results,
				preflight.ArtworkCredential(cfg),
				preflight.NotificationsStatus(cfg),
				preflight.DaemonStatus(cmd.Context(), cfg),
			)

			return ctx.emit(cmd, results, func() string {
				rows := make([][]string, 0, len(results))
				for _, r := range results {
					state := "OK"
					if !r.Passed {
						state = "FAIL"
					}
					rows = append(rows, []string{r.Name, state, r.Detail})
				}
				return renderTable([]string{"Check", "Status", "Detail"}, rows, nil)
			})
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "Skip network checks")
	return cmd
}
