package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"streamwatch/internal/api"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run one check cycle against all configured streamers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			result, err := api.RunCheck(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Checked %d streamers: %d live, %d with logo detected (%s)\n",
				result.Checked, result.LiveCount, result.Detections, result.Duration.Round(timeRounding))
			if len(result.NotLive) > 0 {
				fmt.Fprintf(out, "Offline: %s\n", strings.Join(result.NotLive, ", "))
			}
			fmt.Fprintf(out, "Dashboard: %s\n", cfg.DashboardFile())
			return nil
		},
	}
}
