package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"streamwatch/internal/api"
)

func newPruneCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Drop records and captures older than the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			deleted, err := api.PruneHistory(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d capture files older than %d days\n",
				deleted, cfg.Monitor.RetentionDays)
			return nil
		},
	}
}
