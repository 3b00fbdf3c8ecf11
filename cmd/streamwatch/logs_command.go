package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"streamwatch/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var lines int

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show daemon log output",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			err = streamLogsFromDaemon(cmd, cfg.Paths.APIBind, lines, follow)
			if err == nil {
				return nil
			}
			if !logs.IsAPIUnavailable(err) {
				return err
			}
			// No daemon listening, read the log file directly.
			return tailLogFile(cmd, cfg.LogFile(), lines, follow)
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow log output")
	cmd.Flags().IntVarP(&lines, "lines", "n", 20, "Number of lines to show")
	return cmd
}

func streamLogsFromDaemon(cmd *cobra.Command, bind string, lines int, follow bool) error {
	client, err := logs.NewClient(bind)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	query := logs.Query{Limit: lines, Tail: true}
	if query.Limit <= 0 {
		query.Limit = 200
	}

	printed := false
	for {
		resp, err := client.Fetch(ctx, query)
		if err != nil {
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return err
		}
		for _, line := range resp.Lines {
			fmt.Fprintln(cmd.OutOrStdout(), line)
			printed = true
		}
		if !follow {
			if !printed {
				fmt.Fprintln(cmd.OutOrStdout(), "No log entries available")
			}
			return nil
		}
		query = logs.Query{Since: resp.Offset, Follow: true}
	}
}

func tailLogFile(cmd *cobra.Command, path string, lines int, follow bool) error {
	ctx := cmd.Context()
	opts := logs.TailOptions{Offset: -1, Limit: lines}
	if opts.Limit <= 0 {
		opts.Limit = 200
	}

	printed := false
	for {
		result, err := logs.Tail(ctx, path, opts)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return fmt.Errorf("tail logs: %w", err)
		}
		for _, line := range result.Lines {
			fmt.Fprintln(cmd.OutOrStdout(), line)
			printed = true
		}
		if !follow {
			if !printed {
				fmt.Fprintln(cmd.OutOrStdout(), "No log entries available")
			}
			return nil
		}
		opts = logs.TailOptions{Offset: result.Offset, Follow: true, Wait: 2 * time.Second}
	}
}
