package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"streamwatch/internal/store"
)

const timeRounding = time.Millisecond

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var streamerFlag string
	var detectedOnly bool
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded stream checks, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			records := store.Open(cfg.DetectionsFile(), nil).Records()
			login := strings.ToLower(strings.TrimSpace(streamerFlag))

			rows := make([][]string, 0, len(records))
			for i := len(records) - 1; i >= 0; i-- {
				record := records[i]
				if login != "" && record.StreamerLogin != login {
					continue
				}
				if detectedOnly && !record.LogoDetected {
					continue
				}
				rows = append(rows, []string{
					record.Timestamp.Local().Format("2006-01-02 15:04"),
					record.Streamer,
					record.Game,
					fmt.Sprintf("%d", record.Viewers),
					yesNo(record.LogoDetected),
					fmt.Sprintf("%.1f%%", record.Confidence*100),
				})
				if limit > 0 && len(rows) >= limit {
					break
				}
			}

			out := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintln(out, "No matching records")
				return nil
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Time", "Streamer", "Game", "Viewers", "Logo", "Confidence"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&streamerFlag, "streamer", "", "Only show records for this login")
	cmd.Flags().BoolVar(&detectedOnly, "detected", false, "Only show records with the logo detected")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum records to show (0 for all)")
	return cmd
}
