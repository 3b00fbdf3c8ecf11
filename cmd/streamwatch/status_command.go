package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"streamwatch/internal/api"
	"streamwatch/internal/store"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status and history summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			status, err := fetchDaemonStatus(cfg.Paths.APIBind)
			if err != nil {
				fmt.Fprintf(out, "Daemon: not reachable at %s (%v)\n", cfg.Paths.APIBind, err)
				records := store.Open(cfg.DetectionsFile(), nil).Records()
				detections := 0
				for _, record := range records {
					if record.LogoDetected {
						detections++
					}
				}
				fmt.Fprintf(out, "History: %d records, %d detections (%s)\n",
					len(records), detections, cfg.DetectionsFile())
				return nil
			}

			fmt.Fprintf(out, "Daemon: running (pid %d)\n", status.PID)
			fmt.Fprintf(out, "Records: %d\n", status.RecordCount)
			if !status.LastCycleAt.IsZero() {
				fmt.Fprintf(out, "Last cycle: %s (%d live, %d detections)\n",
					status.LastCycleAt.Local().Format("2006-01-02 15:04:05"),
					status.LastCycle.LiveCount, status.LastCycle.Detections)
			}
			if status.LastError != "" {
				fmt.Fprintf(out, "Last error: %s\n", status.LastError)
			}
			if !status.NextCheckAt.IsZero() {
				fmt.Fprintf(out, "Next check: %s\n", status.NextCheckAt.Local().Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
}

func fetchDaemonStatus(bind string) (*api.DaemonStatus, error) {
	client := &http.Client{Timeout: 3 * time.Second}
	resp, err := client.Get("http://" + bind + "/api/status")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status endpoint returned %d", resp.StatusCode)
	}
	var status api.DaemonStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}
	return &status, nil
}
