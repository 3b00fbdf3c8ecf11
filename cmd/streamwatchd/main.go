// Command streamwatchd runs the monitor daemon without the CLI wrapper,
// suitable for service managers.
package main

import (
	"context"
	"log"

	"streamwatch/internal/config"
	"streamwatch/internal/daemonrun"
)

func main() {
	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	if err := daemonrun.Run(context.Background(), cfg, daemonrun.Options{}); err != nil {
		log.Fatalf("streamwatchd: %v", err)
	}
}
