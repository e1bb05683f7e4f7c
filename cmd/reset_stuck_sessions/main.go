package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"design-analysis-be/internal/bootstrap"
	"design-analysis-be/internal/config"

	"github.com/fatih/color"
	"github.com/urfave/cli/v3"
)

func main() {
	var staleAfter time.Duration

	cmd := &cli.Command{
		Name:  "reset_stuck_sessions",
		Usage: "Fail analysis sessions whose worker stopped sending heartbeats",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:        "stale-after",
				Usage:       "heartbeat age after which a processing session is reset (default: PIPELINE_STALE_AFTER)",
				Destination: &staleAfter,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg := config.Load()

			db, err := bootstrap.OpenDatabase(cfg)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			container, err := bootstrap.NewContainer(db, cfg)
			if err != nil {
				return fmt.Errorf("build container: %w", err)
			}
			defer container.Close()

			window := staleAfter
			if window <= 0 {
				window = cfg.Pipeline.StaleAfter
			}
			color.Cyan("Resetting sessions stuck in processing for more than %s...", window)

			count, err := container.MaintenanceService.ResetStuckSessions(ctx, window)
			if err != nil {
				return fmt.Errorf("reset failed after %d sessions: %w", count, err)
			}
			if count == 0 {
				color.Green("No stuck sessions")
				return nil
			}
			color.Yellow("Reset %d session(s) to failed", count)
			return nil
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		color.Red("%v", err)
		os.Exit(1)
	}
}
