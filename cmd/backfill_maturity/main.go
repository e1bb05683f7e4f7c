package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"design-analysis-be/internal/bootstrap"
	"design-analysis-be/internal/config"

	"github.com/fatih/color"
	"github.com/urfave/cli/v3"
)

func main() {
	var interval time.Duration
	var batchSize int

	cmd := &cli.Command{
		Name:  "backfill_maturity",
		Usage: "Score completed analysis sessions that have no maturity score yet",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:        "interval",
				Usage:       "delay between sessions (default: BACKFILL_INTERVAL)",
				Destination: &interval,
			},
			&cli.IntFlag{
				Name:        "batch-size",
				Usage:       "sessions fetched per query (default: BACKFILL_BATCH_SIZE)",
				Destination: &batchSize,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg := config.Load()
			if c.IsSet("interval") {
				cfg.Pipeline.BackfillInterval = interval
			}
			if batchSize > 0 {
				cfg.Pipeline.BackfillBatchSize = batchSize
			}

			db, err := bootstrap.OpenDatabase(cfg)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			container, err := bootstrap.NewContainer(db, cfg)
			if err != nil {
				return fmt.Errorf("build container: %w", err)
			}
			defer container.Close()

			color.Cyan("Backfilling maturity scores for completed sessions...")
			report, err := container.MaintenanceService.BackfillMaturity(ctx)
			if report != nil {
				color.Green("Scanned: %d  Created: %d", report.Scanned, report.Created)
				if report.Skipped > 0 {
					color.Yellow("Skipped: %d (already scored or no synthesis)", report.Skipped)
				}
				if report.Failed > 0 {
					color.Red("Failed:  %d (see log for details)", report.Failed)
				}
			}
			if err != nil {
				return fmt.Errorf("backfill stopped: %w", err)
			}
			if report != nil && report.Failed > 0 {
				return fmt.Errorf("%d sessions could not be scored", report.Failed)
			}
			return nil
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := cmd.Run(ctx, os.Args); err != nil {
		color.Red("%v", err)
		os.Exit(1)
	}
}
