package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"design-analysis-be/internal/bootstrap"
	"design-analysis-be/internal/config"
	"design-analysis-be/internal/dto"
	"design-analysis-be/internal/pkg/serverutils"

	"github.com/fatih/color"
	"github.com/urfave/cli/v3"
)

// Input file: a JSON array of {title, content, category, source, freshness_score}.
func main() {
	var file string
	var batch int

	cmd := &cli.Command{
		Name:  "seed_knowledge",
		Usage: "Embed and store curated research entries",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "file",
				Usage:       "path to the knowledge entries JSON file",
				Value:       "knowledge.json",
				Destination: &file,
			},
			&cli.IntFlag{
				Name:        "batch",
				Usage:       "entries per ingest call",
				Value:       50,
				Destination: &batch,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			raw, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read %s: %w", file, err)
			}
			var entries []dto.KnowledgeEntryRequest
			if err := json.Unmarshal(raw, &entries); err != nil {
				return fmt.Errorf("parse %s: %w", file, err)
			}
			size := batch
			if size <= 0 {
				return fmt.Errorf("batch must be positive")
			}

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

			color.Cyan("Seeding %d knowledge entries from %s", len(entries), file)

			created, failed := 0, 0
			for start := 0; start < len(entries); start += size {
				end := min(start+size, len(entries))
				req := &dto.IngestKnowledgeRequest{Entries: entries[start:end]}
				if err := serverutils.ValidateRequest(req); err != nil {
					color.Red("Entries %d-%d invalid: %v", start, end-1, err)
					failed += end - start
					continue
				}
				res, err := container.KnowledgeService.Ingest(ctx, req)
				if err != nil {
					color.Red("Entries %d-%d failed: %v", start, end-1, err)
					failed += end - start
					continue
				}
				created += res.Created
				color.Green("Entries %d-%d stored as %d chunks (%s)", start, end-1, res.Created, res.EmbeddingModel)
			}

			color.Cyan("Done: %d rows created", created)
			if failed > 0 {
				return fmt.Errorf("%d entries were not stored", failed)
			}
			return nil
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		color.Red("%v", err)
		os.Exit(1)
	}
}
