// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/chronicler"
	"github.com/poiesic/chronicler/config"
	"github.com/poiesic/chronicler/core"
	"github.com/poiesic/chronicler/ingestion"
	"github.com/poiesic/chronicler/reprocess"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:   "chronicler",
		Usage:  "Ingest podcast transcripts into a vector search collection",
		Before: setupLogger,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "discover",
				Usage:  "List source episodes and record new ones in the ledger",
				Action: discoverCommand,
			},
			{
				Name:   "process",
				Usage:  "Ingest unprocessed episodes into the vector index",
				Action: processCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Process at most N episodes (0 = all)",
					},
					&cli.StringFlag{
						Name:    "episode",
						Aliases: []string{"e"},
						Usage:   "Process a single episode by number or source/number key",
					},
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Reprocess episodes that are already done",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of chunks to embed and upsert per request",
						Value: 32,
					},
					&cli.IntFlag{
						Name:  "pool-size",
						Usage: "Number of episodes processed concurrently",
						Value: 2,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for transient failures",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				},
			},
			{
				Name:   "status",
				Usage:  "Show ledger counts per status and recent failures",
				Action: statusCommand,
			},
			{
				Name:   "retry-failed",
				Usage:  "Move failed episodes back to unprocessed",
				Action: retryFailedCommand,
			},
			{
				Name:   "verify",
				Usage:  "Compare ledger chunk counts against the vector index",
				Action: verifyCommand,
			},
			{
				Name:   "reprocess",
				Usage:  "Rebuild index entries for all done episodes",
				Action: reprocessCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of episodes per ledger batch",
						Value: 25,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N episodes",
						Value: 10,
					},
				},
			},
		},
	}
}

// setup loads and validates configuration, applies the memory ceiling, and
// connects the system components.
func setup(ctx context.Context) (*chronicler.Chronicler, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	if cfg.Run.MemoryLimitMB > 0 {
		debug.SetMemoryLimit(int64(cfg.Run.MemoryLimitMB) << 20)
	}

	system, err := chronicler.New(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect: %w", err)
	}
	return system, cfg, nil
}

func discoverCommand(c *cli.Context) error {
	ctx := context.Background()

	system, _, err := setup(ctx)
	if err != nil {
		return err
	}
	defer system.Close()

	pipeline, err := system.NewPipeline()
	if err != nil {
		return err
	}
	defer pipeline.Release()

	added, err := pipeline.Discover(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Discovered %d new episodes\n", added)
	return nil
}

func processCommand(c *cli.Context) error {
	ctx := context.Background()

	system, _, err := setup(ctx)
	if err != nil {
		return err
	}
	defer system.Close()

	pipeline, err := system.NewPipeline(
		ingestion.WithBatchSize(c.Int("batch-size")),
		ingestion.WithPoolSize(c.Int("pool-size")),
		ingestion.WithMaxRetries(c.Int("max-retries")),
		ingestion.WithRetryDelay(c.Duration("retry-delay")),
	)
	if err != nil {
		return err
	}
	defer pipeline.Release()

	// Discovery first so a fresh ledger still has work to do.
	if _, err := pipeline.Discover(ctx); err != nil {
		return err
	}

	stats, err := pipeline.ProcessAll(ctx, ingestion.RunOptions{
		Limit:   c.Int("limit"),
		Episode: c.String("episode"),
		Force:   c.Bool("force"),
	})
	if err != nil {
		return err
	}

	reportRun(os.Stdout, stats)
	return nil
}

// reportRun prints the run summary. Per-episode failures are recorded in
// the ledger and stay retryable, so they are an operational outcome, not a
// process failure: the command exits zero either way.
func reportRun(w io.Writer, stats *core.RunStats) {
	fmt.Fprintf(w, "Processed %d episodes: %d succeeded, %d failed, %d chunks\n",
		stats.Total, stats.Succeeded, stats.Failed, stats.Chunks)
	if stats.Failed > 0 {
		fmt.Fprintln(w, "Some episodes failed; see `chronicler status` and `chronicler retry-failed`.")
	}
}

func statusCommand(c *cli.Context) error {
	ctx := context.Background()

	system, _, err := setup(ctx)
	if err != nil {
		return err
	}
	defer system.Close()

	counts, err := system.Ledger().CountByStatus(ctx)
	if err != nil {
		return err
	}

	total := 0
	for _, status := range []core.Status{
		core.StatusUnprocessed, core.StatusInProgress, core.StatusDone, core.StatusFailed,
	} {
		fmt.Printf("%-12s %d\n", status.String(), counts[status])
		total += counts[status]
	}
	fmt.Printf("%-12s %d\n", "total", total)

	failed, err := system.Ledger().ListByStatus(ctx, core.StatusFailed)
	if err != nil {
		return err
	}
	for _, episode := range failed {
		fmt.Printf("failed: %s (%s): %s\n", episode.Key(), episode.Title, episode.LastError)
	}
	return nil
}

func retryFailedCommand(c *cli.Context) error {
	ctx := context.Background()

	system, _, err := setup(ctx)
	if err != nil {
		return err
	}
	defer system.Close()

	moved, err := system.Ledger().RetryFailed(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Requeued %d failed episodes\n", moved)
	return nil
}

func verifyCommand(c *cli.Context) error {
	ctx := context.Background()

	system, _, err := setup(ctx)
	if err != nil {
		return err
	}
	defer system.Close()

	pipeline, err := system.NewPipeline()
	if err != nil {
		return err
	}
	defer pipeline.Release()

	mismatched, err := pipeline.Verify(ctx)
	if err != nil {
		return err
	}
	if len(mismatched) == 0 {
		fmt.Println("All done episodes verified")
		return nil
	}

	for _, episode := range mismatched {
		fmt.Printf("mismatch: %s ledger=%d\n", episode.Key(), episode.ChunkCount)
	}
	return cli.Exit(fmt.Sprintf("%d episodes out of sync", len(mismatched)), 1)
}

func reprocessCommand(c *cli.Context) error {
	ctx := context.Background()

	system, _, err := setup(ctx)
	if err != nil {
		return err
	}
	defer system.Close()

	pipeline, err := system.NewPipeline()
	if err != nil {
		return err
	}
	defer pipeline.Release()

	rcfg := &reprocess.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
	}
	if rcfg.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if rcfg.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}

	reprocessor, err := system.NewReprocessor(pipeline, rcfg, os.Stderr)
	if err != nil {
		return err
	}

	stats, err := reprocessor.Run(ctx)
	if err != nil {
		return err
	}
	if stats.Failed > 0 {
		return cli.Exit(fmt.Sprintf("%d episodes failed to reprocess", stats.Failed), 1)
	}
	return nil
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
