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

package reprocess

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/poiesic/chronicler/core"
	"github.com/poiesic/chronicler/index"
	"github.com/poiesic/chronicler/ingestion"
	"github.com/poiesic/chronicler/storage"
)

// Config holds configuration for the reprocessing operation.
type Config struct {
	// BatchSize is the number of episodes handled per ledger batch
	BatchSize int

	// ReportInterval is how often to report progress (number of episodes)
	ReportInterval int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      25,
		ReportInterval: 10,
	}
}

// Reprocessor rebuilds index entries for done episodes. Each episode's
// existing points are deleted first so a chunking revision that produces
// fewer chunks leaves no orphans, then the episode runs through the normal
// ingestion path.
type Reprocessor struct {
	ledger      storage.LedgerRepository
	pipeline    *ingestion.Pipeline
	vectorIndex index.VectorIndex
	config      *Config
	progress    io.Writer
	iterator    *EpisodeIterator
}

// NewReprocessor creates a new reprocessor.
// progress: where to write progress output (typically os.Stderr)
func NewReprocessor(
	ledger storage.LedgerRepository,
	pipeline *ingestion.Pipeline,
	vectorIndex index.VectorIndex,
	config *Config,
	progress io.Writer,
) (*Reprocessor, error) {
	if ledger == nil {
		return nil, ErrLedgerRequired
	}
	if pipeline == nil {
		return nil, ErrPipelineRequired
	}
	if vectorIndex == nil {
		return nil, ErrIndexRequired
	}
	if config == nil {
		config = DefaultConfig()
	}

	return &Reprocessor{
		ledger:      ledger,
		pipeline:    pipeline,
		vectorIndex: vectorIndex,
		config:      config,
		progress:    progress,
		iterator:    NewEpisodeIterator(ledger, config.BatchSize),
	}, nil
}

// Run reprocesses every done episode. Returns per-run statistics; a failing
// episode is recorded in the ledger and counted, not fatal.
func (r *Reprocessor) Run(ctx context.Context) (*core.RunStats, error) {
	done, err := r.ledger.ListByStatus(ctx, core.StatusDone)
	if err != nil {
		return nil, fmt.Errorf("failed to list done episodes: %w", err)
	}

	stats := &core.RunStats{Total: len(done)}
	if len(done) == 0 {
		fmt.Fprintf(r.progress, "No done episodes to reprocess (0 episodes)\n")
		return stats, nil
	}

	fmt.Fprintf(r.progress, "Starting reprocessing of %d episodes (batch size: %d)\n",
		len(done), r.config.BatchSize)

	tracker := NewProgressTracker(r.progress, len(done), r.config.ReportInterval)
	tracker.Start()

	processed := 0
	err = r.iterator.ForEach(ctx, func(episodes []*core.Episode) error {
		for _, episode := range episodes {
			if err := r.reprocessEpisode(ctx, episode); err != nil {
				stats.Failed++
			} else {
				stats.Succeeded++
				stats.Chunks += episode.ChunkCount
			}
			processed++
			tracker.Update(processed)
		}
		return nil
	})
	if err != nil {
		return stats, err
	}

	tracker.Finish()

	elapsed := tracker.Elapsed()
	fmt.Fprintf(r.progress, "Reprocessing complete. %d succeeded, %d failed in %v (%.1f episodes/sec)\n",
		stats.Succeeded, stats.Failed, elapsed.Round(time.Second),
		float64(processed)/elapsed.Seconds())

	return stats, nil
}

// reprocessEpisode clears the episode's points, requeues it, and runs it
// through the ingestion path.
func (r *Reprocessor) reprocessEpisode(ctx context.Context, episode *core.Episode) error {
	if err := r.vectorIndex.DeleteEpisode(ctx, episode.SourceName, episode.EpisodeNumber); err != nil {
		return fmt.Errorf("failed to clear points for %s: %w", episode.Key(), err)
	}
	requeued, err := r.ledger.Requeue(ctx, episode.Id)
	if err != nil {
		return fmt.Errorf("failed to requeue %s: %w", episode.Key(), err)
	}
	*episode = *requeued
	return r.pipeline.ProcessEpisode(ctx, episode)
}
