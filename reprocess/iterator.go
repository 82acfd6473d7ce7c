package reprocess

import (
	"context"

	"github.com/poiesic/chronicler/core"
	"github.com/poiesic/chronicler/storage"
)

const (
	// DefaultBatchSize is the default number of episodes handled per batch
	DefaultBatchSize = 25
)

// EpisodeIterator walks the ledger's done episodes in batches.
type EpisodeIterator struct {
	ledger    storage.LedgerRepository
	batchSize int
}

// NewEpisodeIterator creates a new episode iterator.
// batchSize: number of episodes per batch (must be > 0)
func NewEpisodeIterator(ledger storage.LedgerRepository, batchSize int) *EpisodeIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &EpisodeIterator{
		ledger:    ledger,
		batchSize: batchSize,
	}
}

// ForEach iterates over all done episodes, calling fn for each batch.
// Iteration stops on first error from fn or when all episodes are processed.
// Context cancellation is checked between batches.
func (it *EpisodeIterator) ForEach(ctx context.Context, fn func([]*core.Episode) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	episodes, err := it.ledger.ListByStatus(ctx, core.StatusDone)
	if err != nil {
		return err
	}

	if len(episodes) == 0 {
		return nil
	}

	for i := 0; i < len(episodes); i += it.batchSize {
		end := i + it.batchSize
		if end > len(episodes) {
			end = len(episodes)
		}

		if err := fn(episodes[i:end]); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}

	return nil
}
