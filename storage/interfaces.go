package storage

import (
	"context"

	"github.com/poiesic/chronicler/core"
)

// LedgerRepository is the persisted record of per-episode processing status.
// It is the source of truth for resumability: already-done episodes are
// skipped on restart. Implementations must be thread-safe.
type LedgerRepository interface {
	// AddEpisodes records newly discovered episodes as unprocessed.
	// Episodes already present in the ledger are left untouched (their
	// status is preserved across discovery runs). IDs are derived from
	// each episode's source/number key, so rediscovery is idempotent.
	// Returns the episodes that were actually inserted.
	AddEpisodes(ctx context.Context, episodes ...*core.Episode) ([]*core.Episode, error)

	// GetEpisode retrieves a single ledger entry by ID.
	// Returns ErrNotFound if the episode doesn't exist.
	GetEpisode(ctx context.Context, id core.ID) (*core.Episode, error)

	// ListEpisodes returns all ledger entries ordered by ID.
	ListEpisodes(ctx context.Context) ([]*core.Episode, error)

	// ListByStatus returns entries with the given status, ordered by ID
	// so reruns are reproducible.
	ListByStatus(ctx context.Context, status core.Status) ([]*core.Episode, error)

	// SetStatus moves an episode to a new status, enforcing the lifecycle
	// table. chunkCount is recorded when the new status is done; errMsg is
	// recorded when the new status is failed. Returns ErrNotFound if the
	// episode doesn't exist.
	SetStatus(ctx context.Context, id core.ID, status core.Status, chunkCount int, errMsg string) (*core.Episode, error)

	// ResetInProgress moves any in-progress entries back to unprocessed.
	// Called at startup: an in-progress entry can only be left over from a
	// run that died mid-episode. Returns the number of entries reset.
	ResetInProgress(ctx context.Context) (int, error)

	// RetryFailed moves failed entries back to unprocessed and clears
	// their recorded errors. Returns the number of entries moved.
	RetryFailed(ctx context.Context) (int, error)

	// Requeue forces an episode back to unprocessed regardless of its
	// current status. This is the operator override behind forced
	// reprocessing; done is otherwise terminal. Returns ErrNotFound if
	// the episode doesn't exist.
	Requeue(ctx context.Context, id core.ID) (*core.Episode, error)

	// CountByStatus returns the number of ledger entries per status.
	CountByStatus(ctx context.Context) (map[core.Status]int, error)

	// Close closes the storage backend and releases resources.
	Close() error
}
