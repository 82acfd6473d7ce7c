package reprocess

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/chronicler/core"
	"github.com/poiesic/chronicler/storage"
	badgerstore "github.com/poiesic/chronicler/storage/badger"
)

// seedDoneEpisodes inserts count episodes and marks them done.
func seedDoneEpisodes(t *testing.T, ledger storage.LedgerRepository, count int) {
	t.Helper()
	ctx := context.Background()

	for i := 1; i <= count; i++ {
		inserted, err := ledger.AddEpisodes(ctx, &core.Episode{
			SourceName:    "revolutions",
			Season:        3,
			EpisodeNumber: fmt.Sprintf("3.%d", i),
			DocID:         fmt.Sprintf("doc-3.%d", i),
		})
		require.NoError(t, err)
		_, err = ledger.SetStatus(ctx, inserted[0].Id, core.StatusInProgress, 0, "")
		require.NoError(t, err)
		_, err = ledger.SetStatus(ctx, inserted[0].Id, core.StatusDone, 4, "")
		require.NoError(t, err)
	}
}

func newTestLedger(t *testing.T) storage.LedgerRepository {
	t.Helper()
	ledger, backend, err := badgerstore.NewMemoryLedger()
	require.NoError(t, err)
	t.Cleanup(func() { ledger.Close(); backend.Close() })
	return ledger
}

func TestEpisodeIterator_Basic(t *testing.T) {
	ledger := newTestLedger(t)
	seedDoneEpisodes(t, ledger, 7)

	iterator := NewEpisodeIterator(ledger, 3)

	var batches [][]*core.Episode
	err := iterator.ForEach(context.Background(), func(episodes []*core.Episode) error {
		batches = append(batches, episodes)
		return nil
	})
	require.NoError(t, err)

	require.Len(t, batches, 3, "7 episodes at batch size 3 should yield 3 batches")
	assert.Len(t, batches[0], 3)
	assert.Len(t, batches[1], 3)
	assert.Len(t, batches[2], 1)
}

func TestEpisodeIterator_SkipsNonDone(t *testing.T) {
	ledger := newTestLedger(t)
	seedDoneEpisodes(t, ledger, 2)

	// An unprocessed episode must not appear in the iteration.
	_, err := ledger.AddEpisodes(context.Background(), &core.Episode{
		SourceName:    "revolutions",
		Season:        3,
		EpisodeNumber: "3.99",
		DocID:         "doc-3.99",
	})
	require.NoError(t, err)

	iterator := NewEpisodeIterator(ledger, 10)

	total := 0
	err = iterator.ForEach(context.Background(), func(episodes []*core.Episode) error {
		total += len(episodes)
		for _, episode := range episodes {
			assert.Equal(t, core.StatusDone, episode.Status)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestEpisodeIterator_EmptyLedger(t *testing.T) {
	ledger := newTestLedger(t)
	iterator := NewEpisodeIterator(ledger, 10)

	called := false
	err := iterator.ForEach(context.Background(), func([]*core.Episode) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.False(t, called, "callback should not run for an empty ledger")
}

func TestEpisodeIterator_ErrorStopsIteration(t *testing.T) {
	ledger := newTestLedger(t)
	seedDoneEpisodes(t, ledger, 6)

	iterator := NewEpisodeIterator(ledger, 2)
	expectedErr := errors.New("stop")

	calls := 0
	err := iterator.ForEach(context.Background(), func([]*core.Episode) error {
		calls++
		return expectedErr
	})
	require.Error(t, err)
	assert.Equal(t, expectedErr, err)
	assert.Equal(t, 1, calls, "iteration should stop on first error")
}

func TestEpisodeIterator_ContextCancellation(t *testing.T) {
	ledger := newTestLedger(t)
	seedDoneEpisodes(t, ledger, 6)

	ctx, cancel := context.WithCancel(context.Background())
	iterator := NewEpisodeIterator(ledger, 2)

	calls := 0
	err := iterator.ForEach(ctx, func([]*core.Episode) error {
		calls++
		cancel()
		return nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls, "iteration should stop after cancellation")
}

func TestEpisodeIterator_InvalidBatchSize(t *testing.T) {
	ledger := newTestLedger(t)
	iterator := NewEpisodeIterator(ledger, 0)
	assert.Equal(t, DefaultBatchSize, iterator.batchSize, "should fall back to default")
}
