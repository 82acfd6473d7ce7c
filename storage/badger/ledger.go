package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/chronicler/core"
	"github.com/poiesic/chronicler/storage"
)

// LedgerRepository implements storage.LedgerRepository for BadgerDB.
type LedgerRepository struct {
	backend *Backend
}

var _ storage.LedgerRepository = (*LedgerRepository)(nil)

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(backend *Backend) *LedgerRepository {
	return &LedgerRepository{backend: backend}
}

// Close is a no-op; the backend owns the database handle.
func (r *LedgerRepository) Close() error {
	return nil
}

// AddEpisodes records newly discovered episodes as unprocessed.
// Episodes already present keep their current entry untouched, so a
// discovery pass never resets the status of a done or failed episode.
func (r *LedgerRepository) AddEpisodes(ctx context.Context, episodes ...*core.Episode) ([]*core.Episode, error) {
	var inserted []*core.Episode

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, episode := range episodes {
			if err := core.ValidateEpisode(episode); err != nil {
				return err
			}

			episode.Id = core.IDFromContent(episode.Key())
			key := makeEpisodeKey(episode.Id)

			_, err := tx.Get(key)
			if err == nil {
				// Already in the ledger; status preserved.
				continue
			}
			if err != badger.ErrKeyNotFound {
				return err
			}

			if episode.Status == 0 {
				episode.Status = core.StatusUnprocessed
			}
			episode.DiscoveredAt = time.Now().UTC()
			episode.UpdatedAt = episode.DiscoveredAt

			if err := tx.Set(key, storage.MarshalEpisode(episode)); err != nil {
				return err
			}
			if err := tx.Set(makeStatusKey(episode.Status, episode.Id), storage.MarshalID(episode.Id)); err != nil {
				return err
			}
			inserted = append(inserted, episode)
		}
		return tx.Commit()
	}, true)

	if err != nil {
		return nil, err
	}
	return inserted, nil
}

// GetEpisode retrieves a single ledger entry by ID.
func (r *LedgerRepository) GetEpisode(ctx context.Context, id core.ID) (*core.Episode, error) {
	var episode *core.Episode
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		episode, err = r.readEpisode(tx, id)
		return err
	}, false)

	if err != nil {
		return nil, err
	}
	return episode, nil
}

// ListEpisodes returns all ledger entries ordered by ID.
func (r *LedgerRepository) ListEpisodes(ctx context.Context) ([]*core.Episode, error) {
	var episodes []*core.Episode

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(episodeRecordPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var episode *core.Episode
			err := iter.Item().Value(func(val []byte) error {
				var err error
				episode, err = storage.UnmarshalEpisode(val)
				return err
			})
			if err != nil {
				return err
			}
			episodes = append(episodes, episode)
		}
		return nil
	}, false)

	if err != nil {
		return nil, err
	}
	return episodes, nil
}

// ListByStatus returns entries with the given status via the status index,
// ordered by ID.
func (r *LedgerRepository) ListByStatus(ctx context.Context, status core.Status) ([]*core.Episode, error) {
	if err := core.ValidateStatus(status); err != nil {
		return nil, err
	}

	var episodes []*core.Episode

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePartialStatusKey(status)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var id core.ID
			err := iter.Item().Value(func(val []byte) error {
				var err error
				id, err = storage.UnmarshalID(val)
				return err
			})
			if err != nil {
				return err
			}

			episode, err := r.readEpisode(tx, id)
			if err != nil {
				return err
			}
			episodes = append(episodes, episode)
		}
		return nil
	}, false)

	if err != nil {
		return nil, err
	}
	return episodes, nil
}

// SetStatus moves an episode to a new status, enforcing the lifecycle table.
func (r *LedgerRepository) SetStatus(ctx context.Context, id core.ID, status core.Status, chunkCount int, errMsg string) (*core.Episode, error) {
	var episode *core.Episode

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		episode, err = r.readEpisode(tx, id)
		if err != nil {
			return err
		}

		if err := core.ValidateTransition(episode.Status, status); err != nil {
			return err
		}

		if err := tx.Delete(makeStatusKey(episode.Status, id)); err != nil {
			return err
		}

		episode.Status = status
		episode.UpdatedAt = time.Now().UTC()
		switch status {
		case core.StatusDone:
			episode.ChunkCount = chunkCount
			episode.LastError = ""
		case core.StatusFailed:
			episode.LastError = errMsg
		case core.StatusUnprocessed:
			episode.LastError = ""
		}

		if err := tx.Set(makeEpisodeKey(id), storage.MarshalEpisode(episode)); err != nil {
			return err
		}
		if err := tx.Set(makeStatusKey(status, id), storage.MarshalID(id)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)

	if err != nil {
		return nil, err
	}
	return episode, nil
}

// Requeue forces an episode back to unprocessed regardless of its current
// status. Unlike SetStatus this skips the lifecycle table; it backs the
// explicit force-reprocess path.
func (r *LedgerRepository) Requeue(ctx context.Context, id core.ID) (*core.Episode, error) {
	var episode *core.Episode

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		episode, err = r.readEpisode(tx, id)
		if err != nil {
			return err
		}
		if episode.Status == core.StatusUnprocessed {
			return nil
		}

		if err := tx.Delete(makeStatusKey(episode.Status, id)); err != nil {
			return err
		}

		episode.Status = core.StatusUnprocessed
		episode.LastError = ""
		episode.UpdatedAt = time.Now().UTC()

		if err := tx.Set(makeEpisodeKey(id), storage.MarshalEpisode(episode)); err != nil {
			return err
		}
		if err := tx.Set(makeStatusKey(core.StatusUnprocessed, id), storage.MarshalID(id)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)

	if err != nil {
		return nil, err
	}
	return episode, nil
}

// ResetInProgress moves stale in-progress entries back to unprocessed.
func (r *LedgerRepository) ResetInProgress(ctx context.Context) (int, error) {
	return r.moveAll(ctx, core.StatusInProgress, core.StatusUnprocessed)
}

// RetryFailed moves failed entries back to unprocessed and clears errors.
func (r *LedgerRepository) RetryFailed(ctx context.Context) (int, error) {
	return r.moveAll(ctx, core.StatusFailed, core.StatusUnprocessed)
}

// CountByStatus returns the number of ledger entries per status.
func (r *LedgerRepository) CountByStatus(ctx context.Context) (map[core.Status]int, error) {
	counts := make(map[core.Status]int)

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(episodeStatusPrefix + ":")
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		prefixLen := len(episodeStatusPrefix) + 1
		for iter.Rewind(); iter.Valid(); iter.Next() {
			key := iter.Item().Key()
			if len(key) <= prefixLen {
				continue
			}
			counts[core.Status(key[prefixLen])]++
		}
		return nil
	}, false)

	if err != nil {
		return nil, err
	}
	return counts, nil
}

// moveAll shifts every entry with status from to status to.
func (r *LedgerRepository) moveAll(ctx context.Context, from, to core.Status) (int, error) {
	episodes, err := r.ListByStatus(ctx, from)
	if err != nil {
		return 0, err
	}

	moved := 0
	for _, episode := range episodes {
		if _, err := r.SetStatus(ctx, episode.Id, to, 0, ""); err != nil {
			return moved, err
		}
		moved++
	}
	return moved, nil
}

// readEpisode reads one entry inside a transaction.
func (r *LedgerRepository) readEpisode(tx *badger.Txn, id core.ID) (*core.Episode, error) {
	item, err := tx.Get(makeEpisodeKey(id))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}

	var episode *core.Episode
	err = item.Value(func(val []byte) error {
		var err error
		episode, err = storage.UnmarshalEpisode(val)
		return err
	})
	if err != nil {
		return nil, err
	}
	return episode, nil
}
