package badger

import (
	"context"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/newswire/core"
	"github.com/poiesic/newswire/storage"
)

// ForwardTaskRepository implements storage.ForwardTaskRepository for BadgerDB.
type ForwardTaskRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.ForwardTaskRepository = (*ForwardTaskRepository)(nil)

// NewForwardTaskRepository creates a new ForwardTaskRepository.
func NewForwardTaskRepository(backend *Backend) (*ForwardTaskRepository, error) {
	idSeq, err := backend.GetSequence(forwardIDSeq)
	if err != nil {
		return nil, err
	}

	return &ForwardTaskRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *ForwardTaskRepository) Close() error {
	return r.idSeq.Release()
}

// WithTransaction delegates to the backend.
func (r *ForwardTaskRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// Create records a new pending ForwardTask.
func (r *ForwardTaskRepository) Create(ctx context.Context, task *core.ForwardTask) (*core.ForwardTask, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		nextID, err := r.idSeq.Next()
		if err != nil {
			return err
		}
		// BadgerDB sequences can return 0 on first call, so we skip it
		if nextID == 0 {
			nextID, err = r.idSeq.Next()
			if err != nil {
				return err
			}
		}
		task.Id = core.ID(nextID)
		task.Status = core.ForwardStatusPending
		task.InsertedAt = time.Now().UTC()
		task.UpdatedAt = task.InsertedAt

		key := makeForwardKey(task.Id)
		if err := tx.Set(key, storage.MarshalForwardTask(task)); err != nil {
			return err
		}

		statusKey := makeForwardStatusKey(task.Status, task.Id)
		if err := tx.Set(statusKey, storage.MarshalID(task.Id)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)

	return task, err
}

// Get retrieves a single ForwardTask by ID.
func (r *ForwardTaskRepository) Get(ctx context.Context, id core.ID) (*core.ForwardTask, error) {
	var result *core.ForwardTask
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readForwardTask(tx, makeForwardKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// MarkSent transitions a task to ForwardStatusSent.
func (r *ForwardTaskRepository) MarkSent(ctx context.Context, id core.ID) error {
	return r.setStatus(id, core.ForwardStatusSent, "")
}

// MarkFailed transitions a task to ForwardStatusFailed with a reason.
func (r *ForwardTaskRepository) MarkFailed(ctx context.Context, id core.ID, reason string) error {
	return r.setStatus(id, core.ForwardStatusFailed, reason)
}

// setStatus rewrites a task with a new status and moves its status index
// entry in the same transaction.
func (r *ForwardTaskRepository) setStatus(id core.ID, status core.ForwardStatus, reason string) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeForwardKey(id)
		task, err := readForwardTask(tx, key)
		if err != nil {
			return err
		}
		if task == nil {
			return storage.ErrNotFound
		}

		oldStatusKey := makeForwardStatusKey(task.Status, task.Id)
		if err := tx.Delete(oldStatusKey); err != nil {
			return err
		}

		task.Status = status
		task.Error = reason
		task.UpdatedAt = time.Now().UTC()

		if err := tx.Set(key, storage.MarshalForwardTask(task)); err != nil {
			return err
		}

		newStatusKey := makeForwardStatusKey(task.Status, task.Id)
		if err := tx.Set(newStatusKey, storage.MarshalID(task.Id)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// ListPending returns up to limit tasks still in ForwardStatusPending,
// oldest first.
func (r *ForwardTaskRepository) ListPending(ctx context.Context, limit int) ([]*core.ForwardTask, error) {
	var results []*core.ForwardTask
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		startKey := makePartialForwardStatusKey(core.ForwardStatusPending)
		iter := tx.NewIterator(badger.DefaultIteratorOptions)
		defer iter.Close()

		for iter.Seek(startKey); iter.Valid() && len(results) < limit; iter.Next() {
			key := iter.Item().Key()
			if len(key) < len(startKey) || slices.Compare(key[:len(startKey)], startKey) != 0 {
				break
			}

			var taskID core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				taskID, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				return err
			}

			task, err := readForwardTask(tx, makeForwardKey(taskID))
			if err != nil {
				return err
			}
			if task != nil {
				results = append(results, task)
			}
		}
		return nil
	}, false)

	return results, err
}

// readForwardTask reads a forward task from the transaction.
func readForwardTask(tx *badger.Txn, key []byte) (*core.ForwardTask, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var task *core.ForwardTask
	err = item.Value(func(val []byte) error {
		var err error
		task, err = storage.UnmarshalForwardTask(val)
		return err
	})
	return task, err
}
