package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/newswire/core"
	"github.com/poiesic/newswire/storage"
)

// SourceRepository implements storage.SourceRepository for BadgerDB.
type SourceRepository struct {
	backend *Backend
}

var _ storage.SourceRepository = (*SourceRepository)(nil)

// NewSourceRepository creates a new SourceRepository.
func NewSourceRepository(backend *Backend) (*SourceRepository, error) {
	return &SourceRepository{
		backend: backend,
	}, nil
}

// Close releases resources. SourceRepository has no resources to release.
func (r *SourceRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *SourceRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// sourceIDForChat derives a deterministic Source ID from the chat id, so
// concurrent creators of the same chat converge on one row.
func sourceIDForChat(chatID int64) core.ID {
	return core.IDFromContent(fmt.Sprintf("source:%d", chatID))
}

// GetOrCreate finds the Source for chatID or creates it using the hint.
func (r *SourceRepository) GetOrCreate(ctx context.Context, chatID int64, hint core.SourceHint) (*core.Source, bool, error) {
	// Try to find an existing source first
	source, err := r.GetByChatID(ctx, chatID)
	if err == nil {
		return source, false, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, false, err
	}

	sourceType := hint.Type
	if sourceType == 0 {
		sourceType = core.SourceTypeChannel
	}

	now := time.Now().UTC()
	newSource := &core.Source{
		Id:         sourceIDForChat(chatID),
		ChatID:     chatID,
		Title:      hint.Title,
		Username:   hint.Username,
		Type:       sourceType,
		IsActive:   true,
		InsertedAt: now,
		UpdatedAt:  now,
	}

	// Try to add it (may fail due to a concurrent first-sight race)
	if err := r.add(newSource); err != nil {
		// If add failed, read again: someone else may have created it
		source, findErr := r.GetByChatID(ctx, chatID)
		if findErr == nil {
			return source, false, nil
		}
		return nil, false, err
	}

	return newSource, true, nil
}

// add writes a source and its chat-id index within one transaction.
func (r *SourceRepository) add(source *core.Source) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		// Re-check under the transaction: the uniqueness guarantee lives
		// in the chat-id index.
		if _, err := tx.Get(makeSourceChatKey(source.ChatID)); err == nil {
			return storage.ErrDuplicateKey
		} else if err != badger.ErrKeyNotFound {
			return err
		}

		key := makeSourceKey(source.Id)
		if err := tx.Set(key, storage.MarshalSource(source)); err != nil {
			return err
		}

		chatKey := makeSourceChatKey(source.ChatID)
		if err := tx.Set(chatKey, storage.MarshalID(source.Id)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Get retrieves a single Source by ID.
func (r *SourceRepository) Get(ctx context.Context, id core.ID) (*core.Source, error) {
	var result *core.Source
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readSource(tx, makeSourceKey(id))
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

// GetByChatID retrieves a Source by its platform chat identifier.
func (r *SourceRepository) GetByChatID(ctx context.Context, chatID int64) (*core.Source, error) {
	var result *core.Source
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		// Look up ID from the chat index
		item, err := tx.Get(makeSourceChatKey(chatID))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}

		var sourceID core.ID
		err = item.Value(func(val []byte) error {
			sourceID, err = storage.UnmarshalID(val)
			return err
		})
		if err != nil {
			return err
		}

		result, err = readSource(tx, makeSourceKey(sourceID))
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

// ListActive returns all Sources with IsActive set.
func (r *SourceRepository) ListActive(ctx context.Context) ([]*core.Source, error) {
	all, err := r.All(ctx)
	if err != nil {
		return nil, err
	}
	active := all[:0]
	for _, source := range all {
		if source.IsActive {
			active = append(active, source)
		}
	}
	return active, nil
}

// All returns every Source regardless of active state.
func (r *SourceRepository) All(ctx context.Context) ([]*core.Source, error) {
	var results []*core.Source
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(sourcePrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var source *core.Source
			err := iter.Item().Value(func(val []byte) error {
				var err error
				source, err = storage.UnmarshalSource(val)
				return err
			})
			if err != nil {
				return err
			}
			if source != nil {
				results = append(results, source)
			}
		}
		return nil
	}, false)
	return results, err
}

// SetActive flips the active flag on the Source for chatID.
func (r *SourceRepository) SetActive(ctx context.Context, chatID int64, active bool) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeSourceChatKey(chatID))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}

		var sourceID core.ID
		err = item.Value(func(val []byte) error {
			sourceID, err = storage.UnmarshalID(val)
			return err
		})
		if err != nil {
			return err
		}

		key := makeSourceKey(sourceID)
		source, err := readSource(tx, key)
		if err != nil {
			return err
		}
		if source == nil {
			return storage.ErrNotFound
		}

		source.IsActive = active
		source.UpdatedAt = time.Now().UTC()

		if err := tx.Set(key, storage.MarshalSource(source)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// readSource reads a source from the transaction.
func readSource(tx *badger.Txn, key []byte) (*core.Source, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var source *core.Source
	err = item.Value(func(val []byte) error {
		var err error
		source, err = storage.UnmarshalSource(val)
		return err
	})
	return source, err
}
