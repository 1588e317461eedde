package badger

import (
	"context"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/newswire/core"
	"github.com/poiesic/newswire/storage"
)

// MessageRepository implements storage.MessageRepository for BadgerDB.
type MessageRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.MessageRepository = (*MessageRepository)(nil)

// NewMessageRepository creates a new MessageRepository.
func NewMessageRepository(backend *Backend) (*MessageRepository, error) {
	idSeq, err := backend.GetSequence(messageIDSeq)
	if err != nil {
		return nil, err
	}

	return &MessageRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *MessageRepository) Close() error {
	return r.idSeq.Release()
}

// WithTransaction delegates to the backend.
func (r *MessageRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// InsertIdempotent inserts a Message keyed by (ChatID, ExternalMessageID).
// A duplicate insert returns the existing row unchanged.
func (r *MessageRepository) InsertIdempotent(ctx context.Context, msg *core.Message) (*core.Message, bool, error) {
	var (
		result   *core.Message
		inserted bool
	)

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		// Uniqueness check against the external-id index, inside the
		// write transaction so a redelivery race is detected at commit.
		existing, err := r.readByExternalID(tx, msg.ChatID, msg.ExternalMessageID)
		if err != nil {
			return err
		}
		if existing != nil {
			result = existing
			inserted = false
			return nil
		}

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
		msg.Id = core.ID(nextID)
		msg.InsertedAt = time.Now().UTC()

		key := makeMessageKey(msg.Id)
		if err := tx.Set(key, storage.MarshalMessage(msg)); err != nil {
			return err
		}

		extKey := makeMessageExtKey(msg.ChatID, msg.ExternalMessageID)
		if err := tx.Set(extKey, storage.MarshalID(msg.Id)); err != nil {
			return err
		}

		dateKey := makeMessageDateKey(msg.Timestamp, msg.Id)
		if err := tx.Set(dateKey, storage.MarshalID(msg.Id)); err != nil {
			return err
		}

		result = msg
		inserted = true
		return tx.Commit()
	}, true)

	if err == badger.ErrConflict {
		// A concurrent insert won the race; the row now exists.
		existing, findErr := r.GetByExternalID(ctx, msg.ChatID, msg.ExternalMessageID)
		if findErr == nil {
			return existing, false, nil
		}
		return nil, false, err
	}
	if err != nil {
		return nil, false, err
	}

	return result, inserted, nil
}

// Get retrieves a single Message by ID.
func (r *MessageRepository) Get(ctx context.Context, id core.ID) (*core.Message, error) {
	var result *core.Message
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readMessage(tx, makeMessageKey(id))
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

// GetByExternalID retrieves a Message by its (chat id, external id) pair.
func (r *MessageRepository) GetByExternalID(ctx context.Context, chatID, externalMessageID int64) (*core.Message, error) {
	var result *core.Message
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = r.readByExternalID(tx, chatID, externalMessageID)
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

// GetByDateRange retrieves Messages within a time range.
func (r *MessageRepository) GetByDateRange(ctx context.Context, start, end time.Time) ([]*core.Message, error) {
	if start.Equal(end) {
		end = start.Add(1 * time.Microsecond)
	}

	var results []*core.Message
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		startKey := makePartialMessageDateKey(start)
		endKey := makePartialMessageDateKey(end)
		iter := tx.NewIterator(badger.DefaultIteratorOptions)
		defer iter.Close()

		for iter.Seek(startKey); iter.Valid(); iter.Next() {
			key := iter.Item().Key()
			if slices.Compare(key, endKey) > 0 {
				break
			}

			var messageID core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				messageID, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				return err
			}

			msg, err := readMessage(tx, makeMessageKey(messageID))
			if err != nil {
				return err
			}
			if msg != nil {
				results = append(results, msg)
			}
		}
		return nil
	}, false)

	return results, err
}

// GetRecent retrieves the N most recent Messages, newest first.
func (r *MessageRepository) GetRecent(ctx context.Context, limit int) ([]*core.Message, error) {
	var results []*core.Message
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		// Use reverse iterator to get most recent messages first
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true

		iter := tx.NewIterator(opts)
		defer iter.Close()

		// Seek to the last possible key in the date index
		startKey := makePartialMessageDateKey(time.Date(9999, 12, 31, 23, 59, 59, 999999999, time.UTC))
		prefix := []byte(messageDatePrefix + ":")

		count := 0
		for iter.Seek(startKey); iter.Valid() && count < limit; iter.Next() {
			key := iter.Item().Key()
			if len(key) < len(prefix) || slices.Compare(key[:len(prefix)], prefix) != 0 {
				break
			}

			var messageID core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				messageID, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				return err
			}

			msg, err := readMessage(tx, makeMessageKey(messageID))
			if err != nil {
				return err
			}
			if msg != nil {
				results = append(results, msg)
				count++
			}
		}
		return nil
	}, false)

	return results, err
}

// Helper methods

// readByExternalID resolves the external-id index to a full message.
// Returns nil (no error) when the pair is unknown.
func (r *MessageRepository) readByExternalID(tx *badger.Txn, chatID, externalMessageID int64) (*core.Message, error) {
	item, err := tx.Get(makeMessageExtKey(chatID, externalMessageID))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var messageID core.ID
	err = item.Value(func(val []byte) error {
		messageID, err = storage.UnmarshalID(val)
		return err
	})
	if err != nil {
		return nil, err
	}

	return readMessage(tx, makeMessageKey(messageID))
}

// readMessage reads a message from the transaction.
func readMessage(tx *badger.Txn, key []byte) (*core.Message, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var msg *core.Message
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		msg, unmarshalErr = storage.UnmarshalMessage(val)
		return unmarshalErr
	})
	return msg, err
}
