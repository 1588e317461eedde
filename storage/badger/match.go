package badger

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/newswire/core"
	"github.com/poiesic/newswire/storage"
)

// MatchRepository implements storage.MatchRepository for BadgerDB.
type MatchRepository struct {
	backend *Backend
}

var _ storage.MatchRepository = (*MatchRepository)(nil)

// NewMatchRepository creates a new MatchRepository.
func NewMatchRepository(backend *Backend) (*MatchRepository, error) {
	return &MatchRepository{
		backend: backend,
	}, nil
}

// Close releases resources. MatchRepository has no resources to release.
func (r *MatchRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *MatchRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// matchIDFor derives a deterministic record ID from the (message, rule)
// pair, making GetOrCreate naturally idempotent.
func matchIDFor(messageID, ruleID core.ID) core.ID {
	return core.IDFromContent(fmt.Sprintf("match:%d:%d", messageID, ruleID))
}

// GetOrCreate records a match outcome keyed by (MessageId, RuleId).
func (r *MatchRepository) GetOrCreate(ctx context.Context, record *core.MatchRecord) (*core.MatchRecord, bool, error) {
	var (
		result  *core.MatchRecord
		created bool
	)

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		id := matchIDFor(record.MessageId, record.RuleId)
		key := makeMatchKey(id)

		existing, err := readMatchRecord(tx, key)
		if err != nil {
			return err
		}
		if existing != nil {
			result = existing
			created = false
			return nil
		}

		record.Id = id
		record.InsertedAt = time.Now().UTC()

		if err := tx.Set(key, storage.MarshalMatchRecord(record)); err != nil {
			return err
		}

		msgKey := makeMatchMsgKey(record.MessageId, record.RuleId)
		if err := tx.Set(msgKey, storage.MarshalID(id)); err != nil {
			return err
		}

		result = record
		created = true
		return tx.Commit()
	}, true)

	if err == badger.ErrConflict {
		// A concurrent redelivery won the race; read the winning record.
		id := matchIDFor(record.MessageId, record.RuleId)
		var existing *core.MatchRecord
		readErr := r.backend.WithTx(func(tx *badger.Txn) error {
			var err error
			existing, err = readMatchRecord(tx, makeMatchKey(id))
			return err
		}, false)
		if readErr == nil && existing != nil {
			return existing, false, nil
		}
		return nil, false, err
	}
	if err != nil {
		return nil, false, err
	}

	return result, created, nil
}

// ListByMessage returns all match records for a message.
func (r *MatchRepository) ListByMessage(ctx context.Context, messageID core.ID) ([]*core.MatchRecord, error) {
	var results []*core.MatchRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		startKey := makePartialMatchMsgKey(messageID)
		iter := tx.NewIterator(badger.DefaultIteratorOptions)
		defer iter.Close()

		for iter.Seek(startKey); iter.Valid(); iter.Next() {
			key := iter.Item().Key()
			if len(key) < len(startKey) || slices.Compare(key[:len(startKey)], startKey) != 0 {
				break
			}

			var recordID core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				recordID, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				return err
			}

			record, err := readMatchRecord(tx, makeMatchKey(recordID))
			if err != nil {
				return err
			}
			if record != nil {
				results = append(results, record)
			}
		}
		return nil
	}, false)

	return results, err
}

// readMatchRecord reads a match record from the transaction.
func readMatchRecord(tx *badger.Txn, key []byte) (*core.MatchRecord, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var record *core.MatchRecord
	err = item.Value(func(val []byte) error {
		var err error
		record, err = storage.UnmarshalMatchRecord(val)
		return err
	})
	return record, err
}
