package storage

import (
	"context"
	"time"

	"github.com/poiesic/newswire/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	// The context passed to fn may contain transaction state.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// SourceRepository provides operations for managing message sources.
type SourceRepository interface {
	Repository
	// GetOrCreate finds the Source for chatID or creates it using the hint.
	// The hint is consulted only on creation; an existing Source is returned
	// unchanged. The boolean reports whether a new Source was created.
	// Thread-safe: a concurrent first-sight race resolves to a read of the
	// winning row, never an error.
	GetOrCreate(ctx context.Context, chatID int64, hint core.SourceHint) (*core.Source, bool, error)

	// GetByChatID retrieves a Source by its platform chat identifier.
	// Returns ErrNotFound if no Source exists for the chat id.
	GetByChatID(ctx context.Context, chatID int64) (*core.Source, error)

	// Get retrieves a Source by its internal ID.
	// Returns ErrNotFound if the Source doesn't exist.
	Get(ctx context.Context, id core.ID) (*core.Source, error)

	// ListActive returns all Sources with IsActive set.
	ListActive(ctx context.Context) ([]*core.Source, error)

	// All returns every Source regardless of active state.
	All(ctx context.Context) ([]*core.Source, error)

	// SetActive flips the active flag on the Source for chatID.
	// Returns ErrNotFound if no Source exists for the chat id.
	SetActive(ctx context.Context, chatID int64, active bool) error
}

// MessageRepository provides operations for managing persisted messages.
type MessageRepository interface {
	Repository
	// InsertIdempotent inserts a Message keyed by (ChatID, ExternalMessageID).
	// If a Message with that pair already exists, the existing row is
	// returned and nothing is written. The boolean reports whether a new
	// row was inserted. For new rows the ID is generated from sequence and
	// InsertedAt is set.
	InsertIdempotent(ctx context.Context, msg *core.Message) (*core.Message, bool, error)

	// Get retrieves a single Message by ID.
	// Returns ErrNotFound if the Message doesn't exist.
	Get(ctx context.Context, id core.ID) (*core.Message, error)

	// GetByExternalID retrieves a Message by its (chat id, external id) pair.
	// Returns ErrNotFound if no such Message exists.
	GetByExternalID(ctx context.Context, chatID, externalMessageID int64) (*core.Message, error)

	// GetByDateRange retrieves Messages within a time range.
	// Returns messages where start <= Timestamp < end, ordered by timestamp.
	GetByDateRange(ctx context.Context, start, end time.Time) ([]*core.Message, error)

	// GetRecent retrieves the N most recent Messages, newest first.
	GetRecent(ctx context.Context, limit int) ([]*core.Message, error)
}

// MatchRepository provides operations for persisted filter match outcomes.
type MatchRepository interface {
	Repository
	// GetOrCreate records a match outcome keyed by (MessageId, RuleId).
	// A redelivered message re-running the same rule returns the existing
	// record. The boolean reports whether a new record was created.
	GetOrCreate(ctx context.Context, record *core.MatchRecord) (*core.MatchRecord, bool, error)

	// ListByMessage returns all match records for a message.
	ListByMessage(ctx context.Context, messageID core.ID) ([]*core.MatchRecord, error)
}

// ForwardTaskRepository provides operations for forward task lifecycle.
type ForwardTaskRepository interface {
	Repository
	// Create records a new pending ForwardTask. The ID is generated from
	// sequence and timestamps are set.
	Create(ctx context.Context, task *core.ForwardTask) (*core.ForwardTask, error)

	// Get retrieves a single ForwardTask by ID.
	// Returns ErrNotFound if the task doesn't exist.
	Get(ctx context.Context, id core.ID) (*core.ForwardTask, error)

	// MarkSent transitions a task to ForwardStatusSent.
	// Returns ErrNotFound if the task doesn't exist.
	MarkSent(ctx context.Context, id core.ID) error

	// MarkFailed transitions a task to ForwardStatusFailed with a reason.
	// Returns ErrNotFound if the task doesn't exist.
	MarkFailed(ctx context.Context, id core.ID, reason string) error

	// ListPending returns up to limit tasks still in ForwardStatusPending,
	// oldest first.
	ListPending(ctx context.Context, limit int) ([]*core.ForwardTask, error)
}
