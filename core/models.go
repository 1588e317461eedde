package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing or database sequences.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// SourceType classifies the origin of a chat source.
type SourceType int

const (
	// SourceTypeChannel represents a broadcast channel.
	SourceTypeChannel SourceType = iota + 1
	// SourceTypeGroup represents a group chat (including megagroups).
	SourceTypeGroup
	// SourceTypePrivate represents a one-on-one conversation.
	SourceTypePrivate
)

// String returns the canonical name of the source type.
func (t SourceType) String() string {
	switch t {
	case SourceTypeChannel:
		return "channel"
	case SourceTypeGroup:
		return "group"
	case SourceTypePrivate:
		return "private"
	}
	return "unknown"
}

// ParseSourceType maps a textual hint to a SourceType.
// Unrecognized or empty values default to SourceTypeChannel.
func ParseSourceType(s string) SourceType {
	switch s {
	case "channel":
		return SourceTypeChannel
	case "group":
		return SourceTypeGroup
	case "private":
		return SourceTypePrivate
	}
	return SourceTypeChannel
}

// Source is a logical origin (chat or channel) from which messages are ingested.
// Exactly one Source exists per distinct ChatID; only administrative operations
// flip IsActive.
type Source struct {
	Id         ID
	ChatID     int64 // Platform-scoped chat identifier (signed, negative for groups/channels)
	Title      string
	Username   string
	Type       SourceType
	IsActive   bool
	InsertedAt time.Time
	UpdatedAt  time.Time
}

// SourceHint carries best-effort source attributes from a raw event.
// Hints are consulted only when a Source is created for a first-seen chat id.
type SourceHint struct {
	Type     SourceType
	Title    string
	Username string
}

// IncomingMessage is the normalized, transport-agnostic representation of one
// inbound message. It is immutable once constructed and produced exactly once
// per raw event.
type IncomingMessage struct {
	ExternalMessageID int64 // Platform-scoped message identifier
	ChatID            int64
	Timestamp         time.Time
	Text              string // Empty for pure-media messages
	Metadata          map[string]string
	SourceHint        SourceHint
}

// Message is the persisted record of a processed IncomingMessage.
// It references a Source, is created exactly once per distinct
// (ChatID, ExternalMessageID) pair, and is never mutated after creation.
type Message struct {
	Id                ID
	ExternalMessageID int64
	ChatID            int64
	SourceId          ID
	Text              string
	Timestamp         time.Time // When the message was originally sent
	Metadata          map[string]string
	InsertedAt        time.Time // When the record was inserted into the database
}

// Topic is a tracked subject whose text is embedded and compared against
// message text. Topic IDs are content-addressed so identical topic text
// always resolves to the same ID.
type Topic struct {
	Id   ID
	Text string
}

// NewTopic builds a Topic with a content-derived ID.
func NewTopic(text string) Topic {
	return Topic{Id: IDFromContent(text), Text: text}
}

// MatchResult pairs a topic with its similarity score for one message text.
// Results are ephemeral; the dispatcher persists them as MatchRecords.
type MatchResult struct {
	TopicId ID
	Topic   string
	Score   float32
}

// MatchType identifies which filter stage produced a match.
type MatchType int

const (
	// MatchTypeKeyword indicates a keyword-stage match.
	MatchTypeKeyword MatchType = iota + 1
	// MatchTypeSemantic indicates a semantic-stage match.
	MatchTypeSemantic
	// MatchTypeCombined indicates both stages matched.
	MatchTypeCombined
)

// String returns the canonical name of the match type.
func (t MatchType) String() string {
	switch t {
	case MatchTypeKeyword:
		return "keyword"
	case MatchTypeSemantic:
		return "semantic"
	case MatchTypeCombined:
		return "combined"
	}
	return "unknown"
}

// MatchRecord is the persisted outcome of a filter rule matching a message.
// At most one record exists per (MessageId, RuleId) pair.
type MatchRecord struct {
	Id         ID
	MessageId  ID
	RuleId     ID
	Type       MatchType
	Score      float32
	Topics     []string // Topic texts that cleared the threshold (semantic matches)
	InsertedAt time.Time
}

// ForwardStatus tracks delivery state of a ForwardTask.
type ForwardStatus int

const (
	// ForwardStatusPending means the task is recorded but not yet delivered.
	ForwardStatusPending ForwardStatus = iota + 1
	// ForwardStatusSent means the forwarding collaborator delivered the task.
	ForwardStatusSent
	// ForwardStatusFailed means delivery was attempted and failed.
	ForwardStatusFailed
)

// ForwardTask records the intent to relay a matched message. Creation is a
// side effect of a successful filter pass; execution is owned by the
// forwarding collaborator, not this module.
type ForwardTask struct {
	Id         ID
	MessageId  ID
	RuleId     ID
	TopicId    ID
	Score      float32
	Status     ForwardStatus
	Error      string // Failure reason, set when Status is ForwardStatusFailed
	InsertedAt time.Time
	UpdatedAt  time.Time
}

// FilterMode selects which stages of the filter pipeline a rule uses.
type FilterMode int

const (
	// FilterModeKeywordOnly evaluates only the keyword stage.
	FilterModeKeywordOnly FilterMode = iota + 1
	// FilterModeSemanticOnly evaluates only the semantic stage.
	FilterModeSemanticOnly
	// FilterModeCombined gates on keywords first, then lets the semantic
	// stage decide when topics are configured.
	FilterModeCombined
)

// String returns the canonical name of the filter mode.
func (m FilterMode) String() string {
	switch m {
	case FilterModeKeywordOnly:
		return "keyword_only"
	case FilterModeSemanticOnly:
		return "semantic_only"
	case FilterModeCombined:
		return "combined"
	}
	return "unknown"
}

// DefaultThreshold is the similarity threshold applied when a rule does not
// configure its own.
const DefaultThreshold = 0.7

// FilterRule describes one tracked filter: the keywords and topics it watches
// and how matches are decided. Rule IDs are content-addressed from the rule
// name so a rule file reload keeps IDs stable.
type FilterRule struct {
	Id                 ID
	Name               string
	IsActive           bool
	Mode               FilterMode
	Keywords           []string
	Topics             []Topic
	Threshold          float32 // Minimum similarity for a semantic match, inclusive
	RequireAllKeywords bool
	CaseSensitive      bool
	WholeWord          bool
}

// NewFilterRule builds an active rule with a content-derived ID and the
// default threshold applied when none is given.
func NewFilterRule(name string, mode FilterMode, keywords []string, topics []string, threshold float32) FilterRule {
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	ts := make([]Topic, len(topics))
	for i, t := range topics {
		ts[i] = NewTopic(t)
	}
	return FilterRule{
		Id:        IDFromContent(name),
		Name:      name,
		IsActive:  true,
		Mode:      mode,
		Keywords:  keywords,
		Topics:    ts,
		Threshold: threshold,
	}
}
