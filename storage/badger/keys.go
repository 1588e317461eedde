package badger

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/poiesic/newswire/core"
)

// Key prefixes for different data types
const (
	sourcePrefix        = "srcrec"
	sourceChatPrefix    = "srcchat"
	messagePrefix       = "msgrec"
	messageExtPrefix    = "msgext"
	messageDatePrefix   = "msgrecd"
	messageIDSeq        = "msgrecseq"
	matchPrefix         = "mtchrec"
	matchMsgPrefix      = "mtchmsg"
	forwardPrefix       = "fwdtask"
	forwardStatusPrefix = "fwdstat"
	forwardIDSeq        = "fwdtaskseq"
)

// makeSourceKey generates a key for a source by ID.
func makeSourceKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", sourcePrefix, id))
}

// makeSourceChatKey generates a key for the chat-id uniqueness index.
// Format: prefix:chatID
func makeSourceChatKey(chatID int64) []byte {
	prefix := sourceChatPrefix + ":"
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(chatID))
	return buf
}

// makeMessageKey generates a key for a message by ID.
func makeMessageKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", messagePrefix, id))
}

// makeMessageExtKey generates a composite key for the external-id
// uniqueness index.
// Format: prefix:chatID:externalMessageID
func makeMessageExtKey(chatID, externalMessageID int64) []byte {
	prefix := messageExtPrefix + ":"
	buf := make([]byte, len(prefix)+16)
	offset := copy(buf, prefix)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(chatID))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(externalMessageID))
	return buf
}

// makeMessageDateKey generates a composite key for the date index.
// Format: prefix:timestamp:id
func makeMessageDateKey(timestamp time.Time, id core.ID) []byte {
	prefix := messageDatePrefix + ":"
	buf := make([]byte, len(prefix)+16)
	offset := copy(buf, prefix)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(timestamp.UnixMicro()))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makePartialMessageDateKey generates a partial key for date range queries.
// Format: prefix:timestamp
func makePartialMessageDateKey(timestamp time.Time) []byte {
	prefix := messageDatePrefix + ":"
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(timestamp.UnixMicro()))
	return buf
}

// makeMatchKey generates a key for a match record by ID.
func makeMatchKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", matchPrefix, id))
}

// makeMatchMsgKey generates a composite key for the per-message match index.
// Format: prefix:messageID:ruleID
func makeMatchMsgKey(messageID, ruleID core.ID) []byte {
	prefix := matchMsgPrefix + ":"
	buf := make([]byte, len(prefix)+16)
	offset := copy(buf, prefix)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(messageID))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(ruleID))
	return buf
}

// makePartialMatchMsgKey generates a partial key for per-message match scans.
// Format: prefix:messageID
func makePartialMatchMsgKey(messageID core.ID) []byte {
	prefix := matchMsgPrefix + ":"
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(messageID))
	return buf
}

// makeForwardKey generates a key for a forward task by ID.
func makeForwardKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", forwardPrefix, id))
}

// makeForwardStatusKey generates a composite key for the status index.
// Format: prefix:status:id
func makeForwardStatusKey(status core.ForwardStatus, id core.ID) []byte {
	prefix := forwardStatusPrefix + ":"
	buf := make([]byte, len(prefix)+9)
	offset := copy(buf, prefix)
	buf[offset] = byte(status)
	offset++
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makePartialForwardStatusKey generates a partial key for status scans.
// Format: prefix:status
func makePartialForwardStatusKey(status core.ForwardStatus) []byte {
	prefix := forwardStatusPrefix + ":"
	buf := make([]byte, len(prefix)+1)
	offset := copy(buf, prefix)
	buf[offset] = byte(status)
	return buf
}
