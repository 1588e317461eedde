package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/newswire/core"
)

func TestSourceRoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	source := &core.Source{
		Id:         core.ID(12345),
		ChatID:     -1001234567890,
		Title:      "World News",
		Username:   "worldnews",
		Type:       core.SourceTypeChannel,
		IsActive:   true,
		InsertedAt: now,
		UpdatedAt:  now,
	}

	data := MarshalSource(source)
	got, err := UnmarshalSource(data)

	require.NoError(t, err)
	assert.Equal(t, source, got)
}

func TestMessageRoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	msg := &core.Message{
		Id:                core.ID(7),
		ExternalMessageID: 42,
		ChatID:            -100555,
		SourceId:          core.ID(12345),
		Text:              "breaking news about elections",
		Timestamp:         now.Add(-time.Hour),
		Metadata: map[string]string{
			"sender_id":  "98765",
			"media_type": "photo",
		},
		InsertedAt: now,
	}

	data := MarshalMessage(msg)
	got, err := UnmarshalMessage(data)

	require.NoError(t, err)
	assert.Equal(t, msg, got)
}

func TestMessageRoundTrip_EmptyOptionalFields(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	msg := &core.Message{
		Id:                core.ID(1),
		ExternalMessageID: 1,
		ChatID:            42,
		SourceId:          core.ID(2),
		Timestamp:         now,
		InsertedAt:        now,
	}

	data := MarshalMessage(msg)
	got, err := UnmarshalMessage(data)

	require.NoError(t, err)
	assert.Equal(t, msg, got)
	assert.Nil(t, got.Metadata)
}

func TestMatchRecordRoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	record := &core.MatchRecord{
		Id:         core.ID(3),
		MessageId:  core.ID(7),
		RuleId:     core.IDFromContent("politics"),
		Type:       core.MatchTypeSemantic,
		Score:      0.82,
		Topics:     []string{"elections", "government policy"},
		InsertedAt: now,
	}

	data := MarshalMatchRecord(record)
	got, err := UnmarshalMatchRecord(data)

	require.NoError(t, err)
	assert.Equal(t, record, got)
}

func TestForwardTaskRoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	task := &core.ForwardTask{
		Id:         core.ID(9),
		MessageId:  core.ID(7),
		RuleId:     core.IDFromContent("politics"),
		TopicId:    core.IDFromContent("elections"),
		Score:      0.82,
		Status:     core.ForwardStatusFailed,
		Error:      "collaborator unavailable",
		InsertedAt: now,
		UpdatedAt:  now,
	}

	data := MarshalForwardTask(task)
	got, err := UnmarshalForwardTask(data)

	require.NoError(t, err)
	assert.Equal(t, task, got)
}

func TestIDRoundTrip(t *testing.T) {
	id := core.IDFromContent("elections")

	got, err := UnmarshalID(MarshalID(id))

	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestUnmarshalTruncatedData(t *testing.T) {
	now := time.Now().UTC()
	msg := &core.Message{Id: 1, ExternalMessageID: 1, ChatID: 1, Timestamp: now, InsertedAt: now}

	data := MarshalMessage(msg)
	_, err := UnmarshalMessage(data[:len(data)-2])

	assert.Error(t, err)
}
