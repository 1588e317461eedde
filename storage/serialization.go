// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package storage

import (
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"

	"github.com/poiesic/newswire/core"
)

// Hand-written MUS serializers for the persisted record types. Timestamps
// are stored as Unix microseconds.

// IDMUS serializes core.ID as a varint.
var IDMUS = idSer{}

type idSer struct{}

func (idSer) Marshal(id core.ID, bs []byte) int {
	return varint.Uint64.Marshal(uint64(id), bs)
}

func (idSer) Unmarshal(bs []byte) (core.ID, int, error) {
	v, n, err := varint.Uint64.Unmarshal(bs)
	return core.ID(v), n, err
}

func (idSer) Size(id core.ID) int {
	return varint.Uint64.Size(uint64(id))
}

// timeSer serializes time.Time as Unix microseconds.
type timeSer struct{}

func (timeSer) Marshal(t time.Time, bs []byte) int {
	return varint.Int64.Marshal(t.UnixMicro(), bs)
}

func (timeSer) Unmarshal(bs []byte) (time.Time, int, error) {
	v, n, err := varint.Int64.Unmarshal(bs)
	if err != nil {
		return time.Time{}, n, err
	}
	return time.UnixMicro(v).UTC(), n, nil
}

func (timeSer) Size(t time.Time) int {
	return varint.Int64.Size(t.UnixMicro())
}

var timeMUS = timeSer{}

// stringMapSer serializes map[string]string with a varint length prefix.
type stringMapSer struct{}

func (stringMapSer) Marshal(m map[string]string, bs []byte) (n int) {
	n = varint.Uint64.Marshal(uint64(len(m)), bs)
	for k, v := range m {
		n += ord.String.Marshal(k, bs[n:])
		n += ord.String.Marshal(v, bs[n:])
	}
	return n
}

func (stringMapSer) Unmarshal(bs []byte) (map[string]string, int, error) {
	length, n, err := varint.Uint64.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if length == 0 {
		return nil, n, nil
	}
	m := make(map[string]string, length)
	for i := uint64(0); i < length; i++ {
		k, kn, err := ord.String.Unmarshal(bs[n:])
		n += kn
		if err != nil {
			return nil, n, err
		}
		v, vn, err := ord.String.Unmarshal(bs[n:])
		n += vn
		if err != nil {
			return nil, n, err
		}
		m[k] = v
	}
	return m, n, nil
}

func (stringMapSer) Size(m map[string]string) (size int) {
	size = varint.Uint64.Size(uint64(len(m)))
	for k, v := range m {
		size += ord.String.Size(k)
		size += ord.String.Size(v)
	}
	return size
}

var stringMapMUS = stringMapSer{}

// stringSliceSer serializes []string with a varint length prefix.
type stringSliceSer struct{}

func (stringSliceSer) Marshal(s []string, bs []byte) (n int) {
	n = varint.Uint64.Marshal(uint64(len(s)), bs)
	for _, v := range s {
		n += ord.String.Marshal(v, bs[n:])
	}
	return n
}

func (stringSliceSer) Unmarshal(bs []byte) ([]string, int, error) {
	length, n, err := varint.Uint64.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if length == 0 {
		return nil, n, nil
	}
	s := make([]string, 0, length)
	for i := uint64(0); i < length; i++ {
		v, vn, err := ord.String.Unmarshal(bs[n:])
		n += vn
		if err != nil {
			return nil, n, err
		}
		s = append(s, v)
	}
	return s, n, nil
}

func (stringSliceSer) Size(s []string) (size int) {
	size = varint.Uint64.Size(uint64(len(s)))
	for _, v := range s {
		size += ord.String.Size(v)
	}
	return size
}

var stringSliceMUS = stringSliceSer{}

// SourceMUS serializes core.Source.
var SourceMUS = sourceSer{}

type sourceSer struct{}

func (sourceSer) Marshal(s core.Source, bs []byte) (n int) {
	n = IDMUS.Marshal(s.Id, bs)
	n += varint.Int64.Marshal(s.ChatID, bs[n:])
	n += ord.String.Marshal(s.Title, bs[n:])
	n += ord.String.Marshal(s.Username, bs[n:])
	n += varint.Int64.Marshal(int64(s.Type), bs[n:])
	n += ord.Bool.Marshal(s.IsActive, bs[n:])
	n += timeMUS.Marshal(s.InsertedAt, bs[n:])
	n += timeMUS.Marshal(s.UpdatedAt, bs[n:])
	return n
}

func (sourceSer) Unmarshal(bs []byte) (s core.Source, n int, err error) {
	var dn int
	if s.Id, n, err = IDMUS.Unmarshal(bs); err != nil {
		return
	}
	if s.ChatID, dn, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return s, n + dn, err
	}
	n += dn
	if s.Title, dn, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return s, n + dn, err
	}
	n += dn
	if s.Username, dn, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return s, n + dn, err
	}
	n += dn
	var typ int64
	if typ, dn, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return s, n + dn, err
	}
	s.Type = core.SourceType(typ)
	n += dn
	if s.IsActive, dn, err = ord.Bool.Unmarshal(bs[n:]); err != nil {
		return s, n + dn, err
	}
	n += dn
	if s.InsertedAt, dn, err = timeMUS.Unmarshal(bs[n:]); err != nil {
		return s, n + dn, err
	}
	n += dn
	if s.UpdatedAt, dn, err = timeMUS.Unmarshal(bs[n:]); err != nil {
		return s, n + dn, err
	}
	n += dn
	return s, n, nil
}

func (sourceSer) Size(s core.Source) int {
	return IDMUS.Size(s.Id) +
		varint.Int64.Size(s.ChatID) +
		ord.String.Size(s.Title) +
		ord.String.Size(s.Username) +
		varint.Int64.Size(int64(s.Type)) +
		ord.Bool.Size(s.IsActive) +
		timeMUS.Size(s.InsertedAt) +
		timeMUS.Size(s.UpdatedAt)
}

// MessageMUS serializes core.Message.
var MessageMUS = messageSer{}

type messageSer struct{}

func (messageSer) Marshal(m core.Message, bs []byte) (n int) {
	n = IDMUS.Marshal(m.Id, bs)
	n += varint.Int64.Marshal(m.ExternalMessageID, bs[n:])
	n += varint.Int64.Marshal(m.ChatID, bs[n:])
	n += IDMUS.Marshal(m.SourceId, bs[n:])
	n += ord.String.Marshal(m.Text, bs[n:])
	n += timeMUS.Marshal(m.Timestamp, bs[n:])
	n += stringMapMUS.Marshal(m.Metadata, bs[n:])
	n += timeMUS.Marshal(m.InsertedAt, bs[n:])
	return n
}

func (messageSer) Unmarshal(bs []byte) (m core.Message, n int, err error) {
	var dn int
	if m.Id, n, err = IDMUS.Unmarshal(bs); err != nil {
		return
	}
	if m.ExternalMessageID, dn, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return m, n + dn, err
	}
	n += dn
	if m.ChatID, dn, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return m, n + dn, err
	}
	n += dn
	if m.SourceId, dn, err = IDMUS.Unmarshal(bs[n:]); err != nil {
		return m, n + dn, err
	}
	n += dn
	if m.Text, dn, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return m, n + dn, err
	}
	n += dn
	if m.Timestamp, dn, err = timeMUS.Unmarshal(bs[n:]); err != nil {
		return m, n + dn, err
	}
	n += dn
	if m.Metadata, dn, err = stringMapMUS.Unmarshal(bs[n:]); err != nil {
		return m, n + dn, err
	}
	n += dn
	if m.InsertedAt, dn, err = timeMUS.Unmarshal(bs[n:]); err != nil {
		return m, n + dn, err
	}
	n += dn
	return m, n, nil
}

func (messageSer) Size(m core.Message) int {
	return IDMUS.Size(m.Id) +
		varint.Int64.Size(m.ExternalMessageID) +
		varint.Int64.Size(m.ChatID) +
		IDMUS.Size(m.SourceId) +
		ord.String.Size(m.Text) +
		timeMUS.Size(m.Timestamp) +
		stringMapMUS.Size(m.Metadata) +
		timeMUS.Size(m.InsertedAt)
}

// MatchRecordMUS serializes core.MatchRecord.
var MatchRecordMUS = matchRecordSer{}

type matchRecordSer struct{}

func (matchRecordSer) Marshal(r core.MatchRecord, bs []byte) (n int) {
	n = IDMUS.Marshal(r.Id, bs)
	n += IDMUS.Marshal(r.MessageId, bs[n:])
	n += IDMUS.Marshal(r.RuleId, bs[n:])
	n += varint.Int64.Marshal(int64(r.Type), bs[n:])
	n += raw.Float32.Marshal(r.Score, bs[n:])
	n += stringSliceMUS.Marshal(r.Topics, bs[n:])
	n += timeMUS.Marshal(r.InsertedAt, bs[n:])
	return n
}

func (matchRecordSer) Unmarshal(bs []byte) (r core.MatchRecord, n int, err error) {
	var dn int
	if r.Id, n, err = IDMUS.Unmarshal(bs); err != nil {
		return
	}
	if r.MessageId, dn, err = IDMUS.Unmarshal(bs[n:]); err != nil {
		return r, n + dn, err
	}
	n += dn
	if r.RuleId, dn, err = IDMUS.Unmarshal(bs[n:]); err != nil {
		return r, n + dn, err
	}
	n += dn
	var typ int64
	if typ, dn, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return r, n + dn, err
	}
	r.Type = core.MatchType(typ)
	n += dn
	if r.Score, dn, err = raw.Float32.Unmarshal(bs[n:]); err != nil {
		return r, n + dn, err
	}
	n += dn
	if r.Topics, dn, err = stringSliceMUS.Unmarshal(bs[n:]); err != nil {
		return r, n + dn, err
	}
	n += dn
	if r.InsertedAt, dn, err = timeMUS.Unmarshal(bs[n:]); err != nil {
		return r, n + dn, err
	}
	n += dn
	return r, n, nil
}

func (matchRecordSer) Size(r core.MatchRecord) int {
	return IDMUS.Size(r.Id) +
		IDMUS.Size(r.MessageId) +
		IDMUS.Size(r.RuleId) +
		varint.Int64.Size(int64(r.Type)) +
		raw.Float32.Size(r.Score) +
		stringSliceMUS.Size(r.Topics) +
		timeMUS.Size(r.InsertedAt)
}

// ForwardTaskMUS serializes core.ForwardTask.
var ForwardTaskMUS = forwardTaskSer{}

type forwardTaskSer struct{}

func (forwardTaskSer) Marshal(t core.ForwardTask, bs []byte) (n int) {
	n = IDMUS.Marshal(t.Id, bs)
	n += IDMUS.Marshal(t.MessageId, bs[n:])
	n += IDMUS.Marshal(t.RuleId, bs[n:])
	n += IDMUS.Marshal(t.TopicId, bs[n:])
	n += raw.Float32.Marshal(t.Score, bs[n:])
	n += varint.Int64.Marshal(int64(t.Status), bs[n:])
	n += ord.String.Marshal(t.Error, bs[n:])
	n += timeMUS.Marshal(t.InsertedAt, bs[n:])
	n += timeMUS.Marshal(t.UpdatedAt, bs[n:])
	return n
}

func (forwardTaskSer) Unmarshal(bs []byte) (t core.ForwardTask, n int, err error) {
	var dn int
	if t.Id, n, err = IDMUS.Unmarshal(bs); err != nil {
		return
	}
	if t.MessageId, dn, err = IDMUS.Unmarshal(bs[n:]); err != nil {
		return t, n + dn, err
	}
	n += dn
	if t.RuleId, dn, err = IDMUS.Unmarshal(bs[n:]); err != nil {
		return t, n + dn, err
	}
	n += dn
	if t.TopicId, dn, err = IDMUS.Unmarshal(bs[n:]); err != nil {
		return t, n + dn, err
	}
	n += dn
	if t.Score, dn, err = raw.Float32.Unmarshal(bs[n:]); err != nil {
		return t, n + dn, err
	}
	n += dn
	var status int64
	if status, dn, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return t, n + dn, err
	}
	t.Status = core.ForwardStatus(status)
	n += dn
	if t.Error, dn, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return t, n + dn, err
	}
	n += dn
	if t.InsertedAt, dn, err = timeMUS.Unmarshal(bs[n:]); err != nil {
		return t, n + dn, err
	}
	n += dn
	if t.UpdatedAt, dn, err = timeMUS.Unmarshal(bs[n:]); err != nil {
		return t, n + dn, err
	}
	n += dn
	return t, n, nil
}

func (forwardTaskSer) Size(t core.ForwardTask) int {
	return IDMUS.Size(t.Id) +
		IDMUS.Size(t.MessageId) +
		IDMUS.Size(t.RuleId) +
		IDMUS.Size(t.TopicId) +
		raw.Float32.Size(t.Score) +
		varint.Int64.Size(int64(t.Status)) +
		ord.String.Size(t.Error) +
		timeMUS.Size(t.InsertedAt) +
		timeMUS.Size(t.UpdatedAt)
}

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, IDMUS.Size(id))
	IDMUS.Marshal(id, buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	id, _, err := IDMUS.Unmarshal(data)
	return id, err
}

// MarshalSource serializes a Source to bytes.
func MarshalSource(source *core.Source) []byte {
	buf := make([]byte, SourceMUS.Size(*source))
	SourceMUS.Marshal(*source, buf)
	return buf
}

// UnmarshalSource deserializes a Source from bytes.
func UnmarshalSource(data []byte) (*core.Source, error) {
	source, _, err := SourceMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &source, nil
}

// MarshalMessage serializes a Message to bytes.
func MarshalMessage(msg *core.Message) []byte {
	buf := make([]byte, MessageMUS.Size(*msg))
	MessageMUS.Marshal(*msg, buf)
	return buf
}

// UnmarshalMessage deserializes a Message from bytes.
func UnmarshalMessage(data []byte) (*core.Message, error) {
	msg, _, err := MessageMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// MarshalMatchRecord serializes a MatchRecord to bytes.
func MarshalMatchRecord(record *core.MatchRecord) []byte {
	buf := make([]byte, MatchRecordMUS.Size(*record))
	MatchRecordMUS.Marshal(*record, buf)
	return buf
}

// UnmarshalMatchRecord deserializes a MatchRecord from bytes.
func UnmarshalMatchRecord(data []byte) (*core.MatchRecord, error) {
	record, _, err := MatchRecordMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// MarshalForwardTask serializes a ForwardTask to bytes.
func MarshalForwardTask(task *core.ForwardTask) []byte {
	buf := make([]byte, ForwardTaskMUS.Size(*task))
	ForwardTaskMUS.Marshal(*task, buf)
	return buf
}

// UnmarshalForwardTask deserializes a ForwardTask from bytes.
func UnmarshalForwardTask(data []byte) (*core.ForwardTask, error) {
	task, _, err := ForwardTaskMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &task, nil
}
