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


package dispatch

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/poiesic/newswire/core"
)

// RawChat carries the chat attributes a transport reports alongside an event.
// All fields are best-effort; missing ones degrade to defaults.
type RawChat struct {
	Type      string `json:"type"` // "user", "chat" or "channel" as reported by the transport
	Title     string `json:"title,omitempty"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Megagroup bool   `json:"megagroup,omitempty"`
}

// RawEvent is one inbound message event as delivered by a transport, before
// normalization. Only MessageID and ChatID are required.
type RawEvent struct {
	MessageID int64     `json:"message_id"`
	ChatID    int64     `json:"chat_id"`
	Date      time.Time `json:"date,omitempty"`
	Text      string    `json:"text,omitempty"`
	SenderID  int64     `json:"sender_id,omitempty"`
	ReplyToID int64     `json:"reply_to_msg_id,omitempty"`
	Forwarded bool      `json:"is_forward,omitempty"`
	MediaType string    `json:"media_type,omitempty"` // Empty when the message carries no media
	Chat      *RawChat  `json:"chat,omitempty"`
}

// Normalize converts a raw event into the transport-agnostic IncomingMessage.
//
// Missing optional fields degrade to defaults: a zero Date becomes the
// current time, an absent chat yields an empty hint, and the source type is
// inferred from the chat shape (user chats are private, megagroups are
// groups, everything else is a channel). Only a missing chat id or message
// id is an error.
func Normalize(ev *RawEvent) (*core.IncomingMessage, error) {
	if ev == nil {
		return nil, fmt.Errorf("%w: event is nil", ErrNormalization)
	}
	if ev.ChatID == 0 {
		return nil, fmt.Errorf("%w: %w", ErrNormalization, core.ErrMissingChatID)
	}
	if ev.MessageID == 0 {
		return nil, fmt.Errorf("%w: %w", ErrNormalization, core.ErrMissingMessageID)
	}

	ts := ev.Date
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	msg := &core.IncomingMessage{
		ExternalMessageID: ev.MessageID,
		ChatID:            ev.ChatID,
		Timestamp:         ts,
		Text:              ev.Text,
		Metadata:          eventMetadata(ev),
		SourceHint:        sourceHint(ev.Chat),
	}

	return msg, nil
}

// sourceHint derives best-effort source attributes from the raw chat.
func sourceHint(chat *RawChat) core.SourceHint {
	if chat == nil {
		return core.SourceHint{}
	}

	hint := core.SourceHint{
		Type:     inferSourceType(chat),
		Title:    chatTitle(chat),
		Username: chat.Username,
	}
	return hint
}

func inferSourceType(chat *RawChat) core.SourceType {
	switch {
	case chat.Type == "user":
		return core.SourceTypePrivate
	case chat.Type == "chat" || chat.Megagroup:
		return core.SourceTypeGroup
	}
	return core.SourceTypeChannel
}

// chatTitle picks a display title: explicit title, then the person's name,
// then the username.
func chatTitle(chat *RawChat) string {
	if chat.Title != "" {
		return chat.Title
	}
	name := strings.TrimSpace(chat.FirstName + " " + chat.LastName)
	if name != "" {
		return name
	}
	return chat.Username
}

// eventMetadata collects the optional event attributes worth persisting.
// Keys are only present when the underlying field is set, so downstream
// consumers can distinguish "absent" from "zero".
func eventMetadata(ev *RawEvent) map[string]string {
	md := make(map[string]string)
	if ev.SenderID != 0 {
		md["sender_id"] = strconv.FormatInt(ev.SenderID, 10)
	}
	if ev.ReplyToID != 0 {
		md["reply_to_msg_id"] = strconv.FormatInt(ev.ReplyToID, 10)
	}
	if ev.Forwarded {
		md["is_forward"] = "true"
	}
	if ev.MediaType != "" {
		md["has_media"] = "true"
		md["media_type"] = ev.MediaType
	}
	if len(md) == 0 {
		return nil
	}
	return md
}
