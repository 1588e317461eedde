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


package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidMessage indicates an IncomingMessage failed validation.
	ErrInvalidMessage = errors.New("invalid incoming message")

	// ErrInvalidRule indicates a FilterRule failed validation.
	ErrInvalidRule = errors.New("invalid filter rule")

	// ErrInvalidTimestamp indicates a timestamp is in the future.
	ErrInvalidTimestamp = errors.New("timestamp cannot be in the future")

	// ErrMissingChatID indicates a message has no resolvable chat id.
	ErrMissingChatID = errors.New("chat id is required")

	// ErrMissingMessageID indicates a message has no resolvable message id.
	ErrMissingMessageID = errors.New("message id is required")

	// ErrInvalidSourceType indicates an invalid SourceType value.
	ErrInvalidSourceType = errors.New("invalid source type")

	// ErrEmptyRuleName indicates the rule Name field is empty.
	ErrEmptyRuleName = errors.New("rule name cannot be empty")

	// ErrInvalidThreshold indicates a similarity threshold outside [0, 1].
	ErrInvalidThreshold = errors.New("threshold must be between 0.0 and 1.0")

	// ErrRuleNeedsKeywords indicates a keyword-only rule without keywords.
	ErrRuleNeedsKeywords = errors.New("keywords are required for keyword_only mode")

	// ErrRuleNeedsTopics indicates a semantic-only rule without topics.
	ErrRuleNeedsTopics = errors.New("topics are required for semantic_only mode")

	// ErrRuleNeedsCriteria indicates a combined rule with neither keywords nor topics.
	ErrRuleNeedsCriteria = errors.New("either keywords or topics must be provided for combined mode")
)
