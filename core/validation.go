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

import (
	"fmt"
	"time"
)

// ValidateIncomingMessage validates an IncomingMessage according to domain rules.
//
// Validation rules:
//   - ChatID must be set (non-zero)
//   - ExternalMessageID must be set (non-zero)
//
// NOT validated (degrade gracefully to defaults):
//   - Text (empty is valid for pure-media messages)
//   - Metadata and SourceHint (best-effort fields)
func ValidateIncomingMessage(msg *IncomingMessage) error {
	if msg == nil {
		return fmt.Errorf("%w: message is nil", ErrInvalidMessage)
	}

	if msg.ChatID == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidMessage, ErrMissingChatID)
	}

	if msg.ExternalMessageID == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidMessage, ErrMissingMessageID)
	}

	return nil
}

// ValidateFilterRule validates a FilterRule according to domain rules.
//
// Validation rules:
//   - Name must not be empty
//   - Threshold must lie in [0, 1]
//   - Mode-specific criteria must be present (keywords, topics, or either)
func ValidateFilterRule(rule *FilterRule) error {
	if rule == nil {
		return fmt.Errorf("%w: rule is nil", ErrInvalidRule)
	}

	if rule.Name == "" {
		return fmt.Errorf("%w: %w", ErrInvalidRule, ErrEmptyRuleName)
	}

	if rule.Threshold < 0 || rule.Threshold > 1 {
		return fmt.Errorf("%w: %w: got %v", ErrInvalidRule, ErrInvalidThreshold, rule.Threshold)
	}

	switch rule.Mode {
	case FilterModeKeywordOnly:
		if len(rule.Keywords) == 0 {
			return fmt.Errorf("%w: %w", ErrInvalidRule, ErrRuleNeedsKeywords)
		}
	case FilterModeSemanticOnly:
		if len(rule.Topics) == 0 {
			return fmt.Errorf("%w: %w", ErrInvalidRule, ErrRuleNeedsTopics)
		}
	case FilterModeCombined:
		if len(rule.Keywords) == 0 && len(rule.Topics) == 0 {
			return fmt.Errorf("%w: %w", ErrInvalidRule, ErrRuleNeedsCriteria)
		}
	default:
		return fmt.Errorf("%w: unknown mode %d", ErrInvalidRule, rule.Mode)
	}

	return nil
}

// ValidateSourceType validates that a SourceType has a valid value.
func ValidateSourceType(t SourceType) error {
	if t != SourceTypeChannel && t != SourceTypeGroup && t != SourceTypePrivate {
		return fmt.Errorf("%w: value %d", ErrInvalidSourceType, t)
	}
	return nil
}

// IsValidTimestamp checks if a timestamp is valid (not in the future).
func IsValidTimestamp(ts time.Time) bool {
	return !ts.After(time.Now())
}
