package core

import (
	"errors"
	"testing"
	"time"
)

func TestValidateIncomingMessage(t *testing.T) {
	ts := time.Now().Add(-1 * time.Minute)

	tests := []struct {
		name    string
		msg     *IncomingMessage
		wantErr error
	}{
		{
			name: "valid message",
			msg: &IncomingMessage{
				ExternalMessageID: 7,
				ChatID:            42,
				Timestamp:         ts,
				Text:              "breaking news about elections",
			},
			wantErr: nil,
		},
		{
			name: "valid pure-media message with empty text",
			msg: &IncomingMessage{
				ExternalMessageID: 8,
				ChatID:            42,
				Timestamp:         ts,
				Text:              "",
				Metadata:          map[string]string{"media_type": "photo"},
			},
			wantErr: nil,
		},
		{
			name: "missing chat id",
			msg: &IncomingMessage{
				ExternalMessageID: 7,
				Timestamp:         ts,
			},
			wantErr: ErrMissingChatID,
		},
		{
			name: "missing message id",
			msg: &IncomingMessage{
				ChatID:    42,
				Timestamp: ts,
			},
			wantErr: ErrMissingMessageID,
		},
		{
			name:    "nil message",
			msg:     nil,
			wantErr: ErrInvalidMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateIncomingMessage(tt.msg)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateIncomingMessage() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateIncomingMessage() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateFilterRule(t *testing.T) {
	tests := []struct {
		name    string
		rule    *FilterRule
		wantErr error
	}{
		{
			name: "valid combined rule",
			rule: &FilterRule{
				Name:      "politics",
				Mode:      FilterModeCombined,
				Keywords:  []string{"election"},
				Threshold: 0.7,
			},
			wantErr: nil,
		},
		{
			name: "valid semantic rule",
			rule: &FilterRule{
				Name:      "politics",
				Mode:      FilterModeSemanticOnly,
				Topics:    []Topic{NewTopic("elections")},
				Threshold: 0.7,
			},
			wantErr: nil,
		},
		{
			name: "empty name",
			rule: &FilterRule{
				Mode:      FilterModeCombined,
				Keywords:  []string{"election"},
				Threshold: 0.7,
			},
			wantErr: ErrEmptyRuleName,
		},
		{
			name: "threshold above one",
			rule: &FilterRule{
				Name:      "politics",
				Mode:      FilterModeCombined,
				Keywords:  []string{"election"},
				Threshold: 1.5,
			},
			wantErr: ErrInvalidThreshold,
		},
		{
			name: "keyword mode without keywords",
			rule: &FilterRule{
				Name:      "politics",
				Mode:      FilterModeKeywordOnly,
				Threshold: 0.7,
			},
			wantErr: ErrRuleNeedsKeywords,
		},
		{
			name: "semantic mode without topics",
			rule: &FilterRule{
				Name:      "politics",
				Mode:      FilterModeSemanticOnly,
				Threshold: 0.7,
			},
			wantErr: ErrRuleNeedsTopics,
		},
		{
			name: "combined mode without criteria",
			rule: &FilterRule{
				Name:      "politics",
				Mode:      FilterModeCombined,
				Threshold: 0.7,
			},
			wantErr: ErrRuleNeedsCriteria,
		},
		{
			name:    "nil rule",
			rule:    nil,
			wantErr: ErrInvalidRule,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFilterRule(tt.rule)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateFilterRule() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateFilterRule() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateSourceType(t *testing.T) {
	for _, st := range []SourceType{SourceTypeChannel, SourceTypeGroup, SourceTypePrivate} {
		if err := ValidateSourceType(st); err != nil {
			t.Errorf("ValidateSourceType(%v) error = %v, want nil", st, err)
		}
	}

	if err := ValidateSourceType(SourceType(0)); !errors.Is(err, ErrInvalidSourceType) {
		t.Errorf("ValidateSourceType(0) error = %v, want ErrInvalidSourceType", err)
	}
}
