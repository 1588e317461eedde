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


package filter

import (
	"context"
	"log/slog"

	"github.com/poiesic/newswire/core"
)

// Config controls which pipeline stages run and how much text they see.
type Config struct {
	// EnableKeyword toggles the keyword stage. Disabled, combined rules go
	// straight to semantic scoring and keyword-only rules never match.
	EnableKeyword bool

	// EnableSemantic toggles the semantic stage. Disabled, combined rules
	// are decided by keywords alone and semantic-only rules never match.
	EnableSemantic bool

	// MaxMessageLength caps the text length (in runes) fed to the stages.
	// Longer texts are truncated, not rejected. Default: 4096
	MaxMessageLength int
}

// DefaultPipelineConfig returns a Config with both stages enabled.
func DefaultPipelineConfig() Config {
	return Config{
		EnableKeyword:    true,
		EnableSemantic:   true,
		MaxMessageLength: 4096,
	}
}

// RuleMatch is the outcome of one rule matching a message text.
type RuleMatch struct {
	Rule     *core.FilterRule
	Type     core.MatchType
	Score    float32 // Highest topic score, or 1.0 for pure keyword matches
	Keywords []KeywordMatch
	Topics   []core.MatchResult // Topics that cleared the rule threshold, ranked
}

// Pipeline evaluates filter rules against message text in two stages.
//
// The keyword stage runs first as a cheap gate: for rules that configure
// keywords, a miss rejects the rule before any embedding work. It matches
// against a cleaned view of the text with URLs and control characters
// stripped, so a keyword buried in a link does not count as a hit. The
// semantic stage then scores the surviving rules' topics against the original
// text; a topic matches when its score meets the rule threshold (inclusive).
//
// An embedding failure makes the affected rule non-matching and is logged;
// it never fails the message.
type Pipeline struct {
	matcher *Matcher
	config  Config
	logger  *slog.Logger
}

// NewPipeline creates a filter pipeline using the given semantic matcher.
func NewPipeline(matcher *Matcher, config Config) *Pipeline {
	if config.MaxMessageLength <= 0 {
		config.MaxMessageLength = 4096
	}
	return &Pipeline{
		matcher: matcher,
		config:  config,
		logger:  slog.Default().With("component", "filter-pipeline"),
	}
}

// Run evaluates every active rule against text and returns the matches.
// Inactive rules are skipped. Empty text never matches.
func (p *Pipeline) Run(ctx context.Context, text string, rules []core.FilterRule) ([]RuleMatch, error) {
	if text == "" {
		return nil, nil
	}
	text = truncateRunes(text, p.config.MaxMessageLength)
	cleaned := CleanText(text)

	var matches []RuleMatch
	for i := range rules {
		rule := &rules[i]
		if !rule.IsActive {
			continue
		}

		match, err := p.evalRule(ctx, text, cleaned, rule)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			p.logger.Error("rule evaluation failed, treating as non-matching",
				"rule", rule.Name, "err", err)
			continue
		}
		if match != nil {
			matches = append(matches, *match)
		}
	}

	return matches, nil
}

// evalRule runs the stages for one rule. The keyword stage sees the cleaned
// text, the semantic stage the original. A nil result means no match.
func (p *Pipeline) evalRule(ctx context.Context, text, cleaned string, rule *core.FilterRule) (*RuleMatch, error) {
	var keywords []KeywordMatch
	keywordHit := false

	if rule.Mode != core.FilterModeSemanticOnly && len(rule.Keywords) > 0 {
		if !p.config.EnableKeyword {
			if rule.Mode == core.FilterModeKeywordOnly {
				return nil, nil
			}
		} else {
			keywordHit, keywords = MatchKeywords(cleaned, rule)
			if !keywordHit {
				// Keyword gate: no embedding work for rules whose
				// keywords are absent from the text.
				return nil, nil
			}
			if rule.Mode == core.FilterModeKeywordOnly || len(rule.Topics) == 0 || !p.config.EnableSemantic {
				return &RuleMatch{
					Rule:     rule,
					Type:     core.MatchTypeKeyword,
					Score:    1.0,
					Keywords: keywords,
				}, nil
			}
		}
	} else if rule.Mode == core.FilterModeKeywordOnly {
		return nil, nil
	}

	if !p.config.EnableSemantic || len(rule.Topics) == 0 {
		return nil, nil
	}

	results, err := p.matcher.MatchTextToTopics(ctx, text, rule.Topics)
	if err != nil {
		return nil, err
	}

	// Threshold comparison is inclusive; results are ranked, so cut at the
	// first score below it.
	cut := len(results)
	for i, r := range results {
		if r.Score < rule.Threshold {
			cut = i
			break
		}
	}
	matched := results[:cut]
	if len(matched) == 0 {
		return nil, nil
	}

	matchType := core.MatchTypeSemantic
	if keywordHit {
		matchType = core.MatchTypeCombined
	}

	return &RuleMatch{
		Rule:     rule,
		Type:     matchType,
		Score:    matched[0].Score,
		Keywords: keywords,
		Topics:   matched,
	}, nil
}

// truncateRunes limits text to max runes without splitting a multi-byte
// character.
func truncateRunes(text string, max int) string {
	if len(text) <= max {
		return text
	}
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max])
}
