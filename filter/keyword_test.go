package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/poiesic/newswire/core"
)

func TestMatchKeywords(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		rule      core.FilterRule
		wantMatch bool
		wantKeys  []string
	}{
		{
			name:      "case-insensitive by default",
			text:      "Breaking News About Elections",
			rule:      core.FilterRule{Keywords: []string{"elections"}},
			wantMatch: true,
			wantKeys:  []string{"elections"},
		},
		{
			name:      "case-sensitive miss",
			text:      "Breaking News About Elections",
			rule:      core.FilterRule{Keywords: []string{"elections"}, CaseSensitive: true},
			wantMatch: false,
		},
		{
			name:      "multi-word phrase",
			text:      "the central bank raised rates again",
			rule:      core.FilterRule{Keywords: []string{"central bank"}},
			wantMatch: true,
			wantKeys:  []string{"central bank"},
		},
		{
			name:      "substring matches without whole word",
			text:      "concatenate the files",
			rule:      core.FilterRule{Keywords: []string{"cat"}},
			wantMatch: true,
			wantKeys:  []string{"cat"},
		},
		{
			name:      "whole word rejects embedded substring",
			text:      "concatenate the files",
			rule:      core.FilterRule{Keywords: []string{"cat"}, WholeWord: true},
			wantMatch: false,
		},
		{
			name:      "whole word matches standalone occurrence",
			text:      "the cat sat on the mat",
			rule:      core.FilterRule{Keywords: []string{"cat"}, WholeWord: true},
			wantMatch: true,
			wantKeys:  []string{"cat"},
		},
		{
			name:      "whole word at text boundaries",
			text:      "cat",
			rule:      core.FilterRule{Keywords: []string{"cat"}, WholeWord: true},
			wantMatch: true,
			wantKeys:  []string{"cat"},
		},
		{
			name:      "any keyword suffices",
			text:      "markets rallied today",
			rule:      core.FilterRule{Keywords: []string{"elections", "markets"}},
			wantMatch: true,
			wantKeys:  []string{"markets"},
		},
		{
			name:      "require all keywords, one missing",
			text:      "markets rallied today",
			rule:      core.FilterRule{Keywords: []string{"elections", "markets"}, RequireAllKeywords: true},
			wantMatch: false,
		},
		{
			name:      "require all keywords, all present",
			text:      "markets react to elections",
			rule:      core.FilterRule{Keywords: []string{"elections", "markets"}, RequireAllKeywords: true},
			wantMatch: true,
			wantKeys:  []string{"elections", "markets"},
		},
		{
			name:      "empty text never matches",
			text:      "",
			rule:      core.FilterRule{Keywords: []string{"elections"}},
			wantMatch: false,
		},
		{
			name:      "no keywords never matches",
			text:      "anything at all",
			rule:      core.FilterRule{},
			wantMatch: false,
		},
		{
			name:      "unicode whole word",
			text:      "новости о выборах сегодня",
			rule:      core.FilterRule{Keywords: []string{"выборах"}, WholeWord: true},
			wantMatch: true,
			wantKeys:  []string{"выборах"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matched, matches := MatchKeywords(tt.text, &tt.rule)

			assert.Equal(t, tt.wantMatch, matched)

			var keys []string
			for _, m := range matches {
				keys = append(keys, m.Keyword)
			}
			assert.Equal(t, tt.wantKeys, keys)
		})
	}
}

func TestMatchKeywords_Position(t *testing.T) {
	rule := core.FilterRule{Keywords: []string{"news"}}

	matched, matches := MatchKeywords("breaking news", &rule)

	assert.True(t, matched)
	assert.Equal(t, 9, matches[0].Position)
}

func TestMatchKeywords_WholeWordSkipsEmbeddedOccurrence(t *testing.T) {
	// First occurrence is embedded, second stands alone.
	rule := core.FilterRule{Keywords: []string{"cat"}, WholeWord: true}

	matched, matches := MatchKeywords("concatenate the cat", &rule)

	assert.True(t, matched)
	assert.Equal(t, 16, matches[0].Position)
}
