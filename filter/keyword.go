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
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/poiesic/newswire/core"
)

// KeywordMatch records one keyword found in a message text.
type KeywordMatch struct {
	Keyword  string
	Position int // Byte offset of the first occurrence
}

// MatchKeywords evaluates a rule's keyword criteria against text.
//
// Matching is substring-based. The rule controls case sensitivity, whole-word
// boundaries, and whether all keywords must be present or any one suffices.
// Multi-word keywords match as phrases. Empty text never matches.
func MatchKeywords(text string, rule *core.FilterRule) (bool, []KeywordMatch) {
	if len(rule.Keywords) == 0 || text == "" {
		return false, nil
	}

	haystack := text
	if !rule.CaseSensitive {
		haystack = strings.ToLower(text)
	}

	var matches []KeywordMatch
	for _, keyword := range rule.Keywords {
		if keyword == "" {
			continue
		}

		needle := keyword
		if !rule.CaseSensitive {
			needle = strings.ToLower(keyword)
		}

		pos := findKeyword(haystack, needle, rule.WholeWord)
		if pos < 0 {
			if rule.RequireAllKeywords {
				return false, nil
			}
			continue
		}

		matches = append(matches, KeywordMatch{Keyword: keyword, Position: pos})
	}

	return len(matches) > 0, matches
}

// findKeyword returns the byte offset of the first acceptable occurrence of
// needle in haystack, or -1. With wholeWord set, an occurrence only counts
// when it is not flanked by letters or digits.
func findKeyword(haystack, needle string, wholeWord bool) int {
	offset := 0
	for {
		idx := strings.Index(haystack[offset:], needle)
		if idx < 0 {
			return -1
		}
		pos := offset + idx

		if !wholeWord || isWordBoundary(haystack, pos, len(needle)) {
			return pos
		}

		offset = pos + 1
	}
}

func isWordBoundary(s string, pos, length int) bool {
	if pos > 0 {
		r, _ := utf8.DecodeLastRuneInString(s[:pos])
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	if end := pos + length; end < len(s) {
		r, _ := utf8.DecodeRuneInString(s[end:])
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
