package filter

import (
	"regexp"
	"strings"
)

var (
	urlPattern     = regexp.MustCompile(`(?:https?://|www\.|t\.me/)\S+`)
	controlPattern = regexp.MustCompile(`[\x00-\x1f\x7f-\x9f]`)
	spacePattern   = regexp.MustCompile(`\s+`)
)

// CleanText strips URLs and control characters from text and collapses runs
// of whitespace, so keyword matching sees the prose rather than link noise.
// Text that is nothing but noise cleans to the empty string.
func CleanText(text string) string {
	if text == "" {
		return ""
	}
	text = urlPattern.ReplaceAllString(text, " ")
	text = controlPattern.ReplaceAllString(text, " ")
	text = spacePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
