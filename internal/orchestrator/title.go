package orchestrator

import (
	"regexp"
	"strings"
)

const maxTitleLen = 100

// titlePrefixRe matches "Chapter 12:", "PART 3 -", "Section 4." and the like.
var titlePrefixRe = regexp.MustCompile(`(?i)^(?:chapter|section|part)\s*\d+[\s:：.\-–—]*`)

// ExtractTitle derives a chapter title from translated text: the first
// non-empty line, without a leading chapter/section/part number, cut to 100
// code points plus "...". It returns "" when nothing is left.
func ExtractTitle(text string) string {
	var line string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			line = l
			break
		}
	}

	line = strings.TrimSpace(titlePrefixRe.ReplaceAllString(line, ""))
	if runes := []rune(line); len(runes) > maxTitleLen {
		line = string(runes[:maxTitleLen]) + "..."
	}
	return line
}
