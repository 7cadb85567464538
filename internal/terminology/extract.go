package terminology

import (
	"unicode"
)

const (
	minTermLen = 2
	maxTermLen = 4
)

// Extract harvests candidate names from a source chunk. Every run of two or
// more CJK ideographs that ends at a clause mark (，。！？), whitespace or
// the end of text contributes its last four (or fewer) ideographs. Candidates
// already in known are skipped. Each new candidate maps to "[term]" until a
// human supplies the real rendering.
//
// This is a naive heuristic; expect false positives.
func Extract(source string, known Map) Map {
	found := Map{}
	runes := []rune(source)

	start := -1
	for i := 0; i <= len(runes); i++ {
		if i < len(runes) && isIdeograph(runes[i]) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start < 0 {
			continue
		}
		run := runes[start:i]
		start = -1

		if len(run) < minTermLen {
			continue
		}
		if i < len(runes) && !endsTerm(runes[i]) {
			continue
		}
		if len(run) > maxTermLen {
			run = run[len(run)-maxTermLen:]
		}

		term := Normalize(string(run))
		if _, ok := known[term]; ok {
			continue
		}
		found[term] = "[" + term + "]"
	}
	return found
}

func isIdeograph(r rune) bool {
	return r >= 0x4E00 && r <= 0x9FAF
}

func endsTerm(r rune) bool {
	switch r {
	case '，', '。', '！', '？':
		return true
	}
	return unicode.IsSpace(r)
}
