// Package chunker splits chapter text into translatable chunks bounded by a
// character limit. Paragraph boundaries are preferred; a paragraph that is
// too long on its own is broken at sentence-ending punctuation (CJK 。！？
// and ASCII .!?). Lengths are counted in unicode code points, so one CJK
// character counts as one.
//
// A single sentence longer than the limit is emitted whole. Callers that
// need to know about such chunks can use Oversized.
package chunker

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// paragraphSep matches a blank-line separator or a single line break.
var paragraphSep = regexp.MustCompile(`\n\s*\n|\n`)

// Split breaks text into ordered chunks of at most limit code points.
//
// Paragraphs are accumulated into the current chunk (joined with a single
// line break) while they fit. When the next paragraph does not fit, the
// current chunk is closed and the paragraph starts a new one. A paragraph
// that exceeds limit by itself is split into sentences which are folded
// into chunks with the same rule.
//
// Every returned chunk is trimmed and non-empty. Empty input yields nil.
// A limit ≤ 0 is treated as unlimited.
func Split(text string, limit int) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if limit <= 0 {
		return []string{strings.TrimSpace(text)}
	}

	b := &builder{limit: limit}
	for _, paragraph := range paragraphSep.Split(text, -1) {
		if runeLen(paragraph) > limit {
			b.close()
			for _, sentence := range Sentences(paragraph) {
				b.add(sentence, "")
			}
			continue
		}
		b.add(paragraph, "\n")
	}
	b.close()

	return b.chunks
}

// builder accumulates pieces into the current chunk.
type builder struct {
	limit   int
	current strings.Builder
	size    int
	chunks  []string
}

// add appends piece to the current chunk, prefixed with sep when the chunk
// is not empty. The current chunk is closed first if piece would not fit.
func (b *builder) add(piece, sep string) {
	n := runeLen(piece)
	if b.size > 0 {
		if b.size+runeLen(sep)+n > b.limit {
			b.close()
		} else {
			b.current.WriteString(sep)
			b.size += runeLen(sep)
		}
	}
	b.current.WriteString(piece)
	b.size += n
}

// close trims and emits the current chunk, if it has any content.
func (b *builder) close() {
	if chunk := strings.TrimSpace(b.current.String()); chunk != "" {
		b.chunks = append(b.chunks, chunk)
	}
	b.current.Reset()
	b.size = 0
}

// Sentences splits a paragraph after sentence-ending punctuation. The
// punctuation, any closing quotes or brackets right after it and the
// following whitespace stay with the preceding sentence, so joining the
// result reproduces the paragraph exactly.
func Sentences(paragraph string) []string {
	var (
		sentences []string
		start     int
	)
	runes := []rune(paragraph)
	for i := 0; i < len(runes); i++ {
		if !isTerminal(runes[i]) {
			continue
		}
		j := i + 1
		for j < len(runes) && (isTerminal(runes[j]) || isClosing(runes[j])) {
			j++
		}
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		sentences = append(sentences, string(runes[start:j]))
		start = j
		i = j - 1
	}
	if start < len(runes) {
		sentences = append(sentences, string(runes[start:]))
	}
	return sentences
}

// Oversized returns the indices of chunks longer than limit. These are the
// sentences that could not be split any further.
func Oversized(chunks []string, limit int) []int {
	if limit <= 0 {
		return nil
	}
	var idx []int
	for i, c := range chunks {
		if runeLen(c) > limit {
			idx = append(idx, i)
		}
	}
	return idx
}

// Len returns the length of s as counted by Split.
func Len(s string) int {
	return runeLen(s)
}

func isTerminal(r rune) bool {
	switch r {
	case '。', '！', '？', '.', '!', '?':
		return true
	}
	return false
}

func isClosing(r rune) bool {
	switch r {
	case '”', '’', '」', '』', '）', ')', '"', '\'', '》':
		return true
	}
	return false
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
