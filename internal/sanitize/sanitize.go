// Package sanitize turns a raw LLM response into plain translated text.
//
// Cleaning is an ordered pipeline of named rules, each a pure
// string → string transform that only ever removes text:
//  1. reasoning-blocks: <think>…</think> style blocks
//  2. preambles: conversational filler lines at the very start
//  3. blank-lines: runs of 3+ line breaks collapsed to two
//  4. trim: outer whitespace
//
// The pipeline is re-applied until the text stops changing, so Clean is
// idempotent.
package sanitize

import (
	"regexp"
	"strings"
)

// Rule is a single named cleanup step. Apply must never lengthen its input.
type Rule struct {
	Name  string
	Apply func(string) string
}

// Pipeline is the default rule order used by Clean.
var Pipeline = []Rule{
	{Name: "reasoning-blocks", Apply: RemoveReasoningBlocks},
	{Name: "preambles", Apply: RemovePreambles},
	{Name: "blank-lines", Apply: CollapseBlankLines},
	{Name: "trim", Apply: strings.TrimSpace},
}

// Clean runs Pipeline over text until it reaches a fixed point.
func Clean(text string) string {
	return Apply(Pipeline, text)
}

// Apply runs rules in order, repeating the whole sequence until a pass no
// longer shortens the text.
func Apply(rules []Rule, text string) string {
	for {
		out := text
		for _, r := range rules {
			out = r.Apply(out)
		}
		if len(out) >= len(text) {
			return out
		}
		text = out
	}
}

// --- reasoning blocks ---

const reasoningTags = `think|thinking|reasoning|reflection`

// reasoningBlockRe matches a complete reasoning block. Open and close tag
// spellings may differ (<Thinking>…</think> is seen in the wild).
// Flags: i = case-insensitive, s = dot matches newline.
var reasoningBlockRe = regexp.MustCompile(
	`(?is)<\s*(?:` + reasoningTags + `)\s*>.*?<\s*/\s*(?:` + reasoningTags + `)\s*>`,
)

// unclosedReasoningRe matches an opened block whose closing tag is missing
// (the model was cut off mid-thought).
var unclosedReasoningRe = regexp.MustCompile(`(?is)<\s*(?:` + reasoningTags + `)\s*>.*$`)

// orphanCloseRe matches everything up to a closing tag that has no opener.
// Some chat templates inject the opening tag into the prompt, so only the
// close tag comes back.
var orphanCloseRe = regexp.MustCompile(`(?is)^.*?<\s*/\s*(?:` + reasoningTags + `)\s*>`)

// RemoveReasoningBlocks strips reasoning blocks and their delimiters.
func RemoveReasoningBlocks(text string) string {
	text = reasoningBlockRe.ReplaceAllString(text, "")
	text = orphanCloseRe.ReplaceAllString(text, "")
	text = unclosedReasoningRe.ReplaceAllString(text, "")
	return text
}

// --- preambles ---

// lineHead lets a preamble start anywhere in the first line, except that a
// line opening with a quotation mark is dialogue, not filler.
const lineHead = `(?i)^(?:[^"“‘'「\n][^\n]*?)?`

// lineTail consumes the rest of the preamble: through a colon when the
// translation follows on the same line, otherwise the whole line.
const lineTail = `[^\n]*?(?:[:：][ \t]*|\n+|$)`

// preambleRules are anchored to the start of the text. Each removes at most
// one line per pass.
var preambleRules = []*regexp.Regexp{
	// "I will / I'll … translate / use / context"
	regexp.MustCompile(lineHead + `\b(?:i will|i'll)\b[^\n]*?(?:translate|use|context)` + lineTail),
	// "Here is / Here's … translation"
	regexp.MustCompile(lineHead + `\b(?:here is|here's)\b[^\n]*?\btranslation` + lineTail),
	// "Using / Based on … context"
	regexp.MustCompile(lineHead + `\b(?:using|based on)\b[^\n]*?\bcontext` + lineTail),
	// "The translation is …" / "Translation:"
	regexp.MustCompile(lineHead + `(?:\bthe translation is\b` + lineTail + `|\btranslation[ \t]*[:：][ \t]*\n*)`),
	// "Below is / Following is … translation"
	regexp.MustCompile(lineHead + `\b(?:below is|following is)\b[^\n]*?\btranslation` + lineTail),
}

// RemovePreambles drops conversational filler at the start of text. Matches
// further down are left alone.
func RemovePreambles(text string) string {
	text = strings.TrimLeft(text, " \t\r\n")
	for _, re := range preambleRules {
		if loc := re.FindStringIndex(text); loc != nil && loc[0] == 0 {
			text = strings.TrimLeft(text[loc[1]:], " \t\r\n")
		}
	}
	return text
}

// --- blank lines ---

var blankLinesRe = regexp.MustCompile(`\r?\n(?:[ \t]*\r?\n){2,}`)

// CollapseBlankLines replaces three or more consecutive line breaks with
// exactly two.
func CollapseBlankLines(text string) string {
	return blankLinesRe.ReplaceAllString(text, "\n\n")
}
