package translator

import (
	"fmt"
	"strings"

	"github.com/valpere/chaptertran/internal/terminology"
)

const instruction = `Translate the following Chinese text to English. 

IMPORTANT: Reply with ONLY the translated english text. Do not include any explanations, confirmations, or conversational elements. Maintain the original paragraph structure and formatting.`

// glossarySection renders terms as "中文 → English" lines, sorted by source
// term so identical glossaries produce identical prompts.
func glossarySection(terms terminology.Map) string {
	if len(terms) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("Follow this Context/Glossary for consistent translation:\n")
	for _, e := range terms.Sorted() {
		sb.WriteString(fmt.Sprintf("%s → %s\n", e.Source, e.Target))
	}
	sb.WriteString("\n")
	return sb.String()
}

// BuildPrompt returns a single completion prompt: glossary, instruction,
// then the text.
func BuildPrompt(text string, terms terminology.Map) string {
	return glossarySection(terms) + instruction + "\n\nText to translate:\n" + text
}

// BuildSystemPrompt returns the chat system message; the text itself goes in
// the user message.
func BuildSystemPrompt(terms terminology.Map) string {
	return strings.TrimSpace("You are a professional literary translator. " + instruction + "\n\n" + glossarySection(terms))
}
