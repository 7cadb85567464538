// Package markdown renders books for reading outside the tool: as
// Markdown, as a standalone HTML page, or as plain text.
package markdown

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"github.com/valpere/chaptertran/internal/library"
)

// FromBook lays out the translated chapters in order. Chapters without a
// translation fall back to their original text.
func FromBook(b *library.Book) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# %s\n\n", escapeHeading(b.Title))
	for i, c := range b.Chapters {
		title := c.Title
		if title == "" {
			title = fmt.Sprintf("Chapter %d", i+1)
		}
		fmt.Fprintf(&buf, "## %s\n\n", escapeHeading(title))

		body := strings.TrimSpace(c.TranslatedText)
		if body == "" {
			body = strings.TrimSpace(c.OriginalText)
		}
		buf.WriteString(body)
		buf.WriteString("\n\n")
	}
	return buf.Bytes()
}

func ToHTML(md []byte) string {
	opts := html.RendererOptions{
		Flags: html.CommonFlags | html.HrefTargetBlank,
	}
	renderer := html.NewRenderer(opts)
	ext := parser.CommonExtensions | parser.Attributes
	p := parser.NewWithExtensions(ext)
	doc := p.Parse(md)
	return string(markdown.Render(doc, renderer))
}

var page = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>body{max-width:42em;margin:2em auto;padding:0 1em;font-family:Georgia,serif;line-height:1.6}</style>
</head>
<body>
{{.Body}}
</body>
</html>
`))

// Page wraps a rendered book in a complete HTML document.
func Page(b *library.Book) (string, error) {
	var buf bytes.Buffer
	err := page.Execute(&buf, struct {
		Title string
		Body  template.HTML
	}{b.Title, template.HTML(ToHTML(FromBook(b)))})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

func ToPlainText(md []byte) string {
	htmlContent := ToHTML(md)
	return StripHTMLTags(htmlContent)
}

// StripHTMLTags drops everything between angle brackets and unescapes the
// entities the renderer emits.
func StripHTMLTags(htmlContent string) string {
	var result bytes.Buffer
	inTag := false

	for _, ch := range htmlContent {
		switch ch {
		case '<':
			inTag = true
		case '>':
			inTag = false
		default:
			if !inTag {
				result.WriteRune(ch)
			}
		}
	}

	return entities.Replace(result.String())
}

var entities = strings.NewReplacer("&amp;", "&", "&lt;", "<", "&gt;", ">", "&quot;", `"`, "&#39;", "'")

func escapeHeading(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "\n", " ")
}
