package orchestrator

import (
	"fmt"
	"strings"
	"time"

	"github.com/valpere/chaptertran/internal/terminology"
)

// Status is the lifecycle state of a chunk.
type Status int

const (
	Pending Status = iota
	InProgress
	Done
	Failed
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case InProgress:
		return "in-progress"
	case Done:
		return "done"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Chunk is one piece of the source text and its translation.
type Chunk struct {
	Index          int
	OriginalText   string
	TranslatedText string
	Status         Status
	Attempts       int
	// Err is the last error for a Failed chunk.
	Err error
}

// FailedPlaceholder is the text stored for a chunk that could not be
// translated. index is zero-based; the placeholder is one-based.
func FailedPlaceholder(index int) string {
	return fmt.Sprintf("Translation failed for chunk %d", index+1)
}

// Run is the outcome of translating one chapter.
type Run struct {
	Chunks []Chunk
	// Terminology is the glossary as it stood when the run ended.
	Terminology terminology.Map
	Text        string
	Title       string
	Started     time.Time
	Finished    time.Time
}

// Count returns the number of chunks in status s.
func (r *Run) Count(s Status) int {
	n := 0
	for _, c := range r.Chunks {
		if c.Status == s {
			n++
		}
	}
	return n
}

// Complete reports whether every chunk resolved to Done or Failed.
func (r *Run) Complete() bool {
	return r.Count(Done)+r.Count(Failed) == len(r.Chunks)
}

// assemble joins resolved chunk texts with blank lines, in chunk order.
func (r *Run) assemble() string {
	parts := make([]string, 0, len(r.Chunks))
	for _, c := range r.Chunks {
		if c.Status == Done || c.Status == Failed {
			parts = append(parts, c.TranslatedText)
		}
	}
	return strings.Join(parts, "\n\n")
}
