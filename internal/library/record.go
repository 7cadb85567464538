package library

import (
	"time"

	"github.com/google/uuid"

	"github.com/valpere/chaptertran/internal/terminology"
)

// SchemaVersion is written with every stored record.
//
//	0: legacy browser export; no schemaVersion, glossary under "contexts",
//	   possibly missing entirely, timestamps possibly absent
//	1: glossary under "terminology", all fields present
const SchemaVersion = 1

// record is the persisted JSON shape of a book. Timestamps are strings so a
// malformed or empty value degrades to a default instead of failing the
// whole load.
type record struct {
	SchemaVersion int               `json:"schemaVersion,omitempty"`
	ID            string            `json:"id"`
	Title         string            `json:"title"`
	Chapters      []chapterRecord   `json:"chapters"`
	Terminology   map[string]string `json:"terminology,omitempty"`
	Contexts      map[string]string `json:"contexts,omitempty"`
	CreatedAt     string            `json:"createdAt"`
	UpdatedAt     string            `json:"updatedAt"`
}

type chapterRecord struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	OriginalText   string `json:"originalText"`
	TranslatedText string `json:"translatedText"`
	CreatedAt      string `json:"createdAt"`
}

// upgrade converts a record of any known version into a Book, filling
// defaults for whatever the record lacks.
func upgrade(r record, now time.Time) Book {
	b := Book{
		ID:          r.ID,
		Title:       r.Title,
		Terminology: terminology.Map{},
		Chapters:    make([]Chapter, 0, len(r.Chapters)),
		CreatedAt:   parseTime(r.CreatedAt),
		UpdatedAt:   parseTime(r.UpdatedAt),
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}

	terms := r.Terminology
	if r.SchemaVersion == 0 && terms == nil {
		terms = r.Contexts
	}
	for k, v := range terms {
		if k, v = terminology.Normalize(k), terminology.Normalize(v); k != "" && v != "" {
			b.Terminology[k] = v
		}
	}

	switch {
	case b.CreatedAt.IsZero() && b.UpdatedAt.IsZero():
		b.CreatedAt, b.UpdatedAt = now, now
	case b.CreatedAt.IsZero():
		b.CreatedAt = b.UpdatedAt
	case b.UpdatedAt.IsZero():
		b.UpdatedAt = b.CreatedAt
	}

	for _, cr := range r.Chapters {
		c := Chapter{
			ID:             cr.ID,
			Title:          cr.Title,
			OriginalText:   cr.OriginalText,
			TranslatedText: cr.TranslatedText,
			CreatedAt:      parseTime(cr.CreatedAt),
		}
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		if c.CreatedAt.IsZero() {
			c.CreatedAt = b.CreatedAt
		}
		b.Chapters = append(b.Chapters, c)
	}
	return b
}

// toRecord is the inverse of upgrade, always at the current version.
func toRecord(b Book) record {
	r := record{
		SchemaVersion: SchemaVersion,
		ID:            b.ID,
		Title:         b.Title,
		Chapters:      make([]chapterRecord, 0, len(b.Chapters)),
		Terminology:   b.Terminology.Clone(),
		CreatedAt:     formatTime(b.CreatedAt),
		UpdatedAt:     formatTime(b.UpdatedAt),
	}
	for _, c := range b.Chapters {
		r.Chapters = append(r.Chapters, chapterRecord{
			ID:             c.ID,
			Title:          c.Title,
			OriginalText:   c.OriginalText,
			TranslatedText: c.TranslatedText,
			CreatedAt:      formatTime(c.CreatedAt),
		})
	}
	return r
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
