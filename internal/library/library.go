// Package library persists books: an ordered collection, each with a title,
// ordered chapters and its own glossary.
//
// Every book is one row holding a JSON record. Records carry a schema
// version and are upgraded at load time, so older exports (including the
// browser-era shape with "contexts") keep loading.
package library

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/valpere/chaptertran/internal/terminology"
)

var (
	ErrNotFound   = errors.New("book not found")
	ErrEmptyTitle = errors.New("title must not be empty")
)

type Chapter struct {
	ID             string
	Title          string
	OriginalText   string
	TranslatedText string
	CreatedAt      time.Time
}

type Book struct {
	ID          string
	Title       string
	Chapters    []Chapter
	Terminology terminology.Map
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Library struct {
	db  *sql.DB
	now func() time.Time
}

// New prepares the books table on db.
func New(db *sql.DB) (*Library, error) {
	l := &Library{db: db, now: time.Now}
	if err := l.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate library: %w", err)
	}
	return l, nil
}

func (l *Library) migrate() error {
	_, err := l.db.Exec(`
	CREATE TABLE IF NOT EXISTS books (
		id TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		schema_version INTEGER NOT NULL,
		record TEXT NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_books_position ON books(position);
	`)
	return err
}

// List returns all books in creation order.
func (l *Library) List(ctx context.Context) ([]Book, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT record FROM books ORDER BY position, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var raws []string
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		raws = append(raws, raw)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	books := make([]Book, 0, len(raws))
	for _, raw := range raws {
		b, err := l.decode(raw)
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, nil
}

// Get returns the book with id, or ErrNotFound.
func (l *Library) Get(ctx context.Context, id string) (*Book, error) {
	var raw string
	err := l.db.QueryRowContext(ctx, `SELECT record FROM books WHERE id = ?`, id).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	b, err := l.decode(raw)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Create appends a new empty book.
func (l *Library) Create(ctx context.Context, title string) (*Book, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrEmptyTitle
	}
	now := l.now()
	b := Book{
		ID:          uuid.NewString(),
		Title:       title,
		Chapters:    []Chapter{},
		Terminology: terminology.Map{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := l.insert(ctx, b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (l *Library) Rename(ctx context.Context, id, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrEmptyTitle
	}
	return l.update(ctx, id, func(b *Book) { b.Title = title })
}

func (l *Library) Delete(ctx context.Context, id string) error {
	res, err := l.db.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// AddChapter appends c to the book and returns it with ID and CreatedAt
// filled in.
func (l *Library) AddChapter(ctx context.Context, bookID string, c Chapter) (*Chapter, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = l.now()
	}
	err := l.update(ctx, bookID, func(b *Book) { b.Chapters = append(b.Chapters, c) })
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// SetTerminology replaces the book's glossary.
func (l *Library) SetTerminology(ctx context.Context, bookID string, terms terminology.Map) error {
	return l.update(ctx, bookID, func(b *Book) { b.Terminology = terms.Clone() })
}

// ExportJSON writes every book as a JSON array of current-version records.
func (l *Library) ExportJSON(ctx context.Context, w io.Writer) error {
	books, err := l.List(ctx)
	if err != nil {
		return err
	}
	records := make([]record, 0, len(books))
	for _, b := range books {
		records = append(records, toRecord(b))
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

// ExportBookJSON writes one book as a single JSON record.
func (l *Library) ExportBookJSON(ctx context.Context, id string, w io.Writer) error {
	b, err := l.Get(ctx, id)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(toRecord(*b))
}

// ImportJSON reads a JSON array of book records (or a single record) of
// any schema version. Books whose ID already exists are replaced in place;
// new ones are appended. It returns the number of books imported.
func (l *Library) ImportJSON(ctx context.Context, r io.Reader) (int, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}

	var records []record
	if trimmed := strings.TrimSpace(string(data)); strings.HasPrefix(trimmed, "{") {
		var single record
		if err := json.Unmarshal(data, &single); err != nil {
			return 0, fmt.Errorf("failed to parse book: %w", err)
		}
		records = []record{single}
	} else if err := json.Unmarshal(data, &records); err != nil {
		return 0, fmt.Errorf("failed to parse books: %w", err)
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	now := l.now()
	for _, rec := range records {
		b := upgrade(rec, now)
		raw, err := json.Marshal(toRecord(b))
		if err != nil {
			return 0, err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO books (id, position, schema_version, record, updated_at)
			VALUES (?, (SELECT COALESCE(MAX(position), -1) + 1 FROM books), ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET schema_version = excluded.schema_version, record = excluded.record, updated_at = excluded.updated_at`,
			b.ID, SchemaVersion, string(raw), b.UpdatedAt)
		if err != nil {
			return 0, fmt.Errorf("failed to import %q: %w", b.Title, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(records), nil
}

func (l *Library) decode(raw string) (Book, error) {
	var rec record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return Book{}, fmt.Errorf("corrupt book record: %w", err)
	}
	return upgrade(rec, l.now()), nil
}

func (l *Library) insert(ctx context.Context, b Book) error {
	raw, err := json.Marshal(toRecord(b))
	if err != nil {
		return err
	}
	_, err = l.db.ExecContext(ctx,
		`INSERT INTO books (id, position, schema_version, record, updated_at)
		 VALUES (?, (SELECT COALESCE(MAX(position), -1) + 1 FROM books), ?, ?, ?)`,
		b.ID, SchemaVersion, string(raw), b.UpdatedAt)
	return err
}

// update loads a book, applies fn, bumps UpdatedAt and writes it back.
func (l *Library) update(ctx context.Context, id string, fn func(*Book)) error {
	b, err := l.Get(ctx, id)
	if err != nil {
		return err
	}
	fn(b)
	b.UpdatedAt = l.now()

	raw, err := json.Marshal(toRecord(*b))
	if err != nil {
		return err
	}
	_, err = l.db.ExecContext(ctx,
		`UPDATE books SET schema_version = ?, record = ?, updated_at = ? WHERE id = ?`,
		SchemaVersion, string(raw), b.UpdatedAt, id)
	return err
}
