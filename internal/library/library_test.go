package library

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/valpere/chaptertran/internal/terminology"
)

func newTestLibrary(t *testing.T) *Library {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "library.db"))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	l, err := New(db)
	require.NoError(t, err)
	return l
}

func TestLibrary_CreateListGet(t *testing.T) {
	l := newTestLibrary(t)
	ctx := context.Background()

	first, err := l.Create(ctx, "  Coiling Dragon ")
	require.NoError(t, err)
	second, err := l.Create(ctx, "Desolate Era")
	require.NoError(t, err)

	assert.Equal(t, "Coiling Dragon", first.Title)
	assert.NotEmpty(t, first.ID)
	assert.NotNil(t, first.Terminology)

	books, err := l.List(ctx)
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, first.ID, books[0].ID)
	assert.Equal(t, second.ID, books[1].ID)

	got, err := l.Get(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, "Desolate Era", got.Title)
	assert.Empty(t, got.Chapters)
}

func TestLibrary_CreateEmptyTitle(t *testing.T) {
	l := newTestLibrary(t)
	_, err := l.Create(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyTitle)
}

func TestLibrary_NotFound(t *testing.T) {
	l := newTestLibrary(t)
	ctx := context.Background()

	_, err := l.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, l.Delete(ctx, "missing"), ErrNotFound)
	assert.ErrorIs(t, l.Rename(ctx, "missing", "x"), ErrNotFound)
	_, err = l.AddChapter(ctx, "missing", Chapter{Title: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLibrary_RenameAndDelete(t *testing.T) {
	l := newTestLibrary(t)
	ctx := context.Background()

	b, err := l.Create(ctx, "Old")
	require.NoError(t, err)
	require.NoError(t, l.Rename(ctx, b.ID, "New"))

	got, err := l.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "New", got.Title)
	assert.False(t, got.UpdatedAt.Before(b.UpdatedAt))

	require.NoError(t, l.Delete(ctx, b.ID))
	books, err := l.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, books)
}

func TestLibrary_AddChapterKeepsOrder(t *testing.T) {
	l := newTestLibrary(t)
	ctx := context.Background()

	b, err := l.Create(ctx, "Book")
	require.NoError(t, err)

	for _, title := range []string{"One", "Two", "Three"} {
		c, err := l.AddChapter(ctx, b.ID, Chapter{Title: title, OriginalText: "原文", TranslatedText: title})
		require.NoError(t, err)
		assert.NotEmpty(t, c.ID)
		assert.False(t, c.CreatedAt.IsZero())
	}

	got, err := l.Get(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, got.Chapters, 3)
	assert.Equal(t, "One", got.Chapters[0].Title)
	assert.Equal(t, "Three", got.Chapters[2].Title)
}

func TestLibrary_SetTerminology(t *testing.T) {
	l := newTestLibrary(t)
	ctx := context.Background()

	b, err := l.Create(ctx, "Book")
	require.NoError(t, err)

	terms := terminology.Map{"李伟": "Li Wei"}
	require.NoError(t, l.SetTerminology(ctx, b.ID, terms))
	terms["北京"] = "Beijing" // caller's map is not retained

	got, err := l.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, terminology.Map{"李伟": "Li Wei"}, got.Terminology)
}

func TestLibrary_ImportLegacyRecords(t *testing.T) {
	l := newTestLibrary(t)
	ctx := context.Background()

	// Shape written by the browser app: no schemaVersion, glossary under
	// "contexts" on one book and missing on the other.
	legacy := `[
	  {"id":"1718000000000","title":"Legacy","chapters":[
	    {"id":"c1","title":"Ch 1","originalText":"第一章","translatedText":"Chapter 1","createdAt":"2024-06-10T08:00:00.000Z"}
	  ],"contexts":{"李伟":"Li Wei"},"createdAt":"2024-06-10T07:00:00.000Z","updatedAt":"2024-06-10T08:00:00.000Z"},
	  {"id":"1718000000001","title":"No Contexts","chapters":[
	    {"id":"c2","title":"Ch 1","originalText":"x","translatedText":"y"}
	  ],"createdAt":"2024-06-11T07:00:00.000Z"}
	]`

	n, err := l.ImportJSON(ctx, strings.NewReader(legacy))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	books, err := l.List(ctx)
	require.NoError(t, err)
	require.Len(t, books, 2)

	assert.Equal(t, terminology.Map{"李伟": "Li Wei"}, books[0].Terminology)
	assert.Equal(t, time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC), books[0].Chapters[0].CreatedAt.UTC())

	noCtx := books[1]
	assert.NotNil(t, noCtx.Terminology)
	assert.Empty(t, noCtx.Terminology)
	assert.Equal(t, noCtx.CreatedAt, noCtx.UpdatedAt, "missing updatedAt defaults to createdAt")
	assert.Equal(t, noCtx.CreatedAt, noCtx.Chapters[0].CreatedAt, "missing chapter time defaults to book time")
}

func TestLibrary_ImportSingleAndReplace(t *testing.T) {
	l := newTestLibrary(t)
	ctx := context.Background()

	_, err := l.ImportJSON(ctx, strings.NewReader(`{"id":"b1","title":"First"}`))
	require.NoError(t, err)
	_, err = l.ImportJSON(ctx, strings.NewReader(`{"schemaVersion":1,"id":"b1","title":"Replaced","terminology":{"龙":"Dragon"}}`))
	require.NoError(t, err)

	books, err := l.List(ctx)
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "Replaced", books[0].Title)
	assert.Equal(t, "Dragon", books[0].Terminology["龙"])
	assert.NotNil(t, books[0].Chapters)
}

func TestLibrary_ImportInvalidJSON(t *testing.T) {
	l := newTestLibrary(t)
	_, err := l.ImportJSON(context.Background(), strings.NewReader(`[{"id":`))
	assert.Error(t, err)
}

func TestLibrary_ExportRoundTrip(t *testing.T) {
	src := newTestLibrary(t)
	ctx := context.Background()

	b, err := src.Create(ctx, "Book")
	require.NoError(t, err)
	require.NoError(t, src.SetTerminology(ctx, b.ID, terminology.Map{"李伟": "Li Wei"}))
	_, err = src.AddChapter(ctx, b.ID, Chapter{Title: "Ch", OriginalText: "原", TranslatedText: "Orig"})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, src.ExportJSON(ctx, &buf))

	var exported []map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &exported))
	require.Len(t, exported, 1)
	assert.EqualValues(t, SchemaVersion, exported[0]["schemaVersion"])
	assert.NotContains(t, exported[0], "contexts")

	dst := newTestLibrary(t)
	n, err := dst.ImportJSON(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := dst.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Book", got.Title)
	assert.Equal(t, "Li Wei", got.Terminology["李伟"])
	require.Len(t, got.Chapters, 1)
	assert.Equal(t, "Orig", got.Chapters[0].TranslatedText)
}

func TestLibrary_ExportBookJSON(t *testing.T) {
	l := newTestLibrary(t)
	ctx := context.Background()

	b, err := l.Create(ctx, "Solo")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, l.ExportBookJSON(ctx, b.ID, &buf))
	assert.True(t, strings.HasPrefix(strings.TrimSpace(buf.String()), "{"))

	// A single exported book imports into another library.
	dst := newTestLibrary(t)
	n, err := dst.ImportJSON(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.ErrorIs(t, l.ExportBookJSON(ctx, "missing", &buf), ErrNotFound)
}

func TestUpgrade_Defaults(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	b := upgrade(record{Title: "Bare", CreatedAt: "not a date"}, now)

	assert.NotEmpty(t, b.ID)
	assert.Equal(t, now, b.CreatedAt)
	assert.Equal(t, now, b.UpdatedAt)
	assert.NotNil(t, b.Chapters)
	assert.NotNil(t, b.Terminology)
}

func TestUpgrade_CurrentVersionIgnoresContexts(t *testing.T) {
	b := upgrade(record{SchemaVersion: 1, Title: "T", Contexts: map[string]string{"龙": "Dragon"}}, time.Now())
	assert.Empty(t, b.Terminology)
}
