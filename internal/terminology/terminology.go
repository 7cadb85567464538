// Package terminology holds the glossary of source-term → English
// renderings that every chunk translation of a book must respect.
package terminology

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/unicode/norm"
)

// ErrEmptyTerm is returned when a source term or its rendering is blank.
var ErrEmptyTerm = errors.New("term and rendering must not be empty")

// Map is a source term → target rendering glossary. Keys are unique; use
// Sorted for a stable display order.
type Map map[string]string

// Entry is one glossary pair.
type Entry struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Clone returns an independent copy of m. A nil Map clones to an empty one.
func (m Map) Clone() Map {
	out := make(Map, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Sorted returns the entries ordered alphabetically by source term.
func (m Map) Sorted() []Entry {
	entries := make([]Entry, 0, len(m))
	for k, v := range m {
		entries = append(entries, Entry{Source: k, Target: v})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Source < entries[j].Source })
	return entries
}

// Merge copies other into m, overwriting existing renderings.
func (m Map) Merge(other Map) {
	for k, v := range other {
		m[k] = v
	}
}

// Fingerprint returns a stable hash of the glossary contents. Two maps with
// the same pairs have the same fingerprint regardless of insertion order.
func (m Map) Fingerprint() string {
	h := sha256.New()
	for _, e := range m.Sorted() {
		h.Write([]byte(e.Source))
		h.Write([]byte{0})
		h.Write([]byte(e.Target))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Normalize trims s and applies Unicode NFC so that visually identical
// terms share one key.
func Normalize(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// Scope owns the glossary for one book while a translation runs. Writes are
// serialized and readers receive copies, so a snapshot handed to a chunk
// translation never changes underneath it.
type Scope struct {
	mu    sync.RWMutex
	terms Map
}

// NewScope creates a scope seeded with a copy of initial.
func NewScope(initial Map) *Scope {
	s := &Scope{terms: make(Map, len(initial))}
	for k, v := range initial {
		if k, v = Normalize(k), strings.TrimSpace(v); k != "" && v != "" {
			s.terms[k] = v
		}
	}
	return s
}

// Snapshot returns a copy of the current glossary.
func (s *Scope) Snapshot() Map {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.terms.Clone()
}

// Len returns the number of terms.
func (s *Scope) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.terms)
}

// Set adds or replaces the rendering for term.
func (s *Scope) Set(term, rendering string) error {
	term, rendering = Normalize(term), strings.TrimSpace(rendering)
	if term == "" || rendering == "" {
		return ErrEmptyTerm
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.terms[term] = rendering
	return nil
}

// Delete removes term and reports whether it was present.
func (s *Scope) Delete(term string) bool {
	term = Normalize(term)
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.terms[term]
	delete(s.terms, term)
	return ok
}

// Merge adds every pair from other that is not blank and returns the number
// of terms that were new.
func (s *Scope) Merge(other Map) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	added := 0
	for k, v := range other {
		k, v = Normalize(k), strings.TrimSpace(v)
		if k == "" || v == "" {
			continue
		}
		if _, ok := s.terms[k]; !ok {
			added++
		}
		s.terms[k] = v
	}
	return added
}
