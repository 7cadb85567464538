package store

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/valpere/chaptertran/internal/orchestrator"
	"github.com/valpere/chaptertran/internal/sanitize"
	"github.com/valpere/chaptertran/internal/terminology"
)

// CachedTranslator consults translation memory before calling the wrapped
// translator and saves every non-empty cleaned result. A chunk is a hit only
// when both the source text and the glossary match. With a validator set,
// only accepted results are saved and a stored entry it rejects is a miss.
type CachedTranslator struct {
	next    orchestrator.Translator
	store   *Store
	service string
	fuzzy   float64
	variant string
	valid   orchestrator.Validator
	log     *zap.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

type CacheOption func(*CachedTranslator)

// WithFuzzyThreshold also accepts near-identical source texts.
func WithFuzzyThreshold(threshold float64) CacheOption {
	return func(c *CachedTranslator) { c.fuzzy = threshold }
}

// WithVariant keeps entries produced by a differently configured pipeline
// (for example one with refinement) apart from the plain ones.
func WithVariant(name string) CacheOption {
	return func(c *CachedTranslator) { c.variant = name }
}

// WithValidator applies the same check the orchestrator applies to every
// chunk, so rejected translations never enter memory.
func WithValidator(v orchestrator.Validator) CacheOption {
	return func(c *CachedTranslator) { c.valid = v }
}

func WithCacheLogger(l *zap.Logger) CacheOption {
	return func(c *CachedTranslator) { c.log = l }
}

// NewCachedTranslator wraps next. service is recorded with every saved
// entry.
func NewCachedTranslator(next orchestrator.Translator, s *Store, service string, opts ...CacheOption) *CachedTranslator {
	c := &CachedTranslator{next: next, store: s, service: service, log: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *CachedTranslator) Translate(ctx context.Context, text string, terms terminology.Map) (string, error) {
	fp := terms.Fingerprint()
	if c.variant != "" {
		fp += ":" + c.variant
	}

	cached, ok, err := c.store.GetCachedTranslation(ctx, text, fp)
	if err != nil {
		c.log.Warn("translation memory lookup failed", zap.Error(err))
	}
	if !ok && err == nil {
		cached, ok, err = c.store.FuzzyGetCachedTranslation(ctx, text, fp, c.fuzzy)
		if err != nil {
			c.log.Warn("fuzzy lookup failed", zap.Error(err))
		}
	}
	if ok && !c.accepts(cached) {
		c.log.Debug("cached translation rejected", zap.String("fingerprint", fp))
		ok = false
	}
	if ok {
		c.hits.Add(1)
		return cached, nil
	}
	c.misses.Add(1)

	raw, err := c.next.Translate(ctx, text, terms)
	if err != nil {
		return "", err
	}
	if clean := sanitize.Clean(raw); clean != "" && c.accepts(clean) {
		if err := c.store.SaveToMemory(ctx, text, fp, clean, c.service); err != nil {
			c.log.Warn("translation memory save failed", zap.Error(err))
		}
	}
	return raw, nil
}

func (c *CachedTranslator) accepts(text string) bool {
	return c.valid == nil || c.valid.Validate(text) == nil
}

// Hits and Misses count lookups since construction.
func (c *CachedTranslator) Hits() int64   { return c.hits.Load() }
func (c *CachedTranslator) Misses() int64 { return c.misses.Load() }
