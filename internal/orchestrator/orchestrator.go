// Package orchestrator drives the sequential translation of a chapter: it
// chunks the source text, translates each chunk in order with the current
// glossary, cleans every response and assembles the final document.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/valpere/chaptertran/internal/chunker"
	"github.com/valpere/chaptertran/internal/sanitize"
	"github.com/valpere/chaptertran/internal/terminology"
)

var (
	// ErrEmptyInput is returned when the source text is empty or whitespace.
	ErrEmptyInput = errors.New("input text is empty")

	// ErrAbandoned is returned, wrapping the context error, when a run is
	// cancelled before every chunk resolved. The partial run is returned
	// with it.
	ErrAbandoned = errors.New("translation abandoned")

	errEmptyTranslation = errors.New("empty translation after cleaning")
)

const (
	DefaultRetryDelay = 2 * time.Second
	DefaultLimit      = 2500
)

// Translator performs one chunk translation against the given glossary.
type Translator interface {
	Translate(ctx context.Context, text string, terms terminology.Map) (string, error)
}

// TranslatorFunc adapts a plain function to Translator.
type TranslatorFunc func(ctx context.Context, text string, terms terminology.Map) (string, error)

func (f TranslatorFunc) Translate(ctx context.Context, text string, terms terminology.Map) (string, error) {
	return f(ctx, text, terms)
}

// Validator rejects a cleaned translation. A rejection counts as a failed
// attempt for the chunk.
type Validator interface {
	Validate(text string) error
}

type Config struct {
	// Timeout bounds a single translate call. Zero means no per-call limit.
	Timeout time.Duration
	// MaxAttempts per chunk. Values below 1 mean one attempt.
	MaxAttempts int
	// RetryDelay is the pause between attempts on the same chunk.
	RetryDelay time.Duration
}

type Option func(*Orchestrator)

// WithValidator checks every cleaned translation before it is accepted.
func WithValidator(v Validator) Option {
	return func(o *Orchestrator) { o.validator = v }
}

// WithLogger sets the logger used for per-chunk progress.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

// WithTermExtraction harvests candidate terms from every translated chunk
// and adds them to the glossary before the next chunk starts.
func WithTermExtraction(enabled bool) Option {
	return func(o *Orchestrator) { o.extractTerms = enabled }
}

// WithProgress registers a callback invoked with a copy of a chunk every
// time its status changes.
func WithProgress(fn func(Chunk)) Option {
	return func(o *Orchestrator) { o.progress = fn }
}

type Orchestrator struct {
	tr           Translator
	config       Config
	validator    Validator
	log          *zap.Logger
	extractTerms bool
	progress     func(Chunk)
}

func New(tr Translator, config Config, opts ...Option) *Orchestrator {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = DefaultRetryDelay
	}

	o := &Orchestrator{
		tr:     tr,
		config: config,
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Input describes one chapter to translate.
type Input struct {
	Text string
	// Terminology is the book's glossary scope. It is read before every
	// chunk and, with term extraction enabled, written between chunks.
	// Nil means an empty glossary.
	Terminology *terminology.Scope
	// Limit is the chunk size in code points. Zero selects DefaultLimit.
	Limit int
	// FallbackTitle is used when no title can be derived from the output.
	FallbackTitle string
}

// Run translates in.Text chunk by chunk.
//
// Per-chunk failures never abort the run: the chunk is marked Failed and
// carries a placeholder. The only errors are ErrEmptyInput, returned with a
// nil Run, and ErrAbandoned, returned with the partial Run when ctx is
// cancelled.
func (o *Orchestrator) Run(ctx context.Context, in Input) (*Run, error) {
	if strings.TrimSpace(in.Text) == "" {
		return nil, ErrEmptyInput
	}
	limit := in.Limit
	if limit == 0 {
		limit = DefaultLimit
	}
	scope := in.Terminology
	if scope == nil {
		scope = terminology.NewScope(nil)
	}

	pieces := chunker.Split(in.Text, limit)
	run := &Run{
		Chunks:  make([]Chunk, len(pieces)),
		Started: time.Now(),
	}
	for i, p := range pieces {
		run.Chunks[i] = Chunk{Index: i, OriginalText: p, Status: Pending}
	}
	if over := chunker.Oversized(pieces, limit); len(over) > 0 {
		o.log.Warn("chunks exceed the limit (single long sentences)",
			zap.Ints("indexes", over), zap.Int("limit", limit))
	}

	for i := range run.Chunks {
		if err := ctx.Err(); err != nil {
			return o.abandon(run, scope, err)
		}

		chunk := &run.Chunks[i]
		chunk.Status = InProgress
		o.report(*chunk)

		text, attempts, err := o.translateChunk(ctx, chunk.OriginalText, scope.Snapshot())
		chunk.Attempts = attempts
		if ctxErr := ctx.Err(); ctxErr != nil && err != nil {
			chunk.Status = Pending
			chunk.Attempts = 0
			o.report(*chunk)
			return o.abandon(run, scope, ctxErr)
		}

		if err != nil {
			chunk.Status = Failed
			chunk.TranslatedText = FailedPlaceholder(i)
			chunk.Err = err
			o.log.Warn("chunk failed",
				zap.Int("chunk", i+1), zap.Int("of", len(run.Chunks)),
				zap.Int("attempts", attempts), zap.Error(err))
		} else {
			chunk.Status = Done
			chunk.TranslatedText = text
			o.log.Debug("chunk translated",
				zap.Int("chunk", i+1), zap.Int("of", len(run.Chunks)),
				zap.Int("chars", chunker.Len(text)))

			if o.extractTerms {
				if added := scope.Merge(terminology.Extract(chunk.OriginalText, scope.Snapshot())); added > 0 {
					o.log.Debug("new terms", zap.Int("chunk", i+1), zap.Int("added", added))
				}
			}
		}
		o.report(*chunk)
	}

	o.finish(run, scope, in.FallbackTitle)
	return run, nil
}

// translateChunk makes up to MaxAttempts calls for one chunk and returns the
// cleaned text and the number of attempts used.
func (o *Orchestrator) translateChunk(ctx context.Context, text string, terms terminology.Map) (string, int, error) {
	var lastErr error
	for attempt := 1; attempt <= o.config.MaxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return "", attempt - 1, ctx.Err()
			case <-time.After(o.config.RetryDelay):
			}
		}

		out, err := o.attempt(ctx, text, terms)
		if err == nil {
			return out, attempt, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return "", attempt, err
		}
		o.log.Debug("attempt failed", zap.Int("attempt", attempt), zap.Error(err))
	}
	return "", o.config.MaxAttempts, lastErr
}

func (o *Orchestrator) attempt(ctx context.Context, text string, terms terminology.Map) (string, error) {
	callCtx := ctx
	if o.config.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, o.config.Timeout)
		defer cancel()
	}

	raw, err := o.tr.Translate(callCtx, text, terms)
	if err != nil {
		return "", err
	}
	out := sanitize.Clean(raw)
	if out == "" {
		return "", errEmptyTranslation
	}
	if o.validator != nil {
		if err := o.validator.Validate(out); err != nil {
			return "", fmt.Errorf("validation failed: %w", err)
		}
	}
	return out, nil
}

func (o *Orchestrator) abandon(run *Run, scope *terminology.Scope, cause error) (*Run, error) {
	run.Terminology = scope.Snapshot()
	run.Text = run.assemble()
	run.Finished = time.Now()
	return run, fmt.Errorf("%w: %w", ErrAbandoned, cause)
}

func (o *Orchestrator) finish(run *Run, scope *terminology.Scope, fallback string) {
	run.Terminology = scope.Snapshot()
	run.Text = run.assemble()
	run.Title = fallback
	if last := run.Chunks[len(run.Chunks)-1]; last.Status == Done {
		if title := ExtractTitle(last.TranslatedText); title != "" {
			run.Title = title
		}
	}
	run.Finished = time.Now()
}

func (o *Orchestrator) report(c Chunk) {
	if o.progress != nil {
		o.progress(c)
	}
}
