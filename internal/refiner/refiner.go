// Package refiner implements an optional second pass: an LLM editor
// polishes each chunk's draft English against the Chinese source.
package refiner

import (
	"context"

	"go.uber.org/zap"

	"github.com/valpere/chaptertran/internal/orchestrator"
	"github.com/valpere/chaptertran/internal/sanitize"
	"github.com/valpere/chaptertran/internal/terminology"
)

// Refiner reviews and improves a draft translation for literary quality.
type Refiner interface {
	Refine(ctx context.Context, sourceText, draftText string, terms terminology.Map) (string, error)
}

// Translator runs next and then r on every chunk. The draft is cleaned
// before refinement; if refinement fails the cleaned draft is returned, so a
// refiner outage never fails a chunk that translated.
func Translator(next orchestrator.Translator, r Refiner, log *zap.Logger) orchestrator.Translator {
	if log == nil {
		log = zap.NewNop()
	}
	return orchestrator.TranslatorFunc(func(ctx context.Context, text string, terms terminology.Map) (string, error) {
		raw, err := next.Translate(ctx, text, terms)
		if err != nil {
			return "", err
		}
		draft := sanitize.Clean(raw)
		if draft == "" {
			return raw, nil
		}

		refined, err := r.Refine(ctx, text, draft, terms)
		if err != nil {
			log.Warn("refinement failed, using draft", zap.Error(err))
			return draft, nil
		}
		return refined, nil
	})
}
