package translator

import (
	"context"
	"fmt"

	"github.com/valpere/chaptertran/internal/orchestrator"
	"github.com/valpere/chaptertran/internal/terminology"
)

// Adapter exposes a TranslationService as an orchestrator.Translator.
func Adapter(svc TranslationService) orchestrator.Translator {
	return orchestrator.TranslatorFunc(func(ctx context.Context, text string, terms terminology.Map) (string, error) {
		res, err := svc.Translate(ctx, TranslateRequest{Text: text, Terminology: terms})
		if err != nil {
			return "", fmt.Errorf("%s: %w", svc.Name(), err)
		}
		return res.TranslatedText, nil
	})
}

// New builds the backend named by name ("ollama", "openrouter", "openai",
// "google" or "http").
func New(name string, cfg ServiceConfig) (TranslationService, error) {
	switch name {
	case "ollama":
		return NewOllamaService(cfg), nil
	case "openrouter":
		svc, err := NewOpenAIService(cfg)
		if err != nil {
			return nil, err
		}
		return svc, nil
	case "openai":
		if cfg.BaseURL == "" {
			cfg.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.Model == "" {
			cfg.Model = "gpt-4o-mini"
		}
		svc, err := NewOpenAIService(cfg)
		if err != nil {
			return nil, err
		}
		svc.name = "openai"
		return svc, nil
	case "google":
		return NewGoogleService(cfg), nil
	case "http":
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("http backend requires a base URL")
		}
		return NewHTTPService(cfg), nil
	}
	return nil, fmt.Errorf("unknown backend %q", name)
}
