package translator

import (
	"context"
	"time"

	"github.com/valpere/chaptertran/internal/terminology"
)

// ServiceConfig holds per-backend settings. Zero values select the
// backend's defaults.
type ServiceConfig struct {
	APIKey      string        `mapstructure:"api_key" json:"api_key"`
	Model       string        `mapstructure:"model" json:"model"`
	BaseURL     string        `mapstructure:"base_url" json:"base_url"`
	Timeout     time.Duration `mapstructure:"timeout" json:"timeout"`
	Temperature float64       `mapstructure:"temperature" json:"temperature"`
	TopP        float64       `mapstructure:"top_p" json:"top_p"`
	Credentials string        `mapstructure:"credentials" json:"credentials,omitempty"`
}

// TranslateRequest is one chunk plus the glossary it must follow.
type TranslateRequest struct {
	Text        string          `json:"text"`
	Terminology terminology.Map `json:"terminology,omitempty"`
}

type ServiceResult struct {
	ServiceName    string            `json:"service_name"`
	TranslatedText string            `json:"translated_text"`
	Metadata       map[string]string `json:"metadata"`
	Latency        time.Duration     `json:"latency"`
	Error          string            `json:"error,omitempty"`
}

// TranslationService is a backend that turns Chinese text into English.
// TranslatedText is the raw model output; cleaning is the caller's job.
type TranslationService interface {
	Name() string
	Translate(ctx context.Context, req TranslateRequest) (*ServiceResult, error)
	IsAvailable(ctx context.Context) error
}
