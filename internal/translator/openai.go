package translator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

const (
	DefaultOpenRouterURL   = "https://openrouter.ai/api/v1"
	DefaultOpenRouterModel = "deepseek/deepseek-chat-v3-0324:free"
)

var ErrAPIKeyNotSet = errors.New("API key not set")

// OpenAIService talks to any OpenAI-compatible chat completions endpoint.
// With no base URL it targets OpenRouter.
type OpenAIService struct {
	client openai.Client
	cfg    ServiceConfig
	name   string
}

func NewOpenAIService(cfg ServiceConfig, opts ...option.RequestOption) (*OpenAIService, error) {
	if cfg.APIKey == "" {
		return nil, ErrAPIKeyNotSet
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOpenRouterURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenRouterModel
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
		option.WithRequestTimeout(cfg.Timeout),
		option.WithHeader("HTTP-Referer", "https://github.com/valpere/chaptertran"),
		option.WithHeader("X-Title", "chaptertran"),
	}
	reqOpts = append(reqOpts, opts...)

	return &OpenAIService{
		client: openai.NewClient(reqOpts...),
		cfg:    cfg,
		name:   "openrouter",
	}, nil
}

func (s *OpenAIService) Name() string {
	return s.name
}

func (s *OpenAIService) Model() string {
	return s.cfg.Model
}

func (s *OpenAIService) Translate(ctx context.Context, req TranslateRequest) (*ServiceResult, error) {
	result := &ServiceResult{ServiceName: s.Name()}
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(s.cfg.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(BuildSystemPrompt(req.Terminology)),
			openai.UserMessage(req.Text),
		},
		Temperature: openai.Float(s.cfg.Temperature),
	}
	if s.cfg.TopP != 0 {
		params.TopP = openai.Float(s.cfg.TopP)
	}

	completion, err := s.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			result.Error = fmt.Sprintf("API returned status %d", apiErr.StatusCode)
			return result, fmt.Errorf("API returned status %d: %w", apiErr.StatusCode, err)
		}
		result.Error = fmt.Sprintf("request failed: %v", err)
		return result, err
	}

	if len(completion.Choices) == 0 {
		result.Error = "empty response from API"
		return result, fmt.Errorf("empty response from API")
	}

	result.TranslatedText = completion.Choices[0].Message.Content
	result.Metadata = map[string]string{
		"model":             string(completion.Model),
		"prompt_tokens":     fmt.Sprintf("%d", completion.Usage.PromptTokens),
		"completion_tokens": fmt.Sprintf("%d", completion.Usage.CompletionTokens),
	}

	return result, nil
}

func (s *OpenAIService) IsAvailable(ctx context.Context) error {
	if s.cfg.APIKey == "" {
		return ErrAPIKeyNotSet
	}
	return nil
}
