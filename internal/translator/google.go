package translator

import (
	"context"
	"fmt"
	"html"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	translate "cloud.google.com/go/translate"
	"golang.org/x/text/language"
	"google.golang.org/api/option"

	"github.com/valpere/chaptertran/internal/terminology"
)

// GoogleService uses Cloud Translation. It cannot take instructions, so the
// glossary is applied by substituting source terms before the request;
// longer terms are replaced first.
type GoogleService struct {
	cfg  ServiceConfig
	opts []option.ClientOption
}

func NewGoogleService(cfg ServiceConfig, opts ...option.ClientOption) *GoogleService {
	if cfg.Credentials != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.Credentials))
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(cfg.BaseURL))
	}
	return &GoogleService{cfg: cfg, opts: opts}
}

func (s *GoogleService) Name() string {
	return "google"
}

func (s *GoogleService) Translate(ctx context.Context, req TranslateRequest) (*ServiceResult, error) {
	result := &ServiceResult{ServiceName: s.Name()}
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	client, err := translate.NewClient(ctx, s.opts...)
	if err != nil {
		result.Error = fmt.Sprintf("failed to create client: %v", err)
		return result, fmt.Errorf("failed to create client: %w", err)
	}
	defer client.Close()

	translations, err := client.Translate(ctx, []string{applyGlossary(req.Text, req.Terminology)}, language.English, &translate.Options{
		Source: language.Chinese,
		Format: translate.Text,
		Model:  s.cfg.Model,
	})
	if err != nil {
		result.Error = fmt.Sprintf("translation failed: %v", err)
		return result, fmt.Errorf("translation failed: %w", err)
	}

	if len(translations) == 0 {
		result.Error = "no translation returned"
		return result, fmt.Errorf("no translation returned")
	}

	result.TranslatedText = html.UnescapeString(translations[0].Text)
	result.Metadata = map[string]string{"glossary_terms": fmt.Sprint(len(req.Terminology))}
	return result, nil
}

func (s *GoogleService) IsAvailable(ctx context.Context) error {
	client, err := translate.NewClient(ctx, s.opts...)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	return client.Close()
}

func applyGlossary(text string, terms terminology.Map) string {
	if len(terms) == 0 {
		return text
	}
	entries := terms.Sorted()
	// strings.Replacer tries patterns in argument order at each position.
	sort.SliceStable(entries, func(i, j int) bool {
		return utf8.RuneCountInString(entries[i].Source) > utf8.RuneCountInString(entries[j].Source)
	})
	pairs := make([]string, 0, 2*len(entries))
	for _, e := range entries {
		pairs = append(pairs, e.Source, e.Target)
	}
	return strings.NewReplacer(pairs...).Replace(text)
}
