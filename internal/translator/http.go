package translator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// HTTPService is a client for another chaptertran instance running
// `serve`: POST {text, terminology} → {translation}.
type HTTPService struct {
	baseURL string
	client  *http.Client
}

func NewHTTPService(cfg ServiceConfig) *HTTPService {
	if cfg.Timeout == 0 {
		cfg.Timeout = 300 * time.Second
	}
	return &HTTPService{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

func (s *HTTPService) Name() string {
	return "http"
}

func (s *HTTPService) Translate(ctx context.Context, req TranslateRequest) (*ServiceResult, error) {
	result := &ServiceResult{ServiceName: s.Name()}
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	jsonData, err := json.Marshal(req)
	if err != nil {
		result.Error = fmt.Sprintf("failed to marshal request: %v", err)
		return result, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+"/api/translate", bytes.NewBuffer(jsonData))
	if err != nil {
		result.Error = fmt.Sprintf("failed to create request: %v", err)
		return result, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		result.Error = fmt.Sprintf("request failed: %v", err)
		return result, err
	}
	defer resp.Body.Close()

	var body struct {
		Translation string `json:"translation"`
		Error       string `json:"error"`
	}
	decodeErr := json.NewDecoder(resp.Body).Decode(&body)

	if resp.StatusCode != http.StatusOK {
		result.Error = fmt.Sprintf("API returned status %d", resp.StatusCode)
		if body.Error != "" {
			return result, fmt.Errorf("API returned status %d: %s", resp.StatusCode, body.Error)
		}
		return result, fmt.Errorf("API returned status %d", resp.StatusCode)
	}
	if decodeErr != nil {
		result.Error = fmt.Sprintf("failed to decode response: %v", decodeErr)
		return result, decodeErr
	}

	result.TranslatedText = body.Translation
	return result, nil
}

func (s *HTTPService) IsAvailable(ctx context.Context) error {
	req, _ := http.NewRequestWithContext(ctx, "GET", s.baseURL+"/healthz", nil)
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("translate server not available: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("translate server returned status %d", resp.StatusCode)
	}
	return nil
}
