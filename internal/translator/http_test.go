package translator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/openai/openai-go/v3/option"

	"github.com/valpere/chaptertran/internal/terminology"
)

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt("他来了。", terminology.Map{"李伟": "Li Wei", "北京": "Beijing"})

	if !strings.HasPrefix(prompt, "Follow this Context/Glossary for consistent translation:\n北京 → Beijing\n李伟 → Li Wei\n") {
		t.Errorf("glossary section missing or unsorted:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Reply with ONLY the translated english text.") {
		t.Error("expected the strict reply instruction")
	}
	if !strings.HasSuffix(prompt, "Text to translate:\n他来了。") {
		t.Errorf("expected text at the end, got:\n%s", prompt)
	}
}

func TestBuildPrompt_NoGlossary(t *testing.T) {
	prompt := BuildPrompt("他来了。", nil)
	if strings.Contains(prompt, "Glossary") {
		t.Error("expected no glossary section for empty terminology")
	}
	if !strings.HasPrefix(prompt, "Translate the following Chinese text to English.") {
		t.Errorf("unexpected prompt start: %q", prompt[:40])
	}
}

func TestOllamaService_Translate(t *testing.T) {
	var got map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"response":   "<think>hmm</think>Li Wei arrived.",
			"eval_count": 12,
		})
	}))
	defer server.Close()

	svc := NewOllamaService(ServiceConfig{BaseURL: server.URL})
	result, err := svc.Translate(context.Background(), TranslateRequest{
		Text:        "李伟来了。",
		Terminology: terminology.Map{"李伟": "Li Wei"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.TranslatedText != "<think>hmm</think>Li Wei arrived." {
		t.Errorf("expected raw response to be returned, got %q", result.TranslatedText)
	}
	if result.Metadata["model"] != DefaultOllamaModel {
		t.Errorf("expected default model, got %q", result.Metadata["model"])
	}
	if got["model"] != DefaultOllamaModel || got["stream"] != false {
		t.Errorf("unexpected request: %v", got)
	}
	opts, _ := got["options"].(map[string]interface{})
	if opts["temperature"] != 0.3 || opts["top_p"] != 0.9 {
		t.Errorf("unexpected sampling options: %v", opts)
	}
	if !strings.Contains(got["prompt"].(string), "李伟 → Li Wei") {
		t.Error("expected glossary in the prompt")
	}
}

func TestOllamaService_Translate_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	svc := NewOllamaService(ServiceConfig{BaseURL: server.URL})
	result, err := svc.Translate(context.Background(), TranslateRequest{Text: "你好"})

	if err == nil {
		t.Error("expected error for non-OK status")
	}
	if result == nil || result.Error != "API returned status 500" {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestOllamaService_IsAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"models":[]}`))
	}))
	defer server.Close()

	if err := NewOllamaService(ServiceConfig{BaseURL: server.URL}).IsAvailable(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func chatCompletionServer(t *testing.T, status int, content string, seen *map[string]interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("missing bearer token")
		}
		if seen != nil {
			json.NewDecoder(r.Body).Decode(seen)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			w.Write([]byte(`{"error":{"message":"rate limited","type":"rate_limit"}}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":      "cmpl-1",
			"object":  "chat.completion",
			"created": 1700000000,
			"model":   "test-model",
			"choices": []map[string]interface{}{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]string{"role": "assistant", "content": content},
			}},
			"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
		})
	}))
}

func TestOpenAIService_Translate(t *testing.T) {
	var seen map[string]interface{}
	server := chatCompletionServer(t, http.StatusOK, "Li Wei arrived.", &seen)
	defer server.Close()

	svc, err := NewOpenAIService(ServiceConfig{APIKey: "test-key", BaseURL: server.URL, Model: "test-model"}, option.WithMaxRetries(0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := svc.Translate(context.Background(), TranslateRequest{
		Text:        "李伟来了。",
		Terminology: terminology.Map{"李伟": "Li Wei"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TranslatedText != "Li Wei arrived." {
		t.Errorf("unexpected translation %q", result.TranslatedText)
	}
	if result.Metadata["prompt_tokens"] != "10" {
		t.Errorf("unexpected metadata %v", result.Metadata)
	}

	msgs, _ := seen["messages"].([]interface{})
	if len(msgs) != 2 {
		t.Fatalf("expected system and user messages, got %v", seen["messages"])
	}
	system, _ := msgs[0].(map[string]interface{})
	if !strings.Contains(system["content"].(string), "李伟 → Li Wei") {
		t.Errorf("expected glossary in system prompt, got %v", system["content"])
	}
}

func TestOpenAIService_Translate_APIError(t *testing.T) {
	server := chatCompletionServer(t, http.StatusTooManyRequests, "", nil)
	defer server.Close()

	svc, err := NewOpenAIService(ServiceConfig{APIKey: "test-key", BaseURL: server.URL}, option.WithMaxRetries(0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := svc.Translate(context.Background(), TranslateRequest{Text: "你好"})
	if err == nil {
		t.Fatal("expected error for non-OK status")
	}
	if result.Error != "API returned status 429" {
		t.Errorf("unexpected result error %q", result.Error)
	}
}

func TestNewOpenAIService_NoAPIKey(t *testing.T) {
	if _, err := NewOpenAIService(ServiceConfig{}); !errors.Is(err, ErrAPIKeyNotSet) {
		t.Errorf("expected ErrAPIKeyNotSet, got %v", err)
	}
}

func TestHTTPService_Translate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req TranslateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request: %v", err)
		}
		if req.Terminology["李伟"] != "Li Wei" {
			t.Errorf("terminology not forwarded: %v", req.Terminology)
		}
		json.NewEncoder(w).Encode(map[string]string{"translation": "Li Wei arrived."})
	}))
	defer server.Close()

	svc := NewHTTPService(ServiceConfig{BaseURL: server.URL + "/"})
	result, err := svc.Translate(context.Background(), TranslateRequest{
		Text:        "李伟来了。",
		Terminology: terminology.Map{"李伟": "Li Wei"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TranslatedText != "Li Wei arrived." {
		t.Errorf("unexpected translation %q", result.TranslatedText)
	}
}

func TestHTTPService_Translate_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"Translation failed"}`))
	}))
	defer server.Close()

	_, err := NewHTTPService(ServiceConfig{BaseURL: server.URL}).Translate(context.Background(), TranslateRequest{Text: "你好"})
	if err == nil || !strings.Contains(err.Error(), "Translation failed") {
		t.Errorf("expected server error to surface, got %v", err)
	}
}

func TestAdapter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"response": "ok"})
	}))
	defer server.Close()

	tr := Adapter(NewOllamaService(ServiceConfig{BaseURL: server.URL}))
	got, err := tr.Translate(context.Background(), "你好", nil)
	if err != nil || got != "ok" {
		t.Errorf("got %q, %v", got, err)
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		backend string
		cfg     ServiceConfig
		want    string
		wantErr bool
	}{
		{"ollama", "ollama", ServiceConfig{}, "ollama", false},
		{"openrouter", "openrouter", ServiceConfig{APIKey: "k"}, "openrouter", false},
		{"openai", "openai", ServiceConfig{APIKey: "k"}, "openai", false},
		{"openrouter without key", "openrouter", ServiceConfig{}, "", true},
		{"google", "google", ServiceConfig{APIKey: "k"}, "google", false},
		{"http", "http", ServiceConfig{BaseURL: "http://localhost:3000"}, "http", false},
		{"http without url", "http", ServiceConfig{}, "", true},
		{"unknown", "deepl", ServiceConfig{}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := New(tt.backend, tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if svc.Name() != tt.want {
				t.Errorf("expected %q, got %q", tt.want, svc.Name())
			}
		})
	}
}

func TestApplyGlossary(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		terms terminology.Map
		want  string
	}{
		{"no terms", "李伟来了。", nil, "李伟来了。"},
		{"single", "李伟来了。", terminology.Map{"李伟": "Li Wei"}, "Li Wei来了。"},
		{"longest first", "龙血战士", terminology.Map{"龙": "Dragon", "龙血": "Dragon Blood"}, "Dragon Blood战士"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := applyGlossary(tt.text, tt.terms); got != tt.want {
				t.Errorf("applyGlossary() = %q, want %q", got, tt.want)
			}
		})
	}
}
