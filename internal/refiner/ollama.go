package refiner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/valpere/chaptertran/internal/sanitize"
	"github.com/valpere/chaptertran/internal/terminology"
)

// OllamaRefiner uses a local Ollama model as a literary editor.
type OllamaRefiner struct {
	model   string
	baseURL string
	client  *http.Client
}

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaResponse struct {
	Response string `json:"response"`
}

// NewOllamaRefiner creates a refiner backed by a local Ollama model.
func NewOllamaRefiner(model, baseURL string, timeout time.Duration) *OllamaRefiner {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &OllamaRefiner{
		model:   model,
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Refine sends the draft to the LLM with a literary-editor prompt and returns
// the polished translation, or the draft if the editor returns nothing.
func (r *OllamaRefiner) Refine(ctx context.Context, sourceText, draftText string, terms terminology.Map) (string, error) {
	reqBody := ollamaRequest{
		Model:  r.model,
		Prompt: buildRefinementPrompt(sourceText, draftText, terms),
		Stream: false,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal refinement request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", fmt.Sprintf("%s/api/generate", r.baseURL), bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create refinement request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("refinement request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("refiner returned status %d", resp.StatusCode)
	}

	var ollamaResp ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&ollamaResp); err != nil {
		return "", fmt.Errorf("failed to decode refinement response: %w", err)
	}

	refined := sanitize.Clean(ollamaResp.Response)
	if refined == "" {
		return draftText, nil
	}
	return refined, nil
}

func buildRefinementPrompt(sourceText, draftText string, terms terminology.Map) string {
	var glossary strings.Builder
	if len(terms) > 0 {
		glossary.WriteString("\n**Glossary (use these renderings exactly):**\n")
		for _, e := range terms.Sorted() {
			fmt.Fprintf(&glossary, "- %s → %s\n", e.Source, e.Target)
		}
	}

	return fmt.Sprintf(`You are an elite English literary editor of translated Chinese web novels.

# YOUR TASK: REFINE AND POLISH

You will receive a DRAFT English translation that needs improvement.
Your job is to REWRITE it in natural, readable English prose.

ORIGINAL (Chinese):
%s

DRAFT TRANSLATION (English):
%s

# REFINEMENT PRINCIPLES

**Priority:**
1. Natural flow - Sentences should read smoothly
2. Idiomatic expressions - Replace literal calques with natural English
3. Preserve meaning - Keep the original meaning and paragraph breaks intact

**What to Preserve:**
- All factual content and meaning
- Character names, places, cultivation ranks and techniques
%s
CRITICAL: If the draft is already good, return it unchanged.

Output ONLY the refined English text. Do not include any explanation.`,
		sourceText, draftText, glossary.String())
}
