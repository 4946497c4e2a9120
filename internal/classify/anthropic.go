package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/paul2999Git/mailapp-sub000/internal/models"
)

const (
	anthropicBaseURL = "https://api.anthropic.com"
	anthropicVersion = "2023-06-01"

	// promptVersion is recorded on every audit entry so reclassified
	// messages can be told apart after prompt changes.
	promptVersion = "triage-v1"

	maxVerdictTokens = 1024
)

// AnthropicScorer scores messages against the Anthropic Messages API.
// The category list goes into the system prompt and the reply is
// required to be a single JSON object.
type AnthropicScorer struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewAnthropicScorer returns a scorer using the given API key and model.
func NewAnthropicScorer(apiKey, model string) *AnthropicScorer {
	return &AnthropicScorer{
		apiKey:  apiKey,
		model:   model,
		baseURL: anthropicBaseURL,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// verdict is the JSON object the model is instructed to reply with.
type verdict struct {
	Category         string   `json:"category"`
	Confidence       float64  `json:"confidence"`
	Explanation      string   `json:"explanation"`
	Factors          []string `json:"factors"`
	SuggestedAction  string   `json:"suggested_action"`
	NeedsHumanReview bool     `json:"needs_human_review"`
}

// Score sends one message's facts to the model and parses its verdict.
func (s *AnthropicScorer) Score(ctx context.Context, req *ScoreRequest) (*ScoreResult, error) {
	model := s.model
	if req.ModelOverride != "" {
		model = req.ModelOverride
	}
	system := buildSystemPrompt(req.Categories)
	if req.PromptOverride != "" {
		system = req.PromptOverride
	}

	body, err := json.Marshal(anthropicRequest{
		Model:     model,
		MaxTokens: maxVerdictTokens,
		System:    system,
		Messages:  []anthropicMessage{{Role: "user", Content: formatInput(req.Input)}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode scoring request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build scoring request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", s.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("scoring request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read scoring response: %w", err)
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode scoring response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if parsed.Error != nil {
			return nil, fmt.Errorf("anthropic returned %d: %s: %s", resp.StatusCode, parsed.Error.Type, parsed.Error.Message)
		}
		return nil, fmt.Errorf("anthropic returned %d", resp.StatusCode)
	}

	var text string
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}
	if text == "" {
		return nil, fmt.Errorf("anthropic response carried no text content")
	}

	var v verdict
	if err := json.Unmarshal([]byte(stripFences(text)), &v); err != nil {
		return nil, fmt.Errorf("failed to parse verdict %q: %w", text, err)
	}
	if v.Category == "" {
		return nil, fmt.Errorf("verdict named no category")
	}
	if v.Confidence < 0 {
		v.Confidence = 0
	}
	if v.Confidence > 1 {
		v.Confidence = 1
	}

	modelID := parsed.Model
	if modelID == "" {
		modelID = model
	}

	return &ScoreResult{
		Category:         v.Category,
		Confidence:       v.Confidence,
		Explanation:      v.Explanation,
		Factors:          v.Factors,
		SuggestedAction:  v.SuggestedAction,
		NeedsHumanReview: v.NeedsHumanReview,
		ModelID:          modelID,
		PromptVersion:    promptVersion,
	}, nil
}

// buildSystemPrompt lists the user's categories and pins the reply to a
// single JSON object.
func buildSystemPrompt(categories []*models.Category) string {
	var b strings.Builder
	b.WriteString("You sort incoming mail into the categories a user has configured.\n\nCategories:\n")
	for _, c := range categories {
		b.WriteString("- ")
		b.WriteString(c.Name)
		if c.Description != "" {
			b.WriteString(": ")
			b.WriteString(c.Description)
		}
		b.WriteString("\n")
	}
	b.WriteString("\nRespond with a single JSON object and nothing else:\n")
	b.WriteString(`{"category": "<one of the category names>", "confidence": <number 0..1>, "explanation": "<one sentence>", "factors": ["<signal>"], "suggested_action": "<move|keep|quarantine>", "needs_human_review": <true|false>}`)
	return b.String()
}

// formatInput renders the structured message facts as the user turn.
func formatInput(input Input) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Subject: %s\n", input.Subject)
	fmt.Fprintf(&b, "From: %s\n", input.From)
	if len(input.To) > 0 {
		fmt.Fprintf(&b, "To: %s\n", strings.Join(input.To, ", "))
	}
	if len(input.Cc) > 0 {
		fmt.Fprintf(&b, "Cc: %s\n", strings.Join(input.Cc, ", "))
	}
	if input.Date != nil {
		fmt.Fprintf(&b, "Date: %s\n", input.Date.Format(time.RFC1123Z))
	}
	fmt.Fprintf(&b, "Is reply: %t\n", input.IsReply)
	fmt.Fprintf(&b, "Has attachments: %t\n", input.HasAttachments)
	if len(input.ProviderLabels) > 0 {
		fmt.Fprintf(&b, "Provider labels: %s\n", strings.Join(input.ProviderLabels, ", "))
	}
	if input.BodyExcerpt != "" {
		fmt.Fprintf(&b, "\nBody excerpt:\n%s\n", input.BodyExcerpt)
	}
	return b.String()
}

// stripFences removes a markdown code fence the model sometimes wraps
// around the verdict despite the instructions.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
