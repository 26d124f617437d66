package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"CompetitorInsights/internal/config"
	"CompetitorInsights/internal/domain"
	"CompetitorInsights/internal/ports"
)

// ErrMalformedSignal is returned when the model reply does not describe a valid signal.
var ErrMalformedSignal = errors.New("malformed signal")

var impactGuidance = []struct {
	Level       domain.Level
	Description string
}{
	{domain.LevelHigh, "Immediate action required within 48 hours"},
	{domain.LevelMedium, "Action required within 1 week"},
	{domain.LevelLow, "Monitor and mention in next regular check-in"},
}

var confidenceGuidance = []struct {
	Level       domain.Level
	Description string
}{
	{domain.LevelHigh, "Very clear signal with specific details and credible source"},
	{domain.LevelMedium, "Signal present but some details unclear or source less authoritative"},
	{domain.LevelLow, "Weak signal, vague details, or questionable source"},
}

// ChatGPTClient implements ports.SignalDetector backed by OpenAI-compatible APIs.
type ChatGPTClient struct {
	endpoint     string
	model        string
	apiKey       string
	systemPrompt string
	httpClient   *http.Client
	now          func() time.Time
}

var _ ports.SignalDetector = (*ChatGPTClient)(nil)

// NewChatGPTClient builds a client from configuration.
func NewChatGPTClient(cfg config.ChatGPTConfig) *ChatGPTClient {
	return &ChatGPTClient{
		endpoint:     cfg.Endpoint,
		model:        cfg.Model,
		apiKey:       cfg.APIKey,
		systemPrompt: cfg.SystemPrompt,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		now: time.Now,
	}
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// extraction mirrors the JSON object the prompt asks the model to return.
type extraction struct {
	Type       domain.SignalType `json:"type"`
	Impact     domain.Level      `json:"impact"`
	Title      string            `json:"title"`
	Action     string            `json:"action"`
	Amount     *string           `json:"amount"`
	Person     *string           `json:"person"`
	Confidence domain.Level      `json:"confidence"`
}

// Detect asks the model for a structured signal. It returns nil when the
// model reports no signal or only low confidence.
func (c *ChatGPTClient) Detect(ctx context.Context, companyName, text string) (*domain.Signal, error) {
	if c == nil {
		return nil, fmt.Errorf("chatgpt client is nil")
	}
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return nil, fmt.Errorf("chatgpt client misconfigured")
	}

	body, err := json.Marshal(map[string]any{
		"model":       c.model,
		"temperature": 0.1,
		"response_format": map[string]string{
			"type": "json_object",
		},
		"messages": []map[string]string{
			{"role": "system", "content": safePrompt(c.systemPrompt)},
			{"role": "user", "content": BuildPrompt(companyName, text)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal chatgpt payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("detect signal: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("chatgpt error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode chatgpt response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return nil, fmt.Errorf("chatgpt returned no choices: %w", ErrMalformedSignal)
	}

	return c.toSignal(companyName, decoded.Choices[0].Message.Content)
}

func (c *ChatGPTClient) toSignal(companyName, content string) (*domain.Signal, error) {
	var ex extraction
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &ex); err != nil {
		return nil, fmt.Errorf("parse extraction: %w", errors.Join(ErrMalformedSignal, err))
	}
	if ex.Type == domain.SignalNone || ex.Confidence == domain.LevelLow {
		return nil, nil
	}
	if !knownType(ex.Type) {
		return nil, fmt.Errorf("signal type %q: %w", ex.Type, ErrMalformedSignal)
	}
	if !ex.Impact.Valid() {
		return nil, fmt.Errorf("impact %q: %w", ex.Impact, ErrMalformedSignal)
	}
	if ex.Confidence != "" && !ex.Confidence.Valid() {
		return nil, fmt.Errorf("confidence %q: %w", ex.Confidence, ErrMalformedSignal)
	}

	return &domain.Signal{
		CompanyName: companyName,
		Type:        ex.Type,
		Title:       strings.TrimSpace(ex.Title),
		Impact:      ex.Impact,
		Confidence:  ex.Confidence,
		Action:      strings.TrimSpace(ex.Action),
		Person:      deref(ex.Person),
		Amount:      deref(ex.Amount),
		DetectedAt:  c.now().UTC(),
	}, nil
}

// BuildPrompt renders the extraction instructions for one article.
func BuildPrompt(companyName, text string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze this text about %s and extract business signals.\n\n", companyName)
	fmt.Fprintf(&b, "Text: %s\n\n", strings.TrimSpace(text))

	b.WriteString("Signal Types:\n")
	for _, st := range domain.SignalTypes {
		fmt.Fprintf(&b, "- %s: %s\n", st.Type, st.Description)
	}
	b.WriteString("\nImpact Levels:\n")
	for _, il := range impactGuidance {
		fmt.Fprintf(&b, "- %s: %s\n", il.Level, il.Description)
	}
	b.WriteString("\nConfidence Levels:\n")
	for _, cl := range confidenceGuidance {
		fmt.Fprintf(&b, "- %s: %s\n", cl.Level, cl.Description)
	}

	b.WriteString("\nFocus on actionable intelligence for Customer Success.\n")
	b.WriteString("If no clear signal exists, use type 'none'.\n")
	b.WriteString("Make the title specific and the action concrete with a clear timeline.\n")
	b.WriteString(`Reply with a JSON object with keys "type", "impact", "title", "action", "amount", "person", "confidence". Use null for unknown amount or person.`)
	return b.String()
}

func knownType(t domain.SignalType) bool {
	for _, st := range domain.SignalTypes {
		if st.Type == t {
			return true
		}
	}
	return false
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func safePrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "You extract actionable business signals about companies from news text."
	}
	return prompt
}
