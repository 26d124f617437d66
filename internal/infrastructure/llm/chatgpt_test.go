package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CompetitorInsights/internal/config"
	"CompetitorInsights/internal/domain"
)

func completion(content string) string {
	body, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	})
	return string(body)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *ChatGPTClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewChatGPTClient(config.ChatGPTConfig{Endpoint: srv.URL, Model: "gpt-4o-mini", APIKey: "sk-test"})
	c.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return c
}

func TestDetectReturnsSignal(t *testing.T) {
	t.Parallel()

	var sent map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		_ = json.NewDecoder(r.Body).Decode(&sent)
		_, _ = w.Write([]byte(completion(`{"type":"leadership","impact":"high","title":"CEO John Smith departed","action":"Schedule exec check-in within 48h","amount":null,"person":"John Smith, CEO","confidence":"high"}`)))
	})

	sig, err := c.Detect(context.Background(), "Acme Corp", "Acme Corp CEO John Smith announced his resignation")
	require.NoError(t, err)
	require.NotNil(t, sig)

	assert.Equal(t, domain.SignalLeadership, sig.Type)
	assert.Equal(t, domain.LevelHigh, sig.Impact)
	assert.Equal(t, "Acme Corp", sig.CompanyName)
	assert.Equal(t, "John Smith, CEO", sig.Person)
	assert.Empty(t, sig.Amount)
	assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), sig.DetectedAt)

	format, ok := sent["response_format"].(map[string]any)
	require.True(t, ok, "response_format missing")
	assert.Equal(t, "json_object", format["type"])
	assert.Equal(t, "gpt-4o-mini", sent["model"])
}

func TestDetectFiltersNoneAndLowConfidence(t *testing.T) {
	t.Parallel()

	replies := []string{
		`{"type":"none","impact":"low","title":"","action":"","confidence":"high"}`,
		`{"type":"funding","impact":"medium","title":"Maybe raised","action":"Watch","confidence":"low"}`,
	}
	for _, reply := range replies {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(completion(reply)))
		})
		sig, err := c.Detect(context.Background(), "Acme", "text")
		require.NoError(t, err)
		assert.Nil(t, sig, "reply %s should be filtered", reply)
	}
}

func TestDetectRejectsMalformedReplies(t *testing.T) {
	t.Parallel()

	replies := []string{
		`not json`,
		`{"type":"rumor","impact":"high","title":"x","action":"y","confidence":"high"}`,
		`{"type":"funding","impact":"urgent","title":"x","action":"y","confidence":"high"}`,
	}
	for _, reply := range replies {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(completion(reply)))
		})
		_, err := c.Detect(context.Background(), "Acme", "text")
		assert.True(t, errors.Is(err, ErrMalformedSignal), "reply %s: got %v", reply, err)
	}
}

func TestDetectHTTPError(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})
	_, err := c.Detect(context.Background(), "Acme", "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestDetectMisconfigured(t *testing.T) {
	t.Parallel()

	c := NewChatGPTClient(config.ChatGPTConfig{})
	_, err := c.Detect(context.Background(), "Acme", "text")
	require.Error(t, err)
}

func TestBuildPromptListsGuidance(t *testing.T) {
	t.Parallel()

	prompt := BuildPrompt("Acme", "  some text  ")
	for _, want := range []string{
		"Analyze this text about Acme",
		"Text: some text",
		"- leadership: CEO/CFO/CTO departure",
		"- none: No actionable signal detected",
		"- medium: Action required within 1 week",
		"- low: Weak signal",
		"use type 'none'",
	} {
		assert.True(t, strings.Contains(prompt, want), "prompt missing %q", want)
	}
}
