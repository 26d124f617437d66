package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"CompetitorInsights/internal/notify"
)

const (
	defaultAPIBase = "https://api.telegram.org"

	// rememberSent bounds the ids kept for repeat suppression.
	rememberSent = 256
)

var markdownEscaper = strings.NewReplacer("_", `\_`, "*", `\*`, "[", `\[`, "`", "\\`")

// Notifier mirrors critical pop-ups into a Telegram chat via the bot API.
// A notification id already sent is not posted again, so replays and stream
// redeliveries do not spam the chat.
type Notifier struct {
	botToken string
	chatID   string
	apiBase  string
	client   *http.Client

	mu    sync.Mutex
	sent  map[string]struct{}
	order []string
}

var _ notify.Popups = (*Notifier)(nil)

// NewNotifier registers bot token and chat identifier.
func NewNotifier(botToken, chatID string) *Notifier {
	return &Notifier{
		botToken: botToken,
		chatID:   chatID,
		apiBase:  defaultAPIBase,
		client:   &http.Client{Timeout: 5 * time.Second},
		sent:     make(map[string]struct{}),
	}
}

// Show posts the critical alert as a Markdown message unless req.ID was
// already sent.
func (n *Notifier) Show(ctx context.Context, req notify.RenderRequest) error {
	if n.botToken == "" || n.chatID == "" || n.client == nil {
		return fmt.Errorf("telegram notifier misconfigured")
	}
	if !n.claim(req.ID) {
		return nil
	}
	if err := n.send(ctx, req); err != nil {
		n.release(req.ID)
		return err
	}
	return nil
}

func (n *Notifier) send(ctx context.Context, req notify.RenderRequest) error {
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimSuffix(n.apiBase, "/"), n.botToken)
	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", FormatAlert(req))
	form.Set("parse_mode", "Markdown")
	form.Set("disable_notification", fmt.Sprintf("%t", !req.Sound))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram error: %s", resp.Status)
	}

	return nil
}

// claim reserves id for sending. It reports false when id was already sent or
// is in flight. Empty ids are never suppressed.
func (n *Notifier) claim(id string) bool {
	if id == "" {
		return true
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.sent == nil {
		n.sent = make(map[string]struct{})
	}
	if _, ok := n.sent[id]; ok {
		return false
	}
	n.sent[id] = struct{}{}
	n.order = append(n.order, id)
	if len(n.order) > rememberSent {
		delete(n.sent, n.order[0])
		n.order = n.order[1:]
	}
	return true
}

// release forgets id after a failed send so a retry goes out.
func (n *Notifier) release(id string) {
	if id == "" {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.sent, id)
	for i, v := range n.order {
		if v == id {
			n.order = append(n.order[:i], n.order[i+1:]...)
			break
		}
	}
}

// Hide is a no-op: sent chat messages stay in the history.
func (n *Notifier) Hide(context.Context, string) error {
	return nil
}

// FormatAlert renders the chat message for a critical notification.
func FormatAlert(req notify.RenderRequest) string {
	sig := req.Signal
	var b strings.Builder
	fmt.Fprintf(&b, "*CRITICAL: %s*\n", markdownEscaper.Replace(sig.CompanyName))
	b.WriteString(markdownEscaper.Replace(sig.Title))
	if sig.Action != "" {
		fmt.Fprintf(&b, "\nAction: %s", markdownEscaper.Replace(sig.Action))
	}
	if sig.Type != "" {
		fmt.Fprintf(&b, "\nType: %s, impact %s", sig.Type, sig.Impact)
	}
	if sig.SourceURL != "" {
		fmt.Fprintf(&b, "\n%s", sig.SourceURL)
	}
	return b.String()
}
