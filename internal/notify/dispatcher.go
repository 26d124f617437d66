// Package notify decides how a routed signal reaches the user: an interruptive
// pop-up for critical signals, a passive badge for everything else.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"

	"CompetitorInsights/internal/domain"
	"CompetitorInsights/internal/metrics"
)

// ErrUnknownPriority is returned for priorities outside critical/important/normal.
var ErrUnknownPriority = errors.New("unknown priority")

// DispatchResult reports what a dispatch call did.
type DispatchResult struct {
	ID         string `json:"id"`
	Shown      bool   `json:"shown"`
	Badged     bool   `json:"badged"`
	DurationMs int    `json:"durationMs"`
}

// DispatcherDeps wires surfaces and the clock into a Dispatcher.
type DispatcherDeps struct {
	Popups Popups
	Badges Badges
	Clock  Clock
	Logger *slog.Logger
}

// Dispatcher owns the set of notifications currently on screen.
type Dispatcher struct {
	popups Popups
	badges Badges
	clock  Clock
	logger *slog.Logger

	mu     sync.Mutex
	active map[string]*Notification
}

// NewDispatcher constructs a dispatcher; missing deps fall back to no-op
// surfaces, the system clock and the default logger.
func NewDispatcher(deps DispatcherDeps) *Dispatcher {
	d := &Dispatcher{
		popups: deps.Popups,
		badges: deps.Badges,
		clock:  deps.Clock,
		logger: deps.Logger,
		active: map[string]*Notification{},
	}
	if d.clock == nil {
		d.clock = SystemClock()
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	if d.popups == nil {
		d.popups = PopupFanout(nil)
	}
	if d.badges == nil {
		d.badges = BadgeFanout(nil)
	}
	return d
}

// Dispatch presents or suppresses a notification for sig at priority p using
// the caller's settings snapshot.
func (d *Dispatcher) Dispatch(ctx context.Context, sig domain.Signal, p domain.Priority, settings Settings) (DispatchResult, error) {
	if _, ok := domain.ParsePriority(string(p)); !ok {
		return DispatchResult{}, fmt.Errorf("dispatch %q: %w", p, ErrUnknownPriority)
	}

	id := NotificationID(sig, d.clock.Now())
	if !settings.Enabled(p) {
		metrics.Notifications.WithLabelValues(string(p), "disabled").Inc()
		return DispatchResult{ID: id}, nil
	}

	duration := settings.Duration(p)
	result := DispatchResult{ID: id, DurationMs: int(duration.Milliseconds())}

	if p != domain.PriorityCritical {
		err := d.badges.Bump(ctx, BadgeUpdate{
			ID:         id,
			Signal:     sig,
			Priority:   p,
			DurationMs: result.DurationMs,
		})
		if err != nil {
			metrics.Notifications.WithLabelValues(string(p), "error").Inc()
			return result, fmt.Errorf("bump badge %s: %w", id, err)
		}
		metrics.Notifications.WithLabelValues(string(p), "badge").Inc()
		result.Badged = true
		return result, nil
	}

	n := &Notification{ID: id, Signal: sig, Priority: p, Duration: duration}
	if err := n.Show(d.clock.Now()); err != nil {
		return result, err
	}
	d.track(n)

	req := RenderRequest{
		ID:         id,
		Signal:     sig,
		Priority:   p,
		DurationMs: result.DurationMs,
		Sound:      settings.SoundEnabled,
		OnDismiss: func() {
			d.Dismiss(context.Background(), id)
		},
	}
	if err := d.popups.Show(ctx, req); err != nil {
		d.untrack(n)
		metrics.Notifications.WithLabelValues(string(p), "error").Inc()
		return result, fmt.Errorf("show popup %s: %w", id, err)
	}

	if duration > 0 {
		d.mu.Lock()
		if d.active[id] == n {
			n.timer = d.clock.AfterFunc(duration, func() { d.expire(n) })
		}
		d.mu.Unlock()
	}

	d.logger.InfoContext(ctx, "critical alert shown",
		"id", id,
		"company", sig.CompanyName,
		"signal_type", sig.Type,
		"impact", sig.Impact,
	)
	metrics.Notifications.WithLabelValues(string(p), "popup").Inc()
	result.Shown = true
	return result, nil
}

// Preview dispatches a synthetic test notification forced to priority p.
func (d *Dispatcher) Preview(ctx context.Context, p domain.Priority, settings Settings) (DispatchResult, error) {
	if _, ok := domain.ParsePriority(string(p)); !ok {
		return DispatchResult{}, fmt.Errorf("preview %q: %w", p, ErrUnknownPriority)
	}

	now := d.clock.Now()
	sig := domain.Signal{
		ID:          strconv.FormatInt(now.UnixMilli(), 10),
		CompanyName: "Test Company",
		Title:       fmt.Sprintf("Test %s notification", p),
		Action:      "This is a test notification to preview the styling and behavior.",
		Type:        domain.SignalFunding,
		Impact:      domain.LevelLow,
		Confidence:  domain.LevelHigh,
		DetectedAt:  now,
	}
	switch p {
	case domain.PriorityCritical:
		sig.Impact = domain.LevelHigh
		sig.Type = domain.SignalLeadership
	case domain.PriorityImportant:
		sig.Impact = domain.LevelMedium
	}
	return d.Dispatch(ctx, sig, p, settings)
}

// Dismiss removes a notification after a manual dismissal. Unknown or already
// dismissed ids return false.
func (d *Dispatcher) Dismiss(ctx context.Context, id string) bool {
	d.mu.Lock()
	n, ok := d.active[id]
	if ok {
		delete(d.active, id)
		n.Dismiss()
	}
	d.mu.Unlock()

	if !ok {
		return false
	}
	d.hide(ctx, id)
	return true
}

// DismissAll clears every notification on screen, persistent ones included.
func (d *Dispatcher) DismissAll(ctx context.Context) int {
	return d.dismissWhere(ctx, func(*Notification) bool { return true })
}

// DismissByPriority clears notifications of a single priority.
func (d *Dispatcher) DismissByPriority(ctx context.Context, p domain.Priority) int {
	return d.dismissWhere(ctx, func(n *Notification) bool { return n.Priority == p })
}

// ActiveNotification is a read-only view of a shown notification.
type ActiveNotification struct {
	ID         string          `json:"id"`
	Signal     domain.Signal   `json:"event"`
	Priority   domain.Priority `json:"priority"`
	DurationMs int             `json:"durationMs"`
	Persistent bool            `json:"persistent"`
}

// Active lists notifications currently shown, oldest first.
func (d *Dispatcher) Active() []ActiveNotification {
	d.mu.Lock()
	list := make([]*Notification, 0, len(d.active))
	for _, n := range d.active {
		list = append(list, n)
	}
	d.mu.Unlock()

	sort.Slice(list, func(i, j int) bool {
		if list[i].ShownAt.Equal(list[j].ShownAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].ShownAt.Before(list[j].ShownAt)
	})

	out := make([]ActiveNotification, 0, len(list))
	for _, n := range list {
		out = append(out, ActiveNotification{
			ID:         n.ID,
			Signal:     n.Signal,
			Priority:   n.Priority,
			DurationMs: int(n.Duration.Milliseconds()),
			Persistent: n.Persistent(),
		})
	}
	return out
}

func (d *Dispatcher) dismissWhere(ctx context.Context, match func(*Notification) bool) int {
	d.mu.Lock()
	var ids []string
	for id, n := range d.active {
		if !match(n) {
			continue
		}
		n.Dismiss()
		delete(d.active, id)
		ids = append(ids, id)
	}
	d.mu.Unlock()

	sort.Strings(ids)
	for _, id := range ids {
		d.hide(ctx, id)
	}
	return len(ids)
}

// track replaces any earlier instance with the same id.
func (d *Dispatcher) track(n *Notification) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if prev, ok := d.active[n.ID]; ok {
		prev.stopTimer()
	}
	d.active[n.ID] = n
}

func (d *Dispatcher) untrack(n *Notification) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.active[n.ID] == n {
		delete(d.active, n.ID)
	}
}

func (d *Dispatcher) expire(n *Notification) {
	d.mu.Lock()
	current := d.active[n.ID] == n
	expired := current && n.Timeout()
	if expired {
		delete(d.active, n.ID)
	}
	d.mu.Unlock()

	if expired {
		d.hide(context.Background(), n.ID)
	}
}

func (d *Dispatcher) hide(ctx context.Context, id string) {
	if err := d.popups.Hide(ctx, id); err != nil {
		d.logger.WarnContext(ctx, "hide notification", "id", id, "error", err)
	}
}
