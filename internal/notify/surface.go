package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"CompetitorInsights/internal/domain"
)

// RenderRequest asks a pop-up surface to display a notification.
type RenderRequest struct {
	ID         string          `json:"id"`
	Signal     domain.Signal   `json:"event"`
	Priority   domain.Priority `json:"priority"`
	DurationMs int             `json:"durationMs"`
	Sound      bool            `json:"sound"`

	// OnDismiss lets the surface report a manual dismissal back to the dispatcher.
	OnDismiss func() `json:"-"`
}

// BadgeUpdate asks a passive surface to count a non-interruptive notification.
type BadgeUpdate struct {
	ID         string          `json:"id"`
	Signal     domain.Signal   `json:"event"`
	Priority   domain.Priority `json:"priority"`
	DurationMs int             `json:"durationMs"`
}

// Popups renders and withdraws interruptive notifications.
type Popups interface {
	Show(ctx context.Context, req RenderRequest) error
	Hide(ctx context.Context, id string) error
}

// Badges updates passive counters that never suspend the user's flow.
type Badges interface {
	Bump(ctx context.Context, update BadgeUpdate) error
}

// PopupFanout delivers to every wrapped surface and joins their errors.
type PopupFanout []Popups

func (f PopupFanout) Show(ctx context.Context, req RenderRequest) error {
	var errs []error
	for _, p := range f {
		if err := p.Show(ctx, req); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f PopupFanout) Hide(ctx context.Context, id string) error {
	var errs []error
	for _, p := range f {
		if err := p.Hide(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// BadgeFanout delivers to every wrapped badge surface.
type BadgeFanout []Badges

func (f BadgeFanout) Bump(ctx context.Context, update BadgeUpdate) error {
	var errs []error
	for _, b := range f {
		if err := b.Bump(ctx, update); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Counter is the "N new" indicator: it counts bumps since the last reset.
type Counter struct {
	mu        sync.Mutex
	count     int
	companies map[string]struct{}
	resetAt   time.Time
}

// NewCounter builds an empty counter.
func NewCounter() *Counter {
	return &Counter{companies: map[string]struct{}{}, resetAt: time.Now()}
}

func (c *Counter) Bump(_ context.Context, update BadgeUpdate) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count++
	if update.Signal.CompanyName != "" {
		c.companies[update.Signal.CompanyName] = struct{}{}
	}
	return nil
}

// CounterSnapshot is the exported view of a Counter.
type CounterSnapshot struct {
	Count     int       `json:"count"`
	Companies int       `json:"companies"`
	Since     time.Time `json:"since"`
}

// Snapshot returns the current count.
func (c *Counter) Snapshot() CounterSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CounterSnapshot{Count: c.count, Companies: len(c.companies), Since: c.resetAt}
}

// Reset clears the counter, as a dashboard refresh does.
func (c *Counter) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count = 0
	c.companies = map[string]struct{}{}
	c.resetAt = time.Now()
}

// LogSurface writes every request to a structured logger. Used when no other
// surface is configured and in the CLI listener.
type LogSurface struct {
	logger *slog.Logger
}

// NewLogSurface wraps a logger; nil falls back to slog.Default.
func NewLogSurface(logger *slog.Logger) *LogSurface {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSurface{logger: logger}
}

func (l *LogSurface) Show(ctx context.Context, req RenderRequest) error {
	l.logger.InfoContext(ctx, "critical alert",
		"id", req.ID,
		"company", req.Signal.CompanyName,
		"title", req.Signal.Title,
		"signal_type", req.Signal.Type,
		"impact", req.Signal.Impact,
		"duration_ms", req.DurationMs,
		"sound", req.Sound,
	)
	return nil
}

func (l *LogSurface) Hide(ctx context.Context, id string) error {
	l.logger.DebugContext(ctx, "notification dismissed", "id", id)
	return nil
}

func (l *LogSurface) Bump(ctx context.Context, update BadgeUpdate) error {
	l.logger.DebugContext(ctx, "new data",
		"id", update.ID,
		"company", update.Signal.CompanyName,
		"priority", update.Priority,
	)
	return nil
}
