package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"CompetitorInsights/internal/domain"
	"CompetitorInsights/internal/notify"
	"CompetitorInsights/internal/ports"
	"CompetitorInsights/internal/routing"
)

// Dispatcher is the part of notify.Dispatcher the live listener drives.
type Dispatcher interface {
	Dispatch(ctx context.Context, sig domain.Signal, p domain.Priority, settings notify.Settings) (notify.DispatchResult, error)
}

// LiveDeps wires the live listener.
type LiveDeps struct {
	Stream     ports.SignalStream
	Settings   ports.SettingsStore
	Dispatcher Dispatcher
	Defaults   notify.Settings
	Logger     *slog.Logger
}

// Live routes every newly stored signal to the notification dispatcher.
type Live struct {
	stream     ports.SignalStream
	settings   ports.SettingsStore
	dispatcher Dispatcher
	defaults   notify.Settings
	logger     *slog.Logger
}

// NewLive constructs the listener.
func NewLive(deps LiveDeps) *Live {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Live{
		stream:     deps.Stream,
		settings:   deps.Settings,
		dispatcher: deps.Dispatcher,
		defaults:   deps.Defaults,
		logger:     logger,
	}
}

// Run blocks on the stream until ctx ends.
func (l *Live) Run(ctx context.Context) error {
	if l.stream == nil || l.dispatcher == nil {
		return fmt.Errorf("live listener: %w", ErrMisconfigured)
	}
	l.logger.Info("live listener started")
	return l.stream.Subscribe(ctx, l.Handle)
}

// Handle loads the current settings, routes and dispatches one signal. If
// settings cannot be loaded the configured defaults apply.
func (l *Live) Handle(ctx context.Context, sig domain.Signal) error {
	settings := l.defaults
	if l.settings != nil {
		loaded, err := l.settings.Load(ctx)
		if err != nil {
			l.logger.WarnContext(ctx, "load settings, using defaults", "error", err)
		} else {
			settings = loaded
		}
	}

	priority := routing.Route(sig)
	res, err := l.dispatcher.Dispatch(ctx, sig, priority, settings)
	if err != nil {
		return fmt.Errorf("dispatch signal %s: %w", sig.ID, err)
	}
	l.logger.DebugContext(ctx, "live signal dispatched",
		"id", res.ID,
		"priority", priority,
		"shown", res.Shown,
		"badged", res.Badged,
	)
	return nil
}
