package app

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"CompetitorInsights/internal/config"
	"CompetitorInsights/internal/infrastructure/settingsstore"
	"CompetitorInsights/internal/notify"
	"CompetitorInsights/internal/usecase"
)

func testApp(cfg config.Config) *Application {
	return New(cfg, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
}

func TestCommandsReportMisconfiguration(t *testing.T) {
	t.Parallel()

	a := testApp(config.Config{})
	ctx := context.Background()

	checks := map[string]error{}
	_, checks["scrape"] = a.Scrape(ctx)
	_, checks["seed"] = a.Seed(ctx)
	_, checks["detect"] = a.Detect(ctx)
	checks["migrate"] = a.Migrate(ctx)
	checks["listen"] = a.Listen(ctx)

	for name, err := range checks {
		if !errors.Is(err, usecase.ErrMisconfigured) {
			t.Fatalf("%s: expected ErrMisconfigured, got %v", name, err)
		}
		if !errors.Is(err, config.ErrMissing) {
			t.Fatalf("%s: expected config.ErrMissing, got %v", name, err)
		}
	}
}

func TestUnknownRealtimeDriver(t *testing.T) {
	t.Parallel()

	a := testApp(config.Config{Realtime: config.RealtimeConfig{Driver: "kafka"}})
	if _, err := a.stream(context.Background()); !errors.Is(err, usecase.ErrMisconfigured) {
		t.Fatalf("expected ErrMisconfigured, got %v", err)
	}
}

func TestRegistryHasBothScanners(t *testing.T) {
	t.Parallel()

	a := testApp(config.Config{})
	for _, name := range []string{"newsapi", "googlenews"} {
		if _, err := a.registry.Resolve(name); err != nil {
			t.Fatalf("resolve %s: %v", name, err)
		}
	}
}

func TestSettingsStoreSelection(t *testing.T) {
	t.Parallel()

	defaults := notify.DefaultSettings()
	mem := testApp(config.Config{Notifications: config.NotificationConfig{Defaults: defaults}}).settingsStore()
	if _, ok := mem.(*settingsstore.MemoryStore); !ok {
		t.Fatalf("expected memory store, got %T", mem)
	}

	srv := miniredis.RunT(t)
	cfg := config.Config{
		Redis:         config.RedisConfig{Addr: srv.Addr(), SettingsKey: "settings"},
		Notifications: config.NotificationConfig{Defaults: defaults},
	}
	store := testApp(cfg).settingsStore()
	if _, ok := store.(*settingsstore.RedisStore); !ok {
		t.Fatalf("expected redis store, got %T", store)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != defaults {
		t.Fatalf("expected defaults, got %+v", got)
	}
}

func TestSurfacesIncludeTelegramWhenConfigured(t *testing.T) {
	t.Parallel()

	plain := testApp(config.Config{})
	popups, badges := plain.surfaces(nil, notify.NewCounter())
	if len(popups) != 1 || len(badges) != 2 {
		t.Fatalf("unexpected fan-out sizes: %d popups, %d badges", len(popups), len(badges))
	}

	withTelegram := testApp(config.Config{Notifications: config.NotificationConfig{
		Telegram: config.TelegramConfig{BotToken: "token", ChatID: "42"},
	}})
	popups, _ = withTelegram.surfaces(nil, notify.NewCounter())
	if len(popups) != 2 {
		t.Fatalf("expected telegram surface, got %d popups", len(popups))
	}
}

func TestSchedulersDisabledByDefault(t *testing.T) {
	t.Parallel()

	a := testApp(config.Config{})
	if got := a.schedulers(context.Background(), a.logger); len(got) != 0 {
		t.Fatalf("expected no schedulers, got %d", len(got))
	}
}
