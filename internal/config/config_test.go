package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv(configPathEnv, "")
	t.Setenv(databaseDSNEnv, "")

	cfg := LoadFrom("")
	if cfg.HTTP.Addr != ":8090" || cfg.Scrape.Scanner != "newsapi" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.NewsAPI.PageSize != 20 || cfg.GoogleNews.MaxEntries != 20 {
		t.Fatalf("unexpected provider defaults %+v %+v", cfg.NewsAPI, cfg.GoogleNews)
	}
	if !cfg.Notifications.Defaults.PersistCritical || !cfg.Notifications.Defaults.EnableCritical {
		t.Fatalf("unexpected notification defaults %+v", cfg.Notifications.Defaults)
	}
	if cfg.Scheduler.Location().String() != "UTC" {
		t.Fatalf("unexpected timezone %s", cfg.Scheduler.Location())
	}
}

func TestLoadFileOverDefaults(t *testing.T) {
	t.Setenv(databaseDSNEnv, "")
	path := writeConfig(t, `
database:
  dsn: postgres://file/db
scheduler:
  enabled: true
  interval: 30m
  timezone: Europe/Berlin
notifications:
  defaults:
    enableCritical: true
    persistCritical: false
realtime:
  driver: nats
`)

	cfg := LoadFrom(path)
	if cfg.Database.DSN != "postgres://file/db" {
		t.Fatalf("dsn not loaded: %q", cfg.Database.DSN)
	}
	if !cfg.Scheduler.Enabled || cfg.Scheduler.Interval != 30*time.Minute {
		t.Fatalf("scheduler not loaded: %+v", cfg.Scheduler)
	}
	if cfg.Scheduler.Location().String() != "Europe/Berlin" {
		t.Fatalf("timezone not bound: %s", cfg.Scheduler.Location())
	}
	if cfg.Notifications.Defaults.PersistCritical {
		t.Fatal("persistCritical override ignored")
	}
	if cfg.Realtime.Driver != "nats" || cfg.Realtime.Subject != "signals.inserted" {
		t.Fatalf("realtime merge wrong: %+v", cfg.Realtime)
	}
	if cfg.HTTP.Addr != ":8090" {
		t.Fatal("keys absent from the file should keep defaults")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, "database:\n  dsn: postgres://file/db\n")
	t.Setenv(databaseDSNEnv, "postgres://env/db")
	t.Setenv(newsAPIKeyEnv, "news-key")
	t.Setenv(redisAddrEnv, "127.0.0.1:6379")
	t.Setenv(logLevelEnv, "debug")

	cfg := LoadFrom(path)
	if cfg.Database.DSN != "postgres://env/db" {
		t.Fatalf("env should win over file, got %q", cfg.Database.DSN)
	}
	if cfg.NewsAPI.APIKey != "news-key" || cfg.Redis.Addr != "127.0.0.1:6379" || cfg.Logging.Level != "debug" {
		t.Fatalf("env overrides missing: %+v", cfg)
	}
}

func TestLoadBrokenFileFallsBack(t *testing.T) {
	t.Setenv(databaseDSNEnv, "")
	path := writeConfig(t, "database: [unterminated")

	cfg := LoadFrom(path)
	if cfg.Database.DSN != "" || cfg.HTTP.Addr != ":8090" {
		t.Fatalf("expected defaults after parse failure, got %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	if err := cfg.ValidateScrape(); !errors.Is(err, ErrMissing) {
		t.Fatalf("expected ErrMissing without dsn, got %v", err)
	}

	cfg.Database.DSN = "postgres://x"
	if err := cfg.ValidateScrape(); !errors.Is(err, ErrMissing) {
		t.Fatalf("expected ErrMissing without newsapi key, got %v", err)
	}

	cfg.NewsAPI.APIKey = "k"
	if err := cfg.ValidateScrape(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := cfg.ValidateDetect(); !errors.Is(err, ErrMissing) {
		t.Fatalf("expected ErrMissing without chatgpt key, got %v", err)
	}
	cfg.ChatGPT.APIKey = "sk"
	if err := cfg.ValidateDetect(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg.Scrape.Scanner = "googlenews"
	cfg.NewsAPI.APIKey = ""
	if err := cfg.ValidateScrape(); err != nil {
		t.Fatalf("googlenews scrape needs no key: %v", err)
	}
}

func TestTelegramEnabled(t *testing.T) {
	t.Parallel()

	if (TelegramConfig{BotToken: "t"}).Enabled() {
		t.Fatal("chat id is required")
	}
	if !(TelegramConfig{BotToken: "t", ChatID: "c"}).Enabled() {
		t.Fatal("expected enabled")
	}
}
