package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"CompetitorInsights/internal/notify"
	"CompetitorInsights/pkg/logger"
)

const (
	defaultTimezone   = "UTC"
	configPathEnv     = "COMPETITOR_INSIGHTS_CONFIG"
	databaseDSNEnv    = "DATABASE_DSN"
	newsAPIKeyEnv     = "NEWSAPI_KEY"
	openAIKeyEnv      = "OPENAI_API_KEY"
	chatGPTModelEnv   = "CHATGPT_MODEL"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
	redisAddrEnv      = "REDIS_ADDR"
	redisPasswordEnv  = "REDIS_PASSWORD"
	natsURLEnv        = "NATS_URL"
	httpAddrEnv       = "HTTP_ADDR"
	logLevelEnv       = "LOG_LEVEL"
	logFormatEnv      = "LOG_FORMAT"
)

// ErrMissing marks configuration that a command cannot run without.
var ErrMissing = errors.New("missing required configuration")

var bootLog = logger.New("config")

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Database      DatabaseConfig     `yaml:"database"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	HTTP          HTTPConfig         `yaml:"http"`
	Scrape        ScrapeConfig       `yaml:"scrape"`
	Detect        DetectConfig       `yaml:"detect"`
	NewsAPI       NewsAPIConfig      `yaml:"newsapi"`
	GoogleNews    GoogleNewsConfig   `yaml:"googleNews"`
	Redis         RedisConfig        `yaml:"redis"`
	Realtime      RealtimeConfig     `yaml:"realtime"`
	Notifications NotificationConfig `yaml:"notifications"`
	ChatGPT       ChatGPTConfig      `yaml:"chatgpt"`
}

// LoggingConfig selects slog level and handler format (text or json).
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DatabaseConfig describes Postgres connection details.
type DatabaseConfig struct {
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"maxOpenConns"`
}

// SchedulerConfig defines when the scrape pipeline runs inside `serve`.
type SchedulerConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Interval time.Duration  `yaml:"interval"`
	Timezone string         `yaml:"timezone"`
	location *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// ScrapeConfig picks the fetch strategy for the event pipeline.
type ScrapeConfig struct {
	Scanner string            `yaml:"scanner"`
	Options map[string]string `yaml:"options"`
}

// DetectConfig picks the fetch strategy for signal detection.
type DetectConfig struct {
	Scanner  string        `yaml:"scanner"`
	DaysBack int           `yaml:"daysBack"`
	Interval time.Duration `yaml:"interval"`
}

// NewsAPIConfig wires the newsapi.org client.
type NewsAPIConfig struct {
	Endpoint          string  `yaml:"endpoint"`
	APIKey            string  `yaml:"apiKey"`
	PageSize          int     `yaml:"pageSize"`
	RequestsPerSecond float64 `yaml:"requestsPerSecond"`
}

// GoogleNewsConfig wires the Google News RSS search.
type GoogleNewsConfig struct {
	Endpoint   string `yaml:"endpoint"`
	MaxEntries int    `yaml:"maxEntries"`
}

// RedisConfig points at the settings store. Empty Addr keeps settings in memory.
type RedisConfig struct {
	Addr        string `yaml:"addr"`
	Password    string `yaml:"password"`
	DB          int    `yaml:"db"`
	SettingsKey string `yaml:"settingsKey"`
}

// RealtimeConfig selects the live-update transport: "postgres" or "nats".
type RealtimeConfig struct {
	Driver  string `yaml:"driver"`
	NATSURL string `yaml:"natsUrl"`
	Subject string `yaml:"subject"`
}

// NotificationConfig encapsulates outbound channels and default preferences.
type NotificationConfig struct {
	Telegram TelegramConfig  `yaml:"telegram"`
	Defaults notify.Settings `yaml:"defaults"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// Enabled reports whether both token and chat are present.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// ChatGPTConfig defines how to contact the chat completions API.
type ChatGPTConfig struct {
	Endpoint     string `yaml:"endpoint"`
	Model        string `yaml:"model"`
	APIKey       string `yaml:"apiKey"`
	SystemPrompt string `yaml:"systemPrompt"`
}

// Load reads configuration from the path in COMPETITOR_INSIGHTS_CONFIG.
func Load() Config {
	return LoadFrom(os.Getenv(configPathEnv))
}

// LoadFrom loads local .env files, decodes the YAML file at path (if any) over
// the defaults and applies environment overrides.
func LoadFrom(path string) Config {
	loadDotEnv()

	cfg := defaultConfig()
	if path == "" {
		path = os.Getenv(configPathEnv)
	}

	if path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			bootLog.Printf("cannot read %s: %v (falling back to defaults)", path, err)
		} else if err := decode(raw, &cfg); err != nil {
			bootLog.Printf("cannot parse %s: %v (falling back to defaults)", path, err)
			cfg = defaultConfig()
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()
	return cfg
}

// decode unmarshals over cfg so that keys absent from the file keep defaults.
func decode(raw []byte, cfg *Config) error {
	return yaml.Unmarshal(raw, cfg)
}

func loadDotEnv() {
	for _, file := range []string{".env", ".env.local"} {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			bootLog.Printf("cannot load %s: %v", file, err)
		}
	}
}

// ValidateStorage ensures a database is configured.
func (c Config) ValidateStorage() error {
	if c.Database.DSN == "" {
		return fmt.Errorf("database dsn (%s): %w", databaseDSNEnv, ErrMissing)
	}
	return nil
}

// ValidateScrape ensures the scrape pipeline can reach storage and its provider.
func (c Config) ValidateScrape() error {
	if err := c.ValidateStorage(); err != nil {
		return err
	}
	if c.Scrape.Scanner == "newsapi" && c.NewsAPI.APIKey == "" {
		return fmt.Errorf("newsapi key (%s): %w", newsAPIKeyEnv, ErrMissing)
	}
	return nil
}

// ValidateDetect ensures signal detection has storage and an LLM key.
func (c Config) ValidateDetect() error {
	if err := c.ValidateStorage(); err != nil {
		return err
	}
	if c.ChatGPT.APIKey == "" || c.ChatGPT.Endpoint == "" || c.ChatGPT.Model == "" {
		return fmt.Errorf("chatgpt endpoint/model/key (%s): %w", openAIKeyEnv, ErrMissing)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv(newsAPIKeyEnv); v != "" {
		c.NewsAPI.APIKey = v
	}
	if v := os.Getenv(openAIKeyEnv); v != "" {
		c.ChatGPT.APIKey = v
	}
	if v := os.Getenv(chatGPTModelEnv); v != "" {
		c.ChatGPT.Model = v
	}
	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
	if v := os.Getenv(redisAddrEnv); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv(redisPasswordEnv); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv(natsURLEnv); v != "" {
		c.Realtime.NATSURL = v
	}
	if v := os.Getenv(httpAddrEnv); v != "" {
		c.HTTP.Addr = v
	}
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(logFormatEnv); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("SCHEDULER_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			c.Scheduler.Enabled = enabled
		}
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		bootLog.Printf("unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging:   LoggingConfig{Level: "info", Format: "text"},
		Database:  DatabaseConfig{MaxOpenConns: 5},
		Scheduler: SchedulerConfig{Enabled: false, Interval: 6 * time.Hour, Timezone: defaultTimezone, location: tz},
		HTTP:      HTTPConfig{Addr: ":8090"},
		Scrape:    ScrapeConfig{Scanner: "newsapi"},
		Detect:    DetectConfig{Scanner: "googlenews", DaysBack: 7},
		NewsAPI: NewsAPIConfig{
			Endpoint:          "https://newsapi.org/v2/everything",
			PageSize:          20,
			RequestsPerSecond: 1,
		},
		GoogleNews: GoogleNewsConfig{
			Endpoint:   "https://news.google.com/rss/search",
			MaxEntries: 20,
		},
		Redis: RedisConfig{SettingsKey: "competitor-insights:notification-settings"},
		Realtime: RealtimeConfig{
			Driver:  "postgres",
			NATSURL: "nats://127.0.0.1:4222",
			Subject: "signals.inserted",
		},
		Notifications: NotificationConfig{Defaults: notify.DefaultSettings()},
		ChatGPT: ChatGPTConfig{
			Endpoint:     "https://api.openai.com/v1/chat/completions",
			Model:        "gpt-4o-mini",
			SystemPrompt: "You extract actionable business signals about companies from news text.",
		},
	}
}
