package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"CompetitorInsights/internal/config"
	"CompetitorInsights/internal/infrastructure/httpapi"
	"CompetitorInsights/internal/infrastructure/llm"
	"CompetitorInsights/internal/infrastructure/parser"
	"CompetitorInsights/internal/infrastructure/realtime"
	"CompetitorInsights/internal/infrastructure/scheduler"
	"CompetitorInsights/internal/infrastructure/settingsstore"
	"CompetitorInsights/internal/infrastructure/storage"
	"CompetitorInsights/internal/infrastructure/telegram"
	"CompetitorInsights/internal/infrastructure/websocket"
	"CompetitorInsights/internal/logging"
	"CompetitorInsights/internal/notify"
	"CompetitorInsights/internal/ports"
	"CompetitorInsights/internal/scanner"
	"CompetitorInsights/internal/usecase"
)

const (
	driverPostgres = "postgres"
	driverNATS     = "nats"
	natsClientName = "competitor-insights"
)

// Application wires configs to use cases and lifecycle orchestration.
// Storage and transports are opened lazily by the command that needs them.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	registry *scanner.Registry

	mu   sync.Mutex
	db   *sql.DB
	repo *storage.PostgresRepository
	nats *realtime.NATSStream
}

// New builds an application instance. No connection is opened here.
func New(cfg config.Config, baseLogger *slog.Logger) *Application {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	registry := scanner.NewRegistry()
	registry.Register(parser.NewNewsAPIScanner(parser.NewsAPIOptions{
		Endpoint:          cfg.NewsAPI.Endpoint,
		APIKey:            cfg.NewsAPI.APIKey,
		PageSize:          cfg.NewsAPI.PageSize,
		RequestsPerSecond: cfg.NewsAPI.RequestsPerSecond,
	}))
	registry.Register(parser.NewGoogleNewsScanner(nil, cfg.GoogleNews.Endpoint, cfg.GoogleNews.MaxEntries))

	return &Application{cfg: cfg, logger: baseLogger, registry: registry}
}

// misconfigured tags a configuration error so callers can match both sentinels.
func misconfigured(err error) error {
	return fmt.Errorf("%w: %w", usecase.ErrMisconfigured, err)
}

func (a *Application) component(name string) *slog.Logger {
	return a.logger.With("component", name)
}

func (a *Application) openStorage(ctx context.Context) (*storage.PostgresRepository, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.repo != nil {
		return a.repo, nil
	}
	if err := a.cfg.ValidateStorage(); err != nil {
		return nil, misconfigured(err)
	}
	db, err := storage.Open(ctx, a.cfg.Database.DSN, a.cfg.Database.MaxOpenConns)
	if err != nil {
		return nil, err
	}
	a.db = db
	a.repo = storage.NewPostgresRepository(db)
	return a.repo, nil
}

func (a *Application) natsStream() (*realtime.NATSStream, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.nats != nil {
		return a.nats, nil
	}
	if a.cfg.Realtime.NATSURL == "" {
		return nil, misconfigured(fmt.Errorf("nats url: %w", config.ErrMissing))
	}
	conn, err := realtime.ConnectNATS(a.cfg.Realtime.NATSURL, natsClientName, a.component("nats"))
	if err != nil {
		return nil, err
	}
	a.nats = realtime.NewNATSStream(conn, a.cfg.Realtime.Subject, a.component("realtime.nats"))
	return a.nats, nil
}

// Close releases any connection opened by a command.
func (a *Application) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	var errs []error
	if a.nats != nil {
		errs = append(errs, a.nats.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	return errors.Join(errs...)
}

// Migrate applies the embedded schema.
func (a *Application) Migrate(ctx context.Context) error {
	if _, err := a.openStorage(ctx); err != nil {
		return err
	}
	if err := storage.Migrate(ctx, a.db); err != nil {
		return err
	}
	a.component("storage").Info("schema applied")
	return nil
}

func (a *Application) scrapePipeline(ctx context.Context) (*usecase.ScrapePipeline, error) {
	if err := a.cfg.ValidateScrape(); err != nil {
		return nil, misconfigured(err)
	}
	repo, err := a.openStorage(ctx)
	if err != nil {
		return nil, err
	}
	source := parser.NewStrategySource(a.registry, parser.SourceOptions{
		Scanner: a.cfg.Scrape.Scanner,
		Options: a.cfg.Scrape.Options,
	}, a.component("source.scrape"))

	return usecase.NewScrapePipeline(usecase.PipelineDeps{
		Competitors: repo,
		Fetcher:     source,
		Writer:      repo,
		Logger:      a.component("pipeline.scrape"),
	}), nil
}

func (a *Application) detectPipeline(ctx context.Context) (*usecase.DetectPipeline, error) {
	if err := a.cfg.ValidateDetect(); err != nil {
		return nil, misconfigured(err)
	}
	repo, err := a.openStorage(ctx)
	if err != nil {
		return nil, err
	}
	source := parser.NewStrategySource(a.registry, parser.SourceOptions{
		Scanner: a.cfg.Detect.Scanner,
		Window:  time.Duration(a.cfg.Detect.DaysBack) * 24 * time.Hour,
	}, a.component("source.detect"))

	deps := usecase.DetectDeps{
		Competitors: repo,
		Fetcher:     source,
		Detector:    llm.NewChatGPTClient(a.cfg.ChatGPT),
		Signals:     repo,
		Logger:      a.component("pipeline.detect"),
	}
	// Postgres announces inserts through its trigger; NATS needs an explicit publish.
	if a.cfg.Realtime.Driver == driverNATS {
		stream, err := a.natsStream()
		if err != nil {
			return nil, err
		}
		deps.Publisher = stream
	}
	return usecase.NewDetectPipeline(deps), nil
}

// Scrape runs the event pipeline once.
func (a *Application) Scrape(ctx context.Context) (usecase.RunReport, error) {
	p, err := a.scrapePipeline(ctx)
	if err != nil {
		return usecase.RunReport{}, err
	}
	return p.Run(ctx)
}

// Seed inserts the demo events.
func (a *Application) Seed(ctx context.Context) (usecase.SeedReport, error) {
	repo, err := a.openStorage(ctx)
	if err != nil {
		return usecase.SeedReport{}, err
	}
	return usecase.NewSeeder(usecase.PipelineDeps{
		Competitors: repo,
		Writer:      repo,
		Logger:      a.component("seed"),
	}).Seed(ctx)
}

// Detect runs signal detection once.
func (a *Application) Detect(ctx context.Context) (usecase.DetectReport, error) {
	p, err := a.detectPipeline(ctx)
	if err != nil {
		return usecase.DetectReport{}, err
	}
	return p.Run(ctx)
}

func (a *Application) stream(ctx context.Context) (ports.SignalStream, error) {
	switch a.cfg.Realtime.Driver {
	case driverNATS:
		return a.natsStream()
	case driverPostgres, "":
		repo, err := a.openStorage(ctx)
		if err != nil {
			return nil, err
		}
		return realtime.NewPostgresStream(a.cfg.Database.DSN, storage.SignalsChannel, repo, a.component("realtime.postgres")), nil
	default:
		return nil, misconfigured(fmt.Errorf("realtime driver %q: %w", a.cfg.Realtime.Driver, config.ErrMissing))
	}
}

func (a *Application) settingsStore() ports.SettingsStore {
	defaults := a.cfg.Notifications.Defaults
	if a.cfg.Redis.Addr == "" {
		return settingsstore.NewMemoryStore(defaults)
	}
	client := redis.NewClient(&redis.Options{
		Addr:     a.cfg.Redis.Addr,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	})
	return settingsstore.NewRedisStore(client, a.cfg.Redis.SettingsKey, defaults)
}

// surfaces builds the pop-up and badge fan-outs. hub may be nil.
func (a *Application) surfaces(hub *websocket.Hub, counter *notify.Counter) (notify.PopupFanout, notify.BadgeFanout) {
	logSurface := notify.NewLogSurface(a.component("notify.log"))

	popups := notify.PopupFanout{logSurface}
	badges := notify.BadgeFanout{logSurface, counter}
	if hub != nil {
		popups = append(popups, hub)
		badges = append(badges, hub)
	}
	if tg := a.cfg.Notifications.Telegram; tg.Enabled() {
		popups = append(popups, telegram.NewNotifier(tg.BotToken, tg.ChatID))
	}
	return popups, badges
}

func (a *Application) live(stream ports.SignalStream, settings ports.SettingsStore, dispatcher *notify.Dispatcher) *usecase.Live {
	return usecase.NewLive(usecase.LiveDeps{
		Stream:     stream,
		Settings:   settings,
		Dispatcher: dispatcher,
		Defaults:   a.cfg.Notifications.Defaults,
		Logger:     a.component("live"),
	})
}

// Listen runs the live listener alone, rendering alerts to the log and Telegram.
func (a *Application) Listen(ctx context.Context) error {
	stream, err := a.stream(ctx)
	if err != nil {
		return err
	}
	popups, badges := a.surfaces(nil, notify.NewCounter())
	dispatcher := notify.NewDispatcher(notify.DispatcherDeps{
		Popups: popups,
		Badges: badges,
		Logger: a.component("notify"),
	})
	return a.live(stream, a.settingsStore(), dispatcher).Run(ctx)
}

type scrapeFunc func(ctx context.Context) (usecase.RunReport, error)

func (f scrapeFunc) Run(ctx context.Context) (usecase.RunReport, error) { return f(ctx) }

type seedFunc func(ctx context.Context) (usecase.SeedReport, error)

func (f seedFunc) Seed(ctx context.Context) (usecase.SeedReport, error) { return f(ctx) }

// Serve runs the HTTP API, the WebSocket hub, the live listener and the
// scheduler until ctx ends or one of them fails.
func (a *Application) Serve(ctx context.Context) error {
	log := a.component("serve")
	hub := websocket.NewHub(a.component("websocket"))
	counter := notify.NewCounter()
	settings := a.settingsStore()

	popups, badges := a.surfaces(hub, counter)
	dispatcher := notify.NewDispatcher(notify.DispatcherDeps{
		Popups: popups,
		Badges: badges,
		Logger: a.component("notify"),
	})

	deps := httpapi.Deps{
		Scraper:       scrapeFunc(a.Scrape),
		Seeder:        seedFunc(a.Seed),
		Settings:      settings,
		Notifications: dispatcher,
		Badge:         counter,
		WebSocket:     hub.ServeWS,
		Logger:        a.component("http"),
	}
	if repo, err := a.openStorage(ctx); err != nil {
		log.Warn("storage unavailable, signal listing disabled", "error", err)
	} else {
		deps.Signals = repo
	}
	server := httpapi.NewServer(deps)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return hub.Run(gctx) })
	g.Go(func() error { return server.Serve(gctx, a.cfg.HTTP.Addr) })

	if stream, err := a.stream(gctx); err != nil {
		log.Warn("live listener disabled", "error", err)
	} else {
		live := a.live(stream, settings, dispatcher)
		g.Go(func() error { return live.Run(gctx) })
	}

	for _, sched := range a.schedulers(gctx, log) {
		if err := sched.Start(gctx); err != nil {
			return err
		}
		g.Go(func() error {
			<-gctx.Done()
			stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			return sched.Stop(stopCtx)
		})
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// schedulers returns the recurring pipelines enabled by configuration. Detection
// shares the scrape cadence unless it has its own interval.
func (a *Application) schedulers(ctx context.Context, log *slog.Logger) []*usecase.Scheduler {
	if !a.cfg.Scheduler.Enabled {
		return nil
	}
	loc := a.cfg.Scheduler.Location()
	schedLog := a.component("scheduler")

	var main []usecase.Job
	var out []*usecase.Scheduler

	if p, err := a.scrapePipeline(ctx); err != nil {
		log.Warn("scheduled scrape disabled", "error", err)
	} else {
		main = append(main, usecase.ScrapeJob(p))
	}

	if p, err := a.detectPipeline(ctx); err != nil {
		log.Warn("scheduled detection disabled", "error", err)
	} else if a.cfg.Detect.Interval > 0 {
		out = append(out, usecase.NewScheduler(
			scheduler.NewIntervalScheduler(a.cfg.Detect.Interval, loc), schedLog, usecase.DetectJob(p)))
	} else {
		main = append(main, usecase.DetectJob(p))
	}

	if len(main) > 0 {
		out = append(out, usecase.NewScheduler(
			scheduler.NewIntervalScheduler(a.cfg.Scheduler.Interval, loc), schedLog, main...))
	}
	return out
}
