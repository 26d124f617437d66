// Package httpapi exposes the pipelines and the notification center over HTTP.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"CompetitorInsights/internal/domain"
	"CompetitorInsights/internal/notify"
	"CompetitorInsights/internal/ports"
	"CompetitorInsights/internal/usecase"
)

// Scraper runs the scrape pipeline on demand.
type Scraper interface {
	Run(ctx context.Context) (usecase.RunReport, error)
}

// Seeder inserts demo events.
type Seeder interface {
	Seed(ctx context.Context) (usecase.SeedReport, error)
}

// NotificationCenter is the part of notify.Dispatcher the API drives.
type NotificationCenter interface {
	Preview(ctx context.Context, p domain.Priority, settings notify.Settings) (notify.DispatchResult, error)
	DispatchBatch(ctx context.Context, signals []domain.Signal, settings notify.Settings) (notify.BatchResult, error)
	Dismiss(ctx context.Context, id string) bool
	DismissAll(ctx context.Context) int
	DismissByPriority(ctx context.Context, p domain.Priority) int
	Active() []notify.ActiveNotification
}

// Deps wires the handlers. Nil collaborators answer with a configuration error.
type Deps struct {
	Scraper       Scraper
	Seeder        Seeder
	Signals       ports.SignalRepository
	Settings      ports.SettingsStore
	Notifications NotificationCenter
	Badge         *notify.Counter
	WebSocket     http.HandlerFunc
	Logger        *slog.Logger
}

// Server owns the gin engine.
type Server struct {
	deps   Deps
	engine *gin.Engine
	logger *slog.Logger
}

// NewServer builds the router with every route registered.
func NewServer(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(logger))

	s := &Server{deps: deps, engine: engine, logger: logger}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if s.deps.WebSocket != nil {
		s.engine.GET("/ws", gin.WrapF(s.deps.WebSocket))
	}

	api := s.engine.Group("/api")
	api.GET("/scrape", s.handleScrape)
	api.GET("/seed", s.handleSeed)
	api.GET("/signals", s.handleSignals)
	api.GET("/settings", s.handleGetSettings)
	api.PUT("/settings", s.handlePutSettings)

	notifications := api.Group("/notifications")
	notifications.GET("", s.handleActive)
	notifications.POST("/preview/:priority", s.handlePreview)
	notifications.POST("/replay", s.handleReplay)
	notifications.POST("/dismiss-all", s.handleDismissAll)
	notifications.POST("/:id/dismiss", s.handleDismiss)

	api.GET("/badge", s.handleBadge)
	api.POST("/badge/reset", s.handleBadgeReset)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Serve listens on addr until ctx ends, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
