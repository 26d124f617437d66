package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"CompetitorInsights/internal/domain"
	"CompetitorInsights/internal/infrastructure/settingsstore"
	"CompetitorInsights/internal/notify"
	"CompetitorInsights/internal/ports"
	"CompetitorInsights/internal/usecase"
)

const (
	msgMissingConfig = "Missing configuration"
	msgScrapeFailed  = "Scraping failed"
	msgNoCompetitors = "No competitors found. Run the migration first."
	maxSignalsLimit  = 500

	defaultReplayLimit = 10
)

func errorJSON(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

func (s *Server) handleScrape(c *gin.Context) {
	if s.deps.Scraper == nil {
		errorJSON(c, http.StatusInternalServerError, msgMissingConfig)
		return
	}

	report, err := s.deps.Scraper.Run(c.Request.Context())
	if err != nil {
		s.logger.Error("scrape request failed", "error", err)
		if errors.Is(err, usecase.ErrMisconfigured) {
			errorJSON(c, http.StatusInternalServerError, msgMissingConfig)
			return
		}
		errorJSON(c, http.StatusInternalServerError, msgScrapeFailed)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":         true,
		"runId":      report.RunID,
		"processed":  report.Processed,
		"inserted":   report.Inserted,
		"duplicates": report.Duplicates,
		"invalid":    report.Invalid,
		"failed":     report.Failed,
		"companies":  report.Companies,
	})
}

func (s *Server) handleSeed(c *gin.Context) {
	if s.deps.Seeder == nil {
		errorJSON(c, http.StatusInternalServerError, msgMissingConfig)
		return
	}

	report, err := s.deps.Seeder.Seed(c.Request.Context())
	switch {
	case errors.Is(err, usecase.ErrNoCompetitors):
		errorJSON(c, http.StatusBadRequest, msgNoCompetitors)
		return
	case errors.Is(err, usecase.ErrMisconfigured):
		errorJSON(c, http.StatusInternalServerError, msgMissingConfig)
		return
	case err != nil:
		s.logger.Error("seed request failed", "error", err)
		errorJSON(c, http.StatusInternalServerError, "Seeding failed: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"message":     "Successfully seeded " + strconv.Itoa(report.Inserted) + " sample events",
		"competitors": report.Competitors,
		"inserted":    report.Inserted,
	})
}

func (s *Server) handleSignals(c *gin.Context) {
	if s.deps.Signals == nil {
		errorJSON(c, http.StatusInternalServerError, msgMissingConfig)
		return
	}

	filter := ports.SignalFilter{Company: c.Query("company")}
	limit, ok := queryLimit(c)
	if !ok {
		return
	}
	filter.Limit = limit
	if raw := c.Query("impact"); raw != "" {
		impact := domain.Level(raw)
		if !impact.Valid() {
			errorJSON(c, http.StatusBadRequest, "impact must be high, medium or low")
			return
		}
		filter.Impact = impact
	}

	signals, err := s.deps.Signals.RecentSignals(c.Request.Context(), filter)
	if err != nil {
		s.logger.Error("list signals failed", "error", err)
		errorJSON(c, http.StatusInternalServerError, "Failed to fetch signals")
		return
	}
	if signals == nil {
		signals = []domain.Signal{}
	}
	c.JSON(http.StatusOK, gin.H{"signals": signals})
}

// queryLimit reads ?limit. Zero means unset; a bad value aborts with 400.
func queryLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 || limit > maxSignalsLimit {
		errorJSON(c, http.StatusBadRequest, "limit must be between 1 and 500")
		return 0, false
	}
	return limit, true
}

// loadSettings falls back to the defaults when no store is wired or it fails.
func (s *Server) loadSettings(c *gin.Context) notify.Settings {
	if s.deps.Settings == nil {
		return notify.DefaultSettings()
	}
	loaded, err := s.deps.Settings.Load(c.Request.Context())
	if err != nil {
		s.logger.Warn("load settings failed, using defaults", "error", err)
		return notify.DefaultSettings()
	}
	return loaded
}

func (s *Server) handleGetSettings(c *gin.Context) {
	if s.deps.Settings == nil {
		errorJSON(c, http.StatusInternalServerError, msgMissingConfig)
		return
	}
	settings, err := s.deps.Settings.Load(c.Request.Context())
	if err != nil {
		s.logger.Error("load settings failed", "error", err)
		errorJSON(c, http.StatusInternalServerError, "Failed to load settings")
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (s *Server) handlePutSettings(c *gin.Context) {
	if s.deps.Settings == nil {
		errorJSON(c, http.StatusInternalServerError, msgMissingConfig)
		return
	}
	var patch notify.Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		errorJSON(c, http.StatusBadRequest, "invalid settings payload")
		return
	}
	settings, err := settingsstore.Update(c.Request.Context(), s.deps.Settings, patch)
	if err != nil {
		s.logger.Error("save settings failed", "error", err)
		errorJSON(c, http.StatusInternalServerError, "Failed to save settings")
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (s *Server) handlePreview(c *gin.Context) {
	if s.deps.Notifications == nil {
		errorJSON(c, http.StatusInternalServerError, msgMissingConfig)
		return
	}
	priority, ok := domain.ParsePriority(c.Param("priority"))
	if !ok {
		errorJSON(c, http.StatusBadRequest, "unknown priority")
		return
	}

	res, err := s.deps.Notifications.Preview(c.Request.Context(), priority, s.loadSettings(c))
	if err != nil {
		s.logger.Error("preview failed", "priority", priority, "error", err)
		errorJSON(c, http.StatusBadGateway, "Notification surface unavailable")
		return
	}
	c.JSON(http.StatusOK, res)
}

// handleReplay pushes the most recent stored signals through the batch
// dispatcher, newest first.
func (s *Server) handleReplay(c *gin.Context) {
	if s.deps.Notifications == nil || s.deps.Signals == nil {
		errorJSON(c, http.StatusInternalServerError, msgMissingConfig)
		return
	}
	limit, ok := queryLimit(c)
	if !ok {
		return
	}
	if limit == 0 {
		limit = defaultReplayLimit
	}

	signals, err := s.deps.Signals.RecentSignals(c.Request.Context(), ports.SignalFilter{
		Company: c.Query("company"),
		Limit:   limit,
	})
	if err != nil {
		s.logger.Error("replay: list signals failed", "error", err)
		errorJSON(c, http.StatusInternalServerError, "Failed to fetch signals")
		return
	}

	res, err := s.deps.Notifications.DispatchBatch(c.Request.Context(), signals, s.loadSettings(c))
	if err != nil {
		s.logger.Error("replay dispatch failed", "signals", len(signals), "error", err)
		errorJSON(c, http.StatusBadGateway, "Notification surface unavailable")
		return
	}
	c.JSON(http.StatusOK, gin.H{"signals": len(signals), "batch": res})
}

func (s *Server) handleDismiss(c *gin.Context) {
	if s.deps.Notifications == nil {
		errorJSON(c, http.StatusInternalServerError, msgMissingConfig)
		return
	}
	dismissed := s.deps.Notifications.Dismiss(c.Request.Context(), c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"dismissed": dismissed})
}

func (s *Server) handleDismissAll(c *gin.Context) {
	if s.deps.Notifications == nil {
		errorJSON(c, http.StatusInternalServerError, msgMissingConfig)
		return
	}
	raw := c.Query("priority")
	if raw == "" {
		c.JSON(http.StatusOK, gin.H{"dismissed": s.deps.Notifications.DismissAll(c.Request.Context())})
		return
	}
	priority, ok := domain.ParsePriority(raw)
	if !ok {
		errorJSON(c, http.StatusBadRequest, "unknown priority")
		return
	}
	c.JSON(http.StatusOK, gin.H{"dismissed": s.deps.Notifications.DismissByPriority(c.Request.Context(), priority)})
}

func (s *Server) handleActive(c *gin.Context) {
	if s.deps.Notifications == nil {
		errorJSON(c, http.StatusInternalServerError, msgMissingConfig)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": s.deps.Notifications.Active()})
}

func (s *Server) handleBadge(c *gin.Context) {
	if s.deps.Badge == nil {
		errorJSON(c, http.StatusInternalServerError, msgMissingConfig)
		return
	}
	c.JSON(http.StatusOK, s.deps.Badge.Snapshot())
}

func (s *Server) handleBadgeReset(c *gin.Context) {
	if s.deps.Badge == nil {
		errorJSON(c, http.StatusInternalServerError, msgMissingConfig)
		return
	}
	s.deps.Badge.Reset()
	c.JSON(http.StatusOK, s.deps.Badge.Snapshot())
}
