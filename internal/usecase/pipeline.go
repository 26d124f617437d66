// Package usecase orchestrates the scrape, seed, detect and live-notification flows.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"CompetitorInsights/internal/classifier"
	"CompetitorInsights/internal/domain"
	"CompetitorInsights/internal/metrics"
	"CompetitorInsights/internal/ports"
)

// ErrMisconfigured is returned when a run lacks a required collaborator or setting.
var ErrMisconfigured = errors.New("pipeline misconfigured")

// Failure stages recorded in run reports.
const (
	StageFetch  = "fetch"
	StageWrite  = "write"
	StageDetect = "detect"
)

// PipelineDeps wires all driven adapters into the scrape pipeline.
type PipelineDeps struct {
	Competitors ports.CompetitorSource
	Fetcher     ports.ArticleFetcher
	Writer      ports.EventWriter
	Logger      *slog.Logger
}

// CompanyFailure records why a competitor was skipped during a run.
type CompanyFailure struct {
	Company string `json:"company"`
	Stage   string `json:"stage"`
	Error   string `json:"error"`
}

// RunReport summarises one scrape run.
type RunReport struct {
	RunID      string           `json:"runId"`
	Companies  int              `json:"companies"`
	Processed  int              `json:"processed"`
	Inserted   int              `json:"inserted"`
	Duplicates int              `json:"duplicates"`
	Invalid    int              `json:"invalid"`
	Failed     int              `json:"failed"`
	Failures   []CompanyFailure `json:"failures,omitempty"`
}

func (r *RunReport) fail(company, stage string, err error) {
	r.Failures = append(r.Failures, CompanyFailure{Company: company, Stage: stage, Error: err.Error()})
	r.Failed = len(r.Failures)
}

// ScrapePipeline fetches news for every competitor, flags important articles
// and stores them as events.
type ScrapePipeline struct {
	competitors ports.CompetitorSource
	fetcher     ports.ArticleFetcher
	writer      ports.EventWriter
	logger      *slog.Logger
}

// NewScrapePipeline constructs the orchestration component.
func NewScrapePipeline(deps PipelineDeps) *ScrapePipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ScrapePipeline{
		competitors: deps.Competitors,
		fetcher:     deps.Fetcher,
		writer:      deps.Writer,
		logger:      logger,
	}
}

// Run processes competitors sequentially. An upstream failure skips the
// affected competitor and the run continues with the next one.
func (p *ScrapePipeline) Run(ctx context.Context) (RunReport, error) {
	start := time.Now()
	report := RunReport{RunID: uuid.NewString()}
	log := p.logger.With("run_id", report.RunID)
	defer func() {
		metrics.RunDuration.WithLabelValues("scrape").Observe(time.Since(start).Seconds())
	}()

	if p.competitors == nil || p.fetcher == nil || p.writer == nil {
		metrics.ScrapeRuns.WithLabelValues("scrape", "misconfigured").Inc()
		return report, fmt.Errorf("scrape: %w", ErrMisconfigured)
	}

	companies, err := p.competitors.ListCompetitors(ctx)
	if err != nil {
		metrics.ScrapeRuns.WithLabelValues("scrape", "failed").Inc()
		return report, fmt.Errorf("list competitors: %w", err)
	}
	report.Companies = len(companies)
	log.Info("scrape started", "companies", len(companies))

	for _, company := range companies {
		if err := ctx.Err(); err != nil {
			metrics.ScrapeRuns.WithLabelValues("scrape", "failed").Inc()
			return report, fmt.Errorf("scrape interrupted: %w", err)
		}
		p.processCompany(ctx, log, company, &report)
	}

	metrics.ScrapeRuns.WithLabelValues("scrape", "ok").Inc()
	log.Info("scrape finished",
		"processed", report.Processed,
		"inserted", report.Inserted,
		"duplicates", report.Duplicates,
		"invalid", report.Invalid,
		"failed", report.Failed,
	)
	return report, nil
}

func (p *ScrapePipeline) processCompany(ctx context.Context, log *slog.Logger, company domain.Competitor, report *RunReport) {
	articles, err := p.fetcher.FetchArticles(ctx, company)
	if err != nil {
		log.Warn("fetch failed, skipping company", "company", company.Name, "error", err)
		metrics.CompanyFailures.WithLabelValues("scrape", StageFetch).Inc()
		report.fail(company.Name, StageFetch, err)
		return
	}
	report.Processed += len(articles)

	for _, article := range articles {
		if !article.Valid() {
			report.Invalid++
			metrics.Articles.WithLabelValues("invalid").Inc()
			continue
		}

		event := eventFromArticle(company, article)
		res, err := p.writer.WriteEvent(ctx, event)
		if err != nil {
			log.Warn("write failed, skipping rest of company", "company", company.Name, "url", event.URL, "error", err)
			metrics.Articles.WithLabelValues("failed").Inc()
			metrics.CompanyFailures.WithLabelValues("scrape", StageWrite).Inc()
			report.fail(company.Name, StageWrite, err)
			return
		}
		if res.Inserted {
			report.Inserted++
			metrics.Articles.WithLabelValues("inserted").Inc()
		} else {
			report.Duplicates++
			metrics.Articles.WithLabelValues("duplicate").Inc()
		}
	}
}

func eventFromArticle(company domain.Competitor, article domain.RawArticle) domain.Event {
	return domain.Event{
		CompetitorID: company.ID,
		Headline:     strings.TrimSpace(article.Title),
		Summary:      strings.TrimSpace(article.Description),
		URL:          strings.TrimSpace(article.URL),
		PublishedAt:  article.PublishedAt,
		IsImportant:  classifier.ClassifyArticle(article),
	}
}
