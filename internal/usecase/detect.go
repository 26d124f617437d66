package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"CompetitorInsights/internal/classifier"
	"CompetitorInsights/internal/domain"
	"CompetitorInsights/internal/metrics"
	"CompetitorInsights/internal/ports"
)

// titleKeyLength is how many leading title characters identify a story.
const titleKeyLength = 50

// DetectDeps wires adapters into the detect pipeline. Publisher is optional.
type DetectDeps struct {
	Competitors ports.CompetitorSource
	Fetcher     ports.ArticleFetcher
	Detector    ports.SignalDetector
	Signals     ports.SignalRepository
	Publisher   ports.SignalPublisher
	Logger      *slog.Logger
}

// DetectReport summarises one detection run.
type DetectReport struct {
	RunID     string           `json:"runId"`
	Companies int              `json:"companies"`
	Articles  int              `json:"articles"`
	Unique    int              `json:"unique"`
	Signals   int              `json:"signals"`
	Duplicate int              `json:"duplicates"`
	Rejected  int              `json:"rejected"`
	Failed    int              `json:"failed"`
	Failures  []CompanyFailure `json:"failures,omitempty"`
}

// DetectPipeline turns fetched articles into stored signals.
type DetectPipeline struct {
	competitors ports.CompetitorSource
	fetcher     ports.ArticleFetcher
	detector    ports.SignalDetector
	signals     ports.SignalRepository
	publisher   ports.SignalPublisher
	logger      *slog.Logger
	now         func() time.Time
}

// NewDetectPipeline constructs the detection use case.
func NewDetectPipeline(deps DetectDeps) *DetectPipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &DetectPipeline{
		competitors: deps.Competitors,
		fetcher:     deps.Fetcher,
		detector:    deps.Detector,
		signals:     deps.Signals,
		publisher:   deps.Publisher,
		logger:      logger,
		now:         time.Now,
	}
}

// Run detects signals for every competitor. A detector error only skips the
// article; fetch and store errors skip the rest of the competitor.
func (p *DetectPipeline) Run(ctx context.Context) (DetectReport, error) {
	start := time.Now()
	report := DetectReport{RunID: uuid.NewString()}
	log := p.logger.With("run_id", report.RunID)
	defer func() {
		metrics.RunDuration.WithLabelValues("detect").Observe(time.Since(start).Seconds())
	}()

	if p.competitors == nil || p.fetcher == nil || p.detector == nil || p.signals == nil {
		metrics.ScrapeRuns.WithLabelValues("detect", "misconfigured").Inc()
		return report, fmt.Errorf("detect: %w", ErrMisconfigured)
	}

	companies, err := p.competitors.ListCompetitors(ctx)
	if err != nil {
		metrics.ScrapeRuns.WithLabelValues("detect", "failed").Inc()
		return report, fmt.Errorf("list competitors: %w", err)
	}
	report.Companies = len(companies)

	for _, company := range companies {
		if err := ctx.Err(); err != nil {
			metrics.ScrapeRuns.WithLabelValues("detect", "failed").Inc()
			return report, fmt.Errorf("detect interrupted: %w", err)
		}
		p.processCompany(ctx, log, company, &report)
	}
	report.Failed = len(report.Failures)

	metrics.ScrapeRuns.WithLabelValues("detect", "ok").Inc()
	log.Info("detect finished",
		"companies", report.Companies,
		"articles", report.Articles,
		"signals", report.Signals,
		"duplicates", report.Duplicate,
		"failed", report.Failed,
	)
	return report, nil
}

func (p *DetectPipeline) processCompany(ctx context.Context, log *slog.Logger, company domain.Competitor, report *DetectReport) {
	articles, err := p.fetcher.FetchArticles(ctx, company)
	if err != nil {
		log.Warn("fetch failed, skipping company", "company", company.Name, "error", err)
		metrics.CompanyFailures.WithLabelValues("detect", StageFetch).Inc()
		report.Failures = append(report.Failures, CompanyFailure{Company: company.Name, Stage: StageFetch, Error: err.Error()})
		return
	}
	report.Articles += len(articles)

	unique := DedupeArticles(articles)
	report.Unique += len(unique)

	for _, article := range unique {
		if !article.Valid() {
			continue
		}

		sig, err := p.detector.Detect(ctx, company.Name, article.Text())
		if err != nil {
			log.Warn("detect failed", "company", company.Name, "url", article.URL, "error", err)
			metrics.CompanyFailures.WithLabelValues("detect", StageDetect).Inc()
			continue
		}
		if sig == nil {
			report.Rejected++
			continue
		}

		sig.CompanyName = company.Name
		sig.SourceURL = article.URL
		sig.IsImportant = classifier.ClassifyArticle(article)
		if sig.DetectedAt.IsZero() {
			sig.DetectedAt = p.now().UTC()
		}

		res, err := p.signals.InsertSignal(ctx, *sig)
		if err != nil {
			log.Warn("store signal failed, skipping rest of company", "company", company.Name, "error", err)
			metrics.CompanyFailures.WithLabelValues("detect", StageWrite).Inc()
			report.Failures = append(report.Failures, CompanyFailure{Company: company.Name, Stage: StageWrite, Error: err.Error()})
			return
		}
		if !res.Inserted {
			report.Duplicate++
			log.Debug("signal already stored", "company", company.Name, "url", article.URL)
			continue
		}
		sig.ID = res.ID
		report.Signals++
		log.Info("signal detected", "company", company.Name, "signal_type", sig.Type, "impact", sig.Impact, "id", sig.ID)

		if p.publisher != nil {
			if err := p.publisher.PublishSignal(ctx, *sig); err != nil {
				log.Warn("publish signal failed", "id", sig.ID, "error", err)
			}
		}
	}
}

// DedupeArticles drops articles whose lower-cased first 50 title characters
// were already seen and orders the rest newest first.
func DedupeArticles(articles []domain.RawArticle) []domain.RawArticle {
	seen := make(map[string]struct{}, len(articles))
	unique := make([]domain.RawArticle, 0, len(articles))
	for _, a := range articles {
		key := titleKey(a.Title)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, a)
	}
	sort.SliceStable(unique, func(i, j int) bool {
		return unique[i].PublishedAt.After(unique[j].PublishedAt)
	})
	return unique
}

func titleKey(title string) string {
	runes := []rune(title)
	if len(runes) > titleKeyLength {
		runes = runes[:titleKeyLength]
	}
	return strings.ToLower(string(runes))
}
