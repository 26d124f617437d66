package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"CompetitorInsights/internal/domain"
	"CompetitorInsights/internal/metrics"
	"CompetitorInsights/internal/ports"
)

// ErrNoCompetitors is returned when seeding finds no tracked companies.
var ErrNoCompetitors = errors.New("no competitors found")

// SeedReport summarises a seeding run.
type SeedReport struct {
	Competitors int `json:"competitors"`
	Inserted    int `json:"inserted"`
}

type sampleEvent struct {
	company     int
	headline    string
	summary     string
	url         string
	age         time.Duration
	isImportant bool
}

var sampleEvents = []sampleEvent{
	{0, "Acme Corp Announces Major Layoffs Affecting 500 Employees",
		"In a cost-cutting measure, Acme Corp has announced significant workforce reductions across multiple departments, affecting approximately 500 employees worldwide.",
		"https://example.com/acme-layoffs", 2 * time.Hour, true},
	{0, "Acme Corp Reports Q4 Earnings Beat Expectations",
		"Acme Corp exceeded Wall Street expectations in Q4, reporting revenue of $2.1B vs expected $1.9B, driven by strong demand in their core products.",
		"https://example.com/acme-earnings", 24 * time.Hour, false},
	{0, "Acme Corp Partners with TechGiant for AI Initiative",
		"Strategic partnership announced to develop next-generation AI solutions, combining Acme Corp's industry expertise with TechGiant's AI capabilities.",
		"https://example.com/acme-partnership", 72 * time.Hour, true},
	{1, "Globex Inc Acquired by Private Equity Firm for $5.2B",
		"Global investment firm announces acquisition of Globex Inc in a deal valued at $5.2 billion, marking one of the largest tech acquisitions this year.",
		"https://example.com/globex-acquisition", 6 * time.Hour, true},
	{1, "Globex Inc Launches New Product Line",
		"Innovation continues at Globex Inc with the launch of their next-generation product suite targeting enterprise customers in the financial services sector.",
		"https://example.com/globex-products", 48 * time.Hour, false},
	{1, "Globex Inc CEO Announces Resignation After 8 Years",
		"Long-time CEO steps down to pursue new opportunities. Board of Directors has initiated search for replacement while CFO takes interim role.",
		"https://example.com/globex-ceo-resignation", 12 * time.Hour, true},
}

// Seeder inserts demo events for the first two competitors.
type Seeder struct {
	competitors ports.CompetitorSource
	writer      ports.EventWriter
	logger      *slog.Logger
	now         func() time.Time
}

// NewSeeder wires the seeder; it reuses the scrape pipeline collaborators.
func NewSeeder(deps PipelineDeps) *Seeder {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{competitors: deps.Competitors, writer: deps.Writer, logger: logger, now: time.Now}
}

// Seed writes the sample events. Duplicates are ignored; other write errors
// are logged and the remaining samples are still attempted. With a single
// competitor every sample is attached to it.
func (s *Seeder) Seed(ctx context.Context) (SeedReport, error) {
	var report SeedReport
	if s.competitors == nil || s.writer == nil {
		metrics.ScrapeRuns.WithLabelValues("seed", "misconfigured").Inc()
		return report, fmt.Errorf("seed: %w", ErrMisconfigured)
	}

	companies, err := s.competitors.ListCompetitors(ctx)
	if err != nil {
		metrics.ScrapeRuns.WithLabelValues("seed", "failed").Inc()
		return report, fmt.Errorf("list competitors: %w", err)
	}
	if len(companies) == 0 {
		metrics.ScrapeRuns.WithLabelValues("seed", "failed").Inc()
		return report, ErrNoCompetitors
	}
	report.Competitors = len(companies)

	now := s.now()
	for _, sample := range sampleEvents {
		company := companies[sample.company%len(companies)]
		res, err := s.writer.WriteEvent(ctx, domain.Event{
			CompetitorID: company.ID,
			Headline:     sample.headline,
			Summary:      sample.summary,
			URL:          sample.url,
			PublishedAt:  now.Add(-sample.age),
			IsImportant:  sample.isImportant,
		})
		if err != nil {
			s.logger.Warn("insert sample event", "url", sample.url, "error", err)
			continue
		}
		if res.Inserted {
			report.Inserted++
		}
	}

	metrics.ScrapeRuns.WithLabelValues("seed", "ok").Inc()
	s.logger.Info("seed finished", "competitors", report.Competitors, "inserted", report.Inserted)
	return report, nil
}
