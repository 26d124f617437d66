package parser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"CompetitorInsights/internal/domain"
	"CompetitorInsights/internal/ports"
	"CompetitorInsights/internal/scanner"
)

// StrategySource implements ArticleFetcher via one registered scanner strategy.
type StrategySource struct {
	registry *scanner.Registry
	name     string
	options  map[string]string
	window   time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

var _ ports.ArticleFetcher = (*StrategySource)(nil)

// SourceOptions selects the strategy and how far back it looks. A zero Window
// disables the cutoff.
type SourceOptions struct {
	Scanner string
	Options map[string]string
	Window  time.Duration
}

// NewStrategySource wires the scanner registry with the configured strategy.
func NewStrategySource(reg *scanner.Registry, opts SourceOptions, log *slog.Logger) *StrategySource {
	return &StrategySource{
		registry: reg,
		name:     opts.Scanner,
		options:  opts.Options,
		window:   opts.Window,
		now:      time.Now,
		logger:   log,
	}
}

// FetchArticles resolves the strategy and scans it for one competitor.
func (s *StrategySource) FetchArticles(ctx context.Context, company domain.Competitor) ([]domain.RawArticle, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}

	strategy, err := s.registry.Resolve(s.name)
	if err != nil {
		return nil, fmt.Errorf("company %s: %w", company.Name, err)
	}

	req := scanner.Request{Company: company, Options: s.options}
	if s.window > 0 {
		req.Since = s.now().Add(-s.window)
	}

	s.debug("scan company", "company", company.Name, "scanner", s.name)
	results, err := strategy.Scan(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("scan company %s: %w", company.Name, err)
	}

	for i := range results {
		if results[i].Source == "" {
			results[i].Source = s.name
		}
	}
	s.debug("company produced articles", "company", company.Name, "count", len(results))
	return results, nil
}

func (s *StrategySource) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
