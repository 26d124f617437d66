package ports

import (
	"context"
	"time"

	"CompetitorInsights/internal/domain"
	"CompetitorInsights/internal/notify"
)

// CompetitorSource lists the tracked companies.
type CompetitorSource interface {
	ListCompetitors(ctx context.Context) ([]domain.Competitor, error)
}

// ArticleFetcher pulls fresh articles for a single competitor.
type ArticleFetcher interface {
	FetchArticles(ctx context.Context, company domain.Competitor) ([]domain.RawArticle, error)
}

// EventWriter persists events with insert-or-ignore semantics on URL. A
// duplicate returns Inserted=false and a nil error.
type EventWriter interface {
	WriteEvent(ctx context.Context, event domain.Event) (domain.WriteResult, error)
}

// SignalFilter narrows a recent-signals listing.
type SignalFilter struct {
	Company string
	Impact  domain.Level
	Limit   int
}

// SignalRepository stores detected signals and serves the dashboard listing.
// InsertSignal is insert-or-ignore on the source URL: a signal already stored
// for the same article returns Inserted=false and a nil error.
type SignalRepository interface {
	InsertSignal(ctx context.Context, signal domain.Signal) (domain.WriteResult, error)
	RecentSignals(ctx context.Context, filter SignalFilter) ([]domain.Signal, error)
}

// SignalDetector extracts a structured signal from article text. A nil signal
// means nothing actionable was found.
type SignalDetector interface {
	Detect(ctx context.Context, companyName, text string) (*domain.Signal, error)
}

// SignalHandler consumes one delivered signal.
type SignalHandler func(ctx context.Context, signal domain.Signal) error

// SignalStream delivers newly inserted signals, at least once, until ctx ends.
type SignalStream interface {
	Subscribe(ctx context.Context, handler SignalHandler) error
}

// SignalPublisher announces a stored signal on the live stream.
type SignalPublisher interface {
	PublishSignal(ctx context.Context, signal domain.Signal) error
}

// SettingsStore loads and saves notification preferences explicitly.
type SettingsStore interface {
	Load(ctx context.Context) (notify.Settings, error)
	Save(ctx context.Context, settings notify.Settings) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
