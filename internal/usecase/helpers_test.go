package usecase

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"CompetitorInsights/internal/domain"
	"CompetitorInsights/internal/notify"
	"CompetitorInsights/internal/ports"
)

type fakeCompetitors struct {
	list []domain.Competitor
	err  error
}

func (f *fakeCompetitors) ListCompetitors(context.Context) ([]domain.Competitor, error) {
	return f.list, f.err
}

type fakeFetcher struct {
	articles map[string][]domain.RawArticle
	errs     map[string]error
	calls    []string
}

func (f *fakeFetcher) FetchArticles(_ context.Context, c domain.Competitor) ([]domain.RawArticle, error) {
	f.calls = append(f.calls, c.Name)
	if err := f.errs[c.Name]; err != nil {
		return nil, err
	}
	return f.articles[c.Name], nil
}

// fakeWriter treats every URL as unique once; failOn URLs return an error.
type fakeWriter struct {
	mu     sync.Mutex
	seen   map[string]bool
	events []domain.Event
	failOn map[string]error
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{seen: map[string]bool{}, failOn: map[string]error{}}
}

func (f *fakeWriter) WriteEvent(_ context.Context, e domain.Event) (domain.WriteResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failOn[e.URL]; err != nil {
		return domain.WriteResult{}, err
	}
	f.events = append(f.events, e)
	if f.seen[e.URL] {
		return domain.WriteResult{Inserted: false}, nil
	}
	f.seen[e.URL] = true
	return domain.WriteResult{Inserted: true}, nil
}

type fakeDetector struct {
	byText map[string]*domain.Signal
	errs   map[string]error
	texts  []string
}

func (f *fakeDetector) Detect(_ context.Context, _ string, text string) (*domain.Signal, error) {
	f.texts = append(f.texts, text)
	if err := f.errs[text]; err != nil {
		return nil, err
	}
	sig, ok := f.byText[text]
	if !ok || sig == nil {
		return nil, nil
	}
	cp := *sig
	return &cp, nil
}

// fakeSignals is insert-or-ignore on SourceURL, like the signals table.
type fakeSignals struct {
	stored []domain.Signal
	err    error
}

func (f *fakeSignals) InsertSignal(_ context.Context, s domain.Signal) (domain.WriteResult, error) {
	if f.err != nil {
		return domain.WriteResult{}, f.err
	}
	for _, existing := range f.stored {
		if s.SourceURL != "" && existing.SourceURL == s.SourceURL {
			return domain.WriteResult{Inserted: false}, nil
		}
	}
	f.stored = append(f.stored, s)
	return domain.WriteResult{Inserted: true, ID: strconv.Itoa(len(f.stored))}, nil
}

func (f *fakeSignals) RecentSignals(context.Context, ports.SignalFilter) ([]domain.Signal, error) {
	return f.stored, nil
}

type fakePublisher struct {
	published []domain.Signal
	err       error
}

func (f *fakePublisher) PublishSignal(_ context.Context, s domain.Signal) error {
	f.published = append(f.published, s)
	return f.err
}

type fakeStream struct {
	signals []domain.Signal
	errs    []error
}

func (f *fakeStream) Subscribe(ctx context.Context, handler ports.SignalHandler) error {
	for _, s := range f.signals {
		f.errs = append(f.errs, handler(ctx, s))
	}
	return nil
}

type dispatchCall struct {
	signal   domain.Signal
	priority domain.Priority
	settings notify.Settings
}

type fakeDispatcher struct {
	calls []dispatchCall
	err   error
}

func (f *fakeDispatcher) Dispatch(_ context.Context, sig domain.Signal, p domain.Priority, s notify.Settings) (notify.DispatchResult, error) {
	f.calls = append(f.calls, dispatchCall{signal: sig, priority: p, settings: s})
	return notify.DispatchResult{ID: "notification-" + sig.ID, Shown: p == domain.PriorityCritical}, f.err
}

type fakeSettings struct {
	settings notify.Settings
	err      error
}

func (f *fakeSettings) Load(context.Context) (notify.Settings, error) { return f.settings, f.err }

func (f *fakeSettings) Save(_ context.Context, s notify.Settings) error {
	f.settings = s
	return nil
}

var errUpstream = errors.New("upstream unavailable")
