package usecase

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CompetitorInsights/internal/domain"
)

func TestDedupeArticlesByTitlePrefix(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	long := strings.Repeat("x", 50)
	got := DedupeArticles([]domain.RawArticle{
		{Title: "Acme CEO Resigns", URL: "a", PublishedAt: base},
		{Title: "acme ceo resigns", URL: "b", PublishedAt: base.Add(time.Hour)},
		{Title: long + " first", URL: "c", PublishedAt: base.Add(2 * time.Hour)},
		{Title: long + " second", URL: "d", PublishedAt: base.Add(3 * time.Hour)},
		{Title: "Acme raises funding", URL: "e", PublishedAt: base.Add(4 * time.Hour)},
	})

	require.Len(t, got, 3)
	assert.Equal(t, []string{"e", "c", "a"}, []string{got[0].URL, got[1].URL, got[2].URL})
}

func TestDetectPipelineStoresAndPublishes(t *testing.T) {
	t.Parallel()

	ceo := domain.RawArticle{Title: "Acme CEO resigns", Description: "after 5 years", URL: "https://example.com/ceo", PublishedAt: time.Now()}
	fluff := domain.RawArticle{Title: "Acme picnic", URL: "https://example.com/picnic", PublishedAt: time.Now()}

	detector := &fakeDetector{byText: map[string]*domain.Signal{
		ceo.Text(): {Type: domain.SignalLeadership, Impact: domain.LevelHigh, Title: "CEO departed", Confidence: domain.LevelHigh},
	}}
	signals := &fakeSignals{}
	publisher := &fakePublisher{}

	p := NewDetectPipeline(DetectDeps{
		Competitors: &fakeCompetitors{list: []domain.Competitor{{ID: "1", Name: "Acme Corp"}}},
		Fetcher:     &fakeFetcher{articles: map[string][]domain.RawArticle{"Acme Corp": {ceo, fluff}}},
		Detector:    detector,
		Signals:     signals,
		Publisher:   publisher,
	})
	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	report, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Signals)
	assert.Equal(t, 1, report.Rejected)
	assert.Equal(t, 2, report.Articles)

	require.Len(t, signals.stored, 1)
	stored := signals.stored[0]
	assert.Equal(t, "Acme Corp", stored.CompanyName)
	assert.Equal(t, "https://example.com/ceo", stored.SourceURL)
	assert.True(t, stored.IsImportant, "CEO resigns matches the keyword classifier")
	assert.Equal(t, fixed, stored.DetectedAt)

	require.Len(t, publisher.published, 1)
	assert.Equal(t, "1", publisher.published[0].ID)
}

func TestDetectPipelineSkipsStoredArticles(t *testing.T) {
	t.Parallel()

	ceo := domain.RawArticle{Title: "Acme CEO resigns", URL: "https://example.com/ceo", PublishedAt: time.Now()}
	signals := &fakeSignals{}
	publisher := &fakePublisher{}

	p := NewDetectPipeline(DetectDeps{
		Competitors: &fakeCompetitors{list: []domain.Competitor{{ID: "1", Name: "Acme Corp"}}},
		Fetcher:     &fakeFetcher{articles: map[string][]domain.RawArticle{"Acme Corp": {ceo}}},
		Detector: &fakeDetector{byText: map[string]*domain.Signal{
			ceo.Text(): {Type: domain.SignalLeadership, Impact: domain.LevelHigh, Title: "CEO departed"},
		}},
		Signals:   signals,
		Publisher: publisher,
	})

	first, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.Signals)
	assert.Zero(t, first.Duplicate)

	second, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, second.Signals)
	assert.Equal(t, 1, second.Duplicate)
	assert.Zero(t, second.Failed)

	assert.Len(t, signals.stored, 1)
	assert.Len(t, publisher.published, 1, "a stored article must not be alerted again")
}

func TestDetectPipelineIsolation(t *testing.T) {
	t.Parallel()

	a := domain.RawArticle{Title: "Globex acquired", URL: "https://example.com/g"}
	detector := &fakeDetector{
		byText: map[string]*domain.Signal{a.Text(): {Type: domain.SignalAcquisition, Impact: domain.LevelHigh}},
		errs:   map[string]error{"Initech layoffs ": errUpstream},
	}
	signals := &fakeSignals{}

	p := NewDetectPipeline(DetectDeps{
		Competitors: &fakeCompetitors{list: []domain.Competitor{{Name: "Acme"}, {Name: "Globex"}, {Name: "Initech"}}},
		Fetcher: &fakeFetcher{
			errs: map[string]error{"Acme": errUpstream},
			articles: map[string][]domain.RawArticle{
				"Globex":  {a},
				"Initech": {{Title: "Initech layoffs", URL: "https://example.com/i"}},
			},
		},
		Detector: detector,
		Signals:  signals,
	})

	report, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Signals)
	assert.Len(t, detector.texts, 2)
}

func TestDetectPipelineStoreFailureSkipsCompany(t *testing.T) {
	t.Parallel()

	first := domain.RawArticle{Title: "Acme funding round", URL: "https://example.com/1"}
	second := domain.RawArticle{Title: "Acme partners with Initech", URL: "https://example.com/2"}
	detector := &fakeDetector{byText: map[string]*domain.Signal{
		first.Text():  {Type: domain.SignalFunding, Impact: domain.LevelMedium},
		second.Text(): {Type: domain.SignalPartnership, Impact: domain.LevelMedium},
	}}

	p := NewDetectPipeline(DetectDeps{
		Competitors: &fakeCompetitors{list: []domain.Competitor{{Name: "Acme"}}},
		Fetcher:     &fakeFetcher{articles: map[string][]domain.RawArticle{"Acme": {first, second}}},
		Detector:    detector,
		Signals:     &fakeSignals{err: errUpstream},
	})

	report, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, StageWrite, report.Failures[0].Stage)
	assert.Len(t, detector.texts, 1, "second article must not be detected after a store failure")
}

func TestDetectPipelineMisconfigured(t *testing.T) {
	t.Parallel()

	_, err := NewDetectPipeline(DetectDeps{Competitors: &fakeCompetitors{}}).Run(context.Background())
	assert.ErrorIs(t, err, ErrMisconfigured)
}
