package parser

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"CompetitorInsights/internal/domain"
	"CompetitorInsights/internal/scanner"
)

const defaultGoogleNewsEndpoint = "https://news.google.com/rss/search"

// signalTerms narrow the Google News query to business-signal coverage.
var signalTerms = []string{
	"(CEO OR CFO OR CTO)",
	"OR funding OR raised OR Series",
	"OR acquisition OR acquired OR merger",
	"OR layoffs OR restructuring",
	"OR partnership OR partners",
}

// GoogleNewsScanner reads the Google News RSS search feed.
type GoogleNewsScanner struct {
	client     *http.Client
	endpoint   string
	maxEntries int
}

var _ scanner.Scanner = (*GoogleNewsScanner)(nil)

// NewGoogleNewsScanner wires an HTTP client; maxEntries defaults to 20.
func NewGoogleNewsScanner(client *http.Client, endpoint string, maxEntries int) *GoogleNewsScanner {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	if endpoint == "" {
		endpoint = defaultGoogleNewsEndpoint
	}
	if maxEntries <= 0 {
		maxEntries = 20
	}
	return &GoogleNewsScanner{client: client, endpoint: endpoint, maxEntries: maxEntries}
}

// Name identifies the strategy inside the registry.
func (g *GoogleNewsScanner) Name() string {
	return "googlenews"
}

// Scan returns feed entries published at or after req.Since. Entries without
// a parseable date are skipped.
func (g *GoogleNewsScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.RawArticle, error) {
	if strings.TrimSpace(req.Company.Name) == "" {
		return nil, fmt.Errorf("googlenews: company name is empty")
	}

	feedURL, err := g.buildURL(req.Company.Name)
	if err != nil {
		return nil, err
	}

	fp := gofeed.NewParser()
	fp.Client = g.client
	fp.UserAgent = "CompetitorInsights/1.0"

	feed, err := fp.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse google news feed: %w", err)
	}

	items := feed.Items
	if len(items) > g.maxEntries {
		items = items[:g.maxEntries]
	}

	articles := make([]domain.RawArticle, 0, len(items))
	for _, item := range items {
		published := item.PublishedParsed
		if published == nil {
			published = item.UpdatedParsed
		}
		if published == nil {
			continue
		}
		if !req.Since.IsZero() && published.Before(req.Since) {
			continue
		}

		title := strings.TrimSpace(item.Title)
		articles = append(articles, domain.RawArticle{
			Title:       title,
			Description: cleanHTML(item.Description),
			URL:         strings.TrimSpace(item.Link),
			Source:      sourceFromTitle(title),
			PublishedAt: published.UTC(),
		})
	}
	return articles, nil
}

func (g *GoogleNewsScanner) buildURL(company string) (string, error) {
	u, err := url.Parse(g.endpoint)
	if err != nil {
		return "", fmt.Errorf("parse google news endpoint: %w", err)
	}
	terms := append([]string{`"` + company + `"`}, signalTerms...)
	q := u.Query()
	q.Set("q", strings.Join(terms, " "))
	q.Set("hl", "en-US")
	q.Set("gl", "US")
	q.Set("ceid", "US:en")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// cleanHTML returns the visible text of an HTML fragment with whitespace collapsed.
func cleanHTML(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.Join(strings.Fields(fragment), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// sourceFromTitle extracts the publisher from "Headline - Publisher".
func sourceFromTitle(title string) string {
	parts := strings.Split(title, " - ")
	if len(parts) >= 2 {
		return strings.TrimSpace(parts[len(parts)-1])
	}
	return "Unknown"
}
