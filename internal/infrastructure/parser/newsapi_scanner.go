package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/time/rate"

	"CompetitorInsights/internal/domain"
	"CompetitorInsights/internal/scanner"
)

const defaultNewsAPIEndpoint = "https://newsapi.org/v2/everything"

// NewsAPIOptions configures a NewsAPIScanner.
type NewsAPIOptions struct {
	Endpoint          string
	APIKey            string
	PageSize          int
	RequestsPerSecond float64
	Client            *http.Client
}

// NewsAPIScanner queries newsapi.org for the latest articles mentioning a company.
type NewsAPIScanner struct {
	client   *http.Client
	endpoint string
	apiKey   string
	pageSize int
	limiter  *rate.Limiter
	policy   *bluemonday.Policy
}

var _ scanner.Scanner = (*NewsAPIScanner)(nil)

// NewNewsAPIScanner wires an HTTP client; pageSize defaults to 20.
func NewNewsAPIScanner(opts NewsAPIOptions) *NewsAPIScanner {
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = defaultNewsAPIEndpoint
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	return &NewsAPIScanner{
		client:   client,
		endpoint: endpoint,
		apiKey:   opts.APIKey,
		pageSize: pageSize,
		limiter:  rate.NewLimiter(limit, 1),
		policy:   bluemonday.StrictPolicy(),
	}
}

// Name identifies the strategy inside the registry.
func (n *NewsAPIScanner) Name() string {
	return "newsapi"
}

type newsAPIResponse struct {
	Status   string           `json:"status"`
	Code     string           `json:"code"`
	Message  string           `json:"message"`
	Articles []newsAPIArticle `json:"articles"`
}

type newsAPIArticle struct {
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
}

// Scan fetches the newest page of articles whose text contains the exact company name.
func (n *NewsAPIScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.RawArticle, error) {
	if strings.TrimSpace(req.Company.Name) == "" {
		return nil, fmt.Errorf("newsapi: company name is empty")
	}
	if err := n.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("newsapi rate limit: %w", err)
	}

	pageURL, err := n.buildURL(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("User-Agent", "CompetitorInsights/1.0")

	resp, err := n.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request newsapi: %w", err)
	}
	defer resp.Body.Close()

	var payload newsAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode newsapi response (%s): %w", resp.Status, err)
	}
	if resp.StatusCode != http.StatusOK || payload.Status == "error" {
		return nil, fmt.Errorf("newsapi returned %s: %s %s", resp.Status, payload.Code, payload.Message)
	}

	articles := make([]domain.RawArticle, 0, len(payload.Articles))
	for _, item := range payload.Articles {
		article := domain.RawArticle{
			Title:       strings.TrimSpace(item.Title),
			Description: n.plainText(item.Description),
			URL:         strings.TrimSpace(item.URL),
			Source:      item.Source.Name,
		}
		if ts, err := time.Parse(time.RFC3339, item.PublishedAt); err == nil {
			article.PublishedAt = ts.UTC()
		}
		if !req.Since.IsZero() && !article.PublishedAt.IsZero() && article.PublishedAt.Before(req.Since) {
			continue
		}
		articles = append(articles, article)
	}
	return articles, nil
}

func (n *NewsAPIScanner) buildURL(req scanner.Request) (string, error) {
	u, err := url.Parse(n.endpoint)
	if err != nil {
		return "", fmt.Errorf("parse newsapi endpoint: %w", err)
	}
	q := u.Query()
	q.Set("q", strconv.Quote(req.Company.Name))
	q.Set("pageSize", strconv.Itoa(n.pageSize))
	q.Set("sortBy", "publishedAt")
	q.Set("apiKey", n.apiKey)
	if lang := req.Options["language"]; lang != "" {
		q.Set("language", lang)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// plainText strips markup that some publishers leave in descriptions.
func (n *NewsAPIScanner) plainText(raw string) string {
	if raw == "" {
		return ""
	}
	text := html.UnescapeString(n.policy.Sanitize(raw))
	return strings.Join(strings.Fields(text), " ")
}
