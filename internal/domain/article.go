package domain

import (
	"strings"
	"time"
)

// Competitor is a tracked company whose news is scraped on every run.
type Competitor struct {
	ID     string
	Name   string
	Ticker string
}

// RawArticle is an upstream news item before classification.
type RawArticle struct {
	Title       string
	Description string
	URL         string
	Source      string
	PublishedAt time.Time
}

// Valid reports whether the article carries the fields required to become an Event.
func (a RawArticle) Valid() bool {
	return strings.TrimSpace(a.Title) != "" && strings.TrimSpace(a.URL) != ""
}

// Text joins title and description the way the classifier and detector read them.
func (a RawArticle) Text() string {
	return a.Title + " " + a.Description
}

// Event is a persisted news item tied to a competitor. URL is the dedup key.
type Event struct {
	CompetitorID string
	Headline     string
	Summary      string
	URL          string
	PublishedAt  time.Time
	IsImportant  bool
}

// WriteResult tells the caller whether a write created a row or hit an existing
// key. ID is set for inserted rows when the store generates one.
type WriteResult struct {
	Inserted bool
	ID       string
}
