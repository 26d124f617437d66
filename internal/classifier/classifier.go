// Package classifier flags high-signal corporate news with a fixed keyword pattern.
//
// Matching is substring based, so "reacquired" matches "acquired". Precision
// improvements belong in a separate scorer, not in this pattern.
package classifier

import (
	"regexp"
	"strings"

	"CompetitorInsights/internal/domain"
)

const pattern = `(?i)(layoff|acquired|funding|CEO resigns?|CFO resigns?|partners? with)`

var importantExpr = regexp.MustCompile(pattern)

// Classify reports whether title plus description mentions any important keyword.
func Classify(title, description string) bool {
	text := title + " " + description
	if strings.TrimSpace(text) == "" {
		return false
	}
	return importantExpr.MatchString(text)
}

// ClassifyArticle applies Classify to a raw article.
func ClassifyArticle(a domain.RawArticle) bool {
	return Classify(a.Title, a.Description)
}

// Keywords returns the pattern source for diagnostics.
func Keywords() string {
	return pattern
}
