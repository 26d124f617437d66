package classifier

import (
	"strings"
	"testing"

	"CompetitorInsights/internal/domain"
)

func TestClassifyKeywords(t *testing.T) {
	t.Parallel()

	cases := []struct {
		title, description string
		want               bool
	}{
		{"Acme announces layoffs", "500 jobs cut", true},
		{"Globex Inc Acquired by Private Equity Firm", "", true},
		{"Startup closes funding round", "", true},
		{"Initech", "CEO resigns after scandal", true},
		{"Initech CFO resign amid probe", "", true},
		{"Acme partners with TechGiant", "", true},
		{"Acme Partner With Globex", "", true},
		{"Quarterly results", "Acme reacquired its old brand", true},
		{"ACME LAYOFF WAVE", "", true},
		{"Acme Corp Launches New Product Line", "Enterprise suite", false},
		{"Acme Corp Reports Q4 Earnings", "Revenue beat expectations", false},
		{"", "", false},
		{"   ", "\t\n", false},
	}

	for _, tc := range cases {
		if got := Classify(tc.title, tc.description); got != tc.want {
			t.Fatalf("Classify(%q, %q) = %v, want %v", tc.title, tc.description, got, tc.want)
		}
	}
}

func TestClassifyMatchesAcrossJoin(t *testing.T) {
	t.Parallel()

	// The joining space lets a phrase straddle title and description.
	if !Classify("Acme partners", "with Globex") {
		t.Fatal("expected phrase spanning title and description to match")
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	t.Parallel()

	title, desc := "Acme announces layoffs", "500 jobs cut"
	first := Classify(title, desc)
	for i := 0; i < 10; i++ {
		if Classify(title, desc) != first {
			t.Fatal("classification changed between calls")
		}
	}
}

func TestClassifyArticle(t *testing.T) {
	t.Parallel()

	a := domain.RawArticle{Title: "Acme announces layoffs", Description: "500 jobs cut", URL: "https://x/1"}
	if !ClassifyArticle(a) {
		t.Fatal("expected article to be important")
	}
	if !strings.Contains(Keywords(), "layoff") {
		t.Fatalf("unexpected keyword pattern %s", Keywords())
	}
}
