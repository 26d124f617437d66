package domain

import "time"

// SignalType enumerates the business signal categories produced by detection.
type SignalType string

const (
	SignalLeadership  SignalType = "leadership"
	SignalFunding     SignalType = "funding"
	SignalAcquisition SignalType = "acquisition"
	SignalLayoffs     SignalType = "layoffs"
	SignalExpansion   SignalType = "expansion"
	SignalPartnership SignalType = "partnership"
	SignalNone        SignalType = "none"
)

// SignalTypes lists every known type with the guidance shown to the detector.
var SignalTypes = []struct {
	Type        SignalType
	Description string
}{
	{SignalLeadership, "CEO/CFO/CTO departure or arrival → high churn risk, needs exec engagement"},
	{SignalFunding, "Series A/B/C or funding round → expansion opportunity, budget available"},
	{SignalAcquisition, "Company acquired or merged → vendor consolidation risk"},
	{SignalLayoffs, "Staff reduction or restructuring → budget concerns, project delays"},
	{SignalExpansion, "New market/product/geography → opportunity for additional services"},
	{SignalPartnership, "Strategic partnership announced → potential displacement or integration opportunity"},
	{SignalNone, "No actionable signal detected"},
}

// Level is shared by impact and confidence ratings.
type Level string

const (
	LevelHigh   Level = "high"
	LevelMedium Level = "medium"
	LevelLow    Level = "low"
)

// Valid reports whether l is one of high, medium or low.
func (l Level) Valid() bool {
	switch l {
	case LevelHigh, LevelMedium, LevelLow:
		return true
	}
	return false
}

// Signal is a classified competitive-intelligence item. Never mutated once stored.
type Signal struct {
	ID          string     `json:"id,omitempty"`
	CompanyName string     `json:"company_name"`
	Type        SignalType `json:"signal_type"`
	Title       string     `json:"title"`
	Impact      Level      `json:"impact"`
	Confidence  Level      `json:"confidence,omitempty"`
	Action      string     `json:"action"`
	Person      string     `json:"person,omitempty"`
	Amount      string     `json:"amount,omitempty"`
	SourceURL   string     `json:"source_url,omitempty"`
	DetectedAt  time.Time  `json:"detected_at"`
	IsImportant bool       `json:"is_important"`
}

// Priority governs how intrusive a notification is.
type Priority string

const (
	PriorityCritical  Priority = "critical"
	PriorityImportant Priority = "important"
	PriorityNormal    Priority = "normal"
)

// ParsePriority maps a user-supplied string onto a Priority.
func ParsePriority(s string) (Priority, bool) {
	switch p := Priority(s); p {
	case PriorityCritical, PriorityImportant, PriorityNormal:
		return p, true
	}
	return "", false
}
