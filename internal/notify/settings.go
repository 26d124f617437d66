package notify

import (
	"time"

	"CompetitorInsights/internal/domain"
)

const (
	criticalDuration  = 8 * time.Second
	importantDuration = 6 * time.Second
	normalDuration    = 4 * time.Second
)

// Settings holds per-user notification preferences. It is passed to the
// dispatcher on every call; persistence lives behind ports.SettingsStore.
type Settings struct {
	EnableCritical  bool `json:"enableCritical" yaml:"enableCritical"`
	EnableImportant bool `json:"enableImportant" yaml:"enableImportant"`
	EnableNormal    bool `json:"enableNormal" yaml:"enableNormal"`
	SoundEnabled    bool `json:"soundEnabled" yaml:"soundEnabled"`
	PersistCritical bool `json:"persistCritical" yaml:"persistCritical"`
}

// DefaultSettings enables everything and keeps critical pop-ups on screen.
func DefaultSettings() Settings {
	return Settings{
		EnableCritical:  true,
		EnableImportant: true,
		EnableNormal:    true,
		SoundEnabled:    true,
		PersistCritical: true,
	}
}

// Patch is a partial settings update; nil fields keep their current value.
type Patch struct {
	EnableCritical  *bool `json:"enableCritical,omitempty"`
	EnableImportant *bool `json:"enableImportant,omitempty"`
	EnableNormal    *bool `json:"enableNormal,omitempty"`
	SoundEnabled    *bool `json:"soundEnabled,omitempty"`
	PersistCritical *bool `json:"persistCritical,omitempty"`
}

// Apply returns s with every non-nil field of p written over it.
func (s Settings) Apply(p Patch) Settings {
	set := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	set(&s.EnableCritical, p.EnableCritical)
	set(&s.EnableImportant, p.EnableImportant)
	set(&s.EnableNormal, p.EnableNormal)
	set(&s.SoundEnabled, p.SoundEnabled)
	set(&s.PersistCritical, p.PersistCritical)
	return s
}

// Enabled reports whether dispatch should proceed for priority p.
func (s Settings) Enabled(p domain.Priority) bool {
	switch p {
	case domain.PriorityCritical:
		return s.EnableCritical
	case domain.PriorityImportant:
		return s.EnableImportant
	case domain.PriorityNormal:
		return s.EnableNormal
	}
	return false
}

// Duration is how long a notification of priority p stays up. Zero means
// it never auto-dismisses.
func (s Settings) Duration(p domain.Priority) time.Duration {
	switch p {
	case domain.PriorityCritical:
		if s.PersistCritical {
			return 0
		}
		return criticalDuration
	case domain.PriorityImportant:
		return importantDuration
	case domain.PriorityNormal:
		return normalDuration
	}
	return 0
}
