package notify

import (
	"testing"
	"time"

	"CompetitorInsights/internal/domain"
)

func TestDefaultSettings(t *testing.T) {
	t.Parallel()

	s := DefaultSettings()
	for _, p := range []domain.Priority{domain.PriorityCritical, domain.PriorityImportant, domain.PriorityNormal} {
		if !s.Enabled(p) {
			t.Fatalf("expected %s enabled by default", p)
		}
	}
	if !s.SoundEnabled || !s.PersistCritical {
		t.Fatalf("unexpected defaults %+v", s)
	}
}

func TestSettingsDuration(t *testing.T) {
	t.Parallel()

	s := DefaultSettings()
	if d := s.Duration(domain.PriorityCritical); d != 0 {
		t.Fatalf("persistent critical should have zero duration, got %v", d)
	}

	s.PersistCritical = false
	cases := map[domain.Priority]time.Duration{
		domain.PriorityCritical:  8000 * time.Millisecond,
		domain.PriorityImportant: 6000 * time.Millisecond,
		domain.PriorityNormal:    4000 * time.Millisecond,
		domain.Priority("bogus"): 0,
	}
	for p, want := range cases {
		if got := s.Duration(p); got != want {
			t.Fatalf("Duration(%s) = %v, want %v", p, got, want)
		}
	}
	if s.Enabled(domain.Priority("bogus")) {
		t.Fatal("unknown priority must not be enabled")
	}
}

func TestSettingsApply(t *testing.T) {
	t.Parallel()

	off := false
	s := DefaultSettings().Apply(Patch{EnableCritical: &off, SoundEnabled: &off})
	if s.EnableCritical || s.SoundEnabled {
		t.Fatalf("patch not applied: %+v", s)
	}
	if !s.EnableImportant || !s.EnableNormal || !s.PersistCritical {
		t.Fatalf("untouched fields changed: %+v", s)
	}

	on := true
	s = s.Apply(Patch{EnableCritical: &on})
	if !s.EnableCritical {
		t.Fatal("last write should win")
	}
}
