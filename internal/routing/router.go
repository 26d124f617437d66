// Package routing assigns notification priorities to signals.
package routing

import "CompetitorInsights/internal/domain"

var criticalTypes = map[domain.SignalType]struct{}{
	domain.SignalLeadership:  {},
	domain.SignalAcquisition: {},
	domain.SignalLayoffs:     {},
}

// IsCriticalType reports whether t belongs to the curated pop-up type set.
func IsCriticalType(t domain.SignalType) bool {
	_, ok := criticalTypes[t]
	return ok
}

// Route maps a signal onto a priority. The first matching rule wins:
// critical needs both a critical type and high impact, important takes any
// high or medium impact or the event-level importance flag, the rest is normal.
func Route(s domain.Signal) domain.Priority {
	if IsCriticalType(s.Type) && s.Impact == domain.LevelHigh {
		return domain.PriorityCritical
	}
	if s.Impact == domain.LevelHigh || s.Impact == domain.LevelMedium || s.IsImportant {
		return domain.PriorityImportant
	}
	return domain.PriorityNormal
}
