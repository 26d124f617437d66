package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"CompetitorInsights/internal/domain"
	"CompetitorInsights/internal/routing"
)

const (
	importantStagger = 500 * time.Millisecond
	normalStagger    = 1000 * time.Millisecond

	// maxNormalBeforeSummary is the largest normal group dispatched one by one.
	maxNormalBeforeSummary = 3
)

// BatchResult describes how a batch was split. Important and normal groups are
// dispatched later by timer callbacks.
type BatchResult struct {
	Critical  []DispatchResult `json:"critical"`
	Important int              `json:"important"`
	Normal    int              `json:"normal"`
	Summary   *domain.Signal   `json:"summary,omitempty"`
}

// DispatchBatch routes every signal and dispatches the groups in priority
// order: critical now and in input order, important after 500ms, normal after
// 1000ms. More than three normal signals collapse into one summary.
func (d *Dispatcher) DispatchBatch(ctx context.Context, signals []domain.Signal, settings Settings) (BatchResult, error) {
	var result BatchResult
	if len(signals) == 0 {
		return result, nil
	}

	var critical, important, normal []domain.Signal
	for _, sig := range signals {
		switch routing.Route(sig) {
		case domain.PriorityCritical:
			critical = append(critical, sig)
		case domain.PriorityImportant:
			important = append(important, sig)
		default:
			normal = append(normal, sig)
		}
	}

	var errs []error
	for _, sig := range critical {
		res, err := d.Dispatch(ctx, sig, domain.PriorityCritical, settings)
		if err != nil {
			errs = append(errs, err)
		}
		result.Critical = append(result.Critical, res)
	}

	deferred := context.WithoutCancel(ctx)

	if len(important) > 0 {
		result.Important = len(important)
		d.clock.AfterFunc(importantStagger, func() {
			d.dispatchGroup(deferred, important, domain.PriorityImportant, settings)
		})
	}

	if len(normal) > 0 {
		result.Normal = len(normal)
		group := normal
		if len(normal) > maxNormalBeforeSummary {
			summary := Summarize(normal, d.clock.Now())
			result.Summary = &summary
			group = []domain.Signal{summary}
		}
		d.clock.AfterFunc(normalStagger, func() {
			d.dispatchGroup(deferred, group, domain.PriorityNormal, settings)
		})
	}

	return result, errors.Join(errs...)
}

// Summarize builds the synthetic notification that replaces a large group of
// normal signals. Company names are listed once each, in first-seen order.
func Summarize(signals []domain.Signal, now time.Time) domain.Signal {
	seen := make(map[string]struct{}, len(signals))
	names := make([]string, 0, len(signals))
	for _, s := range signals {
		if _, ok := seen[s.CompanyName]; ok {
			continue
		}
		seen[s.CompanyName] = struct{}{}
		names = append(names, s.CompanyName)
	}

	return domain.Signal{
		Title:      fmt.Sprintf("%d new updates available", len(signals)),
		Action:     "Updates from " + strings.Join(names, ", "),
		Impact:     domain.LevelLow,
		DetectedAt: now,
	}
}

func (d *Dispatcher) dispatchGroup(ctx context.Context, group []domain.Signal, p domain.Priority, settings Settings) {
	for _, sig := range group {
		if _, err := d.Dispatch(ctx, sig, p, settings); err != nil {
			d.logger.WarnContext(ctx, "deferred dispatch failed", "priority", p, "company", sig.CompanyName, "error", err)
		}
	}
}
