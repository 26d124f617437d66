// Package metrics holds the Prometheus collectors shared by pipelines and notifications.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "competitor_insights"

var (
	// ScrapeRuns counts pipeline executions by kind (scrape, detect, seed) and status.
	ScrapeRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total pipeline runs",
		},
		[]string{"kind", "status"}, // status: ok, misconfigured, failed
	)

	// Articles counts article outcomes: inserted, duplicate, invalid, failed.
	Articles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_total",
			Help:      "Articles handled by the scrape pipeline by outcome",
		},
		[]string{"outcome"},
	)

	// CompanyFailures counts competitors skipped because an upstream call failed.
	CompanyFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "company_failures_total",
			Help:      "Competitors skipped after fetch or write failures",
		},
		[]string{"kind", "stage"}, // stage: fetch, write, detect
	)

	// Notifications counts dispatch decisions per priority and outcome.
	Notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification dispatch decisions",
		},
		[]string{"priority", "outcome"}, // outcome: popup, badge, disabled, error
	)

	// LiveSignals counts payloads received from the push stream.
	LiveSignals = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "live_signals_total",
			Help:      "Payloads received from the live-update stream",
		},
		[]string{"driver", "outcome"}, // outcome: delivered, invalid, missing, error
	)

	// RunDuration observes pipeline wall time.
	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of pipeline runs in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		},
		[]string{"kind"},
	)
)
