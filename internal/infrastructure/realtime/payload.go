// Package realtime delivers newly stored signals to the live listener.
package realtime

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"CompetitorInsights/internal/domain"
	"CompetitorInsights/internal/metrics"
	"CompetitorInsights/internal/ports"
)

var (
	// ErrEmptyPayload is returned for notifications without a body.
	ErrEmptyPayload = errors.New("empty signal payload")
	// ErrMissingID is returned when a payload must be re-read but carries no id.
	ErrMissingID = errors.New("signal payload without id")
)

// resolveFunc turns a decoded payload into the full stored signal.
type resolveFunc func(ctx context.Context, sig domain.Signal) (domain.Signal, error)

// signalRow matches a full signals row as JSON as well as the JSON
// encoding of domain.Signal. Postgres sends numeric ids, NATS sends strings.
type signalRow struct {
	ID          json.RawMessage `json:"id"`
	CompanyName string          `json:"company_name"`
	SignalType  string          `json:"signal_type"`
	Title       string          `json:"title"`
	Impact      string          `json:"impact"`
	Confidence  string          `json:"confidence"`
	Action      string          `json:"action"`
	Person      string          `json:"person"`
	Amount      string          `json:"amount"`
	SourceURL   string          `json:"source_url"`
	DetectedAt  time.Time       `json:"detected_at"`
	IsImportant bool            `json:"is_important"`
}

// DecodeSignal parses a live-update payload.
func DecodeSignal(payload []byte) (domain.Signal, error) {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 {
		return domain.Signal{}, ErrEmptyPayload
	}

	var row signalRow
	if err := json.Unmarshal(payload, &row); err != nil {
		return domain.Signal{}, fmt.Errorf("decode signal payload: %w", err)
	}

	return domain.Signal{
		ID:          rawID(row.ID),
		CompanyName: row.CompanyName,
		Type:        domain.SignalType(row.SignalType),
		Title:       row.Title,
		Impact:      domain.Level(row.Impact),
		Confidence:  domain.Level(row.Confidence),
		Action:      row.Action,
		Person:      row.Person,
		Amount:      row.Amount,
		SourceURL:   row.SourceURL,
		DetectedAt:  row.DetectedAt,
		IsImportant: row.IsImportant,
	}, nil
}

func rawID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

// deliver decodes one payload, resolves it when resolve is set, and hands it
// to handler. Failures are logged and counted; they never end the subscription.
func deliver(ctx context.Context, handler ports.SignalHandler, payload []byte, resolve resolveFunc, logger *slog.Logger, driver string) {
	sig, err := DecodeSignal(payload)
	if err != nil {
		metrics.LiveSignals.WithLabelValues(driver, "invalid").Inc()
		logger.WarnContext(ctx, "drop live payload", "driver", driver, "error", err)
		return
	}
	if resolve != nil {
		id := sig.ID
		sig, err = resolve(ctx, sig)
		switch {
		case errors.Is(err, ErrMissingID):
			metrics.LiveSignals.WithLabelValues(driver, "invalid").Inc()
			logger.WarnContext(ctx, "drop live payload", "driver", driver, "error", err)
			return
		case err != nil:
			metrics.LiveSignals.WithLabelValues(driver, "missing").Inc()
			logger.WarnContext(ctx, "load live signal failed", "driver", driver, "signal_id", id, "error", err)
			return
		}
	}
	if err := handler(ctx, sig); err != nil {
		metrics.LiveSignals.WithLabelValues(driver, "error").Inc()
		logger.WarnContext(ctx, "live signal handler failed", "driver", driver, "signal_id", sig.ID, "error", err)
		return
	}
	metrics.LiveSignals.WithLabelValues(driver, "delivered").Inc()
}
