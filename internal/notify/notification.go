package notify

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"CompetitorInsights/internal/domain"
)

// ErrInvalidTransition is returned when a command does not apply to the current state.
var ErrInvalidTransition = errors.New("invalid notification transition")

// State is a notification lifecycle stage.
type State int

const (
	StatePending State = iota
	StateShown
	StateDismissed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateShown:
		return "shown"
	case StateDismissed:
		return "dismissed"
	}
	return "unknown"
}

// DismissReason records how a notification left the Shown state.
type DismissReason string

const (
	ReasonNone    DismissReason = ""
	ReasonManual  DismissReason = "manual"
	ReasonTimeout DismissReason = "timeout"
)

// Notification is a single pop-up instance: Pending → Shown → Dismissed.
// It is not safe for concurrent use; the dispatcher serialises access.
type Notification struct {
	ID       string
	Signal   domain.Signal
	Priority domain.Priority
	Duration time.Duration
	State    State
	ShownAt  time.Time
	Reason   DismissReason

	timer Timer
}

// NotificationID derives the surface identifier for a signal. Signals without
// an id fall back to the current timestamp.
func NotificationID(s domain.Signal, now time.Time) string {
	if s.ID != "" {
		return "notification-" + s.ID
	}
	return "notification-" + strconv.FormatInt(now.UnixMilli(), 10)
}

// Persistent reports whether only a manual dismissal can end the notification.
func (n *Notification) Persistent() bool {
	return n.Duration == 0
}

// Show moves a pending notification on screen.
func (n *Notification) Show(now time.Time) error {
	if n.State != StatePending {
		return fmt.Errorf("show %s from %s: %w", n.ID, n.State, ErrInvalidTransition)
	}
	n.State = StateShown
	n.ShownAt = now
	return nil
}

// Dismiss handles a manual dismissal. Repeated calls return false.
func (n *Notification) Dismiss() bool {
	if n.State == StateDismissed {
		return false
	}
	n.State = StateDismissed
	n.Reason = ReasonManual
	n.stopTimer()
	return true
}

// Timeout handles the automatic expiry. Persistent notifications ignore it.
func (n *Notification) Timeout() bool {
	if n.State != StateShown || n.Persistent() {
		return false
	}
	n.State = StateDismissed
	n.Reason = ReasonTimeout
	return true
}

func (n *Notification) stopTimer() {
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
}
