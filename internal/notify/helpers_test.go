package notify

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

type manualClock struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers []*manualTimer
}

type manualTimer struct {
	clock   *manualClock
	at      time.Time
	seq     int
	f       func()
	stopped bool
	fired   bool
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2025, time.November, 8, 12, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	t := &manualTimer{clock: c, at: c.now.Add(d), seq: c.seq, f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward and runs every due callback in schedule order.
func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*manualTimer
	for _, t := range c.timers {
		if !t.fired && !t.stopped && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool {
		if due[i].at.Equal(due[j].at) {
			return due[i].seq < due[j].seq
		}
		return due[i].at.Before(due[j].at)
	})
	for _, t := range due {
		t.f()
	}
}

func (c *manualClock) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.fired && !t.stopped {
			n++
		}
	}
	return n
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

type recordingPopups struct {
	mu     sync.Mutex
	shown  []RenderRequest
	hidden []string
	err    error
}

func (r *recordingPopups) Show(_ context.Context, req RenderRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.shown = append(r.shown, req)
	return nil
}

func (r *recordingPopups) Hide(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hidden = append(r.hidden, id)
	return nil
}

func (r *recordingPopups) shownTitles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.shown))
	for _, req := range r.shown {
		out = append(out, req.Signal.Title)
	}
	return out
}

type recordingBadges struct {
	mu      sync.Mutex
	updates []BadgeUpdate
}

func (r *recordingBadges) Bump(_ context.Context, u BadgeUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, u)
	return nil
}

func (r *recordingBadges) titles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.updates))
	for _, u := range r.updates {
		out = append(out, u.Signal.Title)
	}
	return out
}

var errSurfaceDown = errors.New("surface down")

type harness struct {
	clock      *manualClock
	popups     *recordingPopups
	badges     *recordingBadges
	dispatcher *Dispatcher
}

func newHarness() *harness {
	h := &harness{
		clock:  newManualClock(),
		popups: &recordingPopups{},
		badges: &recordingBadges{},
	}
	h.dispatcher = NewDispatcher(DispatcherDeps{
		Popups: h.popups,
		Badges: h.badges,
		Clock:  h.clock,
	})
	return h
}
