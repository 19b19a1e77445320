// Package timeutil lets capture pacing and session timing run off a clock
// that tests can move by hand.
package timeutil

import (
	"sync"
	"sync/atomic"
	"time"
)

// Clock is the time source for the capture loop and the session.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

// Ticker delivers ticks on C until stopped.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// RealClock reads the system clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

func (RealClock) NewTicker(d time.Duration) Ticker {
	return systemTicker{time.NewTicker(d)}
}

type systemTicker struct{ *time.Ticker }

func (t systemTicker) C() <-chan time.Time { return t.Ticker.C }

// MockClock only moves when Set or Advance is called. Set jumps without
// firing tickers; Advance fires every ticker whose period has elapsed,
// keeping at most one undelivered tick per ticker.
type MockClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*mockTicker
}

// NewMockClock returns a MockClock reading start.
func NewMockClock(start time.Time) *MockClock {
	return &MockClock{now: start}
}

func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to t, forwards or backwards.
func (c *MockClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// Advance moves the clock forward by d and fires due tickers.
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
	live := c.tickers[:0]
	for _, t := range c.tickers {
		if t.stopped.Load() {
			continue
		}
		t.fireAt(c.now)
		live = append(live, t)
	}
	c.tickers = live
}

// Tick fires every running ticker at the current time, due or not.
func (c *MockClock) Tick() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, t := range c.tickers {
		if !t.stopped.Load() {
			t.send(c.now)
			t.next = c.now.Add(t.period)
		}
	}
}

func (c *MockClock) NewTicker(d time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &mockTicker{
		ch:     make(chan time.Time, 1),
		period: d,
		next:   c.now.Add(d),
	}
	c.tickers = append(c.tickers, t)
	return t
}

// mockTicker fields other than stopped are guarded by the owning clock.
type mockTicker struct {
	ch      chan time.Time
	period  time.Duration
	next    time.Time
	stopped atomic.Bool
}

func (t *mockTicker) C() <-chan time.Time { return t.ch }

func (t *mockTicker) Stop() { t.stopped.Store(true) }

func (t *mockTicker) fireAt(now time.Time) {
	if now.Before(t.next) {
		return
	}
	t.send(now)
	t.next = now.Add(t.period)
}

func (t *mockTicker) send(now time.Time) {
	select {
	case t.ch <- now:
	default:
	}
}
