package fatigue

import (
	"slices"
	"time"
)

// BlinkState is the blink frequency tracker's state.
type BlinkState struct {
	// Count is the number of blinks in the current window.
	Count       int
	WindowStart time.Time
	// Log holds blink timestamps in arrival order.
	Log []time.Time
}

// BlinkFrequencyTracker counts blinks per rolling window.
type BlinkFrequencyTracker struct {
	Window    time.Duration
	Limit     int
	Retention time.Duration
}

// NewBlinkFrequencyTracker returns a tracker with the stock window and limit.
func NewBlinkFrequencyTracker() BlinkFrequencyTracker {
	return BlinkFrequencyTracker{
		Window:    BlinkWindow,
		Limit:     BlinkLimit,
		Retention: BlinkLogRetention,
	}
}

// Record adds a blink at now.
func (t BlinkFrequencyTracker) Record(st BlinkState, now time.Time) BlinkState {
	if st.WindowStart.IsZero() {
		st.WindowStart = now
	}
	st.Count++
	st.Log = append(slices.Clip(st.Log), now)
	return st
}

// Step closes the window once it has elapsed, returning a HighBlinkFrequency
// event when the window held more than Limit blinks.
func (t BlinkFrequencyTracker) Step(st BlinkState, now time.Time) (BlinkState, Event) {
	if st.WindowStart.IsZero() {
		st.WindowStart = now
		return st, nil
	}
	if now.Sub(st.WindowStart) < t.Window {
		return st, nil
	}

	var ev Event
	if st.Count > t.Limit {
		ev = HighBlinkFrequency{Count: st.Count}
	}
	st.Count = 0
	st.WindowStart = now
	st.Log = prune(st.Log, now, t.Retention)
	return st, ev
}

// Recent returns the number of blinks no older than window. Entries past
// both window and Retention are dropped from the log.
func (t BlinkFrequencyTracker) Recent(st BlinkState, now time.Time, window time.Duration) (BlinkState, int) {
	st.Log = prune(st.Log, now, max(window, t.Retention))

	n := 0
	for _, ts := range st.Log {
		if now.Sub(ts) <= window {
			n++
		}
	}
	return st, n
}

// prune drops leading entries older than age.
func prune(log []time.Time, now time.Time, age time.Duration) []time.Time {
	i := 0
	for i < len(log) && now.Sub(log[i]) > age {
		i++
	}
	if i == 0 {
		return log
	}
	return slices.Clone(log[i:])
}
