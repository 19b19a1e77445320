package fatigue

import "time"

// EyePhase is the eye closure state machine position.
type EyePhase int

const (
	// EyeOpen: both eyes at or above threshold.
	EyeOpen EyePhase = iota
	// EyeClosing: closed since ClosedAt, not yet long enough to report.
	EyeClosing
	// EyeClosed: closure already reported; waiting for the eyes to reopen.
	EyeClosed
)

// EyeState is the eye closure detector's state.
type EyeState struct {
	Phase     EyePhase
	ClosedAt  time.Time
	LastBlink time.Time
}

// EyeOutcome is what one frame produced.
type EyeOutcome struct {
	// Event is an EyeClosure, or nil.
	Event Event
	// Blink is set for a debounced blink.
	Blink bool
}

// EyeClosureDetector separates sustained eye closures from blinks.
type EyeClosureDetector struct {
	Threshold float64
}

// Step advances st by one frame. The eyes count as closed when either ratio
// is below the threshold. A zero ratio on either side leaves st unchanged.
func (d EyeClosureDetector) Step(st EyeState, left, right float64, now time.Time) (EyeState, EyeOutcome) {
	var out EyeOutcome
	if left <= 0 || right <= 0 {
		return st, out
	}

	closed := left < d.Threshold || right < d.Threshold

	switch st.Phase {
	case EyeOpen:
		if closed {
			st.Phase = EyeClosing
			st.ClosedAt = now
		}

	case EyeClosing:
		elapsed := now.Sub(st.ClosedAt)
		if closed {
			if elapsed >= EyeClosureDuration {
				st.Phase = EyeClosed
				out.Event = EyeClosure{Duration: elapsed}
			}
			break
		}

		st.Phase = EyeOpen
		st.ClosedAt = time.Time{}
		if elapsed >= EyeClosureDuration {
			// The gate was crossed between two frames.
			out.Event = EyeClosure{Duration: elapsed}
			break
		}
		if st.LastBlink.IsZero() || now.Sub(st.LastBlink) > BlinkDebounce {
			st.LastBlink = now
			out.Blink = true
		}

	case EyeClosed:
		if !closed {
			st.Phase = EyeOpen
			st.ClosedAt = time.Time{}
		}
	}

	return st, out
}
