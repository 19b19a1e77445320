package fatigue

import "time"

// MouthPhase is the yawn state machine position.
type MouthPhase int

const (
	MouthClosed MouthPhase = iota
	// MouthOpening: open since OpenedAt, not yet long enough to report.
	MouthOpening
	// MouthOpen: yawn already reported; waiting for the mouth to close.
	MouthOpen
)

// MouthState is the yawn detector's state.
type MouthState struct {
	Phase    MouthPhase
	OpenedAt time.Time
}

// YawnDetector reports mouth openings that outlast YawnDuration.
type YawnDetector struct {
	Threshold float64
}

// Step advances st by one frame and returns a Yawn event or nil. The mouth
// counts as open above the threshold; a zero ratio leaves st unchanged.
func (d YawnDetector) Step(st MouthState, mar float64, now time.Time) (MouthState, Event) {
	if mar <= 0 {
		return st, nil
	}

	open := mar > d.Threshold

	switch st.Phase {
	case MouthClosed:
		if open {
			st.Phase = MouthOpening
			st.OpenedAt = now
		}

	case MouthOpening:
		elapsed := now.Sub(st.OpenedAt)
		if open {
			if elapsed >= YawnDuration {
				st.Phase = MouthOpen
				return st, Yawn{Duration: elapsed}
			}
			return st, nil
		}
		st = MouthState{}
		if elapsed >= YawnDuration {
			return st, Yawn{Duration: elapsed}
		}

	case MouthOpen:
		if !open {
			st = MouthState{}
		}
	}

	return st, nil
}
