package fatigue

import (
	"encoding/json"
	"slices"
	"time"

	"github.com/ayusman/vigil/internal/detector"
)

// Frame is one tick of landmark input. Only the first face is used; no
// faces means nothing was detected this tick.
type Frame struct {
	Faces     []detector.FaceLandmarks
	Timestamp time.Time
}

// Result is the per-frame detection snapshot.
type Result struct {
	// FatigueDetected is set when Level is above Normal.
	FatigueDetected bool
	Level           Level
	// Events emitted by this frame only.
	Events    []Event
	EAR       float64
	MAR       float64
	Timestamp time.Time
}

// MarshalJSON encodes the result with flattened events.
func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		FatigueDetected bool      `json:"fatigue_detected"`
		Level           Level     `json:"level"`
		Events          []Record  `json:"events"`
		EAR             float64   `json:"ear"`
		MAR             float64   `json:"mar"`
		Timestamp       time.Time `json:"timestamp"`
	}{r.FatigueDetected, r.Level, Records(r.Events), r.EAR, r.MAR, r.Timestamp})
}

// State is everything a Session mutates while processing frames.
type State struct {
	Eye         EyeState
	Mouth       MouthState
	Blinks      BlinkState
	Calibration CalibrationState

	// EventCount only grows until a reset.
	EventCount int
	// Level is the level reported for the last processed frame.
	Level Level
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	s.Blinks.Log = slices.Clone(s.Blinks.Log)
	s.Calibration.Samples = slices.Clone(s.Calibration.Samples)
	return s
}

// Snapshot is a read-only summary of a Session.
type Snapshot struct {
	ID                  string     `json:"id"`
	Active              bool       `json:"active"`
	Level               Level      `json:"level"`
	FatigueEventCount   int        `json:"fatigue_event_count"`
	BlinkCount          int        `json:"blink_count"`
	RecentBlinks        int        `json:"recent_blinks"`
	Calibrating         bool       `json:"calibrating"`
	CalibrationProgress int        `json:"calibration_progress"`
	Parameters          Parameters `json:"parameters"`
}
