package fatigue

import (
	"log/slog"
	"time"

	"github.com/ayusman/vigil/internal/timeutil"
)

// Fixed timing and rate constants.
const (
	EyeClosureDuration  = 1500 * time.Millisecond
	YawnDuration        = 1000 * time.Millisecond
	BlinkDebounce       = 200 * time.Millisecond
	BlinkWindow         = 60 * time.Second
	BlinkLimit          = 20
	CalibrationDuration = 15 * time.Second
	CalibrationFactor   = 0.7

	// BlinkLogRetention bounds the blink log of a session that is never queried.
	BlinkLogRetention = 10 * time.Minute
)

// Default detection thresholds.
const (
	DefaultEARThreshold          = 0.20
	DefaultMARThreshold          = 0.70
	DefaultFatigueEventThreshold = 3
)

// Parameters are the tunable thresholds of a Session.
type Parameters struct {
	EARThreshold          float64 `json:"ear_threshold"`
	MARThreshold          float64 `json:"mar_threshold"`
	FatigueEventThreshold int     `json:"fatigue_event_threshold"`
}

// DefaultParameters returns the stock thresholds.
func DefaultParameters() Parameters {
	return Parameters{
		EARThreshold:          DefaultEARThreshold,
		MARThreshold:          DefaultMARThreshold,
		FatigueEventThreshold: DefaultFatigueEventThreshold,
	}
}

// ParameterUpdate is a partial Parameters change. Nil fields keep the
// current value.
type ParameterUpdate struct {
	EARThreshold          *float64 `json:"ear_threshold,omitempty"`
	MARThreshold          *float64 `json:"mar_threshold,omitempty"`
	FatigueEventThreshold *int     `json:"fatigue_event_threshold,omitempty"`
}

// Apply returns p with the update's fields applied. Non-positive values are
// ignored.
func (p Parameters) Apply(u ParameterUpdate) Parameters {
	if u.EARThreshold != nil && *u.EARThreshold > 0 {
		p.EARThreshold = *u.EARThreshold
	}
	if u.MARThreshold != nil && *u.MARThreshold > 0 {
		p.MARThreshold = *u.MARThreshold
	}
	if u.FatigueEventThreshold != nil && *u.FatigueEventThreshold > 0 {
		p.FatigueEventThreshold = *u.FatigueEventThreshold
	}
	return p
}

// withDefaults replaces non-positive fields with the stock values.
func (p Parameters) withDefaults() Parameters {
	d := DefaultParameters()
	if p.EARThreshold <= 0 {
		p.EARThreshold = d.EARThreshold
	}
	if p.MARThreshold <= 0 {
		p.MARThreshold = d.MARThreshold
	}
	if p.FatigueEventThreshold <= 0 {
		p.FatigueEventThreshold = d.FatigueEventThreshold
	}
	return p
}

// Config holds the construction options for a Session.
type Config struct {
	// ID names the session. Empty generates a random UUID.
	ID string

	// Parameters are the initial thresholds. The EAR threshold is also the
	// value Reset reverts to.
	Parameters Parameters

	Layout Layout

	// Clock supplies "now" for control calls, queries and frames without a
	// timestamp. Defaults to the real clock.
	Clock timeutil.Clock

	// Observer receives notifications synchronously. May be nil.
	Observer Observer

	Logger *slog.Logger
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		Parameters: DefaultParameters(),
		Layout:     DefaultLayout(),
		Clock:      timeutil.RealClock{},
	}
}
