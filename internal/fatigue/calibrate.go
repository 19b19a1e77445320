package fatigue

import (
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// CalibrationState is the calibrator's state.
type CalibrationState struct {
	Active    bool
	StartedAt time.Time
	Samples   []float64
}

// CalibrationResult summarizes a completed calibration.
type CalibrationResult struct {
	Threshold float64 `json:"threshold"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	Avg       float64 `json:"avg"`
	Samples   int     `json:"samples"`
}

// CalibrationStep is what one calibration frame produced.
type CalibrationStep struct {
	// Sampled is set when the frame's EAR was collected.
	Sampled  bool
	Progress int

	// Finished is set when the window closed on this frame. Completed is
	// additionally set when samples were available and Result is valid.
	Finished  bool
	Completed bool
	Result    CalibrationResult
}

// Calibrator derives a personal eye closure threshold from a baseline window.
type Calibrator struct {
	Duration time.Duration
	Factor   float64
}

// NewCalibrator returns a calibrator with the stock window and factor.
func NewCalibrator() Calibrator {
	return Calibrator{Duration: CalibrationDuration, Factor: CalibrationFactor}
}

// Start begins a fresh calibration at now.
func (c Calibrator) Start(now time.Time) CalibrationState {
	return CalibrationState{Active: true, StartedAt: now}
}

// Step feeds one frame's EAR. The window is checked before sampling, so the
// frame that closes it is not collected. Zero ratios are skipped.
func (c Calibrator) Step(st CalibrationState, ear float64, now time.Time) (CalibrationState, CalibrationStep) {
	var step CalibrationStep
	if !st.Active {
		return st, step
	}

	if now.Sub(st.StartedAt) >= c.Duration {
		step.Finished = true
		step.Progress = 100
		step.Result, step.Completed = c.Summarize(st.Samples)
		return CalibrationState{}, step
	}

	if ear <= 0 {
		return st, step
	}

	st.Samples = append(st.Samples, ear)
	step.Sampled = true
	step.Progress = c.Progress(st, now)
	return st, step
}

// Progress returns the elapsed share of the window in percent, or 0 when
// not calibrating.
func (c Calibrator) Progress(st CalibrationState, now time.Time) int {
	if !st.Active || c.Duration <= 0 {
		return 0
	}
	elapsed := now.Sub(st.StartedAt)
	if elapsed <= 0 {
		return 0
	}
	return int(min(100, elapsed.Milliseconds()*100/c.Duration.Milliseconds()))
}

// Summarize computes the result for samples. It reports false for an empty
// set.
func (c Calibrator) Summarize(samples []float64) (CalibrationResult, bool) {
	if len(samples) == 0 {
		return CalibrationResult{}, false
	}
	avg := stat.Mean(samples, nil)
	return CalibrationResult{
		Threshold: avg * c.Factor,
		Min:       floats.Min(samples),
		Max:       floats.Max(samples),
		Avg:       avg,
		Samples:   len(samples),
	}, true
}
