package app

import (
	"time"

	"github.com/ayusman/vigil/internal/fatigue"
	"github.com/ayusman/vigil/internal/metrics"
)

// SessionID returns the id of the monitored session.
func (a *App) SessionID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session.ID()
}

// Snapshot summarizes the session.
func (a *App) Snapshot() fatigue.Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session.Snapshot()
}

// State returns a copy of the session state.
func (a *App) State() fatigue.State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session.State()
}

// LastResult returns the result of the most recently processed frame.
func (a *App) LastResult() fatigue.Result {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last
}

// Level returns the current fatigue level.
func (a *App) Level() fatigue.Level {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session.CurrentLevel()
}

// StartSession resumes a stopped session.
func (a *App) StartSession() {
	a.withSession(func(s *fatigue.Session) { s.Start() })
	a.logger.Info("session started")
}

// StopSession pauses frame processing. The pipeline keeps sampling.
func (a *App) StopSession() {
	a.withSession(func(s *fatigue.Session) { s.Stop() })
	a.logger.Info("session stopped")
}

// Reset clears all session state and restores the configured EAR threshold.
func (a *App) Reset() {
	a.withSession(func(s *fatigue.Session) { s.Reset() })
	a.logger.Info("session reset")
}

// ResetFatigueEvents clears fatigue counters and timers only.
func (a *App) ResetFatigueEvents() {
	a.withSession(func(s *fatigue.Session) { s.ResetFatigueEvents() })
	a.logger.Info("fatigue events reset")
}

// Acknowledge is the response to a fatigue alert: the subject confirmed
// they are alert, so the session starts over.
func (a *App) Acknowledge() {
	a.withSession(func(s *fatigue.Session) { s.Reset() })
	a.logger.Info("fatigue alert acknowledged")
}

// StartCalibration begins a calibration window.
func (a *App) StartCalibration() {
	a.withSession(func(s *fatigue.Session) { s.StartCalibration() })
	a.logger.Info("calibration started")
}

// StopCalibration cancels calibration. It reports whether one was running.
func (a *App) StopCalibration() bool {
	var was bool
	a.withSession(func(s *fatigue.Session) {
		was = s.IsCalibrating()
		s.StopCalibration()
	})
	if was {
		if a.metrics != nil {
			a.metrics.RecordCalibration(metrics.CalibrationCancelled)
		}
		a.logger.Info("calibration cancelled")
	}
	return was
}

// Calibration returns whether calibration is running and its progress.
func (a *App) Calibration() (active bool, progress int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session.IsCalibrating(), a.session.CalibrationProgress()
}

// Parameters returns the thresholds in effect.
func (a *App) Parameters() fatigue.Parameters {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session.Parameters()
}

// SetParameters applies a partial update and persists the fields it sets
// when a store is configured. The session is updated even if persisting fails.
func (a *App) SetParameters(u fatigue.ParameterUpdate) (fatigue.Parameters, error) {
	var params fatigue.Parameters
	a.withSession(func(s *fatigue.Session) {
		s.SetParameters(u)
		params = s.Parameters()
	})
	a.logger.Info("parameters updated", "parameters", params)

	if a.store == nil {
		return params, nil
	}
	return params, saveParameters(a.store, u)
}

// RecentBlinkCount returns blinks within window of now.
func (a *App) RecentBlinkCount(window time.Duration) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session.RecentBlinkCount(window)
}

// withSession runs fn under the session lock and refreshes the event
// count gauge, which control calls may reset.
func (a *App) withSession(fn func(*fatigue.Session)) {
	a.mu.Lock()
	fn(a.session)
	count := a.session.FatigueEventCount()
	a.mu.Unlock()

	if a.metrics != nil {
		a.metrics.SetEventCount(count)
	}
}
