package fatigue

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/vigil/internal/timeutil"
)

// Session owns the detection state for one monitored subject.
type Session struct {
	id         string
	clock      timeutil.Clock
	observer   Observer
	logger     *slog.Logger
	layout     Layout
	calibrator Calibrator
	blinks     BlinkFrequencyTracker

	defaults Parameters
	params   Parameters
	active   bool
	state    State
}

// NewSession creates an active session.
func NewSession(cfg Config) *Session {
	params := cfg.Parameters.withDefaults()

	layout := cfg.Layout
	if len(layout.LeftEye) == 0 && len(layout.RightEye) == 0 && len(layout.Mouth) == 0 {
		layout = DefaultLayout()
	}

	clock := cfg.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}

	observer := cfg.Observer
	if observer == nil {
		observer = NopObserver{}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	id := cfg.ID
	if id == "" {
		id = uuid.NewString()
	}
	return &Session{
		id:         id,
		clock:      clock,
		observer:   observer,
		logger:     logger.With("module", "fatigue", "session", id),
		layout:     layout,
		calibrator: NewCalibrator(),
		blinks:     NewBlinkFrequencyTracker(),
		defaults:   params,
		params:     params,
		active:     true,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Process runs one frame through calibration or detection. It never fails:
// frames without a usable face produce a Normal result with no events.
func (s *Session) Process(frame Frame) Result {
	now := frame.Timestamp
	if now.IsZero() {
		now = s.clock.Now()
	}

	result := Result{Level: LevelNormal, Timestamp: now}
	if !s.active || len(frame.Faces) == 0 {
		return result
	}

	ratios := Measure(&frame.Faces[0], s.layout)
	result.EAR = ratios.EAR
	result.MAR = ratios.MAR

	if s.state.Calibration.Active {
		s.calibrate(ratios.EAR, now)
		return result
	}

	return s.detect(ratios, result, now)
}

func (s *Session) calibrate(ear float64, now time.Time) {
	st, step := s.calibrator.Step(s.state.Calibration, ear, now)
	s.state.Calibration = st

	switch {
	case step.Completed:
		s.params.EARThreshold = step.Result.Threshold
		s.logger.Debug("calibration completed",
			"threshold", step.Result.Threshold,
			"min", step.Result.Min,
			"max", step.Result.Max,
			"avg", step.Result.Avg,
			"samples", step.Result.Samples)
		s.observer.OnCalibrationCompleted(step.Result)
	case step.Finished:
		s.logger.Debug("calibration ended without samples")
	case step.Sampled:
		s.observer.OnCalibrationProgress(step.Progress, ear)
	}
}

func (s *Session) detect(ratios Ratios, result Result, now time.Time) Result {
	var events []Event

	eye := EyeClosureDetector{Threshold: s.params.EARThreshold}
	eyeState, eyeOut := eye.Step(s.state.Eye, ratios.Left, ratios.Right, now)
	s.state.Eye = eyeState
	if eyeOut.Blink {
		s.state.Blinks = s.blinks.Record(s.state.Blinks, now)
		s.observer.OnBlink()
	}
	if eyeOut.Event != nil {
		events = append(events, eyeOut.Event)
	}

	yawn := YawnDetector{Threshold: s.params.MARThreshold}
	mouthState, yawnEvent := yawn.Step(s.state.Mouth, ratios.MAR, now)
	s.state.Mouth = mouthState
	if yawnEvent != nil {
		events = append(events, yawnEvent)
	}

	blinkState, freqEvent := s.blinks.Step(s.state.Blinks, now)
	s.state.Blinks = blinkState
	if freqEvent != nil {
		events = append(events, freqEvent)
	}

	s.state.EventCount += len(events)
	level := LevelFor(s.state.EventCount, s.params.FatigueEventThreshold)

	result.Events = events
	result.Level = level
	result.FatigueDetected = level != LevelNormal

	for _, e := range events {
		s.logger.Debug("fatigue event", "kind", e.Kind(), "count", s.state.EventCount, "level", level)
	}

	if len(events) > 0 || result.FatigueDetected {
		s.observer.OnFatigueDetected(result)
	}
	s.setLevel(level)

	return result
}

func (s *Session) setLevel(level Level) {
	if level == s.state.Level {
		return
	}
	s.logger.Debug("fatigue level changed", "from", s.state.Level, "to", level)
	s.state.Level = level
	s.observer.OnFatigueLevelChanged(level)
}

// Start resumes frame processing after Stop and clears fatigue events.
// It does nothing on an active session.
func (s *Session) Start() {
	if s.active {
		return
	}
	s.active = true
	s.ResetFatigueEvents()
}

// Stop makes Process a no-op until Start. Calibration state is kept.
func (s *Session) Stop() {
	s.active = false
}

// Active reports whether frames are being processed.
func (s *Session) Active() bool {
	return s.active
}

// Reset clears all detector state, cancels calibration and restores the
// configured EAR threshold.
func (s *Session) Reset() {
	level := s.state.Level
	s.state = State{Level: level}
	s.params.EARThreshold = s.defaults.EARThreshold
	s.setLevel(LevelNormal)
}

// ResetFatigueEvents clears counters and timers. Thresholds and any
// calibration in progress are kept.
func (s *Session) ResetFatigueEvents() {
	s.state.Eye = EyeState{}
	s.state.Mouth = MouthState{}
	s.state.Blinks = BlinkState{}
	s.state.EventCount = 0
	s.setLevel(LevelNormal)
}

// StartCalibration begins a new baseline window, discarding any previous
// samples. Detection is bypassed until the window closes.
func (s *Session) StartCalibration() {
	s.state.Calibration = s.calibrator.Start(s.clock.Now())
	s.logger.Debug("calibration started")
	s.observer.OnCalibrationStarted()
}

// StopCalibration cancels calibration without a completion notification.
func (s *Session) StopCalibration() {
	if s.state.Calibration.Active {
		s.logger.Debug("calibration cancelled", "samples", len(s.state.Calibration.Samples))
	}
	s.state.Calibration = CalibrationState{}
}

// SetParameters applies a partial update, effective from the next frame.
// An explicit EAR threshold also becomes the value Reset restores.
func (s *Session) SetParameters(u ParameterUpdate) {
	s.params = s.params.Apply(u)
	s.defaults = s.defaults.Apply(u)
}

// Parameters returns the thresholds in effect.
func (s *Session) Parameters() Parameters {
	return s.params
}

// FatigueEventCount returns the number of events since the last reset.
func (s *Session) FatigueEventCount() int {
	return s.state.EventCount
}

// CurrentLevel returns the level of the last processed frame.
func (s *Session) CurrentLevel() Level {
	return s.state.Level
}

// IsCalibrating reports whether a calibration window is open.
func (s *Session) IsCalibrating() bool {
	return s.state.Calibration.Active
}

// CalibrationProgress returns the calibration progress in percent, 0 when idle.
func (s *Session) CalibrationProgress() int {
	return s.calibrator.Progress(s.state.Calibration, s.clock.Now())
}

// BlinkCount returns the blinks counted in the current frequency window.
func (s *Session) BlinkCount() int {
	return s.state.Blinks.Count
}

// RecentBlinkCount returns the blinks within window of now.
func (s *Session) RecentBlinkCount(window time.Duration) int {
	st, n := s.blinks.Recent(s.state.Blinks, s.clock.Now(), window)
	s.state.Blinks = st
	return n
}

// State returns a copy of the session state.
func (s *Session) State() State {
	return s.state.Clone()
}

// Snapshot summarizes the session for display.
func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		ID:                  s.id,
		Active:              s.active,
		Level:               s.state.Level,
		FatigueEventCount:   s.state.EventCount,
		BlinkCount:          s.state.Blinks.Count,
		RecentBlinks:        s.RecentBlinkCount(BlinkWindow),
		Calibrating:         s.state.Calibration.Active,
		CalibrationProgress: s.CalibrationProgress(),
		Parameters:          s.params,
	}
}
