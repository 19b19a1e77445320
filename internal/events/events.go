// Package events turns fatigue session notifications into typed envelopes
// for outbound sinks such as the WebSocket hub and the MQTT publisher.
package events

import (
	"time"

	"github.com/ayusman/vigil/internal/fatigue"
	"github.com/ayusman/vigil/internal/timeutil"
)

// Envelope types.
const (
	TypeCalibrationStarted   = "calibration_started"
	TypeCalibrationProgress  = "calibration_progress"
	TypeCalibrationCompleted = "calibration_completed"
	TypeBlink                = "blink"
	TypeFatigueDetected      = "fatigue_detected"
	TypeLevelChanged         = "level_changed"
)

// Envelope is one notification on the wire.
type Envelope struct {
	Type      string    `json:"type"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// CalibrationProgress is the payload of TypeCalibrationProgress.
type CalibrationProgress struct {
	Percent int     `json:"percent"`
	EAR     float64 `json:"ear"`
}

// LevelChanged is the payload of TypeLevelChanged.
type LevelChanged struct {
	Level fatigue.Level `json:"level"`
}

// Sink accepts envelopes. Send must not block the caller for long; sinks
// that do I/O queue internally.
type Sink interface {
	Send(Envelope)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Envelope)

func (f SinkFunc) Send(e Envelope) { f(e) }

// Observer forwards session notifications to a Sink. Fatigue results are
// forwarded only when they carry events or a level other than the last one
// sent, so an elevated session does not stream a result per frame.
// Like the session, an Observer is driven from one goroutine.
type Observer struct {
	sink  Sink
	clock timeutil.Clock
	level fatigue.Level
}

// NewObserver wraps sink. A nil clock uses wall time.
func NewObserver(sink Sink, clock timeutil.Clock) *Observer {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Observer{sink: sink, clock: clock}
}

func (o *Observer) send(typ string, payload any) {
	o.sink.Send(Envelope{Type: typ, Payload: payload, Timestamp: o.clock.Now()})
}

func (o *Observer) OnCalibrationStarted() {
	o.send(TypeCalibrationStarted, nil)
}

func (o *Observer) OnCalibrationProgress(percent int, ear float64) {
	o.send(TypeCalibrationProgress, CalibrationProgress{Percent: percent, EAR: ear})
}

func (o *Observer) OnCalibrationCompleted(result fatigue.CalibrationResult) {
	o.send(TypeCalibrationCompleted, result)
}

func (o *Observer) OnBlink() {
	o.send(TypeBlink, nil)
}

// OnFatigueDetected uses the frame timestamp rather than the clock.
func (o *Observer) OnFatigueDetected(result fatigue.Result) {
	if len(result.Events) == 0 && result.Level == o.level {
		return
	}
	o.level = result.Level
	o.sink.Send(Envelope{Type: TypeFatigueDetected, Payload: result, Timestamp: result.Timestamp})
}

func (o *Observer) OnFatigueLevelChanged(level fatigue.Level) {
	o.level = level
	o.send(TypeLevelChanged, LevelChanged{Level: level})
}
