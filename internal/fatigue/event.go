package fatigue

import (
	"fmt"
	"time"
)

// EventKind identifies the variant of an Event.
type EventKind int

const (
	KindEyeClosure EventKind = iota + 1
	KindYawn
	KindHighBlinkFrequency
)

func (k EventKind) String() string {
	switch k {
	case KindEyeClosure:
		return "eye_closure"
	case KindYawn:
		return "yawn"
	case KindHighBlinkFrequency:
		return "high_blink_frequency"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is a confirmed fatigue signal. The concrete type is one of
// EyeClosure, Yawn or HighBlinkFrequency.
type Event interface {
	Kind() EventKind
	fatigueEvent()
}

// EyeClosure is a continuous eye closure that outlasted EyeClosureDuration.
type EyeClosure struct {
	Duration time.Duration
}

// Yawn is a continuous mouth opening that outlasted YawnDuration.
type Yawn struct {
	Duration time.Duration
}

// HighBlinkFrequency reports more than BlinkLimit blinks in one BlinkWindow.
type HighBlinkFrequency struct {
	Count int
}

func (EyeClosure) Kind() EventKind         { return KindEyeClosure }
func (Yawn) Kind() EventKind               { return KindYawn }
func (HighBlinkFrequency) Kind() EventKind { return KindHighBlinkFrequency }

func (EyeClosure) fatigueEvent()         {}
func (Yawn) fatigueEvent()               {}
func (HighBlinkFrequency) fatigueEvent() {}

// Record is the flat wire form of an Event.
type Record struct {
	Kind       string `json:"kind"`
	DurationMS int64  `json:"duration_ms,omitempty"`
	Count      int    `json:"count,omitempty"`
}

// NewRecord flattens e.
func NewRecord(e Event) Record {
	switch v := e.(type) {
	case EyeClosure:
		return Record{Kind: v.Kind().String(), DurationMS: v.Duration.Milliseconds()}
	case Yawn:
		return Record{Kind: v.Kind().String(), DurationMS: v.Duration.Milliseconds()}
	case HighBlinkFrequency:
		return Record{Kind: v.Kind().String(), Count: v.Count}
	default:
		return Record{Kind: "unknown"}
	}
}

// Records flattens a slice of events. It never returns nil.
func Records(events []Event) []Record {
	out := make([]Record, 0, len(events))
	for _, e := range events {
		out = append(out, NewRecord(e))
	}
	return out
}
