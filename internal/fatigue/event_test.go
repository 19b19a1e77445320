package fatigue

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRecord(t *testing.T) {
	tests := []struct {
		event Event
		want  Record
	}{
		{EyeClosure{Duration: 1600 * time.Millisecond}, Record{Kind: "eye_closure", DurationMS: 1600}},
		{Yawn{Duration: 2 * time.Second}, Record{Kind: "yawn", DurationMS: 2000}},
		{HighBlinkFrequency{Count: 25}, Record{Kind: "high_blink_frequency", Count: 25}},
	}

	for _, tt := range tests {
		t.Run(tt.want.Kind, func(t *testing.T) {
			assert.Equal(t, tt.want, NewRecord(tt.event))
			assert.Equal(t, tt.want.Kind, tt.event.Kind().String())
		})
	}

	assert.NotNil(t, Records(nil))
}

func TestResult_MarshalJSON(t *testing.T) {
	ts := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	r := Result{
		FatigueDetected: true,
		Level:           LevelModerate,
		Events:          []Event{Yawn{Duration: 1200 * time.Millisecond}},
		EAR:             0.3,
		MAR:             0.9,
		Timestamp:       ts,
	}

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"fatigue_detected": true,
		"level": "moderate",
		"events": [{"kind": "yawn", "duration_ms": 1200}],
		"ear": 0.3,
		"mar": 0.9,
		"timestamp": "2026-03-01T09:00:00Z"
	}`, string(data))
}
