// Package testutil builds scripted face recordings for tests.
package testutil

import (
	"fmt"
	"os"
	"time"

	"github.com/ayusman/vigil/internal/detector"
	"github.com/ayusman/vigil/internal/fatigue"
	"github.com/ayusman/vigil/internal/replay"
)

// FrameInterval is the spacing of recorded frames (10 Hz, the capture default).
const FrameInterval = 100 * time.Millisecond

// Start is the timestamp of the first recorded frame.
var Start = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// Recording is a scripted sequence of frames.
type Recording struct {
	frames []fatigue.Frame
	at     time.Time
}

// NewRecording starts an empty recording at Start.
func NewRecording() *Recording {
	return &Recording{at: Start}
}

// Hold repeats face every FrameInterval for d.
func (r *Recording) Hold(face detector.FaceLandmarks, d time.Duration) *Recording {
	for end := r.at.Add(d); r.at.Before(end); r.at = r.at.Add(FrameInterval) {
		r.frames = append(r.frames, fatigue.Frame{
			Faces:     []detector.FaceLandmarks{face},
			Timestamp: r.at,
		})
	}
	return r
}

// NoFace records empty frames for d.
func (r *Recording) NoFace(d time.Duration) *Recording {
	for end := r.at.Add(d); r.at.Before(end); r.at = r.at.Add(FrameInterval) {
		r.frames = append(r.frames, fatigue.Frame{Timestamp: r.at})
	}
	return r
}

// EyeClosures records n closures of closed followed by open eyes.
func (r *Recording) EyeClosures(n int, closed, open time.Duration) *Recording {
	for range n {
		r.Hold(detector.ClosedEyesFace(), closed)
		r.Hold(detector.OpenEyesFace(), open)
	}
	return r
}

// Frames returns the recorded frames.
func (r *Recording) Frames() []fatigue.Frame {
	return r.frames
}

// End is the timestamp the next frame would get.
func (r *Recording) End() time.Time {
	return r.at
}

// WriteFile writes the recording as JSON lines.
func (r *Recording) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create recording %s: %w", path, err)
	}
	if err := replay.Write(f, r.frames); err != nil {
		f.Close()
		return fmt.Errorf("write recording %s: %w", path, err)
	}
	return f.Close()
}
