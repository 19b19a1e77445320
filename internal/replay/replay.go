package replay

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/ayusman/vigil/internal/fatigue"
	"github.com/ayusman/vigil/internal/timeutil"
)

// Options configures Run.
type Options struct {
	// Session configures the replayed session. Its Clock is replaced by a
	// clock that follows the recorded timestamps.
	Session fatigue.Config

	// Calibrate starts a calibration at the first frame.
	Calibrate bool

	Logger *slog.Logger
}

// Summary describes a finished replay.
type Summary struct {
	Frames      int                        `json:"frames"`
	FaceFrames  int                        `json:"face_frames"`
	Start       time.Time                  `json:"start"`
	End         time.Time                  `json:"end"`
	Events      map[string]int             `json:"events"`
	PeakLevel   fatigue.Level              `json:"peak_level"`
	Calibration *fatigue.CalibrationResult `json:"calibration,omitempty"`
	Final       fatigue.Snapshot           `json:"final"`
}

// Duration is the recorded time span.
func (s Summary) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

type calibrationRecorder struct {
	fatigue.NopObserver
	result *fatigue.CalibrationResult
}

func (c *calibrationRecorder) OnCalibrationCompleted(result fatigue.CalibrationResult) {
	c.result = &result
}

// Run feeds every frame in r through a new session. Observers in
// opts.Session see the notifications as they happen; Run stops early when
// ctx is cancelled.
func Run(ctx context.Context, r io.Reader, opts Options) (Summary, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger = logger.With("module", "replay")

	clock := timeutil.NewMockClock(time.Time{})
	recorder := &calibrationRecorder{}

	cfg := opts.Session
	cfg.Clock = clock
	if cfg.Observer != nil {
		cfg.Observer = fatigue.Observers{recorder, cfg.Observer}
	} else {
		cfg.Observer = recorder
	}
	if cfg.Logger == nil {
		cfg.Logger = logger
	}

	reader := NewReader(r)
	summary := Summary{Events: make(map[string]int)}
	var session *fatigue.Session

	for {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		frame, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return summary, err
		}

		if frame.Timestamp.Before(clock.Now()) {
			logger.Warn("frame timestamp went backwards", "frame", summary.Frames, "timestamp", frame.Timestamp)
		}
		clock.Set(frame.Timestamp)

		if session == nil {
			// created at the first timestamp so windows start at the recording
			session = fatigue.NewSession(cfg)
			if opts.Calibrate {
				session.StartCalibration()
			}
			summary.Start = frame.Timestamp
		}

		result := session.Process(frame)
		summary.Frames++
		summary.End = frame.Timestamp
		if len(frame.Faces) > 0 {
			summary.FaceFrames++
		}
		for _, e := range result.Events {
			summary.Events[e.Kind().String()]++
		}
		if result.Level > summary.PeakLevel {
			summary.PeakLevel = result.Level
		}
	}

	if session == nil {
		session = fatigue.NewSession(cfg)
	}
	summary.Calibration = recorder.result
	summary.Final = session.Snapshot()

	logger.Debug("replay finished",
		"frames", summary.Frames,
		"duration", summary.Duration(),
		"peak_level", summary.PeakLevel)
	return summary, nil
}
