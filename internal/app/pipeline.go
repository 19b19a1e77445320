package app

import (
	"context"
	"errors"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/vigil/internal/capture"
	"github.com/ayusman/vigil/internal/detector"
	"github.com/ayusman/vigil/internal/fatigue"
	"github.com/ayusman/vigil/internal/metrics"
)

type capturedFrame struct {
	mat *gocv.Mat
	at  time.Time
}

// captureLoop samples the camera at the configured rate and hands each frame
// to the processing loop. The handoff is unbuffered and non-blocking, so a
// frame captured while the previous one is still being processed is dropped.
func (a *App) captureLoop(ctx context.Context) {
	defer a.wg.Done()

	ticker := a.clock.NewTicker(time.Second / time.Duration(a.fps))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			mat, err := a.camera.ReadFrame()
			if err != nil {
				if errors.Is(err, capture.ErrNoFrames) {
					a.logger.Debug("camera has no more frames")
				} else {
					a.logger.Warn("error reading frame", "error", err)
				}
				continue
			}

			select {
			case a.frames <- capturedFrame{mat: mat, at: a.clock.Now()}:
			default:
				mat.Close()
				a.dropped.Add(1)
				if a.metrics != nil {
					a.metrics.RecordDroppedFrame()
				}
			}
		}
	}
}

// processLoop is the only goroutine that detects landmarks.
func (a *App) processLoop(ctx context.Context) {
	defer a.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case f := <-a.frames:
			if _, err := a.ProcessMat(f.mat, f.at); err != nil {
				a.logger.Warn("error detecting face", "error", err)
			}
			f.mat.Close()
		}
	}
}

// ProcessMat detects landmarks in mat and feeds them to the session as a
// frame captured at at. The caller keeps ownership of mat.
func (a *App) ProcessMat(mat *gocv.Mat, at time.Time) (fatigue.Result, error) {
	faces, err := a.detector.Detect(mat)
	if err != nil {
		if a.metrics != nil {
			a.metrics.RecordDetectionError()
			a.metrics.RecordFrame(metrics.OutcomeError, a.clock.Now().Sub(at))
		}
		return fatigue.Result{Level: a.Level(), Timestamp: at}, err
	}
	return a.Process(fatigue.Frame{Faces: faces, Timestamp: at}), nil
}

// Process runs one landmark frame through the session.
func (a *App) Process(frame fatigue.Frame) fatigue.Result {
	a.mu.Lock()
	result := a.session.Process(frame)
	active := a.session.Active()
	count := a.session.FatigueEventCount()
	a.last = result
	a.mu.Unlock()

	a.processed.Add(1)
	if a.metrics != nil {
		a.metrics.RecordFrame(frameOutcome(active, frame.Faces), a.clock.Now().Sub(result.Timestamp))
		if active && len(frame.Faces) > 0 {
			a.metrics.RecordResult(result, count)
		}
	}
	return result
}

func frameOutcome(active bool, faces []detector.FaceLandmarks) string {
	switch {
	case !active:
		return metrics.OutcomeInactive
	case len(faces) == 0:
		return metrics.OutcomeNoFace
	default:
		return metrics.OutcomeFace
	}
}
