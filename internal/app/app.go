// Package app runs the live fatigue pipeline: it samples the camera, detects
// face landmarks and feeds them through a single fatigue session, and offers
// a thread-safe control surface over that session.
package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/ayusman/vigil/internal/capture"
	"github.com/ayusman/vigil/internal/detector"
	"github.com/ayusman/vigil/internal/fatigue"
	"github.com/ayusman/vigil/internal/metrics"
	"github.com/ayusman/vigil/internal/store"
	"github.com/ayusman/vigil/internal/timeutil"
)

// ErrAlreadyRunning is returned by Start while the pipeline is running.
var ErrAlreadyRunning = errors.New("pipeline already running")

// Config holds the collaborators of an App. Camera and Detector are required.
type Config struct {
	Camera   capture.Camera
	Detector detector.Detector

	// Session configures the fatigue session. Its Observer is wrapped so
	// the App can keep metrics in step.
	Session fatigue.Config

	// FPS is the capture rate. Defaults to capture.DefaultFPS.
	FPS int

	// Store, when set, restores thresholds at startup and persists changes.
	Store *store.Store

	Metrics *metrics.Metrics
	Clock   timeutil.Clock
	Logger  *slog.Logger
}

// App is the live detection pipeline plus its control facade.
type App struct {
	camera   capture.Camera
	detector detector.Detector
	store    *store.Store
	metrics  *metrics.Metrics
	clock    timeutil.Clock
	logger   *slog.Logger
	fps      int

	// mu serializes every call into session; observers run under it.
	mu      sync.Mutex
	session *fatigue.Session
	last    fatigue.Result

	frames    chan capturedFrame
	dropped   atomic.Int64
	processed atomic.Int64

	runMu   sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New builds an App. Persisted thresholds, if any, override
// cfg.Session.Parameters before the session is created.
func New(cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	fps := cfg.FPS
	if fps <= 0 {
		fps = capture.DefaultFPS
	}

	a := &App{
		camera:   cfg.Camera,
		detector: cfg.Detector,
		store:    cfg.Store,
		metrics:  cfg.Metrics,
		clock:    clock,
		logger:   logger.With("module", "app"),
		fps:      fps,
		frames:   make(chan capturedFrame),
	}

	sessionCfg := cfg.Session
	if sessionCfg.Clock == nil {
		sessionCfg.Clock = clock
	}
	if sessionCfg.Logger == nil {
		sessionCfg.Logger = logger
	}
	if a.store != nil {
		params, err := loadParameters(a.store, sessionCfg.Parameters)
		if err != nil {
			return nil, err
		}
		sessionCfg.Parameters = params
	}
	var observers fatigue.Observers
	if a.metrics != nil {
		observers = append(observers, a.metrics)
	}
	if sessionCfg.Observer != nil {
		observers = append(observers, sessionCfg.Observer)
	}
	sessionCfg.Observer = observers

	a.session = fatigue.NewSession(sessionCfg)
	a.logger.Info("session created", "session", a.session.ID(), "parameters", a.session.Parameters())
	return a, nil
}

// Start opens the camera and launches the capture and processing loops.
func (a *App) Start(ctx context.Context) error {
	a.runMu.Lock()
	defer a.runMu.Unlock()

	if a.running {
		return ErrAlreadyRunning
	}

	if err := a.camera.Open(); err != nil {
		return err
	}
	a.camera.SetFPS(a.fps)

	ctx, a.cancel = context.WithCancel(ctx)
	a.running = true

	a.wg.Add(2)
	go a.captureLoop(ctx)
	go a.processLoop(ctx)

	a.logger.Info("detection pipeline started", "fps", a.fps)
	return nil
}

// Stop halts the loops and closes the camera. It is safe to call when the
// pipeline is not running.
func (a *App) Stop() {
	a.runMu.Lock()
	defer a.runMu.Unlock()

	if !a.running {
		return
	}
	a.cancel()
	a.wg.Wait()
	a.running = false

	if err := a.camera.Close(); err != nil {
		a.logger.Warn("error closing camera", "error", err)
	}
	a.logger.Info("detection pipeline stopped",
		"processed", a.processed.Load(),
		"dropped", a.dropped.Load())
}

// Close stops the pipeline and releases the detector.
func (a *App) Close() error {
	a.Stop()
	if a.detector == nil {
		return nil
	}
	return a.detector.Close()
}

// Running reports whether the pipeline loops are active.
func (a *App) Running() bool {
	a.runMu.Lock()
	defer a.runMu.Unlock()
	return a.running
}

// Stats returns how many frames were processed and dropped.
func (a *App) Stats() (processed, dropped int64) {
	return a.processed.Load(), a.dropped.Load()
}
