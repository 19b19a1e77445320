package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/ayusman/vigil/internal/alert"
	"github.com/ayusman/vigil/internal/app"
	"github.com/ayusman/vigil/internal/capture"
	"github.com/ayusman/vigil/internal/conf"
	"github.com/ayusman/vigil/internal/detector"
	"github.com/ayusman/vigil/internal/events"
	"github.com/ayusman/vigil/internal/fatigue"
	"github.com/ayusman/vigil/internal/metrics"
	"github.com/ayusman/vigil/internal/mqtt"
	"github.com/ayusman/vigil/internal/plugin"
	"github.com/ayusman/vigil/internal/server"
	"github.com/ayusman/vigil/internal/store"
	"github.com/ayusman/vigil/internal/timeutil"
)

// service is the assembled live monitor.
type service struct {
	settings *conf.Settings
	logger   *slog.Logger

	store     *store.Store
	app       *app.App
	hub       *server.Hub
	server    *server.Server
	publisher *mqtt.Publisher
	alerts    *alert.Dispatcher
}

// newService wires every component from settings. Nothing is started.
func newService(settings *conf.Settings, logger *slog.Logger) (_ *service, err error) {
	svc := &service{settings: settings, logger: logger}
	defer func() {
		if err != nil {
			svc.close()
		}
	}()

	svc.store, err = store.New(settings.Store.Path)
	if err != nil {
		return nil, err
	}

	clock := timeutil.RealClock{}
	sessionID := uuid.NewString()

	svc.hub = server.NewHub(logger)
	observers := fatigue.Observers{events.NewObserver(svc.hub, clock)}

	if settings.MQTT.Enabled {
		svc.publisher = mqtt.NewPublisher(mqtt.Config{
			Broker:   settings.MQTT.Broker,
			ClientID: mqttClientID(settings.MQTT.ClientID, sessionID),
			Username: settings.MQTT.Username,
			Password: settings.MQTT.Password,
			Topic:    settings.MQTT.Topic,
			QoS:      settings.MQTT.QoS,
			Retain:   settings.MQTT.Retain,
		}, logger)
		observers = append(observers, events.NewObserver(svc.publisher, clock))
	}

	if settings.Alert.Enabled {
		svc.alerts, err = newAlerts(settings.Alert, sessionID, logger)
		if err != nil {
			return nil, err
		}
		if svc.alerts != nil {
			observers = append(observers, svc.alerts)
		}
	}

	var gatherer prometheus.Gatherer
	var m *metrics.Metrics
	if settings.Metrics.Enabled {
		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m, err = metrics.New(registry)
		if err != nil {
			return nil, err
		}
		gatherer = registry
	}

	svc.app, err = app.New(app.Config{
		Camera: capture.NewCamera(capture.Config{
			DeviceID: settings.Camera.Device,
			FPS:      settings.Camera.FPS,
			Width:    settings.Camera.Width,
			Height:   settings.Camera.Height,
		}),
		Detector: newDetector(settings.Detection, logger),
		Session: fatigue.Config{
			ID: sessionID,
			Parameters: fatigue.Parameters{
				EARThreshold:          settings.Detection.EARThreshold,
				MARThreshold:          settings.Detection.MARThreshold,
				FatigueEventThreshold: settings.Detection.FatigueEventThreshold,
			},
			Layout:   fatigue.DefaultLayout(),
			Observer: observers,
			Logger:   logger,
		},
		FPS:     settings.Camera.FPS,
		Store:   svc.store,
		Metrics: m,
		Clock:   clock,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}

	svc.server = server.New(server.Config{
		StaticDir:  findWebDir(),
		Controller: svc.app,
		Hub:        svc.hub,
		Gatherer:   gatherer,
		Logger:     logger,
	})
	return svc, nil
}

// newAlerts discovers plugins and returns a dispatcher for the configured
// one, or nil when it is not installed.
func newAlerts(s conf.AlertSettings, sessionID string, logger *slog.Logger) (*alert.Dispatcher, error) {
	manager := plugin.NewManager(s.PluginDir, logger)
	if err := manager.Discover(); err != nil {
		return nil, fmt.Errorf("discover plugins: %w", err)
	}
	if _, err := manager.Get(s.Plugin); err != nil {
		if errors.Is(err, plugin.ErrPluginNotFound) {
			logger.Warn("alert plugin not installed, alerts disabled", "plugin", s.Plugin, "dir", s.PluginDir)
			return nil, nil
		}
		return nil, err
	}

	notifier := &alert.PluginNotifier{
		Manager:  manager,
		Executor: plugin.NewExecutor(s.Timeout),
		Plugin:   s.Plugin,
	}
	return alert.NewDispatcher(alert.Config{
		Action:           s.Action,
		ModerateCooldown: s.ModerateCooldown,
		SevereCooldown:   s.SevereCooldown,
	}, notifier, sessionID, logger), nil
}

// newDetector prefers the MediaPipe face mesh and falls back to a mock that
// never finds a face, so the API stays usable without the Python runtime.
func newDetector(s conf.DetectionSettings, logger *slog.Logger) detector.Detector {
	cfg := detector.DefaultConfig()
	cfg.IdleTimeout = s.LandmarkerIdleTimeout

	det, err := detector.NewMediaPipeDetector(cfg, logger)
	if err != nil {
		logger.Warn("face mesh unavailable, using mock detector", "error", err)
		return detector.NewMockDetector()
	}
	return det
}

func mqttClientID(configured, sessionID string) string {
	if configured != "" {
		return configured
	}
	return "vigil-" + sessionID[:8]
}

// run starts every component and blocks until ctx is cancelled or the HTTP
// server fails.
func (s *service) run(ctx context.Context) error {
	defer s.close()

	if s.publisher != nil {
		s.publisher.Start(ctx)
		go func() {
			if err := s.publisher.Connect(ctx); err != nil {
				s.logger.Warn("mqtt broker unreachable, will keep retrying", "error", err)
			}
		}()
	}
	if s.alerts != nil {
		s.alerts.Start(ctx)
	}

	if err := s.app.Start(ctx); err != nil {
		return fmt.Errorf("start pipeline: %w", err)
	}

	s.logger.Info("vigil started",
		"session", s.app.SessionID(),
		"listen", s.settings.Server.Listen,
		"store", s.store.Path())

	err := s.server.ListenAndServe(ctx, s.settings.Server.Listen)
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	return err
}

// close stops components in reverse dependency order. It tolerates a
// partially built service.
func (s *service) close() {
	if s.app != nil {
		if err := s.app.Close(); err != nil {
			s.logger.Warn("error closing pipeline", "error", err)
		}
	}
	if s.alerts != nil {
		s.alerts.Stop()
	}
	if s.publisher != nil {
		s.publisher.Close()
	}
	if s.hub != nil {
		s.hub.Close()
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warn("error closing store", "error", err)
		}
		s.store = nil
	}
}

// findWebDir looks for a dashboard in web, ../web and ~/.vigil/web.
func findWebDir() string {
	candidates := []string{"web", filepath.Join("..", "web"), filepath.Join(conf.DataDir(), "web")}
	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}
