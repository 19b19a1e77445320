// Package alert raises plugin alerts when a session reaches Moderate or
// Severe fatigue, with a cooldown between alerts.
package alert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/ayusman/vigil/internal/fatigue"
	"github.com/ayusman/vigil/internal/plugin"
)

const cooldownKey = "alert"

// Notifier delivers one alert.
type Notifier interface {
	Notify(ctx context.Context, req *plugin.Request) error
}

// Config controls dispatch.
type Config struct {
	Action           string
	ModerateCooldown time.Duration
	SevereCooldown   time.Duration
	QueueSize        int
}

// DefaultConfig returns 3s/6s cooldowns and the "alert" action.
func DefaultConfig() Config {
	return Config{
		Action:           "alert",
		ModerateCooldown: 3 * time.Second,
		SevereCooldown:   6 * time.Second,
		QueueSize:        8,
	}
}

// Dispatcher is a fatigue.Observer that turns elevated results into alert
// requests and hands them to a Notifier on its own goroutine.
type Dispatcher struct {
	fatigue.NopObserver

	cfg       Config
	notifier  Notifier
	logger    *slog.Logger
	sessionID string

	// cooldowns holds the level of the last alert until its cooldown ends.
	cooldowns *cache.Cache
	queue     chan *plugin.Request

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewDispatcher creates a dispatcher for the session identified by sessionID.
func NewDispatcher(cfg Config, notifier Notifier, sessionID string, logger *slog.Logger) *Dispatcher {
	def := DefaultConfig()
	if cfg.Action == "" {
		cfg.Action = def.Action
	}
	if cfg.ModerateCooldown <= 0 {
		cfg.ModerateCooldown = def.ModerateCooldown
	}
	if cfg.SevereCooldown <= 0 {
		cfg.SevereCooldown = def.SevereCooldown
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Dispatcher{
		cfg:       cfg,
		notifier:  notifier,
		logger:    logger.With("module", "alert"),
		sessionID: sessionID,
		// expired entries are ignored on lookup, so no janitor goroutine
		cooldowns: cache.New(cfg.SevereCooldown, 0),
		queue:     make(chan *plugin.Request, cfg.QueueSize),
	}
}

// Start launches the delivery worker.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return
	}
	d.started = true

	ctx, d.cancel = context.WithCancel(ctx)
	d.done = make(chan struct{})
	go d.run(ctx)
}

// Stop cancels any delivery in flight and waits for the worker to exit.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.started {
		d.mu.Unlock()
		return
	}
	d.started = false
	cancel, done := d.cancel, d.done
	d.mu.Unlock()

	cancel()
	<-done
}

func (d *Dispatcher) run(ctx context.Context) {
	defer close(d.done)
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-d.queue:
			if err := d.notifier.Notify(ctx, req); err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				d.logger.Warn("alert delivery failed", "alert", req.ID, "level", req.Level, "error", err)
				continue
			}
			d.logger.Info("alert delivered", "alert", req.ID, "level", req.Level)
		}
	}
}

func (d *Dispatcher) cooldown(level fatigue.Level) time.Duration {
	if level >= fatigue.LevelSevere {
		return d.cfg.SevereCooldown
	}
	return d.cfg.ModerateCooldown
}

// allow reports whether an alert at level may fire now and, if so, starts
// its cooldown. A higher level than the one cooling down is let through.
func (d *Dispatcher) allow(level fatigue.Level) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if v, ok := d.cooldowns.Get(cooldownKey); ok {
		if last, _ := v.(fatigue.Level); level <= last {
			return false
		}
	}
	d.cooldowns.Set(cooldownKey, level, d.cooldown(level))
	return true
}

// OnFatigueDetected queues an alert for Moderate and Severe results that
// are not within a cooldown.
func (d *Dispatcher) OnFatigueDetected(result fatigue.Result) {
	if result.Level < fatigue.LevelModerate || !d.allow(result.Level) {
		return
	}

	req := &plugin.Request{
		ID:        uuid.NewString(),
		Action:    d.cfg.Action,
		SessionID: d.sessionID,
		Level:     result.Level,
		Events:    fatigue.Records(result.Events),
		Timestamp: result.Timestamp,
	}

	select {
	case d.queue <- req:
	default:
		d.logger.Warn("alert queue full, dropping alert", "level", result.Level)
	}
}

// OnFatigueLevelChanged clears the cooldown when the level drops to Normal,
// so the next escalation alerts immediately.
func (d *Dispatcher) OnFatigueLevelChanged(level fatigue.Level) {
	if level == fatigue.LevelNormal {
		d.cooldowns.Delete(cooldownKey)
	}
}

// PluginNotifier delivers alerts through a named plugin.
type PluginNotifier struct {
	Manager  *plugin.Manager
	Executor *plugin.Executor
	Plugin   string
	Config   []byte
}

// Notify runs the plugin and treats an unsuccessful response as an error.
func (n *PluginNotifier) Notify(ctx context.Context, req *plugin.Request) error {
	p, err := n.Manager.Get(n.Plugin)
	if err != nil {
		return fmt.Errorf("%s: %w", n.Plugin, err)
	}
	if n.Config != nil {
		req.Config = n.Config
	}

	resp, err := n.Executor.Execute(ctx, p, req)
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("plugin %s: %s", n.Plugin, resp.Error)
	}
	return nil
}
