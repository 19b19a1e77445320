// Package mqtt publishes fatigue notifications to an MQTT broker.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/ayusman/vigil/internal/events"
)

// ErrNotConnected is returned by Publish while the broker link is down.
var ErrNotConnected = errors.New("mqtt: not connected")

// Config holds the broker connection and publishing settings.
type Config struct {
	Broker   string
	ClientID string
	Username string
	Password string
	// Topic is the prefix; envelopes go to <Topic>/<type>.
	Topic  string
	QoS    byte
	Retain bool

	ConnectTimeout    time.Duration
	PublishTimeout    time.Duration
	DisconnectTimeout time.Duration
	QueueSize         int
}

func (c Config) withDefaults() Config {
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 30 * time.Second
	}
	if c.PublishTimeout <= 0 {
		c.PublishTimeout = 10 * time.Second
	}
	if c.DisconnectTimeout <= 0 {
		c.DisconnectTimeout = 250 * time.Millisecond
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 64
	}
	return c
}

// Client is the part of the paho client the publisher uses.
type Client interface {
	Connect() paho.Token
	Publish(topic string, qos byte, retained bool, payload any) paho.Token
	IsConnected() bool
	Disconnect(quiesce uint)
}

// Publisher is an events.Sink that publishes envelopes from a background
// worker, so session observers never wait on the network.
type Publisher struct {
	cfg    Config
	client Client
	logger *slog.Logger

	queue chan events.Envelope

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewPublisher builds a publisher around a paho client for cfg.Broker.
func NewPublisher(cfg Config, logger *slog.Logger) *Publisher {
	opts := paho.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)

	p := newPublisher(cfg, nil, logger)
	opts.SetOnConnectHandler(func(paho.Client) {
		p.logger.Info("connected to broker", "broker", cfg.Broker)
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		p.logger.Warn("broker connection lost", "broker", cfg.Broker, "error", err)
	})
	p.client = paho.NewClient(opts)
	return p
}

func newPublisher(cfg Config, client Client, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	cfg = cfg.withDefaults()
	return &Publisher{
		cfg:    cfg,
		client: client,
		logger: logger.With("module", "mqtt"),
		queue:  make(chan events.Envelope, cfg.QueueSize),
	}
}

// Connect dials the broker and waits up to ConnectTimeout.
func (p *Publisher) Connect(ctx context.Context) error {
	token := p.client.Connect()
	if err := wait(ctx, token, p.cfg.ConnectTimeout); err != nil {
		return fmt.Errorf("connect %s: %w", p.cfg.Broker, err)
	}
	return nil
}

// Start launches the publish worker. It returns immediately.
func (p *Publisher) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true

	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})
	go p.run(ctx)
}

// Close stops the worker and disconnects. Queued envelopes are dropped.
func (p *Publisher) Close() {
	p.mu.Lock()
	started := p.started
	p.started = false
	cancel, done := p.cancel, p.done
	p.mu.Unlock()

	if started {
		cancel()
		<-done
	}
	if p.client.IsConnected() {
		p.client.Disconnect(uint(p.cfg.DisconnectTimeout.Milliseconds()))
	}
}

// Send queues an envelope, dropping it when the queue is full.
func (p *Publisher) Send(e events.Envelope) {
	select {
	case p.queue <- e:
	default:
		p.logger.Warn("publish queue full, dropping notification", "type", e.Type)
	}
}

func (p *Publisher) run(ctx context.Context) {
	defer close(p.done)
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-p.queue:
			err := p.Publish(ctx, e)
			switch {
			case errors.Is(err, ErrNotConnected):
				p.logger.Debug("broker not connected, dropping notification", "type", e.Type)
			case err != nil:
				p.logger.Warn("publish failed", "type", e.Type, "error", err)
			}
		}
	}
}

// Publish encodes e as JSON and publishes it synchronously.
func (p *Publisher) Publish(ctx context.Context, e events.Envelope) error {
	if !p.client.IsConnected() {
		return ErrNotConnected
	}

	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode %s: %w", e.Type, err)
	}

	topic := Topic(p.cfg.Topic, e.Type)
	token := p.client.Publish(topic, p.cfg.QoS, p.cfg.Retain, payload)
	if err := wait(ctx, token, p.cfg.PublishTimeout); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	p.logger.Debug("published", "topic", topic)
	return nil
}

// Topic joins the configured prefix and an envelope type.
func Topic(prefix, typ string) string {
	if prefix == "" {
		return typ
	}
	return prefix + "/" + typ
}

func wait(ctx context.Context, token paho.Token, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		return token.Error()
	case <-timer.C:
		return errors.New("timeout")
	case <-ctx.Done():
		return ctx.Err()
	}
}
