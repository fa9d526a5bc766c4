package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/tubededentifrice/zigbee-herdsman/internal/controller"
	"github.com/tubededentifrice/zigbee-herdsman/internal/device"
	mqttclient "github.com/tubededentifrice/zigbee-herdsman/internal/infrastructure/mqtt"
)

const (
	defaultHealthInterval = 30 * time.Second
	defaultQoS            = 1

	// commandTimeout bounds inbound command execution so a stuck adapter
	// cannot wedge paho's handler goroutines.
	commandTimeout = 10 * time.Second
)

// Broker is the MQTT surface the bridge needs. Implemented by the
// infrastructure mqtt client.
type Broker interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqttclient.MessageHandler) error
	IsConnected() bool
}

// Controller is the controller surface the bridge consumes.
type Controller interface {
	Subscribe() (<-chan controller.Event, func())
	PermitJoin(ctx context.Context, permit bool) error
	GetPermitJoin() bool
	GetDevices(ctx context.Context) ([]device.Device, error)
}

// Logger is the minimal logging interface used by the bridge.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options configures the bridge.
type Options struct {
	Broker     Broker
	Controller Controller

	// DaemonID identifies this daemon in health messages.
	DaemonID string

	// Version is the daemon software version.
	Version string

	// QoS is the publish QoS for events and messages. Default: 1.
	QoS byte

	// HealthInterval is how often to publish the heartbeat. Default: 30s.
	HealthInterval time.Duration

	Logger Logger
}

// Bridge relays controller events to MQTT and inbound MQTT commands to
// the controller. It also publishes a periodic health heartbeat.
//
// The bridge never blocks the controller: it consumes from its own bus
// subscription, and publish failures are logged and dropped.
type Bridge struct {
	broker     Broker
	controller Controller

	daemonID       string
	version        string
	qos            byte
	healthInterval time.Duration

	topics    mqttclient.Topics
	startTime time.Time

	unsubscribe func()

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	logger Logger
}

// New creates a bridge. Call Start to begin relaying.
func New(opts Options) *Bridge {
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	qos := opts.QoS
	if qos == 0 {
		qos = defaultQoS
	}
	interval := opts.HealthInterval
	if interval == 0 {
		interval = defaultHealthInterval
	}

	return &Bridge{
		broker:         opts.Broker,
		controller:     opts.Controller,
		daemonID:       opts.DaemonID,
		version:        opts.Version,
		qos:            qos,
		healthInterval: interval,
		startTime:      time.Now(),
		done:           make(chan struct{}),
		logger:         logger,
	}
}

// Start subscribes to the controller event bus and the command topics,
// then begins relaying. Call Stop to shut down.
func (b *Bridge) Start(ctx context.Context) error {
	if err := b.broker.Subscribe(b.topics.CommandPermitJoin(), b.qos, b.handlePermitJoin); err != nil {
		return fmt.Errorf("subscribe to %s: %w", b.topics.CommandPermitJoin(), err)
	}

	events, cancel := b.controller.Subscribe()
	b.unsubscribe = cancel

	b.wg.Add(2)
	go b.relayLoop(events)
	go b.healthLoop(ctx)

	b.logger.Info("mqtt bridge started",
		"daemon_id", b.daemonID,
		"health_interval", b.healthInterval)

	return nil
}

// Stop gracefully stops the bridge. A final "stopping" heartbeat is
// published best-effort. Safe to call multiple times.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		close(b.done)
		if b.unsubscribe != nil {
			b.unsubscribe()
		}
		b.wg.Wait()

		if err := b.publishHealth(HealthStopping, "daemon shutting down"); err != nil {
			b.logger.Debug("final health publish failed", "error", err)
		}

		b.logger.Info("mqtt bridge stopped")
	})
}

// relayLoop drains the controller event subscription until it closes.
func (b *Bridge) relayLoop(events <-chan controller.Event) {
	defer b.wg.Done()

	for {
		select {
		case <-b.done:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := b.publishEvent(ev); err != nil {
				b.logger.Warn("event publish failed",
					"type", ev.Type, "error", err)
			}
		}
	}
}

// publishEvent maps one controller event to its topic and wire shape.
// Application messages go to the per-device message topic; everything
// else goes to the event topic for its type.
func (b *Bridge) publishEvent(ev controller.Event) error {
	if ev.Type == controller.EventMessage && ev.Message != nil {
		envelope := NewMessageEnvelope(ev.Message)
		payload, err := json.Marshal(envelope)
		if err != nil {
			return fmt.Errorf("marshal message envelope: %w", err)
		}
		return b.broker.Publish(b.topics.Message(ev.Message.IEEEAddress), payload, b.qos, false)
	}

	envelope := NewEventEnvelope(ev)
	payload, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}
	return b.broker.Publish(b.topics.Event(envelope.Type), payload, b.qos, false)
}

// handlePermitJoin processes inbound permit-join commands. Malformed
// payloads are logged and ignored; they must never take the daemon down.
func (b *Bridge) handlePermitJoin(topic string, payload []byte) error {
	var cmd PermitJoinCommand
	if err := json.Unmarshal(payload, &cmd); err != nil {
		b.logger.Warn("ignoring malformed permit join command",
			"topic", topic, "error", err)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if err := b.controller.PermitJoin(ctx, cmd.Permit); err != nil {
		return fmt.Errorf("permit join %t: %w", cmd.Permit, err)
	}

	b.logger.Info("permit join command applied", "permit", cmd.Permit)
	return nil
}

// healthLoop publishes the heartbeat at the configured interval.
func (b *Bridge) healthLoop(ctx context.Context) {
	defer b.wg.Done()

	ticker := time.NewTicker(b.healthInterval)
	defer ticker.Stop()

	if err := b.publishCurrentHealth(); err != nil {
		b.logger.Warn("initial health publish failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-b.done:
			return
		case <-ticker.C:
			if err := b.publishCurrentHealth(); err != nil {
				b.logger.Warn("health publish failed", "error", err)
			}
		}
	}
}

func (b *Bridge) publishCurrentHealth() error {
	status, reason := b.determineStatus()
	return b.publishHealth(status, reason)
}

func (b *Bridge) determineStatus() (HealthStatus, string) {
	if b.broker == nil || !b.broker.IsConnected() {
		return HealthDegraded, "MQTT disconnected"
	}
	return HealthHealthy, ""
}

func (b *Bridge) publishHealth(status HealthStatus, reason string) error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	deviceCount := 0
	if devices, err := b.controller.GetDevices(ctx); err == nil {
		deviceCount = len(devices)
	}

	msg := NewHealthMessage(b.daemonID, b.version, status, deviceCount,
		b.controller.GetPermitJoin(), b.startTime)
	if reason != "" {
		msg.Reason = reason
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal health message: %w", err)
	}

	return b.broker.Publish(b.topics.Health(), payload, 1, true)
}
