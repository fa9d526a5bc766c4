package controller

import (
	"context"
	"sync"
	"time"

	"github.com/tubededentifrice/zigbee-herdsman/internal/adapter"
	"github.com/tubededentifrice/zigbee-herdsman/internal/device"
)

// Logger defines the logging interface used by the controller.
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

// requestTimeout bounds individual coordinator requests issued from the
// event loop and interviews.
const requestTimeout = 10 * time.Second

// Options configures a Controller.
type Options struct {
	// Adapter is the coordinator radio. Required.
	Adapter adapter.Adapter

	// Registry is the device store. Required.
	Registry *device.Registry

	// Logger for controller events. Optional.
	Logger Logger
}

// Controller owns the network: it runs the adapter event loop, drives
// device interviews, answers frames and manages join admission.
//
// All public methods are safe for concurrent use. Start must complete
// before other operations; Stop is idempotent.
type Controller struct {
	adapter  adapter.Adapter
	registry *device.Registry
	bus      *Bus
	logger   Logger

	coordinator adapter.Coordinator

	// mu guards started, stopping, permit state and the interview
	// session set.
	mu         sync.Mutex
	started    bool
	stopping   bool
	interviews map[string]struct{}

	// permitStop is non-nil while the renewal loop runs.
	permitStop chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Controller. Start must be called before use.
func New(opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Controller{
		adapter:    opts.Adapter,
		registry:   opts.Registry,
		bus:        NewBus(logger),
		logger:     logger,
		interviews: make(map[string]struct{}),
	}
}

// Subscribe registers an event subscriber. See Bus.Subscribe.
func (c *Controller) Subscribe() (<-chan Event, func()) {
	return c.bus.Subscribe()
}

// GetDevices returns all stored devices.
func (c *Controller) GetDevices(ctx context.Context) ([]device.Device, error) {
	return c.registry.List(ctx)
}

// GetDevice returns the device with the given IEEE address.
func (c *Controller) GetDevice(ctx context.Context, ieeeAddress string) (*device.Device, error) {
	return c.registry.GetByIEEE(ctx, ieeeAddress)
}

// GetDeviceByNetworkAddress returns the device currently holding the given
// network address.
func (c *Controller) GetDeviceByNetworkAddress(ctx context.Context, networkAddress uint16) (*device.Device, error) {
	return c.registry.GetByNetworkAddress(ctx, networkAddress)
}

// GetOrCreateGroup returns the group with the given id, creating it when
// missing. The group persists across restarts even while empty.
func (c *Controller) GetOrCreateGroup(ctx context.Context, id uint16) (*device.Group, error) {
	return c.registry.GetOrCreateGroup(ctx, id)
}

// GetCoordinatorVersion reports the coordinator firmware version.
func (c *Controller) GetCoordinatorVersion(ctx context.Context) (adapter.Version, error) {
	c.mu.Lock()
	started := c.started
	c.mu.Unlock()
	if !started {
		return adapter.Version{}, ErrNotStarted
	}
	return c.adapter.CoordinatorVersion(ctx)
}

// SoftReset restarts the coordinator firmware without touching the
// network configuration.
func (c *Controller) SoftReset(ctx context.Context) error {
	c.mu.Lock()
	started := c.started
	c.mu.Unlock()
	if !started {
		return ErrNotStarted
	}
	return c.adapter.SoftReset(ctx)
}

// DisableLED switches the coordinator status LED off.
func (c *Controller) DisableLED(ctx context.Context) error {
	c.mu.Lock()
	started := c.started
	c.mu.Unlock()
	if !started {
		return ErrNotStarted
	}
	return c.adapter.SetLED(ctx, false)
}
