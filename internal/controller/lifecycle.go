package controller

import (
	"context"
	"errors"
	"fmt"

	"github.com/tubededentifrice/zigbee-herdsman/internal/adapter"
	"github.com/tubededentifrice/zigbee-herdsman/internal/device"
)

// Start brings the controller up: adapter first, then the device cache,
// then the coordinator's own record, then the event loop. Any failure here
// is fatal and wrapped in ErrStartup; nothing keeps running after a failed
// Start.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	if c.stopping {
		c.mu.Unlock()
		return ErrAlreadyStopped
	}
	c.mu.Unlock()

	if err := c.adapter.Start(ctx); err != nil {
		return fmt.Errorf("%w: starting adapter: %w", ErrStartup, err)
	}

	coordinator, err := c.adapter.Coordinator(ctx)
	if err != nil {
		c.adapter.Stop() //nolint:errcheck // Best effort cleanup on error path
		return fmt.Errorf("%w: reading coordinator identity: %w", ErrStartup, err)
	}

	if err := c.registry.RefreshCache(ctx); err != nil {
		c.adapter.Stop() //nolint:errcheck // Best effort cleanup on error path
		return fmt.Errorf("%w: loading device cache: %w", ErrStartup, err)
	}

	if err := c.ensureCoordinatorRecord(ctx, coordinator); err != nil {
		c.adapter.Stop() //nolint:errcheck // Best effort cleanup on error path
		return fmt.Errorf("%w: storing coordinator record: %w", ErrStartup, err)
	}

	runCtx, cancel := context.WithCancel(context.Background())

	c.mu.Lock()
	c.coordinator = coordinator
	c.ctx = runCtx
	c.cancel = cancel
	c.started = true
	c.mu.Unlock()

	c.wg.Add(1)
	go c.eventLoop()

	c.logger.Info("controller started",
		"coordinator", coordinator.IEEEAddress,
		"devices", c.registry.Count())
	return nil
}

// Stop shuts the controller down: join admission is closed best-effort,
// the event loop and interviews drain, then the adapter goes down. Safe to
// call more than once; before Start it is a no-op that leaves the
// controller startable. A stopped controller never starts again.
func (c *Controller) Stop() error {
	c.mu.Lock()
	if !c.started || c.stopping {
		c.mu.Unlock()
		return nil
	}
	c.stopping = true
	c.mu.Unlock()

	// Leaving the network open with nobody watching is worse than a
	// failed close; errors here are logged and ignored.
	if permitErr := c.PermitJoin(context.Background(), false); permitErr != nil {
		c.logger.Warn("closing join admission on shutdown", "error", permitErr)
	}

	c.mu.Lock()
	c.started = false
	c.mu.Unlock()

	c.cancel()

	var err error
	if stopErr := c.adapter.Stop(); stopErr != nil {
		err = fmt.Errorf("stopping adapter: %w", stopErr)
	}

	c.wg.Wait()
	c.bus.Close()

	c.logger.Info("controller stopped")
	return err
}

// ensureCoordinatorRecord stores or refreshes the coordinator's own device
// record so it shows up in device listings like any other node.
func (c *Controller) ensureCoordinatorRecord(ctx context.Context, coordinator adapter.Coordinator) error {
	existing, err := c.registry.GetByIEEE(ctx, coordinator.IEEEAddress)
	if err != nil && !errors.Is(err, device.ErrDeviceNotFound) {
		return err
	}

	endpoints := make([]device.Endpoint, 0, len(coordinator.Endpoints))
	for _, ep := range coordinator.Endpoints {
		endpoints = append(endpoints, device.Endpoint{
			ID:        ep.ID,
			ProfileID: ep.ProfileID,
			DeviceID:  ep.DeviceID,
		})
	}

	manufacturer := coordinator.ManufacturerID

	if existing == nil {
		return c.registry.Create(ctx, &device.Device{
			IEEEAddress:    coordinator.IEEEAddress,
			NetworkAddress: coordinator.NetworkAddress,
			Type:           device.TypeCoordinator,
			ManufacturerID: &manufacturer,
			InterviewState: device.InterviewSuccessful,
			Endpoints:      endpoints,
		})
	}

	existing.NetworkAddress = coordinator.NetworkAddress
	existing.Type = device.TypeCoordinator
	existing.ManufacturerID = &manufacturer
	existing.InterviewState = device.InterviewSuccessful
	existing.Endpoints = endpoints
	return c.registry.Update(ctx, existing)
}

// eventLoop consumes adapter events until shutdown. Events for one device
// arrive in order because a single goroutine drains the channel.
func (c *Controller) eventLoop() {
	defer c.wg.Done()

	events := c.adapter.Events()
	for {
		select {
		case <-c.ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			c.handleEvent(ev)
		}
	}
}
