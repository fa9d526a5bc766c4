package controller

import (
	"context"
	"fmt"
	"time"
)

const (
	// permitJoinDuration is how long each permit request opens the
	// network for. 254 is the longest bounded value; 255 would mean
	// "forever" at the coordinator and survive a controller crash.
	permitJoinDuration uint8 = 254

	// permitJoinRenewInterval re-issues the permit before the previous
	// window closes, keeping the network open until explicitly disabled.
	permitJoinRenewInterval = 200 * time.Second
)

// PermitJoin opens or closes the network for joining. While open, the
// permit is renewed on a timer so admission outlives the coordinator's
// bounded window. Closing stops the renewals and shuts the window now.
// Calls that do not change the state are no-ops.
func (c *Controller) PermitJoin(ctx context.Context, permit bool) error {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return ErrNotStarted
	}
	open := c.permitStop != nil
	if permit == open {
		c.mu.Unlock()
		return nil
	}

	if !permit {
		close(c.permitStop)
		c.permitStop = nil
		c.mu.Unlock()

		if err := c.adapter.PermitJoin(ctx, 0); err != nil {
			return fmt.Errorf("closing join admission: %w", err)
		}
		c.logger.Info("join admission closed")
		c.publishPermitJoin(false)
		return nil
	}

	stop := make(chan struct{})
	c.permitStop = stop
	c.mu.Unlock()

	if err := c.adapter.PermitJoin(ctx, permitJoinDuration); err != nil {
		c.mu.Lock()
		if c.permitStop == stop {
			close(stop)
			c.permitStop = nil
		}
		c.mu.Unlock()
		return fmt.Errorf("opening join admission: %w", err)
	}

	c.wg.Add(1)
	go c.renewPermitJoin(stop)

	c.logger.Info("join admission opened", "seconds", permitJoinDuration)
	c.publishPermitJoin(true)
	return nil
}

// GetPermitJoin reports whether the network is currently open for joining.
func (c *Controller) GetPermitJoin() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.permitStop != nil
}

// renewPermitJoin re-issues the permit on a ticker until stopped. A failed
// renewal is logged and retried on the next tick; the window may close in
// between but admission state stays "open".
func (c *Controller) renewPermitJoin(stop <-chan struct{}) {
	defer c.wg.Done()

	ticker := time.NewTicker(permitJoinRenewInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(c.ctx, requestTimeout)
			err := c.adapter.PermitJoin(ctx, permitJoinDuration)
			cancel()
			if err != nil {
				c.logger.Warn("renewing join admission", "error", err)
				continue
			}
			c.logger.Debug("join admission renewed", "seconds", permitJoinDuration)
		}
	}
}

func (c *Controller) publishPermitJoin(permitted bool) {
	v := permitted
	c.bus.Publish(Event{Type: EventPermitJoinChanged, PermitJoin: &v})
}
