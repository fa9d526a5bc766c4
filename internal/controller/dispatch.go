package controller

import (
	"context"
	"errors"

	"github.com/tubededentifrice/zigbee-herdsman/internal/adapter"
	"github.com/tubededentifrice/zigbee-herdsman/internal/device"
	"github.com/tubededentifrice/zigbee-herdsman/internal/zcl"
)

// handleEvent routes one adapter event. Nothing here may panic or return:
// steady-state failures are logged and the loop moves on.
func (c *Controller) handleEvent(ev adapter.Event) {
	switch e := ev.(type) {
	case adapter.DeviceJoined:
		c.onDeviceJoined(e)
	case adapter.DeviceAnnounce:
		c.onDeviceAnnounce(e)
	case adapter.DeviceLeave:
		c.onDeviceLeave(e)
	case adapter.FrameReceived:
		c.onFrame(e)
	case adapter.Disconnected:
		c.logger.Error("adapter disconnected", "reason", e.Reason)
		c.bus.Publish(Event{Type: EventAdapterDisconnected})
	default:
		c.logger.Debug("unhandled adapter event", "event", e)
	}
}

// onDeviceJoined admits a device: a record is created on first contact and
// the interview starts unless one already completed or is running. Only a
// first contact publishes a joined event; rejoins are silent apart from the
// interview retry after a failure.
func (c *Controller) onDeviceJoined(ev adapter.DeviceJoined) {
	ctx, cancel := context.WithTimeout(c.ctx, requestTimeout)
	defer cancel()

	d, err := c.registry.GetByIEEE(ctx, ev.IEEEAddress)
	switch {
	case errors.Is(err, device.ErrDeviceNotFound):
		d = &device.Device{
			IEEEAddress:    ev.IEEEAddress,
			NetworkAddress: ev.NetworkAddress,
			Type:           device.TypeUnknown,
			InterviewState: device.InterviewNotStarted,
		}
		if err := c.registry.Create(ctx, d); err != nil {
			c.logger.Error("storing joined device", "ieee", ev.IEEEAddress, "error", err)
			return
		}
		c.logger.Info("device joined", "ieee", ev.IEEEAddress, "nwk", ev.NetworkAddress)
		c.bus.Publish(Event{Type: EventDeviceJoined, Device: d.DeepCopy()})
	case err != nil:
		c.logger.Error("looking up joined device", "ieee", ev.IEEEAddress, "error", err)
		return
	default:
		// Known device rejoining, possibly with a fresh short address.
		if d.NetworkAddress != ev.NetworkAddress {
			if err := c.registry.SetNetworkAddress(ctx, d.IEEEAddress, ev.NetworkAddress); err != nil {
				c.logger.Error("updating network address on rejoin",
					"ieee", d.IEEEAddress, "error", err)
				return
			}
			d.NetworkAddress = ev.NetworkAddress
		}
	}

	if d.Interviewed() {
		c.logger.Debug("skipping interview for known device", "ieee", d.IEEEAddress)
		return
	}
	c.startInterview(d.IEEEAddress, ev.NetworkAddress)
}

// onDeviceAnnounce handles a power-cycle or rejoin announcement. Unknown
// devices are dropped; an announcement alone never creates a record.
func (c *Controller) onDeviceAnnounce(ev adapter.DeviceAnnounce) {
	ctx, cancel := context.WithTimeout(c.ctx, requestTimeout)
	defer cancel()

	d, err := c.registry.GetByIEEE(ctx, ev.IEEEAddress)
	if errors.Is(err, device.ErrDeviceNotFound) {
		c.logger.Debug("announce from unknown device", "ieee", ev.IEEEAddress)
		return
	}
	if err != nil {
		c.logger.Error("looking up announcing device", "ieee", ev.IEEEAddress, "error", err)
		return
	}

	if d.NetworkAddress != ev.NetworkAddress {
		if err := c.registry.SetNetworkAddress(ctx, d.IEEEAddress, ev.NetworkAddress); err != nil {
			c.logger.Error("updating network address on announce",
				"ieee", d.IEEEAddress, "error", err)
			return
		}
		d.NetworkAddress = ev.NetworkAddress
		c.bus.Publish(Event{Type: EventDeviceNetworkAddress, Device: d.DeepCopy()})
	}

	c.bus.Publish(Event{Type: EventDeviceAnnounce, Device: d.DeepCopy()})
}

// onDeviceLeave removes the device record when a device leaves the network.
func (c *Controller) onDeviceLeave(ev adapter.DeviceLeave) {
	ctx, cancel := context.WithTimeout(c.ctx, requestTimeout)
	defer cancel()

	d, err := c.registry.GetByIEEE(ctx, ev.IEEEAddress)
	if errors.Is(err, device.ErrDeviceNotFound) {
		c.logger.Debug("leave from unknown device", "ieee", ev.IEEEAddress)
		return
	}
	if err != nil {
		c.logger.Error("looking up leaving device", "ieee", ev.IEEEAddress, "error", err)
		return
	}

	if err := c.registry.Delete(ctx, d.IEEEAddress); err != nil {
		c.logger.Error("removing left device", "ieee", d.IEEEAddress, "error", err)
		return
	}

	c.logger.Info("device left", "ieee", d.IEEEAddress)
	c.bus.Publish(Event{Type: EventDeviceLeave, Device: d.DeepCopy()})
}

// onFrame classifies one received frame, backfills the model identifier
// when it shows up for the first time, publishes a message event and
// answers the default-response obligation.
func (c *Controller) onFrame(ev adapter.FrameReceived) {
	ctx, cancel := context.WithTimeout(c.ctx, requestTimeout)
	defer cancel()

	d, err := c.registry.GetByNetworkAddress(ctx, ev.NetworkAddress)
	if errors.Is(err, device.ErrDeviceNotFound) {
		c.logger.Debug("frame from unknown device", "nwk", ev.NetworkAddress,
			"cluster", ev.Frame.ClusterID)
		return
	}
	if err != nil {
		c.logger.Error("looking up frame source", "nwk", ev.NetworkAddress, "error", err)
		return
	}

	// Endpoints normally come from the interview, but a frame can arrive
	// from one the interview never surfaced. Record it with what we know.
	if d.Endpoint(ev.Endpoint) == nil {
		d.Endpoints = append(d.Endpoints, device.Endpoint{ID: ev.Endpoint})
		if err := c.registry.Update(ctx, d); err != nil {
			c.logger.Warn("recording new endpoint", "ieee", d.IEEEAddress,
				"endpoint", ev.Endpoint, "error", err)
		}
	}

	kind, data, ok := classifyFrame(ev.Frame)
	if ok {
		if kind == zcl.KindAttributeReport || kind == zcl.KindReadResponse {
			c.maybeBackfillModelID(ctx, d, data)
		}

		c.bus.Publish(Event{
			Type:   EventMessage,
			Device: d.DeepCopy(),
			Message: &Message{
				Kind:           kind,
				IEEEAddress:    d.IEEEAddress,
				NetworkAddress: ev.NetworkAddress,
				Endpoint:       ev.Endpoint,
				ClusterID:      ev.Frame.ClusterID,
				Data:           data,
				LinkQuality:    ev.LinkQuality,
				GroupID:        ev.GroupID,
			},
		})
	} else {
		c.logger.Debug("frame outside message taxonomy",
			"ieee", d.IEEEAddress, "command", ev.Frame.CommandName,
			"cluster", ev.Frame.ClusterID)
	}

	c.maybeSendDefaultResponse(ctx, ev)
}

// classifyFrame maps a frame onto the message taxonomy. The second return
// is the event data; ok is false for frames that produce no message event.
func classifyFrame(frame zcl.Frame) (zcl.MessageKind, map[string]any, bool) {
	if frame.IsGlobal() {
		switch frame.CommandName {
		case zcl.CommandReport:
			return zcl.KindAttributeReport, frame.AttributeMap(), true
		case zcl.CommandReadResponse:
			return zcl.KindReadResponse, frame.AttributeMap(), true
		default:
			return "", nil, false
		}
	}

	kind, ok := zcl.CommandKind(frame.CommandName)
	if !ok {
		return "", nil, false
	}
	return kind, frame.Payload, true
}

// maybeBackfillModelID stores the model identifier the first time a report
// carries it. Once set, the stored value never changes.
func (c *Controller) maybeBackfillModelID(ctx context.Context, d *device.Device, data map[string]any) {
	if d.ModelID != nil {
		return
	}
	model, ok := zcl.ModelID(data)
	if !ok {
		return
	}

	d.ModelID = &model
	if err := c.registry.Update(ctx, d); err != nil {
		c.logger.Error("backfilling model id", "ieee", d.IEEEAddress, "error", err)
		d.ModelID = nil
		return
	}
	c.logger.Info("model id learnt from report", "ieee", d.IEEEAddress, "model", model)
}

// maybeSendDefaultResponse answers a frame with a success default response
// unless the sender disabled it or the frame was not unicast to us.
func (c *Controller) maybeSendDefaultResponse(ctx context.Context, ev adapter.FrameReceived) {
	if ev.Frame.Header.DisableDefaultResponse {
		return
	}
	if ev.WasBroadcast || ev.GroupID != 0 {
		return
	}
	// Never answer a default response with another one.
	if ev.Frame.IsGlobal() && ev.Frame.Header.CommandID == zcl.CommandIDDefaultResponse {
		return
	}

	rsp := zcl.NewDefaultResponse(ev.Frame.ClusterID, ev.Frame.Header.CommandID,
		ev.Frame.Header.TransactionSequence)
	if err := c.adapter.SendFrame(ctx, ev.NetworkAddress, ev.Endpoint, rsp); err != nil {
		c.logger.Warn("sending default response",
			"nwk", ev.NetworkAddress, "cluster", ev.Frame.ClusterID, "error", err)
	}
}
