package controller

import (
	"context"
	"fmt"
	"time"

	"github.com/tubededentifrice/zigbee-herdsman/internal/device"
	"github.com/tubededentifrice/zigbee-herdsman/internal/zcl"
)

// interviewTimeout bounds a whole interview. Battery devices answer
// slowly, so this is generous.
const interviewTimeout = 2 * time.Minute

// basicAttributes are read from the basic cluster at the end of the
// interview.
var basicAttributes = []string{zcl.AttrModelID, zcl.AttrManufacturerName}

// startInterview launches the interview goroutine for a device, unless one
// is already in flight. At most one interview per device runs at a time,
// and a completed interview is never repeated.
func (c *Controller) startInterview(ieeeAddress string, networkAddress uint16) {
	c.mu.Lock()
	if _, running := c.interviews[ieeeAddress]; running {
		c.mu.Unlock()
		c.logger.Debug("interview already in progress", "ieee", ieeeAddress)
		c.bus.Publish(Event{
			Type:            EventDeviceInterview,
			InterviewStatus: InterviewStatusAlreadyInProgress,
			Device:          &device.Device{IEEEAddress: ieeeAddress, NetworkAddress: networkAddress},
		})
		return
	}
	c.interviews[ieeeAddress] = struct{}{}
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer func() {
			c.mu.Lock()
			delete(c.interviews, ieeeAddress)
			c.mu.Unlock()
		}()

		ctx, cancel := context.WithTimeout(c.ctx, interviewTimeout)
		defer cancel()

		c.runInterview(ctx, ieeeAddress, networkAddress)
	}()
}

// runInterview walks the interview sequence: node descriptor, active
// endpoints, a simple descriptor per endpoint, then the basic cluster's
// identity attributes. Failure marks the device failed so a later rejoin
// retries; success is permanent.
func (c *Controller) runInterview(ctx context.Context, ieeeAddress string, networkAddress uint16) {
	if err := c.registry.SetInterviewState(ctx, ieeeAddress, device.InterviewInProgress); err != nil {
		c.logger.Error("marking interview in progress", "ieee", ieeeAddress, "error", err)
		return
	}
	c.publishInterview(ctx, ieeeAddress, InterviewStatusStarted)
	c.logger.Info("interview started", "ieee", ieeeAddress, "nwk", networkAddress)

	d, err := c.interviewDevice(ctx, ieeeAddress, networkAddress)
	if err != nil {
		c.logger.Error("interview failed", "ieee", ieeeAddress, "error", err)
		if stateErr := c.registry.SetInterviewState(ctx, ieeeAddress, device.InterviewFailed); stateErr != nil {
			c.logger.Error("marking interview failed", "ieee", ieeeAddress, "error", stateErr)
		}
		c.publishInterview(ctx, ieeeAddress, InterviewStatusFailed)
		return
	}

	// Frames handled while the interview was in flight may have backfilled
	// the model id or moved the short address; the stored values take
	// precedence over the snapshot the interview worked from.
	if stored, err := c.registry.GetByIEEE(ctx, ieeeAddress); err == nil {
		if stored.ModelID != nil {
			d.ModelID = stored.ModelID
		}
		d.NetworkAddress = stored.NetworkAddress
	}

	d.InterviewState = device.InterviewSuccessful
	if err := c.registry.Update(ctx, d); err != nil {
		c.logger.Error("storing interview result", "ieee", ieeeAddress, "error", err)
		c.publishInterview(ctx, ieeeAddress, InterviewStatusFailed)
		return
	}

	model := ""
	if d.ModelID != nil {
		model = *d.ModelID
	}
	c.logger.Info("interview successful", "ieee", ieeeAddress, "model", model,
		"endpoints", len(d.Endpoints))
	c.bus.Publish(Event{
		Type:            EventDeviceInterview,
		InterviewStatus: InterviewStatusSuccessful,
		Device:          d.DeepCopy(),
	})
}

// interviewDevice gathers the device's descriptors and identity attributes
// into a fresh copy of its record.
func (c *Controller) interviewDevice(ctx context.Context, ieeeAddress string, networkAddress uint16) (*device.Device, error) {
	d, err := c.registry.GetByIEEE(ctx, ieeeAddress)
	if err != nil {
		return nil, fmt.Errorf("loading device record: %w", err)
	}

	node, err := c.adapter.NodeDescriptor(ctx, networkAddress)
	if err != nil {
		return nil, fmt.Errorf("node descriptor: %w", err)
	}
	d.Type = device.Type(node.Type)
	manufacturer := node.ManufacturerID
	d.ManufacturerID = &manufacturer

	endpointIDs, err := c.adapter.ActiveEndpoints(ctx, networkAddress)
	if err != nil {
		return nil, fmt.Errorf("active endpoints: %w", err)
	}

	endpoints := make([]device.Endpoint, 0, len(endpointIDs))
	for _, id := range endpointIDs {
		sd, err := c.adapter.SimpleDescriptor(ctx, networkAddress, id)
		if err != nil {
			return nil, fmt.Errorf("simple descriptor for endpoint %d: %w", id, err)
		}
		endpoints = append(endpoints, device.Endpoint{
			ID:             sd.Endpoint,
			ProfileID:      sd.ProfileID,
			DeviceID:       sd.DeviceID,
			InputClusters:  sd.InputClusters,
			OutputClusters: sd.OutputClusters,
		})
	}
	d.Endpoints = endpoints

	if ep, ok := basicClusterEndpoint(endpoints); ok {
		attrs, err := c.adapter.ReadAttributes(ctx, networkAddress, ep, zcl.ClusterBasic, basicAttributes)
		if err != nil {
			return nil, fmt.Errorf("reading basic cluster: %w", err)
		}
		if model, ok := zcl.ModelID(attrs); ok {
			d.ModelID = &model
		}
	}

	return d, nil
}

// basicClusterEndpoint picks the endpoint to read identity attributes
// from: the first one serving the basic cluster, else the first endpoint.
func basicClusterEndpoint(endpoints []device.Endpoint) (uint8, bool) {
	if len(endpoints) == 0 {
		return 0, false
	}
	for _, ep := range endpoints {
		for _, cluster := range ep.InputClusters {
			if cluster == zcl.ClusterBasic {
				return ep.ID, true
			}
		}
	}
	return endpoints[0].ID, true
}

// publishInterview emits a deviceInterview event with the current stored
// record when available.
func (c *Controller) publishInterview(ctx context.Context, ieeeAddress string, status string) {
	d, err := c.registry.GetByIEEE(ctx, ieeeAddress)
	if err != nil {
		d = &device.Device{IEEEAddress: ieeeAddress}
	}
	c.bus.Publish(Event{
		Type:            EventDeviceInterview,
		InterviewStatus: status,
		Device:          d,
	})
}
