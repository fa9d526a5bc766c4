package mqtt

import (
	"time"

	"github.com/google/uuid"

	"github.com/tubededentifrice/zigbee-herdsman/internal/controller"
	"github.com/tubededentifrice/zigbee-herdsman/internal/device"
)

// MQTT wire types for the zigbeed event bridge. Controller events go out
// on zigbee/event/{type}, application messages on zigbee/message/{ieee},
// and inbound commands arrive on zigbee/command/{name}.

// DevicePayload is the JSON shape of a device record on the wire.
type DevicePayload struct {
	IEEEAddress    string            `json:"ieee_address"`
	NetworkAddress uint16            `json:"network_address"`
	Type           string            `json:"type"`
	ManufacturerID *uint16           `json:"manufacturer_id,omitempty"`
	ModelID        *string           `json:"model_id,omitempty"`
	InterviewState string            `json:"interview_state"`
	Endpoints      []device.Endpoint `json:"endpoints"`
}

// NewDevicePayload converts a device record to its wire shape.
func NewDevicePayload(d *device.Device) *DevicePayload {
	if d == nil {
		return nil
	}
	return &DevicePayload{
		IEEEAddress:    d.IEEEAddress,
		NetworkAddress: d.NetworkAddress,
		Type:           string(d.Type),
		ManufacturerID: d.ManufacturerID,
		ModelID:        d.ModelID,
		InterviewState: string(d.InterviewState),
		Endpoints:      d.Endpoints,
	}
}

// EventEnvelope wraps one controller event for publication.
// Topic: zigbee/event/{type}
type EventEnvelope struct {
	// ID uniquely identifies this event for correlation and deduplication.
	ID string `json:"id"`

	// Timestamp is when the event was published (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp"`

	// Type is the controller event type (e.g. "deviceJoined").
	Type string `json:"type"`

	// Device is set for device events.
	Device *DevicePayload `json:"device,omitempty"`

	// InterviewStatus is set for deviceInterview events.
	InterviewStatus string `json:"interview_status,omitempty"`

	// PermitJoin is set for permitJoinChanged events.
	PermitJoin *bool `json:"permit_join,omitempty"`
}

// NewEventEnvelope builds the wire envelope for a controller event.
func NewEventEnvelope(ev controller.Event) EventEnvelope {
	return EventEnvelope{
		ID:              uuid.New().String(),
		Timestamp:       time.Now().UTC(),
		Type:            string(ev.Type),
		Device:          NewDevicePayload(ev.Device),
		InterviewStatus: ev.InterviewStatus,
		PermitJoin:      ev.PermitJoin,
	}
}

// MessageEnvelope wraps one classified application message.
// Topic: zigbee/message/{ieee_address}
type MessageEnvelope struct {
	// ID uniquely identifies this message.
	ID string `json:"id"`

	// Timestamp is when the message was published (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp"`

	// Kind is the classified message kind (e.g. "attributeReport").
	Kind string `json:"kind"`

	IEEEAddress    string `json:"ieee_address"`
	NetworkAddress uint16 `json:"network_address"`

	// Endpoint is the source endpoint on the device.
	Endpoint uint8 `json:"endpoint"`

	ClusterID uint16 `json:"cluster_id"`

	// Data is the attribute map or command payload.
	Data map[string]any `json:"data"`

	LinkQuality uint8 `json:"link_quality"`

	// GroupID is non-zero for group-cast frames.
	GroupID uint16 `json:"group_id,omitempty"`
}

// NewMessageEnvelope builds the wire envelope for an application message.
func NewMessageEnvelope(m *controller.Message) MessageEnvelope {
	return MessageEnvelope{
		ID:             uuid.New().String(),
		Timestamp:      time.Now().UTC(),
		Kind:           string(m.Kind),
		IEEEAddress:    m.IEEEAddress,
		NetworkAddress: m.NetworkAddress,
		Endpoint:       m.Endpoint,
		ClusterID:      m.ClusterID,
		Data:           m.Data,
		LinkQuality:    m.LinkQuality,
		GroupID:        m.GroupID,
	}
}

// PermitJoinCommand is the inbound payload on zigbee/command/permit_join.
type PermitJoinCommand struct {
	// Permit opens the network for joining when true, closes it when false.
	Permit bool `json:"permit"`
}

// HealthStatus represents the operational status of the daemon.
type HealthStatus string

// Health status values.
const (
	HealthHealthy  HealthStatus = "healthy"
	HealthDegraded HealthStatus = "degraded"
	HealthStopping HealthStatus = "stopping"
)

// HealthMessage is the periodic heartbeat on zigbee/health.
// QoS: 1, Retained: Yes
type HealthMessage struct {
	// Daemon is the daemon identifier.
	Daemon string `json:"daemon"`

	// Timestamp is when the health status was generated (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp"`

	Status HealthStatus `json:"status"`

	Version string `json:"version"`

	// UptimeSeconds is how long the daemon has been running.
	UptimeSeconds int64 `json:"uptime_seconds"`

	// DevicesManaged is the number of known devices, coordinator included.
	DevicesManaged int `json:"devices_managed"`

	// PermitJoin reports whether the network currently accepts joins.
	PermitJoin bool `json:"permit_join"`

	// Reason explains a degraded or stopping status.
	Reason string `json:"reason,omitempty"`
}

// NewHealthMessage builds a heartbeat message.
func NewHealthMessage(daemonID, version string, status HealthStatus, deviceCount int, permitJoin bool, startTime time.Time) HealthMessage {
	return HealthMessage{
		Daemon:         daemonID,
		Timestamp:      time.Now().UTC(),
		Status:         status,
		Version:        version,
		UptimeSeconds:  int64(time.Since(startTime).Seconds()),
		DevicesManaged: deviceCount,
		PermitJoin:     permitJoin,
	}
}
