package device

import (
	"fmt"
	"strings"
	"time"
)

// Type is the logical device type learnt from the node descriptor.
type Type string

// Logical device types.
const (
	TypeCoordinator Type = "coordinator"
	TypeRouter      Type = "router"
	TypeEndDevice   Type = "endDevice"

	// TypeUnknown is the placeholder before the interview resolves the
	// real type.
	TypeUnknown Type = "unknown"
)

// InterviewState tracks progress of the one-time device interview.
type InterviewState string

// Interview states. A device is interviewed at most once per lifetime in
// the store; re-running only happens after a failed attempt.
const (
	InterviewNotStarted InterviewState = "not_started"
	InterviewInProgress InterviewState = "in_progress"
	InterviewSuccessful InterviewState = "successful"
	InterviewFailed     InterviewState = "failed"
)

// Endpoint is one application endpoint learnt from a simple descriptor.
type Endpoint struct {
	ID             uint8    `json:"id"`
	ProfileID      uint16   `json:"profileId"`
	DeviceID       uint16   `json:"deviceId"`
	InputClusters  []uint16 `json:"inputClusters"`
	OutputClusters []uint16 `json:"outputClusters"`
}

// Device is a node on the network. The IEEE address is the permanent
// identity; the network address is transient and reassigned on rejoin.
type Device struct {
	// IEEEAddress is the 64-bit hardware address, formatted 0x%016x.
	// Immutable for the life of the record.
	IEEEAddress string

	// NetworkAddress is the current 16-bit short address.
	NetworkAddress uint16

	Type Type

	// ManufacturerID is learnt from the node descriptor; nil until the
	// interview reaches that step.
	ManufacturerID *uint16

	// ModelID is the basic cluster's model identifier; nil until read
	// during the interview or backfilled from a report.
	ModelID *string

	InterviewState InterviewState

	Endpoints []Endpoint

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Interviewed reports whether the interview completed successfully.
func (d *Device) Interviewed() bool {
	return d.InterviewState == InterviewSuccessful
}

// Endpoint returns the endpoint with the given id, nil when absent.
func (d *Device) Endpoint(id uint8) *Endpoint {
	for i := range d.Endpoints {
		if d.Endpoints[i].ID == id {
			return &d.Endpoints[i]
		}
	}
	return nil
}

// DeepCopy returns a copy sharing no mutable state with the original.
// The registry hands out copies so callers cannot corrupt the cache.
func (d *Device) DeepCopy() *Device {
	if d == nil {
		return nil
	}

	out := *d

	if d.ManufacturerID != nil {
		v := *d.ManufacturerID
		out.ManufacturerID = &v
	}
	if d.ModelID != nil {
		v := *d.ModelID
		out.ModelID = &v
	}

	if d.Endpoints != nil {
		out.Endpoints = make([]Endpoint, len(d.Endpoints))
		for i, ep := range d.Endpoints {
			cp := ep
			if ep.InputClusters != nil {
				cp.InputClusters = append([]uint16(nil), ep.InputClusters...)
			}
			if ep.OutputClusters != nil {
				cp.OutputClusters = append([]uint16(nil), ep.OutputClusters...)
			}
			out.Endpoints[i] = cp
		}
	}

	return &out
}

// GroupMember is one endpoint of one device inside a group.
type GroupMember struct {
	IEEEAddress string `json:"ieeeAddress"`
	Endpoint    uint8  `json:"endpoint"`
}

// Group is a multicast group. Groups are created on demand and persist
// across restarts even when empty.
type Group struct {
	// ID is the 16-bit group identifier. Zero is never a group-cast
	// target on the wire but is still a valid stored group.
	ID uint16

	Members []GroupMember

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasMember reports whether the endpoint of the device is in the group.
func (g *Group) HasMember(ieeeAddress string, endpoint uint8) bool {
	for _, m := range g.Members {
		if m.IEEEAddress == ieeeAddress && m.Endpoint == endpoint {
			return true
		}
	}
	return false
}

// DeepCopy returns a copy sharing no mutable state with the original.
func (g *Group) DeepCopy() *Group {
	if g == nil {
		return nil
	}
	out := *g
	if g.Members != nil {
		out.Members = append([]GroupMember(nil), g.Members...)
	}
	return &out
}

// FormatIEEEAddress renders a 64-bit hardware address in the canonical
// 0x-prefixed lower-case hex form used everywhere in the store.
func FormatIEEEAddress(addr uint64) string {
	return fmt.Sprintf("0x%016x", addr)
}

// ValidateDevice checks the invariants the store relies on.
func ValidateDevice(d *Device) error {
	if d.IEEEAddress == "" {
		return fmt.Errorf("%w: empty ieee address", ErrInvalidDevice)
	}
	if !strings.HasPrefix(d.IEEEAddress, "0x") || len(d.IEEEAddress) != 18 {
		return fmt.Errorf("%w: ieee address %q must be 0x-prefixed 16-digit hex", ErrInvalidDevice, d.IEEEAddress)
	}

	switch d.Type {
	case TypeCoordinator, TypeRouter, TypeEndDevice, TypeUnknown:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidDeviceType, d.Type)
	}

	switch d.InterviewState {
	case InterviewNotStarted, InterviewInProgress, InterviewSuccessful, InterviewFailed:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidInterviewState, d.InterviewState)
	}

	return nil
}
