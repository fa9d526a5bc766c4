package adapter

import "github.com/tubededentifrice/zigbee-herdsman/internal/zcl"

// Event is a network event produced by the adapter. Concrete types:
// DeviceJoined, DeviceAnnounce, DeviceLeave, FrameReceived, Disconnected.
type Event interface {
	isEvent()
}

// DeviceJoined signals a device joining the network through the trust
// centre.
type DeviceJoined struct {
	NetworkAddress uint16
	IEEEAddress    string
}

// DeviceAnnounce signals a device announcing itself, typically after a
// power cycle or a rejoin with a fresh network address.
type DeviceAnnounce struct {
	NetworkAddress uint16
	IEEEAddress    string
}

// DeviceLeave signals a device leaving the network.
type DeviceLeave struct {
	NetworkAddress uint16
	IEEEAddress    string
}

// FrameReceived carries one decoded application frame.
type FrameReceived struct {
	NetworkAddress uint16

	// Endpoint is the source endpoint on the sending device.
	Endpoint uint8

	Frame zcl.Frame

	// LinkQuality is the radio LQI reported for this frame.
	LinkQuality uint8

	// GroupID is the destination group for group-cast frames, zero for
	// unicast.
	GroupID uint16

	// WasBroadcast marks frames addressed to a broadcast address.
	WasBroadcast bool
}

// Disconnected signals that the serial link dropped unexpectedly.
type Disconnected struct {
	Reason error
}

func (DeviceJoined) isEvent()   {}
func (DeviceAnnounce) isEvent() {}
func (DeviceLeave) isEvent()    {}
func (FrameReceived) isEvent()  {}
func (Disconnected) isEvent()   {}
