package adapter

import (
	"context"

	"github.com/tubededentifrice/zigbee-herdsman/internal/zcl"
)

// Coordinator describes the radio's own identity on the network.
type Coordinator struct {
	IEEEAddress    string
	NetworkAddress uint16
	ManufacturerID uint16

	// Endpoints the coordinator itself exposes.
	Endpoints []CoordinatorEndpoint
}

// CoordinatorEndpoint is one application endpoint of the coordinator.
type CoordinatorEndpoint struct {
	ID        uint8
	ProfileID uint16
	DeviceID  uint16
}

// Version identifies the coordinator firmware.
type Version struct {
	// Type names the stack variant, e.g. "zStack3x0".
	Type string

	// Meta carries stack-specific fields (revision, product, build date).
	Meta map[string]any
}

// NodeDescriptor is the result of a node descriptor request.
type NodeDescriptor struct {
	// Type is the logical device type: "router" or "endDevice"
	// ("coordinator" for the radio itself).
	Type string

	ManufacturerID uint16
}

// SimpleDescriptor describes one endpoint of a device.
type SimpleDescriptor struct {
	Endpoint       uint8
	ProfileID      uint16
	DeviceID       uint16
	InputClusters  []uint16
	OutputClusters []uint16
}

// Adapter is the boundary to the coordinator hardware. Implementations own
// the serial link and the binary codec; everything above this interface
// works in decoded terms.
//
// All methods are safe for concurrent use. Blocking calls honour ctx.
type Adapter interface {
	// Start brings up the serial link and the network, commissioning the
	// coordinator if needed. It must be called before any other method.
	Start(ctx context.Context) error

	// Stop closes the network and the serial link. The Events channel is
	// closed once no more events will be delivered.
	Stop() error

	// Coordinator returns the radio's own identity.
	Coordinator(ctx context.Context) (Coordinator, error)

	// CoordinatorVersion returns the firmware version of the radio.
	CoordinatorVersion(ctx context.Context) (Version, error)

	// PermitJoin opens the network for joining for the given number of
	// seconds, or closes it when seconds is zero.
	PermitJoin(ctx context.Context, seconds uint8) error

	// SoftReset restarts the coordinator firmware without reconfiguring
	// the network.
	SoftReset(ctx context.Context) error

	// SetLED switches the coordinator status LED on or off. Adapters
	// without an LED return nil.
	SetLED(ctx context.Context, enabled bool) error

	// SendFrame transmits a frame to the device's endpoint.
	SendFrame(ctx context.Context, networkAddress uint16, endpoint uint8, frame zcl.Frame) error

	// NodeDescriptor requests the device's node descriptor.
	NodeDescriptor(ctx context.Context, networkAddress uint16) (NodeDescriptor, error)

	// ActiveEndpoints requests the device's active endpoint list.
	ActiveEndpoints(ctx context.Context, networkAddress uint16) ([]uint8, error)

	// SimpleDescriptor requests the descriptor of one endpoint.
	SimpleDescriptor(ctx context.Context, networkAddress uint16, endpoint uint8) (SimpleDescriptor, error)

	// ReadAttributes reads attributes by symbolic name from a cluster on
	// an endpoint. The result is a flattened name→value map.
	ReadAttributes(ctx context.Context, networkAddress uint16, endpoint uint8, clusterID uint16, attributes []string) (map[string]any, error)

	// Events delivers network events in arrival order. The channel is
	// closed by Stop.
	Events() <-chan Event
}
