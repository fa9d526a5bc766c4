package zcl

import "strconv"

// FrameType distinguishes profile-wide (global) commands from
// cluster-specific commands.
type FrameType uint8

// Frame type constants.
const (
	// FrameTypeGlobal marks profile-wide commands (read, report, default response).
	FrameTypeGlobal FrameType = 0

	// FrameTypeSpecific marks cluster commands (on, off, move, recall, ...).
	FrameTypeSpecific FrameType = 1
)

// Global command identifiers.
const (
	// CommandIDReadResponse is the global "read attributes response" command.
	CommandIDReadResponse uint8 = 0x01

	// CommandIDReport is the global "report attributes" command.
	CommandIDReport uint8 = 0x0A

	// CommandIDDefaultResponse is the global "default response" command.
	CommandIDDefaultResponse uint8 = 0x0B
)

// Symbolic names for global commands, as produced by the codec.
const (
	CommandReport          = "report"
	CommandReadResponse    = "readRsp"
	CommandDefaultResponse = "defaultRsp"
)

// StatusSuccess is the ZCL status code for a successful operation.
const StatusSuccess uint8 = 0x00

// Header is the decoded frame header.
type Header struct {
	// Type is the frame type flag from the frame control field.
	Type FrameType

	// DisableDefaultResponse suppresses the default-response obligation
	// when set by the sender.
	DisableDefaultResponse bool

	// TransactionSequence correlates a response with its request.
	TransactionSequence uint8

	// CommandID is the command identifier within the frame type's space.
	CommandID uint8
}

// AttributeRecord is a single decoded attribute from a report or
// read-response frame.
type AttributeRecord struct {
	// ID is the attribute identifier within the cluster.
	ID uint16

	// Name is the symbolic attribute name, empty when the codec does not
	// know the attribute.
	Name string

	// Value is the decoded attribute value.
	Value any
}

// Frame is a decoded application-layer frame.
//
// Decoding happens behind the Adapter boundary; this package only defines
// the structured model shared by the controller and the adapter.
type Frame struct {
	Header    Header
	ClusterID uint16

	// CommandName is the symbolic command name resolved by the codec
	// (e.g. "report", "commandOn"). Empty when the codec cannot name it.
	CommandName string

	// Attributes holds the decoded records of global report and
	// read-response frames. Nil for cluster-specific commands.
	Attributes []AttributeRecord

	// Payload is the decoded body of cluster-specific commands, keyed by
	// field name. Nil for global frames.
	Payload map[string]any
}

// IsGlobal reports whether the frame carries a profile-wide command.
func (f Frame) IsGlobal() bool {
	return f.Header.Type == FrameTypeGlobal
}

// AttributeMap flattens the frame's attribute records into a name→value map.
// Named attributes are keyed by name; unnamed ones by their decimal id, so
// no record is silently lost.
func (f Frame) AttributeMap() map[string]any {
	if len(f.Attributes) == 0 {
		return map[string]any{}
	}

	out := make(map[string]any, len(f.Attributes))
	for _, rec := range f.Attributes {
		key := rec.Name
		if key == "" {
			key = strconv.Itoa(int(rec.ID))
		}
		out[key] = rec.Value
	}
	return out
}

// NewDefaultResponse builds the default-response frame for a received
// command: same cluster, addressed to the original command id, success
// status. The response itself must never solicit another default response.
func NewDefaultResponse(clusterID uint16, toCommandID, transactionSequence uint8) Frame {
	return Frame{
		Header: Header{
			Type:                   FrameTypeGlobal,
			DisableDefaultResponse: true,
			TransactionSequence:    transactionSequence,
			CommandID:              CommandIDDefaultResponse,
		},
		ClusterID:   clusterID,
		CommandName: CommandDefaultResponse,
		Payload: map[string]any{
			"cmdId":      toCommandID,
			"statusCode": StatusSuccess,
		},
	}
}
