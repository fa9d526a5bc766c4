package zstack

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/tubededentifrice/zigbee-herdsman/internal/device"
	"github.com/tubededentifrice/zigbee-herdsman/internal/zcl"
)

// ZCL binary codec. Frames arriving in AF_INCOMING_MSG payloads are
// decoded into the structured model; outbound frames are rendered back
// to bytes for AF_DATA_REQUEST.
//
// Frame layout: frame control(1) [manufacturer code(2)] sequence(1)
// command(1) payload. Frame control bits: 0-1 frame type, 2 manufacturer
// specific, 3 direction, 4 disable default response.

const (
	fcTypeMask               = 0x03
	fcManufacturerSpecific   = 0x04
	fcDisableDefaultResponse = 0x10
)

// ZCL global command ids handled by the codec.
const (
	cmdReadAttributes uint8 = 0x00
)

// ZCL data type identifiers.
const (
	typeBool     byte = 0x10
	typeBitmap8  byte = 0x18
	typeBitmap16 byte = 0x19
	typeBitmap32 byte = 0x1B
	typeUint8    byte = 0x20
	typeUint16   byte = 0x21
	typeUint24   byte = 0x22
	typeUint32   byte = 0x23
	typeInt8     byte = 0x28
	typeInt16    byte = 0x29
	typeInt32    byte = 0x2B
	typeEnum8    byte = 0x30
	typeEnum16   byte = 0x31
	typeSingle   byte = 0x39
	typeDouble   byte = 0x3A
	typeOctStr   byte = 0x41
	typeCharStr  byte = 0x42
	typeIEEEAddr byte = 0xF0
)

// attributeNames maps cluster and attribute ids to the symbolic names
// the rest of the system works in.
var attributeNames = map[uint16]map[uint16]string{
	zcl.ClusterBasic: {
		0x0000: "zclVersion",
		0x0001: "appVersion",
		0x0002: "stackVersion",
		0x0003: "hwVersion",
		0x0004: zcl.AttrManufacturerName,
		0x0005: zcl.AttrModelID,
		0x0006: "dateCode",
		0x0007: "powerSource",
	},
	0x0001: { // power configuration
		0x0020: "batteryVoltage",
		0x0021: "batteryPercentageRemaining",
	},
	0x0006: { // on/off
		0x0000: "onOff",
	},
	0x0008: { // level control
		0x0000: "currentLevel",
	},
	0x0300: { // colour control
		0x0003: "currentX",
		0x0004: "currentY",
		0x0007: "colorTemperature",
	},
	0x0402: { // temperature measurement
		0x0000: "measuredValue",
	},
	0x0405: { // humidity measurement
		0x0000: "measuredValue",
	},
	0x0406: { // occupancy sensing
		0x0000: "occupancy",
	},
}

func attributeName(clusterID, attrID uint16) string {
	return attributeNames[clusterID][attrID]
}

// attributeID resolves a symbolic attribute name within a cluster.
func attributeID(clusterID uint16, name string) (uint16, bool) {
	for id, n := range attributeNames[clusterID] {
		if n == name {
			return id, true
		}
	}
	return 0, false
}

// paramSpec is one fixed-position field of a cluster command payload.
type paramSpec struct {
	name   string
	typeID byte
}

// commandSpec names a received cluster command and its payload layout.
type commandSpec struct {
	name   string
	params []paramSpec
}

// clusterCommands is the closed decode table for cluster-specific
// commands, keyed by cluster then command id. Commands outside the table
// decode with an empty name and are skipped upstream.
var clusterCommands = map[uint16]map[uint8]commandSpec{
	0x0005: { // scenes
		0x04: {"commandStore", []paramSpec{{"groupid", typeUint16}, {"sceneid", typeUint8}}},
		0x05: {"commandRecall", []paramSpec{{"groupid", typeUint16}, {"sceneid", typeUint8}}},
		0x07: {"commandTradfriArrowSingle", []paramSpec{{"value", typeUint16}}},
		0x08: {"commandTradfriArrowHold", []paramSpec{{"value", typeUint16}}},
		0x09: {"commandTradfriArrowRelease", []paramSpec{{"value", typeUint16}}},
	},
	0x0006: { // on/off
		0x00: {"commandOff", nil},
		0x01: {"commandOn", nil},
		0x02: {"commandToggle", nil},
		0x40: {"commandOffWithEffect", []paramSpec{{"effectid", typeUint8}, {"effectvariant", typeUint8}}},
		0x42: {"commandOnWithTimedOff", []paramSpec{{"ctrlbits", typeUint8}, {"ontime", typeUint16}, {"offwaittime", typeUint16}}},
	},
	0x0008: { // level control
		0x00: {"commandMoveToLevel", []paramSpec{{"level", typeUint8}, {"transtime", typeUint16}}},
		0x01: {"commandMove", []paramSpec{{"movemode", typeUint8}, {"rate", typeUint8}}},
		0x02: {"commandStep", []paramSpec{{"stepmode", typeUint8}, {"stepsize", typeUint8}, {"transtime", typeUint16}}},
		0x03: {"commandStop", nil},
		0x04: {"commandMoveToLevelWithOnOff", []paramSpec{{"level", typeUint8}, {"transtime", typeUint16}}},
		0x05: {"commandMoveWithOnOff", []paramSpec{{"movemode", typeUint8}, {"rate", typeUint8}}},
		0x06: {"commandStepWithOnOff", []paramSpec{{"stepmode", typeUint8}, {"stepsize", typeUint8}, {"transtime", typeUint16}}},
		0x07: {"commandStopWithOnOff", nil},
	},
	0x0102: { // window covering
		0x00: {"commandUpOpen", nil},
		0x01: {"commandDownClose", nil},
	},
	0x0500: { // IAS zone
		0x00: {"commandStatusChangeNotification", []paramSpec{{"zonestatus", typeUint16}, {"extendedstatus", typeUint8}}},
	},
	0x0501: { // IAS ancillary control
		0x00: {"commandArm", []paramSpec{{"armmode", typeUint8}}},
		0x02: {"commandEmergency", nil},
		0x04: {"commandPanic", nil},
	},
}

// decodeZCLFrame parses one application frame from an AF payload.
func decodeZCLFrame(clusterID uint16, data []byte) (zcl.Frame, error) {
	if len(data) < 3 {
		return zcl.Frame{}, fmt.Errorf("zstack: zcl frame too short: %d bytes", len(data))
	}

	fc := data[0]
	idx := 1
	if fc&fcManufacturerSpecific != 0 {
		if len(data) < 5 {
			return zcl.Frame{}, fmt.Errorf("zstack: manufacturer frame too short: %d bytes", len(data))
		}
		idx += 2 // manufacturer code, not surfaced
	}

	frame := zcl.Frame{
		Header: zcl.Header{
			Type:                   zcl.FrameType(fc & fcTypeMask),
			DisableDefaultResponse: fc&fcDisableDefaultResponse != 0,
			TransactionSequence:    data[idx],
			CommandID:              data[idx+1],
		},
		ClusterID: clusterID,
	}
	payload := data[idx+2:]

	if frame.IsGlobal() {
		return decodeGlobalCommand(frame, payload)
	}
	return decodeClusterCommand(frame, payload), nil
}

func decodeGlobalCommand(frame zcl.Frame, payload []byte) (zcl.Frame, error) {
	switch frame.Header.CommandID {
	case zcl.CommandIDReport:
		frame.CommandName = zcl.CommandReport
		attrs, err := decodeReportRecords(frame.ClusterID, payload)
		if err != nil {
			return zcl.Frame{}, err
		}
		frame.Attributes = attrs

	case zcl.CommandIDReadResponse:
		frame.CommandName = zcl.CommandReadResponse
		attrs, err := decodeReadResponseRecords(frame.ClusterID, payload)
		if err != nil {
			return zcl.Frame{}, err
		}
		frame.Attributes = attrs

	case zcl.CommandIDDefaultResponse:
		frame.CommandName = zcl.CommandDefaultResponse
		if len(payload) >= 2 {
			frame.Payload = map[string]any{
				"cmdId":      payload[0],
				"statusCode": payload[1],
			}
		}
	}

	return frame, nil
}

func decodeClusterCommand(frame zcl.Frame, payload []byte) zcl.Frame {
	spec, ok := clusterCommands[frame.ClusterID][frame.Header.CommandID]
	if !ok {
		return frame // unnamed, dispatcher skips it
	}

	frame.CommandName = spec.name
	frame.Payload = make(map[string]any, len(spec.params))

	// Best-effort field decode: some devices truncate trailing fields.
	for _, p := range spec.params {
		if len(payload) == 0 {
			break
		}
		value, consumed, err := decodeValue(p.typeID, payload)
		if err != nil {
			break
		}
		frame.Payload[p.name] = value
		payload = payload[consumed:]
	}

	return frame
}

// decodeReportRecords parses report attribute records:
// attribute id(2) type(1) value.
func decodeReportRecords(clusterID uint16, payload []byte) ([]zcl.AttributeRecord, error) {
	var records []zcl.AttributeRecord
	for len(payload) > 0 {
		if len(payload) < 3 {
			return nil, fmt.Errorf("zstack: truncated report record: %d bytes left", len(payload))
		}
		attrID := binary.LittleEndian.Uint16(payload)
		value, consumed, err := decodeValue(payload[2], payload[3:])
		if err != nil {
			return nil, fmt.Errorf("zstack: attribute 0x%04x: %w", attrID, err)
		}
		records = append(records, zcl.AttributeRecord{
			ID:    attrID,
			Name:  attributeName(clusterID, attrID),
			Value: value,
		})
		payload = payload[3+consumed:]
	}
	return records, nil
}

// decodeReadResponseRecords parses read response records:
// attribute id(2) status(1) [type(1) value]. Failed reads are skipped.
func decodeReadResponseRecords(clusterID uint16, payload []byte) ([]zcl.AttributeRecord, error) {
	var records []zcl.AttributeRecord
	for len(payload) > 0 {
		if len(payload) < 3 {
			return nil, fmt.Errorf("zstack: truncated read response record: %d bytes left", len(payload))
		}
		attrID := binary.LittleEndian.Uint16(payload)
		status := payload[2]
		payload = payload[3:]

		if status != zcl.StatusSuccess {
			continue
		}
		if len(payload) < 1 {
			return nil, fmt.Errorf("zstack: read response for 0x%04x missing type", attrID)
		}

		value, consumed, err := decodeValue(payload[0], payload[1:])
		if err != nil {
			return nil, fmt.Errorf("zstack: attribute 0x%04x: %w", attrID, err)
		}
		records = append(records, zcl.AttributeRecord{
			ID:    attrID,
			Name:  attributeName(clusterID, attrID),
			Value: value,
		})
		payload = payload[1+consumed:]
	}
	return records, nil
}

// decodeValue decodes one typed value, returning the bytes consumed.
func decodeValue(typeID byte, b []byte) (any, int, error) {
	need := func(n int) error {
		if len(b) < n {
			return fmt.Errorf("value type 0x%02x needs %d bytes, have %d", typeID, n, len(b))
		}
		return nil
	}

	switch typeID {
	case typeBool:
		if err := need(1); err != nil {
			return nil, 0, err
		}
		return b[0] != 0, 1, nil

	case typeBitmap8, typeUint8, typeEnum8:
		if err := need(1); err != nil {
			return nil, 0, err
		}
		return uint64(b[0]), 1, nil

	case typeBitmap16, typeUint16, typeEnum16:
		if err := need(2); err != nil {
			return nil, 0, err
		}
		return uint64(binary.LittleEndian.Uint16(b)), 2, nil

	case typeUint24:
		if err := need(3); err != nil {
			return nil, 0, err
		}
		return uint64(b[0]) | uint64(b[1])<<8 | uint64(b[2])<<16, 3, nil

	case typeBitmap32, typeUint32:
		if err := need(4); err != nil {
			return nil, 0, err
		}
		return uint64(binary.LittleEndian.Uint32(b)), 4, nil

	case typeInt8:
		if err := need(1); err != nil {
			return nil, 0, err
		}
		return int64(int8(b[0])), 1, nil

	case typeInt16:
		if err := need(2); err != nil {
			return nil, 0, err
		}
		return int64(int16(binary.LittleEndian.Uint16(b))), 2, nil

	case typeInt32:
		if err := need(4); err != nil {
			return nil, 0, err
		}
		return int64(int32(binary.LittleEndian.Uint32(b))), 4, nil

	case typeSingle:
		if err := need(4); err != nil {
			return nil, 0, err
		}
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b))), 4, nil

	case typeDouble:
		if err := need(8); err != nil {
			return nil, 0, err
		}
		return math.Float64frombits(binary.LittleEndian.Uint64(b)), 8, nil

	case typeOctStr, typeCharStr:
		if err := need(1); err != nil {
			return nil, 0, err
		}
		strLen := int(b[0])
		if err := need(1 + strLen); err != nil {
			return nil, 0, err
		}
		return string(b[1 : 1+strLen]), 1 + strLen, nil

	case typeIEEEAddr:
		if err := need(8); err != nil {
			return nil, 0, err
		}
		return device.FormatIEEEAddress(binary.LittleEndian.Uint64(b)), 8, nil

	default:
		return nil, 0, fmt.Errorf("unsupported data type 0x%02x", typeID)
	}
}

// encodeZCLFrame renders an outbound frame. The codec encodes global
// commands with known payload shapes; cluster commands are sent with an
// empty payload.
func encodeZCLFrame(f zcl.Frame) ([]byte, error) {
	fc := byte(f.Header.Type) & fcTypeMask
	if f.Header.DisableDefaultResponse {
		fc |= fcDisableDefaultResponse
	}

	out := []byte{fc, f.Header.TransactionSequence, f.Header.CommandID}

	if f.IsGlobal() && f.Header.CommandID == zcl.CommandIDDefaultResponse {
		cmdID, ok := payloadByte(f.Payload, "cmdId")
		if !ok {
			return nil, fmt.Errorf("zstack: default response missing cmdId")
		}
		status, ok := payloadByte(f.Payload, "statusCode")
		if !ok {
			return nil, fmt.Errorf("zstack: default response missing statusCode")
		}
		out = append(out, cmdID, status)
	}

	return out, nil
}

// encodeReadRequest builds a global read-attributes frame for the given
// symbolic attribute names.
func encodeReadRequest(clusterID uint16, sequence uint8, attributes []string) ([]byte, error) {
	out := []byte{byte(zcl.FrameTypeGlobal) | fcDisableDefaultResponse, sequence, cmdReadAttributes}

	for _, name := range attributes {
		id, ok := attributeID(clusterID, name)
		if !ok {
			return nil, fmt.Errorf("zstack: unknown attribute %q on cluster 0x%04x", name, clusterID)
		}
		out = binary.LittleEndian.AppendUint16(out, id)
	}

	return out, nil
}

func payloadByte(payload map[string]any, key string) (byte, bool) {
	switch v := payload[key].(type) {
	case uint8:
		return v, true
	case int:
		return byte(v), true
	case uint64:
		return byte(v), true
	case int64:
		return byte(v), true
	default:
		return 0, false
	}
}
