package zstack

import (
	"encoding/binary"
	"fmt"

	"github.com/tubededentifrice/zigbee-herdsman/internal/device"
)

// Parsers for ZNP payloads. All multi-byte fields are little-endian.

// incomingMsg is a parsed AF_INCOMING_MSG indication.
type incomingMsg struct {
	GroupID        uint16
	ClusterID      uint16
	SourceAddress  uint16
	SourceEndpoint uint8
	WasBroadcast   bool
	LinkQuality    uint8
	Data           []byte
}

// afIncomingMsgHeaderLen is the fixed prefix before the ZCL payload:
// group(2) cluster(2) src(2) srcEp(1) dstEp(1) broadcast(1) lqi(1)
// security(1) timestamp(4) transSeq(1) len(1).
const afIncomingMsgHeaderLen = 17

func parseIncomingMsg(data []byte) (incomingMsg, error) {
	if len(data) < afIncomingMsgHeaderLen {
		return incomingMsg{}, fmt.Errorf("zstack: AF_INCOMING_MSG too short: %d bytes", len(data))
	}

	payloadLen := int(data[16])
	if len(data) < afIncomingMsgHeaderLen+payloadLen {
		return incomingMsg{}, fmt.Errorf("zstack: AF_INCOMING_MSG payload truncated: want %d, have %d",
			payloadLen, len(data)-afIncomingMsgHeaderLen)
	}

	return incomingMsg{
		GroupID:        binary.LittleEndian.Uint16(data[0:]),
		ClusterID:      binary.LittleEndian.Uint16(data[2:]),
		SourceAddress:  binary.LittleEndian.Uint16(data[4:]),
		SourceEndpoint: data[6],
		WasBroadcast:   data[8] != 0,
		LinkQuality:    data[9],
		Data:           data[afIncomingMsgHeaderLen : afIncomingMsgHeaderLen+payloadLen],
	}, nil
}

// parseDeviceJoin handles ZDO_TC_DEV_IND:
// nwkaddr(2) extaddr(8) parentaddr(2).
func parseDeviceJoin(data []byte) (networkAddress uint16, ieeeAddress string, err error) {
	if len(data) < 12 {
		return 0, "", fmt.Errorf("zstack: TC_DEV_IND too short: %d bytes", len(data))
	}
	return binary.LittleEndian.Uint16(data[0:]),
		device.FormatIEEEAddress(binary.LittleEndian.Uint64(data[2:])),
		nil
}

// parseDeviceAnnounce handles ZDO_END_DEVICE_ANNCE_IND:
// srcaddr(2) nwkaddr(2) ieee(8) capabilities(1).
func parseDeviceAnnounce(data []byte) (networkAddress uint16, ieeeAddress string, err error) {
	if len(data) < 13 {
		return 0, "", fmt.Errorf("zstack: END_DEVICE_ANNCE_IND too short: %d bytes", len(data))
	}
	return binary.LittleEndian.Uint16(data[2:]),
		device.FormatIEEEAddress(binary.LittleEndian.Uint64(data[4:])),
		nil
}

// parseDeviceLeave handles ZDO_LEAVE_IND:
// srcaddr(2) extaddr(8) request(1) removechildren(1) rejoin(1).
func parseDeviceLeave(data []byte) (networkAddress uint16, ieeeAddress string, err error) {
	if len(data) < 10 {
		return 0, "", fmt.Errorf("zstack: LEAVE_IND too short: %d bytes", len(data))
	}
	return binary.LittleEndian.Uint16(data[0:]),
		device.FormatIEEEAddress(binary.LittleEndian.Uint64(data[2:])),
		nil
}

// parseDeviceInfo handles the UTIL_GET_DEVICE_INFO response:
// status(1) ieee(8) shortaddr(2) devicetype(1) devicestate(1) ...
func parseDeviceInfo(data []byte) (ieeeAddress string, networkAddress uint16, err error) {
	if len(data) < 12 {
		return "", 0, fmt.Errorf("zstack: device info too short: %d bytes", len(data))
	}
	if data[0] != 0 {
		return "", 0, fmt.Errorf("zstack: device info status 0x%02x", data[0])
	}
	return device.FormatIEEEAddress(binary.LittleEndian.Uint64(data[1:])),
		binary.LittleEndian.Uint16(data[9:]),
		nil
}

// logicalDeviceTypes maps node descriptor type bits to the symbolic names
// used upstream.
var logicalDeviceTypes = map[uint8]string{
	0: "coordinator",
	1: "router",
	2: "endDevice",
}

// parseNodeDescRsp handles ZDO_NODE_DESC_RSP:
// srcaddr(2) status(1) nwkaddr(2) type+flags(1) aps(1) maccap(1)
// manufacturer(2) ...
func parseNodeDescRsp(data []byte) (logicalType string, manufacturerID uint16, err error) {
	if len(data) < 10 {
		return "", 0, fmt.Errorf("zstack: NODE_DESC_RSP too short: %d bytes", len(data))
	}
	if data[2] != 0 {
		return "", 0, fmt.Errorf("zstack: NODE_DESC_RSP status 0x%02x", data[2])
	}

	logicalType, ok := logicalDeviceTypes[data[5]&0x07]
	if !ok {
		return "", 0, fmt.Errorf("zstack: reserved logical type %d", data[5]&0x07)
	}
	return logicalType, binary.LittleEndian.Uint16(data[8:]), nil
}

// parseActiveEpRsp handles ZDO_ACTIVE_EP_RSP:
// srcaddr(2) status(1) nwkaddr(2) count(1) endpoints(count).
func parseActiveEpRsp(data []byte) ([]uint8, error) {
	if len(data) < 6 {
		return nil, fmt.Errorf("zstack: ACTIVE_EP_RSP too short: %d bytes", len(data))
	}
	if data[2] != 0 {
		return nil, fmt.Errorf("zstack: ACTIVE_EP_RSP status 0x%02x", data[2])
	}

	count := int(data[5])
	if len(data) < 6+count {
		return nil, fmt.Errorf("zstack: ACTIVE_EP_RSP endpoint list truncated")
	}
	return append([]uint8(nil), data[6:6+count]...), nil
}

// parseSimpleDescRsp handles ZDO_SIMPLE_DESC_RSP:
// srcaddr(2) status(1) nwkaddr(2) len(1) endpoint(1) profile(2)
// deviceid(2) devicever(1) numIn(1) in(2*n) numOut(1) out(2*m).
func parseSimpleDescRsp(data []byte) (endpoint uint8, profileID, deviceID uint16, in, out []uint16, err error) {
	if len(data) < 12 {
		return 0, 0, 0, nil, nil, fmt.Errorf("zstack: SIMPLE_DESC_RSP too short: %d bytes", len(data))
	}
	if data[2] != 0 {
		return 0, 0, 0, nil, nil, fmt.Errorf("zstack: SIMPLE_DESC_RSP status 0x%02x", data[2])
	}

	endpoint = data[6]
	profileID = binary.LittleEndian.Uint16(data[7:])
	deviceID = binary.LittleEndian.Uint16(data[9:])

	idx := 12
	in, idx, err = parseClusterList(data, idx)
	if err != nil {
		return 0, 0, 0, nil, nil, err
	}
	out, _, err = parseClusterList(data, idx)
	if err != nil {
		return 0, 0, 0, nil, nil, err
	}

	return endpoint, profileID, deviceID, in, out, nil
}

// parseClusterList reads a count-prefixed list of 16-bit cluster ids
// whose count byte sits at idx. Returns the ids and the index just past
// the list.
func parseClusterList(data []byte, idx int) ([]uint16, int, error) {
	if len(data) <= idx {
		return nil, 0, fmt.Errorf("zstack: cluster list count missing")
	}
	count := int(data[idx])
	idx++
	if len(data) < idx+count*2 {
		return nil, 0, fmt.Errorf("zstack: cluster list truncated: want %d ids", count)
	}

	ids := make([]uint16, count)
	for i := range ids {
		ids[i] = binary.LittleEndian.Uint16(data[idx+i*2:])
	}
	return ids, idx + count*2, nil
}
