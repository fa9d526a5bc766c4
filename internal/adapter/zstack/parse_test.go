package zstack

import (
	"reflect"
	"testing"
)

func TestParseIncomingMsg(t *testing.T) {
	data := []byte{
		0x00, 0x00, // group 0
		0x06, 0x00, // cluster on/off
		0x12, 0x4F, // source 0x4F12
		0x01,                   // source endpoint
		0x01,                   // destination endpoint
		0x00,                   // not broadcast
		0xB4,                   // lqi 180
		0x00,                   // security
		0x00, 0x00, 0x00, 0x00, // timestamp
		0x07,             // transaction sequence
		0x03,             // payload length
		0x01, 0x2A, 0x01, // zcl: cluster specific, seq 42, on
	}

	msg, err := parseIncomingMsg(data)
	if err != nil {
		t.Fatalf("parseIncomingMsg() error = %v", err)
	}
	if msg.ClusterID != 0x0006 {
		t.Errorf("ClusterID = 0x%04x, want 0x0006", msg.ClusterID)
	}
	if msg.SourceAddress != 0x4F12 {
		t.Errorf("SourceAddress = 0x%04x, want 0x4F12", msg.SourceAddress)
	}
	if msg.LinkQuality != 180 {
		t.Errorf("LinkQuality = %d, want 180", msg.LinkQuality)
	}
	if msg.WasBroadcast {
		t.Error("WasBroadcast = true, want false")
	}
	if len(msg.Data) != 3 {
		t.Errorf("payload length = %d, want 3", len(msg.Data))
	}
}

func TestParseIncomingMsgTruncated(t *testing.T) {
	if _, err := parseIncomingMsg([]byte{0x00, 0x01}); err == nil {
		t.Error("parseIncomingMsg() should reject short payloads")
	}
}

func TestParseDeviceAnnounce(t *testing.T) {
	data := []byte{
		0x12, 0x4F, // srcaddr
		0x34, 0xA1, // nwkaddr 0xA134
		0x22, 0x5B, 0x8A, 0xFE, 0xFF, 0x57, 0x0B, 0x00, // ieee LE
		0x8E, // capabilities
	}

	nwk, ieee, err := parseDeviceAnnounce(data)
	if err != nil {
		t.Fatalf("parseDeviceAnnounce() error = %v", err)
	}
	if nwk != 0xA134 {
		t.Errorf("network address = 0x%04x, want 0xA134", nwk)
	}
	if ieee != "0x000b57fffe8a5b22" {
		t.Errorf("ieee = %q, want 0x000b57fffe8a5b22", ieee)
	}
}

func TestParseNodeDescRsp(t *testing.T) {
	data := []byte{
		0x12, 0x4F, // srcaddr
		0x00,       // status success
		0x12, 0x4F, // nwkaddr
		0x01,       // logical type: router
		0x40,       // aps flags
		0x8E,       // mac capabilities
		0x7C, 0x11, // manufacturer 0x117C
		0x52, // max buffer
	}

	logicalType, manufacturer, err := parseNodeDescRsp(data)
	if err != nil {
		t.Fatalf("parseNodeDescRsp() error = %v", err)
	}
	if logicalType != "router" {
		t.Errorf("type = %q, want router", logicalType)
	}
	if manufacturer != 0x117C {
		t.Errorf("manufacturer = 0x%04x, want 0x117C", manufacturer)
	}
}

func TestParseNodeDescRspFailureStatus(t *testing.T) {
	data := []byte{0x12, 0x4F, 0x80, 0x12, 0x4F, 0x01, 0x40, 0x8E, 0x7C, 0x11}
	if _, _, err := parseNodeDescRsp(data); err == nil {
		t.Error("parseNodeDescRsp() should reject failure status")
	}
}

func TestParseActiveEpRsp(t *testing.T) {
	data := []byte{
		0x12, 0x4F, 0x00, 0x12, 0x4F,
		0x02,       // two endpoints
		0x01, 0xF2, // endpoints 1 and 242
	}

	endpoints, err := parseActiveEpRsp(data)
	if err != nil {
		t.Fatalf("parseActiveEpRsp() error = %v", err)
	}
	if !reflect.DeepEqual(endpoints, []uint8{1, 242}) {
		t.Errorf("endpoints = %v, want [1 242]", endpoints)
	}
}

func TestParseSimpleDescRsp(t *testing.T) {
	data := []byte{
		0x12, 0x4F, 0x00, 0x12, 0x4F,
		0x0E,       // descriptor length
		0x01,       // endpoint
		0x04, 0x01, // profile 0x0104
		0x00, 0x01, // device id 0x0100
		0x01,       // device version
		0x02,       // two input clusters
		0x00, 0x00, // basic
		0x06, 0x00, // on/off
		0x01,       // one output cluster
		0x19, 0x00, // ota
	}

	endpoint, profileID, deviceID, in, out, err := parseSimpleDescRsp(data)
	if err != nil {
		t.Fatalf("parseSimpleDescRsp() error = %v", err)
	}
	if endpoint != 1 || profileID != 0x0104 || deviceID != 0x0100 {
		t.Errorf("descriptor = ep %d profile 0x%04x device 0x%04x", endpoint, profileID, deviceID)
	}
	if !reflect.DeepEqual(in, []uint16{0x0000, 0x0006}) {
		t.Errorf("input clusters = %v, want [0x0000 0x0006]", in)
	}
	if !reflect.DeepEqual(out, []uint16{0x0019}) {
		t.Errorf("output clusters = %v, want [0x0019]", out)
	}
}

func TestParseDeviceInfo(t *testing.T) {
	data := []byte{
		0x00,                                           // status
		0x77, 0x9F, 0xD6, 0x09, 0x00, 0x4B, 0x12, 0x00, // ieee LE
		0x00, 0x00, // short address 0x0000
		0x07, // device type
		0x09, // device state: coordinator
		0x00, // no associated devices
	}

	ieee, nwk, err := parseDeviceInfo(data)
	if err != nil {
		t.Fatalf("parseDeviceInfo() error = %v", err)
	}
	if ieee != "0x00124b0009d69f77" {
		t.Errorf("ieee = %q, want 0x00124b0009d69f77", ieee)
	}
	if nwk != 0x0000 {
		t.Errorf("network address = 0x%04x, want 0x0000", nwk)
	}
}
