package zstack

import (
	"reflect"
	"testing"

	"github.com/tubededentifrice/zigbee-herdsman/internal/zcl"
)

func TestDecodeAttributeReport(t *testing.T) {
	// Report on the basic cluster: modelId = "TRADFRI bulb".
	model := "TRADFRI bulb"
	payload := []byte{
		0x18,       // frame control: global, disable default response
		0x2A,       // sequence
		0x0A,       // report attributes
		0x05, 0x00, // attribute 0x0005
		0x42, // character string
		byte(len(model)),
	}
	payload = append(payload, model...)

	frame, err := decodeZCLFrame(zcl.ClusterBasic, payload)
	if err != nil {
		t.Fatalf("decodeZCLFrame() error = %v", err)
	}

	if frame.CommandName != zcl.CommandReport {
		t.Errorf("CommandName = %q, want report", frame.CommandName)
	}
	if !frame.Header.DisableDefaultResponse {
		t.Error("DisableDefaultResponse = false, want true")
	}
	if frame.Header.TransactionSequence != 0x2A {
		t.Errorf("TransactionSequence = %d, want 42", frame.Header.TransactionSequence)
	}

	attrs := frame.AttributeMap()
	if got, _ := zcl.ModelID(attrs); got != model {
		t.Errorf("modelId = %q, want %q", got, model)
	}
}

func TestDecodeReadResponse(t *testing.T) {
	payload := []byte{
		0x18, 0x07, 0x01, // global, seq 7, read response
		0x04, 0x00, 0x00, // manufacturerName, success
		0x42, 0x04, 'I', 'K', 'E', 'A',
		0x05, 0x00, 0x86, // modelId, UNSUPPORTED_ATTRIBUTE
	}

	frame, err := decodeZCLFrame(zcl.ClusterBasic, payload)
	if err != nil {
		t.Fatalf("decodeZCLFrame() error = %v", err)
	}

	attrs := frame.AttributeMap()
	if attrs[zcl.AttrManufacturerName] != "IKEA" {
		t.Errorf("manufacturerName = %v, want IKEA", attrs[zcl.AttrManufacturerName])
	}
	// The failed record must not appear.
	if _, present := attrs[zcl.AttrModelID]; present {
		t.Error("modelId present despite failed read status")
	}
}

func TestDecodeClusterCommand(t *testing.T) {
	payload := []byte{
		0x01,       // frame control: cluster specific
		0x11,       // sequence
		0x00,       // moveToLevel
		0xFE,       // level 254
		0x0A, 0x00, // transition time 10
	}

	frame, err := decodeZCLFrame(0x0008, payload)
	if err != nil {
		t.Fatalf("decodeZCLFrame() error = %v", err)
	}

	if frame.CommandName != "commandMoveToLevel" {
		t.Errorf("CommandName = %q, want commandMoveToLevel", frame.CommandName)
	}
	want := map[string]any{"level": uint64(254), "transtime": uint64(10)}
	if !reflect.DeepEqual(frame.Payload, want) {
		t.Errorf("Payload = %v, want %v", frame.Payload, want)
	}
}

func TestDecodeUnknownClusterCommand(t *testing.T) {
	payload := []byte{0x01, 0x05, 0x7F}

	frame, err := decodeZCLFrame(0x0006, payload)
	if err != nil {
		t.Fatalf("decodeZCLFrame() error = %v", err)
	}
	if frame.CommandName != "" {
		t.Errorf("CommandName = %q, want empty for unknown command", frame.CommandName)
	}
}

func TestDecodeNumericTypes(t *testing.T) {
	tests := []struct {
		name   string
		typeID byte
		bytes  []byte
		want   any
	}{
		{"bool true", typeBool, []byte{0x01}, true},
		{"uint8", typeUint8, []byte{0xC8}, uint64(200)},
		{"uint16", typeUint16, []byte{0x34, 0x12}, uint64(0x1234)},
		{"uint24", typeUint24, []byte{0x01, 0x02, 0x03}, uint64(0x030201)},
		{"int16 negative", typeInt16, []byte{0xFE, 0xFF}, int64(-2)},
		{"enum8", typeEnum8, []byte{0x03}, uint64(3)},
		{"ieee address", typeIEEEAddr,
			[]byte{0x22, 0x5B, 0x8A, 0xFE, 0xFF, 0x57, 0x0B, 0x00},
			"0x000b57fffe8a5b22"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, consumed, err := decodeValue(tt.typeID, tt.bytes)
			if err != nil {
				t.Fatalf("decodeValue() error = %v", err)
			}
			if consumed != len(tt.bytes) {
				t.Errorf("consumed = %d, want %d", consumed, len(tt.bytes))
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("value = %v (%T), want %v (%T)", got, got, tt.want, tt.want)
			}
		})
	}
}

func TestDecodeValueUnsupportedType(t *testing.T) {
	if _, _, err := decodeValue(0xFF, []byte{0x00}); err == nil {
		t.Error("decodeValue() should reject unknown type ids")
	}
}

func TestEncodeDefaultResponse(t *testing.T) {
	frame := zcl.NewDefaultResponse(0x0006, 0x01, 0x2A)

	encoded, err := encodeZCLFrame(frame)
	if err != nil {
		t.Fatalf("encodeZCLFrame() error = %v", err)
	}

	want := []byte{
		0x10,       // global + disable default response
		0x2A,       // sequence echoed
		0x0B,       // default response
		0x01, 0x00, // original command id, success
	}
	if !reflect.DeepEqual(encoded, want) {
		t.Errorf("encoded = %x, want %x", encoded, want)
	}
}

func TestEncodeReadRequest(t *testing.T) {
	encoded, err := encodeReadRequest(zcl.ClusterBasic, 0x07, []string{zcl.AttrModelID, zcl.AttrManufacturerName})
	if err != nil {
		t.Fatalf("encodeReadRequest() error = %v", err)
	}

	want := []byte{
		0x10, 0x07, 0x00, // global + DDR, seq 7, read attributes
		0x05, 0x00, // modelId
		0x04, 0x00, // manufacturerName
	}
	if !reflect.DeepEqual(encoded, want) {
		t.Errorf("encoded = %x, want %x", encoded, want)
	}
}

func TestEncodeReadRequestUnknownAttribute(t *testing.T) {
	if _, err := encodeReadRequest(zcl.ClusterBasic, 1, []string{"noSuchAttribute"}); err == nil {
		t.Error("encodeReadRequest() should reject unknown attribute names")
	}
}
