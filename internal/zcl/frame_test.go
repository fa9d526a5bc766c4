package zcl

import "testing"

func TestAttributeMapNamedAndNumericKeys(t *testing.T) {
	f := Frame{
		Attributes: []AttributeRecord{
			{ID: 5, Name: AttrModelID, Value: "TRADFRI bulb E27"},
			{ID: 0xFF01, Name: "", Value: 42},
		},
	}

	got := f.AttributeMap()
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[AttrModelID] != "TRADFRI bulb E27" {
		t.Errorf("modelId = %v", got[AttrModelID])
	}
	if got["65281"] != 42 {
		t.Errorf("numeric-keyed attribute = %v", got["65281"])
	}
}

func TestAttributeMapEmpty(t *testing.T) {
	f := Frame{}
	got := f.AttributeMap()
	if got == nil {
		t.Fatal("expected non-nil map")
	}
	if len(got) != 0 {
		t.Fatalf("expected empty map, got %d entries", len(got))
	}
}

func TestModelID(t *testing.T) {
	tests := []struct {
		name       string
		attributes map[string]any
		want       string
		wantOK     bool
	}{
		{"present", map[string]any{AttrModelID: "lumi.sensor_motion"}, "lumi.sensor_motion", true},
		{"absent", map[string]any{"onOff": true}, "", false},
		{"wrong type", map[string]any{AttrModelID: 7}, "", false},
		{"empty string", map[string]any{AttrModelID: ""}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ModelID(tt.attributes)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("model = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCommandKindClosedTable(t *testing.T) {
	kind, ok := CommandKind("commandToggle")
	if !ok {
		t.Fatal("commandToggle should be in the table")
	}
	if kind != KindCommandToggle {
		t.Errorf("kind = %q", kind)
	}

	if _, ok := CommandKind("commandEnrollReq"); ok {
		t.Error("unmapped command should not resolve to a kind")
	}
	if _, ok := CommandKind(""); ok {
		t.Error("empty name should not resolve to a kind")
	}
}

func TestNewDefaultResponse(t *testing.T) {
	rsp := NewDefaultResponse(0x0006, 0x02, 117)

	if rsp.Header.Type != FrameTypeGlobal {
		t.Error("default response must be a global command")
	}
	if !rsp.Header.DisableDefaultResponse {
		t.Error("default response must not solicit another default response")
	}
	if rsp.Header.TransactionSequence != 117 {
		t.Errorf("sequence = %d, want 117", rsp.Header.TransactionSequence)
	}
	if rsp.Header.CommandID != CommandIDDefaultResponse {
		t.Errorf("command id = %#x", rsp.Header.CommandID)
	}
	if rsp.ClusterID != 0x0006 {
		t.Errorf("cluster = %#x, want 0x0006", rsp.ClusterID)
	}
	if rsp.Payload["cmdId"] != uint8(0x02) {
		t.Errorf("cmdId = %v", rsp.Payload["cmdId"])
	}
	if rsp.Payload["statusCode"] != StatusSuccess {
		t.Errorf("statusCode = %v", rsp.Payload["statusCode"])
	}
}
