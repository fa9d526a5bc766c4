package zstack

import (
	"errors"
	"testing"

	"github.com/tubededentifrice/zigbee-herdsman/internal/adapter"
)

func TestChannelMask(t *testing.T) {
	tests := []struct {
		name     string
		channels []int
		want     uint32
	}{
		{"single primary", []int{11}, 0x00000800},
		{"multiple", []int{11, 15, 20, 25}, 0x00000800 | 0x00008000 | 0x00100000 | 0x02000000},
		{"out of band ignored", []int{10, 11, 27}, 0x00000800},
		{"empty", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := channelMask(tt.channels); got != tt.want {
				t.Errorf("channelMask(%v) = %#08x, want %#08x", tt.channels, got, tt.want)
			}
		})
	}
}

func TestNVWriteData(t *testing.T) {
	got := nvWriteData(nvPANID, []byte{0x62, 0x1A})

	want := []byte{0x83, 0x00, 0x00, 0x02, 0x62, 0x1A}
	if len(got) != len(want) {
		t.Fatalf("payload = % x, want % x", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("payload = % x, want % x", got, want)
		}
	}
}

func TestTransportLossEmitsDisconnected(t *testing.T) {
	a := New(Options{})
	a.started = true

	cause := errors.New("read /dev/ttyUSB0: input/output error")
	a.onTransportClosed(cause)

	select {
	case ev := <-a.events:
		disc, ok := ev.(adapter.Disconnected)
		if !ok {
			t.Fatalf("event = %T, want adapter.Disconnected", ev)
		}
		if !errors.Is(disc.Reason, cause) {
			t.Errorf("reason = %v", disc.Reason)
		}
	default:
		t.Fatal("no event emitted on transport loss")
	}
}

func TestTransportLossAfterStopIsSilent(t *testing.T) {
	a := New(Options{})

	a.onTransportClosed(errors.New("broken pipe"))

	select {
	case ev := <-a.events:
		t.Fatalf("unexpected event %T from a stopped adapter", ev)
	default:
	}
}
