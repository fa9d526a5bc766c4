package zstack

import (
	"bytes"
	"errors"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	in := mtFrame{
		Type:      typeSREQ,
		Subsystem: subsysZDO,
		Command:   zdoNodeDescReq,
		Data:      []byte{0x12, 0x4F, 0x12, 0x4F},
	}

	encoded, err := in.encode()
	if err != nil {
		t.Fatalf("encode() error = %v", err)
	}
	if encoded[0] != sof {
		t.Errorf("first byte = 0x%02x, want SOF 0x%02x", encoded[0], sof)
	}

	out, err := readFrame(bytes.NewReader(encoded))
	if err != nil {
		t.Fatalf("readFrame() error = %v", err)
	}
	if out.Type != in.Type || out.Subsystem != in.Subsystem || out.Command != in.Command {
		t.Errorf("header = %+v, want %+v", out, in)
	}
	if !bytes.Equal(out.Data, in.Data) {
		t.Errorf("data = %x, want %x", out.Data, in.Data)
	}
}

func TestFrameEmptyData(t *testing.T) {
	encoded, err := mtFrame{Type: typeSREQ, Subsystem: subsysSYS, Command: sysVersion}.encode()
	if err != nil {
		t.Fatalf("encode() error = %v", err)
	}

	out, err := readFrame(bytes.NewReader(encoded))
	if err != nil {
		t.Fatalf("readFrame() error = %v", err)
	}
	if len(out.Data) != 0 {
		t.Errorf("data length = %d, want 0", len(out.Data))
	}
}

func TestFrameTooLarge(t *testing.T) {
	_, err := mtFrame{Type: typeSREQ, Subsystem: subsysAF, Data: make([]byte, maxDataLength+1)}.encode()
	if !errors.Is(err, ErrFrameTooLarge) {
		t.Errorf("encode() error = %v, want ErrFrameTooLarge", err)
	}
}

func TestReadFrameBadChecksum(t *testing.T) {
	encoded, err := mtFrame{Type: typeSRSP, Subsystem: subsysSYS, Command: sysVersion, Data: []byte{1, 2}}.encode()
	if err != nil {
		t.Fatalf("encode() error = %v", err)
	}
	encoded[len(encoded)-1] ^= 0xFF

	_, err = readFrame(bytes.NewReader(encoded))
	if !errors.Is(err, ErrBadChecksum) {
		t.Errorf("readFrame() error = %v, want ErrBadChecksum", err)
	}
}

func TestReadFrameSkipsGarbageBeforeSOF(t *testing.T) {
	encoded, err := mtFrame{Type: typeAREQ, Subsystem: subsysZDO, Command: zdoTCDevInd, Data: []byte{0xAA}}.encode()
	if err != nil {
		t.Fatalf("encode() error = %v", err)
	}
	stream := append([]byte{0x00, 0x13, 0x37}, encoded...)

	out, err := readFrame(bytes.NewReader(stream))
	if err != nil {
		t.Fatalf("readFrame() error = %v", err)
	}
	if out.Command != zdoTCDevInd {
		t.Errorf("command = 0x%02x, want 0x%02x", out.Command, zdoTCDevInd)
	}
}
