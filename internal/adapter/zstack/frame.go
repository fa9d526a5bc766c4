package zstack

import (
	"errors"
	"fmt"
	"io"
)

// MT (Monitor and Test) framing for Texas Instruments Z-Stack (ZNP)
// coordinators. Every frame on the serial line is:
//
//	SOF(1) | length(1) | cmd0(1) | cmd1(1) | data(length) | FCS(1)
//
// cmd0 carries the frame type in its upper three bits and the subsystem
// in the lower five. FCS is the XOR of every byte from length to the end
// of data.
const (
	sof = 0xFE

	// maxDataLength is the MT payload limit (length is a single byte,
	// capped below 255 by the ZNP firmware).
	maxDataLength = 250

	frameOverhead = 5 // SOF + length + cmd0 + cmd1 + FCS
)

// Frame types (upper three bits of cmd0).
const (
	typePoll uint8 = 0x00
	typeSREQ uint8 = 0x20 // synchronous request
	typeAREQ uint8 = 0x40 // asynchronous message
	typeSRSP uint8 = 0x60 // synchronous response

	typeMask      uint8 = 0xE0
	subsystemMask uint8 = 0x1F
)

// ZNP subsystems.
const (
	subsysSYS  uint8 = 0x01
	subsysAF   uint8 = 0x04
	subsysZDO  uint8 = 0x05
	subsysUTIL uint8 = 0x07
)

// Framing errors.
var (
	ErrBadChecksum   = errors.New("zstack: frame checksum mismatch")
	ErrFrameTooLarge = errors.New("zstack: frame data exceeds MT limit")
)

// mtFrame is one MT frame, decoded.
type mtFrame struct {
	Type      uint8
	Subsystem uint8
	Command   uint8
	Data      []byte
}

// encode renders the frame for the wire.
func (f mtFrame) encode() ([]byte, error) {
	if len(f.Data) > maxDataLength {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(f.Data))
	}

	out := make([]byte, 0, len(f.Data)+frameOverhead)
	out = append(out, sof, byte(len(f.Data)), f.Type|f.Subsystem, f.Command)
	out = append(out, f.Data...)
	out = append(out, fcs(out[1:]))
	return out, nil
}

// fcs computes the XOR checksum over length, cmd0, cmd1 and data.
func fcs(b []byte) byte {
	var x byte
	for _, v := range b {
		x ^= v
	}
	return x
}

// readFrame reads one MT frame, scanning forward to the next SOF so a
// corrupted byte desynchronises a single frame rather than the stream.
func readFrame(r io.Reader) (mtFrame, error) {
	one := make([]byte, 1)
	for {
		if _, err := io.ReadFull(r, one); err != nil {
			return mtFrame{}, err
		}
		if one[0] == sof {
			break
		}
	}

	header := make([]byte, 3) // length, cmd0, cmd1
	if _, err := io.ReadFull(r, header); err != nil {
		return mtFrame{}, fmt.Errorf("read header: %w", err)
	}

	dataLen := int(header[0])
	body := make([]byte, dataLen+1) // data + FCS
	if _, err := io.ReadFull(r, body); err != nil {
		return mtFrame{}, fmt.Errorf("read body: %w", err)
	}

	sum := fcs(header)
	sum ^= fcs(body[:dataLen])
	if sum != body[dataLen] {
		return mtFrame{}, ErrBadChecksum
	}

	return mtFrame{
		Type:      header[1] & typeMask,
		Subsystem: header[1] & subsystemMask,
		Command:   header[2],
		Data:      body[:dataLen],
	}, nil
}
