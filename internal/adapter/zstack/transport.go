package zstack

import (
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"go.bug.st/serial"
)

const dialTimeout = 10 * time.Second

// openTransport opens the link to the coordinator. A path starting with
// tcp:// dials a network-attached adapter (ser2net and friends);
// anything else is treated as a local serial device.
func openTransport(ctx context.Context, path string, baudRate int, rtscts bool) (io.ReadWriteCloser, error) {
	if address, ok := strings.CutPrefix(path, "tcp://"); ok {
		dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
		defer cancel()

		var dialer net.Dialer
		conn, err := dialer.DialContext(dialCtx, "tcp", address)
		if err != nil {
			return nil, fmt.Errorf("dial %s: %w", path, err)
		}
		return conn, nil
	}

	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", path, err)
	}

	if rtscts {
		// go.bug.st/serial has no portable RTS/CTS mode flag; assert RTS
		// manually for adapters that gate their UART on it.
		if err := port.SetRTS(true); err != nil {
			port.Close()
			return nil, fmt.Errorf("assert RTS on %s: %w", path, err)
		}
	}

	return port, nil
}
