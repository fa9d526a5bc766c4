package zstack

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

const srspTimeout = 6 * time.Second

// closeOnce wraps a channel with sync.Once to prevent double-close panics.
type closeOnce struct {
	ch   chan struct{}
	once sync.Once
}

func newCloseOnce() *closeOnce {
	return &closeOnce{ch: make(chan struct{})}
}

func (c *closeOnce) Close() {
	c.once.Do(func() { close(c.ch) })
}

func (c *closeOnce) Done() <-chan struct{} {
	return c.ch
}

// znpClient speaks the MT protocol over the transport: synchronous
// request/response pairs (SREQ/SRSP) plus asynchronous messages (AREQ)
// delivered to a callback.
//
// All methods are safe for concurrent use. Requests are serialised on
// the wire; ZNP answers an SREQ with exactly one SRSP carrying the same
// subsystem and command, so correlation is by that pair.
type znpClient struct {
	conn io.ReadWriteCloser

	writeMu sync.Mutex

	pending   map[uint16]chan mtFrame
	pendingMu sync.Mutex

	onAsync func(mtFrame)

	// onClosed runs when the read loop exits on a transport error.
	// Close suppresses it.
	onClosed func(error)

	done *closeOnce
	wg   sync.WaitGroup

	logger Logger
}

func newZNPClient(conn io.ReadWriteCloser, onAsync func(mtFrame), onClosed func(error), logger Logger) *znpClient {
	c := &znpClient{
		conn:     conn,
		pending:  make(map[uint16]chan mtFrame),
		onAsync:  onAsync,
		onClosed: onClosed,
		done:     newCloseOnce(),
		logger:   logger,
	}

	c.wg.Add(1)
	go c.readLoop()

	return c
}

func pendingKey(subsystem, command uint8) uint16 {
	return uint16(subsystem)<<8 | uint16(command)
}

// Request sends an SREQ and waits for the matching SRSP.
func (c *znpClient) Request(ctx context.Context, subsystem, command uint8, data []byte) ([]byte, error) {
	key := pendingKey(subsystem, command)
	ch := make(chan mtFrame, 1)

	c.pendingMu.Lock()
	if _, busy := c.pending[key]; busy {
		c.pendingMu.Unlock()
		return nil, fmt.Errorf("zstack: request 0x%02x/0x%02x already in flight", subsystem, command)
	}
	c.pending[key] = ch
	c.pendingMu.Unlock()

	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, key)
		c.pendingMu.Unlock()
	}()

	if err := c.write(mtFrame{Type: typeSREQ, Subsystem: subsystem, Command: command, Data: data}); err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("zstack: request 0x%02x/0x%02x: %w", subsystem, command, ctx.Err())
	case <-c.done.Done():
		return nil, errClientClosed
	case <-time.After(srspTimeout):
		return nil, fmt.Errorf("zstack: request 0x%02x/0x%02x: no response after %v", subsystem, command, srspTimeout)
	case rsp := <-ch:
		return rsp.Data, nil
	}
}

// Send transmits an outbound AREQ (fire and forget).
func (c *znpClient) Send(subsystem, command uint8, data []byte) error {
	return c.write(mtFrame{Type: typeAREQ, Subsystem: subsystem, Command: command, Data: data})
}

func (c *znpClient) write(f mtFrame) error {
	encoded, err := f.encode()
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	select {
	case <-c.done.Done():
		return errClientClosed
	default:
	}

	if _, err := c.conn.Write(encoded); err != nil {
		return fmt.Errorf("zstack: write frame: %w", err)
	}
	return nil
}

// readLoop reads frames until the transport closes. Checksum failures
// drop the frame and resynchronise on the next SOF.
func (c *znpClient) readLoop() {
	defer c.wg.Done()

	for {
		frame, err := readFrame(c.conn)
		if err != nil {
			if errors.Is(err, ErrBadChecksum) {
				c.logger.Warn("dropping corrupt frame", "error", err)
				continue
			}
			select {
			case <-c.done.Done():
			default:
				c.logger.Error("serial read failed", "error", err)
				if c.onClosed != nil {
					c.onClosed(err)
				}
			}
			return
		}

		switch frame.Type {
		case typeSRSP:
			c.deliverResponse(frame)
		case typeAREQ:
			if c.onAsync != nil {
				c.onAsync(frame)
			}
		default:
			c.logger.Debug("ignoring frame of unexpected type",
				"type", frame.Type, "subsystem", frame.Subsystem, "command", frame.Command)
		}
	}
}

func (c *znpClient) deliverResponse(frame mtFrame) {
	key := pendingKey(frame.Subsystem, frame.Command)

	c.pendingMu.Lock()
	ch := c.pending[key]
	c.pendingMu.Unlock()

	if ch == nil {
		c.logger.Debug("unsolicited SRSP",
			"subsystem", frame.Subsystem, "command", frame.Command)
		return
	}

	select {
	case ch <- frame:
	default:
	}
}

// Close shuts the client down and waits for the read loop to exit.
func (c *znpClient) Close() error {
	c.done.Close()
	err := c.conn.Close()
	c.wg.Wait()
	return err
}

var errClientClosed = errors.New("zstack: client closed")
