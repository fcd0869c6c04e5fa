// Package wt backs the dual-channel transport with WebTransport over QUIC.
// The control channel is a bidirectional stream carrying length-prefixed
// frames; the data channel maps onto QUIC datagrams, so data-channel loss
// is real here and the replication layer's snapshot fallback earns its keep.
package wt

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/quic-go/webtransport-go"

	"minigolf/server/internal/net/transport"
)

const maxControlFrame = 64 * 1024

// Conn adapts a WebTransport session to the dual-channel transport.
type Conn struct {
	session *webtransport.Session
	control *webtransport.Stream

	inbox  chan transport.Message
	errs   chan error
	cancel context.CancelFunc

	writeMu sync.Mutex
	closeMu sync.Mutex
	closed  bool
}

// NewConn wraps an upgraded session. It blocks until the client opens its
// control stream, then starts the channel readers.
func NewConn(ctx context.Context, session *webtransport.Session) (*Conn, error) {
	stream, err := session.AcceptStream(ctx)
	if err != nil {
		return nil, fmt.Errorf("wt: accept control stream: %w", err)
	}

	readCtx, cancel := context.WithCancel(context.Background())
	c := &Conn{
		session: session,
		control: stream,
		inbox:   make(chan transport.Message, 32),
		errs:    make(chan error, 2),
		cancel:  cancel,
	}
	go c.readControl(readCtx)
	go c.readDatagrams(readCtx)
	return c, nil
}

// SendControl writes a length-prefixed frame on the control stream.
func (c *Conn) SendControl(payload []byte) error {
	if len(payload) > maxControlFrame {
		return fmt.Errorf("wt: control frame too large: %d bytes", len(payload))
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.isClosed() {
		return transport.ErrClosed
	}
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(payload)))
	if _, err := c.control.Write(header[:]); err != nil {
		return err
	}
	_, err := c.control.Write(payload)
	return err
}

// SendData sends a datagram. Failures surface to the caller, which treats
// them as channel loss rather than connection death.
func (c *Conn) SendData(payload []byte) error {
	if c.isClosed() {
		return transport.ErrClosed
	}
	return c.session.SendDatagram(payload)
}

// Receive blocks until a message arrives on either channel.
func (c *Conn) Receive() (transport.Message, error) {
	select {
	case msg := <-c.inbox:
		return msg, nil
	case err := <-c.errs:
		return transport.Message{}, err
	}
}

func (c *Conn) readControl(ctx context.Context) {
	var header [4]byte
	for {
		if _, err := io.ReadFull(c.control, header[:]); err != nil {
			c.fail(err)
			return
		}
		size := binary.BigEndian.Uint32(header[:])
		if size > maxControlFrame {
			c.fail(fmt.Errorf("wt: control frame too large: %d bytes", size))
			return
		}
		payload := make([]byte, size)
		if _, err := io.ReadFull(c.control, payload); err != nil {
			c.fail(err)
			return
		}
		// Control frames are lossless, so block until the receiver drains
		// the inbox, but never outlive a closed connection.
		select {
		case c.inbox <- transport.Message{Channel: transport.ChannelControl, Payload: payload}:
		case <-ctx.Done():
			return
		}
	}
}

func (c *Conn) readDatagrams(ctx context.Context) {
	for {
		payload, err := c.session.ReceiveDatagram(ctx)
		if err != nil {
			c.fail(err)
			return
		}
		// Inputs are small and frequent; dropping under pressure is
		// cheaper than blocking the QUIC receive loop.
		select {
		case c.inbox <- transport.Message{Channel: transport.ChannelData, Payload: payload}:
		default:
		}
	}
}

func (c *Conn) fail(err error) {
	select {
	case c.errs <- err:
	default:
	}
}

// Close terminates the session with the reason.
func (c *Conn) Close(reason string) error {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.cancel()
	c.control.Close()
	return c.session.CloseWithError(0, reason)
}

func (c *Conn) isClosed() bool {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	return c.closed
}

// Kind names the backing protocol.
func (c *Conn) Kind() string { return "webtransport" }

// RemoteAddr describes the peer.
func (c *Conn) RemoteAddr() string {
	return c.session.RemoteAddr().String()
}

var _ transport.Conn = (*Conn)(nil)
