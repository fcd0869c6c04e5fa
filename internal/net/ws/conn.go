// Package ws backs the dual-channel transport with a single websocket.
// Every frame is binary with a one-byte channel tag prefix; the data
// channel rides the same TCP stream, so it is reliable here by accident,
// which the transport contract permits.
package ws

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"minigolf/server/internal/net/transport"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	maxMessageSize = 64 * 1024
)

// Conn adapts a websocket connection to the dual-channel transport.
type Conn struct {
	conn *websocket.Conn

	writeMu sync.Mutex
	closed  bool
}

// NewConn wraps an upgraded websocket connection.
func NewConn(conn *websocket.Conn) *Conn {
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	return &Conn{conn: conn}
}

// SendControl writes a control-channel frame.
func (c *Conn) SendControl(payload []byte) error {
	return c.send(transport.ChannelControl, payload)
}

// SendData writes a data-channel frame.
func (c *Conn) SendData(payload []byte) error {
	return c.send(transport.ChannelData, payload)
}

func (c *Conn) send(channel transport.Channel, payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closed {
		return transport.ErrClosed
	}
	frame := make([]byte, 1+len(payload))
	frame[0] = byte(channel)
	copy(frame[1:], payload)
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.BinaryMessage, frame)
}

// Receive blocks until the next tagged frame arrives. Text frames and
// frames with an unknown tag are rejected.
func (c *Conn) Receive() (transport.Message, error) {
	for {
		kind, frame, err := c.conn.ReadMessage()
		if err != nil {
			return transport.Message{}, err
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		if kind != websocket.BinaryMessage {
			return transport.Message{}, fmt.Errorf("ws: unexpected message type %d", kind)
		}
		if len(frame) < 1 {
			continue
		}
		channel := transport.Channel(frame[0])
		if !channel.Valid() {
			return transport.Message{}, fmt.Errorf("ws: unknown channel tag 0x%02x", frame[0])
		}
		return transport.Message{Channel: channel, Payload: frame[1:]}, nil
	}
}

// Close sends a close frame with the reason and tears down the socket.
func (c *Conn) Close(reason string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	message := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, message)
	return c.conn.Close()
}

// Kind names the backing protocol.
func (c *Conn) Kind() string { return "ws" }

// RemoteAddr describes the peer.
func (c *Conn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

var _ transport.Conn = (*Conn)(nil)
