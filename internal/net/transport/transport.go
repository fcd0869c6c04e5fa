// Package transport abstracts the two channels every client connection
// carries: a reliable ordered control channel and a loss-tolerant data
// channel. The session layer never sees which protocol backs them.
package transport

import "errors"

// Channel identifies which logical channel a message travelled on.
type Channel byte

const (
	// ChannelControl is reliable and ordered: joins, events, heartbeats.
	ChannelControl Channel = 0x01
	// ChannelData is loss-tolerant: inputs, acks, state updates. Backends
	// without an unreliable mode deliver it reliably, which is allowed.
	ChannelData Channel = 0x02
)

// Valid reports whether the byte names a known channel.
func (c Channel) Valid() bool {
	return c == ChannelControl || c == ChannelData
}

func (c Channel) String() string {
	switch c {
	case ChannelControl:
		return "control"
	case ChannelData:
		return "data"
	default:
		return "unknown"
	}
}

// Message is one inbound payload with its channel.
type Message struct {
	Channel Channel
	Payload []byte
}

// ErrClosed reports an operation on a closed connection.
var ErrClosed = errors.New("transport: connection closed")

// Conn is a dual-channel client connection. Send methods are safe for
// concurrent use; Receive must be driven by a single reader.
type Conn interface {
	// SendControl writes a payload on the reliable ordered channel.
	SendControl(payload []byte) error
	// SendData writes a payload on the data channel. Implementations may
	// silently drop it under pressure; the replication layer recovers via
	// full snapshots.
	SendData(payload []byte) error
	// Receive blocks until the next inbound message on either channel.
	Receive() (Message, error)
	// Close tears the connection down with a reason surfaced to the peer
	// where the protocol allows it.
	Close(reason string) error
	// Kind names the backing protocol, for logs.
	Kind() string
	// RemoteAddr describes the peer, for logs.
	RemoteAddr() string
}
