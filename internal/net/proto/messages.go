// Package proto defines the wire protocol. Control-channel payloads are
// JSON; data-channel payloads are msgpack. Both carry the protocol version
// so either side can refuse a mismatched peer.
package proto

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"minigolf/server/internal/course"
	"minigolf/server/internal/sim"
)

const (
	// Version tracks the wire-protocol revision expected by clients.
	Version = 1

	// Outbound control message type identifiers.
	typeJoinAck      = "joinAck"
	typeJoinReject   = "joinReject"
	typeEvent        = "event"
	typeHeartbeat    = "heartbeat"
	typeSessionClose = "sessionClose"
)

// Inbound control message type identifiers.
const (
	TypeJoin      = "join"
	TypeHeartbeat = "heartbeat"
)

// Inbound data message type identifiers.
const (
	TypeShot       = "shot"
	TypeUsePowerUp = "usePowerUp"
	TypeAck        = "ack"
)

// Outbound data message type identifiers.
const (
	TypeState = "state"
)

// Exported aliases for outbound control type identifiers.
const (
	TypeJoinAck      = typeJoinAck
	TypeJoinReject   = typeJoinReject
	TypeEvent        = typeEvent
	TypeSessionClose = typeSessionClose
)

// ControlMessage captures an inbound control-channel message.
type ControlMessage struct {
	Ver       int    `json:"ver,omitempty"`
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`
	PlayerID  string `json:"playerId,omitempty"`
	Token     string `json:"token,omitempty"`
	SentAt    int64  `json:"sentAt,omitempty"`
}

// DecodeControlMessage converts a raw control payload into a structured
// message, enforcing the protocol version.
func DecodeControlMessage(payload []byte) (ControlMessage, error) {
	var msg ControlMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return msg, err
	}
	if msg.Ver == 0 {
		msg.Ver = Version
	}
	if msg.Ver != Version {
		return msg, fmt.Errorf("unsupported client protocol version %d", msg.Ver)
	}
	return msg, nil
}

// DataMessage captures an inbound data-channel message.
type DataMessage struct {
	Ver    int     `msgpack:"ver,omitempty"`
	Type   string  `msgpack:"type"`
	Seq    uint64  `msgpack:"seq,omitempty"`
	X      float64 `msgpack:"x,omitempty"`
	Z      float64 `msgpack:"z,omitempty"`
	Kind   string  `msgpack:"kind,omitempty"`
	Ack    *uint64 `msgpack:"ack,omitempty"`
	SentAt int64   `msgpack:"sentAt,omitempty"`
}

// DecodeDataMessage converts a raw data payload into a structured message,
// enforcing the protocol version.
func DecodeDataMessage(payload []byte) (DataMessage, error) {
	var msg DataMessage
	if err := msgpack.Unmarshal(payload, &msg); err != nil {
		return msg, err
	}
	if msg.Ver == 0 {
		msg.Ver = Version
	}
	if msg.Ver != Version {
		return msg, fmt.Errorf("unsupported client protocol version %d", msg.Ver)
	}
	return msg, nil
}

// EncodeDataMessage renders a client data message, for clients and tests.
func EncodeDataMessage(msg DataMessage) ([]byte, error) {
	if msg.Ver == 0 {
		msg.Ver = Version
	}
	return msgpack.Marshal(msg)
}

// ClientCommand maps a data message onto the simulation command it carries.
// Origin metadata is populated by the hub when the command is accepted.
func ClientCommand(msg DataMessage) (sim.Command, bool) {
	switch msg.Type {
	case TypeShot:
		if msg.X == 0 && msg.Z == 0 {
			return sim.Command{}, false
		}
		return sim.Command{
			Type: sim.CommandShoot,
			Seq:  msg.Seq,
			Shoot: &sim.ShootCommand{
				X: msg.X,
				Z: msg.Z,
			},
		}, true
	case TypeUsePowerUp:
		if !course.KnownPowerUp(course.PowerUpKind(msg.Kind)) {
			return sim.Command{}, false
		}
		return sim.Command{
			Type:    sim.CommandUsePowerUp,
			Seq:     msg.Seq,
			PowerUp: &sim.PowerUpCommand{Kind: course.PowerUpKind(msg.Kind)},
		}, true
	default:
		return sim.Command{}, false
	}
}

// JoinAck confirms a control-channel join.
type JoinAck struct {
	PlayerID  string
	SessionID string
	CourseID  string
	Tick      uint64
	Phase     string
	Reconnect bool
}

// EncodeJoinAck renders a join acknowledgement payload.
func EncodeJoinAck(msg JoinAck) ([]byte, error) {
	frame := struct {
		Ver       int    `json:"ver"`
		Type      string `json:"type"`
		PlayerID  string `json:"playerId"`
		SessionID string `json:"sessionId"`
		CourseID  string `json:"courseId"`
		Tick      uint64 `json:"t"`
		Phase     string `json:"phase"`
		Reconnect bool   `json:"reconnect,omitempty"`
	}{
		Ver:       Version,
		Type:      typeJoinAck,
		PlayerID:  msg.PlayerID,
		SessionID: msg.SessionID,
		CourseID:  msg.CourseID,
		Tick:      msg.Tick,
		Phase:     msg.Phase,
		Reconnect: msg.Reconnect,
	}
	return json.Marshal(frame)
}

// JoinReject notifies the client that a join was refused.
type JoinReject struct {
	Reason string
}

// EncodeJoinReject renders a join rejection payload.
func EncodeJoinReject(msg JoinReject) ([]byte, error) {
	frame := struct {
		Ver    int    `json:"ver"`
		Type   string `json:"type"`
		Reason string `json:"reason"`
	}{
		Ver:    Version,
		Type:   typeJoinReject,
		Reason: msg.Reason,
	}
	return json.Marshal(frame)
}

// EncodeGameEvent renders a reliable gameplay event for the control channel.
func EncodeGameEvent(event sim.GameEvent) ([]byte, error) {
	frame := struct {
		Ver   int           `json:"ver"`
		Type  string        `json:"type"`
		Event sim.GameEvent `json:"event"`
	}{
		Ver:   Version,
		Type:  typeEvent,
		Event: event,
	}
	return json.Marshal(frame)
}

// Heartbeat echoes timing metadata back to the client.
type Heartbeat struct {
	ServerTime int64
	ClientTime int64
}

// EncodeHeartbeat renders a heartbeat acknowledgement payload.
func EncodeHeartbeat(msg Heartbeat) ([]byte, error) {
	frame := struct {
		Ver        int    `json:"ver"`
		Type       string `json:"type"`
		ServerTime int64  `json:"serverTime"`
		ClientTime int64  `json:"clientTime"`
	}{
		Ver:        Version,
		Type:       typeHeartbeat,
		ServerTime: msg.ServerTime,
		ClientTime: msg.ClientTime,
	}
	return json.Marshal(frame)
}

// SessionClose announces that the session reached a terminal phase and the
// connection is about to be dropped.
type SessionClose struct {
	Phase  string
	Reason string
}

// EncodeSessionClose renders a session close payload.
func EncodeSessionClose(msg SessionClose) ([]byte, error) {
	frame := struct {
		Ver    int    `json:"ver"`
		Type   string `json:"type"`
		Phase  string `json:"phase"`
		Reason string `json:"reason,omitempty"`
	}{
		Ver:    Version,
		Type:   typeSessionClose,
		Phase:  msg.Phase,
		Reason: msg.Reason,
	}
	return json.Marshal(frame)
}

// StateUpdateV1 is the version 1 data-channel state payload. Full selects
// between the snapshot and the patch list.
type StateUpdateV1 struct {
	Ver        int           `msgpack:"ver"`
	Type       string        `msgpack:"type"`
	Tick       uint64        `msgpack:"t"`
	Baseline   uint64        `msgpack:"baseline,omitempty"`
	Full       bool          `msgpack:"full,omitempty"`
	Patches    []sim.Patch   `msgpack:"patches,omitempty"`
	Snapshot   *sim.Snapshot `msgpack:"snapshot,omitempty"`
	ServerTime int64         `msgpack:"serverTime"`
}

// EncodeStateUpdate renders a state update for the data channel.
func EncodeStateUpdate(msg StateUpdateV1) ([]byte, error) {
	msg.Ver = Version
	msg.Type = TypeState
	return msgpack.Marshal(msg)
}

// DecodeStateUpdate parses a state update, for clients and tests.
func DecodeStateUpdate(payload []byte) (StateUpdateV1, error) {
	var msg StateUpdateV1
	if err := msgpack.Unmarshal(payload, &msg); err != nil {
		return msg, err
	}
	if msg.Ver != Version {
		return msg, fmt.Errorf("unsupported state protocol version %d", msg.Ver)
	}
	return msg, nil
}
