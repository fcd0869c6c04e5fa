package lifecycle

import (
	"context"

	"minigolf/server/logging"
)

const (
	// EventPlayerJoined is emitted when a player's connection attaches to a session.
	EventPlayerJoined logging.EventType = "lifecycle.player_joined"
	// EventPlayerDisconnected is emitted when a player's connection drops.
	EventPlayerDisconnected logging.EventType = "lifecycle.player_disconnected"
	// EventSessionPhase is emitted on every session state-machine transition.
	EventSessionPhase logging.EventType = "lifecycle.session_phase"
)

// PlayerJoinedPayload captures attach metadata for a player connection.
type PlayerJoinedPayload struct {
	SessionID string `json:"sessionId"`
	Transport string `json:"transport"`
	Reconnect bool   `json:"reconnect,omitempty"`
}

// PlayerDisconnectedPayload captures the reason a connection dropped.
type PlayerDisconnectedPayload struct {
	SessionID string `json:"sessionId"`
	Reason    string `json:"reason"`
}

// SessionPhasePayload captures a session state-machine transition.
type SessionPhasePayload struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Reason string `json:"reason,omitempty"`
}

// PlayerJoined publishes a player attach event.
func PlayerJoined(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload PlayerJoinedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventPlayerJoined,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
	})
}

// PlayerDisconnected publishes a connection drop event.
func PlayerDisconnected(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload PlayerDisconnectedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventPlayerDisconnected,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
	})
}

// SessionPhase publishes a session transition event.
func SessionPhase(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload SessionPhasePayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventSessionPhase,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
	})
}
