// Package intake validates inbound client messages and stages them into the
// simulation loop. Everything rejected here never reaches the session.
package intake

import (
	"sync"

	"minigolf/server/internal/net/proto"
	"minigolf/server/internal/sim"
)

// Reject reasons reported back to clients.
const (
	RejectInvalidAction = "invalid_action"
	RejectUnknownActor  = "unknown_actor"
	RejectStaleSequence = "stale_sequence"
	RejectSequenceGap   = "sequence_gap"
	RejectImpulseLimit  = "impulse_limit"
)

// SequenceWindow tracks per-player input sequence numbers. A message is
// accepted when its sequence is newer than the last accepted one and within
// the window ahead of it; duplicates and replays fall out for free.
type SequenceWindow struct {
	mu     sync.Mutex
	window uint64
	last   map[string]uint64
}

// NewSequenceWindow returns a tracker accepting sequences up to window
// ahead of the last accepted one.
func NewSequenceWindow(window uint64) *SequenceWindow {
	if window == 0 {
		window = 1
	}
	return &SequenceWindow{window: window, last: make(map[string]uint64)}
}

// Accept validates and records a sequence number. The reason is empty on
// success.
func (w *SequenceWindow) Accept(playerID string, seq uint64) (bool, string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	last, seen := w.last[playerID]
	if seen && seq <= last {
		return false, RejectStaleSequence
	}
	if seen && seq > last+w.window {
		return false, RejectSequenceGap
	}
	w.last[playerID] = seq
	return true, ""
}

// Drop forgets a player's sequence state. Used on reconnect, where the
// client restarts its counter.
func (w *SequenceWindow) Drop(playerID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.last, playerID)
}

// CommandContext carries the collaborators needed to stage a command.
type CommandContext struct {
	Loop       *sim.Loop
	Sequences  *SequenceWindow
	HasPlayer  func(string) bool
	Tick       func() uint64
	MaxImpulse float64
}

// StageDataCommand validates a data-channel message and enqueues the
// simulation command it carries. It returns the staged command, whether it
// was accepted, and the reject reason otherwise.
func StageDataCommand(ctx CommandContext, playerID string, msg proto.DataMessage) (sim.Command, bool, string) {
	var zero sim.Command

	command, ok := proto.ClientCommand(msg)
	if !ok {
		return zero, false, RejectInvalidAction
	}

	switch command.Type {
	case sim.CommandShoot:
		if command.Shoot == nil {
			return zero, false, RejectInvalidAction
		}
		if ctx.MaxImpulse > 0 {
			impulse := command.Shoot.X*command.Shoot.X + command.Shoot.Z*command.Shoot.Z
			if impulse > ctx.MaxImpulse*ctx.MaxImpulse {
				return zero, false, RejectImpulseLimit
			}
		}
	case sim.CommandUsePowerUp:
		if command.PowerUp == nil {
			return zero, false, RejectInvalidAction
		}
	default:
		return zero, false, RejectInvalidAction
	}

	if ctx.HasPlayer != nil && !ctx.HasPlayer(playerID) {
		return zero, false, RejectUnknownActor
	}
	if ctx.Sequences != nil {
		if ok, reason := ctx.Sequences.Accept(playerID, command.Seq); !ok {
			return zero, false, reason
		}
	}

	command.ActorID = playerID
	if ctx.Tick != nil {
		command.OriginTick = ctx.Tick()
	}

	if ctx.Loop == nil {
		return zero, false, sim.CommandRejectQueueFull
	}
	if ok, reason := ctx.Loop.Enqueue(command); !ok {
		return zero, false, reason
	}

	return command, true, ""
}
