package game

import (
	"context"
	"fmt"
	"sync"
	"time"

	"minigolf/server/internal/net/intake"
	"minigolf/server/internal/net/proto"
	"minigolf/server/internal/net/transport"
	"minigolf/server/internal/replication"
	"minigolf/server/internal/sim"
	"minigolf/server/logging"
	"minigolf/server/logging/lifecycle"
)

// subscriber is one attached connection. The transport.Conn serializes its
// own writes, so the room only tracks identity.
type subscriber struct {
	conn transport.Conn
}

// room is the per-session runtime: the ticking loop, the replicator, and
// the connections subscribed to it. All simulation state is touched only on
// the tick goroutine; the room caches the facts connection goroutines need.
type room struct {
	hub        *Hub
	id         string
	session    *sim.Session
	loop       *sim.Loop
	tokens     map[string]string
	replicator *replication.Replicator
	sequences  *intake.SequenceWindow
	stop       chan struct{}

	mu         sync.Mutex
	subs       map[string]*subscriber
	lastTick   uint64
	lastPhase  sim.Phase
	courseID   string
	graceTimer *time.Timer
	closed     bool
}

func (r *room) authenticate(playerID, token string) bool {
	r.mu.Lock()
	expected, ok := r.tokens[playerID]
	r.mu.Unlock()
	return ok && token != "" && token == expected
}

// admit grows the roster while the session is still forming. Sessions that
// already started reject new credentials so the lobby moves the player to a
// fresh entry.
func (r *room) admit(cred Credential) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrSessionEnded
	}
	if r.lastPhase != sim.PhaseForming {
		r.mu.Unlock()
		return ErrSessionStarted
	}
	if _, exists := r.tokens[cred.PlayerID]; exists {
		r.mu.Unlock()
		return fmt.Errorf("admit %s: player already rostered", cred.PlayerID)
	}
	r.tokens[cred.PlayerID] = cred.Token
	r.mu.Unlock()
	r.loop.Enqueue(sim.Command{Type: sim.CommandAdmit, ActorID: cred.PlayerID})
	return nil
}

// serve runs the connection's read loop until it drops. Called from the
// transport handler goroutine.
func (r *room) serve(playerID string, conn transport.Conn) {
	if !r.attach(playerID, conn) {
		return
	}
	for {
		msg, err := conn.Receive()
		if err != nil {
			r.detach(playerID, conn, "connection lost")
			return
		}
		switch msg.Channel {
		case transport.ChannelControl:
			r.handleControl(conn, msg.Payload)
		case transport.ChannelData:
			r.handleData(playerID, msg.Payload)
		}
	}
}

func (r *room) attach(playerID string, conn transport.Conn) bool {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.hub.rejectJoin(conn, "session ended")
		return false
	}
	existing := r.subs[playerID]
	r.subs[playerID] = &subscriber{conn: conn}
	tick := r.lastTick
	phase := r.lastPhase
	courseID := r.courseID
	r.mu.Unlock()

	if existing != nil {
		existing.conn.Close("superseded by new connection")
	}

	// A fresh connection has no client-side state. Restart its sequence
	// window and force the next update to be a full snapshot.
	r.sequences.Drop(playerID)
	r.replicator.Drop(playerID)

	r.loop.Enqueue(sim.Command{Type: sim.CommandConnect, ActorID: playerID})
	lifecycle.PlayerJoined(context.Background(), r.hub.cfg.Publisher, tick,
		logging.EntityRef{ID: playerID, Kind: logging.EntityKindPlayer},
		lifecycle.PlayerJoinedPayload{SessionID: r.id, Transport: conn.Kind(), Reconnect: existing != nil})

	ack, err := proto.EncodeJoinAck(proto.JoinAck{
		PlayerID:  playerID,
		SessionID: r.id,
		CourseID:  courseID,
		Tick:      tick,
		Phase:     string(phase),
		Reconnect: existing != nil,
	})
	if err == nil {
		if err := conn.SendControl(ack); err != nil {
			r.detach(playerID, conn, "join ack failed")
			return false
		}
	}
	return true
}

func (r *room) detach(playerID string, conn transport.Conn, reason string) {
	r.mu.Lock()
	current := r.subs[playerID]
	if current == nil || current.conn != conn {
		// Already replaced by a newer connection for this player.
		r.mu.Unlock()
		conn.Close(reason)
		return
	}
	delete(r.subs, playerID)
	tick := r.lastTick
	r.mu.Unlock()

	conn.Close(reason)
	r.sequences.Drop(playerID)
	r.replicator.Drop(playerID)
	r.loop.Enqueue(sim.Command{Type: sim.CommandDisconnect, ActorID: playerID, Reason: reason})
	lifecycle.PlayerDisconnected(context.Background(), r.hub.cfg.Publisher, tick,
		logging.EntityRef{ID: playerID, Kind: logging.EntityKindPlayer},
		lifecycle.PlayerDisconnectedPayload{SessionID: r.id, Reason: reason})
}

func (r *room) handleControl(conn transport.Conn, payload []byte) {
	msg, err := proto.DecodeControlMessage(payload)
	if err != nil {
		return
	}
	switch msg.Type {
	case proto.TypeHeartbeat:
		reply, err := proto.EncodeHeartbeat(proto.Heartbeat{
			ServerTime: time.Now().UnixMilli(),
			ClientTime: msg.SentAt,
		})
		if err == nil {
			conn.SendControl(reply)
		}
	case proto.TypeJoin:
		// Duplicate join on an attached connection, nothing to do.
	}
}

func (r *room) handleData(playerID string, payload []byte) {
	msg, err := proto.DecodeDataMessage(payload)
	if err != nil {
		return
	}
	if msg.Type == proto.TypeAck {
		if msg.Ack != nil {
			r.replicator.Ack(playerID, *msg.Ack)
		}
		return
	}
	if _, ok, reason := intake.StageDataCommand(r.commandContext(), playerID, msg); !ok {
		if logger := r.hub.cfg.Logger; logger != nil {
			logger.Printf("[intake] rejected session=%s player=%s type=%s reason=%s", r.id, playerID, msg.Type, reason)
		}
	}
}

func (r *room) commandContext() intake.CommandContext {
	return intake.CommandContext{
		Loop:      r.loop,
		Sequences: r.sequences,
		HasPlayer: func(playerID string) bool {
			r.mu.Lock()
			_, ok := r.tokens[playerID]
			r.mu.Unlock()
			return ok
		},
		Tick:       r.tickNow,
		MaxImpulse: r.hub.cfg.SimConfig.MaxImpulse,
	}
}

func (r *room) tickNow() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastTick
}

// afterStep runs on the tick goroutine once per tick. It records the tick's
// patches, fans out per-client updates and events, and manages the
// reconnect grace window.
func (r *room) afterStep(result sim.LoopStepResult) {
	r.replicator.Record(result.Tick, result.Patches, result.Now)

	r.mu.Lock()
	r.lastTick = result.Tick
	r.lastPhase = result.Phase
	for _, patch := range result.Patches {
		if patch.Kind != sim.PatchCourse {
			continue
		}
		if payload, ok := patch.Payload.(sim.CoursePayload); ok {
			r.courseID = payload.CourseID
		}
	}
	targets := make([]string, 0, len(r.subs))
	conns := make([]transport.Conn, 0, len(r.subs))
	for playerID, sub := range r.subs {
		targets = append(targets, playerID)
		conns = append(conns, sub.conn)
	}
	r.adjustGraceLocked(result.Phase)
	r.mu.Unlock()

	var cached *sim.Snapshot
	snapshot := func() sim.Snapshot {
		if cached == nil {
			snap := r.session.Snapshot()
			cached = &snap
		}
		return *cached
	}

	serverTime := result.Now.UnixMilli()
	for i, playerID := range targets {
		update := r.replicator.ForClient(playerID, result.Tick, snapshot)
		state := proto.StateUpdateV1{
			Tick:       update.Tick,
			Baseline:   update.Baseline,
			Full:       update.Full,
			Patches:    update.Patches,
			ServerTime: serverTime,
		}
		if update.Full {
			snap := update.Snapshot
			state.Snapshot = &snap
		}
		payload, err := proto.EncodeStateUpdate(state)
		if err != nil {
			continue
		}
		if err := conns[i].SendData(payload); err == transport.ErrClosed {
			r.detach(playerID, conns[i], "send failed")
		}
		// Other send errors are datagram loss; the unchanged baseline
		// makes the next update cover the gap.
	}

	if len(result.Events) > 0 {
		for _, event := range result.Events {
			payload, err := proto.EncodeGameEvent(event)
			if err != nil {
				continue
			}
			for i, playerID := range targets {
				if err := conns[i].SendControl(payload); err != nil {
					r.detach(playerID, conns[i], "send failed")
				}
			}
		}
	}

	if result.Phase.Terminal() {
		r.finish(result)
	}
}

// adjustGraceLocked arms the abandonment timer while the session is paused
// and disarms it once play resumes. Caller holds r.mu.
func (r *room) adjustGraceLocked(phase sim.Phase) {
	switch phase {
	case sim.PhasePaused:
		if r.graceTimer == nil {
			grace := r.hub.cfg.SimConfig.ReconnectGrace
			if grace <= 0 {
				grace = 30 * time.Second
			}
			r.graceTimer = time.AfterFunc(grace, func() {
				r.loop.Enqueue(sim.Command{Type: sim.CommandGraceExpired, Reason: "reconnect grace elapsed"})
			})
		}
	case sim.PhaseActive:
		if r.graceTimer != nil {
			r.graceTimer.Stop()
			r.graceTimer = nil
		}
	}
}

// finish runs on the tick goroutine when the session hits a terminal phase.
// The loop exits right after, so this is the last tick callback.
func (r *room) finish(result sim.LoopStepResult) {
	reason := ""
	for _, event := range result.Events {
		if event.Kind == sim.EventSessionEnded {
			reason = event.Reason
		}
	}

	// Abandoned sessions persist too, with whatever results accrued before
	// the roster walked away.
	if recorder := r.hub.cfg.Results; recorder != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := recorder.RecordSession(ctx, r.id, result.Phase, r.session.Results()); err != nil {
			if logger := r.hub.cfg.Logger; logger != nil {
				logger.Printf("[results] persist failed session=%s err=%v", r.id, err)
			}
		}
		cancel()
	}

	closing, err := proto.EncodeSessionClose(proto.SessionClose{Phase: string(result.Phase), Reason: reason})

	r.mu.Lock()
	r.closed = true
	if r.graceTimer != nil {
		r.graceTimer.Stop()
		r.graceTimer = nil
	}
	conns := make([]transport.Conn, 0, len(r.subs))
	for _, sub := range r.subs {
		conns = append(conns, sub.conn)
	}
	r.subs = make(map[string]*subscriber)
	r.mu.Unlock()

	for _, conn := range conns {
		if err == nil {
			conn.SendControl(closing)
		}
		conn.Close("session ended")
	}

	r.hub.removeRoom(r.id)
	if r.hub.cfg.Observer != nil {
		r.hub.cfg.Observer.SessionEnded(r.id, result.Phase)
	}
}

// close tears the room down from outside the tick loop, for server shutdown.
func (r *room) close(reason string) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	if r.graceTimer != nil {
		r.graceTimer.Stop()
		r.graceTimer = nil
	}
	conns := make([]transport.Conn, 0, len(r.subs))
	for _, sub := range r.subs {
		conns = append(conns, sub.conn)
	}
	r.subs = make(map[string]*subscriber)
	r.mu.Unlock()

	close(r.stop)
	for _, conn := range conns {
		conn.Close(reason)
	}
	r.hub.removeRoom(r.id)
}

func (r *room) onCommandDrop(reason string, cmd sim.Command) {
	r.hub.cfg.Metrics.Add("hub_commands_dropped_total", 1)
}
