// Package game wires live connections to running sessions: authentication
// against the lobby-issued roster, input intake, and per-tick fan-out of
// deltas and events.
package game

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"minigolf/server/internal/course"
	"minigolf/server/internal/net/intake"
	"minigolf/server/internal/net/proto"
	"minigolf/server/internal/net/transport"
	"minigolf/server/internal/replication"
	"minigolf/server/internal/sim"
	"minigolf/server/internal/telemetry"
	"minigolf/server/logging"
)

// ErrSessionEnded reports an operation against a session that already
// reached a terminal phase.
var ErrSessionEnded = errors.New("game: session ended")

// ErrUnknownSession reports an operation against a session this server does
// not run.
var ErrUnknownSession = errors.New("game: unknown session")

// ErrSessionStarted reports an admission attempt against a session that has
// already left the forming phase.
var ErrSessionStarted = errors.New("game: session already started")

// Credential is a lobby-issued ticket for one seat in one session.
type Credential struct {
	PlayerID string
	Token    string
}

// ResultRecorder persists finished sessions. The sqlite store implements it.
type ResultRecorder interface {
	RecordSession(ctx context.Context, sessionID string, phase sim.Phase, results []sim.CourseResult) error
}

// SessionObserver hears about terminal sessions. The lobby directory
// implements it to free the entry.
type SessionObserver interface {
	SessionEnded(sessionID string, phase sim.Phase)
}

// Config carries the hub collaborators and tuning.
type Config struct {
	SimConfig sim.Config
	Logger    telemetry.Logger
	Metrics   telemetry.Metrics
	Publisher logging.Publisher
	Results   ResultRecorder
	Observer  SessionObserver

	// HistoryHorizon bounds the retained patch history per session.
	HistoryHorizon int
	// SequenceWindow bounds how far ahead input sequences may run.
	SequenceWindow uint64
	// CommandCapacity and PerActorLimit bound the staged command queue.
	CommandCapacity int
	PerActorLimit   int
}

// Hub owns every running session on this server and the connections
// attached to them.
type Hub struct {
	cfg Config

	mu    sync.Mutex
	rooms map[string]*room
}

// NewHub builds an empty hub.
func NewHub(cfg Config) *Hub {
	if cfg.Metrics == nil {
		cfg.Metrics = telemetry.NopMetrics{}
	}
	if cfg.Publisher == nil {
		cfg.Publisher = logging.NopPublisher()
	}
	if cfg.HistoryHorizon <= 0 {
		cfg.HistoryHorizon = 64
	}
	if cfg.SequenceWindow == 0 {
		cfg.SequenceWindow = 32
	}
	if cfg.CommandCapacity <= 0 {
		cfg.CommandCapacity = 256
	}
	if cfg.PerActorLimit <= 0 {
		cfg.PerActorLimit = 8
	}
	return &Hub{
		cfg:   cfg,
		rooms: make(map[string]*room),
	}
}

// CreateSession starts a session for the given roster and begins ticking
// it. The lobby calls this during handoff.
func (h *Hub) CreateSession(sessionID string, courses []*course.Course, roster []Credential) error {
	r, err := h.createRoom(sessionID, courses, roster)
	if err != nil {
		return err
	}
	go r.loop.Run(r.stop)
	return nil
}

func (h *Hub) createRoom(sessionID string, courses []*course.Course, roster []Credential) (*room, error) {
	playerIDs := make([]string, 0, len(roster))
	tokens := make(map[string]string, len(roster))
	for _, cred := range roster {
		playerIDs = append(playerIDs, cred.PlayerID)
		tokens[cred.PlayerID] = cred.Token
	}

	session, err := sim.NewSession(sessionID, h.cfg.SimConfig, courses, playerIDs, h.cfg.Publisher)
	if err != nil {
		return nil, fmt.Errorf("create session %s: %w", sessionID, err)
	}

	r := &room{
		hub:        h,
		id:         sessionID,
		session:    session,
		tokens:     tokens,
		subs:       make(map[string]*subscriber),
		replicator: replication.NewReplicator(h.cfg.HistoryHorizon, h.cfg.Metrics),
		sequences:  intake.NewSequenceWindow(h.cfg.SequenceWindow),
		stop:       make(chan struct{}),
		lastPhase:  session.Phase(),
		courseID:   courses[0].ID,
	}
	r.loop = sim.NewLoop(session, sim.LoopConfig{
		TickRate:        h.cfg.SimConfig.TickRate,
		CommandCapacity: h.cfg.CommandCapacity,
		PerActorLimit:   h.cfg.PerActorLimit,
		WarningStep:     h.cfg.CommandCapacity / 2,
	}, sim.LoopHooks{
		AfterStep:     r.afterStep,
		OnCommandDrop: r.onCommandDrop,
		OnQueueWarning: func(length int) {
			if h.cfg.Logger != nil {
				h.cfg.Logger.Printf("[queue] session=%s staged=%d", sessionID, length)
			}
		},
	}, h.cfg.Logger, h.cfg.Metrics)

	h.mu.Lock()
	if _, exists := h.rooms[sessionID]; exists {
		h.mu.Unlock()
		return nil, fmt.Errorf("create session %s: already running", sessionID)
	}
	h.rooms[sessionID] = r
	h.mu.Unlock()

	return r, nil
}

// AdmitPlayer adds a late joiner to a Forming session's roster. The lobby
// calls this when CreateOrJoin matches an existing session.
func (h *Hub) AdmitPlayer(sessionID string, cred Credential) error {
	r := h.room(sessionID)
	if r == nil {
		return ErrUnknownSession
	}
	return r.admit(cred)
}

// Session reports whether a session is running and its current phase.
func (h *Hub) Session(sessionID string) (sim.Phase, bool) {
	h.mu.Lock()
	r, ok := h.rooms[sessionID]
	h.mu.Unlock()
	if !ok {
		return "", false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastPhase, true
}

// Shutdown stops every running session.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	rooms := make([]*room, 0, len(h.rooms))
	for _, r := range h.rooms {
		rooms = append(rooms, r)
	}
	h.rooms = make(map[string]*room)
	h.mu.Unlock()
	for _, r := range rooms {
		r.close("server shutdown")
	}
}

func (h *Hub) room(sessionID string) *room {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rooms[sessionID]
}

func (h *Hub) removeRoom(sessionID string) {
	h.mu.Lock()
	delete(h.rooms, sessionID)
	h.mu.Unlock()
}

// Serve consumes one client connection: join handshake, then the message
// loop until the connection drops. Both transports call it.
func (h *Hub) Serve(conn transport.Conn) {
	r, playerID, ok := h.handshake(conn)
	if !ok {
		return
	}
	r.serve(playerID, conn)
}

func (h *Hub) handshake(conn transport.Conn) (*room, string, bool) {
	msg, err := conn.Receive()
	if err != nil {
		conn.Close("handshake failed")
		return nil, "", false
	}
	if msg.Channel != transport.ChannelControl {
		h.rejectJoin(conn, "join must arrive on the control channel")
		return nil, "", false
	}
	control, err := proto.DecodeControlMessage(msg.Payload)
	if err != nil || control.Type != proto.TypeJoin {
		h.rejectJoin(conn, "malformed join")
		return nil, "", false
	}

	r := h.room(control.SessionID)
	if r == nil {
		h.rejectJoin(conn, "unknown session")
		return nil, "", false
	}
	if !r.authenticate(control.PlayerID, control.Token) {
		h.rejectJoin(conn, "invalid credentials")
		return nil, "", false
	}
	return r, control.PlayerID, true
}

func (h *Hub) rejectJoin(conn transport.Conn, reason string) {
	if payload, err := proto.EncodeJoinReject(proto.JoinReject{Reason: reason}); err == nil {
		conn.SendControl(payload)
	}
	conn.Close(reason)
}
