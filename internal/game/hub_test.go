package game

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"minigolf/server/internal/course"
	"minigolf/server/internal/geom"
	"minigolf/server/internal/net/proto"
	"minigolf/server/internal/net/transport"
	"minigolf/server/internal/sim"
	"minigolf/server/logging"
	"minigolf/server/logging/lifecycle"
)

type fakeConn struct {
	in chan transport.Message

	mu      sync.Mutex
	control [][]byte
	data    [][]byte
	closed  bool
	reason  string
}

func newFakeConn() *fakeConn {
	return &fakeConn{in: make(chan transport.Message, 16)}
}

func (f *fakeConn) SendControl(payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return transport.ErrClosed
	}
	f.control = append(f.control, append([]byte(nil), payload...))
	return nil
}

func (f *fakeConn) SendData(payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return transport.ErrClosed
	}
	f.data = append(f.data, append([]byte(nil), payload...))
	return nil
}

func (f *fakeConn) Receive() (transport.Message, error) {
	msg, ok := <-f.in
	if !ok {
		return transport.Message{}, transport.ErrClosed
	}
	return msg, nil
}

func (f *fakeConn) Close(reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	f.reason = reason
	close(f.in)
	return nil
}

func (f *fakeConn) Kind() string       { return "fake" }
func (f *fakeConn) RemoteAddr() string { return "test" }

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeConn) lastControl() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.control) == 0 {
		return nil
	}
	return f.control[len(f.control)-1]
}

func (f *fakeConn) lastData() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.data) == 0 {
		return nil
	}
	return f.data[len(f.data)-1]
}

type recordedSession struct {
	sessionID string
	phase     sim.Phase
	results   []sim.CourseResult
}

type fakeRecorder struct {
	mu       sync.Mutex
	sessions []recordedSession
}

func (f *fakeRecorder) RecordSession(_ context.Context, sessionID string, phase sim.Phase, results []sim.CourseResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions = append(f.sessions, recordedSession{sessionID: sessionID, phase: phase, results: results})
	return nil
}

type fakeObserver struct {
	mu    sync.Mutex
	ended []recordedSession
}

func (f *fakeObserver) SessionEnded(sessionID string, phase sim.Phase) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ended = append(f.ended, recordedSession{sessionID: sessionID, phase: phase})
}

func hubTestCourse(id string) *course.Course {
	return &course.Course{
		ID:   id,
		Name: "test course",
		Holes: []course.Hole{{
			Index:         0,
			StartPosition: geom.Vec3{X: -0.5, Y: 0.021336},
			HoleAsset:     "hole.glb",
			WallAsset:     "walls.glb",
			BoundingBox: geom.Box{
				Center:      geom.Vec3{Y: 0.5},
				HalfExtents: geom.Vec3{X: 1, Y: 0.5, Z: 1},
			},
			HoleSensor: geom.Box{
				Center:      geom.Vec3{X: 0.35},
				HalfExtents: geom.Vec3{X: 0.3, Y: 0.2, Z: 0.3},
			},
			Par: 2,
		}},
	}
}

// newTestRoom builds a hub and a room without starting the real-time loop,
// so tests can advance ticks deterministically.
func newTestRoom(t *testing.T, cfg Config, roster ...Credential) (*Hub, *room) {
	t.Helper()
	if cfg.SimConfig.TickRate == 0 {
		cfg.SimConfig = sim.DefaultConfig()
	}
	hub := NewHub(cfg)
	// createRoom registers the room without starting the real-time runner;
	// tests drive ticks through advance.
	r, err := hub.createRoom("sess-1", []*course.Course{hubTestCourse("c1")}, roster)
	if err != nil {
		t.Fatalf("createRoom: %v", err)
	}
	return hub, r
}

func advance(t *testing.T, r *room, steps int) sim.LoopStepResult {
	t.Helper()
	delta := r.hub.cfg.SimConfig.FixedDelta()
	var result sim.LoopStepResult
	for i := 0; i < steps; i++ {
		result = r.loop.Advance(sim.LoopTickContext{Now: time.Now(), Delta: delta})
		r.afterStep(result)
		if result.Phase.Terminal() {
			return result
		}
	}
	return result
}

func decodeControlFrame(t *testing.T, payload []byte) map[string]any {
	t.Helper()
	var frame map[string]any
	if err := json.Unmarshal(payload, &frame); err != nil {
		t.Fatalf("decode control frame: %v", err)
	}
	return frame
}

func TestServeRejectsUnknownSession(t *testing.T) {
	hub := NewHub(Config{SimConfig: sim.DefaultConfig()})
	conn := newFakeConn()
	join, err := json.Marshal(map[string]any{
		"ver": proto.Version, "type": proto.TypeJoin,
		"sessionId": "missing", "playerId": "p1", "token": "tok",
	})
	if err != nil {
		t.Fatalf("marshal join: %v", err)
	}
	conn.in <- transport.Message{Channel: transport.ChannelControl, Payload: join}

	hub.Serve(conn)

	if !conn.isClosed() {
		t.Fatalf("connection left open after rejected join")
	}
	frame := decodeControlFrame(t, conn.lastControl())
	if frame["type"] != string(proto.TypeJoinReject) {
		t.Fatalf("frame type = %v, want %v", frame["type"], proto.TypeJoinReject)
	}
}

func TestServeRejectsBadToken(t *testing.T) {
	hub, _ := newTestRoom(t, Config{}, Credential{PlayerID: "p1", Token: "tok-1"})
	conn := newFakeConn()
	join, _ := json.Marshal(map[string]any{
		"ver": proto.Version, "type": proto.TypeJoin,
		"sessionId": "sess-1", "playerId": "p1", "token": "wrong",
	})
	conn.in <- transport.Message{Channel: transport.ChannelControl, Payload: join}

	hub.Serve(conn)

	if !conn.isClosed() {
		t.Fatalf("connection left open after bad token")
	}
	frame := decodeControlFrame(t, conn.lastControl())
	if frame["type"] != string(proto.TypeJoinReject) {
		t.Fatalf("frame type = %v, want %v", frame["type"], proto.TypeJoinReject)
	}
}

func TestAttachSendsJoinAck(t *testing.T) {
	_, r := newTestRoom(t, Config{}, Credential{PlayerID: "p1", Token: "tok-1"})
	conn := newFakeConn()

	if !r.attach("p1", conn) {
		t.Fatalf("attach rejected valid player")
	}

	frame := decodeControlFrame(t, conn.lastControl())
	if frame["type"] != string(proto.TypeJoinAck) {
		t.Fatalf("frame type = %v, want %v", frame["type"], proto.TypeJoinAck)
	}
	if frame["playerId"] != "p1" || frame["sessionId"] != "sess-1" || frame["courseId"] != "c1" {
		t.Fatalf("join ack identity wrong: %v", frame)
	}
}

func TestFirstUpdateIsFullSnapshot(t *testing.T) {
	_, r := newTestRoom(t, Config{}, Credential{PlayerID: "p1", Token: "tok-1"})
	conn := newFakeConn()
	r.attach("p1", conn)

	advance(t, r, 1)

	update, err := proto.DecodeStateUpdate(conn.lastData())
	if err != nil {
		t.Fatalf("decode state update: %v", err)
	}
	if !update.Full || update.Snapshot == nil {
		t.Fatalf("first update full=%v snapshot=%v, want a full snapshot", update.Full, update.Snapshot)
	}
	if update.Snapshot.SessionID != "sess-1" {
		t.Fatalf("snapshot session = %s, want sess-1", update.Snapshot.SessionID)
	}
}

func TestAckedClientReceivesDeltas(t *testing.T) {
	_, r := newTestRoom(t, Config{}, Credential{PlayerID: "p1", Token: "tok-1"})
	conn := newFakeConn()
	r.attach("p1", conn)

	result := advance(t, r, 1)

	ack := result.Tick
	payload, err := proto.EncodeDataMessage(proto.DataMessage{Type: proto.TypeAck, Ack: &ack})
	if err != nil {
		t.Fatalf("encode ack: %v", err)
	}
	r.handleData("p1", payload)

	advance(t, r, 1)

	update, err := proto.DecodeStateUpdate(conn.lastData())
	if err != nil {
		t.Fatalf("decode state update: %v", err)
	}
	if update.Full {
		t.Fatalf("acked client received a full snapshot instead of a delta")
	}
	if update.Baseline != ack {
		t.Fatalf("delta baseline = %d, want %d", update.Baseline, ack)
	}
}

func TestShotCommandReachesSession(t *testing.T) {
	_, r := newTestRoom(t, Config{}, Credential{PlayerID: "p1", Token: "tok-1"})
	conn := newFakeConn()
	r.attach("p1", conn)
	advance(t, r, 20)

	payload, err := proto.EncodeDataMessage(proto.DataMessage{Type: proto.TypeShot, Seq: 1, X: 1})
	if err != nil {
		t.Fatalf("encode shot: %v", err)
	}
	r.handleData("p1", payload)
	advance(t, r, 1)

	snap := r.session.Snapshot()
	if snap.Balls[0].Strokes != 1 {
		t.Fatalf("strokes = %d, want 1 after staged shot", snap.Balls[0].Strokes)
	}
}

func TestReattachReplacesConnection(t *testing.T) {
	_, r := newTestRoom(t, Config{}, Credential{PlayerID: "p1", Token: "tok-1"})
	first := newFakeConn()
	second := newFakeConn()

	r.attach("p1", first)
	r.attach("p1", second)

	if !first.isClosed() {
		t.Fatalf("stale connection left open after reattach")
	}
	if second.isClosed() {
		t.Fatalf("fresh connection closed during reattach")
	}
	frame := decodeControlFrame(t, second.lastControl())
	if frame["reconnect"] != true {
		t.Fatalf("reattach join ack missing reconnect flag: %v", frame)
	}
}

func TestDetachPausesAndGraceAbandons(t *testing.T) {
	cfg := Config{SimConfig: sim.DefaultConfig()}
	cfg.SimConfig.ReconnectGrace = 20 * time.Millisecond
	observer := &fakeObserver{}
	recorder := &fakeRecorder{}
	cfg.Observer = observer
	cfg.Results = recorder
	hub, r := newTestRoom(t, cfg, Credential{PlayerID: "p1", Token: "tok-1"})

	conn := newFakeConn()
	r.attach("p1", conn)
	advance(t, r, 2)

	r.detach("p1", conn, "connection lost")
	result := advance(t, r, 1)
	if result.Phase != sim.PhasePaused {
		t.Fatalf("phase = %s after last detach, want %s", result.Phase, sim.PhasePaused)
	}

	// The grace timer enqueues the expiry command once the window elapses.
	time.Sleep(60 * time.Millisecond)
	result = advance(t, r, 1)
	if result.Phase != sim.PhaseAbandoned {
		t.Fatalf("phase = %s after grace expiry, want %s", result.Phase, sim.PhaseAbandoned)
	}

	observer.mu.Lock()
	defer observer.mu.Unlock()
	if len(observer.ended) != 1 || observer.ended[0].phase != sim.PhaseAbandoned {
		t.Fatalf("observer notifications = %+v, want one abandoned", observer.ended)
	}
	if _, ok := hub.Session("sess-1"); ok {
		t.Fatalf("room still registered after terminal phase")
	}

	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	if len(recorder.sessions) != 1 || recorder.sessions[0].phase != sim.PhaseAbandoned {
		t.Fatalf("recorded sessions = %+v, want one abandoned", recorder.sessions)
	}
}

func TestReconnectCancelsGrace(t *testing.T) {
	cfg := Config{SimConfig: sim.DefaultConfig()}
	cfg.SimConfig.ReconnectGrace = 30 * time.Millisecond
	_, r := newTestRoom(t, cfg, Credential{PlayerID: "p1", Token: "tok-1"})

	conn := newFakeConn()
	r.attach("p1", conn)
	advance(t, r, 2)
	r.detach("p1", conn, "connection lost")
	advance(t, r, 1)

	replacement := newFakeConn()
	r.attach("p1", replacement)
	result := advance(t, r, 1)
	if result.Phase != sim.PhaseActive {
		t.Fatalf("phase = %s after reconnect, want %s", result.Phase, sim.PhaseActive)
	}

	time.Sleep(80 * time.Millisecond)
	result = advance(t, r, 1)
	if result.Phase != sim.PhaseActive {
		t.Fatalf("phase = %s long after cancelled grace, want %s", result.Phase, sim.PhaseActive)
	}
}

func TestTerminalPhaseClosesConnections(t *testing.T) {
	recorder := &fakeRecorder{}
	cfg := Config{SimConfig: sim.DefaultConfig(), Results: recorder}
	_, r := newTestRoom(t, cfg, Credential{PlayerID: "p1", Token: "tok-1"})
	conn := newFakeConn()
	r.attach("p1", conn)
	advance(t, r, 2)

	r.finish(sim.LoopStepResult{Tick: r.tickNow(), Phase: sim.PhaseCompleted, Events: []sim.GameEvent{{
		Kind:   sim.EventSessionEnded,
		Reason: "completed",
	}}})

	if !conn.isClosed() {
		t.Fatalf("connection left open after session close")
	}
	frame := decodeControlFrame(t, conn.lastControl())
	if frame["type"] != string(proto.TypeSessionClose) {
		t.Fatalf("last control frame = %v, want %v", frame["type"], proto.TypeSessionClose)
	}
	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	if len(recorder.sessions) != 1 || recorder.sessions[0].phase != sim.PhaseCompleted {
		t.Fatalf("recorded sessions = %+v, want one completed", recorder.sessions)
	}
}

func TestAdmitPlayerJoinsFormingSession(t *testing.T) {
	hub, r := newTestRoom(t, Config{}, Credential{PlayerID: "p1", Token: "tok-1"})

	if err := hub.AdmitPlayer("sess-1", Credential{PlayerID: "p2", Token: "tok-2"}); err != nil {
		t.Fatalf("AdmitPlayer: %v", err)
	}
	advance(t, r, 1)

	if !r.authenticate("p2", "tok-2") {
		t.Fatalf("admitted player cannot authenticate")
	}
	snap := r.session.Snapshot()
	if len(snap.Balls) != 2 {
		t.Fatalf("balls = %d, want 2 after admission", len(snap.Balls))
	}

	if err := hub.AdmitPlayer("missing", Credential{PlayerID: "p3", Token: "tok-3"}); err != ErrUnknownSession {
		t.Fatalf("admit to missing session err = %v, want ErrUnknownSession", err)
	}
	if err := hub.AdmitPlayer("sess-1", Credential{PlayerID: "p2", Token: "other"}); err == nil {
		t.Fatalf("duplicate admission accepted")
	}
}

func TestAdmitPlayerRejectedOnceActive(t *testing.T) {
	hub, r := newTestRoom(t, Config{}, Credential{PlayerID: "p1", Token: "tok-1"})
	conn := newFakeConn()
	r.attach("p1", conn)
	result := advance(t, r, 1)
	if result.Phase != sim.PhaseActive {
		t.Fatalf("phase = %s after first connect, want %s", result.Phase, sim.PhaseActive)
	}

	if err := hub.AdmitPlayer("sess-1", Credential{PlayerID: "p2", Token: "tok-2"}); err != ErrSessionStarted {
		t.Fatalf("admit into started session err = %v, want ErrSessionStarted", err)
	}
	if r.authenticate("p2", "tok-2") {
		t.Fatalf("rejected credential still authenticates")
	}
	advance(t, r, 1)
	if snap := r.session.Snapshot(); len(snap.Balls) != 1 {
		t.Fatalf("balls = %d, want 1 after rejected admission", len(snap.Balls))
	}
}

func TestDetachPublishesSingleDisconnectEvent(t *testing.T) {
	var mu sync.Mutex
	disconnects := 0
	cfg := Config{Publisher: logging.PublisherFunc(func(_ context.Context, event logging.Event) {
		mu.Lock()
		defer mu.Unlock()
		if event.Type == lifecycle.EventPlayerDisconnected {
			disconnects++
		}
	})}
	_, r := newTestRoom(t, cfg, Credential{PlayerID: "p1", Token: "tok-1"})
	conn := newFakeConn()
	r.attach("p1", conn)
	advance(t, r, 2)

	r.detach("p1", conn, "connection lost")
	advance(t, r, 2)

	mu.Lock()
	defer mu.Unlock()
	if disconnects != 1 {
		t.Fatalf("player_disconnected events = %d, want exactly 1", disconnects)
	}
}
