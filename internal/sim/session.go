package sim

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"minigolf/server/internal/course"
	"minigolf/server/internal/geom"
	"minigolf/server/logging"
	"minigolf/server/logging/gameplay"
	"minigolf/server/logging/lifecycle"
)

// Phase is the session state machine. Completed and Abandoned are terminal.
type Phase string

const (
	PhaseForming   Phase = "forming"
	PhaseActive    Phase = "active"
	PhasePaused    Phase = "paused"
	PhaseCompleted Phase = "completed"
	PhaseAbandoned Phase = "abandoned"
)

// Terminal reports whether no further simulation can happen.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseAbandoned
}

const (
	holeMagnetMinDistance = 0.05
	holeMagnetMaxDistance = 0.5
	iceRinkFrictionScale  = 0.1
)

// ErrNoCourses rejects session construction without a playable course list.
var ErrNoCourses = errors.New("session requires at least one course")

type ball struct {
	playerID  string
	body      Body
	holeIndex int
	strokes   int
	atRest    bool
	canMove   bool
	restTicks int
	// lastRest is the most recent settled position, the reset target when
	// the ball leaves its hole's bounding box.
	lastRest   geom.Vec3
	courseDone bool
	connected  bool
	powerUps   []course.PowerUpKind
}

type activeEffect struct {
	kind    course.PowerUpKind
	owner   string
	dir     geom.Vec3
	expires uint64
}

// CourseResult records the finished scorecard of one played course.
type CourseResult struct {
	CourseID string
	// Strokes maps player id to strokes per hole index.
	Strokes map[string][]int
}

// Session owns one running game: a course list, the players' balls, scores,
// and the tick counter. It is exclusively mutated by its own tick loop;
// network handlers reach it only through staged commands.
type Session struct {
	id  string
	cfg Config

	courses   []*course.Course
	courseIdx int

	tick  uint64
	phase Phase

	order []string
	balls map[string]*ball
	// scores holds strokes per completed hole for the active course.
	scores map[string][]int
	// consumed marks picked-up power-up placements: hole index → placement index.
	consumed map[int]map[int]bool
	effects  []activeEffect
	results  []CourseResult

	patches []Patch
	events  []GameEvent

	solver    Solver
	publisher logging.Publisher

	// appliedThisTick enforces at most one accepted input batch per player
	// per tick.
	appliedThisTick map[string]bool
}

// NewSession builds a Forming session for the given roster. The lobby hands
// the initial roster over at creation; further players may be admitted with
// CommandAdmit while the session is still Forming.
func NewSession(id string, cfg Config, courses []*course.Course, roster []string, publisher logging.Publisher) (*Session, error) {
	if len(courses) == 0 {
		return nil, ErrNoCourses
	}
	if len(roster) == 0 {
		return nil, errors.New("session requires at least one player")
	}
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	s := &Session{
		id:              id,
		cfg:             cfg,
		courses:         courses,
		phase:           PhaseForming,
		balls:           make(map[string]*ball, len(roster)),
		scores:          make(map[string][]int, len(roster)),
		consumed:        make(map[int]map[int]bool),
		solver:          NewSolver(),
		publisher:       publisher,
		appliedThisTick: make(map[string]bool),
	}
	start := courses[0].Holes[0].StartPosition
	for _, playerID := range roster {
		if _, dup := s.balls[playerID]; dup {
			return nil, fmt.Errorf("duplicate player %q in roster", playerID)
		}
		s.order = append(s.order, playerID)
		s.balls[playerID] = &ball{
			playerID: playerID,
			body:     Body{Position: start, Radius: cfg.BallRadius},
			atRest:   true,
			canMove:  true,
			lastRest: start,
		}
		s.scores[playerID] = nil
	}
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Tick returns the current tick counter.
func (s *Session) Tick() uint64 { return s.tick }

// Phase returns the current state-machine phase.
func (s *Session) Phase() Phase { return s.phase }

// Roster returns the player ids in join order.
func (s *Session) Roster() []string {
	return append([]string(nil), s.order...)
}

// Results returns the scorecards of every finished course.
func (s *Session) Results() []CourseResult {
	return append([]CourseResult(nil), s.results...)
}

func (s *Session) currentCourse() *course.Course {
	return s.courses[s.courseIdx]
}

// Apply stages lifecycle and gameplay commands into session state. Gameplay
// commands are accepted at most once per player per tick and only while the
// session is Active.
func (s *Session) Apply(commands []Command) error {
	for _, cmd := range commands {
		switch cmd.Type {
		case CommandAdmit:
			s.applyAdmit(cmd)
		case CommandConnect:
			s.applyConnect(cmd)
		case CommandDisconnect:
			s.applyDisconnect(cmd)
		case CommandGraceExpired:
			s.applyGraceExpired(cmd)
		case CommandShoot:
			s.applyShoot(cmd)
		case CommandUsePowerUp:
			s.applyUsePowerUp(cmd)
		}
	}
	return nil
}

func (s *Session) applyAdmit(cmd Command) {
	if s.phase != PhaseForming || cmd.ActorID == "" {
		return
	}
	if _, exists := s.balls[cmd.ActorID]; exists {
		return
	}
	start := s.currentCourse().Holes[0].StartPosition
	s.order = append(s.order, cmd.ActorID)
	s.balls[cmd.ActorID] = &ball{
		playerID: cmd.ActorID,
		body:     Body{Position: start, Radius: s.cfg.BallRadius},
		atRest:   true,
		canMove:  true,
		lastRest: start,
	}
	s.scores[cmd.ActorID] = nil
}

func (s *Session) applyConnect(cmd Command) {
	b, ok := s.balls[cmd.ActorID]
	if !ok {
		return
	}
	b.connected = true
	switch s.phase {
	case PhaseForming:
		if s.connectedCount() >= s.cfg.MinPlayers {
			s.setPhase(PhaseActive, "minimum players connected")
		}
	case PhasePaused:
		s.setPhase(PhaseActive, "player reconnected")
	}
}

func (s *Session) applyDisconnect(cmd Command) {
	b, ok := s.balls[cmd.ActorID]
	if !ok || !b.connected {
		return
	}
	b.connected = false
	// The room publishes the lifecycle event when the connection detaches.
	// A disconnected player's ball keeps obeying physics; only when every
	// live connection is gone does the session pause.
	if s.phase == PhaseActive && s.connectedCount() == 0 {
		s.setPhase(PhasePaused, "all connections dropped")
	}
}

func (s *Session) applyGraceExpired(cmd Command) {
	if s.phase != PhasePaused {
		return
	}
	s.setPhase(PhaseAbandoned, "reconnect grace expired")
	s.events = append(s.events, GameEvent{
		Kind:   EventSessionEnded,
		Tick:   s.tick,
		Reason: "abandoned",
	})
}

func (s *Session) applyShoot(cmd Command) {
	if s.phase != PhaseActive || cmd.Shoot == nil {
		return
	}
	if s.appliedThisTick[cmd.ActorID] {
		return
	}
	b, ok := s.balls[cmd.ActorID]
	if !ok || b.courseDone || !b.canMove {
		return
	}
	impulse := geom.Vec3{X: cmd.Shoot.X, Z: cmd.Shoot.Z}.ClampLength(s.cfg.MaxImpulse)
	if impulse.Length() == 0 {
		return
	}
	s.appliedThisTick[cmd.ActorID] = true

	b.body.Velocity = b.body.Velocity.Add(impulse)
	b.strokes++
	b.atRest = false
	b.canMove = false
	b.restTicks = 0
	s.appendPatch(PatchScore, cmd.ActorID, ScorePayload{Hole: b.holeIndex, Strokes: b.strokes})
	gameplay.Stroke(context.Background(), s.publisher, s.tick,
		logging.EntityRef{ID: cmd.ActorID, Kind: logging.EntityKindPlayer},
		gameplay.StrokePayload{Hole: b.holeIndex, Strokes: b.strokes, Impulse: impulse.Length()})
}

func (s *Session) applyUsePowerUp(cmd Command) {
	if s.phase != PhaseActive || cmd.PowerUp == nil {
		return
	}
	b, ok := s.balls[cmd.ActorID]
	if !ok {
		return
	}
	idx := -1
	for i, kind := range b.powerUps {
		if kind == cmd.PowerUp.Kind {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	b.powerUps = append(b.powerUps[:idx], b.powerUps[idx+1:]...)
	s.effects = append(s.effects, activeEffect{
		kind:    cmd.PowerUp.Kind,
		owner:   cmd.ActorID,
		dir:     geom.Vec3{X: 1},
		expires: s.tick + s.cfg.EffectTicks,
	})
	s.appendPatch(PatchInventory, cmd.ActorID, InventoryPayload{PowerUps: append([]course.PowerUpKind(nil), b.powerUps...)})
	s.appendPatch(PatchEffect, cmd.ActorID, EffectPayload{Kind: cmd.PowerUp.Kind, ExpiresTick: s.tick + s.cfg.EffectTicks})
}

// Step advances the simulation by exactly one fixed timestep. A tick is
// atomic: it either runs to completion or does not start.
func (s *Session) Step() {
	clear(s.appliedThisTick)
	if s.phase != PhaseActive {
		return
	}

	dt := s.cfg.FixedDelta()
	s.expireEffects()
	s.stepPhysics(dt)
	s.resolveHazards()
	s.resolvePowerUpPickups()
	s.updateRestState()
	s.resolveHoleSensors()
	s.resolveOutOfBounds()
	s.resolveCourseCompletion()

	s.tick++
}

func (s *Session) stepPhysics(dt float64) {
	c := s.currentCourse()
	type moved struct {
		before geom.Vec3
		rest   bool
	}
	prior := make([]moved, len(s.order))
	for i, playerID := range s.order {
		b := s.balls[playerID]
		prior[i] = moved{before: b.body.Position, rest: b.atRest}
		hole, ok := c.HoleAt(b.holeIndex)
		if !ok {
			continue
		}
		env := Environment{
			Bounds:      hole.BoundingBox,
			Friction:    s.cfg.Friction,
			Restitution: s.cfg.Restitution,
			Gravity:     s.cfg.Gravity,
			ExtraForce:  s.effectForce(b, hole),
		}
		if s.frictionScaled(b) {
			env.Friction *= iceRinkFrictionScale
		}
		contact := s.solver.Step(&b.body, env, dt)
		if contact.HitWall {
			s.resolveStickyContacts(b)
		}
	}

	// Ball-ball collisions, pairwise in join order for determinism. A
	// disconnected player's ball can still be knocked around.
	for i := 0; i < len(s.order); i++ {
		for j := i + 1; j < len(s.order); j++ {
			a, b := s.balls[s.order[i]], s.balls[s.order[j]]
			if a.holeIndex != b.holeIndex || a.courseDone || b.courseDone {
				continue
			}
			if resolveBallCollision(&a.body, &b.body) {
				a.atRest, a.canMove, a.restTicks = false, false, 0
				b.atRest, b.canMove, b.restTicks = false, false, 0
			}
		}
	}

	for i, playerID := range s.order {
		b := s.balls[playerID]
		if b.body.Position != prior[i].before || b.atRest != prior[i].rest {
			s.appendPatch(PatchBallMotion, playerID, BallMotionPayload{
				Position: b.body.Position,
				Velocity: b.body.Velocity,
				AtRest:   b.atRest,
			})
		}
	}
}

func (s *Session) effectForce(b *ball, hole course.Hole) geom.Vec3 {
	var force geom.Vec3
	for _, effect := range s.effects {
		switch effect.kind {
		case course.PowerUpWind:
			// Wind pushes every ball except its owner's.
			if effect.owner != b.playerID {
				force = force.Add(effect.dir.Normalized().Scale(s.cfg.WindStrength))
			}
		case course.PowerUpHoleMagnet:
			if effect.owner != b.playerID {
				continue
			}
			toHole := hole.HoleSensor.Center.Sub(b.body.Position)
			distance := toHole.Length()
			if distance <= holeMagnetMinDistance || distance >= holeMagnetMaxDistance {
				continue
			}
			force = force.Add(toHole.Normalized().Scale(s.cfg.HoleMagnetStrength))
		}
	}
	return force
}

func (s *Session) frictionScaled(b *ball) bool {
	for _, effect := range s.effects {
		if effect.kind != course.PowerUpIceRink {
			continue
		}
		owner, ok := s.balls[effect.owner]
		if ok && owner.holeIndex == b.holeIndex {
			return true
		}
	}
	return false
}

func (s *Session) resolveStickyContacts(b *ball) {
	for i, effect := range s.effects {
		switch effect.kind {
		case course.PowerUpStickyWalls:
			b.body.Velocity = geom.Vec3{}
			return
		case course.PowerUpStickyBall:
			if effect.owner != b.playerID {
				continue
			}
			b.body.Velocity = geom.Vec3{}
			s.effects = append(s.effects[:i], s.effects[i+1:]...)
			s.appendPatch(PatchEffect, b.playerID, EffectPayload{})
			return
		}
	}
}

func (s *Session) expireEffects() {
	kept := s.effects[:0]
	for _, effect := range s.effects {
		if s.tick < effect.expires {
			kept = append(kept, effect)
			continue
		}
		s.appendPatch(PatchEffect, effect.owner, EffectPayload{})
	}
	s.effects = kept
}

func (s *Session) resolveHazards() {
	c := s.currentCourse()
	for _, playerID := range s.order {
		b := s.balls[playerID]
		hole, ok := c.HoleAt(b.holeIndex)
		if !ok {
			continue
		}
		for _, bumper := range hole.Bumpers {
			radius := bumper.Radius
			if radius == 0 {
				radius = s.cfg.BumperRadius
			}
			away := b.body.Position.Sub(bumper.Transform.Position)
			away.Y = 0
			if away.Length() > radius {
				continue
			}
			strength := bumper.Strength
			if strength == 0 {
				strength = s.cfg.BumperStrength
			}
			b.body.Velocity = b.body.Velocity.Add(away.Normalized().Scale(strength))
			b.atRest, b.canMove, b.restTicks = false, false, 0
		}
		for _, pad := range hole.JumpPads {
			radius := pad.Radius
			if radius == 0 {
				radius = s.cfg.JumpPadRadius
			}
			flat := b.body.Position.Sub(pad.Transform.Position)
			flat.Y = 0
			if flat.Length() > radius {
				continue
			}
			strength := pad.Strength
			if strength == 0 {
				strength = s.cfg.JumpPadStrength
			}
			// A jump pad only fires on a moving ball; a resting ball
			// parked on one stays put.
			if b.atRest {
				continue
			}
			b.body.Velocity.Y = strength
			b.restTicks = 0
		}
	}
}

func (s *Session) resolvePowerUpPickups() {
	c := s.currentCourse()
	for _, playerID := range s.order {
		b := s.balls[playerID]
		hole, ok := c.HoleAt(b.holeIndex)
		if !ok {
			continue
		}
		taken := s.consumed[b.holeIndex]
		for i, placement := range hole.PowerUps {
			if taken[i] {
				continue
			}
			if len(b.powerUps) >= s.cfg.PowerUpSlots {
				continue
			}
			if b.body.Position.Sub(placement.Transform.Position).Length() > s.cfg.PowerUpPickupRadius {
				continue
			}
			if taken == nil {
				taken = make(map[int]bool)
				s.consumed[b.holeIndex] = taken
			}
			taken[i] = true
			b.powerUps = append(b.powerUps, placement.Kind)
			s.appendPatch(PatchPowerUpTaken, playerID, PowerUpTakenPayload{Hole: b.holeIndex, Placement: i, Kind: placement.Kind})
			s.appendPatch(PatchInventory, playerID, InventoryPayload{PowerUps: append([]course.PowerUpKind(nil), b.powerUps...)})
			gameplay.PowerUpPickup(context.Background(), s.publisher, s.tick,
				logging.EntityRef{ID: playerID, Kind: logging.EntityKindPlayer},
				gameplay.PowerUpPickupPayload{Hole: b.holeIndex, Placement: i, Kind: string(placement.Kind)})
		}
	}
}

func (s *Session) updateRestState() {
	for _, playerID := range s.order {
		b := s.balls[playerID]
		if b.body.Velocity.Length() < s.cfg.RestSpeed {
			b.restTicks++
		} else {
			b.restTicks = 0
			b.atRest = false
			b.canMove = false
			continue
		}
		if b.restTicks >= s.cfg.RestTicks && !b.atRest {
			b.atRest = true
			b.canMove = true
			b.body.Velocity = geom.Vec3{}
			b.lastRest = b.body.Position
			s.appendPatch(PatchBallMotion, playerID, BallMotionPayload{
				Position: b.body.Position,
				Velocity: b.body.Velocity,
				AtRest:   true,
			})
		}
	}
}

// resolveHoleSensors evaluates completion only for resting balls so that a
// ball skipping across the cup mid-shot never scores prematurely.
func (s *Session) resolveHoleSensors() {
	c := s.currentCourse()
	for _, playerID := range s.order {
		b := s.balls[playerID]
		if !b.atRest || b.courseDone {
			continue
		}
		hole, ok := c.HoleAt(b.holeIndex)
		if !ok || !hole.HoleSensor.Contains(b.body.Position) {
			continue
		}

		s.scores[playerID] = append(s.scores[playerID], b.strokes)
		total := 0
		for _, strokes := range s.scores[playerID] {
			total += strokes
		}
		s.appendPatch(PatchScoreboard, playerID, ScoreboardPayload{
			Holes: append([]int(nil), s.scores[playerID]...),
			Total: total,
		})
		s.events = append(s.events, GameEvent{
			Kind:    EventHoleComplete,
			Tick:    s.tick,
			Player:  playerID,
			Hole:    b.holeIndex,
			Strokes: b.strokes,
		})
		gameplay.HoleComplete(context.Background(), s.publisher, s.tick,
			logging.EntityRef{ID: playerID, Kind: logging.EntityKindPlayer},
			gameplay.HoleCompletePayload{Hole: b.holeIndex, Strokes: b.strokes})

		next, ok := c.HoleAt(b.holeIndex + 1)
		if !ok {
			b.courseDone = true
			s.appendPatch(PatchBallHole, playerID, BallHolePayload{Hole: b.holeIndex, CourseDone: true})
			continue
		}
		// Hole index only moves forward; resets happen via course
		// advance, never here.
		b.holeIndex++
		b.strokes = 0
		s.placeBall(b, next.StartPosition)
		s.appendPatch(PatchBallHole, playerID, BallHolePayload{Hole: b.holeIndex})
	}
}

func (s *Session) resolveOutOfBounds() {
	c := s.currentCourse()
	for _, playerID := range s.order {
		b := s.balls[playerID]
		if b.courseDone {
			continue
		}
		hole, ok := c.HoleAt(b.holeIndex)
		if !ok || hole.BoundingBox.Contains(b.body.Position) {
			continue
		}
		if b.body.Position.Y < s.cfg.KillPlaneY {
			// Escaped the course geometry entirely: back to the hole
			// start with a one-stroke penalty. Divergent state must
			// never reach clients.
			b.strokes++
			s.placeBall(b, hole.StartPosition)
			s.appendPatch(PatchScore, playerID, ScorePayload{Hole: b.holeIndex, Strokes: b.strokes})
			gameplay.OutOfBounds(context.Background(), s.publisher, s.tick,
				logging.EntityRef{ID: playerID, Kind: logging.EntityKindPlayer},
				gameplay.OutOfBoundsPayload{Hole: b.holeIndex, Penalty: true})
		} else {
			// Left the hole's bounds but still on the course: restore
			// the last resting position without penalty.
			s.placeBall(b, b.lastRest)
			gameplay.OutOfBounds(context.Background(), s.publisher, s.tick,
				logging.EntityRef{ID: playerID, Kind: logging.EntityKindPlayer},
				gameplay.OutOfBoundsPayload{Hole: b.holeIndex, Penalty: false})
		}
	}
}

func (s *Session) placeBall(b *ball, position geom.Vec3) {
	b.body.Position = position
	b.body.Velocity = geom.Vec3{}
	b.atRest = true
	b.canMove = true
	b.restTicks = s.cfg.RestTicks
	b.lastRest = position
	s.appendPatch(PatchBallMotion, b.playerID, BallMotionPayload{Position: position, AtRest: true})
}

func (s *Session) resolveCourseCompletion() {
	for _, playerID := range s.order {
		if !s.balls[playerID].courseDone {
			return
		}
	}

	s.results = append(s.results, CourseResult{
		CourseID: s.currentCourse().ID,
		Strokes:  s.copyScores(),
	})

	if s.courseIdx+1 < len(s.courses) {
		s.courseIdx++
		next := s.currentCourse()
		start := next.Holes[0].StartPosition
		for _, playerID := range s.order {
			b := s.balls[playerID]
			b.holeIndex = 0
			b.strokes = 0
			b.courseDone = false
			s.placeBall(b, start)
			s.appendPatch(PatchBallHole, playerID, BallHolePayload{Hole: 0})
			s.scores[playerID] = nil
		}
		s.consumed = make(map[int]map[int]bool)
		s.effects = nil
		s.appendPatch(PatchCourse, s.id, CoursePayload{CourseID: next.ID, CourseIndex: s.courseIdx})
		s.events = append(s.events, GameEvent{Kind: EventCourseAdvanced, Tick: s.tick, Course: next.ID})
		return
	}

	s.setPhase(PhaseCompleted, "course list completed")
	s.events = append(s.events, GameEvent{Kind: EventSessionEnded, Tick: s.tick, Reason: "completed"})
}

func (s *Session) setPhase(next Phase, reason string) {
	if s.phase == next {
		return
	}
	prev := s.phase
	s.phase = next
	s.appendPatch(PatchSessionPhase, s.id, SessionPhasePayload{Phase: next, Reason: reason})
	lifecycle.SessionPhase(context.Background(), s.publisher, s.tick,
		logging.EntityRef{ID: s.id, Kind: logging.EntityKindSession},
		lifecycle.SessionPhasePayload{From: string(prev), To: string(next), Reason: reason})
}

func (s *Session) connectedCount() int {
	count := 0
	for _, playerID := range s.order {
		if s.balls[playerID].connected {
			count++
		}
	}
	return count
}

func (s *Session) copyScores() map[string][]int {
	copied := make(map[string][]int, len(s.scores))
	for playerID, holes := range s.scores {
		copied[playerID] = append([]int(nil), holes...)
	}
	return copied
}

func (s *Session) appendPatch(kind PatchKind, entityID string, payload any) {
	s.patches = append(s.patches, Patch{Kind: kind, EntityID: entityID, Payload: payload})
}

// DrainPatches returns the diff entries accumulated since the last drain.
func (s *Session) DrainPatches() []Patch {
	patches := s.patches
	s.patches = nil
	return patches
}

// DrainEvents returns the reliable gameplay events accumulated since the
// last drain.
func (s *Session) DrainEvents() []GameEvent {
	events := s.events
	s.events = nil
	return events
}

// Snapshot renders the full replicated view of the current state.
func (s *Session) Snapshot() Snapshot {
	snapshot := Snapshot{
		SessionID:   s.id,
		Tick:        s.tick,
		Phase:       s.phase,
		CourseID:    s.currentCourse().ID,
		CourseIndex: s.courseIdx,
		Balls:       make([]BallState, 0, len(s.order)),
		Scores:      make([]PlayerScore, 0, len(s.order)),
	}
	for _, playerID := range s.order {
		b := s.balls[playerID]
		state := BallState{
			PlayerID:   playerID,
			Position:   b.body.Position,
			Velocity:   b.body.Velocity,
			HoleIndex:  b.holeIndex,
			Strokes:    b.strokes,
			AtRest:     b.atRest,
			CanMove:    b.canMove,
			CourseDone: b.courseDone,
		}
		if len(b.powerUps) > 0 {
			state.PowerUps = append([]course.PowerUpKind(nil), b.powerUps...)
		}
		for _, effect := range s.effects {
			if effect.owner == playerID {
				state.Effect = &EffectPayload{Kind: effect.kind, ExpiresTick: effect.expires}
				break
			}
		}
		snapshot.Balls = append(snapshot.Balls, state)

		holes := append([]int(nil), s.scores[playerID]...)
		total := 0
		for _, strokes := range holes {
			total += strokes
		}
		snapshot.Scores = append(snapshot.Scores, PlayerScore{PlayerID: playerID, Holes: holes, Total: total})
	}
	for holeIdx, placements := range s.consumed {
		for placementIdx, taken := range placements {
			if taken {
				snapshot.Consumed = append(snapshot.Consumed, ConsumedPlacement{Hole: holeIdx, Placement: placementIdx})
			}
		}
	}
	sort.Slice(snapshot.Consumed, func(i, j int) bool {
		a, b := snapshot.Consumed[i], snapshot.Consumed[j]
		if a.Hole != b.Hole {
			return a.Hole < b.Hole
		}
		return a.Placement < b.Placement
	})
	return snapshot
}
