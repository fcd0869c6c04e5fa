package sim

import (
	"minigolf/server/internal/course"
	"minigolf/server/internal/geom"
)

// BallState is the replicated view of one ball.
type BallState struct {
	PlayerID   string               `json:"playerId" msgpack:"playerId"`
	Position   geom.Vec3            `json:"position" msgpack:"position"`
	Velocity   geom.Vec3            `json:"velocity" msgpack:"velocity"`
	HoleIndex  int                  `json:"hole" msgpack:"hole"`
	Strokes    int                  `json:"strokes" msgpack:"strokes"`
	AtRest     bool                 `json:"atRest" msgpack:"atRest"`
	CanMove    bool                 `json:"canMove" msgpack:"canMove"`
	CourseDone bool                 `json:"courseDone,omitempty" msgpack:"courseDone,omitempty"`
	PowerUps   []course.PowerUpKind `json:"powerUps,omitempty" msgpack:"powerUps,omitempty"`
	Effect     *EffectPayload       `json:"effect,omitempty" msgpack:"effect,omitempty"`
}

// PlayerScore is the replicated per-player scoreboard for the active course.
type PlayerScore struct {
	PlayerID string `json:"playerId" msgpack:"playerId"`
	// Holes holds strokes per completed hole index; the active hole's
	// running count lives on the ball.
	Holes []int `json:"holes" msgpack:"holes"`
	Total int   `json:"total" msgpack:"total"`
}

// ConsumedPlacement identifies a power-up placement already picked up.
type ConsumedPlacement struct {
	Hole      int `json:"hole" msgpack:"hole"`
	Placement int `json:"placement" msgpack:"placement"`
}

// Snapshot is the render-facing subset of session state for one tick.
// Clients never hold authoritative state; this is always derived.
type Snapshot struct {
	SessionID   string              `json:"sessionId" msgpack:"sessionId"`
	Tick        uint64              `json:"t" msgpack:"t"`
	Phase       Phase               `json:"phase" msgpack:"phase"`
	CourseID    string              `json:"courseId" msgpack:"courseId"`
	CourseIndex int                 `json:"courseIndex" msgpack:"courseIndex"`
	Balls       []BallState         `json:"balls" msgpack:"balls"`
	Scores      []PlayerScore       `json:"scores" msgpack:"scores"`
	Consumed    []ConsumedPlacement `json:"consumed,omitempty" msgpack:"consumed,omitempty"`
}

// GameEvent is a reliable, ordered gameplay announcement surfaced to the
// control channel alongside the tick's patches.
type GameEvent struct {
	Kind    GameEventKind `json:"kind" msgpack:"kind"`
	Tick    uint64        `json:"t" msgpack:"t"`
	Player  string        `json:"player,omitempty" msgpack:"player,omitempty"`
	Hole    int           `json:"hole,omitempty" msgpack:"hole,omitempty"`
	Strokes int           `json:"strokes,omitempty" msgpack:"strokes,omitempty"`
	Course  string        `json:"course,omitempty" msgpack:"course,omitempty"`
	Reason  string        `json:"reason,omitempty" msgpack:"reason,omitempty"`
}

// GameEventKind names a reliable gameplay announcement.
type GameEventKind string

const (
	// EventHoleComplete announces a scored hole.
	EventHoleComplete GameEventKind = "hole_complete"
	// EventCourseAdvanced announces the session moved to its next course.
	EventCourseAdvanced GameEventKind = "course_advanced"
	// EventSessionEnded announces a terminal session phase.
	EventSessionEnded GameEventKind = "session_ended"
)
