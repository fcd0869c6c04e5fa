package sim

import (
	"minigolf/server/internal/course"
	"minigolf/server/internal/geom"
)

// PatchKind identifies the type of diff entry.
type PatchKind string

const (
	// PatchBallMotion updates a ball's position, velocity, and rest flag.
	PatchBallMotion PatchKind = "ball_motion"
	// PatchBallHole updates the hole a ball is playing.
	PatchBallHole PatchKind = "ball_hole"
	// PatchScore updates a player's stroke count on a hole.
	PatchScore PatchKind = "score"
	// PatchScoreboard replaces a player's completed-hole scorecard.
	PatchScoreboard PatchKind = "scoreboard"
	// PatchPowerUpTaken marks a world power-up placement as consumed.
	PatchPowerUpTaken PatchKind = "power_up_taken"
	// PatchInventory updates a player's carried power-ups.
	PatchInventory PatchKind = "inventory"
	// PatchEffect updates a player's active power-up effect.
	PatchEffect PatchKind = "effect"
	// PatchSessionPhase updates the session state machine.
	PatchSessionPhase PatchKind = "session_phase"
	// PatchCourse updates the course the session is playing.
	PatchCourse PatchKind = "course"
	// PatchPlayerRemoved signals that a player left the session for good.
	PatchPlayerRemoved PatchKind = "player_removed"
)

// Patch represents a diff entry that can be applied to the client state.
type Patch struct {
	Kind     PatchKind `json:"kind" msgpack:"kind"`
	EntityID string    `json:"entityId" msgpack:"entityId"`
	Payload  any       `json:"payload,omitempty" msgpack:"payload,omitempty"`
}

// BallMotionPayload captures a ball's kinematic state.
type BallMotionPayload struct {
	Position geom.Vec3 `json:"position" msgpack:"position"`
	Velocity geom.Vec3 `json:"velocity" msgpack:"velocity"`
	AtRest   bool      `json:"atRest" msgpack:"atRest"`
}

// BallHolePayload captures a hole-index advance, or the course-done state
// once the last hole is scored.
type BallHolePayload struct {
	Hole       int  `json:"hole" msgpack:"hole"`
	CourseDone bool `json:"courseDone,omitempty" msgpack:"courseDone,omitempty"`
}

// ScorePayload captures a stroke-count change.
type ScorePayload struct {
	Hole    int `json:"hole" msgpack:"hole"`
	Strokes int `json:"strokes" msgpack:"strokes"`
}

// ScoreboardPayload captures the completed-hole scorecard after a hole is
// scored.
type ScoreboardPayload struct {
	Holes []int `json:"holes" msgpack:"holes"`
	Total int   `json:"total" msgpack:"total"`
}

// PowerUpTakenPayload captures a consumed placement. EntityID is the
// collecting player.
type PowerUpTakenPayload struct {
	Hole      int                `json:"hole" msgpack:"hole"`
	Placement int                `json:"placement" msgpack:"placement"`
	Kind      course.PowerUpKind `json:"kind" msgpack:"kind"`
}

// InventoryPayload captures the carried power-ups after a change.
type InventoryPayload struct {
	PowerUps []course.PowerUpKind `json:"powerUps" msgpack:"powerUps"`
}

// EffectPayload captures the active effect slot. An empty kind clears it.
type EffectPayload struct {
	Kind        course.PowerUpKind `json:"kind,omitempty" msgpack:"kind,omitempty"`
	ExpiresTick uint64             `json:"expiresTick,omitempty" msgpack:"expiresTick,omitempty"`
}

// SessionPhasePayload captures a state-machine transition.
type SessionPhasePayload struct {
	Phase  Phase  `json:"phase" msgpack:"phase"`
	Reason string `json:"reason,omitempty" msgpack:"reason,omitempty"`
}

// CoursePayload captures a course advance.
type CoursePayload struct {
	CourseID    string `json:"courseId" msgpack:"courseId"`
	CourseIndex int    `json:"courseIndex" msgpack:"courseIndex"`
}
