package course

import (
	"fmt"

	"minigolf/server/internal/geom"
)

// PowerUpKind names a collectible power-up behavior.
type PowerUpKind string

const (
	PowerUpHoleMagnet  PowerUpKind = "hole_magnet"
	PowerUpStickyBall  PowerUpKind = "sticky_ball"
	PowerUpWind        PowerUpKind = "wind"
	PowerUpStickyWalls PowerUpKind = "sticky_walls"
	PowerUpIceRink     PowerUpKind = "ice_rink"
)

// KnownPowerUp reports whether kind names a supported behavior.
func KnownPowerUp(kind PowerUpKind) bool {
	switch kind {
	case PowerUpHoleMagnet, PowerUpStickyBall, PowerUpWind, PowerUpStickyWalls, PowerUpIceRink:
		return true
	default:
		return false
	}
}

// PowerUpPlacement is a collectible power-up positioned on a hole.
type PowerUpPlacement struct {
	Transform geom.Transform `yaml:"transform"`
	Kind      PowerUpKind    `yaml:"kind"`
}

// HazardPlacement positions a bumper or jump pad on a hole.
type HazardPlacement struct {
	Transform geom.Transform `yaml:"transform"`
	// Strength scales the impulse the hazard applies. Zero means the
	// behavior default.
	Strength float64 `yaml:"strength,omitempty"`
	// Radius is the trigger distance of the hazard. Zero means the
	// behavior default.
	Radius float64 `yaml:"radius,omitempty"`
}

// Hole is one playable hole of a course. Read-only after load.
type Hole struct {
	Index         int            `yaml:"index"`
	Transform     geom.Transform `yaml:"transform"`
	StartPosition geom.Vec3      `yaml:"start_position"`

	HoleAsset string `yaml:"hole_asset"`
	WallAsset string `yaml:"wall_asset"`

	// BoundingBox gates which hole's logic applies to a ball. A ball
	// belongs to the hole whose box contains its position, never to a
	// hole by entity ancestry.
	BoundingBox geom.Box `yaml:"bounding_box"`
	// HoleSensor triggers completion once a resting ball lies inside it.
	HoleSensor geom.Box `yaml:"hole_sensor"`

	Par int `yaml:"par,omitempty"`

	PowerUps []PowerUpPlacement `yaml:"power_ups,omitempty"`
	Bumpers  []HazardPlacement  `yaml:"bumpers,omitempty"`
	JumpPads []HazardPlacement  `yaml:"jump_pads,omitempty"`
}

// Course is an ordered sequence of holes. Read-only after load; runtime
// hazard changes require loading a new Course and migrating the session.
type Course struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name,omitempty"`
	Holes []Hole `yaml:"holes"`
}

// HoleAt returns the hole with the given index.
func (c *Course) HoleAt(index int) (Hole, bool) {
	if c == nil || index < 0 || index >= len(c.Holes) {
		return Hole{}, false
	}
	return c.Holes[index], true
}

// HoleForPosition resolves which hole's logic applies to a position by
// bounding-box membership. The first matching hole in index order wins.
func (c *Course) HoleForPosition(p geom.Vec3) (Hole, bool) {
	if c == nil {
		return Hole{}, false
	}
	for _, hole := range c.Holes {
		if hole.BoundingBox.Contains(p) {
			return hole, true
		}
	}
	return Hole{}, false
}

// MalformedCourseError reports a course descriptor that failed validation.
// Fatal at load: a session must never form around a malformed course.
type MalformedCourseError struct {
	CourseID string
	Reason   string
}

func (e *MalformedCourseError) Error() string {
	if e.CourseID == "" {
		return fmt.Sprintf("malformed course: %s", e.Reason)
	}
	return fmt.Sprintf("malformed course %q: %s", e.CourseID, e.Reason)
}

func malformed(courseID, format string, args ...any) error {
	return &MalformedCourseError{CourseID: courseID, Reason: fmt.Sprintf(format, args...)}
}
