package sim

import (
	"math"

	"minigolf/server/internal/geom"
)

// Body is the rigid-body view of a ball handed to the solver.
type Body struct {
	Position geom.Vec3
	Velocity geom.Vec3
	Radius   float64
}

// Environment is the static context a body moves through during one step.
type Environment struct {
	// Bounds is the active hole's bounding box; its faces act as walls
	// and its bottom face as the floor.
	Bounds      geom.Box
	Friction    float64
	Restitution float64
	Gravity     float64
	// ExtraForce folds in active effect forces (wind, hole magnet).
	ExtraForce geom.Vec3
}

// Contact reports what a body touched during a step.
type Contact struct {
	HitWall bool
	OnFloor bool
}

// Solver advances one rigid body by one fixed timestep. The session treats
// it as a black box; implementations must be deterministic for identical
// inputs.
type Solver interface {
	Step(b *Body, env Environment, dt float64) Contact
}

// NewSolver returns the built-in sphere-vs-box solver.
func NewSolver() Solver {
	return rigidSolver{}
}

type rigidSolver struct{}

func (rigidSolver) Step(b *Body, env Environment, dt float64) Contact {
	var contact Contact

	bottomY := env.Bounds.Center.Y - env.Bounds.HalfExtents.Y
	topY := env.Bounds.Center.Y + env.Bounds.HalfExtents.Y
	floorY := bottomY + b.Radius

	// Integrate forces.
	b.Velocity.Y -= env.Gravity * dt
	b.Velocity = b.Velocity.Add(env.ExtraForce.Scale(dt))
	b.Position = b.Position.Add(b.Velocity.Scale(dt))

	minX := env.Bounds.Center.X - env.Bounds.HalfExtents.X + b.Radius
	maxX := env.Bounds.Center.X + env.Bounds.HalfExtents.X - b.Radius
	minZ := env.Bounds.Center.Z - env.Bounds.HalfExtents.Z + b.Radius
	maxZ := env.Bounds.Center.Z + env.Bounds.HalfExtents.Z - b.Radius

	// The floor only exists under the hole footprint. A ball that clears
	// the walls keeps falling toward the kill plane.
	overFloor := b.Position.X >= minX-b.Radius && b.Position.X <= maxX+b.Radius &&
		b.Position.Z >= minZ-b.Radius && b.Position.Z <= maxZ+b.Radius
	if overFloor && b.Position.Y <= floorY {
		b.Position.Y = floorY
		if b.Velocity.Y < 0 {
			b.Velocity.Y = -b.Velocity.Y * env.Restitution
			// Swallow bounces smaller than two gravity steps so a
			// grounded ball settles instead of jittering on the floor.
			if math.Abs(b.Velocity.Y) < 2*env.Gravity*dt {
				b.Velocity.Y = 0
			}
		}
		contact.OnFloor = true
	}

	// Walls span the box height; a ball above the top or below the bottom
	// face passes over or under them.
	if b.Position.Y >= bottomY && b.Position.Y <= topY {
		if b.Position.X < minX {
			b.Position.X = minX
			b.Velocity.X = -b.Velocity.X * env.Restitution
			contact.HitWall = true
		} else if b.Position.X > maxX {
			b.Position.X = maxX
			b.Velocity.X = -b.Velocity.X * env.Restitution
			contact.HitWall = true
		}
		if b.Position.Z < minZ {
			b.Position.Z = minZ
			b.Velocity.Z = -b.Velocity.Z * env.Restitution
			contact.HitWall = true
		} else if b.Position.Z > maxZ {
			b.Position.Z = maxZ
			b.Velocity.Z = -b.Velocity.Z * env.Restitution
			contact.HitWall = true
		}
	}

	// Rolling friction while grounded.
	if contact.OnFloor {
		damping := 1 - env.Friction*dt
		if damping < 0 {
			damping = 0
		}
		b.Velocity.X *= damping
		b.Velocity.Z *= damping
	}

	return contact
}

// resolveBallCollision applies an equal-mass elastic response between two
// overlapping balls, separating them along the contact normal.
func resolveBallCollision(a, b *Body) bool {
	delta := b.Position.Sub(a.Position)
	dist := delta.Length()
	minDist := a.Radius + b.Radius
	if dist >= minDist || dist == 0 {
		return false
	}

	normal := delta.Scale(1 / dist)
	overlap := minDist - dist
	a.Position = a.Position.Sub(normal.Scale(overlap / 2))
	b.Position = b.Position.Add(normal.Scale(overlap / 2))

	relative := a.Velocity.Sub(b.Velocity).Dot(normal)
	if relative <= 0 {
		return true
	}
	exchange := normal.Scale(relative)
	a.Velocity = a.Velocity.Sub(exchange)
	b.Velocity = b.Velocity.Add(exchange)
	return true
}
