package sim

import (
	"testing"

	"minigolf/server/internal/geom"
)

func testEnv() Environment {
	return Environment{
		Bounds: geom.Box{
			Center:      geom.Vec3{X: 0, Y: 0.5, Z: 0},
			HalfExtents: geom.Vec3{X: 1, Y: 0.5, Z: 1},
		},
		Friction:    1.1,
		Restitution: 0.7,
		Gravity:     9.81,
	}
}

func TestSolverSettlesGroundedBall(t *testing.T) {
	solver := NewSolver()
	env := testEnv()
	dt := 1.0 / 128
	b := Body{Position: geom.Vec3{Y: 0.021336}, Radius: 0.021336}

	for i := 0; i < 10; i++ {
		solver.Step(&b, env, dt)
	}
	if b.Velocity.Length() != 0 {
		t.Fatalf("grounded ball still moving: v=%v", b.Velocity)
	}
	if b.Position.Y != 0.021336 {
		t.Fatalf("grounded ball sank: y=%f", b.Position.Y)
	}
}

func TestSolverReflectsOffWalls(t *testing.T) {
	solver := NewSolver()
	env := testEnv()
	dt := 1.0 / 128
	b := Body{
		Position: geom.Vec3{X: 0.9, Y: 0.021336},
		Velocity: geom.Vec3{X: 20},
		Radius:   0.021336,
	}

	contact := solver.Step(&b, env, dt)
	if !contact.HitWall {
		t.Fatalf("expected wall contact")
	}
	if b.Velocity.X >= 0 {
		t.Fatalf("velocity not reflected: vx=%f", b.Velocity.X)
	}
	if b.Position.X > 1-b.Radius {
		t.Fatalf("ball outside wall: x=%f", b.Position.X)
	}
}

func TestSolverFrictionSlowsRoll(t *testing.T) {
	solver := NewSolver()
	env := testEnv()
	dt := 1.0 / 128
	b := Body{Position: geom.Vec3{Y: 0.021336}, Velocity: geom.Vec3{X: 1}, Radius: 0.021336}

	solver.Step(&b, env, dt)
	if b.Velocity.X >= 1 {
		t.Fatalf("friction did not slow the ball: vx=%f", b.Velocity.X)
	}
}

func TestSolverBallFallsOutsideFootprint(t *testing.T) {
	solver := NewSolver()
	env := testEnv()
	dt := 1.0 / 128
	b := Body{Position: geom.Vec3{X: 5, Y: 0.5}, Radius: 0.021336}

	before := b.Position.Y
	contact := solver.Step(&b, env, dt)
	if contact.OnFloor {
		t.Fatalf("floor contact outside footprint")
	}
	if b.Position.Y >= before {
		t.Fatalf("ball did not fall: y=%f", b.Position.Y)
	}
}

func TestSolverDeterministic(t *testing.T) {
	solver := NewSolver()
	env := testEnv()
	dt := 1.0 / 128

	run := func() Body {
		b := Body{Position: geom.Vec3{X: -0.5, Y: 0.021336}, Velocity: geom.Vec3{X: 2, Z: 0.3}, Radius: 0.021336}
		for i := 0; i < 500; i++ {
			solver.Step(&b, env, dt)
		}
		return b
	}

	if a, b := run(), run(); a != b {
		t.Fatalf("solver diverged:\n%+v\n%+v", a, b)
	}
}

func TestBallCollisionExchangesMomentum(t *testing.T) {
	a := &Body{Position: geom.Vec3{X: 0}, Velocity: geom.Vec3{X: 1}, Radius: 0.02}
	b := &Body{Position: geom.Vec3{X: 0.03}, Radius: 0.02}

	if !resolveBallCollision(a, b) {
		t.Fatalf("overlapping balls did not collide")
	}
	if a.Velocity.X != 0 {
		t.Fatalf("striker kept velocity: vx=%f", a.Velocity.X)
	}
	if b.Velocity.X != 1 {
		t.Fatalf("struck ball vx=%f, want 1", b.Velocity.X)
	}
	gap := b.Position.Sub(a.Position).Length()
	if gap < a.Radius+b.Radius-1e-9 {
		t.Fatalf("balls still overlap: gap=%f", gap)
	}
}

func TestBallCollisionIgnoresSeparated(t *testing.T) {
	a := &Body{Position: geom.Vec3{X: 0}, Radius: 0.02}
	b := &Body{Position: geom.Vec3{X: 1}, Radius: 0.02}
	if resolveBallCollision(a, b) {
		t.Fatalf("separated balls reported a collision")
	}
}
