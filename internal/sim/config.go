package sim

import "time"

// Config carries the session policy constants. Every value the distilled
// rules leave open (grace period, rest threshold, sequence window) is
// configurable here with documented defaults.
type Config struct {
	// TickRate is the fixed simulation rate in Hz.
	TickRate int
	// MinPlayers is the roster size required to leave Forming.
	MinPlayers int

	// RestSpeed is the linear speed below which a ball counts as resting.
	RestSpeed float64
	// RestTicks is how many consecutive slow ticks settle a ball.
	RestTicks int
	// MaxImpulse caps the shot impulse magnitude. Larger inputs fail
	// validation upstream; the session clamps whatever still gets through.
	MaxImpulse float64

	// BallRadius and the surface parameters feed the solver.
	BallRadius  float64
	Friction    float64
	Restitution float64
	Gravity     float64
	// KillPlaneY is the height below which a ball has escaped the course
	// geometry entirely and is reset to the hole start with a penalty.
	KillPlaneY float64

	// BumperStrength / JumpPadStrength scale hazard impulses; the Radius
	// values are their trigger distances.
	BumperStrength      float64
	BumperRadius        float64
	JumpPadStrength     float64
	JumpPadRadius       float64
	PowerUpPickupRadius float64

	// PowerUpSlots caps a player's carried power-ups.
	PowerUpSlots int
	// EffectTicks bounds how long an activated power-up effect lasts.
	EffectTicks uint64
	// HoleMagnetStrength and WindStrength tune the two force effects.
	HoleMagnetStrength float64
	WindStrength       float64

	// ReconnectGrace is how long a fully disconnected session stays
	// Paused before it is Abandoned.
	ReconnectGrace time.Duration
}

// DefaultConfig returns the tuned defaults.
func DefaultConfig() Config {
	return Config{
		TickRate:   128,
		MinPlayers: 1,

		RestSpeed:  0.05,
		RestTicks:  8,
		MaxImpulse: 10.0,

		BallRadius:  0.021336,
		Friction:    1.1,
		Restitution: 0.7,
		Gravity:     9.81,
		KillPlaneY:  -0.15,

		BumperStrength:      1.5,
		BumperRadius:        0.08,
		JumpPadStrength:     2.0,
		JumpPadRadius:       0.08,
		PowerUpPickupRadius: 0.06,

		PowerUpSlots:       3,
		EffectTicks:        1280,
		HoleMagnetStrength: 0.6,
		WindStrength:       0.25,

		ReconnectGrace: 30 * time.Second,
	}
}

// FixedDelta returns the fixed timestep in seconds.
func (c Config) FixedDelta() float64 {
	rate := c.TickRate
	if rate <= 0 {
		rate = 128
	}
	return 1.0 / float64(rate)
}
