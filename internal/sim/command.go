package sim

import "minigolf/server/internal/course"

// CommandType identifies a staged simulation command.
type CommandType string

const (
	// CommandShoot applies an impulse to the acting player's ball.
	CommandShoot CommandType = "shoot"
	// CommandUsePowerUp consumes a carried power-up and activates its effect.
	CommandUsePowerUp CommandType = "use_power_up"
	// CommandAdmit grows a Forming session's roster by one player. Enqueued
	// by the hub when the lobby admits a late joiner.
	CommandAdmit CommandType = "admit"
	// CommandConnect marks a player's connection as attached.
	CommandConnect CommandType = "connect"
	// CommandDisconnect marks a player's connection as dropped.
	CommandDisconnect CommandType = "disconnect"
	// CommandGraceExpired abandons a paused session whose reconnect window
	// elapsed. Enqueued by the hub's grace timer, never by clients.
	CommandGraceExpired CommandType = "grace_expired"
)

// ShootCommand is an impulse on the ground plane.
type ShootCommand struct {
	X float64
	Z float64
}

// PowerUpCommand activates a carried power-up.
type PowerUpCommand struct {
	Kind course.PowerUpKind
}

// Command is the unit staged into the command buffer. All session mutation
// flows through commands applied inside the tick loop.
type Command struct {
	Type       CommandType
	ActorID    string
	Seq        uint64
	OriginTick uint64

	Shoot   *ShootCommand
	PowerUp *PowerUpCommand
	// Reason annotates disconnects and grace expiry.
	Reason string
}
