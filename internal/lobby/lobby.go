// Package lobby is the session directory: it issues player credentials,
// groups players into pre-game lobbies, assigns joiners to game sessions,
// and brokers the handoff to the game server that runs them.
package lobby

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrCapacityExceeded reports a join against a session already at its
	// declared capacity.
	ErrCapacityExceeded = errors.New("lobby: session capacity exceeded")
	// ErrNoServers reports that no registered game server is available.
	ErrNoServers = errors.New("lobby: no game server available")
	// ErrUnknownLobby reports an operation against a lobby id that does not
	// exist or was already started.
	ErrUnknownLobby = errors.New("lobby: unknown lobby")
	// ErrNotMember reports an operation by a player outside the lobby.
	ErrNotMember = errors.New("lobby: player is not a member")
	// ErrNotHost reports a host-only operation by a non-host member.
	ErrNotHost = errors.New("lobby: operation restricted to the host")
)

// Credentials identify one player to the lobby and the game server. The
// secret never leaves the player and the servers.
type Credentials struct {
	PlayerID string `json:"playerId"`
	Secret   string `json:"secret"`
}

// NewCredentials issues a fresh identity.
func NewCredentials() Credentials {
	return Credentials{
		PlayerID: uuid.NewString(),
		Secret:   uuid.NewString(),
	}
}

// Assignment tells a player where to connect for their session.
type Assignment struct {
	SessionID string `json:"sessionId"`
	Endpoint  string `json:"endpoint"`
}

// LaunchRequest is the lobby-to-game-server handoff payload.
type LaunchRequest struct {
	SessionID string       `json:"sessionId"`
	CourseIDs []string     `json:"courseIds"`
	Roster    []Credential `json:"roster"`
}

// Credential is one roster seat in a launch request.
type Credential struct {
	PlayerID string `json:"playerId"`
	Token    string `json:"token"`
}

// Launcher talks to game servers: starting sessions and admitting late
// joiners into forming ones.
type Launcher interface {
	Launch(ctx context.Context, endpoint string, req LaunchRequest) error
	Admit(ctx context.Context, endpoint, sessionID string, seat Credential) error
}
