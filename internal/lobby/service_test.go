package lobby

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(capacity int, endpoints ...string) (*Service, *fakeLauncher) {
	dir, launcher, _ := newTestDirectory(capacity, endpoints...)
	return NewService(dir, capacity), launcher
}

func TestHelloIssuesDistinctCredentials(t *testing.T) {
	svc, _ := newTestService(4, "game-1:7000")
	a := svc.Hello()
	b := svc.Hello()
	assert.NotEmpty(t, a.PlayerID)
	assert.NotEmpty(t, a.Secret)
	assert.NotEqual(t, a.PlayerID, b.PlayerID)
}

func TestLobbyFlow(t *testing.T) {
	svc, _ := newTestService(4, "game-1:7000")
	host := svc.Hello()
	joiner := svc.Hello()

	created, err := svc.CreateLobby(host, "friday night", []string{"0001", "0002"})
	require.NoError(t, err)
	assert.Equal(t, host.PlayerID, created.HostID)
	assert.Equal(t, []string{host.PlayerID}, created.Players)

	joined, err := svc.JoinLobby(created.LobbyID, joiner)
	require.NoError(t, err)
	assert.Equal(t, []string{host.PlayerID, joiner.PlayerID}, joined.Players)

	listed := svc.ListLobbies()
	require.Len(t, listed, 1)
	assert.Equal(t, created.LobbyID, listed[0].LobbyID)

	left, err := svc.LeaveLobby(created.LobbyID, joiner.PlayerID)
	require.NoError(t, err)
	assert.Equal(t, []string{host.PlayerID}, left.Players)
}

func TestJoinRejectsUnknownLobbyAndBadCredentials(t *testing.T) {
	svc, _ := newTestService(4, "game-1:7000")
	player := svc.Hello()

	_, err := svc.JoinLobby("missing", player)
	assert.ErrorIs(t, err, ErrUnknownLobby)

	forged := Credentials{PlayerID: player.PlayerID, Secret: "guessed"}
	_, err = svc.CreateLobby(forged, "x", []string{"0001"})
	assert.Error(t, err)
}

func TestJoinRespectsCapacity(t *testing.T) {
	svc, _ := newTestService(2, "game-1:7000")
	host := svc.Hello()
	second := svc.Hello()
	third := svc.Hello()

	created, err := svc.CreateLobby(host, "full house", []string{"0001"})
	require.NoError(t, err)
	_, err = svc.JoinLobby(created.LobbyID, second)
	require.NoError(t, err)
	_, err = svc.JoinLobby(created.LobbyID, third)
	assert.ErrorIs(t, err, ErrCapacityExceeded)
}

func TestHostLeavingTransfersLobby(t *testing.T) {
	svc, _ := newTestService(4, "game-1:7000")
	host := svc.Hello()
	joiner := svc.Hello()

	created, _ := svc.CreateLobby(host, "x", []string{"0001"})
	_, err := svc.JoinLobby(created.LobbyID, joiner)
	require.NoError(t, err)

	after, err := svc.LeaveLobby(created.LobbyID, host.PlayerID)
	require.NoError(t, err)
	assert.Equal(t, joiner.PlayerID, after.HostID)

	// Last member out deletes the lobby.
	_, err = svc.LeaveLobby(created.LobbyID, joiner.PlayerID)
	require.NoError(t, err)
	assert.Empty(t, svc.ListLobbies())
}

func TestStartGameLaunchesFullRoster(t *testing.T) {
	svc, launcher := newTestService(4, "game-1:7000")
	host := svc.Hello()
	joiner := svc.Hello()

	created, _ := svc.CreateLobby(host, "x", []string{"0001", "0002"})
	_, err := svc.JoinLobby(created.LobbyID, joiner)
	require.NoError(t, err)

	assignment, members, err := svc.StartGame(context.Background(), created.LobbyID, host.PlayerID)
	require.NoError(t, err)
	assert.Equal(t, "game-1:7000", assignment.Endpoint)
	assert.Equal(t, []string{host.PlayerID, joiner.PlayerID}, members)

	require.Len(t, launcher.launches, 1)
	req := launcher.launches[0].req
	assert.Equal(t, []string{"0001", "0002"}, req.CourseIDs)
	require.Len(t, req.Roster, 2)
	assert.Equal(t, host.Secret, req.Roster[0].Token, "secret should double as the join token")

	assert.Empty(t, svc.ListLobbies(), "started lobby should be removed")
}

func TestStartGameHostOnly(t *testing.T) {
	svc, _ := newTestService(4, "game-1:7000")
	host := svc.Hello()
	joiner := svc.Hello()

	created, _ := svc.CreateLobby(host, "x", []string{"0001"})
	_, err := svc.JoinLobby(created.LobbyID, joiner)
	require.NoError(t, err)

	_, _, err = svc.StartGame(context.Background(), created.LobbyID, joiner.PlayerID)
	assert.ErrorIs(t, err, ErrNotHost)
}

func TestStartGameFailureRestoresLobby(t *testing.T) {
	svc, launcher := newTestService(4, "game-1:7000")
	launcher.failLaunch["game-1:7000"] = true
	host := svc.Hello()

	created, _ := svc.CreateLobby(host, "x", []string{"0001"})
	_, _, err := svc.StartGame(context.Background(), created.LobbyID, host.PlayerID)
	require.Error(t, err)
	assert.Len(t, svc.ListLobbies(), 1, "failed start should keep the lobby")
}

func TestQuickJoinUsesDirectory(t *testing.T) {
	svc, _ := newTestService(2, "game-1:7000")
	a := svc.Hello()
	b := svc.Hello()

	first, err := svc.QuickJoin(context.Background(), []string{"0002"}, a)
	require.NoError(t, err)
	second, err := svc.QuickJoin(context.Background(), []string{"0002"}, b)
	require.NoError(t, err)
	assert.Equal(t, first.SessionID, second.SessionID)

	_, err = svc.QuickJoin(context.Background(), []string{"0002"}, Credentials{PlayerID: "ghost", Secret: "x"})
	assert.Error(t, err)
}

func TestForgetRemovesPlayerFromLobbies(t *testing.T) {
	svc, _ := newTestService(4, "game-1:7000")
	host := svc.Hello()
	joiner := svc.Hello()

	created, _ := svc.CreateLobby(host, "x", []string{"0001"})
	_, err := svc.JoinLobby(created.LobbyID, joiner)
	require.NoError(t, err)

	svc.Forget(joiner.PlayerID)
	listed := svc.ListLobbies()
	require.Len(t, listed, 1)
	assert.Equal(t, []string{host.PlayerID}, listed[0].Players)

	_, err = svc.JoinLobby(created.LobbyID, joiner)
	assert.Error(t, err, "forgotten credentials must not verify")
}

func TestStartGameUnknownLobby(t *testing.T) {
	svc, _ := newTestService(4, "game-1:7000")
	_, _, err := svc.StartGame(context.Background(), "missing", "p1")
	assert.ErrorIs(t, err, ErrUnknownLobby)
}
