package lobby

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type launchCall struct {
	endpoint string
	req      LaunchRequest
}

type fakeLauncher struct {
	mu          sync.Mutex
	launches    []launchCall
	admits      map[string][]Credential
	failLaunch  map[string]bool
	failAdmit   map[string]bool
	launchDelay func()
}

func newFakeLauncher() *fakeLauncher {
	return &fakeLauncher{
		admits:     make(map[string][]Credential),
		failLaunch: make(map[string]bool),
		failAdmit:  make(map[string]bool),
	}
}

func (f *fakeLauncher) Launch(_ context.Context, endpoint string, req LaunchRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failLaunch[endpoint] {
		return assert.AnError
	}
	f.launches = append(f.launches, launchCall{endpoint: endpoint, req: req})
	return nil
}

func (f *fakeLauncher) Admit(_ context.Context, endpoint, sessionID string, seat Credential) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAdmit[endpoint] {
		return assert.AnError
	}
	f.admits[sessionID] = append(f.admits[sessionID], seat)
	return nil
}

func newTestDirectory(capacity int, endpoints ...string) (*Directory, *fakeLauncher, *ServerPool) {
	launcher := newFakeLauncher()
	pool := NewServerPool()
	for _, endpoint := range endpoints {
		pool.Register(endpoint)
	}
	dir := NewDirectory(DirectoryConfig{Launcher: launcher, Servers: pool, Capacity: capacity})
	return dir, launcher, pool
}

func seat(id string) Credential {
	return Credential{PlayerID: id, Token: "tok-" + id}
}

func TestCreateOrJoinCreatesFirstSession(t *testing.T) {
	dir, launcher, _ := newTestDirectory(2, "game-1:7000")

	assignment, err := dir.CreateOrJoin(context.Background(), []string{"0002"}, seat("p1"))
	require.NoError(t, err)
	assert.Equal(t, "game-1:7000", assignment.Endpoint)
	assert.NotEmpty(t, assignment.SessionID)

	require.Len(t, launcher.launches, 1)
	assert.Equal(t, []string{"0002"}, launcher.launches[0].req.CourseIDs)
	require.Len(t, launcher.launches[0].req.Roster, 1)
	assert.Equal(t, "p1", launcher.launches[0].req.Roster[0].PlayerID)
}

func TestCreateOrJoinFillsBeforeCreating(t *testing.T) {
	dir, launcher, _ := newTestDirectory(2, "game-1:7000")
	ctx := context.Background()

	first, err := dir.CreateOrJoin(ctx, []string{"0002"}, seat("p1"))
	require.NoError(t, err)
	second, err := dir.CreateOrJoin(ctx, []string{"0002"}, seat("p2"))
	require.NoError(t, err)
	assert.Equal(t, first.SessionID, second.SessionID, "second join should reuse the forming session")

	// Capacity 2 is now exhausted; the third join must get a new session,
	// never over-admit the first.
	third, err := dir.CreateOrJoin(ctx, []string{"0002"}, seat("p3"))
	require.NoError(t, err)
	assert.NotEqual(t, first.SessionID, third.SessionID)
	assert.Len(t, launcher.admits[first.SessionID], 1)
	assert.Len(t, launcher.launches, 2)
}

func TestCreateOrJoinSeparatesCourses(t *testing.T) {
	dir, _, _ := newTestDirectory(4, "game-1:7000")
	ctx := context.Background()

	a, err := dir.CreateOrJoin(ctx, []string{"0001"}, seat("p1"))
	require.NoError(t, err)
	b, err := dir.CreateOrJoin(ctx, []string{"0002"}, seat("p2"))
	require.NoError(t, err)
	assert.NotEqual(t, a.SessionID, b.SessionID)
}

func TestConcurrentJoinsNeverOverAdmit(t *testing.T) {
	const capacity = 2
	const players = 16
	dir, launcher, _ := newTestDirectory(capacity, "game-1:7000")

	var wg sync.WaitGroup
	var mu sync.Mutex
	perSession := make(map[string]int)
	for i := 0; i < players; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assignment, err := dir.CreateOrJoin(context.Background(), []string{"0002"}, seat(string(rune('a'+i))))
			if err != nil {
				t.Errorf("CreateOrJoin: %v", err)
				return
			}
			mu.Lock()
			perSession[assignment.SessionID]++
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	total := 0
	for sessionID, count := range perSession {
		assert.LessOrEqual(t, count, capacity, "session %s over-admitted", sessionID)
		total += count
	}
	assert.Equal(t, players, total)
	_ = launcher
}

func TestLaunchFailureEvictsServerAndRetries(t *testing.T) {
	dir, launcher, pool := newTestDirectory(2, "game-1:7000", "game-2:7000")
	launcher.failLaunch["game-1:7000"] = true

	assignment, err := dir.CreateOrJoin(context.Background(), []string{"0002"}, seat("p1"))
	require.NoError(t, err)
	assert.Equal(t, "game-2:7000", assignment.Endpoint)
	assert.NotContains(t, pool.Endpoints(), "game-1:7000")
}

func TestLaunchFailureWithNoFallbackFails(t *testing.T) {
	dir, launcher, _ := newTestDirectory(2, "game-1:7000")
	launcher.failLaunch["game-1:7000"] = true

	_, err := dir.CreateOrJoin(context.Background(), []string{"0002"}, seat("p1"))
	assert.ErrorIs(t, err, ErrNoServers)
}

func TestAdmitFailureEvictsEntryAndCreatesFresh(t *testing.T) {
	dir, launcher, _ := newTestDirectory(4, "game-1:7000", "game-2:7000")
	ctx := context.Background()

	first, err := dir.CreateOrJoin(ctx, []string{"0002"}, seat("p1"))
	require.NoError(t, err)

	// The original server stops answering admits; the joiner must end up
	// in a fresh session without surfacing an error.
	launcher.mu.Lock()
	launcher.failAdmit[first.Endpoint] = true
	launcher.mu.Unlock()

	second, err := dir.CreateOrJoin(ctx, []string{"0002"}, seat("p2"))
	require.NoError(t, err)
	assert.NotEqual(t, first.SessionID, second.SessionID)
	assert.Empty(t, dirSessions(dir, first.SessionID))
}

func dirSessions(d *Directory, sessionID string) []Assignment {
	var matches []Assignment
	for _, a := range d.Sessions() {
		if a.SessionID == sessionID {
			matches = append(matches, a)
		}
	}
	return matches
}

func TestEvictRemovesSession(t *testing.T) {
	dir, _, pool := newTestDirectory(2, "game-1:7000")

	assignment, err := dir.CreateOrJoin(context.Background(), []string{"0002"}, seat("p1"))
	require.NoError(t, err)
	require.Len(t, dir.Sessions(), 1)

	dir.Evict(assignment.SessionID)
	assert.Empty(t, dir.Sessions())
	// Evicting twice is harmless.
	dir.Evict(assignment.SessionID)
	_ = pool
}

func TestServerPoolPicksLeastLoaded(t *testing.T) {
	pool := NewServerPool()
	pool.Register("a:1")
	pool.Register("b:1")

	first, err := pool.Acquire()
	require.NoError(t, err)
	second, err := pool.Acquire()
	require.NoError(t, err)
	assert.NotEqual(t, first, second, "second session should land on the idle server")
}

func TestServerPoolSkipsBusy(t *testing.T) {
	pool := NewServerPool()
	pool.Register("a:1")
	pool.Register("b:1")
	pool.SetBusy("a:1", true)

	endpoint, err := pool.Acquire()
	require.NoError(t, err)
	assert.Equal(t, "b:1", endpoint)

	pool.SetBusy("b:1", true)
	_, err = pool.Acquire()
	assert.ErrorIs(t, err, ErrNoServers)
}
