package lobby

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"

	"minigolf/server/internal/telemetry"
)

// errEntryGone makes CreateOrJoin retry after the targeted entry filled up
// or was evicted between lookup and admission.
var errEntryGone = errors.New("lobby: directory entry no longer joinable")

// entry is one directory row: a session known to live on a game server.
// Admission is serialized on the entry mutex, so concurrent joins can never
// push the roster past capacity.
type entry struct {
	mu        sync.Mutex
	sessionID string
	courseKey string
	courseIDs []string
	endpoint  string
	capacity  int
	roster    []Credential
	gone      bool
}

// DirectoryConfig wires the directory's collaborators.
type DirectoryConfig struct {
	Launcher Launcher
	Servers  *ServerPool
	// Capacity is the per-session player cap.
	Capacity int
	Logger   telemetry.Logger
}

// Directory is the process-wide registry mapping session ids to the game
// servers running them. It owns session placement.
type Directory struct {
	cfg DirectoryConfig

	mu      sync.Mutex
	entries map[string]*entry
}

// NewDirectory builds an empty directory.
func NewDirectory(cfg DirectoryConfig) *Directory {
	if cfg.Capacity <= 0 {
		cfg.Capacity = 8
	}
	return &Directory{
		cfg:     cfg,
		entries: make(map[string]*entry),
	}
}

func courseKey(courseIDs []string) string {
	return strings.Join(courseIDs, ",")
}

// CreateOrJoin admits a player to a forming session for the given course
// list, creating a new session when none has spare capacity. If the chosen
// game server turns out to be unreachable, the stale entry is evicted and a
// fresh session is created transparently.
func (d *Directory) CreateOrJoin(ctx context.Context, courseIDs []string, seat Credential) (Assignment, error) {
	key := courseKey(courseIDs)
	for {
		e := d.findJoinable(key)
		if e == nil {
			return d.create(ctx, courseIDs, []Credential{seat})
		}
		assignment, err := d.join(ctx, e, seat)
		if errors.Is(err, errEntryGone) {
			continue
		}
		return assignment, err
	}
}

// Create places a session with a full roster, for lobby-driven game starts.
func (d *Directory) Create(ctx context.Context, courseIDs []string, roster []Credential) (Assignment, error) {
	return d.create(ctx, courseIDs, roster)
}

func (d *Directory) findJoinable(key string) *entry {
	d.mu.Lock()
	candidates := make([]*entry, 0, len(d.entries))
	for _, e := range d.entries {
		if e.courseKey == key {
			candidates = append(candidates, e)
		}
	}
	d.mu.Unlock()

	var best *entry
	for _, e := range candidates {
		e.mu.Lock()
		joinable := !e.gone && len(e.roster) < e.capacity
		e.mu.Unlock()
		if !joinable {
			continue
		}
		if best == nil || e.sessionID < best.sessionID {
			best = e
		}
	}
	return best
}

func (d *Directory) join(ctx context.Context, e *entry, seat Credential) (Assignment, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	// Rechecked under the entry lock: the entry may have filled or died
	// since the lookup. errEntryGone sends the caller back around, where a
	// full entry no longer matches and a new session is created.
	if e.gone || len(e.roster) >= e.capacity {
		return Assignment{}, errEntryGone
	}
	if err := d.cfg.Launcher.Admit(ctx, e.endpoint, e.sessionID, seat); err != nil {
		// The server stopped answering for this session; evict the entry
		// and let the caller start over on a fresh one.
		d.logf("admit failed session=%s endpoint=%s err=%v", e.sessionID, e.endpoint, err)
		d.evictEntry(e)
		return Assignment{}, errEntryGone
	}
	e.roster = append(e.roster, seat)
	return Assignment{SessionID: e.sessionID, Endpoint: e.endpoint}, nil
}

func (d *Directory) create(ctx context.Context, courseIDs []string, roster []Credential) (Assignment, error) {
	sessionID := uuid.NewString()
	req := LaunchRequest{SessionID: sessionID, CourseIDs: courseIDs, Roster: roster}

	for {
		endpoint, err := d.cfg.Servers.Acquire()
		if err != nil {
			return Assignment{}, err
		}
		if err := d.cfg.Launcher.Launch(ctx, endpoint, req); err != nil {
			d.logf("launch failed session=%s endpoint=%s err=%v", sessionID, endpoint, err)
			d.cfg.Servers.Release(endpoint)
			d.cfg.Servers.Evict(endpoint)
			continue
		}

		e := &entry{
			sessionID: sessionID,
			courseKey: courseKey(courseIDs),
			courseIDs: append([]string(nil), courseIDs...),
			endpoint:  endpoint,
			capacity:  d.cfg.Capacity,
			roster:    append([]Credential(nil), roster...),
		}
		d.mu.Lock()
		d.entries[sessionID] = e
		d.mu.Unlock()
		return Assignment{SessionID: sessionID, Endpoint: endpoint}, nil
	}
}

// Evict removes a session from the directory. The game layer routes its
// terminal-session notifications here.
func (d *Directory) Evict(sessionID string) {
	d.mu.Lock()
	e := d.entries[sessionID]
	d.mu.Unlock()
	if e == nil {
		return
	}
	e.mu.Lock()
	if !e.gone {
		d.evictEntry(e)
	}
	e.mu.Unlock()
}

// evictEntry marks the entry dead and unregisters it. Caller holds e.mu.
func (d *Directory) evictEntry(e *entry) {
	e.gone = true
	d.mu.Lock()
	delete(d.entries, e.sessionID)
	d.mu.Unlock()
	d.cfg.Servers.Release(e.endpoint)
}

// Sessions lists the live directory rows.
func (d *Directory) Sessions() []Assignment {
	d.mu.Lock()
	defer d.mu.Unlock()
	assignments := make([]Assignment, 0, len(d.entries))
	for _, e := range d.entries {
		assignments = append(assignments, Assignment{SessionID: e.sessionID, Endpoint: e.endpoint})
	}
	return assignments
}

func (d *Directory) logf(format string, args ...any) {
	if d.cfg.Logger != nil {
		d.cfg.Logger.Printf("[lobby] "+format, args...)
	}
}
