package lobby

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// LobbyInfo is the listable view of one pre-game lobby.
type LobbyInfo struct {
	LobbyID   string   `json:"lobbyId"`
	Name      string   `json:"name"`
	HostID    string   `json:"hostId"`
	CourseIDs []string `json:"courseIds"`
	Players   []string `json:"players"`
	Capacity  int      `json:"capacity"`
}

// pregame is a lobby being assembled before its game starts.
type pregame struct {
	id        string
	name      string
	hostID    string
	courseIDs []string
	order     []string
	members   map[string]Credentials
}

func (l *pregame) info(capacity int) LobbyInfo {
	return LobbyInfo{
		LobbyID:   l.id,
		Name:      l.name,
		HostID:    l.hostID,
		CourseIDs: append([]string(nil), l.courseIDs...),
		Players:   append([]string(nil), l.order...),
		Capacity:  capacity,
	}
}

// Service is the user-facing lobby flow: identity issuance, lobby assembly,
// and game starts. The directory handles placement.
type Service struct {
	directory *Directory
	capacity  int

	mu      sync.Mutex
	players map[string]Credentials
	lobbies map[string]*pregame
}

// NewService builds the lobby flow on top of a directory.
func NewService(directory *Directory, capacity int) *Service {
	if capacity <= 0 {
		capacity = 8
	}
	return &Service{
		directory: directory,
		capacity:  capacity,
		players:   make(map[string]Credentials),
		lobbies:   make(map[string]*pregame),
	}
}

// Hello issues credentials for a newly connected user.
func (s *Service) Hello() Credentials {
	creds := NewCredentials()
	s.mu.Lock()
	s.players[creds.PlayerID] = creds
	s.mu.Unlock()
	return creds
}

// Forget drops a disconnected user's identity and removes them from any
// lobby they were sitting in.
func (s *Service) Forget(playerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.players, playerID)
	for _, l := range s.lobbies {
		if _, ok := l.members[playerID]; ok {
			s.removeMemberLocked(l, playerID)
		}
	}
}

// CreateLobby opens a new pre-game lobby hosted by the caller.
func (s *Service) CreateLobby(host Credentials, name string, courseIDs []string) (LobbyInfo, error) {
	if len(courseIDs) == 0 {
		return LobbyInfo{}, fmt.Errorf("lobby: create requires at least one course")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.verifyLocked(host); err != nil {
		return LobbyInfo{}, err
	}
	l := &pregame{
		id:        uuid.NewString(),
		name:      name,
		hostID:    host.PlayerID,
		courseIDs: append([]string(nil), courseIDs...),
		order:     []string{host.PlayerID},
		members:   map[string]Credentials{host.PlayerID: host},
	}
	s.lobbies[l.id] = l
	return l.info(s.capacity), nil
}

// JoinLobby adds a player to an open lobby.
func (s *Service) JoinLobby(lobbyID string, player Credentials) (LobbyInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.verifyLocked(player); err != nil {
		return LobbyInfo{}, err
	}
	l, ok := s.lobbies[lobbyID]
	if !ok {
		return LobbyInfo{}, ErrUnknownLobby
	}
	if _, member := l.members[player.PlayerID]; member {
		return l.info(s.capacity), nil
	}
	if len(l.order) >= s.capacity {
		return LobbyInfo{}, ErrCapacityExceeded
	}
	l.order = append(l.order, player.PlayerID)
	l.members[player.PlayerID] = player
	return l.info(s.capacity), nil
}

// LeaveLobby removes a player; an emptied lobby is deleted and a departing
// host hands the lobby to the next member.
func (s *Service) LeaveLobby(lobbyID, playerID string) (LobbyInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lobbies[lobbyID]
	if !ok {
		return LobbyInfo{}, ErrUnknownLobby
	}
	if _, member := l.members[playerID]; !member {
		return LobbyInfo{}, ErrNotMember
	}
	s.removeMemberLocked(l, playerID)
	if _, alive := s.lobbies[lobbyID]; !alive {
		return LobbyInfo{}, nil
	}
	return l.info(s.capacity), nil
}

// ListLobbies returns every open lobby.
func (s *Service) ListLobbies() []LobbyInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	infos := make([]LobbyInfo, 0, len(s.lobbies))
	for _, l := range s.lobbies {
		infos = append(infos, l.info(s.capacity))
	}
	return infos
}

// StartGame launches the lobby's session with its full roster. Host only.
// Every member receives the same assignment; their secrets double as the
// game server's join tokens.
func (s *Service) StartGame(ctx context.Context, lobbyID, playerID string) (Assignment, []string, error) {
	s.mu.Lock()
	l, ok := s.lobbies[lobbyID]
	if !ok {
		s.mu.Unlock()
		return Assignment{}, nil, ErrUnknownLobby
	}
	if l.hostID != playerID {
		s.mu.Unlock()
		return Assignment{}, nil, ErrNotHost
	}
	roster := make([]Credential, 0, len(l.order))
	members := append([]string(nil), l.order...)
	for _, id := range l.order {
		creds := l.members[id]
		roster = append(roster, Credential{PlayerID: creds.PlayerID, Token: creds.Secret})
	}
	courseIDs := append([]string(nil), l.courseIDs...)
	delete(s.lobbies, lobbyID)
	s.mu.Unlock()

	assignment, err := s.directory.Create(ctx, courseIDs, roster)
	if err != nil {
		// Launch failed; restore the lobby so the host can retry.
		s.mu.Lock()
		s.lobbies[lobbyID] = l
		s.mu.Unlock()
		return Assignment{}, nil, err
	}
	return assignment, members, nil
}

// QuickJoin implements the directory's create-or-join contract for users
// skipping the lobby flow.
func (s *Service) QuickJoin(ctx context.Context, courseIDs []string, player Credentials) (Assignment, error) {
	s.mu.Lock()
	err := s.verifyLocked(player)
	s.mu.Unlock()
	if err != nil {
		return Assignment{}, err
	}
	return s.directory.CreateOrJoin(ctx, courseIDs, Credential{PlayerID: player.PlayerID, Token: player.Secret})
}

func (s *Service) verifyLocked(creds Credentials) error {
	known, ok := s.players[creds.PlayerID]
	if !ok || known.Secret != creds.Secret {
		return fmt.Errorf("lobby: unknown or mismatched credentials for %s", creds.PlayerID)
	}
	return nil
}

func (s *Service) removeMemberLocked(l *pregame, playerID string) {
	delete(l.members, playerID)
	for i, id := range l.order {
		if id == playerID {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
	if len(l.order) == 0 {
		delete(s.lobbies, l.id)
		return
	}
	if l.hostID == playerID {
		l.hostID = l.order[0]
	}
}
