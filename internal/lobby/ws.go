package lobby

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"minigolf/server/internal/telemetry"
)

const (
	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsMaxMessageSize = 16 * 1024
)

// wsRequest is one inbound user frame.
type wsRequest struct {
	Type      string   `json:"type"`
	LobbyID   string   `json:"lobbyId,omitempty"`
	Name      string   `json:"name,omitempty"`
	CourseIDs []string `json:"courseIds,omitempty"`
}

// wsClient is one connected user. The mutex serializes writes; gorilla
// allows a single concurrent writer.
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) send(payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Gateway is the user-facing WebSocket endpoint of the lobby: credentials
// on connect, then the lobby flow as JSON frames.
type Gateway struct {
	service  *Service
	logger   telemetry.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[string]*wsClient
}

// NewGateway builds the user endpoint over the given service.
func NewGateway(service *Service, logger telemetry.Logger) *Gateway {
	return &Gateway{
		service: service,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[string]*wsClient),
	}
}

// Handle upgrades one user connection and runs its message loop.
func (g *Gateway) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logf("upgrade failed remote=%s err=%v", r.RemoteAddr, err)
		return
	}
	conn.SetReadLimit(wsMaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	creds := g.service.Hello()
	client := &wsClient{conn: conn}
	g.mu.Lock()
	g.clients[creds.PlayerID] = client
	g.mu.Unlock()

	client.send(map[string]any{"type": "hello", "credentials": creds})

	defer func() {
		g.mu.Lock()
		delete(g.clients, creds.PlayerID)
		g.mu.Unlock()
		g.service.Forget(creds.PlayerID)
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		var req wsRequest
		if err := json.Unmarshal(data, &req); err != nil {
			client.send(map[string]any{"type": "error", "reason": "malformed request"})
			continue
		}
		g.dispatch(r.Context(), client, creds, req)
	}
}

func (g *Gateway) dispatch(ctx context.Context, client *wsClient, creds Credentials, req wsRequest) {
	switch req.Type {
	case "createLobby":
		info, err := g.service.CreateLobby(creds, req.Name, req.CourseIDs)
		g.replyLobby(client, info, err)
	case "joinLobby":
		info, err := g.service.JoinLobby(req.LobbyID, creds)
		if err == nil {
			g.broadcastLobby(info)
			return
		}
		g.replyLobby(client, info, err)
	case "leaveLobby":
		info, err := g.service.LeaveLobby(req.LobbyID, creds.PlayerID)
		if err != nil {
			g.sendError(client, err)
			return
		}
		client.send(map[string]any{"type": "left", "lobbyId": req.LobbyID})
		if len(info.Players) > 0 {
			g.broadcastLobby(info)
		}
	case "listLobbies":
		client.send(map[string]any{"type": "lobbies", "lobbies": g.service.ListLobbies()})
	case "startGame":
		assignment, members, err := g.service.StartGame(ctx, req.LobbyID, creds.PlayerID)
		if err != nil {
			g.sendError(client, err)
			return
		}
		g.broadcastToPlayers(members, map[string]any{"type": "gameStart", "assignment": assignment})
	case "quickJoin":
		assignment, err := g.service.QuickJoin(ctx, req.CourseIDs, creds)
		if err != nil {
			g.sendError(client, err)
			return
		}
		client.send(map[string]any{"type": "gameStart", "assignment": assignment})
	default:
		client.send(map[string]any{"type": "error", "reason": "unknown request type"})
	}
}

func (g *Gateway) replyLobby(client *wsClient, info LobbyInfo, err error) {
	if err != nil {
		g.sendError(client, err)
		return
	}
	client.send(map[string]any{"type": "lobbyUpdate", "lobby": info})
}

func (g *Gateway) broadcastLobby(info LobbyInfo) {
	g.broadcastToPlayers(info.Players, map[string]any{"type": "lobbyUpdate", "lobby": info})
}

func (g *Gateway) broadcastToPlayers(playerIDs []string, payload any) {
	g.mu.Lock()
	clients := make([]*wsClient, 0, len(playerIDs))
	for _, id := range playerIDs {
		if client, ok := g.clients[id]; ok {
			clients = append(clients, client)
		}
	}
	g.mu.Unlock()
	for _, client := range clients {
		client.send(payload)
	}
}

func (g *Gateway) sendError(client *wsClient, err error) {
	client.send(map[string]any{"type": "error", "reason": err.Error()})
}

func (g *Gateway) logf(format string, args ...any) {
	if g.logger != nil {
		g.logger.Printf("[lobby-ws] "+format, args...)
	}
}
