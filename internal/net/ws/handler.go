package ws

import (
	"log"
	nethttp "net/http"

	"github.com/gorilla/websocket"

	"minigolf/server/internal/net/transport"
)

// ConnServer consumes an established connection until it drops. The game
// hub implements it.
type ConnServer interface {
	Serve(conn transport.Conn)
}

// HandlerConfig tunes the websocket endpoint.
type HandlerConfig struct {
	Logger *log.Logger
}

// Handler upgrades HTTP requests into dual-channel websocket connections.
type Handler struct {
	server   ConnServer
	logger   *log.Logger
	upgrader websocket.Upgrader
}

// NewHandler constructs a websocket endpoint handing connections to server.
func NewHandler(server ConnServer, cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *nethttp.Request) bool {
			return true
		},
	}

	return &Handler{
		server:   server,
		logger:   logger,
		upgrader: upgrader,
	}
}

// Handle upgrades the request and serves the connection until it drops.
func (h *Handler) Handle(w nethttp.ResponseWriter, r *nethttp.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("upgrade failed for %s: %v", r.RemoteAddr, err)
		return
	}
	h.server.Serve(NewConn(conn))
}
