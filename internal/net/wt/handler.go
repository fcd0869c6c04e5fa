package wt

import (
	"context"
	"crypto/tls"
	"log"
	nethttp "net/http"
	"time"

	"github.com/quic-go/quic-go/http3"
	"github.com/quic-go/webtransport-go"

	"minigolf/server/internal/net/transport"
)

const acceptTimeout = 10 * time.Second

// ConnServer consumes an established connection until it drops. The game
// hub implements it.
type ConnServer interface {
	Serve(conn transport.Conn)
}

// ServerConfig tunes the WebTransport endpoint.
type ServerConfig struct {
	Addr      string
	TLSConfig *tls.Config
	Logger    *log.Logger
}

// Server terminates WebTransport sessions and hands them to the game hub.
type Server struct {
	server *webtransport.Server
	target ConnServer
	logger *log.Logger
}

// NewServer constructs the QUIC endpoint. Start must be called to listen.
func NewServer(target ConnServer, cfg ServerConfig) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	mux := nethttp.NewServeMux()
	s := &Server{
		target: target,
		logger: logger,
	}
	s.server = &webtransport.Server{
		H3: http3.Server{
			Addr:      cfg.Addr,
			TLSConfig: cfg.TLSConfig,
			Handler:   mux,
		},
		CheckOrigin: func(r *nethttp.Request) bool {
			return true
		},
	}
	mux.HandleFunc("/session", s.handle)
	return s
}

func (s *Server) handle(w nethttp.ResponseWriter, r *nethttp.Request) {
	session, err := s.server.Upgrade(w, r)
	if err != nil {
		s.logger.Printf("webtransport upgrade failed for %s: %v", r.RemoteAddr, err)
		w.WriteHeader(nethttp.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), acceptTimeout)
	conn, err := NewConn(ctx, session)
	cancel()
	if err != nil {
		s.logger.Printf("webtransport control stream from %s: %v", r.RemoteAddr, err)
		session.CloseWithError(0, "control stream required")
		return
	}
	s.target.Serve(conn)
}

// ListenAndServe blocks serving QUIC until the listener fails or Close is
// called.
func (s *Server) ListenAndServe() error {
	return s.server.ListenAndServe()
}

// Close stops accepting sessions.
func (s *Server) Close() error {
	return s.server.Close()
}
