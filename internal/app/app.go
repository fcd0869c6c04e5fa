// Package app is the composition root: it wires configuration, logging,
// and listeners for the game server and lobby binaries.
package app

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"minigolf/server/internal/course"
	"minigolf/server/internal/game"
	"minigolf/server/internal/lobby"
	"minigolf/server/internal/net/ws"
	"minigolf/server/internal/net/wt"
	"minigolf/server/internal/results"
	"minigolf/server/internal/sim"
	"minigolf/server/internal/telemetry"
	"minigolf/server/logging"
	"minigolf/server/logging/sinks"
)

// GameConfig carries the game server wiring.
type GameConfig struct {
	Logger telemetry.Logger

	// Addr serves the websocket endpoint and the lobby handoff API.
	Addr string
	// WTAddr serves the WebTransport endpoint; requires TLS material.
	WTAddr   string
	CertFile string
	KeyFile  string

	CourseDir   string
	ResultsPath string

	// LobbyAddr is the lobby's game-server API; empty skips registration.
	LobbyAddr string
	// PublicEndpoint is the address advertised to the lobby and clients.
	PublicEndpoint string
}

// RunGameServer wires and runs the authoritative game server until the
// listener fails or the context is cancelled.
func RunGameServer(ctx context.Context, cfg GameConfig) error {
	telemetryLogger := cfg.Logger
	if telemetryLogger == nil {
		telemetryLogger = telemetry.WrapLogger(log.Default())
	}
	fallbackLogger := standardLogger(telemetryLogger)

	router, err := newRouter()
	if err != nil {
		return fmt.Errorf("construct logging router: %w", err)
	}
	defer func() {
		if cerr := router.Close(ctx); cerr != nil {
			telemetryLogger.Printf("failed to close logging router: %v", cerr)
		}
	}()

	simCfg := sim.DefaultConfig()
	if value, ok := envInt(telemetryLogger, "TICK_RATE"); ok {
		simCfg.TickRate = value
	}
	if value, ok := envInt(telemetryLogger, "RECONNECT_GRACE_SECONDS"); ok {
		simCfg.ReconnectGrace = time.Duration(value) * time.Second
	}
	counters := telemetry.NewCounters()
	hubCfg := game.Config{
		SimConfig: simCfg,
		Logger:    telemetryLogger,
		Metrics:   counters,
		Publisher: router,
	}
	if value, ok := envInt(telemetryLogger, "HISTORY_HORIZON"); ok {
		hubCfg.HistoryHorizon = value
	}

	courseDir := cfg.CourseDir
	if courseDir == "" {
		courseDir = "courses"
	}
	catalog, err := course.LoadCatalog(courseDir)
	if err != nil {
		return fmt.Errorf("load course catalog: %w", err)
	}
	telemetryLogger.Printf("course catalog loaded dir=%s courses=%v", courseDir, catalog.IDs())

	resultsPath := cfg.ResultsPath
	if resultsPath == "" {
		resultsPath = "results.db"
	}
	store, err := results.Open(resultsPath)
	if err != nil {
		return fmt.Errorf("open results store: %w", err)
	}
	defer store.Close()
	hubCfg.Results = store

	var lobbyLink *lobbyClient
	if cfg.LobbyAddr != "" {
		lobbyLink = newLobbyClient(cfg.LobbyAddr, publicEndpoint(cfg), telemetryLogger)
		hubCfg.Observer = lobbyLink
	}

	hub := game.NewHub(hubCfg)
	defer hub.Shutdown()

	mux := http.NewServeMux()
	wsHandler := ws.NewHandler(hub, ws.HandlerConfig{Logger: fallbackLogger})
	mux.HandleFunc("/ws", wsHandler.Handle)
	mux.Handle("/handoff/", game.NewHandoffAPI(hub, catalog, telemetryLogger).Routes())
	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(counters.Snapshot())
	})

	if cfg.WTAddr != "" && cfg.CertFile != "" {
		tlsConfig, err := loadTLS(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return fmt.Errorf("load webtransport tls material: %w", err)
		}
		wtServer := wt.NewServer(hub, wt.ServerConfig{
			Addr:      cfg.WTAddr,
			TLSConfig: tlsConfig,
			Logger:    fallbackLogger,
		})
		defer wtServer.Close()
		go func() {
			if err := wtServer.ListenAndServe(); err != nil {
				telemetryLogger.Printf("webtransport listener stopped: %v", err)
			}
		}()
		telemetryLogger.Printf("webtransport listening on %s", cfg.WTAddr)
	} else {
		telemetryLogger.Printf("webtransport disabled: no tls material configured")
	}

	addr := cfg.Addr
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if lobbyLink != nil {
		if err := lobbyLink.register(ctx); err != nil {
			telemetryLogger.Printf("lobby registration failed: %v", err)
		}
	}

	telemetryLogger.Printf("game server listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("game server failed: %w", err)
	}
	return nil
}

// LobbyConfig carries the lobby server wiring.
type LobbyConfig struct {
	Logger telemetry.Logger
	// Addr serves the user websocket endpoint and the game-server API.
	Addr string
	// SessionCapacity caps players per session.
	SessionCapacity int
}

// RunLobby wires and runs the lobby / session directory server.
func RunLobby(ctx context.Context, cfg LobbyConfig) error {
	telemetryLogger := cfg.Logger
	if telemetryLogger == nil {
		telemetryLogger = telemetry.WrapLogger(log.Default())
	}

	capacity := cfg.SessionCapacity
	if value, ok := envInt(telemetryLogger, "SESSION_CAPACITY"); ok {
		capacity = value
	}

	pool := lobby.NewServerPool()
	directory := lobby.NewDirectory(lobby.DirectoryConfig{
		Launcher: lobby.NewHTTPLauncher(),
		Servers:  pool,
		Capacity: capacity,
		Logger:   telemetryLogger,
	})
	service := lobby.NewService(directory, capacity)
	gateway := lobby.NewGateway(service, telemetryLogger)

	serverRoutes := lobby.NewServerAPI(pool, directory, telemetryLogger).Routes()
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", gateway.Handle)
	mux.Handle("/servers/", serverRoutes)
	mux.Handle("/sessions/", serverRoutes)

	addr := cfg.Addr
	if addr == "" {
		addr = ":9090"
	}
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	telemetryLogger.Printf("lobby listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("lobby failed: %w", err)
	}
	return nil
}

func newRouter() (*logging.Router, error) {
	logConfig := logging.DefaultConfig()
	return logging.NewRouter(logging.SystemClock{}, logConfig, []logging.NamedSink{
		{Name: "console", Sink: sinks.NewConsoleSink(os.Stdout, logConfig.Console)},
	})
}

func standardLogger(logger telemetry.Logger) *log.Logger {
	if provider, ok := logger.(interface{ StandardLogger() *log.Logger }); ok {
		if candidate := provider.StandardLogger(); candidate != nil {
			return candidate
		}
	}
	return log.Default()
}

func envInt(logger telemetry.Logger, key string) (int, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, false
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		logger.Printf("invalid %s=%q: %v", key, raw, err)
		return 0, false
	}
	return value, true
}

func publicEndpoint(cfg GameConfig) string {
	if cfg.PublicEndpoint != "" {
		return cfg.PublicEndpoint
	}
	return "localhost" + cfg.Addr
}

func loadTLS(certFile, keyFile string) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, err
	}
	return &tls.Config{Certificates: []tls.Certificate{cert}}, nil
}
