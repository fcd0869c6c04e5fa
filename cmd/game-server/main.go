package main

import (
	"context"
	"flag"
	"log"

	"minigolf/server/internal/app"
)

func main() {
	cfg := app.GameConfig{}
	flag.StringVar(&cfg.Addr, "addr", ":8080", "websocket and handoff listen address")
	flag.StringVar(&cfg.WTAddr, "wt-addr", "", "webtransport listen address")
	flag.StringVar(&cfg.CertFile, "cert", "", "tls certificate for webtransport")
	flag.StringVar(&cfg.KeyFile, "key", "", "tls key for webtransport")
	flag.StringVar(&cfg.CourseDir, "courses", "courses", "course catalog directory")
	flag.StringVar(&cfg.ResultsPath, "results", "results.db", "results database path")
	flag.StringVar(&cfg.LobbyAddr, "lobby", "", "lobby server address to register with")
	flag.StringVar(&cfg.PublicEndpoint, "endpoint", "", "address advertised to the lobby")
	flag.Parse()

	if err := app.RunGameServer(context.Background(), cfg); err != nil {
		log.Fatalf("%v", err)
	}
}
