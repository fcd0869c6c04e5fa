package main

import (
	"context"
	"flag"
	"log"

	"minigolf/server/internal/app"
)

func main() {
	cfg := app.LobbyConfig{}
	flag.StringVar(&cfg.Addr, "addr", ":9090", "lobby listen address")
	flag.IntVar(&cfg.SessionCapacity, "capacity", 8, "maximum players per session")
	flag.Parse()

	if err := app.RunLobby(context.Background(), cfg); err != nil {
		log.Fatalf("%v", err)
	}
}
