package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"minigolf/server/internal/sim"
	"minigolf/server/internal/telemetry"
)

// lobbyClient reports this server's availability and terminal sessions to
// the lobby's game-server API.
type lobbyClient struct {
	client   *http.Client
	base     string
	endpoint string
	logger   telemetry.Logger
}

func newLobbyClient(lobbyAddr, endpoint string, logger telemetry.Logger) *lobbyClient {
	return &lobbyClient{
		client:   &http.Client{Timeout: 5 * time.Second},
		base:     "http://" + lobbyAddr,
		endpoint: endpoint,
		logger:   logger,
	}
}

// register announces this server as available for new sessions.
func (c *lobbyClient) register(ctx context.Context) error {
	return c.post(ctx, "/servers/available", map[string]any{"endpoint": c.endpoint})
}

// SessionEnded lets the lobby drop its directory entry for a finished
// session. Posting runs off the tick goroutine.
func (c *lobbyClient) SessionEnded(sessionID string, phase sim.Phase) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		payload := map[string]any{"sessionId": sessionID, "phase": string(phase)}
		if err := c.post(ctx, "/sessions/ended", payload); err != nil {
			c.logger.Printf("failed to report ended session %s: %v", sessionID, err)
		}
	}()
}

func (c *lobbyClient) post(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("lobby returned status %d for %s", resp.StatusCode, path)
	}
	return nil
}
