package lobby

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPLauncher drives the game server's handoff API. Endpoints registered
// in the server pool are host:port pairs.
type HTTPLauncher struct {
	client *http.Client
	scheme string
}

// NewHTTPLauncher returns a launcher with a bounded request timeout.
func NewHTTPLauncher() *HTTPLauncher {
	return &HTTPLauncher{
		client: &http.Client{Timeout: 5 * time.Second},
		scheme: "http",
	}
}

// Launch asks a game server to create a session.
func (l *HTTPLauncher) Launch(ctx context.Context, endpoint string, req LaunchRequest) error {
	url := fmt.Sprintf("%s://%s/handoff/sessions", l.scheme, endpoint)
	return l.post(ctx, url, req, http.StatusCreated)
}

// Admit asks a game server to roster a late joiner into a forming session.
func (l *HTTPLauncher) Admit(ctx context.Context, endpoint, sessionID string, seat Credential) error {
	url := fmt.Sprintf("%s://%s/handoff/sessions/%s/players", l.scheme, endpoint, sessionID)
	return l.post(ctx, url, seat, http.StatusOK)
}

func (l *HTTPLauncher) post(ctx context.Context, url string, payload any, wantStatus int) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode handoff payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := l.client.Do(req)
	if err != nil {
		return fmt.Errorf("handoff request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("handoff %s: status %d: %s", url, resp.StatusCode, bytes.TrimSpace(detail))
	}
	return nil
}
