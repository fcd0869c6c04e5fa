package lobby

import (
	"encoding/json"
	"net/http"

	"minigolf/server/internal/telemetry"
)

// ServerAPI is the HTTP surface game servers call: availability
// registration and terminal-session notifications.
type ServerAPI struct {
	pool      *ServerPool
	directory *Directory
	logger    telemetry.Logger
}

// NewServerAPI builds the game-server-facing endpoints.
func NewServerAPI(pool *ServerPool, directory *Directory, logger telemetry.Logger) *ServerAPI {
	return &ServerAPI{pool: pool, directory: directory, logger: logger}
}

// Routes returns the registration endpoints.
func (a *ServerAPI) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/servers/available", a.handleAvailable)
	mux.HandleFunc("/servers/busy", a.handleBusy)
	mux.HandleFunc("/sessions/ended", a.handleSessionEnded)
	return mux
}

type serverAnnouncement struct {
	Endpoint string `json:"endpoint"`
	Busy     bool   `json:"busy,omitempty"`
}

func (a *ServerAPI) handleAvailable(w http.ResponseWriter, r *http.Request) {
	var ann serverAnnouncement
	if !a.decode(w, r, &ann) || ann.Endpoint == "" {
		return
	}
	a.pool.Register(ann.Endpoint)
	a.logf("server available endpoint=%s", ann.Endpoint)
	w.WriteHeader(http.StatusOK)
}

func (a *ServerAPI) handleBusy(w http.ResponseWriter, r *http.Request) {
	var ann serverAnnouncement
	if !a.decode(w, r, &ann) || ann.Endpoint == "" {
		return
	}
	a.pool.SetBusy(ann.Endpoint, ann.Busy)
	w.WriteHeader(http.StatusOK)
}

type sessionEnded struct {
	SessionID string `json:"sessionId"`
	Phase     string `json:"phase"`
}

func (a *ServerAPI) handleSessionEnded(w http.ResponseWriter, r *http.Request) {
	var note sessionEnded
	if !a.decode(w, r, &note) || note.SessionID == "" {
		return
	}
	a.directory.Evict(note.SessionID)
	a.logf("session ended session=%s phase=%s", note.SessionID, note.Phase)
	w.WriteHeader(http.StatusOK)
}

func (a *ServerAPI) decode(w http.ResponseWriter, r *http.Request, into any) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		http.Error(w, "malformed payload", http.StatusBadRequest)
		return false
	}
	return true
}

func (a *ServerAPI) logf(format string, args ...any) {
	if a.logger != nil {
		a.logger.Printf("[lobby-api] "+format, args...)
	}
}
