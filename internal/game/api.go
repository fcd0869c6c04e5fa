package game

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"minigolf/server/internal/course"
	"minigolf/server/internal/telemetry"
)

// HandoffRequest is the lobby-to-game-server session creation payload.
type HandoffRequest struct {
	SessionID string   `json:"sessionId"`
	CourseIDs []string `json:"courseIds"`
	Roster    []struct {
		PlayerID string `json:"playerId"`
		Token    string `json:"token"`
	} `json:"roster"`
}

// HandoffAPI is the HTTP surface the lobby drives during session placement.
type HandoffAPI struct {
	hub     *Hub
	catalog *course.Catalog
	logger  telemetry.Logger
}

// NewHandoffAPI builds the handoff surface over a hub and course catalog.
func NewHandoffAPI(hub *Hub, catalog *course.Catalog, logger telemetry.Logger) *HandoffAPI {
	return &HandoffAPI{hub: hub, catalog: catalog, logger: logger}
}

// Routes returns the handoff endpoints.
func (a *HandoffAPI) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/handoff/sessions", a.handleCreate)
	mux.HandleFunc("/handoff/sessions/", a.handleAdmit)
	return mux
}

func (a *HandoffAPI) handleCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req HandoffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed handoff request", http.StatusBadRequest)
		return
	}
	if req.SessionID == "" || len(req.CourseIDs) == 0 || len(req.Roster) == 0 {
		http.Error(w, "handoff requires session id, courses, and a roster", http.StatusBadRequest)
		return
	}

	courses := make([]*course.Course, 0, len(req.CourseIDs))
	for _, id := range req.CourseIDs {
		c, ok := a.catalog.Get(id)
		if !ok {
			http.Error(w, "unknown course "+id, http.StatusBadRequest)
			return
		}
		courses = append(courses, c)
	}

	roster := make([]Credential, 0, len(req.Roster))
	for _, seat := range req.Roster {
		roster = append(roster, Credential{PlayerID: seat.PlayerID, Token: seat.Token})
	}

	if err := a.hub.CreateSession(req.SessionID, courses, roster); err != nil {
		a.logf("handoff create failed session=%s err=%v", req.SessionID, err)
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (a *HandoffAPI) handleAdmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/handoff/sessions/")
	sessionID, tail, ok := strings.Cut(rest, "/")
	if !ok || tail != "players" || sessionID == "" {
		http.NotFound(w, r)
		return
	}
	var seat Credential
	if err := json.NewDecoder(r.Body).Decode(&seat); err != nil || seat.PlayerID == "" {
		http.Error(w, "malformed admit request", http.StatusBadRequest)
		return
	}

	switch err := a.hub.AdmitPlayer(sessionID, seat); {
	case err == nil:
		w.WriteHeader(http.StatusOK)
	case errors.Is(err, ErrUnknownSession):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrSessionEnded):
		http.Error(w, err.Error(), http.StatusGone)
	default:
		http.Error(w, err.Error(), http.StatusConflict)
	}
}

func (a *HandoffAPI) logf(format string, args ...any) {
	if a.logger != nil {
		a.logger.Printf("[handoff] "+format, args...)
	}
}
