package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/RUSHIKESH1209/Nexable/internal/auth"
	"github.com/RUSHIKESH1209/Nexable/internal/service"
	pkglog "github.com/RUSHIKESH1209/Nexable/pkg/log"
)

const bearerPrefix = "Bearer "

// HTTPHandler serves the small HTTP API next to the websocket endpoint:
// conversation history and the online-users snapshot.
type HTTPHandler struct {
	service service.RealtimeService
	auth    auth.Authenticator
}

func NewHTTPHandler(svc service.RealtimeService, authn auth.Authenticator) *HTTPHandler {
	return &HTTPHandler{
		service: svc,
		auth:    authn,
	}
}

// GetHistory handles GET /api/v1/messages/{peer_id}
func (h *HTTPHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.authorize(w, r)
	if !ok {
		return
	}

	peerID := mux.Vars(r)["peer_id"]
	if peerID == "" {
		http.Error(w, "peer_id is required", http.StatusBadRequest)
		return
	}

	messages, err := h.service.History(r.Context(), userID, peerID)
	if err != nil {
		l := pkglog.L()
		l.Error().Err(err).Str(pkglog.FieldUserID, userID).Msg("failed to load history")
		http.Error(w, "failed to load messages", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(messages)
}

// OnlineUsersResponse is the API response for the presence snapshot.
type OnlineUsersResponse struct {
	Users []string `json:"users"`
	Total int      `json:"total"`
}

// GetOnlineUsers handles GET /api/v1/online
func (h *HTTPHandler) GetOnlineUsers(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authorize(w, r); !ok {
		return
	}

	users := h.service.OnlineUsers()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(OnlineUsersResponse{
		Users: users,
		Total: len(users),
	})
}

// HealthCheck handles GET /health
func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *HTTPHandler) authorize(w http.ResponseWriter, r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, bearerPrefix) {
		http.Error(w, "missing bearer token", http.StatusUnauthorized)
		return "", false
	}

	userID, err := h.auth.CurrentUserID(strings.TrimPrefix(header, bearerPrefix))
	if err != nil {
		http.Error(w, "invalid or expired token", http.StatusUnauthorized)
		return "", false
	}
	return userID, true
}
