// Package httpapi exposes the service's HTTP surface: health probes,
// Prometheus metrics, the webchat websocket, and read-only observability
// endpoints.
package httpapi

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/kirill3224/privacy-sentry/internal/archive"
	"github.com/kirill3224/privacy-sentry/internal/config"
	"github.com/kirill3224/privacy-sentry/internal/gateway"
	"github.com/kirill3224/privacy-sentry/internal/observability"
	"github.com/kirill3224/privacy-sentry/internal/session"
)

type Server struct {
	cfg      config.Config
	sessions *session.Store
	webchat  *gateway.Hub
	archive  archive.Store
	turns    *observability.TurnWindow
	upgrader websocket.Upgrader
}

// New wires the HTTP surface. webchat may be nil when the telegram transport
// is active; the /ws route then reports 404.
func New(cfg config.Config, sessions *session.Store, webchat *gateway.Hub, archiveStore archive.Store, turns *observability.TurnWindow) *Server {
	return &Server{
		cfg:      cfg,
		sessions: sessions,
		webchat:  webchat,
		archive:  archiveStore,
		turns:    turns,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Same-origin browsers only; non-browser clients omit Origin
				// and are allowed.
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Get("/ws", s.handleWebchatWS)
	r.Get("/v1/sessions/stats", s.handleSessionStats)
	r.Get("/v1/documents/stats", s.handleDocumentStats)
	r.Get("/v1/perf/turns", s.handlePerfTurns)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"gateway_mode": s.cfg.GatewayMode,
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":       "ready",
		"gateway_mode": s.cfg.GatewayMode,
	})
}

// handleWebchatWS attaches a browser to the webchat transport. The user id
// comes from the query string; the local webchat is a development surface
// and does no authentication.
func (s *Server) handleWebchatWS(w http.ResponseWriter, r *http.Request) {
	if s.webchat == nil {
		respondError(w, http.StatusNotFound, "webchat_disabled", "webchat transport is not active")
		return
	}

	userID, err := strconv.ParseInt(strings.TrimSpace(r.URL.Query().Get("user_id")), 10, 64)
	if err != nil || userID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_user_id", "query parameter user_id must be a positive integer")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	s.webchat.Attach(r.Context(), userID, conn)
}

func (s *Server) handleSessionStats(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"active_workflows": s.sessions.ActiveCount(),
	})
}

func (s *Server) handleDocumentStats(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		respondJSON(w, http.StatusOK, archive.Stats{ByWorkflow: map[string]int{}})
		return
	}
	stats, err := s.archive.Stats(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "archive_unavailable", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handlePerfTurns(w http.ResponseWriter, _ *http.Request) {
	if s.turns == nil {
		respondJSON(w, http.StatusOK, observability.TurnSnapshot{})
		return
	}
	respondJSON(w, http.StatusOK, s.turns.Snapshot())
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
