// Package status serves the user-facing slice of live session state over
// HTTP: the running counters as JSON, the announcement and overlay toggles,
// a health probe, and the Prometheus registry.
package status

import (
	"context"
	"encoding/json"
	"net/http"
)

// Snapshot is the read shape returned by GET /status.
type Snapshot struct {
	SessionID     string  `json:"session_id"`
	Mode          string  `json:"mode"`
	Status        string  `json:"status"`
	Score         float64 `json:"score"`
	TotalErrors   int     `json:"total_errors"`
	FrameSequence int64   `json:"frame_sequence"`
	InFlight      bool    `json:"in_flight"`
	Announcements bool    `json:"announcements_enabled"`
	Overlay       bool    `json:"overlay_enabled"`
}

// Provider supplies live state and the runtime toggles. Using an interface
// bundle keeps the handler layer loosely coupled to the session controller.
type Provider interface {
	// Snapshot returns the current user-facing counters.
	Snapshot(ctx context.Context) Snapshot

	// SetAnnouncementsEnabled flips spoken feedback on or off.
	SetAnnouncementsEnabled(enabled bool)

	// SetOverlayEnabled flips skeleton drawing on or off.
	SetOverlayEnabled(enabled bool)
}

// Server wires HTTP routes for the status surface.
type Server struct {
	statusHandler *StatusHandler
	toggleHandler *ToggleHandler
	healthHandler *HealthHandler
}

// NewServer creates a new status server with all handlers.
func NewServer(provider Provider) *Server {
	return &Server{
		statusHandler: NewStatusHandler(provider),
		toggleHandler: NewToggleHandler(provider),
		healthHandler: NewHealthHandler(),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("/status", MetricsMiddleware(s.statusHandler.HandleStatus, "status"))
	mux.HandleFunc("/announce/enable", MetricsMiddleware(s.toggleHandler.HandleAnnounceEnable, "announce_enable"))
	mux.HandleFunc("/announce/disable", MetricsMiddleware(s.toggleHandler.HandleAnnounceDisable, "announce_disable"))
	mux.HandleFunc("/overlay/enable", MetricsMiddleware(s.toggleHandler.HandleOverlayEnable, "overlay_enable"))
	mux.HandleFunc("/overlay/disable", MetricsMiddleware(s.toggleHandler.HandleOverlayDisable, "overlay_disable"))
}

// StatusHandler handles status requests.
type StatusHandler struct {
	provider Provider
}

// NewStatusHandler creates a new status handler.
func NewStatusHandler(provider Provider) *StatusHandler {
	return &StatusHandler{provider: provider}
}

// HandleStatus handles GET /status requests.
func (h *StatusHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	writeJSON(w, http.StatusOK, h.provider.Snapshot(r.Context()))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
