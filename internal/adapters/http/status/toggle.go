package status

import "net/http"

type ackResponse struct {
	Status  string `json:"status"`
	Enabled bool   `json:"enabled"`
}

// ToggleHandler handles the announcement and overlay enable/disable routes.
type ToggleHandler struct {
	provider Provider
}

// NewToggleHandler creates a new toggle handler.
func NewToggleHandler(provider Provider) *ToggleHandler {
	return &ToggleHandler{provider: provider}
}

// HandleAnnounceEnable handles POST /announce/enable requests.
func (h *ToggleHandler) HandleAnnounceEnable(w http.ResponseWriter, r *http.Request) {
	h.setAnnounce(w, r, true)
}

// HandleAnnounceDisable handles POST /announce/disable requests.
func (h *ToggleHandler) HandleAnnounceDisable(w http.ResponseWriter, r *http.Request) {
	h.setAnnounce(w, r, false)
}

// HandleOverlayEnable handles POST /overlay/enable requests.
func (h *ToggleHandler) HandleOverlayEnable(w http.ResponseWriter, r *http.Request) {
	h.setOverlay(w, r, true)
}

// HandleOverlayDisable handles POST /overlay/disable requests.
func (h *ToggleHandler) HandleOverlayDisable(w http.ResponseWriter, r *http.Request) {
	h.setOverlay(w, r, false)
}

func (h *ToggleHandler) setAnnounce(w http.ResponseWriter, r *http.Request, enabled bool) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	h.provider.SetAnnouncementsEnabled(enabled)
	writeJSON(w, http.StatusOK, ackResponse{Status: "ok", Enabled: enabled})
}

func (h *ToggleHandler) setOverlay(w http.ResponseWriter, r *http.Request, enabled bool) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	h.provider.SetOverlayEnabled(enabled)
	writeJSON(w, http.StatusOK, ackResponse{Status: "ok", Enabled: enabled})
}
