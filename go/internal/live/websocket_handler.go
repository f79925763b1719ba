package live

import (
	"encoding/json"
	"net/http"

	"github.com/igacmun/site/go/internal/siteconfig"
	"github.com/rs/zerolog/log"
)

// WebSocketHandler serves countdown sockets.
type WebSocketHandler struct {
	connectionManager *ConnectionManager
	site              *siteconfig.Config
}

func NewWebSocketHandler(cm *ConnectionManager, site *siteconfig.Config) *WebSocketHandler {
	return &WebSocketHandler{
		connectionManager: cm,
		site:              site,
	}
}

// HandleCountdown upgrades GET /ws/countdown?section=<name>.
func (h *WebSocketHandler) HandleCountdown(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("section")
	if name == "" {
		http.Error(w, "section is required", http.StatusBadRequest)
		return
	}

	section, err := siteconfig.ParseSection(name)
	if err != nil {
		http.Error(w, "unknown section", http.StatusNotFound)
		return
	}
	rv, err := h.site.Reveal(section)
	if err != nil {
		http.Error(w, "unknown section", http.StatusNotFound)
		return
	}
	if !rv.EnableCountdown {
		http.Error(w, "countdown disabled for section", http.StatusNotFound)
		return
	}

	if err := h.connectionManager.UpgradeConnection(w, r, section, rv.RevealAt); err != nil {
		// The upgrader has already replied to the client.
		log.Error().
			Err(err).
			Str("section", string(section)).
			Msg("failed to upgrade WebSocket connection")
		return
	}
}

// HandleConnectionStats reports active countdown sockets.
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.connectionManager.Stats()); err != nil {
		log.Error().Err(err).Msg("failed to write connection stats")
	}
}
