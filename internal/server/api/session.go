package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/ayusman/vigil/internal/fatigue"
)

// SessionHandler serves /api/session and its control actions.
type SessionHandler struct {
	ctl Controller
}

// NewSessionHandler creates a SessionHandler.
func NewSessionHandler(ctl Controller) *SessionHandler {
	return &SessionHandler{ctl: ctl}
}

// ServeHTTP routes GET /api/session and POST /api/session/{action}.
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	action := strings.TrimPrefix(r.URL.Path, "/api/session")
	action = strings.TrimPrefix(action, "/")

	if action == "" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, h.ctl.Snapshot())
		return
	}

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	switch action {
	case "start":
		h.ctl.StartSession()
	case "stop":
		h.ctl.StopSession()
	case "reset":
		h.ctl.Reset()
	case "reset-events":
		h.ctl.ResetFatigueEvents()
	case "acknowledge":
		h.ctl.Acknowledge()
	default:
		writeError(w, http.StatusNotFound, "Unknown session action")
		return
	}

	writeJSON(w, http.StatusOK, h.ctl.Snapshot())
}

type blinksResponse struct {
	Window string `json:"window"`
	Count  int    `json:"count"`
}

// BlinksHandler serves GET /api/blinks?window=30s.
type BlinksHandler struct {
	ctl Controller
}

// NewBlinksHandler creates a BlinksHandler.
func NewBlinksHandler(ctl Controller) *BlinksHandler {
	return &BlinksHandler{ctl: ctl}
}

func (h *BlinksHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	window := fatigue.BlinkWindow
	if raw := r.URL.Query().Get("window"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			writeError(w, http.StatusBadRequest, "window must be a positive duration")
			return
		}
		window = d
	}

	writeJSON(w, http.StatusOK, blinksResponse{
		Window: window.String(),
		Count:  h.ctl.RecentBlinkCount(window),
	})
}
