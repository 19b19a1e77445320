package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ayusman/vigil/internal/fatigue"
)

// ParametersHandler serves GET and PUT /api/parameters.
type ParametersHandler struct {
	ctl    Controller
	logger *slog.Logger
}

// NewParametersHandler creates a ParametersHandler. A nil logger discards.
func NewParametersHandler(ctl Controller, logger *slog.Logger) *ParametersHandler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ParametersHandler{ctl: ctl, logger: logger}
}

func (h *ParametersHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.ctl.Parameters())
	case http.MethodPut, http.MethodPatch:
		h.update(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// update applies a partial update. Fields that are absent keep their value;
// non-positive values are rejected rather than silently ignored.
func (h *ParametersHandler) update(w http.ResponseWriter, r *http.Request) {
	var req fatigue.ParameterUpdate
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if (req.EARThreshold != nil && *req.EARThreshold <= 0) ||
		(req.MARThreshold != nil && *req.MARThreshold <= 0) ||
		(req.FatigueEventThreshold != nil && *req.FatigueEventThreshold <= 0) {
		writeError(w, http.StatusBadRequest, "Thresholds must be positive")
		return
	}

	params, err := h.ctl.SetParameters(req)
	if err != nil {
		h.logger.Error("failed to persist parameters", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to save parameters")
		return
	}

	writeJSON(w, http.StatusOK, params)
}
