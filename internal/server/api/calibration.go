package api

import "net/http"

type calibrationResponse struct {
	Active       bool    `json:"active"`
	Progress     int     `json:"progress"`
	EARThreshold float64 `json:"ear_threshold"`
}

// CalibrationHandler serves /api/calibration: GET reports progress, POST
// starts a new window and DELETE cancels it. Cancelling while idle is
// not an error.
type CalibrationHandler struct {
	ctl Controller
}

// NewCalibrationHandler creates a CalibrationHandler.
func NewCalibrationHandler(ctl Controller) *CalibrationHandler {
	return &CalibrationHandler{ctl: ctl}
}

func (h *CalibrationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.status())
	case http.MethodPost:
		h.ctl.StartCalibration()
		writeJSON(w, http.StatusAccepted, h.status())
	case http.MethodDelete:
		h.ctl.StopCalibration()
		writeJSON(w, http.StatusOK, h.status())
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *CalibrationHandler) status() calibrationResponse {
	active, progress := h.ctl.Calibration()
	return calibrationResponse{
		Active:       active,
		Progress:     progress,
		EARThreshold: h.ctl.Parameters().EARThreshold,
	}
}
