// Package api provides the HTTP handlers for controlling a fatigue session.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ayusman/vigil/internal/fatigue"
)

// Controller is the session control surface the handlers drive.
type Controller interface {
	Snapshot() fatigue.Snapshot
	StartSession()
	StopSession()
	Reset()
	ResetFatigueEvents()
	Acknowledge()

	StartCalibration()
	StopCalibration() bool
	Calibration() (active bool, progress int)

	Parameters() fatigue.Parameters
	SetParameters(fatigue.ParameterUpdate) (fatigue.Parameters, error)

	RecentBlinkCount(window time.Duration) int
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
