// Package plugin discovers and runs external alert plugins. A plugin is a
// directory holding a plugin.json manifest and an executable that reads one
// JSON Request on stdin and writes one JSON Response on stdout.
package plugin

import (
	"encoding/json"
	"slices"
	"time"

	"github.com/ayusman/vigil/internal/fatigue"
)

// Manifest describes a plugin's metadata and capabilities.
type Manifest struct {
	Name         string          `json:"name"`
	Version      string          `json:"version"`
	Description  string          `json:"description"`
	Executable   string          `json:"executable"`
	Actions      []string        `json:"actions"`
	ConfigSchema json.RawMessage `json:"configSchema,omitempty"`
}

// Supports reports whether the manifest lists action. A manifest with no
// actions accepts any.
func (m Manifest) Supports(action string) bool {
	return len(m.Actions) == 0 || slices.Contains(m.Actions, action)
}

// Request is sent to a plugin when the fatigue level calls for an alert.
type Request struct {
	ID        string           `json:"id"`
	Action    string           `json:"action"`
	SessionID string           `json:"session_id"`
	Level     fatigue.Level    `json:"level"`
	Events    []fatigue.Record `json:"events"`
	Timestamp time.Time        `json:"timestamp"`
	Config    json.RawMessage  `json:"config,omitempty"`
}

// Response represents the response from a plugin execution.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin is a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}
