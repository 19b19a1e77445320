package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ayusman/vigil/internal/fatigue"
	"github.com/ayusman/vigil/internal/plugin"
)

const defaultTitle = "Fatigue warning"

type config struct {
	Title string `json:"title"`
	Sound bool   `json:"sound"`
}

type notification struct {
	Title   string
	Body    string
	Urgency string // notify-send urgency: normal or critical
	Sound   bool
}

// buildNotification validates req and renders the notification text.
func buildNotification(req *plugin.Request) (notification, error) {
	if req.Action != "alert" {
		return notification{}, fmt.Errorf("unknown action: %s", req.Action)
	}

	var cfg config
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			return notification{}, fmt.Errorf("invalid config: %w", err)
		}
	}
	if cfg.Title == "" {
		cfg.Title = defaultTitle
	}

	n := notification{Title: cfg.Title, Sound: cfg.Sound}
	switch req.Level {
	case fatigue.LevelModerate:
		n.Body = "You are showing signs of fatigue. Consider taking a break."
		n.Urgency = "normal"
	case fatigue.LevelSevere:
		n.Body = "Severe fatigue detected. Please stop and rest."
		n.Urgency = "critical"
	default:
		return notification{}, errors.New("no alert for level " + req.Level.String())
	}

	if summary := summarize(req.Events); summary != "" {
		n.Body += " (" + summary + ")"
	}
	return n, nil
}

// summarize lists event kinds in order of first appearance with counts.
func summarize(records []fatigue.Record) string {
	counts := make(map[string]int)
	var order []string
	for _, r := range records {
		if counts[r.Kind] == 0 {
			order = append(order, r.Kind)
		}
		counts[r.Kind]++
	}

	parts := make([]string, 0, len(order))
	for _, kind := range order {
		label := strings.ReplaceAll(kind, "_", " ")
		if counts[kind] > 1 {
			label = fmt.Sprintf("%d× %s", counts[kind], label)
		}
		parts = append(parts, label)
	}
	return strings.Join(parts, ", ")
}
