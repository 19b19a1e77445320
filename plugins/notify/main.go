// Package main provides a desktop notification plugin for fatigue alerts.
// It uses notify-send on Linux and AppleScript on macOS.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/ayusman/vigil/internal/plugin"
)

func main() {
	// Read request from stdin
	var req plugin.Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResponse(plugin.Response{Error: fmt.Sprintf("failed to decode request: %v", err)})
		return
	}

	n, err := buildNotification(&req)
	if err != nil {
		writeResponse(plugin.Response{Error: err.Error()})
		return
	}

	if err := show(n); err != nil {
		writeResponse(plugin.Response{Error: fmt.Sprintf("notification failed: %v", err)})
		return
	}

	data, _ := json.Marshal(map[string]string{"title": n.Title, "body": n.Body})
	writeResponse(plugin.Response{Success: true, Data: data})
}

// writeResponse writes the response to stdout.
func writeResponse(resp plugin.Response) {
	json.NewEncoder(os.Stdout).Encode(resp)
}

// show displays n with the platform's notifier.
func show(n notification) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		script := fmt.Sprintf("display notification %q with title %q", n.Body, n.Title)
		if n.Sound {
			script += ` sound name "Sosumi"`
		}
		cmd = exec.Command("osascript", "-e", script)
	case "linux":
		cmd = exec.Command("notify-send", "--urgency="+n.Urgency, "--app-name=vigil", n.Title, n.Body)
	default:
		return fmt.Errorf("unsupported platform %s", runtime.GOOS)
	}

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}
