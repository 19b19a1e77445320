package plugin

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/vigil/internal/fatigue"
)

// scriptPlugin writes a shell script plugin into a temp dir.
func scriptPlugin(t *testing.T, name, script string, actions ...string) *Plugin {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, name+".sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return &Plugin{
		Manifest: Manifest{
			Name:       name,
			Version:    "1.0.0",
			Executable: name + ".sh",
			Actions:    actions,
		},
		Path:       dir,
		Executable: path,
	}
}

func alertRequest() *Request {
	return &Request{
		ID:        "alert-1",
		Action:    "alert",
		SessionID: "session-1",
		Level:     fatigue.LevelSevere,
		Events:    []fatigue.Record{{Kind: "yawn", DurationMS: 1200}},
		Timestamp: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestExecutor_Execute(t *testing.T) {
	p := scriptPlugin(t, "ok", `cat <<'JSON'
{"success":true,"data":{"message":"hello"}}
JSON
`, "alert")

	response, err := NewExecutor(5*time.Second).Execute(context.Background(), p, alertRequest())
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}
	if !response.Success {
		t.Errorf("expected success=true, got false")
	}

	var data map[string]string
	if err := json.Unmarshal(response.Data, &data); err != nil {
		t.Fatalf("failed to unmarshal response data: %v", err)
	}
	if data["message"] != "hello" {
		t.Errorf("expected message 'hello', got %q", data["message"])
	}
}

func TestExecutor_Execute_ReadsStdin(t *testing.T) {
	p := scriptPlugin(t, "echo", `INPUT=$(cat)
echo "{\"success\":true,\"data\":$INPUT}"
`, "alert")

	response, err := NewExecutor(5*time.Second).Execute(context.Background(), p, alertRequest())
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}

	var received Request
	if err := json.Unmarshal(response.Data, &received); err != nil {
		t.Fatalf("failed to decode echoed request: %v", err)
	}
	if received.Level != fatigue.LevelSevere {
		t.Errorf("expected level severe, got %v", received.Level)
	}
	if received.ID != "alert-1" {
		t.Errorf("expected alert-1, got %q", received.ID)
	}
	if len(received.Events) != 1 || received.Events[0].Kind != "yawn" {
		t.Errorf("unexpected events %+v", received.Events)
	}
	if received.SessionID != "session-1" {
		t.Errorf("expected session-1, got %q", received.SessionID)
	}
}

func TestExecutor_UnsupportedAction(t *testing.T) {
	p := scriptPlugin(t, "narrow", `echo '{"success":true}'`, "other")

	_, err := NewExecutor(time.Second).Execute(context.Background(), p, alertRequest())
	if !errors.Is(err, ErrUnsupportedAction) {
		t.Fatalf("expected ErrUnsupportedAction, got %v", err)
	}
}

func TestExecutor_Timeout(t *testing.T) {
	p := scriptPlugin(t, "slow", "sleep 10\necho '{\"success\":true}'\n")

	_, err := NewExecutor(100*time.Millisecond).Execute(context.Background(), p, alertRequest())
	if err == nil {
		t.Fatal("expected timeout error, got nil")
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Errorf("expected timeout error, got: %v", err)
	}
}

func TestExecutor_Cancelled(t *testing.T) {
	p := scriptPlugin(t, "slow", "sleep 10\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewExecutor(5*time.Second).Execute(ctx, p, alertRequest())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestExecutor_Execute_ErrorResponse(t *testing.T) {
	p := scriptPlugin(t, "fail", `echo '{"success":false,"error":"no display"}'`)

	response, err := NewExecutor(5*time.Second).Execute(context.Background(), p, alertRequest())
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}
	if response.Success {
		t.Errorf("expected success=false, got true")
	}
	if response.Error != "no display" {
		t.Errorf("expected error 'no display', got %q", response.Error)
	}
}

func TestExecutor_Execute_InvalidJSON(t *testing.T) {
	p := scriptPlugin(t, "bad", `echo 'not valid json'`)

	if _, err := NewExecutor(5*time.Second).Execute(context.Background(), p, alertRequest()); err == nil {
		t.Fatal("expected error for invalid JSON, got nil")
	}
}

func TestExecutor_Execute_NonZeroExit(t *testing.T) {
	p := scriptPlugin(t, "exit", "echo boom >&2\nexit 1\n")

	_, err := NewExecutor(5*time.Second).Execute(context.Background(), p, alertRequest())
	if err == nil {
		t.Fatal("expected error for non-zero exit, got nil")
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("expected stderr in error, got: %v", err)
	}
}

func TestNewExecutor_DefaultTimeout(t *testing.T) {
	if e := NewExecutor(0); e.timeout != 5*time.Second {
		t.Errorf("expected 5s default, got %s", e.timeout)
	}
}
