package plugin

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ayusman/vigil/internal/fatigue"
)

func TestPlugin_Notify_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	pluginDir := findPluginDir("notify")
	if pluginDir == "" {
		t.Skip("notify plugin not built")
	}

	mgr := NewManager(filepath.Dir(pluginDir), nil)
	if err := mgr.Discover(); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	plug, err := mgr.Get("notify")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if _, err := os.Stat(plug.Executable); err != nil {
		t.Skip("notify plugin not built")
	}

	// a normal-level alert is rejected by the plugin without side effects
	req := alertRequest()
	req.Level = fatigue.LevelNormal

	resp, err := NewExecutor(5*time.Second).Execute(context.Background(), plug, req)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if resp.Success {
		t.Error("expected failure for a normal level alert")
	}
}

func findPluginDir(name string) string {
	candidates := []string{
		filepath.Join("../../plugins", name),
		filepath.Join("../../../plugins", name),
	}

	for _, dir := range candidates {
		manifest := filepath.Join(dir, "plugin.json")
		if _, err := os.Stat(manifest); err == nil {
			return dir
		}
	}
	return ""
}
