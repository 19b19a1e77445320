package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/vigil/internal/testutil"
)

// isolate keeps config discovery away from the developer's files.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCommand(viper.New())
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// writeRecording writes three two-second eye closures.
func writeRecording(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "frames.jsonl")
	require.NoError(t, testutil.NewRecording().EyeClosures(3, 2*time.Second, 500*time.Millisecond).WriteFile(path))
	return path
}

func TestReplayCommand(t *testing.T) {
	dir := isolate(t)
	path := writeRecording(t, dir)

	out, err := execute(t, "replay", path)
	require.NoError(t, err)

	assert.Contains(t, out, "09:00:01.500  eye_closure duration=1.5s")
	assert.Contains(t, out, "level -> moderate")
	assert.Contains(t, out, "events:      eye_closure=3")
	assert.Contains(t, out, "final level: moderate")
}

func TestReplayCommand_JSON(t *testing.T) {
	dir := isolate(t)
	path := writeRecording(t, dir)

	out, err := execute(t, "replay", "--json", path)
	require.NoError(t, err)

	var summary struct {
		Frames    int            `json:"frames"`
		Events    map[string]int `json:"events"`
		PeakLevel string         `json:"peak_level"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, 75, summary.Frames)
	assert.Equal(t, map[string]int{"eye_closure": 3}, summary.Events)
	assert.Equal(t, "moderate", summary.PeakLevel)
}

func TestReplayCommand_ConfigThreshold(t *testing.T) {
	dir := isolate(t)
	path := writeRecording(t, dir)

	// a higher event threshold keeps three closures at normal
	config := "detection:\n  fatigue_event_threshold: 5\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(config), 0o644))

	out, err := execute(t, "replay", path)
	require.NoError(t, err)
	assert.Contains(t, out, "final level: normal")
	assert.NotContains(t, out, "level ->")
}

func TestReplayCommand_Errors(t *testing.T) {
	dir := isolate(t)

	t.Run("missing file", func(t *testing.T) {
		_, err := execute(t, "replay", filepath.Join(dir, "nope.jsonl"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("missing argument", func(t *testing.T) {
		_, err := execute(t, "replay")
		assert.Error(t, err)
	})

	t.Run("missing explicit config", func(t *testing.T) {
		_, err := execute(t, "--config", filepath.Join(dir, "absent.yaml"), "replay", "-")
		assert.Error(t, err)
	})

	t.Run("invalid log level", func(t *testing.T) {
		_, err := execute(t, "--log-level", "loud", "replay", "-")
		assert.Error(t, err)
	})
}

func TestMQTTClientID(t *testing.T) {
	assert.Equal(t, "cab-7", mqttClientID("cab-7", "0123456789abcdef"))
	assert.Equal(t, "vigil-01234567", mqttClientID("", "0123456789abcdef"))
}
