package e2e

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/gorilla/websocket"

	"github.com/ayusman/vigil/internal/alert"
	"github.com/ayusman/vigil/internal/app"
	"github.com/ayusman/vigil/internal/capture"
	"github.com/ayusman/vigil/internal/detector"
	"github.com/ayusman/vigil/internal/events"
	"github.com/ayusman/vigil/internal/fatigue"
	"github.com/ayusman/vigil/internal/plugin"
	"github.com/ayusman/vigil/internal/replay"
	"github.com/ayusman/vigil/internal/server"
	"github.com/ayusman/vigil/internal/store"
	"github.com/ayusman/vigil/internal/testutil"
	"github.com/ayusman/vigil/internal/timeutil"
)

type alertLog struct {
	mu   sync.Mutex
	reqs []*plugin.Request
}

func (l *alertLog) Notify(_ context.Context, req *plugin.Request) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reqs = append(l.reqs, req)
	return nil
}

func (l *alertLog) requests() []*plugin.Request {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*plugin.Request(nil), l.reqs...)
}

type stack struct {
	app    *app.App
	clock  *timeutil.MockClock
	alerts *alertLog
	ts     *httptest.Server
	hub    *server.Hub
}

func newStack(t *testing.T, s *store.Store) *stack {
	t.Helper()

	clock := timeutil.NewMockClock(testutil.Start)
	hub := server.NewHub(nil)
	alerts := &alertLog{}

	dispatcher := alert.NewDispatcher(alert.DefaultConfig(), alerts, "e2e-session", nil)
	dispatcher.Start(context.Background())

	cfg := fatigue.DefaultConfig()
	cfg.ID = "e2e-session"
	cfg.Clock = clock
	cfg.Observer = fatigue.Observers{events.NewObserver(hub, clock), dispatcher}

	a, err := app.New(app.Config{
		Camera:   capture.NewMockCamera(nil, false),
		Detector: detector.NewMockDetector(),
		Session:  cfg,
		Store:    s,
		Clock:    clock,
	})
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}

	ts := httptest.NewServer(server.New(server.Config{Controller: a, Hub: hub}))
	t.Cleanup(func() {
		hub.Close()
		ts.Close()
		dispatcher.Stop()
		a.Close()
	})
	return &stack{app: a, clock: clock, alerts: alerts, ts: ts, hub: hub}
}

func openStore(t *testing.T, path string) *store.Store {
	t.Helper()
	s, err := store.New(path)
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	return s
}

// feed processes every frame, keeping the clock at the frame time.
func (s *stack) feed(frames []fatigue.Frame) {
	for _, f := range frames {
		s.clock.Set(f.Timestamp)
		s.app.Process(f)
	}
}

func (s *stack) snapshot(t *testing.T) fatigue.Snapshot {
	t.Helper()
	resp, err := s.ts.Client().Get(s.ts.URL + "/api/session")
	if err != nil {
		t.Fatalf("GET /api/session error = %v", err)
	}
	defer resp.Body.Close()

	var snap fatigue.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("decode snapshot error = %v", err)
	}
	return snap
}

func (s *stack) post(t *testing.T, path string) {
	t.Helper()
	resp, err := s.ts.Client().Post(s.ts.URL+path, "application/json", nil)
	if err != nil {
		t.Fatalf("POST %s error = %v", path, err)
	}
	resp.Body.Close()
	if resp.StatusCode >= 300 {
		t.Fatalf("POST %s status = %d", path, resp.StatusCode)
	}
}

func (s *stack) subscribe(t *testing.T) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(s.ts.URL, "http")+"/api/events", nil)
	if err != nil {
		t.Fatalf("dial /api/events error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	deadline := time.Now().Add(2 * time.Second)
	for s.hub.Clients() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("event subscriber never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return conn
}

// levelChanges reads envelopes until want level changes arrived.
func levelChanges(t *testing.T, conn *websocket.Conn, want int) []string {
	t.Helper()
	var levels []string
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for len(levels) < want {
		var e struct {
			Type    string `json:"type"`
			Payload struct {
				Level string `json:"level"`
			} `json:"payload"`
		}
		if err := conn.ReadJSON(&e); err != nil {
			t.Fatalf("read event error = %v (levels so far %v)", err, levels)
		}
		if e.Type == events.TypeLevelChanged {
			levels = append(levels, e.Payload.Level)
		}
	}
	return levels
}

func TestE2E_FatigueWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	s := openStore(t, filepath.Join(t.TempDir(), "data.db"))
	defer s.Close()

	st := newStack(t, s)
	conn := st.subscribe(t)

	st.feed(testutil.NewRecording().EyeClosures(3, 2*time.Second, 500*time.Millisecond).Frames())

	t.Run("SnapshotReportsModerate", func(t *testing.T) {
		snap := st.snapshot(t)
		if snap.Level != fatigue.LevelModerate {
			t.Errorf("level = %s, want moderate", snap.Level)
		}
		if snap.FatigueEventCount != 3 {
			t.Errorf("fatigue_event_count = %d, want 3", snap.FatigueEventCount)
		}
		if snap.ID != "e2e-session" {
			t.Errorf("id = %q, want e2e-session", snap.ID)
		}
	})

	t.Run("AlertDispatched", func(t *testing.T) {
		deadline := time.Now().Add(2 * time.Second)
		for len(st.alerts.requests()) == 0 && time.Now().Before(deadline) {
			time.Sleep(5 * time.Millisecond)
		}
		reqs := st.alerts.requests()
		if len(reqs) != 1 {
			t.Fatalf("alerts = %d, want 1 (cooldown suppresses repeats)", len(reqs))
		}
		if reqs[0].Level != fatigue.LevelModerate || reqs[0].SessionID != "e2e-session" {
			t.Errorf("unexpected alert %+v", reqs[0])
		}
	})

	t.Run("AcknowledgeResets", func(t *testing.T) {
		st.post(t, "/api/session/acknowledge")

		snap := st.snapshot(t)
		if snap.Level != fatigue.LevelNormal || snap.FatigueEventCount != 0 {
			t.Errorf("after acknowledge level = %s count = %d, want normal 0", snap.Level, snap.FatigueEventCount)
		}
	})

	t.Run("EventsStreamed", func(t *testing.T) {
		got := levelChanges(t, conn, 2)
		if diff := cmp.Diff([]string{"moderate", "normal"}, got); diff != "" {
			t.Errorf("level changes mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestE2E_ParametersSurviveRestart(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	dbPath := filepath.Join(t.TempDir(), "data.db")

	s := openStore(t, dbPath)
	st := newStack(t, s)

	req, _ := http.NewRequest(http.MethodPut, st.ts.URL+"/api/parameters",
		strings.NewReader(`{"ear_threshold": 0.24, "fatigue_event_threshold": 4}`))
	resp, err := st.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("PUT /api/parameters error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("PUT status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	s.Close()

	s = openStore(t, dbPath)
	defer s.Close()
	restarted := newStack(t, s)

	want := fatigue.Parameters{EARThreshold: 0.24, MARThreshold: 0.70, FatigueEventThreshold: 4}
	if diff := cmp.Diff(want, restarted.snapshot(t).Parameters); diff != "" {
		t.Errorf("parameters after restart (-want +got):\n%s", diff)
	}
}

func TestE2E_ReplayMatchesLive(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	rec := testutil.NewRecording().
		Hold(detector.OpenEyesFace(), time.Second).
		EyeClosures(2, 2*time.Second, 500*time.Millisecond).
		NoFace(time.Second).
		Hold(detector.YawningFace(), 1500*time.Millisecond).
		Hold(detector.OpenEyesFace(), 500*time.Millisecond)

	path := filepath.Join(t.TempDir(), "frames.jsonl")
	if err := rec.WriteFile(path); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	s := openStore(t, filepath.Join(t.TempDir(), "data.db"))
	defer s.Close()
	live := newStack(t, s)
	live.feed(rec.Frames())

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open recording error = %v", err)
	}
	defer f.Close()

	summary, err := replay.Run(context.Background(), f, replay.Options{Session: fatigue.DefaultConfig()})
	if err != nil {
		t.Fatalf("replay.Run() error = %v", err)
	}

	if summary.Final.FatigueEventCount != 3 {
		t.Errorf("replayed event count = %d, want 3", summary.Final.FatigueEventCount)
	}
	opts := cmpopts.IgnoreFields(fatigue.Snapshot{}, "ID")
	if diff := cmp.Diff(live.app.Snapshot(), summary.Final, opts); diff != "" {
		t.Errorf("replay diverged from live pipeline (-live +replay):\n%s", diff)
	}
}
