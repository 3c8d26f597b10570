package server

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/ptrack/internal/live"
	"github.com/ayusman/ptrack/internal/tracker"
)

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestWebSocket_PushesSnapshots(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping websocket test in short mode")
	}

	hub := live.NewHub()
	hub.Publish(tracker.Snapshot{TargetForward: 35, TargetBackward: 15, Reps: 3, Direction: "backward", LevelUp: true})

	ts := httptest.NewServer(New(Config{Hub: hub, PushRate: 50}, quietLogger()))
	defer ts.Close()
	defer hub.Close()

	conn := dialWS(t, ts)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var snap map[string]any
	if err := conn.ReadJSON(&snap); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if snap["direction"] != "backward" || snap["target_forward"] != 35.0 || snap["level_up"] != true {
		t.Errorf("snapshot = %v", snap)
	}
	if a, ok := snap["angle"]; !ok || a != nil {
		t.Errorf("angle = %v, want explicit null", a)
	}

	// Updates reach the client on a later push.
	hub.Publish(tracker.Snapshot{Reps: 4, Direction: "backward"})
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if err := conn.ReadJSON(&snap); err != nil {
			t.Fatalf("ReadJSON() error = %v", err)
		}
		if snap["reps"] == 4.0 {
			return
		}
	}
	t.Error("updated snapshot never arrived")
}

func TestWebSocket_QueuesCommands(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping websocket test in short mode")
	}

	hub := live.NewHub()
	q := live.NewQueue(8)
	ts := httptest.NewServer(New(Config{Hub: hub, Commands: q}, quietLogger()))
	defer ts.Close()
	defer hub.Close()

	conn := dialWS(t, ts)
	for _, msg := range []string{
		`{"command":"level_up"}`,
		`not json`,
		`{"command":"fly"}`,
		`{"command":"toggle_direction"}`,
	} {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
			t.Fatalf("WriteMessage() error = %v", err)
		}
	}

	var got []string
	deadline := time.Now().Add(2 * time.Second)
	for len(got) < 2 && time.Now().Before(deadline) {
		got = append(got, q.Drain()...)
		time.Sleep(10 * time.Millisecond)
	}

	want := []string{tracker.CommandLevelUp, tracker.CommandToggleDirection}
	if len(got) != len(want) {
		t.Fatalf("queued = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("queued[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestWebSocket_ClosesWhenSessionEnds(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping websocket test in short mode")
	}

	hub := live.NewHub()
	ts := httptest.NewServer(New(Config{Hub: hub}, quietLogger()))
	defer ts.Close()

	conn := dialWS(t, ts)
	hub.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Errorf("ReadMessage() error = %v, want normal close", err)
	}
}
