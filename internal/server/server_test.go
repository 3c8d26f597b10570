package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/ptrack/internal/live"
	"github.com/ayusman/ptrack/internal/store"
	"github.com/ayusman/ptrack/internal/strength"
	"github.com/ayusman/ptrack/internal/tracker"
)

const (
	subjectA = "6f1c2f0e-3b8a-4c53-9d0e-2a4b5c6d7e8f"
	subjectB = "0b7e9a51-2c44-4f0e-8d13-5e6f7a8b9c0d"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func ptr(v float64) *float64 { return &v }

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestServer_Health(t *testing.T) {
	s := New(Config{}, quietLogger())

	t.Run("returns 200 with JSON response", func(t *testing.T) {
		rec := do(t, s, http.MethodGet, "/api/health", "")

		if rec.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected Content-Type application/json, got %s", ct)
		}

		var response map[string]any
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if response["status"] != "ok" {
			t.Errorf("expected status 'ok', got %v", response["status"])
		}
		if _, exists := response["uptime"]; !exists {
			t.Error("expected 'uptime' field in response")
		}
	})

	t.Run("only allows GET method", func(t *testing.T) {
		for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch} {
			rec := do(t, s, method, "/api/health", "")
			if rec.Code != http.StatusMethodNotAllowed {
				t.Errorf("method %s: expected status %d, got %d", method, http.StatusMethodNotAllowed, rec.Code)
			}
		}
	})

	t.Run("reports database", func(t *testing.T) {
		s := New(Config{DB: newTestStore(t)}, quietLogger())
		rec := do(t, s, http.MethodGet, "/api/health", "")

		var response map[string]any
		json.NewDecoder(rec.Body).Decode(&response)
		if response["database"] != "ok" {
			t.Errorf("database = %v, want ok", response["database"])
		}
	})
}

func TestServer_NotFound(t *testing.T) {
	s := New(Config{}, quietLogger())

	rec := do(t, s, http.MethodGet, "/api/nonexistent", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}

	// Live and database routes are absent without their collaborators.
	for _, path := range []string{"/api/state", "/ws", "/api/subjects/" + subjectA + "/flexion"} {
		if rec := do(t, s, http.MethodGet, path, ""); rec.Code != http.StatusNotFound {
			t.Errorf("GET %s: expected status %d, got %d", path, http.StatusNotFound, rec.Code)
		}
	}
}

func TestServer_CORS(t *testing.T) {
	s := New(Config{}, quietLogger())

	rec := do(t, s, http.MethodOptions, "/api/health", "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("OPTIONS status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin = %q", got)
	}
}

func TestServer_StaticFiles(t *testing.T) {
	tmpDir := t.TempDir()

	testContent := "<html><body>progress</body></html>"
	if err := os.WriteFile(filepath.Join(tmpDir, "index.html"), []byte(testContent), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	s := New(Config{StaticDir: tmpDir}, quietLogger())

	t.Run("serves index.html at root path", func(t *testing.T) {
		rec := do(t, s, http.MethodGet, "/", "")
		if rec.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		if rec.Body.String() != testContent {
			t.Errorf("expected body %q, got %q", testContent, rec.Body.String())
		}
	})

	t.Run("returns 404 for non-existent static files", func(t *testing.T) {
		rec := do(t, s, http.MethodGet, "/nonexistent.html", "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
		}
	})
}

func TestServer_State(t *testing.T) {
	hub := live.NewHub()
	s := New(Config{Hub: hub}, quietLogger())

	if rec := do(t, s, http.MethodGet, "/api/state", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("before publish: status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}

	angle := 42.0
	hub.Publish(tracker.Snapshot{Angle: &angle, TargetForward: 30, TargetBackward: 15, Reps: 2, Direction: "forward", Armed: true})

	rec := do(t, s, http.MethodGet, "/api/state", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var got map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got["angle"] != 42.0 || got["reps"] != 2.0 || got["direction"] != "forward" {
		t.Errorf("state = %v", got)
	}
	if w, ok := got["warning"]; !ok || w != nil {
		t.Errorf("warning = %v, want explicit null", w)
	}
}

func TestServer_Commands(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"level up", `{"command":"level_up"}`, http.StatusAccepted},
		{"toggle", `{"command":"toggle_direction"}`, http.StatusAccepted},
		{"quit", `{"command":"quit"}`, http.StatusAccepted},
		{"unknown", `{"command":"jump"}`, http.StatusBadRequest},
		{"bad json", `{command`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := live.NewQueue(4)
			s := New(Config{Commands: q}, quietLogger())

			rec := do(t, s, http.MethodPost, "/api/commands", tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			wantLen := 0
			if tt.wantStatus == http.StatusAccepted {
				wantLen = 1
			}
			if q.Len() != wantLen {
				t.Errorf("queue length = %d, want %d", q.Len(), wantLen)
			}
		})
	}

	t.Run("full queue", func(t *testing.T) {
		q := live.NewQueue(1)
		s := New(Config{Commands: q}, quietLogger())

		do(t, s, http.MethodPost, "/api/commands", `{"command":"level_up"}`)
		rec := do(t, s, http.MethodPost, "/api/commands", `{"command":"level_up"}`)
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
		}
	})
}

func TestServer_FlexionSessions(t *testing.T) {
	ctx := context.Background()
	db := newTestStore(t)
	for i := 0; i < 3; i++ {
		if err := db.Flexion().Insert(ctx, &store.FlexionSession{SubjectID: subjectA, TargetForward: 30 + 5*i, TargetBackward: 15, Repetitions: i}); err != nil {
			t.Fatal(err)
		}
	}
	s := New(Config{DB: db}, quietLogger())

	t.Run("lists newest first", func(t *testing.T) {
		rec := do(t, s, http.MethodGet, "/api/subjects/"+subjectA+"/flexion?limit=2", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}

		var resp struct {
			Sessions []store.FlexionSession `json:"sessions"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatal(err)
		}
		if len(resp.Sessions) != 2 {
			t.Fatalf("len(sessions) = %d, want 2", len(resp.Sessions))
		}
		if resp.Sessions[0].Session != 3 || resp.Sessions[0].TargetForward != 40 {
			t.Errorf("first = %+v", resp.Sessions[0])
		}
	})

	t.Run("unknown subject is empty", func(t *testing.T) {
		rec := do(t, s, http.MethodGet, "/api/subjects/"+subjectB+"/flexion", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `"sessions":[]`) {
			t.Errorf("body = %s", rec.Body.String())
		}
	})

	t.Run("rejects bad input", func(t *testing.T) {
		for _, path := range []string{
			"/api/subjects/not-a-uuid/flexion",
			"/api/subjects/" + subjectA + "/flexion?limit=0",
			"/api/subjects/" + subjectA + "/flexion?limit=x",
		} {
			if rec := do(t, s, http.MethodGet, path, ""); rec.Code != http.StatusBadRequest {
				t.Errorf("GET %s: status = %d, want %d", path, rec.Code, http.StatusBadRequest)
			}
		}
	})
}

func TestServer_StrengthSessions(t *testing.T) {
	ctx := context.Background()
	db := newTestStore(t)
	if err := db.Grip().Insert(ctx, &store.GripSession{SubjectID: subjectA, Palm: 512, Samples: 10, Reduction: "max"}); err != nil {
		t.Fatal(err)
	}
	if err := db.Pinch().Insert(ctx, &store.PinchSession{SubjectID: subjectA, IndexThumb: ptr(2), Samples: 4, Reduction: "max"}); err != nil {
		t.Fatal(err)
	}
	s := New(Config{DB: db}, quietLogger())

	for _, kind := range []string{"grip", "pinch"} {
		rec := do(t, s, http.MethodGet, "/api/subjects/"+subjectA+"/"+kind, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status = %d", kind, rec.Code)
		}
		var resp struct {
			Sessions []map[string]any `json:"sessions"`
		}
		json.NewDecoder(rec.Body).Decode(&resp)
		if len(resp.Sessions) != 1 {
			t.Errorf("%s: len(sessions) = %d, want 1", kind, len(resp.Sessions))
		}
	}
}

func TestServer_Baseline(t *testing.T) {
	db := newTestStore(t)
	s := New(Config{DB: db}, quietLogger())
	path := "/api/subjects/" + subjectA + "/baseline"

	if rec := do(t, s, http.MethodGet, path, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("GET before PUT: status = %d, want %d", rec.Code, http.StatusNotFound)
	}

	rec := do(t, s, http.MethodPut, path, `{"base_grip": 400, "base_index_thumb": 2.5}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT status = %d (%s)", rec.Code, rec.Body.String())
	}

	rec = do(t, s, http.MethodGet, path, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET status = %d", rec.Code)
	}
	var b store.Baseline
	if err := json.NewDecoder(rec.Body).Decode(&b); err != nil {
		t.Fatal(err)
	}
	if b.Grip == nil || *b.Grip != 400 || b.IndexThumb == nil || *b.IndexThumb != 2.5 || b.MiddleThumb != nil {
		t.Errorf("baseline = %+v", b)
	}

	if rec := do(t, s, http.MethodPut, path, `{"base_grip": -1}`); rec.Code != http.StatusBadRequest {
		t.Errorf("negative baseline: status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if rec := do(t, s, http.MethodPut, path, `nope`); rec.Code != http.StatusBadRequest {
		t.Errorf("bad JSON: status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

type fakeGrip struct {
	res     *strength.GripResult
	err     error
	subject string
}

func (f *fakeGrip) RunGrip(_ context.Context, subjectID string) (*strength.GripResult, error) {
	f.subject = subjectID
	return f.res, f.err
}

func TestServer_StartGrip(t *testing.T) {
	tests := []struct {
		name       string
		grip       *fakeGrip
		body       string
		wantStatus int
		wantSubj   string
	}{
		{
			name:       "uses configured subject",
			grip:       &fakeGrip{res: &strength.GripResult{Palm: 600, Ratio: ptr(1.5), Samples: 40, Saved: true}},
			wantStatus: http.StatusOK,
			wantSubj:   subjectA,
		},
		{
			name:       "body subject wins",
			grip:       &fakeGrip{res: &strength.GripResult{Palm: 600, Samples: 1}},
			body:       `{"subject_id":"` + subjectB + `"}`,
			wantStatus: http.StatusOK,
			wantSubj:   subjectB,
		},
		{
			name:       "bad subject",
			grip:       &fakeGrip{},
			body:       `{"subject_id":"x"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "no data",
			grip:       &fakeGrip{err: strength.ErrNoData},
			wantStatus: http.StatusUnprocessableEntity,
			wantSubj:   subjectA,
		},
		{
			name:       "busy",
			grip:       &fakeGrip{err: strength.ErrBusy},
			wantStatus: http.StatusConflict,
			wantSubj:   subjectA,
		},
		{
			name:       "sensor failure",
			grip:       &fakeGrip{err: errors.New("no port")},
			wantStatus: http.StatusInternalServerError,
			wantSubj:   subjectA,
		},
		{
			name:       "measured but not saved",
			grip:       &fakeGrip{res: &strength.GripResult{Palm: 300, Samples: 3}, err: errors.New("db down")},
			wantStatus: http.StatusOK,
			wantSubj:   subjectA,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(Config{Grip: tt.grip, SubjectID: subjectA}, quietLogger())

			req := httptest.NewRequest(http.MethodPost, "/api/grip/sessions", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()
			s.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.grip.subject != tt.wantSubj {
				t.Errorf("subject = %q, want %q", tt.grip.subject, tt.wantSubj)
			}
			if rec.Code == http.StatusOK {
				var resp map[string]any
				json.NewDecoder(rec.Body).Decode(&resp)
				if resp["fsr_palm"] != tt.grip.res.Palm {
					t.Errorf("fsr_palm = %v", resp["fsr_palm"])
				}
			}
		})
	}
}

func TestServer_Stream(t *testing.T) {
	hub := live.NewHub()
	hub.PublishFrame([]byte("JPEGDATA"))
	s := New(Config{Hub: hub, PushRate: 100}, quietLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/stream", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "multipart/x-mixed-replace") {
		t.Errorf("Content-Type = %q", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: 8\r\n\r\nJPEGDATA\r\n") {
		t.Errorf("body = %q", body)
	}
	// An unchanged frame is sent once.
	if n := strings.Count(body, "--frame"); n != 1 {
		t.Errorf("frames sent = %d, want 1", n)
	}
}

func TestServer_StreamStopsWhenHubCloses(t *testing.T) {
	hub := live.NewHub()
	s := New(Config{Hub: hub}, quietLogger())

	done := make(chan struct{})
	go func() {
		req := httptest.NewRequest(http.MethodGet, "/api/stream", nil)
		s.ServeHTTP(httptest.NewRecorder(), req)
		close(done)
	}()

	hub.Close()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not stop after hub closed")
	}
}
