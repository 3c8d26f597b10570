package e2e

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/ptrack/internal/app"
	"github.com/ayusman/ptrack/internal/capture"
	"github.com/ayusman/ptrack/internal/detector"
	"github.com/ayusman/ptrack/internal/live"
	"github.com/ayusman/ptrack/internal/sensor"
	"github.com/ayusman/ptrack/internal/server"
	"github.com/ayusman/ptrack/internal/store"
	"github.com/ayusman/ptrack/internal/strength"
	"github.com/ayusman/ptrack/internal/tracker"
)

const subjectID = "0b7e4c1a-5d2f-4e8b-a9c3-1f6d2e4b8a70"

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestE2E_CompleteWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	ctx := context.Background()
	log := quietLogger()

	s, err := store.New(filepath.Join(t.TempDir(), "data.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	hub := live.NewHub()
	commands := live.NewQueue(live.DefaultQueueSize)

	open := func() (sensor.Source, error) {
		return sensor.NewScripted([]string{
			"SensorValue:200",
			"noise",
			"SensorValue:450",
			"SensorValue:300",
		}, 0), nil
	}
	station := strength.NewStation(strength.NewRunner(s, log), open, time.Second, strength.PolicyMax)

	srv := server.New(server.Config{
		Hub:       hub,
		Commands:  commands,
		DB:        s,
		Grip:      station,
		SubjectID: subjectID,
	}, log)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	client := ts.Client()

	t.Run("SetBaseline", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodPut, ts.URL+"/api/subjects/"+subjectID+"/baseline",
			strings.NewReader(`{"base_grip": 600}`))
		if err != nil {
			t.Fatal(err)
		}
		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("put baseline error = %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
		}
	})

	t.Run("QueueLevelUp", func(t *testing.T) {
		resp, err := client.Post(ts.URL+"/api/commands", "application/json",
			strings.NewReader(`{"command": "level_up"}`))
		if err != nil {
			t.Fatalf("post command error = %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusAccepted {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusAccepted)
		}
	})

	t.Run("TrackFlexion", func(t *testing.T) {
		frame := gocv.NewMatWithSize(480, 480, gocv.MatTypeCV8UC3)
		defer frame.Close()
		frames := make([]*gocv.Mat, 10)
		for i := range frames {
			frames[i] = &frame
		}
		cam := capture.NewMockCamera(frames, false)
		cam.SetFPS(200)

		det := detector.NewMockDetector()
		var seq [][]detector.HandLandmarks
		for i := 0; i < 5; i++ {
			seq = append(seq,
				[]detector.HandLandmarks{detector.TiltedHand("Left", 40, 40)},
				[]detector.HandLandmarks{detector.NeutralHand("Left")},
			)
		}
		det.SetSequence(seq)

		sink := store.FlexionSink{Repo: s.Flexion()}
		state := tracker.Load(ctx, sink, subjectID, log)
		trk := tracker.New(tracker.Config{SubjectID: subjectID, Handedness: tracker.Left}, state, sink, nil, log)

		a := app.New(app.Config{Preview: true}, cam, det, trk, hub, commands, log)
		if err := a.Run(ctx); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	})

	t.Run("FinalState", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/api/state")
		if err != nil {
			t.Fatal(err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
		}
		var snap tracker.Snapshot
		decode(t, resp, &snap)
		if snap.TargetForward != 40 || snap.Direction != "backward" || snap.RepsLast != 5 {
			t.Errorf("state = %+v, want forward target 40, backward, 5 last reps", snap)
		}
	})

	t.Run("FlexionHistory", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/api/subjects/" + subjectID + "/flexion")
		if err != nil {
			t.Fatal(err)
		}
		var body struct {
			Sessions []store.FlexionSession `json:"sessions"`
		}
		decode(t, resp, &body)

		// Newest first: session end, automatic level-up, manual level-up.
		if len(body.Sessions) != 3 {
			t.Fatalf("sessions = %d, want 3", len(body.Sessions))
		}
		end, auto, manual := body.Sessions[0], body.Sessions[1], body.Sessions[2]
		if manual.LeveledUp || manual.TargetForward != 30 || manual.Repetitions != 0 {
			t.Errorf("manual level-up record = %+v", manual)
		}
		if !auto.LeveledUp || auto.TargetForward != 35 || auto.Repetitions != 5 {
			t.Errorf("level-up record = %+v", auto)
		}
		if end.LeveledUp || end.TargetForward != 40 || end.Repetitions != 0 {
			t.Errorf("end record = %+v", end)
		}
	})

	t.Run("GripWindow", func(t *testing.T) {
		resp, err := client.Post(ts.URL+"/api/grip/sessions", "application/json", nil)
		if err != nil {
			t.Fatal(err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
		}
		var body struct {
			Palm  float64  `json:"fsr_palm"`
			Ratio *float64 `json:"r_fsr_palm"`
			Saved bool     `json:"saved"`
		}
		decode(t, resp, &body)
		if body.Palm != 450 || body.Ratio == nil || *body.Ratio != 0.75 || !body.Saved {
			t.Errorf("grip = %+v, want palm 450, ratio 0.75, saved", body)
		}
	})

	t.Run("GripHistory", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/api/subjects/" + subjectID + "/grip")
		if err != nil {
			t.Fatal(err)
		}
		var body struct {
			Sessions []store.GripSession `json:"sessions"`
		}
		decode(t, resp, &body)
		if len(body.Sessions) != 1 {
			t.Fatalf("sessions = %d, want 1", len(body.Sessions))
		}
		if g := body.Sessions[0]; g.Palm != 450 || g.Samples != 3 || g.Reduction != "max" {
			t.Errorf("grip record = %+v", g)
		}
	})
}
