package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/ayusman/ptrack/internal/app"
	"github.com/ayusman/ptrack/internal/capture"
	"github.com/ayusman/ptrack/internal/config"
	"github.com/ayusman/ptrack/internal/database"
	"github.com/ayusman/ptrack/internal/detector"
	"github.com/ayusman/ptrack/internal/live"
	"github.com/ayusman/ptrack/internal/sensor"
	"github.com/ayusman/ptrack/internal/server"
	"github.com/ayusman/ptrack/internal/store"
	"github.com/ayusman/ptrack/internal/strength"
	"github.com/ayusman/ptrack/internal/tracker"
	"github.com/ayusman/ptrack/internal/tray"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// The tray's event loop has to own the main thread.
func init() {
	runtime.LockOSThread()
}

func main() {
	configPath := flag.String("config", "", "path to config file (YAML, or TOML by extension)")
	subject := flag.String("subject", "", "subject UUID (overrides subject.id)")
	withTray := flag.Bool("tray", false, "show Level up / Toggle direction / Quit in the system tray")
	migrateOnly := flag.Bool("migrate-only", false, "run migrations and exit")
	staticDir := flag.String("static", "", "directory of companion web files to serve at /")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	log.Info("ptrack starting", "version", Version)

	if err := run(log, *configPath, *subject, *staticDir, *withTray, *migrateOnly); err != nil {
		log.Error("ptrack failed", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger, configPath, subject, staticDir string, withTray, migrateOnly bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if subject != "" {
		cfg.Subject.ID = subject
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if migrateOnly {
		db, err := database.Open(ctx, cfg.Database, log)
		if err != nil {
			return err
		}
		log.Info("migrate-only: exiting")
		return db.Close()
	}
	if err := cfg.RequireSubject(); err != nil {
		return err
	}

	// Tracking goes on without a database; progress just is not kept.
	var sink tracker.Sink
	db, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		log.Warn("database unavailable, sessions will not be saved", "error", err)
	} else {
		defer db.Close()
		sink = store.FlexionSink{Repo: db.Flexion()}
	}

	hand, err := tracker.ParseHandedness(cfg.Subject.Handedness)
	if err != nil {
		return err
	}
	direction, err := tracker.ParseDirection(cfg.Tracker.Direction)
	if err != nil {
		return err
	}

	state := tracker.Load(ctx, sink, cfg.Subject.ID, log)
	state.Direction = direction
	log.Info("session loaded",
		"subject", cfg.Subject.ID,
		"target_forward", state.TargetForward,
		"target_backward", state.TargetBackward,
		"reps_last", state.RepsLastSession,
	)

	var signaler tracker.Signaler
	if cfg.BellEnabled() {
		signaler = app.Bell(os.Stdout)
	}
	trk := tracker.New(tracker.Config{
		SubjectID:      cfg.Subject.ID,
		Handedness:     hand,
		PersistTimeout: cfg.Tracker.PersistTimeout.Duration,
	}, state, sink, signaler, log)

	camera := capture.NewCamera(capture.Config{
		DeviceID: cfg.Camera.Device,
		Width:    cfg.Camera.Width,
		Height:   cfg.Camera.Height,
		FPS:      cfg.Camera.FPS,
		Mirror:   cfg.CameraMirror(),
	})

	var det detector.Detector
	mp, err := detector.NewMediaPipeDetector(detector.Config{
		MaxHands:        1,
		MinConfidence:   cfg.Detector.MinConfidence,
		MinTrackingConf: cfg.Detector.MinTrackingConfidence,
		ScriptPath:      cfg.Detector.Script,
		PythonPath:      cfg.Detector.Python,
		IdleTimeout:     cfg.Detector.IdleTimeout.Duration,
	}, log)
	if err != nil {
		log.Warn("MediaPipe not available, no hands will be detected", "error", err)
		det = detector.NewMockDetector()
	} else {
		det = mp
	}

	hub := live.NewHub()
	commands := live.NewQueue(live.DefaultQueueSize)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	serverDone := make(chan error, 1)
	if cfg.ServerEnabled() {
		srv := server.New(server.Config{
			Hub:       hub,
			Commands:  commands,
			DB:        db,
			Grip:      gripStation(cfg, db, log),
			SubjectID: cfg.Subject.ID,
			PushRate:  cfg.Server.PushRate,
			StaticDir: staticDir,
		}, log)
		go func() {
			serverDone <- srv.ListenAndServe(ctx, cfg.Server.Addr())
		}()
	} else {
		serverDone <- nil
	}

	a := app.New(app.Config{Preview: cfg.ServerEnabled()}, camera, det, trk, hub, commands, log)

	var runErr error
	if withTray {
		t := tray.New(commands, hub, log)
		appDone := make(chan error, 1)
		go func() {
			appDone <- a.Run(ctx)
			t.Quit()
		}()
		t.Run()
		cancel()
		runErr = <-appDone
	} else {
		runErr = a.Run(ctx)
	}

	cancel()
	if err := <-serverDone; err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("server: %w", err))
	}
	return runErr
}

// gripStation lets the companion app start grip windows over HTTP.
func gripStation(cfg *config.Config, db store.Backend, log *slog.Logger) *strength.Station {
	policy, err := strength.ParsePolicy(cfg.Grip.Reduction)
	if err != nil {
		log.Warn("invalid grip reduction, using max", "error", err)
		policy = strength.PolicyMax
	}
	port := cfg.SerialPort(cfg.Grip)
	open := func() (sensor.Source, error) {
		return sensor.Open(port, cfg.Serial.Baud, cfg.Serial.ReadTimeout.Duration)
	}
	return strength.NewStation(strength.NewRunner(db, log), open, cfg.Grip.Window.Duration, policy)
}
