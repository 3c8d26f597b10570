// Command ptrack-pinch records one pinch window from the index and middle FSRs.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ayusman/ptrack/internal/config"
	"github.com/ayusman/ptrack/internal/console"
	"github.com/ayusman/ptrack/internal/database"
	"github.com/ayusman/ptrack/internal/sensor"
	"github.com/ayusman/ptrack/internal/strength"
)

func main() {
	configPath := flag.String("config", "", "path to config file (YAML, or TOML by extension)")
	subject := flag.String("subject", "", "subject UUID (overrides subject.id)")
	dummy := flag.Bool("dummy", false, "use generated readings instead of the serial port")
	plain := flag.Bool("plain", false, "print plain lines instead of the interactive view")
	flag.Parse()

	usePlain := *plain || !console.IsTerminal(os.Stdout)

	// The interactive view owns the terminal; only errors get through.
	level := slog.LevelInfo
	if !usePlain {
		level = slog.LevelError
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := run(log, *configPath, *subject, *dummy, usePlain); err != nil {
		log.Error("pinch session failed", "error", err)
		fmt.Fprintln(os.Stderr, "ptrack-pinch:", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger, configPath, subject string, dummy, plain bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if subject != "" {
		cfg.Subject.ID = subject
	}
	if err := cfg.RequireSubject(); err != nil {
		return err
	}
	policy, err := strength.ParsePolicy(cfg.Pinch.Reduction)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		log.Warn("database unavailable, result will not be saved", "error", err)
	} else {
		defer db.Close()
	}

	var src sensor.Source
	if dummy {
		src = sensor.NewDummy(sensor.KindPinch, 100*time.Millisecond, 0)
	} else {
		port, err := sensor.Open(cfg.SerialPort(cfg.Pinch), cfg.Serial.Baud, cfg.Serial.ReadTimeout.Duration)
		if err != nil {
			return err
		}
		src = port
	}
	defer src.Close()

	runner := strength.NewRunner(db, log)
	session := strength.Session{
		SubjectID: cfg.Subject.ID,
		Window:    cfg.Pinch.Window.Duration,
		Policy:    policy,
	}

	return console.Run(ctx, console.Session{
		Title:  "Pinch",
		Window: session.Window,
		Plain:  plain,
	}, func(ctx context.Context, onReading func(strength.Reading)) (string, error) {
		runner.OnReading = onReading
		res, err := runner.PinchSession(ctx, src, session)
		if errors.Is(err, strength.ErrNoData) {
			return "no samples collected", nil
		}
		if res == nil {
			return "", err
		}
		if err != nil {
			log.Error("pinch session not saved", "error", err)
		}
		return console.FormatPinch(res), nil
	})
}
