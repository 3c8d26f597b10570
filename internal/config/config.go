// Package config loads ptrack settings from YAML or TOML with PTRACK_*
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// ErrNoSubject is returned by RequireSubject when no subject id is configured.
var ErrNoSubject = errors.New("subject.id is required")

type Config struct {
	Subject  SubjectConfig  `yaml:"subject" toml:"subject"`
	Camera   CameraConfig   `yaml:"camera" toml:"camera"`
	Detector DetectorConfig `yaml:"detector" toml:"detector"`
	Database DatabaseConfig `yaml:"database" toml:"database"`
	Server   ServerConfig   `yaml:"server" toml:"server"`
	Serial   SerialConfig   `yaml:"serial" toml:"serial"`
	Grip     StrengthConfig `yaml:"grip" toml:"grip"`
	Pinch    StrengthConfig `yaml:"pinch" toml:"pinch"`
	Tracker  TrackerConfig  `yaml:"tracker" toml:"tracker"`
}

type SubjectConfig struct {
	ID         string `yaml:"id" toml:"id"`
	Handedness string `yaml:"handedness" toml:"handedness"`
}

type CameraConfig struct {
	Device int   `yaml:"device" toml:"device"`
	Width  int   `yaml:"width" toml:"width"`
	Height int   `yaml:"height" toml:"height"`
	FPS    int   `yaml:"fps" toml:"fps"`
	Mirror *bool `yaml:"mirror" toml:"mirror"`
}

type DetectorConfig struct {
	Script                string   `yaml:"script" toml:"script"`
	Python                string   `yaml:"python" toml:"python"`
	MinConfidence         float64  `yaml:"min_confidence" toml:"min_confidence"`
	MinTrackingConfidence float64  `yaml:"min_tracking_confidence" toml:"min_tracking_confidence"`
	IdleTimeout           Duration `yaml:"idle_timeout" toml:"idle_timeout"`
}

type DatabaseConfig struct {
	// Driver is "sqlite" (default) or "postgres".
	Driver   string `yaml:"driver" toml:"driver"`
	Path     string `yaml:"path" toml:"path"`
	URL      string `yaml:"url" toml:"url"`
	Host     string `yaml:"host" toml:"host"`
	Port     int    `yaml:"port" toml:"port"`
	Name     string `yaml:"name" toml:"name"`
	User     string `yaml:"user" toml:"user"`
	Password string `yaml:"password" toml:"password"`
	SSLMode  string `yaml:"sslmode" toml:"sslmode"`
}

type ServerConfig struct {
	Host    string `yaml:"host" toml:"host"`
	Port    int    `yaml:"port" toml:"port"`
	Enabled *bool  `yaml:"enabled" toml:"enabled"`
	// PushRate is how many snapshots per second each WebSocket client receives.
	PushRate int `yaml:"push_rate" toml:"push_rate"`
}

type SerialConfig struct {
	Port        string   `yaml:"port" toml:"port"`
	Baud        int      `yaml:"baud" toml:"baud"`
	ReadTimeout Duration `yaml:"read_timeout" toml:"read_timeout"`
}

type StrengthConfig struct {
	// Port overrides serial.port for this program.
	Port      string   `yaml:"port" toml:"port"`
	Window    Duration `yaml:"window" toml:"window"`
	Reduction string   `yaml:"reduction" toml:"reduction"`
}

type TrackerConfig struct {
	Direction      string   `yaml:"direction" toml:"direction"`
	PersistTimeout Duration `yaml:"persist_timeout" toml:"persist_timeout"`
	Bell           *bool    `yaml:"bell" toml:"bell"`
}

// Duration is a time.Duration written as a Go duration string ("10s").
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.UnmarshalText([]byte(node.Value))
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the settings used when no config file is given.
func Default() *Config {
	return &Config{
		Subject: SubjectConfig{Handedness: "left"},
		Camera:  CameraConfig{Width: 640, Height: 480, FPS: 30},
		Detector: DetectorConfig{
			MinConfidence:         0.4,
			MinTrackingConfidence: 0.25,
			IdleTimeout:           Duration{30 * time.Second},
		},
		Database: DatabaseConfig{
			Driver:  "sqlite",
			Path:    DefaultDatabasePath(),
			Port:    5432,
			SSLMode: "disable",
		},
		Server: ServerConfig{Host: "localhost", Port: 8765, PushRate: 30},
		Serial: SerialConfig{Port: DefaultSerialPort, Baud: 9600, ReadTimeout: Duration{500 * time.Millisecond}},
		Grip:   StrengthConfig{Window: Duration{10 * time.Second}, Reduction: "max"},
		Pinch:  StrengthConfig{Window: Duration{10 * time.Second}, Reduction: "max"},
		Tracker: TrackerConfig{
			Direction:      "forward",
			PersistTimeout: Duration{5 * time.Second},
		},
	}
}

// DefaultSerialPort is the usual device name of a USB serial adapter on Linux.
const DefaultSerialPort = "/dev/ttyUSB0"

// DefaultDatabasePath returns ~/.ptrack/ptrack.db.
func DefaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "ptrack.db"
	}
	return filepath.Join(home, ".ptrack", "ptrack.db")
}

// Load reads config from path, then applies environment variable overrides.
// Files ending in .toml are parsed as TOML, everything else as YAML. An empty
// path skips the file and uses defaults.
//
// Env vars use the prefix PTRACK_:
//
//	PTRACK_SUBJECT_ID, PTRACK_HANDEDNESS, PTRACK_CAMERA_DEVICE,
//	PTRACK_DB_DRIVER, PTRACK_DB_PATH, PTRACK_DB_DSN, PTRACK_DB_HOST,
//	PTRACK_DB_PORT, PTRACK_DB_NAME, PTRACK_DB_USER, PTRACK_DB_PASSWORD,
//	PTRACK_DB_SSLMODE, PTRACK_SERVER_HOST, PTRACK_SERVER_PORT,
//	PTRACK_SERIAL_PORT, PTRACK_SERIAL_BAUD
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := decode(path, data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		_, err := toml.Decode(string(data), cfg)
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func applyEnvOverrides(cfg *Config) {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	setString("PTRACK_SUBJECT_ID", &cfg.Subject.ID)
	setString("PTRACK_HANDEDNESS", &cfg.Subject.Handedness)
	setInt("PTRACK_CAMERA_DEVICE", &cfg.Camera.Device)
	setString("PTRACK_DB_DRIVER", &cfg.Database.Driver)
	setString("PTRACK_DB_PATH", &cfg.Database.Path)
	setString("PTRACK_DB_DSN", &cfg.Database.URL)
	setString("PTRACK_DB_HOST", &cfg.Database.Host)
	setInt("PTRACK_DB_PORT", &cfg.Database.Port)
	setString("PTRACK_DB_NAME", &cfg.Database.Name)
	setString("PTRACK_DB_USER", &cfg.Database.User)
	setString("PTRACK_DB_PASSWORD", &cfg.Database.Password)
	setString("PTRACK_DB_SSLMODE", &cfg.Database.SSLMode)
	setString("PTRACK_SERVER_HOST", &cfg.Server.Host)
	setInt("PTRACK_SERVER_PORT", &cfg.Server.Port)
	setString("PTRACK_SERIAL_PORT", &cfg.Serial.Port)
	setInt("PTRACK_SERIAL_BAUD", &cfg.Serial.Baud)
}

func (c *Config) validate() error {
	switch strings.ToLower(c.Subject.Handedness) {
	case "left", "right":
	default:
		return fmt.Errorf("subject.handedness must be left or right, got %q", c.Subject.Handedness)
	}
	switch strings.ToLower(c.Tracker.Direction) {
	case "forward", "backward":
	default:
		return fmt.Errorf("tracker.direction must be forward or backward, got %q", c.Tracker.Direction)
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for sqlite")
		}
	case "postgres":
		if c.Database.URL == "" {
			if c.Database.Host == "" {
				return fmt.Errorf("database.host is required for postgres")
			}
			if c.Database.Name == "" {
				return fmt.Errorf("database.name is required for postgres")
			}
			if c.Database.User == "" {
				return fmt.Errorf("database.user is required for postgres")
			}
		}
	default:
		return fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Server.PushRate <= 0 {
		return fmt.Errorf("server.push_rate must be positive")
	}
	if c.Camera.FPS <= 0 {
		return fmt.Errorf("camera.fps must be positive")
	}
	if c.Serial.Baud <= 0 {
		return fmt.Errorf("serial.baud must be positive")
	}
	if c.Serial.ReadTimeout.Duration <= 0 {
		return fmt.Errorf("serial.read_timeout must be positive")
	}
	for name, s := range map[string]StrengthConfig{"grip": c.Grip, "pinch": c.Pinch} {
		if s.Window.Duration <= 0 {
			return fmt.Errorf("%s.window must be positive", name)
		}
	}
	return nil
}

// RequireSubject checks that a subject id is set and is a UUID.
func (c *Config) RequireSubject() error {
	if c.Subject.ID == "" {
		return ErrNoSubject
	}
	if _, err := uuid.Parse(c.Subject.ID); err != nil {
		return fmt.Errorf("subject.id %q is not a UUID: %w", c.Subject.ID, err)
	}
	return nil
}

// DSN returns a PostgreSQL connection string. An explicit url wins.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// Addr returns the host:port the HTTP server listens on.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// ServerEnabled reports whether the live server should run (default true).
func (c *Config) ServerEnabled() bool {
	return c.Server.Enabled == nil || *c.Server.Enabled
}

// CameraMirror reports whether frames are mirrored (default true).
func (c *Config) CameraMirror() bool {
	return c.Camera.Mirror == nil || *c.Camera.Mirror
}

// BellEnabled reports whether a counted rep rings the terminal bell (default true).
func (c *Config) BellEnabled() bool {
	return c.Tracker.Bell == nil || *c.Tracker.Bell
}

// SerialPort returns the port for a strength program, falling back to serial.port.
func (c *Config) SerialPort(s StrengthConfig) string {
	if s.Port != "" {
		return s.Port
	}
	return c.Serial.Port
}
