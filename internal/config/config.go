// Package config loads mockingbird configuration from a YAML file and
// environment overrides. Flag parsing is done in cmd/mockingbird.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default configuration values.
const (
	DefaultListen        = "8080"
	DefaultModelPath     = "models/yolov8n-pose.onnx"
	DefaultPollInterval  = time.Second
	DefaultFrameInterval = time.Second / 60
	DefaultViewSize      = 10
	DefaultSkipFirst     = 1
	DefaultMaxPoses      = 2
)

// ErrInvalid is wrapped by Validate when any field is out of range.
var ErrInvalid = errors.New("config: invalid")

// Config holds all configuration for the monitor.
type Config struct {
	LogLevel  string `yaml:"log_level"`
	Listen    string `yaml:"listen"`
	StaticDir string `yaml:"static_dir"` // dashboard assets, optional

	Camera   CameraConfig   `yaml:"camera"`
	Model    ModelConfig    `yaml:"model"`
	Alert    AlertConfig    `yaml:"alert"`
	Session  SessionConfig  `yaml:"session"`
	EventLog EventLogConfig `yaml:"eventlog"`

	// malformed environment overrides, reported by Validate
	envProblems []string
}

// CameraConfig selects and sizes the capture device.
type CameraConfig struct {
	Device  string `yaml:"device"`
	Width   int    `yaml:"width"`
	Height  int    `yaml:"height"`
	FPS     int    `yaml:"fps"`
	Quality int    `yaml:"quality"`
}

// ModelConfig points at the pose model and its thresholds.
type ModelConfig struct {
	Path       string  `yaml:"path"`
	Confidence float64 `yaml:"confidence"`
	NMS        float64 `yaml:"nms"`
	InputSize  int     `yaml:"input_size"`
	MaxPoses   int     `yaml:"max_poses"`
}

// AlertConfig describes the deterrent playlist.
type AlertConfig struct {
	Tracks       []string      `yaml:"tracks"`
	PollInterval time.Duration `yaml:"poll_interval"`
	Player       string        `yaml:"player"` // "gstreamer" or "mock"
	Sink         string        `yaml:"sink"`   // GStreamer audio sink, default autoaudiosink
}

// SessionConfig tunes the frame loop.
type SessionConfig struct {
	FrameInterval time.Duration `yaml:"frame_interval"`
	CloseOnStop   bool          `yaml:"close_on_stop"`
	Autostart     bool          `yaml:"autostart"`
}

// EventLogConfig controls history size and the dashboard view.
type EventLogConfig struct {
	Capacity   int    `yaml:"capacity"` // 0 = unbounded
	ViewSize   int    `yaml:"view_size"`
	SkipFirst  int    `yaml:"skip_first"`
	TimeLayout string `yaml:"time_layout"`
}

// Default returns sensible defaults.
func Default() Config {
	return Config{
		LogLevel: "info",
		Listen:   DefaultListen,
		Camera: CameraConfig{
			Device:  "0",
			Width:   640,
			Height:  480,
			FPS:     30,
			Quality: 80,
		},
		Model: ModelConfig{
			Path:       DefaultModelPath,
			Confidence: 0.5,
			NMS:        0.45,
			InputSize:  640,
			MaxPoses:   DefaultMaxPoses,
		},
		Alert: AlertConfig{
			PollInterval: DefaultPollInterval,
			Player:       "gstreamer",
		},
		Session: SessionConfig{
			FrameInterval: DefaultFrameInterval,
		},
		EventLog: EventLogConfig{
			ViewSize:   DefaultViewSize,
			SkipFirst:  DefaultSkipFirst,
			TimeLayout: "15:04:05",
		},
	}
}

// Load reads path (if non-empty) over the defaults, then applies
// environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	cfg.LoadEnv()
	return cfg, nil
}

// LoadEnv applies MOCKINGBIRD_* environment overrides.
func (c *Config) LoadEnv() {
	if v := os.Getenv("MOCKINGBIRD_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("MOCKINGBIRD_LISTEN"); v != "" {
		c.Listen = v
	}
	if v := os.Getenv("MOCKINGBIRD_CAMERA"); v != "" {
		c.Camera.Device = v
	}
	if v := os.Getenv("MOCKINGBIRD_MODEL"); v != "" {
		c.Model.Path = v
	}
	if v := os.Getenv("MOCKINGBIRD_TRACKS"); v != "" {
		c.Alert.Tracks = splitList(v)
	}
	if v := os.Getenv("MOCKINGBIRD_PLAYER"); v != "" {
		c.Alert.Player = v
	}
	if v := os.Getenv("MOCKINGBIRD_AUDIO_SINK"); v != "" {
		c.Alert.Sink = v
	}
	if v := os.Getenv("MOCKINGBIRD_STATIC_DIR"); v != "" {
		c.StaticDir = v
	}
	if v := os.Getenv("MOCKINGBIRD_AUTOSTART"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Session.Autostart = b
		} else {
			c.envProblem("MOCKINGBIRD_AUTOSTART", v)
		}
	}
	if v := os.Getenv("MOCKINGBIRD_POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Alert.PollInterval = d
		} else {
			c.envProblem("MOCKINGBIRD_POLL_INTERVAL", v)
		}
	}
	if v := os.Getenv("MOCKINGBIRD_SKIP_FIRST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.EventLog.SkipFirst = n
		} else {
			c.envProblem("MOCKINGBIRD_SKIP_FIRST", v)
		}
	}
}

func (c *Config) envProblem(name, value string) {
	c.envProblems = append(c.envProblems, fmt.Sprintf("%s: cannot parse %q", name, value))
}

// Validate checks that values are within range. All problems are reported
// in one error.
func (c *Config) Validate() error {
	problems := append([]string(nil), c.envProblems...)

	if c.Listen == "" {
		problems = append(problems, "listen must be set")
	}
	if c.Camera.Device == "" {
		problems = append(problems, "camera.device must be set")
	}
	if c.Model.Path == "" {
		problems = append(problems, "model.path must be set")
	}
	if c.Model.Confidence <= 0 || c.Model.Confidence > 1 {
		problems = append(problems, "model.confidence must be in (0, 1]")
	}
	if c.Model.NMS <= 0 || c.Model.NMS > 1 {
		problems = append(problems, "model.nms must be in (0, 1]")
	}
	if c.Model.MaxPoses < 1 {
		problems = append(problems, "model.max_poses must be at least 1")
	}
	if c.Alert.PollInterval <= 0 {
		problems = append(problems, "alert.poll_interval must be positive")
	}
	switch c.Alert.Player {
	case "gstreamer", "mock":
	default:
		problems = append(problems, "alert.player must be gstreamer or mock")
	}
	if c.Session.FrameInterval <= 0 {
		problems = append(problems, "session.frame_interval must be positive")
	}
	if c.EventLog.Capacity < 0 {
		problems = append(problems, "eventlog.capacity must not be negative")
	}
	if c.EventLog.ViewSize < 1 {
		problems = append(problems, "eventlog.view_size must be at least 1")
	}
	if c.EventLog.SkipFirst < 0 {
		problems = append(problems, "eventlog.skip_first must not be negative")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
