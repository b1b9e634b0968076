package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the runtime configuration for the interest monitor.
// Fields may be loaded from a YAML file and overridden by command-line flags.
type Config struct {
	// Source is the frame source identifier, e.g. "dir:./frames",
	// "http://cam:8080/stream", "shm:/pet_camera_mjpeg_frame" or "screen:200ms".
	Source      string `yaml:"source"`
	FrameStride int    `yaml:"frame_stride"`

	// Model parameters
	Width      int     `yaml:"width"`
	Height     int     `yaml:"height"`
	Window     int     `yaml:"window"`
	Cutoff     float64 `yaml:"cutoff"`
	MaskWeight int     `yaml:"mask_weight"`

	// Interesting is the score at or above which a frame is flagged
	Interesting float64 `yaml:"interesting"`

	// Pipeline behavior
	MaxConsecutiveErrors int  `yaml:"max_consecutive_errors"`
	DropWhenBusy         bool `yaml:"drop_when_busy"`
	QueueSize            int  `yaml:"queue_size"`

	HTTPAddr    string `yaml:"http_addr"`
	MetricsAddr string `yaml:"metrics_addr"`

	Web       WebConfig       `yaml:"web"`
	Dump      DumpConfig      `yaml:"dump"`
	Recording RecordingConfig `yaml:"recording"`

	LogLevel string `yaml:"log_level"`
	LogColor bool   `yaml:"log_color"`
}

// WebConfig tunes the web monitor served on HTTPAddr
type WebConfig struct {
	AssetsDir      string        `yaml:"assets_dir"`
	StatusInterval time.Duration `yaml:"status_interval"`
	MaskQuality    int           `yaml:"mask_quality"`
	MaskGain       int           `yaml:"mask_gain"`
	HistorySize    int           `yaml:"history_size"`
}

// DumpConfig controls writing threshold masks to disk for debugging
type DumpConfig struct {
	Enabled  bool    `yaml:"enabled"`
	Dir      string  `yaml:"dir"`
	MinScore float64 `yaml:"min_score"`
}

// RecordingConfig controls interest-triggered recording
type RecordingConfig struct {
	Path         string        `yaml:"path"`
	AutoTrigger  bool          `yaml:"auto_trigger"`
	TriggerScore float64       `yaml:"trigger_score"`
	HoldFrames   int           `yaml:"hold_frames"`
	Quality      int           `yaml:"quality"`
	MaxDuration  time.Duration `yaml:"max_duration"`
}

// DefaultConfig returns the stock camera configuration:
// 1280x720 frames, a 5-frame window, every 5th captured frame.
func DefaultConfig() *Config {
	return &Config{
		Source:               "shm:/pet_camera_mjpeg_frame",
		FrameStride:          5,
		Width:                1280,
		Height:               720,
		Window:               5,
		Cutoff:               25.0,
		MaskWeight:           10,
		Interesting:          0.01,
		MaxConsecutiveErrors: 10,
		DropWhenBusy:         true,
		QueueSize:            8,
		HTTPAddr:             ":8082",
		MetricsAddr:          ":9091",
		Web: WebConfig{
			StatusInterval: 2 * time.Second,
			MaskQuality:    75,
			MaskGain:       25,
			HistorySize:    8,
		},
		Dump: DumpConfig{
			Enabled:  false,
			Dir:      ".",
			MinScore: 0,
		},
		Recording: RecordingConfig{
			Path:         "./recordings",
			AutoTrigger:  false,
			TriggerScore: 0.02,
			HoldFrames:   25,
			Quality:      80,
			MaxDuration:  5 * time.Minute,
		},
		LogLevel: "info",
		LogColor: true,
	}
}

// Validate rejects values the model cannot run with and normalizes the rest.
func (c *Config) Validate() error {
	var errs []error
	if c.Source == "" {
		errs = append(errs, errors.New("source is required"))
	}
	if c.Width <= 0 || c.Height <= 0 {
		errs = append(errs, fmt.Errorf("frame size must be positive, got %dx%d", c.Width, c.Height))
	}
	if c.Window <= 0 {
		errs = append(errs, fmt.Errorf("window must be positive, got %d", c.Window))
	}
	if c.Cutoff < 0 {
		errs = append(errs, fmt.Errorf("cutoff must not be negative, got %v", c.Cutoff))
	}
	if c.MaskWeight <= 0 || c.MaskWeight > 255 {
		errs = append(errs, fmt.Errorf("mask_weight must be in 1..255, got %d", c.MaskWeight))
	}
	if c.Interesting < 0 || c.Interesting > 1 {
		errs = append(errs, fmt.Errorf("interesting must be in [0,1], got %v", c.Interesting))
	}
	if c.MaxConsecutiveErrors < 0 {
		errs = append(errs, fmt.Errorf("max_consecutive_errors must not be negative, got %d", c.MaxConsecutiveErrors))
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	if c.FrameStride <= 0 {
		c.FrameStride = 1
	}
	if c.QueueSize <= 0 {
		c.QueueSize = DefaultConfig().QueueSize
	}
	if c.Dump.Dir == "" {
		c.Dump.Dir = "."
	}
	if c.Recording.Path == "" {
		c.Recording.Path = DefaultConfig().Recording.Path
	}
	if c.Recording.HoldFrames <= 0 {
		c.Recording.HoldFrames = DefaultConfig().Recording.HoldFrames
	}
	if c.Recording.Quality <= 0 || c.Recording.Quality > 100 {
		c.Recording.Quality = DefaultConfig().Recording.Quality
	}
	return nil
}

// Load reads a YAML configuration file on top of DefaultConfig, so keys absent
// from the file keep their defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}
