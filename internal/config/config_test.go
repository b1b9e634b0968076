package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Width != 1280 || cfg.Height != 720 || cfg.Window != 5 || cfg.Cutoff != 25 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "interest.yaml")
	body := `
source: dir:/tmp/frames
width: 640
height: 480
dump:
  enabled: true
  dir: /tmp/dumps
recording:
  auto_trigger: true
  max_duration: 30s
web:
  assets_dir: /srv/assets
  mask_gain: 5
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Source != "dir:/tmp/frames" || cfg.Width != 640 || cfg.Height != 480 {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Window != 5 || cfg.Cutoff != 25 {
		t.Fatalf("defaults lost: window=%d cutoff=%v", cfg.Window, cfg.Cutoff)
	}
	if !cfg.Dump.Enabled || cfg.Dump.Dir != "/tmp/dumps" {
		t.Fatalf("dump section not applied: %+v", cfg.Dump)
	}
	if !cfg.Recording.AutoTrigger || cfg.Recording.MaxDuration != 30*time.Second {
		t.Fatalf("recording section not applied: %+v", cfg.Recording)
	}
	if cfg.Web.AssetsDir != "/srv/assets" || cfg.Web.MaskGain != 5 {
		t.Fatalf("web section not applied: %+v", cfg.Web)
	}
	if cfg.Web.MaskQuality != 75 || cfg.Web.StatusInterval != 2*time.Second {
		t.Fatalf("web defaults lost: %+v", cfg.Web)
	}
	if cfg.Recording.HoldFrames != 25 {
		t.Fatalf("recording default lost: %+v", cfg.Recording)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("width: [1, 2"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"no source", func(c *Config) { c.Source = "" }, "source"},
		{"zero width", func(c *Config) { c.Width = 0 }, "frame size"},
		{"zero window", func(c *Config) { c.Window = 0 }, "window"},
		{"negative cutoff", func(c *Config) { c.Cutoff = -1 }, "cutoff"},
		{"weight overflow", func(c *Config) { c.MaskWeight = 256 }, "mask_weight"},
		{"score range", func(c *Config) { c.Interesting = 2 }, "interesting"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Validate() = %v, want error mentioning %q", err, tt.want)
			}
		})
	}
}

func TestValidateNormalizes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FrameStride = 0
	cfg.QueueSize = -3
	cfg.Recording.Quality = 0
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.FrameStride != 1 || cfg.QueueSize != 8 || cfg.Recording.Quality != 80 {
		t.Fatalf("not normalized: %+v", cfg)
	}
}
