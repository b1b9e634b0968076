package main

import (
	"errors"
	"flag"
	"fmt"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/interest-monitor/internal/config"
)

// bindFlags registers every configurable field of cfg on fs.
func bindFlags(fs *flag.FlagSet, cfg *config.Config) {
	fs.StringVar(&cfg.Source, "source", cfg.Source, "Frame source (dir:<path>, http://..., shm:<name>, screen[:interval])")
	fs.IntVar(&cfg.FrameStride, "stride", cfg.FrameStride, "Keep every n-th frame from the source")

	fs.IntVar(&cfg.Width, "width", cfg.Width, "Model frame width")
	fs.IntVar(&cfg.Height, "height", cfg.Height, "Model frame height")
	fs.IntVar(&cfg.Window, "window", cfg.Window, "Frames averaged into the background")
	fs.Float64Var(&cfg.Cutoff, "cutoff", cfg.Cutoff, "Brightening above the mean that marks a sample (0-255)")
	fs.IntVar(&cfg.MaskWeight, "mask-weight", cfg.MaskWeight, "Value written into set mask cells")
	fs.Float64Var(&cfg.Interesting, "interesting", cfg.Interesting, "Score at which a frame is flagged as interesting")

	fs.IntVar(&cfg.MaxConsecutiveErrors, "max-errors", cfg.MaxConsecutiveErrors, "Consecutive source errors tolerated (0 = first error is fatal)")
	fs.BoolVar(&cfg.DropWhenBusy, "drop-when-busy", cfg.DropWhenBusy, "Drop frames instead of blocking capture when the model falls behind")
	fs.IntVar(&cfg.QueueSize, "queue", cfg.QueueSize, "Capture queue size")

	fs.StringVar(&cfg.HTTPAddr, "http", cfg.HTTPAddr, "Web monitor address (empty disables)")
	fs.StringVar(&cfg.MetricsAddr, "metrics", cfg.MetricsAddr, "Metrics server address (empty disables)")

	fs.StringVar(&cfg.Web.AssetsDir, "web-assets", cfg.Web.AssetsDir, "Directory overriding the built-in /assets/ files")
	fs.DurationVar(&cfg.Web.StatusInterval, "web-status-interval", cfg.Web.StatusInterval, "Period of /api/status/stream events")
	fs.IntVar(&cfg.Web.MaskQuality, "web-mask-quality", cfg.Web.MaskQuality, "JPEG quality of /stream/mask frames")
	fs.IntVar(&cfg.Web.MaskGain, "web-mask-gain", cfg.Web.MaskGain, "Multiplier applied to mask cells for display")
	fs.IntVar(&cfg.Web.HistorySize, "web-history", cfg.Web.HistorySize, "Interesting events kept for /api/status")

	fs.BoolVar(&cfg.Dump.Enabled, "dump", cfg.Dump.Enabled, "Write threshold masks to disk")
	fs.StringVar(&cfg.Dump.Dir, "dump-dir", cfg.Dump.Dir, "Mask dump directory")
	fs.Float64Var(&cfg.Dump.MinScore, "dump-min-score", cfg.Dump.MinScore, "Minimum score for a mask to be dumped")

	fs.StringVar(&cfg.Recording.Path, "record-path", cfg.Recording.Path, "Recording output path")
	fs.BoolVar(&cfg.Recording.AutoTrigger, "record-auto", cfg.Recording.AutoTrigger, "Start and stop recordings from interest scores")
	fs.Float64Var(&cfg.Recording.TriggerScore, "record-trigger", cfg.Recording.TriggerScore, "Score that starts an automatic recording")
	fs.IntVar(&cfg.Recording.HoldFrames, "record-hold", cfg.Recording.HoldFrames, "Quiet frames before an automatic recording stops")
	fs.IntVar(&cfg.Recording.Quality, "record-quality", cfg.Recording.Quality, "JPEG quality of recorded frames")
	fs.DurationVar(&cfg.Recording.MaxDuration, "record-max", cfg.Recording.MaxDuration, "Maximum length of an automatic recording (0 = unlimited)")

	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error, silent)")
	fs.BoolVar(&cfg.LogColor, "log-color", cfg.LogColor, "Enable colored log output")
}

// loadConfig parses args into a validated Config. Values from -config are
// applied first; flags given explicitly on the command line win over the file.
func loadConfig(args []string) (*config.Config, error) {
	fs := flag.NewFlagSet("interestd", flag.ContinueOnError)
	cfg := config.DefaultConfig()
	configPath := fs.String("config", "", "YAML configuration file")
	bindFlags(fs, cfg)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	if *configPath != "" {
		fileCfg, err := config.Load(*configPath)
		if err != nil {
			return nil, err
		}
		overrides := flag.NewFlagSet("overrides", flag.ContinueOnError)
		bindFlags(overrides, fileCfg)

		var errs []error
		fs.Visit(func(f *flag.Flag) {
			if f.Name == "config" {
				return
			}
			if err := overrides.Set(f.Name, f.Value.String()); err != nil {
				errs = append(errs, err)
			}
		})
		if len(errs) > 0 {
			return nil, errors.Join(errs...)
		}
		cfg = fileCfg
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
