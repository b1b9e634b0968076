package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/interest-monitor/internal/config"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/interest-monitor/internal/dump"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/interest-monitor/internal/interest"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/interest-monitor/internal/logger"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/interest-monitor/internal/metrics"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/interest-monitor/internal/pipeline"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/interest-monitor/internal/recorder"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/interest-monitor/internal/source"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/interest-monitor/internal/webmonitor"
)

func main() {
	cfg, err := loadConfig(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Invalid log level: %v", err)
	}
	logger.Init(level, os.Stderr, cfg.LogColor)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Fatal("Main", "%v", err)
	}
	logger.Info("Main", "Stopped")
}

// run wires the frame source, model, sinks and HTTP servers and processes
// frames until the source ends or ctx is cancelled.
func run(ctx context.Context, cfg *config.Config) error {
	logger.Info("Main", "Interest monitor starting...")
	logger.Info("Main", "  Source: %s (every %d frames)", cfg.Source, cfg.FrameStride)
	logger.Info("Main", "  Model: %dx%d, window=%d, cutoff=%.1f", cfg.Width, cfg.Height, cfg.Window, cfg.Cutoff)
	logger.Info("Main", "  HTTP server: %s", cfg.HTTPAddr)
	logger.Info("Main", "  Metrics server: %s", cfg.MetricsAddr)
	logger.Info("Main", "  Recording path: %s (auto=%v)", cfg.Recording.Path, cfg.Recording.AutoTrigger)

	m := metrics.New()

	src, err := source.Open(ctx, cfg.Source)
	if err != nil {
		return fmt.Errorf("failed to open frame source: %w", err)
	}
	defer src.Close()
	src = source.Every(src, cfg.FrameStride)

	model := interest.NewModel(cfg.Width, cfg.Height, cfg.Window,
		interest.WithCutoff(float32(cfg.Cutoff)),
		interest.WithMaskWeight(uint8(cfg.MaskWeight)),
	)

	rec := recorder.NewRecorder(recorder.Options{
		BasePath:     cfg.Recording.Path,
		Quality:      cfg.Recording.Quality,
		AutoTrigger:  cfg.Recording.AutoTrigger,
		TriggerScore: cfg.Recording.TriggerScore,
		HoldFrames:   cfg.Recording.HoldFrames,
		MaxDuration:  cfg.Recording.MaxDuration,
	}, m)
	defer func() {
		if err := rec.Close(); err != nil {
			logger.Warn("Main", "Failed to close recording: %v", err)
		}
	}()

	web := webmonitor.NewServer(webConfig(cfg), rec, m)

	sinks := []pipeline.Sink{rec, web}
	if cfg.Dump.Enabled {
		if err := os.MkdirAll(cfg.Dump.Dir, 0o755); err != nil {
			web.Close()
			return fmt.Errorf("failed to create dump directory: %w", err)
		}
		sinks = append(sinks, dump.NewWriter(cfg.Dump.Dir, cfg.Dump.MinScore, m))
	}

	var servers []*http.Server
	if cfg.HTTPAddr != "" {
		servers = append(servers, &http.Server{Addr: cfg.HTTPAddr, Handler: web.Handler()})
	}
	if cfg.MetricsAddr != "" {
		servers = append(servers, m.NewServer(cfg.MetricsAddr))
	}
	for _, srv := range servers {
		go func(srv *http.Server) {
			logger.Info("Main", "Listening on %s", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Main", "HTTP server %s error: %v", srv.Addr, err)
			}
		}(srv)
	}

	p := pipeline.New(pipeline.Options{
		MaxConsecutiveErrors: cfg.MaxConsecutiveErrors,
		DropWhenBusy:         cfg.DropWhenBusy,
		QueueSize:            cfg.QueueSize,
		Interesting:          cfg.Interesting,
	}, src, model, m, sinks...)
	runErr := p.Run(ctx)

	logger.Info("Main", "Shutting down...")
	web.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Main", "HTTP server %s shutdown: %v", srv.Addr, err)
		}
	}
	return runErr
}

// webConfig maps the web section of cfg onto the monitor's own Config.
func webConfig(cfg *config.Config) webmonitor.Config {
	return webmonitor.Config{
		Addr:           cfg.HTTPAddr,
		AssetsDir:      cfg.Web.AssetsDir,
		StatusInterval: cfg.Web.StatusInterval,
		MaskQuality:    cfg.Web.MaskQuality,
		MaskGain:       cfg.Web.MaskGain,
		HistorySize:    cfg.Web.HistorySize,
	}
}
