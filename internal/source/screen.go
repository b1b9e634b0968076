package source

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/vova616/screenshot"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/interest-monitor/internal/logger"
)

// defaultScreenInterval matches the 5 fps the camera was configured for
const defaultScreenInterval = 200 * time.Millisecond

// ScreenSource captures the primary display at a fixed interval
type ScreenSource struct {
	interval time.Duration
	ticker   *time.Ticker
	rect     image.Rectangle
}

// NewScreenSource creates a desktop capture source. interval is a Go duration
// string; empty selects 200ms.
func NewScreenSource(interval string) (*ScreenSource, error) {
	d := defaultScreenInterval
	if interval != "" {
		parsed, err := time.ParseDuration(interval)
		if err != nil {
			return nil, fmt.Errorf("invalid screen capture interval %q: %w", interval, err)
		}
		if parsed <= 0 {
			return nil, fmt.Errorf("screen capture interval must be positive, got %s", parsed)
		}
		d = parsed
	}

	rect, err := screenshot.ScreenRect()
	if err != nil {
		return nil, fmt.Errorf("failed to query screen size: %w", err)
	}
	logger.Info("Source", "Capturing screen %dx%d every %s", rect.Dx(), rect.Dy(), d)

	return &ScreenSource{
		interval: d,
		ticker:   time.NewTicker(d),
		rect:     rect,
	}, nil
}

// Next waits for the next tick and grabs the screen
func (s *ScreenSource) Next(ctx context.Context) (image.Image, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.ticker.C:
	}
	img, err := screenshot.CaptureRect(s.rect)
	if err != nil {
		return nil, fmt.Errorf("screen capture failed: %w", err)
	}
	return img, nil
}

// Close stops the capture ticker
func (s *ScreenSource) Close() error {
	s.ticker.Stop()
	return nil
}
