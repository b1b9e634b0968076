// Package dump writes threshold masks to disk as viewable images for debugging.
package dump

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/interest-monitor/internal/interest"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/interest-monitor/internal/logger"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/interest-monitor/internal/metrics"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/interest-monitor/pkg/types"
)

// Writer renders masks to <dir>/original-<unix-ms>.jpeg
type Writer struct {
	dir      string
	minScore float64
	quality  int
	now      func() time.Time
	metrics  *metrics.Metrics
}

// NewWriter creates a dump writer. Frames scoring below minScore are skipped
// when the writer is used as a pipeline sink. m may be nil.
func NewWriter(dir string, minScore float64, m *metrics.Metrics) *Writer {
	return &Writer{
		dir:      dir,
		minScore: minScore,
		quality:  90,
		now:      time.Now,
		metrics:  m,
	}
}

// EncodeMask renders mask as a JPEG
func EncodeMask(mask *interest.Mask, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, mask.Image(), &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode mask: %w", err)
	}
	return buf.Bytes(), nil
}

// Write renders res.Threshold() and writes it to a file named by the current
// wall-clock time in milliseconds. It returns the path written.
func (w *Writer) Write(res *interest.Interest) (string, error) {
	data, err := EncodeMask(res.Threshold(), w.quality)
	if err != nil {
		return "", err
	}

	name := fmt.Sprintf("original-%d.jpeg", w.now().UnixMilli())
	path := filepath.Join(w.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write dump %s: %w", path, err)
	}
	return path, nil
}

// Handle dumps observations whose score reaches the configured minimum
func (w *Writer) Handle(obs *types.Observation) {
	if obs.Event.Score < w.minScore {
		return
	}
	path, err := w.Write(obs.Interest)
	if err != nil {
		if w.metrics != nil {
			w.metrics.DumpErrors.Add(1)
		}
		logger.Error("Dump", "Frame #%d: %v", obs.Event.FrameNumber, err)
		return
	}
	if logger.Enabled(logger.DEBUG) {
		if info, err := os.Stat(path); err == nil {
			logger.Debug("Dump", "Frame #%d -> %s (%s)", obs.Event.FrameNumber, path, humanize.Bytes(uint64(info.Size())))
		}
	}
}
