package types

import (
	"image"
	"time"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/interest-monitor/internal/interest"
)

// CapturedFrame is one decoded frame as delivered by a frame source
type CapturedFrame struct {
	Image     image.Image // Decoded image, any size
	Timestamp time.Time   // Time the frame was received
	FrameNum  uint64      // Sequential frame number (1-based)
}

// InterestEvent is the per-frame summary published to consumers
type InterestEvent struct {
	SessionID   string  `json:"session_id"`
	FrameNumber uint64  `json:"frame_number"`
	Timestamp   float64 `json:"timestamp"`
	Score       float64 `json:"score"`
	Exceeding   int     `json:"exceeding"`
	Samples     int     `json:"samples"`
	Window      int     `json:"window"`
	Interesting bool    `json:"interesting"`
}

// Observation bundles everything a sink may need for one processed frame.
// Interest and Frame are shared read-only between sinks.
type Observation struct {
	Frame    *CapturedFrame
	Interest *interest.Interest
	Event    InterestEvent
}
