package webmonitor

import (
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/interest-monitor/internal/recorder"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/interest-monitor/pkg/types"
)

// MonitorStats is the "monitor" object of /api/status.
type MonitorStats struct {
	FramesProcessed uint64  `json:"frames_processed"`
	FramesFlagged   uint64  `json:"frames_flagged"`
	CurrentFPS      float64 `json:"current_fps"`
	LastScore       float64 `json:"last_score"`
	UptimeSeconds   float64 `json:"uptime_seconds"`
	StreamClients   int     `json:"stream_clients"`
}

// StatusPayload is the body of /api/status and /api/status/stream.
type StatusPayload struct {
	Monitor         MonitorStats              `json:"monitor"`
	LatestEvent     *types.InterestEvent      `json:"latest_event"`
	InterestHistory []types.InterestEvent     `json:"interest_history"`
	Recording       *recorder.RecordingStatus `json:"recording,omitempty"`
	Timestamp       float64                   `json:"timestamp"`
}

// RecordingController is the subset of the recorder the HTTP API drives.
type RecordingController interface {
	Start() error
	Stop() error
	IsRecording() bool
	GetStatus() recorder.RecordingStatus
}
