package webmonitor

import "time"

// Config defines the runtime configuration for the web monitor server.
type Config struct {
	Addr           string
	AssetsDir      string        // Optional directory overriding the built-in /assets/ files
	StatusInterval time.Duration // Period of /api/status/stream events
	MaskQuality    int           // JPEG quality of /stream/mask frames
	MaskGain       int           // Multiplier applied to mask cells for display
	HistorySize    int           // Interesting events kept for /api/status
}

// DefaultConfig returns the default monitor configuration.
func DefaultConfig() Config {
	return Config{
		Addr:           ":8082",
		StatusInterval: 2 * time.Second,
		MaskQuality:    75,
		MaskGain:       25,
		HistorySize:    8,
	}
}
