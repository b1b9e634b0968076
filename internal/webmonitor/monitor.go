package webmonitor

import (
	"sync"
	"time"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/interest-monitor/pkg/types"
)

// fpsWindow is the number of recent frame timestamps used for CurrentFPS.
const fpsWindow = 30

// Monitor keeps the latest interest state for the HTTP API.
type Monitor struct {
	startTime   time.Time
	historySize int

	mu            sync.Mutex
	framesSeen    uint64
	framesFlagged uint64
	latestEvent   *types.InterestEvent
	history       []types.InterestEvent
	arrivals      []time.Time
}

// NewMonitor creates a Monitor keeping up to historySize interesting events.
func NewMonitor(historySize int) *Monitor {
	if historySize <= 0 {
		historySize = DefaultConfig().HistorySize
	}
	return &Monitor{
		startTime:   time.Now(),
		historySize: historySize,
	}
}

// Update stores the result of one processed frame.
func (m *Monitor) Update(obs *types.Observation) {
	m.mu.Lock()
	defer m.mu.Unlock()

	event := obs.Event
	m.framesSeen++
	m.latestEvent = &event

	if event.Interesting {
		m.framesFlagged++
		m.history = append([]types.InterestEvent{event}, m.history...)
		if len(m.history) > m.historySize {
			m.history = m.history[:m.historySize]
		}
	}

	now := time.Now()
	if obs.Frame != nil && !obs.Frame.Timestamp.IsZero() {
		now = obs.Frame.Timestamp
	}
	m.arrivals = append(m.arrivals, now)
	if len(m.arrivals) > fpsWindow {
		m.arrivals = m.arrivals[len(m.arrivals)-fpsWindow:]
	}
}

// Snapshot returns the current stats, latest event, and recent interesting events.
func (m *Monitor) Snapshot() (MonitorStats, *types.InterestEvent, []types.InterestEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := MonitorStats{
		FramesProcessed: m.framesSeen,
		FramesFlagged:   m.framesFlagged,
		CurrentFPS:      m.currentFPSLocked(),
		UptimeSeconds:   time.Since(m.startTime).Seconds(),
	}

	var latest *types.InterestEvent
	if m.latestEvent != nil {
		ev := *m.latestEvent
		latest = &ev
		stats.LastScore = ev.Score
	}

	history := make([]types.InterestEvent, len(m.history))
	copy(history, m.history)

	return stats, latest, history
}

func (m *Monitor) currentFPSLocked() float64 {
	if len(m.arrivals) < 2 {
		return 0
	}
	span := m.arrivals[len(m.arrivals)-1].Sub(m.arrivals[0]).Seconds()
	if span <= 0 {
		return 0
	}
	return float64(len(m.arrivals)-1) / span
}
