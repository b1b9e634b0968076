package metrics

import (
	"math"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics
type Metrics struct {
	// Frame pipeline counters
	FramesRead      atomic.Uint64
	FramesProcessed atomic.Uint64
	FramesDropped   atomic.Uint64
	FramesFlagged   atomic.Uint64 // Frames at or above the interesting score

	// Error counters
	ReadErrors atomic.Uint64
	DumpErrors atomic.Uint64

	// Latency tracking
	FrameLatencyMs   atomic.Uint64 // Capture-to-result latency of the last frame
	ProcessLatencyMs atomic.Uint64 // Model update latency of the last frame

	// Queue usage between capture and model
	QueueUsage atomic.Uint64 // Percentage (0-100)

	// Web monitor clients
	StreamClients atomic.Uint64

	// Recording state
	RecordingActive       atomic.Uint64 // 0 = inactive, 1 = active
	RecordingBytes        atomic.Uint64
	RecordingFrames       atomic.Uint64
	RecorderFramesDropped atomic.Uint64

	lastScore atomic.Uint64 // math.Float64bits of the latest score

	scores   prometheus.Histogram
	registry *prometheus.Registry
}

// New creates a new Metrics instance with Prometheus collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		scores: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "interest_score",
			Help:    "Distribution of per-frame interest scores",
			Buckets: []float64{0, 0.001, 0.005, 0.01, 0.02, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}

	m.registerPrometheusMetrics()

	return m
}

func (m *Metrics) gauge(name, help string, v *atomic.Uint64) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{Name: name, Help: help},
		func() float64 { return float64(v.Load()) },
	))
}

func (m *Metrics) counter(name, help string, v *atomic.Uint64) {
	m.registry.MustRegister(prometheus.NewCounterFunc(
		prometheus.CounterOpts{Name: name, Help: help},
		func() float64 { return float64(v.Load()) },
	))
}

// registerPrometheusMetrics registers all metrics with Prometheus
func (m *Metrics) registerPrometheusMetrics() {
	m.counter("interest_frames_read_total", "Total frames received from the frame source", &m.FramesRead)
	m.counter("interest_frames_processed_total", "Total frames applied to the interest model", &m.FramesProcessed)
	m.counter("interest_frames_dropped_total", "Total frames dropped because the model was busy", &m.FramesDropped)
	m.counter("interest_frames_flagged_total", "Total frames whose score reached the interesting threshold", &m.FramesFlagged)

	m.counter("interest_read_errors_total", "Total frame source errors", &m.ReadErrors)
	m.counter("interest_dump_errors_total", "Total failed mask dumps", &m.DumpErrors)

	m.gauge("interest_frame_latency_ms", "Capture-to-result latency of the last frame in milliseconds", &m.FrameLatencyMs)
	m.gauge("interest_process_latency_ms", "Model update latency of the last frame in milliseconds", &m.ProcessLatencyMs)
	m.gauge("interest_queue_usage_percent", "Capture queue usage percentage", &m.QueueUsage)
	m.gauge("interest_stream_clients", "Connected web monitor stream clients", &m.StreamClients)

	m.gauge("interest_recording_active", "Recording active (0=inactive, 1=active)", &m.RecordingActive)
	m.gauge("interest_recording_bytes", "Bytes written to the current recording", &m.RecordingBytes)
	m.gauge("interest_recording_frames", "Frames written to the current recording", &m.RecordingFrames)
	m.counter("interest_recorder_frames_dropped_total", "Frames the recorder could not keep up with", &m.RecorderFramesDropped)

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "interest_last_score",
			Help: "Interest score of the most recent frame",
		},
		m.LastScore,
	))
	m.registry.MustRegister(m.scores)
}

// ObserveScore records the score of a processed frame
func (m *Metrics) ObserveScore(score float64) {
	m.lastScore.Store(math.Float64bits(score))
	m.scores.Observe(score)
}

// LastScore returns the most recent score
func (m *Metrics) LastScore() float64 {
	return math.Float64frombits(m.lastScore.Load())
}

// UpdateFrameLatency updates the capture-to-result latency
func (m *Metrics) UpdateFrameLatency(captureTime time.Time) {
	latency := time.Since(captureTime).Milliseconds()
	if latency < 0 {
		latency = 0
	}
	m.FrameLatencyMs.Store(uint64(latency))
}

// UpdateProcessLatency updates the model update latency
func (m *Metrics) UpdateProcessLatency(duration time.Duration) {
	m.ProcessLatencyMs.Store(uint64(duration.Milliseconds()))
}

// UpdateQueueUsage updates the capture queue usage percentage
func (m *Metrics) UpdateQueueUsage(used, capacity int) {
	if capacity > 0 {
		m.QueueUsage.Store(uint64(used * 100 / capacity))
	}
}

// Registry exposes the underlying registry (for tests and extra collectors)
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// NewServer returns an HTTP server exposing /metrics on addr
func (m *Metrics) NewServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return &http.Server{Addr: addr, Handler: mux}
}
