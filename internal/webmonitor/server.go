package webmonitor

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/interest-monitor/internal/metrics"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/interest-monitor/pkg/types"
)

// Server serves the interest monitor endpoints and receives processed frames
// as a pipeline sink.
type Server struct {
	cfg      Config
	monitor  *Monitor
	recorder RecordingController
	metrics  *metrics.Metrics
	events   *EventBroadcaster
	masks    *MaskBroadcaster
	status   *StatusBroadcaster
}

// NewServer returns a configured monitor server. rec and m may be nil.
func NewServer(cfg Config, rec RecordingController, m *metrics.Metrics) *Server {
	def := DefaultConfig()
	if cfg.StatusInterval <= 0 {
		cfg.StatusInterval = def.StatusInterval
	}
	if cfg.MaskQuality <= 0 || cfg.MaskQuality > 100 {
		cfg.MaskQuality = def.MaskQuality
	}
	if cfg.MaskGain <= 0 {
		cfg.MaskGain = def.MaskGain
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = def.HistorySize
	}

	s := &Server{
		cfg:      cfg,
		monitor:  NewMonitor(cfg.HistorySize),
		recorder: rec,
		metrics:  m,
		events:   NewEventBroadcaster(),
		masks:    NewMaskBroadcaster(cfg.MaskQuality, cfg.MaskGain),
	}
	s.status = NewStatusBroadcaster(s.statusPayload, cfg.StatusInterval)
	s.status.Start()
	return s
}

// Handle records a processed frame and fans it out to stream clients.
func (s *Server) Handle(obs *types.Observation) {
	s.monitor.Update(obs)
	s.events.Publish(obs.Event)
	s.masks.Publish(obs.Interest)
	if s.metrics != nil {
		s.metrics.StreamClients.Store(uint64(s.clientCount()))
	}
}

// Close stops background work and disconnects every streaming client.
func (s *Server) Close() {
	s.status.Stop()
	s.events.close()
	s.masks.close()
}

func (s *Server) clientCount() int {
	return s.events.Clients() + s.masks.Clients() + s.status.Clients()
}

// Handler exposes the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.handleIndex)
	mux.Handle("/assets/", http.StripPrefix("/assets/", newAssetHandler(s.cfg.AssetsDir)))
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/status/stream", s.handleStatusStream)
	mux.HandleFunc("/api/interest/stream", s.handleInterestStream)
	mux.HandleFunc("/stream/mask", s.handleMaskStream)
	mux.HandleFunc("/api/recording/start", s.handleRecordingStart)
	mux.HandleFunc("/api/recording/stop", s.handleRecordingStop)
	mux.HandleFunc("/api/recording/status", s.handleRecordingStatus)

	return mux
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(indexHTML))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats, _, _ := s.monitor.Snapshot()
	recording := false
	if s.recorder != nil {
		recording = s.recorder.IsRecording()
	}
	writeJSON(w, map[string]any{
		"status":           "ok",
		"frames_processed": stats.FramesProcessed,
		"stream_clients":   s.clientCount(),
		"recording":        recording,
	})
}

func (s *Server) statusPayload() StatusPayload {
	stats, latest, history := s.monitor.Snapshot()
	stats.StreamClients = s.clientCount()

	payload := StatusPayload{
		Monitor:         stats,
		LatestEvent:     latest,
		InterestHistory: history,
		Timestamp:       float64(time.Now().UnixNano()) / 1e9,
	}
	if s.recorder != nil {
		status := s.recorder.GetStatus()
		payload.Recording = &status
	}
	return payload
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.statusPayload())
}

func (s *Server) handleStatusStream(w http.ResponseWriter, r *http.Request) {
	id, eventCh := s.status.Subscribe()
	defer s.status.Unsubscribe(id)
	streamEventsFromChannel(w, r, eventCh, wantsProtobuf(r))
}

func (s *Server) handleInterestStream(w http.ResponseWriter, r *http.Request) {
	id, eventCh := s.events.Subscribe()
	defer s.events.Unsubscribe(id)
	streamEventsFromChannel(w, r, eventCh, wantsProtobuf(r))
}

func (s *Server) handleMaskStream(w http.ResponseWriter, r *http.Request) {
	id, frameCh := s.masks.Subscribe()
	defer s.masks.Unsubscribe(id)
	streamMJPEGFromChannel(w, r, frameCh)
}

// wantsProtobuf reports whether the client asked for protobuf via Accept.
func wantsProtobuf(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "application/protobuf") ||
		strings.Contains(accept, "application/x-protobuf")
}

func (s *Server) handleRecordingStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.recorder == nil {
		writeJSONWithStatus(w, map[string]any{"error": "recorder is not configured"}, http.StatusServiceUnavailable)
		return
	}

	if err := s.recorder.Start(); err != nil {
		writeJSONWithStatus(w, map[string]any{"error": err.Error()}, http.StatusBadRequest)
		return
	}

	writeJSON(w, map[string]any{
		"status":     "recording",
		"recording":  s.recorder.GetStatus(),
		"started_at": float64(time.Now().Unix()),
	})
}

func (s *Server) handleRecordingStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.recorder == nil {
		writeJSONWithStatus(w, map[string]any{"error": "recorder is not configured"}, http.StatusServiceUnavailable)
		return
	}

	if err := s.recorder.Stop(); err != nil {
		writeJSONWithStatus(w, map[string]any{"error": err.Error()}, http.StatusBadRequest)
		return
	}

	writeJSON(w, map[string]any{
		"status":     "stopped",
		"recording":  s.recorder.GetStatus(),
		"stopped_at": float64(time.Now().Unix()),
	})
}

func (s *Server) handleRecordingStatus(w http.ResponseWriter, r *http.Request) {
	if s.recorder == nil {
		writeJSONWithStatus(w, map[string]any{"error": "recorder is not configured"}, http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, s.recorder.GetStatus())
}

func writeJSON(w http.ResponseWriter, payload any) {
	writeJSONWithStatus(w, payload, http.StatusOK)
}

func writeJSONWithStatus(w http.ResponseWriter, payload any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		_, _ = fmt.Fprintf(w, `{"error":%q}`, err.Error())
	}
}
