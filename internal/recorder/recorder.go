package recorder

import (
	"bytes"
	"errors"
	"fmt"
	"image/jpeg"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/interest-monitor/internal/logger"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/interest-monitor/internal/metrics"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/interest-monitor/pkg/types"
)

// Options configures a Recorder
type Options struct {
	BasePath     string
	Quality      int           // JPEG quality of recorded frames
	AutoTrigger  bool          // Start/stop recording from interest scores
	TriggerScore float64       // Score that starts an automatic recording
	HoldFrames   int           // Quiet frames before an automatic recording stops
	MaxDuration  time.Duration // Upper bound for one automatic recording (0 = none)
}

// ErrStopping is returned by Start while the previous recording is still draining
var ErrStopping = errors.New("previous recording is still stopping")

// session is one open recording file and its writer goroutine
type session struct {
	file      *os.File
	frameChan chan *types.CapturedFrame
	stop      chan struct{}
	done      chan struct{}
}

// Recorder records frames as a concatenated-JPEG (MJPEG) file
type Recorder struct {
	mu           sync.RWMutex
	opts         Options
	active       *session
	stopping     bool
	filename     string
	recording    bool
	automatic    bool
	frameCount   uint64
	bytesWritten uint64
	startTime    time.Time
	quietFrames  int
	metrics      *metrics.Metrics
	now          func() time.Time
}

// NewRecorder creates a new recorder. m may be nil.
func NewRecorder(opts Options, m *metrics.Metrics) *Recorder {
	if opts.Quality <= 0 || opts.Quality > 100 {
		opts.Quality = 80
	}
	if opts.HoldFrames <= 0 {
		opts.HoldFrames = 1
	}
	return &Recorder{
		opts:    opts,
		metrics: m,
		now:     time.Now,
	}
}

// Start starts recording to a new file
func (r *Recorder) Start() error {
	return r.start(false)
}

func (r *Recorder) start(automatic bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.recording {
		return fmt.Errorf("already recording")
	}
	if r.stopping {
		return ErrStopping
	}

	if err := os.MkdirAll(r.opts.BasePath, 0o755); err != nil {
		return fmt.Errorf("failed to create recording directory: %w", err)
	}

	now := r.now()
	filename := fmt.Sprintf("recording_%s_%03d.mjpeg", now.Format("20060102_150405"), now.Nanosecond()/int(time.Millisecond))
	path := filepath.Join(r.opts.BasePath, filename)

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	s := &session{
		file:      file,
		frameChan: make(chan *types.CapturedFrame, 60),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	r.active = s
	r.filename = filename
	r.recording = true
	r.automatic = automatic
	r.frameCount = 0
	r.bytesWritten = 0
	r.quietFrames = 0
	r.startTime = now

	go r.writeFrames(s)

	logger.Info("Recorder", "Recording started: %s (automatic=%v)", path, automatic)
	r.publishLocked()
	return nil
}

// Stop stops recording
func (r *Recorder) Stop() error {
	r.mu.Lock()

	if !r.recording {
		r.mu.Unlock()
		return fmt.Errorf("not recording")
	}

	s := r.active
	r.active = nil
	r.recording = false
	r.stopping = true
	close(s.stop)
	r.mu.Unlock()

	// Wait for the writer to drain and exit
	<-s.done

	r.mu.Lock()
	defer r.mu.Unlock()
	defer r.publishLocked()
	r.stopping = false

	syncErr := s.file.Sync()
	if err := s.file.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	if syncErr != nil {
		return fmt.Errorf("failed to sync file: %w", syncErr)
	}

	logger.Info("Recorder", "Recording stopped: %s (%d frames, %s)",
		r.filename, r.frameCount, humanize.Bytes(r.bytesWritten))
	return nil
}

// SendFrame queues a frame for the active recording (non-blocking)
func (r *Recorder) SendFrame(frame *types.CapturedFrame) bool {
	// The read lock is held across the send so Stop cannot close the
	// session between the check and the enqueue.
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.active == nil {
		return false
	}

	select {
	case r.active.frameChan <- frame:
		return true
	default:
		if r.metrics != nil {
			r.metrics.RecorderFramesDropped.Add(1)
		}
		return false
	}
}

// Handle drives automatic recording from interest events and feeds frames to
// any active recording.
func (r *Recorder) Handle(obs *types.Observation) {
	if r.opts.AutoTrigger {
		r.trigger(obs.Event.Score)
	}
	r.SendFrame(obs.Frame)
}

func (r *Recorder) trigger(score float64) {
	r.mu.Lock()
	recording, automatic := r.recording, r.automatic
	hot := score >= r.opts.TriggerScore
	stop := false
	if recording && automatic {
		if hot {
			r.quietFrames = 0
		} else {
			r.quietFrames++
		}
		stop = r.quietFrames >= r.opts.HoldFrames ||
			(r.opts.MaxDuration > 0 && r.now().Sub(r.startTime) >= r.opts.MaxDuration)
	}
	r.mu.Unlock()

	switch {
	case stop:
		if err := r.Stop(); err != nil {
			logger.Warn("Recorder", "Automatic stop failed: %v", err)
		}
	case !recording && hot:
		if err := r.start(true); err != nil {
			logger.Warn("Recorder", "Automatic start failed: %v", err)
		}
	}
}

// writeFrames writes the session's frames to its file until the session is stopped
func (r *Recorder) writeFrames(s *session) {
	defer close(s.done)

	for {
		select {
		case frame := <-s.frameChan:
			r.writeFrame(s, frame)
		case <-s.stop:
			// No sends happen after stop is closed; drain what is queued
			for len(s.frameChan) > 0 {
				r.writeFrame(s, <-s.frameChan)
			}
			return
		}
	}
}

// writeFrame encodes and appends a single frame
func (r *Recorder) writeFrame(s *session, frame *types.CapturedFrame) {
	if frame == nil || frame.Image == nil {
		return
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame.Image, &jpeg.Options{Quality: r.opts.Quality}); err != nil {
		logger.Warn("Recorder", "Failed to encode frame #%d: %v", frame.FrameNum, err)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	n, err := s.file.Write(buf.Bytes())
	if err != nil {
		logger.Warn("Recorder", "Failed to write frame #%d: %v", frame.FrameNum, err)
		return
	}

	r.bytesWritten += uint64(n)
	r.frameCount++
	r.publishLocked()
}

func (r *Recorder) publishLocked() {
	if r.metrics == nil {
		return
	}
	if r.recording {
		r.metrics.RecordingActive.Store(1)
	} else {
		r.metrics.RecordingActive.Store(0)
	}
	r.metrics.RecordingBytes.Store(r.bytesWritten)
	r.metrics.RecordingFrames.Store(r.frameCount)
}

// IsRecording returns true if currently recording
func (r *Recorder) IsRecording() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.recording
}

// GetStatus returns the current recording status
func (r *Recorder) GetStatus() RecordingStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var duration time.Duration
	if r.recording {
		duration = r.now().Sub(r.startTime)
	}

	return RecordingStatus{
		Recording:    r.recording,
		Automatic:    r.automatic,
		Filename:     r.filename,
		FrameCount:   r.frameCount,
		BytesWritten: r.bytesWritten,
		DurationMs:   duration.Milliseconds(),
		StartTime:    r.startTime,
	}
}

// Close stops any active recording
func (r *Recorder) Close() error {
	if r.IsRecording() {
		return r.Stop()
	}
	return nil
}

// RecordingStatus holds the current recording status
type RecordingStatus struct {
	Recording    bool      `json:"recording"`
	Automatic    bool      `json:"automatic"`
	Filename     string    `json:"filename"`
	FrameCount   uint64    `json:"frame_count"`
	BytesWritten uint64    `json:"bytes_written"`
	DurationMs   int64     `json:"duration_ms"`
	StartTime    time.Time `json:"start_time"`
}
