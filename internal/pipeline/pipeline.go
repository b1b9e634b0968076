// Package pipeline connects a frame source to the interest model and fans each
// result out to the configured sinks.
//
// One goroutine captures and converts frames, a second applies them to the
// model. They are joined by a single FIFO channel, so frames reach the model in
// capture order even when frames are dropped under load.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/interest-monitor/internal/interest"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/interest-monitor/internal/logger"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/interest-monitor/internal/metrics"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/interest-monitor/internal/source"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/interest-monitor/pkg/types"
)

// Sink consumes processed frames. Handle is called from the model goroutine
// and must not block for long.
type Sink interface {
	Handle(obs *types.Observation)
}

// SinkFunc adapts a function to Sink
type SinkFunc func(obs *types.Observation)

// Handle calls f(obs)
func (f SinkFunc) Handle(obs *types.Observation) { f(obs) }

// Options configures a Pipeline
type Options struct {
	MaxConsecutiveErrors int     // Tolerated consecutive source errors (0 = first error is fatal)
	DropWhenBusy         bool    // Drop new frames instead of blocking capture when the queue is full
	QueueSize            int     // Capacity of the capture-to-model queue
	Interesting          float64 // Score at which a frame counts as interesting
	SessionID            string  // Identifier stamped on every event (generated if empty)
}

// Pipeline drives a Source through an interest Model
type Pipeline struct {
	opts    Options
	src     source.Source
	model   *interest.Model
	metrics *metrics.Metrics
	sinks   []Sink
}

type captured struct {
	frame  *types.CapturedFrame
	sample *interest.Frame
}

// New creates a pipeline. m may be nil.
func New(opts Options, src source.Source, model *interest.Model, m *metrics.Metrics, sinks ...Sink) *Pipeline {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1
	}
	if opts.MaxConsecutiveErrors < 0 {
		opts.MaxConsecutiveErrors = 0
	}
	if opts.SessionID == "" {
		opts.SessionID = uuid.NewString()
	}
	if m == nil {
		m = metrics.New()
	}
	return &Pipeline{
		opts:    opts,
		src:     src,
		model:   model,
		metrics: m,
		sinks:   sinks,
	}
}

// SessionID returns the identifier stamped on every event
func (p *Pipeline) SessionID() string {
	return p.opts.SessionID
}

// Run processes frames until the source ends, ctx is cancelled, or the source
// fails more than MaxConsecutiveErrors times in a row. Only the last case
// returns an error. Frames already queued when the source ends are processed.
func (p *Pipeline) Run(ctx context.Context) error {
	logger.Info("Pipeline", "Session %s: %dx%d, window=%d, cutoff=%.1f",
		p.opts.SessionID, p.model.Width(), p.model.Height(), p.model.Window(), p.model.Cutoff())

	queue := make(chan captured, p.opts.QueueSize)
	errc := make(chan error, 1)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(queue)
		errc <- p.capture(ctx, queue)
	}()

	p.process(ctx, queue)
	wg.Wait()

	err := <-errc
	logger.Info("Pipeline", "Stopped after %d frames (read=%d dropped=%d errors=%d)",
		p.metrics.FramesProcessed.Load(), p.metrics.FramesRead.Load(),
		p.metrics.FramesDropped.Load(), p.metrics.ReadErrors.Load())
	return err
}

// capture reads frames from the source and queues them for the model
func (p *Pipeline) capture(ctx context.Context, queue chan<- captured) error {
	var frameNum uint64
	consecutive := 0

	for {
		img, err := p.src.Next(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				logger.Info("Capture", "Frame source exhausted")
				return nil
			}
			p.metrics.ReadErrors.Add(1)
			consecutive++
			if consecutive > p.opts.MaxConsecutiveErrors {
				return fmt.Errorf("frame source failed %d times in a row: %w", consecutive, err)
			}
			logger.Warn("Capture", "Read error (%d/%d): %v", consecutive, p.opts.MaxConsecutiveErrors, err)
			continue
		}
		consecutive = 0

		frameNum++
		p.metrics.FramesRead.Add(1)
		item := captured{
			frame: &types.CapturedFrame{
				Image:     img,
				Timestamp: time.Now(),
				FrameNum:  frameNum,
			},
			sample: interest.FrameFromImage(img, p.model.Width(), p.model.Height()),
		}

		if p.opts.DropWhenBusy {
			select {
			case queue <- item:
			default:
				p.metrics.FramesDropped.Add(1)
				logger.Debug("Capture", "Model busy, dropped frame #%d", frameNum)
			}
		} else {
			select {
			case queue <- item:
			case <-ctx.Done():
				return nil
			}
		}
		p.metrics.UpdateQueueUsage(len(queue), cap(queue))
	}
}

// process applies queued frames to the model in order and notifies sinks
func (p *Pipeline) process(ctx context.Context, queue <-chan captured) {
	for item := range queue {
		if ctx.Err() != nil {
			continue
		}
		p.metrics.UpdateQueueUsage(len(queue), cap(queue))

		start := time.Now()
		res := p.model.EstimateInterest(item.sample)
		score := res.Overall()
		p.metrics.UpdateProcessLatency(time.Since(start))

		obs := &types.Observation{
			Frame:    item.frame,
			Interest: res,
			Event: types.InterestEvent{
				SessionID:   p.opts.SessionID,
				FrameNumber: item.frame.FrameNum,
				Timestamp:   float64(item.frame.Timestamp.UnixNano()) / 1e9,
				Score:       score,
				Exceeding:   res.Exceeding(),
				Samples:     res.Original.Len(),
				Window:      p.model.Window(),
				Interesting: score >= p.opts.Interesting,
			},
		}

		p.metrics.FramesProcessed.Add(1)
		p.metrics.ObserveScore(score)
		if obs.Event.Interesting {
			p.metrics.FramesFlagged.Add(1)
		}
		logger.Debug("Model", "Interest: %f", score)

		for _, sink := range p.sinks {
			sink.Handle(obs)
		}
		p.metrics.UpdateFrameLatency(item.frame.Timestamp)
	}
}
