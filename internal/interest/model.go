// Package interest implements the temporal background model: a fixed-size ring
// of recent frames, their per-pixel mean, and the one-sided brightening test
// that turns (frame, mean) into a change mask and a scalar interest score.
package interest

import "fmt"

const (
	// DefaultCutoff is the brightening (0-255 scale) a sample must exceed.
	DefaultCutoff float32 = 25.0
	// DefaultMaskWeight is the value written into set mask cells.
	DefaultMaskWeight uint8 = 10
	// DefaultWindow is the number of frames averaged into the background.
	DefaultWindow = 5
)

// Option customizes a Model at construction time.
type Option func(*Model)

// WithCutoff overrides DefaultCutoff.
func WithCutoff(cutoff float32) Option {
	return func(m *Model) { m.cutoff = cutoff }
}

// WithMaskWeight overrides DefaultMaskWeight.
func WithMaskWeight(weight uint8) Option {
	return func(m *Model) { m.weight = weight }
}

// Model keeps the last `window` frames in a ring buffer and reports, for every
// new frame, the frame together with the mean of the ring.
//
// The ring is seeded with the first frame observed, so the mean is unbiased
// from the first update instead of being dragged toward black by empty slots.
//
// Not safe for concurrent use; frames must be applied in capture order.
type Model struct {
	width    int
	height   int
	window   int
	frameLen int
	buffer   []float32 // window contiguous frames
	count    uint64
	cutoff   float32
	weight   uint8
}

// NewModel allocates a model for width x height frames averaged over window
// frames. Non-positive dimensions are a programming error and panic.
func NewModel(width, height, window int, opts ...Option) *Model {
	if width <= 0 || height <= 0 || window <= 0 {
		panic(fmt.Sprintf("interest: invalid model shape width=%d height=%d window=%d", width, height, window))
	}
	frameLen := Channels * width * height
	m := &Model{
		width:    width,
		height:   height,
		window:   window,
		frameLen: frameLen,
		buffer:   make([]float32, window*frameLen),
		cutoff:   DefaultCutoff,
		weight:   DefaultMaskWeight,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Width returns the frame width fixed at construction
func (m *Model) Width() int { return m.width }

// Height returns the frame height fixed at construction
func (m *Model) Height() int { return m.height }

// Window returns the ring capacity
func (m *Model) Window() int { return m.window }

// Count returns the number of frames applied so far
func (m *Model) Count() uint64 { return m.count }

// Cutoff returns the brightening threshold stamped on every result
func (m *Model) Cutoff() float32 { return m.cutoff }

func (m *Model) slot(i int) []float32 {
	return m.buffer[i*m.frameLen : (i+1)*m.frameLen]
}

// EstimateInterest applies f to the ring and returns f paired with the new
// temporal mean. f is copied; the model keeps no reference to it.
//
// f must have the model's dimensions. A mismatch would silently misalign the
// ring, so it panics instead.
func (m *Model) EstimateInterest(f *Frame) *Interest {
	if f.Width != m.width || f.Height != m.height || len(f.Pix) != m.frameLen {
		panic(fmt.Sprintf("interest: frame %dx%d (%d samples) does not match model %dx%d",
			f.Width, f.Height, len(f.Pix), m.width, m.height))
	}

	if m.count == 0 {
		for i := 0; i < m.window; i++ {
			copy(m.slot(i), f.Pix)
		}
	} else {
		copy(m.slot(int(m.count%uint64(m.window))), f.Pix)
	}
	m.count++

	return &Interest{
		Original: f,
		Mean:     m.mean(),
		cutoff:   m.cutoff,
		weight:   m.weight,
	}
}

// mean reduces the ring along the window axis into a single frame-shaped array.
func (m *Model) mean() *Frame {
	out := NewFrame(m.width, m.height)
	n := float64(m.window)
	for i := 0; i < m.frameLen; i++ {
		var sum float64
		for s := 0; s < m.window; s++ {
			sum += float64(m.buffer[s*m.frameLen+i])
		}
		out.Pix[i] = float32(sum / n)
	}
	return out
}
