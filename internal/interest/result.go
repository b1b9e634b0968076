package interest

import "image"

// Interest pairs the frame just observed with the temporal mean it was
// compared against. It is derived state and never retained by the Model.
type Interest struct {
	Original *Frame
	Mean     *Frame

	cutoff float32
	weight uint8
}

// NewInterest builds a result from an explicit (frame, mean) pair using the
// default cutoff and weight. Both frames must share a shape.
func NewInterest(original, mean *Frame) *Interest {
	if !original.SameShape(mean) {
		panic("interest: original and mean differ in shape")
	}
	return &Interest{Original: original, Mean: mean, cutoff: DefaultCutoff, weight: DefaultMaskWeight}
}

// Cutoff returns the brightening threshold used by Threshold and Overall
func (r *Interest) Cutoff() float32 { return r.cutoff }

// over is the single predicate behind both Threshold and Overall.
// Only brightening counts; darkening below the mean never does.
func (r *Interest) over(i int) bool {
	return r.Original.Pix[i]-r.Mean.Pix[i] > r.cutoff
}

// Threshold returns a newly allocated mask holding the mask weight wherever the
// frame is brighter than the mean by more than the cutoff, and 0 elsewhere.
func (r *Interest) Threshold() *Mask {
	mask := NewMask(r.Original.Width, r.Original.Height)
	for i := range r.Original.Pix {
		if r.over(i) {
			mask.Pix[i] = r.weight
		}
	}
	return mask
}

// Exceeding returns how many samples are over the cutoff.
func (r *Interest) Exceeding() int {
	n := 0
	for i := range r.Original.Pix {
		if r.over(i) {
			n++
		}
	}
	return n
}

// Overall returns the fraction of samples over the cutoff, in [0,1].
func (r *Interest) Overall() float64 {
	total := r.Original.Len()
	if total == 0 {
		return 0
	}
	return float64(r.Exceeding()) / float64(total)
}

// Mask is a (channel, row, column) array of small non-negative weights, laid
// out like Frame.
type Mask struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewMask allocates a zeroed mask
func NewMask(width, height int) *Mask {
	return &Mask{Width: width, Height: height, Pix: make([]uint8, Channels*width*height)}
}

// NonZero counts set cells
func (m *Mask) NonZero() int {
	n := 0
	for _, v := range m.Pix {
		if v != 0 {
			n++
		}
	}
	return n
}

// Image renders the mask as an opaque row-major RGBA image, moving the channel
// axis last. Cell values are copied unchanged.
func (m *Mask) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, m.Width, m.Height))
	plane := m.Width * m.Height
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			i := y*m.Width + x
			o := img.PixOffset(x, y)
			img.Pix[o] = m.Pix[i]
			img.Pix[o+1] = m.Pix[plane+i]
			img.Pix[o+2] = m.Pix[2*plane+i]
			img.Pix[o+3] = 0xff
		}
	}
	return img
}
