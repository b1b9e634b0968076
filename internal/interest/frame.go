package interest

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"
)

// Channels is the number of color planes in every frame (R, G, B).
const Channels = 3

// Frame is a dense (channel, row, column) array of float32 samples.
// Samples are stored channel-major: Pix[(c*Height+y)*Width+x].
type Frame struct {
	Width  int
	Height int
	Pix    []float32
}

// NewFrame allocates a zeroed frame
func NewFrame(width, height int) *Frame {
	return &Frame{
		Width:  width,
		Height: height,
		Pix:    make([]float32, Channels*width*height),
	}
}

// Len returns the total number of samples (channels*height*width)
func (f *Frame) Len() int {
	return len(f.Pix)
}

func (f *Frame) offset(c, y, x int) int {
	return (c*f.Height+y)*f.Width + x
}

// At returns the sample at channel c, row y, column x
func (f *Frame) At(c, y, x int) float32 {
	return f.Pix[f.offset(c, y, x)]
}

// Set stores v at channel c, row y, column x
func (f *Frame) Set(c, y, x int, v float32) {
	f.Pix[f.offset(c, y, x)] = v
}

// Fill sets every sample to v
func (f *Frame) Fill(v float32) {
	for i := range f.Pix {
		f.Pix[i] = v
	}
}

// Clone returns a deep copy
func (f *Frame) Clone() *Frame {
	out := &Frame{Width: f.Width, Height: f.Height, Pix: make([]float32, len(f.Pix))}
	copy(out.Pix, f.Pix)
	return out
}

// SameShape reports whether f and o have identical dimensions.
func (f *Frame) SameShape(o *Frame) bool {
	return f.Width == o.Width && f.Height == o.Height && len(f.Pix) == len(o.Pix)
}

func (f *Frame) String() string {
	return fmt.Sprintf("Frame(%dx%dx%d)", Channels, f.Height, f.Width)
}

// FrameFromRGB converts an interleaved 8-bit RGB buffer (row-major, 3 bytes per
// pixel) into a Frame. It panics if pix is not exactly width*height*3 bytes.
func FrameFromRGB(pix []uint8, width, height int) *Frame {
	if len(pix) != width*height*Channels {
		panic(fmt.Sprintf("interest: RGB buffer has %d bytes, want %d", len(pix), width*height*Channels))
	}
	f := NewFrame(width, height)
	plane := width * height
	for i := 0; i < plane; i++ {
		f.Pix[i] = float32(pix[i*3])
		f.Pix[plane+i] = float32(pix[i*3+1])
		f.Pix[2*plane+i] = float32(pix[i*3+2])
	}
	return f
}

// FrameFromImage converts img into a width x height Frame. Images of any other
// size are scaled first so the result always matches the model's fixed shape.
func FrameFromImage(img image.Image, width, height int) *Frame {
	rgba, ok := img.(*image.RGBA)
	b := img.Bounds()
	if !ok || b.Dx() != width || b.Dy() != height {
		dst := image.NewRGBA(image.Rect(0, 0, width, height))
		if b.Dx() == width && b.Dy() == height {
			draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
		} else {
			draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
		}
		rgba = dst
	}

	f := NewFrame(width, height)
	plane := width * height
	rb := rgba.Bounds()
	for y := 0; y < height; y++ {
		off := rgba.PixOffset(rb.Min.X, rb.Min.Y+y)
		row := rgba.Pix[off : off+width*4]
		for x := 0; x < width; x++ {
			i := y*width + x
			f.Pix[i] = float32(row[x*4])
			f.Pix[plane+i] = float32(row[x*4+1])
			f.Pix[2*plane+i] = float32(row[x*4+2])
		}
	}
	return f
}
