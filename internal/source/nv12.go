package source

import (
	"fmt"
	"image"
)

// Frame formats written by the camera daemon into shared memory
const (
	FormatJPEG = 0
	FormatNV12 = 1
	FormatRGB  = 2
	FormatH264 = 3
)

// nv12ToImage wraps an NV12 buffer (full-res Y plane followed by interleaved
// half-res UV) as a 4:2:0 YCbCr image. The chroma planes are de-interleaved
// into fresh slices; Y is copied so the result does not alias data.
func nv12ToImage(data []byte, width, height int) (*image.YCbCr, error) {
	if width <= 0 || height <= 0 || width%2 != 0 || height%2 != 0 {
		return nil, fmt.Errorf("invalid NV12 size %dx%d", width, height)
	}
	ySize := width * height
	cSize := ySize / 4
	if len(data) < ySize+2*cSize {
		return nil, fmt.Errorf("NV12 buffer too short: %d bytes for %dx%d", len(data), width, height)
	}

	img := image.NewYCbCr(image.Rect(0, 0, width, height), image.YCbCrSubsampleRatio420)
	copy(img.Y, data[:ySize])
	uv := data[ySize : ySize+2*cSize]
	for i := 0; i < cSize; i++ {
		img.Cb[i] = uv[2*i]
		img.Cr[i] = uv[2*i+1]
	}
	return img, nil
}

// rgbToImage wraps a packed 24-bit RGB buffer as an opaque RGBA image
func rgbToImage(data []byte, width, height int) (*image.RGBA, error) {
	if len(data) < width*height*3 {
		return nil, fmt.Errorf("RGB buffer too short: %d bytes for %dx%d", len(data), width, height)
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < width*height; i++ {
		img.Pix[i*4] = data[i*3]
		img.Pix[i*4+1] = data[i*3+1]
		img.Pix[i*4+2] = data[i*3+2]
		img.Pix[i*4+3] = 0xff
	}
	return img, nil
}

// decodeRaw turns one shared-memory frame into an image by format
func decodeRaw(format int, data []byte, width, height int) (image.Image, error) {
	switch format {
	case FormatJPEG:
		return decode(data)
	case FormatNV12:
		return nv12ToImage(data, width, height)
	case FormatRGB:
		return rgbToImage(data, width, height)
	default:
		return nil, fmt.Errorf("unsupported frame format %d", format)
	}
}
