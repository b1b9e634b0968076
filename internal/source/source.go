// Package source provides the frame sources that feed the interest model:
// image directories, MJPEG-over-HTTP streams, the camera shared-memory ring
// and desktop capture. Every source yields decoded frames in capture order.
package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // JPEG decoder
	_ "image/png"  // PNG decoder
	"os"
	"strings"

	_ "golang.org/x/image/bmp"  // BMP decoder
	_ "golang.org/x/image/webp" // WebP decoder
)

// Source is a lazy sequence of decoded frames.
//
// Next blocks until the next frame is available. A non-nil error other than
// io.EOF applies to that frame only; the caller may call Next again. io.EOF
// ends the sequence. A source cannot be rewound; reopen it instead.
type Source interface {
	Next(ctx context.Context) (image.Image, error)
	Close() error
}

// ErrUnsupported is returned by Open for identifiers no source understands
var ErrUnsupported = errors.New("unsupported frame source")

// Open creates the source named by spec:
//
//	dir:<path> or a directory path   replay image files in lexical order
//	http://... / https://...         multipart MJPEG stream
//	shm:<name>                       camera shared-memory ring (linux)
//	screen[:<interval>]              desktop capture
func Open(ctx context.Context, spec string) (Source, error) {
	switch {
	case strings.HasPrefix(spec, "dir:"):
		return opened(NewDirSource(strings.TrimPrefix(spec, "dir:")))
	case strings.HasPrefix(spec, "http://"), strings.HasPrefix(spec, "https://"):
		return opened(NewMJPEGSource(ctx, spec, nil))
	case strings.HasPrefix(spec, "shm:"):
		return opened(NewSHMSource(strings.TrimPrefix(spec, "shm:")))
	case spec == "screen" || strings.HasPrefix(spec, "screen:"):
		return opened(NewScreenSource(strings.TrimPrefix(strings.TrimPrefix(spec, "screen"), ":")))
	}

	if info, err := os.Stat(spec); err == nil && info.IsDir() {
		return opened(NewDirSource(spec))
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupported, spec)
}

// opened drops the typed nil a failed constructor returns
func opened[S Source](src S, err error) (Source, error) {
	if err != nil {
		return nil, err
	}
	return src, nil
}

// decode decodes one encoded frame with any registered image format
func decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame (%d bytes): %w", len(data), err)
	}
	return img, nil
}
