package source

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/interest-monitor/internal/logger"
)

// maxPartSize bounds a single MJPEG part (a raw 1080p RGB frame is ~6MB)
const maxPartSize = 8 << 20

// MJPEGSource reads a multipart/x-mixed-replace stream such as the pet camera
// monitor's /stream endpoint.
type MJPEGSource struct {
	url    string
	cancel context.CancelFunc
	body   io.ReadCloser
	parts  *multipart.Reader
}

// NewMJPEGSource connects to url. The connection lives until Close or until
// ctx is cancelled. client may be nil.
func NewMJPEGSource(ctx context.Context, url string, client *http.Client) (*MJPEGSource, error) {
	if client == nil {
		client = &http.Client{}
	}
	ctx, cancel := context.WithCancel(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("stream %s returned status %d", url, resp.StatusCode)
	}

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") || params["boundary"] == "" {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("stream %s is not multipart (Content-Type %q)", url, resp.Header.Get("Content-Type"))
	}

	logger.Info("Source", "Connected to MJPEG stream %s (boundary=%s)", url, params["boundary"])
	return &MJPEGSource{
		url:    url,
		cancel: cancel,
		body:   resp.Body,
		parts:  multipart.NewReader(resp.Body, params["boundary"]),
	}, nil
}

// Next reads and decodes the next part
func (s *MJPEGSource) Next(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	part, err := s.parts.NextPart()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("failed to read part from %s: %w", s.url, err)
	}
	defer part.Close()

	data, err := io.ReadAll(io.LimitReader(part, maxPartSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read frame from %s: %w", s.url, err)
	}
	if len(data) > maxPartSize {
		return nil, fmt.Errorf("frame from %s exceeds %d bytes", s.url, maxPartSize)
	}
	return decode(data)
}

// Close drops the connection
func (s *MJPEGSource) Close() error {
	s.cancel()
	return s.body.Close()
}
