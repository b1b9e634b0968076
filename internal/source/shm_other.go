//go:build !linux || !cgo

package source

import (
	"context"
	"fmt"
	"image"
)

// SHMSource is only available on linux with cgo
type SHMSource struct{}

// NewSHMSource always fails on this platform
func NewSHMSource(name string) (*SHMSource, error) {
	return nil, fmt.Errorf("%w: shared memory source %q requires linux and cgo", ErrUnsupported, name)
}

// Next always fails on this platform
func (s *SHMSource) Next(ctx context.Context) (image.Image, error) {
	return nil, fmt.Errorf("shared memory not open")
}

// Close is a no-op
func (s *SHMSource) Close() error {
	return nil
}
