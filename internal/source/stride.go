package source

import (
	"context"
	"errors"
	"image"
	"io"
)

type strideSource struct {
	Source
	n       int
	started bool
}

// Every returns a source yielding the first frame of src and then every n-th
// one. Errors on skipped frames are ignored; io.EOF and context errors are not.
// n <= 1 returns src unchanged.
func Every(src Source, n int) Source {
	if n <= 1 {
		return src
	}
	return &strideSource{Source: src, n: n}
}

func (s *strideSource) Next(ctx context.Context) (image.Image, error) {
	if s.started {
		for i := 0; i < s.n-1; i++ {
			if _, err := s.Source.Next(ctx); err != nil {
				if errors.Is(err, io.EOF) || ctx.Err() != nil {
					return nil, err
				}
			}
		}
	}
	s.started = true
	return s.Source.Next(ctx)
}
