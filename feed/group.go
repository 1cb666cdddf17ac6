package feed

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// RunAll runs every supervisor concurrently until ctx is cancelled.
func RunAll(ctx context.Context, sups ...*Supervisor) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, s := range sups {
		s := s
		g.Go(func() error {
			return s.Run(gctx)
		})
	}
	return g.Wait()
}
