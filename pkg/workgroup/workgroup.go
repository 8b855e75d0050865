// Package workgroup runs a set of context-bound workers and collects the
// first error any of them return.
package workgroup

import (
	"context"

	"golang.org/x/sync/errgroup"
)

type workgroup struct {
	ctx   context.Context
	group errgroup.Group
}

// WithContext creates a workgroup whose workers all observe ctx.
func WithContext(ctx context.Context) *workgroup {
	return &workgroup{
		ctx: ctx,
	}
}

// Work starts fn as a worker in the group.
func (g *workgroup) Work(fn func(context.Context) error) {
	g.group.Go(func() error {
		return fn(g.ctx)
	})
}

// Wait blocks until all workers return and yields the first error seen.
func (g *workgroup) Wait() error {
	return g.group.Wait()
}
