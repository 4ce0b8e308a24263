package flow

import (
	"context"

	"github.com/lguimbarda/parflow/flow/core"
	"github.com/lguimbarda/parflow/flow/runner"
)

// WithRunner attaches r to ctx. Computations started with the returned
// context run on r instead of the default runner.
//
//	pool := executor.NewPool(8)
//	defer pool.Close()
//	ctx = flow.WithRunner(ctx, runner.New(runner.WithExecutor(pool)))
func WithRunner(ctx context.Context, r *runner.Runner) context.Context {
	return core.WithValue(ctx, r)
}

// WithParams attaches default execution parameters to ctx. Options passed
// to a terminal still override them.
func WithParams(ctx context.Context, opts ...Option) context.Context {
	return core.WithParams(ctx, core.ParamsFrom(ctx).With(opts...))
}

// runnerFrom returns the runner attached to ctx, or the default runner.
func runnerFrom(ctx context.Context) *runner.Runner {
	if r, ok := core.Lookup[*runner.Runner](ctx); ok && r != nil {
		return r
	}
	return runner.Default()
}

// setup resolves the runner and parameters of one computation.
func setup(ctx context.Context, opts []Option) (*runner.Runner, core.Params) {
	return runnerFrom(ctx), core.ParamsFrom(ctx).With(opts...)
}
