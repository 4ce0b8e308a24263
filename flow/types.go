// Package flow provides parallel iteration over in-memory and streaming
// sources: a per-item pipeline (map, filter, flat-map, ...) is run across
// an adaptively sized set of workers and its output is reduced, counted,
// searched or collected, with results identical to a sequential run.
//
// This package is the primary user-facing API. Most users should only
// need to import this package. The flow/core, flow/source and flow/runner
// subpackages contain the lower-level building blocks.
//
//	src := flow.Range(0, 1_000_000)
//	pipe := flow.Filter(flow.Map(flow.Identity[int](), square), isEven)
//	total, err := flow.Sum(ctx, src, pipe)
package flow

import (
	"github.com/lguimbarda/parflow/flow/core"
	"github.com/lguimbarda/parflow/flow/source"
)

// Type aliases for the core abstractions.
// These allow users to work with the engine without importing core directly.
type (
	// Value is the outcome of running a pipeline over one item.
	Value[T any] = core.Value[T]

	// Pipeline is the per-item transformation a computation applies.
	Pipeline[T, U any] = core.Pipeline[T, U]

	// Params are the execution parameters of a computation.
	Params = core.Params

	// Option sets one execution parameter.
	Option = core.Option

	// Ordering controls whether results must follow source order.
	Ordering = core.Ordering

	// Mode is the fallibility of a pipeline.
	Mode = core.Mode

	// Source is a thread-safe pull source.
	Source[T any] = source.Source[T]

	// Stats describes one finished computation.
	Stats = core.Stats

	// StopError is a per-item failure tagged with the item's source index.
	StopError = core.StopError

	// ErrPanic wraps a panic recovered from a worker.
	ErrPanic = core.ErrPanic
)

const (
	// Ordered results match a sequential run element for element.
	Ordered = core.Ordered
	// Arbitrary results may come back in any order.
	Arbitrary = core.Arbitrary
)

// Pipeline modes, for pipelines built with NewPipeline.
const (
	Infallible = core.Infallible
	Optional   = core.Optional
	Fallible   = core.Fallible
)

// Parameter options.

// WithThreads caps the worker count: 0 = auto, 1 = sequential.
func WithThreads(n int) Option {
	return core.WithThreads(n)
}

// WithChunk pins the chunk size at n items. n <= 0 selects the automatic policy.
func WithChunk(n int) Option {
	return core.WithChunk(core.ExactChunk(n))
}

// WithMinChunk lets chunks grow adaptively from a floor of n items.
func WithMinChunk(n int) Option {
	return core.WithChunk(core.MinChunk(n))
}

// WithOrdering sets the ordering requirement.
func WithOrdering(o Ordering) Option {
	return core.WithOrdering(o)
}

// Sequential runs the computation on the calling goroutine only.
func Sequential() Option {
	return core.Sequential()
}

// Value constructors, for pipelines built with NewPipeline.

// One returns a Value carrying v.
func One[T any](v T) Value[T] {
	return core.One(v)
}

// Many returns a Value carrying vs.
func Many[T any](vs []T) Value[T] {
	return core.Many(vs)
}

// None returns a Value carrying nothing.
func None[T any]() Value[T] {
	return core.Empty[T]()
}

// Stop returns a Value that ends the computation without an error.
func Stop[T any]() Value[T] {
	return core.Stop[T]()
}

// Fail returns a Value that ends the computation with err.
func Fail[T any](err error) Value[T] {
	return core.Fail[T](err)
}

// IsPanic reports whether err carries a worker panic.
func IsPanic(err error) bool {
	return core.IsPanic(err)
}
