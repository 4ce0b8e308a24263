package flow

import "github.com/lguimbarda/parflow/flow/core"

// Identity returns the pipeline that passes items through unchanged.
// It is the starting point of every pipeline built with this package.
func Identity[T any]() Pipeline[T, T] {
	return core.Identity[T]()
}

// NewPipeline wraps a raw step function. expands must be true if step may
// emit more than one item per input; mode describes whether it may stop.
func NewPipeline[T, U any](step func(T) Value[U], expands bool, mode Mode) Pipeline[T, U] {
	return core.NewPipeline(step, expands, mode)
}

// Map appends a 1:1 transformation to p.
func Map[T, U, V any](p Pipeline[T, U], f func(U) V) Pipeline[T, V] {
	return core.PipeMap(p, f)
}

// Filter appends a predicate to p; items failing it are dropped.
func Filter[T, U any](p Pipeline[T, U], pred func(U) bool) Pipeline[T, U] {
	return core.PipeFilter(p, pred)
}

// FlatMap appends a 1:N expansion to p.
func FlatMap[T, U, V any](p Pipeline[T, U], f func(U) []V) Pipeline[T, V] {
	return core.PipeFlatMap(p, f)
}

// FilterMap appends a transformation that may drop items.
func FilterMap[T, U, V any](p Pipeline[T, U], f func(U) (V, bool)) Pipeline[T, V] {
	return core.PipeFilterMap(p, f)
}

// TryMap appends a fallible transformation. The first error, in source
// order, fails the computation.
func TryMap[T, U, V any](p Pipeline[T, U], f func(U) (V, error)) Pipeline[T, V] {
	return core.PipeTryMap(p, f)
}

// While ends the computation at the first item, in source order, for which
// pred is false. Results keep everything before it.
func While[T, U any](p Pipeline[T, U], pred func(U) bool) Pipeline[T, U] {
	return core.PipeWhile(p, pred)
}

// MapWhile maps items with f until it reports false, which ends the
// computation at that item.
func MapWhile[T, U, V any](p Pipeline[T, U], f func(U) (V, bool)) Pipeline[T, V] {
	return core.PipeMapWhile(p, f)
}

// Inspect appends a side effect that sees every item without changing it.
// f must be safe for concurrent use.
func Inspect[T, U any](p Pipeline[T, U], f func(U)) Pipeline[T, U] {
	return core.PipeMap(p, func(u U) U {
		f(u)
		return u
	})
}
