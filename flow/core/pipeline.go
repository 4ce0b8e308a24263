package core

// Mode is the fallibility of a pipeline, derived from the stages it is
// composed of.
type Mode uint8

const (
	// Infallible pipelines never stop early.
	Infallible Mode = iota
	// Optional pipelines may stop without an error (while-stages).
	Optional
	// Fallible pipelines may fail with an error.
	Fallible
)

func (m Mode) String() string {
	switch m {
	case Optional:
		return "optional"
	case Fallible:
		return "fallible"
	default:
		return "infallible"
	}
}

// Pipeline is the per-item transformation a computation applies to every
// source item. It answers the question "what becomes of one input item?".
//
// Besides the step function, a Pipeline records statically whether any
// stage may expand one item into several; ordered collection relies on it
// to choose its assembly strategy.
type Pipeline[T, U any] struct {
	step    func(T) Value[U]
	expands bool
	mode    Mode
}

// Identity returns the pipeline that passes items through unchanged.
func Identity[T any]() Pipeline[T, T] {
	return Pipeline[T, T]{step: One[T]}
}

// NewPipeline wraps a raw step function. expands must be true if step may
// return more than one item for a single input.
func NewPipeline[T, U any](step func(T) Value[U], expands bool, mode Mode) Pipeline[T, U] {
	return Pipeline[T, U]{step: step, expands: expands, mode: mode}
}

// Apply runs the pipeline over one input item.
func (p Pipeline[T, U]) Apply(item T) Value[U] {
	if p.step == nil {
		return Empty[U]()
	}
	return p.step(item)
}

// Expands reports whether the pipeline may produce more than one item per input.
func (p Pipeline[T, U]) Expands() bool {
	return p.expands
}

// Mode reports the fallibility of the pipeline.
func (p Pipeline[T, U]) Mode() Mode {
	return p.mode
}

// Then appends a Value-level stage to p.
func Then[T, U, V any](p Pipeline[T, U], stage func(Value[U]) Value[V], expands bool, mode Mode) Pipeline[T, V] {
	step := p.step
	return Pipeline[T, V]{
		step: func(item T) Value[V] {
			return stage(step(item))
		},
		expands: p.expands || expands,
		mode:    max(p.mode, mode),
	}
}

// PipeMap appends a 1:1 transformation.
func PipeMap[T, U, V any](p Pipeline[T, U], f func(U) V) Pipeline[T, V] {
	return Then(p, func(v Value[U]) Value[V] { return Map(v, f) }, false, Infallible)
}

// PipeFilter appends a predicate; items failing it are dropped.
func PipeFilter[T, U any](p Pipeline[T, U], pred func(U) bool) Pipeline[T, U] {
	return Then(p, func(v Value[U]) Value[U] { return Filter(v, pred) }, false, Infallible)
}

// PipeFlatMap appends a 1:N expansion.
func PipeFlatMap[T, U, V any](p Pipeline[T, U], f func(U) []V) Pipeline[T, V] {
	return Then(p, func(v Value[U]) Value[V] { return FlatExpand(v, f) }, true, Infallible)
}

// PipeFilterMap appends a combined transformation and predicate.
func PipeFilterMap[T, U, V any](p Pipeline[T, U], f func(U) (V, bool)) Pipeline[T, V] {
	return Then(p, func(v Value[U]) Value[V] { return FilterMap(v, f) }, false, Infallible)
}

// PipeTryMap appends a fallible transformation; the first error fails the
// computation.
func PipeTryMap[T, U, V any](p Pipeline[T, U], f func(U) (V, error)) Pipeline[T, V] {
	return Then(p, func(v Value[U]) Value[V] { return TryMap(v, f) }, false, Fallible)
}

// PipeWhile appends a while-condition; the computation stops at the first
// item for which pred is false.
func PipeWhile[T, U any](p Pipeline[T, U], pred func(U) bool) Pipeline[T, U] {
	return Then(p, func(v Value[U]) Value[U] { return While(v, pred) }, false, Optional)
}

// PipeMapWhile appends a transformation that stops the computation at the
// first item for which f reports false.
func PipeMapWhile[T, U, V any](p Pipeline[T, U], f func(U) (V, bool)) Pipeline[T, V] {
	return Then(p, func(v Value[U]) Value[V] { return MapWhile(v, f) }, false, Optional)
}
