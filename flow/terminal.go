package flow

import (
	"cmp"
	"context"
	"slices"

	"github.com/lguimbarda/parflow/flow/runner"
)

// Number is the constraint of Sum.
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr |
		~float32 | ~float64
}

// Reduce combines every item the pipeline emits with combine, which must
// be associative; for results independent of the thread count it should
// also be commutative. ok is false when nothing was emitted.
func Reduce[T, U any](ctx context.Context, src Source[T], pipe Pipeline[T, U], combine func(U, U) U, opts ...Option) (result U, ok bool, err error) {
	r, p := setup(ctx, opts)
	return runner.Reduce(ctx, r, p, src, pipe, combine)
}

// Fold folds every emitted item into an accumulator. Each worker starts
// from identity() and folds with fold; worker results are combined with
// merge.
func Fold[T, U, A any](ctx context.Context, src Source[T], pipe Pipeline[T, U], identity func() A, fold func(A, U) A, merge func(A, A) A, opts ...Option) (A, error) {
	r, p := setup(ctx, opts)
	return runner.Fold(ctx, r, p, src, pipe, identity, fold, merge)
}

// Sum adds up every emitted item.
func Sum[T any, U Number](ctx context.Context, src Source[T], pipe Pipeline[T, U], opts ...Option) (U, error) {
	sum, _, err := Reduce(ctx, src, pipe, func(a, b U) U { return a + b }, opts...)
	return sum, err
}

// Min returns the smallest emitted item.
func Min[T any, U cmp.Ordered](ctx context.Context, src Source[T], pipe Pipeline[T, U], opts ...Option) (U, bool, error) {
	return Reduce(ctx, src, pipe, func(a, b U) U { return min(a, b) }, opts...)
}

// Max returns the largest emitted item.
func Max[T any, U cmp.Ordered](ctx context.Context, src Source[T], pipe Pipeline[T, U], opts ...Option) (U, bool, error) {
	return Reduce(ctx, src, pipe, func(a, b U) U { return max(a, b) }, opts...)
}

// Count returns the number of emitted items.
func Count[T, U any](ctx context.Context, src Source[T], pipe Pipeline[T, U], opts ...Option) (int, error) {
	r, p := setup(ctx, opts)
	return runner.Count(ctx, r, p, src, pipe)
}

// Find returns the first emitted item and the source index it came from.
// With WithOrdering(Arbitrary) any emitted item may be returned.
func Find[T, U any](ctx context.Context, src Source[T], pipe Pipeline[T, U], opts ...Option) (index int, item U, ok bool, err error) {
	r, p := setup(ctx, opts)
	return runner.Find(ctx, r, p, src, pipe)
}

// Any reports whether pred holds for some emitted item. It stops pulling
// as soon as one is found.
func Any[T, U any](ctx context.Context, src Source[T], pipe Pipeline[T, U], pred func(U) bool, opts ...Option) (bool, error) {
	if pipe.Mode() == Infallible {
		opts = append(slices.Clip(opts), WithOrdering(Arbitrary))
	}
	_, _, ok, err := Find(ctx, src, Filter(pipe, pred), opts...)
	return ok, err
}

// All reports whether pred holds for every emitted item. It stops pulling
// at the first counterexample.
func All[T, U any](ctx context.Context, src Source[T], pipe Pipeline[T, U], pred func(U) bool, opts ...Option) (bool, error) {
	found, err := Any(ctx, src, pipe, func(u U) bool { return !pred(u) }, opts...)
	return !found, err
}

// Collect returns every emitted item in source order, or in any order
// with WithOrdering(Arbitrary).
func Collect[T, U any](ctx context.Context, src Source[T], pipe Pipeline[T, U], opts ...Option) ([]U, error) {
	r, p := setup(ctx, opts)
	return runner.Collect(ctx, r, p, src, pipe)
}

// CollectUnordered returns every emitted item in no particular order.
func CollectUnordered[T, U any](ctx context.Context, src Source[T], pipe Pipeline[T, U], opts ...Option) ([]U, error) {
	r, p := setup(ctx, opts)
	return runner.CollectUnordered(ctx, r, p, src, pipe)
}

// ForEach calls fn concurrently for every emitted item. fn must be safe
// for concurrent use.
func ForEach[T, U any](ctx context.Context, src Source[T], pipe Pipeline[T, U], fn func(U), opts ...Option) error {
	r, p := setup(ctx, opts)
	return runner.ForEach(ctx, r, p, src, pipe, fn)
}
