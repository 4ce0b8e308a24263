// Package aggregate provides aggregations built on the runner's
// consumption modes: averages, comparator-based extrema, grouping and
// partitioning.
package aggregate

import (
	"context"

	"github.com/lguimbarda/parflow/flow/core"
	"github.com/lguimbarda/parflow/flow/runner"
	"github.com/lguimbarda/parflow/flow/source"
)

// Numeric is the set of types Average accepts.
type Numeric interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

type mean struct {
	sum   float64
	count int
}

// Average returns the arithmetic mean of the items pipe emits. ok is
// false when nothing was emitted.
func Average[T any, U Numeric](ctx context.Context, r *runner.Runner, p core.Params, src source.Source[T], pipe core.Pipeline[T, U]) (avg float64, ok bool, err error) {
	m, err := runner.Fold(ctx, r, p, src, pipe,
		func() mean { return mean{} },
		func(m mean, u U) mean { return mean{m.sum + float64(u), m.count + 1} },
		func(a, b mean) mean { return mean{a.sum + b.sum, a.count + b.count} },
	)
	if err != nil || m.count == 0 {
		return 0, false, err
	}
	return m.sum / float64(m.count), true, nil
}

// MinBy returns the smallest item pipe emits according to less. Among
// equal items any one may be returned.
func MinBy[T, U any](ctx context.Context, r *runner.Runner, p core.Params, src source.Source[T], pipe core.Pipeline[T, U], less func(a, b U) bool) (U, bool, error) {
	return runner.Reduce(ctx, r, p, src, pipe, func(a, b U) U {
		if less(b, a) {
			return b
		}
		return a
	})
}

// MaxBy returns the largest item pipe emits according to less. Among
// equal items any one may be returned.
func MaxBy[T, U any](ctx context.Context, r *runner.Runner, p core.Params, src source.Source[T], pipe core.Pipeline[T, U], less func(a, b U) bool) (U, bool, error) {
	return runner.Reduce(ctx, r, p, src, pipe, func(a, b U) U {
		if less(a, b) {
			return b
		}
		return a
	})
}

// None reports whether no item pipe emits satisfies pred. It stops at the
// first item that does.
func None[T, U any](ctx context.Context, r *runner.Runner, p core.Params, src source.Source[T], pipe core.Pipeline[T, U], pred func(U) bool) (bool, error) {
	_, _, found, err := runner.Find(ctx, r, p.With(core.WithOrdering(core.Arbitrary)), src, core.PipeFilter(pipe, pred))
	return !found && err == nil, err
}

// GroupBy groups the items pipe emits by key. Within a group, items keep
// their source order.
func GroupBy[T, U any, K comparable](ctx context.Context, r *runner.Runner, p core.Params, src source.Source[T], pipe core.Pipeline[T, U], key func(U) K) (map[K][]U, error) {
	items, err := runner.Collect(ctx, r, p.With(core.WithOrdering(core.Ordered)), src, pipe)
	if err != nil {
		return nil, err
	}
	groups := make(map[K][]U)
	for _, item := range items {
		k := key(item)
		groups[k] = append(groups[k], item)
	}
	return groups, nil
}

// Partition splits the items pipe emits into those satisfying pred and
// the rest, both in source order.
func Partition[T, U any](ctx context.Context, r *runner.Runner, p core.Params, src source.Source[T], pipe core.Pipeline[T, U], pred func(U) bool) (yes, no []U, err error) {
	type tagged struct {
		item U
		ok   bool
	}
	items, err := runner.Collect(ctx, r, p.With(core.WithOrdering(core.Ordered)), src,
		core.PipeMap(pipe, func(u U) tagged { return tagged{u, pred(u)} }))
	if err != nil {
		return nil, nil, err
	}
	for _, t := range items {
		if t.ok {
			yes = append(yes, t.item)
		} else {
			no = append(no, t.item)
		}
	}
	return yes, no, nil
}
