package runner

import (
	"cmp"
	"context"
	"math"
	"slices"
	"sync"

	"github.com/lguimbarda/parflow/flow/core"
	"github.com/lguimbarda/parflow/flow/sink"
	"github.com/lguimbarda/parflow/flow/source"
)

// partial is an accumulator together with the source index of the first
// item folded into it. Pipelines that can stop keep one partial per chunk
// so that chunks lying past the stop can be discarded; the others keep
// one per worker.
type partial[A any] struct {
	begin int
	acc   A
	has   bool
}

// partials collects the published partials of all workers.
type partials[A any] struct {
	mu   sync.Mutex
	list []partial[A]
}

func (ps *partials[A]) publish(p ...partial[A]) {
	ps.mu.Lock()
	ps.list = append(ps.list, p...)
	ps.mu.Unlock()
}

// sorted returns the partials in source order. Chunk partials then combine
// in the same order a sequential run would.
func (ps *partials[A]) sorted() []partial[A] {
	slices.SortFunc(ps.list, func(a, b partial[A]) int {
		return cmp.Compare(a.begin, b.begin)
	})
	return ps.list
}

type reducer[T, U any] struct {
	c         *computation[T]
	pipe      core.Pipeline[T, U]
	combine   func(U, U) U
	chunked   bool
	cur       partial[U]
	parts     []partial[U]
	published *partials[U]
}

func (r *reducer[T, U]) consume(begin int, batch []T) bool {
	if r.chunked {
		if r.cur.has {
			r.parts = append(r.parts, r.cur)
		}
		r.cur = partial[U]{begin: begin}
	}
	for k, item := range batch {
		v := r.pipe.Apply(item)
		var stop bool
		r.cur.acc, r.cur.has, stop = core.ReduceInto(v, r.cur.acc, r.cur.has, r.combine)
		if stop {
			r.c.stopAt(begin+k, v.Err())
			return true
		}
	}
	return false
}

func (r *reducer[T, U]) done() {
	if r.cur.has {
		r.parts = append(r.parts, r.cur)
	}
	r.published.publish(r.parts...)
}

// Reduce folds every item the pipeline emits with combine, which must be
// associative. ok is false when no item was emitted.
func Reduce[T, U any](ctx context.Context, r *Runner, p core.Params, src source.Source[T], pipe core.Pipeline[T, U], combine func(U, U) U) (result U, ok bool, err error) {
	var published partials[U]
	chunked := pipe.Mode() != core.Infallible
	c, err := run(ctx, r, "reduce", p, src, func(c *computation[T]) consumer[T] {
		return &reducer[T, U]{c: c, pipe: pipe, combine: combine, chunked: chunked, published: &published}
	})
	if err != nil {
		return result, false, err
	}
	if err := c.err(); err != nil {
		return result, false, err
	}

	for _, part := range published.sorted() {
		if !c.keep(part.begin) {
			continue
		}
		if !ok {
			result, ok = part.acc, true
			continue
		}
		result = combine(result, part.acc)
	}
	return result, ok, nil
}

type folder[T, U, A any] struct {
	c         *computation[T]
	pipe      core.Pipeline[T, U]
	identity  func() A
	fold      func(A, U) A
	chunked   bool
	cur       partial[A]
	parts     []partial[A]
	published *partials[A]
}

func (f *folder[T, U, A]) consume(begin int, batch []T) bool {
	if !f.cur.has || f.chunked {
		if f.cur.has {
			f.parts = append(f.parts, f.cur)
		}
		f.cur = partial[A]{begin: begin, acc: f.identity(), has: true}
	}
	for k, item := range batch {
		v := f.pipe.Apply(item)
		var stop bool
		f.cur.acc, stop = core.FoldInto(v, f.cur.acc, f.fold)
		if stop {
			f.c.stopAt(begin+k, v.Err())
			return true
		}
	}
	return false
}

func (f *folder[T, U, A]) done() {
	if f.cur.has {
		f.parts = append(f.parts, f.cur)
	}
	f.published.publish(f.parts...)
}

// Fold folds every emitted item into an accumulator. Each worker starts
// from identity() and folds with fold; the workers' accumulators are
// then combined with merge, which must be associative with identity()
// as its neutral element.
func Fold[T, U, A any](ctx context.Context, r *Runner, p core.Params, src source.Source[T], pipe core.Pipeline[T, U], identity func() A, fold func(A, U) A, merge func(A, A) A) (A, error) {
	return foldMode(ctx, r, "fold", p, src, pipe, identity, fold, merge)
}

func foldMode[T, U, A any](ctx context.Context, r *Runner, mode string, p core.Params, src source.Source[T], pipe core.Pipeline[T, U], identity func() A, fold func(A, U) A, merge func(A, A) A) (A, error) {
	var published partials[A]
	chunked := pipe.Mode() != core.Infallible
	result := identity()
	c, err := run(ctx, r, mode, p, src, func(c *computation[T]) consumer[T] {
		return &folder[T, U, A]{c: c, pipe: pipe, identity: identity, fold: fold, chunked: chunked, published: &published}
	})
	if err != nil {
		return result, err
	}
	if err := c.err(); err != nil {
		return result, err
	}

	for _, part := range published.sorted() {
		if c.keep(part.begin) {
			result = merge(result, part.acc)
		}
	}
	return result, nil
}

// Count returns the number of items the pipeline emits.
func Count[T, U any](ctx context.Context, r *Runner, p core.Params, src source.Source[T], pipe core.Pipeline[T, U]) (int, error) {
	return foldMode(ctx, r, "count", p, src, pipe,
		func() int { return 0 },
		func(n int, _ U) int { return n + 1 },
		func(a, b int) int { return a + b },
	)
}

// found is the best match of a find. Unless first is set it keeps the
// match with the smallest index.
type found[U any] struct {
	mu    sync.Mutex
	first bool
	idx   int
	item  U
	ok    bool
}

// offer records a match at idx and reports whether it became the result.
func (f *found[U]) offer(idx int, item U) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ok && (f.first || idx >= f.idx) {
		return false
	}
	f.idx, f.item, f.ok = idx, item, true
	return true
}

type finder[T, U any] struct {
	c     *computation[T]
	pipe  core.Pipeline[T, U]
	found *found[U]
}

func (f *finder[T, U]) consume(begin int, batch []T) bool {
	for k, item := range batch {
		idx := begin + k
		if int64(idx) > f.c.horizon.Load() {
			return true
		}
		v := f.pipe.Apply(item)
		u, ok, stop := core.First(v)
		if ok {
			if f.found.offer(idx, u) && !f.found.first {
				f.c.lowerHorizon(idx)
			}
			f.c.requestStop()
			return true
		}
		if stop {
			f.c.stopAt(idx, v.Err())
			return true
		}
	}
	return false
}

func (f *finder[T, U]) done() {}

// Find returns the first item the pipeline emits together with the index
// of the source item it came from. With Ordered parameters this is the
// match with the smallest index. With Arbitrary ones and an infallible
// pipeline it is whichever match was seen first; a pipeline that may stop
// or fail still gets the earliest match, so a stop before it is never
// skipped.
func Find[T, U any](ctx context.Context, r *Runner, p core.Params, src source.Source[T], pipe core.Pipeline[T, U]) (idx int, item U, ok bool, err error) {
	p = p.Normalize()
	best := &found[U]{
		first: p.Ordering == core.Arbitrary && pipe.Mode() == core.Infallible,
		idx:   math.MaxInt,
	}
	c, err := run(ctx, r, "find", p, src, func(c *computation[T]) consumer[T] {
		return &finder[T, U]{c: c, pipe: pipe, found: best}
	})
	if err != nil {
		return 0, item, false, err
	}

	stopIdx, stopErr, stopped := c.stopped()
	if best.ok && (!stopped || best.idx < stopIdx) {
		return best.idx, best.item, true, nil
	}
	if stopped && stopErr != nil {
		return 0, item, false, &core.StopError{Index: stopIdx, Err: stopErr}
	}
	return 0, item, false, nil
}

type visitor[T, U any] struct {
	c    *computation[T]
	pipe core.Pipeline[T, U]
	fn   func(U)
}

func (v *visitor[T, U]) consume(begin int, batch []T) bool {
	for k, item := range batch {
		out := v.pipe.Apply(item)
		for u := range out.All() {
			v.fn(u)
		}
		if out.IsStop() {
			v.c.stopAt(begin+k, out.Err())
			return true
		}
	}
	return false
}

func (v *visitor[T, U]) done() {}

// ForEach calls fn for every item the pipeline emits, concurrently and in
// no particular order. fn must be safe for concurrent use. When the
// pipeline stops, items that other workers were already processing may
// still reach fn.
func ForEach[T, U any](ctx context.Context, r *Runner, p core.Params, src source.Source[T], pipe core.Pipeline[T, U], fn func(U)) error {
	c, err := run(ctx, r, "foreach", p, src, func(c *computation[T]) consumer[T] {
		return &visitor[T, U]{c: c, pipe: pipe, fn: fn}
	})
	if err != nil {
		return err
	}
	return c.err()
}

// span is the output of one chunk in unordered collection.
type span[U any] struct {
	begin int
	items []U
}

// appendSink is a worker-local sink that ignores positions.
type appendSink[U any] struct {
	items []U
}

func (s *appendSink[U]) Put(_ int, item U) {
	s.items = append(s.items, item)
}

type bagger[T, U any] struct {
	c    *computation[T]
	pipe core.Pipeline[T, U]
	bag  *sink.Bag[span[U]]
}

func (b *bagger[T, U]) consume(begin int, batch []T) bool {
	var local appendSink[U]
	defer func() {
		if len(local.items) > 0 {
			b.bag.Add(span[U]{begin: begin, items: local.items})
		}
	}()
	for k, item := range batch {
		v := b.pipe.Apply(item)
		if core.Deposit(v, &local, begin+k) {
			b.c.stopAt(begin+k, v.Err())
			return true
		}
	}
	return false
}

func (b *bagger[T, U]) done() {}

// CollectUnordered returns every emitted item in no particular order.
func CollectUnordered[T, U any](ctx context.Context, r *Runner, p core.Params, src source.Source[T], pipe core.Pipeline[T, U]) ([]U, error) {
	var bag sink.Bag[span[U]]
	c, err := run(ctx, r, "collect_unordered", p, src, func(c *computation[T]) consumer[T] {
		return &bagger[T, U]{c: c, pipe: pipe, bag: &bag}
	})
	if err != nil {
		return nil, err
	}
	if err := c.err(); err != nil {
		return nil, err
	}

	out := []U{}
	for s := range bag.Seq() {
		if c.keep(s.begin) {
			out = append(out, s.items...)
		}
	}
	return out, nil
}

// Collect returns every emitted item, in source order unless p asks for
// Arbitrary ordering.
func Collect[T, U any](ctx context.Context, r *Runner, p core.Params, src source.Source[T], pipe core.Pipeline[T, U]) ([]U, error) {
	if p.Normalize().Ordering == core.Arbitrary {
		return CollectUnordered(ctx, r, p, src, pipe)
	}
	return CollectOrdered(ctx, r, p, src, pipe)
}
