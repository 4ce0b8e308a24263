package runner

import (
	"context"
	"sync"

	"github.com/emirpasic/gods/queues/priorityqueue"

	"github.com/lguimbarda/parflow/flow/core"
	"github.com/lguimbarda/parflow/flow/sink"
	"github.com/lguimbarda/parflow/flow/source"
)

// CollectOrdered returns every emitted item in source order, exactly as a
// sequential run would.
//
// Pipelines that emit at most one item per input write into a shared
// positional sink that is compacted in place after the join. Expanding
// pipelines keep a private index-ordered sequence per worker, merged with
// a priority queue.
func CollectOrdered[T, U any](ctx context.Context, r *Runner, p core.Params, src source.Source[T], pipe core.Pipeline[T, U]) ([]U, error) {
	if pipe.Expands() {
		return collectMerged(ctx, r, p, src, pipe)
	}
	return collectPositional(ctx, r, p, src, pipe)
}

type positioner[T, U any] struct {
	c    *computation[T]
	pipe core.Pipeline[T, U]
	out  *sink.Positional[U]
}

func (w *positioner[T, U]) consume(begin int, batch []T) bool {
	for k, item := range batch {
		v := w.pipe.Apply(item)
		if core.Deposit(v, w.out, begin+k) {
			w.c.stopAt(begin+k, v.Err())
			return true
		}
	}
	return false
}

func (w *positioner[T, U]) done() {}

func collectPositional[T, U any](ctx context.Context, r *Runner, p core.Params, src source.Source[T], pipe core.Pipeline[T, U]) ([]U, error) {
	n, _ := src.LengthHint().Remaining()
	out := sink.NewPositional[U](n)
	c, err := run(ctx, r, "collect_ordered", p, src, func(c *computation[T]) consumer[T] {
		return &positioner[T, U]{c: c, pipe: pipe, out: out}
	})
	if err != nil {
		return nil, err
	}
	if err := c.err(); err != nil {
		return nil, err
	}

	limit := -1
	if stop, _, ok := c.stopped(); ok {
		limit = stop + 1
	}
	return out.Compact(limit), nil
}

// indexed is one emitted item tagged with its source index.
type indexed[U any] struct {
	idx  int
	item U
}

// sequence is one worker's output, sorted by index because a worker pulls
// increasing index ranges.
type sequence[U any] []indexed[U]

func (s *sequence[U]) Put(idx int, item U) {
	*s = append(*s, indexed[U]{idx: idx, item: item})
}

type sequences[U any] struct {
	mu   sync.Mutex
	list []sequence[U]
}

type sequencer[T, U any] struct {
	c    *computation[T]
	pipe core.Pipeline[T, U]
	seq  sequence[U]
	all  *sequences[U]
}

func (w *sequencer[T, U]) consume(begin int, batch []T) bool {
	for k, item := range batch {
		v := w.pipe.Apply(item)
		if core.Deposit(v, &w.seq, begin+k) {
			w.c.stopAt(begin+k, v.Err())
			return true
		}
	}
	return false
}

func (w *sequencer[T, U]) done() {
	if len(w.seq) == 0 {
		return
	}
	w.all.mu.Lock()
	w.all.list = append(w.all.list, w.seq)
	w.all.mu.Unlock()
}

func collectMerged[T, U any](ctx context.Context, r *Runner, p core.Params, src source.Source[T], pipe core.Pipeline[T, U]) ([]U, error) {
	var all sequences[U]
	c, err := run(ctx, r, "collect_ordered", p, src, func(c *computation[T]) consumer[T] {
		return &sequencer[T, U]{c: c, pipe: pipe, all: &all}
	})
	if err != nil {
		return nil, err
	}
	if err := c.err(); err != nil {
		return nil, err
	}

	limit := -1
	if stop, _, ok := c.stopped(); ok {
		limit = stop + 1
	}
	return mergeSequences(all.list, limit), nil
}

// cursor is the read position in one sequence.
type cursor[U any] struct {
	seq sequence[U]
	pos int
}

func (c *cursor[U]) head() int {
	return c.seq[c.pos].idx
}

// mergeSequences merges index-sorted sequences into one slice ordered by
// index, keeping items whose index is below limit (all items if limit is
// negative). Items sharing an index come from the same sequence and keep
// their relative order.
func mergeSequences[U any](seqs []sequence[U], limit int) []U {
	total := 0
	for _, s := range seqs {
		total += len(s)
	}
	out := make([]U, 0, total)
	if len(seqs) == 1 {
		for _, it := range seqs[0] {
			if limit >= 0 && it.idx >= limit {
				break
			}
			out = append(out, it.item)
		}
		return out
	}

	pq := priorityqueue.NewWith(func(a, b interface{}) int {
		return a.(*cursor[U]).head() - b.(*cursor[U]).head()
	})
	for _, s := range seqs {
		if len(s) > 0 {
			pq.Enqueue(&cursor[U]{seq: s})
		}
	}

	for !pq.Empty() {
		v, _ := pq.Dequeue()
		cur := v.(*cursor[U])
		idx := cur.head()
		if limit >= 0 && idx >= limit {
			// Every remaining head is at least idx.
			break
		}
		// Drain all items of this input before re-queueing.
		for cur.pos < len(cur.seq) && cur.head() == idx {
			out = append(out, cur.seq[cur.pos].item)
			cur.pos++
		}
		if cur.pos < len(cur.seq) {
			pq.Enqueue(cur)
		}
	}
	return out
}
