package source

import "sync/atomic"

// sliceSource hands out slice elements through an atomic cursor; no lock
// is taken on the pull path.
type sliceSource[T any] struct {
	items   []T
	next    atomic.Int64
	stopped atomic.Bool
}

// FromSlice returns a Source over items. The slice must not be modified
// while a computation runs.
func FromSlice[T any](items []T) Source[T] {
	return &sliceSource[T]{items: items}
}

func (s *sliceSource[T]) LengthHint() LengthHint {
	if s.stopped.Load() {
		return Exactly(0)
	}
	return Exactly(len(s.items) - int(min(s.next.Load(), int64(len(s.items)))))
}

func (s *sliceSource[T]) PullOne() (int, T, bool) {
	var zero T
	if s.stopped.Load() {
		return 0, zero, false
	}
	i := int(s.next.Add(1) - 1)
	if i >= len(s.items) {
		return 0, zero, false
	}
	return i, s.items[i], true
}

func (s *sliceSource[T]) PullBatch(buf []T) (int, int) {
	if len(buf) == 0 || s.stopped.Load() {
		return 0, 0
	}
	end := int(s.next.Add(int64(len(buf))))
	begin := end - len(buf)
	if begin >= len(s.items) {
		return 0, 0
	}
	end = min(end, len(s.items))
	return begin, copy(buf, s.items[begin:end])
}

func (s *sliceSource[T]) Stop() {
	s.stopped.Store(true)
}

// rangeSource yields the integers of [lo, hi).
type rangeSource struct {
	lo, hi  int
	next    atomic.Int64
	stopped atomic.Bool
}

// Range returns a Source of the integers lo, lo+1, ..., hi-1. The index
// of value v is v-lo.
func Range(lo, hi int) Source[int] {
	return &rangeSource{lo: lo, hi: max(lo, hi)}
}

func (r *rangeSource) len() int {
	return r.hi - r.lo
}

func (r *rangeSource) LengthHint() LengthHint {
	if r.stopped.Load() {
		return Exactly(0)
	}
	return Exactly(r.len() - int(min(r.next.Load(), int64(r.len()))))
}

func (r *rangeSource) PullOne() (int, int, bool) {
	if r.stopped.Load() {
		return 0, 0, false
	}
	i := int(r.next.Add(1) - 1)
	if i >= r.len() {
		return 0, 0, false
	}
	return i, r.lo + i, true
}

func (r *rangeSource) PullBatch(buf []int) (int, int) {
	if len(buf) == 0 || r.stopped.Load() {
		return 0, 0
	}
	end := int(r.next.Add(int64(len(buf))))
	begin := end - len(buf)
	if begin >= r.len() {
		return 0, 0
	}
	end = min(end, r.len())
	for i := begin; i < end; i++ {
		buf[i-begin] = r.lo + i
	}
	return begin, end - begin
}

func (r *rangeSource) Stop() {
	r.stopped.Store(true)
}
