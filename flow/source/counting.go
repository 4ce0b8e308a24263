package source

import (
	"sync"
	"sync/atomic"
)

// Pulled is one (index, item) pair handed out by a source.
type Pulled[T any] struct {
	Index int
	Item  T
}

// Recorder wraps a Source and records every pair it hands out. It is
// meant for tests and diagnostics that check that no item is lost or
// handed out twice.
type Recorder[T any] struct {
	src     Source[T]
	mu      sync.Mutex
	pulled  []Pulled[T]
	pulls   atomic.Int64
	stopped atomic.Int64
}

// Record wraps src.
func Record[T any](src Source[T]) *Recorder[T] {
	return &Recorder[T]{src: src}
}

func (r *Recorder[T]) LengthHint() LengthHint {
	return r.src.LengthHint()
}

func (r *Recorder[T]) PullOne() (int, T, bool) {
	i, item, ok := r.src.PullOne()
	r.pulls.Add(1)
	if ok {
		r.mu.Lock()
		r.pulled = append(r.pulled, Pulled[T]{Index: i, Item: item})
		r.mu.Unlock()
	}
	return i, item, ok
}

func (r *Recorder[T]) PullBatch(buf []T) (int, int) {
	begin, n := r.src.PullBatch(buf)
	r.pulls.Add(1)
	if n > 0 {
		r.mu.Lock()
		for k := range n {
			r.pulled = append(r.pulled, Pulled[T]{Index: begin + k, Item: buf[k]})
		}
		r.mu.Unlock()
	}
	return begin, n
}

func (r *Recorder[T]) Stop() {
	r.stopped.Add(1)
	r.src.Stop()
}

// Pulled returns a copy of every pair handed out so far, in hand-out order.
func (r *Recorder[T]) Pulled() []Pulled[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Pulled[T](nil), r.pulled...)
}

// Pulls returns the number of pull calls, including those that found the
// source exhausted.
func (r *Recorder[T]) Pulls() int64 {
	return r.pulls.Load()
}

// StopRequests returns how many times Stop was called.
func (r *Recorder[T]) StopRequests() int64 {
	return r.stopped.Load()
}
