// Package sink holds the shared sinks workers write into concurrently:
// an unordered Bag and the index-addressed Segments/Positional pair used
// for ordered collection.
package sink

import (
	"iter"
	"sync/atomic"
)

type node[T any] struct {
	value T
	next  *node[T]
}

// Bag is an unordered, append-only concurrent collection. Adds never take
// a lock; the order values come back in is unspecified.
// A zero value Bag is ready to use.
type Bag[T any] struct {
	head atomic.Pointer[node[T]]
	n    atomic.Int64
}

// Add adds vs to the bag with a single CAS.
func (b *Bag[T]) Add(vs ...T) {
	if len(vs) == 0 {
		return
	}

	var first, last *node[T]
	for i := len(vs) - 1; i >= 0; i-- {
		n := &node[T]{value: vs[i]}
		if first == nil {
			first, last = n, n
			continue
		}
		n.next = first
		first = n
	}

	for {
		old := b.head.Load()
		last.next = old
		if b.head.CompareAndSwap(old, first) {
			break
		}
	}
	b.n.Add(int64(len(vs)))
}

// Put adds item; the position is ignored.
func (b *Bag[T]) Put(_ int, item T) {
	b.Add(item)
}

// Len returns the number of values added so far.
func (b *Bag[T]) Len() int {
	return int(b.n.Load())
}

// Seq removes every value from the bag and yields them. Values added in one
// Add call are yielded together in their original order.
func (b *Bag[T]) Seq() iter.Seq[T] {
	head := b.head.Swap(nil)
	return func(yield func(T) bool) {
		for head != nil {
			if !yield(head.value) {
				return
			}
			head = head.next
		}
	}
}

// Drain removes every value from the bag and returns them as a slice.
// It must not run concurrently with Add.
func (b *Bag[T]) Drain() []T {
	out := make([]T, 0, b.Len())
	for v := range b.Seq() {
		out = append(out, v)
	}
	b.n.Store(0)
	return out
}
