package flow

import (
	"iter"

	"github.com/lguimbarda/parflow/flow/source"
)

// FromSlice creates a Source over the elements of items. Workers pull
// from it without locking. items must not change while a computation runs.
func FromSlice[T any](items []T) Source[T] {
	return source.FromSlice(items)
}

// FromChannel creates a Source that drains ch until it is closed.
// The caller is responsible for closing the channel.
func FromChannel[T any](ch <-chan T) Source[T] {
	return source.FromChan(ch)
}

// FromIter creates a Source from an iterator sequence of unknown length.
func FromIter[T any](seq iter.Seq[T]) Source[T] {
	return source.FromSeq(seq)
}

// FromIterN creates a Source from an iterator sequence that yields exactly
// n items. Knowing the length lets the scheduler size threads and chunks.
func FromIterN[T any](seq iter.Seq[T], n int) Source[T] {
	return source.FromSeqN(seq, n)
}

// Empty creates a Source without items.
func Empty[T any]() Source[T] {
	return source.FromSlice[T](nil)
}

// Once creates a Source with a single item.
func Once[T any](value T) Source[T] {
	return source.FromSlice([]T{value})
}

// Generate creates a Source that lazily produces items with fn, which
// returns false once there are no more. fn is never called concurrently.
func Generate[T any](fn func() (T, bool)) Source[T] {
	return source.FromFunc(fn)
}

// Repeat creates a Source that yields value n times.
func Repeat[T any](value T, n int) Source[T] {
	return source.Map(source.Range(0, n), func(int) T { return value })
}

// Range creates a Source of the integers from start (inclusive) to end
// (exclusive). If start >= end, the source is empty.
func Range(start, end int) Source[int] {
	return source.Range(start, end)
}
