package sink

import (
	"math/bits"
	"sync/atomic"
)

// maxSegments bounds the number of segments; with doubling sizes this
// covers any index an int can address.
const maxSegments = 48

// DefaultSegmentBase is the size of the first segment when no better
// guess is available.
const DefaultSegmentBase = 256

// Segments is a concurrent growable array addressed by absolute index.
//
// Segment k holds base<<k elements, so index i lives in a fixed place no
// matter when the array grows. Segments are allocated lazily with a CAS;
// concurrent writers to disjoint indices need no lock.
type Segments[T any] struct {
	base int
	segs [maxSegments]atomic.Pointer[[]T]
}

// NewSegments returns an empty array whose first segment holds base
// elements. Pass the expected length when it is known so that Slice can
// return the first segment without copying.
func NewSegments[T any](base int) *Segments[T] {
	if base <= 0 {
		base = DefaultSegmentBase
	}
	return &Segments[T]{base: base}
}

// locate maps an index to its segment and offset.
func (s *Segments[T]) locate(i int) (int, int) {
	j := i/s.base + 1
	k := bits.Len(uint(j)) - 1
	return k, i - s.base*((1<<k)-1)
}

func (s *Segments[T]) segment(k int) []T {
	if p := s.segs[k].Load(); p != nil {
		return *p
	}
	fresh := make([]T, s.base<<k)
	if s.segs[k].CompareAndSwap(nil, &fresh) {
		return fresh
	}
	return *s.segs[k].Load()
}

// Set stores v at index i, growing the array as needed.
func (s *Segments[T]) Set(i int, v T) {
	k, off := s.locate(i)
	s.segment(k)[off] = v
}

// Get returns the value at index i, or the zero value if i was never set.
func (s *Segments[T]) Get(i int) T {
	k, off := s.locate(i)
	p := s.segs[k].Load()
	if p == nil {
		var zero T
		return zero
	}
	return (*p)[off]
}

// Swap exchanges the values at i and j. Not safe for concurrent use.
func (s *Segments[T]) Swap(i, j int) {
	ki, oi := s.locate(i)
	kj, oj := s.locate(j)
	a, b := s.segment(ki), s.segment(kj)
	a[oi], b[oj] = b[oj], a[oi]
}

// Slice returns the first n values as one contiguous slice. When they all
// fit in the first segment no copy is made.
func (s *Segments[T]) Slice(n int) []T {
	if n <= 0 {
		return []T{}
	}
	if n <= s.base {
		return s.segment(0)[:n:n]
	}
	out := make([]T, 0, n)
	for k := 0; len(out) < n; k++ {
		seg := s.segment(k)
		out = append(out, seg[:min(len(seg), n-len(out))]...)
	}
	return out
}
