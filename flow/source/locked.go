package source

import (
	"iter"
	"sync"
	"sync/atomic"
)

// lockedSource serializes an inherently sequential producer behind a
// mutex. Index assignment happens under the same lock, so indices follow
// production order.
type lockedSource[T any] struct {
	mu      sync.Mutex
	next    func() (T, bool)
	release func()
	index   int
	done    bool
	stopped atomic.Bool
	// halt is closed by Stop so a producer blocked while holding mu can
	// give up and let Stop take the lock.
	halt chan struct{}
	hint LengthHint
}

func newLocked[T any](next func() (T, bool), release func(), hint LengthHint) *lockedSource[T] {
	return &lockedSource[T]{next: next, release: release, hint: hint, halt: make(chan struct{})}
}

func (s *lockedSource[T]) LengthHint() LengthHint {
	if s.stopped.Load() {
		return Exactly(0)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return Exactly(0)
	}
	switch s.hint.kind {
	case HintExactly:
		return Exactly(s.hint.n - s.index)
	case HintAtLeast:
		return AtLeast(s.hint.n - s.index)
	}
	return Unknown()
}

// finish marks the producer exhausted and releases it. Callers hold mu.
func (s *lockedSource[T]) finish() {
	if s.done {
		return
	}
	s.done = true
	if s.release != nil {
		s.release()
	}
}

func (s *lockedSource[T]) PullOne() (int, T, bool) {
	var zero T
	if s.stopped.Load() {
		return 0, zero, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return 0, zero, false
	}
	item, ok := s.next()
	if !ok {
		s.finish()
		return 0, zero, false
	}
	i := s.index
	s.index++
	return i, item, true
}

func (s *lockedSource[T]) PullBatch(buf []T) (int, int) {
	if len(buf) == 0 || s.stopped.Load() {
		return 0, 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return 0, 0
	}
	var n int
	for n < len(buf) && !s.stopped.Load() {
		item, ok := s.next()
		if !ok {
			s.finish()
			break
		}
		buf[n] = item
		n++
	}
	begin := s.index
	s.index += n
	return begin, n
}

// Stop waits for an in-flight pull to return, then releases the producer.
func (s *lockedSource[T]) Stop() {
	if s.stopped.Swap(true) {
		return
	}
	close(s.halt)
	s.mu.Lock()
	s.finish()
	s.mu.Unlock()
}

// FromSeq returns a Source over an iterator. The iterator is driven with
// iter.Pull and released once exhausted or stopped.
func FromSeq[T any](seq iter.Seq[T]) Source[T] {
	next, stop := iter.Pull(seq)
	return newLocked(next, stop, Unknown())
}

// FromSeqN is FromSeq for iterators known to yield exactly n items.
func FromSeqN[T any](seq iter.Seq[T], n int) Source[T] {
	next, stop := iter.Pull(seq)
	return newLocked(next, stop, Exactly(n))
}

// FromChan returns a Source draining ch until it is closed.
// Stop does not drain or close ch, but it does interrupt a pull blocked
// on an empty channel.
func FromChan[T any](ch <-chan T) Source[T] {
	s := newLocked[T](nil, nil, Unknown())
	s.next = func() (T, bool) {
		select {
		case v, ok := <-ch:
			return v, ok
		case <-s.halt:
			var zero T
			return zero, false
		}
	}
	return s
}

// FromFunc returns a Source over a generator; next reports false when
// there are no more items. next is never called concurrently.
func FromFunc[T any](next func() (T, bool)) Source[T] {
	return newLocked(next, nil, Unknown())
}

// WithLength overrides the length hint of a sequential producer whose
// total is known up front, e.g. a query whose row count was fetched
// separately. The hint shrinks as items are pulled.
func WithLength[T any](next func() (T, bool), n int) Source[T] {
	return newLocked(next, nil, Exactly(n))
}
