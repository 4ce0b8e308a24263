package source

import "sync"

// mapped projects the items of another source; indices are unchanged.
type mapped[S, T any] struct {
	src  Source[S]
	f    func(S) T
	bufs sync.Pool
}

// Map returns a Source yielding f(item) for every item of src, with the
// same indices. f runs on the pulling goroutine and must be safe for
// concurrent use.
func Map[S, T any](src Source[S], f func(S) T) Source[T] {
	return &mapped[S, T]{src: src, f: f}
}

func (m *mapped[S, T]) LengthHint() LengthHint {
	return m.src.LengthHint()
}

func (m *mapped[S, T]) PullOne() (int, T, bool) {
	i, item, ok := m.src.PullOne()
	if !ok {
		var zero T
		return 0, zero, false
	}
	return i, m.f(item), true
}

func (m *mapped[S, T]) PullBatch(buf []T) (int, int) {
	var in []S
	if p, ok := m.bufs.Get().(*[]S); ok && cap(*p) >= len(buf) {
		in = (*p)[:len(buf)]
	} else {
		in = make([]S, len(buf))
	}
	defer m.bufs.Put(&in)

	begin, n := m.src.PullBatch(in)
	for k := range n {
		buf[k] = m.f(in[k])
	}
	return begin, n
}

func (m *mapped[S, T]) Stop() {
	m.src.Stop()
}
