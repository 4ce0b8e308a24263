package aggregate

import (
	"sync"

	"github.com/lguimbarda/parflow/flow/source"
)

// batched groups consecutive items of an inner source into slices.
// Batches are cut under a lock, so batch indices follow source order.
type batched[T any] struct {
	src  source.Source[T]
	size int

	mu    sync.Mutex
	index int
}

// Batch returns a source whose items are consecutive batches of size
// items of src; the last batch may be shorter. Pipelines over the result
// see one batch per item, which suits per-batch work such as bulk
// inserts.
func Batch[T any](src source.Source[T], size int) source.Source[[]T] {
	if size <= 0 {
		panic("aggregate: batch size must be positive")
	}
	return &batched[T]{src: src, size: size}
}

func (b *batched[T]) LengthHint() source.LengthHint {
	h := b.src.LengthHint()
	switch h.Kind() {
	case source.HintExactly:
		n, _ := h.Remaining()
		return source.Exactly((n + b.size - 1) / b.size)
	case source.HintAtLeast:
		return source.AtLeast((h.Lower() + b.size - 1) / b.size)
	}
	return source.Unknown()
}

// next pulls one batch. Callers hold mu.
func (b *batched[T]) next() ([]T, bool) {
	buf := make([]T, b.size)
	n := 0
	for n < b.size {
		_, got := b.src.PullBatch(buf[n:])
		if got == 0 {
			break
		}
		n += got
	}
	if n == 0 {
		return nil, false
	}
	return buf[:n:n], true
}

func (b *batched[T]) PullOne() (int, []T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	batch, ok := b.next()
	if !ok {
		return 0, nil, false
	}
	i := b.index
	b.index++
	return i, batch, true
}

func (b *batched[T]) PullBatch(buf [][]T) (int, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for n < len(buf) {
		batch, ok := b.next()
		if !ok {
			break
		}
		buf[n] = batch
		n++
	}
	begin := b.index
	b.index += n
	return begin, n
}

func (b *batched[T]) Stop() {
	b.src.Stop()
}
