package sink

import "sync/atomic"

// Positional is the sink behind ordered collection of pipelines that emit
// at most one item per input.
//
// Workers reserve output slots in arrival order through an atomic
// counter, so the output stays dense even when items are filtered out.
// Two index maps remember the pairing: input index to slot (stored as
// slot+1, zero meaning "no output") and slot to input index. Once every
// worker has finished, Compact permutes the outputs into input order in
// place.
type Positional[T any] struct {
	out     *Segments[T]
	slotOf  *Segments[int]
	inputOf *Segments[int]
	next    atomic.Int64
}

// NewPositional returns an empty sink. sizeHint is the expected number of
// inputs, or 0 if unknown.
func NewPositional[T any](sizeHint int) *Positional[T] {
	return &Positional[T]{
		out:     NewSegments[T](sizeHint),
		slotOf:  NewSegments[int](sizeHint),
		inputOf: NewSegments[int](sizeHint),
	}
}

// Reserve claims the next free output slot.
func (p *Positional[T]) Reserve() int {
	return int(p.next.Add(1) - 1)
}

// Put stores the output for input index input. At most one item may be
// put per input.
func (p *Positional[T]) Put(input int, item T) {
	slot := p.Reserve()
	p.out.Set(slot, item)
	p.inputOf.Set(slot, input)
	p.slotOf.Set(input, slot+1)
}

// Len returns the number of items put so far.
func (p *Positional[T]) Len() int {
	return int(p.next.Load())
}

// Compact reorders the outputs by input index and returns those whose
// input index is below limit. Pass a negative limit to keep everything.
//
// It walks inputs in order keeping a running "next" slot. An input whose
// output sits elsewhere has it swapped into place, and both index maps are
// patched for the input that previously owned the slot. That input is
// always later in input order, so every input is visited once.
//
// Compact must only run after all writers have finished.
func (p *Positional[T]) Compact(limit int) []T {
	total := p.Len()
	next := 0
	for i := 0; next < total && (limit < 0 || i < limit); i++ {
		enc := p.slotOf.Get(i)
		if enc == 0 {
			continue
		}
		slot := enc - 1
		if slot != next {
			displaced := p.inputOf.Get(next)
			p.out.Swap(slot, next)
			p.inputOf.Swap(slot, next)
			p.slotOf.Set(i, next+1)
			p.slotOf.Set(displaced, slot+1)
		}
		next++
	}
	return p.out.Slice(next)
}
