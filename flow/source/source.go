// Package source defines the concurrent pull sources a computation draws
// its input from, and the implementations shipped with parflow.
//
// A Source hands every item to exactly one puller together with the
// item's original index. Indices are assigned in pull order, so any item
// not yet pulled has a larger index than every item already pulled.
package source

import "fmt"

// HintKind classifies a LengthHint.
type HintKind uint8

const (
	// HintUnknown means nothing is known about the remaining length.
	HintUnknown HintKind = iota
	// HintAtLeast means at least N items remain.
	HintAtLeast
	// HintExactly means exactly N items remain.
	HintExactly
)

// LengthHint describes how many items a source has left.
// The zero value is an unknown length.
type LengthHint struct {
	kind HintKind
	n    int
}

// Unknown returns a hint for sources of unknown length.
func Unknown() LengthHint {
	return LengthHint{}
}

// AtLeast returns a hint for sources with at least n items left.
func AtLeast(n int) LengthHint {
	return LengthHint{kind: HintAtLeast, n: max(n, 0)}
}

// Exactly returns a hint for sources with exactly n items left.
func Exactly(n int) LengthHint {
	return LengthHint{kind: HintExactly, n: max(n, 0)}
}

// Kind returns the hint kind.
func (h LengthHint) Kind() HintKind {
	return h.kind
}

// Remaining returns the exact number of remaining items when it is known.
func (h LengthHint) Remaining() (int, bool) {
	if h.kind != HintExactly {
		return 0, false
	}
	return h.n, true
}

// Lower returns a lower bound on the number of remaining items.
func (h LengthHint) Lower() int {
	if h.kind == HintUnknown {
		return 0
	}
	return h.n
}

// IsEmpty reports whether the source is known to be exhausted.
func (h LengthHint) IsEmpty() bool {
	return h.kind == HintExactly && h.n == 0
}

func (h LengthHint) String() string {
	switch h.kind {
	case HintAtLeast:
		return fmt.Sprintf("at-least(%d)", h.n)
	case HintExactly:
		return fmt.Sprintf("exactly(%d)", h.n)
	default:
		return "unknown"
	}
}

// Source is a thread-safe pull source.
//
// PullOne and PullBatch may be called concurrently; every item is handed
// out exactly once. Stop is advisory: after it returns, pulls report
// exhaustion as soon as practicable. Stop is idempotent.
type Source[T any] interface {
	// LengthHint reports what is known about the remaining length.
	LengthHint() LengthHint

	// PullOne returns the next item and its index. ok is false once the
	// source is exhausted or stopped.
	PullOne() (index int, item T, ok bool)

	// PullBatch fills buf with up to len(buf) consecutive items and
	// returns the index of the first one and the count. A count of 0
	// means the source is exhausted or stopped.
	PullBatch(buf []T) (begin int, n int)

	// Stop asks the source to stop yielding.
	Stop()
}
