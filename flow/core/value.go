package core

import "iter"

// Cardinality is the number of items a Value carries.
type Cardinality uint8

const (
	// CardEmpty carries no item (filtered out, or a bare stop).
	CardEmpty Cardinality = iota
	// CardOne carries exactly one item.
	CardOne
	// CardMany carries zero or more items produced by a flat expansion.
	CardMany
)

func (c Cardinality) String() string {
	switch c {
	case CardOne:
		return "one"
	case CardMany:
		return "many"
	default:
		return "empty"
	}
}

// Status is the stop tag of a Value.
type Status uint8

const (
	// Continue lets the worker keep pulling.
	Continue Status = iota
	// Stopped ends the computation without an error, e.g. a while-condition
	// turned false. Items carried by the Value precede the stop.
	Stopped
	// Failed ends the computation with the error returned by Value.Err.
	Failed
)

func (s Status) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Failed:
		return "failed"
	default:
		return "continue"
	}
}

// Value is the outcome of running a pipeline over one input item.
//
// It combines a cardinality (empty, one, many) with a stop tag. The same
// shape serves infallible pipelines (never stopped), optional pipelines
// (stopped without an error) and fallible pipelines (failed with an error).
// Items carried by a stopped Value come before the stop point in sequential
// order and are still consumed.
//
// A Value lives for one pipeline step inside one worker; it must not be
// retained after the step.
type Value[T any] struct {
	one    T
	many   []T
	card   Cardinality
	status Status
	err    error
}

// Empty returns a continuing Value without items.
func Empty[T any]() Value[T] {
	return Value[T]{}
}

// One returns a continuing Value carrying v.
func One[T any](v T) Value[T] {
	return Value[T]{one: v, card: CardOne}
}

// Many returns a continuing Value carrying vs. An empty slice yields Empty.
func Many[T any](vs []T) Value[T] {
	if len(vs) == 0 {
		return Value[T]{}
	}
	return Value[T]{many: vs, card: CardMany}
}

// Stop returns a Value that ends the computation without an error.
func Stop[T any]() Value[T] {
	return Value[T]{status: Stopped}
}

// Fail returns a Value that ends the computation with err.
// A nil err is treated as Stop.
func Fail[T any](err error) Value[T] {
	if err == nil {
		return Stop[T]()
	}
	return Value[T]{status: Failed, err: err}
}

// Cardinality returns the cardinality tag.
func (v Value[T]) Cardinality() Cardinality {
	return v.card
}

// Status returns the stop tag.
func (v Value[T]) Status() Status {
	return v.status
}

// IsStop reports whether the Value ends the computation.
func (v Value[T]) IsStop() bool {
	return v.status != Continue
}

// Err returns the error of a failed Value, nil otherwise.
func (v Value[T]) Err() error {
	return v.err
}

// Len returns the number of items carried.
func (v Value[T]) Len() int {
	switch v.card {
	case CardOne:
		return 1
	case CardMany:
		return len(v.many)
	default:
		return 0
	}
}

// All iterates the carried items in order.
func (v Value[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		switch v.card {
		case CardOne:
			yield(v.one)
		case CardMany:
			for _, item := range v.many {
				if !yield(item) {
					return
				}
			}
		}
	}
}

// AppendTo appends the carried items to dst.
func (v Value[T]) AppendTo(dst []T) []T {
	switch v.card {
	case CardOne:
		return append(dst, v.one)
	case CardMany:
		return append(dst, v.many...)
	}
	return dst
}

// withTag copies the stop tag of v onto out.
func withTag[T, U any](out Value[U], v Value[T]) Value[U] {
	out.status = v.status
	out.err = v.err
	return out
}

// Map applies f to every carried item. The stop tag is preserved.
func Map[T, U any](v Value[T], f func(T) U) Value[U] {
	var out Value[U]
	switch v.card {
	case CardOne:
		out = One(f(v.one))
	case CardMany:
		mapped := make([]U, len(v.many))
		for i, item := range v.many {
			mapped[i] = f(item)
		}
		out = Many(mapped)
	}
	return withTag(out, v)
}

// Filter keeps the carried items that satisfy pred. The stop tag is preserved.
func Filter[T any](v Value[T], pred func(T) bool) Value[T] {
	switch v.card {
	case CardOne:
		if pred(v.one) {
			return v
		}
		return withTag(Empty[T](), v)
	case CardMany:
		kept := make([]T, 0, len(v.many))
		for _, item := range v.many {
			if pred(item) {
				kept = append(kept, item)
			}
		}
		return withTag(Many(kept), v)
	}
	return v
}

// FlatExpand replaces every carried item with the items f returns.
// The stop tag is preserved.
func FlatExpand[T, U any](v Value[T], f func(T) []U) Value[U] {
	var out Value[U]
	switch v.card {
	case CardOne:
		out = Many(f(v.one))
	case CardMany:
		var expanded []U
		for _, item := range v.many {
			expanded = append(expanded, f(item)...)
		}
		out = Many(expanded)
	}
	return withTag(out, v)
}

// FilterMap maps every carried item with f and keeps those for which f
// reports true. The stop tag is preserved.
func FilterMap[T, U any](v Value[T], f func(T) (U, bool)) Value[U] {
	switch v.card {
	case CardOne:
		if u, ok := f(v.one); ok {
			return withTag(One(u), v)
		}
	case CardMany:
		kept := make([]U, 0, len(v.many))
		for _, item := range v.many {
			if u, ok := f(item); ok {
				kept = append(kept, u)
			}
		}
		return withTag(Many(kept), v)
	}
	return withTag(Empty[U](), v)
}

// TryMap applies a fallible f to every carried item. The first error fails
// the Value; items mapped before the failing one are kept ahead of it.
func TryMap[T, U any](v Value[T], f func(T) (U, error)) Value[U] {
	switch v.card {
	case CardOne:
		u, err := f(v.one)
		if err != nil {
			return Fail[U](err)
		}
		return withTag(One(u), v)
	case CardMany:
		mapped := make([]U, 0, len(v.many))
		for _, item := range v.many {
			u, err := f(item)
			if err != nil {
				out := Many(mapped)
				out.status, out.err = Failed, err
				return out
			}
			mapped = append(mapped, u)
		}
		return withTag(Many(mapped), v)
	}
	return withTag(Empty[U](), v)
}

// While keeps carried items as long as pred holds. The first item failing
// pred, and everything after it, is dropped and the Value is stopped.
func While[T any](v Value[T], pred func(T) bool) Value[T] {
	switch v.card {
	case CardOne:
		if pred(v.one) {
			return v
		}
		return stopAt(Empty[T]())
	case CardMany:
		for i, item := range v.many {
			if !pred(item) {
				return stopAt(Many(v.many[:i:i]))
			}
		}
	}
	return v
}

// MapWhile maps carried items with f until f reports false, which stops
// the Value at that item.
func MapWhile[T, U any](v Value[T], f func(T) (U, bool)) Value[U] {
	switch v.card {
	case CardOne:
		if u, ok := f(v.one); ok {
			return withTag(One(u), v)
		}
		return stopAt(Empty[U]())
	case CardMany:
		mapped := make([]U, 0, len(v.many))
		for _, item := range v.many {
			u, ok := f(item)
			if !ok {
				return stopAt(Many(mapped))
			}
			mapped = append(mapped, u)
		}
		return withTag(Many(mapped), v)
	}
	return withTag(Empty[U](), v)
}

// stopAt marks out as stopped. Any failure tagged on the input lies after
// the dropped item and is discarded with it.
func stopAt[U any](out Value[U]) Value[U] {
	out.status = Stopped
	out.err = nil
	return out
}

// FoldInto folds the carried items into acc with combine. It reports
// whether the caller must stop pulling.
func FoldInto[T, A any](v Value[T], acc A, combine func(A, T) A) (A, bool) {
	switch v.card {
	case CardOne:
		acc = combine(acc, v.one)
	case CardMany:
		for _, item := range v.many {
			acc = combine(acc, item)
		}
	}
	return acc, v.IsStop()
}

// ReduceInto is FoldInto for accumulators without an identity: has reports
// whether acc holds a value yet. The first carried item seeds acc.
func ReduceInto[T any](v Value[T], acc T, has bool, combine func(T, T) T) (T, bool, bool) {
	for item := range v.All() {
		if !has {
			acc, has = item, true
			continue
		}
		acc = combine(acc, item)
	}
	return acc, has, v.IsStop()
}

// Sink receives deposited items. position is the absolute index of the
// source item the Value was computed from.
type Sink[T any] interface {
	Put(position int, item T)
}

// Deposit writes the carried items into sink and reports whether the
// caller must stop pulling.
func Deposit[T any](v Value[T], sink Sink[T], position int) bool {
	switch v.card {
	case CardOne:
		sink.Put(position, v.one)
	case CardMany:
		for _, item := range v.many {
			sink.Put(position, item)
		}
	}
	return v.IsStop()
}

// First extracts at most one item for find-style consumption. found
// reports whether an item was carried; stop reports whether the Value
// stopped the computation before yielding one.
func First[T any](v Value[T]) (item T, found bool, stop bool) {
	switch v.card {
	case CardOne:
		return v.one, true, false
	case CardMany:
		if len(v.many) > 0 {
			return v.many[0], true, false
		}
	}
	return item, false, v.IsStop()
}
