package core

import "fmt"

// ThreadCap bounds the number of workers a computation may use.
// The zero value lets the engine decide. A cap of 1 runs the computation
// sequentially on the calling goroutine without spawning anything.
type ThreadCap int

// AutoThreads lets the engine pick the worker count.
const AutoThreads ThreadCap = 0

// AtMost caps the worker count at n. Non-positive values map to AutoThreads.
func AtMost(n int) ThreadCap {
	if n <= 0 {
		return AutoThreads
	}
	return ThreadCap(n)
}

// IsAuto reports whether the engine decides the worker count.
func (c ThreadCap) IsAuto() bool {
	return c <= 0
}

// IsSequential reports whether the cap forces sequential execution.
func (c ThreadCap) IsSequential() bool {
	return c == 1
}

func (c ThreadCap) String() string {
	if c.IsAuto() {
		return "auto"
	}
	return fmt.Sprintf("at-most(%d)", int(c))
}

// ChunkKind selects how the chunk size of a computation is chosen.
type ChunkKind uint8

const (
	// ChunkAuto lets the engine choose a floor and grow it adaptively.
	ChunkAuto ChunkKind = iota
	// ChunkExact pulls exactly N items per batch (fewer at the end).
	ChunkExact
	// ChunkAtLeast uses N as the floor of the adaptive schedule.
	ChunkAtLeast
)

// ChunkSize is the batch size policy for pulling items from a source.
// The zero value is the automatic policy.
type ChunkSize struct {
	kind ChunkKind
	n    int
}

// AutoChunk returns the automatic chunk policy.
func AutoChunk() ChunkSize {
	return ChunkSize{}
}

// ExactChunk pins the chunk size at n. Non-positive values map to AutoChunk.
func ExactChunk(n int) ChunkSize {
	if n <= 0 {
		return AutoChunk()
	}
	return ChunkSize{kind: ChunkExact, n: n}
}

// MinChunk makes n the floor of the adaptive schedule. Non-positive values
// map to AutoChunk.
func MinChunk(n int) ChunkSize {
	if n <= 0 {
		return AutoChunk()
	}
	return ChunkSize{kind: ChunkAtLeast, n: n}
}

// Kind returns the policy kind.
func (c ChunkSize) Kind() ChunkKind {
	if c.n <= 0 {
		return ChunkAuto
	}
	return c.kind
}

// N returns the configured size, or 0 for the automatic policy.
func (c ChunkSize) N() int {
	if c.Kind() == ChunkAuto {
		return 0
	}
	return c.n
}

func (c ChunkSize) String() string {
	switch c.Kind() {
	case ChunkExact:
		return fmt.Sprintf("exact(%d)", c.n)
	case ChunkAtLeast:
		return fmt.Sprintf("at-least(%d)", c.n)
	default:
		return "auto"
	}
}

// Ordering controls whether a computation must reproduce input order.
type Ordering uint8

const (
	// Ordered results match a sequential run element for element.
	Ordered Ordering = iota
	// Arbitrary results may come back in any order, and find returns any match.
	Arbitrary
)

func (o Ordering) String() string {
	if o == Arbitrary {
		return "arbitrary"
	}
	return "ordered"
}

// Params are the execution parameters of one computation.
// They are immutable once a computation starts.
type Params struct {
	Threads  ThreadCap
	Chunk    ChunkSize
	Ordering Ordering
}

// Option is a functional option for building Params.
type Option func(*Params)

// WithThreads sets the thread cap: 0 = auto, 1 = sequential, n > 1 = at most n.
// Negative values are treated as auto.
func WithThreads(n int) Option {
	return func(p *Params) {
		p.Threads = AtMost(n)
	}
}

// WithChunk sets the chunk policy.
func WithChunk(c ChunkSize) Option {
	return func(p *Params) {
		p.Chunk = c
	}
}

// WithOrdering sets the ordering requirement.
func WithOrdering(o Ordering) Option {
	return func(p *Params) {
		p.Ordering = o
	}
}

// Sequential forces strictly sequential execution on the calling goroutine.
func Sequential() Option {
	return WithThreads(1)
}

// DefaultParams returns automatic thread and chunk selection with ordered results.
func DefaultParams() Params {
	return Params{}
}

// NewParams builds Params from options, starting from DefaultParams.
func NewParams(opts ...Option) Params {
	p := DefaultParams()
	for _, opt := range opts {
		opt(&p)
	}
	return p.Normalize()
}

// With returns a copy of p with the options applied.
func (p Params) With(opts ...Option) Params {
	for _, opt := range opts {
		opt(&p)
	}
	return p.Normalize()
}

// Normalize maps invalid values to their automatic counterparts.
func (p Params) Normalize() Params {
	if p.Threads < 0 {
		p.Threads = AutoThreads
	}
	if p.Chunk.n <= 0 {
		p.Chunk = AutoChunk()
	}
	if p.Ordering != Arbitrary {
		p.Ordering = Ordered
	}
	return p
}

func (p Params) String() string {
	return fmt.Sprintf("threads=%s chunk=%s ordering=%s", p.Threads, p.Chunk, p.Ordering)
}
