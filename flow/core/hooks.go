package core

import (
	"context"
	"time"
)

// Stats describes one finished computation.
type Stats struct {
	Mode       string // consumption mode: reduce, fold, count, find, collect, ...
	Params     Params
	MaxThreads int   // resolved thread bound, calling goroutine included
	Workers    int   // workers that ran, calling goroutine included
	Chunks     int64 // batches pulled from the source
	Items      int64 // source items pulled
	Stopped    bool  // a stop was requested before the source ran dry
	Failed     bool  // the computation returned an error
	Start, End time.Time
}

// Duration returns the wall-clock time of the computation.
func (s Stats) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// ItemsPerSecond returns the pull throughput of the computation.
func (s Stats) ItemsPerSecond() float64 {
	d := s.Duration().Seconds()
	if d <= 0 {
		return 0
	}
	return float64(s.Items) / d
}

// Hooks holds observation callbacks for computations.
// All fields are optional. Hooks run synchronously: OnStart and
// OnComplete on the calling goroutine, OnSpawn and OnStop on whichever
// goroutine triggers them, so they must be cheap and safe for concurrent use.
type Hooks struct {
	OnStart    func(mode string, p Params) // schedule resolved, before any pull
	OnSpawn    func(workers int)           // a burst was spawned; workers is the running total
	OnStop     func()                      // a stop was requested
	OnComplete func(Stats)                 // all workers joined
}

// hooksContainer holds multiple hook sets for FIFO invocation.
type hooksContainer struct {
	hookSets []*Hooks
}

// WithHooks attaches hooks to the context. Multiple calls compose in FIFO
// order: hooks from earlier calls run first.
func WithHooks(ctx context.Context, hooks Hooks) context.Context {
	if ctx == nil {
		panic("nil context")
	}

	existing, _ := Lookup[*hooksContainer](ctx)
	if existing == nil {
		return WithValue(ctx, &hooksContainer{hookSets: []*Hooks{&hooks}})
	}

	next := &hooksContainer{hookSets: make([]*Hooks, len(existing.hookSets)+1)}
	copy(next.hookSets, existing.hookSets)
	next.hookSets[len(existing.hookSets)] = &hooks
	return WithValue(ctx, next)
}

// HookInvoker calls the hooks registered on a context. It caches which
// callbacks exist so a computation without hooks pays one branch per event.
type HookInvoker struct {
	container   *hooksContainer
	hasStart    bool
	hasSpawn    bool
	hasStop     bool
	hasComplete bool
}

// Invoker returns the invoker for the hooks attached to ctx.
// Build it once per computation.
func Invoker(ctx context.Context) HookInvoker {
	container, _ := Lookup[*hooksContainer](ctx)
	if container == nil {
		return HookInvoker{}
	}

	inv := HookInvoker{container: container}
	for _, h := range container.hookSets {
		inv.hasStart = inv.hasStart || h.OnStart != nil
		inv.hasSpawn = inv.hasSpawn || h.OnSpawn != nil
		inv.hasStop = inv.hasStop || h.OnStop != nil
		inv.hasComplete = inv.hasComplete || h.OnComplete != nil
	}
	return inv
}

// Start calls every OnStart hook.
func (h HookInvoker) Start(mode string, p Params) {
	if !h.hasStart {
		return
	}
	for _, hooks := range h.container.hookSets {
		if hooks.OnStart != nil {
			hooks.OnStart(mode, p)
		}
	}
}

// Spawn calls every OnSpawn hook.
func (h HookInvoker) Spawn(workers int) {
	if !h.hasSpawn {
		return
	}
	for _, hooks := range h.container.hookSets {
		if hooks.OnSpawn != nil {
			hooks.OnSpawn(workers)
		}
	}
}

// Stop calls every OnStop hook.
func (h HookInvoker) Stop() {
	if !h.hasStop {
		return
	}
	for _, hooks := range h.container.hookSets {
		if hooks.OnStop != nil {
			hooks.OnStop()
		}
	}
}

// Complete calls every OnComplete hook.
func (h HookInvoker) Complete(s Stats) {
	if !h.hasComplete {
		return
	}
	for _, hooks := range h.container.hookSets {
		if hooks.OnComplete != nil {
			hooks.OnComplete(s)
		}
	}
}

// HasAny reports whether any hook is registered.
func (h HookInvoker) HasAny() bool {
	return h.container != nil
}

// SafeHooks wraps every callback of hooks with panic recovery. A panicking
// hook is reported to panicHandler instead of crashing the computation.
// A nil panicHandler silently drops the panic.
func SafeHooks(hooks Hooks, panicHandler func(any)) Hooks {
	if panicHandler == nil {
		panicHandler = func(any) {}
	}
	guard := func() {
		if r := recover(); r != nil {
			panicHandler(r)
		}
	}

	var safe Hooks
	if f := hooks.OnStart; f != nil {
		safe.OnStart = func(mode string, p Params) {
			defer guard()
			f(mode, p)
		}
	}
	if f := hooks.OnSpawn; f != nil {
		safe.OnSpawn = func(n int) {
			defer guard()
			f(n)
		}
	}
	if f := hooks.OnStop; f != nil {
		safe.OnStop = func() {
			defer guard()
			f()
		}
	}
	if f := hooks.OnComplete; f != nil {
		safe.OnComplete = func(s Stats) {
			defer guard()
			f(s)
		}
	}
	return safe
}

// WithSafeHooks is WithHooks(ctx, SafeHooks(hooks, panicHandler)).
func WithSafeHooks(ctx context.Context, hooks Hooks, panicHandler func(any)) context.Context {
	return WithHooks(ctx, SafeHooks(hooks, panicHandler))
}
