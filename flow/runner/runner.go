// Package runner is the scheduling engine: it resolves how many workers
// and how large a chunk a computation uses, drives the workers' pull
// loops, and assembles their partial results.
package runner

import (
	"context"
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc/panics"
	"go.uber.org/zap"

	"github.com/lguimbarda/parflow/flow/core"
	"github.com/lguimbarda/parflow/flow/executor"
	"github.com/lguimbarda/parflow/flow/observe"
	"github.com/lguimbarda/parflow/flow/source"
)

// DefaultSpawnDelay is the pause between spawn bursts.
const DefaultSpawnDelay = 20 * time.Microsecond

// Runner executes computations. A Runner holds no per-computation state
// and is safe for concurrent use.
type Runner struct {
	exec         executor.Executor
	logger       *zap.Logger
	instruments  *observe.Instruments
	statsHooks   []func(core.Stats)
	spawnDelay   time.Duration
	threadLimit  int
	cpus         int
	panicAsError bool
}

// Option configures a Runner.
type Option func(*Runner)

// WithExecutor runs spawned workers on exec instead of fresh goroutines.
func WithExecutor(exec executor.Executor) Option {
	return func(r *Runner) {
		if exec != nil {
			r.exec = exec
		}
	}
}

// WithLogger sets the logger. The default logs nothing.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithInstruments reports every computation to the given instruments.
func WithInstruments(in *observe.Instruments) Option {
	return func(r *Runner) {
		r.instruments = in
	}
}

// WithStatsHook calls fn with the statistics of every computation.
func WithStatsHook(fn func(core.Stats)) Option {
	return func(r *Runner) {
		if fn != nil {
			r.statsHooks = append(r.statsHooks, fn)
		}
	}
}

// WithSpawnDelay sets the pause between spawn bursts. Zero spawns every
// worker at once.
func WithSpawnDelay(d time.Duration) Option {
	return func(r *Runner) {
		r.spawnDelay = max(d, 0)
	}
}

// WithThreadLimit caps the thread count of every computation, whatever
// its own parameters ask for. n <= 0 removes the cap.
func WithThreadLimit(n int) Option {
	return func(r *Runner) {
		r.threadLimit = max(n, 0)
	}
}

// WithCPUs overrides the detected hardware parallelism.
func WithCPUs(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.cpus = n
		}
	}
}

// WithPanicAsError makes a crashed worker surface as a core.ErrPanic error
// instead of re-panicking on the calling goroutine.
func WithPanicAsError() Option {
	return func(r *Runner) {
		r.panicAsError = true
	}
}

// New returns a Runner.
func New(opts ...Option) *Runner {
	r := &Runner{
		exec:       executor.Goroutines(),
		logger:     zap.NewNop(),
		spawnDelay: DefaultSpawnDelay,
		cpus:       runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var defaultRunner = New()

// Default returns the shared Runner with default options.
func Default() *Runner {
	return defaultRunner
}

// Logger returns the runner's logger.
func (r *Runner) Logger() *zap.Logger {
	return r.logger
}

// limit applies the runner-wide thread cap to p.
func (r *Runner) limit(p core.Params) core.Params {
	p = p.Normalize()
	if r.threadLimit > 0 && (p.Threads.IsAuto() || int(p.Threads) > r.threadLimit) {
		p.Threads = core.AtMost(r.threadLimit)
	}
	return p
}

// consumer is one worker's view of a consumption mode.
type consumer[T any] interface {
	// consume processes a batch whose first item has source index begin.
	// It returns true once the worker must stop pulling.
	consume(begin int, batch []T) bool
	// done publishes the worker's partial result. It is not called for a
	// worker that crashed.
	done()
}

// computation is the shared state of one run.
type computation[T any] struct {
	ctx   context.Context
	r     *Runner
	mode  string
	src   source.Source[T]
	sched Schedule
	live  *observe.Live
	hooks core.HookInvoker

	exhausted atomic.Bool
	stopping  atomic.Bool
	// drained is set when the source ran dry before any stop request,
	// i.e. every item was pulled and consumed.
	drained atomic.Bool
	// canceled is set when ctx cancellation was the first stop request.
	canceled atomic.Bool
	// horizon is the smallest index past which no output can matter:
	// the earliest pipeline stop, or the earliest find in ordered mode.
	horizon atomic.Int64

	mu      sync.Mutex
	stopIdx int // earliest pipeline stop, math.MaxInt if none
	stopErr error
}

// finished reports whether spawning more workers is pointless.
func (c *computation[T]) finished() bool {
	if c.exhausted.Load() || c.stopping.Load() {
		return true
	}
	return c.sched.Total >= 0 && c.live.Items() >= int64(c.sched.Total)
}

// requestStop asks the source to stop yielding. Only the first call has
// an effect; it reports whether this call was that one.
func (c *computation[T]) requestStop() bool {
	if !c.stopping.CompareAndSwap(false, true) {
		return false
	}
	c.src.Stop()
	c.live.MarkStopped()
	c.hooks.Stop()
	c.r.logger.Debug("stop requested",
		zap.String("mode", c.mode),
		zap.Int64("items_pulled", c.live.Items()),
	)
	return true
}

// lowerHorizon moves the horizon down to idx.
func (c *computation[T]) lowerHorizon(idx int) {
	for {
		cur := c.horizon.Load()
		if int64(idx) >= cur || c.horizon.CompareAndSwap(cur, int64(idx)) {
			return
		}
	}
}

// stopAt records that the pipeline stopped at source index idx, failing
// with err if it is non-nil. The earliest stop wins.
func (c *computation[T]) stopAt(idx int, err error) {
	c.mu.Lock()
	if idx < c.stopIdx {
		c.stopIdx = idx
		c.stopErr = err
	}
	c.mu.Unlock()
	c.lowerHorizon(idx)
	c.requestStop()
}

// stopped returns the earliest pipeline stop, if any.
func (c *computation[T]) stopped() (int, error, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopIdx, c.stopErr, c.stopIdx != math.MaxInt
}

// err returns the per-item failure of the computation as a StopError.
func (c *computation[T]) err() error {
	idx, err, ok := c.stopped()
	if !ok || err == nil {
		return nil
	}
	return &core.StopError{Index: idx, Err: err}
}

// keep reports whether output produced for source index idx belongs to
// the result.
func (c *computation[T]) keep(idx int) bool {
	stop, _, ok := c.stopped()
	return !ok || idx <= stop
}

// work is one worker's pull loop.
func (c *computation[T]) work(cons consumer[T]) {
	completed := false
	defer func() {
		if !completed {
			// Crashing: let the other workers wind down.
			c.requestStop()
		}
	}()

	c.live.AddWorker()
	var buf []T
	for !c.stopping.Load() {
		size := c.sched.Next(c.live.Items(), c.live.Workers())
		if cap(buf) < size {
			buf = make([]T, size)
		}
		begin, n := c.src.PullBatch(buf[:size])
		if n == 0 {
			c.exhausted.Store(true)
			if !c.stopping.Load() {
				c.drained.Store(true)
			}
			break
		}
		c.live.AddChunk(n)
		if int64(begin) > c.horizon.Load() {
			break
		}
		if cons.consume(begin, buf[:n]) {
			break
		}
	}
	cons.done()
	completed = true
}

// delay pauses between spawn bursts, returning early once spawning more
// workers is pointless.
func (c *computation[T]) delay() {
	if c.r.spawnDelay <= 0 {
		return
	}
	deadline := time.Now().Add(c.r.spawnDelay)
	for time.Now().Before(deadline) {
		if c.finished() {
			return
		}
		runtime.Gosched()
	}
}

// run executes one computation: it spawns workers in bursts, runs the last
// worker on the calling goroutine and joins everything. The returned
// computation exposes the stop state for result assembly.
func run[T any](ctx context.Context, r *Runner, mode string, p core.Params, src source.Source[T], newConsumer func(*computation[T]) consumer[T]) (*computation[T], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p = r.limit(p)
	hint := src.LengthHint()
	c := &computation[T]{
		ctx:     ctx,
		r:       r,
		mode:    mode,
		src:     src,
		sched:   Resolve(p, hint, r.cpus),
		live:    observe.NewLive(),
		hooks:   core.Invoker(ctx),
		stopIdx: math.MaxInt,
	}
	c.horizon.Store(math.MaxInt64)

	c.hooks.Start(mode, p)
	r.logger.Debug("computation scheduled",
		zap.String("mode", mode),
		zap.Stringer("params", p),
		zap.Stringer("hint", hint),
		zap.Stringer("schedule", c.sched),
	)

	watched := make(chan struct{})
	cancelWatch := context.AfterFunc(ctx, func() {
		defer close(watched)
		if c.requestStop() {
			c.canceled.Store(true)
		}
	})

	var handles []executor.Handle
	for spawned := 0; spawned < c.sched.MaxThreads-1 && !c.finished(); {
		burst := min(BurstSize, c.sched.MaxThreads-1-spawned)
		for range burst {
			handles = append(handles, r.exec.Spawn(func() {
				c.work(newConsumer(c))
			}))
		}
		spawned += burst
		c.hooks.Spawn(spawned + 1)
		r.logger.Debug("spawned workers",
			zap.String("mode", mode),
			zap.Int("burst", burst),
			zap.Int("spawned", spawned),
		)
		c.delay()
	}

	var crash error
	if rec := panics.Try(func() { c.work(newConsumer(c)) }); rec != nil {
		crash = core.PanicErrorWithStack(rec.Value, string(rec.Stack))
	}
	for _, h := range handles {
		if err := h.Join(); err != nil && crash == nil {
			crash = err
		}
	}
	if !cancelWatch() {
		<-watched
	}
	// A cancellation that arrived after the source ran dry cut nothing short.
	canceled := c.canceled.Load() && !c.drained.Load()

	var err error
	switch {
	case crash != nil:
		err = crash
	case canceled:
		err = ctx.Err()
	default:
		err = c.err()
	}
	complete(c, p, err)

	if crash != nil {
		r.logger.Warn("worker crashed",
			zap.String("mode", mode),
			zap.Error(crash),
		)
		if !r.panicAsError {
			panic(crash)
		}
	}
	if crash != nil || canceled {
		return nil, err
	}
	return c, nil
}

// complete reports the statistics of a finished computation to the
// runner's hooks and instruments and to the hooks attached to its context.
func complete[T any](c *computation[T], p core.Params, err error) {
	stats := c.live.Snapshot(c.mode, p, c.sched.MaxThreads, err != nil)
	c.r.logger.Debug("computation finished",
		zap.String("mode", c.mode),
		zap.Int("workers", stats.Workers),
		zap.Int64("chunks", stats.Chunks),
		zap.Int64("items", stats.Items),
		zap.Bool("stopped", stats.Stopped),
		zap.Duration("duration", stats.Duration()),
		zap.Error(err),
	)
	for _, fn := range c.r.statsHooks {
		fn(stats)
	}
	if c.r.instruments != nil {
		c.r.instruments.Record(context.WithoutCancel(c.ctx), stats)
	}
	c.hooks.Complete(stats)
}
