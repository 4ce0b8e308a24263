package observe

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/lguimbarda/parflow/flow/core"
)

// This file provides convenience functions on top of core.WithHooks.
//
//	ctx, counter := observe.WithCounter(ctx)
//	ctx = observe.WithStatsHook(ctx, func(s core.Stats) { log.Println(s.Items) })
//	total, err := flow.Sum(ctx, src, pipe)

// WithStatsHook calls fn with the statistics of every computation started
// with the returned context.
func WithStatsHook(ctx context.Context, fn func(core.Stats)) context.Context {
	return core.WithHooks(ctx, core.Hooks{OnComplete: fn})
}

// WithStartHook calls fn when a computation has resolved its schedule.
func WithStartHook(ctx context.Context, fn func(mode string, p core.Params)) context.Context {
	return core.WithHooks(ctx, core.Hooks{OnStart: fn})
}

// WithStopHook calls fn whenever a computation requests its source to stop.
func WithStopHook(ctx context.Context, fn func()) context.Context {
	return core.WithHooks(ctx, core.Hooks{OnStop: fn})
}

// Counter accumulates totals across computations.
type Counter struct {
	runs    atomic.Int64
	items   atomic.Int64
	chunks  atomic.Int64
	stopped atomic.Int64
	failed  atomic.Int64
}

// Runs returns the number of finished computations.
func (c *Counter) Runs() int64 { return c.runs.Load() }

// Items returns the number of source items pulled.
func (c *Counter) Items() int64 { return c.items.Load() }

// Chunks returns the number of batches pulled.
func (c *Counter) Chunks() int64 { return c.chunks.Load() }

// Stopped returns the number of computations that stopped early.
func (c *Counter) Stopped() int64 { return c.stopped.Load() }

// Failed returns the number of computations that returned an error.
func (c *Counter) Failed() int64 { return c.failed.Load() }

func (c *Counter) record(s core.Stats) {
	c.runs.Add(1)
	c.items.Add(s.Items)
	c.chunks.Add(s.Chunks)
	if s.Stopped {
		c.stopped.Add(1)
	}
	if s.Failed {
		c.failed.Add(1)
	}
}

// WithCounter attaches a Counter and returns it for querying.
func WithCounter(ctx context.Context) (context.Context, *Counter) {
	counter := &Counter{}
	return WithStatsHook(ctx, counter.record), counter
}

// Recorder keeps the statistics of every finished computation.
type Recorder struct {
	mu    sync.Mutex
	stats []core.Stats
}

// All returns a copy of the recorded statistics in completion order.
func (r *Recorder) All() []core.Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]core.Stats(nil), r.stats...)
}

// Last returns the most recent statistics.
func (r *Recorder) Last() (core.Stats, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.stats) == 0 {
		return core.Stats{}, false
	}
	return r.stats[len(r.stats)-1], true
}

// WithRecorder attaches a Recorder and returns it for querying.
func WithRecorder(ctx context.Context) (context.Context, *Recorder) {
	rec := &Recorder{}
	return WithStatsHook(ctx, func(s core.Stats) {
		rec.mu.Lock()
		rec.stats = append(rec.stats, s)
		rec.mu.Unlock()
	}), rec
}
