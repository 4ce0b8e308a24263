// Package observe provides observability for computations: live counters
// the scheduler updates while workers run, context hooks that receive the
// final statistics, and OpenTelemetry instruments.
package observe

import (
	"sync/atomic"
	"time"

	"github.com/lguimbarda/parflow/flow/core"
)

// Live holds counters updated concurrently while a computation runs.
// The scheduler reads them to size chunks; they can also be polled from
// another goroutine for progress reporting.
type Live struct {
	workers   atomic.Int64
	chunks    atomic.Int64
	items     atomic.Int64
	startTime atomic.Int64 // Unix nano
	stopped   atomic.Bool
}

// NewLive returns counters with the start time set to now.
func NewLive() *Live {
	l := &Live{}
	l.startTime.Store(time.Now().UnixNano())
	return l
}

// AddWorker records a started worker and returns the new total.
func (l *Live) AddWorker() int64 { return l.workers.Add(1) }

// AddChunk records one pulled batch of n items and returns the total
// number of items pulled so far.
func (l *Live) AddChunk(n int) int64 {
	l.chunks.Add(1)
	return l.items.Add(int64(n))
}

// MarkStopped records that a stop was requested.
func (l *Live) MarkStopped() { l.stopped.Store(true) }

// Workers returns the number of workers started so far.
func (l *Live) Workers() int64 { return l.workers.Load() }

// Chunks returns the number of batches pulled so far.
func (l *Live) Chunks() int64 { return l.chunks.Load() }

// Items returns the number of source items pulled so far.
func (l *Live) Items() int64 { return l.items.Load() }

// Stopped reports whether a stop was requested.
func (l *Live) Stopped() bool { return l.stopped.Load() }

// StartTime returns when the computation started.
func (l *Live) StartTime() time.Time {
	return time.Unix(0, l.startTime.Load())
}

// ItemsPerSecond returns the current pull throughput.
func (l *Live) ItemsPerSecond() float64 {
	d := time.Since(l.StartTime()).Seconds()
	if d <= 0 {
		return 0
	}
	return float64(l.Items()) / d
}

// Snapshot freezes the counters into a core.Stats.
func (l *Live) Snapshot(mode string, p core.Params, maxThreads int, failed bool) core.Stats {
	return core.Stats{
		Mode:       mode,
		Params:     p,
		MaxThreads: maxThreads,
		Workers:    int(l.Workers()),
		Chunks:     l.Chunks(),
		Items:      l.Items(),
		Stopped:    l.Stopped(),
		Failed:     failed,
		Start:      l.StartTime(),
		End:        time.Now(),
	}
}
