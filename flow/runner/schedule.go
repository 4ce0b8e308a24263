package runner

import (
	"fmt"

	"github.com/lguimbarda/parflow/flow/core"
	"github.com/lguimbarda/parflow/flow/source"
)

const (
	// BurstSize is the number of workers spawned between two spawn delays.
	BurstSize = 4

	// UnknownLengthChunk is the automatic chunk floor for sources of
	// unknown length.
	UnknownLengthChunk = 16

	// MaxChunkSize caps adaptive chunk growth.
	MaxChunkSize = 1 << 20
)

// Schedule is the resolved plan of one computation. It is computed once
// from the parameters and the source's length hint.
type Schedule struct {
	// MaxThreads bounds the number of workers, calling goroutine included.
	MaxThreads int
	// Chunk is the exact chunk size, or the floor of the adaptive schedule.
	Chunk int
	// Adaptive reports whether chunks grow with observed progress.
	Adaptive bool
	// Total is the number of items the source had when the computation
	// started, or -1 if unknown.
	Total int
}

// Resolve computes the schedule for a computation over a source with the
// given length hint on a machine with cpus usable CPUs.
func Resolve(p core.Params, hint source.LengthHint, cpus int) Schedule {
	p = p.Normalize()
	total, known := hint.Remaining()

	s := Schedule{MaxThreads: max(cpus, 1), Total: -1}
	if known {
		s.Total = total
	}

	switch {
	case p.Threads.IsSequential():
		s.MaxThreads = 1
	case !p.Threads.IsAuto():
		s.MaxThreads = min(s.MaxThreads, int(p.Threads))
	}
	if known {
		s.MaxThreads = max(min(s.MaxThreads, total), 1)
	}

	switch p.Chunk.Kind() {
	case core.ChunkExact:
		s.Chunk = p.Chunk.N()
	case core.ChunkAtLeast:
		s.Chunk = p.Chunk.N()
		s.Adaptive = true
	default:
		s.Chunk = UnknownLengthChunk
		if known {
			s.Chunk = 1
		}
		s.Adaptive = true
	}
	return s
}

// Sequential reports whether the schedule runs on the calling goroutine only.
func (s Schedule) Sequential() bool {
	return s.MaxThreads <= 1
}

// Next returns the size of the next chunk given the items pulled so far
// and the number of workers started.
//
// The first chunk uses the floor. After that, each worker's share of the
// work done so far, measured in floors, becomes the multiplier for the
// next chunk. Growth stops at MaxChunkSize and at a fair share of what is
// left, so the tail is still split across workers. Without a known length
// the floor is used throughout.
func (s Schedule) Next(done, workers int64) int {
	c := int64(s.Chunk)
	if !s.Adaptive || s.Total < 0 || done <= 0 {
		return s.Chunk
	}

	perWorker := done / max(workers, 1)
	size := min(max(1, perWorker/c)*c, MaxChunkSize)

	remaining := int64(s.Total) - done
	if remaining <= 0 {
		return s.Chunk
	}
	threads := int64(s.MaxThreads)
	fair := (remaining + threads - 1) / threads
	return int(min(size, max(c, fair)))
}

func (s Schedule) String() string {
	kind := "exact"
	if s.Adaptive {
		kind = "adaptive-min"
	}
	return fmt.Sprintf("max_threads=%d chunk=%s(%d) total=%d", s.MaxThreads, kind, s.Chunk, s.Total)
}
