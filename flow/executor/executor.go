// Package executor provides the spawn/join backends a computation runs
// its workers on.
//
// The engine only ever calls Spawn and Join, so any pool can back it. Two
// implementations are provided: Goroutines, which starts one goroutine per
// task, and Pool, a fixed set of long-lived goroutines owned by the caller.
package executor

import (
	"errors"
	"sync"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"

	"github.com/lguimbarda/parflow/flow/core"
)

// ErrPoolClosed is returned by Join for tasks spawned on a closed Pool.
var ErrPoolClosed = errors.New("executor: pool is closed")

// Handle is a spawned task.
type Handle interface {
	// Join blocks until the task has returned. The error is non-nil only
	// if the task could not complete: it panicked (core.ErrPanic) or was
	// never run.
	Join() error
}

// Executor spawns tasks.
type Executor interface {
	Spawn(task func()) Handle
}

// task is the Handle shared by both executors.
type task struct {
	done chan struct{}
	err  error
}

func newTask() *task {
	return &task{done: make(chan struct{})}
}

// run executes fn, converting a panic into the task's error.
func (t *task) run(fn func()) {
	defer close(t.done)
	if r := panics.Try(fn); r != nil {
		t.err = core.PanicErrorWithStack(r.Value, string(r.Stack))
	}
}

func (t *task) fail(err error) *task {
	t.err = err
	close(t.done)
	return t
}

func (t *task) Join() error {
	<-t.done
	return t.err
}

type goroutines struct{}

// Goroutines returns the default executor: every task gets a fresh goroutine.
func Goroutines() Executor {
	return goroutines{}
}

func (goroutines) Spawn(fn func()) Handle {
	t := newTask()
	go t.run(fn)
	return t
}

// Pool is a persistent executor with a fixed number of goroutines. Tasks
// queue when every goroutine is busy. A Pool is owned by the caller, which
// must Close it once no computation uses it anymore.
type Pool struct {
	tasks  chan func()
	wg     conc.WaitGroup
	mu     sync.RWMutex
	closed bool
}

// NewPool starts a pool of n goroutines. n < 1 is treated as 1.
func NewPool(n int) *Pool {
	n = max(n, 1)
	p := &Pool{tasks: make(chan func(), n)}
	for range n {
		p.wg.Go(func() {
			for fn := range p.tasks {
				fn()
			}
		})
	}
	return p
}

// Spawn queues fn. It blocks while the queue is full.
func (p *Pool) Spawn(fn func()) Handle {
	t := newTask()
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return t.fail(ErrPoolClosed)
	}
	p.tasks <- func() { t.run(fn) }
	return t
}

// Close stops accepting tasks, lets queued tasks finish and waits for the
// pool goroutines to exit. It is safe to call more than once.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()
	p.wg.Wait()
}
