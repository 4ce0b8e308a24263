package flowerrors

import "sync"

// Collector records the errors of failing items instead of stopping the
// computation. Its wrappers drop failing items, so they fit FilterMap.
type Collector struct {
	predicate func(error) bool
	max       int

	mu      sync.Mutex
	errs    []error
	dropped int
}

// CollectorOption configures a Collector.
type CollectorOption func(*Collector)

// WithPredicate only collects errors matching pred. Other errors are
// dropped silently but still counted.
func WithPredicate(pred func(error) bool) CollectorOption {
	return func(c *Collector) {
		c.predicate = pred
	}
}

// WithMaxErrors bounds the number of errors kept. Zero keeps all of them.
func WithMaxErrors(n int) CollectorOption {
	return func(c *Collector) {
		c.max = n
	}
}

// NewCollector returns an empty Collector.
func NewCollector(opts ...CollectorOption) *Collector {
	c := &Collector{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Collector) record(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dropped++
	if c.predicate != nil && !c.predicate(err) {
		return
	}
	if c.max > 0 && len(c.errs) >= c.max {
		return
	}
	c.errs = append(c.errs, err)
}

// Errors returns the collected errors. Their order depends on worker
// scheduling.
func (c *Collector) Errors() []error {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]error, len(c.errs))
	copy(out, c.errs)
	return out
}

// Dropped returns the number of items dropped because they failed.
func (c *Collector) Dropped() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

// Skip wraps op for FilterMap: failing items are recorded in c and
// dropped.
func Skip[T, U any](c *Collector, op Operation[T, U]) func(T) (U, bool) {
	return func(item T) (U, bool) {
		result, err := op(item)
		if err != nil {
			c.record(err)
			return result, false
		}
		return result, true
	}
}
