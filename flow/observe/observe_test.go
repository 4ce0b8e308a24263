package observe_test

import (
	"context"
	"sync"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/lguimbarda/parflow/flow/core"
	"github.com/lguimbarda/parflow/flow/observe"
	"github.com/lguimbarda/parflow/flow/runner"
	"github.com/lguimbarda/parflow/flow/source"
)

func TestLive(t *testing.T) {
	l := observe.NewLive()

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.AddWorker()
			for range 100 {
				l.AddChunk(3)
			}
		}()
	}
	wg.Wait()

	if l.Workers() != 8 || l.Chunks() != 800 || l.Items() != 2400 {
		t.Errorf("workers, chunks, items = %d, %d, %d; want 8, 800, 2400", l.Workers(), l.Chunks(), l.Items())
	}
	if l.Stopped() {
		t.Error("Stopped() before MarkStopped")
	}
	l.MarkStopped()

	s := l.Snapshot("collect", core.DefaultParams(), 8, true)
	if s.Mode != "collect" || s.Items != 2400 || !s.Stopped || !s.Failed || s.MaxThreads != 8 {
		t.Errorf("Snapshot() = %+v", s)
	}
	if s.End.Before(s.Start) || !s.Start.Equal(l.StartTime()) {
		t.Errorf("Snapshot() times: start %v, end %v", s.Start, s.End)
	}
	if l.ItemsPerSecond() < 0 {
		t.Error("ItemsPerSecond() is negative")
	}
}

func count(ctx context.Context, t *testing.T, src source.Source[int], pipe core.Pipeline[int, int]) {
	t.Helper()
	r := runner.New(runner.WithCPUs(4), runner.WithPanicAsError())
	if _, err := runner.Count(ctx, r, core.DefaultParams(), src, pipe); err != nil && !core.IsPanic(err) {
		if _, ok := core.IndexOf(err); !ok {
			t.Fatalf("Count() error = %v", err)
		}
	}
}

func TestCounterAndRecorder(t *testing.T) {
	ctx, counter := observe.WithCounter(context.Background())
	ctx, rec := observe.WithRecorder(ctx)

	count(ctx, t, source.Range(0, 1000), core.Identity[int]())
	count(ctx, t, source.Range(0, 1000), core.PipeWhile(core.Identity[int](), func(x int) bool { return x < 10 }))
	count(ctx, t, source.Range(0, 1000), core.PipeTryMap(core.Identity[int](), func(x int) (int, error) {
		if x == 5 {
			return 0, context.DeadlineExceeded
		}
		return x, nil
	}))

	if counter.Runs() != 3 {
		t.Errorf("Runs() = %d, want 3", counter.Runs())
	}
	if counter.Stopped() != 2 {
		t.Errorf("Stopped() = %d, want 2", counter.Stopped())
	}
	if counter.Failed() != 1 {
		t.Errorf("Failed() = %d, want 1", counter.Failed())
	}
	if counter.Items() < 1000 || counter.Chunks() < 1 {
		t.Errorf("Items() = %d, Chunks() = %d", counter.Items(), counter.Chunks())
	}

	all := rec.All()
	if len(all) != 3 {
		t.Fatalf("recorded %d computations, want 3", len(all))
	}
	last, ok := rec.Last()
	if !ok || !last.Failed || last.Mode != "count" {
		t.Errorf("Last() = %+v, %v", last, ok)
	}
	if all[0].Items != 1000 || all[0].Stopped {
		t.Errorf("first run = %+v", all[0])
	}
}

func TestRecorder_Empty(t *testing.T) {
	_, rec := observe.WithRecorder(context.Background())
	if _, ok := rec.Last(); ok {
		t.Error("Last() on an empty recorder reported a value")
	}
	if len(rec.All()) != 0 {
		t.Error("All() on an empty recorder is not empty")
	}
}

func TestStartAndStopHooks(t *testing.T) {
	var modes []string
	var stops int
	ctx := observe.WithStartHook(context.Background(), func(mode string, _ core.Params) { modes = append(modes, mode) })
	ctx = observe.WithStopHook(ctx, func() { stops++ })

	r := runner.New(runner.WithCPUs(1))
	if _, _, _, err := runner.Find(ctx, r, core.DefaultParams(), source.Range(0, 100), core.PipeFilter(core.Identity[int](), func(x int) bool { return x == 50 })); err != nil {
		t.Fatal(err)
	}
	if _, err := runner.Collect(ctx, r, core.DefaultParams(), source.Range(0, 10), core.Identity[int]()); err != nil {
		t.Fatal(err)
	}

	if len(modes) != 2 || modes[0] != "find" || modes[1] != "collect_ordered" {
		t.Errorf("started modes = %v", modes)
	}
	if stops != 1 {
		t.Errorf("stops = %d, want 1", stops)
	}
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collecting metrics: %v", err)
	}
	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func sumOf(t *testing.T, agg metricdata.Aggregation) int64 {
	t.Helper()
	sum, ok := agg.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("aggregation %T is not an int64 sum", agg)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestInstruments(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer provider.Shutdown(context.Background())

	in, err := observe.NewInstruments(provider.Meter(observe.MeterName))
	if err != nil {
		t.Fatalf("NewInstruments() error = %v", err)
	}

	r := runner.New(runner.WithCPUs(4), runner.WithInstruments(in))
	for range 3 {
		if _, err := runner.Count(context.Background(), r, core.DefaultParams(), source.Range(0, 500), core.Identity[int]()); err != nil {
			t.Fatal(err)
		}
	}

	// Context-attached instruments report too.
	ctx := observe.WithInstruments(context.Background(), in)
	if _, err := runner.Count(ctx, runner.New(), core.DefaultParams(), source.Range(0, 100), core.Identity[int]()); err != nil {
		t.Fatal(err)
	}

	metrics := collect(t, reader)
	if got := sumOf(t, metrics["parflow.computations"]); got != 4 {
		t.Errorf("parflow.computations = %d, want 4", got)
	}
	if got := sumOf(t, metrics["parflow.items"]); got != 1600 {
		t.Errorf("parflow.items = %d, want 1600", got)
	}
	if got := sumOf(t, metrics["parflow.chunks"]); got < 4 {
		t.Errorf("parflow.chunks = %d, want at least 4", got)
	}
	for _, name := range []string{"parflow.workers", "parflow.duration"} {
		if _, ok := metrics[name]; !ok {
			t.Errorf("missing %s", name)
		}
	}

	computations := metrics["parflow.computations"].(metricdata.Sum[int64])
	for _, dp := range computations.DataPoints {
		mode, _ := dp.Attributes.Value("mode")
		status, _ := dp.Attributes.Value("status")
		if mode.AsString() != "count" || status.AsString() != "ok" {
			t.Errorf("data point attributes = %v", dp.Attributes.ToSlice())
		}
	}
}

func TestNoopInstruments(t *testing.T) {
	in := observe.NoopInstruments()
	in.Record(context.Background(), core.Stats{Mode: "reduce", Failed: true})
}
