package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/lguimbarda/parflow/flow/config"
	"github.com/lguimbarda/parflow/flow/core"
	"github.com/lguimbarda/parflow/flow/runner"
	"github.com/lguimbarda/parflow/flow/source"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	s, err := config.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := config.Settings{
		Chunk:      config.ChunkSettings{Mode: config.ChunkModeAuto},
		Ordering:   "ordered",
		SpawnDelay: runner.DefaultSpawnDelay,
	}
	want.Log.Level = "none"
	want.Log.Format = "json"
	if diff := cmp.Diff(want, s); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
	if got := s.Params(); got != core.DefaultParams() {
		t.Errorf("Params() = %v, want %v", got, core.DefaultParams())
	}
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("PARFLOW_THREADS", "3")
	t.Setenv("PARFLOW_MAX_THREADS", "8")
	t.Setenv("PARFLOW_CHUNK_SIZE", "64")
	t.Setenv("PARFLOW_CHUNK_MODE", "exact")
	t.Setenv("PARFLOW_ORDERING", "arbitrary")
	t.Setenv("PARFLOW_SPAWN_DELAY", "1ms")
	t.Setenv("PARFLOW_LOG_LEVEL", "debug")

	s, err := config.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.MaxThreads != 8 {
		t.Errorf("MaxThreads = %d, want 8", s.MaxThreads)
	}
	if s.SpawnDelay != time.Millisecond {
		t.Errorf("SpawnDelay = %s, want 1ms", s.SpawnDelay)
	}
	if s.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", s.Log.Level)
	}

	want := core.NewParams(
		core.WithThreads(3),
		core.WithChunk(core.ExactChunk(64)),
		core.WithOrdering(core.Arbitrary),
	)
	if got := s.Params(); got != want {
		t.Errorf("Params() = %v, want %v", got, want)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	path := writeFile(t, "parflow.yaml", `
threads: 2
chunk:
  size: 32
  mode: min
ordering: arbitrary
log:
  level: warn
  format: text
`)

	s, err := config.Load(config.WithConfigFile(path))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := core.NewParams(
		core.WithThreads(2),
		core.WithChunk(core.MinChunk(32)),
		core.WithOrdering(core.Arbitrary),
	)
	if got := s.Params(); got != want {
		t.Errorf("Params() = %v, want %v", got, want)
	}
	if s.Log.Format != "text" {
		t.Errorf("Log.Format = %q, want text", s.Log.Format)
	}
}

func TestLoad_Precedence(t *testing.T) {
	cfgFile := writeFile(t, "parflow.yaml", "threads: 2\nmax_threads: 16\nordering: arbitrary\n")
	envFile := writeFile(t, ".env", "PARFLOW_THREADS=4\nPARFLOW_MAX_THREADS=12\n")
	t.Setenv("PARFLOW_THREADS", "6")

	s, err := config.Load(config.WithConfigFile(cfgFile), config.WithEnvFile(envFile))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if s.Threads != 6 {
		t.Errorf("Threads = %d, want 6 from the process environment", s.Threads)
	}
	if s.MaxThreads != 12 {
		t.Errorf("MaxThreads = %d, want 12 from the .env file", s.MaxThreads)
	}
	if s.Ordering != "arbitrary" {
		t.Errorf("Ordering = %q, want arbitrary from the config file", s.Ordering)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		opts []config.LoaderOption
	}{
		{name: "missing config file", opts: []config.LoaderOption{config.WithConfigFile("/nonexistent/parflow.yaml")}},
		{name: "missing env file", opts: []config.LoaderOption{config.WithEnvFile("/nonexistent/.env")}},
		{name: "bad chunk mode", env: map[string]string{"PARFLOW_CHUNK_MODE": "huge"}},
		{name: "bad ordering", env: map[string]string{"PARFLOW_ORDERING": "sorted"}},
		{name: "bad log level", env: map[string]string{"PARFLOW_LOG_LEVEL": "loud"}},
		{name: "bad duration", env: map[string]string{"PARFLOW_SPAWN_DELAY": "soon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := config.Load(tt.opts...); err == nil {
				t.Error("Load() error = nil, want error")
			}
		})
	}
}

func TestLoad_OutOfRangeIsAuto(t *testing.T) {
	t.Setenv("PARFLOW_THREADS", "-2")
	t.Setenv("PARFLOW_MAX_THREADS", "-1")
	t.Setenv("PARFLOW_CHUNK_MODE", "exact")
	t.Setenv("PARFLOW_CHUNK_SIZE", "-8")

	s, err := config.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got, want := s.Params(), core.DefaultParams(); got != want {
		t.Errorf("Params() = %v, want %v", got, want)
	}
	r, err := s.NewRunner(runner.WithCPUs(4))
	if err != nil {
		t.Fatalf("NewRunner() error = %v", err)
	}
	n, err := runner.Count(context.Background(), r, s.Params(), source.Range(0, 1000), core.Identity[int]())
	if err != nil || n != 1000 {
		t.Errorf("Count() = %d, %v; want 1000, nil", n, err)
	}
}

func TestSettings_ChunkSize(t *testing.T) {
	tests := []struct {
		mode string
		size int
		want core.ChunkSize
	}{
		{config.ChunkModeAuto, 10, core.AutoChunk()},
		{config.ChunkModeExact, 10, core.ExactChunk(10)},
		{config.ChunkModeMin, 10, core.MinChunk(10)},
		{config.ChunkModeExact, 0, core.AutoChunk()},
		{"", 10, core.AutoChunk()},
	}

	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			s := config.Settings{Chunk: config.ChunkSettings{Size: tt.size, Mode: tt.mode}}
			if got := s.ChunkSize(); got != tt.want {
				t.Errorf("ChunkSize() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEnvName(t *testing.T) {
	if got := config.EnvName("chunk.size"); got != "PARFLOW_CHUNK_SIZE" {
		t.Errorf("EnvName(chunk.size) = %q", got)
	}
}

func TestSettings_NewRunnerAppliesThreadLimit(t *testing.T) {
	s := config.Settings{MaxThreads: 2}

	var stats []core.Stats
	r, err := s.NewRunner(
		runner.WithCPUs(16),
		runner.WithStatsHook(func(st core.Stats) { stats = append(stats, st) }),
	)
	if err != nil {
		t.Fatalf("NewRunner() error = %v", err)
	}

	items := make([]int, 1000)
	n, err := runner.Count(context.Background(), r, s.Params(), source.FromSlice(items), core.Identity[int]())
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != len(items) {
		t.Errorf("Count() = %d, want %d", n, len(items))
	}
	if len(stats) != 1 {
		t.Fatalf("got %d stats reports, want 1", len(stats))
	}
	if stats[0].MaxThreads != 2 {
		t.Errorf("MaxThreads = %d, want 2", stats[0].MaxThreads)
	}
}
