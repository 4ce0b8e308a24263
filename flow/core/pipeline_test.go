package core

import (
	"errors"
	"slices"
	"testing"
)

func TestPipeline_Composition(t *testing.T) {
	errOdd := errors.New("odd")

	tests := []struct {
		name    string
		pipe    Pipeline[int, int]
		input   int
		want    []int
		status  Status
		expands bool
		mode    Mode
	}{
		{
			name:  "identity",
			pipe:  Identity[int](),
			input: 3, want: []int{3},
		},
		{
			name:  "map then filter",
			pipe:  PipeFilter(PipeMap(Identity[int](), func(x int) int { return x + 1 }), func(x int) bool { return x > 2 }),
			input: 2, want: []int{3},
		},
		{
			name:  "filtered out",
			pipe:  PipeFilter(Identity[int](), func(x int) bool { return x > 2 }),
			input: 1,
		},
		{
			name:    "flat map expands",
			pipe:    PipeFlatMap(Identity[int](), func(x int) []int { return []int{x, x * 10} }),
			input:   4,
			want:    []int{4, 40},
			expands: true,
		},
		{
			name:    "expansion survives later stages",
			pipe:    PipeMap(PipeFlatMap(Identity[int](), func(x int) []int { return []int{x, x} }), func(x int) int { return -x }),
			input:   1,
			want:    []int{-1, -1},
			expands: true,
		},
		{
			name:  "filter map",
			pipe:  PipeFilterMap(Identity[int](), func(x int) (int, bool) { return x * x, x > 0 }),
			input: 3, want: []int{9},
		},
		{
			name: "try map fails",
			pipe: PipeTryMap(Identity[int](), func(x int) (int, error) {
				if x%2 == 1 {
					return 0, errOdd
				}
				return x, nil
			}),
			input:  3,
			status: Failed,
			mode:   Fallible,
		},
		{
			name:   "while stops",
			pipe:   PipeWhile(Identity[int](), func(x int) bool { return x < 3 }),
			input:  3,
			status: Stopped,
			mode:   Optional,
		},
		{
			name:   "map while",
			pipe:   PipeMapWhile(Identity[int](), func(x int) (int, bool) { return x * 2, x < 3 }),
			input:  2,
			want:   []int{4},
			status: Continue,
			mode:   Optional,
		},
		{
			name: "fallible dominates optional",
			pipe: PipeWhile(PipeTryMap(Identity[int](), func(x int) (int, error) { return x, nil }), func(int) bool { return true }),
			input: 1, want: []int{1},
			mode: Fallible,
		},
		{
			name: "stop after map still tagged",
			pipe: PipeMap(PipeWhile(Identity[int](), func(x int) bool { return x < 0 }), func(x int) int { return x }),
			input: 1, status: Stopped,
			mode: Optional,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := tt.pipe.Apply(tt.input)
			if got := slices.Collect(v.All()); !slices.Equal(got, tt.want) {
				t.Errorf("Apply(%d) = %v, want %v", tt.input, got, tt.want)
			}
			if v.Status() != tt.status {
				t.Errorf("Status() = %v, want %v", v.Status(), tt.status)
			}
			if tt.pipe.Expands() != tt.expands {
				t.Errorf("Expands() = %v, want %v", tt.pipe.Expands(), tt.expands)
			}
			if tt.pipe.Mode() != tt.mode {
				t.Errorf("Mode() = %v, want %v", tt.pipe.Mode(), tt.mode)
			}
		})
	}
}

func TestPipeline_ZeroValue(t *testing.T) {
	var p Pipeline[int, string]
	v := p.Apply(1)
	if v.Len() != 0 || v.IsStop() {
		t.Errorf("zero pipeline Apply() = %d items, stop %v", v.Len(), v.IsStop())
	}
}

func TestNewPipeline(t *testing.T) {
	p := NewPipeline(func(s string) Value[int] { return Many([]int{len(s), len(s)}) }, true, Infallible)
	if !p.Expands() {
		t.Error("Expands() = false")
	}
	if got := slices.Collect(p.Apply("abc").All()); !slices.Equal(got, []int{3, 3}) {
		t.Errorf("Apply() = %v", got)
	}
}

func TestMode_String(t *testing.T) {
	for mode, want := range map[Mode]string{Infallible: "infallible", Optional: "optional", Fallible: "fallible"} {
		if mode.String() != want {
			t.Errorf("%d.String() = %q, want %q", mode, mode.String(), want)
		}
	}
}
