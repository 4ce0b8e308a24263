package core

import (
	"errors"
	"slices"
	"strconv"
	"testing"
)

// collectSink records deposits as (position, item) pairs.
type collectSink[T any] struct {
	positions []int
	items     []T
}

func (s *collectSink[T]) Put(position int, item T) {
	s.positions = append(s.positions, position)
	s.items = append(s.items, item)
}

func items[T any](v Value[T]) []T {
	return slices.Collect(v.All())
}

func TestValue_Constructors(t *testing.T) {
	errBad := errors.New("bad")

	tests := []struct {
		name   string
		value  Value[int]
		card   Cardinality
		status Status
		items  []int
		err    error
	}{
		{"empty", Empty[int](), CardEmpty, Continue, nil, nil},
		{"one", One(7), CardOne, Continue, []int{7}, nil},
		{"many", Many([]int{1, 2, 3}), CardMany, Continue, []int{1, 2, 3}, nil},
		{"many of nothing", Many[int](nil), CardEmpty, Continue, nil, nil},
		{"stop", Stop[int](), CardEmpty, Stopped, nil, nil},
		{"fail", Fail[int](errBad), CardEmpty, Failed, nil, errBad},
		{"fail without error", Fail[int](nil), CardEmpty, Stopped, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := tt.value
			if v.Cardinality() != tt.card {
				t.Errorf("Cardinality() = %v, want %v", v.Cardinality(), tt.card)
			}
			if v.Status() != tt.status {
				t.Errorf("Status() = %v, want %v", v.Status(), tt.status)
			}
			if v.IsStop() != (tt.status != Continue) {
				t.Errorf("IsStop() = %v", v.IsStop())
			}
			if v.Err() != tt.err {
				t.Errorf("Err() = %v, want %v", v.Err(), tt.err)
			}
			if v.Len() != len(tt.items) {
				t.Errorf("Len() = %d, want %d", v.Len(), len(tt.items))
			}
			if got := items(v); !slices.Equal(got, tt.items) {
				t.Errorf("All() = %v, want %v", got, tt.items)
			}
			if got := v.AppendTo([]int{-1}); !slices.Equal(got, append([]int{-1}, tt.items...)) {
				t.Errorf("AppendTo() = %v", got)
			}
		})
	}
}

func TestValue_Stages(t *testing.T) {
	double := func(x int) int { return 2 * x }
	even := func(x int) bool { return x%2 == 0 }
	small := func(x int) bool { return x < 3 }

	tests := []struct {
		name   string
		got    Value[int]
		want   []int
		status Status
	}{
		{"map one", Map(One(2), double), []int{4}, Continue},
		{"map many", Map(Many([]int{1, 2}), double), []int{2, 4}, Continue},
		{"map keeps stop", Map(Stop[int](), double), nil, Stopped},
		{"filter keeps", Filter(One(2), even), []int{2}, Continue},
		{"filter drops", Filter(One(3), even), nil, Continue},
		{"filter many", Filter(Many([]int{1, 2, 3, 4}), even), []int{2, 4}, Continue},
		{"flat expand", FlatExpand(One(3), func(x int) []int { return []int{x, x} }), []int{3, 3}, Continue},
		{"flat expand to nothing", FlatExpand(One(3), func(int) []int { return nil }), nil, Continue},
		{"flat expand many", FlatExpand(Many([]int{1, 2}), func(x int) []int { return []int{x, -x} }), []int{1, -1, 2, -2}, Continue},
		{"filter map", FilterMap(Many([]int{1, 2, 3}), func(x int) (int, bool) { return x * 10, x != 2 }), []int{10, 30}, Continue},
		{"filter map one dropped", FilterMap(One(2), func(x int) (int, bool) { return x, false }), nil, Continue},
		{"while holds", While(One(1), small), []int{1}, Continue},
		{"while breaks", While(One(5), small), nil, Stopped},
		{"while breaks mid many", While(Many([]int{1, 2, 3, 1}), small), []int{1, 2}, Stopped},
		{"map while", MapWhile(Many([]int{1, 2, 5, 1}), func(x int) (int, bool) { return -x, x < 3 }), []int{-1, -2}, Stopped},
		{"map while holds", MapWhile(One(1), func(x int) (int, bool) { return -x, true }), []int{-1}, Continue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := items(tt.got); !slices.Equal(got, tt.want) {
				t.Errorf("items = %v, want %v", got, tt.want)
			}
			if tt.got.Status() != tt.status {
				t.Errorf("Status() = %v, want %v", tt.got.Status(), tt.status)
			}
		})
	}
}

func TestTryMap(t *testing.T) {
	parse := func(s string) (int, error) { return strconv.Atoi(s) }

	ok := TryMap(Many([]string{"1", "2"}), parse)
	if got := items(ok); !slices.Equal(got, []int{1, 2}) || ok.IsStop() {
		t.Errorf("TryMap(valid) = %v, stop %v", got, ok.IsStop())
	}

	failed := TryMap(Many([]string{"1", "x", "3"}), parse)
	if got := items(failed); !slices.Equal(got, []int{1}) {
		t.Errorf("TryMap(invalid) items = %v, want [1]", got)
	}
	if failed.Status() != Failed || failed.Err() == nil {
		t.Errorf("TryMap(invalid) status = %v, err = %v", failed.Status(), failed.Err())
	}

	one := TryMap(One("nope"), parse)
	if one.Status() != Failed || one.Len() != 0 {
		t.Errorf("TryMap(one invalid) = %v items, status %v", one.Len(), one.Status())
	}
}

func TestWhile_DropsLaterFailure(t *testing.T) {
	// A failure tagged on the input lies after the item While stops at.
	v := Many([]int{1, 9})
	v.status, v.err = Failed, errors.New("later")

	got := While(v, func(x int) bool { return x < 5 })
	if got.Status() != Stopped || got.Err() != nil {
		t.Errorf("While() status = %v, err = %v; want stopped without error", got.Status(), got.Err())
	}
}

func TestFoldInto(t *testing.T) {
	sum := func(a, x int) int { return a + x }

	acc, stop := FoldInto(Many([]int{1, 2, 3}), 10, sum)
	if acc != 16 || stop {
		t.Errorf("FoldInto(many) = %d, %v", acc, stop)
	}
	acc, stop = FoldInto(While(Many([]int{1, 9}), func(x int) bool { return x < 5 }), 0, sum)
	if acc != 1 || !stop {
		t.Errorf("FoldInto(stopped) = %d, %v; want 1, true", acc, stop)
	}
}

func TestReduceInto(t *testing.T) {
	sum := func(a, b int) int { return a + b }

	acc, has, stop := ReduceInto(Empty[int](), 0, false, sum)
	if has || stop || acc != 0 {
		t.Errorf("ReduceInto(empty) = %d, %v, %v", acc, has, stop)
	}
	acc, has, _ = ReduceInto(One(5), acc, has, sum)
	if !has || acc != 5 {
		t.Errorf("ReduceInto(seed) = %d, %v", acc, has)
	}
	acc, has, stop = ReduceInto(Many([]int{1, 2}), acc, has, sum)
	if !has || acc != 8 || stop {
		t.Errorf("ReduceInto(many) = %d, %v, %v", acc, has, stop)
	}
}

func TestDeposit(t *testing.T) {
	var s collectSink[string]
	if Deposit(One("a"), &s, 3) {
		t.Error("Deposit(one) reported a stop")
	}
	if !Deposit(withTag(Many([]string{"b", "c"}), Stop[int]()), &s, 4) {
		t.Error("Deposit(stopped many) did not report the stop")
	}
	if Deposit(Empty[string](), &s, 5) {
		t.Error("Deposit(empty) reported a stop")
	}

	if !slices.Equal(s.items, []string{"a", "b", "c"}) {
		t.Errorf("items = %v", s.items)
	}
	if !slices.Equal(s.positions, []int{3, 4, 4}) {
		t.Errorf("positions = %v", s.positions)
	}
}

func TestFirst(t *testing.T) {
	tests := []struct {
		name      string
		value     Value[int]
		wantItem  int
		wantFound bool
		wantStop  bool
	}{
		{"one", One(4), 4, true, false},
		{"many", Many([]int{7, 8}), 7, true, false},
		{"empty", Empty[int](), 0, false, false},
		{"stop", Stop[int](), 0, false, true},
		{"stop with items", withTag(One(3), Stop[int]()), 3, true, false},
		{"fail", Fail[int](errors.New("x")), 0, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item, found, stop := First(tt.value)
			if item != tt.wantItem || found != tt.wantFound || stop != tt.wantStop {
				t.Errorf("First() = %d, %v, %v; want %d, %v, %v", item, found, stop, tt.wantItem, tt.wantFound, tt.wantStop)
			}
		})
	}
}
