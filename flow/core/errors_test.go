package core

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrPanic_Error(t *testing.T) {
	tests := []struct {
		name     string
		panic    ErrPanic
		contains []string
	}{
		{
			name:     "without stack",
			panic:    ErrPanic{Value: "test panic"},
			contains: []string{"panic: test panic"},
		},
		{
			name:     "with stack",
			panic:    ErrPanic{Value: "test panic", Stack: "some/function\n\tfile.go:42"},
			contains: []string{"panic: test panic", "some/function", "file.go:42"},
		},
		{
			name:     "integer value",
			panic:    ErrPanic{Value: 42},
			contains: []string{"panic: 42"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.panic.Error()
			for _, substr := range tt.contains {
				if !strings.Contains(msg, substr) {
					t.Errorf("Error() = %q, want it to contain %q", msg, substr)
				}
			}
		})
	}
}

func TestErrPanic_Unwrap(t *testing.T) {
	boom := errors.New("boom")
	wrapped := fmt.Errorf("worker: %w", ErrPanic{Value: boom})

	if !errors.Is(wrapped, boom) {
		t.Error("errors.Is should see the panicked error")
	}
	if !IsPanic(wrapped) {
		t.Error("IsPanic should see the wrapped ErrPanic")
	}
	if (ErrPanic{Value: "text"}).Unwrap() != nil {
		t.Error("Unwrap of a non-error value should be nil")
	}
	if IsPanic(boom) {
		t.Error("IsPanic(plain error) = true")
	}
}

func TestNewPanicError(t *testing.T) {
	var err ErrPanic
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = NewPanicError(r)
			}
		}()
		panic("test panic value")
	}()

	if err.Value != "test panic value" {
		t.Errorf("Value = %v, want %q", err.Value, "test panic value")
	}
	if !strings.Contains(err.Error(), "panic: test panic value") {
		t.Errorf("Error() = %q, want it to contain 'panic: test panic value'", err.Error())
	}
	if strings.Contains(err.Stack, "github.com/lguimbarda/parflow/flow/") {
		t.Errorf("Stack should not contain engine frames:\n%s", err.Stack)
	}
}

func TestCleanStack(t *testing.T) {
	tests := []struct {
		name          string
		input         string
		shouldContain []string
		shouldExclude []string
	}{
		{
			name: "removes engine frames",
			input: `user/code/main.go
	/path/to/user/code/main.go:10
github.com/lguimbarda/parflow/flow/runner.(*computation[...]).work
	/path/to/parflow/flow/runner/runner.go:250
github.com/sourcegraph/conc/panics.(*Catcher).Try
	/go/pkg/mod/github.com/sourcegraph/conc/panics/panics.go:23
testing.tRunner
	/usr/local/go/src/testing/testing.go:1595`,
			shouldContain: []string{"user/code/main.go", "main.go:10", "testing.tRunner"},
			shouldExclude: []string{"runner.go:250", "conc/panics", "flow/runner"},
		},
		{
			name:          "preserves user code",
			input:         "myapp/handler.Process\n\t/home/user/myapp/handler.go:25",
			shouldContain: []string{"myapp/handler.Process", "handler.go:25"},
		},
		{
			name:  "handles empty input",
			input: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := cleanStack(tt.input)
			for _, s := range tt.shouldContain {
				if !strings.Contains(result, s) {
					t.Errorf("cleanStack() should contain %q, got:\n%s", s, result)
				}
			}
			for _, s := range tt.shouldExclude {
				if strings.Contains(result, s) {
					t.Errorf("cleanStack() should NOT contain %q, got:\n%s", s, result)
				}
			}
		})
	}
}

func TestStopError(t *testing.T) {
	cause := errors.New("bad input")
	err := fmt.Errorf("collect: %w", &StopError{Index: 12, Err: cause})

	if got := (&StopError{Index: 12, Err: cause}).Error(); got != "item 12: bad input" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should see the cause")
	}
	idx, ok := IndexOf(err)
	if !ok || idx != 12 {
		t.Errorf("IndexOf() = %d, %v; want 12, true", idx, ok)
	}
	if _, ok := IndexOf(cause); ok {
		t.Error("IndexOf(plain error) reported an index")
	}
}
