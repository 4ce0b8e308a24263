package core

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// ErrPanic wraps a value recovered from a panicking worker.
// Stack holds the trace captured at recovery with engine frames removed,
// so the first frames point at the user function that panicked.
type ErrPanic struct {
	Value any
	Stack string
}

func (e ErrPanic) Error() string {
	if e.Stack != "" {
		return fmt.Sprintf("panic: %v\n%s", e.Value, e.Stack)
	}
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap exposes a panicked error value to errors.Is and errors.As.
func (e ErrPanic) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// NewPanicError builds an ErrPanic from a recovered value, capturing the
// current stack. Call it from the deferred recover.
func NewPanicError(recovered any) ErrPanic {
	return ErrPanic{
		Value: recovered,
		Stack: cleanStack(captureStack(4)), // runtime.Callers, captureStack, NewPanicError, deferred func
	}
}

// PanicErrorWithStack builds an ErrPanic from a recovered value and a stack
// already captured elsewhere, e.g. by runtime/debug.Stack.
func PanicErrorWithStack(recovered any, stack string) ErrPanic {
	return ErrPanic{Value: recovered, Stack: cleanStack(stack)}
}

// IsPanic reports whether err carries an ErrPanic.
func IsPanic(err error) bool {
	var pe ErrPanic
	return errors.As(err, &pe)
}

func captureStack(skip int) string {
	const maxFrames = 32
	var pcs [maxFrames]uintptr
	n := runtime.Callers(skip, pcs[:])
	if n == 0 {
		return ""
	}

	frames := runtime.CallersFrames(pcs[:n])
	var sb strings.Builder
	for {
		frame, more := frames.Next()
		fmt.Fprintf(&sb, "%s\n\t%s:%d\n", frame.Function, frame.File, frame.Line)
		if !more {
			break
		}
	}
	return sb.String()
}

// internalFrames are function prefixes dropped from panic stacks.
var internalFrames = []string{
	"github.com/lguimbarda/parflow/flow/",
	"github.com/sourcegraph/conc/",
}

func isInternalFrame(line string) bool {
	for _, prefix := range internalFrames {
		if strings.Contains(line, prefix) {
			return true
		}
	}
	return false
}

// cleanStack removes engine frames (and the file:line that follows each)
// from a stack trace.
func cleanStack(stack string) string {
	lines := strings.Split(stack, "\n")
	var result []string
	var skipNext bool

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if !strings.HasPrefix(line, "\t") {
			if isInternalFrame(line) {
				skipNext = true
				continue
			}
			skipNext = false
		} else if skipNext {
			continue
		}
		result = append(result, line)
	}

	return strings.Join(result, "\n")
}

// StopError is a per-item failure together with the original index of
// the source item that failed.
type StopError struct {
	Index int
	Err   error
}

func (e *StopError) Error() string {
	return fmt.Sprintf("item %d: %v", e.Index, e.Err)
}

func (e *StopError) Unwrap() error {
	return e.Err
}

// IndexOf returns the source index of the first StopError in err's chain.
func IndexOf(err error) (int, bool) {
	var se *StopError
	if errors.As(err, &se) {
		return se.Index, true
	}
	return 0, false
}
