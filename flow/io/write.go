package io

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/lguimbarda/parflow/flow/core"
	"github.com/lguimbarda/parflow/flow/runner"
	"github.com/lguimbarda/parflow/flow/source"
)

// WriteLines runs pipe over src and writes its output to w, one item per
// line, in source order. Nothing is written if the computation fails.
// It returns the number of lines written.
func WriteLines[T any](ctx context.Context, r *runner.Runner, p core.Params, w io.Writer, src source.Source[T], pipe core.Pipeline[T, string]) (int, error) {
	lines, err := runner.Collect(ctx, r, p.With(core.WithOrdering(core.Ordered)), src, pipe)
	if err != nil {
		return 0, err
	}

	bw := bufio.NewWriter(w)
	for i, line := range lines {
		if _, err := bw.WriteString(line); err != nil {
			return i, fmt.Errorf("writing line %d: %w", i, err)
		}
		if err := bw.WriteByte('\n'); err != nil {
			return i, fmt.Errorf("writing line %d: %w", i, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return len(lines), fmt.Errorf("flushing: %w", err)
	}
	return len(lines), nil
}

// WriteFile is WriteLines into the file at path, which is created or
// truncated.
func WriteFile[T any](ctx context.Context, r *runner.Runner, p core.Params, path string, src source.Source[T], pipe core.Pipeline[T, string]) (n int, err error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return WriteLines(ctx, r, p, f, src, pipe)
}
