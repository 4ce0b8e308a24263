package csv

import (
	"bytes"
	"context"
	stdcsv "encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/lguimbarda/parflow/flow/core"
	"github.com/lguimbarda/parflow/flow/runner"
	"github.com/lguimbarda/parflow/flow/source"
)

func collect(t *testing.T, src source.Source[[]string]) [][]string {
	t.Helper()
	p := core.NewParams(core.WithThreads(4), core.WithChunk(core.ExactChunk(1)))
	got, err := runner.Collect(context.Background(), runner.New(runner.WithCPUs(4)), p, src, core.Identity[[]string]())
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	return got
}

func TestOpen(t *testing.T) {
	tests := []struct {
		name    string
		content string
		opts    []ReaderOption
		want    [][]string
	}{
		{
			name:    "simple",
			content: "a,b,c\n1,2,3\n4,5,6\n",
			want:    [][]string{{"a", "b", "c"}, {"1", "2", "3"}, {"4", "5", "6"}},
		},
		{
			name:    "empty file",
			content: "",
		},
		{
			name:    "quoted fields",
			content: "\"hello, world\",\"test\"\n",
			want:    [][]string{{"hello, world", "test"}},
		},
		{
			name:    "semicolons and comments",
			content: "# header\nx; y\n",
			opts:    []ReaderOption{WithComma(';'), WithComment('#'), WithTrimLeadingSpace(true)},
			want:    [][]string{{"x", "y"}},
		},
		{
			name:    "variable fields",
			content: "a\nb,c\n",
			opts:    []ReaderOption{WithFieldsPerRecord(-1)},
			want:    [][]string{{"a"}, {"b", "c"}},
		},
		{
			name:    "lazy quotes",
			content: "a\"b,c\n",
			opts:    []ReaderOption{WithLazyQuotes(true)},
			want:    [][]string{{"a\"b", "c"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "test.csv")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatalf("failed to create temp file: %v", err)
			}
			recs, err := Open(path, tt.opts...)
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			got := collect(t, recs)
			if diff := cmp.Diff(tt.want, got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("records mismatch (-want +got):\n%s", diff)
			}
			if err := recs.Close(); err != nil {
				t.Errorf("Close() error = %v", err)
			}
		})
	}
}

func TestOpen_FileNotFound(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "missing.csv")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Open() error = %v, want not-exist", err)
	}
}

func TestRecords_Malformed(t *testing.T) {
	recs := Records(strings.NewReader("a,b\nc,d\ne\n"))
	got := collect(t, recs)
	if len(got) != 2 {
		t.Errorf("got %d records before the malformed one, want 2", len(got))
	}
	var perr *stdcsv.ParseError
	if !errors.As(recs.Err(), &perr) || !errors.Is(perr, stdcsv.ErrFieldCount) {
		t.Errorf("Err() = %v, want a parse error", recs.Err())
	}
}

func TestWithHeader(t *testing.T) {
	header, recs, err := WithHeader(strings.NewReader("name,age\nann,31\nbob,27\n"))
	if err != nil {
		t.Fatalf("WithHeader() error = %v", err)
	}
	if diff := cmp.Diff([]string{"name", "age"}, header); diff != "" {
		t.Errorf("header mismatch (-want +got):\n%s", diff)
	}

	ages := core.PipeTryMap(core.Identity[[]string](), func(rec []string) (int, error) { return strconv.Atoi(rec[1]) })
	total, err := runner.Fold(context.Background(), runner.New(), core.DefaultParams(), recs, ages,
		func() int { return 0 },
		func(acc, x int) int { return acc + x },
		func(a, b int) int { return a + b },
	)
	if err != nil || total != 58 {
		t.Errorf("Fold() = %d, %v; want 58", total, err)
	}

	if _, _, err := WithHeader(strings.NewReader("")); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("WithHeader(empty) error = %v", err)
	}
}

func TestWriteRecords(t *testing.T) {
	var buf bytes.Buffer
	double := core.PipeMap(core.Identity[int](), func(x int) []string {
		return []string{strconv.Itoa(x), strconv.Itoa(2 * x)}
	})
	n, err := WriteRecords(context.Background(), runner.New(runner.WithCPUs(4)), core.DefaultParams(), &buf,
		source.Range(1, 4), double, WithWriterComma('|'), WithUseCRLF(true))
	if err != nil || n != 3 {
		t.Fatalf("WriteRecords() = %d, %v", n, err)
	}
	if got, want := buf.String(), "1|2\r\n2|4\r\n3|6\r\n"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestFormat(t *testing.T) {
	pipe := Format(core.Identity[[]string](), WithWriterComma(';'))
	src := source.FromSlice([][]string{{"a", "b"}, {"with;sep", "x"}, {"quote\"d"}})

	got, err := runner.Collect(context.Background(), runner.New(), core.DefaultParams(), src, pipe)
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	want := []string{"a;b", `"with;sep";x`, `"quote""d"`}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Format() mismatch (-want +got):\n%s", diff)
	}
}
