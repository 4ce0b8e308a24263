// Package csv provides CSV sources and writers for parflow computations.
package csv

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/lguimbarda/parflow/flow/core"
	pio "github.com/lguimbarda/parflow/flow/io"
	"github.com/lguimbarda/parflow/flow/runner"
	"github.com/lguimbarda/parflow/flow/source"
)

// ReaderOption configures a CSV reader.
type ReaderOption func(*csv.Reader)

// WithComma sets the field delimiter (default is ',').
func WithComma(comma rune) ReaderOption {
	return func(r *csv.Reader) {
		r.Comma = comma
	}
}

// WithComment sets the comment character. Lines beginning with this
// character are ignored.
func WithComment(comment rune) ReaderOption {
	return func(r *csv.Reader) {
		r.Comment = comment
	}
}

// WithFieldsPerRecord sets the expected number of fields per record.
// If positive, each record must have exactly that many fields.
// If 0, the number is set to the first record's field count.
// If negative, no check is made and records may have variable fields.
func WithFieldsPerRecord(n int) ReaderOption {
	return func(r *csv.Reader) {
		r.FieldsPerRecord = n
	}
}

// WithLazyQuotes allows lazy quotes in quoted fields.
func WithLazyQuotes(lazy bool) ReaderOption {
	return func(r *csv.Reader) {
		r.LazyQuotes = lazy
	}
}

// WithTrimLeadingSpace trims leading whitespace from fields.
func WithTrimLeadingSpace(trim bool) ReaderOption {
	return func(r *csv.Reader) {
		r.TrimLeadingSpace = trim
	}
}

func newReader(rd io.Reader, opts []ReaderOption) *csv.Reader {
	cr := csv.NewReader(rd)
	for _, opt := range opts {
		opt(cr)
	}
	return cr
}

// Records returns a source over the records of rd. A malformed record
// ends the source; check Err once the computation returns.
func Records(rd io.Reader, opts ...ReaderOption) *pio.Reader[[]string] {
	return records(newReader(rd, opts), closerOf(rd))
}

func records(cr *csv.Reader, closer io.Closer) *pio.Reader[[]string] {
	return pio.NewReader(func() ([]string, error) {
		rec, err := cr.Read()
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("reading record: %w", err)
		}
		return rec, err
	}, closer)
}

// Open opens the CSV file at path and returns a source over its records.
func Open(path string, opts ...ReaderOption) (*pio.Reader[[]string], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return Records(f, opts...), nil
}

// WithHeader reads the header record of rd and returns it together with
// a source over the remaining records.
func WithHeader(rd io.Reader, opts ...ReaderOption) ([]string, *pio.Reader[[]string], error) {
	cr := newReader(rd, opts)
	header, err := cr.Read()
	if err != nil {
		if c := closerOf(rd); c != nil {
			c.Close()
		}
		if err == io.EOF {
			return nil, nil, fmt.Errorf("reading header: %w", io.ErrUnexpectedEOF)
		}
		return nil, nil, fmt.Errorf("reading header: %w", err)
	}
	return header, records(cr, closerOf(rd)), nil
}

// WriterOption configures a CSV writer.
type WriterOption func(*csv.Writer)

// WithWriterComma sets the field delimiter for writing (default is ',').
func WithWriterComma(comma rune) WriterOption {
	return func(w *csv.Writer) {
		w.Comma = comma
	}
}

// WithUseCRLF sets whether to use \r\n as the line terminator.
func WithUseCRLF(useCRLF bool) WriterOption {
	return func(w *csv.Writer) {
		w.UseCRLF = useCRLF
	}
}

func newWriter(w io.Writer, opts []WriterOption) *csv.Writer {
	cw := csv.NewWriter(w)
	for _, opt := range opts {
		opt(cw)
	}
	return cw
}

// Format appends a stage encoding each record as one CSV line, without
// the line terminator. Encoding runs in the workers.
func Format[T any](p core.Pipeline[T, []string], opts ...WriterOption) core.Pipeline[T, string] {
	return core.PipeTryMap(p, func(rec []string) (string, error) {
		var buf bytes.Buffer
		cw := newWriter(&buf, opts)
		if err := cw.Write(rec); err != nil {
			return "", err
		}
		cw.Flush()
		if err := cw.Error(); err != nil {
			return "", err
		}
		return strings.TrimRight(buf.String(), "\r\n"), nil
	})
}

// WriteRecords runs pipe over src and writes the resulting records to w
// in source order. Nothing is written if the computation fails. It
// returns the number of records written.
func WriteRecords[T any](ctx context.Context, r *runner.Runner, p core.Params, w io.Writer, src source.Source[T], pipe core.Pipeline[T, []string], opts ...WriterOption) (int, error) {
	recs, err := runner.Collect(ctx, r, p.With(core.WithOrdering(core.Ordered)), src, pipe)
	if err != nil {
		return 0, err
	}

	cw := newWriter(w, opts)
	if err := cw.WriteAll(recs); err != nil {
		return 0, fmt.Errorf("writing records: %w", err)
	}
	return len(recs), nil
}

func closerOf(rd io.Reader) io.Closer {
	if c, ok := rd.(io.Closer); ok {
		return c
	}
	return nil
}
