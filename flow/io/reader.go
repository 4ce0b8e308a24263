// Package io adapts byte streams to parflow: readers become concurrent
// sources of lines, fixed-size chunks or decoded records, and ordered
// results can be written back out.
package io

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/lguimbarda/parflow/flow/source"
)

// Decoder returns the next item of a stream. It returns io.EOF once the
// stream is exhausted; any other error ends the stream early.
type Decoder[T any] func() (T, error)

// Reader is a Source over items decoded from a byte stream. Decoding is
// sequential and happens under the source lock, so item indices follow
// stream order.
//
// A decode failure ends the source early. Check Err once the computation
// returns.
type Reader[T any] struct {
	source.Source[T]

	mu       sync.Mutex
	closer   io.Closer
	done     bool
	readErr  error
	closeErr error
}

// NewReader returns a Reader over decode. closer, which may be nil, is
// closed once the stream ends, fails or is stopped.
func NewReader[T any](decode Decoder[T], closer io.Closer) *Reader[T] {
	r := &Reader[T]{closer: closer}
	r.Source = source.FromFunc(func() (T, bool) {
		item, err := decode()
		switch {
		case errors.Is(err, io.EOF):
			r.release(nil)
			return item, false
		case err != nil:
			r.release(err)
			return item, false
		}
		return item, true
	})
	return r
}

// release records err, if any, and closes the underlying stream. It is
// idempotent.
func (r *Reader[T]) release(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil && r.readErr == nil {
		r.readErr = err
	}
	if r.done {
		return
	}
	r.done = true
	if r.closer != nil {
		r.closeErr = r.closer.Close()
	}
}

// Stop stops the source and closes the underlying stream.
func (r *Reader[T]) Stop() {
	r.Source.Stop()
	r.release(nil)
}

// Err returns the first decode error.
func (r *Reader[T]) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.readErr
}

// Close releases the stream and returns any error seen while reading it.
func (r *Reader[T]) Close() error {
	r.Stop()
	r.mu.Lock()
	defer r.mu.Unlock()
	return errors.Join(r.readErr, r.closeErr)
}

// Lines returns a Reader over the lines of rd, without their trailing
// newlines. If rd is an io.Closer it is closed when the source ends.
func Lines(rd io.Reader) *Reader[string] {
	scanner := bufio.NewScanner(rd)
	return NewReader(func() (string, error) {
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return "", fmt.Errorf("reading line: %w", err)
			}
			return "", io.EOF
		}
		return scanner.Text(), nil
	}, closerOf(rd))
}

// OpenLines opens the file at path and returns a Reader over its lines.
func OpenLines(path string) (*Reader[string], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return Lines(f), nil
}

// Chunks returns a Reader over consecutive chunks of rd of up to size
// bytes. Every chunk is a fresh slice.
func Chunks(rd io.Reader, size int) *Reader[[]byte] {
	if size <= 0 {
		panic("io: chunk size must be positive")
	}
	return NewReader(func() ([]byte, error) {
		buf := make([]byte, size)
		n, err := io.ReadFull(rd, buf)
		switch {
		case n > 0:
			return buf[:n], nil
		case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
			return nil, io.EOF
		case err != nil:
			return nil, fmt.Errorf("reading chunk: %w", err)
		}
		return nil, io.EOF
	}, closerOf(rd))
}

func closerOf(rd io.Reader) io.Closer {
	if c, ok := rd.(io.Closer); ok {
		return c
	}
	return nil
}
