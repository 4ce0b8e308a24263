// Package json provides JSON decoding and encoding stages and JSON stream
// sources for parflow computations.
package json

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/lguimbarda/parflow/flow/core"
	pio "github.com/lguimbarda/parflow/flow/io"
)

// ErrNotArray is returned by Array sources whose input does not start
// with a JSON array.
var ErrNotArray = errors.New("json: expected array")

// Decode appends a stage unmarshaling each string into a U. Invalid JSON
// fails the computation at that item.
func Decode[U, T any](p core.Pipeline[T, string]) core.Pipeline[T, U] {
	return core.PipeTryMap(p, func(s string) (U, error) {
		var v U
		err := json.Unmarshal([]byte(s), &v)
		return v, err
	})
}

// DecodeBytes is Decode for byte slices.
func DecodeBytes[U, T any](p core.Pipeline[T, []byte]) core.Pipeline[T, U] {
	return core.PipeTryMap(p, func(b []byte) (U, error) {
		var v U
		err := json.Unmarshal(b, &v)
		return v, err
	})
}

// Encode appends a stage marshaling each item to a JSON string.
func Encode[T, U any](p core.Pipeline[T, U]) core.Pipeline[T, string] {
	return core.PipeTryMap(p, func(u U) (string, error) {
		b, err := json.Marshal(u)
		return string(b), err
	})
}

// Stream returns a source over a stream of JSON values, such as
// newline-delimited JSON. A malformed value ends the source; check Err
// once the computation returns.
func Stream[T any](r io.Reader) *pio.Reader[T] {
	dec := json.NewDecoder(r)
	return pio.NewReader(func() (T, error) {
		var v T
		if err := dec.Decode(&v); err != nil {
			if err == io.EOF {
				return v, err
			}
			return v, fmt.Errorf("decoding value: %w", err)
		}
		return v, nil
	}, closerOf(r))
}

// Array returns a source over the elements of the JSON array read from r.
// The opening bracket is consumed on the first pull.
func Array[T any](r io.Reader) *pio.Reader[T] {
	dec := json.NewDecoder(r)
	opened := false
	return pio.NewReader(func() (T, error) {
		var v T
		if !opened {
			tok, err := dec.Token()
			if err != nil {
				return v, fmt.Errorf("reading array start: %w", err)
			}
			if d, ok := tok.(json.Delim); !ok || d != '[' {
				return v, ErrNotArray
			}
			opened = true
		}
		if !dec.More() {
			if _, err := dec.Token(); err != nil {
				return v, fmt.Errorf("reading array end: %w", err)
			}
			return v, io.EOF
		}
		if err := dec.Decode(&v); err != nil {
			return v, fmt.Errorf("decoding element: %w", err)
		}
		return v, nil
	}, closerOf(r))
}

func closerOf(r io.Reader) io.Closer {
	if c, ok := r.(io.Closer); ok {
		return c
	}
	return nil
}
