// Package glob provides file path sources and path stages for parflow
// computations.
package glob

import (
	"io"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"time"

	"github.com/lguimbarda/parflow/flow/core"
	pio "github.com/lguimbarda/parflow/flow/io"
	"github.com/lguimbarda/parflow/flow/source"
)

// FileInfo contains information about a file or directory.
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	Mode    fs.FileMode
	IsDir   bool
	ModTime time.Time
}

// Match returns a source over the paths matching pattern, as reported by
// filepath.Glob. The length is known up front.
func Match(pattern string) (source.Source[string], error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	return source.FromSlice(matches), nil
}

// ListDir returns a source over the immediate children of dir, in
// directory order.
func ListDir(dir string) (source.Source[string], error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(entries))
	for i, e := range entries {
		paths[i] = filepath.Join(dir, e.Name())
	}
	return source.FromSlice(paths), nil
}

// Walk returns a source over every path under root, root included, in
// lexical walk order. The tree is walked lazily as workers pull; an error
// reading the tree ends the source and is reported by Err.
func Walk(root string) *pio.Reader[string] {
	return walk(root, func(fs.DirEntry) bool { return true })
}

// WalkFiles is Walk restricted to regular files.
func WalkFiles(root string) *pio.Reader[string] {
	return walk(root, func(d fs.DirEntry) bool { return d.Type().IsRegular() })
}

// WalkDirs is Walk restricted to directories.
func WalkDirs(root string) *pio.Reader[string] {
	return walk(root, fs.DirEntry.IsDir)
}

func walk(root string, keep func(fs.DirEntry) bool) *pio.Reader[string] {
	next, stop := iter.Pull2(paths(root, keep))
	return pio.NewReader(func() (string, error) {
		path, err, ok := next()
		switch {
		case !ok:
			return "", io.EOF
		case err != nil:
			return "", err
		}
		return path, nil
	}, closeFunc(stop))
}

func paths(root string, keep func(fs.DirEntry) bool) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if keep(d) && !yield(path, nil) {
				return filepath.SkipAll
			}
			return nil
		})
		if err != nil {
			yield("", err)
		}
	}
}

type closeFunc func()

func (f closeFunc) Close() error {
	f()
	return nil
}

// Filter appends a stage keeping paths whose base name matches pattern.
// It fails if pattern is malformed.
func Filter[T any](p core.Pipeline[T, string], pattern string) (core.Pipeline[T, string], error) {
	if _, err := filepath.Match(pattern, ""); err != nil {
		return core.Pipeline[T, string]{}, err
	}
	return core.PipeFilter(p, func(path string) bool {
		ok, _ := filepath.Match(pattern, filepath.Base(path))
		return ok
	}), nil
}

// Stat appends a stage reading the file information of each path.
func Stat[T any](p core.Pipeline[T, string]) core.Pipeline[T, FileInfo] {
	return core.PipeTryMap(p, func(path string) (FileInfo, error) {
		info, err := os.Stat(path)
		if err != nil {
			return FileInfo{}, err
		}
		return FileInfo{
			Path:    path,
			Name:    info.Name(),
			Size:    info.Size(),
			Mode:    info.Mode(),
			IsDir:   info.IsDir(),
			ModTime: info.ModTime(),
		}, nil
	})
}
