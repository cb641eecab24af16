// Package corpus provides text sequences for tokenizer training.
//
// Every source is an iter.Seq[string]. Sources that read from files or readers keep the first
// read error, available from Err once ranging stops.
package corpus

import (
	"bufio"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"
)

// maxLineSize bounds a single corpus line.
const maxLineSize = 64 << 20

// Strings returns a restartable sequence over xs.
func Strings(xs ...string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, x := range xs {
			if !yield(x) {
				return
			}
		}
	}
}

// SkipBlank drops lines that are empty or whitespace only.
func SkipBlank(seq iter.Seq[string]) iter.Seq[string] {
	return func(yield func(string) bool) {
		for s := range seq {
			if strings.TrimSpace(s) == "" {
				continue
			}
			if !yield(s) {
				return
			}
		}
	}
}

// Batches groups seq into slices of up to size elements. The final batch may be shorter.
// Each yielded slice is freshly allocated and owned by the caller.
func Batches(seq iter.Seq[string], size int) iter.Seq[[]string] {
	size = max(size, 1)
	return func(yield func([]string) bool) {
		batch := make([]string, 0, size)
		for s := range seq {
			batch = append(batch, s)
			if len(batch) == size {
				if !yield(batch) {
					return
				}
				batch = make([]string, 0, size)
			}
		}
		if len(batch) > 0 {
			yield(batch)
		}
	}
}

// ReaderSource yields the lines of a reader. It can be ranged over once.
type ReaderSource struct {
	r   io.Reader
	err error
}

// Lines returns a line source over r.
func Lines(r io.Reader) *ReaderSource {
	return &ReaderSource{r: r}
}

// All yields every line without its line terminator.
func (s *ReaderSource) All() iter.Seq[string] {
	return func(yield func(string) bool) {
		if s.r == nil {
			return
		}
		r := s.r
		s.r = nil
		if _, err := scan(r, yield); err != nil {
			s.err = err
		}
	}
}

// Err returns the first read error.
func (s *ReaderSource) Err() error {
	return s.err
}

// FileSource yields the lines of a list of files, in order. Each range reopens the files.
type FileSource struct {
	paths []string
	err   error
}

// Files returns a line source over paths.
func Files(paths ...string) *FileSource {
	return &FileSource{paths: append([]string(nil), paths...)}
}

// Paths returns the files of the source.
func (s *FileSource) Paths() []string {
	return append([]string(nil), s.paths...)
}

// All yields every line of every file. An open or read error ends the sequence and is kept for Err.
func (s *FileSource) All() iter.Seq[string] {
	return func(yield func(string) bool) {
		s.err = nil
		for _, path := range s.paths {
			more, err := scanFile(path, yield)
			if err != nil {
				s.err = err
				return
			}
			if !more {
				return
			}
		}
	}
}

// Err returns the error that ended the last range, if any.
func (s *FileSource) Err() error {
	return s.err
}

// Size returns the total size in bytes of the files.
func (s *FileSource) Size() (int64, error) {
	var total int64
	for _, path := range s.paths {
		info, err := os.Stat(path)
		if err != nil {
			return 0, fmt.Errorf("failed to stat corpus file: %w", err)
		}
		total += info.Size()
	}
	return total, nil
}

func scanFile(path string, yield func(string) bool) (bool, error) {
	f, err := os.Open(path) //nolint:gosec // G304: corpus paths are supplied by the user.
	if err != nil {
		return false, fmt.Errorf("failed to open corpus file: %w", err)
	}
	defer func() { _ = f.Close() }()

	more, err := scan(f, yield)
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return more, nil
}

// scan yields lines of r and reports whether the consumer wants more.
func scan(r io.Reader, yield func(string) bool) (bool, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for sc.Scan() {
		if !yield(sc.Text()) {
			return false, nil
		}
	}
	return true, sc.Err()
}
