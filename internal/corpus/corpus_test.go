package corpus

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStrings(t *testing.T) {
	seq := Strings("a", "b", "c")
	assert.Equal(t, []string{"a", "b", "c"}, slices.Collect(seq))
	assert.Equal(t, []string{"a", "b", "c"}, slices.Collect(seq), "restartable")

	var first []string
	for s := range seq {
		first = append(first, s)
		break
	}
	assert.Equal(t, []string{"a"}, first)
}

func TestSkipBlank(t *testing.T) {
	got := slices.Collect(SkipBlank(Strings("a", "", "  \t", "b")))
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestBatches(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		size int
		want [][]string
	}{
		{"exact", []string{"a", "b", "c", "d"}, 2, [][]string{{"a", "b"}, {"c", "d"}}},
		{"remainder", []string{"a", "b", "c"}, 2, [][]string{{"a", "b"}, {"c"}}},
		{"empty", nil, 3, nil},
		{"zero size", []string{"a", "b"}, 0, [][]string{{"a"}, {"b"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := slices.Collect(Batches(Strings(tt.in...), tt.size))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLines(t *testing.T) {
	src := Lines(strings.NewReader("first line\nsecond\r\n\nlast"))
	assert.Equal(t, []string{"first line", "second", "", "last"}, slices.Collect(src.All()))
	require.NoError(t, src.Err())

	assert.Empty(t, slices.Collect(src.All()), "a reader is consumed once")
}

func TestLines_ReadError(t *testing.T) {
	boom := errors.New("boom")
	src := Lines(iotest.ErrReader(boom))

	assert.Empty(t, slices.Collect(src.All()))
	assert.ErrorIs(t, src.Err(), boom)
}

func TestFiles(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(a, []byte("one\ntwo\n"), 0o600))
	require.NoError(t, os.WriteFile(b, []byte("three"), 0o600))

	src := Files(a, b)
	assert.Equal(t, []string{"one", "two", "three"}, slices.Collect(src.All()))
	require.NoError(t, src.Err())
	assert.Equal(t, []string{"one", "two", "three"}, slices.Collect(src.All()), "files are reopened")

	size, err := src.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(13), size)
	assert.Equal(t, []string{a, b}, src.Paths())
}

func TestFiles_Missing(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(a, []byte("one\n"), 0o600))

	src := Files(a, filepath.Join(dir, "missing.txt"))
	assert.Equal(t, []string{"one"}, slices.Collect(src.All()))
	require.Error(t, src.Err())
	assert.ErrorIs(t, src.Err(), os.ErrNotExist)

	_, err := src.Size()
	assert.Error(t, err)
}

func TestFiles_EarlyStop(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(a, []byte("one\ntwo\nthree\n"), 0o600))

	src := Files(a, filepath.Join(dir, "never-opened.txt"))
	for line := range src.All() {
		assert.Equal(t, "one", line)
		break
	}
	assert.NoError(t, src.Err())
}
