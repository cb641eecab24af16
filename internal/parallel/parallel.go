// Package parallel provides chunked parallel execution for tokenizer training and encoding.
//
// Work is split into contiguous index ranges. Results are collected per chunk and returned in
// chunk order, so a caller that folds them left to right gets the same answer for any worker count.
package parallel

import (
	"runtime"

	"github.com/sourcegraph/conc/pool"
)

// Config controls parallel execution behavior.
type Config struct {
	Enabled      bool // Whether parallel execution is enabled.
	NumWorkers   int  // Number of worker goroutines to use.
	MinChunkSize int  // Minimum items per goroutine to avoid overhead.
}

// DefaultConfig returns sensible defaults based on CPU count.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:      n > 1,
		NumWorkers:   n,
		MinChunkSize: 64,
	}
}

// WithWorkers returns a copy of cfg using n workers. Values below 1 select runtime.NumCPU().
func (cfg Config) WithWorkers(n int) Config {
	if n < 1 {
		n = runtime.NumCPU()
	}
	cfg.NumWorkers = n
	cfg.Enabled = n > 1
	return cfg
}

// chunkSize returns the range length per task, or 0 when n should run sequentially.
func (cfg Config) chunkSize(n int) int {
	if !cfg.Enabled || cfg.NumWorkers < 2 || n < cfg.MinChunkSize || n < 2 {
		return 0
	}
	return max((n+cfg.NumWorkers-1)/cfg.NumWorkers, cfg.MinChunkSize, 1)
}

// Chunks splits [0, n) into contiguous ranges, runs f on each range and returns the results in
// range order. With parallelism disabled f is called once with the whole range.
func Chunks[T any](n int, cfg Config, f func(start, end int) T) []T {
	if n <= 0 {
		return nil
	}

	size := cfg.chunkSize(n)
	if size == 0 {
		return []T{f(0, n)}
	}

	results := make([]T, (n+size-1)/size)
	p := pool.New().WithMaxGoroutines(cfg.NumWorkers)
	for c := range results {
		start := c * size
		end := min(start+size, n)
		p.Go(func() {
			results[c] = f(start, end)
		})
	}
	p.Wait()

	return results
}
