// Package parallel provides chunked parallel execution for expression passes.
package parallel

import (
	"context"
	"os"
	"runtime"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"
)

// Environment variables overriding DefaultConfig.
const (
	EnvWorkers  = "TENSOREXPR_WORKERS"
	EnvMinChunk = "TENSOREXPR_MIN_CHUNK"
)

// Config controls parallel execution behavior.
type Config struct {
	Enabled      bool // Whether parallel execution is enabled.
	NumWorkers   int  // Number of worker goroutines to use.
	MinChunkSize int  // Minimum items per goroutine to avoid overhead.
}

// DefaultConfig returns sensible defaults based on CPU count, overridden by
// TENSOREXPR_WORKERS and TENSOREXPR_MIN_CHUNK when set.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	cfg := Config{
		NumWorkers:   n,
		MinChunkSize: 1024,
	}
	if v, ok := envInt(EnvWorkers); ok {
		cfg.NumWorkers = max(v, 1)
	}
	if v, ok := envInt(EnvMinChunk); ok {
		cfg.MinChunkSize = max(v, 1)
	}
	cfg.Enabled = cfg.NumWorkers > 1
	return cfg
}

// Sequential returns a configuration that runs everything in the calling goroutine.
func Sequential() Config {
	return Config{NumWorkers: 1, MinChunkSize: 1}
}

func envInt(name string) (int, bool) {
	s, ok := os.LookupEnv(name)
	if !ok || s == "" {
		return 0, false
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		klog.Warningf("ignoring %s=%q: %v", name, s, err)
		return 0, false
	}
	return v, true
}

// Chunks splits [0, n) into the ranges For and ForChunks hand to workers.
// It returns a single range when parallelism is disabled or n is too small.
func (cfg Config) Chunks(n int) [][2]int {
	if n <= 0 {
		return nil
	}
	if !cfg.Enabled || cfg.NumWorkers <= 1 || n < cfg.MinChunkSize {
		return [][2]int{{0, n}}
	}
	chunkSize := max((n+cfg.NumWorkers-1)/cfg.NumWorkers, cfg.MinChunkSize, 1)
	chunks := make([][2]int, 0, (n+chunkSize-1)/chunkSize)
	for start := 0; start < n; start += chunkSize {
		chunks = append(chunks, [2]int{start, min(start+chunkSize, n)})
	}
	return chunks
}

// For executes f(i) for i in [0, n) with optional parallelism.
// Falls back to sequential execution if parallelism is disabled or n is too small.
func For(n int, f func(i int), cfg Config) {
	chunks := cfg.Chunks(n)
	if len(chunks) <= 1 {
		for i := 0; i < n; i++ {
			f(i)
		}
		return
	}

	var wg sync.WaitGroup
	for _, c := range chunks {
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			for i := s; i < e; i++ {
				f(i)
			}
		}(c[0], c[1])
	}
	wg.Wait()
}

// ForChunks calls f(ctx, start, end) for every chunk of [0, n), at most NumWorkers at a time.
// The first error cancels the context handed to the remaining chunks and is returned.
// Chunks that already started are not interrupted.
func ForChunks(ctx context.Context, n int, cfg Config, f func(ctx context.Context, start, end int) error) error {
	chunks := cfg.Chunks(n)
	switch len(chunks) {
	case 0:
		return nil
	case 1:
		if err := ctx.Err(); err != nil {
			return err
		}
		return f(ctx, 0, n)
	}

	klog.V(2).Infof("parallel: %d items in %d chunks over %d workers", n, len(chunks), cfg.NumWorkers)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.NumWorkers)
	for _, c := range chunks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return f(gctx, c[0], c[1])
		})
	}
	return g.Wait()
}
