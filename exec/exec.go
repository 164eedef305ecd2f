// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package exec binds operator trees to destination views and runs them on queues.
//
// Example:
//
//	x, err := exec.Build(dst.View(), expr.Must(expr.Add[float32](expr.Of(a), expr.Of(b))))
//	if err != nil {
//	    return err
//	}
//	e := exec.New(exec.WithStream())
//	defer e.Close()
//	e.Submit(x)
//	if err := e.Synchronize(ctx); err != nil {
//	    return err
//	}
package exec

import (
	"context"

	"github.com/born-ml/tensorexpr/expr"
	"github.com/born-ml/tensorexpr/internal/exec"
	"github.com/born-ml/tensorexpr/internal/parallel"
	"github.com/born-ml/tensorexpr/tensor"
)

// Config controls how an expression pass is split across workers.
type Config = parallel.Config

// DefaultConfig uses every CPU, overridable with TENSOREXPR_WORKERS and TENSOREXPR_MIN_CHUNK.
func DefaultConfig() Config { return parallel.DefaultConfig() }

// Sequential evaluates on the calling goroutine.
func Sequential() Config { return parallel.Sequential() }

// Runnable is work an Executor can submit.
type Runnable = exec.Runnable

// Expression assigns an operator tree to a destination view.
type Expression[T tensor.Element] = exec.Expression[T]

// Build binds root to dst. Their shapes must be equal.
func Build[T tensor.Element](dst *tensor.View[T], root expr.Operator[T]) (*Expression[T], error) {
	return exec.Build(dst, root)
}

// Eval allocates a tensor on backend (nil for the default host backend) and assigns root to it.
func Eval[T tensor.Element](ctx context.Context, root expr.Operator[T], backend tensor.Backend, cfg Config) (*tensor.Tensor[T], error) {
	return exec.Eval(ctx, root, backend, cfg)
}

// Queue, work and events.
type (
	Queue     = exec.Queue
	Work      = exec.Work
	Event     = exec.Event
	Immediate = exec.Immediate
	Stream    = exec.Stream
)

// NewImmediate creates a queue that runs work in the submitting goroutine.
func NewImmediate() *Immediate { return exec.NewImmediate() }

// NewStream starts an asynchronous FIFO queue.
func NewStream() *Stream { return exec.NewStream() }

// Executor submits expressions and kernels to queues.
type Executor = exec.Executor

// Option configures an Executor.
type Option = exec.Option

// New creates an executor.
func New(opts ...Option) *Executor { return exec.New(opts...) }

// WithQueue sets the default queue.
func WithQueue(q Queue) Option { return exec.WithQueue(q) }

// WithStream makes the executor own a stream as its default queue.
func WithStream() Option { return exec.WithStream() }

// WithConfig sets the parallel configuration.
func WithConfig(cfg Config) Option { return exec.WithConfig(cfg) }
