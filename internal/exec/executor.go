package exec

import (
	"context"

	"k8s.io/klog/v2"

	"github.com/born-ml/tensorexpr/internal/expr"
	"github.com/born-ml/tensorexpr/internal/parallel"
)

// Executor submits expressions and kernels to queues.
type Executor struct {
	queue Queue
	cfg   parallel.Config
	owned *Stream
}

// Option configures an Executor.
type Option func(*Executor)

// WithQueue sets the default queue. The caller keeps ownership of it.
func WithQueue(q Queue) Option {
	return func(e *Executor) {
		e.queue = q
	}
}

// WithStream makes the executor start, and close with it, a stream as its default queue.
func WithStream() Option {
	return func(e *Executor) {
		e.owned = NewStream()
		e.queue = e.owned
	}
}

// WithConfig sets the parallel configuration used by every expression pass.
func WithConfig(cfg parallel.Config) Option {
	return func(e *Executor) {
		e.cfg = cfg
	}
}

// New creates an executor. By default it runs work immediately, with parallel.DefaultConfig.
func New(opts ...Option) *Executor {
	e := &Executor{cfg: parallel.DefaultConfig()}
	for _, opt := range opts {
		opt(e)
	}
	if e.queue == nil {
		e.queue = NewImmediate()
	}
	klog.V(1).Infof("executor: queue %s, %d workers", e.queue.ID(), e.cfg.NumWorkers)
	return e
}

// Queue returns the default queue.
func (e *Executor) Queue() Queue { return e.queue }

// Config returns the parallel configuration.
func (e *Executor) Config() parallel.Config { return e.cfg }

// Run submits x to the default queue and waits for it.
func (e *Executor) Run(ctx context.Context, x Runnable) error {
	return e.Submit(x).Wait(ctx)
}

// Submit enqueues x on the default queue.
func (e *Executor) Submit(x Runnable) *Event {
	return e.SubmitOn(e.queue, x)
}

// SubmitOn enqueues x on q, or on the default queue when q is nil.
func (e *Executor) SubmitOn(q Queue, x Runnable) *Event {
	if q == nil {
		q = e.queue
	}
	cfg := e.cfg
	klog.V(1).Infof("executor: submitting %s on %s", x.Name(), q.ID())
	return q.Enqueue(x.Name(), func(ctx context.Context) error {
		return x.Execute(ctx, cfg)
	})
}

// SubmitKernel enqueues a run of k on q, or on the default queue when q is nil. Kernels k reads
// that have no output yet run first; k itself is always recomputed.
func (e *Executor) SubmitKernel(q Queue, k expr.Runner) *Event {
	if q == nil {
		q = e.queue
	}
	klog.V(1).Infof("executor: submitting kernel %s on %s", k.Name(), q.ID())
	return q.Enqueue(k.Name(), k.Run)
}

// Synchronize waits for the default queue.
func (e *Executor) Synchronize(ctx context.Context) error {
	return e.queue.Synchronize(ctx)
}

// Close stops the stream the executor started, if any, after its queued work finished.
func (e *Executor) Close() {
	if e.owned != nil {
		e.owned.Close()
		e.owned = nil
	}
}
