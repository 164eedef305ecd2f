// Package exec binds operator trees to destination views and runs them on queues.
//
// An Expression pairs a destination view with an operator of the same shape. Executing it
// runs the tree's pending kernel nodes, then assigns every destination element its operator
// value, splitting the flat index range across workers.
package exec

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/born-ml/tensorexpr/internal/expr"
	"github.com/born-ml/tensorexpr/internal/parallel"
	"github.com/born-ml/tensorexpr/internal/tensor"
)

// Runnable is work an Executor can submit to a queue.
type Runnable interface {
	Name() string
	Execute(ctx context.Context, cfg parallel.Config) error
}

// Expression assigns the values of an operator tree to a destination view.
//
// The destination must not alias any storage read by the tree unless every element is read
// only at its own index. Overlapping reads and writes are not detected.
type Expression[T tensor.Element] struct {
	name     string
	dst      *tensor.View[T]
	root     expr.Operator[T]
	kernels  []expr.Runner
	storages []*tensor.Storage
}

// Verify that Expression implements Runnable.
var _ Runnable = (*Expression[float32])(nil)

// Build binds root to dst. Their shapes must be equal; broadcasting is never applied to the
// destination.
func Build[T tensor.Element](dst *tensor.View[T], root expr.Operator[T]) (*Expression[T], error) {
	if dst == nil || root == nil {
		return nil, tensor.ArgumentErrorf("build", "destination and operator are required")
	}
	if err := checkShapes(dst.Shape(), root.Shape()); err != nil {
		return nil, err
	}
	return &Expression[T]{
		name:     "assign " + root.Name(),
		dst:      dst,
		root:     root,
		kernels:  expr.Kernels(root),
		storages: expr.Storages(root),
	}, nil
}

func checkShapes(dst, src tensor.Shape) error {
	if dst.Rank() != src.Rank() {
		return tensor.NewShapeError("build", -1, dst.Rank(), src.Rank(), dst, src)
	}
	for i := range dst {
		if dst[i] != src[i] {
			return tensor.NewShapeError("build", i, dst[i], src[i], dst, src)
		}
	}
	return nil
}

// Named sets the name used in logs and synchronization errors.
func (x *Expression[T]) Named(name string) *Expression[T] {
	x.name = name
	return x
}

// Name returns the expression's name.
func (x *Expression[T]) Name() string { return x.name }

// Destination returns the view written by the expression.
func (x *Expression[T]) Destination() *tensor.View[T] { return x.dst }

// Root returns the operator tree.
func (x *Expression[T]) Root() expr.Operator[T] { return x.root }

// String renders the destination and the tree.
func (x *Expression[T]) String() string {
	return fmt.Sprintf("%s <- \n%s", x.dst, expr.Format(x.root))
}

// Execute runs the kernel nodes that have no output yet, then writes every destination
// element while holding the kernel outputs for reading. Chunks of the flat
// index range run on up to cfg.NumWorkers goroutines, each with its own evaluator.
func (x *Expression[T]) Execute(ctx context.Context, cfg parallel.Config) error {
	if !x.dst.Valid() {
		return tensor.ArgumentErrorf(x.name, "destination storage was released")
	}
	for _, s := range x.storages {
		if s.Released() {
			return tensor.ArgumentErrorf(x.name, "operand storage was released")
		}
	}

	done, err := expr.ReadOutputs(ctx, x.kernels)
	if err != nil {
		return errors.WithMessagef(err, "%s", x.name)
	}
	defer done()

	shape := x.dst.Shape()
	n := shape.NumElements()
	klog.V(2).Infof("executing %s: %d elements, %d kernels", x.name, n, len(x.kernels))
	return parallel.ForChunks(ctx, n, cfg, func(_ context.Context, start, end int) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = errors.Errorf("%s: evaluating [%d, %d): %v", x.name, start, end, r)
			}
		}()
		eval := x.root.Evaluator()
		idx := make([]int, shape.Rank())
		shape.Unravel(start, idx)
		for i := start; i < end; i++ {
			x.dst.Put(idx, eval(idx))
			shape.Next(idx)
		}
		return nil
	})
}

// Eval allocates a tensor on backend (nil for the default host backend), assigns root to it
// and returns it.
func Eval[T tensor.Element](ctx context.Context, root expr.Operator[T], backend tensor.Backend, cfg parallel.Config) (*tensor.Tensor[T], error) {
	if root == nil {
		return nil, tensor.ArgumentErrorf("eval", "operator is required")
	}
	if backend == nil {
		backend = expr.DefaultBackend()
	}
	out, err := tensor.Allocate[T](root.Shape(), backend)
	if err != nil {
		return nil, err
	}
	x, err := Build(out.View(), root)
	if err != nil {
		out.Release()
		return nil, err
	}
	if err := x.Execute(ctx, cfg); err != nil {
		out.Release()
		return nil, err
	}
	return out, nil
}
