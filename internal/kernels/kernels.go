// Package kernels implements whole-tensor numerical routines (dense linear algebra, transforms,
// scans) as external-kernel operators backed by gonum.
//
// Every constructor validates input shapes immediately and returns an operator whose output
// storage is allocated up front. Numerical failures (singular systems, decompositions that do
// not converge) are reported when the kernel runs.
package kernels

import (
	"context"

	"github.com/born-ml/tensorexpr/internal/expr"
	"github.com/born-ml/tensorexpr/internal/tensor"
)

// Option configures a kernel.
type Option func(*options)

type options struct {
	backend tensor.Backend
}

// WithBackend allocates the kernel output from backend instead of the default host backend.
func WithBackend(b tensor.Backend) Option {
	return func(o *options) { o.backend = b }
}

// routine adapts a row-major implementation to the expr.Routine contract.
type routine struct {
	name   string
	shape  tensor.Shape
	inputs []expr.Operator[float64]
	run    func(ctx context.Context, in [][]float64, out []float64) error
}

func (r *routine) Name() string        { return r.name }
func (r *routine) Shape() tensor.Shape { return r.shape }

func (r *routine) Inputs() []expr.Node {
	nodes := make([]expr.Node, len(r.inputs))
	for i, in := range r.inputs {
		nodes[i] = in
	}
	return nodes
}

func (r *routine) Run(ctx context.Context, out *tensor.View[float64]) error {
	in := make([][]float64, len(r.inputs))
	for i, op := range r.inputs {
		in[i] = materialize(op)
	}
	buf := make([]float64, r.shape.NumElements())
	if err := r.run(ctx, in, buf); err != nil {
		return err
	}
	for flat, idx := range r.shape.Iter() {
		out.Put(idx, buf[flat])
	}
	return nil
}

// materialize evaluates op into a row-major slice.
func materialize(op expr.Operator[float64]) []float64 {
	shape := op.Shape()
	data := make([]float64, shape.NumElements())
	eval := op.Evaluator()
	for flat, idx := range shape.Iter() {
		data[flat] = eval(idx)
	}
	return data
}

func newKernel(r *routine, opts []Option) (*expr.KernelOp[float64], error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return expr.Kernel[float64](r, o.backend)
}

func requireRank(op string, x expr.Node, rank int) error {
	if x.Shape().Rank() != rank {
		return tensor.NewShapeError(op, -1, x.Shape().Rank(), rank, x.Shape())
	}
	return nil
}

func requireNonEmpty(op string, x expr.Node) error {
	if x.Shape().IsEmpty() {
		return tensor.ArgumentErrorf(op, "empty input %v", x.Shape())
	}
	return nil
}
