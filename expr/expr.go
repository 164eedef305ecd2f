// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package expr provides the operator algebra of the expression engine.
//
// Operators are lazily evaluated trees: leaves read tensors, generators compute values from
// the index alone, elementwise nodes combine broadcast children, Where selects between two
// branches, and kernel nodes run whole-tensor routines. Constructors validate shapes once;
// nothing is evaluated until an expression is executed with package exec.
//
// Example:
//
//	a := expr.Of(x)                                      // [2 3]
//	b := expr.Of(y)                                      // [3]
//	sum := expr.Must(expr.Add[float32](a, b))            // [2 3]
//	mask := expr.Must(expr.Greater[float32](sum, expr.Scalar[float32](10)))
package expr

import (
	"golang.org/x/exp/constraints"

	"github.com/born-ml/tensorexpr/internal/expr"
	"github.com/born-ml/tensorexpr/tensor"
)

// Kind identifies an operator variant.
type Kind = expr.Kind

// Operator variants.
const (
	KindLeaf        = expr.KindLeaf
	KindGenerator   = expr.KindGenerator
	KindUnary       = expr.KindUnary
	KindBinary      = expr.KindBinary
	KindNAry        = expr.KindNAry
	KindConditional = expr.KindConditional
	KindKernel      = expr.KindKernel
)

// Node is the type-erased part of an operator.
type Node = expr.Node

// Operator is a node producing values of type T.
type Operator[T tensor.Element] = expr.Operator[T]

// EvalFunc returns the value of an operator at a multi-index.
type EvalFunc[T tensor.Element] = expr.EvalFunc[T]

// Operator implementations.
type (
	LeafOp[T tensor.Element]         = expr.LeafOp[T]
	GeneratorOp[T tensor.Element]    = expr.GeneratorOp[T]
	UnaryOp[T, U tensor.Element]     = expr.UnaryOp[T, U]
	BinaryOp[A, B, U tensor.Element] = expr.BinaryOp[A, B, U]
	NAryOp[T, U tensor.Element]      = expr.NAryOp[T, U]
	WhereOp[T tensor.Element]        = expr.WhereOp[T]
	KernelOp[T tensor.Element]       = expr.KernelOp[T]
)

// Must returns op, or panics if err is not nil.
func Must[O any](op O, err error) O { return expr.Must(op, err) }

// Walk calls fn for every node reachable from root, children first.
func Walk(root Node, fn func(Node) error) error { return expr.Walk(root, fn) }

// Format renders the tree rooted at root, one node per line.
func Format(root Node) string { return expr.Format(root) }

// Leaf reads a view.
func Leaf[T tensor.Element](v *tensor.View[T]) *LeafOp[T] { return expr.Leaf(v) }

// Of reads a tensor.
func Of[T tensor.Element](t *tensor.Tensor[T]) *LeafOp[T] { return expr.Of(t) }

// Scalar is a rank-0 constant.
func Scalar[T tensor.Element](value T) *GeneratorOp[T] { return expr.Scalar(value) }

// Full is a constant of the given shape.
func Full[T tensor.Element](shape tensor.Shape, value T) (*GeneratorOp[T], error) {
	return expr.Full(shape, value)
}

// Zeros is a zero constant of the given shape.
func Zeros[T tensor.Element](shape tensor.Shape) (*GeneratorOp[T], error) {
	return expr.Zeros[T](shape)
}

// Ones is a constant 1 of the given shape.
func Ones[T tensor.Numeric](shape tensor.Shape) (*GeneratorOp[T], error) {
	return expr.Ones[T](shape)
}

// Identity is 1 where all indices are equal, 0 elsewhere. It needs rank 2 or more.
func Identity[T tensor.Numeric](shape tensor.Shape) (*GeneratorOp[T], error) {
	return expr.Identity[T](shape)
}

// Range is first + i*step, i being the index along axis.
func Range[T tensor.Numeric](shape tensor.Shape, axis int, first, step T) (*GeneratorOp[T], error) {
	return expr.Range(shape, axis, first, step)
}

// Linspace spaces values evenly from first to last along axis.
func Linspace[T constraints.Float](shape tensor.Shape, axis int, first, last T) (*GeneratorOp[T], error) {
	return expr.Linspace(shape, axis, first, last)
}

// Logspace is base raised to Linspace(first, last).
func Logspace[T constraints.Float](shape tensor.Shape, axis int, first, last, base T) (*GeneratorOp[T], error) {
	return expr.Logspace(shape, axis, first, last, base)
}

// Hann is the Hann window along axis.
func Hann[T constraints.Float](shape tensor.Shape, axis int) (*GeneratorOp[T], error) {
	return expr.Hann[T](shape, axis)
}

// Hamming is the Hamming window along axis.
func Hamming[T constraints.Float](shape tensor.Shape, axis int) (*GeneratorOp[T], error) {
	return expr.Hamming[T](shape, axis)
}

// Blackman is the Blackman window along axis.
func Blackman[T constraints.Float](shape tensor.Shape, axis int) (*GeneratorOp[T], error) {
	return expr.Blackman[T](shape, axis)
}

// Bartlett is the triangular window along axis.
func Bartlett[T constraints.Float](shape tensor.Shape, axis int) (*GeneratorOp[T], error) {
	return expr.Bartlett[T](shape, axis)
}

// Func calls fn for every index. fn must be safe for concurrent use.
func Func[T tensor.Element](shape tensor.Shape, fn func(idx []int) T) (*GeneratorOp[T], error) {
	return expr.Func(shape, fn)
}
