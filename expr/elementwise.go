// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package expr

import (
	"github.com/x448/float16"
	"golang.org/x/exp/constraints"

	"github.com/born-ml/tensorexpr/internal/expr"
	"github.com/born-ml/tensorexpr/tensor"
)

// Map applies fn to every element of x.
func Map[T, U tensor.Element](x Operator[T], fn func(T) U) *UnaryOp[T, U] { return expr.Map(x, fn) }

// Neg negates x.
func Neg[T tensor.Numeric](x Operator[T]) *UnaryOp[T, T] { return expr.Neg(x) }

// Abs is the absolute value of x.
func Abs[T tensor.Numeric](x Operator[T]) *UnaryOp[T, T] { return expr.Abs(x) }

// Exp is e raised to x.
func Exp[T constraints.Float](x Operator[T]) *UnaryOp[T, T] { return expr.Exp(x) }

// Log is the natural logarithm of x.
func Log[T constraints.Float](x Operator[T]) *UnaryOp[T, T] { return expr.Log(x) }

// Sqrt is the square root of x.
func Sqrt[T constraints.Float](x Operator[T]) *UnaryOp[T, T] { return expr.Sqrt(x) }

// Sin is the sine of x.
func Sin[T constraints.Float](x Operator[T]) *UnaryOp[T, T] { return expr.Sin(x) }

// Cos is the cosine of x.
func Cos[T constraints.Float](x Operator[T]) *UnaryOp[T, T] { return expr.Cos(x) }

// Tanh is the hyperbolic tangent of x.
func Tanh[T constraints.Float](x Operator[T]) *UnaryOp[T, T] { return expr.Tanh(x) }

// Scale multiplies x by factor.
func Scale[T tensor.Numeric](x Operator[T], factor T) *UnaryOp[T, T] { return expr.Scale(x, factor) }

// Zip combines broadcast a and b with fn.
func Zip[A, B, U tensor.Element](a Operator[A], b Operator[B], fn func(A, B) U) (*BinaryOp[A, B, U], error) {
	return expr.Zip(a, b, fn)
}

// Add is a + b.
func Add[T tensor.Numeric](a, b Operator[T]) (*BinaryOp[T, T, T], error) { return expr.Add(a, b) }

// Sub is a - b.
func Sub[T tensor.Numeric](a, b Operator[T]) (*BinaryOp[T, T, T], error) { return expr.Sub(a, b) }

// Mul is a * b.
func Mul[T tensor.Numeric](a, b Operator[T]) (*BinaryOp[T, T, T], error) { return expr.Mul(a, b) }

// Div is a / b. Integer division by zero yields 0.
func Div[T tensor.Numeric](a, b Operator[T]) (*BinaryOp[T, T, T], error) { return expr.Div(a, b) }

// Pow is a raised to b.
func Pow[T constraints.Float](a, b Operator[T]) (*BinaryOp[T, T, T], error) { return expr.Pow(a, b) }

// Min is the smaller of a and b.
func Min[T tensor.Numeric](a, b Operator[T]) (*BinaryOp[T, T, T], error) { return expr.Min(a, b) }

// Max is the larger of a and b.
func Max[T tensor.Numeric](a, b Operator[T]) (*BinaryOp[T, T, T], error) { return expr.Max(a, b) }

// Combine applies fn to the values of all broadcast operands at each index.
func Combine[T, U tensor.Element](fn func(values []T) U, xs ...Operator[T]) (*NAryOp[T, U], error) {
	return expr.Combine(fn, xs...)
}

// Sum adds all operands.
func Sum[T tensor.Numeric](xs ...Operator[T]) (*NAryOp[T, T], error) { return expr.Sum(xs...) }

// Greater is a > b.
func Greater[T tensor.Numeric](a, b Operator[T]) (*BinaryOp[T, T, bool], error) {
	return expr.Greater(a, b)
}

// Less is a < b.
func Less[T tensor.Numeric](a, b Operator[T]) (*BinaryOp[T, T, bool], error) { return expr.Less(a, b) }

// GreaterEqual is a >= b.
func GreaterEqual[T tensor.Numeric](a, b Operator[T]) (*BinaryOp[T, T, bool], error) {
	return expr.GreaterEqual(a, b)
}

// LessEqual is a <= b.
func LessEqual[T tensor.Numeric](a, b Operator[T]) (*BinaryOp[T, T, bool], error) {
	return expr.LessEqual(a, b)
}

// Equal is a == b.
func Equal[T tensor.Element](a, b Operator[T]) (*BinaryOp[T, T, bool], error) { return expr.Equal(a, b) }

// NotEqual is a != b.
func NotEqual[T tensor.Element](a, b Operator[T]) (*BinaryOp[T, T, bool], error) {
	return expr.NotEqual(a, b)
}

// And is a && b.
func And(a, b Operator[bool]) (*BinaryOp[bool, bool, bool], error) { return expr.And(a, b) }

// Or is a || b.
func Or(a, b Operator[bool]) (*BinaryOp[bool, bool, bool], error) { return expr.Or(a, b) }

// Not is !x.
func Not(x Operator[bool]) *UnaryOp[bool, bool] { return expr.Not(x) }

// Cast converts numeric elements.
func Cast[T, U tensor.Numeric](x Operator[T]) *UnaryOp[T, U] { return expr.Cast[T, U](x) }

// Widen converts float16 elements to float32.
func Widen(x Operator[float16.Float16]) *UnaryOp[float16.Float16, float32] { return expr.Widen(x) }

// Narrow converts float32 elements to float16.
func Narrow(x Operator[float32]) *UnaryOp[float32, float16.Float16] { return expr.Narrow(x) }

// Where selects a where pred holds and b elsewhere. Only the chosen branch is evaluated.
func Where[T tensor.Element](pred Operator[bool], a, b Operator[T]) (*WhereOp[T], error) {
	return expr.Where(pred, a, b)
}
