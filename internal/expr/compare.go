package expr

import (
	"github.com/x448/float16"

	"github.com/born-ml/tensorexpr/internal/tensor"
)

// Greater returns a > b.
func Greater[T tensor.Numeric](a, b Operator[T]) (*BinaryOp[T, T, bool], error) {
	return binary("greater", a, b, func(x, y T) bool { return x > y })
}

// Less returns a < b.
func Less[T tensor.Numeric](a, b Operator[T]) (*BinaryOp[T, T, bool], error) {
	return binary("less", a, b, func(x, y T) bool { return x < y })
}

// GreaterEqual returns a >= b.
func GreaterEqual[T tensor.Numeric](a, b Operator[T]) (*BinaryOp[T, T, bool], error) {
	return binary("greater_equal", a, b, func(x, y T) bool { return x >= y })
}

// LessEqual returns a <= b.
func LessEqual[T tensor.Numeric](a, b Operator[T]) (*BinaryOp[T, T, bool], error) {
	return binary("less_equal", a, b, func(x, y T) bool { return x <= y })
}

// Equal returns a == b.
func Equal[T tensor.Element](a, b Operator[T]) (*BinaryOp[T, T, bool], error) {
	return binary("equal", a, b, func(x, y T) bool { return x == y })
}

// NotEqual returns a != b.
func NotEqual[T tensor.Element](a, b Operator[T]) (*BinaryOp[T, T, bool], error) {
	return binary("not_equal", a, b, func(x, y T) bool { return x != y })
}

// And returns a && b.
func And(a, b Operator[bool]) (*BinaryOp[bool, bool, bool], error) {
	return binary("and", a, b, func(x, y bool) bool { return x && y })
}

// Or returns a || b.
func Or(a, b Operator[bool]) (*BinaryOp[bool, bool, bool], error) {
	return binary("or", a, b, func(x, y bool) bool { return x || y })
}

// Not returns !x.
func Not(x Operator[bool]) *UnaryOp[bool, bool] {
	return unary("not", x, func(v bool) bool { return !v })
}

// Cast converts numeric values with Go conversion rules.
func Cast[T, U tensor.Numeric](x Operator[T]) *UnaryOp[T, U] {
	return unary("cast", x, func(v T) U { return U(v) })
}

// Widen converts half-precision values to float32.
func Widen(x Operator[float16.Float16]) *UnaryOp[float16.Float16, float32] {
	return unary("widen", x, func(v float16.Float16) float32 { return v.Float32() })
}

// Narrow converts float32 values to half precision, rounding to nearest even.
func Narrow(x Operator[float32]) *UnaryOp[float32, float16.Float16] {
	return unary("narrow", x, float16.Fromfloat32)
}
