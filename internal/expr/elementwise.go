package expr

import (
	"math"

	"golang.org/x/exp/constraints"

	"github.com/born-ml/tensorexpr/internal/tensor"
)

// UnaryOp applies a function to every value of its operand.
type UnaryOp[T, U tensor.Element] struct {
	name string
	x    Operator[T]
	fn   func(T) U
}

func (u *UnaryOp[T, U]) Kind() Kind          { return KindUnary }
func (u *UnaryOp[T, U]) Name() string        { return u.name }
func (u *UnaryOp[T, U]) Shape() tensor.Shape { return u.x.Shape() }
func (u *UnaryOp[T, U]) Children() []Node    { return []Node{u.x} }
func (u *UnaryOp[T, U]) At(idx []int) U      { return u.fn(u.x.At(idx)) }

func (u *UnaryOp[T, U]) Evaluator() EvalFunc[U] {
	x, fn := u.x.Evaluator(), u.fn
	return func(idx []int) U { return fn(x(idx)) }
}

func unary[T, U tensor.Element](name string, x Operator[T], fn func(T) U) *UnaryOp[T, U] {
	return &UnaryOp[T, U]{name: name, x: x, fn: fn}
}

// Map applies fn to every value of x. fn must be pure and safe for concurrent use.
func Map[T, U tensor.Element](x Operator[T], fn func(T) U) *UnaryOp[T, U] {
	return unary("map", x, fn)
}

// Neg returns -x.
func Neg[T tensor.Numeric](x Operator[T]) *UnaryOp[T, T] {
	return unary("neg", x, func(v T) T { return -v })
}

// Abs returns |x|.
func Abs[T tensor.Numeric](x Operator[T]) *UnaryOp[T, T] {
	return unary("abs", x, func(v T) T {
		if v < 0 {
			return -v
		}
		return v
	})
}

func floatUnary[T constraints.Float](name string, x Operator[T], fn func(float64) float64) *UnaryOp[T, T] {
	return unary(name, x, func(v T) T { return T(fn(float64(v))) })
}

// Exp returns e**x.
func Exp[T constraints.Float](x Operator[T]) *UnaryOp[T, T] { return floatUnary("exp", x, math.Exp) }

// Log returns the natural logarithm of x.
func Log[T constraints.Float](x Operator[T]) *UnaryOp[T, T] { return floatUnary("log", x, math.Log) }

// Sqrt returns the square root of x.
func Sqrt[T constraints.Float](x Operator[T]) *UnaryOp[T, T] { return floatUnary("sqrt", x, math.Sqrt) }

// Sin returns the sine of x.
func Sin[T constraints.Float](x Operator[T]) *UnaryOp[T, T] { return floatUnary("sin", x, math.Sin) }

// Cos returns the cosine of x.
func Cos[T constraints.Float](x Operator[T]) *UnaryOp[T, T] { return floatUnary("cos", x, math.Cos) }

// Tanh returns the hyperbolic tangent of x.
func Tanh[T constraints.Float](x Operator[T]) *UnaryOp[T, T] { return floatUnary("tanh", x, math.Tanh) }

// Scale returns x*factor.
func Scale[T tensor.Numeric](x Operator[T], factor T) *UnaryOp[T, T] {
	return unary("scale", x, func(v T) T { return v * factor })
}

// BinaryOp combines two broadcast operands value by value.
type BinaryOp[A, B, U tensor.Element] struct {
	name   string
	shape  tensor.Shape
	a      Operator[A]
	b      Operator[B]
	ma, mb broadcastMap
	fn     func(A, B) U
}

func (o *BinaryOp[A, B, U]) Kind() Kind          { return KindBinary }
func (o *BinaryOp[A, B, U]) Name() string        { return o.name }
func (o *BinaryOp[A, B, U]) Shape() tensor.Shape { return o.shape }
func (o *BinaryOp[A, B, U]) Children() []Node    { return []Node{o.a, o.b} }
func (o *BinaryOp[A, B, U]) At(idx []int) U      { return o.Evaluator()(idx) }

func (o *BinaryOp[A, B, U]) Evaluator() EvalFunc[U] {
	a := bind(o.ma, o.a.Evaluator())
	b := bind(o.mb, o.b.Evaluator())
	fn := o.fn
	return func(idx []int) U { return fn(a(idx), b(idx)) }
}

func binary[A, B, U tensor.Element](name string, a Operator[A], b Operator[B], fn func(A, B) U) (*BinaryOp[A, B, U], error) {
	shape, err := resolve(name, a, b)
	if err != nil {
		return nil, err
	}
	return &BinaryOp[A, B, U]{
		name:  name,
		shape: shape,
		a:     a,
		b:     b,
		ma:    newBroadcastMap(a.Shape(), shape),
		mb:    newBroadcastMap(b.Shape(), shape),
		fn:    fn,
	}, nil
}

// Zip combines a and b with fn after broadcasting them together.
func Zip[A, B, U tensor.Element](a Operator[A], b Operator[B], fn func(A, B) U) (*BinaryOp[A, B, U], error) {
	return binary("zip", a, b, fn)
}

// Add returns a+b.
func Add[T tensor.Numeric](a, b Operator[T]) (*BinaryOp[T, T, T], error) {
	return binary("add", a, b, func(x, y T) T { return x + y })
}

// Sub returns a-b.
func Sub[T tensor.Numeric](a, b Operator[T]) (*BinaryOp[T, T, T], error) {
	return binary("sub", a, b, func(x, y T) T { return x - y })
}

// Mul returns a*b.
func Mul[T tensor.Numeric](a, b Operator[T]) (*BinaryOp[T, T, T], error) {
	return binary("mul", a, b, func(x, y T) T { return x * y })
}

// Div returns a/b. Integer division by zero yields 0; float division follows IEEE 754.
func Div[T tensor.Numeric](a, b Operator[T]) (*BinaryOp[T, T, T], error) {
	if isFloat[T]() {
		return binary("div", a, b, func(x, y T) T { return x / y })
	}
	return binary("div", a, b, func(x, y T) T {
		if y == 0 {
			return 0
		}
		return x / y
	})
}

// Pow returns a**b.
func Pow[T constraints.Float](a, b Operator[T]) (*BinaryOp[T, T, T], error) {
	return binary("pow", a, b, func(x, y T) T { return T(math.Pow(float64(x), float64(y))) })
}

// Min returns the smaller of a and b.
func Min[T tensor.Numeric](a, b Operator[T]) (*BinaryOp[T, T, T], error) {
	return binary("min", a, b, func(x, y T) T { return min(x, y) })
}

// Max returns the larger of a and b.
func Max[T tensor.Numeric](a, b Operator[T]) (*BinaryOp[T, T, T], error) {
	return binary("max", a, b, func(x, y T) T { return max(x, y) })
}

func isFloat[T tensor.Element]() bool {
	switch tensor.DataTypeOf[T]() {
	case tensor.Float32, tensor.Float64, tensor.Float16:
		return true
	default:
		return false
	}
}

// NAryOp combines any number of broadcast operands.
type NAryOp[T, U tensor.Element] struct {
	name  string
	shape tensor.Shape
	xs    []Operator[T]
	maps  []broadcastMap
	fn    func([]T) U
}

func (o *NAryOp[T, U]) Kind() Kind          { return KindNAry }
func (o *NAryOp[T, U]) Name() string        { return o.name }
func (o *NAryOp[T, U]) Shape() tensor.Shape { return o.shape }
func (o *NAryOp[T, U]) At(idx []int) U      { return o.Evaluator()(idx) }

func (o *NAryOp[T, U]) Children() []Node {
	nodes := make([]Node, len(o.xs))
	for i, x := range o.xs {
		nodes[i] = x
	}
	return nodes
}

func (o *NAryOp[T, U]) Evaluator() EvalFunc[U] {
	evals := make([]EvalFunc[T], len(o.xs))
	for i, x := range o.xs {
		evals[i] = bind(o.maps[i], x.Evaluator())
	}
	vals := make([]T, len(evals))
	fn := o.fn
	return func(idx []int) U {
		for i, e := range evals {
			vals[i] = e(idx)
		}
		return fn(vals)
	}
}

// Combine broadcasts xs together and calls fn with their values at each index.
// fn must not keep the slice it receives.
func Combine[T, U tensor.Element](fn func(values []T) U, xs ...Operator[T]) (*NAryOp[T, U], error) {
	if len(xs) == 0 {
		return nil, tensor.ArgumentErrorf("combine", "no operands")
	}
	if fn == nil {
		return nil, tensor.ArgumentErrorf("combine", "nil function")
	}
	nodes := make([]Node, len(xs))
	for i, x := range xs {
		nodes[i] = x
	}
	shape, err := resolve("combine", nodes...)
	if err != nil {
		return nil, err
	}
	maps := make([]broadcastMap, len(xs))
	for i, x := range xs {
		maps[i] = newBroadcastMap(x.Shape(), shape)
	}
	return &NAryOp[T, U]{
		name:  "combine",
		shape: shape,
		xs:    append([]Operator[T](nil), xs...),
		maps:  maps,
		fn:    fn,
	}, nil
}

// Sum adds all operands after broadcasting them together.
func Sum[T tensor.Numeric](xs ...Operator[T]) (*NAryOp[T, T], error) {
	op, err := Combine(func(values []T) T {
		var s T
		for _, v := range values {
			s += v
		}
		return s
	}, xs...)
	if err != nil {
		return nil, err
	}
	op.name = "sum"
	return op, nil
}
