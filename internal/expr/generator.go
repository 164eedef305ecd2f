package expr

import (
	"math"

	"golang.org/x/exp/constraints"

	"github.com/born-ml/tensorexpr/internal/tensor"
)

// GeneratorOp computes values from the index alone.
type GeneratorOp[T tensor.Element] struct {
	name  string
	shape tensor.Shape
	fn    func(idx []int) T
}

func (g *GeneratorOp[T]) Kind() Kind             { return KindGenerator }
func (g *GeneratorOp[T]) Name() string           { return g.name }
func (g *GeneratorOp[T]) Shape() tensor.Shape    { return g.shape }
func (g *GeneratorOp[T]) Children() []Node       { return nil }
func (g *GeneratorOp[T]) At(idx []int) T         { return g.fn(idx) }
func (g *GeneratorOp[T]) Evaluator() EvalFunc[T] { return g.fn }

func newGenerator[T tensor.Element](name string, shape tensor.Shape, fn func(idx []int) T) (*GeneratorOp[T], error) {
	if err := shape.Validate(); err != nil {
		return nil, tensor.ArgumentErrorf(name, "invalid shape %v", []int(shape))
	}
	return &GeneratorOp[T]{name: name, shape: shape.Clone(), fn: fn}, nil
}

func checkAxis(name string, shape tensor.Shape, axis int) error {
	if axis < 0 || axis >= len(shape) {
		return tensor.ArgumentErrorf(name, "axis %d out of range for shape %v", axis, shape)
	}
	return nil
}

// Scalar returns a rank-0 constant. It broadcasts against any shape.
func Scalar[T tensor.Element](value T) *GeneratorOp[T] {
	return &GeneratorOp[T]{name: "scalar", shape: tensor.Shape{}, fn: func([]int) T { return value }}
}

// Full returns a constant of the given shape.
func Full[T tensor.Element](shape tensor.Shape, value T) (*GeneratorOp[T], error) {
	return newGenerator("full", shape, func([]int) T { return value })
}

// Zeros returns the zero value of T over shape.
func Zeros[T tensor.Element](shape tensor.Shape) (*GeneratorOp[T], error) {
	var zero T
	return newGenerator("zeros", shape, func([]int) T { return zero })
}

// Ones returns 1 over shape.
func Ones[T tensor.Numeric](shape tensor.Shape) (*GeneratorOp[T], error) {
	return newGenerator("ones", shape, func([]int) T { return 1 })
}

// Identity returns 1 where all indices are equal and 0 elsewhere. The shape needs rank >= 2
// and may be non-square.
func Identity[T tensor.Numeric](shape tensor.Shape) (*GeneratorOp[T], error) {
	if len(shape) < 2 {
		return nil, tensor.ArgumentErrorf("identity", "rank must be >= 2, got shape %v", shape)
	}
	return newGenerator("identity", shape, func(idx []int) T {
		for _, v := range idx[1:] {
			if v != idx[0] {
				return 0
			}
		}
		return 1
	})
}

// Range returns first + i*step, where i is the index along axis.
func Range[T tensor.Numeric](shape tensor.Shape, axis int, first, step T) (*GeneratorOp[T], error) {
	if err := checkAxis("range", shape, axis); err != nil {
		return nil, err
	}
	return newGenerator("range", shape, func(idx []int) T {
		return first + T(idx[axis])*step
	})
}

// Linspace returns len(shape[axis]) evenly spaced values from first to last (both included).
func Linspace[T constraints.Float](shape tensor.Shape, axis int, first, last T) (*GeneratorOp[T], error) {
	if err := checkAxis("linspace", shape, axis); err != nil {
		return nil, err
	}
	n := shape[axis]
	return newGenerator("linspace", shape, func(idx []int) T {
		return linspace(first, last, idx[axis], n)
	})
}

// Logspace returns base raised to Linspace(first, last) along axis.
func Logspace[T constraints.Float](shape tensor.Shape, axis int, first, last, base T) (*GeneratorOp[T], error) {
	if err := checkAxis("logspace", shape, axis); err != nil {
		return nil, err
	}
	if base <= 0 {
		return nil, tensor.ArgumentErrorf("logspace", "base must be positive, got %v", base)
	}
	n := shape[axis]
	return newGenerator("logspace", shape, func(idx []int) T {
		return T(math.Pow(float64(base), float64(linspace(first, last, idx[axis], n))))
	})
}

func linspace[T constraints.Float](first, last T, i, n int) T {
	if n <= 1 {
		return first
	}
	return first + (last-first)*T(i)/T(n-1)
}

// window builds a symmetric window generator from a closed form of x = i/(n-1).
func window[T constraints.Float](name string, shape tensor.Shape, axis int, fn func(x float64) float64) (*GeneratorOp[T], error) {
	if err := checkAxis(name, shape, axis); err != nil {
		return nil, err
	}
	n := shape[axis]
	return newGenerator(name, shape, func(idx []int) T {
		if n <= 1 {
			return 1
		}
		return T(fn(float64(idx[axis]) / float64(n-1)))
	})
}

// Hann returns the Hann window along axis: 0.5 - 0.5cos(2πx).
func Hann[T constraints.Float](shape tensor.Shape, axis int) (*GeneratorOp[T], error) {
	return window[T]("hann", shape, axis, func(x float64) float64 {
		return 0.5 - 0.5*math.Cos(2*math.Pi*x)
	})
}

// Hamming returns the Hamming window along axis: 0.54 - 0.46cos(2πx).
func Hamming[T constraints.Float](shape tensor.Shape, axis int) (*GeneratorOp[T], error) {
	return window[T]("hamming", shape, axis, func(x float64) float64 {
		return 0.54 - 0.46*math.Cos(2*math.Pi*x)
	})
}

// Blackman returns the Blackman window along axis.
func Blackman[T constraints.Float](shape tensor.Shape, axis int) (*GeneratorOp[T], error) {
	return window[T]("blackman", shape, axis, func(x float64) float64 {
		return 0.42 - 0.5*math.Cos(2*math.Pi*x) + 0.08*math.Cos(4*math.Pi*x)
	})
}

// Bartlett returns the triangular Bartlett window along axis.
func Bartlett[T constraints.Float](shape tensor.Shape, axis int) (*GeneratorOp[T], error) {
	return window[T]("bartlett", shape, axis, func(x float64) float64 {
		return 1 - math.Abs(2*x-1)
	})
}

// Func returns an operator calling fn for every index. fn must be a pure function of idx,
// safe for concurrent use, and must not keep idx.
func Func[T tensor.Element](shape tensor.Shape, fn func(idx []int) T) (*GeneratorOp[T], error) {
	if fn == nil {
		return nil, tensor.ArgumentErrorf("func", "nil function")
	}
	return newGenerator("func", shape, fn)
}
