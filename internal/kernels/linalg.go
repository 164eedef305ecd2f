package kernels

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/tensorexpr/internal/expr"
	"github.com/born-ml/tensorexpr/internal/tensor"
)

func checkMatrix(op string, x expr.Node) error {
	if err := requireRank(op, x, 2); err != nil {
		return err
	}
	return requireNonEmpty(op, x)
}

// MatMul returns the matrix product of a [m, k] and b [k, n].
func MatMul(a, b expr.Operator[float64], opts ...Option) (*expr.KernelOp[float64], error) {
	for _, x := range []expr.Node{a, b} {
		if err := checkMatrix("matmul", x); err != nil {
			return nil, err
		}
	}
	sa, sb := a.Shape(), b.Shape()
	if sa[1] != sb[0] {
		return nil, tensor.NewShapeError("matmul", 1, sa[1], sb[0], sa, sb)
	}
	return newKernel(&routine{
		name:   "matmul",
		shape:  tensor.Shape{sa[0], sb[1]},
		inputs: []expr.Operator[float64]{a, b},
		run: func(_ context.Context, in [][]float64, out []float64) error {
			ma := mat.NewDense(sa[0], sa[1], in[0])
			mb := mat.NewDense(sb[0], sb[1], in[1])
			mat.NewDense(sa[0], sb[1], out).Mul(ma, mb)
			return nil
		},
	}, opts)
}

// Solve returns x such that a·x = b, for a square a [n, n] and b [n, k].
// A singular or ill-conditioned a fails when the kernel runs.
func Solve(a, b expr.Operator[float64], opts ...Option) (*expr.KernelOp[float64], error) {
	for _, x := range []expr.Node{a, b} {
		if err := checkMatrix("solve", x); err != nil {
			return nil, err
		}
	}
	sa, sb := a.Shape(), b.Shape()
	if sa[0] != sa[1] {
		return nil, tensor.NewShapeError("solve", 1, sa[0], sa[1], sa)
	}
	if sb[0] != sa[0] {
		return nil, tensor.NewShapeError("solve", 0, sa[0], sb[0], sa, sb)
	}
	return newKernel(&routine{
		name:   "solve",
		shape:  sb.Clone(),
		inputs: []expr.Operator[float64]{a, b},
		run: func(_ context.Context, in [][]float64, out []float64) error {
			ma := mat.NewDense(sa[0], sa[1], in[0])
			mb := mat.NewDense(sb[0], sb[1], in[1])
			x := mat.NewDense(sb[0], sb[1], out)
			if err := x.Solve(ma, mb); err != nil {
				return errors.Wrap(err, "solve")
			}
			return nil
		},
	}, opts)
}

// SVD returns the singular values of a [m, n], in descending order, with shape [min(m, n)].
func SVD(a expr.Operator[float64], opts ...Option) (*expr.KernelOp[float64], error) {
	if err := checkMatrix("svd", a); err != nil {
		return nil, err
	}
	sa := a.Shape()
	return newKernel(&routine{
		name:   "svd",
		shape:  tensor.Shape{min(sa[0], sa[1])},
		inputs: []expr.Operator[float64]{a},
		run: func(_ context.Context, in [][]float64, out []float64) error {
			var svd mat.SVD
			if ok := svd.Factorize(mat.NewDense(sa[0], sa[1], in[0]), mat.SVDNone); !ok {
				return errors.New("svd: factorization failed")
			}
			svd.Values(out)
			return nil
		},
	}, opts)
}

// EigenSym returns the eigenvalues of a symmetric matrix a [n, n] in ascending order.
// A non-symmetric input fails when the kernel runs.
func EigenSym(a expr.Operator[float64], opts ...Option) (*expr.KernelOp[float64], error) {
	if err := checkMatrix("eigensym", a); err != nil {
		return nil, err
	}
	sa := a.Shape()
	if sa[0] != sa[1] {
		return nil, tensor.NewShapeError("eigensym", 1, sa[0], sa[1], sa)
	}
	n := sa[0]
	return newKernel(&routine{
		name:   "eigensym",
		shape:  tensor.Shape{n},
		inputs: []expr.Operator[float64]{a},
		run: func(_ context.Context, in [][]float64, out []float64) error {
			data := in[0]
			for i := range n {
				for j := i + 1; j < n; j++ {
					x, y := data[i*n+j], data[j*n+i]
					if math.Abs(x-y) > 1e-9*max(1, math.Abs(x), math.Abs(y)) {
						return tensor.ArgumentErrorf("eigensym", "input is not symmetric at (%d, %d): %g vs %g", i, j, x, y)
					}
				}
			}
			var eig mat.EigenSym
			if ok := eig.Factorize(mat.NewSymDense(n, data), false); !ok {
				return errors.New("eigensym: factorization failed")
			}
			eig.Values(out)
			return nil
		},
	}, opts)
}
