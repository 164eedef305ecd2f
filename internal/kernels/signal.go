package kernels

import (
	"context"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"

	"github.com/born-ml/tensorexpr/internal/expr"
	"github.com/born-ml/tensorexpr/internal/parallel"
	"github.com/born-ml/tensorexpr/internal/tensor"
)

// FFT returns the discrete Fourier transform of a real sequence x [n] as [n/2+1, 2]
// (real, imaginary) pairs of the non-negative frequency coefficients.
func FFT(x expr.Operator[float64], opts ...Option) (*expr.KernelOp[float64], error) {
	if err := requireRank("fft", x, 1); err != nil {
		return nil, err
	}
	if err := requireNonEmpty("fft", x); err != nil {
		return nil, err
	}
	n := x.Shape()[0]
	return newKernel(&routine{
		name:   "fft",
		shape:  tensor.Shape{n/2 + 1, 2},
		inputs: []expr.Operator[float64]{x},
		run: func(_ context.Context, in [][]float64, out []float64) error {
			coeff := fourier.NewFFT(n).Coefficients(nil, in[0])
			for i, c := range coeff {
				out[2*i] = real(c)
				out[2*i+1] = imag(c)
			}
			return nil
		},
	}, opts)
}

// CumSum returns the running sum of x along its last axis. The sum is ordered along the axis,
// so it runs as a whole-tensor pass; rows are processed in parallel.
func CumSum(x expr.Operator[float64], opts ...Option) (*expr.KernelOp[float64], error) {
	shape := x.Shape()
	if shape.Rank() < 1 {
		return nil, tensor.NewShapeError("cumsum", -1, 0, 1, shape)
	}
	width := shape[shape.Rank()-1]
	return newKernel(&routine{
		name:   "cumsum",
		shape:  shape.Clone(),
		inputs: []expr.Operator[float64]{x},
		run: func(_ context.Context, in [][]float64, out []float64) error {
			if width == 0 {
				return nil
			}
			rows := len(out) / width
			parallel.For(rows, func(r int) {
				lo, hi := r*width, (r+1)*width
				floats.CumSum(out[lo:hi], in[0][lo:hi])
			}, parallel.DefaultConfig())
			return nil
		},
	}, opts)
}

// Convolve returns the full discrete convolution of x [n] and k [m], shape [n+m-1],
// computed through the Fourier transform.
func Convolve(x, k expr.Operator[float64], opts ...Option) (*expr.KernelOp[float64], error) {
	for _, v := range []expr.Node{x, k} {
		if err := requireRank("convolve", v, 1); err != nil {
			return nil, err
		}
		if err := requireNonEmpty("convolve", v); err != nil {
			return nil, err
		}
	}
	n, m := x.Shape()[0], k.Shape()[0]
	size := n + m - 1
	return newKernel(&routine{
		name:   "convolve",
		shape:  tensor.Shape{size},
		inputs: []expr.Operator[float64]{x, k},
		run: func(_ context.Context, in [][]float64, out []float64) error {
			fft := fourier.NewFFT(size)
			px := make([]float64, size)
			pk := make([]float64, size)
			copy(px, in[0])
			copy(pk, in[1])
			cx := fft.Coefficients(nil, px)
			ck := fft.Coefficients(nil, pk)
			for i := range cx {
				cx[i] *= ck[i]
			}
			fft.Sequence(out, cx)
			floats.Scale(1/float64(size), out)
			return nil
		},
	}, opts)
}
