// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package kernels provides numerical routines as kernel operators, backed by gonum.
//
// Each constructor validates operand shapes and allocates its output. The routine runs when
// an expression reading it executes; numerical failures such as a singular matrix are
// reported then.
package kernels

import (
	"github.com/born-ml/tensorexpr/expr"
	"github.com/born-ml/tensorexpr/internal/kernels"
	"github.com/born-ml/tensorexpr/tensor"
)

// Option configures a kernel.
type Option = kernels.Option

// WithBackend allocates the kernel output from b.
func WithBackend(b tensor.Backend) Option { return kernels.WithBackend(b) }

// MatMul is the [m,k]x[k,n] matrix product.
func MatMul(a, b expr.Operator[float64], opts ...Option) (*expr.KernelOp[float64], error) {
	return kernels.MatMul(a, b, opts...)
}

// Solve finds x in a*x = b.
func Solve(a, b expr.Operator[float64], opts ...Option) (*expr.KernelOp[float64], error) {
	return kernels.Solve(a, b, opts...)
}

// SVD returns the singular values of a, in decreasing order.
func SVD(a expr.Operator[float64], opts ...Option) (*expr.KernelOp[float64], error) {
	return kernels.SVD(a, opts...)
}

// EigenSym returns the eigenvalues of the symmetric matrix a, in increasing order.
func EigenSym(a expr.Operator[float64], opts ...Option) (*expr.KernelOp[float64], error) {
	return kernels.EigenSym(a, opts...)
}

// FFT is the real Fourier transform of a rank-1 x: [n/2+1, 2] (real, imaginary).
func FFT(x expr.Operator[float64], opts ...Option) (*expr.KernelOp[float64], error) {
	return kernels.FFT(x, opts...)
}

// CumSum is the cumulative sum along the last axis.
func CumSum(x expr.Operator[float64], opts ...Option) (*expr.KernelOp[float64], error) {
	return kernels.CumSum(x, opts...)
}

// Convolve is the full 1-D convolution of x with k.
func Convolve(x, k expr.Operator[float64], opts ...Option) (*expr.KernelOp[float64], error) {
	return kernels.Convolve(x, k, opts...)
}
