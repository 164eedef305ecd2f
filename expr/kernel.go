// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package expr

import (
	"github.com/born-ml/tensorexpr/internal/expr"
	"github.com/born-ml/tensorexpr/tensor"
)

// Routine is a whole-tensor computation run by a kernel node.
type Routine[T tensor.Element] = expr.Routine[T]

// FuncRoutine adapts a function to Routine.
type FuncRoutine[T tensor.Element] = expr.FuncRoutine[T]

// Runner is a node that needs a whole-tensor pass before it is read.
type Runner = expr.Runner

// Source produces an ordered stream of values for Sample.
type Source[T tensor.Element] = expr.Source[T]

// Kernel wraps routine as an operator whose output is allocated from backend now
// (the default host backend when nil).
func Kernel[T tensor.Element](routine Routine[T], backend tensor.Backend) (*KernelOp[T], error) {
	return expr.Kernel(routine, backend)
}

// Sample draws shape's values, in row-major order, from src each time it runs.
func Sample[T tensor.Element](shape tensor.Shape, src Source[T], backend tensor.Backend) (*KernelOp[T], error) {
	return expr.Sample(shape, src, backend)
}

// Kernels returns the kernel nodes reachable from root, inputs first.
func Kernels(root Node) []Runner { return expr.Kernels(root) }

// DefaultBackend returns the host backend used when none is given.
func DefaultBackend() tensor.Backend { return expr.DefaultBackend() }
