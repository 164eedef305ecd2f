// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the storage, tensor and view types of the expression engine.
//
// # Overview
//
// A Tensor owns (or wraps) a typed, reference-counted Storage and describes it with a
// Layout: shape, strides and offset. A View reinterprets the same storage without copying:
// slicing, permuting, cloning (stride-0 broadcast dimensions) and reshaping are metadata-only.
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/tensorexpr/backend/cpu"
//	    "github.com/born-ml/tensorexpr/tensor"
//	)
//
//	func main() {
//	    backend := cpu.New()
//
//	    a, _ := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, backend)
//	    defer a.Release()
//
//	    row, _ := a.View().Slice([]int{1, 0}, []int{1, 3}) // [[4 5 6]]
//	    col := a.View().Transpose()                        // shape [3 2]
//	}
//
// # Supported Data Types
//
//   - float16 (github.com/x448/float16), float32, float64
//   - int32, int64
//   - uint8
//   - bool
//
// # Broadcasting
//
// Shapes are aligned on their trailing dimensions. Extents must be equal or 1; a 0 against a
// non-1 extent yields an empty dimension:
//
//	s, _ := tensor.BroadcastShapes(tensor.Shape{2, 3}, tensor.Shape{3}) // [2 3]
//
// # Memory Management
//
// Storage obtained from a backend is released when the last owning handle calls Release.
// Tensor.Share returns another owning handle. Views never own storage: keep an owning handle
// alive while views of it are in use. Wrapped and memory-mapped tensors never release
// caller memory.
package tensor
