// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/born-ml/tensorexpr/internal/tensor"
)

// Element is a constraint for tensor element types.
type Element = tensor.Element

// Numeric is the subset of element types that support arithmetic.
type Numeric = tensor.Numeric

// DataType represents the element type of a storage.
type DataType = tensor.DataType

// Data type constants.
const (
	Float32 DataType = tensor.Float32
	Float64 DataType = tensor.Float64
	Int32   DataType = tensor.Int32
	Int64   DataType = tensor.Int64
	Uint8   DataType = tensor.Uint8
	Bool    DataType = tensor.Bool
	Float16 DataType = tensor.Float16
)

// DataTypeOf returns the DataType of T.
func DataTypeOf[T Element]() DataType {
	return tensor.DataTypeOf[T]()
}

// Device represents where a storage's bytes live.
type Device = tensor.Device

// Device constants.
const (
	CPU    Device = tensor.CPU
	WebGPU Device = tensor.WebGPU
)

// Shape represents the extents of a tensor.
// Example: Shape{2, 3, 4} represents a 3D tensor with dimensions 2×3×4.
type Shape = tensor.Shape

// BroadcastShapes resolves the common shape of operands, aligned on trailing dimensions.
func BroadcastShapes(shapes ...Shape) (Shape, error) {
	return tensor.BroadcastShapes(shapes...)
}

// BroadcastStrides returns the strides that read a tensor of shape in with strides as if it
// had shape out. Broadcast dimensions get stride 0.
func BroadcastStrides(in Shape, strides []int, out Shape) ([]int, error) {
	return tensor.BroadcastStrides(in, strides, out)
}

// Layout maps multi-indices to storage positions.
type Layout = tensor.Layout

// RowMajor returns the contiguous layout of shape.
func RowMajor(shape Shape) Layout {
	return tensor.RowMajor(shape)
}

// Backend is the storage contract: allocation, release and copies of raw buffers.
//
// Implementations:
//   - backend/cpu: host memory
//   - backend/webgpu: GPU buffers (Windows)
type Backend = tensor.Backend

// Handle is an opaque buffer reference obtained from a Backend.
type Handle = tensor.Handle

// HostHandle is a Handle whose bytes are CPU addressable.
type HostHandle = tensor.HostHandle

// CopyDirection tells a Backend which sides of a copy are host or device memory.
type CopyDirection = tensor.CopyDirection

// Copy directions.
const (
	HostToHost     CopyDirection = tensor.HostToHost
	HostToDevice   CopyDirection = tensor.HostToDevice
	DeviceToHost   CopyDirection = tensor.DeviceToHost
	DeviceToDevice CopyDirection = tensor.DeviceToDevice
)

// Storage is a reference-counted typed buffer.
type Storage = tensor.Storage

// NewStorage allocates owned storage for capacity elements of dtype.
func NewStorage(backend Backend, dtype DataType, capacity int) (*Storage, error) {
	return tensor.NewStorage(backend, dtype, capacity)
}

// Tensor is a typed handle over storage with a layout.
type Tensor[T Element] = tensor.Tensor[T]

// View is a non-owning reinterpretation of a tensor's storage.
type View[T Element] = tensor.View[T]

// KeepDim keeps a source extent in View.Clone.
const KeepDim = tensor.KeepDim

// Allocate creates a zeroed row-major tensor over fresh storage from backend.
func Allocate[T Element](shape Shape, backend Backend) (*Tensor[T], error) {
	return tensor.Allocate[T](shape, backend)
}

// FromSlice allocates a tensor from backend and copies data into it.
func FromSlice[T Element](data []T, shape Shape, backend Backend) (*Tensor[T], error) {
	return tensor.FromSlice(data, shape, backend)
}

// Full allocates a tensor filled with value.
func Full[T Element](shape Shape, value T, backend Backend) (*Tensor[T], error) {
	return tensor.Full(shape, value, backend)
}

// Wrap creates a non-owning tensor over caller memory. A nil strides means row-major.
func Wrap[T Element](data []T, shape Shape, strides []int) (*Tensor[T], error) {
	return tensor.Wrap(data, shape, strides)
}

// WrapBytes creates a non-owning row-major tensor over raw bytes.
func WrapBytes[T Element](b []byte, shape Shape) (*Tensor[T], error) {
	return tensor.WrapBytes[T](b, shape)
}

// ViewOf returns a view of t with an explicit layout, checked against the storage capacity.
func ViewOf[T Element](t *Tensor[T], shape Shape, strides []int, offset int) (*View[T], error) {
	return tensor.ViewOf(t, shape, strides, offset)
}

// Mapping is a memory-mapped file backing a tensor.
type Mapping = tensor.Mapping

// MapFile memory-maps a file holding a row-major array of shape.
func MapFile[T Element](path string, shape Shape, writable bool) (*Tensor[T], *Mapping, error) {
	return tensor.MapFile[T](path, shape, writable)
}
