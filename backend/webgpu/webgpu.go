//go:build windows

// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package webgpu provides the device storage backend over WebGPU buffers.
//
// WebGPU is a cross-platform graphics and compute API that works on:
//   - Windows (via Dawn/D3D12)
//   - macOS (via Dawn/Metal)
//   - Linux (via Dawn/Vulkan)
//   - Web browsers (via wasm)
//
// Expressions evaluate over host memory: upload results to keep them on the device, and
// download device storage before reading it in an expression.
//
// Example:
//
//	gpu, err := webgpu.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer gpu.Close()
//
//	dev, err := webgpu.Upload(gpu, x)
//	...
//	back, err := webgpu.Download[float32](gpu, dev, x.Shape(), cpu.New())
package webgpu

import (
	internalwebgpu "github.com/born-ml/tensorexpr/internal/backend/webgpu"
	"github.com/born-ml/tensorexpr/tensor"
)

// Backend is the WebGPU storage backend.
type Backend = internalwebgpu.Backend

// Stats are the allocation counters of a Backend.
type Stats = internalwebgpu.Stats

// Compile-time check that Backend implements tensor.Backend.
var _ tensor.Backend = (*Backend)(nil)

// New creates a WebGPU backend on the default adapter.
func New() (*Backend, error) {
	return internalwebgpu.New()
}

// IsAvailable reports whether a WebGPU adapter can be obtained.
func IsAvailable() bool {
	return internalwebgpu.IsAvailable()
}

// Upload copies t into fresh device storage owned by the caller.
func Upload[T tensor.Element](b *Backend, t *tensor.Tensor[T]) (*tensor.Storage, error) {
	return internalwebgpu.Upload(b, t)
}

// Download copies device storage into a new host tensor allocated from host.
func Download[T tensor.Element](b *Backend, s *tensor.Storage, shape tensor.Shape, host tensor.Backend) (*tensor.Tensor[T], error) {
	return internalwebgpu.Download[T](b, s, shape, host)
}
