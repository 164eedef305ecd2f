// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides the host storage backend.
//
// # Overview
//
// Buffers live in Go-managed memory, are zero-initialized and 8-byte aligned for every
// element type. An optional limit caps the number of live bytes; allocations beyond it fail
// with a tensor.AllocationError.
//
// # Basic Usage
//
//	backend := cpu.NewWithConfig(cpu.Config{Limit: 64 << 20})
//	x, err := tensor.Allocate[float64](tensor.Shape{1024, 1024}, backend)
//	if err != nil {
//	    return err
//	}
//	defer x.Release()
//	fmt.Println(backend.Stats()) // allocations=1 releases=0 live=8.0 MiB peak=8.0 MiB
//
// # Thread Safety
//
// The CPU backend is safe for concurrent use.
package cpu
