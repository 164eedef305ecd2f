// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package cpu

import (
	internalcpu "github.com/born-ml/tensorexpr/internal/backend/cpu"
	"github.com/born-ml/tensorexpr/tensor"
)

// Backend represents the host storage backend.
type Backend = internalcpu.CPUBackend

// Config configures a Backend.
type Config = internalcpu.Config

// Stats are the allocation counters of a Backend.
type Stats = internalcpu.Stats

// Compile-time check that Backend implements tensor.Backend.
var _ tensor.Backend = (*Backend)(nil)

// New creates a new CPU backend.
//
// Example:
//
//	import (
//	    "github.com/born-ml/tensorexpr/backend/cpu"
//	    "github.com/born-ml/tensorexpr/tensor"
//	)
//
//	func main() {
//	    backend := cpu.New()
//	    x, _ := tensor.Allocate[float32](tensor.Shape{2, 3}, backend)
//	    defer x.Release()
//	}
func New() *Backend {
	return internalcpu.New()
}

// NewWithConfig creates a CPU backend with a memory limit.
func NewWithConfig(cfg Config) *Backend {
	return internalcpu.NewWithConfig(cfg)
}
