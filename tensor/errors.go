// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/born-ml/tensorexpr/internal/tensor"
)

// Error kinds. Match them with errors.As or the Is helpers.
type (
	ShapeError           = tensor.ShapeError
	RangeError           = tensor.RangeError
	ArgumentError        = tensor.ArgumentError
	AllocationError      = tensor.AllocationError
	SynchronizationError = tensor.SynchronizationError
)

// IsShapeError reports whether err wraps a ShapeError.
func IsShapeError(err error) bool { return tensor.IsShapeError(err) }

// IsRangeError reports whether err wraps a RangeError.
func IsRangeError(err error) bool { return tensor.IsRangeError(err) }

// IsArgumentError reports whether err wraps an ArgumentError.
func IsArgumentError(err error) bool { return tensor.IsArgumentError(err) }

// IsAllocationError reports whether err wraps an AllocationError.
func IsAllocationError(err error) bool { return tensor.IsAllocationError(err) }

// IsSynchronizationError reports whether err wraps a SynchronizationError.
func IsSynchronizationError(err error) bool { return tensor.IsSynchronizationError(err) }
