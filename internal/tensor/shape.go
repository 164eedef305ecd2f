package tensor

import (
	"fmt"
	"iter"
	"math"
	"strings"
)

// Shape represents the extents of a tensor, one per dimension.
// An empty Shape is a scalar.
type Shape []int

// Rank returns the number of dimensions.
func (s Shape) Rank() int {
	return len(s)
}

// NumElements returns the total number of elements.
// A scalar has 1 element; any zero extent makes the shape empty.
func (s Shape) NumElements() int {
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// IsEmpty reports whether some extent is zero.
func (s Shape) IsEmpty() bool {
	for _, dim := range s {
		if dim == 0 {
			return true
		}
	}
	return false
}

// Validate checks that no extent is negative and that the product of the non-zero extents
// fits in an int. Zero extents are allowed.
func (s Shape) Validate() error {
	return s.validateWithin(math.MaxInt)
}

func (s Shape) validateWithin(limit int) error {
	n := 1
	for i, dim := range s {
		if dim < 0 {
			return ArgumentErrorf("shape", "invalid extent at dimension %d: %d (must be >= 0)", i, dim)
		}
		if dim == 0 {
			continue
		}
		if n > limit/dim {
			return ArgumentErrorf("shape", "shape %v is too large", s)
		}
		n *= dim
	}
	return nil
}

// ByteSize validates s and returns the number of bytes its elements of dt occupy.
// It fails when that count does not fit in an int.
func (s Shape) ByteSize(dt DataType) (int, error) {
	size := dt.Size()
	if size <= 0 {
		return 0, ArgumentErrorf("shape", "data type %s has no size", dt)
	}
	if err := s.validateWithin(math.MaxInt / size); err != nil {
		return 0, err
	}
	return s.NumElements() * size, nil
}

// Equal checks if two shapes are equal.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	clone := make(Shape, len(s))
	copy(clone, s)
	return clone
}

// String returns the shape as "[2 3 4]".
func (s Shape) String() string {
	parts := make([]string, len(s))
	for i, dim := range s {
		parts[i] = fmt.Sprint(dim)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// ComputeStrides calculates row-major strides for the shape.
// Strides define memory layout: stride[i] = product of all dimensions after i.
func (s Shape) ComputeStrides() []int {
	strides := make([]int, len(s))
	if len(s) == 0 {
		return strides
	}

	strides[len(s)-1] = 1
	for i := len(s) - 2; i >= 0; i-- {
		strides[i] = strides[i+1] * max(s[i+1], 1)
	}
	return strides
}

// Unravel writes the multi-index of the row-major flat position into idx.
// It expects len(idx) == s.Rank().
func (s Shape) Unravel(flat int, idx []int) {
	for axis := len(s) - 1; axis >= 0; axis-- {
		dim := s[axis]
		idx[axis] = flat % dim
		flat /= dim
	}
}

// Iter iterates sequentially, in row-major order, over all indices of the shape.
//
// It yields the flat position and the multi-index. The yielded slice is owned by the
// iterator and is updated in place: don't keep or modify it inside the loop.
func (s Shape) Iter() iter.Seq2[int, []int] {
	return func(yield func(int, []int) bool) {
		if s.IsEmpty() {
			return
		}
		idx := make([]int, len(s))
		rank := len(s)
		flat := 0
		for {
			if !yield(flat, idx) {
				return
			}
			flat++

			// Odometer increment: the last axis changes fastest.
			axis := rank - 1
			for ; axis >= 0; axis-- {
				idx[axis]++
				if idx[axis] < s[axis] {
					break
				}
				idx[axis] = 0
			}
			if axis < 0 {
				return
			}
		}
	}
}

// Next advances idx to the following row-major index of the shape, and reports false
// once idx wraps around.
func (s Shape) Next(idx []int) bool {
	for axis := len(s) - 1; axis >= 0; axis-- {
		idx[axis]++
		if idx[axis] < s[axis] {
			return true
		}
		idx[axis] = 0
	}
	return false
}
