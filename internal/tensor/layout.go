package tensor

import "fmt"

// Layout maps a multi-index to a linear element offset: offset + Σ idx[i]*strides[i].
// Strides may be zero (broadcast dimensions) and need not be row-major.
type Layout struct {
	shape   Shape
	strides []int
	offset  int
}

// RowMajor returns the contiguous row-major layout of shape.
func RowMajor(shape Shape) Layout {
	return Layout{shape: shape.Clone(), strides: shape.ComputeStrides()}
}

// Shape returns the extents.
func (l Layout) Shape() Shape { return l.shape }

// Strides returns the per-dimension element strides.
func (l Layout) Strides() []int { return l.strides }

// Offset returns the element offset of index (0, ..., 0).
func (l Layout) Offset() int { return l.offset }

// Rank returns the number of dimensions.
func (l Layout) Rank() int { return len(l.shape) }

// Index returns the element offset of idx without bounds checking.
func (l Layout) Index(idx []int) int {
	off := l.offset
	for i, v := range idx {
		off += v * l.strides[i]
	}
	return off
}

// checkedIndex returns the element offset of idx.
// Panics if idx has the wrong rank or is out of bounds.
func (l Layout) checkedIndex(idx []int) int {
	if len(idx) != len(l.shape) {
		panic(fmt.Sprintf("expected %d indices, got %d", len(l.shape), len(idx)))
	}
	off := l.offset
	for i, v := range idx {
		if v < 0 || v >= l.shape[i] {
			panic(fmt.Sprintf("index %d out of bounds for dimension %d (size %d)", v, i, l.shape[i]))
		}
		off += v * l.strides[i]
	}
	return off
}

// MaxOffset returns the largest element offset reachable through the layout,
// or offset-1 when the layout is empty.
func (l Layout) MaxOffset() int {
	if l.shape.IsEmpty() {
		return l.offset - 1
	}
	off := l.offset
	for i, dim := range l.shape {
		off += (dim - 1) * l.strides[i]
	}
	return off
}

// Contiguous reports whether the layout is dense row-major (strides of size-1
// dimensions are ignored).
func (l Layout) Contiguous() bool {
	expected := 1
	for i := len(l.shape) - 1; i >= 0; i-- {
		if l.shape[i] == 1 {
			continue
		}
		if l.strides[i] != expected {
			return false
		}
		expected *= l.shape[i]
	}
	return true
}

// validateWithin checks every reachable offset lies in [0, capacity).
func (l Layout) validateWithin(op string, capacity int) error {
	if l.offset < 0 {
		return ArgumentErrorf(op, "negative offset %d", l.offset)
	}
	for i, s := range l.strides {
		if s < 0 {
			return ArgumentErrorf(op, "negative stride %d at dimension %d", s, i)
		}
	}
	if last := l.MaxOffset(); last >= capacity {
		return NewRangeError(op, -1, l.offset, last-l.offset+1, capacity)
	}
	return nil
}
