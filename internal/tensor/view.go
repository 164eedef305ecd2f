package tensor

import (
	"fmt"
	"slices"
)

// KeepDim in a Clone target keeps the extent of the mapped source dimension.
const KeepDim = -1

// View is a non-owning reborrow of a Storage: a shape, strides and an offset over the same
// elements. Views are cheap values; deriving one never copies or retains the storage.
type View[T Element] struct {
	storage *Storage
	layout  Layout
	data    []T
}

// Shape returns the view's extents.
func (v *View[T]) Shape() Shape { return v.layout.shape }

// Strides returns the view's element strides.
func (v *View[T]) Strides() []int { return v.layout.strides }

// Offset returns the element offset of the first element.
func (v *View[T]) Offset() int { return v.layout.offset }

// Rank returns the number of dimensions.
func (v *View[T]) Rank() int { return v.layout.Rank() }

// Layout returns the view's layout.
func (v *View[T]) Layout() Layout { return v.layout }

// Storage returns the referenced storage.
func (v *View[T]) Storage() *Storage { return v.storage }

// Valid reports whether the referenced storage is still alive.
func (v *View[T]) Valid() bool { return v.storage != nil && !v.storage.Released() }

// At returns the element at the given indices.
// Panics if indices are out of bounds.
func (v *View[T]) At(indices ...int) T {
	return v.data[v.layout.checkedIndex(indices)]
}

// Set writes the element at the given indices.
// Panics if indices are out of bounds.
func (v *View[T]) Set(value T, indices ...int) {
	v.data[v.layout.checkedIndex(indices)] = value
}

// Get reads the element at idx without bounds checking.
func (v *View[T]) Get(idx []int) T {
	return v.data[v.layout.Index(idx)]
}

// Put writes the element at idx without bounds checking.
func (v *View[T]) Put(idx []int, value T) {
	v.data[v.layout.Index(idx)] = value
}

// Values returns a row-major copy of the view's elements.
func (v *View[T]) Values() []T {
	out := make([]T, 0, v.layout.shape.NumElements())
	for _, idx := range v.layout.shape.Iter() {
		out = append(out, v.data[v.layout.Index(idx)])
	}
	return out
}

func (v *View[T]) derive(layout Layout) *View[T] {
	return &View[T]{storage: v.storage, layout: layout, data: v.data}
}

// Slice restricts every dimension to [begin[i], begin[i]+extent[i]).
// The result has the same rank and strides, with the offset moved to begin.
func (v *View[T]) Slice(begin, extent []int) (*View[T], error) {
	rank := v.Rank()
	if len(begin) != rank || len(extent) != rank {
		return nil, ArgumentErrorf("slice", "expected %d begin/extent values, got %d/%d", rank, len(begin), len(extent))
	}
	offset := v.layout.offset
	for i := range rank {
		if extent[i] < 0 {
			return nil, ArgumentErrorf("slice", "negative extent %d at dimension %d", extent[i], i)
		}
		if begin[i] < 0 || begin[i]+extent[i] > v.layout.shape[i] {
			return nil, NewRangeError("slice", i, begin[i], extent[i], v.layout.shape[i])
		}
		offset += begin[i] * v.layout.strides[i]
	}
	return v.derive(Layout{
		shape:   slices.Clone(extent),
		strides: slices.Clone(v.layout.strides),
		offset:  offset,
	}), nil
}

// Permute reorders the dimensions: dimension i of the result is dimension order[i] of v.
func (v *View[T]) Permute(order ...int) (*View[T], error) {
	if err := validatePermutation(order, v.Rank()); err != nil {
		return nil, err
	}
	layout := Layout{
		shape:   make(Shape, len(order)),
		strides: make([]int, len(order)),
		offset:  v.layout.offset,
	}
	for i, axis := range order {
		layout.shape[i] = v.layout.shape[axis]
		layout.strides[i] = v.layout.strides[axis]
	}
	return v.derive(layout), nil
}

// Transpose reverses the dimensions.
func (v *View[T]) Transpose() *View[T] {
	order := make([]int, v.Rank())
	for i := range order {
		order[i] = len(order) - 1 - i
	}
	out, _ := v.Permute(order...)
	return out
}

func validatePermutation(order []int, rank int) error {
	if len(order) != rank {
		return ArgumentErrorf("permute", "order has %d axes, view has rank %d", len(order), rank)
	}
	seen := make([]bool, rank)
	for _, axis := range order {
		if axis < 0 || axis >= rank {
			return ArgumentErrorf("permute", "axis %d out of range for rank %d", axis, rank)
		}
		if seen[axis] {
			return ArgumentErrorf("permute", "duplicate axis %d in %v", axis, order)
		}
		seen[axis] = true
	}
	return nil
}

// Clone maps v into a higher (or equal) rank shape by inserting stride-0 dimensions.
//
// axisMap[i] is the target dimension of source dimension i; entries must be strictly
// increasing. A mapped target extent must equal the source extent, or be KeepDim to take it
// from the source. Unmapped target dimensions repeat the data along them.
//
// Example: a [3] view cloned to target [4, KeepDim] with axisMap [1] is a [4, 3] view whose
// rows all read the same 3 elements.
func (v *View[T]) Clone(target Shape, axisMap []int) (*View[T], error) {
	if len(axisMap) != v.Rank() {
		return nil, ArgumentErrorf("clone", "axis map has %d entries, view has rank %d", len(axisMap), v.Rank())
	}
	layout := Layout{
		shape:   make(Shape, len(target)),
		strides: make([]int, len(target)),
		offset:  v.layout.offset,
	}
	mapped := make([]bool, len(target))
	prev := -1
	for i, axis := range axisMap {
		if axis <= prev || axis >= len(target) {
			return nil, ArgumentErrorf("clone", "axis map %v must be strictly increasing within [0, %d)", axisMap, len(target))
		}
		prev = axis
		mapped[axis] = true
		extent := target[axis]
		switch {
		case extent == KeepDim:
			extent = v.layout.shape[i]
		case extent != v.layout.shape[i]:
			return nil, shapeErrorf("clone", axis, v.layout.shape[i], extent, v.layout.shape, target)
		}
		layout.shape[axis] = extent
		layout.strides[axis] = v.layout.strides[i]
	}
	for axis, extent := range target {
		if mapped[axis] {
			continue
		}
		if extent < 0 {
			return nil, ArgumentErrorf("clone", "unmapped target dimension %d needs an explicit extent, got %d", axis, extent)
		}
		layout.shape[axis] = extent
	}
	return v.derive(layout), nil
}

// Reshape reinterprets a contiguous view with a new shape of the same element count.
func (v *View[T]) Reshape(shape Shape) (*View[T], error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if shape.NumElements() != v.layout.shape.NumElements() {
		return nil, shapeErrorf("reshape", -1, v.layout.shape.NumElements(), shape.NumElements(), v.layout.shape, shape)
	}
	if !v.layout.Contiguous() {
		return nil, ArgumentErrorf("reshape", "view %v with strides %v is not contiguous", v.layout.shape, v.layout.strides)
	}
	layout := RowMajor(shape)
	layout.offset = v.layout.offset
	return v.derive(layout), nil
}

// String returns a human-readable representation of the view.
func (v *View[T]) String() string {
	return fmt.Sprintf("View[%s]%v strides=%v offset=%d", v.storage.dtype, v.layout.shape, v.layout.strides, v.layout.offset)
}

// ViewOf builds a view with an explicit layout over the storage of t, validating that every
// reachable offset is inside the storage.
func ViewOf[T Element](t *Tensor[T], shape Shape, strides []int, offset int) (*View[T], error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if len(strides) != len(shape) {
		return nil, ArgumentErrorf("view", "got %d strides for rank %d", len(strides), len(shape))
	}
	layout := Layout{shape: shape.Clone(), strides: slices.Clone(strides), offset: offset}
	if err := layout.validateWithin("view", t.storage.capacity); err != nil {
		return nil, err
	}
	return &View[T]{storage: t.storage, layout: layout, data: t.data}, nil
}
