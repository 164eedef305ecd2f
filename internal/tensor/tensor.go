package tensor

import (
	"fmt"
	"sync/atomic"
)

// Tensor is an owning handle over a Storage with a shape and strides.
//
// Tensors created by Allocate own their storage; Share returns another owning handle to the
// same storage and the memory goes back to its backend when the last handle is released.
// Tensors created by Wrap reference caller memory and never release it.
//
// Example:
//
//	backend := cpu.New()
//	t, err := tensor.Allocate[float32](tensor.Shape{3, 4}, backend)
//	defer t.Release()
//	t.Set(1.5, 0, 2)
type Tensor[T Element] struct {
	storage  *Storage
	layout   Layout
	data     []T
	released atomic.Bool
}

func newTensor[T Element](s *Storage, layout Layout) *Tensor[T] {
	return &Tensor[T]{storage: s, layout: layout, data: typedData[T](s)}
}

// Allocate creates a row-major tensor over freshly owned storage from backend.
// The memory is zero-initialized by host backends.
func Allocate[T Element](shape Shape, backend Backend) (*Tensor[T], error) {
	if _, err := shape.ByteSize(DataTypeOf[T]()); err != nil {
		return nil, err
	}
	s, err := NewStorage(backend, DataTypeOf[T](), shape.NumElements())
	if err != nil {
		return nil, err
	}
	if !s.IsHost() && s.Capacity() > 0 {
		s.Release()
		return nil, ArgumentErrorf("allocate", "backend %s does not provide host memory", backend.Name())
	}
	return newTensor[T](s, RowMajor(shape)), nil
}

// Wrap creates a non-owning tensor over caller memory.
// A nil strides means row-major. Every offset reachable through shape and strides must
// lie inside data. The caller must keep data alive as long as the tensor and its views are used.
func Wrap[T Element](data []T, shape Shape, strides []int) (*Tensor[T], error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	layout := RowMajor(shape)
	if strides != nil {
		if len(strides) != len(shape) {
			return nil, ArgumentErrorf("wrap", "got %d strides for rank %d", len(strides), len(shape))
		}
		layout.strides = append([]int(nil), strides...)
	}
	if err := layout.validateWithin("wrap", len(data)); err != nil {
		return nil, err
	}
	s := wrapStorage(bytesOf(data), DataTypeOf[T](), len(data))
	t := &Tensor[T]{storage: s, layout: layout, data: data}
	return t, nil
}

// WrapBytes creates a non-owning row-major tensor over a raw byte buffer, the persisted
// layout used to interoperate with external buffers. len(b) must match the shape exactly.
func WrapBytes[T Element](b []byte, shape Shape) (*Tensor[T], error) {
	dtype := DataTypeOf[T]()
	want, err := shape.ByteSize(dtype)
	if err != nil {
		return nil, err
	}
	if len(b) != want {
		return nil, ArgumentErrorf("wrap bytes", "shape %v of %s needs %d bytes, got %d", shape, dtype, want, len(b))
	}
	s := wrapStorage(b, dtype, shape.NumElements())
	return newTensor[T](s, RowMajor(shape)), nil
}

// FromSlice allocates a tensor from backend and copies data into it.
func FromSlice[T Element](data []T, shape Shape, backend Backend) (*Tensor[T], error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if shape.NumElements() != len(data) {
		return nil, ArgumentErrorf("from slice", "shape %v requires %d elements, but got %d", shape, shape.NumElements(), len(data))
	}
	t, err := Allocate[T](shape, backend)
	if err != nil {
		return nil, err
	}
	copy(t.data, data)
	return t, nil
}

// Full allocates a tensor filled with value.
func Full[T Element](shape Shape, value T, backend Backend) (*Tensor[T], error) {
	t, err := Allocate[T](shape, backend)
	if err != nil {
		return nil, err
	}
	for i := range t.data {
		t.data[i] = value
	}
	return t, nil
}

// Shape returns the tensor's shape.
func (t *Tensor[T]) Shape() Shape { return t.layout.shape }

// Strides returns the tensor's element strides.
func (t *Tensor[T]) Strides() []int { return t.layout.strides }

// Rank returns the number of dimensions.
func (t *Tensor[T]) Rank() int { return t.layout.Rank() }

// Layout returns the tensor's layout.
func (t *Tensor[T]) Layout() Layout { return t.layout }

// DType returns the tensor's data type.
func (t *Tensor[T]) DType() DataType { return t.storage.dtype }

// NumElements returns the total number of elements.
func (t *Tensor[T]) NumElements() int { return t.layout.shape.NumElements() }

// Storage returns the underlying storage.
func (t *Tensor[T]) Storage() *Storage { return t.storage }

// Data returns the typed backing slice (the whole storage, not just this tensor's elements).
//
// WARNING: Modifications to the returned slice will modify the tensor.
func (t *Tensor[T]) Data() []T { return t.data }

// View returns a non-owning view over the whole tensor.
func (t *Tensor[T]) View() *View[T] {
	return &View[T]{storage: t.storage, layout: t.layout, data: t.data}
}

// At returns the element at the given indices.
// Panics if indices are out of bounds.
func (t *Tensor[T]) At(indices ...int) T {
	return t.data[t.layout.checkedIndex(indices)]
}

// Set sets the element at the given indices.
// Panics if indices are out of bounds.
func (t *Tensor[T]) Set(value T, indices ...int) {
	t.data[t.layout.checkedIndex(indices)] = value
}

// Values returns a row-major copy of the tensor's elements.
func (t *Tensor[T]) Values() []T {
	return t.View().Values()
}

// Share returns a new owning handle to the same storage.
func (t *Tensor[T]) Share() *Tensor[T] {
	t.storage.Retain()
	return newTensorShared(t)
}

func newTensorShared[T Element](t *Tensor[T]) *Tensor[T] {
	return &Tensor[T]{storage: t.storage, layout: t.layout, data: t.data}
}

// Release drops this handle's reference to the storage. Calling it twice on the same
// handle is a no-op. Views derived from the tensor must not be evaluated once the last
// handle is released.
func (t *Tensor[T]) Release() {
	if t.released.CompareAndSwap(false, true) {
		t.storage.Release()
	}
}

// String returns a human-readable representation of the tensor.
func (t *Tensor[T]) String() string {
	device := CPU
	if b := t.storage.backend; b != nil {
		device = b.Device()
	}
	return fmt.Sprintf("Tensor[%s]%v on %s", t.storage.dtype, t.layout.shape, device)
}
