package tensor

import (
	"math"
	"sync/atomic"
	"unsafe"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Storage is a reference-counted buffer with an element type.
//
// Owned storages are obtained from a Backend and handed back to it when the last owning
// reference is released. Wrapped storages reference caller memory and are never released
// to a backend: the caller remains responsible for their lifetime.
type Storage struct {
	backend  Backend // nil for wrapped memory
	handle   Handle
	bytes    []byte
	dtype    DataType
	capacity int // in elements
	owner    bool
	refCount atomic.Int32
	released atomic.Bool
}

// NewStorage allocates owned storage for capacity elements of dtype from backend.
// The returned storage has a reference count of 1.
func NewStorage(backend Backend, dtype DataType, capacity int) (*Storage, error) {
	if capacity < 0 {
		return nil, ArgumentErrorf("allocate", "negative capacity %d", capacity)
	}
	if size := dtype.Size(); size > 0 && capacity > math.MaxInt/size {
		return nil, ArgumentErrorf("allocate", "%d elements of %s overflow the byte count", capacity, dtype)
	}
	byteCount := capacity * dtype.Size()
	h, err := backend.Allocate(byteCount)
	if err != nil {
		if IsAllocationError(err) {
			return nil, err
		}
		return nil, errors.WithStack(&AllocationError{Backend: backend.Name(), Bytes: byteCount, Err: err})
	}
	s := &Storage{
		backend:  backend,
		handle:   h,
		dtype:    dtype,
		capacity: capacity,
		owner:    true,
	}
	if hh, ok := h.(HostHandle); ok {
		s.bytes = hh.Bytes()
	}
	s.refCount.Store(1)
	return s, nil
}

// wrapStorage creates non-owning storage over caller bytes.
func wrapStorage(b []byte, dtype DataType, capacity int) *Storage {
	s := &Storage{
		handle:   hostHandle(b),
		bytes:    b,
		dtype:    dtype,
		capacity: capacity,
	}
	s.refCount.Store(1)
	return s
}

// Retain adds an owning reference.
func (s *Storage) Retain() {
	s.refCount.Add(1)
}

// Release drops an owning reference. When the last one is dropped, owned memory is
// handed back to its backend. It returns true if this call released the buffer.
func (s *Storage) Release() bool {
	n := s.refCount.Add(-1)
	if n > 0 {
		return false
	}
	if n < 0 {
		klog.Warningf("storage %s[%d]: release without a matching reference", s.dtype, s.capacity)
		return false
	}
	if !s.released.CompareAndSwap(false, true) {
		return false
	}
	if s.owner && s.backend != nil {
		s.backend.Release(s.handle)
	}
	s.bytes = nil
	return true
}

// Refs returns the current number of owning references.
func (s *Storage) Refs() int {
	return int(s.refCount.Load())
}

// Released reports whether the last owning reference was dropped.
func (s *Storage) Released() bool {
	return s.released.Load()
}

// IsOwner reports whether the storage owns its buffer (as opposed to wrapping caller memory).
func (s *Storage) IsOwner() bool {
	return s.owner
}

// DType returns the element type.
func (s *Storage) DType() DataType {
	return s.dtype
}

// Capacity returns the number of elements the storage can hold.
func (s *Storage) Capacity() int {
	return s.capacity
}

// ByteSize returns the storage size in bytes.
func (s *Storage) ByteSize() int {
	return s.capacity * s.dtype.Size()
}

// Backend returns the backend the storage was allocated from, nil for wrapped memory.
func (s *Storage) Backend() Backend {
	return s.backend
}

// Handle returns the backend handle.
func (s *Storage) Handle() Handle {
	return s.handle
}

// IsHost reports whether the bytes are CPU addressable.
func (s *Storage) IsHost() bool {
	_, ok := s.handle.(HostHandle)
	return ok
}

// Bytes returns the raw host bytes, nil for device storage.
// WARNING: Direct access to underlying memory.
func (s *Storage) Bytes() []byte {
	return s.bytes
}

// typedData reinterprets the host bytes of s as a slice of T.
func typedData[T Element](s *Storage) []T {
	if s.capacity == 0 || len(s.bytes) == 0 {
		return nil
	}
	//nolint:gosec // unsafe.Slice for zero-copy access, bounds fixed by capacity.
	return unsafe.Slice((*T)(unsafe.Pointer(&s.bytes[0])), s.capacity)
}

// bytesOf reinterprets a typed slice as bytes.
func bytesOf[T Element](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var dummy T
	//nolint:gosec // unsafe.Slice for zero-copy access over caller memory.
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), len(data)*int(unsafe.Sizeof(dummy)))
}
