package tensor

import (
	"sync"

	"github.com/pkg/errors"
)

// Verify that MockBackend implements Backend.
var _ Backend = (*MockBackend)(nil)

// MockBackend is a simple host backend for testing.
// It counts allocations and releases, and can be told to fail or to hand out device handles.
type MockBackend struct {
	mu       sync.Mutex
	allocs   int
	releases int
	live     map[*mockHandle]struct{}

	// FailAllocate makes Allocate return an error.
	FailAllocate bool

	// DeviceOnly makes Allocate return handles without host bytes.
	DeviceOnly bool
}

type mockHandle struct {
	bytes []byte
}

func (h *mockHandle) Len() int { return len(h.bytes) }

type mockHostHandle struct{ *mockHandle }

func (h mockHostHandle) Bytes() []byte { return h.bytes }

// NewMockBackend creates a new MockBackend.
func NewMockBackend() *MockBackend {
	return &MockBackend{live: make(map[*mockHandle]struct{})}
}

// Name returns the backend name.
func (m *MockBackend) Name() string {
	return "mock"
}

// Device returns the device type.
func (m *MockBackend) Device() Device {
	if m.DeviceOnly {
		return WebGPU
	}
	return CPU
}

// Allocate returns a zeroed buffer of byteCount bytes.
func (m *MockBackend) Allocate(byteCount int) (Handle, error) {
	if m.FailAllocate {
		return nil, errors.New("mock allocation failure")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	h := &mockHandle{bytes: make([]byte, byteCount)}
	m.allocs++
	m.live[h] = struct{}{}
	if m.DeviceOnly {
		return h, nil
	}
	return mockHostHandle{h}, nil
}

// Release forgets the buffer.
func (m *MockBackend) Release(h Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var mh *mockHandle
	switch v := h.(type) {
	case mockHostHandle:
		mh = v.mockHandle
	case *mockHandle:
		mh = v
	default:
		return
	}
	delete(m.live, mh)
	m.releases++
}

// Copy copies bytes between mock buffers.
func (m *MockBackend) Copy(src, dst Handle, byteCount int, _ CopyDirection) error {
	s, ok1 := unwrapMock(src)
	d, ok2 := unwrapMock(dst)
	if !ok1 || !ok2 {
		return errors.New("mock copy: foreign handle")
	}
	if byteCount > len(s.bytes) || byteCount > len(d.bytes) {
		return NewRangeError("copy", 0, 0, byteCount, min(len(s.bytes), len(d.bytes)))
	}
	copy(d.bytes[:byteCount], s.bytes[:byteCount])
	return nil
}

func unwrapMock(h Handle) (*mockHandle, bool) {
	switch v := h.(type) {
	case mockHostHandle:
		return v.mockHandle, true
	case *mockHandle:
		return v, true
	}
	return nil, false
}

// Stats returns the number of allocations, releases and live buffers.
func (m *MockBackend) Stats() (allocs, releases, live int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.allocs, m.releases, len(m.live)
}
