// Package cpu implements the host storage backend: buffers in Go-managed memory.
package cpu

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/born-ml/tensorexpr/internal/tensor"
)

// Verify that CPUBackend implements tensor.Backend.
var _ tensor.Backend = (*CPUBackend)(nil)

// Config configures a CPUBackend.
type Config struct {
	// Limit caps the number of live bytes. Zero means unlimited.
	Limit int
}

// CPUBackend hands out zeroed, 8-byte aligned host buffers.
type CPUBackend struct {
	device tensor.Device
	limit  int

	mu    sync.Mutex
	stats Stats
}

// Stats are the allocation counters of a CPUBackend.
type Stats struct {
	Allocations int
	Releases    int
	LiveBytes   int
	PeakBytes   int
}

// String formats the counters with human-readable sizes.
func (s Stats) String() string {
	//nolint:gosec // G115: byte counters are never negative.
	return fmt.Sprintf("allocations=%d releases=%d live=%s peak=%s",
		s.Allocations, s.Releases, humanize.IBytes(uint64(s.LiveBytes)), humanize.IBytes(uint64(s.PeakBytes)))
}

// New creates a new CPU backend without a memory limit.
func New() *CPUBackend {
	return NewWithConfig(Config{})
}

// NewWithConfig creates a new CPU backend.
func NewWithConfig(cfg Config) *CPUBackend {
	return &CPUBackend{
		device: tensor.CPU,
		limit:  cfg.Limit,
	}
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// Device returns the compute device.
func (cpu *CPUBackend) Device() tensor.Device {
	return cpu.device
}

// buffer is a host allocation. Words keep the bytes 8-byte aligned for every element type.
type buffer struct {
	words []uint64
	bytes []byte
	freed bool
}

func (b *buffer) Len() int      { return len(b.bytes) }
func (b *buffer) Bytes() []byte { return b.bytes }

// Allocate returns a zeroed buffer of byteCount bytes.
func (cpu *CPUBackend) Allocate(byteCount int) (tensor.Handle, error) {
	if byteCount < 0 {
		return nil, tensor.ArgumentErrorf("allocate", "negative byte count %d", byteCount)
	}

	cpu.mu.Lock()
	if cpu.limit > 0 && cpu.stats.LiveBytes+byteCount > cpu.limit {
		live := cpu.stats.LiveBytes
		cpu.mu.Unlock()
		//nolint:gosec // G115: limit and live are never negative.
		return nil, errors.WithStack(&tensor.AllocationError{
			Backend: cpu.Name(),
			Bytes:   byteCount,
			Err: errors.Errorf("limit of %s reached (%s live)",
				humanize.IBytes(uint64(cpu.limit)), humanize.IBytes(uint64(live))),
		})
	}
	cpu.stats.Allocations++
	cpu.stats.LiveBytes += byteCount
	cpu.stats.PeakBytes = max(cpu.stats.PeakBytes, cpu.stats.LiveBytes)
	cpu.mu.Unlock()

	b := &buffer{}
	if byteCount > 0 {
		b.words = make([]uint64, (byteCount+7)/8)
		//nolint:gosec // unsafe.Slice over our own word slice.
		b.bytes = unsafe.Slice((*byte)(unsafe.Pointer(&b.words[0])), byteCount)
	} else {
		b.bytes = []byte{}
	}
	klog.V(2).Infof("cpu: allocated %s", humanize.IBytes(uint64(byteCount))) //nolint:gosec // checked above
	return b, nil
}

// Release returns the buffer to the backend. Releasing twice is ignored.
func (cpu *CPUBackend) Release(h tensor.Handle) {
	b, ok := h.(*buffer)
	if !ok {
		klog.Warningf("cpu: release of foreign handle %T", h)
		return
	}
	cpu.mu.Lock()
	defer cpu.mu.Unlock()
	if b.freed {
		return
	}
	b.freed = true
	cpu.stats.Releases++
	cpu.stats.LiveBytes -= len(b.bytes)
	b.words, b.bytes = nil, nil
}

// Copy transfers byteCount bytes between host handles. Only HostToHost is supported.
func (cpu *CPUBackend) Copy(src, dst tensor.Handle, byteCount int, dir tensor.CopyDirection) error {
	if dir != tensor.HostToHost {
		return tensor.ArgumentErrorf("copy", "cpu backend cannot copy %s", dir)
	}
	s, ok := src.(tensor.HostHandle)
	if !ok {
		return tensor.ArgumentErrorf("copy", "source %T is not a host handle", src)
	}
	d, ok := dst.(tensor.HostHandle)
	if !ok {
		return tensor.ArgumentErrorf("copy", "destination %T is not a host handle", dst)
	}
	if byteCount < 0 || byteCount > s.Len() || byteCount > d.Len() {
		return tensor.NewRangeError("copy", 0, 0, byteCount, min(s.Len(), d.Len()))
	}
	copy(d.Bytes()[:byteCount], s.Bytes()[:byteCount])
	return nil
}

// Stats returns a snapshot of the allocation counters.
func (cpu *CPUBackend) Stats() Stats {
	cpu.mu.Lock()
	defer cpu.mu.Unlock()
	return cpu.stats
}
