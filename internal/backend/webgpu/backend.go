//go:build windows

// Package webgpu implements a device storage backend over WebGPU buffers.
// Uses go-webgpu (github.com/go-webgpu/webgpu) for zero-CGO WebGPU bindings.
//
// Device storage cannot be evaluated directly: expressions run over host memory. Use Upload
// and Download to move tensors between the host and the device.
package webgpu

import (
	"fmt"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/go-webgpu/webgpu/wgpu"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/born-ml/tensorexpr/internal/tensor"
)

// Verify that Backend implements tensor.Backend.
var _ tensor.Backend = (*Backend)(nil)

// bufferUsage is the usage of every storage buffer: readable by shaders and copyable both ways.
const bufferUsage = wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst

// Backend hands out GPU storage buffers.
type Backend struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	adapterInfo *wgpu.AdapterInfo
	pool        *BufferPool

	mu    sync.Mutex
	stats Stats
}

// Stats are the allocation counters of a Backend.
type Stats struct {
	Allocations int
	Releases    int
	LiveBytes   uint64
	PeakBytes   uint64
	Pool        PoolStats
}

// String formats the counters with human-readable sizes.
func (s Stats) String() string {
	return fmt.Sprintf("allocations=%d releases=%d live=%s peak=%s pool(hits=%d misses=%d pooled=%d)",
		s.Allocations, s.Releases, humanize.IBytes(s.LiveBytes), humanize.IBytes(s.PeakBytes),
		s.Pool.Hits, s.Pool.Misses, s.Pool.Pooled)
}

// buffer is a device allocation. size is the requested byte count; the GPU buffer itself is
// rounded up to a multiple of 4 bytes, as copies require.
type buffer struct {
	buf      *wgpu.Buffer
	size     int
	capacity uint64
	released bool
}

func (b *buffer) Len() int { return b.size }

func align4(n uint64) uint64 { return (n + 3) &^ 3 }

// New creates a new WebGPU backend.
// Returns an error if WebGPU is not available or initialization fails.
func New() (backend *Backend, err error) {
	// wgpu panics when the native library cannot be loaded.
	defer func() {
		if r := recover(); r != nil {
			backend = nil
			err = errors.Errorf("webgpu: native library not available: %v", r)
		}
	}()

	instance := wgpu.CreateInstance(nil)
	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		instance.Release()
		return nil, errors.Wrap(err, "webgpu: failed to request adapter")
	}
	info := adapter.GetInfo()

	device, err := adapter.RequestDevice(nil)
	if err != nil {
		adapter.Release()
		instance.Release()
		return nil, errors.Wrap(err, "webgpu: failed to request device")
	}
	queue := device.GetQueue()
	if queue == nil {
		device.Release()
		adapter.Release()
		instance.Release()
		return nil, errors.New("webgpu: failed to get queue")
	}

	b := &Backend{
		instance:    instance,
		adapter:     adapter,
		device:      device,
		queue:       queue,
		adapterInfo: &info,
		pool:        NewBufferPool(device),
	}
	klog.V(1).Infof("webgpu: using %s", b.Name())
	return b, nil
}

// Name returns the backend name.
func (b *Backend) Name() string {
	if b.adapterInfo != nil {
		return fmt.Sprintf("WebGPU (%s %s)", b.adapterInfo.Name, b.adapterInfo.VendorName)
	}
	return "WebGPU"
}

// Device returns the compute device.
func (b *Backend) Device() tensor.Device {
	return tensor.WebGPU
}

// AdapterInfo returns information about the GPU adapter.
func (b *Backend) AdapterInfo() *wgpu.AdapterInfo {
	return b.adapterInfo
}

// Allocate returns a zeroed device buffer of byteCount bytes.
func (b *Backend) Allocate(byteCount int) (h tensor.Handle, err error) {
	if byteCount < 0 {
		return nil, tensor.ArgumentErrorf("allocate", "negative byte count %d", byteCount)
	}
	// Failed buffer creation surfaces as a panic in wgpu.
	defer func() {
		if r := recover(); r != nil {
			h = nil
			err = errors.WithStack(&tensor.AllocationError{Backend: b.Name(), Bytes: byteCount, Err: errors.Errorf("%v", r)})
		}
	}()

	capacity := align4(uint64(max(byteCount, 4)))
	buf, reused := b.pool.Acquire(capacity, bufferUsage)
	if reused {
		b.zero(buf, capacity)
	}

	b.mu.Lock()
	b.stats.Allocations++
	b.stats.LiveBytes += capacity
	b.stats.PeakBytes = max(b.stats.PeakBytes, b.stats.LiveBytes)
	b.mu.Unlock()

	klog.V(2).Infof("webgpu: allocated %s (reused=%v)", humanize.IBytes(capacity), reused)
	return &buffer{buf: buf, size: byteCount, capacity: capacity}, nil
}

// Release returns the buffer to the pool. Releasing twice is ignored.
func (b *Backend) Release(h tensor.Handle) {
	buf, ok := h.(*buffer)
	if !ok {
		klog.Warningf("webgpu: release of foreign handle %T", h)
		return
	}
	b.mu.Lock()
	if buf.released {
		b.mu.Unlock()
		return
	}
	buf.released = true
	b.stats.Releases++
	b.stats.LiveBytes -= buf.capacity
	b.mu.Unlock()

	b.pool.Release(buf.buf, buf.capacity, bufferUsage)
	buf.buf = nil
}

// Stats returns a snapshot of the allocation counters.
func (b *Backend) Stats() Stats {
	b.mu.Lock()
	s := b.stats
	b.mu.Unlock()
	s.Pool = b.pool.Stats()
	return s
}

// Close releases every WebGPU resource. Buffers still held by storages become invalid.
func (b *Backend) Close() {
	if b.pool != nil {
		b.pool.Clear()
		b.pool = nil
	}
	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}

// IsAvailable checks if WebGPU is available on this system.
func IsAvailable() (available bool) {
	defer func() {
		if r := recover(); r != nil {
			available = false
		}
	}()

	instance := wgpu.CreateInstance(nil)
	defer instance.Release()

	adapter, err := instance.RequestAdapter(nil)
	if err != nil {
		return false
	}
	adapter.Release()
	return true
}
