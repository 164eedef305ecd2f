//go:build windows

package webgpu

import (
	"sync"

	"github.com/go-webgpu/webgpu/wgpu"
)

// sizeClass buckets pooled buffers by size.
type sizeClass int

const (
	smallClass  sizeClass = iota // < 4KB
	mediumClass                  // 4KB to 1MB
	largeClass                   // > 1MB
	numClasses
)

const (
	smallThreshold  = 4 * 1024
	mediumThreshold = 1024 * 1024
	maxPerClass     = 100
)

func classOf(size uint64) sizeClass {
	switch {
	case size < smallThreshold:
		return smallClass
	case size < mediumThreshold:
		return mediumClass
	default:
		return largeClass
	}
}

type pooledBuffer struct {
	buffer *wgpu.Buffer
	size   uint64
	usage  wgpu.BufferUsage
}

// PoolStats are the counters of a BufferPool.
type PoolStats struct {
	Created  uint64
	Returned uint64
	Hits     uint64
	Misses   uint64
	Pooled   int
}

// BufferPool reuses released GPU buffers of the exact same size and usage.
type BufferPool struct {
	device *wgpu.Device

	mu      sync.Mutex
	classes [numClasses][]pooledBuffer
	stats   PoolStats
}

// NewBufferPool creates a new buffer pool for the given device.
func NewBufferPool(device *wgpu.Device) *BufferPool {
	return &BufferPool{device: device}
}

// Acquire returns a buffer of size bytes with the given usage, and whether it was reused.
// Reused buffers keep their previous contents.
func (p *BufferPool) Acquire(size uint64, usage wgpu.BufferUsage) (*wgpu.Buffer, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	c := classOf(size)
	pool := p.classes[c]
	for i, pb := range pool {
		if pb.size == size && pb.usage == usage {
			p.classes[c] = append(pool[:i], pool[i+1:]...)
			p.stats.Hits++
			return pb.buffer, true
		}
	}

	p.stats.Misses++
	p.stats.Created++
	return p.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: usage,
		Size:  size,
	}), false
}

// Release keeps buffer for reuse, or destroys it when its size class is full.
func (p *BufferPool) Release(buffer *wgpu.Buffer, size uint64, usage wgpu.BufferUsage) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats.Returned++
	c := classOf(size)
	if len(p.classes[c]) >= maxPerClass {
		buffer.Release()
		return
	}
	p.classes[c] = append(p.classes[c], pooledBuffer{buffer: buffer, size: size, usage: usage})
}

// Clear destroys every pooled buffer.
func (p *BufferPool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for c := range p.classes {
		for _, pb := range p.classes[c] {
			pb.buffer.Release()
		}
		p.classes[c] = nil
	}
}

// Stats returns a snapshot of the pool counters.
func (p *BufferPool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.stats
	for c := range p.classes {
		s.Pooled += len(p.classes[c])
	}
	return s
}
