//go:build windows

package webgpu

import (
	"testing"

	"github.com/go-webgpu/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
)

func TestClassOf(t *testing.T) {
	tests := []struct {
		size uint64
		want sizeClass
	}{
		{4, smallClass},
		{smallThreshold - 1, smallClass},
		{smallThreshold, mediumClass},
		{mediumThreshold - 1, mediumClass},
		{mediumThreshold, largeClass},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, classOf(tt.size), "size %d", tt.size)
	}
}

func TestBufferPoolReuse(t *testing.T) {
	b := newBackend(t)
	pool := b.pool

	usage := wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc
	buf, reused := pool.Acquire(1024, usage)
	assert.False(t, reused)
	pool.Release(buf, 1024, usage)

	again, reused := pool.Acquire(1024, usage)
	assert.True(t, reused)
	assert.Same(t, buf, again)

	other, reused := pool.Acquire(2048, usage)
	assert.False(t, reused, "sizes must match exactly")
	pool.Release(again, 1024, usage)
	pool.Release(other, 2048, usage)

	s := pool.Stats()
	assert.Equal(t, uint64(1), s.Hits)
	assert.Equal(t, uint64(2), s.Misses)
	assert.Equal(t, 2, s.Pooled)

	pool.Clear()
	assert.Zero(t, pool.Stats().Pooled)
}
