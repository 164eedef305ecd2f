package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/tensorexpr/internal/tensor"
)

func TestCPUBackend_Interface(t *testing.T) {
	backend := New()
	assert.Equal(t, "CPU", backend.Name())
	assert.Equal(t, tensor.CPU, backend.Device())
}

func TestCPUBackend_AllocateRelease(t *testing.T) {
	backend := New()

	h, err := backend.Allocate(12)
	require.NoError(t, err)
	host, ok := h.(tensor.HostHandle)
	require.True(t, ok)
	assert.Equal(t, 12, host.Len())
	assert.Equal(t, make([]byte, 12), host.Bytes())

	stats := backend.Stats()
	assert.Equal(t, 1, stats.Allocations)
	assert.Equal(t, 12, stats.LiveBytes)

	backend.Release(h)
	backend.Release(h)
	stats = backend.Stats()
	assert.Equal(t, 1, stats.Releases)
	assert.Zero(t, stats.LiveBytes)
	assert.Equal(t, 12, stats.PeakBytes)

	_, err = backend.Allocate(-1)
	assert.True(t, tensor.IsArgumentError(err))
}

func TestCPUBackend_Limit(t *testing.T) {
	backend := NewWithConfig(Config{Limit: 1024})

	a, err := tensor.Allocate[float32](tensor.Shape{128}, backend)
	require.NoError(t, err)

	_, err = tensor.Allocate[float64](tensor.Shape{128}, backend)
	require.Error(t, err)
	assert.True(t, tensor.IsAllocationError(err))
	assert.Contains(t, err.Error(), "1.0 KiB")

	// Releasing the first tensor makes room again.
	a.Release()
	b, err := tensor.Allocate[float64](tensor.Shape{128}, backend)
	require.NoError(t, err)
	b.Release()

	assert.Contains(t, backend.Stats().String(), "peak=1.0 KiB")
}

func TestCPUBackend_Copy(t *testing.T) {
	backend := New()
	src, err := tensor.FromSlice([]int64{1, 2, 3}, tensor.Shape{3}, backend)
	require.NoError(t, err)
	defer src.Release()
	dst, err := tensor.Allocate[int64](tensor.Shape{3}, backend)
	require.NoError(t, err)
	defer dst.Release()

	err = backend.Copy(src.Storage().Handle(), dst.Storage().Handle(), 16, tensor.HostToHost)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 0}, dst.Values())

	err = backend.Copy(src.Storage().Handle(), dst.Storage().Handle(), 32, tensor.HostToHost)
	assert.True(t, tensor.IsRangeError(err))

	err = backend.Copy(src.Storage().Handle(), dst.Storage().Handle(), 8, tensor.HostToDevice)
	assert.True(t, tensor.IsArgumentError(err))
}

func TestCPUBackend_CopyFromWrapped(t *testing.T) {
	backend := New()
	wrapped, err := tensor.Wrap([]float32{4, 5}, tensor.Shape{2}, nil)
	require.NoError(t, err)
	dst, err := tensor.Allocate[float32](tensor.Shape{2}, backend)
	require.NoError(t, err)
	defer dst.Release()

	require.NoError(t, backend.Copy(wrapped.Storage().Handle(), dst.Storage().Handle(), 8, tensor.HostToHost))
	assert.Equal(t, []float32{4, 5}, dst.Values())
}

func TestCPUBackend_Alignment(t *testing.T) {
	backend := New()
	for _, n := range []int{1, 3, 9, 17} {
		h, err := backend.Allocate(n * 8)
		require.NoError(t, err)
		tt, err := tensor.WrapBytes[float64](h.(tensor.HostHandle).Bytes(), tensor.Shape{n})
		require.NoError(t, err)
		tt.Set(1.25, n-1)
		assert.Equal(t, 1.25, tt.At(n-1))
		backend.Release(h)
	}
}
