//go:build windows

package webgpu

import (
	"unsafe"

	"github.com/go-webgpu/webgpu/wgpu"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/born-ml/tensorexpr/internal/tensor"
)

// staging creates a copy-source buffer holding data, padded to a multiple of 4 bytes.
func (b *Backend) staging(data []byte) *wgpu.Buffer {
	size := align4(uint64(max(len(data), 4)))
	buf := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            wgpu.BufferUsageCopySrc,
		Size:             size,
		MappedAtCreation: wgpu.True,
	})
	mapped := buf.GetMappedRange(0, size)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	dst := unsafe.Slice((*byte)(mapped), size)
	n := copy(dst, data)
	clear(dst[n:])
	buf.Unmap()
	return buf
}

// copyBuffers records and submits a buffer-to-buffer copy.
func (b *Backend) copyBuffers(src, dst *wgpu.Buffer, size uint64) {
	encoder := b.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(src, 0, dst, 0, size)
	cmd := encoder.Finish(nil)
	b.queue.Submit(cmd)
}

// write uploads data to the start of dst.
func (b *Backend) write(dst *wgpu.Buffer, data []byte) {
	src := b.staging(data)
	defer src.Release()
	b.copyBuffers(src, dst, align4(uint64(len(data))))
}

// zero clears size bytes of buf.
func (b *Backend) zero(buf *wgpu.Buffer, size uint64) {
	b.write(buf, make([]byte, size))
}

// read downloads size bytes from src through a mappable staging buffer.
func (b *Backend) read(src *wgpu.Buffer, size uint64) ([]byte, error) {
	aligned := align4(size)
	staging := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
		Size:  aligned,
	})
	defer staging.Release()

	b.copyBuffers(src, staging, aligned)
	if err := staging.MapAsync(b.device, wgpu.MapModeRead, 0, aligned); err != nil {
		return nil, errors.Wrap(err, "webgpu: failed to map staging buffer")
	}
	mapped := staging.GetMappedRange(0, aligned)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	out := append([]byte(nil), unsafe.Slice((*byte)(mapped), size)...)
	staging.Unmap()
	return out, nil
}

// Copy transfers byteCount bytes from src to dst. Device copies of a partial buffer must move a
// multiple of 4 bytes.
func (b *Backend) Copy(src, dst tensor.Handle, byteCount int, dir tensor.CopyDirection) (err error) {
	if byteCount < 0 || byteCount > src.Len() || byteCount > dst.Len() {
		return tensor.NewRangeError("copy", 0, 0, byteCount, min(src.Len(), dst.Len()))
	}
	if byteCount == 0 {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("webgpu: copy %s failed: %v", dir, r)
		}
	}()
	klog.V(2).Infof("webgpu: copy %d bytes %s", byteCount, dir)

	switch dir {
	case tensor.HostToHost:
		s, d, err := hostPair(src, dst)
		if err != nil {
			return err
		}
		copy(d[:byteCount], s[:byteCount])
		return nil

	case tensor.HostToDevice:
		s, ok := src.(tensor.HostHandle)
		if !ok {
			return tensor.ArgumentErrorf("copy", "source %T is not a host handle", src)
		}
		d, err := b.deviceBuffer(dst, byteCount)
		if err != nil {
			return err
		}
		b.write(d.buf, s.Bytes()[:byteCount])
		return nil

	case tensor.DeviceToHost:
		s, err := b.deviceBuffer(src, byteCount)
		if err != nil {
			return err
		}
		d, ok := dst.(tensor.HostHandle)
		if !ok {
			return tensor.ArgumentErrorf("copy", "destination %T is not a host handle", dst)
		}
		data, err := b.read(s.buf, uint64(byteCount))
		if err != nil {
			return err
		}
		copy(d.Bytes(), data)
		return nil

	case tensor.DeviceToDevice:
		s, err := b.deviceBuffer(src, byteCount)
		if err != nil {
			return err
		}
		d, err := b.deviceBuffer(dst, byteCount)
		if err != nil {
			return err
		}
		b.copyBuffers(s.buf, d.buf, align4(uint64(byteCount)))
		return nil
	}
	return tensor.ArgumentErrorf("copy", "unknown direction %d", dir)
}

// deviceBuffer checks that h is a live device buffer that can take a byteCount copy.
func (b *Backend) deviceBuffer(h tensor.Handle, byteCount int) (*buffer, error) {
	buf, ok := h.(*buffer)
	if !ok {
		return nil, tensor.ArgumentErrorf("copy", "%T is not a webgpu buffer", h)
	}
	if buf.released {
		return nil, tensor.ArgumentErrorf("copy", "buffer was released")
	}
	if byteCount%4 != 0 && byteCount != buf.size {
		return nil, tensor.ArgumentErrorf("copy", "partial device copy of %d bytes is not a multiple of 4", byteCount)
	}
	return buf, nil
}

func hostPair(src, dst tensor.Handle) ([]byte, []byte, error) {
	s, ok := src.(tensor.HostHandle)
	if !ok {
		return nil, nil, tensor.ArgumentErrorf("copy", "source %T is not a host handle", src)
	}
	d, ok := dst.(tensor.HostHandle)
	if !ok {
		return nil, nil, tensor.ArgumentErrorf("copy", "destination %T is not a host handle", dst)
	}
	return s.Bytes(), d.Bytes(), nil
}
