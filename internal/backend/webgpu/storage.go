//go:build windows

package webgpu

import (
	"github.com/pkg/errors"

	"github.com/born-ml/tensorexpr/internal/tensor"
)

// Upload copies the elements of t, in row-major order, into fresh device storage.
// The returned storage is owned by the caller.
func Upload[T tensor.Element](b *Backend, t *tensor.Tensor[T]) (*tensor.Storage, error) {
	host, err := tensor.Wrap(t.Values(), t.Shape(), nil)
	if err != nil {
		return nil, err
	}
	s, err := tensor.NewStorage(b, t.DType(), t.NumElements())
	if err != nil {
		return nil, err
	}
	if err := b.Copy(host.Storage().Handle(), s.Handle(), s.ByteSize(), tensor.HostToDevice); err != nil {
		s.Release()
		return nil, errors.WithMessage(err, "upload")
	}
	return s, nil
}

// Download copies device storage into a new row-major host tensor of the given shape,
// allocated from host.
func Download[T tensor.Element](b *Backend, s *tensor.Storage, shape tensor.Shape, host tensor.Backend) (*tensor.Tensor[T], error) {
	if s.DType() != tensor.DataTypeOf[T]() {
		return nil, tensor.ArgumentErrorf("download", "storage holds %s, not %s", s.DType(), tensor.DataTypeOf[T]())
	}
	if s.Released() {
		return nil, tensor.ArgumentErrorf("download", "storage was released")
	}
	out, err := tensor.Allocate[T](shape, host)
	if err != nil {
		return nil, err
	}
	n := out.Storage().ByteSize()
	if n > s.ByteSize() {
		out.Release()
		return nil, tensor.NewRangeError("download", 0, 0, shape.NumElements(), s.Capacity())
	}
	if err := b.Copy(s.Handle(), out.Storage().Handle(), n, tensor.DeviceToHost); err != nil {
		out.Release()
		return nil, errors.WithMessage(err, "download")
	}
	return out, nil
}
