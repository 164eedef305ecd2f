package tensor

import (
	"os"

	"github.com/edsrzf/mmap-go"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Mapping is a memory-mapped file backing one or more non-owning tensors.
// The tensors must not be used after Close.
type Mapping struct {
	file *os.File
	mm   mmap.MMap
}

// Close flushes writable mappings, unmaps the file and closes it.
func (m *Mapping) Close() error {
	if m.file == nil {
		return nil
	}
	var err error
	if m.mm != nil {
		err = m.mm.Unmap()
		m.mm = nil
	}
	if cerr := m.file.Close(); err == nil {
		err = cerr
	}
	name := m.file.Name()
	m.file = nil
	return errors.Wrapf(err, "unmapping %s", name)
}

// Flush writes changes of a writable mapping back to the file.
func (m *Mapping) Flush() error {
	if m.mm == nil {
		return nil
	}
	return errors.Wrapf(m.mm.Flush(), "flushing %s", m.file.Name())
}

// MapFile memory-maps a file holding a row-major array of T and returns a tensor over it.
// The file size must be exactly shape.NumElements() elements. The tensor does not own the
// mapping: call Mapping.Close once done with it.
func MapFile[T Element](path string, shape Shape, writable bool) (*Tensor[T], *Mapping, error) {
	want, err := shape.ByteSize(DataTypeOf[T]())
	if err != nil {
		return nil, nil, err
	}
	flag, prot := os.O_RDONLY, mmap.RDONLY
	if writable {
		flag, prot = os.O_RDWR, mmap.RDWR
	}
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "opening %s", path)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, nil, errors.Wrapf(err, "stat %s", path)
	}
	if info.Size() != int64(want) {
		_ = f.Close()
		return nil, nil, ArgumentErrorf("map file", "%s has %d bytes, shape %v of %s needs %d", path, info.Size(), shape, DataTypeOf[T](), want)
	}
	m := &Mapping{file: f}
	if want == 0 {
		t, _ := WrapBytes[T](nil, shape)
		return t, m, nil
	}
	mm, err := mmap.Map(f, prot, 0)
	if err != nil {
		_ = f.Close()
		return nil, nil, errors.Wrapf(err, "mapping %s", path)
	}
	m.mm = mm
	t, err := WrapBytes[T](mm, shape)
	if err != nil {
		_ = m.Close()
		return nil, nil, err
	}
	klog.V(2).Infof("mapped %s: %s %v (writable=%v)", path, DataTypeOf[T](), shape, writable)
	return t, m, nil
}
