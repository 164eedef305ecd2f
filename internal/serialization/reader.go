package serialization

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"maps"
	"os"
	"slices"
	"unsafe"

	"github.com/dustin/go-humanize"
	"github.com/edsrzf/mmap-go"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/born-ml/tensorexpr/internal/tensor"
)

// File is a read-only memory-mapped SafeTensors file.
type File struct {
	path     string
	file     *os.File
	mm       mmap.MMap
	data     []byte // data section
	entries  map[string]Entry
	metadata map[string]string
}

// Open maps path and validates its header. Call Close once done with the file and every
// tensor loaded from it.
func Open(path string) (*File, error) {
	//nolint:gosec // G304: the path is chosen by the caller.
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, errors.Wrapf(err, "stat %s", path)
	}
	if info.Size() < headerLenSize {
		_ = f.Close()
		return nil, invalid("truncated", "", "%s has %d bytes", path, info.Size())
	}
	mm, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		_ = f.Close()
		return nil, errors.Wrapf(err, "mapping %s", path)
	}

	sf := &File{path: path, file: f, mm: mm}
	if err := sf.parse(); err != nil {
		_ = sf.Close()
		return nil, errors.WithMessagef(err, "reading %s", path)
	}
	klog.V(1).Infof("opened %s: %d tensors, %s of data", path, len(sf.entries), humanize.IBytes(uint64(len(sf.data))))
	return sf, nil
}

func (f *File) parse() error {
	n := binary.LittleEndian.Uint64(f.mm[:headerLenSize])
	if n > MaxHeaderSize {
		return errors.WithStack(ErrHeaderTooLarge)
	}
	end := headerLenSize + int64(n)
	if end > int64(len(f.mm)) {
		return invalid("truncated", "", "header ends at %d, file has %d bytes", end, len(f.mm))
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(bytes.TrimRight(f.mm[headerLenSize:end], " "), &raw); err != nil {
		return errors.Wrap(err, "parsing header")
	}
	f.data = f.mm[end:]
	f.entries = make(map[string]Entry, len(raw))
	for name, msg := range raw {
		if name == metadataKey {
			if err := json.Unmarshal(msg, &f.metadata); err != nil {
				return errors.Wrap(err, "parsing metadata")
			}
			continue
		}
		if err := ValidateName(name); err != nil {
			return err
		}
		var e Entry
		if err := json.Unmarshal(msg, &e); err != nil {
			return errors.Wrapf(err, "parsing entry %q", name)
		}
		if err := ValidateEntry(name, e); err != nil {
			return err
		}
		f.entries[name] = e
	}
	return ValidateOffsets(f.entries, int64(len(f.data)))
}

// Path returns the mapped file path.
func (f *File) Path() string { return f.path }

// Names returns the stored tensor names in sorted order.
func (f *File) Names() []string {
	return slices.Sorted(maps.Keys(f.entries))
}

// Entry returns the header entry of a tensor.
func (f *File) Entry(name string) (Entry, bool) {
	e, ok := f.entries[name]
	return e, ok
}

// Metadata returns the file metadata. The map must not be modified.
func (f *File) Metadata() map[string]string { return f.metadata }

// Verify checks the data section against the stored checksum. Files without a checksum pass.
func (f *File) Verify() error {
	if f.mm == nil {
		return errors.WithStack(ErrClosed)
	}
	stored, ok := f.metadata[checksumKey]
	if !ok {
		return nil
	}
	return errors.WithMessagef(verifyChecksum(f.data, stored), "verifying %s", f.path)
}

// Close unmaps and closes the file. Tensors loaded without copying become invalid.
func (f *File) Close() error {
	if f.file == nil {
		return nil
	}
	var err error
	if f.mm != nil {
		err = f.mm.Unmap()
		f.mm, f.data = nil, nil
	}
	if cerr := f.file.Close(); err == nil {
		err = cerr
	}
	f.file = nil
	return errors.Wrapf(err, "closing %s", f.path)
}

// bytesOf returns the data of a tensor after checking its element type.
func bytesOf[T tensor.Element](f *File, name string) ([]byte, Entry, error) {
	if f.mm == nil {
		return nil, Entry{}, errors.WithStack(ErrClosed)
	}
	e, ok := f.entries[name]
	if !ok {
		return nil, Entry{}, errors.WithMessagef(ErrUnknownTensor, "%q in %s", name, f.path)
	}
	dt, _ := e.DataType()
	if want := tensor.DataTypeOf[T](); dt != want {
		return nil, Entry{}, tensor.ArgumentErrorf("load", "tensor %q holds %s, not %s", name, dt, want)
	}
	return f.data[e.DataOffsets[0]:e.DataOffsets[1]], e, nil
}

// Load returns a non-owning tensor over the mapped data of name. Data that is not aligned for
// T is copied instead.
func Load[T tensor.Element](f *File, name string) (*tensor.Tensor[T], error) {
	b, e, err := bytesOf[T](f, name)
	if err != nil {
		return nil, err
	}
	if len(b) == 0 || uintptr(unsafe.Pointer(&b[0]))%unsafe.Alignof(*new(T)) == 0 {
		return tensor.WrapBytes[T](b, e.TensorShape())
	}
	klog.V(2).Infof("%s: %q is unaligned, copying", f.path, name)
	vals, err := decode[T](b)
	if err != nil {
		return nil, err
	}
	return tensor.Wrap(vals, e.TensorShape(), nil)
}

// Read copies the data of name into a new tensor allocated from backend.
// The result stays valid after the file is closed.
func Read[T tensor.Element](f *File, name string, backend tensor.Backend) (*tensor.Tensor[T], error) {
	b, e, err := bytesOf[T](f, name)
	if err != nil {
		return nil, err
	}
	vals, err := decode[T](b)
	if err != nil {
		return nil, err
	}
	return tensor.FromSlice(vals, e.TensorShape(), backend)
}

func decode[T tensor.Element](b []byte) ([]T, error) {
	vals := make([]T, len(b)/tensor.DataTypeOf[T]().Size())
	if _, err := binary.Decode(b, binary.LittleEndian, vals); err != nil {
		return nil, errors.Wrap(err, "decoding tensor data")
	}
	return vals, nil
}
