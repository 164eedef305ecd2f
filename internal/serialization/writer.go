package serialization

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"io"
	"maps"
	"os"
	"slices"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/born-ml/tensorexpr/internal/tensor"
)

type item struct {
	dtype tensor.DataType
	shape tensor.Shape
	data  []byte
}

// Writer collects named tensors and writes them as one SafeTensors file.
// Tensors are encoded when added, so later changes to their storage are not saved.
type Writer struct {
	items    map[string]item
	metadata map[string]string
}

// NewWriter creates an empty writer.
func NewWriter() *Writer {
	return &Writer{items: make(map[string]item), metadata: make(map[string]string)}
}

// SetMetadata records a metadata string. The "sha256" key is set by the writer.
func (w *Writer) SetMetadata(key, value string) error {
	if key == checksumKey {
		return invalid("reserved_metadata", "", "metadata key %q is reserved", key)
	}
	w.metadata[key] = value
	return nil
}

// Len returns the number of tensors added.
func (w *Writer) Len() int { return len(w.items) }

// Add encodes the elements of t, in row-major order, under name.
func Add[T tensor.Element](w *Writer, name string, t *tensor.Tensor[T]) error {
	if t == nil {
		return tensor.ArgumentErrorf("save", "nil tensor %q", name)
	}
	return AddView(w, name, t.View())
}

// AddView encodes the elements of v, in row-major order, under name.
func AddView[T tensor.Element](w *Writer, name string, v *tensor.View[T]) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if _, dup := w.items[name]; dup {
		return invalid("duplicate_name", name, "tensor added twice")
	}
	if v == nil || !v.Valid() {
		return tensor.ArgumentErrorf("save", "tensor %q has no live storage", name)
	}
	data, err := binary.Append(nil, binary.LittleEndian, v.Values())
	if err != nil {
		return errors.Wrapf(err, "encoding %q", name)
	}
	w.items[name] = item{dtype: tensor.DataTypeOf[T](), shape: v.Shape().Clone(), data: data}
	return nil
}

// header builds the JSON header and the data section, tensors ordered by name.
func (w *Writer) header() ([]byte, []byte, error) {
	names := slices.Sorted(maps.Keys(w.items))
	entries := make(map[string]any, len(names)+1)
	var data []byte
	for _, name := range names {
		it := w.items[name]
		shape := make([]int64, len(it.shape))
		for i, d := range it.shape {
			shape[i] = int64(d)
		}
		start := int64(len(data))
		data = append(data, it.data...)
		entries[name] = Entry{
			DType:       dtypeName(it.dtype),
			Shape:       shape,
			DataOffsets: [2]int64{start, int64(len(data))},
		}
	}

	meta := maps.Clone(w.metadata)
	meta[checksumKey] = Checksum(data)
	entries[metadataKey] = meta

	js, err := json.Marshal(entries)
	if err != nil {
		return nil, nil, errors.Wrap(err, "marshalling header")
	}
	pad := alignUp(headerLenSize+len(js), Alignment) - headerLenSize - len(js)
	js = append(js, bytes.Repeat([]byte{' '}, pad)...)
	return js, data, nil
}

// WriteTo writes the file to out.
func (w *Writer) WriteTo(out io.Writer) (int64, error) {
	js, data, err := w.header()
	if err != nil {
		return 0, err
	}
	var size [headerLenSize]byte
	binary.LittleEndian.PutUint64(size[:], uint64(len(js)))

	var n int64
	for _, chunk := range [][]byte{size[:], js, data} {
		m, err := out.Write(chunk)
		n += int64(m)
		if err != nil {
			return n, errors.Wrap(err, "writing tensors")
		}
	}
	return n, nil
}

// WriteFile writes the file to path, replacing any existing file.
func (w *Writer) WriteFile(path string) error {
	//nolint:gosec // G304: the path is chosen by the caller.
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %s", path)
	}
	buf := bufio.NewWriter(f)
	n, err := w.WriteTo(buf)
	if err == nil {
		err = errors.Wrapf(buf.Flush(), "writing %s", path)
	}
	if cerr := f.Close(); err == nil && cerr != nil {
		err = errors.Wrapf(cerr, "closing %s", path)
	}
	if err != nil {
		return err
	}
	klog.V(1).Infof("saved %d tensors to %s (%s)", len(w.items), path, humanize.IBytes(uint64(n)))
	return nil
}
