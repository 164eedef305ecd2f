package serialization

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"

	"github.com/born-ml/tensorexpr/internal/backend/cpu"
	"github.com/born-ml/tensorexpr/internal/tensor"
)

func writeSample(t *testing.T) string {
	t.Helper()
	backend := cpu.New()

	weight, err := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, backend)
	require.NoError(t, err)
	t.Cleanup(weight.Release)
	steps, err := tensor.FromSlice([]int64{7, 8, 9}, tensor.Shape{3}, backend)
	require.NoError(t, err)
	t.Cleanup(steps.Release)
	mask, err := tensor.FromSlice([]bool{true, false, true}, tensor.Shape{3}, backend)
	require.NoError(t, err)
	t.Cleanup(mask.Release)

	w := NewWriter()
	require.NoError(t, w.SetMetadata("framework", "tensorexpr"))
	require.NoError(t, Add(w, "weight", weight))
	require.NoError(t, AddView(w, "weight_t", weight.View().Transpose()))
	require.NoError(t, Add(w, "steps", steps))
	require.NoError(t, Add(w, "mask", mask))
	assert.Equal(t, 4, w.Len())

	path := filepath.Join(t.TempDir(), "sample.safetensors")
	require.NoError(t, w.WriteFile(path))
	return path
}

func TestRoundTrip(t *testing.T) {
	f, err := Open(writeSample(t))
	require.NoError(t, err)
	defer func() { require.NoError(t, f.Close()) }()

	assert.Equal(t, []string{"mask", "steps", "weight", "weight_t"}, f.Names())
	assert.Equal(t, "tensorexpr", f.Metadata()["framework"])
	assert.Contains(t, f.Metadata(), "sha256")
	require.NoError(t, f.Verify())

	weight, err := Load[float32](f, "weight")
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 3}, weight.Shape())
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6}, weight.Values())
	assert.False(t, weight.Storage().IsOwner())

	transposed, err := Load[float32](f, "weight_t")
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{3, 2}, transposed.Shape())
	assert.Equal(t, []float32{1, 4, 2, 5, 3, 6}, transposed.Values())

	steps, err := Load[int64](f, "steps")
	require.NoError(t, err)
	assert.Equal(t, []int64{7, 8, 9}, steps.Values())

	mask, err := Load[bool](f, "mask")
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false, true}, mask.Values())
}

func TestReadOutlivesFile(t *testing.T) {
	f, err := Open(writeSample(t))
	require.NoError(t, err)

	backend := cpu.New()
	steps, err := Read[int64](f, "steps", backend)
	require.NoError(t, err)
	defer steps.Release()
	require.NoError(t, f.Close())
	require.NoError(t, f.Close())

	assert.True(t, steps.Storage().IsOwner())
	assert.Equal(t, []int64{7, 8, 9}, steps.Values())

	_, err = Load[int64](f, "steps")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, f.Verify(), ErrClosed)
}

func TestUnalignedDataIsCopied(t *testing.T) {
	backend := cpu.New()
	odd, err := tensor.FromSlice([]uint8{1, 2, 3}, tensor.Shape{3}, backend)
	require.NoError(t, err)
	defer odd.Release()
	wide, err := tensor.FromSlice([]float64{0.5, -1.5}, tensor.Shape{2}, backend)
	require.NoError(t, err)
	defer wide.Release()

	w := NewWriter()
	require.NoError(t, Add(w, "a", odd))
	require.NoError(t, Add(w, "b", wide))
	path := filepath.Join(t.TempDir(), "unaligned.safetensors")
	require.NoError(t, w.WriteFile(path))

	f, err := Open(path)
	require.NoError(t, err)
	defer f.Close()

	e, ok := f.Entry("b")
	require.True(t, ok)
	assert.Equal(t, [2]int64{3, 19}, e.DataOffsets)

	b, err := Load[float64](f, "b")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, -1.5}, b.Values())
}

func TestFloat16AndEmptyTensors(t *testing.T) {
	half, err := tensor.Wrap([]float16.Float16{float16.Fromfloat32(1.5), float16.Fromfloat32(-2)}, tensor.Shape{2}, nil)
	require.NoError(t, err)
	empty, err := tensor.Wrap([]float32{}, tensor.Shape{0, 4}, nil)
	require.NoError(t, err)

	w := NewWriter()
	require.NoError(t, Add(w, "half", half))
	require.NoError(t, Add(w, "empty", empty))
	path := filepath.Join(t.TempDir(), "f16.safetensors")
	require.NoError(t, w.WriteFile(path))

	f, err := Open(path)
	require.NoError(t, err)
	defer f.Close()

	h, err := Load[float16.Float16](f, "half")
	require.NoError(t, err)
	assert.InDelta(t, 1.5, float64(h.At(0).Float32()), 1e-6)
	assert.InDelta(t, -2, float64(h.At(1).Float32()), 1e-6)

	e, err := Load[float32](f, "empty")
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{0, 4}, e.Shape())
	assert.Empty(t, e.Values())
}

func TestDataSectionIsAligned(t *testing.T) {
	path := writeSample(t)
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	n := binary.LittleEndian.Uint64(raw[:8])
	assert.Zero(t, (8+n)%Alignment)
}

func TestLoadErrors(t *testing.T) {
	f, err := Open(writeSample(t))
	require.NoError(t, err)
	defer f.Close()

	_, err = Load[float32](f, "missing")
	assert.ErrorIs(t, err, ErrUnknownTensor)

	_, err = Load[float64](f, "weight")
	assert.True(t, tensor.IsArgumentError(err))
}

func TestWriterErrors(t *testing.T) {
	backend := cpu.New()
	x, err := tensor.FromSlice([]float32{1}, tensor.Shape{1}, backend)
	require.NoError(t, err)

	w := NewWriter()
	assert.Error(t, w.SetMetadata("sha256", "x"))
	require.NoError(t, Add(w, "x", x))
	assert.True(t, IsValidationError(Add(w, "x", x)))
	assert.True(t, IsValidationError(Add(w, "../x", x)))
	assert.True(t, IsValidationError(Add(w, "__metadata__", x)))
	assert.True(t, tensor.IsArgumentError(Add[float32](w, "nil", nil)))

	x.Release()
	assert.True(t, tensor.IsArgumentError(Add(w, "released", x)))
}

func TestChecksumMismatch(t *testing.T) {
	path := writeSample(t)
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xff
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	f, err := Open(path)
	require.NoError(t, err)
	defer f.Close()
	assert.ErrorIs(t, f.Verify(), ErrChecksumMismatch)
}

func writeRaw(t *testing.T, header string, data []byte) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint64(len(header))))
	buf.WriteString(header)
	buf.Write(data)
	path := filepath.Join(t.TempDir(), "raw.safetensors")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	return path
}

func TestOpenRejectsMalformedFiles(t *testing.T) {
	tests := []struct {
		name   string
		header string
		data   []byte
	}{
		{"overlap", `{"a":{"dtype":"F32","shape":[2],"data_offsets":[0,8]},"b":{"dtype":"F32","shape":[2],"data_offsets":[4,12]}}`, make([]byte, 12)},
		{"out of bounds", `{"a":{"dtype":"F32","shape":[4],"data_offsets":[0,16]}}`, make([]byte, 8)},
		{"size mismatch", `{"a":{"dtype":"F32","shape":[3],"data_offsets":[0,8]}}`, make([]byte, 8)},
		{"unknown dtype", `{"a":{"dtype":"C64","shape":[1],"data_offsets":[0,8]}}`, make([]byte, 8)},
		{"negative dim", `{"a":{"dtype":"U8","shape":[-1],"data_offsets":[0,0]}}`, nil},
		{"bad name", `{"a/b":{"dtype":"U8","shape":[1],"data_offsets":[0,1]}}`, make([]byte, 1)},
		{"element overflow", `{"a":{"dtype":"F32","shape":[4611686018427387904,4],"data_offsets":[0,0]}}`, nil},
		{"byte overflow", `{"a":{"dtype":"F64","shape":[2305843009213693952],"data_offsets":[0,0]}}`, nil},
		{"overflow beside zero", `{"a":{"dtype":"U8","shape":[4611686018427387904,4,0],"data_offsets":[0,0]}}`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(writeRaw(t, tt.header, tt.data))
			require.Error(t, err)
			assert.True(t, IsValidationError(err), "%+v", err)
		})
	}
}

func TestOpenTruncated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short")
	require.NoError(t, os.WriteFile(path, []byte{1, 2}, 0o600))
	_, err := Open(path)
	assert.True(t, IsValidationError(err))

	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint64(1000)))
	buf.WriteString("{}")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	_, err = Open(path)
	assert.True(t, IsValidationError(err))

	buf.Reset()
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint64(MaxHeaderSize+1)))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	_, err = Open(path)
	assert.ErrorIs(t, err, ErrHeaderTooLarge)
}

func TestFileWithoutChecksumVerifies(t *testing.T) {
	f, err := Open(writeRaw(t, `{"a":{"dtype":"I32","shape":[1],"data_offsets":[0,4]}}`, []byte{42, 0, 0, 0}))
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, f.Verify())

	a, err := Load[int32](f, "a")
	require.NoError(t, err)
	assert.Equal(t, int32(42), a.At(0))
}
