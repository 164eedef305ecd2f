package serialization

import (
	"github.com/born-ml/tensorexpr/internal/tensor"
)

// Format constants.
const (
	Alignment     = 64 // data section alignment
	headerLenSize = 8
	metadataKey   = "__metadata__"
	checksumKey   = "sha256"
)

// Entry describes one stored tensor. DataOffsets are relative to the start of the data section.
type Entry struct {
	DType       string   `json:"dtype"`
	Shape       []int64  `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"`
}

// Size returns the byte length of the entry's data.
func (e Entry) Size() int64 { return e.DataOffsets[1] - e.DataOffsets[0] }

// TensorShape returns the entry's shape.
func (e Entry) TensorShape() tensor.Shape {
	s := make(tensor.Shape, len(e.Shape))
	for i, d := range e.Shape {
		s[i] = int(d)
	}
	return s
}

// DataType returns the entry's element type.
func (e Entry) DataType() (tensor.DataType, bool) {
	return parseDType(e.DType)
}

// dtypeName converts a DataType to its SafeTensors name.
func dtypeName(dt tensor.DataType) string {
	switch dt {
	case tensor.Float32:
		return "F32"
	case tensor.Float64:
		return "F64"
	case tensor.Float16:
		return "F16"
	case tensor.Int32:
		return "I32"
	case tensor.Int64:
		return "I64"
	case tensor.Uint8:
		return "U8"
	case tensor.Bool:
		return "BOOL"
	default:
		return "unknown"
	}
}

// parseDType converts a SafeTensors dtype name to a DataType.
func parseDType(s string) (tensor.DataType, bool) {
	switch s {
	case "F32":
		return tensor.Float32, true
	case "F64":
		return tensor.Float64, true
	case "F16":
		return tensor.Float16, true
	case "I32":
		return tensor.Int32, true
	case "I64":
		return tensor.Int64, true
	case "U8":
		return tensor.Uint8, true
	case "BOOL":
		return tensor.Bool, true
	default:
		return 0, false
	}
}

func alignUp(n, a int) int { return (n + a - 1) / a * a }
