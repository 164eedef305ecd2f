// Package tensor provides the storage, tensor and view types of the expression engine.
package tensor

import (
	"fmt"
	"reflect"

	"github.com/x448/float16"
)

// Element is a constraint for the element types a Storage can hold.
type Element interface {
	~float32 | ~float64 | ~int32 | ~int64 | ~uint8 | ~bool | float16.Float16
}

// Numeric is the subset of element types that support arithmetic.
type Numeric interface {
	~float32 | ~float64 | ~int32 | ~int64 | ~uint8
}

// DataType represents runtime type information for storages.
type DataType int

// Supported data types.
const (
	Float32 DataType = iota
	Float64
	Int32
	Int64
	Uint8
	Bool
	Float16
)

// Size returns the byte size of the data type.
func (dt DataType) Size() int {
	switch dt {
	case Float32, Int32:
		return 4
	case Float64, Int64:
		return 8
	case Uint8, Bool:
		return 1
	case Float16:
		return 2
	default:
		panic(fmt.Sprintf("unknown data type %d", int(dt)))
	}
}

// String returns a human-readable name for the data type.
func (dt DataType) String() string {
	switch dt {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Uint8:
		return "uint8"
	case Bool:
		return "bool"
	case Float16:
		return "float16"
	default:
		return "unknown"
	}
}

// DataTypeOf returns the DataType matching the element type T.
// Named types are resolved through their underlying kind.
func DataTypeOf[T Element]() DataType {
	switch reflect.TypeFor[T]().Kind() {
	case reflect.Float32:
		return Float32
	case reflect.Float64:
		return Float64
	case reflect.Int32:
		return Int32
	case reflect.Int64:
		return Int64
	case reflect.Uint8:
		return Uint8
	case reflect.Bool:
		return Bool
	case reflect.Uint16:
		return Float16
	default:
		panic(fmt.Sprintf("unsupported element type %s", reflect.TypeFor[T]()))
	}
}
