package serialization

import (
	"math"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Validation limits.
const (
	MaxHeaderSize    = 100 * 1024 * 1024
	MaxTensorCount   = 100_000
	MaxTensorNameLen = 4096
)

// ValidateName rejects empty, oversized and reserved tensor names, and names carrying
// path separators, ".." or NUL bytes.
func ValidateName(name string) error {
	switch {
	case name == "":
		return invalid("invalid_name", name, "empty name")
	case name == metadataKey:
		return invalid("invalid_name", name, "reserved name")
	case len(name) > MaxTensorNameLen:
		return invalid("name_too_long", name, "length %d > max %d", len(name), MaxTensorNameLen)
	case strings.Contains(name, ".."):
		return invalid("invalid_name", name, "contains '..'")
	case strings.ContainsAny(name, "/\\"):
		return invalid("invalid_name", name, "contains a path separator")
	case strings.Contains(name, "\x00"):
		return invalid("invalid_name", name, "contains a null byte")
	}
	return nil
}

// ValidateEntry checks that an entry has a known dtype, a non-negative shape whose byte size
// fits in an int, and a data range matching the shape.
func ValidateEntry(name string, e Entry) error {
	dt, ok := e.DataType()
	if !ok {
		return invalid("unknown_dtype", name, "dtype %q", e.DType)
	}
	limit := int64(math.MaxInt) / int64(dt.Size())
	n, nonzero := int64(1), int64(1)
	for _, d := range e.Shape {
		if d < 0 {
			return invalid("invalid_shape", name, "negative dimension in %v", e.Shape)
		}
		if d == 0 {
			n = 0
			continue
		}
		if nonzero > limit/d {
			return invalid("invalid_shape", name, "shape %v of %s is too large", e.Shape, dt)
		}
		nonzero *= d
		n *= d
	}
	if e.DataOffsets[0] < 0 || e.DataOffsets[1] < e.DataOffsets[0] {
		return invalid("negative_offset", name, "data offsets %v", e.DataOffsets)
	}
	if want := n * int64(dt.Size()); e.Size() != want {
		return invalid("size_mismatch", name, "shape %v of %s needs %d bytes, entry has %d", e.Shape, dt, want, e.Size())
	}
	return nil
}

// ValidateOffsets checks that entries lie inside a data section of dataSize bytes and do not
// overlap.
func ValidateOffsets(entries map[string]Entry, dataSize int64) error {
	if len(entries) > MaxTensorCount {
		return invalid("too_many_tensors", "", "got %d, max %d", len(entries), MaxTensorCount)
	}
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := entries[names[i]].DataOffsets[0], entries[names[j]].DataOffsets[0]
		if a != b {
			return a < b
		}
		return names[i] < names[j]
	})

	var prev string
	var prevEnd int64
	for _, name := range names {
		e := entries[name]
		if e.DataOffsets[1] > dataSize {
			return invalid("out_of_bounds", name, "end %d > data size %d", e.DataOffsets[1], dataSize)
		}
		if e.Size() == 0 {
			continue
		}
		if prev != "" && e.DataOffsets[0] < prevEnd {
			return errors.WithStack(&ValidationError{
				Type:    "offset_overlap",
				Tensor:  prev,
				Tensor2: name,
				Details: "data ranges overlap",
			})
		}
		prev, prevEnd = name, e.DataOffsets[1]
	}
	return nil
}
