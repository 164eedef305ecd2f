// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package serialization saves named tensors to SafeTensors files and maps them back.
//
// Example:
//
//	w := serialization.NewWriter()
//	_ = serialization.Add(w, "weight", weight)
//	_ = w.WriteFile("model.safetensors")
//
//	f, _ := serialization.Open("model.safetensors")
//	defer f.Close()
//	weight, _ := serialization.Load[float32](f, "weight")
package serialization

import (
	"github.com/born-ml/tensorexpr/internal/serialization"
	"github.com/born-ml/tensorexpr/tensor"
)

// Types.
type (
	Writer          = serialization.Writer
	File            = serialization.File
	Entry           = serialization.Entry
	ValidationError = serialization.ValidationError
)

// Errors.
var (
	ErrChecksumMismatch = serialization.ErrChecksumMismatch
	ErrHeaderTooLarge   = serialization.ErrHeaderTooLarge
	ErrUnknownTensor    = serialization.ErrUnknownTensor
	ErrClosed           = serialization.ErrClosed
)

// Alignment is the alignment of the data section within a file.
const Alignment = serialization.Alignment

// NewWriter creates an empty writer.
func NewWriter() *Writer { return serialization.NewWriter() }

// Add encodes the elements of t under name.
func Add[T tensor.Element](w *Writer, name string, t *tensor.Tensor[T]) error {
	return serialization.Add(w, name, t)
}

// AddView encodes the elements of v under name.
func AddView[T tensor.Element](w *Writer, name string, v *tensor.View[T]) error {
	return serialization.AddView(w, name, v)
}

// Open maps a SafeTensors file read-only.
func Open(path string) (*File, error) { return serialization.Open(path) }

// Load returns a read-only tensor over the mapped data of name, valid until f is closed.
func Load[T tensor.Element](f *File, name string) (*tensor.Tensor[T], error) {
	return serialization.Load[T](f, name)
}

// Read copies the data of name into a new tensor allocated from backend.
func Read[T tensor.Element](f *File, name string, backend tensor.Backend) (*tensor.Tensor[T], error) {
	return serialization.Read[T](f, name, backend)
}

// IsValidationError reports whether err is or wraps a ValidationError.
func IsValidationError(err error) bool { return serialization.IsValidationError(err) }
