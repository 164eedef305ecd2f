// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package source provides ordered value streams for expr.Sample: seeded random draws,
// token ids and fixed sequences.
//
// Example:
//
//	noise, _ := source.NewNormal[float32](0, 1, 42)
//	x := expr.Must(expr.Sample[float32](tensor.Shape{4, 4}, noise, nil))
package source

import (
	"golang.org/x/exp/constraints"

	"github.com/born-ml/tensorexpr/internal/source"
	"github.com/born-ml/tensorexpr/tensor"
)

// Source produces an ordered stream of values.
type Source[T tensor.Element] = source.Source[T]

// Streams.
type (
	Normal[T constraints.Float]  = source.Normal[T]
	Uniform[T constraints.Float] = source.Uniform[T]
	Sequence[T tensor.Element]   = source.Sequence[T]
	Tokens[T source.TokenID]     = source.Tokens[T]
)

// TokenID is the set of element types token streams can produce.
type TokenID = source.TokenID

// EncodingCL100kBase is the default token encoding.
const EncodingCL100kBase = source.EncodingCL100kBase

// NewNormal returns a seeded normal stream.
func NewNormal[T constraints.Float](mean, stddev float64, seed uint64) (*Normal[T], error) {
	return source.NewNormal[T](mean, stddev, seed)
}

// NewUniform returns a seeded uniform stream over [lo, hi).
func NewUniform[T constraints.Float](lo, hi float64, seed uint64) (*Uniform[T], error) {
	return source.NewUniform[T](lo, hi, seed)
}

// NewSequence returns a stream over a copy of values.
func NewSequence[T tensor.Element](values []T, cycle bool) (*Sequence[T], error) {
	return source.NewSequence(values, cycle)
}

// NewTokens encodes text with a tiktoken encoding.
func NewTokens[T TokenID](encoding, text string) (*Tokens[T], error) {
	return source.NewTokens[T](encoding, text)
}
