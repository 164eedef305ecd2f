// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package expr_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/tensorexpr/expr"
	"github.com/born-ml/tensorexpr/tensor"
)

func TestOperatorAlgebra(t *testing.T) {
	a, err := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, expr.DefaultBackend())
	require.NoError(t, err)
	defer a.Release()

	r := expr.Must(expr.Range[float32](tensor.Shape{3}, 0, 10, 10))
	sum := expr.Must(expr.Add[float32](expr.Of(a), r))
	assert.Equal(t, tensor.Shape{2, 3}, sum.Shape())
	assert.Equal(t, float32(36), sum.At([]int{1, 2}))

	big := expr.Must(expr.Greater[float32](sum, expr.Scalar[float32](20)))
	clipped := expr.Must(expr.Where[float32](big, expr.Scalar[float32](20), sum))
	assert.Equal(t, float32(20), clipped.At([]int{1, 2}))
	assert.Equal(t, float32(11), clipped.At([]int{0, 0}))
	assert.Equal(t, expr.KindConditional, clipped.Kind())

	_, err = expr.Add[float32](expr.Of(a), expr.Must(expr.Zeros[float32](tensor.Shape{4})))
	assert.True(t, tensor.IsShapeError(err))

	var names []string
	require.NoError(t, expr.Walk(clipped, func(n expr.Node) error {
		names = append(names, n.Name())
		return nil
	}))
	assert.Equal(t, "where", names[len(names)-1])
}
