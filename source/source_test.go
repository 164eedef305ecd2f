// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package source_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/tensorexpr/exec"
	"github.com/born-ml/tensorexpr/expr"
	"github.com/born-ml/tensorexpr/source"
	"github.com/born-ml/tensorexpr/tensor"
)

func TestSampledExpressionAdvances(t *testing.T) {
	seq, err := source.NewSequence([]int64{1, 2, 3, 4}, true)
	require.NoError(t, err)
	s, err := expr.Sample[int64](tensor.Shape{2}, seq, nil)
	require.NoError(t, err)
	defer s.Release()

	doubled := expr.Scale[int64](s, 2)
	first, err := exec.Eval[int64](context.Background(), doubled, nil, exec.Sequential())
	require.NoError(t, err)
	defer first.Release()
	again, err := exec.Eval[int64](context.Background(), doubled, nil, exec.Sequential())
	require.NoError(t, err)
	defer again.Release()

	require.NoError(t, s.Run(context.Background()))
	second, err := exec.Eval[int64](context.Background(), doubled, nil, exec.Sequential())
	require.NoError(t, err)
	defer second.Release()

	assert.Equal(t, []int64{2, 4}, first.Values())
	assert.Equal(t, []int64{2, 4}, again.Values(), "reading a sample does not advance it")
	assert.Equal(t, []int64{6, 8}, second.Values())
}
