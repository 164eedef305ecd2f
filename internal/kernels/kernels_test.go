package kernels

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/tensorexpr/internal/expr"
	"github.com/born-ml/tensorexpr/internal/tensor"
)

func leaf(t *testing.T, shape tensor.Shape, data ...float64) expr.Operator[float64] {
	t.Helper()
	w, err := tensor.Wrap(data, shape, nil)
	require.NoError(t, err)
	return expr.Of(w)
}

func run(t *testing.T, k *expr.KernelOp[float64]) []float64 {
	t.Helper()
	require.NoError(t, k.Run(context.Background()))
	return k.Output().Values()
}

func TestMatMul(t *testing.T) {
	a := leaf(t, tensor.Shape{2, 3}, 1, 2, 3, 4, 5, 6)
	b := leaf(t, tensor.Shape{3, 2}, 7, 8, 9, 10, 11, 12)

	k, err := MatMul(a, b)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 2}, k.Shape())
	assert.Equal(t, []float64{58, 64, 139, 154}, run(t, k))

	_, err = MatMul(a, a)
	var se *tensor.ShapeError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 3, se.A)
	assert.Equal(t, 2, se.B)

	_, err = MatMul(leaf(t, tensor.Shape{3}, 1, 2, 3), b)
	assert.True(t, tensor.IsShapeError(err))
}

func TestMatMulIdentity(t *testing.T) {
	// identity(3x3) × 5 (as a [3,1] column of fives) gives a column of fives.
	id := expr.Must(expr.Identity[float64](tensor.Shape{3, 3}))
	fives := expr.Must(expr.Full(tensor.Shape{3, 1}, 5.0))
	k, err := MatMul(id, fives)
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 5, 5}, run(t, k))
}

func TestMatMulInputsAreLazy(t *testing.T) {
	a := leaf(t, tensor.Shape{2, 2}, 1, 2, 3, 4)
	doubled := expr.Scale(a, 2)
	k, err := MatMul(doubled, expr.Must(expr.Identity[float64](tensor.Shape{2, 2})))
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 4, 6, 8}, run(t, k))
	assert.Len(t, k.Children(), 2)
}

func TestSolve(t *testing.T) {
	a := leaf(t, tensor.Shape{2, 2}, 3, 1, 1, 2)
	b := leaf(t, tensor.Shape{2, 1}, 9, 8)

	k, err := Solve(a, b)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{2, 3}, run(t, k), 1e-12)

	singular := leaf(t, tensor.Shape{2, 2}, 1, 2, 2, 4)
	k, err = Solve(singular, b)
	require.NoError(t, err, "singularity is only known when running")
	assert.Error(t, k.Run(context.Background()))

	_, err = Solve(leaf(t, tensor.Shape{2, 3}, 1, 2, 3, 4, 5, 6), b)
	assert.True(t, tensor.IsShapeError(err))
	_, err = Solve(a, leaf(t, tensor.Shape{3, 1}, 1, 2, 3))
	assert.True(t, tensor.IsShapeError(err))
}

func TestSVD(t *testing.T) {
	a := leaf(t, tensor.Shape{2, 3}, 3, 0, 0, 0, 4, 0)
	k, err := SVD(a)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2}, k.Shape())
	assert.InDeltaSlice(t, []float64{4, 3}, run(t, k), 1e-12)

	_, err = SVD(leaf(t, tensor.Shape{0, 3}))
	assert.True(t, tensor.IsArgumentError(err))
}

func TestEigenSym(t *testing.T) {
	a := leaf(t, tensor.Shape{2, 2}, 2, 1, 1, 2)
	k, err := EigenSym(a)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1, 3}, run(t, k), 1e-12)

	k, err = EigenSym(leaf(t, tensor.Shape{2, 2}, 2, 1, 0, 2))
	require.NoError(t, err)
	assert.True(t, tensor.IsArgumentError(k.Run(context.Background())))

	_, err = EigenSym(leaf(t, tensor.Shape{2, 3}, 1, 2, 3, 4, 5, 6))
	assert.True(t, tensor.IsShapeError(err))
}

func TestFFT(t *testing.T) {
	x := leaf(t, tensor.Shape{4}, 1, 0, -1, 0)
	k, err := FFT(x)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{3, 2}, k.Shape())
	// cos(πn/2): all energy in bin 1.
	assert.InDeltaSlice(t, []float64{0, 0, 2, 0, 0, 0}, run(t, k), 1e-12)

	_, err = FFT(leaf(t, tensor.Shape{2, 2}, 1, 2, 3, 4))
	assert.True(t, tensor.IsShapeError(err))
}

func TestCumSum(t *testing.T) {
	x := leaf(t, tensor.Shape{2, 3}, 1, 2, 3, 4, 5, 6)
	k, err := CumSum(x)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 3, 6, 4, 9, 15}, run(t, k))

	empty, err := CumSum(leaf(t, tensor.Shape{2, 0}))
	require.NoError(t, err)
	assert.Empty(t, run(t, empty))

	_, err = CumSum(expr.Scalar(1.0))
	assert.True(t, tensor.IsShapeError(err))
}

func TestConvolve(t *testing.T) {
	x := leaf(t, tensor.Shape{3}, 1, 2, 3)
	kern := leaf(t, tensor.Shape{2}, 0, 1)
	k, err := Convolve(x, kern)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{4}, k.Shape())
	assert.InDeltaSlice(t, []float64{0, 1, 2, 3}, run(t, k), 1e-12)

	box := leaf(t, tensor.Shape{3}, 1, 1, 1)
	k, err = Convolve(box, box)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1, 2, 3, 2, 1}, run(t, k), 1e-12)
}

func TestKernelsCompose(t *testing.T) {
	// (A·B) + 1, with the product running as a kernel before the elementwise pass.
	a := leaf(t, tensor.Shape{2, 2}, 1, 0, 0, 1)
	b := leaf(t, tensor.Shape{2, 2}, 1, 2, 3, 4)
	prod, err := MatMul(a, b, WithBackend(tensor.NewMockBackend()))
	require.NoError(t, err)
	sum := expr.Must(expr.Add[float64](prod, expr.Scalar(1.0)))

	for _, r := range expr.Kernels(sum) {
		require.NoError(t, r.Run(context.Background()))
	}
	eval := sum.Evaluator()
	var got []float64
	for _, idx := range sum.Shape().Iter() {
		got = append(got, eval(idx))
	}
	assert.Equal(t, []float64{2, 3, 4, 5}, got)
	assert.False(t, math.IsNaN(got[0]))
}
