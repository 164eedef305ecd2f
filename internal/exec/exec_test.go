package exec

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/tensorexpr/internal/expr"
	"github.com/born-ml/tensorexpr/internal/kernels"
	"github.com/born-ml/tensorexpr/internal/parallel"
	"github.com/born-ml/tensorexpr/internal/tensor"
)

func mustTensor[T tensor.Element](t *testing.T, data []T, shape tensor.Shape) *tensor.Tensor[T] {
	t.Helper()
	out, err := tensor.FromSlice(data, shape, expr.DefaultBackend())
	require.NoError(t, err)
	t.Cleanup(out.Release)
	return out
}

func zeros[T tensor.Element](t *testing.T, shape tensor.Shape) *tensor.Tensor[T] {
	t.Helper()
	out, err := tensor.Allocate[T](shape, expr.DefaultBackend())
	require.NoError(t, err)
	t.Cleanup(out.Release)
	return out
}

// manyWorkers forces chunking even on small tensors.
var manyWorkers = parallel.Config{Enabled: true, NumWorkers: 4, MinChunkSize: 1}

func TestBroadcastAddScenario(t *testing.T) {
	a := mustTensor(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	b := mustTensor(t, []float32{7, 8, 9}, tensor.Shape{3})
	dst := zeros[float32](t, tensor.Shape{2, 3})

	sum := expr.Must(expr.Add[float32](expr.Of(a), expr.Of(b)))
	x, err := Build(dst.View(), expr.Operator[float32](sum))
	require.NoError(t, err)

	for name, cfg := range map[string]parallel.Config{
		"sequential": parallel.Sequential(),
		"parallel":   manyWorkers,
	} {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, New(WithConfig(cfg)).Run(context.Background(), x))
			assert.Equal(t, []float32{8, 10, 12, 11, 13, 15}, dst.Values())
		})
	}
}

func TestIdentityTimesFive(t *testing.T) {
	dst := zeros[float64](t, tensor.Shape{4, 4})
	id := expr.Must(expr.Identity[float64](tensor.Shape{4, 4}))
	five := expr.Scalar[float64](5)
	prod := expr.Must(expr.Mul[float64](id, five))

	x, err := Build(dst.View(), expr.Operator[float64](prod))
	require.NoError(t, err)
	require.NoError(t, New(WithConfig(manyWorkers)).Run(context.Background(), x))
	assert.Equal(t, 5.0, dst.At(0, 0))
	assert.Equal(t, 0.0, dst.At(0, 1))
	for i := range 4 {
		for j := range 4 {
			want := 0.0
			if i == j {
				want = 5
			}
			assert.Equal(t, want, dst.At(i, j), "(%d,%d)", i, j)
		}
	}
}

func TestBuildShapeMismatch(t *testing.T) {
	a := mustTensor(t, []float32{1, 2, 3}, tensor.Shape{3})
	tests := []struct {
		name  string
		shape tensor.Shape
		dim   int
	}{
		{"rank", tensor.Shape{1, 3}, -1},
		{"extent", tensor.Shape{4}, 0},
		{"scalar", tensor.Shape{}, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := zeros[float32](t, tt.shape)
			_, err := Build(dst.View(), expr.Operator[float32](expr.Of(a)))
			require.Error(t, err)
			var se *tensor.ShapeError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.dim, se.Dim)
			assert.Equal(t, "build", se.Op)
		})
	}

	_, err := Build[float32](nil, expr.Of(a))
	assert.True(t, tensor.IsArgumentError(err))
}

func TestBuildHasNoSideEffects(t *testing.T) {
	var calls atomic.Int32
	gen := expr.Must(expr.Func[int32](tensor.Shape{4}, func(idx []int) int32 {
		calls.Add(1)
		return int32(idx[0])
	}))
	dst := zeros[int32](t, tensor.Shape{4})

	x, err := Build(dst.View(), expr.Operator[int32](gen))
	require.NoError(t, err)
	assert.Zero(t, calls.Load())
	assert.Equal(t, []int32{0, 0, 0, 0}, dst.Values())

	require.NoError(t, x.Execute(context.Background(), manyWorkers))
	assert.Equal(t, int32(4), calls.Load(), "each destination element is evaluated once")
	assert.Equal(t, []int32{0, 1, 2, 3}, dst.Values())
}

func TestExecuteIntoSlicedView(t *testing.T) {
	dst := zeros[int64](t, tensor.Shape{3, 4})
	inner, err := dst.View().Slice([]int{1, 1}, []int{2, 2})
	require.NoError(t, err)

	ones := expr.Must(expr.Ones[int64](tensor.Shape{2, 2}))
	x, err := Build(inner, expr.Operator[int64](ones))
	require.NoError(t, err)
	require.NoError(t, x.Execute(context.Background(), parallel.Sequential()))

	assert.Equal(t, []int64{
		0, 0, 0, 0,
		0, 1, 1, 0,
		0, 1, 1, 0,
	}, dst.Values())
}

func TestExecuteEmpty(t *testing.T) {
	dst := zeros[float32](t, tensor.Shape{0, 3})
	a := mustTensor(t, []float32{}, tensor.Shape{0, 1})
	b := mustTensor(t, []float32{1, 2, 3}, tensor.Shape{3})
	sum := expr.Must(expr.Add[float32](expr.Of(a), expr.Of(b)))

	x, err := Build(dst.View(), expr.Operator[float32](sum))
	require.NoError(t, err)
	assert.NoError(t, x.Execute(context.Background(), manyWorkers))
}

func TestExecuteScalar(t *testing.T) {
	dst := zeros[float64](t, tensor.Shape{})
	x, err := Build(dst.View(), expr.Operator[float64](expr.Scalar[float64](2.5)))
	require.NoError(t, err)
	require.NoError(t, x.Execute(context.Background(), manyWorkers))
	assert.Equal(t, 2.5, dst.At())
}

func TestExecuteReleasedStorage(t *testing.T) {
	a, err := tensor.FromSlice([]float32{1, 2}, tensor.Shape{2}, expr.DefaultBackend())
	require.NoError(t, err)
	dst := zeros[float32](t, tensor.Shape{2})

	x, err := Build(dst.View(), expr.Operator[float32](expr.Of(a)))
	require.NoError(t, err)
	a.Release()

	err = x.Execute(context.Background(), parallel.Sequential())
	assert.True(t, tensor.IsArgumentError(err))

	gone, err := tensor.Allocate[float32](tensor.Shape{2}, expr.DefaultBackend())
	require.NoError(t, err)
	y, err := Build(gone.View(), expr.Operator[float32](expr.Must(expr.Zeros[float32](tensor.Shape{2}))))
	require.NoError(t, err)
	gone.Release()
	assert.True(t, tensor.IsArgumentError(y.Execute(context.Background(), parallel.Sequential())))
}

func TestExecuteRecoversPanics(t *testing.T) {
	gen := expr.Must(expr.Func[float32](tensor.Shape{8}, func(idx []int) float32 {
		if idx[0] == 5 {
			panic("bad element")
		}
		return 1
	}))
	dst := zeros[float32](t, tensor.Shape{8})
	x, err := Build(dst.View(), expr.Operator[float32](gen))
	require.NoError(t, err)

	err = x.Execute(context.Background(), manyWorkers)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad element")
}

func TestExecuteRunsKernelsFirst(t *testing.T) {
	var runs atomic.Int32
	src := mustTensor(t, []float64{1, 2, 3}, tensor.Shape{3})
	k, err := expr.Kernel[float64](&expr.FuncRoutine[float64]{
		RoutineName: "square",
		OutputShape: tensor.Shape{3},
		InputNodes:  []expr.Node{expr.Of(src)},
		Fn: func(_ context.Context, out *tensor.View[float64]) error {
			runs.Add(1)
			for i, v := range src.Values() {
				out.Put([]int{i}, v*v)
			}
			return nil
		},
	}, nil)
	require.NoError(t, err)
	defer k.Release()

	one := expr.Scalar[float64](1)
	plus := expr.Must(expr.Add[float64](k, one))
	dst := zeros[float64](t, tensor.Shape{3})
	x, err := Build(dst.View(), expr.Operator[float64](plus))
	require.NoError(t, err)

	require.NoError(t, x.Execute(context.Background(), manyWorkers))
	assert.Equal(t, []float64{2, 5, 10}, dst.Values())
	assert.Equal(t, int32(1), runs.Load())
}

func TestKernelRunsOnceUntilResubmitted(t *testing.T) {
	var runs atomic.Int32
	k, err := expr.Kernel[float64](&expr.FuncRoutine[float64]{
		RoutineName: "count",
		OutputShape: tensor.Shape{2},
		Fn: func(_ context.Context, out *tensor.View[float64]) error {
			n := float64(runs.Add(1))
			out.Put([]int{0}, n)
			out.Put([]int{1}, -n)
			return nil
		},
	}, nil)
	require.NoError(t, err)
	defer k.Release()

	dst := zeros[float64](t, tensor.Shape{2})
	x, err := Build(dst.View(), expr.Operator[float64](expr.Scale[float64](k, 10)))
	require.NoError(t, err)

	e := New(WithConfig(manyWorkers))
	for range 3 {
		require.NoError(t, e.Run(context.Background(), x))
	}
	assert.Equal(t, int32(1), runs.Load())
	assert.Equal(t, []float64{10, -10}, dst.Values())

	require.NoError(t, e.SubmitKernel(nil, k).Wait(context.Background()))
	require.NoError(t, e.Run(context.Background(), x))
	assert.Equal(t, int32(2), runs.Load())
	assert.Equal(t, []float64{20, -20}, dst.Values())
}

func TestSubmitKernelRunsInputKernels(t *testing.T) {
	a := mustTensor(t, []float64{1, 2, 3, 4}, tensor.Shape{2, 2})
	square := expr.Must(kernels.MatMul(expr.Of(a), expr.Of(a)))
	defer square.Release()
	cube := expr.Must(kernels.MatMul(square, expr.Of(a)))
	defer cube.Release()

	require.NoError(t, New().SubmitKernel(nil, cube).Wait(context.Background()))
	assert.Equal(t, []float64{37, 54, 81, 118}, cube.Output().Values())
	assert.Equal(t, []float64{7, 10, 15, 22}, square.Output().Values())
}

func TestSharedKernelsAcrossStreams(t *testing.T) {
	a := mustTensor(t, []float64{1, 2, 3, 4}, tensor.Shape{2, 2})
	b := mustTensor(t, []float64{2, 0, 1, 2}, tensor.Shape{2, 2})
	prod := expr.Must(kernels.MatMul(expr.Of(a), expr.Of(b)))
	defer prod.Release()
	cube := expr.Must(kernels.MatMul(prod, expr.Of(a)))
	defer cube.Release()

	// prod = [4 4; 10 8], cube = prod·a = [16 24; 34 52]
	ten := expr.Scalar[float64](10)
	big := expr.Must(expr.Greater[float64](prod, ten))
	picked := expr.Must(expr.Where[float64](big, cube, expr.Neg[float64](prod)))
	sum := expr.Must(expr.Add[float64](prod, cube))
	want := map[string][]float64{
		"picked": {-4, -4, -10, -8},
		"sum":    {20, 28, 44, 60},
	}

	s1, s2 := NewStream(), NewStream()
	defer s1.Close()
	defer s2.Close()
	e := New(WithConfig(manyWorkers))

	type result struct {
		name string
		dst  *tensor.Tensor[float64]
	}
	var results []result
	for i := range 16 {
		q := Queue(s1)
		if i%2 == 1 {
			q = s2
		}
		name, root := "picked", expr.Operator[float64](picked)
		if i%4 >= 2 {
			name, root = "sum", expr.Operator[float64](sum)
		}
		dst := zeros[float64](t, tensor.Shape{2, 2})
		x, err := Build(dst.View(), root)
		require.NoError(t, err)
		results = append(results, result{name: name, dst: dst})
		e.SubmitOn(q, x)
		if i%5 == 0 {
			e.SubmitKernel(q, prod)
			e.SubmitKernel(q, cube)
		}
	}
	require.NoError(t, s1.Synchronize(context.Background()))
	require.NoError(t, s2.Synchronize(context.Background()))

	for i, r := range results {
		assert.Equal(t, want[r.name], r.dst.Values(), "expression %d (%s)", i, r.name)
	}
	assert.Equal(t, []float64{16, 24, 34, 52}, cube.Output().Values())
}

func TestExecuteKernelFailure(t *testing.T) {
	k, err := expr.Kernel[float32](&expr.FuncRoutine[float32]{
		RoutineName: "broken",
		OutputShape: tensor.Shape{2},
		Fn: func(context.Context, *tensor.View[float32]) error {
			return errors.New("device lost")
		},
	}, nil)
	require.NoError(t, err)
	defer k.Release()

	dst := zeros[float32](t, tensor.Shape{2})
	x, err := Build(dst.View(), expr.Operator[float32](k))
	require.NoError(t, err)

	ev := New().Submit(x)
	err = ev.Wait(context.Background())
	require.Error(t, err)
	assert.True(t, tensor.IsSynchronizationError(err))
	assert.Contains(t, err.Error(), "device lost")
}

func TestEval(t *testing.T) {
	r := expr.Must(expr.Range[int32](tensor.Shape{2, 3}, 1, 10, 5))
	out, err := Eval[int32](context.Background(), r, nil, manyWorkers)
	require.NoError(t, err)
	defer out.Release()
	assert.Equal(t, []int32{10, 15, 20, 10, 15, 20}, out.Values())

	_, err = Eval[int32](context.Background(), nil, nil, manyWorkers)
	assert.True(t, tensor.IsArgumentError(err))
}

func TestExpressionName(t *testing.T) {
	dst := zeros[float32](t, tensor.Shape{2})
	x, err := Build(dst.View(), expr.Operator[float32](expr.Must(expr.Zeros[float32](tensor.Shape{2}))))
	require.NoError(t, err)
	assert.Equal(t, "assign zeros", x.Name())
	assert.Equal(t, "reset", x.Named("reset").Name())
	assert.Same(t, dst.Storage(), x.Destination().Storage())
}

// fill returns an expression writing value to every element of v.
func fill(t *testing.T, v *tensor.View[float32], value float32) *Expression[float32] {
	t.Helper()
	x, err := Build(v, expr.Operator[float32](expr.Must(expr.Full[float32](v.Shape(), value))))
	require.NoError(t, err)
	return x
}

func TestDisjointWritesOnOneQueue(t *testing.T) {
	for _, order := range [][2]int{{0, 1}, {1, 0}} {
		dst := zeros[float32](t, tensor.Shape{2, 2})
		top, err := dst.View().Slice([]int{0, 0}, []int{1, 2})
		require.NoError(t, err)
		bottom, err := dst.View().Slice([]int{1, 0}, []int{1, 2})
		require.NoError(t, err)
		xs := []*Expression[float32]{fill(t, top, 1), fill(t, bottom, 2)}

		e := New(WithStream())
		e.Submit(xs[order[0]])
		e.Submit(xs[order[1]])
		require.NoError(t, e.Synchronize(context.Background()))
		e.Close()

		assert.Equal(t, []float32{1, 1, 2, 2}, dst.Values(), "order %v", order)
	}
}

func TestStreamRunsInOrder(t *testing.T) {
	s := NewStream()
	defer s.Close()

	var mu sync.Mutex
	var got []int
	for i := range 50 {
		s.Enqueue("append", func(context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			got = append(got, i)
			return nil
		})
	}
	require.NoError(t, s.Synchronize(context.Background()))

	want := make([]int, 50)
	for i := range want {
		want[i] = i
	}
	assert.Equal(t, want, got)
}

func TestStreamEnqueueDoesNotBlock(t *testing.T) {
	s := NewStream()
	defer s.Close()

	release := make(chan struct{})
	first := s.Enqueue("blocked", func(context.Context) error {
		<-release
		return nil
	})
	second := s.Enqueue("after", func(context.Context) error { return nil })

	assert.Nil(t, first.Err())
	select {
	case <-second.Done():
		t.Fatal("second item ran before the first finished")
	default:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := s.Synchronize(ctx)
	assert.True(t, tensor.IsSynchronizationError(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	require.NoError(t, second.Wait(context.Background()))
	require.NoError(t, s.Synchronize(context.Background()))
}

func TestSynchronizeReportsFirstFailure(t *testing.T) {
	for name, q := range map[string]Queue{
		"immediate": NewImmediate(),
		"stream":    NewStream(),
	} {
		t.Run(name, func(t *testing.T) {
			if s, ok := q.(*Stream); ok {
				defer s.Close()
			}
			q.Enqueue("ok", func(context.Context) error { return nil })
			q.Enqueue("first", func(context.Context) error { return errors.New("boom") })
			q.Enqueue("second", func(context.Context) error { return errors.New("bang") })

			err := q.Synchronize(context.Background())
			require.Error(t, err)
			var se *tensor.SynchronizationError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, "first", se.Work)
			assert.Equal(t, q.ID(), se.Queue)

			// Failures are reported once.
			assert.NoError(t, q.Synchronize(context.Background()))
		})
	}
}

func TestWorkPanicBecomesError(t *testing.T) {
	q := NewImmediate()
	ev := q.Enqueue("panics", func(context.Context) error { panic("oops") })
	err := ev.Wait(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oops")
}

func TestStreamWaitFor(t *testing.T) {
	producer := NewStream()
	consumer := NewStream()
	defer producer.Close()
	defer consumer.Close()

	release := make(chan struct{})
	var produced atomic.Bool
	ev := producer.Enqueue("produce", func(context.Context) error {
		<-release
		produced.Store(true)
		return nil
	})

	consumer.WaitFor(ev)
	var sawProduced atomic.Bool
	done := consumer.Enqueue("consume", func(context.Context) error {
		sawProduced.Store(produced.Load())
		return nil
	})

	close(release)
	require.NoError(t, done.Wait(context.Background()))
	assert.True(t, sawProduced.Load())

	failed := producer.Enqueue("fail", func(context.Context) error { return errors.New("no data") })
	barrier := consumer.WaitFor(failed)
	err := barrier.Wait(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no data")
}

func TestStreamClose(t *testing.T) {
	s := NewStream()
	var ran atomic.Bool
	s.Enqueue("last", func(context.Context) error {
		time.Sleep(5 * time.Millisecond)
		ran.Store(true)
		return nil
	})
	s.Close()
	assert.True(t, ran.Load(), "queued work finishes before Close returns")
	s.Close()

	ev := s.Enqueue("late", func(context.Context) error { return nil })
	assert.True(t, tensor.IsSynchronizationError(ev.Wait(context.Background())))

	err := s.Synchronize(context.Background())
	require.Error(t, err, "a rejected enqueue is reported by Synchronize")
	assert.True(t, tensor.IsSynchronizationError(err))
	assert.Contains(t, err.Error(), "late")
	assert.NoError(t, s.Synchronize(context.Background()))
}

func TestStreamIDsAreUnique(t *testing.T) {
	a, b := NewStream(), NewStream()
	defer a.Close()
	defer b.Close()
	assert.NotEqual(t, a.ID(), b.ID())
	assert.Contains(t, a.ID(), "stream-")
}

func TestSubmitKernel(t *testing.T) {
	seq := []float32{3, 1, 2}
	k, err := expr.Kernel[float32](&expr.FuncRoutine[float32]{
		RoutineName: "load",
		OutputShape: tensor.Shape{3},
		Fn: func(_ context.Context, out *tensor.View[float32]) error {
			for i, v := range seq {
				out.Put([]int{i}, v)
			}
			return nil
		},
	}, nil)
	require.NoError(t, err)
	defer k.Release()

	e := New(WithStream())
	defer e.Close()
	require.NoError(t, e.SubmitKernel(nil, k).Wait(context.Background()))
	assert.Equal(t, seq, k.Output().Values())
}

func TestExecutorOptions(t *testing.T) {
	q := NewImmediate()
	e := New(WithQueue(q), WithConfig(parallel.Sequential()))
	assert.Same(t, q, e.Queue())
	assert.Equal(t, 1, e.Config().NumWorkers)
	e.Close()

	dst := zeros[float32](t, tensor.Shape{2})
	other := NewStream()
	defer other.Close()
	ev := e.SubmitOn(other, fill(t, dst.View(), 7))
	assert.Equal(t, other.ID(), ev.Queue())
	require.NoError(t, ev.Wait(context.Background()))
	assert.Equal(t, []float32{7, 7}, dst.Values())
}
