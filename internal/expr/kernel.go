package expr

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/born-ml/tensorexpr/internal/backend/cpu"
	"github.com/born-ml/tensorexpr/internal/tensor"
)

// defaultBackend holds kernel outputs when no backend is given.
var defaultBackend = cpu.New()

// DefaultBackend returns the host backend used when none is given.
func DefaultBackend() tensor.Backend { return defaultBackend }

// Routine is an opaque whole-tensor computation: matrix products, decompositions, transforms,
// ordered streams. It declares its output shape up front and writes every element of out
// when run.
type Routine[T tensor.Element] interface {
	Name() string
	Shape() tensor.Shape

	// Inputs returns the operators the routine reads, so that kernels among them run first.
	Inputs() []Node

	Run(ctx context.Context, out *tensor.View[T]) error
}

// Runner is a node that needs a whole-tensor pass before expressions reading it are evaluated.
type Runner interface {
	Node

	// Run recomputes the output, after bringing the kernels it reads up to date.
	Run(ctx context.Context) error

	// Ensure runs the kernel unless it already holds an output.
	Ensure(ctx context.Context) error
}

// outputs guards the contents of every kernel output. Runs publish a result under the write
// lock; evaluation passes reading kernel outputs hold the read lock.
var outputs sync.RWMutex

// ReadOutputs ensures every kernel in ks holds an output, then read-locks kernel outputs until
// the returned function is called. Routines must not call it.
func ReadOutputs(ctx context.Context, ks []Runner) (func(), error) {
	for _, k := range ks {
		if err := k.Ensure(ctx); err != nil {
			return nil, err
		}
	}
	outputs.RLock()
	return outputs.RUnlock, nil
}

// KernelOp runs a Routine into storage it owns, and reads back from it like a leaf.
// The routine runs once, the first time an expression needs its output, and again only
// when Run is called.
type KernelOp[T tensor.Element] struct {
	routine Routine[T]
	out     *tensor.Tensor[T]
	view    *tensor.View[T]
	inputs  []Runner // kernels read by the routine, inputs first

	mu    sync.Mutex // serializes runs
	ready bool
}

// Kernel wraps routine as an operator. The output storage is allocated now from backend
// (the default host backend when nil) and filled when the kernel runs.
func Kernel[T tensor.Element](routine Routine[T], backend tensor.Backend) (*KernelOp[T], error) {
	if routine == nil {
		return nil, tensor.ArgumentErrorf("kernel", "nil routine")
	}
	if backend == nil {
		backend = defaultBackend
	}
	out, err := tensor.Allocate[T](routine.Shape(), backend)
	if err != nil {
		return nil, errors.WithMessagef(err, "kernel %s", routine.Name())
	}
	k := &KernelOp[T]{routine: routine, out: out, view: out.View()}
	seen := make(map[Runner]struct{})
	for _, in := range routine.Inputs() {
		for _, r := range Kernels(in) {
			if _, dup := seen[r]; !dup {
				seen[r] = struct{}{}
				k.inputs = append(k.inputs, r)
			}
		}
	}
	return k, nil
}

func (k *KernelOp[T]) Kind() Kind               { return KindKernel }
func (k *KernelOp[T]) Name() string             { return k.routine.Name() }
func (k *KernelOp[T]) Shape() tensor.Shape      { return k.out.Shape() }
func (k *KernelOp[T]) Children() []Node         { return k.routine.Inputs() }
func (k *KernelOp[T]) Storage() *tensor.Storage { return k.out.Storage() }
func (k *KernelOp[T]) At(idx []int) T           { return k.view.Get(idx) }
func (k *KernelOp[T]) Evaluator() EvalFunc[T]   { return k.view.Get }

// Output returns the tensor the routine writes into.
func (k *KernelOp[T]) Output() *tensor.Tensor[T] { return k.out }

// Run recomputes the output. Input kernels without an output run first.
func (k *KernelOp[T]) Run(ctx context.Context) error {
	return k.run(ctx, true)
}

// Ensure runs the kernel, input kernels first, unless it already holds an output.
func (k *KernelOp[T]) Ensure(ctx context.Context) error {
	return k.run(ctx, false)
}

func (k *KernelOp[T]) run(ctx context.Context, force bool) error {
	for _, in := range k.inputs {
		if err := in.Ensure(ctx); err != nil {
			return errors.WithMessagef(err, "kernel %s", k.routine.Name())
		}
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	if k.ready && !force {
		return nil
	}
	if k.out.Storage().Released() {
		return tensor.ArgumentErrorf("kernel", "%s: output storage was released", k.routine.Name())
	}
	klog.V(2).Infof("kernel %s: running into %v", k.routine.Name(), k.out.Shape())

	scratch, err := tensor.Wrap(make([]T, k.out.NumElements()), k.out.Shape(), nil)
	if err != nil {
		return err
	}
	outputs.RLock()
	err = k.routine.Run(ctx, scratch.View())
	outputs.RUnlock()
	if err != nil {
		return errors.WithMessagef(err, "kernel %s", k.routine.Name())
	}

	outputs.Lock()
	copy(k.out.Data(), scratch.Data())
	outputs.Unlock()
	k.ready = true
	return nil
}

// Release frees the output storage. The kernel must not be evaluated afterwards.
func (k *KernelOp[T]) Release() {
	k.out.Release()
}

// Source produces an ordered stream of values.
type Source[T tensor.Element] interface {
	// Fill writes the next len(dst) values of the stream into dst.
	Fill(dst []T) error
}

type sampleRoutine[T tensor.Element] struct {
	shape tensor.Shape
	src   Source[T]
}

func (s *sampleRoutine[T]) Name() string        { return "sample" }
func (s *sampleRoutine[T]) Shape() tensor.Shape { return s.shape }
func (s *sampleRoutine[T]) Inputs() []Node      { return nil }

func (s *sampleRoutine[T]) Run(_ context.Context, out *tensor.View[T]) error {
	buf := make([]T, s.shape.NumElements())
	if err := s.src.Fill(buf); err != nil {
		return err
	}
	for flat, idx := range s.shape.Iter() {
		out.Put(idx, buf[flat])
	}
	return nil
}

// Sample returns a generator drawing its values, in row-major order, from src.
// Values are drawn the first time an expression reads them; each Run draws the next ones.
func Sample[T tensor.Element](shape tensor.Shape, src Source[T], backend tensor.Backend) (*KernelOp[T], error) {
	if src == nil {
		return nil, tensor.ArgumentErrorf("sample", "nil source")
	}
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	return Kernel[T](&sampleRoutine[T]{shape: shape.Clone(), src: src}, backend)
}

// FuncRoutine adapts a function to the Routine contract.
type FuncRoutine[T tensor.Element] struct {
	RoutineName string
	OutputShape tensor.Shape
	InputNodes  []Node
	Fn          func(ctx context.Context, out *tensor.View[T]) error
}

func (f *FuncRoutine[T]) Name() string        { return f.RoutineName }
func (f *FuncRoutine[T]) Shape() tensor.Shape { return f.OutputShape }
func (f *FuncRoutine[T]) Inputs() []Node      { return f.InputNodes }

func (f *FuncRoutine[T]) Run(ctx context.Context, out *tensor.View[T]) error {
	return f.Fn(ctx, out)
}
