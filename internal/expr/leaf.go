package expr

import "github.com/born-ml/tensorexpr/internal/tensor"

// LeafOp reads values from a view.
type LeafOp[T tensor.Element] struct {
	view *tensor.View[T]
}

// Leaf wraps a view as an operator. The view's storage must stay alive until every
// expression reading it has executed.
func Leaf[T tensor.Element](v *tensor.View[T]) *LeafOp[T] {
	return &LeafOp[T]{view: v}
}

// Of wraps a whole tensor as an operator.
func Of[T tensor.Element](t *tensor.Tensor[T]) *LeafOp[T] {
	return Leaf(t.View())
}

func (l *LeafOp[T]) Kind() Kind               { return KindLeaf }
func (l *LeafOp[T]) Name() string             { return "leaf" }
func (l *LeafOp[T]) Shape() tensor.Shape      { return l.view.Shape() }
func (l *LeafOp[T]) Children() []Node         { return nil }
func (l *LeafOp[T]) Storage() *tensor.Storage { return l.view.Storage() }

// View returns the wrapped view.
func (l *LeafOp[T]) View() *tensor.View[T] { return l.view }

func (l *LeafOp[T]) At(idx []int) T { return l.view.Get(idx) }

func (l *LeafOp[T]) Evaluator() EvalFunc[T] { return l.view.Get }
