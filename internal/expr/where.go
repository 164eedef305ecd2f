package expr

import "github.com/born-ml/tensorexpr/internal/tensor"

// WhereOp selects, per index, the value of one of two branches.
type WhereOp[T tensor.Element] struct {
	shape      tensor.Shape
	pred       Operator[bool]
	a, b       Operator[T]
	mp, ma, mb broadcastMap
}

// Where returns a where pred is true and b elsewhere. The three operands are broadcast
// together. Only the selected branch is evaluated at each index.
func Where[T tensor.Element](pred Operator[bool], a, b Operator[T]) (*WhereOp[T], error) {
	shape, err := resolve("where", pred, a, b)
	if err != nil {
		return nil, err
	}
	return &WhereOp[T]{
		shape: shape,
		pred:  pred,
		a:     a,
		b:     b,
		mp:    newBroadcastMap(pred.Shape(), shape),
		ma:    newBroadcastMap(a.Shape(), shape),
		mb:    newBroadcastMap(b.Shape(), shape),
	}, nil
}

func (w *WhereOp[T]) Kind() Kind          { return KindConditional }
func (w *WhereOp[T]) Name() string        { return "where" }
func (w *WhereOp[T]) Shape() tensor.Shape { return w.shape }
func (w *WhereOp[T]) Children() []Node    { return []Node{w.pred, w.a, w.b} }
func (w *WhereOp[T]) At(idx []int) T      { return w.Evaluator()(idx) }

func (w *WhereOp[T]) Evaluator() EvalFunc[T] {
	pred := bind(w.mp, w.pred.Evaluator())
	a := bind(w.ma, w.a.Evaluator())
	b := bind(w.mb, w.b.Evaluator())
	return func(idx []int) T {
		if pred(idx) {
			return a(idx)
		}
		return b(idx)
	}
}
