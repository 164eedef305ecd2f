// Package expr implements the operator algebra: lazily evaluated trees of leaves, generators,
// elementwise, conditional and external-kernel nodes, each resolving to a value per index.
//
// Constructors validate and broadcast shapes once. Nothing is evaluated until an expression is
// executed (see package exec), and constructing a node never mutates its children.
package expr

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/born-ml/tensorexpr/internal/tensor"
)

// Kind identifies an operator variant.
type Kind int

// Operator variants.
const (
	KindLeaf Kind = iota
	KindGenerator
	KindUnary
	KindBinary
	KindNAry
	KindConditional
	KindKernel
)

// String returns the variant name.
func (k Kind) String() string {
	switch k {
	case KindLeaf:
		return "leaf"
	case KindGenerator:
		return "generator"
	case KindUnary:
		return "unary"
	case KindBinary:
		return "binary"
	case KindNAry:
		return "n-ary"
	case KindConditional:
		return "conditional"
	case KindKernel:
		return "kernel"
	default:
		return "unknown"
	}
}

// Node is the type-erased part of an operator, used to walk and describe trees.
type Node interface {
	Kind() Kind
	Name() string
	Shape() tensor.Shape
	Children() []Node
}

// EvalFunc returns the value of an operator at a multi-index of its shape.
// An EvalFunc may keep scratch state: it is not safe for concurrent use.
type EvalFunc[T tensor.Element] func(idx []int) T

// Operator is a node producing values of type T.
type Operator[T tensor.Element] interface {
	Node

	// At returns the value at idx, which must lie inside Shape().
	// It is a pure function of idx.
	At(idx []int) T

	// Evaluator returns a fresh EvalFunc for the operator. Each goroutine evaluating the
	// operator needs its own.
	Evaluator() EvalFunc[T]
}

// Must returns op, or panics if err is not nil.
//
// Example:
//
//	sum := expr.Must(expr.Add(expr.Of(a), expr.Of(b)))
func Must[O any](op O, err error) O {
	if err != nil {
		panic(err)
	}
	return op
}

// Walk calls fn for every node reachable from root in post-order (children first).
// Nodes shared by several parents are visited once. Walk stops at the first error.
func Walk(root Node, fn func(Node) error) error {
	seen := make(map[Node]struct{})
	var visit func(n Node) error
	visit = func(n Node) error {
		if _, ok := seen[n]; ok {
			return nil
		}
		seen[n] = struct{}{}
		for _, c := range n.Children() {
			if err := visit(c); err != nil {
				return err
			}
		}
		return fn(n)
	}
	return visit(root)
}

// Kernels returns the kernel nodes reachable from root, inputs before the kernels using them.
func Kernels(root Node) []Runner {
	var out []Runner
	_ = Walk(root, func(n Node) error {
		if r, ok := n.(Runner); ok {
			out = append(out, r)
		}
		return nil
	})
	return out
}

// storageNode is implemented by nodes reading from a Storage.
type storageNode interface {
	Storage() *tensor.Storage
}

// Storages returns every storage read by the tree rooted at root.
func Storages(root Node) []*tensor.Storage {
	var out []*tensor.Storage
	_ = Walk(root, func(n Node) error {
		if s, ok := n.(storageNode); ok {
			out = append(out, s.Storage())
		}
		return nil
	})
	return out
}

// Format renders the tree rooted at root, one node per line.
func Format(root Node) string {
	var sb strings.Builder
	var visit func(n Node, depth int)
	visit = func(n Node, depth int) {
		fmt.Fprintf(&sb, "%s%s %s %v\n", strings.Repeat("  ", depth), n.Kind(), n.Name(), n.Shape())
		for _, c := range n.Children() {
			visit(c, depth+1)
		}
	}
	visit(root, 0)
	return sb.String()
}

func shapesOf(nodes ...Node) []tensor.Shape {
	shapes := make([]tensor.Shape, len(nodes))
	for i, n := range nodes {
		shapes[i] = n.Shape()
	}
	return shapes
}

// resolve computes the broadcast shape of the operands of op.
func resolve(op string, nodes ...Node) (tensor.Shape, error) {
	shape, err := tensor.BroadcastShapes(shapesOf(nodes...)...)
	if err != nil {
		var se *tensor.ShapeError
		if errors.As(err, &se) {
			return nil, tensor.NewShapeError(op, se.Dim, se.A, se.B, se.Shapes...)
		}
		return nil, err
	}
	return shape, nil
}
