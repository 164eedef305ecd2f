package expr

import "github.com/born-ml/tensorexpr/internal/tensor"

// broadcastMap translates an index of a parent's shape into an index of a child's shape:
// the child's dimensions are aligned with the parent's trailing ones, and size-1 child
// dimensions facing a larger parent extent always read index 0.
type broadcastMap struct {
	identity bool
	offset   int    // parent rank - child rank
	fixed    []bool // per child dimension: broadcast, always index 0
}

func newBroadcastMap(child, parent tensor.Shape) broadcastMap {
	if child.Equal(parent) {
		return broadcastMap{identity: true}
	}
	m := broadcastMap{
		offset: len(parent) - len(child),
		fixed:  make([]bool, len(child)),
	}
	for j, dim := range child {
		m.fixed[j] = dim == 1 && parent[m.offset+j] != 1
	}
	return m
}

// bind adapts the child's evaluator to parent indices.
func bind[T tensor.Element](m broadcastMap, eval EvalFunc[T]) EvalFunc[T] {
	if m.identity {
		return eval
	}
	buf := make([]int, len(m.fixed))
	return func(idx []int) T {
		for j, fixed := range m.fixed {
			if fixed {
				buf[j] = 0
			} else {
				buf[j] = idx[m.offset+j]
			}
		}
		return eval(buf)
	}
}
