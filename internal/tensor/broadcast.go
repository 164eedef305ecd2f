package tensor

// BroadcastShapes resolves the shapes of several operands into one broadcast shape.
//
// Rules:
//  1. Shapes are aligned by their trailing dimensions; missing leading dimensions are 1.
//  2. In each aligned dimension the extents must be equal, or one of them must be 1.
//  3. A 0 extent against anything but 1 yields 0 (empty result), it's not an error.
//
// The result rank is the largest operand rank. With no operands the result is a scalar.
//
// Examples:
//
//	(3, 1) + (3, 5) → (3, 5)
//	(5,)   + (3, 5) → (3, 5)
//	(0, 5) + (3, 5) → (0, 5)
//	(3, 4) + (3, 5) → ShapeError{Dim: 1, A: 4, B: 5}
func BroadcastShapes(shapes ...Shape) (Shape, error) {
	rank := 0
	for _, s := range shapes {
		rank = max(rank, len(s))
	}

	result := make(Shape, rank)
	for i := range result {
		result[i] = 1
	}

	for _, s := range shapes {
		offset := rank - len(s)
		for i, dim := range s {
			outDim := offset + i
			cur := result[outDim]
			switch {
			case dim == cur, dim == 1:
			case cur == 1:
				result[outDim] = dim
			case dim == 0 || cur == 0:
				result[outDim] = 0
			default:
				return nil, shapeErrorf("broadcast", outDim, cur, dim, shapes...)
			}
		}
	}
	return result, nil
}

// BroadcastStrides returns the effective strides needed to read an operand of shape in
// (with memory strides) at any index of the broadcast shape out.
// Padded leading dimensions and broadcast size-1 dimensions get stride 0.
func BroadcastStrides(in Shape, strides []int, out Shape) ([]int, error) {
	if len(in) > len(out) {
		return nil, shapeErrorf("broadcast strides", -1, len(in), len(out), in, out)
	}
	offset := len(out) - len(in)
	result := make([]int, len(out))
	for i, dim := range in {
		outDim := offset + i
		switch {
		case dim == out[outDim]:
			result[outDim] = strides[i]
		case dim == 1, out[outDim] == 0:
			result[outDim] = 0
		default:
			return nil, shapeErrorf("broadcast strides", outDim, dim, out[outDim], in, out)
		}
	}
	return result, nil
}
