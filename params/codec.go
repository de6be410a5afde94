package params

import "fmt"

// Encode converts p to its JSON wire form: one nested array per tensor, with
// nesting that mirrors the tensor shape. Rank-zero tensors encode as a bare
// number.
func Encode(p ParameterSet) []any {
	out := make([]any, len(p))
	for i, t := range p {
		v, _ := nest(t.Shape, t.Data)
		out[i] = v
	}

	return out
}

func nest(shape []int, data []float32) (any, []float32) {
	if len(shape) == 0 {
		return float64(data[0]), data[1:]
	}

	arr := make([]any, shape[0])
	for i := range arr {
		arr[i], data = nest(shape[1:], data)
	}

	return arr, data
}

// Decode rebuilds a ParameterSet from decoded JSON nested arrays, inferring
// each tensor's shape from its nesting. Ragged nesting fails with
// ErrRaggedTensor, non-numeric leaves with ErrInvalidValue. Values are
// truncated to float32, which is lossless for anything produced by Encode.
func Decode(weights []any) (ParameterSet, error) {
	p := make(ParameterSet, len(weights))
	for i, w := range weights {
		shape, err := inferShape(w)
		if err != nil {
			return nil, fmt.Errorf("tensor %d: %w", i, err)
		}
		t := NewTensor(shape...)
		if _, err := flatten(w, t.Data, 0, shape); err != nil {
			return nil, fmt.Errorf("tensor %d: %w", i, err)
		}
		p[i] = t
	}

	return p, nil
}

func inferShape(v any) ([]int, error) {
	var shape []int
	for {
		arr, ok := v.([]any)
		if !ok {
			if _, ok := v.(float64); !ok {
				return nil, ErrInvalidValue
			}

			return shape, nil
		}
		shape = append(shape, len(arr))
		if len(arr) == 0 {
			return shape, nil
		}
		v = arr[0]
	}
}

func flatten(v any, dst []float32, off int, shape []int) (int, error) {
	if len(shape) == 0 {
		f, ok := v.(float64)
		if !ok {
			return 0, ErrInvalidValue
		}
		dst[off] = float32(f)

		return off + 1, nil
	}

	arr, ok := v.([]any)
	if !ok || len(arr) != shape[0] {
		return 0, ErrRaggedTensor
	}
	var err error
	for _, e := range arr {
		off, err = flatten(e, dst, off, shape[1:])
		if err != nil {
			return 0, err
		}
	}

	return off, nil
}
