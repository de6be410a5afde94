package params

import (
	"errors"
	"fmt"
)

var (
	ErrShapeMismatch = errors.New("parameter shapes do not match")
	ErrRaggedTensor  = errors.New("tensor rows have inconsistent lengths")
	ErrInvalidValue  = errors.New("tensor element is not a number")
)

// ShapeError carries the tensor index at which two parameter sets diverge.
// Index -1 means the tensor counts themselves differ.
type ShapeError struct {
	Index     int
	Want      int
	Got       int
	WantShape []int
	GotShape  []int
}

func (e *ShapeError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s: expected %d tensors, got %d", ErrShapeMismatch, e.Want, e.Got)
	}

	return fmt.Sprintf("%s: tensor %d: expected shape %v, got %v", ErrShapeMismatch, e.Index, e.WantShape, e.GotShape)
}

func (e *ShapeError) Unwrap() error {
	return ErrShapeMismatch
}
