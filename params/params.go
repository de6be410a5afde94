package params

// Tensor is a single model parameter array: a row-major float32 buffer plus
// its shape. An empty shape denotes a scalar holding exactly one element.
type Tensor struct {
	Shape []int     `json:"shape"`
	Data  []float32 `json:"data"`
}

// ParameterSet is the ordered list of tensors making up model parameters,
// either global or client-local.
type ParameterSet []Tensor

// NewTensor returns a zero-filled tensor of the given shape.
func NewTensor(shape ...int) Tensor {
	n := 1
	for _, d := range shape {
		n *= d
	}
	s := make([]int, len(shape))
	copy(s, shape)

	return Tensor{
		Shape: s,
		Data:  make([]float32, n),
	}
}

// Elems returns the number of elements the tensor holds.
func (t Tensor) Elems() int {
	n := 1
	for _, d := range t.Shape {
		n *= d
	}

	return n
}

func (t Tensor) Clone() Tensor {
	c := Tensor{
		Shape: make([]int, len(t.Shape)),
		Data:  make([]float32, len(t.Data)),
	}
	copy(c.Shape, t.Shape)
	copy(c.Data, t.Data)

	return c
}

func (p ParameterSet) Clone() ParameterSet {
	c := make(ParameterSet, len(p))
	for i, t := range p {
		c[i] = t.Clone()
	}

	return c
}

// Zeros returns a ParameterSet of zero tensors with the same shapes as p.
// Momentum accumulators start from this.
func Zeros(p ParameterSet) ParameterSet {
	z := make(ParameterSet, len(p))
	for i, t := range p {
		z[i] = NewTensor(t.Shape...)
	}

	return z
}

func sameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}

// Compatible reports whether b has the same tensor count and per-tensor
// shapes as a. A mismatch returns ErrShapeMismatch naming the first
// offending tensor index.
func Compatible(a, b ParameterSet) error {
	if len(a) != len(b) {
		return &ShapeError{Index: -1, Want: len(a), Got: len(b)}
	}
	for i := range a {
		if !sameShape(a[i].Shape, b[i].Shape) {
			return &ShapeError{Index: i, WantShape: a[i].Shape, GotShape: b[i].Shape}
		}
	}

	return nil
}
