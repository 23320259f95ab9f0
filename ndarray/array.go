// Package ndarray is a minimal dense-array backend for the evaluator: owned
// arrays and non-owning views over float32/float64 data. It plays the role
// of the "ArrayBackend" external collaborator described by the evaluation
// core's specification — the real backend (rank, shape, strides, gather,
// broadcast) is assumed infrastructure; this package supplies just enough
// of it to drive the evaluator and its sample ops end to end.
package ndarray

import (
	"fmt"
)

// Float is the element type constraint: a runtime-discriminated floating
// type, per the evaluator's float-type requirement.
type Float interface {
	~float32 | ~float64
}

// Kind discriminates the concrete float type backing an Array/View at
// runtime, so per-precision fast paths can dispatch without reflection.
type Kind int

const (
	// F32 marks float32-backed storage.
	F32 Kind = iota
	// F64 marks float64-backed storage.
	F64
)

// KindOf returns the Kind for a Float type parameter.
func KindOf[F Float]() Kind {
	var zero F
	switch any(zero).(type) {
	case float32:
		return F32
	default:
		return F64
	}
}

// Array is an owned, mutable n-dimensional array.
type Array[F Float] struct {
	shape   []int
	strides []int
	data    []F
}

// View is a non-owning alias into another Array's backing storage. Views
// must not outlive the Array (or locked Variable) they alias.
type View[F Float] struct {
	shape   []int
	strides []int
	offset  int
	data    []F
}

// New allocates an owned Array of the given shape, optionally seeded with
// data (row-major, matching the declared shape's element count).
func New[F Float](shape []int, data []F) (*Array[F], error) {
	size := sizeOf(shape)

	if data == nil {
		data = make([]F, size)
	} else if len(data) != size {
		return nil, fmt.Errorf("ndarray: data length %d does not match shape %v (size %d)", len(data), shape, size)
	}

	return &Array[F]{
		shape:   append([]int(nil), shape...),
		strides: rowMajorStrides(shape),
		data:    data,
	}, nil
}

// Full returns a new Array of the given shape with every element set to v.
func Full[F Float](shape []int, v F) *Array[F] {
	a, _ := New[F](shape, nil)
	for i := range a.data {
		a.data[i] = v
	}

	return a
}

func sizeOf(shape []int) int {
	size := 1
	for _, d := range shape {
		size *= d
	}

	return size
}

func rowMajorStrides(shape []int) []int {
	strides := make([]int, len(shape))
	stride := 1

	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = stride
		stride *= shape[i]
	}

	return strides
}

// Shape returns a copy of the array's shape.
func (a *Array[F]) Shape() []int { return append([]int(nil), a.shape...) }

// Strides returns a copy of the array's strides.
func (a *Array[F]) Strides() []int { return append([]int(nil), a.strides...) }

// Dims returns the number of dimensions.
func (a *Array[F]) Dims() int { return len(a.shape) }

// Size returns the total element count.
func (a *Array[F]) Size() int { return len(a.data) }

// Kind reports the concrete float type backing this array.
func (a *Array[F]) Kind() Kind { return KindOf[F]() }

// Data returns the underlying backing slice. Callers must not retain it
// past the array's lifetime if the array is later mutated in place.
func (a *Array[F]) Data() []F { return a.data }

// Copy returns a deep, independent copy of the array.
func (a *Array[F]) Copy() *Array[F] {
	data := append([]F(nil), a.data...)

	return &Array[F]{
		shape:   append([]int(nil), a.shape...),
		strides: append([]int(nil), a.strides...),
		data:    data,
	}
}

// View returns a View sharing this array's backing storage.
func (a *Array[F]) View() View[F] {
	return View[F]{
		shape:   append([]int(nil), a.shape...),
		strides: append([]int(nil), a.strides...),
		data:    a.data,
	}
}

// Fill sets every element of the array to v.
func (a *Array[F]) Fill(v F) {
	for i := range a.data {
		a.data[i] = v
	}
}

// Shape returns a copy of the view's shape.
func (v View[F]) Shape() []int { return append([]int(nil), v.shape...) }

// Strides returns a copy of the view's strides.
func (v View[F]) Strides() []int { return append([]int(nil), v.strides...) }

// Dims returns the number of dimensions.
func (v View[F]) Dims() int { return len(v.shape) }

// Size returns the total element count visible through the view.
func (v View[F]) Size() int { return sizeOf(v.shape) }

// Kind reports the concrete float type backing this view.
func (v View[F]) Kind() Kind { return KindOf[F]() }

// ToOwned copies the view's visible data into a freshly allocated Array.
// Views must be converted to owned storage before they can outlive the
// call that produced them (e.g. at evaluation-result delivery).
func (v View[F]) ToOwned() *Array[F] {
	size := v.Size()
	data := make([]F, size)

	if len(v.shape) == 0 {
		if len(v.data) > 0 {
			data[0] = v.data[v.offset]
		}

		return &Array[F]{shape: []int{}, strides: []int{}, data: data}
	}

	idx := make([]int, len(v.shape))
	for i := range data {
		data[i] = v.at(idx)
		incIndex(idx, v.shape)
	}

	return &Array[F]{
		shape:   append([]int(nil), v.shape...),
		strides: rowMajorStrides(v.shape),
		data:    data,
	}
}

func (v View[F]) at(idx []int) F {
	pos := v.offset
	for i, ix := range idx {
		pos += ix * v.strides[i]
	}

	return v.data[pos]
}

// incIndex advances idx by one in row-major order within shape.
func incIndex(idx, shape []int) {
	for i := len(shape) - 1; i >= 0; i-- {
		idx[i]++
		if idx[i] < shape[i] {
			return
		}

		idx[i] = 0
	}
}

// ShapesEqual reports whether two shapes are identical.
func ShapesEqual(a, b []int) bool {
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
