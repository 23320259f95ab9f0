package ndarray

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Reshape returns a View with a different shape over the same backing data.
// Adapted from the teacher's TensorNumeric.Reshape: same "same element
// count, shares storage" contract, expressed here as a View rather than a
// flag on the owned type.
func (a *Array[F]) Reshape(shape []int) (View[F], error) {
	if sizeOf(shape) != a.Size() {
		return View[F]{}, fmt.Errorf("ndarray: cannot reshape size %d into shape %v", a.Size(), shape)
	}

	return View[F]{
		shape:   append([]int(nil), shape...),
		strides: rowMajorStrides(shape),
		data:    a.data,
	}, nil
}

// Squeeze returns a View with the named axes removed. Every named axis
// must have size 1. Passing no axes removes every size-1 axis.
func (a *Array[F]) Squeeze(axes []int) (View[F], error) {
	return squeeze(a.shape, a.strides, 0, a.data, axes)
}

// Squeeze returns a View of v with the named axes removed.
func (v View[F]) Squeeze(axes []int) (View[F], error) {
	return squeeze(v.shape, v.strides, v.offset, v.data, axes)
}

func squeeze[F Float](shape, strides []int, offset int, data []F, axes []int) (View[F], error) {
	drop := make(map[int]bool, len(axes))

	if len(axes) == 0 {
		for i, d := range shape {
			if d == 1 {
				drop[i] = true
			}
		}
	} else {
		for _, ax := range axes {
			if ax < 0 || ax >= len(shape) {
				return View[F]{}, fmt.Errorf("ndarray: squeeze axis %d out of range for shape %v", ax, shape)
			}

			if shape[ax] != 1 {
				return View[F]{}, fmt.Errorf("ndarray: squeeze axis %d has size %d, want 1", ax, shape[ax])
			}

			drop[ax] = true
		}
	}

	newShape := make([]int, 0, len(shape))
	newStrides := make([]int, 0, len(shape))

	for i, d := range shape {
		if drop[i] {
			continue
		}

		newShape = append(newShape, d)
		newStrides = append(newStrides, strides[i])
	}

	return View[F]{shape: newShape, strides: newStrides, offset: offset, data: data}, nil
}

// Sum reduces the array along axis, or over every axis when axis < 0.
// keepDims controls whether the reduced axis is retained with size 1.
// The full-reduction path uses gonum's floats.Sum.
func (a *Array[F]) Sum(axis int, keepDims bool) (*Array[F], error) {
	if axis < 0 {
		return sumAll(a.shape, a.data, keepDims)
	}

	return sumAxis(a.shape, a.data, axis, keepDims)
}

func sumAll[F Float](shape []int, data []F, keepDims bool) (*Array[F], error) {
	f64 := make([]float64, len(data))
	for i, v := range data {
		f64[i] = float64(v)
	}

	total := F(floats.Sum(f64))

	outShape := []int{}
	if keepDims {
		outShape = make([]int, len(shape))
		for i := range outShape {
			outShape[i] = 1
		}
	}

	return New[F](outShape, []F{total})
}

func sumAxis[F Float](shape []int, data []F, axis int, keepDims bool) (*Array[F], error) {
	if axis < 0 || axis >= len(shape) {
		return nil, fmt.Errorf("ndarray: sum axis %d out of range for shape %v", axis, shape)
	}

	var outShape []int

	if keepDims {
		outShape = append([]int(nil), shape...)
		outShape[axis] = 1
	} else {
		for i, d := range shape {
			if i != axis {
				outShape = append(outShape, d)
			}
		}
	}

	out, err := New[F](outShape, nil)
	if err != nil {
		return nil, err
	}

	idx := make([]int, len(shape))

	for pos := range data {
		var outIdx []int

		for i, ix := range idx {
			if i == axis {
				if keepDims {
					outIdx = append(outIdx, 0)
				}

				continue
			}

			outIdx = append(outIdx, ix)
		}

		outPos := flatten(outIdx, out.strides)
		out.data[outPos] += data[pos]
		incIndex(idx, shape)
	}

	return out, nil
}

func flatten(idx, strides []int) int {
	pos := 0
	for i, ix := range idx {
		pos += ix * strides[i]
	}

	return pos
}
