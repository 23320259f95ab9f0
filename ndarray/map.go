package ndarray

import "fmt"

// Each applies fn to every element of the array, in storage order.
func (a *Array[F]) Each(fn func(F)) {
	for _, v := range a.data {
		fn(v)
	}
}

// Map returns a new owned Array with fn applied element-wise.
func (a *Array[F]) Map(fn func(F) F) *Array[F] {
	out := a.Copy()
	for i, v := range out.data {
		out.data[i] = fn(v)
	}

	return out
}

// Map returns a new owned Array with fn applied element-wise to the view.
func (v View[F]) Map(fn func(F) F) *Array[F] {
	owned := v.ToOwned()
	for i, val := range owned.data {
		owned.data[i] = fn(val)
	}

	return owned
}

// Zip returns a new owned array combining a and b element-wise via fn.
// Shapes must match exactly (no broadcasting — broadcast is an
// ArrayBackend concern out of scope for this evaluator).
func Zip[F Float](a, b View[F], fn func(x, y F) F) (*Array[F], error) {
	ao := a.ToOwned()
	bo := b.ToOwned()

	if !ShapesEqual(ao.shape, bo.shape) {
		return nil, fmt.Errorf("ndarray: shape mismatch %v vs %v", ao.shape, bo.shape)
	}

	out := ao.Copy()
	for i := range out.data {
		out.data[i] = fn(ao.data[i], bo.data[i])
	}

	return out, nil
}
