package ops

import (
	"github.com/zerfoo/evalcore/ndarray"
	"github.com/zerfoo/evalcore/op"
)

// ReduceSum sums its input over the given Axes (or every axis when Axes is
// empty), returning an owned array. Adapted from the teacher's
// layers/reducesum/reducesum.go, with the reduction itself delegated to
// ndarray.Array.Sum (gonum-backed; see ndarray/shaping.go) instead of the
// teacher's hand-rolled per-axis loop.
type ReduceSum[F ndarray.Float] struct {
	Axes     []int
	KeepDims bool
}

// Name identifies the op.
func (ReduceSum[F]) Name() string { return "ReduceSum" }

// Compute reduces the input over Axes.
func (r ReduceSum[F]) Compute(ctx *op.ComputeContext[F]) op.Result[F] {
	if ctx.NumInputs() != 1 {
		return op.Fail[F](op.NewShapeError(r.Name(), "expected 1 input, got %d", ctx.NumInputs()))
	}

	current := ctx.Input(0).ReadView().ToOwned()

	if len(r.Axes) == 0 {
		out, err := current.Sum(-1, r.KeepDims)
		if err != nil {
			return op.Fail[F](op.NewShapeError(r.Name(), "%s", err.Error()))
		}

		return op.Outputs(op.OwnedOutput(out))
	}

	for i, axis := range r.Axes {
		adjusted := axis
		if !r.KeepDims {
			// Summing without keepdims shrinks the rank after each pass, so
			// later axis indices must account for already-removed axes.
			for _, prior := range r.Axes[:i] {
				if prior < axis {
					adjusted--
				}
			}
		}

		next, err := current.Sum(adjusted, r.KeepDims)
		if err != nil {
			return op.Fail[F](op.NewShapeError(r.Name(), "%s", err.Error()))
		}

		current = next
	}

	return op.Outputs(op.OwnedOutput(current))
}

// Grad returns the incoming gradient unchanged; it does not broadcast it
// back across the reduced axes (symbolic broadcast construction is a
// graph-builder concern outside this module's scope).
func (ReduceSum[F]) Grad(gy op.Tensor, inputs []op.Tensor, _ op.Tensor) []op.Tensor {
	_ = inputs

	return []op.Tensor{gy}
}
