package ops

import (
	"github.com/zerfoo/evalcore/ndarray"
	"github.com/zerfoo/evalcore/op"
)

// Squeeze drops the named size-1 axes from its input, returning a View —
// no data is copied. Adapted from the teacher's TensorNumeric.Reshape view
// mechanics (tensor/shaping.go), specialized to axis removal. Exercises
// the evaluator's View-kind ValueInfo path end to end.
type Squeeze[F ndarray.Float] struct {
	Axes []int
}

// Name identifies the op.
func (Squeeze[F]) Name() string { return "Squeeze" }

// Compute returns a no-copy view of the input with Axes removed.
func (s Squeeze[F]) Compute(ctx *op.ComputeContext[F]) op.Result[F] {
	if ctx.NumInputs() != 1 {
		return op.Fail[F](op.NewShapeError(s.Name(), "expected 1 input, got %d", ctx.NumInputs()))
	}

	v, err := ctx.Input(0).ReadView().Squeeze(s.Axes)
	if err != nil {
		return op.Fail[F](op.NewShapeError(s.Name(), "%s", err.Error()))
	}

	return op.Outputs(op.ViewOutput(v))
}

// Grad returns the incoming gradient unchanged; it does not reshape it
// back to the input's rank (symbolic reshape construction is a
// graph-builder concern outside this module's scope).
func (Squeeze[F]) Grad(gy op.Tensor, inputs []op.Tensor, _ op.Tensor) []op.Tensor {
	_ = inputs

	return []op.Tensor{gy}
}
