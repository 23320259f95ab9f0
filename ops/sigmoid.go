// Package ops is a small, deliberately minimal sample op catalog used to
// exercise the evaluator end to end. The real op catalog (the full set of
// tensor operations a production graph would need) is out of scope for the
// evaluation core; these ops exist only so the evaluator has something
// concrete to drive.
package ops

import (
	"math"

	"github.com/zerfoo/evalcore/ndarray"
	"github.com/zerfoo/evalcore/op"
)

// Sigmoid is the stateless forward/gradient pair for the logistic sigmoid,
// adapted from the teacher's layers/activations Sigmoid layer: the same
// Forward/Backward math, recast here as a pure Op.Compute/Op.Grad pair
// operating on resolved views instead of a layer that caches lastInput
// between calls.
type Sigmoid[F ndarray.Float] struct{}

// Name identifies the op.
func (Sigmoid[F]) Name() string { return "Sigmoid" }

// Compute applies the logistic function element-wise to its single input.
func (s Sigmoid[F]) Compute(ctx *op.ComputeContext[F]) op.Result[F] {
	if ctx.NumInputs() != 1 {
		return op.Fail[F](op.NewShapeError(s.Name(), "expected 1 input, got %d", ctx.NumInputs()))
	}

	out := ctx.Input(0).ReadView().Map(func(x F) F {
		return F(1 / (1 + math.Exp(-float64(x))))
	})

	return op.Outputs(op.OwnedOutput(out))
}

// Grad is not invoked by the evaluator; it documents the symbolic gradient
// a graph-construction layer above this module would synthesize:
// dSigmoid/dx = sigmoid(x) * (1 - sigmoid(x)).
func (Sigmoid[F]) Grad(_ op.Tensor, inputs []op.Tensor, output op.Tensor) []op.Tensor {
	_ = inputs

	return []op.Tensor{output}
}
