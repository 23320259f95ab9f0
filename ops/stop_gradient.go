package ops

import (
	"github.com/zerfoo/evalcore/ndarray"
	"github.com/zerfoo/evalcore/op"
)

// StopGradient is the forward-identity, gradient-barrier op from the
// spec's Delegate{to:k} design note: its Compute declines to produce a
// value and instead instructs the evaluator to install input 0 verbatim.
// Grad reports every input as non-differentiable.
type StopGradient[F ndarray.Float] struct{}

// Name identifies the op.
func (StopGradient[F]) Name() string { return "StopGradient" }

// Compute requests the evaluator install input 0 as this node's sole
// output, without running any computation of its own.
func (StopGradient[F]) Compute(ctx *op.ComputeContext[F]) op.Result[F] {
	_ = ctx

	return op.Delegate[F](0)
}

// Grad reports every input as non-differentiable: the gradient barrier's
// entire purpose.
func (StopGradient[F]) Grad(_ op.Tensor, inputs []op.Tensor, _ op.Tensor) []op.Tensor {
	return make([]op.Tensor, len(inputs))
}
