package ops

import (
	"github.com/zerfoo/evalcore/ndarray"
	"github.com/zerfoo/evalcore/op"
)

// Split divides its input into two equal halves along axis 0 and returns
// each half as a separate output slot. It exists to exercise the
// evaluator's multi-output addressing path (graph.InputAt's InputIndex):
// every other op in this catalog returns exactly one output, so without
// Split that path would have no real caller. Grounded on the teacher's
// layers/transpose package's habit of slicing directly on the backing
// slice along the leading (row-major, always-contiguous) axis.
type Split[F ndarray.Float] struct{}

// Name identifies the op.
func (Split[F]) Name() string { return "Split" }

// Compute splits its single input in half along axis 0.
func (s Split[F]) Compute(ctx *op.ComputeContext[F]) op.Result[F] {
	if ctx.NumInputs() != 1 {
		return op.Fail[F](op.NewShapeError(s.Name(), "expected 1 input, got %d", ctx.NumInputs()))
	}

	in := ctx.Input(0).ReadView().ToOwned()
	shape := in.Shape()

	if len(shape) == 0 || shape[0]%2 != 0 {
		return op.Fail[F](op.NewShapeError(s.Name(), "axis 0 must be even-sized and rank >= 1, got shape %v", shape))
	}

	half := shape[0] / 2
	rowSize := in.Size() / shape[0]
	data := in.Data()

	halfShape := append([]int{half}, shape[1:]...)

	first, err := ndarray.New(halfShape, append([]F(nil), data[:half*rowSize]...))
	if err != nil {
		return op.Fail[F](op.NewShapeError(s.Name(), "%s", err.Error()))
	}

	second, err := ndarray.New(halfShape, append([]F(nil), data[half*rowSize:]...))
	if err != nil {
		return op.Fail[F](op.NewShapeError(s.Name(), "%s", err.Error()))
	}

	return op.Outputs(op.OwnedOutput(first), op.OwnedOutput(second))
}

// Grad returns the incoming gradient unchanged; the symbolic
// concatenate-the-two-gradients-back-together construction is a
// graph-builder concern outside this module's scope.
func (Split[F]) Grad(gy op.Tensor, inputs []op.Tensor, _ op.Tensor) []op.Tensor {
	_ = inputs

	return []op.Tensor{gy}
}
