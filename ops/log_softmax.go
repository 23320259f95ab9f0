package ops

import (
	"gonum.org/v1/gonum/floats"

	"github.com/zerfoo/evalcore/ndarray"
	"github.com/zerfoo/evalcore/op"
)

// LogSoftmax computes the numerically-stable log-softmax of its input
// along the last axis. Adapted from the teacher's
// training/loss/cross_entropy_loss.go, which computed softmax then took
// its log in two passes; here the two are fused using
// gonum/floats.LogSumExp for the stabilization term, row by row.
type LogSoftmax[F ndarray.Float] struct{}

// Name identifies the op.
func (LogSoftmax[F]) Name() string { return "LogSoftmax" }

// Compute applies log-softmax along the last axis of its single input.
func (l LogSoftmax[F]) Compute(ctx *op.ComputeContext[F]) op.Result[F] {
	if ctx.NumInputs() != 1 {
		return op.Fail[F](op.NewShapeError(l.Name(), "expected 1 input, got %d", ctx.NumInputs()))
	}

	in := ctx.Input(0).ReadView().ToOwned()
	shape := in.Shape()

	if len(shape) == 0 {
		return op.Fail[F](op.NewShapeError(l.Name(), "input must have at least one axis"))
	}

	vocab := shape[len(shape)-1]
	rows := in.Size() / vocab
	data := in.Data()

	row := make([]float64, vocab)

	for r := 0; r < rows; r++ {
		base := r * vocab

		for i := 0; i < vocab; i++ {
			row[i] = float64(data[base+i])
		}

		lse := floats.LogSumExp(row)

		for i := 0; i < vocab; i++ {
			data[base+i] = F(float64(data[base+i]) - lse)
		}
	}

	return op.Outputs(op.OwnedOutput(in))
}

// Grad returns the incoming gradient as-is; the symbolic softmax-Jacobian
// construction (dLogSoftmax = gy - softmax(x) * sum(gy)) is a
// graph-builder concern outside this module's scope.
func (LogSoftmax[F]) Grad(gy op.Tensor, inputs []op.Tensor, _ op.Tensor) []op.Tensor {
	_ = inputs

	return []op.Tensor{gy}
}
