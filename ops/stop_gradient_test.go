package ops_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zerfoo/evalcore/ndarray"
	"github.com/zerfoo/evalcore/op"
	"github.com/zerfoo/evalcore/ops"
)

func TestStopGradientDelegatesToInputZero(t *testing.T) {
	in, err := ndarray.New([]int{2}, []float64{1, 2})
	require.NoError(t, err)

	ctx := op.NewComputeContext(inputsFor(in))
	res := ops.StopGradient[float64]{}.Compute(ctx)

	require.Nil(t, res.Err)
	require.Nil(t, res.Outputs)
	require.NotNil(t, res.DelegateTo)
	require.Equal(t, 0, *res.DelegateTo)
}

func TestStopGradientMarksAllInputsNonDifferentiable(t *testing.T) {
	grads := ops.StopGradient[float64]{}.Grad(nil, make([]op.Tensor, 3), nil)
	require.Len(t, grads, 3)

	for _, g := range grads {
		require.Nil(t, g)
	}
}
