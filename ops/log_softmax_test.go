package ops_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zerfoo/evalcore/ndarray"
	"github.com/zerfoo/evalcore/op"
	"github.com/zerfoo/evalcore/ops"
)

func TestLogSoftmaxRowsSumToOneInProbSpace(t *testing.T) {
	in, err := ndarray.New([]int{2, 3}, []float64{1, 2, 3, 0, 0, 0})
	require.NoError(t, err)

	ctx := op.NewComputeContext(inputsFor(in))
	res := ops.LogSoftmax[float64]{}.Compute(ctx)

	require.Nil(t, res.Err)
	require.Len(t, res.Outputs, 1)

	data := res.Outputs[0].Array.Data()

	for r := 0; r < 2; r++ {
		sum := 0.0
		for i := 0; i < 3; i++ {
			sum += math.Exp(data[r*3+i])
		}

		require.InDelta(t, 1.0, sum, 1e-9)
	}
}

func TestLogSoftmaxRejectsScalar(t *testing.T) {
	in, err := ndarray.New[float64](nil, []float64{1})
	require.NoError(t, err)

	ctx := op.NewComputeContext(inputsFor(in))
	res := ops.LogSoftmax[float64]{}.Compute(ctx)

	require.NotNil(t, res.Err)
}
