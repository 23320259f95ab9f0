package ops_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zerfoo/evalcore/ndarray"
	"github.com/zerfoo/evalcore/op"
	"github.com/zerfoo/evalcore/ops"
)

func TestSplitProducesTwoHalves(t *testing.T) {
	in, err := ndarray.New([]int{4}, []float64{1, 2, 3, 4})
	require.NoError(t, err)

	ctx := op.NewComputeContext(inputsFor(in))
	res := ops.Split[float64]{}.Compute(ctx)

	require.Nil(t, res.Err)
	require.Len(t, res.Outputs, 2)
	require.Equal(t, []float64{1, 2}, res.Outputs[0].Array.Data())
	require.Equal(t, []float64{3, 4}, res.Outputs[1].Array.Data())
}

func TestSplitRejectsOddLeadingAxis(t *testing.T) {
	in, err := ndarray.New([]int{3}, []float64{1, 2, 3})
	require.NoError(t, err)

	ctx := op.NewComputeContext(inputsFor(in))
	res := ops.Split[float64]{}.Compute(ctx)

	require.NotNil(t, res.Err)
	require.Equal(t, op.Shape, res.Err.Kind)
}
