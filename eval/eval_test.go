package eval_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zerfoo/evalcore/eval"
	"github.com/zerfoo/evalcore/graph"
	"github.com/zerfoo/evalcore/ndarray"
	"github.com/zerfoo/evalcore/op"
	"github.com/zerfoo/evalcore/ops"
)

func feedView(t *testing.T, shape []int, data []float64) ndarray.View[float64] {
	t.Helper()

	a, err := ndarray.New(shape, data)
	require.NoError(t, err)

	return a.View()
}

// countingOp wraps another op and counts how many times Compute runs, to
// verify the evaluator's single-compute-per-call memoization.
type countingOp struct {
	calls *int
	inner op.Op[float64]
}

func (c countingOp) Name() string { return "Counting(" + c.inner.Name() + ")" }

func (c countingOp) Compute(ctx *op.ComputeContext[float64]) op.Result[float64] {
	*c.calls++

	return c.inner.Compute(ctx)
}

func (c countingOp) Grad(gy op.Tensor, inputs []op.Tensor, output op.Tensor) []op.Tensor {
	return c.inner.Grad(gy, inputs, output)
}

// blockingOp signals ready, then waits for resume, letting a test control
// exactly when a node's Compute call returns. Using two independent
// instances lets a test hold the DFS open at two separate points and
// observe state in between.
type blockingOp struct {
	ready  chan struct{}
	resume chan struct{}
}

func (blockingOp) Name() string { return "Blocking" }

func (b blockingOp) Compute(ctx *op.ComputeContext[float64]) op.Result[float64] {
	close(b.ready)
	<-b.resume

	if ctx.NumInputs() > 0 {
		return op.Outputs(op.OwnedOutput(ctx.Input(0).ReadView().ToOwned()))
	}

	out, _ := ndarray.New[float64]([]int{1}, []float64{0})

	return op.Outputs(op.OwnedOutput(out))
}

func (blockingOp) Grad(_ op.Tensor, inputs []op.Tensor, _ op.Tensor) []op.Tensor {
	return make([]op.Tensor, len(inputs))
}

func TestEvaluateSigmoidOfPlaceholder(t *testing.T) {
	g := graph.New[float64]()
	ph := g.NewPlaceholder([]int{1, 1})
	sig := g.NewComputed(ops.Sigmoid[float64]{}, graph.InputOf[float64](ph))

	results, err := eval.GraphEval(g, []*graph.Node[float64]{sig}, []graph.Feed[float64]{
		{PlaceholderID: ph.ID, View: feedView(t, []int{1, 1}, []float64{1})},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.True(t, results[0].Ok())
	require.InDelta(t, 0.7310586, results[0].Value.Data()[0], 1e-6)
}

func TestEvaluateConstant(t *testing.T) {
	g := graph.New[float64]()
	c, err := ndarray.New([]int{2}, []float64{4, 5})
	require.NoError(t, err)

	node := g.NewConstant(c)

	results, err := eval.GraphEval(g, []*graph.Node[float64]{node}, nil)
	require.NoError(t, err)
	require.True(t, results[0].Ok())
	require.Equal(t, []float64{4, 5}, results[0].Value.Data())
}

func TestEvaluateVariableIdempotentAcrossCalls(t *testing.T) {
	g := graph.New[float64]()
	init, err := ndarray.New([]int{2}, []float64{1, 2})
	require.NoError(t, err)

	v := g.NewVariable(init)

	r1, err := eval.NodeEval(g, v, nil)
	require.NoError(t, err)
	r2, err := eval.NodeEval(g, v, nil)
	require.NoError(t, err)

	require.Equal(t, r1.Value.Data(), r2.Value.Data())

	// Mutating the returned clone must not affect the variable's storage.
	r1.Value.Data()[0] = 999

	r3, err := eval.NodeEval(g, v, nil)
	require.NoError(t, err)
	require.Equal(t, []float64{1, 2}, r3.Value.Data())
}

func TestEvaluatePlaceholderUnfilledPanics(t *testing.T) {
	g := graph.New[float64]()
	ph := g.NewPlaceholder(nil)

	require.Panics(t, func() {
		_, _ = eval.NodeEval(g, ph, nil)
	})
}

func TestEvaluateFeedShapeMismatchErrors(t *testing.T) {
	g := graph.New[float64]()
	ph := g.NewPlaceholder([]int{2, 2})

	_, err := eval.NodeEval(g, ph, []graph.Feed[float64]{
		{PlaceholderID: ph.ID, View: feedView(t, []int{3}, []float64{1, 2, 3})},
	})
	require.Error(t, err)
}

func TestEvaluateStopGradientEqualsUnderlyingValue(t *testing.T) {
	g := graph.New[float64]()
	ph := g.NewPlaceholder([]int{3})
	sg := g.NewComputed(ops.StopGradient[float64]{}, graph.InputOf[float64](ph))

	feeds := []graph.Feed[float64]{
		{PlaceholderID: ph.ID, View: feedView(t, []int{3}, []float64{1, 2, 3})},
	}

	direct, err := eval.NodeEval(g, ph, feeds)
	require.NoError(t, err)
	barrier, err := eval.NodeEval(g, sg, feeds)
	require.NoError(t, err)

	require.Equal(t, direct.Value.Data(), barrier.Value.Data())
}

func TestEvaluateErrorIsolationAcrossSiblingTargets(t *testing.T) {
	g := graph.New[float64]()
	ph := g.NewPlaceholder([]int{1, 3})

	bad := g.NewComputed(ops.Squeeze[float64]{Axes: []int{1}}, graph.InputOf[float64](ph))
	good := g.NewComputed(ops.Sigmoid[float64]{}, graph.InputOf[float64](ph))

	feeds := []graph.Feed[float64]{
		{PlaceholderID: ph.ID, View: feedView(t, []int{1, 3}, []float64{1, 2, 3})},
	}

	results, err := eval.GraphEval(g, []*graph.Node[float64]{bad, good}, feeds)
	require.NoError(t, err)
	require.Len(t, results, 2)

	require.False(t, results[0].Ok())
	require.True(t, results[1].Ok())
}

func TestEvaluateSharedSubgraphComputedOnce(t *testing.T) {
	g := graph.New[float64]()
	ph := g.NewPlaceholder([]int{2, 2})

	calls := 0
	shared := g.NewComputed(countingOp{calls: &calls, inner: ops.Sigmoid[float64]{}}, graph.InputOf[float64](ph))
	left := g.NewComputed(ops.ReduceSum[float64]{}, graph.InputOf[float64](shared))
	right := g.NewComputed(ops.ReduceSum[float64]{Axes: []int{0}}, graph.InputOf[float64](shared))

	feeds := []graph.Feed[float64]{
		{PlaceholderID: ph.ID, View: feedView(t, []int{2, 2}, []float64{0, 1, 2, 3})},
	}

	results, err := eval.GraphEval(g, []*graph.Node[float64]{left, right}, feeds)
	require.NoError(t, err)
	require.True(t, results[0].Ok())
	require.True(t, results[1].Ok())
	require.Equal(t, 1, calls, "shared node must be computed at most once per eval call regardless of fan-out")
}

// TestEvaluateHoldsVariableLockForWholeCall proves the lock-lifetime fix:
// a node reading a variable through a non-mutable edge takes the
// variable's read lock, and that lock must stay held until the whole
// Evaluate call — including a later, unrelated target's DFS and both
// targets' extraction — has finished, not just until the consuming
// Compute call returns.
//
// Two gated targets pin the two ends of the window this test inspects:
// gateA depends on the variable and is unblocked first, so its Compute
// call returns while gateB (which reads only a constant) is still blocked,
// holding the whole Evaluate call open without touching the variable
// again. A regression that released the guard as soon as gateA's Compute
// returned (the prior behavior) would let a concurrent writer take the
// variable's lock during that window; the fix keeps it held until gateB
// is released and the call completes.
func TestEvaluateHoldsVariableLockForWholeCall(t *testing.T) {
	g := graph.New[float64]()
	init, err := ndarray.New([]int{1}, []float64{1})
	require.NoError(t, err)

	v := g.NewVariable(init)

	readyA, resumeA := make(chan struct{}), make(chan struct{})
	readyB, resumeB := make(chan struct{}), make(chan struct{})

	gateA := g.NewComputed(blockingOp{ready: readyA, resume: resumeA}, graph.InputOf[float64](v))

	c, err := ndarray.New([]int{1}, []float64{0})
	require.NoError(t, err)

	gateB := g.NewComputed(blockingOp{ready: readyB, resume: resumeB}, graph.InputOf[float64](g.NewConstant(c)))

	type outcome struct {
		results []eval.Result[float64]
		err     error
	}

	done := make(chan outcome, 1)

	go func() {
		results, err := eval.GraphEval(g, []*graph.Node[float64]{gateA, gateB}, nil)
		done <- outcome{results: results, err: err}
	}()

	<-readyA
	close(resumeA)
	<-readyB

	lockAcquired := make(chan struct{})

	go func() {
		arr := v.Variable.Lock()
		arr.Data()[0] = 999
		v.Variable.Unlock()
		close(lockAcquired)
	}()

	select {
	case <-lockAcquired:
		t.Fatal("writer acquired the variable's lock before the evaluation call holding its read guard had completed")
	case <-time.After(20 * time.Millisecond):
	}

	close(resumeB)

	out := <-done
	require.NoError(t, out.err)
	require.True(t, out.results[0].Ok())
	require.True(t, out.results[1].Ok())

	select {
	case <-lockAcquired:
	case <-time.After(time.Second):
		t.Fatal("writer never acquired the variable's lock after the evaluation call completed")
	}
}

// TestEvaluateMultiOutputAddressingViaInputAt exercises graph.InputAt end
// to end: ops.Split produces two output slots from one placeholder feed,
// and a downstream node reads specifically the second slot.
func TestEvaluateMultiOutputAddressingViaInputAt(t *testing.T) {
	g := graph.New[float64]()
	ph := g.NewPlaceholder([]int{4})
	split := g.NewComputed(ops.Split[float64]{}, graph.InputOf[float64](ph))
	secondHalfSum := g.NewComputed(ops.ReduceSum[float64]{}, graph.InputAt[float64](split, 1))

	feeds := []graph.Feed[float64]{
		{PlaceholderID: ph.ID, View: feedView(t, []int{4}, []float64{1, 2, 3, 4})},
	}

	result, err := eval.NodeEval(g, secondHalfSum, feeds)
	require.NoError(t, err)
	require.True(t, result.Ok())
	require.Equal(t, []float64{7}, result.Value.Data())
}

func TestBatchFluentAccumulation(t *testing.T) {
	g := graph.New[float64]()
	c1, err := ndarray.New([]int{1}, []float64{1})
	require.NoError(t, err)
	c2, err := ndarray.New([]int{1}, []float64{2})
	require.NoError(t, err)

	n1 := g.NewConstant(c1)
	n2 := g.NewConstant(c2)

	results, err := eval.NewBatch(g).Push(n1).Push(n2).Run()
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, []float64{1}, results[0].Value.Data())
	require.Equal(t, []float64{2}, results[1].Value.Data())
}
