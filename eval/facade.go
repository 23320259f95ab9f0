package eval

import (
	"github.com/zerfoo/evalcore/graph"
	"github.com/zerfoo/evalcore/ndarray"
)

// GraphEval evaluates targets against feeds in the given graph. Equivalent
// to calling Evaluate directly; kept as a method-shaped free function so
// call sites read as `eval.GraphEval(g, targets, feeds)` the way the
// teacher's Graph.Forward reads as a graph-scoped verb.
func GraphEval[F ndarray.Float](g *graph.Graph[F], targets []*graph.Node[F], feeds []graph.Feed[F]) ([]Result[F], error) {
	return Evaluate(g, targets, feeds)
}

// NodeEval evaluates a single target node and returns its sole Result.
func NodeEval[F ndarray.Float](g *graph.Graph[F], target *graph.Node[F], feeds []graph.Feed[F]) (Result[F], error) {
	results, err := Evaluate(g, []*graph.Node[F]{target}, feeds)
	if err != nil {
		return Result[F]{}, err
	}

	return results[0], nil
}
