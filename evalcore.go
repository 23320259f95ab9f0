// Package evalcore provides a prelude of commonly used types for building
// and evaluating computation graphs. It lets callers use evalcore.Graph
// instead of graph.Graph, improving discoverability the way the teacher's
// own top-level prelude did for its package set.
package evalcore

import (
	"github.com/zerfoo/evalcore/eval"
	"github.com/zerfoo/evalcore/graph"
	"github.com/zerfoo/evalcore/ndarray"
	"github.com/zerfoo/evalcore/op"
)

type (
	// Graph represents a DAG of placeholders, variables, constants, and
	// computed nodes.
	Graph[F ndarray.Float] struct {
		*graph.Graph[F]
	}

	// Node is one entry of a Graph.
	Node[F ndarray.Float] = graph.Node[F]

	// Op is the contract every evaluator-facing operation implements.
	Op[F ndarray.Float] = op.Op[F]

	// Array is an owned, mutable n-dimensional array.
	Array[F ndarray.Float] = ndarray.Array[F]

	// Float is the element type constraint shared by every package in this
	// module.
	Float = ndarray.Float

	// Feed binds a placeholder node id to a runtime view.
	Feed[F ndarray.Float] = graph.Feed[F]

	// Result is the outcome of evaluating one target.
	Result[F ndarray.Float] = eval.Result[F]
)

// NewGraph creates an empty graph.
func NewGraph[F ndarray.Float]() *Graph[F] {
	return &Graph[F]{Graph: graph.New[F]()}
}

// Eval evaluates targets against feeds in g.
func Eval[F ndarray.Float](g *Graph[F], targets []*Node[F], feeds []Feed[F]) ([]Result[F], error) {
	return eval.Evaluate(g.Graph, targets, feeds)
}
