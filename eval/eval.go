// Package eval drives forward evaluation of a graph: an iterative
// post-order DFS with memoization, heterogeneous input resolution, and
// per-target error isolation. This is the evaluator described by the
// evaluation core's specification — the hard part the rest of the module
// exists to support.
//
// Adapted from the teacher's graph.Graph.Forward, which precomputes one
// static topological order and replays it on every call. That fits a
// compiled-once neural network graph; it does not fit a define-by-run
// model where a call may only need a subgraph reachable from its targets,
// variables mutate between calls, and per-call (not per-graph) memoization
// is the correctness primitive. So Evaluate keeps the teacher's
// dependency-walk shape but replaces the static replay with an explicit
// (node, visited) stack, and replaces the teacher's single memo map with
// the storage/NodeInfoMap pair.
package eval

import (
	"fmt"

	"github.com/zerfoo/evalcore/graph"
	"github.com/zerfoo/evalcore/internal/aggregate"
	"github.com/zerfoo/evalcore/internal/storage"
	"github.com/zerfoo/evalcore/ndarray"
	"github.com/zerfoo/evalcore/op"
)

// EvalError is the user-visible failure for one requested target.
type EvalError struct {
	Op    *op.OpError
	Empty bool
}

func (e *EvalError) Error() string {
	if e.Empty {
		return "eval: target's primary output is empty"
	}

	return fmt.Sprintf("eval: %s", e.Op.Error())
}

// Result is the outcome for one requested target: either an owned array or
// an EvalError, never both.
type Result[F ndarray.Float] struct {
	Value *ndarray.Array[F]
	Err   *EvalError
}

// Ok reports whether this result succeeded.
func (r Result[F]) Ok() bool { return r.Err == nil }

// frame is one entry of the evaluator's explicit DFS stack.
type frame[F ndarray.Float] struct {
	node    *graph.Node[F]
	visited bool
}

// Evaluate runs one forward evaluation pass: it validates feed shapes,
// walks the DAG from targets in post-order, computes each unresolved node
// at most once, and returns one Result per target, in target order.
// Sibling targets are independent: a failure in one never prevents success
// for another that does not transitively depend on it.
func Evaluate[F ndarray.Float](g *graph.Graph[F], targets []*graph.Node[F], feeds []graph.Feed[F]) ([]Result[F], error) {
	if err := validateFeeds(g, feeds); err != nil {
		return nil, err
	}

	store := storage.New[F](len(g.Nodes()))
	defer store.ReleaseGuards()

	nodeInfo := make(storage.NodeInfoMap[F], len(g.Nodes()))

	for _, t := range targets {
		runDFS(g, t, feeds, store, nodeInfo)
	}

	results := make([]Result[F], len(targets))
	for i, t := range targets {
		results[i] = extract(t, feeds, store, nodeInfo)
	}

	return results, nil
}

// validateFeeds enforces every fed placeholder's declared shape before DFS
// begins, per the spec's feed-validation-is-early rule (§4.2, §7). If two
// feeds name the same placeholder id, the first (in feed order) is the one
// checked and later used — an intentional undefined-but-deterministic
// choice callers should avoid relying on (spec §9 Open Question).
func validateFeeds[F ndarray.Float](g *graph.Graph[F], feeds []graph.Feed[F]) error {
	seen := make(map[int]bool, len(feeds))

	for _, f := range feeds {
		if seen[f.PlaceholderID] {
			continue
		}

		seen[f.PlaceholderID] = true

		n := g.Node(f.PlaceholderID)
		if n == nil {
			return fmt.Errorf("eval: feed references unknown node %d", f.PlaceholderID)
		}

		if err := n.ValidateFeedShape(f.View.Shape()); err != nil {
			return err
		}
	}

	return nil
}

// isResolved reports whether node n needs no further DFS push: it is
// already memoized, or it resolves without computation (placeholder or
// persistent-array node).
func isResolved[F ndarray.Float](n *graph.Node[F], nodeInfo storage.NodeInfoMap[F]) bool {
	if n.IsPlaceholder || n.HasPersistentArray {
		return true
	}

	_, ok := nodeInfo[n.ID]

	return ok
}

// runDFS walks the DAG rooted at target using an explicit stack, computing
// each unresolved node exactly once in post-order.
func runDFS[F ndarray.Float](g *graph.Graph[F], target *graph.Node[F], feeds []graph.Feed[F], store *storage.Store[F], nodeInfo storage.NodeInfoMap[F]) {
	if isResolved(target, nodeInfo) {
		return
	}

	stack := []frame[F]{{node: target}}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if top.visited {
			computeNode(g, top.node, feeds, store, nodeInfo)

			continue
		}

		if isResolved(top.node, nodeInfo) {
			continue
		}

		stack = append(stack, frame[F]{node: top.node, visited: true})

		for _, edge := range top.node.InEdges {
			src := g.Node(edge.SourceID)
			if !isResolved(src, nodeInfo) {
				stack = append(stack, frame[F]{node: src})
			}
		}
	}
}

// computeNode aggregates inputs, runs the op, and installs the result.
// Re-entrant calls for an already-resolved node (a race between multiple
// parents pushing the same child) are no-ops.
//
// Any variable locks aggregation acquired are not released here: a
// View-kind output can alias a locked variable's backing storage (e.g.
// ops.Squeeze reading straight off a non-mutable variable edge), and that
// alias may still be read by other nodes — or by extract — long after
// this Compute call returns. The locks are handed to the Store instead,
// which releases them only once the whole evaluation call is done.
func computeNode[F ndarray.Float](g *graph.Graph[F], n *graph.Node[F], feeds []graph.Feed[F], store *storage.Store[F], nodeInfo storage.NodeInfoMap[F]) {
	if isResolved(n, nodeInfo) {
		return
	}

	agg := aggregate.Aggregate(g, n, feeds, store, nodeInfo)

	if agg.Err != nil {
		nodeInfo[n.ID] = storage.NodeResult[F]{Err: agg.Err}

		return
	}

	result := n.Op.Compute(op.NewComputeContext(agg.Inputs))
	store.AddGuards(agg.TakeGuards())

	install(n, agg.Inputs, result, store, nodeInfo)
}

// install maps one Compute call's Result to NodeInfoMap entries, per the
// evaluator's install step.
func install[F ndarray.Float](n *graph.Node[F], inputs []op.Input[F], result op.Result[F], store *storage.Store[F], nodeInfo storage.NodeInfoMap[F]) {
	if result.DelegateTo != nil {
		k := *result.DelegateTo
		in := inputs[k]

		var info storage.ValueInfo
		if in.IsMutable {
			info = store.PutOwned(in.Mutable.Copy())
		} else {
			info = store.PutView(in.View)
		}

		nodeInfo[n.ID] = storage.NodeResult[F]{Outputs: []storage.ValueInfo{info}}

		return
	}

	if result.Err != nil {
		nodeInfo[n.ID] = storage.NodeResult[F]{Err: result.Err}

		return
	}

	if len(result.Outputs) == 0 {
		panic(fmt.Sprintf("eval: op %q at node %d returned zero outputs", n.Op.Name(), n.ID))
	}

	infos := make([]storage.ValueInfo, len(result.Outputs))

	for i, out := range result.Outputs {
		switch out.Kind {
		case op.Owned:
			infos[i] = store.PutOwned(out.Array)
		case op.ViewOut:
			infos[i] = store.PutView(out.View)
		default:
			infos[i] = storage.ValueInfo{Kind: storage.Empty}
		}
	}

	nodeInfo[n.ID] = storage.NodeResult[F]{Outputs: infos}
}

// extract reassembles one target's user-facing result from persistent
// storage, feeds, or NodeInfoMap, per the evaluator's extraction step.
func extract[F ndarray.Float](t *graph.Node[F], feeds []graph.Feed[F], store *storage.Store[F], nodeInfo storage.NodeInfoMap[F]) Result[F] {
	if a, ok := t.ClonePersistentArray(); ok {
		return Result[F]{Value: a}
	}

	if t.IsPlaceholder {
		for _, f := range feeds {
			if f.PlaceholderID == t.ID {
				return Result[F]{Value: f.View.ToOwned()}
			}
		}

		panic(&aggregate.ErrPlaceholderUnfilled{NodeID: t.ID})
	}

	res, ok := nodeInfo[t.ID]
	if !ok {
		panic(fmt.Sprintf("eval: target node %d was never resolved", t.ID))
	}

	if res.Err != nil {
		return Result[F]{Err: &EvalError{Op: res.Err}}
	}

	primary := res.Outputs[0]

	switch primary.Kind {
	case storage.Owned:
		return Result[F]{Value: store.TakeOwned(primary)}
	case storage.View:
		return Result[F]{Value: store.ViewOf(primary).ToOwned()}
	default:
		return Result[F]{Err: &EvalError{Empty: true}}
	}
}
