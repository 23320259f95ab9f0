// Package aggregate resolves a node's input edges to concrete op.Input
// values before the evaluator invokes Compute: feeds for placeholders,
// lock-guarded views (or mutable arrays) for variables, plain views for
// constants, and storage lookups for computed upstream nodes. Adapted from
// the teacher's device/device.go registry-lock pattern, generalized to
// per-array granularity and carried in a per-call guard slice so locks
// outlive the op call that needs them (spec §9's "lock guards carried in
// an inline array" design note). Guards acquired on the success path are
// not released here: Result.TakeGuards hands them to the evaluator, which
// keeps them alive inside its Store for the rest of the evaluation call,
// since a View output can still alias a variable's backing storage long
// after the Compute call that produced it returns.
package aggregate

import (
	"fmt"

	"github.com/zerfoo/evalcore/graph"
	"github.com/zerfoo/evalcore/internal/storage"
	"github.com/zerfoo/evalcore/ndarray"
	"github.com/zerfoo/evalcore/op"
)

// ErrPlaceholderUnfilled is a structural error: a node declared as a
// placeholder was reached with no matching feed. This is a caller/graph
// construction bug, not a recoverable op failure.
type ErrPlaceholderUnfilled struct{ NodeID int }

func (e *ErrPlaceholderUnfilled) Error() string {
	return fmt.Sprintf("aggregate: placeholder node %d unfilled", e.NodeID)
}

// ErrEmptyOutputRead is a structural error: a computed node's input
// referenced an output slot that the producing op explicitly left Empty.
type ErrEmptyOutputRead struct {
	SourceNodeID int
	InputIndex   int
}

func (e *ErrEmptyOutputRead) Error() string {
	return fmt.Sprintf("aggregate: attempting to use node %d's output %d which is empty", e.SourceNodeID, e.InputIndex)
}

// ErrDoubleMutableEdge is a structural error: a node declared two mutable
// edges to the same variable, which would make aggregation take that
// variable's write lock a second time while already holding it and
// deadlock.
type ErrDoubleMutableEdge struct {
	NodeID     int
	VariableID int
}

func (e *ErrDoubleMutableEdge) Error() string {
	return fmt.Sprintf("aggregate: node %d requests two mutable edges to variable %d", e.NodeID, e.VariableID)
}

// releaser releases one variable lock acquired while aggregating.
type releaser func()

// Result is the outcome of aggregating one node's inputs: either a
// populated input list ready for Compute, or the first upstream OpError
// observed (short-circuit propagation, spec §4.4).
type Result[F ndarray.Float] struct {
	Inputs  []op.Input[F]
	Err     *op.OpError
	release []releaser
}

// Release unlocks every variable lock this aggregation acquired, in
// reverse acquisition order, per the spec's lock-ordering rule. Safe to
// call on a zero-value Result. Only the short-circuit error path uses
// this directly — the success path transfers guards to the evaluator's
// Store via TakeGuards instead, since the resolved views/inputs (and
// anything an op derives from them) must stay valid past this single
// Compute call, for as long as they remain reachable through the
// evaluation call's storage (spec §9's "keep the guard alive as part of
// the storage entry" resolution).
func (r *Result[F]) Release() {
	for i := len(r.release) - 1; i >= 0; i-- {
		r.release[i]()
	}

	r.release = nil
}

// TakeGuards transfers ownership of every lock-release function acquired
// during aggregation to the caller; Release becomes a no-op for them
// afterward. The caller (the evaluator) is responsible for invoking each
// one exactly once, no earlier than when the data it guards can no longer
// be read through this evaluation call.
func (r *Result[F]) TakeGuards() []func() {
	guards := r.release
	r.release = nil

	return guards
}

// Aggregate resolves every input edge of node n, in declared order, using
// g to look up each edge's source node. It stops at the first upstream
// error (short-circuit propagation) and panics on structural violations:
// unfilled placeholder, empty-slot read, or two mutable edges to the same
// variable within n's own input set.
func Aggregate[F ndarray.Float](g *graph.Graph[F], n *graph.Node[F], feeds []graph.Feed[F], store *storage.Store[F], nodeInfo storage.NodeInfoMap[F]) Result[F] {
	res := Result[F]{Inputs: make([]op.Input[F], 0, len(n.InEdges))}

	mutSeen := make(map[int]bool)

	for _, edge := range n.InEdges {
		if edge.MutUsage {
			if mutSeen[edge.SourceID] {
				panic(&ErrDoubleMutableEdge{NodeID: n.ID, VariableID: edge.SourceID})
			}

			mutSeen[edge.SourceID] = true
		}

		source := g.Node(edge.SourceID)

		in, opErr, release := resolveEdge(source, edge, feeds, store, nodeInfo)
		if release != nil {
			res.release = append(res.release, release)
		}

		if opErr != nil {
			res.Err = opErr

			res.Release()
			res.release = nil

			return res
		}

		res.Inputs = append(res.Inputs, in)
	}

	return res
}

func resolveEdge[F ndarray.Float](source *graph.Node[F], edge graph.Edge, feeds []graph.Feed[F], store *storage.Store[F], nodeInfo storage.NodeInfoMap[F]) (op.Input[F], *op.OpError, releaser) {
	switch {
	case source.IsPlaceholder:
		for _, f := range feeds {
			if f.PlaceholderID == source.ID {
				return op.Input[F]{View: f.View}, nil, nil
			}
		}

		panic(&ErrPlaceholderUnfilled{NodeID: source.ID})

	case source.Variable != nil:
		if edge.MutUsage {
			arr := source.Variable.Lock()

			return op.Input[F]{Mutable: arr, IsMutable: true}, nil, func() { source.Variable.Unlock() }
		}

		view := source.Variable.RLock()

		return op.Input[F]{View: view}, nil, func() { source.Variable.RUnlock() }

	case source.Constant != nil:
		return op.Input[F]{View: source.Constant.View()}, nil, nil

	default:
		result, ok := nodeInfo[source.ID]
		if !ok {
			panic(fmt.Sprintf("aggregate: node %d not yet resolved (evaluator post-order invariant violated)", source.ID))
		}

		if result.Err != nil {
			return op.Input[F]{}, result.Err.Clone(), nil
		}

		info := result.Outputs[edge.InputIndex]

		switch info.Kind {
		case storage.Owned:
			return op.Input[F]{View: store.OwnedRef(info).View()}, nil, nil
		case storage.View:
			return op.Input[F]{View: store.ViewOf(info)}, nil, nil
		default:
			panic(&ErrEmptyOutputRead{SourceNodeID: source.ID, InputIndex: edge.InputIndex})
		}
	}
}
