// Package graph builds the DAG of tensor nodes the evaluator walks: plain
// placeholders, reader-writer-locked variables, immutable constants, and
// computed nodes wired to an Op and a list of input edges. Adapted from the
// teacher's graph.Node/Parameter/Builder trio, generalized to the
// define-by-run evaluation model: node identity is a dense id assigned by
// the graph rather than an interface value, and persistent arrays carry
// their own locks instead of living behind a one-shot Forward/Backward
// replay.
package graph

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/zerfoo/evalcore/ndarray"
	"github.com/zerfoo/evalcore/op"
)

// Edge is one input wire of a computed node: which node produced the
// value, which of that node's output slots to read, and whether the
// consuming op will write through this input (valid only when the source
// is a variable).
type Edge struct {
	SourceID   int
	InputIndex int
	MutUsage   bool
}

// Variable owns a mutable array guarded by a reader-writer lock. It
// persists across evaluations; an evaluation call that reads or writes it
// takes the lock when it resolves the consuming op's inputs and holds it
// until that evaluation call returns.
type Variable[F ndarray.Float] struct {
	mu    sync.RWMutex
	array *ndarray.Array[F]
}

// NewVariable wraps an owned array as a lockable Variable.
func NewVariable[F ndarray.Float](a *ndarray.Array[F]) *Variable[F] {
	return &Variable[F]{array: a}
}

// RLock acquires the read lock and returns a view over the current data.
// The caller must call RUnlock when done.
func (v *Variable[F]) RLock() ndarray.View[F] {
	v.mu.RLock()

	return v.array.View()
}

// RUnlock releases a read lock acquired by RLock.
func (v *Variable[F]) RUnlock() { v.mu.RUnlock() }

// Lock acquires the write lock and returns the mutable backing array. The
// caller must call Unlock when done.
func (v *Variable[F]) Lock() *ndarray.Array[F] {
	v.mu.Lock()

	return v.array
}

// Unlock releases a write lock acquired by Lock.
func (v *Variable[F]) Unlock() { v.mu.Unlock() }

// Snapshot returns a read-locked deep copy of the current array.
func (v *Variable[F]) Snapshot() *ndarray.Array[F] {
	v.mu.RLock()
	defer v.mu.RUnlock()

	return v.array.Copy()
}

// Node is one entry of the DAG: exactly one of {placeholder, variable,
// constant, computed}.
type Node[F ndarray.Float] struct {
	ID                       int
	Op                       op.Op[F]
	InEdges                  []Edge
	IsPlaceholder            bool
	HasPersistentArray       bool
	Variable                 *Variable[F]
	Constant                 *ndarray.Array[F]
	ExpectedPlaceholderShape []int
}

// ValidateFeedShape compares shape against the node's declared placeholder
// shape. A dimension of -1 in the expected shape is a wildcard. Must be
// called, and must succeed, before the evaluator's DFS begins.
func (n *Node[F]) ValidateFeedShape(shape []int) error {
	expected := n.ExpectedPlaceholderShape
	if expected == nil {
		return nil
	}

	if len(expected) != len(shape) {
		return fmt.Errorf("%w: node %d expects rank %d, fed rank %d", ErrShapeMismatch, n.ID, len(expected), len(shape))
	}

	for i, d := range expected {
		if d == -1 {
			continue
		}

		if d != shape[i] {
			return fmt.Errorf("%w: node %d expects dim %d to be %d, fed %d", ErrShapeMismatch, n.ID, i, d, shape[i])
		}
	}

	return nil
}

// ClonePersistentArray returns a read-locked deep copy for variables and
// constants, and false for any other node kind.
func (n *Node[F]) ClonePersistentArray() (*ndarray.Array[F], bool) {
	if n.Variable != nil {
		return n.Variable.Snapshot(), true
	}

	if n.Constant != nil {
		return n.Constant.Copy(), true
	}

	return nil, false
}

// Feed binds a placeholder node id to a runtime view.
type Feed[F ndarray.Float] struct {
	PlaceholderID int
	View          ndarray.View[F]
}

// Graph owns node storage and dense id assignment for one DAG.
type Graph[F ndarray.Float] struct {
	id    uuid.UUID
	nodes []*Node[F]
}

// New creates an empty graph.
func New[F ndarray.Float]() *Graph[F] {
	return &Graph[F]{id: uuid.New()}
}

// ID returns the graph's process-unique identity. Nothing else in this
// module reads it; no error or panic message includes it.
func (g *Graph[F]) ID() uuid.UUID { return g.id }

// Nodes returns every node currently in the graph, in id order.
func (g *Graph[F]) Nodes() []*Node[F] { return g.nodes }

// Node returns the node with the given id, or nil if out of range.
func (g *Graph[F]) Node(id int) *Node[F] {
	if id < 0 || id >= len(g.nodes) {
		return nil
	}

	return g.nodes[id]
}

func (g *Graph[F]) add(n *Node[F]) *Node[F] {
	n.ID = len(g.nodes)
	g.nodes = append(g.nodes, n)

	return n
}

// NewPlaceholder adds a placeholder node with an optional expected shape
// (nil disables shape validation; a dimension of -1 is a wildcard).
func (g *Graph[F]) NewPlaceholder(expectedShape []int) *Node[F] {
	return g.add(&Node[F]{IsPlaceholder: true, ExpectedPlaceholderShape: expectedShape})
}

// NewVariable adds a variable node owning the given mutable array.
func (g *Graph[F]) NewVariable(a *ndarray.Array[F]) *Node[F] {
	return g.add(&Node[F]{HasPersistentArray: true, Variable: NewVariable(a)})
}

// NewConstant adds a constant node owning the given immutable array.
func (g *Graph[F]) NewConstant(a *ndarray.Array[F]) *Node[F] {
	return g.add(&Node[F]{HasPersistentArray: true, Constant: a})
}

// NewComputed adds a computed node wired to the given op and input edges.
func (g *Graph[F]) NewComputed(o op.Op[F], edges ...Edge) *Node[F] {
	return g.add(&Node[F]{Op: o, InEdges: edges})
}

// InputAt builds an Edge reading a specific output slot of the given
// source node.
func InputAt[F ndarray.Float](source *Node[F], index int) Edge {
	return Edge{SourceID: source.ID, InputIndex: index}
}

// InputOf builds an Edge reading output slot 0 of the given source node.
func InputOf[F ndarray.Float](source *Node[F]) Edge {
	return Edge{SourceID: source.ID}
}

// MutInput builds an Edge requesting write-through access to a variable
// node. The source must be a variable; the evaluator does not check this,
// and for any other kind of source it ignores the flag and resolves the
// input as a read-only view.
func MutInput[F ndarray.Float](source *Node[F]) Edge {
	return Edge{SourceID: source.ID, MutUsage: true}
}
