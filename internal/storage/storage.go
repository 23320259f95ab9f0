// Package storage is the per-eval compute cache: two disjoint buckets of
// produced arrays (owned) and views (non-owning aliases), addressed
// through a small ValueInfo handle so downstream ops can resolve a
// (kind, key) pair in O(1) without knowing which bucket produced a value.
// Adapted from the teacher's single memo map (graph.Graph.memo) — split
// into owned/view buckets because the evaluator's move-out-at-delivery and
// clone-at-delivery rules differ by storage kind (spec §4.3, §9's "arena
// with stable integer keys" alternative).
package storage

import (
	"github.com/zerfoo/evalcore/ndarray"
	"github.com/zerfoo/evalcore/op"
)

// Kind discriminates what a ValueInfo addresses.
type Kind int

const (
	// Owned addresses an entry in the owned bucket.
	Owned Kind = iota
	// View addresses an entry in the views bucket.
	View
	// Empty is a sentinel: the slot exists but carries no data.
	Empty
)

// ValueInfo is a storage handle: which bucket, and which index within it.
type ValueInfo struct {
	Kind Kind
	Key  int
}

// Store is the compute-cache for one evaluator call. It also outlives the
// individual Compute calls that populate it for another reason: a View
// entry can alias a Variable's backing storage (an op that returns a
// no-copy view of a read-locked or write-locked input), so the lock that
// guards that storage must stay held for as long as the view remains
// reachable through this Store, not merely for the duration of the
// Compute call that produced it. guards carries those lock-release
// functions; the evaluator releases them only once, after every target
// has been extracted (spec §9's "keep the guard alive as part of the
// storage entry" resolution, §8 testable property 7).
type Store[F ndarray.Float] struct {
	owned  []*ndarray.Array[F]
	views  []ndarray.View[F]
	guards []func()
}

// New builds an empty Store, pre-sizing both buckets off nodeHint (the
// node count of the graph being evaluated) the way the teacher's builder
// pre-sizes its node slice.
func New[F ndarray.Float](nodeHint int) *Store[F] {
	return &Store[F]{
		owned: make([]*ndarray.Array[F], 0, nodeHint),
		views: make([]ndarray.View[F], 0, nodeHint),
	}
}

// AddGuards adopts lock-release functions acquired while resolving a
// node's inputs. The Store — not the aggregator — now owns releasing
// them, since a View built from the guarded data may still be installed
// as a node's output and read again later in this same evaluation call.
func (s *Store[F]) AddGuards(guards []func()) {
	s.guards = append(s.guards, guards...)
}

// ReleaseGuards releases every adopted lock, in reverse acquisition
// order, per the spec's lock-ordering rule. Must be called exactly once,
// after every target of the evaluation call has been extracted — never
// earlier, or a still-live View could be read past its guard's lifetime.
func (s *Store[F]) ReleaseGuards() {
	for i := len(s.guards) - 1; i >= 0; i-- {
		s.guards[i]()
	}

	s.guards = nil
}

// PutOwned appends an owned array and returns its ValueInfo.
func (s *Store[F]) PutOwned(a *ndarray.Array[F]) ValueInfo {
	s.owned = append(s.owned, a)

	return ValueInfo{Kind: Owned, Key: len(s.owned) - 1}
}

// PutView appends a view and returns its ValueInfo.
func (s *Store[F]) PutView(v ndarray.View[F]) ValueInfo {
	s.views = append(s.views, v)

	return ValueInfo{Kind: View, Key: len(s.views) - 1}
}

// ViewOf resolves a View-kind ValueInfo. Cloning (if needed by the caller)
// is the caller's responsibility — the stored view itself is never copied
// here, matching the spec's "cloned on delivery" rule, which applies only
// at final result extraction, not at every intermediate read.
func (s *Store[F]) ViewOf(v ValueInfo) ndarray.View[F] {
	return s.views[v.Key]
}

// OwnedRef returns a reference to an owned entry without taking it. Used
// by downstream ops that merely read the value (the spec's "view into
// storage.owned[key]" aggregation path).
func (s *Store[F]) OwnedRef(v ValueInfo) *ndarray.Array[F] {
	return s.owned[v.Key]
}

// TakeOwned moves an owned entry out of the store, leaving the slot nil so
// no later read can observe it again.
func (s *Store[F]) TakeOwned(v ValueInfo) *ndarray.Array[F] {
	a := s.owned[v.Key]
	s.owned[v.Key] = nil

	return a
}

// NodeResult is the outcome recorded for one node: either its ordered list
// of output handles, or the op error that aborted it (never both).
type NodeResult[F ndarray.Float] struct {
	Outputs []ValueInfo
	Err     *op.OpError
}

// NodeInfoMap maps node id to its recorded NodeResult for one eval call.
type NodeInfoMap[F ndarray.Float] map[int]NodeResult[F]
