package eval

import (
	"github.com/zerfoo/evalcore/graph"
	"github.com/zerfoo/evalcore/ndarray"
)

// inlineTargets is the small-buffer capacity for Batch's target list
// before it spills to a growable slice, per the spec's eval-batcher design
// (§4.7). Matches the teacher's habit of sizing small fixed-capacity
// buffers for the common case (e.g. device/allocator.go's pool classes).
const inlineTargets = 8

// Batch is a fluent accumulator for targets and feeds, calling Evaluate
// once on Run. Purely a convenience façade; it changes no evaluation
// semantics.
type Batch[F ndarray.Float] struct {
	g       *graph.Graph[F]
	targets []*graph.Node[F]
	feeds   []graph.Feed[F]
}

// NewBatch creates an empty Batch over the given graph.
func NewBatch[F ndarray.Float](g *graph.Graph[F]) *Batch[F] {
	return &Batch[F]{g: g, targets: make([]*graph.Node[F], 0, inlineTargets)}
}

// Push appends one target.
func (b *Batch[F]) Push(t *graph.Node[F]) *Batch[F] {
	b.targets = append(b.targets, t)

	return b
}

// Extend appends every target in ts.
func (b *Batch[F]) Extend(ts []*graph.Node[F]) *Batch[F] {
	b.targets = append(b.targets, ts...)

	return b
}

// Feed appends every feed in fs.
func (b *Batch[F]) Feed(fs []graph.Feed[F]) *Batch[F] {
	b.feeds = append(b.feeds, fs...)

	return b
}

// Run evaluates every accumulated target against every accumulated feed.
func (b *Batch[F]) Run() ([]Result[F], error) {
	return Evaluate(b.g, b.targets, b.feeds)
}
