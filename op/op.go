// Package op defines the contract every evaluator-facing operation must
// satisfy: a name, a forward compute step operating on a ComputeContext,
// and a symbolic-gradient hook the evaluator itself never invokes.
package op

import (
	"fmt"

	"github.com/zerfoo/evalcore/ndarray"
)

// Kind classifies an OpError.
type Kind int

const (
	// Shape marks a shape-incompatibility failure.
	Shape Kind = iota
	// Type marks a dtype-incompatibility failure.
	Type
	// Other marks any other op-reported failure.
	Other
)

// OpError is the error value an Op's Compute may report. It is cloned (by
// value) when propagated to dependents, per the evaluator's error-isolation
// contract.
type OpError struct {
	Kind    Kind
	Op      string
	Message string
}

func (e *OpError) Error() string {
	return fmt.Sprintf("op %q: %s", e.Op, e.Message)
}

// Clone returns an independent copy of the error, suitable for installing
// at a second node's result without aliasing the original.
func (e *OpError) Clone() *OpError {
	if e == nil {
		return nil
	}

	c := *e

	return &c
}

// NewShapeError builds a Shape-kind OpError.
func NewShapeError(opName, format string, args ...any) *OpError {
	return &OpError{Kind: Shape, Op: opName, Message: fmt.Sprintf(format, args...)}
}

// NewTypeError builds a Type-kind OpError.
func NewTypeError(opName, format string, args ...any) *OpError {
	return &OpError{Kind: Type, Op: opName, Message: fmt.Sprintf(format, args...)}
}

// NewOtherError builds an Other-kind OpError.
func NewOtherError(opName, format string, args ...any) *OpError {
	return &OpError{Kind: Other, Op: opName, Message: fmt.Sprintf(format, args...)}
}

// OutputKind discriminates how an Op chose to produce one of its outputs.
type OutputKind int

const (
	// Owned means the op allocated and returned a fresh array.
	Owned OutputKind = iota
	// ViewOut means the op returned a view aliasing one of its inputs.
	ViewOut
	// EmptyOut means the op explicitly produced nothing for this slot.
	EmptyOut
)

// Output is one declared output slot of an Op's Compute call.
type Output[F ndarray.Float] struct {
	Kind  OutputKind
	Array *ndarray.Array[F]
	View  ndarray.View[F]
}

// OwnedOutput wraps an owned array as an Output.
func OwnedOutput[F ndarray.Float](a *ndarray.Array[F]) Output[F] {
	return Output[F]{Kind: Owned, Array: a}
}

// ViewOutput wraps a view as an Output.
func ViewOutput[F ndarray.Float](v ndarray.View[F]) Output[F] {
	return Output[F]{Kind: ViewOut, View: v}
}

// EmptyOutput is the sentinel for a slot an op declares but leaves empty.
func EmptyOutput[F ndarray.Float]() Output[F] {
	return Output[F]{Kind: EmptyOut}
}

// Result is the three-way outcome of one Compute call: a list of outputs,
// a hard failure, or a Delegate{to} redirect. Exactly one field is set.
type Result[F ndarray.Float] struct {
	Outputs    []Output[F]
	Err        *OpError
	DelegateTo *int
}

// Outputs builds a successful Result.
func Outputs[F ndarray.Float](outs ...Output[F]) Result[F] {
	return Result[F]{Outputs: outs}
}

// Fail builds a failing Result.
func Fail[F ndarray.Float](err *OpError) Result[F] {
	return Result[F]{Err: err}
}

// Delegate builds a Result instructing the evaluator to install input k
// verbatim as the op's single output.
func Delegate[F ndarray.Float](k int) Result[F] {
	return Result[F]{DelegateTo: &k}
}

// Input is one resolved input handed to a Compute call: either a read-only
// view, or — when the source edge declared mut_usage — a mutable array the
// op may write through, guarded by the lock the aggregator is holding.
type Input[F ndarray.Float] struct {
	View      ndarray.View[F]
	Mutable   *ndarray.Array[F]
	IsMutable bool
}

// ReadView returns the input's view, materializing one from the mutable
// array when the input was resolved as mutable.
func (in Input[F]) ReadView() ndarray.View[F] {
	if in.IsMutable {
		return in.Mutable.View()
	}

	return in.View
}

// ComputeContext is the op-author-facing surface for one Compute call.
type ComputeContext[F ndarray.Float] struct {
	inputs []Input[F]
}

// NewComputeContext builds a ComputeContext over the given resolved inputs.
func NewComputeContext[F ndarray.Float](inputs []Input[F]) *ComputeContext[F] {
	return &ComputeContext[F]{inputs: inputs}
}

// NumInputs returns the number of resolved inputs available.
func (c *ComputeContext[F]) NumInputs() int { return len(c.inputs) }

// Input returns the i-th resolved input.
func (c *ComputeContext[F]) Input(i int) Input[F] { return c.inputs[i] }

// Inputs returns every resolved input, in declared edge order.
func (c *ComputeContext[F]) Inputs() []Input[F] { return c.inputs }

// Tensor is an opaque handle to a graph node, as seen by Grad. The
// evaluator never invokes Grad; it exists purely as the symbolic-gradient
// contract collaborators (graph construction, outside this module's scope)
// build against.
type Tensor any

// Op is the contract every evaluator-facing operation implements.
type Op[F ndarray.Float] interface {
	// Name identifies the op for diagnostics. Never fails.
	Name() string

	// Compute runs the forward computation given resolved inputs.
	Compute(ctx *ComputeContext[F]) Result[F]

	// Grad returns one symbolic gradient tensor per input (nil entries mark
	// non-differentiable inputs). Not invoked by the evaluator.
	Grad(gy Tensor, inputs []Tensor, output Tensor) []Tensor
}
