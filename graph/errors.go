package graph

import "errors"

// ErrShapeMismatch is returned when a fed view's shape does not match a
// placeholder's declared expected shape.
var ErrShapeMismatch = errors.New("graph: feed shape mismatch")
