package flowgraph

import (
	"errors"
	"fmt"
	"strings"
)

// Common sentinel errors
var (
	ErrDuplicateNode  = errors.New("duplicate node id")
	ErrDanglingLink   = errors.New("link references unknown node")
	ErrNegativeValue  = errors.New("negative magnitude")
	ErrNonFiniteValue = errors.New("non-finite magnitude")
	ErrEmptyID        = errors.New("empty id")
	ErrInvalidInput   = errors.New("invalid input")
)

// ConstructionError describes one defect found while building a graph.
type ConstructionError struct {
	Op      string // Stage that found the defect (e.g., "validate", "resolve")
	Entity  string // "node" or "link"
	Index   int    // Position of the entity in the descriptor
	ID      string // Node id or "source->target" for links
	Field   string // Offending field, if any
	Cause   error  // Underlying error
	Context string // Additional context
}

// Error implements the error interface.
func (e *ConstructionError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Entity != "" {
		fmt.Fprintf(&b, " %s[%d]", e.Entity, e.Index)
	}
	if e.ID != "" {
		fmt.Fprintf(&b, " %q", e.ID)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, " (field %s)", e.Field)
	}
	if e.Context != "" {
		fmt.Fprintf(&b, " (%s)", e.Context)
	}
	fmt.Fprintf(&b, ": %v", e.Cause)
	return b.String()
}

// Unwrap returns the underlying cause for error chain support.
func (e *ConstructionError) Unwrap() error {
	return e.Cause
}

// ErrorBuilder provides a fluent interface for building ConstructionErrors.
type ErrorBuilder struct {
	err ConstructionError
}

// NewError creates a new error builder for the given stage.
func NewError(op string) *ErrorBuilder {
	return &ErrorBuilder{err: ConstructionError{Op: op}}
}

// Node sets the entity to "node".
func (b *ErrorBuilder) Node(index int, id string) *ErrorBuilder {
	b.err.Entity = "node"
	b.err.Index = index
	b.err.ID = id
	return b
}

// Link sets the entity to "link".
func (b *ErrorBuilder) Link(index int, source, target string) *ErrorBuilder {
	b.err.Entity = "link"
	b.err.Index = index
	b.err.ID = source + "->" + target
	return b
}

// Field sets the offending field name.
func (b *ErrorBuilder) Field(name string) *ErrorBuilder {
	b.err.Field = name
	return b
}

// Context sets additional context information.
func (b *ErrorBuilder) Context(ctx string) *ErrorBuilder {
	b.err.Context = ctx
	return b
}

// Cause sets the underlying error cause.
func (b *ErrorBuilder) Cause(err error) *ErrorBuilder {
	b.err.Cause = err
	return b
}

// Build returns the constructed ConstructionError.
func (b *ErrorBuilder) Build() *ConstructionError {
	e := b.err
	return &e
}

// ConstructionErrors is every defect found in a rejected descriptor.
type ConstructionErrors []*ConstructionError

// Error implements the error interface.
func (es ConstructionErrors) Error() string {
	switch len(es) {
	case 0:
		return "graph construction failed"
	case 1:
		return "graph construction failed: " + es[0].Error()
	}
	return fmt.Sprintf("graph construction failed with %d errors: %v (and %d more)", len(es), es[0], len(es)-1)
}

// Unwrap exposes each defect to errors.Is and errors.As.
func (es ConstructionErrors) Unwrap() []error {
	out := make([]error, len(es))
	for i, e := range es {
		out[i] = e
	}
	return out
}

// Reasons returns a short reason label per defect, suitable for metric labels.
func (es ConstructionErrors) Reasons() []string {
	out := make([]string, 0, len(es))
	for _, e := range es {
		out = append(out, Reason(e))
	}
	return out
}

// Reason maps an error to a stable label.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrDuplicateNode):
		return "duplicate_node"
	case errors.Is(err, ErrDanglingLink):
		return "dangling_link"
	case errors.Is(err, ErrNegativeValue):
		return "negative_value"
	case errors.Is(err, ErrNonFiniteValue):
		return "non_finite_value"
	case errors.Is(err, ErrEmptyID):
		return "empty_id"
	default:
		return "invalid_input"
	}
}
