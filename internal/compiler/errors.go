package compiler

import (
	"errors"
	"fmt"
)

var (
	ErrStructural       = errors.New("structural error")
	ErrExpressionSyntax = errors.New("expression syntax error")
	ErrUnsupportedNode  = errors.New("unsupported node")
)

// StructuralError reports a document shape the compiler cannot lower, such
// as a script block nested inside another element.
type StructuralError struct {
	Line int
	Msg  string
}

func (e *StructuralError) Error() string {
	return withLine(e.Line, e.Msg)
}

func (e *StructuralError) Unwrap() error { return ErrStructural }

// ExpressionSyntaxError reports malformed code inside a `{...}` span or a
// script block. Line is the document line of the offending code.
type ExpressionSyntaxError struct {
	Line   int
	Source string
	Err    error
}

func (e *ExpressionSyntaxError) Error() string {
	if e.Source != "" {
		return withLine(e.Line, fmt.Sprintf("invalid expression %q: %v", e.Source, e.Err))
	}
	return withLine(e.Line, fmt.Sprintf("invalid script: %v", e.Err))
}

func (e *ExpressionSyntaxError) Unwrap() []error { return []error{ErrExpressionSyntax, e.Err} }

// UnsupportedNodeError reports a document node with no lowering.
type UnsupportedNodeError struct {
	Line int
	Kind string
}

func (e *UnsupportedNodeError) Error() string {
	return withLine(e.Line, fmt.Sprintf("unsupported %s node", e.Kind))
}

func (e *UnsupportedNodeError) Unwrap() error { return ErrUnsupportedNode }

func withLine(line int, msg string) string {
	if line > 0 {
		return fmt.Sprintf("line %d: %s", line, msg)
	}
	return msg
}

// LineOf returns the document line attached to a compile error, or 0.
func LineOf(err error) int {
	var se *StructuralError
	if errors.As(err, &se) {
		return se.Line
	}
	var ee *ExpressionSyntaxError
	if errors.As(err, &ee) {
		return ee.Line
	}
	var ue *UnsupportedNodeError
	if errors.As(err, &ue) {
		return ue.Line
	}
	return 0
}
