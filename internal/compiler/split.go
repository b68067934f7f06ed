package compiler

import (
	"github.com/jwtly10/litdraw/internal/jsast"
	"github.com/jwtly10/litdraw/internal/script"
)

// Segment is either a literal string or a parsed expression.
type Segment struct {
	Literal string
	Expr    *jsast.Parsed
}

func (s Segment) IsExpr() bool {
	return s.Expr != nil
}

// findSpan locates the first balanced `{...}` span in s and returns the
// byte offsets of its opening and closing braces. A closing brace seen at
// depth zero is plain text.
func findSpan(s string) (start, end int, ok bool) {
	depth := 0
	start = -1
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				return start, i, true
			}
		}
	}
	return -1, -1, false
}

// SplitExpression splits value around its first `{...}` span into an
// optional literal prefix, the parsed expression and an optional literal
// suffix. Only the first span is extracted; later spans stay in the suffix
// as text. Without a balanced span the whole value is one literal segment.
//
// line is the document line used when reporting a malformed expression.
func SplitExpression(value string, line int) ([]Segment, error) {
	start, end, ok := findSpan(value)
	if !ok {
		return []Segment{{Literal: value}}, nil
	}

	src := value[start+1 : end]
	expr, err := script.ParseExpression(src)
	if err != nil {
		return nil, &ExpressionSyntaxError{Line: line, Source: src, Err: err}
	}

	var segments []Segment
	if prefix := value[:start]; prefix != "" {
		segments = append(segments, Segment{Literal: prefix})
	}
	segments = append(segments, Segment{Expr: expr})
	if suffix := value[end+1:]; suffix != "" {
		segments = append(segments, Segment{Literal: suffix})
	}
	return segments, nil
}

// lowerSegments turns segments into a single expression: a string literal,
// a bare expression, or a runtime join over all parts.
func lowerSegments(segments []Segment) jsast.Expr {
	if len(segments) == 1 {
		return segmentExpr(segments[0])
	}

	parts := make([]jsast.Expr, 0, len(segments))
	for _, s := range segments {
		parts = append(parts, segmentExpr(s))
	}
	return &jsast.Concat{Parts: parts}
}

func segmentExpr(s Segment) jsast.Expr {
	if s.IsExpr() {
		return s.Expr
	}
	return &jsast.StringLit{Value: s.Literal}
}
