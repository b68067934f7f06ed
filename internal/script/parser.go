// Package script parses the JavaScript embedded in documents: the bodies of
// script blocks and the expressions inside `{...}` spans.
//
// Parsing uses the tree-sitter javascript grammar. A tree-sitter parser is
// created per call, so every function here is safe for concurrent use.
package script

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"

	"github.com/jwtly10/litdraw/internal/jsast"
)

type Mode int

const (
	// ModeScript is a classic script: no import or export statements
	ModeScript Mode = iota
	// ModeModule is an ES module
	ModeModule
)

func (m Mode) String() string {
	switch m {
	case ModeScript:
		return "script"
	case ModeModule:
		return "module"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ModeFromType maps the type attribute of a script tag to a program mode.
func ModeFromType(typ string) Mode {
	if strings.EqualFold(strings.TrimSpace(typ), "module") {
		return ModeModule
	}
	return ModeScript
}

// SyntaxError reports malformed embedded code. Line and Column are 1-based
// and relative to the parsed source.
type SyntaxError struct {
	Line   int
	Column int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Msg)
}

func parse(src []byte) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(javascript.GetLanguage())

	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	return tree, nil
}

// literalKinds are the nodes whose text is never read as code.
var literalKinds = map[string]bool{
	"string":          true,
	"template_string": true,
	"regex":           true,
	"comment":         true,
	"html_comment":    true,
}

// InLiteral reports whether byte offset of src falls inside a literal or a
// comment once src is parsed as JavaScript.
func InLiteral(src string, offset int) bool {
	content := []byte(src)
	tree, err := parse(content)
	if err != nil {
		slog.Debug("could not parse script text", "error", err)
		return false
	}
	defer tree.Close()

	at := uint32(offset)
	n := tree.RootNode()
	for n != nil {
		if literalKinds[n.Type()] {
			return true
		}
		var next *sitter.Node
		for i := 0; i < int(n.ChildCount()); i++ {
			if c := n.Child(i); c.StartByte() <= at && at < c.EndByte() {
				next = c
				break
			}
		}
		n = next
	}
	return false
}

// firstSyntaxError returns the first ERROR or MISSING node below n in
// document order, or nil if the subtree is clean.
func firstSyntaxError(n *sitter.Node, src []byte) *SyntaxError {
	if n == nil || !n.HasError() && !n.IsMissing() {
		return nil
	}

	if n.IsError() || n.IsMissing() {
		p := n.StartPoint()
		msg := "unexpected token"
		if n.IsMissing() {
			msg = fmt.Sprintf("missing %s", n.Type())
		} else if text := n.Content(src); text != "" && len(text) < 40 {
			msg = fmt.Sprintf("unexpected %q", text)
		}
		return &SyntaxError{Line: int(p.Row) + 1, Column: int(p.Column) + 1, Msg: msg}
	}

	for i := 0; i < int(n.ChildCount()); i++ {
		if e := firstSyntaxError(n.Child(i), src); e != nil {
			return e
		}
	}

	// HasError was set without a visible error node; report the subtree start.
	p := n.StartPoint()
	return &SyntaxError{Line: int(p.Row) + 1, Column: int(p.Column) + 1, Msg: "syntax error"}
}

// ParseExpression parses src as one standalone JavaScript expression.
func ParseExpression(src string) (*jsast.Parsed, error) {
	trimmed := strings.TrimSpace(src)
	if trimmed == "" {
		return nil, &SyntaxError{Line: 1, Column: 1, Msg: "empty expression"}
	}

	// The newline keeps a trailing line comment from swallowing the paren.
	wrapped := []byte("(" + src + "\n);")
	tree, err := parse(wrapped)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	root := tree.RootNode()
	if e := firstSyntaxError(root, wrapped); e != nil {
		if e.Line == 1 && e.Column > 1 {
			// account for the opening paren
			e.Column--
		}
		return nil, e
	}

	if root.NamedChildCount() != 1 || root.NamedChild(0).Type() != "expression_statement" {
		return nil, &SyntaxError{Line: 1, Column: 1, Msg: "not a single expression"}
	}

	stmt := root.NamedChild(0)
	paren := stmt.NamedChild(0)
	if paren == nil || paren.Type() != "parenthesized_expression" {
		return nil, &SyntaxError{Line: 1, Column: 1, Msg: "not a single expression"}
	}

	var inner *sitter.Node
	for i := 0; i < int(paren.NamedChildCount()); i++ {
		c := paren.NamedChild(i)
		if c.Type() == "comment" {
			continue
		}
		if inner != nil {
			return nil, &SyntaxError{Line: 1, Column: 1, Msg: "not a single expression"}
		}
		inner = c
	}
	if inner == nil {
		return nil, &SyntaxError{Line: 1, Column: 1, Msg: "empty expression"}
	}

	slog.Debug("parsed embedded expression", "kind", inner.Type(), "source", trimmed)

	return &jsast.Parsed{
		Kind:   inner.Type(),
		Source: strings.TrimSpace(inner.Content(wrapped)),
	}, nil
}
