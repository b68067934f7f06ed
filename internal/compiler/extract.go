package compiler

import (
	"errors"
	"log/slog"

	"github.com/jwtly10/litdraw/internal/doctree"
	"github.com/jwtly10/litdraw/internal/script"
)

// ScriptTag is the element name reserved for embedded code blocks.
const ScriptTag = "script"

// ExtractScripts appends the contents of every script element directly below
// root to prog, in document order, and returns a copy of root without those
// elements. Script elements deeper in the tree are left for the synthesizer
// to reject.
func ExtractScripts(root *doctree.Node, prog *script.Program) (*doctree.Node, error) {
	out := &doctree.Node{Kind: root.Kind, Line: root.Line}

	blocks := 0
	for _, child := range root.Children {
		if !child.IsElement(ScriptTag) {
			out.Children = append(out.Children, child.Clone())
			continue
		}

		src, err := scriptSource(child)
		if err != nil {
			return nil, err
		}

		mode := script.ModeScript
		if typ, ok := child.Attr("type"); ok {
			mode = script.ModeFromType(typ.String())
		}

		if err := prog.AppendAt(src, mode, child.Line); err != nil {
			return nil, &ExpressionSyntaxError{Line: scriptLine(child, err), Err: err}
		}

		blocks++
	}

	slog.Debug("extracted script blocks", "blocks", blocks)
	return out, nil
}

// scriptSource returns the code inside a script element. Anything other
// than text inside it is a nesting error.
func scriptSource(n *doctree.Node) (string, error) {
	var src []byte
	for _, c := range n.Children {
		switch {
		case c.Kind == doctree.KindText:
			src = append(src, c.Value...)
		case c.IsElement(ScriptTag):
			return "", &StructuralError{Line: lineOr(c.Line, n.Line), Msg: "nested <script> elements are not supported"}
		default:
			return "", &StructuralError{Line: lineOr(c.Line, n.Line), Msg: "<script> may only contain code"}
		}
	}
	return string(src), nil
}

// scriptLine maps a syntax error inside a script block to a document line.
// The code starts on the same line as the opening tag.
func scriptLine(n *doctree.Node, err error) int {
	if n.Line == 0 {
		return 0
	}
	var se *script.SyntaxError
	if !errors.As(err, &se) {
		return n.Line
	}
	return n.Line + se.Line - 1
}

func lineOr(line, fallback int) int {
	if line > 0 {
		return line
	}
	return fallback
}
