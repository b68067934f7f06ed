// Package compiler lowers a normalized document tree into a JavaScript
// module exporting a draw function.
//
// Compilation runs as a chain of passes, each returning a new tree:
//
//	ExtractScripts -> EnsureElementImport -> BuildImportTable -> Classify -> Synthesize
//
// The input tree is never modified.
package compiler

import (
	"log/slog"

	"github.com/jwtly10/litdraw/internal/doctree"
	"github.com/jwtly10/litdraw/internal/jsast"
	"github.com/jwtly10/litdraw/internal/script"
)

// Compile lowers root into a module. root must already be normalized: raw
// markup fragments have been re-parsed into elements.
func Compile(root *doctree.Node) (*jsast.Module, error) {
	if root == nil || root.Kind != doctree.KindRoot {
		return nil, &StructuralError{Msg: "document must have a root node"}
	}

	prog := script.NewProgram()
	tree, err := ExtractScripts(root, prog)
	if err != nil {
		return nil, err
	}

	if prog.Declared(DrawFunc) {
		return nil, &StructuralError{Line: lineOr(prog.DeclaredLine(DrawFunc), root.Line), Msg: "scripts may not declare \"" + DrawFunc + "\", it is generated"}
	}

	m := prog.Module()
	if prog.Declared(ElementPrimitive) && !ImportsElement(m) {
		return nil, &StructuralError{
			Line: lineOr(prog.DeclaredLine(ElementPrimitive), root.Line),
			Msg:  "scripts may not declare \"" + ElementPrimitive + "\" unless it is imported from \"" + RuntimeSource + "\"",
		}
	}
	EnsureElementImport(m)
	table := BuildImportTable(m)

	draw, err := Synthesize(Classify(tree, table))
	if err != nil {
		return nil, err
	}
	m.Append(draw)

	slog.Debug("compiled document", "statements", len(m.Body))
	return m, nil
}
