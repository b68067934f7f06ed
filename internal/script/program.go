package script

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jwtly10/litdraw/internal/jsast"
)

type binding int

const (
	bindingVar binding = iota
	bindingLexical
)

type declaration struct {
	binding binding
	// line is the document line of the declaring statement, 0 if unknown
	line int
}

// Program accumulates the statements of every script block in a document
// into one module. All blocks share a single top-level scope, so a lexical
// declaration in a later block may not redeclare a name from an earlier one.
type Program struct {
	module *jsast.Module
	scope  map[string]declaration
}

func NewProgram() *Program {
	return &Program{
		module: &jsast.Module{},
		scope:  make(map[string]declaration),
	}
}

// Module returns the module the program has accumulated so far.
func (p *Program) Module() *jsast.Module {
	return p.module
}

// Append parses src as top-level statements in the given mode and appends
// them to the program. Nothing is appended if src fails to parse.
func (p *Program) Append(src string, mode Mode) error {
	return p.AppendAt(src, mode, 0)
}

// AppendAt is Append for a block whose first line sits on document line
// firstLine. Declarations are recorded against document lines so later
// checks can point at them.
func (p *Program) AppendAt(src string, mode Mode, firstLine int) error {
	content := []byte(src)
	tree, err := parse(content)
	if err != nil {
		return err
	}
	defer tree.Close()

	root := tree.RootNode()
	if e := firstSyntaxError(root, content); e != nil {
		return e
	}

	var stmts []jsast.Stmt
	declared := make(map[string]declaration)
	docLine := func(line int) int {
		if firstLine == 0 {
			return 0
		}
		return firstLine + line - 1
	}

	for i := 0; i < int(root.NamedChildCount()); i++ {
		node := root.NamedChild(i)
		line := int(node.StartPoint().Row) + 1

		switch node.Type() {
		case "hash_bang_line":
			continue
		case "import_statement":
			if mode != ModeModule {
				return &SyntaxError{Line: line, Column: int(node.StartPoint().Column) + 1, Msg: "import declarations may only appear in module scripts"}
			}
			decl := importDecl(node, content)
			decl.Line = line
			for _, name := range decl.Locals() {
				if err := p.declare(declared, name, declaration{bindingLexical, docLine(line)}, node); err != nil {
					return err
				}
			}
			stmts = append(stmts, decl)
			continue
		case "export_statement":
			if mode != ModeModule {
				return &SyntaxError{Line: line, Column: int(node.StartPoint().Column) + 1, Msg: "export declarations may only appear in module scripts"}
			}
		}

		for _, d := range declaredNames(node, content) {
			if err := p.declare(declared, d.name, declaration{d.binding, docLine(line)}, node); err != nil {
				return err
			}
		}

		stmts = append(stmts, &jsast.RawStmt{
			Kind:   node.Type(),
			Source: node.Content(content),
			Line:   line,
		})
	}

	for name, d := range declared {
		p.scope[name] = d
	}
	merged := 0
	for _, s := range stmts {
		if d, ok := s.(*jsast.ImportDecl); ok && p.module.MergeImport(d) {
			merged++
			continue
		}
		p.module.Append(s)
	}

	slog.Debug("appended script block", "mode", mode.String(), "statements", len(stmts), "merged", merged, "total", len(p.module.Body))
	return nil
}

// declare records name in the pending block scope, failing when it clashes
// with an earlier declaration from this or a previous block.
func (p *Program) declare(pending map[string]declaration, name string, d declaration, node *sitter.Node) error {
	prev, ok := pending[name]
	if !ok {
		prev, ok = p.scope[name]
	}
	if ok && (prev.binding == bindingLexical || d.binding == bindingLexical) {
		pt := node.StartPoint()
		return &SyntaxError{
			Line:   int(pt.Row) + 1,
			Column: int(pt.Column) + 1,
			Msg:    fmt.Sprintf("identifier %s has already been declared", strconv.Quote(name)),
		}
	}
	if ok {
		// a var redeclaration keeps the first declaring line
		d.line = prev.line
	}
	pending[name] = d
	return nil
}

type declaredName struct {
	name    string
	binding binding
}

// declaredNames returns the simple identifiers a top-level statement binds.
// Destructuring patterns are not tracked.
func declaredNames(node *sitter.Node, content []byte) []declaredName {
	switch node.Type() {
	case "export_statement":
		if decl := node.ChildByFieldName("declaration"); decl != nil {
			return declaredNames(decl, content)
		}
		return nil
	case "lexical_declaration", "variable_declaration":
		b := bindingVar
		if node.Type() == "lexical_declaration" {
			b = bindingLexical
		}
		var names []declaredName
		for i := 0; i < int(node.NamedChildCount()); i++ {
			d := node.NamedChild(i)
			if d.Type() != "variable_declarator" {
				continue
			}
			if id := d.ChildByFieldName("name"); id != nil && id.Type() == "identifier" {
				names = append(names, declaredName{name: id.Content(content), binding: b})
			}
		}
		return names
	case "class_declaration":
		if id := node.ChildByFieldName("name"); id != nil {
			return []declaredName{{name: id.Content(content), binding: bindingLexical}}
		}
	case "function_declaration", "generator_function_declaration":
		if id := node.ChildByFieldName("name"); id != nil {
			return []declaredName{{name: id.Content(content), binding: bindingVar}}
		}
	}
	return nil
}

// importDecl converts an import_statement node into a structured import.
func importDecl(node *sitter.Node, content []byte) *jsast.ImportDecl {
	decl := &jsast.ImportDecl{}

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "import_clause":
			importClause(child, content, decl)
		case "string":
			decl.Source = stringContent(child, content)
			decl.Attributes = attributeClause(node, child, content)
		}
	}

	return decl
}

// attributeClause returns the text between the source string and the end of
// the statement, e.g. `with { type: "json" }`, or "" when there is none.
func attributeClause(stmt, source *sitter.Node, content []byte) string {
	tail := strings.TrimSpace(string(content[source.EndByte():stmt.EndByte()]))
	return strings.TrimSpace(strings.TrimSuffix(tail, ";"))
}

func importClause(node *sitter.Node, content []byte, decl *jsast.ImportDecl) {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "identifier":
			// import Foo from "x"
			decl.Default = child.Content(content)
		case "namespace_import":
			// import * as Foo from "x"
			for j := 0; j < int(child.NamedChildCount()); j++ {
				if gc := child.NamedChild(j); gc.Type() == "identifier" {
					decl.Namespace = gc.Content(content)
				}
			}
		case "named_imports":
			// import { a, b as C } from "x"
			for j := 0; j < int(child.NamedChildCount()); j++ {
				gc := child.NamedChild(j)
				if gc.Type() != "import_specifier" {
					continue
				}
				decl.Specifiers = append(decl.Specifiers, importSpecifier(gc, content))
			}
		}
	}
}

func importSpecifier(node *sitter.Node, content []byte) jsast.ImportSpecifier {
	var specifier jsast.ImportSpecifier
	if name := node.ChildByFieldName("name"); name != nil {
		specifier.Imported = identOrString(name, content)
	}
	if alias := node.ChildByFieldName("alias"); alias != nil {
		specifier.Local = alias.Content(content)
	} else {
		specifier.Local = specifier.Imported
	}
	return specifier
}

func identOrString(node *sitter.Node, content []byte) string {
	if node.Type() == "string" {
		return stringContent(node, content)
	}
	return node.Content(content)
}

// stringContent returns the value of a string literal node without quotes.
func stringContent(node *sitter.Node, content []byte) string {
	raw := node.Content(content)
	if v, err := strconv.Unquote(raw); err == nil {
		return v
	}
	if len(raw) >= 2 {
		return raw[1 : len(raw)-1]
	}
	return raw
}

// Declared reports whether any appended block bound name at top level.
func (p *Program) Declared(name string) bool {
	_, ok := p.scope[name]
	return ok
}

// DeclaredLine returns the document line of the statement that first bound
// name, or 0 when it is unknown or name is not bound.
func (p *Program) DeclaredLine(name string) int {
	return p.scope[name].line
}
