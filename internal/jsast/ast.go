// Package jsast is the small JavaScript syntax tree litdraw generates, and
// the printer that turns it back into source text.
//
// Statements that came from embedded script blocks are kept verbatim as
// RawStmt, except imports which are structured so the compiler can inspect
// and extend them.
package jsast

type Module struct {
	Body []Stmt
}

type Stmt interface {
	stmt()
}

type Expr interface {
	expr()
}

// ImportSpecifier is one `Imported as Local` entry of a named import.
type ImportSpecifier struct {
	Imported string
	Local    string
}

type ImportDecl struct {
	Source string
	// Default is the default binding, empty if absent
	Default string
	// Namespace is the `* as X` binding, empty if absent
	Namespace  string
	Specifiers []ImportSpecifier
	// Attributes is the attribute clause as written, e.g. `with { type: "json" }`
	Attributes string
	Line       int
}

// Locals returns the names the import binds in module scope, in
// declaration order.
func (d *ImportDecl) Locals() []string {
	var names []string
	if d.Default != "" {
		names = append(names, d.Default)
	}
	if d.Namespace != "" {
		names = append(names, d.Namespace)
	}
	for _, s := range d.Specifiers {
		names = append(names, s.Local)
	}
	return names
}

// Imports reports whether a named specifier binds local.
func (d *ImportDecl) Imports(local string) bool {
	for _, s := range d.Specifiers {
		if s.Local == local {
			return true
		}
	}
	return false
}

// RawStmt is a top-level statement printed exactly as written.
type RawStmt struct {
	// Kind is the parser's node type, e.g. lexical_declaration
	Kind   string
	Source string
	Line   int
}

type FuncDecl struct {
	Exported bool
	Name     string
	Params   []string
	// Result is the returned expression
	Result Expr
}

func (*ImportDecl) stmt() {}
func (*RawStmt) stmt()    {}
func (*FuncDecl) stmt()   {}

type StringLit struct {
	Value string
}

type Ident struct {
	Name string
}

// Parsed is an expression taken from document source. Kind is the parser's
// node type, e.g. binary_expression, and Source its text.
type Parsed struct {
	Kind   string
	Source string
}

type Array struct {
	Elems []Expr
}

type Prop struct {
	Key   string
	Value Expr
}

type Object struct {
	Props []Prop
}

type Call struct {
	Callee Expr
	Args   []Expr
}

type New struct {
	Callee Expr
	Args   []Expr
}

// Concat joins Parts into one string at runtime.
type Concat struct {
	Parts []Expr
}

func (*StringLit) expr() {}
func (*Ident) expr()     {}
func (*Parsed) expr()    {}
func (*Array) expr()     {}
func (*Object) expr()    {}
func (*Call) expr()      {}
func (*New) expr()       {}
func (*Concat) expr()    {}

// Imports returns the module's import declarations in order.
func (m *Module) Imports() []*ImportDecl {
	var decls []*ImportDecl
	for _, s := range m.Body {
		if d, ok := s.(*ImportDecl); ok {
			decls = append(decls, d)
		}
	}
	return decls
}

// FindImport returns the first import declaration from source.
func (m *Module) FindImport(source string) (*ImportDecl, bool) {
	for _, d := range m.Imports() {
		if d.Source == source {
			return d, true
		}
	}
	return nil, false
}

// Prepend inserts s at the front of the module body.
func (m *Module) Prepend(s Stmt) {
	m.Body = append([]Stmt{s}, m.Body...)
}

// MergeImport folds the bindings of d into an earlier import of the same
// source and reports whether it did. Namespace imports and imports with
// differing attributes are never merged, since no single statement can
// carry both.
func (m *Module) MergeImport(d *ImportDecl) bool {
	for _, prev := range m.Imports() {
		if prev.Source != d.Source || prev.Attributes != d.Attributes {
			continue
		}
		if len(d.Locals()) == 0 {
			// side effect import of an already imported module
			return true
		}
		if prev.Namespace != "" || d.Namespace != "" {
			continue
		}
		switch {
		case d.Default == "" || d.Default == prev.Default:
		case prev.Default == "":
			prev.Default = d.Default
		default:
			prev.Specifiers = append(prev.Specifiers, ImportSpecifier{Imported: "default", Local: d.Default})
		}
		for _, s := range d.Specifiers {
			if !prev.Imports(s.Local) {
				prev.Specifiers = append(prev.Specifiers, s)
			}
		}
		return true
	}
	return false
}

// Append adds statements at the end of the module body.
func (m *Module) Append(s ...Stmt) {
	m.Body = append(m.Body, s...)
}
