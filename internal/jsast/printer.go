package jsast

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"
)

const indentUnit = "  "

var identRegex = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// primaryKinds are parsed expression kinds that never need parentheses when
// placed in an argument, element or property position.
var primaryKinds = map[string]bool{
	"identifier":               true,
	"number":                   true,
	"string":                   true,
	"template_string":          true,
	"true":                     true,
	"false":                    true,
	"null":                     true,
	"undefined":                true,
	"this":                     true,
	"regex":                    true,
	"array":                    true,
	"object":                   true,
	"member_expression":        true,
	"subscript_expression":     true,
	"call_expression":          true,
	"parenthesized_expression": true,
}

// Print writes m as JavaScript source to w. The same module always prints
// to the same text.
func Print(w io.Writer, m *Module) error {
	var p printer
	p.module(m)
	_, err := w.Write(p.buf.Bytes())
	return err
}

// String returns the printed source of m.
func String(m *Module) string {
	var p printer
	p.module(m)
	return p.buf.String()
}

// ExprString returns the printed source of a single expression at the top
// indentation level.
func ExprString(e Expr) string {
	var p printer
	p.expr(e, 0)
	return p.buf.String()
}

type printer struct {
	buf bytes.Buffer
}

func (p *printer) write(s string) {
	p.buf.WriteString(s)
}

func (p *printer) indent(level int) {
	p.write(strings.Repeat(indentUnit, level))
}

func (p *printer) module(m *Module) {
	var prev Stmt
	for _, s := range m.Body {
		if prev != nil && needsBlankLine(prev, s) {
			p.write("\n")
		}
		p.stmt(s)
		p.write("\n")
		prev = s
	}
}

func needsBlankLine(prev, cur Stmt) bool {
	if _, ok := cur.(*FuncDecl); ok {
		return true
	}
	_, prevImport := prev.(*ImportDecl)
	_, curImport := cur.(*ImportDecl)
	return prevImport != curImport
}

func (p *printer) stmt(s Stmt) {
	switch s := s.(type) {
	case *ImportDecl:
		p.importDecl(s)
	case *RawStmt:
		p.write(strings.TrimRight(s.Source, " \t\r\n"))
	case *FuncDecl:
		if s.Exported {
			p.write("export ")
		}
		p.write("function " + s.Name + "(" + strings.Join(s.Params, ", ") + ") {\n")
		p.indent(1)
		p.write("return ")
		p.expr(s.Result, 1)
		p.write(";\n}")
	default:
		panic(fmt.Sprintf("jsast: unknown statement %T", s))
	}
}

func (p *printer) importDecl(d *ImportDecl) {
	var parts []string
	if d.Default != "" {
		parts = append(parts, d.Default)
	}
	if d.Namespace != "" {
		parts = append(parts, "* as "+d.Namespace)
	}
	if len(d.Specifiers) > 0 {
		names := make([]string, 0, len(d.Specifiers))
		for _, s := range d.Specifiers {
			if s.Imported == s.Local || s.Imported == "" {
				names = append(names, s.Local)
			} else {
				names = append(names, s.Imported+" as "+s.Local)
			}
		}
		parts = append(parts, "{ "+strings.Join(names, ", ")+" }")
	}

	attrs := ""
	if d.Attributes != "" {
		attrs = " " + d.Attributes
	}
	if len(parts) == 0 {
		p.write("import " + Quote(d.Source) + attrs + ";")
		return
	}
	p.write("import " + strings.Join(parts, ", ") + " from " + Quote(d.Source) + attrs + ";")
}

func (p *printer) expr(e Expr, level int) {
	switch e := e.(type) {
	case *StringLit:
		p.write(Quote(e.Value))
	case *Ident:
		p.write(e.Name)
	case *Parsed:
		if primaryKinds[e.Kind] {
			p.write(e.Source)
		} else {
			p.write("(" + e.Source + ")")
		}
	case *Array:
		if len(e.Elems) == 0 {
			p.write("[]")
			return
		}
		p.write("[\n")
		for i, el := range e.Elems {
			p.indent(level + 1)
			p.expr(el, level+1)
			if i < len(e.Elems)-1 {
				p.write(",")
			}
			p.write("\n")
		}
		p.indent(level)
		p.write("]")
	case *Object:
		if len(e.Props) == 0 {
			p.write("{}")
			return
		}
		p.write("{ ")
		for i, prop := range e.Props {
			if i > 0 {
				p.write(", ")
			}
			p.write(propKey(prop.Key))
			p.write(": ")
			p.expr(prop.Value, level)
		}
		p.write(" }")
	case *Call:
		p.expr(e.Callee, level)
		p.args(e.Args, level)
	case *New:
		p.write("new ")
		p.expr(e.Callee, level)
		p.args(e.Args, level)
	case *Concat:
		p.write("[")
		for i, part := range e.Parts {
			if i > 0 {
				p.write(", ")
			}
			p.expr(part, level)
		}
		p.write(`].join("")`)
	default:
		panic(fmt.Sprintf("jsast: unknown expression %T", e))
	}
}

func (p *printer) args(args []Expr, level int) {
	p.write("(")
	for i, a := range args {
		if i > 0 {
			p.write(", ")
		}
		p.expr(a, level)
	}
	p.write(")")
}

func propKey(key string) string {
	if identRegex.MatchString(key) {
		return key
	}
	return Quote(key)
}

// Quote returns s as a double quoted JavaScript string literal.
func Quote(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		// encoding a string cannot fail
		panic(err)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}
