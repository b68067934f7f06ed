package jsast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintImports(t *testing.T) {
	tests := []struct {
		name string
		decl *ImportDecl
		want string
	}{
		{
			name: "side effect import",
			decl: &ImportDecl{Source: "./style.css"},
			want: `import "./style.css";`,
		},
		{
			name: "default import",
			decl: &ImportDecl{Source: "./foo.js", Default: "Foo"},
			want: `import Foo from "./foo.js";`,
		},
		{
			name: "namespace import",
			decl: &ImportDecl{Source: "./ui.js", Namespace: "UI"},
			want: `import * as UI from "./ui.js";`,
		},
		{
			name: "default and named with alias",
			decl: &ImportDecl{
				Source:  "./ui.js",
				Default: "Card",
				Specifiers: []ImportSpecifier{
					{Imported: "Button", Local: "Button"},
					{Imported: "Box", Local: "Panel"},
				},
			},
			want: `import Card, { Button, Box as Panel } from "./ui.js";`,
		},
		{
			name: "import attributes",
			decl: &ImportDecl{Source: "./data.json", Default: "data", Attributes: `with { type: "json" }`},
			want: `import data from "./data.json" with { type: "json" };`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := String(&Module{Body: []Stmt{tt.decl}})
			assert.Equal(t, tt.want+"\n", got)
		})
	}
}

func TestPrintModule(t *testing.T) {
	m := &Module{
		Body: []Stmt{
			&ImportDecl{Source: "litdraw/runtime", Specifiers: []ImportSpecifier{{Imported: "h", Local: "h"}}},
			&ImportDecl{Source: "./foo.js", Default: "Foo"},
			&RawStmt{Kind: "lexical_declaration", Source: "const title = \"Hi\";\n\n"},
			&FuncDecl{
				Exported: true,
				Name:     "draw",
				Params:   []string{"ctx"},
				Result: &Array{Elems: []Expr{
					&Call{
						Callee: &Ident{Name: "h"},
						Args: []Expr{
							&StringLit{Value: "div"},
							&Object{Props: []Prop{
								{Key: "class", Value: &StringLit{Value: "a b"}},
								{Key: "data-x", Value: &Concat{Parts: []Expr{
									&StringLit{Value: "n"},
									&Parsed{Kind: "binary_expression", Source: "1+1"},
								}}},
							}},
							&Array{Elems: []Expr{
								&StringLit{Value: "hello"},
								&New{Callee: &Ident{Name: "Foo"}, Args: []Expr{&Object{}}},
							}},
						},
					},
					&Parsed{Kind: "identifier", Source: "title"},
				}},
			},
		},
	}

	want := `import { h } from "litdraw/runtime";
import Foo from "./foo.js";

const title = "Hi";

export function draw(ctx) {
  return [
    h("div", { class: "a b", "data-x": ["n", (1+1)].join("") }, [
      "hello",
      new Foo({})
    ]),
    title
  ];
}
`
	require.Equal(t, want, String(m))
}

func TestPrintEmptyDraw(t *testing.T) {
	m := &Module{Body: []Stmt{
		&FuncDecl{Exported: true, Name: "draw", Params: []string{"ctx"}, Result: &Array{}},
	}}

	assert.Equal(t, "export function draw(ctx) {\n  return [];\n}\n", String(m))
}

func TestQuote(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "plain", want: `"plain"`},
		{in: "a \"quoted\" <b>", want: `"a \"quoted\" <b>"`},
		{in: "line\nbreak\ttab", want: `"line\nbreak\ttab"`},
		{in: "back\\slash", want: `"back\\slash"`},
		{in: "sep ", want: `"sep "`},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Quote(tt.in))
		})
	}
}

func TestModuleImportHelpers(t *testing.T) {
	foo := &ImportDecl{Source: "./foo.js", Default: "Foo", Specifiers: []ImportSpecifier{{Imported: "bar", Local: "Bar"}}}
	m := &Module{Body: []Stmt{
		&RawStmt{Source: "let a = 1"},
		foo,
	}}

	got, ok := m.FindImport("./foo.js")
	require.True(t, ok)
	assert.Same(t, foo, got)
	assert.Equal(t, []string{"Foo", "Bar"}, got.Locals())
	assert.True(t, got.Imports("Bar"))
	assert.False(t, got.Imports("bar"))

	_, ok = m.FindImport("./missing.js")
	assert.False(t, ok)

	m.Prepend(&ImportDecl{Source: "x"})
	assert.Len(t, m.Imports(), 2)
	assert.Equal(t, "x", m.Imports()[0].Source)
}

func TestModuleMergeImport(t *testing.T) {
	tests := []struct {
		name   string
		decl   *ImportDecl
		merged bool
		want   string
	}{
		{
			name:   "named into named",
			decl:   &ImportDecl{Source: "./ui.js", Specifiers: []ImportSpecifier{{Imported: "Box", Local: "Box"}}},
			merged: true,
			want:   `import { Card, Box } from "./ui.js";`,
		},
		{
			name:   "default into named",
			decl:   &ImportDecl{Source: "./ui.js", Default: "UI"},
			merged: true,
			want:   `import UI, { Card } from "./ui.js";`,
		},
		{
			name:   "side effect",
			decl:   &ImportDecl{Source: "./ui.js"},
			merged: true,
			want:   `import { Card } from "./ui.js";`,
		},
		{
			name: "namespace",
			decl: &ImportDecl{Source: "./ui.js", Namespace: "UI"},
			want: `import { Card } from "./ui.js";`,
		},
		{
			name: "other source",
			decl: &ImportDecl{Source: "./other.js", Default: "O"},
			want: `import { Card } from "./ui.js";`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Module{Body: []Stmt{
				&ImportDecl{Source: "./ui.js", Specifiers: []ImportSpecifier{{Imported: "Card", Local: "Card"}}},
			}}
			assert.Equal(t, tt.merged, m.MergeImport(tt.decl))
			assert.Equal(t, tt.want+"\n", String(m))
		})
	}
}
