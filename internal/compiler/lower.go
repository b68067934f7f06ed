package compiler

import (
	"github.com/jwtly10/litdraw/internal/doctree"
	"github.com/jwtly10/litdraw/internal/jsast"
)

const (
	// DrawFunc is the name of the exported function generated modules provide.
	DrawFunc = "draw"
	// DrawParam is the single parameter of the draw function.
	DrawParam = "ctx"
)

// literalTags hold code, so text below them is never split into
// expressions. Their attributes still are.
var literalTags = map[string]bool{
	"code": true,
	"pre":  true,
}

// Synthesize lowers a classified tree into the exported draw function.
func Synthesize(root *doctree.Node) (*jsast.FuncDecl, error) {
	if root.Kind != doctree.KindRoot {
		return nil, &UnsupportedNodeError{Line: root.Line, Kind: root.Kind.String()}
	}

	children, err := lowerChildren(root, false)
	if err != nil {
		return nil, err
	}

	return &jsast.FuncDecl{
		Exported: true,
		Name:     DrawFunc,
		Params:   []string{DrawParam},
		Result:   &jsast.Array{Elems: children},
	}, nil
}

// lowerChildren lowers the children of n, dropping text nodes that are a
// single newline. Those are separators left between blocks by the markdown
// parser, not content.
func lowerChildren(n *doctree.Node, literal bool) ([]jsast.Expr, error) {
	exprs := make([]jsast.Expr, 0, len(n.Children))
	for _, c := range n.Children {
		if c.Kind == doctree.KindText && c.Value == "\n" {
			continue
		}
		e, err := lowerNode(c, literal)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, e)
	}
	return exprs, nil
}

func lowerNode(n *doctree.Node, literal bool) (jsast.Expr, error) {
	switch n.Kind {
	case doctree.KindText:
		if literal {
			return strLit(n.Value), nil
		}
		segments, err := SplitExpression(n.Value, n.Line)
		if err != nil {
			return nil, err
		}
		return lowerSegments(segments), nil
	case doctree.KindElement:
		return lowerElement(n, literal)
	case doctree.KindComponent:
		props, err := LowerProps(n)
		if err != nil {
			return nil, err
		}
		// Children of components are not passed on.
		return &jsast.New{Callee: &jsast.Ident{Name: n.Tag}, Args: []jsast.Expr{props}}, nil
	default:
		return nil, &UnsupportedNodeError{Line: n.Line, Kind: n.Kind.String()}
	}
}

func lowerElement(n *doctree.Node, literal bool) (jsast.Expr, error) {
	if n.Tag == ScriptTag {
		return nil, &StructuralError{Line: n.Line, Msg: "nested <script> elements are not supported"}
	}

	props, err := LowerProps(n)
	if err != nil {
		return nil, err
	}

	children, err := lowerChildren(n, literal || literalTags[n.Tag])
	if err != nil {
		return nil, err
	}

	return call(ElementPrimitive, strLit(n.Tag), props, &jsast.Array{Elems: children}), nil
}

// LowerProps lowers the attributes of an element or component into an
// object literal, in attribute order. Token lists are joined with spaces
// before embedded expressions are split out.
func LowerProps(n *doctree.Node) (*jsast.Object, error) {
	obj := &jsast.Object{}
	for _, a := range n.Attrs {
		segments, err := SplitExpression(a.String(), n.Line)
		if err != nil {
			return nil, err
		}
		obj.Props = append(obj.Props, jsast.Prop{Key: a.Key, Value: lowerSegments(segments)})
	}
	return obj, nil
}

func call(name string, args ...jsast.Expr) *jsast.Call {
	return &jsast.Call{Callee: &jsast.Ident{Name: name}, Args: args}
}

func strLit(s string) *jsast.StringLit {
	return &jsast.StringLit{Value: s}
}
