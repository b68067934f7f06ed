// Package doctree holds the generic document tree shared by the markdown
// parser, the raw html normalizer and the compiler passes.
//
// Passes treat trees as values: a pass that changes the shape of a tree
// returns a new one built from Clone rather than editing nodes it was given.
package doctree

import (
	"fmt"
	"strings"
)

type Kind int

const (
	KindRoot Kind = iota
	KindElement
	KindText
	// KindRaw is an opaque html fragment left by the markdown parser.
	KindRaw
	KindComment
	// KindComponent is an element whose tag resolved to an imported identifier.
	KindComponent
)

func (k Kind) String() string {
	switch k {
	case KindRoot:
		return "root"
	case KindElement:
		return "element"
	case KindText:
		return "text"
	case KindRaw:
		return "raw"
	case KindComment:
		return "comment"
	case KindComponent:
		return "component"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Attr is a single element attribute. List valued attributes such as class
// keep their tokens in Tokens and leave Value empty.
type Attr struct {
	Key    string
	Value  string
	Tokens []string
}

// IsList reports whether the attribute holds a token list.
func (a Attr) IsList() bool {
	return a.Tokens != nil
}

// String returns the attribute value with list tokens joined by single spaces.
func (a Attr) String() string {
	if a.IsList() {
		return strings.Join(a.Tokens, " ")
	}
	return a.Value
}

type Node struct {
	Kind Kind
	// Tag is the element or component name
	Tag      string
	Attrs    []Attr
	Children []*Node
	// Value holds text, raw html or comment data
	Value string
	// Line is the 1-based source line the node started on, 0 if unknown
	Line int
}

func NewRoot(children ...*Node) *Node {
	return &Node{Kind: KindRoot, Children: children}
}

func NewElement(tag string, attrs []Attr, children ...*Node) *Node {
	return &Node{Kind: KindElement, Tag: tag, Attrs: attrs, Children: children}
}

func NewText(value string) *Node {
	return &Node{Kind: KindText, Value: value}
}

func NewRaw(value string) *Node {
	return &Node{Kind: KindRaw, Value: value}
}

func NewComment(value string) *Node {
	return &Node{Kind: KindComment, Value: value}
}

// At sets the source line of n and returns it.
func (n *Node) At(line int) *Node {
	n.Line = line
	return n
}

// Append adds children to n and returns it.
func (n *Node) Append(children ...*Node) *Node {
	n.Children = append(n.Children, children...)
	return n
}

// Attr returns the attribute named key.
func (n *Node) Attr(key string) (Attr, bool) {
	for _, a := range n.Attrs {
		if a.Key == key {
			return a, true
		}
	}
	return Attr{}, false
}

// IsElement reports whether n is an element with the given tag.
func (n *Node) IsElement(tag string) bool {
	return n.Kind == KindElement && n.Tag == tag
}

// TextContent concatenates the values of all text descendants of n.
func (n *Node) TextContent() string {
	var sb strings.Builder
	Walk(n, func(c *Node) bool {
		if c.Kind == KindText {
			sb.WriteString(c.Value)
		}
		return true
	})
	return sb.String()
}

// Clone returns a deep copy of n.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}

	c := *n
	if n.Attrs != nil {
		c.Attrs = make([]Attr, len(n.Attrs))
		for i, a := range n.Attrs {
			if a.Tokens != nil {
				a.Tokens = append([]string{}, a.Tokens...)
			}
			c.Attrs[i] = a
		}
	}
	if n.Children != nil {
		c.Children = make([]*Node, len(n.Children))
		for i, child := range n.Children {
			c.Children[i] = child.Clone()
		}
	}
	return &c
}

// Walk visits n and its descendants depth first. Returning false from fn
// skips the children of the visited node.
func Walk(n *Node, fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range n.Children {
		Walk(c, fn)
	}
}

// Outline renders an indented one-line-per-node description of the tree,
// used for debug logging.
func Outline(n *Node) string {
	var sb strings.Builder
	var write func(n *Node, depth int)
	write = func(n *Node, depth int) {
		sb.WriteString(strings.Repeat("  ", depth))
		sb.WriteString(n.Kind.String())
		switch n.Kind {
		case KindElement, KindComponent:
			sb.WriteString(" <" + n.Tag + ">")
		case KindText, KindRaw, KindComment:
			sb.WriteString(fmt.Sprintf(" %q", n.Value))
		}
		if n.Line > 0 {
			sb.WriteString(fmt.Sprintf(" [line %d]", n.Line))
		}
		sb.WriteString("\n")
		for _, c := range n.Children {
			write(c, depth+1)
		}
	}
	write(n, 0)
	return sb.String()
}
