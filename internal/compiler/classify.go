package compiler

import (
	"log/slog"

	"golang.org/x/net/html/atom"

	"github.com/jwtly10/litdraw/internal/doctree"
)

// standardTags are the markup element names that always lower to the
// element primitive, even when a script imports a same-named identifier.
var standardTags = map[atom.Atom]bool{
	atom.A: true, atom.Abbr: true, atom.Address: true, atom.Area: true,
	atom.Article: true, atom.Aside: true, atom.Audio: true, atom.B: true,
	atom.Base: true, atom.Bdi: true, atom.Bdo: true, atom.Blockquote: true,
	atom.Body: true, atom.Br: true, atom.Button: true, atom.Canvas: true,
	atom.Caption: true, atom.Cite: true, atom.Code: true, atom.Col: true,
	atom.Colgroup: true, atom.Data: true, atom.Datalist: true, atom.Dd: true,
	atom.Del: true, atom.Details: true, atom.Dfn: true, atom.Dialog: true,
	atom.Div: true, atom.Dl: true, atom.Dt: true, atom.Em: true,
	atom.Embed: true, atom.Fieldset: true, atom.Figcaption: true, atom.Figure: true,
	atom.Footer: true, atom.Form: true, atom.H1: true, atom.H2: true,
	atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Head: true, atom.Header: true, atom.Hgroup: true, atom.Hr: true,
	atom.Html: true, atom.I: true, atom.Iframe: true, atom.Img: true,
	atom.Input: true, atom.Ins: true, atom.Kbd: true, atom.Label: true,
	atom.Legend: true, atom.Li: true, atom.Link: true, atom.Main: true,
	atom.Map: true, atom.Mark: true, atom.Math: true, atom.Menu: true,
	atom.Meta: true, atom.Meter: true, atom.Nav: true, atom.Noscript: true,
	atom.Object: true, atom.Ol: true, atom.Optgroup: true, atom.Option: true,
	atom.Output: true, atom.P: true, atom.Param: true, atom.Pre: true,
	atom.Progress: true, atom.Q: true, atom.Rp: true, atom.Rt: true,
	atom.Ruby: true, atom.S: true, atom.Samp: true, atom.Script: true,
	atom.Section: true, atom.Select: true, atom.Small: true, atom.Source: true,
	atom.Span: true, atom.Strong: true, atom.Style: true, atom.Sub: true,
	atom.Summary: true, atom.Sup: true, atom.Svg: true, atom.Table: true,
	atom.Tbody: true, atom.Td: true, atom.Template: true, atom.Textarea: true,
	atom.Tfoot: true, atom.Th: true, atom.Thead: true, atom.Time: true,
	atom.Title: true, atom.Tr: true, atom.Track: true, atom.U: true,
	atom.Ul: true, atom.Var: true, atom.Video: true, atom.Wbr: true,
	atom.Picture: true, atom.Slot: true,

	// obsolete but still parsed as elements
	atom.Acronym: true, atom.Big: true, atom.Center: true, atom.Font: true,
	atom.Strike: true, atom.Tt: true,
}

// standardNames are standard element names the atom table does not know.
var standardNames = map[string]bool{
	"search": true,
}

// IsStandardTag reports whether tag is a standard markup element name.
// Matching is exact: markup tag names are lowercase after parsing.
func IsStandardTag(tag string) bool {
	if standardNames[tag] {
		return true
	}
	a := atom.Lookup([]byte(tag))
	return a != 0 && standardTags[a]
}

// Classify returns a copy of root in which every non-standard element whose
// tag resolves in table becomes a component node carrying the imported
// identifier as its tag. Unresolved tags stay plain elements. Components are
// never demoted, so classifying twice changes nothing.
func Classify(root *doctree.Node, table *ImportTable) *doctree.Node {
	out := root.Clone()

	promoted := 0
	doctree.Walk(out, func(n *doctree.Node) bool {
		if n.Kind != doctree.KindElement || IsStandardTag(n.Tag) {
			return true
		}
		if name, ok := table.Resolve(n.Tag); ok {
			n.Kind = doctree.KindComponent
			n.Tag = name
			promoted++
		}
		return true
	})

	slog.Debug("classified document", "components", promoted, "imports", table.Len())
	return out
}
