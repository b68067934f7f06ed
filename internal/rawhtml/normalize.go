// Package rawhtml folds the raw markup fragments a markdown parse leaves
// behind back into a proper element tree.
//
// Markdown parsers pass HTML through untouched, and a single element is
// often split over several fragments with markdown content in between. The
// tree is therefore serialized as a whole and tokenized again, which joins
// those fragments into elements.
package rawhtml

import (
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/jwtly10/litdraw/internal/doctree"
	"github.com/jwtly10/litdraw/internal/script"
)

type Options struct {
	// KeepComments keeps markup comments as comment nodes instead of
	// dropping them.
	KeepComments bool
}

// listAttrs hold whitespace separated token lists.
var listAttrs = map[string]bool{
	"class": true,
	"rel":   true,
}

var voidElements = map[atom.Atom]bool{
	atom.Area: true, atom.Base: true, atom.Br: true, atom.Col: true,
	atom.Embed: true, atom.Hr: true, atom.Img: true, atom.Input: true,
	atom.Link: true, atom.Meta: true, atom.Param: true, atom.Source: true,
	atom.Track: true, atom.Wbr: true,
}

// rawTextElements have their content tokenized as unescaped text.
var rawTextElements = map[atom.Atom]bool{
	atom.Script: true, atom.Style: true, atom.Xmp: true, atom.Iframe: true,
	atom.Noembed: true, atom.Noframes: true, atom.Noscript: true, atom.Plaintext: true,
}

// The tokenizer reads everything inside a script as text, so a script
// opened inside another one has to be found by hand. Matches inside string
// literals and comments are part of the code.
var nestedScriptRegex = regexp.MustCompile(`(?i)<script(\s[^>]*)?>`)

func isVoid(tag string) bool {
	return voidElements[atom.Lookup([]byte(tag))]
}

func isRawText(tag string) bool {
	return rawTextElements[atom.Lookup([]byte(tag))]
}

// Normalize returns a copy of root with every raw fragment re-parsed into
// elements and text. The result holds no raw nodes, and no comment nodes
// unless opts.KeepComments is set.
func Normalize(root *doctree.Node, opts Options) (*doctree.Node, error) {
	var s serializer
	s.node(root, false)

	b := &builder{
		src:     s.buf.String(),
		anchors: s.anchors,
		opts:    opts,
	}
	out, err := b.build(root.Line)
	if err != nil {
		return nil, err
	}

	slog.Debug("normalized raw html", "bytes", s.buf.Len(), "anchors", len(s.anchors))
	return out, nil
}

// anchor ties a byte offset of the serialized document to a source line.
type anchor struct {
	offset int
	line   int
}

type serializer struct {
	buf     strings.Builder
	anchors []anchor
}

func (s *serializer) mark(line int) {
	if line > 0 {
		s.anchors = append(s.anchors, anchor{offset: s.buf.Len(), line: line})
	}
}

func (s *serializer) node(n *doctree.Node, rawText bool) {
	s.mark(n.Line)

	switch n.Kind {
	case doctree.KindRoot:
		for _, c := range n.Children {
			s.node(c, false)
		}
	case doctree.KindElement, doctree.KindComponent:
		s.buf.WriteString("<" + n.Tag)
		for _, a := range n.Attrs {
			s.buf.WriteString(" " + a.Key + `="` + html.EscapeString(a.String()) + `"`)
		}
		s.buf.WriteString(">")
		if isVoid(n.Tag) && len(n.Children) == 0 {
			return
		}
		for _, c := range n.Children {
			s.node(c, isRawText(n.Tag))
		}
		s.buf.WriteString("</" + n.Tag + ">")
	case doctree.KindText:
		if rawText {
			s.buf.WriteString(n.Value)
		} else {
			s.buf.WriteString(html.EscapeString(n.Value))
		}
	case doctree.KindRaw:
		s.buf.WriteString(n.Value)
	case doctree.KindComment:
		s.buf.WriteString("<!--" + n.Value + "-->")
	}
}

type builder struct {
	src     string
	anchors []anchor
	opts    Options

	stack []*doctree.Node
}

// lineAt maps a byte offset of the serialized document to a source line.
func (b *builder) lineAt(offset int) int {
	i := sort.Search(len(b.anchors), func(i int) bool {
		return b.anchors[i].offset > offset
	})
	if i == 0 {
		return 0
	}
	a := b.anchors[i-1]
	return a.line + strings.Count(b.src[a.offset:offset], "\n")
}

func (b *builder) top() *doctree.Node {
	return b.stack[len(b.stack)-1]
}

func (b *builder) build(rootLine int) (*doctree.Node, error) {
	root := &doctree.Node{Kind: doctree.KindRoot, Line: rootLine}
	b.stack = []*doctree.Node{root}

	z := html.NewTokenizer(strings.NewReader(b.src))
	offset := 0
	for {
		tt := z.Next()
		line := b.lineAt(offset)
		offset += len(z.Raw())

		switch tt {
		case html.ErrorToken:
			if err := z.Err(); err != io.EOF {
				return nil, fmt.Errorf("failed to tokenize markup: %w", err)
			}
			if len(b.stack) > 1 {
				slog.Debug("closing unterminated elements", "open", len(b.stack)-1, "innermost", b.top().Tag)
			}
			return root, nil
		case html.StartTagToken, html.SelfClosingTagToken:
			n := b.element(z).At(line)
			b.top().Append(n)
			if tt == html.StartTagToken && !isVoid(n.Tag) {
				b.stack = append(b.stack, n)
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			b.close(string(name))
		case html.TextToken:
			b.text(string(z.Text()), line)
		case html.CommentToken:
			if b.opts.KeepComments {
				b.top().Append(doctree.NewComment(string(z.Text())).At(line))
			}
		case html.DoctypeToken:
			// not part of the drawn tree
		}
	}
}

func (b *builder) element(z *html.Tokenizer) *doctree.Node {
	name, hasAttr := z.TagName()
	n := doctree.NewElement(string(name), nil)

	for hasAttr {
		var key, val []byte
		key, val, hasAttr = z.TagAttr()
		attr := doctree.Attr{Key: string(key)}
		if listAttrs[attr.Key] {
			attr.Tokens = strings.Fields(string(val))
		} else {
			attr.Value = string(val)
		}
		n.Attrs = append(n.Attrs, attr)
	}
	return n
}

// close pops the stack up to and including the innermost open element named
// tag. End tags with no open element are ignored.
func (b *builder) close(tag string) {
	for i := len(b.stack) - 1; i > 0; i-- {
		if b.stack[i].Tag == tag {
			b.stack = b.stack[:i]
			return
		}
	}
	slog.Debug("ignoring stray end tag", "tag", tag)
}

func (b *builder) text(value string, line int) {
	parent := b.top()

	if parent.IsElement("script") {
		if loc := nestedScriptTag(value); loc != nil {
			if before := value[:loc[0]]; before != "" {
				b.appendText(parent, before, line)
			}
			nestedLine := 0
			if line > 0 {
				nestedLine = line + strings.Count(value[:loc[0]], "\n")
			}
			nested := doctree.NewElement("script", nil).At(nestedLine)
			if after := value[loc[1]:]; after != "" {
				nested.Append(doctree.NewText(after).At(nestedLine))
			}
			parent.Append(nested)
			return
		}
	}

	b.appendText(parent, value, line)
}

// nestedScriptTag returns the position of the first script start tag in
// code that is not part of a literal, or nil.
func nestedScriptTag(code string) []int {
	for _, loc := range nestedScriptRegex.FindAllStringIndex(code, -1) {
		if !script.InLiteral(code, loc[0]) {
			return loc
		}
	}
	return nil
}

// appendText adds text to parent, merging it into a directly preceding
// text node.
func (b *builder) appendText(parent *doctree.Node, value string, line int) {
	if k := len(parent.Children); k > 0 && parent.Children[k-1].Kind == doctree.KindText {
		parent.Children[k-1].Value += value
		return
	}
	parent.Append(doctree.NewText(value).At(line))
}
