package litdraw

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"github.com/jwtly10/litdraw/internal/doctree"
)

var pragmaRegex = regexp.MustCompile(`^<!--\s*@pragma\s+(\w+)\s*:\s*([^>]+?)\s*-->$`)

type Parser struct {
	gm goldmark.Markdown
}

func NewParser() *Parser {
	return &Parser{
		gm: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		),
	}
}

// ParseMarkdownDoc parses a markdown document into its pragmas and a
// document tree.
//
// Markdown structure is lowered to the elements a markdown renderer would
// produce. Embedded html is kept as raw fragments, to be normalized before
// compilation. Block siblings are separated by single newline text nodes.
func (p *Parser) ParseMarkdownDoc(r io.Reader, md MetaData) (*Document, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		Metadata: md,
	}

	root := p.gm.Parser().Parse(text.NewReader(content))

	tree, err := p.lowerDocument(root, content, &doc.Pragmas)
	if err != nil {
		return nil, err
	}
	doc.Tree = tree

	if doc.Pragmas.Debug {
		slog.Info("parsed document tree", "source", md.Source, "tree", doctree.Outline(tree))
	}

	return doc, nil
}

func getLineNumber(content []byte, byteOffset int) int {
	return bytes.Count(content[:byteOffset], []byte("\n")) + 1
}

// lowerDocument lowers the top level blocks of a markdown document. HTML
// comments holding pragmas are only considered at the top of the file,
// before any other content, and never become part of the tree.
//
// For example:
//
// [SOF]
//
// <!-- @pragma output: app.js -->
//
// <!-- @pragma debug: true -->
//
// # Some title
//
// [EOF]
//
// will set the [Pragma] struct to have Output = "app.js" and Debug = true
func (p *Parser) lowerDocument(root ast.Node, content []byte, pragma *Pragma) (*doctree.Node, error) {
	l := &lowerer{source: content}
	tree := doctree.NewRoot()

	hasWalkedOtherNodes := false
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		hb, ok := n.(*ast.HTMLBlock)
		if !ok || hb.HTMLBlockType != ast.HTMLBlockType2 {
			hasWalkedOtherNodes = true
		}

		if ok && !hasWalkedOtherNodes {
			line := strings.TrimSpace(l.htmlBlock(hb))
			if pragmaRegex.MatchString(line) {
				if err := p.extractPragmaFromLine(pragma, line); err != nil {
					return nil, err
				}
				continue
			}
		}

		l.appendBlock(tree, n)
	}

	return tree, nil
}

// extractPragmaFromLine parses pragma values from markdown comments
//
// A pragma line may look like this: <!-- @pragma output: app.js -->
//
// In which case we will parse this as a keymap pair "output":"app.js"
// and if the key maps to a valid value on the [Pragma] struct, set the value.
//
// If multiple lines contain the same key, the last one will be used.
//
// Will return an error if the value cannot be parsed
func (p *Parser) extractPragmaFromLine(pragma *Pragma, line string) error {
	line = strings.TrimSpace(line)
	slog.Debug("Parsing pragma line", "line", line)

	matches := pragmaRegex.FindStringSubmatch(line)
	if len(matches) != 3 {
		slog.Debug("Invalid pragma line", "line", line)
		return nil
	}

	key := matches[1]
	value := matches[2]

	slog.Debug("Parsed pragma key value pair", "key", key, "value", value)

	switch key {
	case string(PragmaOutput):
		pragma.Output = value
	case string(PragmaDebug):
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("could not parse debug pragma value: %w", err)
		}
		pragma.Debug = b
	default:
		slog.Debug("Unknown pragma key", "key", key)
	}

	return nil
}

// lowerer turns goldmark nodes into document tree nodes.
type lowerer struct {
	source []byte
}

func (l *lowerer) line(n ast.Node) int {
	switch n := n.(type) {
	case *ast.Text:
		return getLineNumber(l.source, n.Segment.Start)
	case *ast.RawHTML:
		if n.Segments.Len() > 0 {
			return getLineNumber(l.source, n.Segments.At(0).Start)
		}
	}

	// Lines panics on inline nodes
	if n.Type() != ast.TypeInline && n.Lines().Len() > 0 {
		return getLineNumber(l.source, n.Lines().At(0).Start)
	}

	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if line := l.line(c); line > 0 {
			return line
		}
	}
	return 0
}

// appendBlock appends the lowering of block n to parent, separated from a
// preceding sibling by a newline.
func (l *lowerer) appendBlock(parent *doctree.Node, n ast.Node) {
	if k := len(parent.Children); k > 0 && parent.Children[k-1].Kind != doctree.KindText {
		parent.Append(doctree.NewText("\n"))
	}
	l.block(parent, n)
}

func (l *lowerer) blocks(parent *doctree.Node, n ast.Node) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		l.appendBlock(parent, c)
	}
}

func (l *lowerer) block(parent *doctree.Node, n ast.Node) {
	line := l.line(n)

	switch n := n.(type) {
	case *ast.Paragraph:
		el := doctree.NewElement("p", nil).At(line)
		l.inlines(el, n)
		parent.Append(el)
	case *ast.TextBlock:
		l.inlines(parent, n)
	case *ast.Heading:
		el := doctree.NewElement(fmt.Sprintf("h%d", n.Level), attributes(n)).At(line)
		l.inlines(el, n)
		parent.Append(el)
	case *ast.ThematicBreak:
		parent.Append(doctree.NewElement("hr", nil).At(line))
	case *ast.CodeBlock:
		parent.Append(l.codeBlock(n, "").At(line))
	case *ast.FencedCodeBlock:
		parent.Append(l.codeBlock(n, string(n.Language(l.source))).At(line))
	case *ast.Blockquote:
		el := doctree.NewElement("blockquote", nil).At(line)
		l.blocks(el, n)
		parent.Append(el)
	case *ast.List:
		tag := "ul"
		var attrs []doctree.Attr
		if n.IsOrdered() {
			tag = "ol"
			if n.Start != 1 {
				attrs = append(attrs, doctree.Attr{Key: "start", Value: strconv.Itoa(n.Start)})
			}
		}
		el := doctree.NewElement(tag, attrs).At(line)
		l.blocks(el, n)
		parent.Append(el)
	case *ast.ListItem:
		el := doctree.NewElement("li", nil).At(line)
		l.blocks(el, n)
		parent.Append(el)
	case *ast.HTMLBlock:
		parent.Append(doctree.NewRaw(l.htmlBlock(n)).At(line))
	case *extast.Table:
		parent.Append(l.table(n).At(line))
	default:
		slog.Debug("lowering unknown markdown block by its children", "kind", n.Kind().String(), "line", line)
		l.blocks(parent, n)
	}
}

func (l *lowerer) codeBlock(n ast.Node, lang string) *doctree.Node {
	var buf bytes.Buffer
	for i := 0; i < n.Lines().Len(); i++ {
		line := n.Lines().At(i)
		buf.Write(line.Value(l.source))
	}

	var attrs []doctree.Attr
	if lang != "" {
		attrs = append(attrs, doctree.Attr{Key: "class", Tokens: []string{"language-" + lang}})
	}
	code := doctree.NewElement("code", attrs, doctree.NewText(buf.String()))
	return doctree.NewElement("pre", nil, code)
}

// htmlBlock returns the source of an html block without its final newline.
func (l *lowerer) htmlBlock(n *ast.HTMLBlock) string {
	var buf bytes.Buffer
	for i := 0; i < n.Lines().Len(); i++ {
		line := n.Lines().At(i)
		buf.Write(line.Value(l.source))
	}
	if n.HasClosure() {
		buf.Write(n.ClosureLine.Value(l.source))
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

func (l *lowerer) table(n *extast.Table) *doctree.Node {
	table := doctree.NewElement("table", nil)
	var body *doctree.Node

	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		line := l.line(c)
		switch row := c.(type) {
		case *extast.TableHeader:
			tr := l.tableRow(row, "th").At(line)
			table.Append(doctree.NewElement("thead", nil, tr).At(line))
		case *extast.TableRow:
			if body == nil {
				body = doctree.NewElement("tbody", nil).At(line)
				table.Append(body)
			}
			body.Append(l.tableRow(row, "td").At(line))
		}
	}
	return table
}

func (l *lowerer) tableRow(row ast.Node, cellTag string) *doctree.Node {
	tr := doctree.NewElement("tr", nil)
	for c := row.FirstChild(); c != nil; c = c.NextSibling() {
		cell, ok := c.(*extast.TableCell)
		if !ok {
			continue
		}
		var attrs []doctree.Attr
		if cell.Alignment != extast.AlignNone {
			attrs = append(attrs, doctree.Attr{Key: "align", Value: cell.Alignment.String()})
		}
		el := doctree.NewElement(cellTag, attrs).At(l.line(cell))
		l.inlines(el, cell)
		tr.Append(el)
	}
	return tr
}

func (l *lowerer) inlines(parent *doctree.Node, n ast.Node) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		l.inline(parent, c)
	}
}

func (l *lowerer) inline(parent *doctree.Node, n ast.Node) {
	switch n := n.(type) {
	case *ast.Text:
		line := l.line(n)
		value := n.Segment.Value(l.source)
		if !n.IsRaw() {
			value = decodeText(value)
		}
		appendText(parent, string(value), line)
		if n.HardLineBreak() {
			parent.Append(doctree.NewElement("br", nil).At(line))
			appendText(parent, "\n", line)
		} else if n.SoftLineBreak() {
			appendText(parent, "\n", line)
		}
	case *ast.String:
		appendText(parent, string(n.Value), 0)
	case *ast.CodeSpan:
		parent.Append(doctree.NewElement("code", nil, doctree.NewText(l.rawText(n))).At(l.line(n)))
	case *ast.Emphasis:
		tag := "em"
		if n.Level == 2 {
			tag = "strong"
		}
		el := doctree.NewElement(tag, nil).At(l.line(n))
		l.inlines(el, n)
		parent.Append(el)
	case *ast.Link:
		attrs := []doctree.Attr{{Key: "href", Value: string(n.Destination)}}
		if len(n.Title) > 0 {
			attrs = append(attrs, doctree.Attr{Key: "title", Value: string(n.Title)})
		}
		el := doctree.NewElement("a", attrs).At(l.line(n))
		l.inlines(el, n)
		parent.Append(el)
	case *ast.Image:
		attrs := []doctree.Attr{
			{Key: "src", Value: string(n.Destination)},
			{Key: "alt", Value: l.plainText(n)},
		}
		if len(n.Title) > 0 {
			attrs = append(attrs, doctree.Attr{Key: "title", Value: string(n.Title)})
		}
		parent.Append(doctree.NewElement("img", attrs).At(l.line(n)))
	case *ast.AutoLink:
		url := string(n.URL(l.source))
		if n.AutoLinkType == ast.AutoLinkEmail && !strings.HasPrefix(strings.ToLower(url), "mailto:") {
			url = "mailto:" + url
		}
		attrs := []doctree.Attr{{Key: "href", Value: url}}
		parent.Append(doctree.NewElement("a", attrs, doctree.NewText(string(n.Label(l.source)))))
	case *ast.RawHTML:
		var buf bytes.Buffer
		for i := 0; i < n.Segments.Len(); i++ {
			segment := n.Segments.At(i)
			buf.Write(segment.Value(l.source))
		}
		parent.Append(doctree.NewRaw(buf.String()).At(l.line(n)))
	case *extast.Strikethrough:
		el := doctree.NewElement("del", nil).At(l.line(n))
		l.inlines(el, n)
		parent.Append(el)
	case *extast.TaskCheckBox:
		attrs := []doctree.Attr{{Key: "disabled"}, {Key: "type", Value: "checkbox"}}
		if n.IsChecked {
			attrs = append([]doctree.Attr{{Key: "checked"}}, attrs...)
		}
		parent.Append(doctree.NewElement("input", attrs))
	default:
		l.inlines(parent, n)
	}
}

// rawText concatenates the undecoded text below n, as code spans need.
func (l *lowerer) rawText(n ast.Node) string {
	var buf bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch c := c.(type) {
		case *ast.Text:
			buf.Write(c.Segment.Value(l.source))
		case *ast.String:
			buf.Write(c.Value)
		}
	}
	return buf.String()
}

// plainText extracts the decoded text content of n and its children.
func (l *lowerer) plainText(n ast.Node) string {
	var buf bytes.Buffer
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch c := c.(type) {
		case *ast.Text:
			buf.Write(decodeText(c.Segment.Value(l.source)))
		case *ast.String:
			buf.Write(c.Value)
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}

func decodeText(v []byte) []byte {
	return util.ResolveNumericReferences(util.ResolveEntityNames(util.UnescapePunctuations(v)))
}

// appendText adds text to parent, merging it into a preceding text node.
func appendText(parent *doctree.Node, value string, line int) {
	if value == "" {
		return
	}
	if k := len(parent.Children); k > 0 && parent.Children[k-1].Kind == doctree.KindText {
		parent.Children[k-1].Value += value
		return
	}
	parent.Append(doctree.NewText(value).At(line))
}

func attributes(n ast.Node) []doctree.Attr {
	var attrs []doctree.Attr
	for _, a := range n.Attributes() {
		attr := doctree.Attr{Key: string(a.Name)}
		switch v := a.Value.(type) {
		case []byte:
			attr.Value = string(v)
		case string:
			attr.Value = v
		default:
			attr.Value = fmt.Sprint(v)
		}
		if attr.Key == "class" {
			attr.Tokens = strings.Fields(attr.Value)
			attr.Value = ""
		}
		attrs = append(attrs, attr)
	}
	return attrs
}
