package litdraw

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gotest.tools/v3/golden"
)

func TestCanCompileDocuments(t *testing.T) {
	tests := []struct {
		name   string
		inFile string
	}{
		{
			name:   "markdown with inline html",
			inFile: "basic",
		},
		{
			name:   "module script with component and expressions",
			inFile: "components",
		},
		{
			name:   "html block wrapping markdown",
			inFile: "html_blocks",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := fmt.Sprintf("testdata/compile/%s.draw.md", tt.inFile)
			input, err := os.ReadFile(src)
			require.NoError(t, err)

			doc, err := NewParser().ParseMarkdownDoc(bytes.NewReader(input), MetaData{Source: src})
			require.NoError(t, err)

			m, err := CompileDocument(doc, CompileOptions{})
			require.NoError(t, err)

			var buf bytes.Buffer
			require.NoError(t, NewWriter(ModeBare).Write(m, &buf, WriterMetadata{}))

			golden.Assert(t, buf.String(), fmt.Sprintf("compile/%s.golden.js", tt.inFile))
		})
	}
}

func TestCompileEmbedsExpression(t *testing.T) {
	out, err := Compile("<div>{1+1}</div>\n")
	require.NoError(t, err)

	want := `import { h } from "litdraw/runtime";

export function draw(ctx) {
  return [
    h("div", {}, [
      (1+1)
    ])
  ];
}
`
	assert.Equal(t, want, out)
	assert.NotContains(t, out, `"1+1"`)
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		sentinel error
		wantLine int
	}{
		{
			name:     "nested script",
			src:      "<script>\n<script>let a = 1</script>\n</script>\n",
			sentinel: ErrStructural,
			wantLine: 2,
		},
		{
			name:     "malformed expression in text",
			src:      "# Title\n\nHello {oops(}\n",
			sentinel: ErrExpressionSyntax,
			wantLine: 3,
		},
		{
			name:     "malformed script",
			src:      "intro\n\n<script>\nlet a = ;\n</script>\n",
			sentinel: ErrExpressionSyntax,
			wantLine: 4,
		},
		{
			name:     "script declares the element primitive",
			src:      "intro\n\n<script>\nconst h = 1;\n</script>\n",
			sentinel: ErrStructural,
			wantLine: 4,
		},
		{
			name:     "element primitive imported from elsewhere",
			src:      "<script type=\"module\">\nimport { h } from \"preact\";\n</script>\n",
			sentinel: ErrStructural,
			wantLine: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Compile(tt.src)
			require.Error(t, err)
			assert.Empty(t, out)
			assert.True(t, errors.Is(err, tt.sentinel), "got %v", err)
			assert.Equal(t, tt.wantLine, ErrorLine(err))
		})
	}
}

func TestCompileScriptSource(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "script tag inside a string",
			src:  "<script>\nconst s = \"<script>\";\n</script>\n",
			want: `import { h } from "litdraw/runtime";

const s = "<script>";

export function draw(ctx) {
  return [];
}
`,
		},
		{
			name: "import attributes",
			src:  "<script type=\"module\">\nimport data from \"./data.json\" with { type: \"json\" };\n</script>\n",
			want: `import { h } from "litdraw/runtime";
import data from "./data.json" with { type: "json" };

export function draw(ctx) {
  return [];
}
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Compile(tt.src)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestCompileKeepsCodeLiteral(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "fenced code block",
			src:  "```js\nfunction f() { return 1 }\n```\n",
			want: `"function f() { return 1 }\n"`,
		},
		{
			name: "code span",
			src:  "Use `{oops(}` as is\n",
			want: `h("code", {}, [
        "{oops(}"
      ])`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Compile(tt.src)
			require.NoError(t, err)
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestCompileKeptCommentsAreUnsupported(t *testing.T) {
	doc, err := NewParser().ParseMarkdownDoc(bytes.NewBufferString("text\n\n<!-- note -->\n"), MetaData{Source: "note.draw.md"})
	require.NoError(t, err)

	_, err = CompileDocument(doc, CompileOptions{})
	require.NoError(t, err)

	_, err = CompileDocument(doc, CompileOptions{KeepComments: true})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedNode))
	assert.Equal(t, 3, ErrorLine(err))
	assert.Contains(t, err.Error(), "note.draw.md")
}
