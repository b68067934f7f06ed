package litdraw

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwtly10/litdraw/internal/jsast"
)

func TestWriterModes(t *testing.T) {
	m := &jsast.Module{}
	m.Append(&jsast.FuncDecl{
		Exported: true,
		Name:     "draw",
		Params:   []string{"ctx"},
		Result:   &jsast.Array{},
	})

	md := WriterMetadata{
		Version:   "v0.0.2",
		AbsSource: "/site/app.draw.md",
		Generated: "2024-01-01T00:00:00Z",
	}

	tests := []struct {
		name string
		mode WriteMode
		want string
	}{
		{
			name: "pretty",
			mode: ModePretty,
			want: `// Code generated by litdraw v0.0.2. DO NOT EDIT.
// source: /site/app.draw.md
// generated: 2024-01-01T00:00:00Z

export function draw(ctx) {
  return [];
}
`,
		},
		{
			name: "bare",
			mode: ModeBare,
			want: `export function draw(ctx) {
  return [];
}
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, NewWriter(tt.mode).Write(m, &buf, md))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestWriteModeString(t *testing.T) {
	assert.Equal(t, "Pretty", ModePretty.String())
	assert.Equal(t, "Bare", ModeBare.String())
	assert.Equal(t, "Mode(7)", WriteMode(7).String())
}
