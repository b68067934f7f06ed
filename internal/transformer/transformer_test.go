package transformer

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwtly10/litdraw"
	"github.com/jwtly10/litdraw/internal/config"
)

const headingModule = `import { h } from "litdraw/runtime";

export function draw(ctx) {
  return [
    h("h1", { id: "hi" }, [
      "Hi"
    ])
  ];
}
`

func bareOptions() TransformOptions {
	return TransformOptions{
		WriterMode: litdraw.ModeBare,
		OutputExt:  ".js",
	}
}

func TestTransform(t *testing.T) {
	tests := []struct {
		name     string
		opts     TransformOptions
		src      string
		existing map[string]string
		wantOut  string
		wantErr  string
		check    func(t *testing.T, td *testDir)
	}{
		{
			name:    "compiles next to source",
			opts:    bareOptions(),
			src:     "# Hi\n",
			wantOut: "app.draw.js",
		},
		{
			name:    "output pragma into new directory",
			opts:    bareOptions(),
			src:     "<!-- @pragma output: dist/main.js -->\n\n# Hi\n",
			wantOut: "dist/main.js",
		},
		{
			name: "missing required output pragma",
			opts: TransformOptions{
				WriterMode:          litdraw.ModeBare,
				RequirePragmaOutput: true,
			},
			src:     "# Hi\n",
			wantErr: "pragma key 'output' is required",
			check: func(t *testing.T, td *testDir) {
				assert.False(t, td.exists("app.draw.js"))
			},
		},
		{
			name:     "existing output is backed up",
			opts:     bareOptions(),
			src:      "# Hi\n",
			existing: map[string]string{"app.draw.js": "old"},
			wantOut:  "app.draw.js",
			check: func(t *testing.T, td *testDir) {
				backups := td.backups()
				require.Len(t, backups, 1)
				assert.Equal(t, "old", td.readFile(filepath.Base(backups[0])))
			},
		},
		{
			name: "no backup when disabled",
			opts: TransformOptions{
				WriterMode: litdraw.ModeBare,
				NoBackup:   true,
			},
			src:      "# Hi\n",
			existing: map[string]string{"app.draw.js": "old"},
			wantOut:  "app.draw.js",
			check: func(t *testing.T, td *testDir) {
				assert.Empty(t, td.backups())
			},
		},
		{
			name:     "compile error leaves existing output alone",
			opts:     bareOptions(),
			src:      "Broken {1 +}\n",
			existing: map[string]string{"app.draw.js": "old"},
			wantErr:  "compile error",
			check: func(t *testing.T, td *testDir) {
				assert.Equal(t, "old", td.readFile("app.draw.js"))
				assert.Empty(t, td.backups())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			td := newTestDir(t)
			for name, content := range tt.existing {
				td.createFile(name, content)
			}

			tr := NewTransformer(tt.opts)
			got, err := tr.Transform(source(td, "app.draw.md", tt.src))

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, filepath.Join(td.path, tt.wantOut), got)
				assert.Equal(t, headingModule, td.readFile(tt.wantOut))
			}

			if tt.check != nil {
				tt.check(t, td)
			}
		})
	}
}

func TestTransformPrettyHeader(t *testing.T) {
	td := newTestDir(t)

	tr := NewTransformer(TransformOptions{WriterMode: litdraw.ModePretty, OutputExt: ".js"})
	tr.now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }

	input := source(td, "app.draw.md", "# Hi\n")
	out, err := tr.Transform(input)
	require.NoError(t, err)

	want := fmt.Sprintf("// Code generated by litdraw %s. DO NOT EDIT.\n// source: %s\n// generated: 2024-01-01T00:00:00Z\n\n",
		litdraw.VERSION, input.Metadata.AbsSource)
	content := td.readFile(filepath.Base(out))
	assert.True(t, strings.HasPrefix(content, want), content)
	assert.True(t, strings.HasSuffix(content, headingModule))
}

func TestTransformTo(t *testing.T) {
	tr := NewTransformer(bareOptions())

	var buf bytes.Buffer
	err := tr.TransformTo(MarkdownSource{Content: strings.NewReader("# Hi\n")}, &buf)
	require.NoError(t, err)
	assert.Equal(t, headingModule, buf.String())
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Defaults()
	cfg.Backup = false
	cfg.OutputExt = ".mjs"

	opts := OptionsFromConfig(cfg)
	assert.Equal(t, litdraw.ModePretty, opts.WriterMode)
	assert.True(t, opts.NoBackup)
	assert.Equal(t, ".mjs", opts.OutputExt)
	assert.Equal(t, "mode=Pretty backup=no require_output_pragma=no output_ext=.mjs", opts.Pretty())
}
