package litdraw

import (
	"path/filepath"
	"strings"
)

// DefaultOutputExt is the extension of compiled files when none is configured.
const DefaultOutputExt = ".js"

// ResolveOutputPath determines the final output path from the input markdown source path.
//
// Without an output pragma the markdown extension is swapped for ext, so
// app.draw.md compiles to app.draw.js. An output pragma is resolved relative
// to the markdown file.
func ResolveOutputPath(mdPath string, pragma Pragma, ext string) string {
	if pragma.Output != "" {
		return filepath.Join(filepath.Dir(mdPath), pragma.Output)
	}

	if ext == "" {
		ext = DefaultOutputExt
	}
	return strings.TrimSuffix(mdPath, filepath.Ext(mdPath)) + ext
}

func MustAbs(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		panic(err)
	}
	return abs
}
