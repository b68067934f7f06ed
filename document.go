package litdraw

import "github.com/jwtly10/litdraw/internal/doctree"

// Document represents a parsed markdown document: its pragmas, the lowered
// document tree, and any other required metadata about the source file
type Document struct {
	// Metadata about the source file
	Metadata MetaData
	// Document-level pragmas controlling compilation options
	Pragmas Pragma
	// The document tree, with raw html fragments not yet normalized
	Tree *doctree.Node
}

type MetaData struct {
	// The source file path
	Source string
	// The absolute source file path, required when writing output next to it
	AbsSource string
}

type PragmaKey string

const (
	PragmaOutput PragmaKey = "output"
	PragmaDebug  PragmaKey = "debug"
)

type Pragma struct {
	// The js file output path, relative to the source markdown file
	Output string
	// Internal flag for additional debugging output
	Debug bool
}
