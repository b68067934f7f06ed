package litdraw

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jwtly10/litdraw/internal/compiler"
	"github.com/jwtly10/litdraw/internal/jsast"
	"github.com/jwtly10/litdraw/internal/rawhtml"
)

type CompileOptions struct {
	// Keep html comments in the tree. Comments have no lowering, so a kept
	// comment fails compilation.
	KeepComments bool
}

// CompileDocument normalizes the document tree and compiles it into a
// module exporting a draw function. The document is not modified.
func CompileDocument(doc *Document, opts CompileOptions) (*jsast.Module, error) {
	start := time.Now()

	tree, err := rawhtml.Normalize(doc.Tree, rawhtml.Options{KeepComments: opts.KeepComments})
	if err != nil {
		return nil, fmt.Errorf("normalize error: %w", err)
	}

	m, err := compiler.Compile(tree)
	if err != nil {
		if doc.Metadata.Source != "" {
			return nil, fmt.Errorf("%s: %w", doc.Metadata.Source, err)
		}
		return nil, err
	}

	slog.Debug("compiled document", "path", doc.Metadata.Source, "duration", time.Since(start))
	return m, nil
}

// Compile compiles markdown source into JavaScript module source. Nothing
// is returned when compilation fails.
func Compile(source string) (string, error) {
	doc, err := NewParser().ParseMarkdownDoc(strings.NewReader(source), MetaData{})
	if err != nil {
		return "", fmt.Errorf("parse error: %w", err)
	}

	m, err := CompileDocument(doc, CompileOptions{})
	if err != nil {
		return "", err
	}

	return jsast.String(m), nil
}

var (
	ErrStructural       = compiler.ErrStructural
	ErrExpressionSyntax = compiler.ErrExpressionSyntax
	ErrUnsupportedNode  = compiler.ErrUnsupportedNode
)

// ErrorLine returns the source line a compile error points at, or 0.
func ErrorLine(err error) int {
	return compiler.LineOf(err)
}
