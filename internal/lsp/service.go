package lsp

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/sourcegraph/go-lsp"

	"github.com/jwtly10/litdraw"
	"github.com/jwtly10/litdraw/internal/transformer"
)

const diagnosticSource = "litdraw"

type DocumentServiceOptions struct {
	// Options for the transformer run when a document is saved
	FinalTransformerOpts transformer.TransformOptions

	// Compile on save. When false, documents are only diagnosed.
	CompileOnSave bool
}

var DefaultDocumentServiceOptions = DocumentServiceOptions{
	FinalTransformerOpts: transformer.TransformOptions{
		WriterMode:          litdraw.ModePretty,
		NoBackup:            false,
		RequirePragmaOutput: true,
		OutputExt:           litdraw.DefaultOutputExt,
	},
	CompileOnSave: true,
}

func (o DocumentServiceOptions) Validate() error {
	if o.FinalTransformerOpts.OutputExt != "" && !strings.HasPrefix(o.FinalTransformerOpts.OutputExt, ".") {
		return fmt.Errorf("output extension must start with a dot, got %q", o.FinalTransformerOpts.OutputExt)
	}
	return nil
}

// DocumentService tracks open documents and compiles them for diagnostics
// and on save.
type DocumentService struct {
	mu   sync.Mutex
	docs map[lsp.DocumentURI]string

	parser      *litdraw.Parser
	compileOpts litdraw.CompileOptions

	// The transformer used for 'final' transformation
	finalTransformer *transformer.Transformer
	compileOnSave    bool
}

func NewDocumentService(opts DocumentServiceOptions) (*DocumentService, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid document service options: %w", err)
	}

	return &DocumentService{
		docs:             make(map[lsp.DocumentURI]string),
		parser:           litdraw.NewParser(),
		compileOpts:      litdraw.CompileOptions{KeepComments: opts.FinalTransformerOpts.KeepComments},
		finalTransformer: transformer.NewTransformer(opts.FinalTransformerOpts),
		compileOnSave:    opts.CompileOnSave,
	}, nil
}

// Open stores the text of an opened or changed document.
func (s *DocumentService) Open(uri lsp.DocumentURI, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[uri] = text
}

func (s *DocumentService) Close(uri lsp.DocumentURI) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, uri)
}

func (s *DocumentService) Text(uri lsp.DocumentURI) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, ok := s.docs[uri]
	return text, ok
}

// Diagnose compiles the stored text of a document in memory and returns
// its problems. A document that compiles cleanly has no diagnostics.
func (s *DocumentService) Diagnose(uri lsp.DocumentURI) ([]lsp.Diagnostic, error) {
	text, ok := s.Text(uri)
	if !ok {
		return nil, fmt.Errorf("document not open: %s", uri)
	}

	doc, err := s.parser.ParseMarkdownDoc(strings.NewReader(text), litdraw.MetaData{})
	if err != nil {
		return []lsp.Diagnostic{newDiagnostic(text, 0, fmt.Sprintf("parse error: %v", err))}, nil
	}

	if _, err := litdraw.CompileDocument(doc, s.compileOpts); err != nil {
		line := litdraw.ErrorLine(err)
		slog.Debug("document has compile error", "uri", uri, "line", line, "error", err)
		return []lsp.Diagnostic{newDiagnostic(text, line, err.Error())}, nil
	}

	return []lsp.Diagnostic{}, nil
}

// TransformFinalDoc transforms a document for final 'compilation' output,
// returning the absolute path of the output file.
func (s *DocumentService) TransformFinalDoc(uri lsp.DocumentURI) (string, error) {
	if !s.compileOnSave {
		return "", nil
	}

	text, ok := s.Text(uri)
	if !ok {
		return "", fmt.Errorf("document not open: %s", uri)
	}

	sourcePath, err := s.URIToPath(uri)
	if err != nil {
		return "", fmt.Errorf("invalid document URI: %w", err)
	}

	source := transformer.MarkdownSource{
		Content: strings.NewReader(text),
		Metadata: litdraw.MetaData{
			Source:    sourcePath,
			AbsSource: sourcePath,
		},
	}

	transformedPath, err := s.finalTransformer.Transform(source)
	if err != nil {
		return "", fmt.Errorf("transform error: %w", err)
	}

	return transformedPath, nil
}

// URIToPath converts an LSP URI to a filesystem path
func (s *DocumentService) URIToPath(uri lsp.DocumentURI) (string, error) {
	u, err := url.Parse(string(uri))
	if err != nil {
		return "", err
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("unsupported uri scheme %q", u.Scheme)
	}
	return u.Path, nil
}

// PathToURI converts a filesystem path to an LSP URI
func (s *DocumentService) PathToURI(path string) lsp.DocumentURI {
	return lsp.DocumentURI("file://" + path)
}

// newDiagnostic spans the whole of a 1-based document line. Line 0 marks the
// start of the document.
func newDiagnostic(text string, line int, msg string) lsp.Diagnostic {
	idx := 0
	if line > 0 {
		idx = line - 1
	}

	width := 0
	if lines := strings.Split(text, "\n"); idx < len(lines) {
		width = len(lines[idx])
	}

	return lsp.Diagnostic{
		Range: lsp.Range{
			Start: lsp.Position{Line: idx, Character: 0},
			End:   lsp.Position{Line: idx, Character: width},
		},
		Severity: lsp.Error,
		Source:   diagnosticSource,
		Message:  msg,
	}
}
