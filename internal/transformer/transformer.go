package transformer

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jwtly10/litdraw"
	"github.com/jwtly10/litdraw/internal/config"
)

type TransformOptions struct {
	// The mode for the writer instance
	WriterMode litdraw.WriteMode
	// If true, no backup will be created
	NoBackup bool
	// If true, pragma output is required for transformation, otherwise transform will error
	RequirePragmaOutput bool
	// Extension of compiled files without an output pragma
	OutputExt string
	// Keep html comments in the document tree
	KeepComments bool
}

// OptionsFromConfig maps a loaded config onto transform options.
func OptionsFromConfig(cfg *config.Config) TransformOptions {
	return TransformOptions{
		WriterMode:          litdraw.ModePretty,
		NoBackup:            !cfg.Backup,
		RequirePragmaOutput: cfg.RequireOutputPragma,
		OutputExt:           cfg.OutputExt,
		KeepComments:        cfg.KeepComments,
	}
}

func (t *TransformOptions) Pretty() string {
	return fmt.Sprintf("mode=%s backup=%s require_output_pragma=%s output_ext=%s",
		t.WriterMode,
		boolToText(!t.NoBackup),
		boolToText(t.RequirePragmaOutput),
		t.OutputExt)
}

func boolToText(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

type Transformer struct {
	parser *litdraw.Parser
	writer *litdraw.Writer
	backup *litdraw.BackupManager
	now    func() time.Time

	opts TransformOptions
}

// NewTransformer creates a new Transformer instance with the specified options [TransformOptions]
func NewTransformer(opts TransformOptions) *Transformer {
	return &Transformer{
		parser: litdraw.NewParser(),
		writer: litdraw.NewWriter(opts.WriterMode),
		backup: litdraw.NewBackupManager(),
		now:    time.Now,
		opts:   opts,
	}
}

type MarkdownSource struct {
	Content  io.Reader
	Metadata litdraw.MetaData
}

// Transform compiles the source and writes the module next to it, or to
// the path set by its output pragma. Returns the absolute output path.
//
// The document is compiled in full before anything is written, so a
// failing document never leaves partial output or a backup behind.
func (t *Transformer) Transform(input MarkdownSource) (string, error) {
	slog.Debug("transforming document", "path", input.Metadata.AbsSource, "opts", t.opts.Pretty())
	if input.Metadata.AbsSource == "" {
		return "", fmt.Errorf("abs source metadata is required for transformation")
	}

	doc, err := t.parser.ParseMarkdownDoc(input.Content, input.Metadata)
	if err != nil {
		return "", fmt.Errorf("parse error: %w", err)
	}

	if t.opts.RequirePragmaOutput && doc.Pragmas.Output == "" {
		return "", fmt.Errorf("pragma key 'output' is required for transformation")
	}
	absTransformPath := litdraw.ResolveOutputPath(input.Metadata.AbsSource, doc.Pragmas, t.opts.OutputExt)

	var buf bytes.Buffer
	if err := t.render(doc, &buf); err != nil {
		return "", err
	}

	var bkPath string
	if !t.opts.NoBackup {
		bkPath, err = t.backup.CreateBackupOf(absTransformPath)
		if err != nil {
			return "", fmt.Errorf("backup error: %w", err)
		}
	}

	if bkPath != "" {
		slog.Info("file already existed. Created backup", "backup", bkPath, "original", absTransformPath)
	}

	if err := os.MkdirAll(filepath.Dir(absTransformPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := os.WriteFile(absTransformPath, buf.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("failed to write output file: %w", err)
	}

	return absTransformPath, nil
}

// TransformTo compiles the source and writes the module to out.
func (t *Transformer) TransformTo(input MarkdownSource, out io.Writer) error {
	doc, err := t.parser.ParseMarkdownDoc(input.Content, input.Metadata)
	if err != nil {
		return fmt.Errorf("parse error: %w", err)
	}

	var buf bytes.Buffer
	if err := t.render(doc, &buf); err != nil {
		return err
	}

	if _, err := buf.WriteTo(out); err != nil {
		return fmt.Errorf("write error: %w", err)
	}
	return nil
}

func (t *Transformer) render(doc *litdraw.Document, buf *bytes.Buffer) error {
	m, err := litdraw.CompileDocument(doc, litdraw.CompileOptions{KeepComments: t.opts.KeepComments})
	if err != nil {
		return fmt.Errorf("compile error: %w", err)
	}

	metadata := litdraw.WriterMetadata{
		Version:   litdraw.VERSION,
		AbsSource: doc.Metadata.AbsSource,
		Generated: t.now().Format(time.RFC3339),
	}
	if err := t.writer.Write(m, buf, metadata); err != nil {
		return fmt.Errorf("write error: %w", err)
	}
	return nil
}
