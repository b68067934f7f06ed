package litdraw

import (
	"fmt"
	"io"

	"github.com/jwtly10/litdraw/internal/jsast"
)

const VERSION = "v0.1.0"

type WriteMode int

const (
	// ModePretty writes a generated-code header above the module
	ModePretty WriteMode = iota
	// ModeBare writes only the module
	ModeBare
)

func (m WriteMode) String() string {
	switch m {
	case ModePretty:
		return "Pretty"
	case ModeBare:
		return "Bare"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

type Writer struct {
	mode WriteMode
}

func NewWriter(mode WriteMode) *Writer {
	return &Writer{
		mode: mode,
	}
}

type WriterMetadata struct {
	Version   string
	AbsSource string
	Generated string
}

// WriteHeader writes the generated-code header. Bare writers write nothing.
func (w *Writer) WriteHeader(out io.Writer, md WriterMetadata) error {
	if w.mode != ModePretty {
		return nil
	}

	header := fmt.Sprintf("// Code generated by litdraw %s. DO NOT EDIT.\n", md.Version)
	if md.AbsSource != "" {
		header += fmt.Sprintf("// source: %s\n", md.AbsSource)
	}
	if md.Generated != "" {
		header += fmt.Sprintf("// generated: %s\n", md.Generated)
	}
	header += "\n"

	if _, err := io.WriteString(out, header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	return nil
}

// WriteContent writes the module source.
func (w *Writer) WriteContent(m *jsast.Module, out io.Writer) error {
	if err := jsast.Print(out, m); err != nil {
		return fmt.Errorf("writing module: %w", err)
	}
	return nil
}

// Write writes the header, when the mode has one, followed by the module.
func (w *Writer) Write(m *jsast.Module, out io.Writer, md WriterMetadata) error {
	if err := w.WriteHeader(out, md); err != nil {
		return err
	}
	return w.WriteContent(m, out)
}
