package server

import (
	"errors"
	"io"
	"os"
)

// RWC joins a reader and a writer into the io.ReadWriteCloser a jsonrpc2
// stream expects.
type RWC struct {
	r io.ReadCloser
	w io.WriteCloser
}

// NewStdRWC creates a new RWC using standard input/output
func NewStdRWC() *RWC {
	return &RWC{
		r: os.Stdin,
		w: os.Stdout,
	}
}

// NewRWC creates a new RWC with custom reader and writer
func NewRWC(r io.ReadCloser, w io.WriteCloser) *RWC {
	return &RWC{
		r: r,
		w: w,
	}
}

func (rw *RWC) Read(p []byte) (int, error)  { return rw.r.Read(p) }
func (rw *RWC) Write(p []byte) (int, error) { return rw.w.Write(p) }

// Close closes both halves, reporting every failure.
func (rw *RWC) Close() error {
	var errs []error
	if rw.r != nil {
		errs = append(errs, rw.r.Close())
	}
	if rw.w != nil {
		errs = append(errs, rw.w.Close())
	}
	return errors.Join(errs...)
}
