package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/sourcegraph/go-lsp"
	"github.com/sourcegraph/jsonrpc2"

	iLsp "github.com/jwtly10/litdraw/internal/lsp"
)

type Server struct {
	// tracks canceled request IDs
	cancelMap sync.Map

	// tracking for method request counts
	trackRequestCount sync.Map

	// compiles open documents
	docService *iLsp.DocumentService

	exit func(code int)
}

type Options struct {
	DocService iLsp.DocumentServiceOptions
}

var DefaultServerOptions = Options{
	DocService: iLsp.DefaultDocumentServiceOptions,
}

func (o Options) Validate() error {
	return o.DocService.Validate()
}

func NewServer(options Options) (*Server, error) {
	if err := options.Validate(); err != nil {
		return nil, err
	}

	dService, err := iLsp.NewDocumentService(options.DocService)
	if err != nil {
		return nil, err
	}

	return &Server{
		docService: dService,
		exit:       os.Exit,
	}, nil
}

func (s *Server) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (result interface{}, err error) {
	slog.Info("received request", "method", req.Method, "id", req.ID)
	counter, _ := s.trackRequestCount.LoadOrStore(req.Method, new(atomic.Int64))
	counter.(*atomic.Int64).Add(1)

	if _, ok := s.cancelMap.Load(req.ID.String()); ok {
		slog.Debug("request was canceled", "id", req.ID)
		s.cancelMap.Delete(req.ID.String())
		return nil, nil
	}

	switch req.Method {
	case "initialize":
		slog.Info("initializing lsp server")

		var initParams lsp.InitializeParams
		if err := unmarshalParams(req, &initParams); err != nil {
			return nil, err
		}

		return lsp.InitializeResult{
			Capabilities: lsp.ServerCapabilities{
				TextDocumentSync: &lsp.TextDocumentSyncOptionsOrKind{
					Options: &lsp.TextDocumentSyncOptions{
						OpenClose: true,
						Change:    lsp.TDSKFull,
						Save:      &lsp.SaveOptions{},
					},
				},
			},
		}, nil

	case "initialized":
		slog.Info("server initialized")
		return nil, nil

	case "shutdown":
		slog.Info("shutting down")
		s.printDebugStats()
		return nil, nil

	case "exit":
		slog.Info("exiting")
		s.exit(0)
		return nil, nil

	// Biz logic
	case "textDocument/didOpen":
		var params lsp.DidOpenTextDocumentParams
		if err := unmarshalParams(req, &params); err != nil {
			return nil, err
		}

		s.docService.Open(params.TextDocument.URI, params.TextDocument.Text)
		return nil, s.publishDiagnostics(ctx, conn, params.TextDocument.URI)

	case "textDocument/didChange":
		var params lsp.DidChangeTextDocumentParams
		if err := unmarshalParams(req, &params); err != nil {
			return nil, err
		}

		// Full sync, so the last change holds the whole document
		if n := len(params.ContentChanges); n > 0 {
			s.docService.Open(params.TextDocument.URI, params.ContentChanges[n-1].Text)
		}
		return nil, s.publishDiagnostics(ctx, conn, params.TextDocument.URI)

	case "textDocument/didSave":
		var params lsp.DidSaveTextDocumentParams
		if err := unmarshalParams(req, &params); err != nil {
			return nil, err
		}

		return nil, s.compileOnSave(ctx, conn, params.TextDocument.URI)

	case "textDocument/didClose":
		var params lsp.DidCloseTextDocumentParams
		if err := unmarshalParams(req, &params); err != nil {
			return nil, err
		}

		s.docService.Close(params.TextDocument.URI)
		return nil, s.sendDiagnostics(ctx, conn, lsp.PublishDiagnosticsParams{
			URI:         params.TextDocument.URI,
			Diagnostics: []lsp.Diagnostic{},
		})

	case "$/cancelRequest":
		var params lsp.CancelParams
		if err := unmarshalParams(req, &params); err != nil {
			return nil, err
		}
		slog.Debug("canceling request", "id", params.ID)
		s.cancelMap.Store(params.ID.String(), struct{}{})
		return nil, nil

	default:
		if req.Notif {
			slog.Debug("ignoring notification", "method", req.Method)
			return nil, nil
		}
		return nil, &jsonrpc2.Error{
			Code:    jsonrpc2.CodeMethodNotFound,
			Message: fmt.Sprintf("method not supported: %s", req.Method),
		}
	}
}

// compileOnSave writes the compiled module when the saved document is free of
// errors. Transform failures are reported as a diagnostic on the first line.
func (s *Server) compileOnSave(ctx context.Context, conn *jsonrpc2.Conn, uri lsp.DocumentURI) error {
	diagnostics, err := s.docService.Diagnose(uri)
	if err != nil {
		return err
	}

	if len(diagnostics) == 0 {
		outPath, err := s.docService.TransformFinalDoc(uri)
		if err != nil {
			slog.Error("failed to compile document on save", "uri", uri, "error", err)
			diagnostics = []lsp.Diagnostic{{
				Severity: lsp.Error,
				Source:   "litdraw",
				Message:  err.Error(),
			}}
		} else if outPath != "" {
			slog.Info("compiled document on save", "uri", uri, "output", outPath)
		}
	}

	return s.sendDiagnostics(ctx, conn, lsp.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

func (s *Server) publishDiagnostics(ctx context.Context, conn *jsonrpc2.Conn, uri lsp.DocumentURI) error {
	diagnostics, err := s.docService.Diagnose(uri)
	if err != nil {
		return err
	}

	return s.sendDiagnostics(ctx, conn, lsp.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

func (s *Server) sendDiagnostics(ctx context.Context, conn *jsonrpc2.Conn, params lsp.PublishDiagnosticsParams) error {
	slog.Debug("publishing diagnostics", "uri", params.URI, "count", len(params.Diagnostics))
	return conn.Notify(ctx, "textDocument/publishDiagnostics", params)
}

func (s *Server) printDebugStats() {
	s.trackRequestCount.Range(func(key, value interface{}) bool {
		msg := fmt.Sprintf("Method: %-30s Count: %d", key.(string), value.(*atomic.Int64).Load())
		slog.Debug(msg)
		return true
	})
}

func unmarshalParams(req *jsonrpc2.Request, v interface{}) error {
	if req.Params == nil {
		return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: "missing params"}
	}
	if err := json.Unmarshal(*req.Params, v); err != nil {
		return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: err.Error()}
	}
	return nil
}
