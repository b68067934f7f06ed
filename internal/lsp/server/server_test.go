package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sourcegraph/go-lsp"
	"github.com/sourcegraph/jsonrpc2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClient struct {
	conn        *jsonrpc2.Conn
	diagnostics chan lsp.PublishDiagnosticsParams
	exited      chan int
}

func newTestClient(t *testing.T, opts Options) *testClient {
	t.Helper()

	s, err := NewServer(opts)
	require.NoError(t, err)

	tc := &testClient{
		diagnostics: make(chan lsp.PublishDiagnosticsParams, 16),
		exited:      make(chan int, 1),
	}
	s.exit = func(code int) { tc.exited <- code }

	clientR, serverW := io.Pipe()
	serverR, clientW := io.Pipe()

	ctx := context.Background()
	serverConn := jsonrpc2.NewConn(ctx,
		jsonrpc2.NewBufferedStream(NewRWC(serverR, serverW), jsonrpc2.VSCodeObjectCodec{}),
		jsonrpc2.HandlerWithError(s.Handle),
	)

	tc.conn = jsonrpc2.NewConn(ctx,
		jsonrpc2.NewBufferedStream(NewRWC(clientR, clientW), jsonrpc2.VSCodeObjectCodec{}),
		jsonrpc2.HandlerWithError(func(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (interface{}, error) {
			if req.Method == "textDocument/publishDiagnostics" {
				var params lsp.PublishDiagnosticsParams
				if err := json.Unmarshal(*req.Params, &params); err != nil {
					return nil, err
				}
				tc.diagnostics <- params
			}
			return nil, nil
		}),
	)

	t.Cleanup(func() {
		tc.conn.Close()
		serverConn.Close()
	})
	return tc
}

func (tc *testClient) notify(t *testing.T, method string, params interface{}) {
	t.Helper()
	require.NoError(t, tc.conn.Notify(context.Background(), method, params))
}

func (tc *testClient) nextDiagnostics(t *testing.T) lsp.PublishDiagnosticsParams {
	t.Helper()
	select {
	case params := <-tc.diagnostics:
		return params
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for diagnostics")
		return lsp.PublishDiagnosticsParams{}
	}
}

func testOptions() Options {
	opts := DefaultServerOptions
	opts.DocService.FinalTransformerOpts.NoBackup = true
	return opts
}

func TestServerOptions(t *testing.T) {
	badExt := DefaultServerOptions
	badExt.DocService.FinalTransformerOpts.OutputExt = "js"

	tests := []struct {
		name        string
		opts        Options
		expectError bool
	}{
		{
			name: "default options",
			opts: DefaultServerOptions,
		},
		{
			name:        "empty options",
			opts:        Options{},
			expectError: false,
		},
		{
			name:        "invalid output extension",
			opts:        badExt,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, err := NewServer(tt.opts)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, server)
		})
	}
}

func TestInitializeAdvertisesFullSync(t *testing.T) {
	tc := newTestClient(t, testOptions())

	var result map[string]interface{}
	err := tc.conn.Call(context.Background(), "initialize", lsp.InitializeParams{RootURI: "file:///tmp"}, &result)
	require.NoError(t, err)

	caps, ok := result["capabilities"].(map[string]interface{})
	require.True(t, ok, "capabilities missing: %v", result)
	sync, ok := caps["textDocumentSync"].(map[string]interface{})
	require.True(t, ok, "textDocumentSync missing: %v", caps)
	assert.Equal(t, float64(lsp.TDSKFull), sync["change"])
	assert.Equal(t, true, sync["openClose"])
}

func TestDiagnosticsFollowEdits(t *testing.T) {
	tc := newTestClient(t, testOptions())
	uri := lsp.DocumentURI("file:///tmp/page.draw.md")

	tc.notify(t, "textDocument/didOpen", lsp.DidOpenTextDocumentParams{
		TextDocument: lsp.TextDocumentItem{
			URI:        uri,
			LanguageID: "markdown",
			Version:    1,
			Text:       "# Title\n\nHello {oops(}\n",
		},
	})

	got := tc.nextDiagnostics(t)
	assert.Equal(t, uri, got.URI)
	require.Len(t, got.Diagnostics, 1)
	d := got.Diagnostics[0]
	assert.Equal(t, lsp.Error, d.Severity)
	assert.Equal(t, "litdraw", d.Source)
	assert.Equal(t, 2, d.Range.Start.Line)
	assert.Equal(t, len("Hello {oops(}"), d.Range.End.Character)
	assert.Contains(t, d.Message, "invalid expression")

	tc.notify(t, "textDocument/didChange", lsp.DidChangeTextDocumentParams{
		TextDocument: lsp.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: lsp.TextDocumentIdentifier{URI: uri},
			Version:                2,
		},
		ContentChanges: []lsp.TextDocumentContentChangeEvent{
			{Text: "# Title\n\nHello {ctx.name}\n"},
		},
	})

	got = tc.nextDiagnostics(t)
	assert.Equal(t, uri, got.URI)
	assert.Empty(t, got.Diagnostics)

	tc.notify(t, "textDocument/didClose", lsp.DidCloseTextDocumentParams{
		TextDocument: lsp.TextDocumentIdentifier{URI: uri},
	})
	got = tc.nextDiagnostics(t)
	assert.Empty(t, got.Diagnostics)
}

func TestSaveCompilesDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.draw.md")
	text := "<!-- @pragma output: dist/page.js -->\n\n# Saved\n"
	require.NoError(t, os.WriteFile(path, []byte(text), 0644))

	tc := newTestClient(t, testOptions())
	uri := lsp.DocumentURI("file://" + path)

	tc.notify(t, "textDocument/didOpen", lsp.DidOpenTextDocumentParams{
		TextDocument: lsp.TextDocumentItem{URI: uri, LanguageID: "markdown", Version: 1, Text: text},
	})
	assert.Empty(t, tc.nextDiagnostics(t).Diagnostics)

	tc.notify(t, "textDocument/didSave", lsp.DidSaveTextDocumentParams{
		TextDocument: lsp.TextDocumentIdentifier{URI: uri},
	})
	assert.Empty(t, tc.nextDiagnostics(t).Diagnostics)

	out, err := os.ReadFile(filepath.Join(dir, "dist", "page.js"))
	require.NoError(t, err)
	assert.Contains(t, string(out), "// Code generated by litdraw")
	assert.Contains(t, string(out), `h("h1", { id: "saved" }, [`)
}

func TestSaveWithoutOutputPragmaReportsError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.draw.md")

	tc := newTestClient(t, testOptions())
	uri := lsp.DocumentURI("file://" + path)

	tc.notify(t, "textDocument/didOpen", lsp.DidOpenTextDocumentParams{
		TextDocument: lsp.TextDocumentItem{URI: uri, LanguageID: "markdown", Version: 1, Text: "# Saved\n"},
	})
	assert.Empty(t, tc.nextDiagnostics(t).Diagnostics)

	tc.notify(t, "textDocument/didSave", lsp.DidSaveTextDocumentParams{
		TextDocument: lsp.TextDocumentIdentifier{URI: uri},
	})
	got := tc.nextDiagnostics(t)
	require.Len(t, got.Diagnostics, 1)
	assert.Contains(t, got.Diagnostics[0].Message, "pragma key 'output' is required")

	_, err := os.Stat(filepath.Join(dir, "page.draw.js"))
	assert.True(t, os.IsNotExist(err))
}

func TestUnknownRequestIsRejected(t *testing.T) {
	tc := newTestClient(t, testOptions())

	var out json.RawMessage
	err := tc.conn.Call(context.Background(), "textDocument/hover", lsp.TextDocumentPositionParams{}, &out)
	require.Error(t, err)

	var rpcErr *jsonrpc2.Error
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, int64(jsonrpc2.CodeMethodNotFound), rpcErr.Code)
}

func TestShutdownAndExit(t *testing.T) {
	tc := newTestClient(t, testOptions())

	var out json.RawMessage
	require.NoError(t, tc.conn.Call(context.Background(), "shutdown", nil, &out))
	tc.notify(t, "exit", nil)

	select {
	case code := <-tc.exited:
		assert.Equal(t, 0, code)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not exit")
	}
}
