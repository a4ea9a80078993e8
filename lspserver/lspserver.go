// Package lspserver is a minimal editor integration (SPEC_FULL.md
// §6.5): on textDocument/didSave it runs one from-scratch compile of
// the watched class directory and publishes whatever diagnostics that
// pass produced. It holds no cross-save cache of scan state, so "no
// incremental compilation" (spec.md's Non-goal) holds here too.
//
// Adapted from the teacher's server/lsp.go: same handler-table and
// glsp.Context publish-diagnostics shape, with completion/hover/
// definition/references dropped (this is a compiler, not an
// interpreter with a live object model to introspect) and
// didOpen/didChange replaced by a single didSave trigger.
package lspserver

import (
	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	_ "github.com/tliron/commonlog/simple"
)

var log = commonlog.GetLogger("cw2wasm.lspserver")

const serverName = "cw2wasm-lsp"

// Compiler runs one compilation pass over dir and returns the
// diagnostics it produced (empty on success). Supplied by the caller
// (cmd/cw2wasm) so this package stays free of the module/classloader
// wiring details.
type Compiler interface {
	Compile(dir string) []Diagnostic
}

// Diagnostic is one build problem to surface in the editor.
type Diagnostic struct {
	Message    string
	SourceFile string
	LineNumber int
}

// Server bridges didSave notifications to a Compiler and publishes the
// result back as LSP diagnostics.
type Server struct {
	compiler Compiler
	watchDir string

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// New builds a Server that compiles watchDir on every didSave.
func New(compiler Compiler, watchDir string) *Server {
	s := &Server{compiler: compiler, watchDir: watchDir, version: "0.1.0"}

	s.handler = protocol.Handler{
		Initialize:         s.initialize,
		Initialized:        s.initialized,
		Shutdown:           s.shutdown,
		TextDocumentDidSave: s.textDocumentDidSave,
	}

	s.server = glspserver.NewServer(&s.handler, serverName, false)
	return s
}

// Run starts the LSP server on stdio. Blocks until the client disconnects.
func (s *Server) Run() error {
	return s.server.RunStdio()
}

func (s *Server) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	log.Infof("%s initializing", serverName)

	capabilities := s.handler.CreateServerCapabilities()
	syncKind := protocol.TextDocumentSyncKindNone
	saveOpts := true
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		Change: &syncKind,
		Save: &protocol.SaveOptions{
			IncludeText: &saveOpts,
		},
	}

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    serverName,
			Version: &s.version,
		},
	}, nil
}

func (s *Server) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *Server) shutdown(ctx *glsp.Context) error {
	return nil
}

func (s *Server) textDocumentDidSave(ctx *glsp.Context, params *protocol.DidSaveTextDocumentParams) error {
	diagnostics := s.compiler.Compile(s.watchDir)

	lspDiags := make([]protocol.Diagnostic, 0, len(diagnostics))
	severity := protocol.DiagnosticSeverityError
	source := serverName
	for _, d := range diagnostics {
		line := d.LineNumber
		if line < 0 {
			line = 0
		}
		lspDiags = append(lspDiags, protocol.Diagnostic{
			Range: protocol.Range{
				Start: protocol.Position{Line: uint32(line), Character: 0},
				End:   protocol.Position{Line: uint32(line), Character: 0},
			},
			Severity: &severity,
			Source:   &source,
			Message:  d.Message,
		})
	}

	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         params.TextDocument.URI,
		Diagnostics: lspDiags,
	})
	return nil
}
