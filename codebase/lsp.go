package codebase

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/dhamidi/ilparse/table"
	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	_ "github.com/tliron/commonlog/simple"
)

const lsName = "ilparse"

var lspLog = commonlog.GetLogger("ilparse.lsp")

type LSPServer struct {
	codebase *Codebase
	lang     *table.Language
	opts     []Option
	handler  protocol.Handler
	server   *server.Server
	version  string
}

// NewLSPServer serves one language. The options configure the Codebase
// created when a client initializes the session.
func NewLSPServer(lang *table.Language, version string, opts ...Option) *LSPServer {
	ls := &LSPServer{
		lang:    lang,
		opts:    opts,
		version: version,
	}

	ls.handler = protocol.Handler{
		Initialize:                 ls.initialize,
		Initialized:                ls.initialized,
		Shutdown:                   ls.shutdown,
		SetTrace:                   ls.setTrace,
		TextDocumentDidOpen:        ls.textDocumentDidOpen,
		TextDocumentDidChange:      ls.textDocumentDidChange,
		TextDocumentDidClose:       ls.textDocumentDidClose,
		TextDocumentDidSave:        ls.textDocumentDidSave,
		TextDocumentHover:          ls.textDocumentHover,
		TextDocumentDocumentSymbol: ls.textDocumentDocumentSymbol,
	}

	ls.server = server.NewServer(&ls.handler, lsName, false)

	return ls
}

func (ls *LSPServer) RunStdio() error {
	return ls.server.RunStdio()
}

func (ls *LSPServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	rootDir := "."
	if params.RootPath != nil && *params.RootPath != "" {
		rootDir = *params.RootPath
	} else if params.RootURI != nil && *params.RootURI != "" {
		if path, err := uriToPath(*params.RootURI); err == nil {
			rootDir = path
		}
	}

	ls.codebase = New(rootDir, ls.lang, ls.opts...)

	capabilities := ls.handler.CreateServerCapabilities()

	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    syncKindPtr(protocol.TextDocumentSyncKindIncremental),
		Save: &protocol.SaveOptions{
			IncludeText: boolPtr(true),
		},
	}

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lsName,
			Version: &ls.version,
		},
	}, nil
}

func (ls *LSPServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	if err := ls.codebase.ScanAll(); err != nil {
		lspLog.Warningf("scan %s: %v", ls.codebase.RootDir(), err)
	}
	return nil
}

func (ls *LSPServer) shutdown(ctx *glsp.Context) error {
	return nil
}

func (ls *LSPServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

func (ls *LSPServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return nil
	}
	if err := ls.codebase.UpdateFile(path, []byte(params.TextDocument.Text)); err != nil {
		lspLog.Errorf("open %s: %v", path, err)
	}
	ls.publishDiagnostics(ctx, params.TextDocument.URI, path)
	return nil
}

func (ls *LSPServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return nil
	}
	file := ls.codebase.GetFile(path)
	if file == nil {
		return nil
	}
	changes, whole := resolveChanges(string(file.Content), params.ContentChanges)
	switch {
	case whole != nil:
		err = ls.codebase.UpdateFile(path, []byte(*whole))
	case len(changes) > 0:
		err = ls.codebase.ApplyChanges(path, changes...)
	}
	if err != nil {
		lspLog.Errorf("change %s: %v", path, err)
	}
	ls.publishDiagnostics(ctx, params.TextDocument.URI, path)
	return nil
}

// resolveChanges converts LSP content changes into byte ranges. A change
// carrying the whole text supersedes everything before it; ranged changes
// after it are folded into the returned text.
func resolveChanges(content string, events []any) ([]Change, *string) {
	var changes []Change
	var whole *string
	for _, ev := range events {
		switch ev := ev.(type) {
		case protocol.TextDocumentContentChangeEventWhole:
			text := ev.Text
			whole, content, changes = &text, text, nil
		case protocol.TextDocumentContentChangeEvent:
			if ev.Range == nil {
				continue
			}
			start, end := ev.Range.IndexesIn(content)
			if end < start {
				end = start
			}
			content = content[:start] + ev.Text + content[end:]
			if whole != nil {
				whole = &content
				continue
			}
			changes = append(changes, Change{StartByte: start, EndByte: end, Text: ev.Text})
		}
	}
	return changes, whole
}

func (ls *LSPServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	return nil
}

func (ls *LSPServer) textDocumentDidSave(ctx *glsp.Context, params *protocol.DidSaveTextDocumentParams) error {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return nil
	}
	if params.Text != nil {
		err = ls.codebase.UpdateFile(path, []byte(*params.Text))
	} else {
		err = ls.codebase.ScanFile(path)
	}
	if err != nil {
		lspLog.Errorf("save %s: %v", path, err)
	}
	ls.publishDiagnostics(ctx, params.TextDocument.URI, path)
	return nil
}

func (ls *LSPServer) publishDiagnostics(ctx *glsp.Context, uri protocol.DocumentUri, path string) {
	file := ls.codebase.GetFile(path)
	if file == nil {
		return
	}
	content := string(file.Content)
	diagnostics := []protocol.Diagnostic{}
	for _, d := range ls.codebase.Diagnostics(path) {
		severity := protocol.DiagnosticSeverityError
		source := lsName
		diagnostics = append(diagnostics, protocol.Diagnostic{
			Range:    rangeOf(content, d.StartByte, d.EndByte),
			Severity: &severity,
			Source:   &source,
			Message:  d.Message,
		})
	}
	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

func (ls *LSPServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return nil, nil
	}
	file := ls.codebase.GetFile(path)
	if file == nil {
		return nil, nil
	}
	content := string(file.Content)
	node, ok := ls.codebase.NodeAt(path, params.Position.IndexIn(content))
	if !ok {
		return nil, nil
	}
	var chain []string
	for n := node; !n.IsNull(); n = n.Parent() {
		chain = append([]string{n.Type()}, chain...)
	}
	r := rangeOf(content, node.StartByte(), node.EndByte())
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindPlainText,
			Value: fmt.Sprintf("%s [%d, %d)\n%s", node.Type(), node.StartByte(), node.EndByte(), strings.Join(chain, " > ")),
		},
		Range: &r,
	}, nil
}

func (ls *LSPServer) textDocumentDocumentSymbol(ctx *glsp.Context, params *protocol.DocumentSymbolParams) (any, error) {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return nil, nil
	}
	file := ls.codebase.GetFile(path)
	if file == nil {
		return nil, nil
	}
	return toDocumentSymbols(string(file.Content), ls.codebase.Symbols(path)), nil
}

func toDocumentSymbols(content string, symbols []*Symbol) []protocol.DocumentSymbol {
	out := make([]protocol.DocumentSymbol, 0, len(symbols))
	for _, s := range symbols {
		out = append(out, protocol.DocumentSymbol{
			Name:           s.Name,
			Kind:           toSymbolKind(s.Kind),
			Range:          rangeOf(content, s.StartByte, s.EndByte),
			SelectionRange: rangeOf(content, s.NameStart, s.NameEnd),
			Children:       toDocumentSymbols(content, s.Children),
		})
	}
	return out
}

func toSymbolKind(kind string) protocol.SymbolKind {
	switch kind {
	case "assembly", "module":
		return protocol.SymbolKindModule
	case "class":
		return protocol.SymbolKindClass
	case "method":
		return protocol.SymbolKindMethod
	case "field":
		return protocol.SymbolKindField
	default:
		return protocol.SymbolKindVariable
	}
}

// positionOf converts a byte offset into an LSP position counted in UTF-16
// code units.
func positionOf(content string, offset int) protocol.Position {
	offset = min(offset, len(content))
	line := strings.Count(content[:offset], "\n")
	lineStart := strings.LastIndexByte(content[:offset], '\n') + 1
	character := 0
	for _, r := range content[lineStart:offset] {
		if r >= 0x10000 {
			character += 2
		} else {
			character++
		}
	}
	return protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(character)}
}

func rangeOf(content string, start, end int) protocol.Range {
	return protocol.Range{Start: positionOf(content, start), End: positionOf(content, end)}
}

func uriToPath(uri string) (string, error) {
	if strings.HasPrefix(uri, "file://") {
		parsed, err := url.Parse(uri)
		if err != nil {
			return "", err
		}
		return filepath.Clean(parsed.Path), nil
	}
	return uri, nil
}

func boolPtr(b bool) *bool {
	return &b
}

func syncKindPtr(k protocol.TextDocumentSyncKind) *protocol.TextDocumentSyncKind {
	return &k
}
