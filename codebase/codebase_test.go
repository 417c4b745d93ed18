package codebase

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/dhamidi/ilparse/languages/callexpr"
	"github.com/dhamidi/ilparse/languages/cil"
	"github.com/dhamidi/ilparse/parser"
	"github.com/dhamidi/ilparse/query"
	"github.com/dhamidi/ilparse/syntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

func newCallexprCodebase(t *testing.T, opts ...Option) *Codebase {
	t.Helper()
	lang, err := callexpr.Language()
	require.NoError(t, err)
	return New(t.TempDir(), lang, opts...)
}

func freshTree(t *testing.T, c *Codebase, src string) *syntax.Tree {
	t.Helper()
	tree, err := parser.New(c.Language()).Parse(context.Background(), []byte(src), nil)
	require.NoError(t, err)
	return tree
}

func TestDiffEdit(t *testing.T) {
	tests := []struct {
		name          string
		before, after string
		want          syntax.Edit
	}{
		{"insert", "abc", "abXc", syntax.Edit{StartByte: 2, OldEndByte: 2, NewEndByte: 3}},
		{"replace digit", "foo(1,2)", "foo(10,2)", syntax.Edit{StartByte: 5, OldEndByte: 5, NewEndByte: 6}},
		{"unchanged", "same", "same", syntax.Edit{StartByte: 4, OldEndByte: 4, NewEndByte: 4}},
		{"clear", "ab", "", syntax.Edit{StartByte: 0, OldEndByte: 2, NewEndByte: 0}},
		{"repeated bytes", "aaa", "aa", syntax.Edit{StartByte: 2, OldEndByte: 3, NewEndByte: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, diffEdit([]byte(tt.before), []byte(tt.after)))
		})
	}
}

func TestUpdateFileReparsesIncrementally(t *testing.T) {
	c := newCallexprCodebase(t)
	path := filepath.Join(c.RootDir(), "a.expr")

	require.NoError(t, c.UpdateFile(path, []byte("foo(1,2)\nbar(3)")))
	first := c.GetFile(path)
	require.NotNil(t, first)
	assert.False(t, first.Incremental)

	require.NoError(t, c.UpdateFile(path, []byte("foo(10,2)\nbar(3)")))
	second := c.GetFile(path)
	assert.True(t, second.Incremental)
	assert.True(t, syntax.Equal(freshTree(t, c, "foo(10,2)\nbar(3)"), second.Tree))
	assert.Same(t,
		first.Tree.Root().NamedChild(1).Subtree(),
		second.Tree.Root().NamedChild(1).Subtree(),
		"the untouched call should be reused")
}

func TestApplyChanges(t *testing.T) {
	c := newCallexprCodebase(t)
	path := "doc.expr"
	require.NoError(t, c.UpdateFile(path, []byte("f(x)")))

	require.NoError(t, c.ApplyChanges(path,
		Change{StartByte: 2, EndByte: 3, Text: "1, 2"},
		Change{StartByte: 0, EndByte: 1, Text: "g"},
	))
	f := c.GetFile(path)
	assert.Equal(t, "g(1, 2)", string(f.Content))
	assert.True(t, f.Incremental)
	assert.Equal(t, freshTree(t, c, "g(1, 2)").String(), f.Tree.String())

	err := c.ApplyChanges(path, Change{StartByte: 5, EndByte: 100})
	assert.ErrorContains(t, err, "outside 7 bytes")
	assert.Equal(t, "g(1, 2)", string(c.GetFile(path).Content), "a rejected change leaves the document alone")

	assert.Error(t, c.ApplyChanges("unknown.expr", Change{}))
}

func TestDiagnostics(t *testing.T) {
	c := newCallexprCodebase(t)
	tests := []struct {
		src  string
		want []Diagnostic
	}{
		{"foo(1, 2)", nil},
		{"foo(1,", []Diagnostic{{StartByte: 6, EndByte: 6, Message: `missing ")"`}}},
		{"foo ) bar", []Diagnostic{{StartByte: 4, EndByte: 5, Message: `unexpected ")"`}}},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			require.NoError(t, c.UpdateFile(tt.src, []byte(tt.src)))
			assert.Equal(t, tt.want, c.Diagnostics(tt.src))
		})
	}
	assert.Nil(t, c.Diagnostics("not loaded"))
}

func TestNodeAt(t *testing.T) {
	c := newCallexprCodebase(t)
	require.NoError(t, c.UpdateFile("a", []byte("foo(1,2)")))

	n, ok := c.NodeAt("a", 4)
	require.True(t, ok)
	assert.Equal(t, "number", n.Type())
	assert.Equal(t, "1", n.Text())

	_, ok = c.NodeAt("b", 0)
	assert.False(t, ok)
}

func TestSymbols(t *testing.T) {
	lang, err := cil.Language()
	require.NoError(t, err)
	q, err := query.Compile(lang, cil.SymbolsQuery)
	require.NoError(t, err)
	c := New(t.TempDir(), lang, WithSymbolQuery(q))

	src := ".assembly Hello {}\n.class public Program {\n  .method public static void Main() cil managed {\n    ret\n  }\n}"
	require.NoError(t, c.UpdateFile("hello.il", []byte(src)))

	symbols := c.Symbols("hello.il")
	require.Len(t, symbols, 2)
	assert.Equal(t, "Hello", symbols[0].Name)
	assert.Equal(t, "assembly", symbols[0].Kind)
	assert.Empty(t, symbols[0].Children)

	class := symbols[1]
	assert.Equal(t, "Program", class.Name)
	assert.Equal(t, "class", class.Kind)
	require.Len(t, class.Children, 1)
	method := class.Children[0]
	assert.Equal(t, "Main", method.Name)
	assert.Equal(t, "method", method.Kind)
	assert.Equal(t, "Main", src[method.NameStart:method.NameEnd])
}

func TestScanAll(t *testing.T) {
	c := newCallexprCodebase(t, WithExtensions(".expr"))
	root := c.RootDir()
	write := func(rel, content string) {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	write("a.expr", "f(1)")
	write("sub/b.EXPR", "g(")
	write("notes.txt", "ignored")
	write(".cache/c.expr", "hidden")

	require.NoError(t, c.ScanAll())
	assert.Equal(t, []string{
		filepath.Join(root, "a.expr"),
		filepath.Join(root, "sub", "b.EXPR"),
	}, c.Paths())
	assert.Len(t, c.Diagnostics(filepath.Join(root, "sub", "b.EXPR")), 1)

	c.RemoveFile(filepath.Join(root, "a.expr"))
	assert.Nil(t, c.GetFile(filepath.Join(root, "a.expr")))
}

func TestPositionOf(t *testing.T) {
	content := "a\U0001F600b\nc"
	tests := []struct {
		offset int
		want   protocol.Position
	}{
		{0, protocol.Position{Line: 0, Character: 0}},
		{5, protocol.Position{Line: 0, Character: 3}},
		{7, protocol.Position{Line: 1, Character: 0}},
		{100, protocol.Position{Line: 1, Character: 1}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, positionOf(content, tt.offset), "offset %d", tt.offset)
	}
}

func TestResolveChanges(t *testing.T) {
	ranged := func(line, from, to protocol.UInteger, text string) protocol.TextDocumentContentChangeEvent {
		return protocol.TextDocumentContentChangeEvent{
			Range: &protocol.Range{
				Start: protocol.Position{Line: line, Character: from},
				End:   protocol.Position{Line: line, Character: to},
			},
			Text: text,
		}
	}

	changes, whole := resolveChanges("foo(1,2)", []any{
		ranged(0, 4, 5, "10"),
		ranged(0, 0, 3, "bar"),
	})
	assert.Nil(t, whole)
	assert.Equal(t, []Change{
		{StartByte: 4, EndByte: 5, Text: "10"},
		{StartByte: 0, EndByte: 3, Text: "bar"},
	}, changes)

	changes, whole = resolveChanges("foo", []any{
		ranged(0, 0, 1, "g"),
		protocol.TextDocumentContentChangeEventWhole{Text: "x(1)"},
		ranged(0, 2, 3, "2"),
	})
	assert.Empty(t, changes)
	require.NotNil(t, whole)
	assert.Equal(t, "x(2)", *whole)
}
