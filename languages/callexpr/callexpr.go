// Package callexpr is a small expression language used to exercise the
// engine: calls with argument lists, binary operators resolved by
// precedence, line comments, and heredocs produced by a stateful external
// scanner.
//
//	total(1, 2 * 3) + <<END
//	any text
//	END
package callexpr

import (
	"sync"

	. "github.com/dhamidi/ilparse/grammar"
	"github.com/dhamidi/ilparse/table"
)

func Definition() *Grammar {
	g := New("callexpr")
	g.Extra(Pattern(`\s+`), Sym("comment"))
	g.External("heredoc_start", "heredoc_body", "heredoc_end")
	g.Define("source_file", Repeat(Sym("_expression")))
	g.Define("_expression", Choice(
		Sym("call_expression"),
		Sym("binary_expression"),
		Sym("parenthesized_expression"),
		Sym("heredoc"),
		Sym("identifier"),
		Sym("number"),
	))
	g.Define("call_expression", Seq(
		Field("callee", Sym("identifier")),
		Field("arguments", Sym("arguments")),
	))
	g.Define("arguments", Seq(
		Str("("),
		Optional(Seq(Sep1(Str(","), Sym("_expression")), Optional(Str(",")))),
		Str(")"),
	))
	g.Define("binary_expression", Choice(
		PrecLeft(1, Seq(Field("left", Sym("_expression")), Field("operator", Str("+")), Field("right", Sym("_expression")))),
		PrecLeft(2, Seq(Field("left", Sym("_expression")), Field("operator", Str("*")), Field("right", Sym("_expression")))),
	))
	g.Define("parenthesized_expression", Seq(Str("["), Sym("_expression"), Str("]")))
	g.Define("heredoc", Seq(
		Sym("heredoc_start"),
		Optional(Sym("heredoc_body")),
		Sym("heredoc_end"),
	))
	g.Define("identifier", Pattern(`[A-Za-z_][A-Za-z0-9_]*`))
	g.Define("number", Pattern(`\d+`))
	g.Define("comment", Token(Seq(Str("#"), Pattern(`[^\n]*`))))
	return g
}

var (
	once    sync.Once
	data    []byte
	lang    *table.Language
	loadErr error
)

func load() {
	t, err := Compile(Definition())
	if err != nil {
		loadErr = err
		return
	}
	if data, err = table.Marshal(t); err != nil {
		loadErr = err
		return
	}
	lang, loadErr = table.Load(data, table.WithExternalScanner(NewScanner))
}

// TableBytes returns the encoded parse table.
func TableBytes() ([]byte, error) {
	once.Do(load)
	return data, loadErr
}

// Language returns the shared language with its heredoc scanner.
func Language() (*table.Language, error) {
	once.Do(load)
	return lang, loadErr
}
