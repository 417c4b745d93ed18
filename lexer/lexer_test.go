package lexer_test

import (
	"slices"
	"testing"

	"github.com/dhamidi/ilparse/grammar"
	"github.com/dhamidi/ilparse/languages/callexpr"
	"github.com/dhamidi/ilparse/lexer"
	"github.com/dhamidi/ilparse/table"
	"github.com/google/go-cmp/cmp"
)

func callexprLanguage(t *testing.T) *table.Language {
	t.Helper()
	lang, err := callexpr.Language()
	if err != nil {
		t.Fatalf("Language: %v", err)
	}
	return lang
}

func compileLanguage(t *testing.T, g *grammar.Grammar) *table.Language {
	t.Helper()
	tbl, err := grammar.Compile(g)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	lang, err := table.NewLanguage(tbl)
	if err != nil {
		t.Fatalf("NewLanguage: %v", err)
	}
	return lang
}

func symbol(t *testing.T, lang *table.Language, name string, named bool) table.Symbol {
	t.Helper()
	s, ok := lang.SymbolForName(name, named)
	if !ok {
		t.Fatalf("no symbol %q", name)
	}
	return s
}

func TestNextTokens(t *testing.T) {
	lang := callexprLanguage(t)
	mode := lang.LexMode(0)
	ident := symbol(t, lang, "identifier", true)
	closeParen := symbol(t, lang, ")", false)

	tests := []struct {
		name  string
		input string
		pos   int
		want  lexer.Token
	}{
		{"identifier", "foo  bar", 0, lexer.Token{Symbol: ident, Start: 0, End: 3, Lookahead: 1}},
		{"padding", "foo  bar", 3, lexer.Token{Symbol: ident, Start: 5, End: 8, Padding: 2, Lookahead: 1}},
		{"end of input", "foo ", 3, lexer.Token{Symbol: table.SymbolEnd, Start: 4, End: 4, Padding: 1, Lookahead: 1}},
		{"error byte", "$x", 0, lexer.Token{Symbol: table.SymbolError, Start: 0, End: 1, Lookahead: 0, IsError: true}},
		{"fallback", ")", 0, lexer.Token{Symbol: closeParen, Start: 0, End: 1, Lookahead: 0, Fallback: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := lexer.New(lang, []byte(tt.input), lang.NewScanner())
			got, _ := l.Next(tt.pos, mode, nil)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Next() mismatch (-want +got):\n%s", diff)
			}
			again, _ := l.Next(tt.pos, mode, nil)
			if again != got {
				t.Errorf("Next() is not deterministic: %+v then %+v", got, again)
			}
		})
	}
}

func TestLiteralsBeatPatterns(t *testing.T) {
	g := grammar.New("keywords")
	g.Extra(grammar.Pattern(`\s+`))
	g.Define("program", grammar.Repeat(grammar.Choice(
		grammar.Seq(grammar.Str("if"), grammar.Sym("identifier")),
		grammar.Sym("identifier"),
	)))
	g.Define("identifier", grammar.Pattern(`[a-z]+`))
	lang := compileLanguage(t, g)
	kw := symbol(t, lang, "if", false)
	ident := symbol(t, lang, "identifier", true)

	tests := []struct {
		input string
		want  table.Symbol
		end   int
	}{
		{"if x", kw, 2},
		{"iffy", ident, 4},
		{"i", ident, 1},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tok, _ := lexer.New(lang, []byte(tt.input), nil).Next(0, lang.LexMode(0), nil)
			if tok.Symbol != tt.want || tok.End != tt.end {
				t.Errorf("Next(%q) = %s [%d,%d), want %s ending at %d",
					tt.input, lang.SymbolName(tok.Symbol), tok.Start, tok.End, lang.SymbolName(tt.want), tt.end)
			}
		})
	}
}

func TestImmediateTokensIgnoreTrivia(t *testing.T) {
	g := grammar.New("strings")
	g.Extra(grammar.Pattern(`\s+`))
	g.Define("program", grammar.Repeat(grammar.Sym("string")))
	g.Define("string", grammar.Seq(
		grammar.Str(`"`),
		grammar.Optional(grammar.Sym("content")),
		grammar.ImmediateToken(grammar.Str(`"`)),
	))
	g.Define("content", grammar.ImmediateToken(grammar.Pattern(`[^"]+`)))
	lang := compileLanguage(t, g)
	content := symbol(t, lang, "content", true)

	var mode table.LexModeID
	found := false
	for m := 0; m < lang.LexModeCount(); m++ {
		if slices.ContainsFunc(lang.ModeTokens(table.LexModeID(m)), func(ct *table.CompiledToken) bool {
			return ct.Symbol == content
		}) {
			mode, found = table.LexModeID(m), true
			break
		}
	}
	if !found {
		t.Fatal("no lex mode with the content token")
	}

	tok, _ := lexer.New(lang, []byte(`"  padded"`), nil).Next(1, mode, nil)
	want := lexer.Token{Symbol: content, Start: 1, End: 9, Lookahead: 1}
	if diff := cmp.Diff(want, tok); diff != "" {
		t.Errorf("Next() mismatch (-want +got):\n%s", diff)
	}
}

func TestExternalScanner(t *testing.T) {
	lang := callexprLanguage(t)
	start := symbol(t, lang, "heredoc_start", true)
	body := symbol(t, lang, "heredoc_body", true)
	end := symbol(t, lang, "heredoc_end", true)

	bodyMode, endMode := -1, -1
	for m := 0; m < lang.LexModeCount(); m++ {
		valid, ok := lang.ModeExternals(table.LexModeID(m))
		switch {
		case !ok:
		case valid[1]:
			bodyMode = m
		case valid[2] && !valid[0]:
			endMode = m
		}
	}
	if bodyMode < 0 || endMode < 0 {
		t.Fatalf("lex modes not found: body %d, end %d", bodyMode, endMode)
	}

	input := []byte("<<END\nhi\nEND")
	l := lexer.New(lang, input, lang.NewScanner())

	tok, state := l.Next(0, lang.LexMode(0), nil)
	if tok.Symbol != start || tok.End != 5 {
		t.Fatalf("start = %s [%d,%d)", lang.SymbolName(tok.Symbol), tok.Start, tok.End)
	}
	if len(state) == 0 {
		t.Fatal("scanner state should carry the delimiter")
	}

	tok, state = l.Next(tok.End, table.LexModeID(bodyMode), state)
	if tok.Symbol != body || tok.Start != 5 || tok.End != 9 {
		t.Fatalf("body = %s [%d,%d)", lang.SymbolName(tok.Symbol), tok.Start, tok.End)
	}

	tok, state = l.Next(tok.End, table.LexModeID(endMode), state)
	if tok.Symbol != end || tok.Start != 9 || tok.End != 12 {
		t.Fatalf("end = %s [%d,%d)", lang.SymbolName(tok.Symbol), tok.Start, tok.End)
	}
	if state != nil {
		t.Errorf("state after heredoc_end = %v, want nil", state)
	}
}
