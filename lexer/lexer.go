// Package lexer produces tokens on demand for the parser.
//
// Lexing is contextual: the parser passes the lex mode of its current state
// and only tokens valid in that mode are considered. Given the same position,
// mode and external scanner state, Next always returns the same token, which
// is what lets incremental reparse resume lexing anywhere in the input.
package lexer

import (
	"bytes"

	"github.com/dhamidi/ilparse/table"
)

type Token struct {
	Symbol table.Symbol
	// Start and End delimit the token text. Padding is the trivia before Start.
	Start   int
	End     int
	Padding int
	// Lookahead counts the bytes past End that were inspected to produce the
	// token. The end of input counts as one byte.
	Lookahead int
	IsError   bool
	// Fallback is set when the token is not valid in the requested mode and
	// was found by trying every token of the language.
	Fallback bool
}

func (t Token) PaddedStart() int { return t.Start - t.Padding }

func (t Token) Size() int { return t.End - t.Start }

type Lexer struct {
	lang    *table.Language
	input   []byte
	scanner table.ExternalScanner
	m       matcher
}

// New creates a lexer over input. scanner may be nil when the language has
// no external tokens.
func New(lang *table.Language, input []byte, scanner table.ExternalScanner) *Lexer {
	return &Lexer{lang: lang, input: input, scanner: scanner, m: matcher{input: input}}
}

func (l *Lexer) Input() []byte { return l.input }

// Next returns the token at pos for the given lex mode and scanner state,
// together with the scanner state after it. It never fails: input no token
// matches yields a one-byte error token.
func (l *Lexer) Next(pos int, mode table.LexModeID, state []byte) (Token, []byte) {
	examined := pos
	note := func(e int) {
		if e > examined {
			examined = e
		}
	}
	finish := func(tok Token) Token {
		note(tok.End)
		tok.Lookahead = examined - tok.End
		return tok
	}

	if valid, ok := l.lang.ModeExternals(mode); ok && l.scanner != nil {
		tok, next, matched := l.scanExternal(pos, valid, state, note)
		if matched {
			return finish(tok), next
		}
	}

	if tok, ok := l.best(l.lang.ModeTokens(mode), pos, true, note); ok {
		return finish(tok), state
	}

	start := l.skipTrivia(pos, note)
	if start >= len(l.input) {
		note(len(l.input) + 1)
		return finish(Token{Symbol: table.SymbolEnd, Start: start, End: start, Padding: start - pos}), state
	}
	if tok, ok := l.best(l.lang.ModeTokens(mode), start, false, note); ok {
		tok.Padding = start - pos
		return finish(tok), state
	}
	if tok, ok := l.best(l.lang.AllTokens(), start, false, note); ok {
		tok.Padding = start - pos
		tok.Fallback = true
		return finish(tok), state
	}
	return finish(Token{
		Symbol:  table.SymbolError,
		Start:   start,
		End:     start + 1,
		Padding: start - pos,
		IsError: true,
	}), state
}

func (l *Lexer) skipTrivia(pos int, note func(int)) int {
	for {
		advanced := false
		for _, prog := range l.lang.Skip() {
			end, examined := l.m.longest(prog, pos)
			note(examined)
			if end > pos {
				pos = end
				advanced = true
			}
		}
		if !advanced {
			return pos
		}
	}
}

// best picks the longest match among candidates. Equal lengths go to the
// higher token precedence, then to literals over patterns, then to the
// earlier declaration.
func (l *Lexer) best(candidates []*table.CompiledToken, pos int, immediate bool, note func(int)) (Token, bool) {
	var winner *table.CompiledToken
	winnerEnd := -1
	for _, ct := range candidates {
		if ct.Immediate != immediate {
			continue
		}
		end, examined := l.m.longest(ct.Prog, pos)
		note(examined)
		if end <= pos {
			continue
		}
		if winner == nil || end > winnerEnd || end == winnerEnd && beats(ct, winner) {
			winner, winnerEnd = ct, end
		}
	}
	if winner == nil {
		return Token{}, false
	}
	return Token{Symbol: winner.Symbol, Start: pos, End: winnerEnd}, true
}

func beats(a, b *table.CompiledToken) bool {
	if a.Precedence != b.Precedence {
		return a.Precedence > b.Precedence
	}
	return a.Literal && !b.Literal
}

func (l *Lexer) scanExternal(pos int, valid []bool, state []byte, note func(int)) (Token, []byte, bool) {
	l.scanner.Deserialize(state)
	c := &scanCursor{input: l.input, start: pos, pos: pos, end: -1, result: -1, examined: pos}
	ok := l.scanner.Scan(c, valid)
	note(c.examined)
	end := c.end
	if end < 0 {
		end = c.pos
	}
	externals := l.lang.Externals()
	if !ok || c.result < 0 || c.result >= len(externals) || end <= pos || end < c.start {
		l.scanner.Deserialize(state)
		return Token{}, state, false
	}
	next := bytes.Clone(l.scanner.Serialize())
	return Token{Symbol: externals[c.result], Start: c.start, End: end, Padding: c.start - pos}, next, true
}
