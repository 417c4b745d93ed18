package grammar

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dhamidi/ilparse/fault"
	"golang.org/x/exp/ebnf"
)

// FromEBNF reads a grammar written in Go's EBNF notation. Productions with
// a lower-case name are lexical: those used by syntactic productions become
// tokens, and the others are inlined into them. Whitespace between tokens
// is skipped. The grammar is verified from start before it is converted.
func FromEBNF(name, filename string, src io.Reader, start string) (*Grammar, error) {
	if lexical(start) {
		return nil, fault.New(fault.InvalidGrammar, "read "+filename, "start production %s is lexical", start)
	}
	prods, err := ebnf.Parse(filename, src)
	if err != nil {
		return nil, fault.Wrap(fault.InvalidGrammar, "read "+filename, err)
	}
	if err := ebnf.Verify(prods, start); err != nil {
		return nil, fault.Wrap(fault.InvalidGrammar, "verify "+filename, err)
	}

	b := &ebnfBuilder{prods: prods, tokens: make(map[string]bool)}
	for _, p := range prods {
		if !lexical(p.Name.String) {
			b.markTokens(p.Expr)
		}
	}

	names := make([]string, 0, len(prods))
	for n := range prods {
		if n != start {
			names = append(names, n)
		}
	}
	slices.Sort(names)

	g := New(name)
	g.Extra(Pattern(`\s+`))
	for _, n := range append([]string{start}, names...) {
		var r Rule
		switch {
		case !lexical(n):
			r, err = b.syntactic(prods[n].Expr)
		case b.tokens[n]:
			r, err = b.token(n)
		default:
			continue
		}
		if err != nil {
			return nil, fault.Wrap(fault.InvalidGrammar, "convert "+filename, err)
		}
		g.Define(n, r)
	}
	return g, nil
}

// LoadEBNF reads an EBNF grammar file. The grammar is named after the file.
func LoadEBNF(filename, start string) (*Grammar, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open grammar: %w", err)
	}
	defer f.Close()
	return FromEBNF(strings.TrimSuffix(filepath.Base(filename), ".ebnf"), filename, f, start)
}

func lexical(name string) bool {
	r, _ := utf8.DecodeRuneInString(name)
	return unicode.IsLower(r)
}

type ebnfBuilder struct {
	prods ebnf.Grammar
	// tokens holds the lexical productions referenced by syntactic ones.
	tokens map[string]bool
}

func (b *ebnfBuilder) markTokens(x ebnf.Expression) {
	switch x := x.(type) {
	case ebnf.Alternative:
		for _, m := range x {
			b.markTokens(m)
		}
	case ebnf.Sequence:
		for _, m := range x {
			b.markTokens(m)
		}
	case *ebnf.Group:
		b.markTokens(x.Body)
	case *ebnf.Option:
		b.markTokens(x.Body)
	case *ebnf.Repetition:
		b.markTokens(x.Body)
	case *ebnf.Name:
		if lexical(x.String) {
			b.tokens[x.String] = true
		}
	}
}

func (b *ebnfBuilder) syntactic(x ebnf.Expression) (Rule, error) {
	return b.convert(x, func(n *ebnf.Name) (Rule, error) { return Sym(n.String), nil })
}

func (b *ebnfBuilder) token(name string) (Rule, error) {
	if b.prods[name].Expr == nil {
		return nil, fmt.Errorf("token %s matches the empty string", name)
	}
	visiting := map[string]bool{name: true}
	var inline func(n *ebnf.Name) (Rule, error)
	inline = func(n *ebnf.Name) (Rule, error) {
		if visiting[n.String] {
			return nil, fmt.Errorf("%s: token %s refers to itself", n.Pos(), n.String)
		}
		visiting[n.String] = true
		defer delete(visiting, n.String)
		return b.convert(b.prods[n.String].Expr, inline)
	}
	r, err := b.convert(b.prods[name].Expr, inline)
	if err != nil {
		return nil, err
	}
	return Token(r), nil
}

// convert maps an EBNF expression onto rules. Names are resolved by name.
func (b *ebnfBuilder) convert(x ebnf.Expression, name func(*ebnf.Name) (Rule, error)) (Rule, error) {
	members := func(xs []ebnf.Expression) ([]Rule, error) {
		out := make([]Rule, 0, len(xs))
		for _, m := range xs {
			r, err := b.convert(m, name)
			if err != nil {
				return nil, err
			}
			out = append(out, r)
		}
		return out, nil
	}
	switch x := x.(type) {
	case nil:
		return Blank(), nil
	case ebnf.Alternative:
		rs, err := members(x)
		if err != nil {
			return nil, err
		}
		return Choice(rs...), nil
	case ebnf.Sequence:
		rs, err := members(x)
		if err != nil {
			return nil, err
		}
		return Seq(rs...), nil
	case *ebnf.Group:
		return b.convert(x.Body, name)
	case *ebnf.Option:
		r, err := b.convert(x.Body, name)
		if err != nil {
			return nil, err
		}
		return Optional(r), nil
	case *ebnf.Repetition:
		r, err := b.convert(x.Body, name)
		if err != nil {
			return nil, err
		}
		return Repeat(r), nil
	case *ebnf.Name:
		return name(x)
	case *ebnf.Token:
		return Str(x.String), nil
	case *ebnf.Range:
		return Pattern("[" + classChar(x.Begin.String) + "-" + classChar(x.End.String) + "]"), nil
	}
	return nil, fmt.Errorf("%s: unsupported expression %T", x.Pos(), x)
}

func classChar(s string) string {
	if strings.ContainsAny(s, `\]-^[`) {
		return `\` + s
	}
	return s
}
