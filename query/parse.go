package query

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/dhamidi/ilparse/fault"
	"github.com/dhamidi/ilparse/table"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

type quantifier int

const (
	one quantifier = iota
	zeroOrOne
	zeroOrMore
	oneOrMore
)

type patternKind int

const (
	nodePattern patternKind = iota
	wildcardPattern
	alternationPattern
)

type pattern struct {
	kind  patternKind
	typ   string
	named bool
	// anyNamed is set by (_), anyNode by a bare _.
	anyNamed     bool
	anyNode      bool
	errorNode    bool
	missingNode  bool
	field        string
	negated      []string
	children     []*pattern
	alternatives []*pattern
	quant        quantifier
	captures     []int
}

type predicateArg struct {
	capture int
	literal string
}

type predicate struct {
	name string
	args []predicateArg
	re   *regexp.Regexp
}

type compiled struct {
	root       *pattern
	predicates []predicate
}

type queryParser struct {
	lang     *table.Language
	src      string
	pos      int
	captures []string
	preds    []predicate
}

func (p *queryParser) errorf(format string, args ...any) error {
	return fault.New(fault.InvalidQuery, "compile query", "offset %d: %s", p.pos, fmt.Sprintf(format, args...))
}

func (p *queryParser) skipSpace() {
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == ';':
			for p.pos < len(p.src) && p.src[p.pos] != '\n' {
				p.pos++
			}
		case unicode.IsSpace(rune(c)):
			p.pos++
		default:
			return
		}
	}
}

func (p *queryParser) peek() byte {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *queryParser) expect(c byte) error {
	if p.peek() != c {
		if p.pos >= len(p.src) {
			return p.errorf("expected %q, found end of query", c)
		}
		return p.errorf("expected %q, found %q", c, p.src[p.pos])
	}
	p.pos++
	return nil
}

func identChar(c byte) bool {
	return c == '_' || c == '-' || c == '.' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func (p *queryParser) ident() string {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) && identChar(p.src[p.pos]) {
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *queryParser) str() (string, error) {
	if err := p.expect('"'); err != nil {
		return "", err
	}
	var b strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		p.pos++
		switch c {
		case '"':
			return b.String(), nil
		case '\\':
			if p.pos >= len(p.src) {
				return "", p.errorf("unterminated string")
			}
			e := p.src[p.pos]
			p.pos++
			switch e {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			default:
				b.WriteByte(e)
			}
		default:
			b.WriteByte(c)
		}
	}
	return "", p.errorf("unterminated string")
}

func (p *queryParser) parseAll() ([]compiled, error) {
	var out []compiled
	for p.peek() != 0 {
		p.preds = nil
		root, err := p.parsePattern(true)
		if err != nil {
			return nil, err
		}
		out = append(out, compiled{root: root, predicates: p.preds})
	}
	if len(out) == 0 {
		return nil, p.errorf("empty query")
	}
	return out, nil
}

// parsePattern reads one pattern with its quantifier and captures.
func (p *queryParser) parsePattern(top bool) (*pattern, error) {
	var pat *pattern
	var err error
	switch c := p.peek(); {
	case c == '(':
		pat, err = p.parseNode(top)
	case c == '[':
		pat, err = p.parseAlternation()
	case c == '"':
		pat, err = p.parseAnonymous()
	case c == '_':
		p.pos++
		pat = &pattern{kind: wildcardPattern, anyNode: true}
	case c == 0:
		err = p.errorf("unexpected end of query")
	default:
		err = p.errorf("unexpected %q", c)
	}
	if err != nil {
		return nil, err
	}
	switch p.peek() {
	case '*':
		pat.quant, p.pos = zeroOrMore, p.pos+1
	case '+':
		pat.quant, p.pos = oneOrMore, p.pos+1
	case '?':
		pat.quant, p.pos = zeroOrOne, p.pos+1
	}
	for p.peek() == '@' {
		p.pos++
		name := p.ident()
		if name == "" {
			return nil, p.errorf("capture without a name")
		}
		pat.captures = append(pat.captures, p.capture(name))
	}
	return pat, nil
}

func (p *queryParser) capture(name string) int {
	for i, c := range p.captures {
		if c == name {
			return i
		}
	}
	p.captures = append(p.captures, name)
	return len(p.captures) - 1
}

func (p *queryParser) parseAnonymous() (*pattern, error) {
	start := p.pos
	text, err := p.str()
	if err != nil {
		return nil, err
	}
	if _, ok := p.lang.SymbolForName(text, false); !ok {
		p.pos = start
		return nil, p.errorf("unknown token %q%s", text, suggest(text, p.lang.SymbolNames(false)))
	}
	return &pattern{kind: nodePattern, typ: text}, nil
}

func (p *queryParser) parseAlternation() (*pattern, error) {
	p.pos++
	alt := &pattern{kind: alternationPattern}
	for p.peek() != ']' {
		if p.peek() == 0 {
			return nil, p.errorf("unterminated alternation")
		}
		a, err := p.parsePattern(false)
		if err != nil {
			return nil, err
		}
		alt.alternatives = append(alt.alternatives, a)
	}
	p.pos++
	if len(alt.alternatives) == 0 {
		return nil, p.errorf("empty alternation")
	}
	return alt, nil
}

// parseNode reads a parenthesized node pattern. At the top level a
// parenthesized pattern followed by predicates is a group.
func (p *queryParser) parseNode(top bool) (*pattern, error) {
	p.pos++
	if c := p.peek(); top && (c == '(' || c == '[' || c == '"') {
		inner, err := p.parsePattern(false)
		if err != nil {
			return nil, err
		}
		for p.peek() == '(' {
			if err := p.parsePredicate(); err != nil {
				return nil, err
			}
		}
		return inner, p.expect(')')
	}
	pat := &pattern{kind: nodePattern, named: true}
	start := p.pos
	switch name := p.ident(); name {
	case "":
		if p.peek() == '#' {
			p.pos = start - 1
			return nil, p.errorf("predicate outside a pattern")
		}
		return nil, p.errorf("expected a node type")
	case "_":
		pat.anyNamed = true
	case "ERROR":
		pat.errorNode = true
	case "MISSING":
		pat.missingNode = true
		switch c := p.peek(); {
		case c == '"':
			s, err := p.parseAnonymous()
			if err != nil {
				return nil, err
			}
			pat.typ, pat.named = s.typ, false
		case identChar(c):
			typ := p.ident()
			if err := p.checkNamed(typ, p.pos-len(typ)); err != nil {
				return nil, err
			}
			pat.typ = typ
		}
	default:
		if err := p.checkNamed(name, start); err != nil {
			return nil, err
		}
		pat.typ = name
	}
	for {
		switch c := p.peek(); {
		case c == ')':
			p.pos++
			return pat, nil
		case c == 0:
			return nil, p.errorf("unterminated pattern for %q", pat.typ)
		case c == '!':
			p.pos++
			field := p.ident()
			if err := p.checkField(field); err != nil {
				return nil, err
			}
			pat.negated = append(pat.negated, field)
		case c == '(' && p.pos+1 < len(p.src) && p.src[p.pos+1] == '#':
			if err := p.parsePredicate(); err != nil {
				return nil, err
			}
		case identChar(c) && c != '_' || c == '_' && p.isField():
			field := p.ident()
			if err := p.expect(':'); err != nil {
				return nil, err
			}
			if err := p.checkField(field); err != nil {
				return nil, err
			}
			child, err := p.parsePattern(false)
			if err != nil {
				return nil, err
			}
			child.field = field
			pat.children = append(pat.children, child)
		default:
			child, err := p.parsePattern(false)
			if err != nil {
				return nil, err
			}
			pat.children = append(pat.children, child)
		}
	}
}

// isField reports whether the identifier at the cursor is followed by ':'.
func (p *queryParser) isField() bool {
	i := p.pos
	for i < len(p.src) && identChar(p.src[i]) {
		i++
	}
	for i < len(p.src) && unicode.IsSpace(rune(p.src[i])) {
		i++
	}
	return i < len(p.src) && p.src[i] == ':'
}

func (p *queryParser) checkNamed(name string, at int) error {
	if _, ok := p.lang.SymbolForName(name, true); ok {
		return nil
	}
	p.pos = at
	return p.errorf("unknown node type %q%s", name, suggest(name, append(p.lang.SymbolNames(true), "ERROR")))
}

func (p *queryParser) checkField(name string) error {
	if name == "" {
		return p.errorf("expected a field name")
	}
	if _, ok := p.lang.FieldID(name); ok {
		return nil
	}
	return p.errorf("unknown field %q%s", name, suggest(name, fieldNames(p.lang)))
}

func (p *queryParser) parsePredicate() error {
	p.pos++
	if err := p.expect('#'); err != nil {
		return err
	}
	start := p.pos
	for p.pos < len(p.src) && (identChar(p.src[p.pos]) || p.src[p.pos] == '?' || p.src[p.pos] == '!') {
		p.pos++
	}
	pred := predicate{name: p.src[start:p.pos]}
	for p.peek() != ')' {
		switch p.peek() {
		case '@':
			p.pos++
			name := p.ident()
			idx := -1
			for i, c := range p.captures {
				if c == name {
					idx = i
				}
			}
			if idx < 0 {
				return p.errorf("predicate %s uses undefined capture @%s", pred.name, name)
			}
			pred.args = append(pred.args, predicateArg{capture: idx})
		case '"':
			s, err := p.str()
			if err != nil {
				return err
			}
			pred.args = append(pred.args, predicateArg{capture: -1, literal: s})
		case 0:
			return p.errorf("unterminated predicate")
		default:
			pred.args = append(pred.args, predicateArg{capture: -1, literal: p.ident()})
			if pred.args[len(pred.args)-1].literal == "" {
				return p.errorf("unexpected %q in predicate", p.src[p.pos])
			}
		}
	}
	p.pos++
	if err := p.checkPredicate(&pred); err != nil {
		return err
	}
	p.preds = append(p.preds, pred)
	return nil
}

func (p *queryParser) checkPredicate(pred *predicate) error {
	switch pred.name {
	case "eq?", "not-eq?":
		if len(pred.args) != 2 || pred.args[0].capture < 0 {
			return p.errorf("#%s takes a capture and a capture or string", pred.name)
		}
	case "match?", "not-match?":
		if len(pred.args) != 2 || pred.args[0].capture < 0 || pred.args[1].capture >= 0 {
			return p.errorf("#%s takes a capture and a regular expression", pred.name)
		}
		re, err := regexp.Compile(pred.args[1].literal)
		if err != nil {
			return p.errorf("#%s: %v", pred.name, err)
		}
		pred.re = re
	case "any-of?":
		if len(pred.args) < 2 || pred.args[0].capture < 0 {
			return p.errorf("#any-of? takes a capture and one or more strings")
		}
	default:
		return p.errorf("unknown predicate #%s", pred.name)
	}
	return nil
}

// suggest renders a "did you mean" hint for the closest known name.
func suggest(name string, known []string) string {
	ranks := fuzzy.RankFindFold(name, known)
	if len(ranks) == 0 {
		for _, k := range known {
			if strings.Contains(strings.ToLower(name), strings.ToLower(k)) && len(k) > 2 {
				ranks = append(ranks, fuzzy.Rank{Source: name, Target: k, Distance: len(name) - len(k)})
			}
		}
	}
	if len(ranks) == 0 {
		return ""
	}
	sort.Sort(ranks)
	return fmt.Sprintf("; did you mean %q?", ranks[0].Target)
}

func fieldNames(lang *table.Language) []string {
	var out []string
	for id := 1; id < lang.FieldCount(); id++ {
		out = append(out, lang.FieldName(table.FieldID(id)))
	}
	return out
}
