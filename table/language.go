package table

import (
	"fmt"
	"regexp/syntax"

	"github.com/dhamidi/ilparse/fault"
)

// CompiledToken is a token rule with its pattern compiled to a byte-level
// program the lexer can step through.
type CompiledToken struct {
	TokenRule
	Prog *syntax.Prog
}

// Language is an indexed, immutable view of a Table.
type Language struct {
	table      *Table
	tokenCount int
	actions    [][]Action
	gotos      []int32
	symbols    int
	names      map[nameKey]Symbol
	fieldIDs   map[string]FieldID
	tokens     []*CompiledToken
	bySymbol   map[Symbol]*CompiledToken
	skip       []*syntax.Prog
	extras     []bool
	externIdx  map[Symbol]int
	repeats    []bool
	modes      []lexMode
	newScanner ScannerFactory
}

type nameKey struct {
	name  string
	named bool
}

type lexMode struct {
	tokens   []*CompiledToken
	external []bool
	anyExt   bool
}

type LanguageOption func(*Language)

func WithExternalScanner(factory ScannerFactory) LanguageOption {
	return func(l *Language) {
		l.newScanner = factory
	}
}

// Load decodes table bytes and indexes them.
func Load(data []byte, opts ...LanguageOption) (*Language, error) {
	t, err := Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return NewLanguage(t, opts...)
}

func NewLanguage(t *Table, opts ...LanguageOption) (*Language, error) {
	if t.Version != ABIVersion {
		return nil, fault.New(fault.IncompatibleVersion, "load table",
			"table %q has ABI version %d, engine supports %d", t.Name, t.Version, ABIVersion)
	}
	l := &Language{
		table:     t,
		symbols:   len(t.Symbols),
		names:     make(map[nameKey]Symbol),
		fieldIDs:  make(map[string]FieldID),
		bySymbol:  make(map[Symbol]*CompiledToken),
		extras:    make([]bool, len(t.Symbols)),
		repeats:   make([]bool, len(t.Symbols)),
		externIdx: make(map[Symbol]int),
	}
	for _, opt := range opts {
		opt(l)
	}
	if len(t.Symbols) < 2 || len(t.States) == 0 {
		return nil, fault.New(fault.InvalidGrammar, "load table", "table %q is empty", t.Name)
	}
	for i, info := range t.Symbols {
		s := Symbol(i)
		if info.Kind == Terminal || info.Kind == External {
			if i+1 > l.tokenCount {
				l.tokenCount = i + 1
			}
		}
		key := nameKey{info.Name, info.Named}
		if _, ok := l.names[key]; !ok && info.Visible {
			l.names[key] = s
		}
	}
	if l.tokenCount < 2 {
		l.tokenCount = 2
	}
	for i, name := range t.Fields {
		if i > 0 {
			l.fieldIDs[name] = FieldID(i)
		}
	}
	for i, s := range t.Externals {
		l.externIdx[s] = i
	}
	for _, p := range t.Productions {
		if p.Repeat && int(p.Symbol) < len(l.repeats) {
			l.repeats[p.Symbol] = true
		}
	}
	for _, s := range t.Extras {
		if int(s) >= len(l.extras) {
			return nil, fault.New(fault.InvalidGrammar, "load table", "extra symbol %d out of range", s)
		}
		l.extras[s] = true
	}
	for _, rule := range t.Tokens {
		prog, err := compilePattern(rule.Pattern)
		if err != nil {
			return nil, fault.Wrap(fault.InvalidGrammar, "load table",
				fmt.Errorf("token %s: %w", t.Symbols[rule.Symbol].Name, err))
		}
		ct := &CompiledToken{TokenRule: rule, Prog: prog}
		l.tokens = append(l.tokens, ct)
		l.bySymbol[rule.Symbol] = ct
	}
	for _, pattern := range t.Skip {
		prog, err := compilePattern(pattern)
		if err != nil {
			return nil, fault.Wrap(fault.InvalidGrammar, "load table", fmt.Errorf("extra %q: %w", pattern, err))
		}
		l.skip = append(l.skip, prog)
	}
	for _, m := range t.LexModes {
		mode := lexMode{external: make([]bool, len(t.Externals))}
		for _, s := range m.Tokens {
			ct, ok := l.bySymbol[s]
			if !ok {
				return nil, fault.New(fault.InvalidGrammar, "load table", "lex mode names symbol %d without a token rule", s)
			}
			mode.tokens = append(mode.tokens, ct)
		}
		for _, s := range m.Externals {
			if idx, ok := l.externIdx[s]; ok {
				mode.external[idx] = true
				mode.anyExt = true
			}
		}
		l.modes = append(l.modes, mode)
	}
	l.actions = make([][]Action, len(t.States)*l.tokenCount)
	l.gotos = make([]int32, len(t.States)*l.symbols)
	for i := range l.gotos {
		l.gotos[i] = -1
	}
	for i, st := range t.States {
		if int(st.LexMode) >= len(l.modes) {
			return nil, fault.New(fault.InvalidGrammar, "load table", "state %d has unknown lex mode %d", i, st.LexMode)
		}
		for _, e := range st.Actions {
			if int(e.Symbol) >= l.tokenCount {
				return nil, fault.New(fault.InvalidGrammar, "load table", "state %d has an action on nonterminal %d", i, e.Symbol)
			}
			l.actions[i*l.tokenCount+int(e.Symbol)] = e.Actions
		}
		for _, g := range st.Gotos {
			l.gotos[i*l.symbols+int(g.Symbol)] = int32(g.State)
		}
	}
	return l, nil
}

func compilePattern(pattern string) (*syntax.Prog, error) {
	re, err := syntax.Parse(pattern, syntax.Perl)
	if err != nil {
		return nil, err
	}
	return syntax.Compile(re.Simplify())
}

func (l *Language) Table() *Table     { return l.table }
func (l *Language) Name() string      { return l.table.Name }
func (l *Language) Version() uint32   { return l.table.Version }
func (l *Language) SymbolCount() int  { return l.symbols }
func (l *Language) StartSymbol() Symbol { return l.table.Start }
func (l *Language) StateCount() int   { return len(l.table.States) }
func (l *Language) FieldCount() int   { return len(l.table.Fields) }
func (l *Language) TokenCount() int   { return l.tokenCount }
func (l *Language) HasScanner() bool  { return l.newScanner != nil }
func (l *Language) Skip() []*syntax.Prog { return l.skip }

func (l *Language) SymbolName(s Symbol) string {
	if int(s) >= l.symbols {
		return ""
	}
	return l.table.Symbols[s].Name
}

func (l *Language) SymbolInfo(s Symbol) SymbolInfo {
	if int(s) >= l.symbols {
		return SymbolInfo{}
	}
	return l.table.Symbols[s]
}

// SymbolForName finds the visible symbol with the given name. Named symbols
// are looked up with named set; anonymous ones (literals) without.
func (l *Language) SymbolForName(name string, named bool) (Symbol, bool) {
	s, ok := l.names[nameKey{name, named}]
	return s, ok
}

// SymbolNames lists the visible symbol names of one kind.
func (l *Language) SymbolNames(named bool) []string {
	var out []string
	for _, info := range l.table.Symbols {
		if info.Visible && info.Named == named {
			out = append(out, info.Name)
		}
	}
	return out
}

func (l *Language) IsNamed(s Symbol) bool   { return l.SymbolInfo(s).Named }
func (l *Language) IsVisible(s Symbol) bool { return l.SymbolInfo(s).Visible }

func (l *Language) IsTerminal(s Symbol) bool {
	return s != SymbolError && int(s) < l.tokenCount
}

// IsRepeat reports whether s is a repeat helper. Its nodes stay in the tree
// as hidden balanced groups.
func (l *Language) IsRepeat(s Symbol) bool {
	return int(s) < len(l.repeats) && l.repeats[s]
}

func (l *Language) IsExtra(s Symbol) bool {
	return int(s) < len(l.extras) && l.extras[s]
}

func (l *Language) FieldName(id FieldID) string {
	if id == 0 || int(id) >= len(l.table.Fields) {
		return ""
	}
	return l.table.Fields[id]
}

func (l *Language) FieldID(name string) (FieldID, bool) {
	id, ok := l.fieldIDs[name]
	return id, ok
}

func (l *Language) Actions(state StateID, s Symbol) []Action {
	if int(s) >= l.tokenCount || int(state) >= len(l.table.States) {
		return nil
	}
	return l.actions[int(state)*l.tokenCount+int(s)]
}

func (l *Language) Goto(state StateID, s Symbol) (StateID, bool) {
	if int(s) >= l.symbols || int(state) >= len(l.table.States) {
		return 0, false
	}
	next := l.gotos[int(state)*l.symbols+int(s)]
	if next < 0 {
		return 0, false
	}
	return StateID(next), true
}

// ExpectedSymbols lists the terminals with at least one action in state.
func (l *Language) ExpectedSymbols(state StateID) []Symbol {
	var out []Symbol
	for s := 0; s < l.tokenCount; s++ {
		if len(l.actions[int(state)*l.tokenCount+s]) > 0 {
			out = append(out, Symbol(s))
		}
	}
	return out
}

func (l *Language) Production(i uint16) Production {
	return l.table.Productions[i]
}

func (l *Language) LexMode(state StateID) LexModeID {
	return l.table.States[state].LexMode
}

func (l *Language) LexModeCount() int { return len(l.modes) }

// ModeTokens returns the token rules valid in a lex mode, in declaration order.
func (l *Language) ModeTokens(mode LexModeID) []*CompiledToken {
	return l.modes[mode].tokens
}

// ModeExternals reports which external tokens are valid in a lex mode,
// indexed like Table.Externals. ok is false when none is.
func (l *Language) ModeExternals(mode LexModeID) (valid []bool, ok bool) {
	m := l.modes[mode]
	return m.external, m.anyExt
}

// AllTokens returns every token rule in declaration order.
func (l *Language) AllTokens() []*CompiledToken { return l.tokens }

func (l *Language) Externals() []Symbol { return l.table.Externals }

func (l *Language) NewScanner() ExternalScanner {
	if l.newScanner == nil {
		return nil
	}
	return l.newScanner()
}
