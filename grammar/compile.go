package grammar

import (
	"fmt"
	"sort"

	"github.com/dhamidi/ilparse/fault"
	"github.com/dhamidi/ilparse/table"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("ilparse.grammar")

type production struct {
	lhs table.Symbol
	alternative
}

type compiler struct {
	g         *Grammar
	symbols   []table.SymbolInfo
	byName    map[string]table.Symbol
	literals  map[string]table.Symbol
	terminals []terminal
	externals []table.Symbol
	extras    []table.Symbol
	skip      []string
	fields    []string
	fieldIDs  map[string]table.FieldID
	aliases   map[string]table.Symbol
	auxCount  map[string]int
	alts      map[table.Symbol][]alternative
	order     []table.Symbol
	prods     []production
}

// Compile turns a grammar into a parse table.
func Compile(g *Grammar) (*table.Table, error) {
	c := &compiler{
		g:        g,
		byName:   make(map[string]table.Symbol),
		literals: make(map[string]table.Symbol),
		fields:   []string{""},
		fieldIDs: make(map[string]table.FieldID),
		aliases:  make(map[string]table.Symbol),
		auxCount: make(map[string]int),
		alts:     make(map[table.Symbol][]alternative),
	}
	if err := c.run(); err != nil {
		return nil, fault.Wrap(fault.InvalidGrammar, "compile "+g.Name, err)
	}
	a := c.automaton()
	t := c.emit(a)
	log.Debugf("compiled %s: %d symbols, %d productions, %d states, %d conflicts",
		g.Name, len(t.Symbols), len(t.Productions), len(t.States), a.conflicts)
	return t, nil
}

func (c *compiler) run() error {
	if len(c.g.Rules) == 0 {
		return fmt.Errorf("no rules")
	}
	defined := make(map[string]bool, len(c.g.Rules))
	for _, def := range c.g.Rules {
		if defined[def.Name] {
			return fmt.Errorf("rule %s defined twice", def.Name)
		}
		defined[def.Name] = true
	}
	c.symbols = []table.SymbolInfo{
		{Name: "end", Kind: table.Terminal},
		{Name: "ERROR", Kind: table.Nonterminal, Named: true, Visible: true},
	}
	// Terminals are numbered first, in the order they are declared or first
	// used, so that declaration order can break lexical ties.
	for _, def := range c.g.Rules {
		if lexicalBody(def.Rule) {
			if err := c.lexicalRule(def); err != nil {
				return err
			}
			continue
		}
		if err := c.collectLiterals(def.Rule); err != nil {
			return fmt.Errorf("rule %s: %w", def.Name, err)
		}
	}
	for _, r := range c.g.Extras {
		switch r := r.(type) {
		case patternRule:
			p, err := regexFor(r)
			if err != nil {
				return err
			}
			c.skip = append(c.skip, p)
		case symbolRule:
			// resolved below once externals exist
		default:
			if err := c.collectLiterals(r); err != nil {
				return fmt.Errorf("extras: %w", err)
			}
		}
	}
	for _, name := range c.g.Externals {
		s := c.addSymbol(table.SymbolInfo{Name: name, Kind: table.External, Named: !hidden(name), Visible: !hidden(name)})
		c.byName[name] = s
		c.externals = append(c.externals, s)
	}
	for _, r := range c.g.Extras {
		switch r := r.(type) {
		case symbolRule:
			s, ok := c.byName[r.name]
			if !ok || !c.isTerminal(s) {
				return fmt.Errorf("extra %q must name a token", r.name)
			}
			c.extras = append(c.extras, s)
		case stringRule, tokenRule:
			s, err := c.inlineTerminal(r)
			if err != nil {
				return err
			}
			c.extras = append(c.extras, s)
		}
	}
	var rules []RuleDef
	for _, def := range c.g.Rules {
		if lexicalBody(def.Rule) {
			continue
		}
		s := c.addSymbol(table.SymbolInfo{Name: def.Name, Kind: table.Nonterminal, Named: !hidden(def.Name), Visible: !hidden(def.Name)})
		c.byName[def.Name] = s
		c.order = append(c.order, s)
		rules = append(rules, def)
	}
	if len(rules) == 0 {
		return fmt.Errorf("grammar %s has no syntactic rules", c.g.Name)
	}
	if lexicalBody(c.g.Rules[0].Rule) {
		return fmt.Errorf("start rule %s must not be a token", c.g.Rules[0].Name)
	}
	for _, def := range rules {
		alts, err := c.expand(def.Rule, def.Name)
		if err != nil {
			return err
		}
		c.addAlternatives(c.byName[def.Name], alts...)
	}
	start := c.byName[c.g.Rules[0].Name]
	c.prods = append(c.prods, production{lhs: 0, alternative: alternative{steps: []step{{symbol: start}}}})
	for _, s := range c.order {
		for _, a := range dedupe(c.alts[s]) {
			c.prods = append(c.prods, production{lhs: s, alternative: a})
		}
	}
	return nil
}

func (c *compiler) addSymbol(info table.SymbolInfo) table.Symbol {
	c.symbols = append(c.symbols, info)
	return table.Symbol(len(c.symbols) - 1)
}

func (c *compiler) isTerminal(s table.Symbol) bool {
	k := c.symbols[s].Kind
	return k == table.Terminal || k == table.External
}

func (c *compiler) lexicalRule(def RuleDef) error {
	pattern, literal, immediate, prec, err := tokenPattern(def.Rule)
	if err != nil {
		return fmt.Errorf("token %s: %w", def.Name, err)
	}
	s := c.addSymbol(table.SymbolInfo{Name: def.Name, Kind: table.Terminal, Named: !hidden(def.Name), Visible: !hidden(def.Name)})
	c.byName[def.Name] = s
	c.terminals = append(c.terminals, terminal{symbol: s, pattern: pattern, literal: literal, immediate: immediate, prec: prec})
	return nil
}

// collectLiterals registers the anonymous terminals a rule uses inline.
func (c *compiler) collectLiterals(r Rule) error {
	switch r := r.(type) {
	case stringRule, patternRule, tokenRule:
		_, err := c.inlineTerminal(r)
		return err
	case seqRule:
		for _, m := range r.members {
			if err := c.collectLiterals(m); err != nil {
				return err
			}
		}
	case choiceRule:
		for _, m := range r.members {
			if err := c.collectLiterals(m); err != nil {
				return err
			}
		}
	case repeatRule:
		return c.collectLiterals(r.content)
	case fieldRule:
		return c.collectLiterals(r.content)
	case aliasRule:
		return c.collectLiterals(r.content)
	case precRule:
		return c.collectLiterals(r.content)
	}
	return nil
}

func (c *compiler) inlineTerminal(r Rule) (table.Symbol, error) {
	pattern, literal, immediate, prec, err := tokenPattern(r)
	if err != nil {
		return 0, err
	}
	key := fmt.Sprintf("%t/%t/%s", literal, immediate, pattern)
	if s, ok := c.literals[key]; ok {
		return s, nil
	}
	name, visible := pattern, false
	if str, ok := literalText(r); ok {
		name, visible = str, true
	}
	s := c.addSymbol(table.SymbolInfo{Name: name, Kind: table.Terminal, Visible: visible})
	c.literals[key] = s
	c.terminals = append(c.terminals, terminal{symbol: s, pattern: pattern, literal: literal, immediate: immediate, prec: prec})
	return s, nil
}

func literalText(r Rule) (string, bool) {
	switch r := r.(type) {
	case stringRule:
		return r.value, true
	case tokenRule:
		return literalText(r.content)
	case precRule:
		return literalText(r.content)
	}
	return "", false
}

func (c *compiler) auxiliary(name string) table.Symbol {
	s := c.addSymbol(table.SymbolInfo{Name: name, Kind: table.Auxiliary})
	c.order = append(c.order, s)
	return s
}

func (c *compiler) nextAux(owner string) int {
	c.auxCount[owner]++
	return c.auxCount[owner]
}

func (c *compiler) addAlternatives(s table.Symbol, alts ...alternative) {
	c.alts[s] = append(c.alts[s], alts...)
}

func (c *compiler) field(name string) table.FieldID {
	if id, ok := c.fieldIDs[name]; ok {
		return id
	}
	c.fields = append(c.fields, name)
	id := table.FieldID(len(c.fields) - 1)
	c.fieldIDs[name] = id
	return id
}

// aliasSymbol reuses a visible symbol of the same name when there is one.
func (c *compiler) aliasSymbol(name string, named bool) table.Symbol {
	key := fmt.Sprintf("%t/%s", named, name)
	if s, ok := c.aliases[key]; ok {
		return s
	}
	for i, info := range c.symbols {
		if info.Visible && info.Named == named && info.Name == name {
			c.aliases[key] = table.Symbol(i)
			return table.Symbol(i)
		}
	}
	s := c.addSymbol(table.SymbolInfo{Name: name, Kind: table.AliasOnly, Named: named, Visible: true})
	c.aliases[key] = s
	return s
}

func (c *compiler) emit(a *automaton) *table.Table {
	t := &table.Table{
		Version:   table.ABIVersion,
		Name:      c.g.Name,
		Start:     c.byName[c.g.Rules[0].Name],
		Symbols:   c.symbols,
		Fields:    c.fields,
		Externals: c.externals,
		Extras:    c.extras,
		Skip:      c.skip,
	}
	for _, p := range c.prods {
		prod := table.Production{Symbol: p.lhs, DynamicPrecedence: int16(p.dynamic), Repeat: p.repeat}
		for _, s := range p.steps {
			st := table.Step{Alias: s.alias}
			if s.field != "" {
				st.Field = c.field(s.field)
			}
			prod.Steps = append(prod.Steps, st)
		}
		t.Productions = append(t.Productions, prod)
	}
	for _, term := range c.terminals {
		t.Tokens = append(t.Tokens, table.TokenRule{
			Symbol:     term.symbol,
			Pattern:    term.pattern,
			Literal:    term.literal,
			Immediate:  term.immediate,
			Precedence: int16(term.prec),
		})
	}
	t.Fields = c.fields
	modes := make(map[string]table.LexModeID)
	for _, st := range a.states {
		state := table.State{}
		var valid []table.Symbol
		for _, sym := range sortedSymbols(st.actions) {
			state.Actions = append(state.Actions, table.ActionEntry{Symbol: sym, Actions: st.actions[sym]})
			valid = append(valid, sym)
		}
		for _, sym := range sortedStates(st.gotos) {
			state.Gotos = append(state.Gotos, table.GotoEntry{Symbol: sym, State: st.gotos[sym]})
		}
		mode := c.lexMode(valid)
		key := fmt.Sprint(mode.Tokens, mode.Externals)
		id, ok := modes[key]
		if !ok {
			id = table.LexModeID(len(t.LexModes))
			modes[key] = id
			t.LexModes = append(t.LexModes, mode)
		}
		state.LexMode = id
		t.States = append(t.States, state)
	}
	return t
}

func (c *compiler) lexMode(valid []table.Symbol) table.LexMode {
	set := make(map[table.Symbol]bool, len(valid)+len(c.extras))
	for _, s := range valid {
		set[s] = true
	}
	for _, s := range c.extras {
		set[s] = true
	}
	var mode table.LexMode
	for _, term := range c.terminals {
		if set[term.symbol] {
			mode.Tokens = append(mode.Tokens, term.symbol)
		}
	}
	for _, s := range c.externals {
		if set[s] {
			mode.Externals = append(mode.Externals, s)
		}
	}
	return mode
}

func sortedSymbols(m map[table.Symbol][]table.Action) []table.Symbol {
	out := make([]table.Symbol, 0, len(m))
	for s := range m {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sortedStates(m map[table.Symbol]table.StateID) []table.Symbol {
	out := make([]table.Symbol, 0, len(m))
	for s := range m {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
