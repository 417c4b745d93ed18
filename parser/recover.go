package parser

import (
	"github.com/dhamidi/ilparse/syntax"
	"github.com/dhamidi/ilparse/table"
)

// Repairs, in the order they are preferred when their costs tie.
const (
	repairSkip = iota
	repairPop
	repairMissing
)

type repair struct {
	kind  int
	cost  int
	depth int
	fixed *version
}

// recover repairs the only live version when its lookahead has no action.
// Candidate repairs are skipping the lookahead, popping stack entries into
// an ERROR node until the lookahead fits, and inserting one missing token;
// the cheapest wins. Every repair either consumes input or is counted
// against a per-position budget, so recovery always terminates. It reports
// whether the version finished.
func (r *run) recover(v *version, la *lookahead) (bool, error) {
	r.recoveries++
	if la.reused {
		la = r.detach(v, la)
	}
	v.attempts++
	atEnd := la.symbol == table.SymbolEnd

	if atEnd && v.top.prev == nil {
		v.accepted = r.missingRoot()
		return true, nil
	}
	if la.lexError {
		r.skip(v, la, false)
		return false, nil
	}
	if v.attempts > maxAttempts {
		if atEnd {
			return r.giveUp(v), nil
		}
		r.skip(v, la, true)
		return false, nil
	}

	var best *repair
	consider := func(c repair) {
		rank := func(x *repair) int {
			// at the end of input a missing token beats popping
			if atEnd && x.kind == repairMissing {
				return -1
			}
			return x.kind
		}
		if best == nil || c.cost < best.cost || c.cost == best.cost && rank(&c) < rank(best) {
			best = &c
		}
	}
	if !atEnd && r.acceptsAfterSkip(v, la) {
		consider(repair{kind: repairSkip, cost: 1})
	}
	if depth, ok := r.popDepth(v, la.symbol); ok {
		consider(repair{kind: repairPop, cost: depth, depth: depth})
	}
	if fixed, ok := r.insertMissing(v, la); ok {
		consider(repair{kind: repairMissing, cost: 1, fixed: fixed})
	}

	switch {
	case best == nil && atEnd:
		return r.giveUp(v), nil
	case best == nil:
		r.skip(v, la, true)
	case best.kind == repairSkip:
		r.skip(v, la, true)
	case best.kind == repairPop:
		r.pop(v, best.depth)
	case best.kind == repairMissing:
		attempts := v.attempts
		*v = *best.fixed
		v.attempts = attempts
		v.la = la
		v.cost++
	}
	return false, nil
}

// skip consumes the lookahead as an error. A lexical error token is already
// an ERROR leaf; any other token is wrapped in one.
func (r *run) skip(v *version, la *lookahead, wrap bool) {
	s := la.subtree
	if wrap {
		s = syntax.NewNode(syntax.NodeSpec{
			Symbol:     table.SymbolError,
			Grammar:    table.SymbolError,
			Children:   []*syntax.Subtree{s},
			Named:      true,
			Visible:    true,
			ParseState: v.state(),
		})
	}
	v.push(v.state(), s.WithExtra(true))
	v.scan = la.scanEnd
	v.la = nil
	v.attempts = 0
	v.steps = 0
	v.cost++
}

// acceptsAfterSkip reports whether the token following la could be handled
// in the current state.
func (r *run) acceptsAfterSkip(v *version, la *lookahead) bool {
	mode := r.lang.LexMode(v.state())
	tok, _ := r.lex.Next(la.end(), mode, la.scanEnd)
	if tok.IsError || tok.Fallback {
		return false
	}
	return len(r.lang.Actions(v.state(), tok.Symbol)) > 0 || r.lang.IsExtra(tok.Symbol)
}

// popDepth finds the fewest stack entries to pop so that sym can be shifted.
func (r *run) popDepth(v *version, sym table.Symbol) (int, bool) {
	depth := 0
	for e := v.top; e.prev != nil; e = e.prev {
		depth++
		trial := *v
		trial.top = e.prev
		if r.shifts(trial, sym) {
			return depth, true
		}
	}
	return 0, false
}

// shifts reports whether sym is eventually shifted or accepted from the
// state of v, following the first reduction of every cell on the way. v is
// a copy; its stack is persistent, so the caller is left intact.
func (r *run) shifts(v version, sym table.Symbol) bool {
	la := &lookahead{symbol: sym, pos: v.pos(), leafEnd: v.pos()}
	for range maxReductions {
		actions := r.lang.Actions(v.state(), sym)
		if len(actions) == 0 {
			return false
		}
		for _, a := range actions {
			if a.Type != table.Reduce {
				return true
			}
		}
		r.reduce(&v, actions[0].Production, la)
		if v.halted || v.accepted != nil {
			return false
		}
	}
	return false
}

func (r *run) pop(v *version, depth int) {
	popped := make([]*syntax.Subtree, depth)
	e := v.top
	for i := depth - 1; i >= 0; i-- {
		popped[i] = e.subtree
		e = e.prev
	}
	node := syntax.NewNode(syntax.NodeSpec{
		Symbol:     table.SymbolError,
		Grammar:    table.SymbolError,
		Children:   popped,
		Named:      true,
		Visible:    true,
		Extra:      true,
		ParseState: e.state,
	})
	v.top = e.push(e.state, node)
	v.cost += depth
}

// insertMissing tries each expected terminal as a zero-width token and
// returns the repaired version for the first one after which the real
// lookahead can be shifted.
func (r *run) insertMissing(v *version, la *lookahead) (*version, bool) {
	for _, t := range r.lang.ExpectedSymbols(v.state()) {
		if t == table.SymbolEnd {
			continue
		}
		trial := *v
		trial.la = nil
		if !r.shiftMissing(&trial, t) {
			continue
		}
		if r.shifts(trial, la.symbol) {
			return &trial, true
		}
	}
	return nil, false
}

func (r *run) shiftMissing(v *version, t table.Symbol) bool {
	pos := v.pos()
	missing := &lookahead{symbol: t, pos: pos, leafEnd: pos, mode: syntax.NoLexMode, scanEnd: v.scan}
	info := r.lang.SymbolInfo(t)
	for i := 0; i < maxReductions; i++ {
		actions := r.lang.Actions(v.state(), t)
		if len(actions) == 0 || v.halted || v.accepted != nil {
			return false
		}
		switch a := actions[0]; a.Type {
		case table.Reduce:
			r.reduce(v, a.Production, missing)
		case table.Shift:
			v.push(a.State, syntax.NewLeaf(syntax.Leaf{
				Symbol:     t,
				Grammar:    t,
				Named:      info.Named,
				Visible:    info.Visible,
				Missing:    true,
				ParseState: v.state(),
				LexMode:    syntax.NoLexMode,
				ScanStart:  v.scan,
				ScanEnd:    v.scan,
			}))
			return true
		default:
			return false
		}
	}
	return false
}

// giveUp ends the parse at the end of input when no repair applies: the
// stack is wrapped in an ERROR node, inside the start node when the start
// rule accepts empty input.
func (r *run) giveUp(v *version) bool {
	entries := v.entries()
	bottom := v.top
	for bottom.prev != nil {
		bottom = bottom.prev
	}
	if len(entries) > 0 && !v.gaveUp && len(r.lang.Actions(bottom.state, table.SymbolEnd)) > 0 {
		v.gaveUp = true
		node := syntax.NewNode(syntax.NodeSpec{
			Symbol:   table.SymbolError,
			Grammar:  table.SymbolError,
			Children: entries,
			Named:    true,
			Visible:  true,
			Extra:    true,
		})
		v.top = bottom.push(bottom.state, node)
		v.cost += len(entries)
		v.attempts = 0
		return false
	}
	if len(entries) == 0 {
		v.accepted = r.missingRoot()
	} else {
		v.accepted = r.errorRoot(entries)
	}
	return true
}

// missingRoot is the tree of an input without tokens when the start rule
// needs at least one.
func (r *run) missingRoot() *syntax.Subtree {
	start := r.lang.StartSymbol()
	info := r.lang.SymbolInfo(start)
	return syntax.NewLeaf(syntax.Leaf{
		Symbol:  start,
		Grammar: start,
		Named:   info.Named,
		Visible: info.Visible,
		Missing: true,
		LexMode: syntax.NoLexMode,
	})
}
