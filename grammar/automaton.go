package grammar

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dhamidi/ilparse/table"
)

type item struct {
	prod int
	dot  int
}

type lrState struct {
	items   []item
	next    map[table.Symbol]int
	actions map[table.Symbol][]table.Action
	gotos   map[table.Symbol]table.StateID
}

type automaton struct {
	states    []*lrState
	conflicts int
}

type bitset []uint64

func newBitset(n int) bitset { return make(bitset, (n+63)/64) }

func (b bitset) set(i table.Symbol) bool {
	w, m := int(i)/64, uint64(1)<<(uint(i)%64)
	if b[w]&m != 0 {
		return false
	}
	b[w] |= m
	return true
}

func (b bitset) has(i table.Symbol) bool {
	return b[int(i)/64]&(uint64(1)<<(uint(i)%64)) != 0
}

func (b bitset) union(o bitset) bool {
	changed := false
	for i := range b {
		if n := b[i] | o[i]; n != b[i] {
			b[i] = n
			changed = true
		}
	}
	return changed
}

func (c *compiler) automaton() *automaton {
	byLHS := make(map[table.Symbol][]int)
	for i, p := range c.prods {
		byLHS[p.lhs] = append(byLHS[p.lhs], i)
	}
	closure := func(kernel []item) []item {
		seen := make(map[item]bool)
		added := make(map[table.Symbol]bool)
		var out []item
		work := append([]item(nil), kernel...)
		for len(work) > 0 {
			it := work[0]
			work = work[1:]
			if seen[it] {
				continue
			}
			seen[it] = true
			out = append(out, it)
			steps := c.prods[it.prod].steps
			if it.dot >= len(steps) {
				continue
			}
			s := steps[it.dot].symbol
			if c.isTerminal(s) || added[s] {
				continue
			}
			added[s] = true
			for _, p := range byLHS[s] {
				work = append(work, item{prod: p})
			}
		}
		return out
	}
	key := func(kernel []item) string {
		sorted := append([]item(nil), kernel...)
		sort.Slice(sorted, func(i, j int) bool {
			if sorted[i].prod != sorted[j].prod {
				return sorted[i].prod < sorted[j].prod
			}
			return sorted[i].dot < sorted[j].dot
		})
		var b strings.Builder
		for _, it := range sorted {
			fmt.Fprintf(&b, "%d.%d,", it.prod, it.dot)
		}
		return b.String()
	}

	a := &automaton{}
	index := make(map[string]int)
	start := []item{{prod: 0}}
	index[key(start)] = 0
	a.states = append(a.states, &lrState{items: closure(start), next: make(map[table.Symbol]int)})
	for i := 0; i < len(a.states); i++ {
		st := a.states[i]
		kernels := make(map[table.Symbol][]item)
		var order []table.Symbol
		for _, it := range st.items {
			steps := c.prods[it.prod].steps
			if it.dot >= len(steps) {
				continue
			}
			s := steps[it.dot].symbol
			if _, ok := kernels[s]; !ok {
				order = append(order, s)
			}
			kernels[s] = append(kernels[s], item{prod: it.prod, dot: it.dot + 1})
		}
		sort.Slice(order, func(x, y int) bool { return order[x] < order[y] })
		for _, s := range order {
			k := key(kernels[s])
			target, ok := index[k]
			if !ok {
				target = len(a.states)
				index[k] = target
				a.states = append(a.states, &lrState{items: closure(kernels[s]), next: make(map[table.Symbol]int)})
			}
			st.next[s] = target
		}
	}
	c.fillActions(a)
	return a
}

func (c *compiler) firstAndFollow() (nullable []bool, first, follow []bitset) {
	n := len(c.symbols)
	nullable = make([]bool, n)
	first = make([]bitset, n)
	follow = make([]bitset, n)
	for i := range first {
		first[i] = newBitset(n)
		follow[i] = newBitset(n)
		if c.isTerminal(table.Symbol(i)) {
			first[i].set(table.Symbol(i))
		}
	}
	for changed := true; changed; {
		changed = false
		for _, p := range c.prods {
			allNullable := true
			for _, s := range p.steps {
				if first[p.lhs].union(first[s.symbol]) {
					changed = true
				}
				if !nullable[s.symbol] {
					allNullable = false
					break
				}
			}
			if allNullable && !nullable[p.lhs] {
				nullable[p.lhs] = true
				changed = true
			}
		}
	}
	follow[0].set(table.SymbolEnd)
	for changed := true; changed; {
		changed = false
		for _, p := range c.prods {
			trailer := newBitset(n)
			trailer.union(follow[p.lhs])
			for i := len(p.steps) - 1; i >= 0; i-- {
				s := p.steps[i].symbol
				if !c.isTerminal(s) {
					if follow[s].union(trailer) {
						changed = true
					}
				}
				if nullable[s] {
					trailer.union(first[s])
				} else {
					trailer = newBitset(n)
					trailer.union(first[s])
				}
			}
		}
	}
	return nullable, first, follow
}

type candidate struct {
	action  table.Action
	prec    int
	assoc   precKind
	hasPrec bool
	order   int
	repeat  bool
}

func (c *compiler) fillActions(a *automaton) {
	_, _, follow := c.firstAndFollow()
	for _, st := range a.states {
		st.actions = make(map[table.Symbol][]table.Action)
		st.gotos = make(map[table.Symbol]table.StateID)
		shifts := make(map[table.Symbol]*candidate)
		reduces := make(map[table.Symbol][]candidate)
		for _, it := range st.items {
			p := c.prods[it.prod]
			if it.dot < len(p.steps) {
				s := p.steps[it.dot].symbol
				if !c.isTerminal(s) {
					st.gotos[s] = table.StateID(st.next[s])
					continue
				}
				sh, ok := shifts[s]
				if !ok {
					sh = &candidate{action: table.Action{Type: table.Shift, State: table.StateID(st.next[s])}, order: it.prod}
					shifts[s] = sh
				}
				if it.prod < sh.order {
					sh.order = it.prod
				}
				if p.hasPrec && (!sh.hasPrec || p.prec > sh.prec) {
					sh.prec, sh.hasPrec = p.prec, true
				}
				continue
			}
			if it.prod == 0 {
				st.actions[table.SymbolEnd] = []table.Action{{Type: table.Accept}}
				continue
			}
			for s := 0; s < len(c.symbols); s++ {
				if follow[p.lhs].has(table.Symbol(s)) && c.isTerminal(table.Symbol(s)) {
					reduces[table.Symbol(s)] = append(reduces[table.Symbol(s)], candidate{
						action:  table.Action{Type: table.Reduce, Production: uint16(it.prod)},
						prec:    p.prec,
						assoc:   p.assoc,
						hasPrec: p.hasPrec,
						order:   it.prod,
						repeat:  p.repeat,
					})
				}
			}
		}
		symbols := make(map[table.Symbol]bool)
		for s := range shifts {
			symbols[s] = true
		}
		for s := range reduces {
			symbols[s] = true
		}
		for s := range symbols {
			if s == table.SymbolEnd && len(st.actions[s]) > 0 {
				continue
			}
			resolved := resolve(shifts[s], reduces[s])
			if len(resolved) > 1 {
				a.conflicts++
			}
			st.actions[s] = resolved
		}
	}
}

// resolve applies precedence and associativity to the candidate actions of
// one table cell. Unresolvable candidates all survive, ordered by the
// declaration order of their productions.
func resolve(shift *candidate, reduces []candidate) []table.Action {
	if len(reduces) > 1 {
		best, any := 0, false
		for _, r := range reduces {
			if r.hasPrec && (!any || r.prec > best) {
				best, any = r.prec, true
			}
		}
		if any {
			kept := reduces[:0:0]
			for _, r := range reduces {
				if r.prec >= best {
					kept = append(kept, r)
				}
			}
			reduces = kept
		}
	}
	var out []candidate
	keepShift := shift != nil
	for _, r := range reduces {
		if r.repeat {
			// Repeat runs are joined as soon as both halves exist.
			keepShift = false
			out = append(out, r)
			continue
		}
		if shift == nil || (!r.hasPrec && !shift.hasPrec) {
			out = append(out, r)
			continue
		}
		switch {
		case r.prec > shift.prec:
			keepShift = false
			out = append(out, r)
		case r.prec < shift.prec:
		case r.assoc == precLeft:
			keepShift = false
			out = append(out, r)
		case r.assoc == precRight:
		default:
			out = append(out, r)
		}
	}
	if keepShift {
		out = append(out, *shift)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].order < out[j].order })
	actions := make([]table.Action, len(out))
	for i, cand := range out {
		actions[i] = cand.action
	}
	return actions
}
