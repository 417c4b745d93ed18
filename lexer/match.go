package lexer

import (
	"regexp/syntax"
	"unicode/utf8"
)

// matcher runs compiled regexp programs anchored at a position and reports
// both the longest match and how far the input was inspected. The regexp
// package hides the second number, and incremental reparse needs it to know
// which edits can change a token.
type matcher struct {
	input []byte
	cur   []uint32
	next  []uint32
	seen  []bool
}

func (m *matcher) reset(prog *syntax.Prog) {
	if cap(m.seen) < len(prog.Inst) {
		m.seen = make([]bool, len(prog.Inst))
	}
	m.seen = m.seen[:len(prog.Inst)]
	for i := range m.seen {
		m.seen[i] = false
	}
}

func (m *matcher) runeBefore(pos int) rune {
	if pos <= 0 {
		return -1
	}
	r, _ := utf8.DecodeLastRune(m.input[:pos])
	return r
}

func (m *matcher) runeAt(pos int) rune {
	if pos >= len(m.input) {
		return -1
	}
	r, _ := utf8.DecodeRune(m.input[pos:])
	return r
}

// add follows empty transitions from pc and records the consuming
// instructions reached. It reports whether a match instruction was reached.
func (m *matcher) add(prog *syntax.Prog, list []uint32, pc uint32, pos int) ([]uint32, bool) {
	if m.seen[pc] {
		return list, false
	}
	m.seen[pc] = true
	inst := &prog.Inst[pc]
	switch inst.Op {
	case syntax.InstFail:
		return list, false
	case syntax.InstMatch:
		return list, true
	case syntax.InstAlt, syntax.InstAltMatch:
		list, a := m.add(prog, list, inst.Out, pos)
		list, b := m.add(prog, list, inst.Arg, pos)
		return list, a || b
	case syntax.InstCapture, syntax.InstNop:
		return m.add(prog, list, inst.Out, pos)
	case syntax.InstEmptyWidth:
		ctx := syntax.EmptyOpContext(m.runeBefore(pos), m.runeAt(pos))
		if syntax.EmptyOp(inst.Arg)&^ctx != 0 {
			return list, false
		}
		return m.add(prog, list, inst.Out, pos)
	}
	return append(list, pc), false
}

func step(inst *syntax.Inst, r rune) bool {
	switch inst.Op {
	case syntax.InstRune1:
		return inst.Rune[0] == r
	case syntax.InstRune:
		return inst.MatchRune(r)
	case syntax.InstRuneAny:
		return true
	case syntax.InstRuneAnyNotNL:
		return r != '\n'
	}
	return false
}

// longest returns the end of the longest match of prog starting at pos, or
// -1, and the exclusive end of the inspected input. Inspecting the end of
// input counts as one byte past it.
func (m *matcher) longest(prog *syntax.Prog, pos int) (end, examined int) {
	end = -1
	m.reset(prog)
	var matched bool
	m.cur, matched = m.add(prog, m.cur[:0], uint32(prog.Start), pos)
	if matched {
		end = pos
	}
	i := pos
	for len(m.cur) > 0 {
		if i >= len(m.input) {
			return end, len(m.input) + 1
		}
		r, w := utf8.DecodeRune(m.input[i:])
		m.reset(prog)
		m.next = m.next[:0]
		for _, pc := range m.cur {
			inst := &prog.Inst[pc]
			if step(inst, r) {
				var ok bool
				m.next, ok = m.add(prog, m.next, inst.Out, i+w)
				matched = matched || ok
				if ok {
					end = i + w
				}
			}
		}
		i += w
		m.cur, m.next = m.next, m.cur
	}
	return end, i
}
