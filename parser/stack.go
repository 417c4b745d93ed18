package parser

import (
	"bytes"

	"github.com/dhamidi/ilparse/syntax"
	"github.com/dhamidi/ilparse/table"
)

// stackEntry is one frame of a persistent parse stack. Frames are never
// modified, so forked versions share everything below their fork point.
type stackEntry struct {
	state   table.StateID
	subtree *syntax.Subtree
	prev    *stackEntry
	// pos is the padded end of subtree, absolute in the input.
	pos   int
	depth int
}

func (e *stackEntry) push(state table.StateID, s *syntax.Subtree) *stackEntry {
	return &stackEntry{state: state, subtree: s, prev: e, pos: e.pos + s.TotalSize(), depth: e.depth + 1}
}

// version is one branch of the GLR parse.
type version struct {
	top      *stackEntry
	scan     []byte
	dynamic  int32
	cost     int
	path     []uint8
	la       *lookahead
	attempts int
	steps    int
	accepted *syntax.Subtree
	halted   bool
	gaveUp   bool
}

func (v *version) pos() int { return v.top.pos }

func (v *version) state() table.StateID { return v.top.state }

func (v *version) fork(choice int) *version {
	c := *v
	c.path = append(append([]uint8(nil), v.path...), uint8(min(choice, 255)))
	return &c
}

func (v *version) push(state table.StateID, s *syntax.Subtree) {
	v.top = v.top.push(state, s)
}

// entries returns the subtrees on the stack from bottom to top.
func (v *version) entries() []*syntax.Subtree {
	out := make([]*syntax.Subtree, v.top.depth)
	for e := v.top; e.prev != nil; e = e.prev {
		out[e.depth-1] = e.subtree
	}
	return out
}

func (v *version) sameFuture(o *version) bool {
	return v.state() == o.state() && v.pos() == o.pos() && bytes.Equal(v.scan, o.scan)
}

// better orders versions for merging and pruning: fewer errors, then higher
// dynamic precedence, then the branch whose fork choices come first.
func (v *version) better(o *version) bool {
	if v.cost != o.cost {
		return v.cost < o.cost
	}
	if v.dynamic != o.dynamic {
		return v.dynamic > o.dynamic
	}
	for i := 0; i < len(v.path) && i < len(o.path); i++ {
		if v.path[i] != o.path[i] {
			return v.path[i] < o.path[i]
		}
	}
	return len(v.path) <= len(o.path)
}
