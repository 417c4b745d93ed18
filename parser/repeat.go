package parser

import (
	"github.com/dhamidi/ilparse/syntax"
	"github.com/dhamidi/ilparse/table"
)

// repeatJoin builds the nodes of a repeat helper. A run of repeated items
// is kept as a height-balanced binary tree of hidden pair nodes: appending
// to it or reusing slices of it after an edit touches a logarithmic number
// of nodes. Extras found between two halves stay between them.
type repeatJoin struct {
	r      *run
	prod   uint16
	symbol table.Symbol
}

func (j *repeatJoin) isPair(s *syntax.Subtree) bool {
	return !s.IsLeaf() && !s.IsError() && s.Symbol() == j.symbol &&
		s.GrammarSymbol() == j.symbol && s.Production() == j.prod
}

// height is zero for single items.
func (j *repeatJoin) height(s *syntax.Subtree) int {
	if !j.isPair(s) {
		return 0
	}
	return s.RepeatDepth()
}

func (j *repeatJoin) split(s *syntax.Subtree) (*syntax.Subtree, []*syntax.Subtree, *syntax.Subtree) {
	ch := s.Children()
	return ch[0], ch[1 : len(ch)-1], ch[len(ch)-1]
}

func (j *repeatJoin) node(l *syntax.Subtree, mid []*syntax.Subtree, r *syntax.Subtree) *syntax.Subtree {
	children := make([]*syntax.Subtree, 0, len(mid)+2)
	children = append(children, l)
	children = append(children, mid...)
	children = append(children, r)
	return syntax.NewNode(syntax.NodeSpec{
		Symbol:      j.symbol,
		Grammar:     j.symbol,
		Production:  j.prod,
		Children:    children,
		Fragile:     j.r.active() > 1,
		ParseState:  l.ParseState(),
		RepeatDepth: 1 + max(j.height(l), j.height(r)),
	})
}

// join concatenates two runs, rebalancing along the spine of the taller one.
func (j *repeatJoin) join(l *syntax.Subtree, mid []*syntax.Subtree, r *syntax.Subtree) *syntax.Subtree {
	hl, hr := j.height(l), j.height(r)
	switch {
	case hl > hr+1:
		return j.joinRight(l, mid, r)
	case hr > hl+1:
		return j.joinLeft(l, mid, r)
	}
	return j.node(l, mid, r)
}

func (j *repeatJoin) joinRight(tl *syntax.Subtree, mid []*syntax.Subtree, tr *syntax.Subtree) *syntax.Subtree {
	l, k, c := j.split(tl)
	if j.height(c) <= j.height(tr)+1 {
		t := j.node(c, mid, tr)
		if j.height(t) <= j.height(l)+1 {
			return j.node(l, k, t)
		}
		return j.rotateLeft(j.node(l, k, j.rotateRight(t)))
	}
	t := j.joinRight(c, mid, tr)
	joined := j.node(l, k, t)
	if j.height(t) <= j.height(l)+1 {
		return joined
	}
	return j.rotateLeft(joined)
}

func (j *repeatJoin) joinLeft(tl *syntax.Subtree, mid []*syntax.Subtree, tr *syntax.Subtree) *syntax.Subtree {
	c, k, r := j.split(tr)
	if j.height(c) <= j.height(tl)+1 {
		t := j.node(tl, mid, c)
		if j.height(t) <= j.height(r)+1 {
			return j.node(t, k, r)
		}
		return j.rotateRight(j.node(j.rotateLeft(t), k, r))
	}
	t := j.joinLeft(tl, mid, c)
	joined := j.node(t, k, r)
	if j.height(t) <= j.height(r)+1 {
		return joined
	}
	return j.rotateRight(joined)
}

func (j *repeatJoin) rotateLeft(s *syntax.Subtree) *syntax.Subtree {
	a, k1, right := j.split(s)
	b, k2, c := j.split(right)
	return j.node(j.node(a, k1, b), k2, c)
}

func (j *repeatJoin) rotateRight(s *syntax.Subtree) *syntax.Subtree {
	left, k1, c := j.split(s)
	a, k2, b := j.split(left)
	return j.node(a, k2, j.node(b, k1, c))
}

// reduceRepeat joins the two runs popped for a pair production.
func (r *run) reduceRepeat(prodIndex uint16, prod table.Production, popped []*syntax.Subtree) *syntax.Subtree {
	j := &repeatJoin{r: r, prod: prodIndex, symbol: prod.Symbol}
	return j.join(popped[0], popped[1:len(popped)-1], popped[len(popped)-1])
}
