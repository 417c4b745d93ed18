package syntax

import (
	"iter"
	"strings"

	"github.com/dhamidi/ilparse/table"
)

// Node is a position in a tree: a shared subtree plus where it sits.
type Node struct {
	sub    *Subtree
	pos    int
	tree   *Tree
	parent *Node
}

func (n Node) IsNull() bool { return n.sub == nil }

func (n Node) Subtree() *Subtree { return n.sub }

func (n Node) Tree() *Tree { return n.tree }

// Equal reports whether both values denote the same node of the same tree.
func (n Node) Equal(o Node) bool {
	return n.sub == o.sub && n.pos == o.pos && n.tree == o.tree
}

func (n Node) Symbol() table.Symbol { return n.sub.symbol }

func (n Node) GrammarSymbol() table.Symbol { return n.sub.grammar }

func (n Node) Type() string {
	if n.sub.symbol == table.SymbolError {
		return "ERROR"
	}
	return n.tree.lang.SymbolName(n.sub.symbol)
}

func (n Node) IsNamed() bool   { return n.sub.IsNamed() }
func (n Node) IsError() bool   { return n.sub.IsError() }
func (n Node) IsMissing() bool { return n.sub.IsMissing() }
func (n Node) HasError() bool  { return n.sub.HasError() }
func (n Node) IsExtra() bool   { return n.sub.IsExtra() }

// PaddedStartByte is where the trivia before the node begins.
func (n Node) PaddedStartByte() int { return n.pos }

func (n Node) StartByte() int { return n.pos + n.sub.padding }

func (n Node) EndByte() int { return n.pos + n.sub.padding + n.sub.size }

func (n Node) Contains(offset int) bool {
	return n.StartByte() <= offset && offset < n.EndByte()
}

// Text returns the source covered by the node. It is empty for trees that
// were edited and not reparsed.
func (n Node) Text() string {
	src := n.tree.source
	if src == nil || n.EndByte() > len(src) {
		return ""
	}
	return string(src[n.StartByte():n.EndByte()])
}

// childFrame is a position inside a subtree whose children are being
// listed: the next raw child, its padded start and the field inherited from
// a hidden ancestor.
type childFrame struct {
	sub   *Subtree
	index int
	pos   int
	field table.FieldID
}

// childIter lists the visible children of a node. Hidden nonterminals are
// transparent: their children are listed in their place and inherit their
// field when they have none of their own.
type childIter struct {
	parent Node
	stack  []childFrame
	// index is the position of the next visible child.
	index int
}

type child struct {
	node  Node
	field table.FieldID
	index int
}

func (n Node) iterate() childIter {
	return childIter{parent: n, stack: []childFrame{{sub: n.sub, pos: n.pos}}}
}

func (it *childIter) clone() childIter {
	c := *it
	c.stack = append([]childFrame(nil), it.stack...)
	return c
}

func (it *childIter) next() (child, bool) {
	return it.seek(-1, -1)
}

// seek returns the next visible child. Hidden subtrees holding no child
// at index minIndex or later, or ending before minEnd, are stepped over
// without being entered.
func (it *childIter) seek(minIndex, minEnd int) (child, bool) {
	for len(it.stack) > 0 {
		top := &it.stack[len(it.stack)-1]
		if top.index >= len(top.sub.children) {
			it.stack = it.stack[:len(it.stack)-1]
			continue
		}
		i := top.index
		c := top.sub.children[i]
		pos := top.pos
		field := top.sub.FieldAt(i)
		if field == 0 {
			field = top.field
		}
		top.index++
		top.pos += c.padding + c.size
		if c.IsVisible() {
			parent := it.parent
			found := child{
				node:  Node{sub: c, pos: pos, tree: parent.tree, parent: &parent},
				field: field,
				index: it.index,
			}
			it.index++
			return found, true
		}
		if c.visible == 0 {
			continue
		}
		if it.index+c.visible <= minIndex || pos+c.padding+c.size < minEnd {
			it.index += c.visible
			continue
		}
		it.stack = append(it.stack, childFrame{sub: c, pos: pos, field: field})
	}
	return child{}, false
}

func (n Node) ChildCount() int {
	return n.sub.visible
}

func (n Node) Child(i int) Node {
	if i < 0 || i >= n.sub.visible {
		return Node{}
	}
	it := n.iterate()
	for {
		c, ok := it.seek(i, -1)
		if !ok {
			return Node{}
		}
		if c.index == i {
			return c.node
		}
	}
}

// Children yields the visible children in order.
func (n Node) Children() iter.Seq[Node] {
	return func(yield func(Node) bool) {
		it := n.iterate()
		for {
			c, ok := it.next()
			if !ok || !yield(c.node) {
				return
			}
		}
	}
}

// ChildrenWithFields yields the visible children in order with the name of
// the field each one fills, or "".
func (n Node) ChildrenWithFields() iter.Seq2[Node, string] {
	return func(yield func(Node, string) bool) {
		it := n.iterate()
		for {
			c, ok := it.next()
			if !ok || !yield(c.node, n.tree.lang.FieldName(c.field)) {
				return
			}
		}
	}
}

func (n Node) NamedChildCount() int {
	count := 0
	for c := range n.Children() {
		if c.IsNamed() {
			count++
		}
	}
	return count
}

func (n Node) NamedChild(i int) Node {
	for c := range n.Children() {
		if !c.IsNamed() {
			continue
		}
		if i == 0 {
			return c
		}
		i--
	}
	return Node{}
}

func (n Node) FieldNameForChild(i int) string {
	if i < 0 || i >= n.sub.visible {
		return ""
	}
	it := n.iterate()
	for {
		c, ok := it.seek(i, -1)
		if !ok {
			return ""
		}
		if c.index == i {
			return n.tree.lang.FieldName(c.field)
		}
	}
}

// ChildByFieldName returns the first child carrying the field.
func (n Node) ChildByFieldName(name string) Node {
	for c := range n.ChildrenByFieldName(name) {
		return c
	}
	return Node{}
}

func (n Node) ChildrenByFieldName(name string) iter.Seq[Node] {
	return func(yield func(Node) bool) {
		id, ok := n.tree.lang.FieldID(name)
		if !ok {
			return
		}
		it := n.iterate()
		for {
			c, ok := it.next()
			if !ok {
				return
			}
			if c.field == id && !yield(c.node) {
				return
			}
		}
	}
}

func (n Node) Parent() Node {
	if n.parent == nil {
		return Node{}
	}
	return *n.parent
}

func (n Node) sibling(delta int) Node {
	if n.parent == nil {
		return Node{}
	}
	it := n.parent.iterate()
	for {
		c, ok := it.seek(-1, n.pos)
		if !ok {
			return Node{}
		}
		if c.node.sub != n.sub || c.node.pos != n.pos {
			continue
		}
		if delta < 0 {
			return n.parent.Child(c.index - 1)
		}
		next, _ := it.next()
		return next.node
	}
}

func (n Node) NextSibling() Node { return n.sibling(1) }

func (n Node) PrevSibling() Node { return n.sibling(-1) }

func (n Node) NextNamedSibling() Node {
	for s := n.NextSibling(); !s.IsNull(); s = s.NextSibling() {
		if s.IsNamed() {
			return s
		}
	}
	return Node{}
}

// DescendantForByte returns the deepest visible node containing offset. A
// zero-width node exactly at offset wins over wider nodes, even when it sits
// at the end of its ancestors.
func (n Node) DescendantForByte(offset int) Node {
	cur := n
	for {
		next, ok := cur.childAt(offset, true)
		if !ok {
			return cur
		}
		cur = next
	}
}

// NamedDescendantForByte returns the smallest named node containing offset.
func (n Node) NamedDescendantForByte(offset int) Node {
	best := n
	cur := n
	for {
		next, ok := cur.childAt(offset, false)
		if !ok {
			return best
		}
		cur = next
		if cur.IsNamed() {
			best = cur
		}
	}
}

func (n Node) childAt(offset int, zeroWidth bool) (Node, bool) {
	it := n.iterate()
	for {
		ch, ok := it.seek(-1, offset)
		if !ok {
			break
		}
		c := ch.node
		if c.Contains(offset) {
			return c, true
		}
		if zeroWidth && c.sub.size == 0 && c.StartByte() == offset {
			return c, true
		}
		if zeroWidth && c.EndByte() == offset && hasZeroWidthAt(c, offset) {
			return c, true
		}
		if c.StartByte() > offset {
			break
		}
	}
	return Node{}, false
}

func hasZeroWidthAt(n Node, offset int) bool {
	it := n.iterate()
	for {
		ch, ok := it.seek(-1, offset)
		if !ok {
			return false
		}
		c := ch.node
		if c.sub.size == 0 && c.StartByte() == offset {
			return true
		}
		if c.sub.size > 0 && c.EndByte() == offset && hasZeroWidthAt(c, offset) {
			return true
		}
	}
}

// String renders the node as an S-expression of its named descendants.
// Missing tokens are always shown.
func (n Node) String() string {
	if n.IsNull() {
		return "()"
	}
	var b strings.Builder
	writeSExpr(&b, n, "")
	return b.String()
}
