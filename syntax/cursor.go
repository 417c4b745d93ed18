package syntax

import (
	"iter"

	"github.com/dhamidi/ilparse/table"
)

// frame is one level of a cursor: the node, its index and field within its
// parent, and the parent's child iterator positioned after it.
type frame struct {
	node  Node
	index int
	field table.FieldID
	it    childIter
}

// Cursor walks a tree with explicit moves. Every move reports whether it
// succeeded and leaves the cursor where it was when it did not. Cursors are
// independent of each other.
type Cursor struct {
	root  Node
	stack []frame
}

func NewCursor(n Node) *Cursor {
	return &Cursor{root: n, stack: []frame{{node: n, index: -1}}}
}

func (t *Tree) Cursor() *Cursor {
	return NewCursor(t.Root())
}

func (c *Cursor) Node() Node {
	return c.stack[len(c.stack)-1].node
}

// Depth is zero at the node the cursor was created on.
func (c *Cursor) Depth() int {
	return len(c.stack) - 1
}

func (c *Cursor) Reset(n Node) {
	c.root = n
	c.stack = append(c.stack[:0], frame{node: n, index: -1})
}

func (c *Cursor) Copy() *Cursor {
	stack := make([]frame, len(c.stack))
	for i, f := range c.stack {
		f.it = f.it.clone()
		stack[i] = f
	}
	return &Cursor{root: c.root, stack: stack}
}

func (c *Cursor) push(ch child, it childIter) {
	c.stack = append(c.stack, frame{node: ch.node, index: ch.index, field: ch.field, it: it})
}

// FieldName is the field of the current node within its parent.
func (c *Cursor) FieldName() string {
	if len(c.stack) < 2 {
		return ""
	}
	top := c.stack[len(c.stack)-1]
	return top.node.tree.lang.FieldName(top.field)
}

func (c *Cursor) GotoFirstChild() bool {
	it := c.Node().iterate()
	ch, ok := it.next()
	if !ok {
		return false
	}
	c.push(ch, it)
	return true
}

func (c *Cursor) GotoLastChild() bool {
	n := c.Node()
	count := n.ChildCount()
	if count == 0 {
		return false
	}
	it := n.iterate()
	for {
		ch, ok := it.seek(count-1, -1)
		if !ok {
			return false
		}
		if ch.index == count-1 {
			c.push(ch, it)
			return true
		}
	}
}

func (c *Cursor) GotoNextSibling() bool {
	if len(c.stack) < 2 {
		return false
	}
	top := &c.stack[len(c.stack)-1]
	if top.index+1 >= c.stack[len(c.stack)-2].node.ChildCount() {
		return false
	}
	ch, ok := top.it.next()
	if !ok {
		return false
	}
	top.node, top.index, top.field = ch.node, ch.index, ch.field
	return true
}

// GotoPrevSibling restarts the parent's iteration, skipping hidden
// subtrees that lie wholly before the target.
func (c *Cursor) GotoPrevSibling() bool {
	if len(c.stack) < 2 {
		return false
	}
	top := &c.stack[len(c.stack)-1]
	want := top.index - 1
	if want < 0 {
		return false
	}
	it := c.stack[len(c.stack)-2].node.iterate()
	for {
		ch, ok := it.seek(want, -1)
		if !ok {
			return false
		}
		if ch.index == want {
			top.node, top.index, top.field, top.it = ch.node, ch.index, ch.field, it
			return true
		}
	}
}

func (c *Cursor) GotoParent() bool {
	if len(c.stack) < 2 {
		return false
	}
	c.stack = c.stack[:len(c.stack)-1]
	return true
}

// GotoDescendantAtByte moves to the deepest descendant of the current node
// that contains offset, with the lookup convention of DescendantForByte.
func (c *Cursor) GotoDescendantAtByte(offset int) bool {
	moved := false
	for {
		n := c.Node()
		found := false
		it := n.iterate()
		for {
			ch, ok := it.seek(-1, offset)
			if !ok {
				break
			}
			child := ch.node
			if child.Contains(offset) ||
				child.sub.size == 0 && child.StartByte() == offset ||
				child.EndByte() == offset && hasZeroWidthAt(child, offset) {
				c.push(ch, it)
				found, moved = true, true
				break
			}
			if child.StartByte() > offset {
				break
			}
		}
		if !found {
			return moved
		}
	}
}

// Walk yields the visible nodes under n in depth-first pre-order with their
// depth relative to n. Each iteration starts a fresh traversal.
func Walk(n Node) iter.Seq2[Node, int] {
	return func(yield func(Node, int) bool) {
		c := NewCursor(n)
		for {
			if !yield(c.Node(), c.Depth()) {
				return
			}
			if c.GotoFirstChild() {
				continue
			}
			for !c.GotoNextSibling() {
				if !c.GotoParent() {
					return
				}
			}
		}
	}
}

func (t *Tree) Walk() iter.Seq2[Node, int] {
	return Walk(t.Root())
}
