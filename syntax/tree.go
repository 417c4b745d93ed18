// Package syntax is the persistent syntax tree produced by the parser.
//
// A Tree is an immutable root handle over shared *Subtree values. Editing a
// tree copies only the subtrees on the paths to the edit; every other
// subtree is shared with the previous version, so old versions stay valid
// and cheap to keep. Nodes are values computed on demand from a subtree and
// its absolute position.
//
// Offset lookups use half-open ranges: a node contains offset o when
// start <= o < end. DescendantForByte returns the deepest such node and
// prefers a zero-width node located exactly at o, which is how missing
// tokens are found. NamedDescendantForByte never returns zero-width nodes.
// Offsets outside the root yield the root.
package syntax

import (
	"strings"

	"github.com/dhamidi/ilparse/table"
	"github.com/google/uuid"
)

type Tree struct {
	root    *Subtree
	lang    *table.Language
	source  []byte
	length  int
	version uuid.UUID
	edited  bool
}

// NewTree wraps a parsed root. source is retained for Text.
func NewTree(root *Subtree, lang *table.Language, source []byte) *Tree {
	return &Tree{root: root, lang: lang, source: source, length: len(source), version: uuid.New()}
}

func (t *Tree) Root() Node {
	return Node{sub: t.root, tree: t}
}

func (t *Tree) RootSubtree() *Subtree       { return t.root }
func (t *Tree) Language() *table.Language   { return t.lang }
func (t *Tree) Length() int                 { return t.length }
func (t *Tree) Version() uuid.UUID          { return t.version }

// IsEdited reports whether the tree came from ApplyEdit and still describes
// text it was not parsed from.
func (t *Tree) IsEdited() bool { return t.edited }

// Source is the text the tree was parsed from, or nil for edited trees.
func (t *Tree) Source() []byte { return t.source }

func (t *Tree) String() string {
	return t.Root().String()
}

func (t *Tree) DescendantForByte(offset int) Node {
	return t.Root().DescendantForByte(offset)
}

func (t *Tree) NamedDescendantForByte(offset int) Node {
	return t.Root().NamedDescendantForByte(offset)
}

// Equal reports whether two trees have the same shape: the same visible
// nodes with the same symbols, ranges, fields and error markers, regardless
// of which subtrees are shared or how hidden nodes group them.
func Equal(a, b *Tree) bool {
	if a == nil || b == nil {
		return a == b
	}
	return equalNode(a.Root(), b.Root())
}

func equalNode(a, b Node) bool {
	if a.sub == b.sub && a.pos == b.pos {
		return true
	}
	if a.sub.symbol != b.sub.symbol || a.StartByte() != b.StartByte() || a.EndByte() != b.EndByte() ||
		a.IsMissing() != b.IsMissing() || a.IsExtra() != b.IsExtra() ||
		a.sub.visible != b.sub.visible {
		return false
	}
	ia, ib := a.iterate(), b.iterate()
	for {
		ca, oka := ia.next()
		cb, okb := ib.next()
		if !oka || !okb {
			return oka == okb
		}
		if ca.field != cb.field || !equalNode(ca.node, cb.node) {
			return false
		}
	}
}

// Leaves returns the leaves of the tree in order, including invisible ones.
// Their parents are their nearest visible ancestors.
func (t *Tree) Leaves() []Node {
	var out []Node
	var walk func(s *Subtree, pos int, parent *Node)
	walk = func(s *Subtree, pos int, parent *Node) {
		n := Node{sub: s, pos: pos, tree: t, parent: parent}
		if len(s.children) == 0 {
			out = append(out, n)
			return
		}
		if s.IsVisible() || parent == nil {
			parent = &n
		}
		for _, c := range s.children {
			walk(c, pos, parent)
			pos += c.padding + c.size
		}
	}
	walk(t.root, 0, nil)
	return out
}

func writeSExpr(b *strings.Builder, n Node, field string) {
	if field != "" {
		b.WriteString(field)
		b.WriteString(": ")
	}
	b.WriteByte('(')
	switch {
	case n.IsMissing():
		b.WriteString("MISSING ")
		if n.IsNamed() {
			b.WriteString(n.Type())
		} else {
			b.WriteString(`"` + n.Type() + `"`)
		}
	default:
		b.WriteString(n.Type())
	}
	for c, f := range n.ChildrenWithFields() {
		if !c.IsNamed() && !c.IsMissing() {
			continue
		}
		b.WriteByte(' ')
		writeSExpr(b, c, f)
	}
	b.WriteByte(')')
}
