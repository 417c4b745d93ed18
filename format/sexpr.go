package format

import (
	"fmt"
	"io"
	"strings"

	"github.com/dhamidi/ilparse/syntax"
)

// SExprEncoder writes the canonical S-expression of a tree, optionally
// annotating every node with its range.
type SExprEncoder struct {
	w      io.Writer
	tree   *syntax.Tree
	ranges bool
}

func NewSExprEncoder(w io.Writer) *SExprEncoder {
	return &SExprEncoder{w: w}
}

// WithRanges makes the encoder append [row:col-row:col] after node types.
func (e *SExprEncoder) WithRanges(on bool) *SExprEncoder {
	e.ranges = on
	return e
}

func (e *SExprEncoder) Encode(tree *syntax.Tree) error {
	e.tree = tree
	text, err := e.MarshalText()
	if err != nil {
		return err
	}
	_, err = e.w.Write(append(text, '\n'))
	return err
}

func (e *SExprEncoder) MarshalText() ([]byte, error) {
	if e.tree == nil {
		return nil, fmt.Errorf("sexpr: no tree")
	}
	if !e.ranges {
		return []byte(e.tree.String()), nil
	}
	var sb strings.Builder
	e.write(&sb, e.tree.Root(), "", newLineIndex(e.tree.Source()), 0)
	return []byte(sb.String()), nil
}

func (e *SExprEncoder) write(sb *strings.Builder, n syntax.Node, field string, lines lineIndex, depth int) {
	if depth > 0 {
		sb.WriteString("\n")
		sb.WriteString(strings.Repeat("  ", depth))
	}
	if field != "" {
		sb.WriteString(field + ": ")
	}
	start, end := lines.point(n.StartByte()), lines.point(n.EndByte())
	switch {
	case n.IsMissing():
		fmt.Fprintf(sb, "(MISSING %q", n.Type())
	case !n.IsNamed():
		fmt.Fprintf(sb, "(%q", n.Type())
	default:
		sb.WriteString("(" + n.Type())
	}
	fmt.Fprintf(sb, " [%d:%d-%d:%d]", start.Row, start.Column, end.Row, end.Column)
	for c, field := range n.ChildrenWithFields() {
		if c.IsNamed() || c.IsMissing() {
			e.write(sb, c, field, lines, depth+1)
		}
	}
	sb.WriteString(")")
}
