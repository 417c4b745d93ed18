package format

import (
	"fmt"
	"io"
	"strings"

	"github.com/dhamidi/ilparse/syntax"
)

// LineEncoder lists one node per line, indented by depth, with tab
// separated columns: type, byte range, field, and the text of leaves.
type LineEncoder struct {
	w    io.Writer
	tree *syntax.Tree
}

func NewLineEncoder(w io.Writer) *LineEncoder {
	return &LineEncoder{w: w}
}

func (e *LineEncoder) Encode(tree *syntax.Tree) error {
	e.tree = tree
	text, err := e.MarshalText()
	if err != nil {
		return err
	}
	_, err = e.w.Write(text)
	return err
}

func (e *LineEncoder) MarshalText() ([]byte, error) {
	if e.tree == nil {
		return nil, fmt.Errorf("line: no tree")
	}
	var sb strings.Builder
	c := e.tree.Cursor()
	for {
		n := c.Node()
		fmt.Fprintf(&sb, "%s%s\t%d-%d\t%s",
			strings.Repeat("  ", c.Depth()),
			e.nodeType(n),
			n.StartByte(),
			n.EndByte(),
			c.FieldName(),
		)
		if n.ChildCount() == 0 {
			fmt.Fprintf(&sb, "\t%q", n.Text())
		}
		sb.WriteByte('\n')
		if c.GotoFirstChild() {
			continue
		}
		for !c.GotoNextSibling() {
			if !c.GotoParent() {
				return []byte(sb.String()), nil
			}
		}
	}
}

func (e *LineEncoder) nodeType(n syntax.Node) string {
	switch {
	case n.IsMissing():
		return "MISSING " + n.Type()
	case !n.IsNamed():
		return fmt.Sprintf("%q", n.Type())
	}
	return n.Type()
}
