package parser

import "github.com/dhamidi/ilparse/syntax"

type reuseFrame struct {
	subtree *syntax.Subtree
	pos     int
	index   int
}

// reuseCursor walks an edited tree in document order looking for subtrees
// that start exactly where the parser is.
type reuseCursor struct {
	stack []reuseFrame
}

func newReuseCursor(root *syntax.Subtree) *reuseCursor {
	if root == nil {
		return &reuseCursor{}
	}
	return &reuseCursor{stack: []reuseFrame{{subtree: root, index: -1}}}
}

func (r *reuseCursor) current() (*syntax.Subtree, int, bool) {
	if len(r.stack) == 0 {
		return nil, 0, false
	}
	top := r.stack[len(r.stack)-1]
	return top.subtree, top.pos, true
}

// next moves past the current subtree to the following one.
func (r *reuseCursor) next() {
	for len(r.stack) > 0 {
		top := r.stack[len(r.stack)-1]
		r.stack = r.stack[:len(r.stack)-1]
		if len(r.stack) == 0 {
			return
		}
		parent := r.stack[len(r.stack)-1].subtree
		i := top.index + 1
		if i < parent.ChildCount() {
			r.stack = append(r.stack, reuseFrame{
				subtree: parent.Children()[i],
				pos:     top.pos + top.subtree.TotalSize(),
				index:   i,
			})
			return
		}
	}
}

// descend moves to the first child of the current subtree.
func (r *reuseCursor) descend() bool {
	s, pos, ok := r.current()
	if !ok || s.ChildCount() == 0 {
		return false
	}
	r.stack = append(r.stack, reuseFrame{subtree: s.Children()[0], pos: pos, index: 0})
	return true
}

// breakdown moves off the current subtree: into it when it has children,
// past it otherwise.
func (r *reuseCursor) breakdown() {
	if !r.descend() {
		r.next()
	}
}

// candidate returns a clean subtree starting at pos, or nil.
func (r *reuseCursor) candidate(pos int) *syntax.Subtree {
	for {
		s, start, ok := r.current()
		if !ok || start > pos {
			return nil
		}
		end := start + s.TotalSize()
		switch {
		case end <= pos && !(end == pos && start == pos):
			r.next()
		case start < pos:
			r.breakdown()
		case s.IsDirty() || s.HasError() || s.IsFragile() || s.Size() == 0 || s.LexMode() == syntax.NoLexMode:
			r.breakdown()
		default:
			return s
		}
	}
}
