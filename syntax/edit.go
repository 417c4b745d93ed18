package syntax

import (
	"github.com/dhamidi/ilparse/fault"
)

// Edit describes one text replacement: the bytes [StartByte, OldEndByte) of
// the old text became [StartByte, NewEndByte) in the new text.
type Edit struct {
	StartByte  int
	OldEndByte int
	NewEndByte int
}

func (e Edit) Delta() int { return e.NewEndByte - e.OldEndByte }

func (e Edit) validate(length int) error {
	switch {
	case e.StartByte < 0:
		return fault.New(fault.InvalidEdit, "apply edit", "start %d is negative", e.StartByte)
	case e.OldEndByte < e.StartByte:
		return fault.New(fault.InvalidEdit, "apply edit", "old end %d before start %d", e.OldEndByte, e.StartByte)
	case e.NewEndByte < e.StartByte:
		return fault.New(fault.InvalidEdit, "apply edit", "new end %d before start %d", e.NewEndByte, e.StartByte)
	case e.OldEndByte > length:
		return fault.New(fault.InvalidEdit, "apply edit", "old end %d past text length %d", e.OldEndByte, length)
	}
	return nil
}

// ApplyEdit returns a tree whose ranges are valid for the edited text.
// Subtrees the edit can affect are copied, resized and marked dirty; all
// others are shared with t. A subtree is affected when the edit overlaps
// its range or the input it inspected past its end. t is never modified.
func ApplyEdit(t *Tree, e Edit) (*Tree, error) {
	if err := e.validate(t.length); err != nil {
		return nil, err
	}
	root := editSubtree(t.root, e.StartByte, e.OldEndByte, e.NewEndByte, true)
	return &Tree{
		root:    root,
		lang:    t.lang,
		length:  t.length + e.Delta(),
		version: t.version,
		edited:  true,
	}, nil
}

// editSubtree applies an edit given relative to the padded start of s.
// owner is set for the subtree that receives the inserted text.
func editSubtree(s *Subtree, start, oldEnd, newEnd int, owner bool) *Subtree {
	if !owner {
		newEnd = start
	}
	c := *s
	c.setFlag(flagDirty, true)
	total := s.padding + s.size
	switch {
	case oldEnd <= s.padding:
		// inside the leading trivia
		c.padding = newEnd + (s.padding - oldEnd)
	case start < s.padding:
		c.size = max(0, s.size-(oldEnd-s.padding))
		c.padding = newEnd
	case start < total || (start == total && start == oldEnd && owner):
		c.size = (newEnd - s.padding) + max(0, total-oldEnd)
	}
	if len(s.children) == 0 {
		return &c
	}

	ownerIdx := -1
	left := 0
	for i, child := range s.children {
		right := left + child.padding + child.size
		if right > start {
			ownerIdx = i
			break
		}
		left = right
	}
	if ownerIdx < 0 && start == total && owner {
		ownerIdx = len(s.children) - 1
	}
	if !owner {
		ownerIdx = -1
	}

	c.children = make([]*Subtree, len(s.children))
	copy(c.children, s.children)
	left = 0
	for i, child := range s.children {
		right := left + child.padding + child.size
		affected := i == ownerIdx ||
			(right+child.lookahead > start && left < oldEnd) ||
			(right <= start && right+child.lookahead > start)
		if affected {
			c.children[i] = editSubtree(child,
				clamp(start-left, child.padding+child.size),
				clamp(oldEnd-left, child.padding+child.size),
				newEnd-left,
				i == ownerIdx)
		}
		left = right
	}
	return &c
}

func clamp(v, hi int) int {
	if v < 0 {
		return 0
	}
	if v > hi {
		return hi
	}
	return v
}
