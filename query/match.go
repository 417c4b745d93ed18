package query

import (
	"slices"

	"github.com/dhamidi/ilparse/syntax"
)

type binding struct {
	index int
	node  syntax.Node
}

type child struct {
	node  syntax.Node
	field string
}

func matchPattern(p *pattern, n syntax.Node, caps []binding) ([]binding, bool) {
	if p.kind == alternationPattern {
		for _, alt := range p.alternatives {
			if out, ok := matchPattern(alt, n, caps); ok {
				return capture(p, n, out), true
			}
		}
		return nil, false
	}
	if !matchType(p, n) {
		return nil, false
	}
	for _, f := range p.negated {
		if !n.ChildByFieldName(f).IsNull() {
			return nil, false
		}
	}
	caps = capture(p, n, caps)
	if len(p.children) == 0 {
		return caps, true
	}
	var children []child
	for c, field := range n.ChildrenWithFields() {
		children = append(children, child{node: c, field: field})
	}
	return matchChildren(p.children, children, caps)
}

func capture(p *pattern, n syntax.Node, caps []binding) []binding {
	if len(p.captures) == 0 {
		return caps
	}
	out := slices.Clip(caps)
	for _, idx := range p.captures {
		out = append(out, binding{index: idx, node: n})
	}
	return out
}

func matchType(p *pattern, n syntax.Node) bool {
	switch {
	case p.kind == wildcardPattern:
		return true
	case p.anyNamed:
		return n.IsNamed()
	case p.errorNode:
		return n.IsError()
	case p.missingNode:
		return n.IsMissing() && (p.typ == "" || n.Type() == p.typ)
	}
	return !n.IsError() && n.IsNamed() == p.named && n.Type() == p.typ
}

// matchChildren matches child patterns against an ordered subsequence of
// the children. Quantified patterns are greedy and backtrack.
func matchChildren(ps []*pattern, children []child, caps []binding) ([]binding, bool) {
	if len(ps) == 0 {
		return caps, true
	}
	p := ps[0]
	switch p.quant {
	case zeroOrOne:
		if out, ok := matchOne(ps, children, caps); ok {
			return out, true
		}
		return matchChildren(ps[1:], children, caps)
	case zeroOrMore, oneOrMore:
		return matchRepeat(ps, children, caps, 0)
	}
	return matchOne(ps, children, caps)
}

func matchOne(ps []*pattern, children []child, caps []binding) ([]binding, bool) {
	for i, c := range children {
		got, ok := matchChild(ps[0], c, caps)
		if !ok {
			continue
		}
		if out, ok := matchChildren(ps[1:], children[i+1:], got); ok {
			return out, true
		}
	}
	return nil, false
}

func matchRepeat(ps []*pattern, children []child, caps []binding, count int) ([]binding, bool) {
	for i, c := range children {
		got, ok := matchChild(ps[0], c, caps)
		if !ok {
			continue
		}
		if out, ok := matchRepeat(ps, children[i+1:], got, count+1); ok {
			return out, true
		}
		break
	}
	if count == 0 && ps[0].quant == oneOrMore {
		return nil, false
	}
	return matchChildren(ps[1:], children, caps)
}

func matchChild(p *pattern, c child, caps []binding) ([]binding, bool) {
	if p.field != "" && c.field != p.field {
		return nil, false
	}
	return matchPattern(p, c.node, caps)
}
