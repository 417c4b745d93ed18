// Package query matches S-expression patterns against syntax trees.
//
// A pattern names a node type and, optionally, child patterns that must
// appear among the node's children in order:
//
//	(call_expression
//	  callee: (identifier) @name
//	  arguments: (arguments (number)+ @args))
//
// Parenthesized names match named nodes, quoted strings match anonymous
// tokens, (_) matches any named node and _ any node. Children may carry a
// field prefix, a quantifier (?, *, +) and captures. Alternations are
// written in brackets. (ERROR) and (MISSING) match recovery nodes, and
// !field requires that a field is absent. Predicates #eq?, #not-eq?,
// #match?, #not-match? and #any-of? filter matches on captured text.
package query

import (
	"iter"
	"slices"

	"github.com/dhamidi/ilparse/syntax"
	"github.com/dhamidi/ilparse/table"
)

// Query is a compiled set of patterns for one language. It is immutable
// and safe for concurrent use.
type Query struct {
	lang     *table.Language
	patterns []compiled
	captures []string
}

// Capture is a node bound to a capture name.
type Capture struct {
	Name  string
	Index int
	Node  syntax.Node
}

// Match is one pattern matched at one node.
type Match struct {
	Pattern  int
	Captures []Capture
}

// Nodes returns the nodes captured under name.
func (m Match) Nodes(name string) []syntax.Node {
	var out []syntax.Node
	for _, c := range m.Captures {
		if c.Name == name {
			out = append(out, c.Node)
		}
	}
	return out
}

// Compile compiles source against lang. Errors are *fault.Error values of kind
// InvalidQuery pointing at the offending offset.
func Compile(lang *table.Language, source string) (*Query, error) {
	p := &queryParser{lang: lang, src: source}
	patterns, err := p.parseAll()
	if err != nil {
		return nil, err
	}
	return &Query{lang: lang, patterns: patterns, captures: p.captures}, nil
}

func (q *Query) PatternCount() int { return len(q.patterns) }

func (q *Query) CaptureNames() []string { return slices.Clone(q.captures) }

// Matches yields matches under n in document order. Each pattern matches
// at most once per starting node; at the same node, patterns are tried in
// the order they were written.
func (q *Query) Matches(n syntax.Node) iter.Seq[Match] {
	return func(yield func(Match) bool) {
		for node := range syntax.Walk(n) {
			for i, pat := range q.patterns {
				caps, ok := matchPattern(pat.root, node, nil)
				if !ok {
					continue
				}
				m := Match{Pattern: i, Captures: q.named(caps)}
				if !q.satisfies(pat, m) {
					continue
				}
				if !yield(m) {
					return
				}
			}
		}
	}
}

// Captures yields the captures of every match, in match order.
func (q *Query) Captures(n syntax.Node) iter.Seq[Capture] {
	return func(yield func(Capture) bool) {
		for m := range q.Matches(n) {
			for _, c := range m.Captures {
				if !yield(c) {
					return
				}
			}
		}
	}
}

func (q *Query) named(caps []binding) []Capture {
	out := make([]Capture, len(caps))
	for i, b := range caps {
		out[i] = Capture{Name: q.captures[b.index], Index: b.index, Node: b.node}
	}
	return out
}
