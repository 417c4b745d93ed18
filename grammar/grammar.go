// Package grammar describes grammars with a small rule DSL and compiles them
// into parse tables.
//
// The compiler builds an SLR(1) automaton. Shift/reduce and reduce/reduce
// conflicts are first resolved with declared precedence and associativity;
// whatever remains is kept as several actions in one table cell, which the
// GLR parser explores in parallel. A repeat becomes a hidden helper with
// one production per item and a pair production joining two runs, which
// always reduces rather than shifts; the parser keeps such runs as balanced
// trees. Aliases over several symbols become hidden helpers carrying the
// alias, so every production is a flat list of symbols.
//
// Rule names starting with an underscore are hidden: their nodes are
// replaced by their children in the tree.
package grammar

import "strings"

type RuleDef struct {
	Name string
	Rule Rule
}

// Grammar is a set of named rules. The first rule is the start rule.
type Grammar struct {
	Name      string
	Rules     []RuleDef
	Extras    []Rule
	Externals []string
}

func New(name string) *Grammar {
	return &Grammar{Name: name}
}

// Define appends a rule and returns the grammar for chaining.
func (g *Grammar) Define(name string, r Rule) *Grammar {
	g.Rules = append(g.Rules, RuleDef{Name: name, Rule: r})
	return g
}

func (g *Grammar) Extra(rules ...Rule) *Grammar {
	g.Extras = append(g.Extras, rules...)
	return g
}

func (g *Grammar) External(names ...string) *Grammar {
	g.Externals = append(g.Externals, names...)
	return g
}

func (g *Grammar) rule(name string) (Rule, bool) {
	for _, def := range g.Rules {
		if def.Name == name {
			return def.Rule, true
		}
	}
	return nil, false
}

func hidden(name string) bool {
	return strings.HasPrefix(name, "_")
}
