package grammar

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/dhamidi/ilparse/table"
)

type step struct {
	symbol table.Symbol
	alias  table.Symbol
	field  string
}

type alternative struct {
	steps   []step
	prec    int
	assoc   precKind
	hasPrec bool
	dynamic int
	// repeat marks the pair alternative of a repeat helper.
	repeat bool
}

func (a alternative) key() string {
	var b strings.Builder
	for _, s := range a.steps {
		fmt.Fprintf(&b, "%d/%d/%s ", s.symbol, s.alias, s.field)
	}
	return b.String()
}

type terminal struct {
	symbol    table.Symbol
	pattern   string
	literal   bool
	immediate bool
	prec      int
}

// lexicalBody reports whether a rule body describes a single terminal.
func lexicalBody(r Rule) bool {
	switch r := r.(type) {
	case tokenRule, patternRule, stringRule:
		return true
	case precRule:
		return lexicalBody(r.content)
	}
	return false
}

// tokenPattern translates a lexical rule to a Go regular expression.
func tokenPattern(r Rule) (pattern string, literal, immediate bool, prec int, err error) {
	switch r := r.(type) {
	case stringRule:
		return regexp.QuoteMeta(r.value), true, false, 0, nil
	case tokenRule:
		pattern, literal, _, prec, err = tokenPattern(r.content)
		return pattern, literal, r.immediate, prec, err
	case precRule:
		pattern, literal, immediate, _, err = tokenPattern(r.content)
		return pattern, literal, immediate, r.value, err
	}
	pattern, err = regexFor(r)
	return pattern, false, false, 0, err
}

func regexFor(r Rule) (string, error) {
	switch r := r.(type) {
	case blankRule:
		return "", nil
	case stringRule:
		return regexp.QuoteMeta(r.value), nil
	case patternRule:
		if r.flags != "" {
			return "(?" + r.flags + ":" + r.source + ")", nil
		}
		return "(?:" + r.source + ")", nil
	case seqRule:
		var b strings.Builder
		for _, m := range r.members {
			s, err := regexFor(m)
			if err != nil {
				return "", err
			}
			b.WriteString(s)
		}
		return b.String(), nil
	case choiceRule:
		parts := make([]string, 0, len(r.members))
		for _, m := range r.members {
			s, err := regexFor(m)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		return "(?:" + strings.Join(parts, "|") + ")", nil
	case repeatRule:
		s, err := regexFor(r.content)
		if err != nil {
			return "", err
		}
		if r.atLeastOne {
			return "(?:" + s + ")+", nil
		}
		return "(?:" + s + ")*", nil
	case tokenRule:
		return regexFor(r.content)
	case precRule:
		return regexFor(r.content)
	case symbolRule:
		return "", fmt.Errorf("symbol %q inside a token", r.name)
	}
	return "", fmt.Errorf("rule %T inside a token", r)
}

// expand flattens a rule into the alternatives it can produce. Repeats and
// multi-element aliases introduce auxiliary nonterminals on the way.
func (c *compiler) expand(r Rule, owner string) ([]alternative, error) {
	switch r := r.(type) {
	case blankRule:
		return []alternative{{}}, nil
	case stringRule, patternRule, tokenRule:
		s, err := c.inlineTerminal(r)
		if err != nil {
			return nil, err
		}
		return []alternative{{steps: []step{{symbol: s}}}}, nil
	case symbolRule:
		s, ok := c.byName[r.name]
		if !ok {
			return nil, fmt.Errorf("rule %s: undefined symbol %q", owner, r.name)
		}
		return []alternative{{steps: []step{{symbol: s}}}}, nil
	case seqRule:
		result := []alternative{{}}
		for _, m := range r.members {
			alts, err := c.expand(m, owner)
			if err != nil {
				return nil, err
			}
			next := make([]alternative, 0, len(result)*len(alts))
			for _, left := range result {
				for _, right := range alts {
					next = append(next, joinAlternatives(left, right))
				}
			}
			result = next
		}
		return result, nil
	case choiceRule:
		var result []alternative
		for _, m := range r.members {
			alts, err := c.expand(m, owner)
			if err != nil {
				return nil, err
			}
			result = append(result, alts...)
		}
		return dedupe(result), nil
	case repeatRule:
		alts, err := c.expand(r.content, owner)
		if err != nil {
			return nil, err
		}
		aux := c.auxiliary(owner + "_repeat" + strconv.Itoa(c.nextAux(owner)))
		for _, a := range alts {
			if len(a.steps) == 0 {
				continue
			}
			c.addAlternatives(aux, a)
		}
		c.addAlternatives(aux, alternative{steps: []step{{symbol: aux}, {symbol: aux}}, repeat: true})
		result := []alternative{{steps: []step{{symbol: aux}}}}
		if !r.atLeastOne {
			result = append(result, alternative{})
		}
		return result, nil
	case fieldRule:
		alts, err := c.expand(r.content, owner)
		if err != nil {
			return nil, err
		}
		c.field(r.name)
		for i := range alts {
			alts[i].steps = cloneSteps(alts[i].steps)
			for j := range alts[i].steps {
				if alts[i].steps[j].field == "" {
					alts[i].steps[j].field = r.name
				}
			}
		}
		return alts, nil
	case aliasRule:
		alts, err := c.expand(r.content, owner)
		if err != nil {
			return nil, err
		}
		target := c.aliasSymbol(r.name, r.named)
		var grouped []alternative
		var result []alternative
		for _, a := range alts {
			switch len(a.steps) {
			case 0:
				result = append(result, a)
			case 1:
				a.steps = cloneSteps(a.steps)
				a.steps[0].alias = target
				result = append(result, a)
			default:
				grouped = append(grouped, a)
			}
		}
		if len(grouped) > 0 {
			aux := c.auxiliary(owner + "_alias" + strconv.Itoa(c.nextAux(owner)))
			c.addAlternatives(aux, grouped...)
			result = append(result, alternative{steps: []step{{symbol: aux, alias: target}}})
		}
		return result, nil
	case precRule:
		alts, err := c.expand(r.content, owner)
		if err != nil {
			return nil, err
		}
		for i := range alts {
			switch {
			case r.kind == precDynamic:
				alts[i].dynamic += r.value
			case !alts[i].hasPrec:
				alts[i].prec = r.value
				alts[i].assoc = r.kind
				alts[i].hasPrec = true
			}
		}
		return alts, nil
	}
	return nil, fmt.Errorf("rule %s: unsupported rule %T", owner, r)
}

func joinAlternatives(left, right alternative) alternative {
	out := alternative{
		steps:   append(cloneSteps(left.steps), right.steps...),
		prec:    left.prec,
		assoc:   left.assoc,
		hasPrec: left.hasPrec,
		dynamic: left.dynamic + right.dynamic,
	}
	if !out.hasPrec && right.hasPrec {
		out.prec, out.assoc, out.hasPrec = right.prec, right.assoc, true
	}
	return out
}

func cloneSteps(steps []step) []step {
	return append([]step(nil), steps...)
}

func dedupe(alts []alternative) []alternative {
	seen := make(map[string]bool, len(alts))
	out := alts[:0]
	for _, a := range alts {
		k := a.key()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, a)
	}
	return out
}
