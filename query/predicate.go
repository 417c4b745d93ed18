package query

import "slices"

func (q *Query) satisfies(pat compiled, m Match) bool {
	for _, pred := range pat.predicates {
		if !pred.holds(m) {
			return false
		}
	}
	return true
}

func texts(m Match, index int) []string {
	var out []string
	for _, c := range m.Captures {
		if c.Index == index {
			out = append(out, c.Node.Text())
		}
	}
	return out
}

func (p predicate) holds(m Match) bool {
	subjects := texts(m, p.args[0].capture)
	for _, s := range subjects {
		if !p.test(s, m) {
			return false
		}
	}
	return true
}

func (p predicate) test(s string, m Match) bool {
	switch p.name {
	case "eq?", "not-eq?":
		want := p.args[1].literal
		if p.args[1].capture >= 0 {
			others := texts(m, p.args[1].capture)
			if len(others) == 0 {
				return p.name == "not-eq?"
			}
			want = others[0]
		}
		return (s == want) == (p.name == "eq?")
	case "match?":
		return p.re.MatchString(s)
	case "not-match?":
		return !p.re.MatchString(s)
	case "any-of?":
		return slices.ContainsFunc(p.args[1:], func(a predicateArg) bool { return a.literal == s })
	}
	return false
}
