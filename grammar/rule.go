package grammar

// Rule is a node of the grammar DSL.
type Rule interface {
	rule()
}

type blankRule struct{}

type seqRule struct {
	members []Rule
}

type choiceRule struct {
	members []Rule
}

type repeatRule struct {
	content    Rule
	atLeastOne bool
}

type symbolRule struct {
	name string
}

type stringRule struct {
	value string
}

type patternRule struct {
	source string
	flags  string
}

type tokenRule struct {
	content   Rule
	immediate bool
}

type fieldRule struct {
	name    string
	content Rule
}

type aliasRule struct {
	content Rule
	name    string
	named   bool
}

type precKind int

const (
	precNone precKind = iota
	precLeft
	precRight
	precDynamic
)

type precRule struct {
	kind    precKind
	value   int
	content Rule
}

func (blankRule) rule()   {}
func (seqRule) rule()     {}
func (choiceRule) rule()  {}
func (repeatRule) rule()  {}
func (symbolRule) rule()  {}
func (stringRule) rule()  {}
func (patternRule) rule() {}
func (tokenRule) rule()   {}
func (fieldRule) rule()   {}
func (aliasRule) rule()   {}
func (precRule) rule()    {}

func Blank() Rule { return blankRule{} }

func Seq(members ...Rule) Rule {
	if len(members) == 1 {
		return members[0]
	}
	return seqRule{members: members}
}

func Choice(members ...Rule) Rule {
	if len(members) == 1 {
		return members[0]
	}
	return choiceRule{members: members}
}

func Optional(r Rule) Rule { return choiceRule{members: []Rule{r, blankRule{}}} }

func Repeat(r Rule) Rule { return repeatRule{content: r} }

func Repeat1(r Rule) Rule { return repeatRule{content: r, atLeastOne: true} }

// Sep1 matches one or more r separated by sep.
func Sep1(sep, r Rule) Rule { return Seq(r, Repeat(Seq(sep, r))) }

func Sym(name string) Rule { return symbolRule{name: name} }

func Str(value string) Rule { return stringRule{value: value} }

// Pattern is a regular expression in Go syntax.
func Pattern(source string) Rule { return patternRule{source: source} }

// PatternFlags is a regular expression with flags such as "i".
func PatternFlags(source, flags string) Rule { return patternRule{source: source, flags: flags} }

// Token turns a composite rule into a single terminal.
func Token(r Rule) Rule { return tokenRule{content: r} }

// ImmediateToken is a terminal that may not be preceded by trivia.
func ImmediateToken(r Rule) Rule { return tokenRule{content: r, immediate: true} }

func Field(name string, r Rule) Rule { return fieldRule{name: name, content: r} }

// Alias renames the nodes r produces to a named node type.
func Alias(r Rule, name string) Rule { return aliasRule{content: r, name: name, named: true} }

// AliasAnon renames the nodes r produces to an anonymous node type.
func AliasAnon(r Rule, name string) Rule { return aliasRule{content: r, name: name} }

func Prec(value int, r Rule) Rule { return precRule{kind: precNone, value: value, content: r} }

func PrecLeft(value int, r Rule) Rule { return precRule{kind: precLeft, value: value, content: r} }

func PrecRight(value int, r Rule) Rule { return precRule{kind: precRight, value: value, content: r} }

func PrecDynamic(value int, r Rule) Rule { return precRule{kind: precDynamic, value: value, content: r} }
