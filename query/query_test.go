package query_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dhamidi/ilparse/fault"
	"github.com/dhamidi/ilparse/languages/callexpr"
	"github.com/dhamidi/ilparse/parser"
	"github.com/dhamidi/ilparse/query"
	"github.com/dhamidi/ilparse/syntax"
	"github.com/google/go-cmp/cmp"
)

func parse(t *testing.T, src string) *syntax.Tree {
	t.Helper()
	lang, err := callexpr.Language()
	if err != nil {
		t.Fatalf("Language: %v", err)
	}
	tree, err := parser.New(lang).Parse(context.Background(), []byte(src), nil)
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	return tree
}

// captured renders every capture as "@name=text" in match order.
func captured(q *query.Query, tree *syntax.Tree) []string {
	var out []string
	for c := range q.Captures(tree.Root()) {
		out = append(out, "@"+c.Name+"="+c.Node.Text())
	}
	return out
}

func TestMatches(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		query string
		want  []string
	}{
		{
			name:  "fields and repetition",
			src:   "foo(1, 2)\nbar(x)",
			query: `(call_expression callee: (identifier) @fn arguments: (arguments (number)+ @arg))`,
			want:  []string{"@fn=foo", "@arg=1", "@arg=2"},
		},
		{
			name:  "zero or more",
			src:   "f()",
			query: `(call_expression callee: (identifier) @fn arguments: (arguments (number)* @arg))`,
			want:  []string{"@fn=f"},
		},
		{
			name:  "one or more needs one",
			src:   "f()",
			query: `(arguments (number)+ @arg) @args`,
			want:  nil,
		},
		{
			name:  "optional",
			src:   "f(x) g()",
			query: `(call_expression callee: (identifier) @fn (arguments (identifier)? @arg))`,
			want:  []string{"@fn=f", "@arg=x", "@fn=g"},
		},
		{
			name:  "anonymous token",
			src:   "1 + 2 * 3",
			query: `(binary_expression operator: "*" @op right: (number) @right)`,
			want:  []string{"@op=*", "@right=3"},
		},
		{
			name:  "alternation",
			src:   "f(1)",
			query: `[(identifier) (number)] @leaf`,
			want:  []string{"@leaf=f", "@leaf=1"},
		},
		{
			name:  "any named node",
			src:   "[a]",
			query: `(parenthesized_expression (_) @inner)`,
			want:  []string{"@inner=a"},
		},
		{
			name:  "negated field",
			src:   "f(1)",
			query: `(call_expression !callee) @call`,
			want:  nil,
		},
		{
			name:  "eq",
			src:   "foo bar baz",
			query: `((identifier) @id (#eq? @id "bar"))`,
			want:  []string{"@id=bar"},
		},
		{
			name:  "not eq",
			src:   "foo bar baz",
			query: `((identifier) @id (#not-eq? @id "bar"))`,
			want:  []string{"@id=foo", "@id=baz"},
		},
		{
			name:  "match",
			src:   "foo bar baz",
			query: `((identifier) @id (#match? @id "^b"))`,
			want:  []string{"@id=bar", "@id=baz"},
		},
		{
			name:  "any of",
			src:   "foo bar baz",
			query: `((identifier) @id (#any-of? @id foo baz))`,
			want:  []string{"@id=foo", "@id=baz"},
		},
		{
			name:  "capture equality",
			src:   "a + a\na + b",
			query: `((binary_expression left: (identifier) @l right: (identifier) @r) (#eq? @l @r))`,
			want:  []string{"@l=a", "@r=a"},
		},
		{
			name:  "missing token",
			src:   "foo(1,",
			query: `(MISSING ")") @missing`,
			want:  []string{"@missing="},
		},
		{
			name:  "error node",
			src:   "foo ) bar",
			query: `(ERROR) @error`,
			want:  []string{"@error=)"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := parse(t, tt.src)
			q, err := query.Compile(tree.Language(), tt.query)
			if err != nil {
				t.Fatalf("Compile: %v", err)
			}
			if diff := cmp.Diff(tt.want, captured(q, tree)); diff != "" {
				t.Errorf("captures mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMatchOrder(t *testing.T) {
	tree := parse(t, "f(g(1))")
	q, err := query.Compile(tree.Language(), `
		; callees first, then every number
		(call_expression callee: (identifier) @callee)
		(number) @number
	`)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if got := q.PatternCount(); got != 2 {
		t.Errorf("PatternCount() = %d, want 2", got)
	}
	if diff := cmp.Diff([]string{"callee", "number"}, q.CaptureNames()); diff != "" {
		t.Errorf("capture names mismatch (-want +got):\n%s", diff)
	}
	var got []int
	for m := range q.Matches(tree.Root()) {
		got = append(got, m.Pattern)
	}
	if diff := cmp.Diff([]int{0, 0, 1}, got); diff != "" {
		t.Errorf("pattern order mismatch (-want +got):\n%s", diff)
	}
}

func TestMatchesStopEarly(t *testing.T) {
	tree := parse(t, "a b c d")
	q, err := query.Compile(tree.Language(), `(identifier) @id`)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	n := 0
	for range q.Matches(tree.Root()) {
		n++
		if n == 2 {
			break
		}
	}
	if n != 2 {
		t.Errorf("iterated %d matches, want 2", n)
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"empty", "  ; nothing\n", "empty query"},
		{"unknown node", "(identifer)", `offset 1: unknown node type "identifer"; did you mean "identifier"?`},
		{"unknown token", `"-"`, `unknown token "-"`},
		{"unknown field", "(call_expression calee: (identifier))", `unknown field "calee"; did you mean "callee"?`},
		{"unterminated", "(call_expression (identifier)", "unterminated pattern"},
		{"unterminated string", `"(`, "unterminated string"},
		{"capture without name", "(identifier) @", "capture without a name"},
		{"undefined capture", `((identifier) @a (#eq? @b "x"))`, "undefined capture @b"},
		{"unknown predicate", `((identifier) @a (#same? @a "x"))`, "unknown predicate #same?"},
		{"bad regexp", `((identifier) @a (#match? @a "("))`, "#match?"},
		{"empty alternation", "[]", "empty alternation"},
	}
	lang, err := callexpr.Language()
	if err != nil {
		t.Fatalf("Language: %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := query.Compile(lang, tt.query)
			if err == nil {
				t.Fatalf("Compile(%q) succeeded", tt.query)
			}
			if !errors.Is(err, fault.InvalidQuery) {
				t.Errorf("error kind = %v, want %v", fault.KindOf(err), fault.InvalidQuery)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}
