package cil_test

import (
	"context"
	"testing"

	"github.com/dhamidi/ilparse/languages/cil"
	"github.com/dhamidi/ilparse/parser"
	"github.com/dhamidi/ilparse/query"
	"github.com/dhamidi/ilparse/syntax"
	"github.com/google/go-cmp/cmp"
)

const hello = `.assembly Hello {}
.class public Program {
  .method public static void Main() cil managed {
    .entrypoint
    ret
  }
}`

func parse(t *testing.T, src string) *syntax.Tree {
	t.Helper()
	lang, err := cil.Language()
	if err != nil {
		t.Fatalf("Language: %v", err)
	}
	tree, err := parser.New(lang).Parse(context.Background(), []byte(src), nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return tree
}

func TestParseProgram(t *testing.T) {
	tree := parse(t, hello)
	if tree.Root().HasError() {
		t.Fatalf("unexpected error in %s", tree)
	}
	if got := tree.Root().Type(); got != "file" {
		t.Errorf("root type = %q, want file", got)
	}
}

func TestParseEmpty(t *testing.T) {
	tree := parse(t, "")
	if tree.Root().HasError() || tree.Root().Type() != "file" {
		t.Errorf("empty input parsed as %s", tree)
	}
}

func TestParseReportsBrokenMethod(t *testing.T) {
	tree := parse(t, ".class public Program {\n  .method public static void Main( {\n  }\n}")
	if !tree.Root().HasError() {
		t.Fatalf("expected an error in %s", tree)
	}
}

func TestSymbolsQuery(t *testing.T) {
	tree := parse(t, hello)
	q, err := query.Compile(tree.Language(), cil.SymbolsQuery)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	var names, kinds []string
	for m := range q.Matches(tree.Root()) {
		for _, n := range m.Nodes("name") {
			names = append(names, n.Text())
		}
		for _, c := range m.Captures {
			if c.Name != "name" {
				kinds = append(kinds, c.Name)
			}
		}
	}
	if diff := cmp.Diff([]string{"Hello", "Program", "Main"}, names); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
	want := []string{"definition.assembly", "definition.class", "definition.method"}
	if diff := cmp.Diff(want, kinds); diff != "" {
		t.Errorf("kinds mismatch (-want +got):\n%s", diff)
	}
}

func TestLabelsKeepTheirField(t *testing.T) {
	tree := parse(t, ".class public Program {\n  .method public static void Main() cil managed {\n    L1: L2: nop\n  }\n}")
	if tree.Root().HasError() {
		t.Fatalf("unexpected error in %s", tree)
	}
	var instr syntax.Node
	for n := range tree.Walk() {
		if n.Type() == "instruction" {
			instr = n
			break
		}
	}
	if instr.IsNull() {
		t.Fatalf("no instruction in %s", tree)
	}

	type child struct {
		Type  string
		Field string
	}
	var got []child
	c := syntax.NewCursor(instr)
	for ok := c.GotoFirstChild(); ok; ok = c.GotoNextSibling() {
		got = append(got, child{c.Node().Type(), c.FieldName()})
	}
	want := []child{
		{"id_label", "label"},
		{":", ""},
		{"id_label", "label"},
		{":", ""},
		{"nop", "instruction"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("instruction children mismatch (-want +got):\n%s", diff)
	}

	var labels []string
	for n := range instr.ChildrenByFieldName("label") {
		labels = append(labels, n.Text())
	}
	if diff := cmp.Diff([]string{"L1", "L2"}, labels); diff != "" {
		t.Errorf("labels mismatch (-want +got):\n%s", diff)
	}
}
