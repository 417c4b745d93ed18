package grammar_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dhamidi/ilparse/fault"
	"github.com/dhamidi/ilparse/grammar"
	"github.com/dhamidi/ilparse/parser"
	"github.com/dhamidi/ilparse/table"
	"github.com/google/go-cmp/cmp"
)

const listEBNF = `
List   = "(" [ Item { "," Item } ] ")" .
Item   = number | List .
number = digit { digit } .
digit  = "0" … "9" .
`

func TestFromEBNF(t *testing.T) {
	g, err := grammar.FromEBNF("list", "list.ebnf", strings.NewReader(listEBNF), "List")
	if err != nil {
		t.Fatalf("FromEBNF: %v", err)
	}
	var names []string
	for _, r := range g.Rules {
		names = append(names, r.Name)
	}
	if diff := cmp.Diff([]string{"List", "Item", "number"}, names); diff != "" {
		t.Errorf("rules mismatch (-want +got):\n%s", diff)
	}

	tbl, err := grammar.Compile(g)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	lang, err := table.NewLanguage(tbl)
	if err != nil {
		t.Fatalf("NewLanguage: %v", err)
	}
	tree, err := parser.New(lang).Parse(context.Background(), []byte("(1, (2), 34)"), nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := "(List (Item (number)) (Item (List (Item (number)))) (Item (number)))"
	if diff := cmp.Diff(want, tree.String()); diff != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", diff)
	}
}

func TestFromEBNFErrors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		start string
	}{
		{"syntax error", `List = "(" `, "List"},
		{"undefined production", `List = Missing .`, "List"},
		{"unused production", "List = \"x\" .\nOther = \"y\" .", "List"},
		{"lexical start", `word = "w" .`, "word"},
		{"empty token", "List = word .\nword = .", "List"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := grammar.FromEBNF("bad", "bad.ebnf", strings.NewReader(tt.src), tt.start)
			if !errors.Is(err, fault.InvalidGrammar) {
				t.Errorf("error = %v, want %v", err, fault.InvalidGrammar)
			}
		})
	}
}
