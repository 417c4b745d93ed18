package ilparse_test

import (
	"context"
	"errors"
	"fmt"
	"log"
	"testing"

	"github.com/dhamidi/ilparse"
	"github.com/dhamidi/ilparse/fault"
	"github.com/dhamidi/ilparse/grammar"
	"github.com/dhamidi/ilparse/languages/callexpr"
	"github.com/dhamidi/ilparse/syntax"
	"github.com/dhamidi/ilparse/table"
	"github.com/google/go-cmp/cmp"
)

func loadCallexpr(t *testing.T) *table.Language {
	t.Helper()
	data, err := callexpr.TableBytes()
	if err != nil {
		t.Fatalf("TableBytes: %v", err)
	}
	lang, err := ilparse.LoadGrammar(data, table.WithExternalScanner(callexpr.NewScanner))
	if err != nil {
		t.Fatalf("LoadGrammar: %v", err)
	}
	return lang
}

func TestLoadGrammarRejectsOtherVersions(t *testing.T) {
	tbl, err := grammar.Compile(callexpr.Definition())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	tbl.Version = table.ABIVersion + 1
	data, err := table.Marshal(tbl)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	_, err = ilparse.LoadGrammar(data)
	if !errors.Is(err, fault.IncompatibleVersion) {
		t.Fatalf("LoadGrammar error = %v, want %v", err, fault.IncompatibleVersion)
	}
}

func TestEditAndParse(t *testing.T) {
	ctx := context.Background()
	lang := loadCallexpr(t)

	oldText := []byte("foo(1,2)")
	tree, err := ilparse.Parse(ctx, lang, oldText, nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	edit := syntax.Edit{StartByte: 4, OldEndByte: 5, NewEndByte: 6}
	edited, err := ilparse.ApplyEdit(tree, edit)
	if err != nil {
		t.Fatalf("ApplyEdit: %v", err)
	}
	if tree.IsEdited() || !edited.IsEdited() {
		t.Errorf("IsEdited: original %t, edited %t", tree.IsEdited(), edited.IsEdited())
	}

	newText := []byte("foo(10,2)")
	twoPhase, err := ilparse.Parse(ctx, lang, newText, edited)
	if err != nil {
		t.Fatalf("Parse with previous tree: %v", err)
	}
	oneCall, err := ilparse.Reparse(ctx, tree, oldText, newText, edit)
	if err != nil {
		t.Fatalf("Reparse: %v", err)
	}
	if diff := cmp.Diff(twoPhase.String(), oneCall.String()); diff != "" {
		t.Errorf("tree mismatch (-two phase +reparse):\n%s", diff)
	}
	if got := twoPhase.Root().DescendantForByte(4).Text(); got != "10" {
		t.Errorf("node at 4 = %q, want 10", got)
	}
}

func TestParseRespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ilparse.Parse(ctx, loadCallexpr(t), []byte("a b c"), nil)
	if !errors.Is(err, fault.Timeout) {
		t.Fatalf("Parse error = %v, want %v", err, fault.Timeout)
	}
}

func Example() {
	ctx := context.Background()
	data, err := callexpr.TableBytes()
	if err != nil {
		log.Fatal(err)
	}
	lang, err := ilparse.LoadGrammar(data, table.WithExternalScanner(callexpr.NewScanner))
	if err != nil {
		log.Fatal(err)
	}
	tree, err := ilparse.Parse(ctx, lang, []byte("foo(1,2)"), nil)
	if err != nil {
		log.Fatal(err)
	}
	edited, err := ilparse.ApplyEdit(tree, syntax.Edit{StartByte: 4, OldEndByte: 5, NewEndByte: 6})
	if err != nil {
		log.Fatal(err)
	}
	tree, err = ilparse.Parse(ctx, lang, []byte("foo(10,2)"), edited)
	if err != nil {
		log.Fatal(fmt.Errorf("reparse: %w", err))
	}
	fmt.Println(tree)
	// Output: (source_file (call_expression callee: (identifier) arguments: (arguments (number) (number))))
}
