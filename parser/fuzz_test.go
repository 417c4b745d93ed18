package parser_test

import (
	"context"
	"strings"
	"testing"

	"github.com/dhamidi/ilparse/parser"
	"github.com/dhamidi/ilparse/syntax"
)

// FuzzParse checks that any input parses without an error, that the leaves
// tile the input and that parsing is deterministic.
func FuzzParse(f *testing.F) {
	f.Add("")
	f.Add("foo(1, 2)")
	f.Add("foo(1,")
	f.Add("1 + * 2")
	f.Add(")]([")
	f.Add("a # comment\nb")
	f.Add("x + <<END\nbody\nEND\n")
	f.Add("<<EOF\nno end")
	f.Add("\xff\xfe\xfd")
	f.Add("f(g(h(1, [2 + 3]), 4)")

	p := callexprParser(f)
	f.Fuzz(func(t *testing.T, src string) {
		first, err := p.Parse(context.Background(), []byte(src), nil)
		if err != nil {
			t.Fatalf("Parse(%q): %v", src, err)
		}
		checkCoverage(t, first, src)

		second, err := p.Parse(context.Background(), []byte(src), nil)
		if err != nil {
			t.Fatalf("second Parse(%q): %v", src, err)
		}
		if !syntax.Equal(first, second) {
			t.Fatalf("non-deterministic parse of %q:\n%s\n%s", src, first, second)
		}
	})
}

// FuzzReparse checks that reparsing an edited document gives the tree a
// fresh parse of the new text gives, including when either text is broken.
func FuzzReparse(f *testing.F) {
	f.Add("foo(1,2)", 4, 1, "10")
	f.Add("a + b", 4, 1, "c * d")
	f.Add("f(x)\ng(y)", 5, 4, "")
	f.Add("x + <<END\nbody\nEND\n", 10, 4, "text")
	f.Add("1 + 2", 0, 0, "foo(")
	f.Add("foo(1 bar(2)", 5, 0, ")")
	f.Add(") a ( b", 2, 1, "")

	p := callexprParser(f)
	f.Fuzz(func(t *testing.T, src string, start, removed int, inserted string) {
		checkReparse(t, p, src, start, removed, inserted)
	})
}

// FuzzReparseCIL runs the same check against the ILAsm grammar.
func FuzzReparseCIL(f *testing.F) {
	f.Add(cilHello, strings.Index(cilHello, "public static"), len("public"), "pu{")
	f.Add(cilHello, strings.Index(cilHello, "()"), 2, "(")
	f.Add(cilHello, strings.Index(cilHello, "ret"), 0, "nop\n    ")
	f.Add(cilHello, 0, len(".assembly"), "")
	f.Add(nopProgram(8), strings.Index(nopProgram(8), "nop"), 1, "p")

	p := cilParser(f)
	f.Fuzz(func(t *testing.T, src string, start, removed int, inserted string) {
		checkReparse(t, p, src, start, removed, inserted)
	})
}

func checkReparse(t *testing.T, p *parser.Parser, src string, start, removed int, inserted string) {
	t.Helper()
	if start < 0 || removed < 0 || start > len(src) || removed > len(src)-start {
		return
	}
	newText := src[:start] + inserted + src[start+removed:]
	fresh, err := p.Parse(context.Background(), []byte(newText), nil)
	if err != nil {
		t.Fatalf("Parse(%q): %v", newText, err)
	}
	old, err := p.Parse(context.Background(), []byte(src), nil)
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	edit := syntax.Edit{
		StartByte:  start,
		OldEndByte: start + removed,
		NewEndByte: start + len(inserted),
	}
	got, err := p.Reparse(context.Background(), old, []byte(src), []byte(newText), edit)
	if err != nil {
		t.Fatalf("Reparse: %v", err)
	}
	if !syntax.Equal(got, fresh) {
		t.Fatalf("reparse of %q -> %q differs:\n got %s\nwant %s", src, newText, got, fresh)
	}
}
