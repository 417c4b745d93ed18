package callexpr_test

import (
	"context"
	"testing"

	"github.com/dhamidi/ilparse/languages/callexpr"
	"github.com/dhamidi/ilparse/parser"
	"github.com/dhamidi/ilparse/syntax"
	"github.com/google/go-cmp/cmp"
)

func TestScannerState(t *testing.T) {
	s := callexpr.NewScanner()
	if got := s.Serialize(); got != nil {
		t.Fatalf("fresh scanner state = %q, want nil", got)
	}

	s.Deserialize([]byte("\x01END"))
	if diff := cmp.Diff([]byte("\x01END"), s.Serialize()); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}

	s.Deserialize(nil)
	if got := s.Serialize(); got != nil {
		t.Errorf("state after reset = %q, want nil", got)
	}
}

func TestTableBytesAreStable(t *testing.T) {
	a, err := callexpr.TableBytes()
	if err != nil {
		t.Fatalf("TableBytes: %v", err)
	}
	b, err := callexpr.TableBytes()
	if err != nil {
		t.Fatalf("TableBytes: %v", err)
	}
	if &a[0] != &b[0] {
		t.Error("TableBytes compiled the grammar twice")
	}
}

func TestHeredoc(t *testing.T) {
	lang, err := callexpr.Language()
	if err != nil {
		t.Fatalf("Language: %v", err)
	}
	p := parser.New(lang)
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "terminated",
			src:  "<<EOT\nline one\nline two\nEOT\n",
			want: "(source_file (heredoc (heredoc_start) (heredoc_body) (heredoc_end)))",
		},
		{
			name: "empty body",
			src:  "<<EOT\nEOT",
			want: "(source_file (heredoc (heredoc_start) (heredoc_body) (heredoc_end)))",
		},
		{
			name: "delimiter must fill the line",
			src:  "<<EOT\nEOTX\nEOT",
			want: "(source_file (heredoc (heredoc_start) (heredoc_body) (heredoc_end)))",
		},
		{
			name: "as an argument",
			src:  "print(<<A\nx\nA\n, 1)",
			want: "(source_file (call_expression callee: (identifier) arguments: (arguments (heredoc (heredoc_start) (heredoc_body) (heredoc_end)) (number))))",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, err := p.Parse(context.Background(), []byte(tt.src), nil)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if diff := cmp.Diff(tt.want, tree.String()); diff != "" {
				t.Errorf("tree mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReparseInsideHeredoc(t *testing.T) {
	lang, err := callexpr.Language()
	if err != nil {
		t.Fatalf("Language: %v", err)
	}
	p := parser.New(lang)
	oldText := "a(1)\nx + <<END\nbody\nEND\n"
	newText := "a(1)\nx + <<END\nnew body\nEND\n"
	old, err := p.Parse(context.Background(), []byte(oldText), nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	edit := syntax.Edit{StartByte: 15, OldEndByte: 15, NewEndByte: 19}
	got, err := p.Reparse(context.Background(), old, []byte(oldText), []byte(newText), edit)
	if err != nil {
		t.Fatalf("Reparse: %v", err)
	}
	want, err := p.Parse(context.Background(), []byte(newText), nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !syntax.Equal(got, want) {
		t.Fatalf("reparse differs from a fresh parse:\n got %s\nwant %s", got, want)
	}

	body := got.Root().NamedChild(1).ChildByFieldName("right").NamedChild(1)
	if body.Type() != "heredoc_body" || body.Text() != "\nnew body\n" {
		t.Errorf("body = %s %q, want heredoc_body %q", body.Type(), body.Text(), "\nnew body\n")
	}
	if old.Root().NamedChild(0).Subtree() != got.Root().NamedChild(0).Subtree() {
		t.Error("call before the edit was not reused")
	}
}
