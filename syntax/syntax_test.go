package syntax_test

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/dhamidi/ilparse/fault"
	"github.com/dhamidi/ilparse/languages/callexpr"
	"github.com/dhamidi/ilparse/parser"
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

func TestApplyEditSharesUntouchedSubtrees(t *testing.T) {
	old := parse(t, "foo(1, 2)")
	before := old.String()

	edited, err := syntax.ApplyEdit(old, syntax.Edit{StartByte: 4, OldEndByte: 5, NewEndByte: 6})
	if err != nil {
		t.Fatalf("ApplyEdit: %v", err)
	}
	if !edited.IsEdited() || edited.Length() != 10 {
		t.Errorf("edited tree: IsEdited=%t Length=%d", edited.IsEdited(), edited.Length())
	}
	if old.String() != before || old.IsEdited() {
		t.Error("ApplyEdit modified the old tree")
	}

	oldCall := old.Root().Child(0)
	newCall := edited.Root().Child(0)
	if oldCall.Subtree() == newCall.Subtree() {
		t.Error("call_expression spans the edit and must be copied")
	}
	if !newCall.Subtree().IsDirty() {
		t.Error("copied subtree should be dirty")
	}
	if got, want := newCall.ChildByFieldName("callee").Subtree(), oldCall.ChildByFieldName("callee").Subtree(); got != want {
		t.Error("callee before the edit should be shared")
	}
	oldArgs := oldCall.ChildByFieldName("arguments")
	newArgs := newCall.ChildByFieldName("arguments")
	if got, want := newArgs.Child(4).Subtree(), oldArgs.Child(4).Subtree(); got != want {
		t.Error(`closing ")" after the edit should be shared`)
	}
	if got := newArgs.Child(4).StartByte(); got != 9 {
		t.Errorf(`")" starts at %d after the edit, want 9`, got)
	}
	if got := newArgs.Child(1).EndByte(); got != 6 {
		t.Errorf("edited number ends at %d, want 6", got)
	}
}

func TestApplyEditRejectsInvalidEdits(t *testing.T) {
	tree := parse(t, "foo(1)")
	tests := []struct {
		name string
		edit syntax.Edit
	}{
		{"negative start", syntax.Edit{StartByte: -1, OldEndByte: 0, NewEndByte: 0}},
		{"old end before start", syntax.Edit{StartByte: 3, OldEndByte: 2, NewEndByte: 3}},
		{"new end before start", syntax.Edit{StartByte: 3, OldEndByte: 3, NewEndByte: 2}},
		{"past the end", syntax.Edit{StartByte: 3, OldEndByte: 7, NewEndByte: 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := syntax.ApplyEdit(tree, tt.edit); !errors.Is(err, fault.InvalidEdit) {
				t.Errorf("ApplyEdit() error = %v, want invalid edit", err)
			}
		})
	}
}

func TestDescendantForByte(t *testing.T) {
	tree := parse(t, "foo(1,")

	tests := []struct {
		name    string
		offset  int
		named   bool
		want    string
		missing bool
	}{
		{"identifier", 1, false, "identifier", false},
		{"paren", 3, false, "(", false},
		{"missing token at the end", 6, false, ")", true},
		{"named skips zero width", 6, true, "source_file", false},
		{"named number", 4, true, "number", false},
		{"outside", 100, false, "source_file", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := tree.DescendantForByte(tt.offset)
			if tt.named {
				n = tree.NamedDescendantForByte(tt.offset)
			}
			if n.Type() != tt.want || n.IsMissing() != tt.missing {
				t.Errorf("lookup(%d) = %s (missing=%t), want %s (missing=%t)", tt.offset, n.Type(), n.IsMissing(), tt.want, tt.missing)
			}
		})
	}
}

func TestNodeNavigation(t *testing.T) {
	tree := parse(t, "foo(1, 2) bar")
	root := tree.Root()
	if root.Type() != "source_file" || root.NamedChildCount() != 2 {
		t.Fatalf("root = %s", root)
	}
	call := root.NamedChild(0)
	if call.Parent().Type() != "source_file" {
		t.Errorf("parent = %s", call.Parent().Type())
	}
	bar := call.NextNamedSibling()
	if bar.Type() != "identifier" || bar.Text() != "bar" {
		t.Errorf("next named sibling = %s %q", bar.Type(), bar.Text())
	}
	if !bar.NextSibling().IsNull() {
		t.Error("bar has no next sibling")
	}
	args := call.ChildByFieldName("arguments")
	if got := args.Child(3).Text(); got != "2" {
		t.Errorf("second argument text = %q", got)
	}
	if got := args.Child(3).PaddedStartByte(); got != 6 {
		t.Errorf("second argument padded start = %d, want 6", got)
	}
	if got := call.FieldNameForChild(0); got != "callee" {
		t.Errorf("FieldNameForChild(0) = %q", got)
	}
}

func TestCursor(t *testing.T) {
	tree := parse(t, "foo(1, 2)")
	c := tree.Cursor()

	if c.GotoParent() || c.GotoNextSibling() {
		t.Fatal("root cursor cannot move up or sideways")
	}
	if !c.GotoFirstChild() || c.Node().Type() != "call_expression" {
		t.Fatalf("first child = %s", c.Node().Type())
	}
	if !c.GotoFirstChild() || c.FieldName() != "callee" {
		t.Fatalf("callee field = %q", c.FieldName())
	}
	if !c.GotoNextSibling() || c.FieldName() != "arguments" {
		t.Fatalf("arguments field = %q", c.FieldName())
	}
	if c.GotoNextSibling() {
		t.Error("arguments is the last child")
	}
	saved := c.Copy()
	if !c.GotoLastChild() || c.Node().Type() != ")" {
		t.Errorf("last child = %s", c.Node().Type())
	}
	if saved.Node().Type() != "arguments" || saved.Depth() != 2 {
		t.Errorf("copy moved with the original: %s at %d", saved.Node().Type(), saved.Depth())
	}

	c.Reset(tree.Root())
	if !c.GotoDescendantAtByte(7) || c.Node().Text() != "2" {
		t.Errorf("descendant at 7 = %s %q", c.Node().Type(), c.Node().Text())
	}
	if c.Depth() != 3 {
		t.Errorf("depth = %d, want 3", c.Depth())
	}
}

func TestWalk(t *testing.T) {
	tree := parse(t, "foo(1, 2)")

	type visit struct {
		Type  string
		Depth int
	}
	var got []visit
	for n, depth := range tree.Walk() {
		got = append(got, visit{n.Type(), depth})
	}
	want := []visit{
		{"source_file", 0},
		{"call_expression", 1},
		{"identifier", 2},
		{"arguments", 2},
		{"(", 3},
		{"number", 3},
		{",", 3},
		{"number", 3},
		{")", 3},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Walk() mismatch (-want +got):\n%s", diff)
	}

	count := 0
	for range tree.Walk() {
		count++
		if count == 3 {
			break
		}
	}
	if count != 3 {
		t.Errorf("early break visited %d nodes", count)
	}
}

func TestEqual(t *testing.T) {
	a := parse(t, "foo(1, 2)")
	b := parse(t, "foo(1, 2)")
	c := parse(t, "foo(1, 3)")
	d := parse(t, "foo(1,  2)")

	if !syntax.Equal(a, b) {
		t.Error("parses of the same text should be equal")
	}
	if !syntax.Equal(a, c) {
		t.Error("trees with the same shape and ranges are equal regardless of token text")
	}
	if syntax.Equal(a, d) {
		t.Error("trees with different ranges should differ")
	}
	if syntax.Equal(a, nil) || !syntax.Equal(nil, nil) {
		t.Error("nil handling")
	}
	if a.Version() == b.Version() {
		t.Error("every parse gets its own version id")
	}
}

func TestString(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"foo(1)", "(source_file (call_expression callee: (identifier) arguments: (arguments (number))))"},
		{"1 + 2 * 3", "(source_file (binary_expression left: (number) right: (binary_expression left: (number) right: (number))))"},
		{"foo(1,", `(source_file (call_expression callee: (identifier) arguments: (arguments (number) (MISSING ")"))))`},
		{"", "(source_file)"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			if got := parse(t, tt.src).String(); got != tt.want {
				t.Errorf("String() =\n%s\nwant\n%s", got, tt.want)
			}
		})
	}
}

func TestWideNodeNavigation(t *testing.T) {
	const n = 500
	args := make([]string, n)
	for i := range args {
		args[i] = strconv.Itoa(i)
	}
	tree := parse(t, "f("+strings.Join(args, ", ")+")")
	list := tree.Root().Child(0).ChildByFieldName("arguments")
	if got, want := list.ChildCount(), 2*n+1; got != want {
		t.Fatalf("arguments has %d children, want %d", got, want)
	}
	if got := len(list.Subtree().Children()); got > 4 {
		t.Errorf("arguments stores %d children directly, want the list split into hidden pairs", got)
	}

	var children []syntax.Node
	for c := range list.Children() {
		children = append(children, c)
	}
	if len(children) != list.ChildCount() {
		t.Fatalf("Children yielded %d nodes, ChildCount is %d", len(children), list.ChildCount())
	}
	for i, c := range children {
		if !list.Child(i).Equal(c) {
			t.Fatalf("Child(%d) = %s, iteration gave %s", i, list.Child(i).Type(), c.Type())
		}
		if i > 0 && !c.PrevSibling().Equal(children[i-1]) {
			t.Fatalf("PrevSibling of child %d is wrong", i)
		}
		if !c.Parent().Equal(list) {
			t.Fatalf("parent of child %d is %s", i, c.Parent().Type())
		}
	}
	if got := children[2*n-1].Text(); got != strconv.Itoa(n-1) {
		t.Errorf("last argument = %q", got)
	}
	if got := list.NamedChild(n - 1).Text(); got != strconv.Itoa(n-1) {
		t.Errorf("NamedChild(%d) = %q", n-1, got)
	}

	c := syntax.NewCursor(list)
	if !c.GotoLastChild() {
		t.Fatal("GotoLastChild failed")
	}
	for i := len(children) - 1; ; i-- {
		if !c.Node().Equal(children[i]) {
			t.Fatalf("backwards step %d reached %s", i, c.Node().Type())
		}
		if !c.GotoPrevSibling() {
			if i != 0 {
				t.Fatalf("GotoPrevSibling stopped at child %d", i)
			}
			break
		}
	}

	visited := 0
	for node, depth := range syntax.Walk(list) {
		if depth != 1 {
			continue
		}
		if !node.Equal(children[visited]) {
			t.Fatalf("Walk visited %s as child %d", node.Type(), visited)
		}
		visited++
	}
	if visited != len(children) {
		t.Errorf("Walk visited %d children, want %d", visited, len(children))
	}
}
