package ilparse

import (
	"context"

	"github.com/dhamidi/ilparse/parser"
	"github.com/dhamidi/ilparse/syntax"
	"github.com/dhamidi/ilparse/table"
)

// LoadGrammar decodes a parse table. A table written for another engine
// version fails with fault.IncompatibleVersion.
func LoadGrammar(data []byte, opts ...table.LanguageOption) (*table.Language, error) {
	return table.Load(data, opts...)
}

// Parse parses source. prev, when not nil, is the previous tree with the
// edits that led to source already applied.
func Parse(ctx context.Context, lang *table.Language, source []byte, prev *syntax.Tree, opts ...parser.Option) (*syntax.Tree, error) {
	return parser.New(lang, opts...).Parse(ctx, source, prev)
}

// ApplyEdit returns a copy of tree shifted to the post-edit coordinates.
// The input tree is unchanged.
func ApplyEdit(tree *syntax.Tree, edit syntax.Edit) (*syntax.Tree, error) {
	return syntax.ApplyEdit(tree, edit)
}

// Reparse applies edits to old and parses newText against the result.
func Reparse(ctx context.Context, old *syntax.Tree, oldText, newText []byte, edits ...syntax.Edit) (*syntax.Tree, error) {
	return parser.New(old.Language()).Reparse(ctx, old, oldText, newText, edits...)
}
