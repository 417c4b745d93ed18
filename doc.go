// Package ilparse is an incremental, error-tolerant parsing engine driven by
// compiled parse tables, with a grammar for CIL assembly listings.
//
// A language is loaded from an encoded table, source is parsed into an
// immutable syntax tree, and edits are applied in two phases: ApplyEdit
// shifts the old tree to the new coordinates and marks what the edit
// touched, then Parse with the edited tree as previous reuses every clean
// subtree. Malformed input always produces a tree, with ERROR and missing
// nodes where the text did not fit the grammar.
//
//	lang, err := ilparse.LoadGrammar(tableBytes)
//	if err != nil {
//		return err
//	}
//	tree, err := ilparse.Parse(ctx, lang, src, nil)
//	if err != nil {
//		return err
//	}
//	edited, err := ilparse.ApplyEdit(tree, syntax.Edit{StartByte: 4, OldEndByte: 5, NewEndByte: 6})
//	if err != nil {
//		return err
//	}
//	tree, err = ilparse.Parse(ctx, lang, newSrc, edited)
//	if err != nil {
//		return fmt.Errorf("reparse: %w", err)
//	}
package ilparse
