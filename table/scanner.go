package table

// ScanInput is the view of the source an external scanner reads through.
type ScanInput interface {
	// Lookahead returns the rune at the current position, or 0 at end of input.
	Lookahead() rune
	// Advance consumes the lookahead rune. Skipped runes become padding.
	Advance(skip bool)
	// MarkEnd fixes the token end at the current position. Without a call
	// the token ends wherever scanning stopped.
	MarkEnd()
	// SetResult selects the produced token by its index in Table.Externals.
	SetResult(index int)
	AtEOF() bool
}

// ExternalScanner produces tokens the regular lexer cannot describe, such as
// tokens whose shape depends on earlier input. Its state must round-trip
// through Serialize and Deserialize: incremental reparse restores the state
// recorded next to reused subtrees instead of rescanning from the start.
type ExternalScanner interface {
	Scan(in ScanInput, valid []bool) bool
	Serialize() []byte
	Deserialize(state []byte)
}

type ScannerFactory func() ExternalScanner
