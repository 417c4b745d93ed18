// Package table holds the compiled parse table a grammar is reduced to, and
// the read-only Language view the lexer and parser drive from.
//
// A Table is plain data. It is serialized as CBOR with an ABI version number
// in front so that an engine refuses tables built for a different layout.
// NewLanguage validates and indexes a Table once; the resulting *Language is
// immutable and may be shared by any number of concurrent parses.
package table

import "fmt"

// ABIVersion is the table layout understood by this engine.
const ABIVersion uint32 = 4

type Symbol uint16

type StateID uint16

type FieldID uint16

type LexModeID uint16

const (
	// SymbolEnd is the end-of-input terminal.
	SymbolEnd Symbol = 0
	// SymbolError labels ERROR nodes built by error recovery.
	SymbolError Symbol = 1
)

type SymbolKind uint8

const (
	Terminal SymbolKind = iota
	External
	Nonterminal
	// Auxiliary symbols are hidden helpers generated for repeats and
	// multi-element aliases. They never appear in a tree unless aliased.
	Auxiliary
	// AliasOnly symbols exist only as alias targets.
	AliasOnly
)

func (k SymbolKind) String() string {
	switch k {
	case Terminal:
		return "terminal"
	case External:
		return "external"
	case Nonterminal:
		return "nonterminal"
	case Auxiliary:
		return "auxiliary"
	case AliasOnly:
		return "alias"
	}
	return fmt.Sprintf("SymbolKind(%d)", k)
}

type SymbolInfo struct {
	Name    string
	Kind    SymbolKind
	Named   bool
	Visible bool
}

type ActionType uint8

const (
	Shift ActionType = iota + 1
	Reduce
	Accept
)

func (t ActionType) String() string {
	switch t {
	case Shift:
		return "shift"
	case Reduce:
		return "reduce"
	case Accept:
		return "accept"
	}
	return "invalid"
}

// Action is one entry of a parse table cell. A cell holding more than one
// action is a conflict the parser explores by forking; entries are ordered
// by grammar declaration order.
type Action struct {
	Type       ActionType
	State      StateID
	Production uint16
}

// Step describes one child position of a production.
type Step struct {
	Alias Symbol
	Field FieldID
}

type Production struct {
	Symbol            Symbol
	Steps             []Step
	DynamicPrecedence int16
	// Repeat marks the production joining two runs of a repeat helper.
	Repeat bool
}

// TokenRule is the lexical definition of a terminal. Pattern uses Go regexp
// syntax and is matched anchored at the current position.
type TokenRule struct {
	Symbol     Symbol
	Pattern    string
	Literal    bool
	Immediate  bool
	Precedence int16
}

type ActionEntry struct {
	Symbol  Symbol
	Actions []Action
}

type GotoEntry struct {
	Symbol Symbol
	State  StateID
}

type State struct {
	Actions []ActionEntry
	Gotos   []GotoEntry
	LexMode LexModeID
}

// LexMode is the set of terminals the lexer may produce in a parse state.
type LexMode struct {
	Tokens    []Symbol
	Externals []Symbol
}

type Table struct {
	Version     uint32
	Name        string
	Start       Symbol
	Symbols     []SymbolInfo
	Fields      []string
	Productions []Production
	States      []State
	Tokens      []TokenRule
	Externals   []Symbol
	Extras      []Symbol
	Skip        []string
	LexModes    []LexMode
}
