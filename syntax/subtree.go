package syntax

import (
	"bytes"

	"github.com/dhamidi/ilparse/table"
)

type flags uint16

const (
	flagVisible flags = 1 << iota
	flagNamed
	flagExtra
	flagMissing
	flagError
	flagHasError
	flagFragile
	flagDirty
	flagLeaf
)

// NoLexMode marks a leaf that was not lexed in a regular lex mode, such as
// a token found by the error fallback. Such leaves are never reused.
const NoLexMode table.LexModeID = 0xffff

// Subtree is an immutable node shared by every tree version that contains
// it. Extents are relative: a subtree only knows the trivia before it
// (padding) and its own size, so it stays valid wherever edits move it.
type Subtree struct {
	symbol     table.Symbol
	grammar    table.Symbol
	padding    int
	size       int
	lookahead  int
	children   []*Subtree
	fields     []table.FieldID
	flags      flags
	parseState table.StateID
	lexMode    table.LexModeID
	firstLeaf  table.Symbol
	production uint16
	dynamic    int32
	errorCost  int32
	scanStart  []byte
	scanEnd    []byte
	// visible counts the visible children, looking through hidden ones.
	visible     int
	repeatDepth int
}

// Leaf describes a terminal subtree.
type Leaf struct {
	Symbol     table.Symbol
	Grammar    table.Symbol
	Padding    int
	Size       int
	Lookahead  int
	Named      bool
	Visible    bool
	Extra      bool
	Missing    bool
	Error      bool
	Fragile    bool
	ParseState table.StateID
	LexMode    table.LexModeID
	ScanStart  []byte
	ScanEnd    []byte
}

func NewLeaf(l Leaf) *Subtree {
	s := &Subtree{
		symbol:     l.Symbol,
		grammar:    l.Grammar,
		padding:    l.Padding,
		size:       l.Size,
		lookahead:  l.Lookahead,
		parseState: l.ParseState,
		lexMode:    l.LexMode,
		firstLeaf:  l.Grammar,
		scanStart:  l.ScanStart,
		scanEnd:    l.ScanEnd,
		flags:      flagLeaf,
	}
	s.setFlag(flagVisible, l.Visible)
	s.setFlag(flagNamed, l.Named)
	s.setFlag(flagExtra, l.Extra)
	s.setFlag(flagMissing, l.Missing)
	s.setFlag(flagError, l.Error)
	s.setFlag(flagFragile, l.Fragile)
	s.setFlag(flagHasError, l.Missing || l.Error)
	switch {
	case l.Missing:
		s.errorCost = 1
	case l.Error:
		s.errorCost = 1
	}
	return s
}

// NodeSpec describes a nonterminal subtree built from children.
type NodeSpec struct {
	Symbol     table.Symbol
	Grammar    table.Symbol
	Production uint16
	Children   []*Subtree
	// Fields is parallel to Children; nil when no child has a field.
	Fields     []table.FieldID
	Named      bool
	Visible    bool
	Extra      bool
	Fragile    bool
	ParseState table.StateID
	// Lookahead is the exclusive end, relative to the end of the node, of the
	// input that decided the reduction. Children's lookahead is folded in.
	Lookahead int
	Dynamic   int32
	// RepeatDepth is the height of a hidden repeat node above the units it
	// joins.
	RepeatDepth int
}

func NewNode(n NodeSpec) *Subtree {
	s := &Subtree{
		symbol:      n.Symbol,
		grammar:     n.Grammar,
		children:    n.Children,
		fields:      n.Fields,
		parseState:  n.ParseState,
		production:  n.Production,
		dynamic:     n.Dynamic,
		lexMode:     NoLexMode,
		repeatDepth: n.RepeatDepth,
	}
	s.setFlag(flagVisible, n.Visible)
	s.setFlag(flagNamed, n.Named)
	s.setFlag(flagExtra, n.Extra)
	s.setFlag(flagFragile, n.Fragile)
	s.setFlag(flagError, n.Symbol == table.SymbolError)
	s.summarize()
	if n.Lookahead > s.lookahead {
		s.lookahead = n.Lookahead
	}
	if n.Symbol == table.SymbolError {
		s.setFlag(flagHasError, true)
		s.errorCost++
	}
	return s
}

// summarize derives extents, error state and first-leaf data from children.
func (s *Subtree) summarize() {
	s.padding, s.size, s.lookahead, s.errorCost, s.visible = 0, 0, 0, 0, 0
	if len(s.children) == 0 {
		s.firstLeaf = s.grammar
		return
	}
	first := s.children[0]
	s.padding = first.padding
	s.firstLeaf = first.firstLeaf
	s.lexMode = first.lexMode
	s.scanStart = first.scanStart
	total := 0
	for _, c := range s.children {
		total += c.padding + c.size
		if c.HasError() {
			s.setFlag(flagHasError, true)
		}
		s.errorCost += c.errorCost
		s.dynamic += c.dynamic
		if c.IsVisible() {
			s.visible++
		} else {
			s.visible += c.visible
		}
		s.scanEnd = c.scanEnd
	}
	s.size = total - s.padding
	end := 0
	for _, c := range s.children {
		end += c.padding + c.size
		if la := end + c.lookahead - total; la > s.lookahead {
			s.lookahead = la
		}
	}
}

func (s *Subtree) setFlag(f flags, on bool) {
	if on {
		s.flags |= f
	} else {
		s.flags &^= f
	}
}

func (s *Subtree) has(f flags) bool { return s.flags&f != 0 }

func (s *Subtree) Symbol() table.Symbol          { return s.symbol }
func (s *Subtree) GrammarSymbol() table.Symbol   { return s.grammar }
func (s *Subtree) Padding() int                  { return s.padding }
func (s *Subtree) Size() int                     { return s.size }
func (s *Subtree) TotalSize() int                { return s.padding + s.size }
func (s *Subtree) Lookahead() int                { return s.lookahead }
func (s *Subtree) Children() []*Subtree          { return s.children }
func (s *Subtree) ChildCount() int               { return len(s.children) }
func (s *Subtree) Fields() []table.FieldID       { return s.fields }
func (s *Subtree) ParseState() table.StateID     { return s.parseState }
func (s *Subtree) LexMode() table.LexModeID      { return s.lexMode }
func (s *Subtree) FirstLeafSymbol() table.Symbol { return s.firstLeaf }
func (s *Subtree) Production() uint16            { return s.production }
func (s *Subtree) DynamicPrecedence() int32      { return s.dynamic }
func (s *Subtree) RepeatDepth() int              { return s.repeatDepth }
func (s *Subtree) ErrorCost() int32              { return s.errorCost }
func (s *Subtree) ScanStart() []byte             { return s.scanStart }
func (s *Subtree) ScanEnd() []byte               { return s.scanEnd }
func (s *Subtree) IsLeaf() bool                  { return s.has(flagLeaf) }
func (s *Subtree) IsVisible() bool               { return s.has(flagVisible) }
func (s *Subtree) IsNamed() bool                 { return s.has(flagNamed) }
func (s *Subtree) IsExtra() bool                 { return s.has(flagExtra) }
func (s *Subtree) IsMissing() bool               { return s.has(flagMissing) }
func (s *Subtree) IsError() bool                 { return s.symbol == table.SymbolError }
func (s *Subtree) HasError() bool                { return s.has(flagHasError) }
func (s *Subtree) IsFragile() bool               { return s.has(flagFragile) }
func (s *Subtree) IsDirty() bool                 { return s.has(flagDirty) }

func (s *Subtree) FieldAt(i int) table.FieldID {
	if i < len(s.fields) {
		return s.fields[i]
	}
	return 0
}

// SameScanState reports whether the subtree was lexed from scanner state.
func (s *Subtree) SameScanState(state []byte) bool {
	return bytes.Equal(s.scanStart, state)
}

// WithExtra returns s marked as an extra, copying only if needed.
func (s *Subtree) WithExtra(extra bool) *Subtree {
	if s.IsExtra() == extra {
		return s
	}
	c := *s
	c.setFlag(flagExtra, extra)
	return &c
}

// WithAlias returns a copy of s shown as another symbol. The grammar symbol
// is kept for table lookups.
func (s *Subtree) WithAlias(symbol table.Symbol, named, visible bool) *Subtree {
	c := *s
	c.symbol = symbol
	c.setFlag(flagNamed, named)
	c.setFlag(flagVisible, visible)
	return &c
}

// WithPadding returns a copy of a leaf with different leading trivia.
func (s *Subtree) WithPadding(padding int) *Subtree {
	if s.padding == padding {
		return s
	}
	c := *s
	c.padding = padding
	return &c
}

// FirstLeaf returns the leftmost leaf of s and the padded offset of that
// leaf's end relative to the start of s.
func (s *Subtree) FirstLeaf() (*Subtree, int) {
	cur := s
	for len(cur.children) > 0 {
		cur = cur.children[0]
	}
	return cur, cur.padding + cur.size
}
