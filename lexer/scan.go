package lexer

import "unicode/utf8"

// scanCursor is the table.ScanInput handed to external scanners. It records
// how far the scanner looked so the token's lookahead is exact.
type scanCursor struct {
	input    []byte
	start    int
	pos      int
	end      int
	result   int
	examined int
}

func (c *scanCursor) look(upto int) {
	if upto > c.examined {
		c.examined = upto
	}
}

func (c *scanCursor) Lookahead() rune {
	if c.pos >= len(c.input) {
		c.look(len(c.input) + 1)
		return 0
	}
	r, w := utf8.DecodeRune(c.input[c.pos:])
	c.look(c.pos + w)
	return r
}

func (c *scanCursor) Advance(skip bool) {
	if c.pos >= len(c.input) {
		return
	}
	_, w := utf8.DecodeRune(c.input[c.pos:])
	c.look(c.pos + w)
	c.pos += w
	if skip {
		c.start = c.pos
	}
}

func (c *scanCursor) MarkEnd() { c.end = c.pos }

func (c *scanCursor) SetResult(index int) { c.result = index }

func (c *scanCursor) AtEOF() bool {
	if c.pos >= len(c.input) {
		c.look(len(c.input) + 1)
		return true
	}
	return false
}
