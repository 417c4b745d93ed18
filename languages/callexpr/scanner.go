package callexpr

import (
	"unicode"

	"github.com/dhamidi/ilparse/table"
)

const (
	heredocStart = iota
	heredocBody
	heredocEnd
)

const (
	outside = iota
	afterStart
	afterBody
)

// Scanner lexes heredocs. The delimiter read by heredoc_start is kept in
// the scanner state until heredoc_end consumes it.
type Scanner struct {
	phase     byte
	delimiter []rune
}

func NewScanner() table.ExternalScanner {
	return &Scanner{}
}

func (s *Scanner) Serialize() []byte {
	if s.phase == outside {
		return nil
	}
	return append([]byte{s.phase}, string(s.delimiter)...)
}

func (s *Scanner) Deserialize(state []byte) {
	s.phase = outside
	s.delimiter = nil
	if len(state) > 0 {
		s.phase = state[0]
		s.delimiter = []rune(string(state[1:]))
	}
}

func (s *Scanner) Scan(in table.ScanInput, valid []bool) bool {
	switch {
	case s.phase == afterStart && valid[heredocBody]:
		return s.scanBody(in)
	case s.phase != outside && valid[heredocEnd]:
		return s.scanEnd(in)
	case s.phase == outside && valid[heredocStart]:
		return s.scanStart(in)
	}
	return false
}

func (s *Scanner) scanStart(in table.ScanInput) bool {
	for unicode.IsSpace(in.Lookahead()) {
		in.Advance(true)
	}
	for range 2 {
		if in.Lookahead() != '<' {
			return false
		}
		in.Advance(false)
	}
	var delim []rune
	for r := in.Lookahead(); r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r); r = in.Lookahead() {
		delim = append(delim, r)
		in.Advance(false)
	}
	if len(delim) == 0 {
		return false
	}
	in.MarkEnd()
	in.SetResult(heredocStart)
	s.phase, s.delimiter = afterStart, delim
	return true
}

// scanBody consumes lines up to, and including the line break before, the
// line holding only the delimiter. An unterminated body runs to the end of
// input.
func (s *Scanner) scanBody(in table.ScanInput) bool {
	consumed := false
	for {
		if in.AtEOF() {
			if !consumed {
				return false
			}
			in.MarkEnd()
			break
		}
		r := in.Lookahead()
		in.Advance(false)
		consumed = true
		if r != '\n' {
			continue
		}
		in.MarkEnd()
		if s.matchDelimiter(in) {
			break
		}
	}
	in.SetResult(heredocBody)
	s.phase = afterBody
	return true
}

func (s *Scanner) matchDelimiter(in table.ScanInput) bool {
	for _, want := range s.delimiter {
		if in.Lookahead() != want {
			return false
		}
		in.Advance(false)
	}
	return in.AtEOF() || in.Lookahead() == '\n'
}

func (s *Scanner) scanEnd(in table.ScanInput) bool {
	if !s.matchDelimiter(in) {
		return false
	}
	in.MarkEnd()
	in.SetResult(heredocEnd)
	s.phase, s.delimiter = outside, nil
	return true
}
