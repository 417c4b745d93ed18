// Package format renders syntax trees as text: S-expressions, JSON, YAML and
// an indented line listing.
package format

import (
	"encoding"

	"github.com/dhamidi/ilparse/syntax"
)

type Encoder interface {
	encoding.TextMarshaler
	Encode(tree *syntax.Tree) error
}

// Point is a zero-based row and byte column.
type Point struct {
	Row    int `json:"row" yaml:"row"`
	Column int `json:"column" yaml:"column"`
}

// lineIndex converts byte offsets of one source text into points.
type lineIndex []int

func newLineIndex(src []byte) lineIndex {
	starts := lineIndex{0}
	for i, c := range src {
		if c == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

func (l lineIndex) point(offset int) Point {
	lo, hi := 0, len(l)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if l[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return Point{Row: lo, Column: offset - l[lo]}
}
