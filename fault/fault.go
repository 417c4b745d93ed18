// Package fault defines the error kinds surfaced by the parsing engine.
//
// Malformed source text never produces an error: lexical and syntax problems
// are recorded on the tree as ERROR and missing nodes. Errors are returned only
// for malformed API usage, such as an edit that does not fit the text, a table
// built for another engine version, or an exceeded parse budget.
package fault

import (
	"errors"
	"fmt"
)

type Kind int

const (
	LexicalError Kind = iota + 1
	SyntaxError
	InvalidEdit
	IncompatibleVersion
	Timeout
	InvalidQuery
	InvalidGrammar
)

var kindNames = map[Kind]string{
	LexicalError:        "lexical error",
	SyntaxError:         "syntax error",
	InvalidEdit:         "invalid edit",
	IncompatibleVersion: "incompatible version",
	Timeout:             "timeout",
	InvalidQuery:        "invalid query",
	InvalidGrammar:      "invalid grammar",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error reports an operation that failed with one of the engine's error kinds.
// A Kind compares equal to any *Error carrying it, so errors.Is(err,
// fault.Timeout) works on wrapped errors.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	if k, ok := target.(Kind); ok {
		return e.Kind == k
	}
	if other, ok := target.(*Error); ok {
		return e.Kind == other.Kind && (other.Op == "" || other.Op == e.Op)
	}
	return false
}

// Error lets a bare Kind be used as an errors.Is target.
func (k Kind) Error() string {
	return k.String()
}

func New(kind Kind, op string, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
