package cotn

import (
	"errors"
	"fmt"
)

// Decode failures. A *SyntaxError returned by Parse wraps exactly one of
// these and can be matched with errors.Is.
var (
	ErrUnterminatedString  = errors.New("unterminated string")
	ErrUnterminatedComment = errors.New("unterminated comment")
	ErrUnknownKeyset       = errors.New("unknown keyset")
	ErrMalformedKeyset     = errors.New("malformed keyset declaration")
	ErrUnexpectedEOF       = errors.New("unexpected end of input")
	ErrMissingValue        = errors.New("missing value")
	ErrInvalidNumber       = errors.New("invalid number")
)

// SyntaxError describes where decoding failed.
type SyntaxError struct {
	Err    error  // One of the Err* sentinels.
	Detail string // Optional context, such as a keyset name.
	Offset int    // Byte offset into the input.
	Line   int    // 1-based line.
	Column int    // 1-based column, in bytes.
}

func (e *SyntaxError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("cotn: line %d, column %d: %v %s", e.Line, e.Column, e.Err, e.Detail)
	}
	return fmt.Sprintf("cotn: line %d, column %d: %v", e.Line, e.Column, e.Err)
}

func (e *SyntaxError) Unwrap() error { return e.Err }

// UnsupportedValueError is returned by Marshal when a value has no
// representation in the notation.
type UnsupportedValueError struct {
	Value  string
	Reason string
}

func (e *UnsupportedValueError) Error() string {
	return fmt.Sprintf("cotn: unsupported value %s: %s", e.Value, e.Reason)
}
