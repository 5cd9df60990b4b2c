package cotn

import (
	"bytes"
	"errors"
	"strconv"
)

const (
	commentOpen  = "<<"
	commentClose = ">>"
)

// Helper functions for byte classification. The notation is ASCII
// oriented: bytes of multi-byte UTF-8 sequences are never significant
// outside of strings and keys, where they are copied through.
func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isNumeric(c byte) bool {
	return c == '.' || isDigit(c)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// isSpace reports control characters and spaces, which are ignored
// outside of strings.
func isSpace(c byte) bool {
	return c < 0x21 || c == 0x7f
}

// isValueStart reports whether c can begin a value.
func isValueStart(c byte) bool {
	if isNumeric(c) || isLetter(c) {
		return true
	}
	switch c {
	case '+', '-', '!', '(', '[', '{', '"':
		return true
	}
	return false
}

func (p *parser) done() bool {
	return p.pos >= len(p.data)
}

func (p *parser) peek() byte {
	return p.peekAt(p.pos)
}

func (p *parser) peekAt(pos int) byte {
	if pos >= len(p.data) || pos < 0 {
		return 0
	}
	return p.data[pos]
}

func (p *parser) peekString(s string) bool {
	if p.pos+len(s) > len(p.data) {
		return false
	}
	for i := 0; i < len(s); i++ {
		if p.data[p.pos+i] != s[i] {
			return false
		}
	}
	return true
}

func (p *parser) advance(n int) {
	p.pos += n
}

// isCommentStart reports whether a comment opens at the cursor.
func (p *parser) isCommentStart() bool {
	return p.peekString(commentOpen)
}

// skipComment moves the cursor past the close of the comment opening at
// the cursor. Comments do not nest.
func (p *parser) skipComment() error {
	start := p.pos
	end := bytes.Index(p.data[start+len(commentOpen):], []byte(commentClose))
	if end < 0 {
		return p.errorAt(start, ErrUnterminatedComment, "")
	}
	p.pos = start + len(commentOpen) + end + len(commentClose)
	return nil
}

// readVersion reads the run of digits and dots at the cursor.
func (p *parser) readVersion() string {
	start := p.pos
	for !p.done() && isNumeric(p.peek()) {
		p.pos++
	}
	return string(p.data[start:p.pos])
}

// readNumber reads a number starting at the cursor. At most one '.' is
// accepted, and it must precede the exponent. An 'e' is accepted once,
// only between two digits; there is no exponent sign.
func (p *parser) readNumber() (Value, error) {
	start := p.pos
	dotSeen, expSeen := false, false
	for ; !p.done(); p.pos++ {
		c := p.data[p.pos]
		if c == '.' {
			if dotSeen || expSeen {
				break
			}
			dotSeen = true
		} else if c == 'e' && p.pos != start {
			if expSeen || !isDigit(p.data[p.pos-1]) || !isDigit(p.peekAt(p.pos+1)) {
				break
			}
			expSeen = true
		} else if !isDigit(c) {
			break
		}
	}

	raw := string(p.data[start:p.pos])
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return Value{}, p.errorAt(start, ErrInvalidNumber, strconv.Quote(raw))
	}

	return Number(f), nil
}

// readString reads a string whose opening quote has been consumed and
// leaves the cursor past the closing quote. Only \\ and \" are escapes;
// any other backslash pair is kept verbatim.
func (p *parser) readString() (Value, error) {
	start := p.pos - 1

	// Fast path: no backslashes before the closing quote.
	for i := p.pos; i < len(p.data); i++ {
		if p.data[i] == '"' {
			s := string(p.data[p.pos:i])
			p.pos = i + 1
			return Text(s), nil
		}
		if p.data[i] == '\\' {
			break
		}
	}

	p.buf = p.buf[:0]
	for !p.done() {
		c := p.data[p.pos]
		if c == '"' {
			p.pos++
			return Text(string(p.buf)), nil
		}
		if c == '\\' {
			if p.pos+1 >= len(p.data) {
				break
			}
			next := p.data[p.pos+1]
			if next == '\\' || next == '"' {
				p.buf = append(p.buf, next)
			} else {
				p.buf = append(p.buf, c, next)
			}
			p.advance(2)
			continue
		}
		p.buf = append(p.buf, c)
		p.pos++
	}

	return Value{}, p.errorAt(start, ErrUnterminatedString, "")
}

// errorAt builds a *SyntaxError for the given byte offset.
func (p *parser) errorAt(offset int, err error, detail string) error {
	if offset > len(p.data) {
		offset = len(p.data)
	}
	line, col := 1, 1
	for _, c := range p.data[:offset] {
		if c == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return &SyntaxError{Err: err, Detail: detail, Offset: offset, Line: line, Column: col}
}
