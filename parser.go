package cotn

import (
	"fmt"
	"strconv"
)

// parser holds the state of a single decode pass. The keyset table lives
// and dies with it, so concurrent Parse calls share nothing.
type parser struct {
	data    []byte      // The input COTN data.
	pos     int         // The current position in the data.
	keysets keysetTable // Keysets declared so far.
	buf     []byte      // Reusable buffer for strings with escapes.
}

func newParser(data []byte) *parser {
	return &parser{
		data:    data,
		keysets: make(keysetTable),
		buf:     make([]byte, 0, 64),
	}
}

// Parse decodes a COTN document.
//
// Only the first value in the input is decoded; anything after it is
// ignored. An input without any value yields a Document with a nil Root
// and no error. Decode failures are returned as *SyntaxError.
func Parse(data []byte) (*Document, error) {
	return newParser(data).parseDocument()
}

// ParseString is like Parse but takes a string.
func ParseString(s string) (*Document, error) {
	return Parse([]byte(s))
}

// parseDocument looks for an optional version tag and decodes the root value.
func (p *parser) parseDocument() (*Document, error) {
	doc := &Document{}
	for !p.done() {
		c := p.peek()

		// The version tag is read once, right after its 'v' marker.
		if !doc.HasVersion() && c == 'v' && isNumeric(p.peekAt(p.pos+1)) {
			p.advance(1)
			doc.Version = p.readVersion()
			continue
		}

		if p.isCommentStart() {
			if err := p.skipComment(); err != nil {
				return nil, err
			}
			continue
		}

		if isValueStart(c) {
			v, err := p.parseValue("")
			if err != nil {
				return nil, err
			}
			doc.Root = &v
			return doc, nil
		}

		p.advance(1)
	}

	return doc, nil
}

// parseValue decodes the next value and leaves the cursor just past it.
// Keyset declarations met on the way are registered. keyset is the name in
// effect for a '{' or '[' that is not preceded by its own reference.
func (p *parser) parseValue(keyset string) (Value, error) {
	var (
		ident    []byte // Letters that may turn out to be a keyset name.
		declared string // Keyset declared right before the cursor.
	)

	for !p.done() {
		if p.isCommentStart() {
			if err := p.skipComment(); err != nil {
				return Value{}, err
			}
			continue
		}

		c := p.peek()
		switch {
		case c == '{' || c == '[':
			name := keyset
			if len(ident) > 0 {
				name = string(ident)
			} else if declared != "" {
				name = declared
			}
			p.advance(1)

			if c == '{' {
				rec, err := p.readObject(name)
				if err != nil {
					return Value{}, err
				}
				return Object(rec), nil
			}

			list, err := p.readArray(name)
			if err != nil {
				return Value{}, err
			}
			return List(list...), nil

		case c == '(' && len(ident) > 0:
			name := string(ident)
			if err := p.readDeclaration(name); err != nil {
				return Value{}, err
			}
			ident = ident[:0]
			declared = name
			continue

		case isLetter(c):
			ident = append(ident, c)
			declared = ""
			p.advance(1)
			continue
		}

		// Anything else abandons a pending identifier.
		ident = ident[:0]
		declared = ""

		switch {
		case c == '+':
			p.advance(1)
			return Bool(true), nil
		case c == '-':
			p.advance(1)
			return Bool(false), nil
		case c == '!':
			p.advance(1)
			return Null(), nil
		case isNumeric(c):
			return p.readNumber()
		case c == '"':
			p.advance(1)
			return p.readString()
		case c == '}' || c == ']':
			return Value{}, p.errorAt(p.pos, ErrMissingValue, fmt.Sprintf("before %q", c))
		}

		p.advance(1)
	}

	return Value{}, p.errorAt(p.pos, ErrUnexpectedEOF, "while expecting a value")
}

// readDeclaration registers the keyset whose field list opens at the cursor.
// Comments inside the list are dropped, so a ')' within one does not close it.
func (p *parser) readDeclaration(name string) error {
	start := p.pos
	p.advance(1)

	var body []byte
	for !p.done() {
		if p.isCommentStart() {
			if err := p.skipComment(); err != nil {
				return err
			}
			continue
		}

		c := p.peek()
		p.advance(1)
		if c == ')' {
			p.keysets.declare(name, string(body))
			return nil
		}
		body = append(body, c)
	}

	return p.errorAt(start, ErrMalformedKeyset, strconv.Quote(name))
}

// readObject decodes an object whose '{' has been consumed and leaves the
// cursor past its '}'. With a keyset name the body is positional.
func (p *parser) readObject(keyset string) (*Record, error) {
	if keyset != "" {
		return p.readPositional(keyset)
	}
	return p.readPlain()
}

// readPlain decodes a body of key:value pairs. Keys are raw runs of
// non-space bytes; a backslash makes the next ',', ':', '}' or comment
// opener part of the key and is kept itself.
func (p *parser) readPlain() (*Record, error) {
	start := p.pos - 1
	rec := NewRecord()

	var key []byte
	for {
		if p.done() {
			return nil, p.errorAt(start, ErrUnexpectedEOF, "in object")
		}

		c := p.peek()
		if p.peekAt(p.pos-1) != '\\' {
			if p.isCommentStart() {
				if err := p.skipComment(); err != nil {
					return nil, err
				}
				continue
			}

			switch c {
			case ',':
				key = key[:0]
				p.advance(1)
				continue
			case '}':
				p.advance(1)
				return rec, nil
			case ':':
				p.advance(1)
				v, err := p.parseValue("")
				if err != nil {
					return nil, err
				}
				rec.Set(string(key), v)
				key = key[:0]
				continue
			}
		}

		if !isSpace(c) {
			key = append(key, c)
		}
		p.advance(1)
	}
}

// readPositional decodes a body of bare values against the fields of the
// named keyset. A '}' reached early ends the record; fields not yet visited
// are left out rather than set to null.
func (p *parser) readPositional(name string) (*Record, error) {
	start := p.pos - 1
	ks, ok := p.keysets.lookup(name)
	if !ok {
		return nil, p.errorAt(start, ErrUnknownKeyset, strconv.Quote(name))
	}

	rec := NewRecord()

fields:
	for _, field := range ks.Fields {
	seek:
		for {
			if p.done() {
				return nil, p.errorAt(start, ErrUnexpectedEOF, "in object")
			}
			if p.isCommentStart() {
				if err := p.skipComment(); err != nil {
					return nil, err
				}
				continue
			}

			c := p.peek()
			switch {
			case c == ',':
				p.advance(1)
				rec.Set(field, Null())
				continue fields
			case c == '}':
				p.advance(1)
				rec.Set(field, Null())
				return rec, nil
			case isValueStart(c):
				v, err := p.parseValue("")
				if err != nil {
					return nil, err
				}
				rec.Set(field, v)
				break seek
			}
			p.advance(1)
		}

		for {
			if p.done() {
				return nil, p.errorAt(start, ErrUnexpectedEOF, "in object")
			}
			if p.isCommentStart() {
				if err := p.skipComment(); err != nil {
					return nil, err
				}
				continue
			}

			switch p.peek() {
			case ',':
				p.advance(1)
				continue fields
			case '}':
				p.advance(1)
				return rec, nil
			}
			p.advance(1)
		}
	}

	// Content past the last field is ignored.
	for !p.done() {
		if p.isCommentStart() {
			if err := p.skipComment(); err != nil {
				return nil, err
			}
			continue
		}
		if p.peek() == '}' {
			p.advance(1)
			return rec, nil
		}
		p.advance(1)
	}

	return nil, p.errorAt(start, ErrUnexpectedEOF, "in object")
}

// readArray decodes a list whose '[' has been consumed and leaves the
// cursor past its ']'. keyset is handed down to every element, so one
// reference before '[' makes each braced element positional.
func (p *parser) readArray(keyset string) ([]Value, error) {
	start := p.pos - 1
	if keyset != "" {
		if _, ok := p.keysets.lookup(keyset); !ok {
			return nil, p.errorAt(start, ErrUnknownKeyset, strconv.Quote(keyset))
		}
	}

	list := []Value{}

	for {
		if p.done() {
			return nil, p.errorAt(start, ErrUnexpectedEOF, "in list")
		}
		if p.isCommentStart() {
			if err := p.skipComment(); err != nil {
				return nil, err
			}
			continue
		}

		c := p.peek()
		if c == ']' {
			p.advance(1)
			return list, nil
		}

		if isValueStart(c) {
			v, err := p.parseValue(keyset)
			if err != nil {
				return nil, err
			}
			list = append(list, v)
			continue
		}

		p.advance(1)
	}
}
