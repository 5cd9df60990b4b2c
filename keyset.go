package cotn

import "strings"

// Keyset is a named, ordered list of field names. Objects decoded against
// a keyset carry values only and are matched to fields by position.
type Keyset struct {
	Name   string
	Fields []string
}

// keysetTable holds the keysets declared so far in one parse. A later
// declaration with the same name replaces the earlier one.
type keysetTable map[string]*Keyset

func (t keysetTable) declare(name, body string) *Keyset {
	ks := &Keyset{Name: name, Fields: splitFields(body)}
	t[name] = ks
	return ks
}

func (t keysetTable) lookup(name string) (*Keyset, bool) {
	ks, ok := t[name]
	return ks, ok
}

// splitFields splits a declaration body on ',' and drops pieces that are
// empty once surrounding whitespace is removed.
func splitFields(body string) []string {
	pieces := strings.Split(body, ",")
	fields := make([]string, 0, len(pieces))
	for _, f := range pieces {
		f = strings.TrimFunc(f, func(r rune) bool {
			return r < 0x80 && isSpace(byte(r))
		})
		if f != "" {
			fields = append(fields, f)
		}
	}
	return fields
}
