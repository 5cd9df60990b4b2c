package cotn

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Marshal returns the COTN encoding of v.
//
// This function works like json.Marshal, converting a Go value into a COTN
// formatted byte slice. The mapping from Go types to COTN is as follows:
//   - nil pointer or interface -> !
//   - bool -> + | -
//   - int, uint, float -> number (negative numbers, NaN and infinities
//     have no representation and are rejected)
//   - string -> "quoted string"
//   - struct, map with string keys, *Record -> {key:value}
//   - slice, array -> [a,b]
//   - Value -> as is
//   - *Document -> version tag followed by the root value
//
// Struct fields can be customized with `cotn` tags. For example:
//
//	// Field appears as 'my_field' in COTN.
//	Field int `cotn:"my_field"`
//
//	// Field is left out when it holds its zero value.
//	Field int `cotn:"my_field,omitempty"`
//
//	// Field is ignored.
//	Field int `cotn:"-"`
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// An Encoder writes COTN values to an output stream.
type Encoder struct {
	w       io.Writer
	indent  string
	keysets bool
	version string
}

// NewEncoder returns a new encoder that writes to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// SetIndent makes the encoder place each list element and record field on
// its own line, indented by one copy of indent per nesting level. An empty
// indent restores compact output.
func (enc *Encoder) SetIndent(indent string) {
	enc.indent = indent
}

// SetKeysets enables keyset compaction: a list of two or more records that
// share the same field sequence is written as a keyset declaration (or a
// reference to an earlier one) followed by positional records.
func (enc *Encoder) SetKeysets(on bool) {
	enc.keysets = on
}

// SetVersion sets the version tag written before each value. A *Document
// carrying its own version overrides it.
func (enc *Encoder) SetVersion(version string) {
	enc.version = version
}

// Encode writes the COTN encoding of v to the stream, followed by a newline.
// See the documentation for Marshal for details about the conversion of Go
// values to COTN.
func (enc *Encoder) Encode(v any) error {
	version := enc.version
	var root *Value

	if d, ok := v.(Document); ok {
		v = &d
	}
	if doc, ok := v.(*Document); ok {
		if doc == nil {
			doc = &Document{}
		}
		if doc.HasVersion() {
			version = doc.Version
		}
		root = doc.Root
	} else {
		val, err := ValueOf(v)
		if err != nil {
			return err
		}
		root = &val
	}

	s := newState(enc)
	defer putState(s)

	if version != "" {
		if !isVersion(version) {
			return &UnsupportedValueError{Value: strconv.Quote(version), Reason: "version must be digits and dots"}
		}
		s.write("v")
		s.write(version)
		s.write("\n")
	}
	if root != nil {
		s.writeValue(*root, 0)
	}
	if s.err == nil {
		s.write("\n")
	}
	return s.err
}

func isVersion(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isNumeric(s[i]) {
			return false
		}
	}
	return s != "" && isNumeric(s[0])
}

// encodeState holds the state for a single Encode call.
type encodeState struct {
	w       io.Writer
	err     error
	indent  string
	keysets bool
	named   map[string]string // Joined field list -> declared keyset name.
}

var statePool = sync.Pool{
	New: func() any {
		return new(encodeState)
	},
}

// newState retrieves a state from the pool and configures it for enc.
func newState(enc *Encoder) *encodeState {
	s := statePool.Get().(*encodeState)
	s.w = enc.w
	s.indent = enc.indent
	s.keysets = enc.keysets
	if s.keysets {
		s.named = make(map[string]string)
	}
	return s
}

// putState returns a state to the pool.
func putState(s *encodeState) {
	*s = encodeState{}
	statePool.Put(s)
}

// write writes str, stopping immediately if an error has occurred.
func (s *encodeState) write(str string) {
	if s.err != nil {
		return
	}
	_, s.err = io.WriteString(s.w, str)
}

// newline starts a new indented line when indenting is on.
func (s *encodeState) newline(depth int) {
	if s.indent == "" {
		return
	}
	s.write("\n")
	s.write(strings.Repeat(s.indent, depth))
}

// writeValue is the recursive function that writes a Value tree.
func (s *encodeState) writeValue(v Value, depth int) {
	if s.err != nil {
		return
	}

	switch v.Kind() {
	case KindNull:
		s.write("!")
	case KindBool:
		if v.Bool() {
			s.write("+")
		} else {
			s.write("-")
		}
	case KindNumber:
		s.writeNumber(v.Number())
	case KindText:
		s.writeText(v.Text())
	case KindList:
		s.writeList(v.List(), depth)
	case KindRecord:
		s.writeRecord(v.Record(), depth)
	}
}

func (s *encodeState) writeNumber(f float64) {
	switch {
	case math.IsNaN(f) || math.IsInf(f, 0):
		s.err = &UnsupportedValueError{Value: strconv.FormatFloat(f, 'g', -1, 64), Reason: "no representation for NaN or infinity"}
		return
	case f < 0:
		s.err = &UnsupportedValueError{Value: strconv.FormatFloat(f, 'g', -1, 64), Reason: "negative numbers have no representation"}
		return
	case f == 0:
		f = 0 // Drop the sign of negative zero.
	}

	// Plain decimal only: the notation has no signed exponents.
	s.write(strconv.FormatFloat(f, 'f', -1, 64))
}

func (s *encodeState) writeText(str string) {
	var sb strings.Builder
	sb.Grow(len(str) + 2)
	sb.WriteByte('"')
	for i := 0; i < len(str); i++ {
		if c := str[i]; c == '\\' || c == '"' {
			sb.WriteByte('\\')
		}
		sb.WriteByte(str[i])
	}
	sb.WriteByte('"')
	s.write(sb.String())
}

func (s *encodeState) writeList(list []Value, depth int) {
	if s.keysets {
		if fields, ok := uniformFields(list); ok {
			s.writeKeysetRef(fields)
			s.writePositionalList(list, fields, depth)
			return
		}
	}

	if len(list) == 0 {
		s.write("[]")
		return
	}

	s.write("[")
	for i, elem := range list {
		if i > 0 {
			s.write(",")
		}
		s.newline(depth + 1)
		s.writeValue(elem, depth+1)
	}
	s.newline(depth)
	s.write("]")
}

func (s *encodeState) writeRecord(rec *Record, depth int) {
	if rec.Len() == 0 {
		s.write("{}")
		return
	}

	s.write("{")
	i := 0
	for key, val := range rec.All() {
		if !isPlainKey(key) {
			s.err = &UnsupportedValueError{Value: strconv.Quote(key), Reason: "key holds a space, control character, or an unescaped separator or comment opener"}
			return
		}
		if i > 0 {
			s.write(",")
		}
		s.newline(depth + 1)
		s.write(key)
		if strings.HasSuffix(key, `\`) {
			// Keep the separator from being escaped by the key's last byte.
			s.write(" ")
		}
		if s.indent != "" {
			s.write(": ")
		} else {
			s.write(":")
		}
		s.writeValue(val, depth+1)
		i++
	}
	s.newline(depth)
	s.write("}")
}

// writeKeysetRef writes a declaration for fields, or a reference to the
// keyset already declared for them. The list follows immediately.
func (s *encodeState) writeKeysetRef(fields []string) {
	joined := strings.Join(fields, ",")
	if name, ok := s.named[joined]; ok {
		s.write(name)
		return
	}

	name := keysetName(len(s.named))
	s.named[joined] = name
	s.write(name)
	s.write("(")
	s.write(joined)
	s.write(")")
}

func (s *encodeState) writePositionalList(list []Value, fields []string, depth int) {
	sep := ","
	if s.indent != "" {
		sep = ", "
	}

	s.write("[")
	for i, elem := range list {
		if i > 0 {
			s.write(",")
		}
		s.newline(depth + 1)
		s.write("{")
		for j, field := range fields {
			if j > 0 {
				s.write(sep)
			}
			v, _ := elem.Record().Get(field)
			s.writeValue(v, depth+1)
		}
		s.write("}")
	}
	s.newline(depth)
	s.write("]")
}

// uniformFields reports the shared field sequence of a list of two or more
// records, provided every field name can appear in a declaration.
func uniformFields(list []Value) ([]string, bool) {
	if len(list) < 2 {
		return nil, false
	}

	if list[0].Kind() != KindRecord || list[0].Record().Len() == 0 {
		return nil, false
	}
	first := list[0].Record()
	for _, elem := range list[1:] {
		if elem.Kind() != KindRecord || !first.sameKeys(elem.Record()) {
			return nil, false
		}
	}

	fields := first.Keys()
	for _, f := range fields {
		if !isFieldName(f) {
			return nil, false
		}
	}
	return fields, true
}

// keysetName returns a letters-only identifier for the n-th keyset.
func keysetName(n int) string {
	var b []byte
	for {
		b = append([]byte{byte('a' + n%26)}, b...)
		if n < 26 {
			break
		}
		n = n/26 - 1
	}
	return "k" + string(b)
}

// isPlainKey reports whether key reads back unchanged when written as is.
// The decoder keeps escaping backslashes in keys, so a ',', ':', '}' or
// comment opener is fine as long as a backslash precedes it.
func isPlainKey(key string) bool {
	for i := 0; i < len(key); i++ {
		c := key[i]
		if isSpace(c) {
			return false
		}
		if i > 0 && key[i-1] == '\\' {
			continue
		}
		if c == ',' || c == ':' || c == '}' || strings.HasPrefix(key[i:], commentOpen) {
			return false
		}
	}
	return true
}

// isFieldName reports whether name can be listed in a keyset declaration.
func isFieldName(name string) bool {
	if name == "" || strings.Contains(name, commentOpen) {
		return false
	}
	for i := 0; i < len(name); i++ {
		switch c := name[i]; {
		case isSpace(c), c == ',', c == ')':
			return false
		}
	}
	return true
}

// ValueOf converts a Go value into a Value tree using the rules of Marshal.
func ValueOf(v any) (Value, error) {
	var err error
	val := toValue(reflect.ValueOf(v), &err)
	if err != nil {
		return Value{}, err
	}
	return val, nil
}

// toValue is the recursive function that dispatches on the Go value's kind.
func toValue(v reflect.Value, err *error) Value {
	if *err != nil {
		return Value{}
	}

	// Follow pointers and interfaces to find the concrete value.
	v = indirect(v, err)
	if *err != nil || !v.IsValid() {
		return Null()
	}

	switch v.Type() {
	case valueType:
		return v.Interface().(Value)
	case recordType:
		rec := v.Interface().(Record)
		return Object(&rec)
	case documentType:
		*err = fmt.Errorf("cotn: a Document can only be encoded at the top level")
		return Value{}
	}

	switch v.Kind() {
	case reflect.Map:
		return mapToValue(v, err)
	case reflect.Struct:
		return structToValue(v, err)
	case reflect.Slice, reflect.Array:
		out := make([]Value, v.Len())
		for i := range out {
			out[i] = toValue(v.Index(i), err)
		}
		return List(out...)
	case reflect.String:
		return Text(v.String())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Number(float64(v.Int()))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return Number(float64(v.Uint()))
	case reflect.Float32, reflect.Float64:
		return Number(v.Float())
	case reflect.Bool:
		return Bool(v.Bool())
	default:
		*err = fmt.Errorf("cotn: unsupported type: %s", v.Type())
		return Value{}
	}
}

// mapToValue converts a map with string keys into a record. Keys are
// sorted so the output is deterministic.
func mapToValue(v reflect.Value, err *error) Value {
	if v.Type().Key().Kind() != reflect.String {
		*err = fmt.Errorf("cotn: map key type must be a string, not %s", v.Type().Key())
		return Value{}
	}

	keys := v.MapKeys()
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].String() < keys[j].String()
	})

	rec := NewRecord()
	for _, key := range keys {
		rec.Set(key.String(), toValue(v.MapIndex(key), err))
	}
	return Object(rec)
}

// structToValue converts a struct into a record, in field order.
func structToValue(v reflect.Value, err *error) Value {
	rec := NewRecord()
	for i := 0; i < v.NumField(); i++ {
		field := v.Type().Field(i)
		if !field.IsExported() {
			continue
		}

		name, omitempty := parseStructTag(field.Tag)
		if name == "-" {
			continue
		}
		if name == "" {
			name = field.Name
		}

		fv := v.Field(i)
		if omitempty && fv.IsZero() {
			continue
		}
		rec.Set(name, toValue(fv, err))
	}
	return Object(rec)
}

// parseStructTag splits a `cotn` tag into its name and omitempty option.
func parseStructTag(tag reflect.StructTag) (string, bool) {
	name, opts, _ := strings.Cut(tag.Get("cotn"), ",")
	omitempty := false
	for opts != "" {
		var opt string
		opt, opts, _ = strings.Cut(opts, ",")
		if opt == "omitempty" {
			omitempty = true
		}
	}
	return name, omitempty
}

// indirect walks down a chain of pointers and interfaces to find the
// underlying concrete value. A nil pointer yields an invalid reflect.Value,
// which is encoded as null.
func indirect(v reflect.Value, err *error) reflect.Value {
	// The loop limit guards against circular data structures.
	for i := 0; i < 1000; i++ {
		if !v.IsValid() {
			return v
		}
		if v.Type() == valueType || v.Type() == recordType {
			return v
		}
		kind := v.Kind()
		if kind != reflect.Pointer && kind != reflect.Interface {
			return v
		}
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	*err = fmt.Errorf("cotn: encountered a circular or excessively deep data structure")
	return reflect.Value{}
}
