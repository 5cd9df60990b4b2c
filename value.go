package cotn

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind represents the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindText
	KindList
	KindRecord
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	case KindList:
		return "list"
	case KindRecord:
		return "record"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Value is a single decoded COTN value. The zero Value is Null.
type Value struct {
	kind Kind

	boolVal bool
	numVal  float64
	strVal  string
	listVal []Value
	recVal  *Record
}

// Null returns the null value.
func Null() Value { return Value{} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, boolVal: b} }

// Number returns a numeric value.
func Number(f float64) Value { return Value{kind: KindNumber, numVal: f} }

// Text returns a text value.
func Text(s string) Value { return Value{kind: KindText, strVal: s} }

// List returns a list value holding vs in order.
func List(vs ...Value) Value {
	if vs == nil {
		vs = []Value{}
	}
	return Value{kind: KindList, listVal: vs}
}

// Object returns a record value. A nil record is treated as empty.
func Object(r *Record) Value {
	if r == nil {
		r = NewRecord()
	}
	return Value{kind: KindRecord, recVal: r}
}

// Kind returns the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is Null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Bool returns the boolean held by v, or false for other kinds.
func (v Value) Bool() bool { return v.boolVal }

// Number returns the number held by v, or 0 for other kinds.
func (v Value) Number() float64 { return v.numVal }

// Text returns the text held by v, or "" for other kinds.
func (v Value) Text() string { return v.strVal }

// List returns the elements held by v, or nil for other kinds.
func (v Value) List() []Value { return v.listVal }

// Record returns the record held by v, or nil for other kinds.
func (v Value) Record() *Record { return v.recVal }

// Equal reports whether v and o hold deeply equal values.
// Record comparison is order-sensitive.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}

	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.boolVal == o.boolVal
	case KindNumber:
		return v.numVal == o.numVal
	case KindText:
		return v.strVal == o.strVal
	case KindList:
		if len(v.listVal) != len(o.listVal) {
			return false
		}
		for i := range v.listVal {
			if !v.listVal[i].Equal(o.listVal[i]) {
				return false
			}
		}
		return true
	case KindRecord:
		return v.recVal.Equal(o.recVal)
	}

	return false
}

// Interface converts v into plain Go values: nil, bool, float64, string,
// []any and map[string]any. Record order is lost in the conversion.
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.boolVal
	case KindNumber:
		return v.numVal
	case KindText:
		return v.strVal
	case KindList:
		out := make([]any, len(v.listVal))
		for i, e := range v.listVal {
			out[i] = e.Interface()
		}
		return out
	case KindRecord:
		out := make(map[string]any, v.recVal.Len())
		for k, e := range v.recVal.All() {
			out[k] = e.Interface()
		}
		return out
	default:
		return nil
	}
}

// String returns a debugging representation of v.
func (v Value) String() string {
	var sb strings.Builder
	v.writeDebug(&sb)
	return sb.String()
}

func (v Value) writeDebug(sb *strings.Builder) {
	switch v.kind {
	case KindNull:
		sb.WriteString("Null")
	case KindBool:
		fmt.Fprintf(sb, "Bool(%t)", v.boolVal)
	case KindNumber:
		sb.WriteString("Number(")
		sb.WriteString(strconv.FormatFloat(v.numVal, 'g', -1, 64))
		sb.WriteByte(')')
	case KindText:
		fmt.Fprintf(sb, "Text(%q)", v.strVal)
	case KindList:
		sb.WriteString("List[")
		for i, e := range v.listVal {
			if i > 0 {
				sb.WriteString(", ")
			}
			e.writeDebug(sb)
		}
		sb.WriteByte(']')
	case KindRecord:
		sb.WriteString("Record{")
		i := 0
		for k, e := range v.recVal.All() {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(k)
			sb.WriteString(": ")
			e.writeDebug(sb)
			i++
		}
		sb.WriteByte('}')
	}
}

// Document is the result of decoding one COTN input.
type Document struct {
	// Version is the raw digits-and-dots run following the 'v' marker.
	// It is empty when the input carries no version tag.
	Version string

	// Root is the single root value, or nil if the input holds none.
	Root *Value
}

// HasVersion reports whether the document carried a version tag.
func (d *Document) HasVersion() bool { return d.Version != "" }
