package cotn

import (
	"bytes"
	"math"
	"strconv"

	"github.com/goccy/go-json"
)

// MarshalJSON renders v as JSON, keeping record fields in order.
// Non-finite numbers are written as null.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.writeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) writeJSON(buf *bytes.Buffer) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.boolVal))
	case KindNumber:
		// Out-of-range literals decode to infinities, which JSON lacks.
		if math.IsInf(v.numVal, 0) || math.IsNaN(v.numVal) {
			buf.WriteString("null")
			return nil
		}
		b, err := json.Marshal(v.numVal)
		if err != nil {
			return err
		}
		buf.Write(b)
	case KindText:
		b, err := json.Marshal(v.strVal)
		if err != nil {
			return err
		}
		buf.Write(b)
	case KindList:
		buf.WriteByte('[')
		for i, e := range v.listVal {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := e.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindRecord:
		buf.WriteByte('{')
		i := 0
		for k, e := range v.recVal.All() {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := e.writeJSON(buf); err != nil {
				return err
			}
			i++
		}
		buf.WriteByte('}')
	}
	return nil
}

// MarshalJSON renders d as {"version": ..., "value": ...}. An absent
// version or root is null.
func (d Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"version":`)
	if d.HasVersion() {
		b, err := json.Marshal(d.Version)
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	} else {
		buf.WriteString("null")
	}

	buf.WriteString(`,"value":`)
	if d.Root != nil {
		if err := d.Root.writeJSON(&buf); err != nil {
			return nil, err
		}
	} else {
		buf.WriteString("null")
	}
	buf.WriteByte('}')

	return buf.Bytes(), nil
}
