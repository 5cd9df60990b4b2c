// Package cotn provides functionality for decoding and encoding COTN
// documents: a compact, comment-tolerant notation with named keysets for
// positional objects.
package cotn

import (
	"errors"
	"fmt"
	"io"
	"math"
	"reflect"
)

var (
	valueType    = reflect.TypeOf(Value{})
	recordType   = reflect.TypeOf(Record{})
	documentType = reflect.TypeOf(Document{})
)

// Decoder reads and decodes a COTN document from an input stream.
// The whole stream is read before decoding starts.
type Decoder struct {
	r io.Reader
}

// NewDecoder returns a new decoder that reads from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r}
}

// Document reads the rest of the stream and parses it.
func (dec *Decoder) Document() (*Document, error) {
	data, err := io.ReadAll(dec.r)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Decode reads the COTN document from the input stream and stores its root
// value in the pointer v. See Unmarshal for the conversion rules.
func (dec *Decoder) Decode(v any) error {
	doc, err := dec.Document()
	if err != nil {
		return err
	}
	return setValue(v, doc)
}

// Unmarshal parses COTN data and stores the root value in the value pointed
// to by v. If v is nil or not a pointer, it returns an error.
//
// Decoded values are converted as follows:
//   - *Document receives the whole document, version included.
//   - *Value and *Record receive the tree as is.
//   - interface values receive nil, bool, float64, string, []any or
//     map[string]any.
//   - structs are filled from records, matching fields by their `cotn` tag
//     or, failing that, by field name.
//   - numbers convert to any numeric kind if they fit; integer kinds
//     require whole numbers.
//   - null, and a document without a root, set the zero value.
//
// If the data contains a syntax error, a *SyntaxError is returned.
func Unmarshal(data []byte, v any) error {
	doc, err := Parse(data)
	if err != nil {
		return err
	}
	return setValue(v, doc)
}

// setValue sets the destination value from the parsed document.
func setValue(dst any, doc *Document) error {
	if dst == nil {
		return errors.New("cotn: cannot unmarshal into a nil value")
	}

	val := reflect.ValueOf(dst)
	if val.Kind() != reflect.Ptr {
		return errors.New("cotn: destination is not a pointer")
	}
	if val.IsNil() {
		return errors.New("cotn: destination pointer is nil")
	}

	d := val.Elem()
	if d.Type() == documentType {
		d.Set(reflect.ValueOf(*doc))
		return nil
	}

	root := Null()
	if doc.Root != nil {
		root = *doc.Root
	}
	return setValueReflect(d, root)
}

// setValueReflect recursively sets values to dst from src using reflection.
func setValueReflect(dst reflect.Value, src Value) error {
	switch dst.Type() {
	case valueType:
		dst.Set(reflect.ValueOf(src))
		return nil
	case recordType:
		if src.IsNull() {
			dst.Set(reflect.Zero(dst.Type()))
			return nil
		}
		if src.Kind() != KindRecord {
			return fmt.Errorf("cannot unmarshal %s into Record", src.Kind())
		}
		dst.Set(reflect.ValueOf(src.Record()).Elem())
		return nil
	}

	if src.IsNull() {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}

	switch dst.Kind() {
	case reflect.Interface:
		if dst.NumMethod() != 0 {
			return fmt.Errorf("cannot unmarshal %s into non-empty interface %s", src.Kind(), dst.Type())
		}
		dst.Set(reflect.ValueOf(src.Interface()))
		return nil
	case reflect.Struct:
		return setStruct(dst, src)
	case reflect.Slice:
		return setSlice(dst, src)
	case reflect.Array:
		return setArray(dst, src)
	case reflect.Map:
		return setMap(dst, src)
	case reflect.Ptr:
		return setPtr(dst, src)
	case reflect.String:
		return setString(dst, src)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return setInt(dst, src)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return setUint(dst, src)
	case reflect.Float32, reflect.Float64:
		return setFloat(dst, src)
	case reflect.Bool:
		return setBool(dst, src)
	default:
		return fmt.Errorf("cannot unmarshal %s into %s", src.Kind(), dst.Type())
	}
}

// setStruct unmarshals a record into a struct.
func setStruct(dst reflect.Value, src Value) error {
	if src.Kind() != KindRecord {
		return fmt.Errorf("cannot unmarshal %s into struct", src.Kind())
	}
	rec := src.Record()

	structType := dst.Type()
	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)
		fieldValue := dst.Field(i)

		// Skip unexported fields.
		if !fieldValue.CanSet() {
			continue
		}

		fieldName := getFieldName(field)
		if fieldName == "-" {
			continue
		}

		if srcValue, exists := rec.Get(fieldName); exists {
			if err := setValueReflect(fieldValue, srcValue); err != nil {
				return fmt.Errorf("error setting field %s: %w", field.Name, err)
			}
		}
	}

	return nil
}

// getFieldName returns the field name to use for mapping, checking for struct tags.
func getFieldName(field reflect.StructField) string {
	name, _ := parseStructTag(field.Tag)
	if name == "" {
		return field.Name
	}
	return name
}

// setSlice unmarshals a list into a slice.
func setSlice(dst reflect.Value, src Value) error {
	if src.Kind() != KindList {
		return fmt.Errorf("cannot unmarshal %s into slice", src.Kind())
	}
	list := src.List()

	newSlice := reflect.MakeSlice(dst.Type(), len(list), len(list))
	for i, elem := range list {
		if err := setValueReflect(newSlice.Index(i), elem); err != nil {
			return fmt.Errorf("error setting slice element %d: %w", i, err)
		}
	}

	dst.Set(newSlice)
	return nil
}

// setArray unmarshals a list into a fixed-size array. Surplus elements are
// an error; missing ones leave zero values.
func setArray(dst reflect.Value, src Value) error {
	if src.Kind() != KindList {
		return fmt.Errorf("cannot unmarshal %s into array", src.Kind())
	}
	list := src.List()
	if len(list) > dst.Len() {
		return fmt.Errorf("cannot unmarshal list of %d elements into %s", len(list), dst.Type())
	}

	dst.Set(reflect.Zero(dst.Type()))
	for i, elem := range list {
		if err := setValueReflect(dst.Index(i), elem); err != nil {
			return fmt.Errorf("error setting array element %d: %w", i, err)
		}
	}
	return nil
}

// setMap unmarshals a record into a map with string keys.
func setMap(dst reflect.Value, src Value) error {
	if src.Kind() != KindRecord {
		return fmt.Errorf("cannot unmarshal %s into map", src.Kind())
	}

	mapType := dst.Type()
	if mapType.Key().Kind() != reflect.String {
		return fmt.Errorf("maps with non-string keys are not supported")
	}

	newMap := reflect.MakeMapWithSize(mapType, src.Record().Len())
	for key, srcValue := range src.Record().All() {
		valueValue := reflect.New(mapType.Elem()).Elem()
		if err := setValueReflect(valueValue, srcValue); err != nil {
			return fmt.Errorf("error setting map value for key %s: %w", key, err)
		}
		newMap.SetMapIndex(reflect.ValueOf(key).Convert(mapType.Key()), valueValue)
	}

	dst.Set(newMap)
	return nil
}

// setPtr unmarshals into a pointer.
func setPtr(dst reflect.Value, src Value) error {
	newPtr := reflect.New(dst.Type().Elem())
	if err := setValueReflect(newPtr.Elem(), src); err != nil {
		return err
	}

	dst.Set(newPtr)
	return nil
}

func setString(dst reflect.Value, src Value) error {
	if src.Kind() != KindText {
		return fmt.Errorf("cannot unmarshal %s into string", src.Kind())
	}
	dst.SetString(src.Text())
	return nil
}

// setInt converts a whole number to a signed integer.
func setInt(dst reflect.Value, src Value) error {
	if src.Kind() != KindNumber {
		return fmt.Errorf("cannot unmarshal %s into integer", src.Kind())
	}

	v := src.Number()
	if v != math.Trunc(v) {
		return fmt.Errorf("cannot unmarshal number %g into integer type", v)
	}
	if v < math.MinInt64 || v >= math.MaxInt64 {
		return fmt.Errorf("value %g overflows %s", v, dst.Type())
	}
	intVal := int64(v)
	if dst.OverflowInt(intVal) {
		return fmt.Errorf("value %g overflows %s", v, dst.Type())
	}

	dst.SetInt(intVal)
	return nil
}

// setUint converts a whole number to an unsigned integer.
func setUint(dst reflect.Value, src Value) error {
	if src.Kind() != KindNumber {
		return fmt.Errorf("cannot unmarshal %s into unsigned integer", src.Kind())
	}

	v := src.Number()
	if v != math.Trunc(v) {
		return fmt.Errorf("cannot unmarshal number %g into integer type", v)
	}
	if v >= math.MaxUint64 {
		return fmt.Errorf("value %g overflows %s", v, dst.Type())
	}
	uintVal := uint64(v)
	if dst.OverflowUint(uintVal) {
		return fmt.Errorf("value %g overflows %s", v, dst.Type())
	}

	dst.SetUint(uintVal)
	return nil
}

func setFloat(dst reflect.Value, src Value) error {
	if src.Kind() != KindNumber {
		return fmt.Errorf("cannot unmarshal %s into float", src.Kind())
	}

	v := src.Number()
	if dst.OverflowFloat(v) {
		return fmt.Errorf("value %g overflows %s", v, dst.Type())
	}

	dst.SetFloat(v)
	return nil
}

func setBool(dst reflect.Value, src Value) error {
	if src.Kind() != KindBool {
		return fmt.Errorf("cannot unmarshal %s into bool", src.Kind())
	}
	dst.SetBool(src.Bool())
	return nil
}
