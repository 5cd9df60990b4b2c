package cotn

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshal(t *testing.T) {
	f := func(name string, input any, expected string) {
		t.Helper()
		t.Run(name, func(t *testing.T) {
			t.Helper()
			out, err := Marshal(input)
			require.NoError(t, err)
			assert.Equal(t, expected, string(out))
		})
	}

	f("nil", nil, "!\n")
	f("nil_pointer", (*int)(nil), "!\n")
	f("true", true, "+\n")
	f("false", false, "-\n")
	f("int", 42, "42\n")
	f("float", 3.5, "3.5\n")
	f("large_float", 1e21, "1000000000000000000000\n")
	f("small_float", 1e-7, "0.0000001\n")
	f("negative_zero", math.Copysign(0, -1), "0\n")
	f("string", `a"b\c`, `"a\"b\\c"`+"\n")
	f("empty_list", []int{}, "[]\n")
	f("nil_slice", []int(nil), "[]\n")
	f("empty_record", struct{}{}, "{}\n")
	f("list", []any{1, "x", nil, true}, `[1,"x",!,+]`+"\n")
	f("array", [2]uint8{7, 8}, "[7,8]\n")
	f("sorted_map", map[string]any{"b": 1, "a": []any{true, nil}}, "{a:[+,!],b:1}\n")
	f("value", List(Text("a"), Null()), `["a",!]`+"\n")
	f("record", func() *Record {
		r := NewRecord()
		r.Set("z", Number(1))
		r.Set("a", Number(2))
		return r
	}(), "{z:1,a:2}\n")
	f("unicode_key", map[string]int{"ключ": 1}, "{ключ:1}\n")
	f("escaped_keys", map[string]int{`a\,b`: 1, `c\:d\}`: 2, `e\<<f`: 3}, `{a\,b:1,c\:d\}:2,e\<<f:3}`+"\n")
	f("trailing_backslash_key", map[string]int{`a\`: 1}, `{a\ :1}`+"\n")
}

func TestMarshalStructTags(t *testing.T) {
	type item struct {
		Name   string `cotn:"name"`
		Count  int    `cotn:"count,omitempty"`
		Secret string `cotn:"-"`
		Note   string
	}

	out, err := Marshal(item{Name: "x", Secret: "s", Note: "n"})
	require.NoError(t, err)
	assert.Equal(t, `{name:"x",Note:"n"}`+"\n", string(out))

	out, err = Marshal(&item{Name: "x", Count: 2})
	require.NoError(t, err)
	assert.Equal(t, `{name:"x",count:2,Note:""}`+"\n", string(out))
}

func TestMarshalErrors(t *testing.T) {
	f := func(name string, input any, unsupported bool) {
		t.Helper()
		t.Run(name, func(t *testing.T) {
			t.Helper()
			_, err := Marshal(input)
			require.Error(t, err)

			var uve *UnsupportedValueError
			assert.Equal(t, unsupported, errors.As(err, &uve), err.Error())
		})
	}

	f("negative_int", -1, true)
	f("negative_in_list", []float64{1, -0.5}, true)
	f("nan", math.NaN(), true)
	f("inf", math.Inf(1), true)
	f("key_with_space", map[string]int{"a b": 1}, true)
	f("key_with_colon", map[string]int{"a:b": 1}, true)
	f("key_with_comment", map[string]int{"a<<b": 1}, true)
	f("key_with_brace", map[string]int{"a}": 1}, true)
	f("key_with_triple_angle", map[string]int{`a\<<<b`: 1}, true)
	f("int_keys", map[int]int{1: 1}, false)
	f("channel", make(chan int), false)
	f("func_field", struct{ F func() }{F: func() {}}, false)
	f("nested_document", []any{Document{}}, false)
}

func TestEncoderIndent(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	enc.SetIndent("  ")
	require.NoError(t, enc.Encode(map[string]any{"a": 1, "b": []int{1, 2}, "c": []int{}}))

	assert.Equal(t, "{\n  a: 1,\n  b: [\n    1,\n    2\n  ],\n  c: []\n}\n", buf.String())
}

func TestEncoderVersion(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	enc.SetVersion("1.2")
	require.NoError(t, enc.Encode(true))
	assert.Equal(t, "v1.2\n+\n", buf.String())

	// A document's own version wins.
	buf.Reset()
	root := Number(5)
	require.NoError(t, enc.Encode(&Document{Version: "3", Root: &root}))
	assert.Equal(t, "v3\n5\n", buf.String())

	buf.Reset()
	require.NoError(t, enc.Encode(Document{}))
	assert.Equal(t, "v1.2\n\n", buf.String())

	enc.SetVersion("x1")
	var uve *UnsupportedValueError
	assert.True(t, errors.As(enc.Encode(true), &uve))

	buf.Reset()
	require.NoError(t, NewEncoder(&buf).Encode((*Document)(nil)))
	assert.Equal(t, "\n", buf.String())
}

func TestEncoderKeysets(t *testing.T) {
	type point struct {
		X int `cotn:"x"`
		Y int `cotn:"y"`
	}
	points := []point{{1, 2}, {3, 4}}

	f := func(name string, input any, expected string) {
		t.Helper()
		t.Run(name, func(t *testing.T) {
			t.Helper()
			var buf bytes.Buffer
			enc := NewEncoder(&buf)
			enc.SetKeysets(true)
			require.NoError(t, enc.Encode(input))
			assert.Equal(t, expected, buf.String())
		})
	}

	f("declare", points, "ka(x,y)[{1,2},{3,4}]\n")
	f("reuse", map[string]any{"a": points, "b": points}, "{a:ka(x,y)[{1,2},{3,4}],b:ka[{1,2},{3,4}]}\n")
	f("second_keyset", []any{points, []map[string]int{{"q": 1}, {"q": 2}}}, "[ka(x,y)[{1,2},{3,4}],kb(q)[{1},{2}]]\n")
	f("single_record", points[:1], "[{x:1,y:2}]\n")
	f("mixed_fields", []any{point{1, 2}, map[string]int{"x": 1}}, "[{x:1,y:2},{x:1}]\n")
	f("not_records", []int{1, 2}, "[1,2]\n")

	r1, r2 := NewRecord(), NewRecord()
	r1.Set("x", Null())
	r1.Set("y", Number(1))
	r2.Set("x", Number(2))
	r2.Set("y", Null())
	f("nulls", List(Object(r1), Object(r2)), "ka(x,y)[{!,1},{2,!}]\n")

	// Keysets are not carried between Encode calls.
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	enc.SetKeysets(true)
	require.NoError(t, enc.Encode(points))
	require.NoError(t, enc.Encode(points))
	assert.Equal(t, "ka(x,y)[{1,2},{3,4}]\nka(x,y)[{1,2},{3,4}]\n", buf.String())
}

func TestKeysetName(t *testing.T) {
	assert.Equal(t, "ka", keysetName(0))
	assert.Equal(t, "kz", keysetName(25))
	assert.Equal(t, "kaa", keysetName(26))
	assert.Equal(t, "kab", keysetName(27))
	assert.Equal(t, "kba", keysetName(52))
}

// Every value Marshal accepts decodes back to itself.
func TestRoundTrip(t *testing.T) {
	samples := []any{
		nil,
		true,
		0,
		12.75,
		1e21,
		0.000001,
		"",
		`quote " and backslash \ and \n`,
		"<<not a comment>>",
		[]any{},
		map[string]any{},
		[]any{1, []any{2, []any{3}}, map[string]any{"k": "v"}},
		map[string]any{"trailing.dot.": 1, "ключ": "значение", "": false},
		[]map[string]any{
			{"id": 1, "tags": []string{"a"}, "meta": map[string]any{"x": nil}},
			{"id": 2, "tags": []string{}, "meta": map[string]any{"x": 1}},
		},
		[]any{
			[]map[string]int{{"a": 1}, {"a": 2}},
			[]map[string]int{{"b": 1}, {"b": 2}},
			[]map[string]int{{"a": 3}, {"a": 4}},
		},
	}

	configs := map[string]func(*Encoder){
		"compact":  func(*Encoder) {},
		"indented": func(e *Encoder) { e.SetIndent("  ") },
		"keysets":  func(e *Encoder) { e.SetKeysets(true) },
		"both": func(e *Encoder) {
			e.SetIndent("\t")
			e.SetKeysets(true)
		},
	}

	for name, configure := range configs {
		t.Run(name, func(t *testing.T) {
			for _, sample := range samples {
				want, err := ValueOf(sample)
				require.NoError(t, err)

				var sb strings.Builder
				enc := NewEncoder(&sb)
				configure(enc)
				require.NoError(t, enc.Encode(sample))

				doc, err := ParseString(sb.String())
				require.NoError(t, err, sb.String())
				require.NotNil(t, doc.Root, sb.String())
				assert.True(t, want.Equal(*doc.Root), "%s decoded as %s", sb.String(), doc.Root)
			}
		})
	}
}

// Documents with escaped keys survive a decode, encode, decode cycle.
func TestRoundTripDecoded(t *testing.T) {
	inputs := []string{
		`{a\,b:1}`,
		`{path\:prefix:"C:\\srv"}`,
		`{x\}y:+,a\<<b:!,c\::[1]}`,
		`{tail\ :1,\\x:2}`,
		`{:-,{n\,:{k\::"v"}}`,
		`p(id,name)[{1,"a"},{2,"b"}]`,
		string(readFixture(t, "service.cotn")),
	}

	configs := map[string]func(*Encoder){
		"compact":  func(*Encoder) {},
		"indented": func(e *Encoder) { e.SetIndent("  ") },
		"keysets":  func(e *Encoder) { e.SetKeysets(true) },
	}

	for name, configure := range configs {
		t.Run(name, func(t *testing.T) {
			for _, input := range inputs {
				first, err := ParseString(input)
				require.NoError(t, err, input)

				var sb strings.Builder
				enc := NewEncoder(&sb)
				configure(enc)
				require.NoError(t, enc.Encode(first), input)

				second, err := ParseString(sb.String())
				require.NoError(t, err, sb.String())
				assert.Equal(t, first.Version, second.Version)
				require.NotNil(t, second.Root, sb.String())
				assert.True(t, first.Root.Equal(*second.Root), "%s re-decoded as %s", sb.String(), second.Root)
			}
		})
	}

	out, err := Marshal(func() Value {
		doc, err := ParseString(`{a\,b:1}`)
		require.NoError(t, err)
		return *doc.Root
	}())
	require.NoError(t, err)
	assert.Equal(t, `{a\,b:1}`+"\n", string(out))
}
