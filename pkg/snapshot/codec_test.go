package snapshot

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeField(t *testing.T) {
	text := Column{Name: "name"}
	num := Column{Name: "id", Numeric: true}

	tests := []struct {
		name string
		v    Value
		c    Column
		want string
	}{
		{"null", Value{Null: true}, text, "NULL"},
		{"null numeric", Value{Null: true}, num, "NULL"},
		{"empty numeric", Value{}, num, "NULL"},
		{"empty text", Value{}, text, `""`},
		{"literal NULL string", Value{String: "NULL"}, text, `"NULL"`},
		{"number", Value{String: "42"}, num, `"42"`},
		{"quotes", Value{String: `say "hi"`}, text, `"say ""hi"""`},
		{"backslash", Value{String: `C:\tmp`}, text, `"C:\\tmp"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EncodeField(tt.v, tt.c))
		})
	}
}

func TestEncoder_WriteRow(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	cols := []Column{{Name: "id", Numeric: true}, {Name: "name"}, {Name: "score", Numeric: true}}

	require.NoError(t, enc.WriteRow(cols, []Value{{String: "1"}, {String: "ann"}, {String: ""}}))
	require.NoError(t, enc.WriteRow(cols, []Value{{String: "2"}, {Null: true}, {String: "3.5"}}))
	require.NoError(t, enc.Flush())

	assert.Equal(t, "\"1\",\"ann\",NULL\n\"2\",NULL,\"3.5\"\n", buf.String())

	err := enc.WriteRow(cols, []Value{{String: "1"}})
	assert.Error(t, err)
}

func TestCodec_RoundTrip(t *testing.T) {
	rows := [][]Value{
		{{String: "1"}, {String: "plain"}, {Null: true}},
		{{String: "2"}, {String: "comma, inside"}, {String: "NULL"}},
		{{String: "3"}, {String: "multi\nline"}, {String: ""}},
		{{String: "4"}, {String: `back\slash and "quote"`}, {String: `\"`}},
	}

	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	for _, r := range rows {
		require.NoError(t, enc.Write(r))
	}
	require.NoError(t, enc.Flush())

	dec := NewDecoder(&buf)
	var got [][]Value
	for {
		r, err := dec.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		got = append(got, r)
	}
	assert.Equal(t, rows, got)
}

func TestDecoder_Lenient(t *testing.T) {
	in := "\n\"a\",b,NULL\r\n\n\"x\",\n\"last\""
	dec := NewDecoder(strings.NewReader(in))

	r, err := dec.Read()
	require.NoError(t, err)
	assert.Equal(t, []Value{{String: "a"}, {String: "b"}, {Null: true}}, r)

	r, err = dec.Read()
	require.NoError(t, err)
	assert.Equal(t, []Value{{String: "x"}, {String: ""}}, r)

	r, err = dec.Read()
	require.NoError(t, err)
	assert.Equal(t, []Value{{String: "last"}}, r)

	_, err = dec.Read()
	assert.ErrorIs(t, err, io.EOF)
}

func TestDecoder_Malformed(t *testing.T) {
	for _, in := range []string{
		"\"unterminated\n",
		"\"a\"x,\"b\"\n",
		"a\"b\n",
	} {
		_, err := NewDecoder(strings.NewReader(in)).Read()
		assert.ErrorIs(t, err, ErrMalformedRow, "%q", in)
	}
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"id", "name"}, Names([]Column{{Name: "id", Numeric: true}, {Name: "name"}}))
}
