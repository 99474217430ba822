// Package snapshot reads and writes table row snapshots.
//
// A snapshot is a line-oriented CSV file holding one row per line in the
// table's column order. NULL is written as a bare NULL token; every other
// value is double-quoted, so a NULL and the string "NULL" stay distinct.
// Inside quotes a double quote is doubled and a backslash is escaped as
// two backslashes.
package snapshot

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// NullToken is the bare field written for SQL NULL.
const NullToken = "NULL"

// ErrMalformedRow is returned by Decoder.Read for a line that is not a
// valid snapshot row.
var ErrMalformedRow = errors.New("snapmig: malformed snapshot row")

// Value is one field of a snapshot row.
type Value struct {
	String string
	Null   bool
}

// Column describes a table column for snapshot purposes. Numeric columns
// encode an empty value as NULL.
type Column struct {
	Name    string
	Numeric bool
}

// Names returns the column names in order.
func Names(cols []Column) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}

// EncodeField returns the snapshot text for v in column c.
func EncodeField(v Value, c Column) string {
	if v.Null || (v.String == "" && c.Numeric) {
		return NullToken
	}
	return quote(v.String)
}

var escaper = strings.NewReplacer(`\`, `\\`, `"`, `""`)

func quote(s string) string {
	return `"` + escaper.Replace(s) + `"`
}

// Encoder writes snapshot rows.
type Encoder struct {
	w *bufio.Writer
}

// NewEncoder returns an Encoder writing to w. Call Flush when done.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: bufio.NewWriter(w)}
}

// Write writes one row. Column metadata is not consulted; use WriteRow to
// apply the numeric empty-value rule.
func (e *Encoder) Write(row []Value) error {
	for i, v := range row {
		if i > 0 {
			if err := e.w.WriteByte(','); err != nil {
				return err
			}
		}
		field := NullToken
		if !v.Null {
			field = quote(v.String)
		}
		if _, err := e.w.WriteString(field); err != nil {
			return err
		}
	}
	return e.w.WriteByte('\n')
}

// WriteRow writes one row, encoding each field against its column.
func (e *Encoder) WriteRow(cols []Column, row []Value) error {
	if len(cols) != len(row) {
		return fmt.Errorf("row has %d fields, want %d", len(row), len(cols))
	}
	for i, v := range row {
		if i > 0 {
			if err := e.w.WriteByte(','); err != nil {
				return err
			}
		}
		if _, err := e.w.WriteString(EncodeField(v, cols[i])); err != nil {
			return err
		}
	}
	return e.w.WriteByte('\n')
}

// Flush writes any buffered data to the underlying writer.
func (e *Encoder) Flush() error {
	return e.w.Flush()
}

// Decoder reads snapshot rows.
type Decoder struct {
	r    *bufio.Reader
	line int
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Read returns the next row, or io.EOF when the input is exhausted. Blank
// lines are skipped. Unquoted fields other than NULL are returned as plain
// strings.
func (d *Decoder) Read() ([]Value, error) {
	for {
		c, err := d.r.ReadByte()
		if err != nil {
			return nil, err
		}
		switch c {
		case '\n':
			d.line++
			continue
		case '\r':
			continue
		}
		if err := d.r.UnreadByte(); err != nil {
			return nil, err
		}
		break
	}

	d.line++
	var row []Value
	for {
		v, end, err := d.field()
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrMalformedRow, d.line, err)
		}
		row = append(row, v)
		if end {
			return row, nil
		}
	}
}

// field reads one field and reports whether it ended the row.
func (d *Decoder) field() (Value, bool, error) {
	c, err := d.r.ReadByte()
	if err == io.EOF {
		return Value{}, true, nil
	}
	if err != nil {
		return Value{}, false, err
	}
	if c == '"' {
		return d.quoted()
	}
	if err := d.r.UnreadByte(); err != nil {
		return Value{}, false, err
	}

	var sb strings.Builder
	for {
		c, err := d.r.ReadByte()
		if err == io.EOF {
			return bare(sb.String()), true, nil
		}
		if err != nil {
			return Value{}, false, err
		}
		switch c {
		case ',':
			return bare(sb.String()), false, nil
		case '\n':
			return bare(strings.TrimSuffix(sb.String(), "\r")), true, nil
		case '"':
			return Value{}, false, errors.New("quote in unquoted field")
		}
		sb.WriteByte(c)
	}
}

func bare(s string) Value {
	if s == NullToken {
		return Value{Null: true}
	}
	return Value{String: s}
}

// quoted reads the rest of a quoted field; the opening quote is consumed.
func (d *Decoder) quoted() (Value, bool, error) {
	var sb strings.Builder
	for {
		c, err := d.r.ReadByte()
		if err == io.EOF {
			return Value{}, false, errors.New("unterminated quoted field")
		}
		if err != nil {
			return Value{}, false, err
		}
		switch c {
		case '\\':
			next, err := d.r.ReadByte()
			if err != nil {
				return Value{}, false, errors.New("dangling escape")
			}
			sb.WriteByte(next)
		case '"':
			next, err := d.r.ReadByte()
			if err == io.EOF {
				return Value{String: sb.String()}, true, nil
			}
			if err != nil {
				return Value{}, false, err
			}
			switch next {
			case '"':
				sb.WriteByte('"')
			case ',':
				return Value{String: sb.String()}, false, nil
			case '\n':
				return Value{String: sb.String()}, true, nil
			case '\r':
				if nl, err := d.r.ReadByte(); err == nil && nl != '\n' {
					return Value{}, false, errors.New("stray carriage return")
				}
				return Value{String: sb.String()}, true, nil
			default:
				return Value{}, false, fmt.Errorf("unexpected %q after closing quote", next)
			}
		default:
			sb.WriteByte(c)
		}
	}
}
